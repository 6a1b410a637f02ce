package realtime

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"crownbidder/internal/domain"
)

// StatusFetcher reconciles an auction's current status after an outage.
type StatusFetcher interface {
	FetchStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error)
}

type HTTPStatusFetcher struct {
	baseURL    string
	httpClient *http.Client
}

func NewHTTPStatusFetcher(baseURL string) *HTTPStatusFetcher {
	return &HTTPStatusFetcher{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

type statusResponse struct {
	Data struct {
		AuctionID string `json:"auction_id"`
		Status    string `json:"status"`
	} `json:"data"`
}

func (f *HTTPStatusFetcher) FetchStatus(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	u := fmt.Sprintf("%s/api/auctions/%s/status", f.baseURL, auctionID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", err
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status fetch for %s returned %d", auctionID, resp.StatusCode)
	}

	var body statusResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return domain.ParseAuctionStatus(body.Data.Status)
}
