package tenant

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"
)

// Client looks tenants up against the external site-resolution service.
// Network failure and "no tenant for this hostname" are distinct outcomes:
// the former is retryable, the latter is terminal.
type Client struct {
	baseURL    string
	httpClient *http.Client
	cache      domain.TenantCache
	cacheTTL   time.Duration
	log        logger.Logger
}

type resolveResponse struct {
	Data *domain.Tenant `json:"data"`
}

func NewClient(baseURL string, cache domain.TenantCache, cacheTTL time.Duration, log logger.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		cache:      cache,
		cacheTTL:   cacheTTL,
		log:        log,
	}
}

func (c *Client) ResolveTenant(ctx context.Context, hostname string) (*domain.Tenant, error) {
	host := Normalize(hostname)

	if c.cache != nil {
		if t, ok, err := c.cache.Get(ctx, host); err != nil {
			c.log.Warn("Tenant cache read failed", "hostname", host, "error", err)
		} else if ok {
			return t, nil
		}
	}

	t, err := c.lookup(ctx, host)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, host, t, c.cacheTTL); err != nil {
			c.log.Warn("Tenant cache write failed", "hostname", host, "error", err)
		}
	}

	return t, nil
}

func (c *Client) lookup(ctx context.Context, hostname string) (*domain.Tenant, error) {
	u := fmt.Sprintf("%s/api/sites/resolve?domain=%s", c.baseURL, url.QueryEscape(hostname))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolutionUnavailable, err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolutionUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, domain.ErrTenantNotFound
	}

	var body resolveResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrResolutionUnavailable, err)
	}
	if body.Data == nil || body.Data.ID == "" {
		return nil, domain.ErrTenantNotFound
	}

	return body.Data, nil
}
