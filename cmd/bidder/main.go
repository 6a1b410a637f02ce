package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/internal/realtime"
	"crownbidder/pkg/logger"
)

// bidder is a small CLI for exercising the realtime protocol against a
// running gateway: connect, join, place one bid, report the outcome.
func main() {
	var (
		gatewayURL = flag.String("gateway", "ws://localhost:8081", "realtime gateway base URL")
		statusURL  = flag.String("status", "http://localhost:8080", "edge base URL for status fetches")
		token      = flag.String("token", "", "bearer token")
		tenantID   = flag.String("tenant", "", "tenant id")
		auctionID  = flag.String("auction", "", "auction id")
		itemIndex  = flag.Int("item", 0, "item index")
		amount     = flag.Float64("amount", 0, "bid amount")
	)
	flag.Parse()

	log := logger.New()

	if *token == "" || *tenantID == "" || *auctionID == "" || *amount <= 0 {
		fmt.Fprintln(os.Stderr, "usage: bidder -token T -tenant T -auction A -amount N [-item I]")
		os.Exit(2)
	}

	session := realtime.NewSession(realtime.Config{
		URL:     fmt.Sprintf("%s/ws/%s", *gatewayURL, *tenantID),
		Token:   *token,
		Dialer:  realtime.NewWebSocketDialer(),
		Fetcher: realtime.NewHTTPStatusFetcher(*statusURL),
		Log:     log,
	})
	defer session.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := session.Connect(ctx); err != nil {
		log.Fatal("Failed to start session", "error", err)
	}

	deadline := time.Now().Add(10 * time.Second)
	for session.State() != realtime.SessionConnected {
		if time.Now().After(deadline) {
			log.Fatal("Timed out waiting for connection")
		}
		time.Sleep(50 * time.Millisecond)
	}

	session.JoinSite(*tenantID)
	session.JoinAuction(*auctionID)

	result, err := session.SubmitBid(ctx, *auctionID, *itemIndex, *amount)
	switch {
	case err == nil:
		log.Info("Bid confirmed", "auction_id", *auctionID,
			"item_index", *itemIndex, "amount", result.Amount)
	case errors.Is(err, domain.ErrBidTimeout):
		log.Error("Bid timed out; safe to resubmit")
		os.Exit(1)
	case errors.Is(err, domain.ErrSessionLost):
		log.Error("Session lost before the bid resolved")
		os.Exit(1)
	default:
		var rejected *domain.BidRejectedError
		if errors.As(err, &rejected) {
			log.Error("Bid rejected", "reason", rejected.Reason)
		} else {
			log.Error("Bid failed", "error", err)
		}
		os.Exit(1)
	}
}
