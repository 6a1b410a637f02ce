package domain

import (
	"fmt"
	"time"
)

type Tenant struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	CustomDomain string         `json:"custom_domain"`
	Subdomain    string         `json:"subdomain"`
	Settings     TenantSettings `json:"settings"`
}

type TenantSettings struct {
	Theme string `json:"theme"`
}

type Auction struct {
	ID        string        `json:"id"`
	TenantID  string        `json:"tenant_id"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Status    AuctionStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

type AuctionStatus string

const (
	AuctionDraft     AuctionStatus = "draft"
	AuctionScheduled AuctionStatus = "scheduled"
	AuctionLive      AuctionStatus = "live"
	AuctionPaused    AuctionStatus = "paused"
	AuctionEnded     AuctionStatus = "ended"
)

func ParseAuctionStatus(s string) (AuctionStatus, error) {
	switch AuctionStatus(s) {
	case AuctionDraft, AuctionScheduled, AuctionLive, AuctionPaused, AuctionEnded:
		return AuctionStatus(s), nil
	default:
		return "", fmt.Errorf("unknown auction status %q", s)
	}
}

// CanTransitionTo reports whether moving to the given status is a legal
// machine step. ended is terminal and draft is never re-entered.
func (s AuctionStatus) CanTransitionTo(to AuctionStatus) bool {
	switch s {
	case AuctionDraft:
		return to == AuctionScheduled
	case AuctionScheduled:
		return to == AuctionLive
	case AuctionLive:
		return to == AuctionPaused || to == AuctionEnded
	case AuctionPaused:
		return to == AuctionLive || to == AuctionEnded
	default:
		return false
	}
}

func (s AuctionStatus) Terminal() bool {
	return s == AuctionEnded
}

// CorrelationKey binds a bid submission to its eventual confirm or error.
type CorrelationKey struct {
	AuctionID string
	ItemIndex int
	Seq       uint64
}

func (k CorrelationKey) String() string {
	return fmt.Sprintf("%s/%d/%d", k.AuctionID, k.ItemIndex, k.Seq)
}

// StatusTransition is a server-asserted auction status change delivered to
// every subscriber of the auction's room.
type StatusTransition struct {
	AuctionID string        `json:"auction_id"`
	From      AuctionStatus `json:"from"`
	To        AuctionStatus `json:"to"`
	At        time.Time     `json:"at"`
}
