package domain

import (
	"context"
	"time"
)

// Tenant resolution interfaces
type TenantResolver interface {
	ResolveTenant(ctx context.Context, hostname string) (*Tenant, error)
}

type TenantCache interface {
	Get(ctx context.Context, hostname string) (*Tenant, bool, error)
	Set(ctx context.Context, hostname string, tenant *Tenant, ttl time.Duration) error
}

// Status interfaces
type StatusStore interface {
	SetStatus(ctx context.Context, auctionID string, status AuctionStatus) error
	// GetStatus returns ErrAuctionNotFound for an id that was never created.
	GetStatus(ctx context.Context, auctionID string) (AuctionStatus, error)
	// CompareAndSetStatus writes to only if the stored status still equals
	// from, and reports whether the swap happened.
	CompareAndSetStatus(ctx context.Context, auctionID string, from, to AuctionStatus) (bool, error)
}

type TransitionPublisher interface {
	PublishTransition(ctx context.Context, t *StatusTransition) error
}

type TransitionSubscriber interface {
	SubscribeTransitions(ctx context.Context, handler TransitionHandler) error
}

type TransitionHandler func(t *StatusTransition) error

// Ledger is the authoritative-side surface for a bid: accept or reject.
// Ranking and reserve-price policy live behind it, outside this module.
type Ledger interface {
	PlaceBid(ctx context.Context, auctionID string, itemIndex int, bidderID string, amount float64) (bool, string, error)
}

// Scheduled status transitions, executed when their run time passes.
type TransitionJob struct {
	AuctionID string        `json:"auction_id"`
	To        AuctionStatus `json:"to"`
	RunAt     time.Time     `json:"run_at"`
}

type ScheduleQueue interface {
	Enqueue(ctx context.Context, job *TransitionJob) error
	Due(ctx context.Context, before time.Time) ([]*TransitionJob, error)
	CancelForAuction(ctx context.Context, auctionID string) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// Room fan-out interfaces
type RoomBroadcaster interface {
	BroadcastToRoom(room string, msg Message) error
}
