package gateway

import (
	"context"
	"fmt"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"

	"github.com/google/uuid"
)

// StatusService asserts auction status transitions. It is the only writer
// of authoritative status: every change is validated against the status
// machine, stored, and published for fan-out.
type StatusService struct {
	store domain.StatusStore
	bus   domain.TransitionPublisher
	queue domain.ScheduleQueue
	log   logger.Logger
}

func NewStatusService(store domain.StatusStore, bus domain.TransitionPublisher,
	queue domain.ScheduleQueue, log logger.Logger) *StatusService {
	return &StatusService{
		store: store,
		bus:   bus,
		queue: queue,
		log:   log,
	}
}

// CreateAuction registers a new auction in draft.
func (s *StatusService) CreateAuction(ctx context.Context, tenantID string) (*domain.Auction, error) {
	auction := &domain.Auction{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		Status:    domain.AuctionDraft,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := s.store.SetStatus(ctx, auction.ID, domain.AuctionDraft); err != nil {
		return nil, err
	}
	s.log.Info("Auction created", "auction_id", auction.ID, "tenant_id", tenantID)
	return auction, nil
}

// Schedule moves a draft auction to scheduled and enqueues its live and
// ended transitions at the given times.
func (s *StatusService) Schedule(ctx context.Context, auctionID string, startTime, endTime time.Time) error {
	if !endTime.After(startTime) {
		return fmt.Errorf("end time must be after start time")
	}
	if err := s.Transition(ctx, auctionID, domain.AuctionScheduled); err != nil {
		return err
	}

	if err := s.queue.Enqueue(ctx, &domain.TransitionJob{
		AuctionID: auctionID, To: domain.AuctionLive, RunAt: startTime,
	}); err != nil {
		return err
	}
	return s.queue.Enqueue(ctx, &domain.TransitionJob{
		AuctionID: auctionID, To: domain.AuctionEnded, RunAt: endTime,
	})
}

// Transition applies one status change if the machine allows it. The write
// is a compare-and-set against the status read here, so two instances racing
// the same edge produce one transition, not two.
func (s *StatusService) Transition(ctx context.Context, auctionID string, to domain.AuctionStatus) error {
	current, err := s.store.GetStatus(ctx, auctionID)
	if err != nil {
		return err
	}
	if !current.CanTransitionTo(to) {
		return fmt.Errorf("illegal transition %s -> %s for auction %s", current, to, auctionID)
	}

	swapped, err := s.store.CompareAndSetStatus(ctx, auctionID, current, to)
	if err != nil {
		return err
	}
	if !swapped {
		return fmt.Errorf("auction %s left %s concurrently, transition to %s not applied", auctionID, current, to)
	}

	transition := &domain.StatusTransition{
		AuctionID: auctionID,
		From:      current,
		To:        to,
		At:        time.Now(),
	}
	if err := s.bus.PublishTransition(ctx, transition); err != nil {
		s.log.Error("Failed to publish status transition",
			"auction_id", auctionID, "to", to, "error", err)
		return err
	}

	s.log.Info("Auction status transition",
		"auction_id", auctionID, "from", current, "to", to)
	return nil
}

func (s *StatusService) Pause(ctx context.Context, auctionID string) error {
	return s.Transition(ctx, auctionID, domain.AuctionPaused)
}

func (s *StatusService) Resume(ctx context.Context, auctionID string) error {
	return s.Transition(ctx, auctionID, domain.AuctionLive)
}

// End finishes the auction and cancels any still-scheduled transitions.
func (s *StatusService) End(ctx context.Context, auctionID string) error {
	if err := s.Transition(ctx, auctionID, domain.AuctionEnded); err != nil {
		return err
	}
	return s.queue.CancelForAuction(ctx, auctionID)
}

func (s *StatusService) Status(ctx context.Context, auctionID string) (domain.AuctionStatus, error) {
	return s.store.GetStatus(ctx, auctionID)
}
