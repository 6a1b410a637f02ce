package realtime

import (
	"sync"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"
)

type auctionState struct {
	status domain.AuctionStatus
	known  bool
	stale  bool
}

// StatusRegistry mirrors the authoritative status of every subscribed
// auction. Status is mutated only by inbound events and reconcile snapshots,
// never by local optimism.
type StatusRegistry struct {
	mu       sync.Mutex
	auctions map[string]*auctionState
	log      logger.Logger
}

func NewStatusRegistry(log logger.Logger) *StatusRegistry {
	return &StatusRegistry{
		auctions: make(map[string]*auctionState),
		log:      log,
	}
}

func (r *StatusRegistry) Subscribe(auctionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.auctions[auctionID]; !ok {
		r.auctions[auctionID] = &auctionState{stale: true}
	}
}

func (r *StatusRegistry) Unsubscribe(auctionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.auctions, auctionID)
}

// Apply consumes a broadcast transition. Events for auctions the consumer
// has not joined are ignored, as are transitions the status machine
// forbids.
func (r *StatusRegistry) Apply(auctionID string, to domain.AuctionStatus) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.auctions[auctionID]
	if !ok {
		return false
	}
	if entry.known && !entry.status.CanTransitionTo(to) {
		r.log.Warn("Ignoring illegal status transition",
			"auction_id", auctionID, "from", entry.status, "to", to)
		return false
	}

	entry.status = to
	entry.known = true
	entry.stale = false
	return true
}

// SetCurrent installs an authoritative snapshot fetched after reconnect.
// A terminal local state is never resurrected.
func (r *StatusRegistry) SetCurrent(auctionID string, status domain.AuctionStatus) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.auctions[auctionID]
	if !ok {
		return
	}
	if entry.known && entry.status.Terminal() {
		entry.stale = false
		return
	}
	entry.status = status
	entry.known = true
	entry.stale = false
}

// MarkAllStale flags every subscription as needing reconciliation. Events
// missed while disconnected are lost, not replayed.
func (r *StatusRegistry) MarkAllStale() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, entry := range r.auctions {
		entry.stale = true
	}
}

func (r *StatusRegistry) Status(auctionID string) (domain.AuctionStatus, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.auctions[auctionID]
	if !ok || !entry.known {
		return "", false
	}
	return entry.status, true
}

func (r *StatusRegistry) Stale(auctionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.auctions[auctionID]
	return ok && entry.stale
}

func (r *StatusRegistry) staleAuctions() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var ids []string
	for id, entry := range r.auctions {
		if entry.stale {
			ids = append(ids, id)
		}
	}
	return ids
}
