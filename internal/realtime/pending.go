package realtime

import (
	"sync"
	"time"

	"crownbidder/internal/domain"
)

// BidResult is the confirmed outcome of one submission.
type BidResult struct {
	Key    domain.CorrelationKey
	Amount float64
}

type bidOutcome struct {
	result *BidResult
	err    error
}

type pendingEntry struct {
	key         domain.CorrelationKey
	amount      float64
	submittedAt time.Time
	done        chan bidOutcome // buffered 1; written exactly once
}

type itemKey struct {
	auctionID string
	itemIndex int
}

// pendingArena holds every unresolved submission under one mutex. Each entry
// is resolved exactly once: confirm, error, timeout, and session-loss all
// funnel through resolve, and whichever fires first wins. A confirm and an
// error for the same key can race from different callbacks; the loser finds
// the entry gone and is ignored.
type pendingArena struct {
	mu     sync.Mutex
	byKey  map[domain.CorrelationKey]*pendingEntry
	byItem map[itemKey]domain.CorrelationKey
	seq    uint64
}

func newPendingArena() *pendingArena {
	return &pendingArena{
		byKey:  make(map[domain.CorrelationKey]*pendingEntry),
		byItem: make(map[itemKey]domain.CorrelationKey),
	}
}

// register creates a pending entry, enforcing at most one unresolved
// submission per (auction, item).
func (a *pendingArena) register(auctionID string, itemIndex int, amount float64) (*pendingEntry, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	item := itemKey{auctionID: auctionID, itemIndex: itemIndex}
	if _, exists := a.byItem[item]; exists {
		return nil, domain.ErrBidInFlight
	}

	a.seq++
	entry := &pendingEntry{
		key: domain.CorrelationKey{
			AuctionID: auctionID,
			ItemIndex: itemIndex,
			Seq:       a.seq,
		},
		amount:      amount,
		submittedAt: time.Now(),
		done:        make(chan bidOutcome, 1),
	}
	a.byKey[entry.key] = entry
	a.byItem[item] = entry.key
	return entry, nil
}

// confirm resolves the entry for key, if still pending.
func (a *pendingArena) confirm(key domain.CorrelationKey, amount float64) bool {
	return a.resolve(key, bidOutcome{result: &BidResult{Key: key, Amount: amount}})
}

// reject resolves the entry for key with a business rejection, if still pending.
func (a *pendingArena) reject(key domain.CorrelationKey, reason string) bool {
	return a.resolve(key, bidOutcome{err: &domain.BidRejectedError{Key: key, Reason: reason}})
}

// fail resolves the entry for key with err (timeout, session loss), if still
// pending.
func (a *pendingArena) fail(key domain.CorrelationKey, err error) bool {
	return a.resolve(key, bidOutcome{err: err})
}

func (a *pendingArena) resolve(key domain.CorrelationKey, out bidOutcome) bool {
	a.mu.Lock()
	entry, ok := a.byKey[key]
	if ok {
		delete(a.byKey, key)
		delete(a.byItem, itemKey{auctionID: key.AuctionID, itemIndex: key.ItemIndex})
	}
	a.mu.Unlock()

	if !ok {
		return false
	}
	entry.done <- out
	return true
}

// failAll rejects every outstanding submission. Called on transport loss and
// on teardown; afterwards the arena is empty.
func (a *pendingArena) failAll(err error) {
	a.mu.Lock()
	entries := make([]*pendingEntry, 0, len(a.byKey))
	for _, entry := range a.byKey {
		entries = append(entries, entry)
	}
	a.byKey = make(map[domain.CorrelationKey]*pendingEntry)
	a.byItem = make(map[itemKey]domain.CorrelationKey)
	a.mu.Unlock()

	for _, entry := range entries {
		entry.done <- bidOutcome{err: err}
	}
}

func (a *pendingArena) outstanding() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.byKey)
}
