package realtime

import (
	"testing"

	"crownbidder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registryWith(t *testing.T, auctionID string, path ...domain.AuctionStatus) *StatusRegistry {
	t.Helper()
	r := NewStatusRegistry(nopLogger{})
	r.Subscribe(auctionID)
	for _, status := range path {
		require.True(t, r.Apply(auctionID, status), "applying %s", status)
	}
	return r
}

func TestStatusRegistry_LegalPath(t *testing.T) {
	r := registryWith(t, "a1",
		domain.AuctionDraft, domain.AuctionScheduled, domain.AuctionLive,
		domain.AuctionPaused, domain.AuctionLive, domain.AuctionEnded)

	status, ok := r.Status("a1")
	require.True(t, ok)
	assert.Equal(t, domain.AuctionEnded, status)
}

func TestStatusRegistry_PauseResume(t *testing.T) {
	r := registryWith(t, "a1", domain.AuctionLive, domain.AuctionPaused, domain.AuctionLive)

	status, _ := r.Status("a1")
	assert.Equal(t, domain.AuctionLive, status)
}

func TestStatusRegistry_IllegalTransitionsIgnored(t *testing.T) {
	r := registryWith(t, "a1", domain.AuctionLive)

	// Stray draft after live is ignored, not applied.
	assert.False(t, r.Apply("a1", domain.AuctionDraft))
	status, _ := r.Status("a1")
	assert.Equal(t, domain.AuctionLive, status)

	// ended is terminal.
	require.True(t, r.Apply("a1", domain.AuctionEnded))
	assert.False(t, r.Apply("a1", domain.AuctionLive))
	status, _ = r.Status("a1")
	assert.Equal(t, domain.AuctionEnded, status)
}

func TestStatusRegistry_UnjoinedAuctionIgnored(t *testing.T) {
	r := NewStatusRegistry(nopLogger{})

	assert.False(t, r.Apply("never-joined", domain.AuctionLive))
	_, ok := r.Status("never-joined")
	assert.False(t, ok)
}

func TestStatusRegistry_StaleUntilReconciled(t *testing.T) {
	r := registryWith(t, "a1", domain.AuctionLive)

	r.MarkAllStale()
	assert.True(t, r.Stale("a1"))

	r.SetCurrent("a1", domain.AuctionPaused)
	assert.False(t, r.Stale("a1"))
	status, _ := r.Status("a1")
	assert.Equal(t, domain.AuctionPaused, status)
}

func TestStatusRegistry_SnapshotCannotResurrectEnded(t *testing.T) {
	r := registryWith(t, "a1", domain.AuctionLive, domain.AuctionEnded)

	r.MarkAllStale()
	r.SetCurrent("a1", domain.AuctionLive)

	status, _ := r.Status("a1")
	assert.Equal(t, domain.AuctionEnded, status)
	assert.False(t, r.Stale("a1"))
}

func TestAuctionStatus_MachineTable(t *testing.T) {
	legal := []struct {
		from, to domain.AuctionStatus
	}{
		{domain.AuctionDraft, domain.AuctionScheduled},
		{domain.AuctionScheduled, domain.AuctionLive},
		{domain.AuctionLive, domain.AuctionPaused},
		{domain.AuctionPaused, domain.AuctionLive},
		{domain.AuctionLive, domain.AuctionEnded},
		{domain.AuctionPaused, domain.AuctionEnded},
	}
	for _, tc := range legal {
		assert.True(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}

	illegal := []struct {
		from, to domain.AuctionStatus
	}{
		{domain.AuctionEnded, domain.AuctionLive},
		{domain.AuctionEnded, domain.AuctionDraft},
		{domain.AuctionLive, domain.AuctionDraft},
		{domain.AuctionScheduled, domain.AuctionPaused},
		{domain.AuctionDraft, domain.AuctionLive},
		{domain.AuctionPaused, domain.AuctionDraft},
	}
	for _, tc := range illegal {
		assert.False(t, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}
