package realtime

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"crownbidder/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Info(string, ...interface{})  {}
func (nopLogger) Error(string, ...interface{}) {}
func (nopLogger) Debug(string, ...interface{}) {}
func (nopLogger) Warn(string, ...interface{})  {}
func (nopLogger) Fatal(string, ...interface{}) {}

type fakeConn struct {
	mu        sync.Mutex
	sent      [][]byte
	in        chan []byte
	closed    chan struct{}
	closeOnce sync.Once
}

func newFakeConn() *fakeConn {
	return &fakeConn{
		in:     make(chan []byte, 32),
		closed: make(chan struct{}),
	}
}

func (c *fakeConn) ReadMessage() ([]byte, error) {
	select {
	case frame := <-c.in:
		return frame, nil
	case <-c.closed:
		return nil, errors.New("connection closed")
	}
}

func (c *fakeConn) WriteMessage(data []byte) error {
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	c.mu.Lock()
	c.sent = append(c.sent, data)
	c.mu.Unlock()
	return nil
}

func (c *fakeConn) Close() error {
	c.closeOnce.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) push(t *testing.T, msg domain.Message) {
	t.Helper()
	frame, err := domain.Encode(msg)
	require.NoError(t, err)
	c.in <- frame
}

func (c *fakeConn) sentMessages(t *testing.T) []domain.Message {
	t.Helper()
	c.mu.Lock()
	frames := make([][]byte, len(c.sent))
	copy(frames, c.sent)
	c.mu.Unlock()

	var msgs []domain.Message
	for _, frame := range frames {
		msg, err := domain.DecodeFrame(frame)
		require.NoError(t, err)
		msgs = append(msgs, msg)
	}
	return msgs
}

func (c *fakeConn) sentKinds(t *testing.T) []domain.EventKind {
	var kinds []domain.EventKind
	for _, msg := range c.sentMessages(t) {
		kinds = append(kinds, msg.Kind())
	}
	return kinds
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
}

func (d *fakeDialer) Dial(_ context.Context, _, _ string) (Conn, error) {
	conn := newFakeConn()
	d.mu.Lock()
	d.conns = append(d.conns, conn)
	d.mu.Unlock()
	return conn, nil
}

func (d *fakeDialer) dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) conn(i int) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	if i >= len(d.conns) {
		return nil
	}
	return d.conns[i]
}

func newTestSession(t *testing.T, dialer Dialer, opts ...func(*Config)) *Session {
	t.Helper()
	cfg := Config{
		URL:         "ws://gateway.test/ws/t1",
		Token:       "test-token",
		Dialer:      dialer,
		BidTimeout:  2 * time.Second,
		BaseBackoff: 5 * time.Millisecond,
		MaxBackoff:  20 * time.Millisecond,
		Log:         nopLogger{},
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	s := NewSession(cfg)
	t.Cleanup(func() { s.Close() })
	return s
}

func waitConnected(t *testing.T, s *Session) {
	t.Helper()
	require.Eventually(t, func() bool {
		return s.State() == SessionConnected
	}, time.Second, time.Millisecond)
}

// awaitBidPlace waits for the session to put a bid-place frame on the wire
// and returns its payload.
func awaitBidPlace(t *testing.T, conn *fakeConn) domain.BidPlacePayload {
	t.Helper()
	var payload domain.BidPlacePayload
	require.Eventually(t, func() bool {
		for _, msg := range conn.sentMessages(t) {
			if bp, ok := msg.(domain.BidPlacePayload); ok {
				payload = bp
				return true
			}
		}
		return false
	}, time.Second, time.Millisecond)
	return payload
}

func TestSession_ConnectRequiresCredential(t *testing.T) {
	s := newTestSession(t, &fakeDialer{}, func(cfg *Config) { cfg.Token = "" })

	err := s.Connect(context.Background())
	assert.Error(t, err)
	assert.Equal(t, SessionDisconnected, s.State())
}

func TestSession_RejoinsRoomsOnEveryConnect(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)

	s.JoinSite("t1")
	s.JoinAuction("a1")
	s.JoinAuction("a1") // duplicate join collapses
	s.JoinAuction("a2")

	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	assert.Equal(t, []string{"auction:a1", "auction:a2", "site:t1"}, s.Rooms())

	first := dialer.conn(0)
	require.Eventually(t, func() bool {
		return len(first.sentKinds(t)) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []domain.EventKind{
		domain.EventJoinSite, domain.EventJoinAuction, domain.EventJoinAuction,
	}, first.sentKinds(t))

	// Rooms are not durable server-side: a reconnect re-issues every join.
	first.Close()
	require.Eventually(t, func() bool { return dialer.dials() == 2 }, time.Second, time.Millisecond)
	waitConnected(t, s)

	second := dialer.conn(1)
	require.Eventually(t, func() bool {
		return len(second.sentKinds(t)) == 3
	}, time.Second, time.Millisecond)
	assert.Equal(t, []string{"auction:a1", "auction:a2", "site:t1"}, s.Rooms())
}

func TestSession_ReconnectWaitsAtLeastBaseBackoff(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer, func(cfg *Config) {
		cfg.BaseBackoff = 200 * time.Millisecond
		cfg.MaxBackoff = 400 * time.Millisecond
	})
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	// A gateway dropping the connection right after accepting it must not
	// be redialed immediately.
	dialer.conn(0).Close()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 1, dialer.dials())

	require.Eventually(t, func() bool { return dialer.dials() == 2 }, time.Second, 5*time.Millisecond)
}

func TestSession_LeaveAuctionShrinksRoomSet(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	s.JoinSite("t1")
	s.JoinAuction("a1")
	s.LeaveAuction("a1")
	s.LeaveAuction("a1") // idempotent

	assert.Equal(t, []string{"site:t1"}, s.Rooms())
}

func TestSession_SubmitBidConfirmed(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)
	s.JoinAuction("a1")

	type submitResult struct {
		result *BidResult
		err    error
	}
	resultCh := make(chan submitResult, 1)
	go func() {
		result, err := s.SubmitBid(context.Background(), "a1", 0, 150)
		resultCh <- submitResult{result, err}
	}()

	conn := dialer.conn(0)
	placed := awaitBidPlace(t, conn)
	assert.Equal(t, "a1", placed.AuctionID)
	assert.Equal(t, 0, placed.ItemIndex)
	assert.Equal(t, 150.0, placed.Amount)

	conn.push(t, domain.BidConfirmedPayload{
		AuctionID: "a1", ItemIndex: 0, Seq: placed.Seq, Amount: 150,
	})
	// A late error for the same correlation key must not flip the outcome.
	conn.push(t, domain.BidErrorPayload{
		AuctionID: "a1", ItemIndex: 0, Seq: placed.Seq, Reason: "outbid",
	})

	out := <-resultCh
	require.NoError(t, out.err)
	assert.Equal(t, 150.0, out.result.Amount)
	assert.Equal(t, 0, s.pending.outstanding())
}

func TestSession_SubmitBidRejected(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SubmitBid(context.Background(), "a1", 0, 90)
		errCh <- err
	}()

	conn := dialer.conn(0)
	placed := awaitBidPlace(t, conn)
	conn.push(t, domain.BidErrorPayload{
		AuctionID: "a1", ItemIndex: 0, Seq: placed.Seq, Reason: "below reserve",
	})

	var rejected *domain.BidRejectedError
	require.ErrorAs(t, <-errCh, &rejected)
	assert.Equal(t, "below reserve", rejected.Reason)
}

func TestSession_SubmitBidTimeout(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer, func(cfg *Config) { cfg.BidTimeout = 20 * time.Millisecond })
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	_, err := s.SubmitBid(context.Background(), "a1", 0, 150)
	assert.ErrorIs(t, err, domain.ErrBidTimeout)
	assert.Equal(t, 0, s.pending.outstanding())
}

func TestSession_TransportLossFailsPendingBids(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SubmitBid(context.Background(), "a1", 0, 150)
		errCh <- err
	}()

	conn := dialer.conn(0)
	awaitBidPlace(t, conn)
	conn.Close()

	assert.ErrorIs(t, <-errCh, domain.ErrSessionLost)
	assert.Equal(t, 0, s.pending.outstanding())
}

func TestSession_SecondSubmissionForSameItemRejectedLocally(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	go s.SubmitBid(context.Background(), "a1", 0, 150)
	awaitBidPlace(t, dialer.conn(0))

	_, err := s.SubmitBid(context.Background(), "a1", 0, 160)
	assert.ErrorIs(t, err, domain.ErrBidInFlight)
}

func TestSession_SubmitBidPreconditions(t *testing.T) {
	s := newTestSession(t, &fakeDialer{})

	_, err := s.SubmitBid(context.Background(), "a1", 0, 150)
	assert.ErrorIs(t, err, domain.ErrNotConnected)

	_, err = s.SubmitBid(context.Background(), "a1", 0, -5)
	assert.Error(t, err)
}

func TestSession_StatusEventsDriveMachine(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)
	s.JoinAuction("a1")

	conn := dialer.conn(0)
	conn.push(t, domain.AuctionStartedPayload{AuctionID: "a1"})
	conn.push(t, domain.StatusChangedPayload{AuctionID: "a1", From: domain.AuctionLive, To: domain.AuctionPaused})
	conn.push(t, domain.StatusChangedPayload{AuctionID: "a1", From: domain.AuctionPaused, To: domain.AuctionLive})
	// Stray draft after live is ignored.
	conn.push(t, domain.StatusChangedPayload{AuctionID: "a1", From: domain.AuctionScheduled, To: domain.AuctionDraft})
	// An event for an auction never joined is ignored entirely.
	conn.push(t, domain.StatusChangedPayload{AuctionID: "other", From: domain.AuctionScheduled, To: domain.AuctionLive})

	require.Eventually(t, func() bool {
		status, ok := s.AuctionStatus("a1")
		return ok && status == domain.AuctionLive
	}, time.Second, time.Millisecond)

	_, ok := s.AuctionStatus("other")
	assert.False(t, ok)
}

type stubFetcher struct {
	mu     sync.Mutex
	status domain.AuctionStatus
	calls  int
}

func (f *stubFetcher) FetchStatus(_ context.Context, _ string) (domain.AuctionStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.status, nil
}

func TestSession_ReconcilesStatusOnReconnect(t *testing.T) {
	dialer := &fakeDialer{}
	fetcher := &stubFetcher{status: domain.AuctionPaused}
	s := newTestSession(t, dialer, func(cfg *Config) { cfg.Fetcher = fetcher })

	s.JoinAuction("a1")
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	// The subscription starts stale, so the first connect reconciles too.
	require.Eventually(t, func() bool {
		status, ok := s.AuctionStatus("a1")
		return ok && status == domain.AuctionPaused
	}, time.Second, time.Millisecond)

	fetcher.mu.Lock()
	fetcher.status = domain.AuctionLive
	fetcher.mu.Unlock()

	dialer.conn(0).Close()
	require.Eventually(t, func() bool {
		status, ok := s.AuctionStatus("a1")
		return ok && status == domain.AuctionLive
	}, time.Second, time.Millisecond)
}

func TestSession_CloseIsTerminal(t *testing.T) {
	dialer := &fakeDialer{}
	s := newTestSession(t, dialer)
	require.NoError(t, s.Connect(context.Background()))
	waitConnected(t, s)

	errCh := make(chan error, 1)
	go func() {
		_, err := s.SubmitBid(context.Background(), "a1", 0, 150)
		errCh <- err
	}()
	awaitBidPlace(t, dialer.conn(0))

	require.NoError(t, s.Close())
	assert.ErrorIs(t, <-errCh, domain.ErrSessionLost)
	assert.Equal(t, SessionDisconnected, s.State())

	// No reconnect after teardown.
	dials := dialer.dials()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, dials, dialer.dials())
}
