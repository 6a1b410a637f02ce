package realtime

import (
	"context"
	"errors"
	"math/rand"
	"sort"
	"sync"
	"time"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"
)

type SessionState string

const (
	SessionDisconnected SessionState = "disconnected"
	SessionConnecting   SessionState = "connecting"
	SessionConnected    SessionState = "connected"
)

type Config struct {
	URL         string
	Token       string
	Dialer      Dialer
	Fetcher     StatusFetcher
	BidTimeout  time.Duration
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Log         logger.Logger
}

// Session owns one persistent realtime connection for an authenticated
// client. Room membership is desired state: every transition into connected
// re-issues join requests, since rooms do not survive a reconnect
// server-side. The socket handle is private; everything goes through
// Join/Leave/SubmitBid.
type Session struct {
	cfg Config
	log logger.Logger

	mu       sync.Mutex
	state    SessionState
	conn     Conn
	siteID   string
	auctions map[string]struct{}
	closed   bool
	started  bool
	cancel   context.CancelFunc
	done     chan struct{}

	writeMu sync.Mutex

	pending  *pendingArena
	statuses *StatusRegistry
}

func NewSession(cfg Config) *Session {
	if cfg.BidTimeout <= 0 {
		cfg.BidTimeout = 10 * time.Second
	}
	if cfg.BaseBackoff <= 0 {
		cfg.BaseBackoff = 500 * time.Millisecond
	}
	if cfg.MaxBackoff <= 0 {
		cfg.MaxBackoff = 30 * time.Second
	}
	return &Session{
		cfg:      cfg,
		log:      cfg.Log,
		state:    SessionDisconnected,
		auctions: make(map[string]struct{}),
		pending:  newPendingArena(),
		statuses: NewStatusRegistry(cfg.Log),
	}
}

// Connect starts the connect/reconnect loop. It requires a credential; there
// is no anonymous connection attempt.
func (s *Session) Connect(ctx context.Context) error {
	if s.cfg.Token == "" {
		return errors.New("connect requires an auth credential")
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("session is closed")
	}
	if s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = true
	s.state = SessionConnecting
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})
	s.mu.Unlock()

	go s.run(runCtx)
	return nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	backoff := s.cfg.BaseBackoff
	for {
		if ctx.Err() != nil || s.isClosed() {
			return
		}
		s.setState(SessionConnecting)

		conn, err := s.cfg.Dialer.Dial(ctx, s.cfg.URL, s.cfg.Token)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("Realtime dial failed, backing off",
				"error", err, "backoff", backoff)
			if !sleep(ctx, jitter(backoff)) {
				return
			}
			backoff = backoff * 2
			if backoff > s.cfg.MaxBackoff {
				backoff = s.cfg.MaxBackoff
			}
			continue
		}
		backoff = s.cfg.BaseBackoff

		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			conn.Close()
			return
		}
		s.conn = conn
		s.state = SessionConnected
		s.mu.Unlock()

		s.log.Info("Realtime session connected", "url", s.cfg.URL)
		s.rejoinRooms()
		s.reconcileStatuses(ctx)

		s.readLoop(conn)
		s.transportLost()

		// a gateway that accepts the handshake and drops right away must
		// not be redialed in a tight loop
		if !sleep(ctx, jitter(backoff)) {
			return
		}
	}
}

func (s *Session) readLoop(conn Conn) {
	for {
		frame, err := conn.ReadMessage()
		if err != nil {
			if !s.isClosed() {
				s.log.Warn("Realtime read failed", "error", err)
			}
			return
		}

		msg, err := domain.DecodeFrame(frame)
		if err != nil {
			s.log.Warn("Dropping undecodable frame", "error", err)
			continue
		}
		s.dispatch(msg)
	}
}

func (s *Session) dispatch(msg domain.Message) {
	switch m := msg.(type) {
	case domain.BidConfirmedPayload:
		key := domain.CorrelationKey{AuctionID: m.AuctionID, ItemIndex: m.ItemIndex, Seq: m.Seq}
		if !s.pending.confirm(key, m.Amount) {
			s.log.Debug("Confirm for already-resolved bid", "key", key)
		}
	case domain.BidErrorPayload:
		key := domain.CorrelationKey{AuctionID: m.AuctionID, ItemIndex: m.ItemIndex, Seq: m.Seq}
		if !s.pending.reject(key, m.Reason) {
			s.log.Debug("Error for already-resolved bid", "key", key)
		}
	case domain.StatusChangedPayload:
		s.statuses.Apply(m.AuctionID, m.To)
	case domain.AuctionStartedPayload:
		s.statuses.Apply(m.AuctionID, domain.AuctionLive)
	case domain.AuctionEndedPayload:
		s.statuses.Apply(m.AuctionID, domain.AuctionEnded)
	case domain.JoinSitePayload, domain.JoinAuctionPayload,
		domain.LeaveAuctionPayload, domain.BidPlacePayload:
		// client-to-server kinds; a server never sends these
		s.log.Debug("Ignoring client-bound event from server", "kind", msg.Kind())
	}
}

// transportLost runs after every read-loop exit: all in-flight bids resolve
// with session-lost and every status subscription is stale until
// reconciled.
func (s *Session) transportLost() {
	s.mu.Lock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	if !s.closed {
		s.state = SessionDisconnected
	}
	s.mu.Unlock()

	s.pending.failAll(domain.ErrSessionLost)
	s.statuses.MarkAllStale()
}

// Close tears the session down for good: every pending bid is rejected
// synchronously and no reconnect follows.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.state = SessionDisconnected
	conn := s.conn
	s.conn = nil
	cancel := s.cancel
	done := s.done
	s.mu.Unlock()

	s.pending.failAll(domain.ErrSessionLost)
	if conn != nil {
		conn.Close()
	}
	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	return nil
}

func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// JoinSite marks the tenant's site room as active and joins it if connected.
func (s *Session) JoinSite(siteID string) {
	s.mu.Lock()
	s.siteID = siteID
	connected := s.state == SessionConnected
	s.mu.Unlock()

	if connected {
		s.send(domain.JoinSitePayload{SiteID: siteID})
	}
}

// JoinAuction is idempotent; joining an auction already joined is a no-op
// beyond re-sending the join message.
func (s *Session) JoinAuction(auctionID string) {
	s.mu.Lock()
	s.auctions[auctionID] = struct{}{}
	connected := s.state == SessionConnected
	s.mu.Unlock()

	s.statuses.Subscribe(auctionID)
	if connected {
		s.send(domain.JoinAuctionPayload{AuctionID: auctionID})
	}
}

func (s *Session) LeaveAuction(auctionID string) {
	s.mu.Lock()
	_, joined := s.auctions[auctionID]
	delete(s.auctions, auctionID)
	connected := s.state == SessionConnected
	s.mu.Unlock()

	s.statuses.Unsubscribe(auctionID)
	if joined && connected {
		s.send(domain.LeaveAuctionPayload{AuctionID: auctionID})
	}
}

// Rooms returns the currently active room set, sorted.
func (s *Session) Rooms() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rooms []string
	if s.siteID != "" {
		rooms = append(rooms, domain.SiteRoom(s.siteID))
	}
	for id := range s.auctions {
		rooms = append(rooms, domain.AuctionRoom(id))
	}
	sort.Strings(rooms)
	return rooms
}

// AuctionStatus reports the last known authoritative status for a joined
// auction.
func (s *Session) AuctionStatus(auctionID string) (domain.AuctionStatus, bool) {
	return s.statuses.Status(auctionID)
}

// SubmitBid sends one bid and suspends the caller until the authoritative
// side confirms or rejects it, the timeout passes, or the session drops.
// Exactly one of those outcomes occurs.
func (s *Session) SubmitBid(ctx context.Context, auctionID string, itemIndex int, amount float64) (*BidResult, error) {
	if amount <= 0 {
		return nil, errors.New("bid amount must be positive")
	}

	s.mu.Lock()
	connected := s.state == SessionConnected
	s.mu.Unlock()
	if !connected {
		return nil, domain.ErrNotConnected
	}

	entry, err := s.pending.register(auctionID, itemIndex, amount)
	if err != nil {
		return nil, err
	}

	payload := domain.BidPlacePayload{
		AuctionID: auctionID,
		ItemIndex: itemIndex,
		Amount:    amount,
		BidType:   "standard",
		Seq:       entry.key.Seq,
	}
	if err := s.send(payload); err != nil {
		s.pending.fail(entry.key, domain.ErrSessionLost)
		return collectOutcome(entry)
	}

	timer := time.NewTimer(s.cfg.BidTimeout)
	defer timer.Stop()

	select {
	case out := <-entry.done:
		return out.result, out.err
	case <-timer.C:
		s.pending.fail(entry.key, domain.ErrBidTimeout)
		return collectOutcome(entry)
	case <-ctx.Done():
		s.pending.fail(entry.key, ctx.Err())
		return collectOutcome(entry)
	}
}

// collectOutcome drains the single resolution after a local fail attempt.
// If a confirm won the race against the timeout, the confirm is the
// outcome.
func collectOutcome(entry *pendingEntry) (*BidResult, error) {
	out := <-entry.done
	return out.result, out.err
}

func (s *Session) send(msg domain.Message) error {
	frame, err := domain.Encode(msg)
	if err != nil {
		return err
	}

	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return domain.ErrNotConnected
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	return conn.WriteMessage(frame)
}

// rejoinRooms re-issues join requests for every room the caller still
// considers active. Runs on every transition into connected.
func (s *Session) rejoinRooms() {
	s.mu.Lock()
	siteID := s.siteID
	auctions := make([]string, 0, len(s.auctions))
	for id := range s.auctions {
		auctions = append(auctions, id)
	}
	s.mu.Unlock()

	if siteID != "" {
		if err := s.send(domain.JoinSitePayload{SiteID: siteID}); err != nil {
			s.log.Warn("Failed to rejoin site room", "site_id", siteID, "error", err)
		}
	}
	sort.Strings(auctions)
	for _, id := range auctions {
		if err := s.send(domain.JoinAuctionPayload{AuctionID: id}); err != nil {
			s.log.Warn("Failed to rejoin auction room", "auction_id", id, "error", err)
		}
	}
}

// reconcileStatuses re-fetches current status for every stale subscription;
// events missed during an outage are not replayed by the transport.
func (s *Session) reconcileStatuses(ctx context.Context) {
	if s.cfg.Fetcher == nil {
		return
	}

	stale := s.statuses.staleAuctions()
	if len(stale) == 0 {
		return
	}

	go func() {
		for _, auctionID := range stale {
			status, err := s.cfg.Fetcher.FetchStatus(ctx, auctionID)
			if err != nil {
				s.log.Warn("Status reconcile failed", "auction_id", auctionID, "error", err)
				continue
			}
			s.statuses.SetCurrent(auctionID, status)
		}
	}()
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *Session) setState(state SessionState) {
	s.mu.Lock()
	if !s.closed {
		s.state = state
	}
	s.mu.Unlock()
}

func jitter(d time.Duration) time.Duration {
	// 75%..125% of the nominal delay
	return time.Duration(float64(d) * (0.75 + rand.Float64()*0.5))
}

func sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
