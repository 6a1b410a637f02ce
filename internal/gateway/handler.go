package gateway

import (
	"context"
	"errors"
	"net/http"

	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

// session is the dispatch-side view of one authenticated connection.
type session interface {
	Subscriber
	BidderID() string
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Handler owns the websocket endpoint: handshake auth, the per-connection
// read loop, and dispatch of every inbound event kind.
type Handler struct {
	hub      *Hub
	verifier *TokenVerifier
	statuses domain.StatusStore
	ledger   domain.Ledger
	log      logger.Logger
}

func NewHandler(hub *Hub, verifier *TokenVerifier, statuses domain.StatusStore,
	ledger domain.Ledger, log logger.Logger) *Handler {
	return &Handler{
		hub:      hub,
		verifier: verifier,
		statuses: statuses,
		ledger:   ledger,
		log:      log,
	}
}

func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/{tenantID}", h.HandleConnection)
	return r
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	tenantID := vars["tenantID"]

	bidderID, err := h.verifier.Verify(bearerToken(r))
	if err != nil {
		h.log.Info("Rejected realtime handshake", "tenant_id", tenantID, "error", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	conn := newConnection(uuid.NewString(), bidderID, ws, h.log)
	h.log.Info("Realtime session connected",
		"connection_id", conn.ID(), "bidder_id", bidderID, "tenant_id", tenantID)

	go h.readLoop(conn)
}

func (h *Handler) readLoop(conn *Connection) {
	defer func() {
		h.hub.Disconnect(conn.ID())
		conn.Close()
		h.log.Info("Realtime session disconnected", "connection_id", conn.ID())
	}()

	for {
		frame, err := conn.readMessage()
		if err != nil {
			return
		}

		msg, err := domain.DecodeFrame(frame)
		if err != nil {
			h.log.Warn("Dropping undecodable frame",
				"connection_id", conn.ID(), "error", err)
			continue
		}
		h.dispatch(conn, msg)
	}
}

func (h *Handler) dispatch(conn session, msg domain.Message) {
	switch m := msg.(type) {
	case domain.JoinSitePayload:
		h.hub.Join(domain.SiteRoom(m.SiteID), conn)
	case domain.JoinAuctionPayload:
		h.hub.Join(domain.AuctionRoom(m.AuctionID), conn)
	case domain.LeaveAuctionPayload:
		h.hub.Leave(domain.AuctionRoom(m.AuctionID), conn.ID())
	case domain.BidPlacePayload:
		h.handleBid(conn, m)
	case domain.BidConfirmedPayload, domain.BidErrorPayload,
		domain.StatusChangedPayload, domain.AuctionStartedPayload,
		domain.AuctionEndedPayload:
		// server-to-client kinds; a client never sends these
		h.log.Debug("Ignoring server-bound event from client",
			"connection_id", conn.ID(), "kind", msg.Kind())
	}
}

// handleBid resolves one submission: exactly one of bid-confirmed or
// bid-error goes back to the submitting connection, echoing the correlation
// fields.
func (h *Handler) handleBid(conn session, bid domain.BidPlacePayload) {
	ctx := context.Background()

	reject := func(reason string) {
		if err := conn.Send(domain.BidErrorPayload{
			AuctionID: bid.AuctionID,
			ItemIndex: bid.ItemIndex,
			Seq:       bid.Seq,
			Reason:    reason,
		}); err != nil {
			h.log.Warn("Failed to deliver bid error",
				"connection_id", conn.ID(), "auction_id", bid.AuctionID, "error", err)
		}
	}

	if bid.Amount <= 0 {
		reject("bid amount must be positive")
		return
	}

	status, err := h.statuses.GetStatus(ctx, bid.AuctionID)
	switch {
	case errors.Is(err, domain.ErrAuctionNotFound):
		reject("unknown auction")
		return
	case err != nil:
		h.log.Error("Failed to read auction status",
			"auction_id", bid.AuctionID, "error", err)
		reject("auction unavailable")
		return
	}
	if status != domain.AuctionLive {
		reject("auction is not live")
		return
	}

	accepted, reason, err := h.ledger.PlaceBid(ctx, bid.AuctionID, bid.ItemIndex, conn.BidderID(), bid.Amount)
	if err != nil {
		h.log.Error("Ledger rejected bid with error",
			"auction_id", bid.AuctionID, "item_index", bid.ItemIndex, "error", err)
		reject("bid could not be processed")
		return
	}
	if !accepted {
		reject(reason)
		return
	}

	if err := conn.Send(domain.BidConfirmedPayload{
		AuctionID: bid.AuctionID,
		ItemIndex: bid.ItemIndex,
		Seq:       bid.Seq,
		Amount:    bid.Amount,
	}); err != nil {
		h.log.Warn("Failed to deliver bid confirmation",
			"connection_id", conn.ID(), "auction_id", bid.AuctionID, "error", err)
	}
}
