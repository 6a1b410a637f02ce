package gateway

import (
	"crownbidder/internal/domain"
	"crownbidder/pkg/logger"
)

// RoomNotifier turns published status transitions into room broadcasts on
// this instance's hub. Every subscriber of the auction room sees the
// auction-status-changed event; the live and ended edges additionally get
// their named events.
type RoomNotifier struct {
	hub domain.RoomBroadcaster
	log logger.Logger
}

func NewRoomNotifier(hub domain.RoomBroadcaster, log logger.Logger) *RoomNotifier {
	return &RoomNotifier{hub: hub, log: log}
}

func (n *RoomNotifier) HandleTransition(t *domain.StatusTransition) error {
	room := domain.AuctionRoom(t.AuctionID)

	if err := n.hub.BroadcastToRoom(room, domain.StatusChangedPayload{
		AuctionID: t.AuctionID,
		From:      t.From,
		To:        t.To,
	}); err != nil {
		return err
	}

	switch {
	case t.To == domain.AuctionLive && t.From == domain.AuctionScheduled:
		return n.hub.BroadcastToRoom(room, domain.AuctionStartedPayload{AuctionID: t.AuctionID})
	case t.To == domain.AuctionEnded:
		return n.hub.BroadcastToRoom(room, domain.AuctionEndedPayload{AuctionID: t.AuctionID})
	}
	return nil
}
