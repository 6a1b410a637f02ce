package domain

import (
	"encoding/json"
	"fmt"
)

type EventKind string

const (
	EventJoinSite      EventKind = "join-site"
	EventJoinAuction   EventKind = "join-auction"
	EventLeaveAuction  EventKind = "leave-auction"
	EventBidPlace      EventKind = "bid-place"
	EventBidConfirmed  EventKind = "bid-confirmed"
	EventBidError      EventKind = "bid-error"
	EventStatusChanged EventKind = "auction-status-changed"
	EventAuctionStart  EventKind = "auction-started"
	EventAuctionEnd    EventKind = "auction-ended"
)

// Envelope is the wire frame for every room-scoped event.
type Envelope struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Message is the closed set of payloads that may travel in an Envelope.
type Message interface {
	Kind() EventKind
}

type JoinSitePayload struct {
	SiteID string `json:"site_id"`
}

type JoinAuctionPayload struct {
	AuctionID string `json:"auction_id"`
}

type LeaveAuctionPayload struct {
	AuctionID string `json:"auction_id"`
}

type BidPlacePayload struct {
	AuctionID string  `json:"auction_id"`
	ItemIndex int     `json:"item_index"`
	Amount    float64 `json:"amount"`
	BidType   string  `json:"bid_type"`
	Seq       uint64  `json:"seq"`
}

type BidConfirmedPayload struct {
	AuctionID string  `json:"auction_id"`
	ItemIndex int     `json:"item_index"`
	Seq       uint64  `json:"seq"`
	Amount    float64 `json:"amount"`
}

type BidErrorPayload struct {
	AuctionID string `json:"auction_id"`
	ItemIndex int    `json:"item_index"`
	Seq       uint64 `json:"seq"`
	Reason    string `json:"reason"`
}

type StatusChangedPayload struct {
	AuctionID string        `json:"auction_id"`
	From      AuctionStatus `json:"from"`
	To        AuctionStatus `json:"to"`
}

type AuctionStartedPayload struct {
	AuctionID string `json:"auction_id"`
}

type AuctionEndedPayload struct {
	AuctionID string `json:"auction_id"`
}

func (JoinSitePayload) Kind() EventKind       { return EventJoinSite }
func (JoinAuctionPayload) Kind() EventKind    { return EventJoinAuction }
func (LeaveAuctionPayload) Kind() EventKind   { return EventLeaveAuction }
func (BidPlacePayload) Kind() EventKind       { return EventBidPlace }
func (BidConfirmedPayload) Kind() EventKind   { return EventBidConfirmed }
func (BidErrorPayload) Kind() EventKind       { return EventBidError }
func (StatusChangedPayload) Kind() EventKind  { return EventStatusChanged }
func (AuctionStartedPayload) Kind() EventKind { return EventAuctionStart }
func (AuctionEndedPayload) Kind() EventKind   { return EventAuctionEnd }

// Encode wraps the payload in an Envelope and marshals the frame.
func Encode(msg Message) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: msg.Kind(), Data: data})
}

// DecodeFrame parses one wire frame into its typed payload. Unknown event
// kinds are an error; callers never dispatch on raw strings.
func DecodeFrame(frame []byte) (Message, error) {
	var env Envelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil, fmt.Errorf("malformed frame: %w", err)
	}
	return env.Decode()
}

func (e Envelope) Decode() (Message, error) {
	switch e.Event {
	case EventJoinSite:
		var m JoinSitePayload
		return m, json.Unmarshal(e.Data, &m)
	case EventJoinAuction:
		var m JoinAuctionPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventLeaveAuction:
		var m LeaveAuctionPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventBidPlace:
		var m BidPlacePayload
		return m, json.Unmarshal(e.Data, &m)
	case EventBidConfirmed:
		var m BidConfirmedPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventBidError:
		var m BidErrorPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventStatusChanged:
		var m StatusChangedPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventAuctionStart:
		var m AuctionStartedPayload
		return m, json.Unmarshal(e.Data, &m)
	case EventAuctionEnd:
		var m AuctionEndedPayload
		return m, json.Unmarshal(e.Data, &m)
	default:
		return nil, fmt.Errorf("unknown event kind %q", e.Event)
	}
}

// Room identifiers. Site rooms fan out tenant-wide events, auction rooms
// carry the bidding and status stream for one auction.
func SiteRoom(siteID string) string       { return "site:" + siteID }
func AuctionRoom(auctionID string) string { return "auction:" + auctionID }
