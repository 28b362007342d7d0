package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type EventKind string

const (
	EventBidPlaced     EventKind = "bid.placed"
	EventStatusChanged EventKind = "auction.status-changed"
	EventAuctionEnded  EventKind = "auction.ended"
)

// AuctionEvent is the best-effort fanout record for lifecycle and bid
// events. It is not authoritative; clients reconcile against the auction
// record store.
type AuctionEvent struct {
	Kind      EventKind        `json:"kind"`
	AuctionID string           `json:"auction_id"`
	Status    string           `json:"status,omitempty"`
	BidderID  string           `json:"bidder_id,omitempty"`
	WinnerID  string           `json:"winner_id,omitempty"`
	Amount    *decimal.Decimal `json:"amount,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
}

func NewBidPlacedEvent(auctionID, bidderID string, amount decimal.Decimal) *AuctionEvent {
	return &AuctionEvent{
		Kind:      EventBidPlaced,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    &amount,
		Timestamp: time.Now(),
	}
}

func NewStatusChangedEvent(auctionID string, status AuctionStatus) *AuctionEvent {
	return &AuctionEvent{
		Kind:      EventStatusChanged,
		AuctionID: auctionID,
		Status:    status.String(),
		Timestamp: time.Now(),
	}
}

func NewAuctionEndedEvent(auctionID, winnerID string, finalPrice decimal.Decimal) *AuctionEvent {
	return &AuctionEvent{
		Kind:      EventAuctionEnded,
		AuctionID: auctionID,
		WinnerID:  winnerID,
		Amount:    &finalPrice,
		Timestamp: time.Now(),
	}
}
