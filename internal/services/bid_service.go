package services

import (
	"context"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"

	"github.com/shopspring/decimal"
)

// BidService validates and commits bids. Acceptance is optimistic: the
// preconditions are checked against a snapshot and the commit is conditional
// on that snapshot's price, so of two concurrent qualifying bids exactly one
// lands and the other returns ErrConflict. The service never retries a
// conflict itself; the caller re-reads and resubmits against the new price.
type BidService struct {
	auctions      domain.AuctionRepository
	bids          domain.BidRepository
	lifecycle     *LifecycleService
	events        domain.EventPublisher
	notifications domain.NotificationService
	log           logger.Logger
	now           func() time.Time
}

func NewBidService(
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	lifecycle *LifecycleService,
	events domain.EventPublisher,
	notifications domain.NotificationService,
	log logger.Logger,
) *BidService {
	return &BidService{
		auctions:      auctions,
		bids:          bids,
		lifecycle:     lifecycle,
		events:        events,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

func (s *BidService) PlaceBid(ctx context.Context, auctionID, bidderID string, amount decimal.Decimal) (*domain.Bid, error) {
	if auctionID == "" || bidderID == "" {
		return nil, fmt.Errorf("auction id and bidder id are required: %w", domain.ErrValidation)
	}
	if !amount.IsPositive() {
		return nil, fmt.Errorf("bid amount must be positive: %w", domain.ErrValidation)
	}
	// Prices are stored with cent precision; a sub-cent amount would come
	// back from the store different from what the bidder was told.
	if !amount.Equal(amount.Round(2)) {
		return nil, fmt.Errorf("bid amount %s has sub-cent precision: %w",
			amount.String(), domain.ErrValidation)
	}

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	auction, err = s.lifecycle.Reconcile(ctx, auction)
	if err != nil {
		return nil, err
	}

	switch auction.Status {
	case domain.AuctionPending:
		return nil, fmt.Errorf("auction %s has not started: %w", auctionID, domain.ErrState)
	case domain.AuctionEnded, domain.AuctionCancelled:
		return nil, fmt.Errorf("auction %s is %s: %w", auctionID, auction.Status, domain.ErrState)
	}

	if bidderID == auction.SellerID {
		return nil, fmt.Errorf("cannot bid on your own auction: %w", domain.ErrAuthorization)
	}

	minimum := auction.MinimumBid()
	if amount.LessThan(minimum) {
		return nil, fmt.Errorf("bid %s is below the minimum %s: %w",
			amount.StringFixed(2), minimum.StringFixed(2), domain.ErrValidation)
	}

	bid := &domain.Bid{
		ID:        utils.GenerateID("bid"),
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		IsWinning: true,
		CreatedAt: s.now(),
	}

	if err := s.bids.AcceptBid(ctx, bid, auction.CurrentPrice); err != nil {
		return nil, err
	}

	s.log.Info("Bid accepted", "auction_id", auctionID, "bidder_id", bidderID,
		"amount", amount.StringFixed(2))

	event := domain.NewBidPlacedEvent(auctionID, bidderID, amount)
	if err := s.events.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish bid event", "auction_id", auctionID, "error", err)
	}

	if err := s.notifications.CreateNotification(ctx, auction.SellerID, "bid.placed", map[string]interface{}{
		"auction_id": auctionID,
		"bidder_id":  bidderID,
		"amount":     amount.String(),
	}); err != nil {
		s.log.Error("Failed to notify seller", "auction_id", auctionID, "error", err)
	}

	return bid, nil
}

// ListBids returns an auction's bids, newest first.
func (s *BidService) ListBids(ctx context.Context, auctionID string) ([]*domain.Bid, error) {
	if _, err := s.auctions.GetAuction(ctx, auctionID); err != nil {
		return nil, err
	}
	return s.bids.ListBids(ctx, auctionID)
}
