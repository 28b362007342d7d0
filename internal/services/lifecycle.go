package services

import (
	"context"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

// LifecycleService owns auction status transitions. Transitions are applied
// lazily whenever an auction is read and eagerly by the sweeper; both paths
// funnel into the same conditional repository updates, so a transition is
// applied exactly once no matter how many workers race to it.
type LifecycleService struct {
	auctions      domain.AuctionRepository
	bids          domain.BidRepository
	jobs          domain.SchedulerRepository
	stateCache    domain.AuctionStateCache
	events        domain.EventPublisher
	notifications domain.NotificationService
	log           logger.Logger
	now           func() time.Time
}

func NewLifecycleService(
	auctions domain.AuctionRepository,
	bids domain.BidRepository,
	jobs domain.SchedulerRepository,
	stateCache domain.AuctionStateCache,
	events domain.EventPublisher,
	notifications domain.NotificationService,
	log logger.Logger,
) *LifecycleService {
	return &LifecycleService{
		auctions:      auctions,
		bids:          bids,
		jobs:          jobs,
		stateCache:    stateCache,
		events:        events,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

// EvaluateStatus computes the status an auction should hold at the given
// time. Pure; it never touches storage.
func EvaluateStatus(auction *domain.Auction, now time.Time) domain.AuctionStatus {
	switch auction.Status {
	case domain.AuctionPending:
		if !now.Before(auction.StartTime) {
			if !now.Before(auction.EndTime) {
				return domain.AuctionEnded
			}
			return domain.AuctionActive
		}
	case domain.AuctionActive:
		if !now.Before(auction.EndTime) {
			return domain.AuctionEnded
		}
	}
	return auction.Status
}

// Reconcile applies any transition the wall clock has made due and returns
// the fresh auction. Losing a transition race to another worker is not an
// error; the fresh read reflects whoever won.
func (s *LifecycleService) Reconcile(ctx context.Context, auction *domain.Auction) (*domain.Auction, error) {
	now := s.now()
	desired := EvaluateStatus(auction, now)
	if desired == auction.Status {
		return auction, nil
	}

	if auction.Status == domain.AuctionPending {
		activated, err := s.auctions.ActivateAuction(ctx, auction.ID)
		if err != nil {
			return nil, err
		}
		if activated {
			s.transitionApplied(ctx, auction.ID, domain.AuctionActive)
		}
	}

	if desired == domain.AuctionEnded {
		if _, err := s.closeAuction(ctx, auction.ID); err != nil {
			return nil, err
		}
	}

	return s.auctions.GetAuction(ctx, auction.ID)
}

// EndNow closes an active auction before its end time. Per business rule it
// requires at least one bid; sellers wanting to abort a bid-free auction
// cancel it instead.
func (s *LifecycleService) EndNow(ctx context.Context, auctionID, requesterID string) (*domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	auction, err = s.Reconcile(ctx, auction)
	if err != nil {
		return nil, err
	}

	if auction.SellerID != requesterID {
		return nil, fmt.Errorf("only the seller can end auction %s: %w", auctionID, domain.ErrAuthorization)
	}
	if auction.Status != domain.AuctionActive {
		return nil, fmt.Errorf("auction %s is %s, not active: %w", auctionID, auction.Status, domain.ErrState)
	}

	bidCount, err := s.bids.CountBids(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if bidCount == 0 {
		return nil, fmt.Errorf("cannot end auction %s without any bids: %w", auctionID, domain.ErrState)
	}

	closed, err := s.closeAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !closed {
		return nil, fmt.Errorf("auction %s was concurrently closed: %w", auctionID, domain.ErrConflict)
	}

	if err := s.jobs.CancelJobsForAuction(ctx, auctionID); err != nil {
		s.log.Error("Failed to cancel scheduled jobs", "auction_id", auctionID, "error", err)
	}

	return s.auctions.GetAuction(ctx, auctionID)
}

// Cancel aborts an auction with no winner. Permitted while pending, or while
// active with no accepted bids; the first accepted bid locks the auction
// into running to completion.
func (s *LifecycleService) Cancel(ctx context.Context, auctionID, requesterID string) (*domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	auction, err = s.Reconcile(ctx, auction)
	if err != nil {
		return nil, err
	}

	if auction.SellerID != requesterID {
		return nil, fmt.Errorf("only the seller can cancel auction %s: %w", auctionID, domain.ErrAuthorization)
	}

	switch auction.Status {
	case domain.AuctionEnded, domain.AuctionCancelled:
		return nil, fmt.Errorf("auction %s is already %s: %w", auctionID, auction.Status, domain.ErrState)
	case domain.AuctionActive:
		bidCount, err := s.bids.CountBids(ctx, auctionID)
		if err != nil {
			return nil, err
		}
		if bidCount > 0 {
			return nil, fmt.Errorf("auction %s has bids and must run to completion: %w", auctionID, domain.ErrState)
		}
	}

	cancelled, err := s.auctions.CancelAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if !cancelled {
		return nil, fmt.Errorf("auction %s changed state concurrently: %w", auctionID, domain.ErrConflict)
	}

	if err := s.jobs.CancelJobsForAuction(ctx, auctionID); err != nil {
		s.log.Error("Failed to cancel scheduled jobs", "auction_id", auctionID, "error", err)
	}

	s.transitionApplied(ctx, auctionID, domain.AuctionCancelled)

	return s.auctions.GetAuction(ctx, auctionID)
}

// closeAuction runs the active-to-ended transition with winner resolution
// and emits the terminal events. The false return means the auction was no
// longer active and another worker's close stands.
func (s *LifecycleService) closeAuction(ctx context.Context, auctionID string) (bool, error) {
	closed, err := s.auctions.CloseAuction(ctx, auctionID)
	if err != nil {
		return false, err
	}
	if !closed {
		return false, nil
	}

	s.transitionApplied(ctx, auctionID, domain.AuctionEnded)

	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return true, err
	}

	winnerID := ""
	if auction.HasWinner() {
		winnerID = *auction.WinnerID
	}

	event := domain.NewAuctionEndedEvent(auctionID, winnerID, auction.CurrentPrice)
	if err := s.events.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish auction ended event", "auction_id", auctionID, "error", err)
	}

	payload := map[string]interface{}{
		"auction_id":  auctionID,
		"final_price": auction.CurrentPrice.String(),
		"winner_id":   winnerID,
	}
	if err := s.notifications.CreateNotification(ctx, auction.SellerID, "auction.ended", payload); err != nil {
		s.log.Error("Failed to notify seller", "auction_id", auctionID, "error", err)
	}
	if winnerID != "" {
		if err := s.notifications.CreateNotification(ctx, winnerID, "auction.ended", payload); err != nil {
			s.log.Error("Failed to notify winner", "auction_id", auctionID, "error", err)
		}
	}

	return true, nil
}

func (s *LifecycleService) transitionApplied(ctx context.Context, auctionID string, status domain.AuctionStatus) {
	s.log.Info("Auction status changed", "auction_id", auctionID, "status", status.String())

	if err := s.stateCache.SetAuctionStatus(ctx, auctionID, status); err != nil {
		s.log.Error("Failed to update state cache", "auction_id", auctionID, "error", err)
	}

	event := domain.NewStatusChangedEvent(auctionID, status)
	if err := s.events.PublishAuctionEvent(ctx, event); err != nil {
		s.log.Error("Failed to publish status event", "auction_id", auctionID, "error", err)
	}
}
