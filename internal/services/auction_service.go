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

// Default minimum increment when the seller does not provide one: five
// percent of the current price.
var defaultMinIncrementPct = decimal.NewFromInt(5)

type CreateAuctionInput struct {
	ListingID       string
	StartingPrice   decimal.Decimal
	ReservePrice    *decimal.Decimal
	MinIncrementPct decimal.Decimal
	StartTime       time.Time
	EndTime         time.Time
}

type UpdateAuctionInput struct {
	StartingPrice   *decimal.Decimal
	ReservePrice    *decimal.Decimal
	MinIncrementPct *decimal.Decimal
	StartTime       *time.Time
	EndTime         *time.Time
}

type AuctionService struct {
	auctions   domain.AuctionRepository
	jobs       domain.SchedulerRepository
	stateCache domain.AuctionStateCache
	listings   domain.ListingDirectory
	lifecycle  *LifecycleService
	log        logger.Logger
	now        func() time.Time
}

func NewAuctionService(
	auctions domain.AuctionRepository,
	jobs domain.SchedulerRepository,
	stateCache domain.AuctionStateCache,
	listings domain.ListingDirectory,
	lifecycle *LifecycleService,
	log logger.Logger,
) *AuctionService {
	return &AuctionService{
		auctions:   auctions,
		jobs:       jobs,
		stateCache: stateCache,
		listings:   listings,
		lifecycle:  lifecycle,
		log:        log,
		now:        time.Now,
	}
}

func (s *AuctionService) CreateAuction(ctx context.Context, sellerID string, in CreateAuctionInput) (*domain.Auction, error) {
	now := s.now()

	if err := validateAuctionTerms(in.StartingPrice, in.ReservePrice, in.StartTime, in.EndTime, now); err != nil {
		return nil, err
	}

	listing, err := s.listings.GetListing(ctx, in.ListingID)
	if err != nil {
		return nil, err
	}
	if listing.SellerID != sellerID {
		return nil, fmt.Errorf("listing %s does not belong to seller %s: %w",
			in.ListingID, sellerID, domain.ErrAuthorization)
	}

	incrementPct := in.MinIncrementPct
	if incrementPct.IsZero() {
		incrementPct = defaultMinIncrementPct
	}
	if incrementPct.IsNegative() {
		return nil, fmt.Errorf("minimum increment cannot be negative: %w", domain.ErrValidation)
	}

	auction := &domain.Auction{
		ID:              utils.GenerateID("auction"),
		ListingID:       in.ListingID,
		SellerID:        sellerID,
		StartingPrice:   in.StartingPrice,
		CurrentPrice:    in.StartingPrice,
		ReservePrice:    in.ReservePrice,
		MinIncrementPct: incrementPct,
		StartTime:       in.StartTime,
		EndTime:         in.EndTime,
		Status:          domain.AuctionPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.auctions.CreateAuction(ctx, auction); err != nil {
		return nil, err
	}

	if err := s.scheduleTransitions(ctx, auction); err != nil {
		return nil, err
	}

	if err := s.stateCache.SetAuctionStatus(ctx, auction.ID, domain.AuctionPending); err != nil {
		s.log.Error("Failed to seed state cache", "auction_id", auction.ID, "error", err)
	}

	s.log.Info("Auction created", "auction_id", auction.ID, "listing_id", in.ListingID)
	return auction, nil
}

// GetAuction reads an auction and applies any transition the clock has made
// due, so readers always observe the correct lifecycle state.
func (s *AuctionService) GetAuction(ctx context.Context, auctionID string) (*domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return s.lifecycle.Reconcile(ctx, auction)
}

func (s *AuctionService) ListAuctions(ctx context.Context) ([]*domain.Auction, error) {
	return s.auctions.ListAuctions(ctx)
}

// UpdateAuction rewrites the terms of a pending auction. Started or finished
// auctions are immutable.
func (s *AuctionService) UpdateAuction(ctx context.Context, auctionID, sellerID string, in UpdateAuctionInput) (*domain.Auction, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	auction, err = s.lifecycle.Reconcile(ctx, auction)
	if err != nil {
		return nil, err
	}

	if auction.SellerID != sellerID {
		return nil, fmt.Errorf("only the seller can update auction %s: %w", auctionID, domain.ErrAuthorization)
	}
	if auction.Status != domain.AuctionPending {
		return nil, fmt.Errorf("auction %s has started or ended: %w", auctionID, domain.ErrState)
	}

	if in.StartingPrice != nil {
		auction.StartingPrice = *in.StartingPrice
		auction.CurrentPrice = *in.StartingPrice
	}
	if in.ReservePrice != nil {
		auction.ReservePrice = in.ReservePrice
	}
	if in.MinIncrementPct != nil {
		auction.MinIncrementPct = *in.MinIncrementPct
	}
	rescheduled := false
	if in.StartTime != nil {
		auction.StartTime = *in.StartTime
		rescheduled = true
	}
	if in.EndTime != nil {
		auction.EndTime = *in.EndTime
		rescheduled = true
	}

	if err := validateAuctionTerms(auction.StartingPrice, auction.ReservePrice,
		auction.StartTime, auction.EndTime, s.now()); err != nil {
		return nil, err
	}
	if auction.MinIncrementPct.IsNegative() {
		return nil, fmt.Errorf("minimum increment cannot be negative: %w", domain.ErrValidation)
	}

	if err := s.auctions.UpdateAuctionTerms(ctx, auction); err != nil {
		return nil, err
	}

	if rescheduled {
		if err := s.jobs.CancelJobsForAuction(ctx, auctionID); err != nil {
			return nil, err
		}
		if err := s.scheduleTransitions(ctx, auction); err != nil {
			return nil, err
		}
	}

	return s.auctions.GetAuction(ctx, auctionID)
}

func (s *AuctionService) scheduleTransitions(ctx context.Context, auction *domain.Auction) error {
	now := s.now()

	startJob := &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auction.ID,
		JobType:   domain.JobStartAuction,
		RunAt:     auction.StartTime,
		Status:    domain.JobPending,
		CreatedAt: now,
	}
	if err := s.jobs.CreateJob(ctx, startJob); err != nil {
		return err
	}

	endJob := &domain.ScheduledJob{
		ID:        utils.GenerateID("job"),
		AuctionID: auction.ID,
		JobType:   domain.JobEndAuction,
		RunAt:     auction.EndTime,
		Status:    domain.JobPending,
		CreatedAt: now,
	}
	return s.jobs.CreateJob(ctx, endJob)
}

func validateAuctionTerms(startingPrice decimal.Decimal, reservePrice *decimal.Decimal,
	startTime, endTime time.Time, now time.Time) error {
	if !startingPrice.IsPositive() {
		return fmt.Errorf("starting price must be positive: %w", domain.ErrValidation)
	}
	if reservePrice != nil && reservePrice.IsNegative() {
		return fmt.Errorf("reserve price cannot be negative: %w", domain.ErrValidation)
	}
	if !startTime.After(now) {
		return fmt.Errorf("start time must be in the future: %w", domain.ErrValidation)
	}
	if !endTime.After(startTime) {
		return fmt.Errorf("end time must be after start time: %w", domain.ErrValidation)
	}
	return nil
}
