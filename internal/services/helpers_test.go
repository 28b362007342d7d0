package services

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/shopspring/decimal"
)

// memStore backs all repository interfaces for tests with the same atomic
// step semantics the MySQL repositories provide: conditional transitions,
// price compare-and-set on bid acceptance, one order per auction.
type memStore struct {
	mu       sync.Mutex
	auctions map[string]*domain.Auction
	bids     map[string][]*domain.Bid
	orders   map[string]*domain.Order
	orderSeq map[int]int64
	jobs     map[string]*domain.ScheduledJob
}

func newMemStore() *memStore {
	return &memStore{
		auctions: make(map[string]*domain.Auction),
		bids:     make(map[string][]*domain.Bid),
		orders:   make(map[string]*domain.Order),
		orderSeq: make(map[int]int64),
		jobs:     make(map[string]*domain.ScheduledJob),
	}
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	if a.ReservePrice != nil {
		r := *a.ReservePrice
		c.ReservePrice = &r
	}
	if a.WinnerID != nil {
		w := *a.WinnerID
		c.WinnerID = &w
	}
	return &c
}

func (m *memStore) CreateAuction(_ context.Context, auction *domain.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (m *memStore) GetAuction(_ context.Context, auctionID string) (*domain.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok {
		return nil, fmt.Errorf("auction %s: %w", auctionID, domain.ErrNotFound)
	}
	return cloneAuction(a), nil
}

func (m *memStore) ListAuctions(_ context.Context) ([]*domain.Auction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Auction, 0, len(m.auctions))
	for _, a := range m.auctions {
		out = append(out, cloneAuction(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *memStore) UpdateAuctionTerms(_ context.Context, auction *domain.Auction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.auctions[auction.ID]
	if !ok {
		return fmt.Errorf("auction %s: %w", auction.ID, domain.ErrNotFound)
	}
	if existing.Status != domain.AuctionPending {
		return fmt.Errorf("auction %s is not pending: %w", auction.ID, domain.ErrConflict)
	}
	m.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (m *memStore) ActivateAuction(_ context.Context, auctionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok || a.Status != domain.AuctionPending {
		return false, nil
	}
	a.Status = domain.AuctionActive
	return true, nil
}

func (m *memStore) CloseAuction(_ context.Context, auctionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok || a.Status != domain.AuctionActive {
		return false, nil
	}
	a.Status = domain.AuctionEnded
	if winner := m.winningBidLocked(auctionID); winner != nil {
		w := winner.BidderID
		a.WinnerID = &w
		a.CurrentPrice = winner.Amount
	}
	return true, nil
}

func (m *memStore) winningBidLocked(auctionID string) *domain.Bid {
	var best *domain.Bid
	for _, b := range m.bids[auctionID] {
		if best == nil || b.Amount.GreaterThan(best.Amount) ||
			(b.Amount.Equal(best.Amount) && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	return best
}

func (m *memStore) CancelAuction(_ context.Context, auctionID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[auctionID]
	if !ok {
		return false, nil
	}
	cancellable := a.Status == domain.AuctionPending ||
		(a.Status == domain.AuctionActive && len(m.bids[auctionID]) == 0)
	if !cancellable {
		return false, nil
	}
	a.Status = domain.AuctionCancelled
	return true, nil
}

func (m *memStore) AcceptBid(_ context.Context, bid *domain.Bid, priceAtValidation decimal.Decimal) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.auctions[bid.AuctionID]
	if !ok {
		return fmt.Errorf("auction %s: %w", bid.AuctionID, domain.ErrNotFound)
	}
	if a.Status != domain.AuctionActive || !a.CurrentPrice.Equal(priceAtValidation) {
		return fmt.Errorf("accept bid on auction %s: price moved or auction closed: %w",
			bid.AuctionID, domain.ErrConflict)
	}
	for _, b := range m.bids[bid.AuctionID] {
		b.IsWinning = false
	}
	copied := *bid
	m.bids[bid.AuctionID] = append(m.bids[bid.AuctionID], &copied)
	a.CurrentPrice = bid.Amount
	return nil
}

func (m *memStore) ListBids(_ context.Context, auctionID string) ([]*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*domain.Bid, 0, len(m.bids[auctionID]))
	for _, b := range m.bids[auctionID] {
		copied := *b
		out = append(out, &copied)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memStore) GetWinningBid(_ context.Context, auctionID string) (*domain.Bid, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, b := range m.bids[auctionID] {
		if b.IsWinning {
			copied := *b
			return &copied, nil
		}
	}
	return nil, fmt.Errorf("no winning bid for auction %s: %w", auctionID, domain.ErrNotFound)
}

func (m *memStore) CountBids(_ context.Context, auctionID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.bids[auctionID])), nil
}

func (m *memStore) CreateOrder(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.AuctionID == order.AuctionID {
			return fmt.Errorf("order for auction %s already exists: %w",
				order.AuctionID, domain.ErrConflict)
		}
		if o.OrderNumber == order.OrderNumber {
			return fmt.Errorf("order number %s is already taken: %w",
				order.OrderNumber, domain.ErrConflict)
		}
	}
	copied := *order
	m.orders[order.ID] = &copied
	return nil
}

func (m *memStore) GetOrder(_ context.Context, orderID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[orderID]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", orderID, domain.ErrNotFound)
	}
	copied := *o
	return &copied, nil
}

func (m *memStore) UpdateDelivery(_ context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", order.ID, domain.ErrNotFound)
	}
	o.DeliveryInstructions = order.DeliveryInstructions
	o.DeliveryDate = order.DeliveryDate
	o.DeliveryStatus = order.DeliveryStatus
	return nil
}

func (m *memStore) NextOrderNumber(_ context.Context, year int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orderSeq[year]++
	return m.orderSeq[year], nil
}

func (m *memStore) CreateJob(_ context.Context, job *domain.ScheduledJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	copied := *job
	m.jobs[job.ID] = &copied
	return nil
}

func (m *memStore) GetPendingJobs(_ context.Context, before time.Time) ([]*domain.ScheduledJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ScheduledJob
	for _, j := range m.jobs {
		if j.Status == domain.JobPending && !j.RunAt.After(before) {
			copied := *j
			out = append(out, &copied)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RunAt.Before(out[j].RunAt) })
	return out, nil
}

func (m *memStore) UpdateJobStatus(_ context.Context, jobID string, status domain.JobStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	j, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, domain.ErrNotFound)
	}
	j.Status = status
	return nil
}

func (m *memStore) CancelJobsForAuction(_ context.Context, auctionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, j := range m.jobs {
		if j.AuctionID == auctionID && j.Status == domain.JobPending {
			j.Status = domain.JobCancelled
		}
	}
	return nil
}

func (m *memStore) pendingJobCount(auctionID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, j := range m.jobs {
		if j.AuctionID == auctionID && j.Status == domain.JobPending {
			n++
		}
	}
	return n
}

type memStateCache struct {
	mu       sync.Mutex
	statuses map[string]domain.AuctionStatus
}

func newMemStateCache() *memStateCache {
	return &memStateCache{statuses: make(map[string]domain.AuctionStatus)}
}

func (c *memStateCache) SetAuctionStatus(_ context.Context, auctionID string, status domain.AuctionStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.statuses[auctionID] = status
	return nil
}

func (c *memStateCache) GetAuctionStatus(_ context.Context, auctionID string) (domain.AuctionStatus, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.statuses[auctionID], nil
}

type eventRecorder struct {
	mu     sync.Mutex
	events []*domain.AuctionEvent
}

func (r *eventRecorder) PublishAuctionEvent(_ context.Context, event *domain.AuctionEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *eventRecorder) ofKind(kind domain.EventKind) []*domain.AuctionEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*domain.AuctionEvent
	for _, e := range r.events {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

type notification struct {
	UserID  string
	Kind    string
	Payload map[string]interface{}
}

type notificationRecorder struct {
	mu   sync.Mutex
	sent []notification
	fail bool
}

func (r *notificationRecorder) CreateNotification(_ context.Context, userID, kind string, payload map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.fail {
		return fmt.Errorf("notification service unavailable")
	}
	r.sent = append(r.sent, notification{UserID: userID, Kind: kind, Payload: payload})
	return nil
}

func (r *notificationRecorder) forUser(userID string) []notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []notification
	for _, n := range r.sent {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

type memListings struct {
	listings map[string]*domain.Listing
}

func (m *memListings) GetListing(_ context.Context, listingID string) (*domain.Listing, error) {
	l, ok := m.listings[listingID]
	if !ok {
		return nil, fmt.Errorf("listing %s: %w", listingID, domain.ErrNotFound)
	}
	return l, nil
}

type fakeLeader struct{ leader bool }

func (f *fakeLeader) BecomeLeader(context.Context, string) (bool, error) { return f.leader, nil }
func (f *fakeLeader) IsLeader(context.Context, string) (bool, error)     { return f.leader, nil }
func (f *fakeLeader) ReleaseLeadership(context.Context, string) error    { return nil }

// fixture wires the services against the in-memory store with a controllable
// clock.
type fixture struct {
	store    *memStore
	cache    *memStateCache
	events   *eventRecorder
	notes    *notificationRecorder
	listings *memListings

	lifecycle *LifecycleService
	auctions  *AuctionService
	bids      *BidService
	orders    *OrderService

	mu  sync.Mutex
	now time.Time
}

func newFixture() *fixture {
	f := &fixture{
		store:  newMemStore(),
		cache:  newMemStateCache(),
		events: &eventRecorder{},
		notes:  &notificationRecorder{},
		listings: &memListings{listings: map[string]*domain.Listing{
			"listing-1": {ID: "listing-1", SellerID: "seller-1", Title: "Bright leaf lot"},
		}},
		now: time.Date(2025, time.March, 10, 12, 0, 0, 0, time.UTC),
	}

	log := logger.NewNop()
	clock := f.clockNow

	f.lifecycle = NewLifecycleService(f.store, f.store, f.store, f.cache, f.events, f.notes, log)
	f.lifecycle.now = clock
	f.auctions = NewAuctionService(f.store, f.store, f.cache, f.listings, f.lifecycle, log)
	f.auctions.now = clock
	f.bids = NewBidService(f.store, f.store, f.lifecycle, f.events, f.notes, log)
	f.bids.now = clock
	f.orders = NewOrderService(f.store, f.store, f.lifecycle, f.notes, log)
	f.orders.now = clock
	return f
}

func (f *fixture) clockNow() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fixture) advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// seedAuction stores an auction directly, bypassing creation validation.
func (f *fixture) seedAuction(a *domain.Auction) *domain.Auction {
	if a.CurrentPrice.IsZero() {
		a.CurrentPrice = a.StartingPrice
	}
	if a.MinIncrementPct.IsZero() {
		a.MinIncrementPct = decimal.NewFromInt(5)
	}
	_ = f.store.CreateAuction(context.Background(), a)
	return a
}

// activeAuction seeds an auction running from an hour ago until an hour from
// now with a 500.00 starting price and the default 5% increment.
func (f *fixture) activeAuction(id string) *domain.Auction {
	return f.seedAuction(&domain.Auction{
		ID:            id,
		ListingID:     "listing-1",
		SellerID:      "seller-1",
		StartingPrice: decimal.NewFromInt(500),
		StartTime:     f.clockNow().Add(-time.Hour),
		EndTime:       f.clockNow().Add(time.Hour),
		Status:        domain.AuctionActive,
	})
}
