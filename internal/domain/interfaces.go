package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Repository interfaces
type AuctionRepository interface {
	CreateAuction(ctx context.Context, auction *Auction) error
	GetAuction(ctx context.Context, auctionID string) (*Auction, error)
	ListAuctions(ctx context.Context) ([]*Auction, error)

	// UpdateAuctionTerms rewrites prices and timing of a pending auction.
	// Returns ErrConflict when the auction is no longer pending.
	UpdateAuctionTerms(ctx context.Context, auction *Auction) error

	// ActivateAuction moves pending to active. The false return means the
	// auction was not pending anymore; the caller re-reads.
	ActivateAuction(ctx context.Context, auctionID string) (bool, error)

	// CloseAuction atomically resolves the winner (highest bid, earliest
	// first on ties) and moves an active auction to ended, writing winner
	// and final price in the same step. The false return means the auction
	// was not active.
	CloseAuction(ctx context.Context, auctionID string) (bool, error)

	// CancelAuction moves an auction to cancelled. Permitted while pending,
	// or while active with no accepted bids. The false return means the
	// auction was in neither cancellable state.
	CancelAuction(ctx context.Context, auctionID string) (bool, error)
}

type BidRepository interface {
	// AcceptBid commits a bid as one atomic unit: the auction's
	// current_price is advanced from priceAtValidation to bid.Amount, the
	// previous winning bid loses its flag, and the new bid row is inserted
	// flagged winning. Fails with ErrConflict when the auction's price or
	// status changed since priceAtValidation was read.
	AcceptBid(ctx context.Context, bid *Bid, priceAtValidation decimal.Decimal) error

	ListBids(ctx context.Context, auctionID string) ([]*Bid, error)
	GetWinningBid(ctx context.Context, auctionID string) (*Bid, error)
	CountBids(ctx context.Context, auctionID string) (int64, error)
}

type OrderRepository interface {
	// CreateOrder inserts the order; a second order for the same auction
	// fails with ErrConflict via the unique key on auction_id.
	CreateOrder(ctx context.Context, order *Order) error
	GetOrder(ctx context.Context, orderID string) (*Order, error)
	UpdateDelivery(ctx context.Context, order *Order) error
	// NextOrderNumber reserves the next sequence number for the given year.
	// Reservations are atomic, so concurrent callers never share a number.
	NextOrderNumber(ctx context.Context, year int) (int64, error)
}

type SchedulerRepository interface {
	CreateJob(ctx context.Context, job *ScheduledJob) error
	GetPendingJobs(ctx context.Context, before time.Time) ([]*ScheduledJob, error)
	UpdateJobStatus(ctx context.Context, jobID string, status JobStatus) error
	CancelJobsForAuction(ctx context.Context, auctionID string) error
}

// Cache interfaces
type AuctionStateCache interface {
	SetAuctionStatus(ctx context.Context, auctionID string, status AuctionStatus) error
	GetAuctionStatus(ctx context.Context, auctionID string) (AuctionStatus, error)
}

// Event interfaces
type EventPublisher interface {
	PublishAuctionEvent(ctx context.Context, event *AuctionEvent) error
}

type EventSubscriber interface {
	SubscribeToAuctionEvents(ctx context.Context, handler EventHandler) error
}

type EventHandler func(event *AuctionEvent) error

// Notification interfaces
type UserNotifier interface {
	NotifyUser(ctx context.Context, userID string, message interface{}) error
}

type AuctionBroadcaster interface {
	BroadcastToAuction(ctx context.Context, auctionID string, message interface{}) error
}

// Leader election interface
type LeaderElection interface {
	BecomeLeader(ctx context.Context, instanceID string) (bool, error)
	IsLeader(ctx context.Context, instanceID string) (bool, error)
	ReleaseLeadership(ctx context.Context, instanceID string) error
}

// WebSocket interfaces
type WebSocketConnection interface {
	Send(message interface{}) error
	Close() error
	UserID() string
	AuctionID() string
}

type ConnectionManager interface {
	RegisterConnection(userID, auctionID string, conn WebSocketConnection) error
	UnregisterConnection(userID, auctionID string) error
	GetConnectionsForAuction(auctionID string) []WebSocketConnection
	GetConnectionsForUser(userID string) []WebSocketConnection
	BroadcastToAuction(auctionID string, message interface{}) error
	NotifyUser(userID string, message interface{}) error
	CloseAndUnregisterConnections(auctionID string) error
}

// Collaborator ports. User management, listings and notification delivery
// are owned by external services; the engine only consumes these operations.
type ListingDirectory interface {
	GetListing(ctx context.Context, listingID string) (*Listing, error)
}

type UserDirectory interface {
	GetUser(ctx context.Context, userID string) (*User, error)
}

type NotificationService interface {
	CreateNotification(ctx context.Context, userID, kind string, payload map[string]interface{}) error
}
