package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AuctionStatus int

const (
	AuctionPending AuctionStatus = iota
	AuctionActive
	AuctionEnded
	AuctionCancelled
)

func (s AuctionStatus) String() string {
	switch s {
	case AuctionPending:
		return "pending"
	case AuctionActive:
		return "active"
	case AuctionEnded:
		return "ended"
	case AuctionCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Auction is the single source of truth for one listing being sold. The row
// holding CurrentPrice, Status and WinnerID is the only shared mutable state
// in the engine; all writes to it go through the repositories' atomic steps.
type Auction struct {
	ID            string
	ListingID     string
	SellerID      string
	StartingPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	ReservePrice  *decimal.Decimal

	// MinIncrementPct is the minimum bid increment as a percentage of the
	// current price. The absolute increment is derived at acceptance time.
	MinIncrementPct decimal.Decimal

	StartTime time.Time
	EndTime   time.Time
	Status    AuctionStatus
	WinnerID  *string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// MinimumBid returns the smallest acceptable bid amount against the current
// price: current_price + current_price * pct / 100, rounded to cents.
func (a *Auction) MinimumBid() decimal.Decimal {
	increment := a.CurrentPrice.Mul(a.MinIncrementPct).Div(decimal.NewFromInt(100)).Round(2)
	return a.CurrentPrice.Add(increment)
}

func (a *Auction) HasWinner() bool {
	return a.WinnerID != nil && *a.WinnerID != ""
}

// Bid is immutable once created, except for IsWinning, which the acceptance
// of a newer winning bid flips off for the prior holder.
type Bid struct {
	ID        string
	AuctionID string
	BidderID  string
	Amount    decimal.Decimal
	IsWinning bool
	CreatedAt time.Time
}

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPaid      OrderStatus = "paid"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type DeliveryStatus string

const (
	DeliveryScheduled DeliveryStatus = "scheduled"
	DeliveryInTransit DeliveryStatus = "in_transit"
	DeliveryDelivered DeliveryStatus = "delivered"
)

// Order is the post-auction purchase record, created exclusively by the
// auction's resolved winner. At most one order exists per auction; the
// database enforces that with a unique key on auction_id.
type Order struct {
	ID                   string
	AuctionID            string
	BuyerID              string
	SellerID             string
	Amount               decimal.Decimal
	Status               OrderStatus
	OrderNumber          string
	DeliveryInstructions string
	DeliveryDate         *time.Time
	DeliveryStatus       DeliveryStatus
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// Listing is the engine's view of a listing owned by the listing service.
type Listing struct {
	ID       string `json:"id"`
	SellerID string `json:"seller_id"`
	Title    string `json:"title"`
}

// User is the engine's view of an account owned by the user service.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type ScheduledJob struct {
	ID        string
	AuctionID string
	JobType   JobType
	RunAt     time.Time
	Status    JobStatus
	CreatedAt time.Time
}

type JobType string

const (
	JobStartAuction JobType = "start_auction"
	JobEndAuction   JobType = "end_auction"
)

type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobExecuted  JobStatus = "executed"
	JobCancelled JobStatus = "cancelled"
)
