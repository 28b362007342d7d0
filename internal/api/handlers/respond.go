package handlers

import (
	"errors"
	"net/http"
	"time"

	"auction-engine/internal/domain"

	"github.com/labstack/echo/v4"
)

const userIDHeader = "X-User-ID"

// requesterID extracts the authenticated caller set by the gateway.
// Authentication itself is an external collaborator.
func requesterID(c echo.Context) (string, error) {
	id := c.Request().Header.Get(userIDHeader)
	if id == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "missing "+userIDHeader+" header")
	}
	return id, nil
}

// respondError maps the engine's error kinds onto HTTP statuses.
func respondError(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrState):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrAuthorization):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	return c.JSON(status, map[string]string{"error": message})
}

type auctionResponse struct {
	ID              string    `json:"id"`
	ListingID       string    `json:"listing_id"`
	SellerID        string    `json:"seller_id"`
	StartingPrice   string    `json:"starting_price"`
	CurrentPrice    string    `json:"current_price"`
	ReservePrice    *string   `json:"reserve_price,omitempty"`
	MinIncrementPct string    `json:"min_increment_pct"`
	MinimumBid      string    `json:"minimum_bid"`
	StartTime       time.Time `json:"start_time"`
	EndTime         time.Time `json:"end_time"`
	Status          string    `json:"status"`
	WinnerID        *string   `json:"winner_id,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

func toAuctionResponse(a *domain.Auction) auctionResponse {
	resp := auctionResponse{
		ID:              a.ID,
		ListingID:       a.ListingID,
		SellerID:        a.SellerID,
		StartingPrice:   a.StartingPrice.StringFixed(2),
		CurrentPrice:    a.CurrentPrice.StringFixed(2),
		MinIncrementPct: a.MinIncrementPct.String(),
		MinimumBid:      a.MinimumBid().StringFixed(2),
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          a.Status.String(),
		WinnerID:        a.WinnerID,
		CreatedAt:       a.CreatedAt,
	}
	if a.ReservePrice != nil {
		reserve := a.ReservePrice.StringFixed(2)
		resp.ReservePrice = &reserve
	}
	return resp
}

type bidResponse struct {
	ID        string    `json:"id"`
	AuctionID string    `json:"auction_id"`
	BidderID  string    `json:"bidder_id"`
	Amount    string    `json:"amount"`
	IsWinning bool      `json:"is_winning"`
	CreatedAt time.Time `json:"created_at"`
}

func toBidResponse(b *domain.Bid) bidResponse {
	return bidResponse{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount.StringFixed(2),
		IsWinning: b.IsWinning,
		CreatedAt: b.CreatedAt,
	}
}

type orderResponse struct {
	ID                   string     `json:"id"`
	AuctionID            string     `json:"auction_id"`
	BuyerID              string     `json:"buyer_id"`
	SellerID             string     `json:"seller_id"`
	Amount               string     `json:"amount"`
	Status               string     `json:"status"`
	OrderNumber          string     `json:"order_number"`
	DeliveryInstructions string     `json:"delivery_instructions,omitempty"`
	DeliveryDate         *time.Time `json:"delivery_date,omitempty"`
	DeliveryStatus       string     `json:"delivery_status"`
	CreatedAt            time.Time  `json:"created_at"`
}

func toOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		ID:                   o.ID,
		AuctionID:            o.AuctionID,
		BuyerID:              o.BuyerID,
		SellerID:             o.SellerID,
		Amount:               o.Amount.StringFixed(2),
		Status:               string(o.Status),
		OrderNumber:          o.OrderNumber,
		DeliveryInstructions: o.DeliveryInstructions,
		DeliveryDate:         o.DeliveryDate,
		DeliveryStatus:       string(o.DeliveryStatus),
		CreatedAt:            o.CreatedAt,
	}
}
