package handlers

import (
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type AuctionHandler struct {
	auctions  *services.AuctionService
	lifecycle *services.LifecycleService
	log       logger.Logger
}

func NewAuctionHandler(auctions *services.AuctionService, lifecycle *services.LifecycleService, log logger.Logger) *AuctionHandler {
	return &AuctionHandler{auctions: auctions, lifecycle: lifecycle, log: log}
}

func (h *AuctionHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auctions", h.CreateAuction)
	g.GET("/auctions", h.ListAuctions)
	g.GET("/auctions/:id", h.GetAuction)
	g.PUT("/auctions/:id", h.UpdateAuction)
	g.POST("/auctions/:id/end", h.EndAuction)
	g.POST("/auctions/:id/cancel", h.CancelAuction)
}

type createAuctionRequest struct {
	ListingID       string           `json:"listing_id"`
	StartingPrice   decimal.Decimal  `json:"starting_price"`
	ReservePrice    *decimal.Decimal `json:"reserve_price"`
	MinIncrementPct decimal.Decimal  `json:"min_increment_pct"`
	StartTime       time.Time        `json:"start_time"`
	EndTime         time.Time        `json:"end_time"`
}

func (h *AuctionHandler) CreateAuction(c echo.Context) error {
	sellerID, err := requesterID(c)
	if err != nil {
		return err
	}

	var req createAuctionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
	}

	auction, err := h.auctions.CreateAuction(c.Request().Context(), sellerID, services.CreateAuctionInput{
		ListingID:       req.ListingID,
		StartingPrice:   req.StartingPrice,
		ReservePrice:    req.ReservePrice,
		MinIncrementPct: req.MinIncrementPct,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		h.log.Error("create auction failed", "seller_id", sellerID, "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toAuctionResponse(auction))
}

func (h *AuctionHandler) ListAuctions(c echo.Context) error {
	auctions, err := h.auctions.ListAuctions(c.Request().Context())
	if err != nil {
		return respondError(c, err)
	}

	resp := make([]auctionResponse, 0, len(auctions))
	for _, a := range auctions {
		resp = append(resp, toAuctionResponse(a))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *AuctionHandler) GetAuction(c echo.Context) error {
	auction, err := h.auctions.GetAuction(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

type updateAuctionRequest struct {
	StartingPrice   *decimal.Decimal `json:"starting_price"`
	ReservePrice    *decimal.Decimal `json:"reserve_price"`
	MinIncrementPct *decimal.Decimal `json:"min_increment_pct"`
	StartTime       *time.Time       `json:"start_time"`
	EndTime         *time.Time       `json:"end_time"`
}

func (h *AuctionHandler) UpdateAuction(c echo.Context) error {
	sellerID, err := requesterID(c)
	if err != nil {
		return err
	}

	var req updateAuctionRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
	}

	auction, err := h.auctions.UpdateAuction(c.Request().Context(), c.Param("id"), sellerID, services.UpdateAuctionInput{
		StartingPrice:   req.StartingPrice,
		ReservePrice:    req.ReservePrice,
		MinIncrementPct: req.MinIncrementPct,
		StartTime:       req.StartTime,
		EndTime:         req.EndTime,
	})
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

func (h *AuctionHandler) EndAuction(c echo.Context) error {
	callerID, err := requesterID(c)
	if err != nil {
		return err
	}

	auction, err := h.lifecycle.EndNow(c.Request().Context(), c.Param("id"), callerID)
	if err != nil {
		h.log.Error("end auction failed", "auction_id", c.Param("id"), "error", err)
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}

func (h *AuctionHandler) CancelAuction(c echo.Context) error {
	callerID, err := requesterID(c)
	if err != nil {
		return err
	}

	auction, err := h.lifecycle.Cancel(c.Request().Context(), c.Param("id"), callerID)
	if err != nil {
		h.log.Error("cancel auction failed", "auction_id", c.Param("id"), "error", err)
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toAuctionResponse(auction))
}
