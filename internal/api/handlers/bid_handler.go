package handlers

import (
	"fmt"
	"net/http"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type BidHandler struct {
	bids *services.BidService
	log  logger.Logger
}

func NewBidHandler(bids *services.BidService, log logger.Logger) *BidHandler {
	return &BidHandler{bids: bids, log: log}
}

func (h *BidHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/auctions/:id/bids", h.PlaceBid)
	g.GET("/auctions/:id/bids", h.ListBids)
}

type placeBidRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

func (h *BidHandler) PlaceBid(c echo.Context) error {
	bidderID, err := requesterID(c)
	if err != nil {
		return err
	}

	var req placeBidRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
	}

	bid, err := h.bids.PlaceBid(c.Request().Context(), c.Param("id"), bidderID, req.Amount)
	if err != nil {
		h.log.Debug("bid rejected", "auction_id", c.Param("id"), "bidder_id", bidderID, "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toBidResponse(bid))
}

func (h *BidHandler) ListBids(c echo.Context) error {
	bids, err := h.bids.ListBids(c.Request().Context(), c.Param("id"))
	if err != nil {
		return respondError(c, err)
	}

	resp := make([]bidResponse, 0, len(bids))
	for _, b := range bids {
		resp = append(resp, toBidResponse(b))
	}
	return c.JSON(http.StatusOK, resp)
}
