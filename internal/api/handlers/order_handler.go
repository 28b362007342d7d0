package handlers

import (
	"fmt"
	"net/http"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/internal/services"
	"auction-engine/pkg/logger"

	"github.com/labstack/echo/v4"
)

type OrderHandler struct {
	orders *services.OrderService
	log    logger.Logger
}

func NewOrderHandler(orders *services.OrderService, log logger.Logger) *OrderHandler {
	return &OrderHandler{orders: orders, log: log}
}

func (h *OrderHandler) RegisterRoutes(g *echo.Group) {
	g.POST("/orders", h.CreateOrder)
	g.GET("/orders/:id", h.GetOrder)
	g.PUT("/orders/:id", h.UpdateOrder)
}

type createOrderRequest struct {
	AuctionID            string     `json:"auction_id"`
	DeliveryInstructions string     `json:"delivery_instructions"`
	DeliveryDate         *time.Time `json:"delivery_date"`
}

func (h *OrderHandler) CreateOrder(c echo.Context) error {
	buyerID, err := requesterID(c)
	if err != nil {
		return err
	}

	var req createOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
	}
	if req.AuctionID == "" {
		return respondError(c, fmt.Errorf("auction_id is required: %w", domain.ErrValidation))
	}

	order, err := h.orders.CreateOrder(c.Request().Context(), req.AuctionID, buyerID, services.OrderInput{
		DeliveryInstructions: req.DeliveryInstructions,
		DeliveryDate:         req.DeliveryDate,
	})
	if err != nil {
		h.log.Error("create order failed", "auction_id", req.AuctionID, "buyer_id", buyerID, "error", err)
		return respondError(c, err)
	}

	return c.JSON(http.StatusCreated, toOrderResponse(order))
}

func (h *OrderHandler) GetOrder(c echo.Context) error {
	requester, err := requesterID(c)
	if err != nil {
		return err
	}

	order, err := h.orders.GetOrder(c.Request().Context(), c.Param("id"), requester)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}

type updateOrderRequest struct {
	DeliveryInstructions *string    `json:"delivery_instructions"`
	DeliveryDate         *time.Time `json:"delivery_date"`
	DeliveryStatus       *string    `json:"delivery_status"`
}

func (h *OrderHandler) UpdateOrder(c echo.Context) error {
	requester, err := requesterID(c)
	if err != nil {
		return err
	}

	var req updateOrderRequest
	if err := c.Bind(&req); err != nil {
		return respondError(c, fmt.Errorf("invalid request body: %w", domain.ErrValidation))
	}

	update := services.DeliveryUpdate{
		DeliveryInstructions: req.DeliveryInstructions,
		DeliveryDate:         req.DeliveryDate,
	}
	if req.DeliveryStatus != nil {
		status := domain.DeliveryStatus(*req.DeliveryStatus)
		update.DeliveryStatus = &status
	}

	order, err := h.orders.UpdateDelivery(c.Request().Context(), c.Param("id"), requester, update)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, toOrderResponse(order))
}
