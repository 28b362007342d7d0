package services

import (
	"context"
	"fmt"
	"time"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
	"auction-engine/pkg/utils"
)

type OrderInput struct {
	DeliveryInstructions string
	DeliveryDate         *time.Time
}

type DeliveryUpdate struct {
	DeliveryInstructions *string
	DeliveryDate         *time.Time
	DeliveryStatus       *domain.DeliveryStatus
}

// OrderService gates order creation on the auction outcome: only the
// resolved winner of an ended auction may order, at most once. The
// uniqueness half of the guarantee lives in the store's unique key on
// auction_id, not here, so two concurrent winner requests cannot both land.
type OrderService struct {
	orders        domain.OrderRepository
	auctions      domain.AuctionRepository
	lifecycle     *LifecycleService
	notifications domain.NotificationService
	log           logger.Logger
	now           func() time.Time
}

func NewOrderService(
	orders domain.OrderRepository,
	auctions domain.AuctionRepository,
	lifecycle *LifecycleService,
	notifications domain.NotificationService,
	log logger.Logger,
) *OrderService {
	return &OrderService{
		orders:        orders,
		auctions:      auctions,
		lifecycle:     lifecycle,
		notifications: notifications,
		log:           log,
		now:           time.Now,
	}
}

func (s *OrderService) CreateOrder(ctx context.Context, auctionID, buyerID string, in OrderInput) (*domain.Order, error) {
	auction, err := s.auctions.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	auction, err = s.lifecycle.Reconcile(ctx, auction)
	if err != nil {
		return nil, err
	}

	if auction.Status != domain.AuctionEnded {
		return nil, fmt.Errorf("auction %s must be ended to create an order: %w", auctionID, domain.ErrState)
	}
	if !auction.HasWinner() || *auction.WinnerID != buyerID {
		return nil, fmt.Errorf("only the auction winner can create an order: %w", domain.ErrAuthorization)
	}
	if in.DeliveryDate != nil && !in.DeliveryDate.After(s.now()) {
		return nil, fmt.Errorf("delivery date must be in the future: %w", domain.ErrValidation)
	}

	now := s.now()
	seq, err := s.orders.NextOrderNumber(ctx, now.Year())
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:                   utils.GenerateID("order"),
		AuctionID:            auctionID,
		BuyerID:              buyerID,
		SellerID:             auction.SellerID,
		Amount:               auction.CurrentPrice,
		Status:               domain.OrderPending,
		OrderNumber:          fmt.Sprintf("ORD-%d-%06d", now.Year(), seq),
		DeliveryInstructions: in.DeliveryInstructions,
		DeliveryDate:         in.DeliveryDate,
		DeliveryStatus:       domain.DeliveryScheduled,
		CreatedAt:            now,
		UpdatedAt:            now,
	}

	if err := s.orders.CreateOrder(ctx, order); err != nil {
		return nil, err
	}

	s.log.Info("Order created", "order_id", order.ID, "auction_id", auctionID,
		"amount", order.Amount.StringFixed(2))

	payload := map[string]interface{}{
		"order_id":     order.ID,
		"order_number": order.OrderNumber,
		"auction_id":   auctionID,
		"amount":       order.Amount.String(),
	}
	for _, userID := range []string{order.SellerID, order.BuyerID} {
		if err := s.notifications.CreateNotification(ctx, userID, "order.created", payload); err != nil {
			s.log.Error("Failed to notify about order", "order_id", order.ID,
				"user_id", userID, "error", err)
		}
	}

	return order, nil
}

// GetOrder returns an order to its buyer or seller.
func (s *OrderService) GetOrder(ctx context.Context, orderID, requesterID string) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if requesterID != order.BuyerID && requesterID != order.SellerID {
		return nil, fmt.Errorf("not a party to order %s: %w", orderID, domain.ErrAuthorization)
	}
	return order, nil
}

// UpdateDelivery lets the seller maintain delivery details; the buyer is
// notified when the delivery status moves.
func (s *OrderService) UpdateDelivery(ctx context.Context, orderID, requesterID string, in DeliveryUpdate) (*domain.Order, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}

	if requesterID != order.SellerID {
		return nil, fmt.Errorf("only the seller can update order %s: %w", orderID, domain.ErrAuthorization)
	}

	statusChanged := false
	if in.DeliveryInstructions != nil {
		order.DeliveryInstructions = *in.DeliveryInstructions
	}
	if in.DeliveryDate != nil {
		if !in.DeliveryDate.After(s.now()) {
			return nil, fmt.Errorf("delivery date must be in the future: %w", domain.ErrValidation)
		}
		order.DeliveryDate = in.DeliveryDate
	}
	if in.DeliveryStatus != nil {
		switch *in.DeliveryStatus {
		case domain.DeliveryScheduled, domain.DeliveryInTransit, domain.DeliveryDelivered:
		default:
			return nil, fmt.Errorf("unknown delivery status %q: %w", *in.DeliveryStatus, domain.ErrValidation)
		}
		statusChanged = order.DeliveryStatus != *in.DeliveryStatus
		order.DeliveryStatus = *in.DeliveryStatus
	}

	if err := s.orders.UpdateDelivery(ctx, order); err != nil {
		return nil, err
	}

	if statusChanged {
		if err := s.notifications.CreateNotification(ctx, order.BuyerID, "order.delivery-status", map[string]interface{}{
			"order_id":        order.ID,
			"delivery_status": string(order.DeliveryStatus),
		}); err != nil {
			s.log.Error("Failed to notify buyer", "order_id", order.ID, "error", err)
		}
	}

	return s.orders.GetOrder(ctx, orderID)
}
