package services

import (
	"context"
	"fmt"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"
)

// EventListener turns published engine events into websocket fanout. The
// broadcast stream is raw: every watcher of an auction receives every event,
// including the bidder who caused it; polling clients dedupe against the
// latest bid id they have already seen.
type EventListener struct {
	broadcaster domain.AuctionBroadcaster
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewEventListener(broadcaster domain.AuctionBroadcaster,
	connManager domain.ConnectionManager, log logger.Logger) *EventListener {
	return &EventListener{
		broadcaster: broadcaster,
		connManager: connManager,
		log:         log,
	}
}

func (el *EventListener) Start(ctx context.Context, subscriber domain.EventSubscriber) error {
	el.log.Info("Starting event listener")
	return subscriber.SubscribeToAuctionEvents(ctx, el.handleEvent)
}

func (el *EventListener) handleEvent(event *domain.AuctionEvent) error {
	el.log.Debug("Handling auction event", "kind", event.Kind, "auction_id", event.AuctionID)

	switch event.Kind {
	case domain.EventBidPlaced:
		return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
			"type":       string(domain.EventBidPlaced),
			"auction_id": event.AuctionID,
			"bidder_id":  event.BidderID,
			"amount":     event.Amount,
			"timestamp":  event.Timestamp,
		})

	case domain.EventStatusChanged:
		return el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
			"type":       string(domain.EventStatusChanged),
			"auction_id": event.AuctionID,
			"status":     event.Status,
			"timestamp":  event.Timestamp,
		})

	case domain.EventAuctionEnded:
		if err := el.broadcaster.BroadcastToAuction(context.Background(), event.AuctionID, map[string]interface{}{
			"type":        string(domain.EventAuctionEnded),
			"auction_id":  event.AuctionID,
			"winner_id":   event.WinnerID,
			"final_price": event.Amount,
			"timestamp":   event.Timestamp,
		}); err != nil {
			el.log.Error("Failed to broadcast auction ended", "auction_id", event.AuctionID, "error", err)
			return err
		}
		return el.connManager.CloseAndUnregisterConnections(event.AuctionID)
	}

	return fmt.Errorf("unknown event kind %q", event.Kind)
}
