package websocket

import (
	"net/http"
	"sync"

	"auction-engine/internal/domain"
	"auction-engine/pkg/logger"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

// Handler upgrades realtime subscriptions for one auction. Bids go through
// the HTTP API so the record store commits before any fanout; the socket
// only carries events outward plus client keepalives inward.
type Handler struct {
	stateCache  domain.AuctionStateCache
	auctionRepo domain.AuctionRepository
	connManager domain.ConnectionManager
	log         logger.Logger
}

func NewHandler(stateCache domain.AuctionStateCache, auctionRepo domain.AuctionRepository,
	connManager domain.ConnectionManager, log logger.Logger) *Handler {
	return &Handler{
		stateCache:  stateCache,
		auctionRepo: auctionRepo,
		connManager: connManager,
		log:         log,
	}
}

// Router returns the mux router exposing the subscription endpoint.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/ws/auctions/{auctionID}", h.HandleConnection)
	return r
}

func (h *Handler) HandleConnection(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	auctionID := vars["auctionID"]

	userID := r.URL.Query().Get("user_id")
	if userID == "" {
		http.Error(w, "user_id required", http.StatusBadRequest)
		return
	}

	// Cheap admission check against the cache; on a miss fall back to the
	// record store.
	status, err := h.stateCache.GetAuctionStatus(r.Context(), auctionID)
	if err != nil || status == domain.AuctionPending {
		auction, err := h.auctionRepo.GetAuction(r.Context(), auctionID)
		if err != nil {
			h.log.Error("Failed to find auction", "auction_id", auctionID, "error", err)
			http.Error(w, "auction not found", http.StatusNotFound)
			return
		}
		status = auction.Status
	}

	if status == domain.AuctionEnded || status == domain.AuctionCancelled {
		h.log.Info("Rejected connection - auction is over", "auction_id", auctionID)
		http.Error(w, "auction is over", http.StatusForbidden)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	wsConn := NewConnection(conn, userID, auctionID)

	if err := h.connManager.RegisterConnection(userID, auctionID, wsConn); err != nil {
		h.log.Error("Failed to register connection", "error", err)
		conn.Close()
		return
	}

	go h.readLoop(wsConn, userID, auctionID)
}

func (h *Handler) readLoop(conn *Connection, userID, auctionID string) {
	defer func() {
		h.connManager.UnregisterConnection(userID, auctionID)
		conn.Close()
	}()

	for {
		var msg map[string]interface{}
		if err := conn.conn.ReadJSON(&msg); err != nil {
			return
		}

		msgType, ok := msg["type"].(string)
		if !ok {
			continue
		}

		if msgType == "ping" {
			if err := conn.Send(map[string]string{"type": "pong"}); err != nil {
				return
			}
		}
	}
}

// Connection wraps a gorilla websocket with its subscription identity.
type Connection struct {
	conn      *websocket.Conn
	userID    string
	auctionID string
	writeMu   sync.Mutex
}

func NewConnection(conn *websocket.Conn, userID, auctionID string) *Connection {
	return &Connection{
		conn:      conn,
		userID:    userID,
		auctionID: auctionID,
	}
}

func (c *Connection) Send(message interface{}) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	return c.conn.WriteJSON(message)
}

func (c *Connection) Close() error {
	return c.conn.Close()
}

func (c *Connection) UserID() string {
	return c.userID
}

func (c *Connection) AuctionID() string {
	return c.auctionID
}
