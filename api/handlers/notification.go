package handlers

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/api"
	"github.com/linesmerrill/legal-case-api/config"
	"github.com/linesmerrill/legal-case-api/listing"
	"github.com/linesmerrill/legal-case-api/models"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10
	// eventBuffer is how many events a slow subscriber may fall behind before
	// further events are dropped for it
	eventBuffer = 16
)

// EventHub fans case change events out to websocket subscribers
type EventHub struct {
	upgrader websocket.Upgrader

	mu      sync.Mutex
	clients map[*eventClient]struct{}
	closed  bool
}

type eventClient struct {
	send chan models.CaseEvent
}

// NewEventHub returns a hub accepting websocket connections from allowedOrigin,
// or from anywhere when it is "*" or empty
func NewEventHub(allowedOrigin string) *EventHub {
	return &EventHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return allowedOrigin == "" || allowedOrigin == "*" || origin == "" || origin == allowedOrigin
			},
		},
		clients: make(map[*eventClient]struct{}),
	}
}

// Publish sends e to every subscriber without blocking. A nil hub drops it.
func (h *EventHub) Publish(e models.CaseEvent) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	for cl := range h.clients {
		select {
		case cl.send <- e:
		default:
			zap.S().Warnw("dropping case event for slow subscriber", "type", e.Type, "case_id", e.CaseID)
		}
	}
}

// Subscribers reports how many websocket clients are connected
func (h *EventHub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Close disconnects every subscriber and refuses new ones
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	for cl := range h.clients {
		delete(h.clients, cl)
		close(cl.send)
	}
}

func (h *EventHub) register() *eventClient {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	cl := &eventClient{send: make(chan models.CaseEvent, eventBuffer)}
	h.clients[cl] = struct{}{}
	return cl
}

func (h *EventHub) unregister(cl *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[cl]; ok {
		delete(h.clients, cl)
		close(cl.send)
	}
}

// EventsHandler upgrades the request to a websocket and streams case events as
// JSON text frames until either side closes
func (h *EventHub) EventsHandler(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		zap.S().Warnw("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	cl := h.register()
	if cl == nil {
		_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
		return
	}
	defer h.unregister(cl)
	zap.S().Debugw("case event subscriber connected", "remote", r.RemoteAddr)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case e, ok := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, ""))
				return
			}
			if err := conn.WriteJSON(e); err != nil {
				return
			}
		case <-ticker.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			zap.S().Debugw("case event subscriber disconnected", "remote", r.RemoteAddr)
			return
		}
	}
}

// UpcomingHearingsHandler returns alerts for hearings due within the next two days
func (c Case) UpcomingHearingsHandler(w http.ResponseWriter, r *http.Request) {
	now := c.now()

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	dbResp, err := c.DB.Find(ctx, bson.M{"clientDetails.hearingDate": bson.M{
		"$gte": now,
		"$lte": now.Add(listing.AlertWindow),
	}})
	if err != nil {
		config.ErrorStatus("failed to get upcoming hearings", http.StatusInternalServerError, w, err)
		return
	}

	alerts := listing.UpcomingHearings(dbResp, now)
	if alerts == nil {
		alerts = []models.HearingAlert{}
	}
	writeJSON(w, http.StatusOK, alerts)
}
