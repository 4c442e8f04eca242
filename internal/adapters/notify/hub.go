package notify

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"volunteerhub/internal/domain"
)

// Hub is an in-process, best-effort implementation of the change-notification
// fan-out. Subscribers receive ChangeEvent envelopes and are expected to
// refetch; delivery gives no ordering or completeness guarantee, and slow
// subscribers are dropped rather than blocking Broadcast.
type Hub struct {
	logger *slog.Logger

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

type subscriber struct {
	// opportunityID filters delivery; empty means all opportunities.
	opportunityID string
	send          chan domain.ChangeEvent
}

const subscriberBuffer = 16

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		logger: logger,
		subs:   make(map[*subscriber]struct{}),
	}
}

// Broadcast fans the event out to matching subscribers without blocking.
func (h *Hub) Broadcast(event domain.ChangeEvent) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for sub := range h.subs {
		if sub.opportunityID != "" && sub.opportunityID != event.OpportunityID {
			continue
		}
		select {
		case sub.send <- event:
		default:
			// Subscriber is not keeping up; drop it. It can reconnect and
			// refetch.
			close(sub.send)
			delete(h.subs, sub)
		}
	}
}

func (h *Hub) subscribe(opportunityID string) *subscriber {
	sub := &subscriber{
		opportunityID: opportunityID,
		send:          make(chan domain.ChangeEvent, subscriberBuffer),
	}
	h.mu.Lock()
	h.subs[sub] = struct{}{}
	h.mu.Unlock()
	return sub
}

func (h *Hub) unsubscribe(sub *subscriber) {
	h.mu.Lock()
	if _, ok := h.subs[sub]; ok {
		delete(h.subs, sub)
		close(sub.send)
	}
	h.mu.Unlock()
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Browser clients connect cross-origin in development; the CORS
	// middleware gates the rest of the API.
	CheckOrigin: func(r *http.Request) bool { return true },
}

const writeTimeout = 10 * time.Second

// ServeWS upgrades the request to a websocket and streams change events until
// the client disconnects. An optional opportunity_id query parameter narrows
// the subscription to one opportunity.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "err", err)
		return
	}
	sub := h.subscribe(r.URL.Query().Get("opportunity_id"))
	defer h.unsubscribe(sub)

	// Drain client frames so pings and close messages are processed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	defer conn.Close()
	for {
		select {
		case event, ok := <-sub.send:
			if !ok {
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(event); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
