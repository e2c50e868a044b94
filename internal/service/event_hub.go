package service

import (
	"context"
	"credlyse_backend/internal/model"
	"credlyse_backend/pkg/logger"
	"credlyse_backend/pkg/monitoring"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 64
)

const (
	EventAnalysisFinished  = "ANALYSIS_FINISHED"
	EventCertificateIssued = "CERTIFICATE_ISSUED"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type Event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// EventPublisher pushes an event to every live connection of a user.
type EventPublisher interface {
	Publish(userID uint, event Event)
}

type eventClient struct {
	hub    *EventHub
	conn   *websocket.Conn
	send   chan []byte
	userID uint
}

// readPump only keeps the read deadline moving; clients have nothing to say.
func (c *eventClient) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error { c.conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				logger.Log.Warn("WebSocket unexpected close", zap.Error(err), zap.Uint("user_id", c.userID))
			}
			return
		}
	}
}

func (c *eventClient) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()
	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// EventHub fans server events out to the websocket connections of each user.
// A user may hold several connections (one per open tab or extension page).
type EventHub struct {
	mu      sync.RWMutex
	clients map[uint]map[*eventClient]struct{}
}

func NewEventHub() *EventHub {
	return &EventHub{clients: make(map[uint]map[*eventClient]struct{})}
}

func (h *EventHub) register(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.clients[c.userID]
	if !ok {
		set = make(map[*eventClient]struct{})
		h.clients[c.userID] = set
	}
	set[c] = struct{}{}
	monitoring.EventConnections.Inc()
}

func (h *EventHub) unregister(c *eventClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(c)
}

func (h *EventHub) removeLocked(c *eventClient) {
	set, ok := h.clients[c.userID]
	if !ok {
		return
	}
	if _, ok := set[c]; !ok {
		return
	}
	delete(set, c)
	close(c.send)
	if len(set) == 0 {
		delete(h.clients, c.userID)
	}
	monitoring.EventConnections.Dec()
}

// Connected reports whether the user has at least one live connection.
func (h *EventHub) Connected(userID uint) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[userID]) > 0
}

// Publish never blocks; a connection whose buffer is full is dropped.
func (h *EventHub) Publish(userID uint, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("Failed to encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients[userID] {
		select {
		case c.send <- payload:
		default:
			logger.Log.Warn("Dropping slow websocket client", zap.Uint("user_id", userID))
			h.removeLocked(c)
		}
	}
	monitoring.EventsPublished.WithLabelValues(event.Type).Inc()
}

// CertificateIssued lets the hub act as a Notifier.
func (h *EventHub) CertificateIssued(_ context.Context, _ *model.User, course *model.Course, cert *model.Certificate) error {
	h.Publish(cert.UserID, Event{
		Type: EventCertificateIssued,
		Data: map[string]interface{}{
			"certificate_id": cert.ID,
			"course_id":      course.ID,
			"course_title":   course.Title,
			"artifact_url":   cert.ArtifactURL,
		},
	})
	return nil
}

// ServeWs upgrades the request and attaches the connection to userID.
func (h *EventHub) ServeWs(w http.ResponseWriter, r *http.Request, userID uint) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Log.Warn("WebSocket upgrade failed", zap.Error(err), zap.Uint("user_id", userID))
		return
	}
	client := &eventClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBuffer),
		userID: userID,
	}
	h.register(client)

	go client.writePump()
	go client.readPump()
}

// Close drops every connection.
func (h *EventHub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, set := range h.clients {
		for c := range set {
			h.removeLocked(c)
		}
	}
}

// Notifiers sends to each notifier in turn and joins their errors.
type Notifiers []Notifier

func (ns Notifiers) CertificateIssued(ctx context.Context, user *model.User, course *model.Course, cert *model.Certificate) error {
	var errs []error
	for _, n := range ns {
		if err := n.CertificateIssued(ctx, user, course, cert); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
