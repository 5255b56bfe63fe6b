package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/lingopeer/lingopeer/internal/models"
)

// NotifyHub pushes friend events to connected clients. It implements the
// friends.EventPublisher contract, so the state machine fans committed
// mutations out to it alongside the Redis queue.
type NotifyHub struct {
	mu    sync.Mutex
	conns map[uuid.UUID]map[*websocket.Conn]struct{}
	log   *logrus.Logger
}

func NewNotifyHub(logger *logrus.Logger) *NotifyHub {
	return &NotifyHub{
		conns: make(map[uuid.UUID]map[*websocket.Conn]struct{}),
		log:   logger,
	}
}

func (h *NotifyHub) add(user uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[user] == nil {
		h.conns[user] = make(map[*websocket.Conn]struct{})
	}
	h.conns[user][c] = struct{}{}
}

func (h *NotifyHub) remove(user uuid.UUID, c *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns[user], c)
	if len(h.conns[user]) == 0 {
		delete(h.conns, user)
	}
}

// Publish delivers the event to the counterpart user's open connections.
// A user with no open connection simply misses the live push; the
// persisted notification feed has the durable copy.
func (h *NotifyHub) Publish(ctx context.Context, ev models.FriendEvent) error {
	target := ev.Notify()
	if target == uuid.Nil {
		return nil
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		return err
	}

	h.mu.Lock()
	conns := make([]*websocket.Conn, 0, len(h.conns[target]))
	for c := range h.conns[target] {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		err := c.Write(writeCtx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			h.log.Warnf("notify write failed for user %v: %v", target, err)
		}
	}
	return nil
}

// NotificationsWSHandler upgrades the connection and parks it in the hub
// until the client goes away. Clients only listen; inbound frames are
// drained and discarded.
func NotificationsWSHandler(logger *logrus.Logger, hub *NotifyHub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID, err := authedUserID(r)
		if err != nil {
			http.Error(w, "invalid or missing auth_token", http.StatusUnauthorized)
			return
		}

		c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			Subprotocols:   []string{"notifications"},
			OriginPatterns: []string{"*"}, // Adjust in production
		})
		if err != nil {
			logger.Warnf("websocket accept error: %v", err)
			return
		}
		defer c.Close(websocket.StatusInternalError, "handler finished")

		if c.Subprotocol() != "notifications" {
			c.Close(websocket.StatusPolicyViolation, "client must speak the notifications subprotocol")
			return
		}

		hub.add(userID, c)
		defer hub.remove(userID, c)
		logger.WithFields(logrus.Fields{
			"user":   userID,
			"remote": r.RemoteAddr,
		}).Info("notification client connected")

		ctx := r.Context()
		for {
			if _, _, err := c.Read(ctx); err != nil {
				logger.WithFields(logrus.Fields{"user": userID}).Info("notification client disconnected")
				c.Close(websocket.StatusNormalClosure, "bye")
				return
			}
		}
	}
}
