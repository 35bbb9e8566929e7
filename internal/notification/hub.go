// internal/notification/hub.go
// In-process websocket hub with an optional Redis fan-in so every
// instance delivers notifications published by any other instance.

package notification

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/websocket"
)

const channelPattern = "notifications:user:*"

// Hub tracks open websocket connections per user
type Hub struct {
	mu    sync.RWMutex
	conns map[int64]map[*websocket.Conn]struct{}
}

// NewHub creates an empty hub
func NewHub() *Hub {
	return &Hub{conns: make(map[int64]map[*websocket.Conn]struct{})}
}

// Register adds a connection for a user
func (h *Hub) Register(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.conns[userID] == nil {
		h.conns[userID] = make(map[*websocket.Conn]struct{})
	}
	h.conns[userID][conn] = struct{}{}
}

// Unregister removes a connection for a user
func (h *Hub) Unregister(userID int64, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if set, ok := h.conns[userID]; ok {
		delete(set, conn)
		if len(set) == 0 {
			delete(h.conns, userID)
		}
	}
}

// Broadcast sends a payload to every open connection of a user.
// Connections that fail to write are dropped.
func (h *Hub) Broadcast(userID int64, payload []byte) {
	h.mu.RLock()
	conns := make([]*websocket.Conn, 0, len(h.conns[userID]))
	for conn := range h.conns[userID] {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			conn.Close()
			h.Unregister(userID, conn)
		}
	}
}

// RunRedisSubscriber feeds notifications published on other instances
// into this hub until the context is cancelled.
func (h *Hub) RunRedisSubscriber(ctx context.Context, client *redis.Client) {
	pubsub := client.PSubscribe(ctx, channelPattern)
	defer pubsub.Close()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-pubsub.Channel():
			if !ok {
				return
			}
			userID, err := parseChannelUserID(msg.Channel)
			if err != nil {
				log.Printf("ignoring notification on channel %s: %v", msg.Channel, err)
				continue
			}
			h.Broadcast(userID, []byte(msg.Payload))
		}
	}
}

func parseChannelUserID(channel string) (int64, error) {
	var userID int64
	if _, err := fmt.Sscanf(channel, "notifications:user:%d", &userID); err != nil {
		return 0, err
	}
	return userID, nil
}
