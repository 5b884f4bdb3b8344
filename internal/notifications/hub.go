package notifications

import (
	"context"
	"errors"
	"log"
	"sync"

	"campusfind/internal/observability"

	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
)

// Connection ceilings. A member gets a handful of tabs; the total bound
// protects the instance from socket exhaustion.
const (
	maxSocketsPerUser = 12
	maxSocketsTotal   = 10000
)

// Hub routes notification payloads to every open socket a member has on this
// instance and keeps cross-instance presence through the tracker.
type Hub struct {
	mu       sync.RWMutex
	sockets  map[uint]map[*Client]struct{}
	total    int
	shutdown chan struct{}
	done     chan struct{}
	presence *presenceTracker
}

// NewHub creates a hub. Passing a Redis client enables shared presence and
// cross-instance delivery; without one the hub serves local sockets only.
func NewHub(redisClients ...*redis.Client) *Hub {
	var rdb *redis.Client
	if len(redisClients) > 0 {
		rdb = redisClients[0]
	}
	return &Hub{
		sockets:  make(map[uint]map[*Client]struct{}),
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		presence: newPresenceTracker(rdb),
	}
}

// Name identifies this hub in logs and metrics labels.
func (h *Hub) Name() string { return "notification hub" }

// Register attaches a socket for a member, enforcing both ceilings.
func (h *Hub) Register(userID uint, conn *websocket.Conn) (*Client, error) {
	h.mu.Lock()

	if h.total >= maxSocketsTotal {
		h.mu.Unlock()
		return nil, errors.New("server connection limit reached")
	}

	userSockets, ok := h.sockets[userID]
	if !ok {
		userSockets = make(map[*Client]struct{})
		h.sockets[userID] = userSockets
	}
	if len(userSockets) >= maxSocketsPerUser {
		h.mu.Unlock()
		return nil, errors.New("user connection limit reached")
	}

	client := NewClient(h, conn, userID)
	client.OnActivity = func(uid uint) {
		h.presence.heartbeat(context.Background(), uid)
	}

	userSockets[client] = struct{}{}
	h.total++
	h.mu.Unlock()

	observability.WebSocketConnectionsTotal.Inc()
	h.presence.connected(context.Background(), userID)

	return client, nil
}

// UnregisterClient detaches a socket and lets presence debounce the offline.
func (h *Hub) UnregisterClient(client *Client) {
	h.mu.Lock()
	removed := false
	if userSockets, ok := h.sockets[client.UserID]; ok {
		if _, exists := userSockets[client]; exists {
			delete(userSockets, client)
			h.total--
			removed = true
		}
		if len(userSockets) == 0 {
			delete(h.sockets, client.UserID)
		}
	}
	h.mu.Unlock()

	if removed {
		observability.WebSocketConnectionsTotal.Dec()
		h.presence.disconnected(client.UserID)
	}
}

// SetPresenceCallbacks wires online/offline hooks, e.g. for marking contact
// threads as deliverable.
func (h *Hub) SetPresenceCallbacks(onOnline, onOffline func(userID uint)) {
	h.presence.setCallbacks(onOnline, onOffline)
}

// IsOnline reports member presence across all instances.
func (h *Hub) IsOnline(userID uint) bool {
	return h.presence.online(context.Background(), userID)
}

// Broadcast sends a payload to every socket one member has here.
func (h *Hub) Broadcast(userID uint, message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for client := range h.sockets[userID] {
		client.TrySend(data)
	}
}

// BroadcastAll sends a payload to every connected socket on this instance.
func (h *Hub) BroadcastAll(message string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	data := []byte(message)
	for _, userSockets := range h.sockets {
		for client := range userSockets {
			client.TrySend(data)
		}
	}
}

// StartWiring subscribes the hub to the notifier's Redis channels so events
// published by any instance reach sockets held here.
func (h *Hub) StartWiring(ctx context.Context, n *Notifier) error {
	return n.StartPatternSubscriber(ctx, func(channel, payload string) {
		if channel == broadcastChannel {
			h.BroadcastAll(payload)
			return
		}
		userID, ok := userIDFromChannel(channel)
		if !ok {
			log.Printf("notification on unrecognized channel: %s", channel)
			return
		}
		h.Broadcast(userID, payload)
	})
}

// Shutdown closes every socket with a going-away frame and stops presence.
func (h *Hub) Shutdown(_ context.Context) error {
	close(h.shutdown)
	h.presence.close()

	h.mu.Lock()
	for userID, userSockets := range h.sockets {
		for client := range userSockets {
			if client.Conn == nil {
				continue
			}
			closeFrame := websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down")
			if err := client.Conn.WriteMessage(websocket.CloseMessage, closeFrame); err != nil {
				log.Printf("failed to write close frame for user %d: %v", userID, err)
			}
			if err := client.Conn.Close(); err != nil {
				log.Printf("failed to close websocket for user %d: %v", userID, err)
			}
		}
	}
	h.sockets = make(map[uint]map[*Client]struct{})
	h.mu.Unlock()

	close(h.done)
	return nil
}
