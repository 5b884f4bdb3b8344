package notifications

import (
	"log"
	"time"

	"campusfind/internal/observability"

	"github.com/gofiber/websocket/v2"
)

const (
	// writeTimeout bounds a single frame write to the peer.
	writeTimeout = 10 * time.Second
	// pongTimeout is how long a silent peer stays considered alive.
	pongTimeout = 60 * time.Second
	// pingEvery must be shorter than pongTimeout.
	pingEvery = (pongTimeout * 9) / 10
	// maxInboundBytes caps inbound frames; notification sockets are
	// almost entirely server-to-client.
	maxInboundBytes = 16384

	sendBufferSize = 256
)

// WSHub is the hub surface a Client needs for detaching itself.
type WSHub interface {
	UnregisterClient(c *Client)
	Name() string
}

// Client owns one websocket and pumps frames between it and the hub.
type Client struct {
	Hub  WSHub
	Conn *websocket.Conn

	// Send carries outbound payloads; writes go through TrySend.
	Send chan []byte

	UserID uint

	// IncomingHandler receives inbound frames, when the endpoint wants any.
	IncomingHandler func(*Client, []byte)

	// OnActivity fires on any sign of life from the peer (pong or inbound
	// frame) so presence can refresh its last-seen TTL.
	OnActivity func(userID uint)
}

func NewClient(hub WSHub, conn *websocket.Conn, userID uint) *Client {
	return &Client{
		Hub:    hub,
		Conn:   conn,
		UserID: userID,
		Send:   make(chan []byte, sendBufferSize),
	}
}

// ReadPump consumes inbound frames until the socket dies, then detaches the
// client from the hub.
func (c *Client) ReadPump() {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	c.Conn.SetReadLimit(maxInboundBytes)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.Conn.SetPongHandler(func(string) error {
		_ = c.Conn.SetReadDeadline(time.Now().Add(pongTimeout))
		c.signalActivity()
		return nil
	})

	for {
		_, frame, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("read pump error (user %d): %v", c.UserID, err)
			}
			return
		}
		c.signalActivity()
		if c.IncomingHandler != nil {
			c.IncomingHandler(c, frame)
		}
	}
}

// WritePump drains the send buffer to the socket and keeps the peer alive
// with periodic pings.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingEvery)
	defer func() {
		ticker.Stop()
		_ = c.Conn.Close()
	}()

	for {
		select {
		case payload, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if !ok {
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.Conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// TrySend enqueues a payload without ever blocking delivery of other
// members' notifications. On a full buffer the payload is dropped and the
// client is told, so the frontend can re-fetch its notification list.
func (c *Client) TrySend(payload []byte) {
	defer func() {
		if r := recover(); r != nil {
			observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "closed").Inc()
		}
	}()

	select {
	case c.Send <- payload:
	default:
		observability.WebSocketBackpressureDrops.WithLabelValues(c.Hub.Name(), "full").Inc()
		log.Printf("client %d (%s): send buffer full, payload dropped", c.UserID, c.Hub.Name())

		gapNotice := []byte(`{"type":"notifications_dropped","payload":{"reason":"buffer_full"}}`)
		select {
		case c.Send <- gapNotice:
		default:
		}
	}
}

func (c *Client) signalActivity() {
	if c.OnActivity != nil {
		c.OnActivity(c.UserID)
	}
}
