package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"campusfind/internal/config"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTicketTestServer(t *testing.T) (*Server, *redis.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return &Server{
		config:          &config.Config{JWTSecret: "test-secret"},
		redis:           rdb,
		consumedTickets: make(map[string]consumedTicketEntry),
	}, rdb
}

func issueTicket(t *testing.T, rdb *redis.Client, ticket, userID string) {
	t.Helper()
	require.NoError(t, rdb.Set(context.Background(), "ws_ticket:"+ticket, userID, time.Minute).Err())
}

func TestAuthRequired_TicketQueryParam(t *testing.T) {
	s, rdb := newTicketTestServer(t)

	echo := func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"userID":   c.Locals("userID"),
			"wsTicket": c.Locals("wsTicket"),
		})
	}
	app := fiber.New()
	app.Get("/api/ws/notifications", s.AuthRequired(), echo)
	app.Get("/api/posts/mine", s.AuthRequired(), echo)

	ctx := context.Background()

	t.Run("WS Route Consumes From Redis But Keeps In-Process Copy", func(t *testing.T) {
		issueTicket(t, rdb, "finder-ws-1", "123")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/notifications?ticket=finder-ws-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		// GETDEL removed the key, so a stolen ticket cannot be replayed
		// from another client.
		exists, err := rdb.Exists(ctx, "ws_ticket:finder-ws-1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)

		// The handshake runs the middleware more than once, so the ticket
		// survives in the local cache.
		s.consumedTicketsMu.Lock()
		_, cached := s.consumedTickets["finder-ws-1"]
		s.consumedTicketsMu.Unlock()
		assert.True(t, cached)

		var body map[string]interface{}
		_ = json.NewDecoder(resp.Body).Decode(&body)
		assert.Equal(t, float64(123), body["userID"])
		assert.Equal(t, "finder-ws-1", body["wsTicket"])
		_ = resp.Body.Close()
	})

	t.Run("Second Handshake Pass Served From Cache", func(t *testing.T) {
		issueTicket(t, rdb, "finder-ws-2", "789")

		first, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/notifications?ticket=finder-ws-2", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, first.StatusCode)
		_ = first.Body.Close()

		second, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/notifications?ticket=finder-ws-2", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, second.StatusCode)

		var body map[string]interface{}
		_ = json.NewDecoder(second.Body).Decode(&body)
		assert.Equal(t, float64(789), body["userID"])
		_ = second.Body.Close()
	})

	t.Run("Regular Route Still Consumes The Ticket", func(t *testing.T) {
		issueTicket(t, rdb, "finder-api-1", "456")

		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/posts/mine?ticket=finder-api-1", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, resp.StatusCode)
		_ = resp.Body.Close()

		exists, err := rdb.Exists(ctx, "ws_ticket:finder-api-1").Result()
		require.NoError(t, err)
		assert.Equal(t, int64(0), exists)
	})

	t.Run("Unknown Ticket Is Rejected", func(t *testing.T) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/ws/notifications?ticket=never-issued", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		_ = resp.Body.Close()
	})
}

func TestServer_ConsumeWSTicket(t *testing.T) {
	s := &Server{consumedTickets: make(map[string]consumedTicketEntry)}
	ctx := context.Background()

	s.consumedTicketsMu.Lock()
	s.consumedTickets["upgrade-done"] = consumedTicketEntry{userID: 123, consumeAt: time.Now()}
	s.consumedTicketsMu.Unlock()

	s.consumeWSTicket(ctx, "upgrade-done")

	s.consumedTicketsMu.Lock()
	_, exists := s.consumedTickets["upgrade-done"]
	s.consumedTicketsMu.Unlock()
	assert.False(t, exists, "ticket stays consumable until the upgrade completes, then goes away")

	// Non-string and empty locals come through during failed upgrades.
	s.consumeWSTicket(ctx, nil)
	s.consumeWSTicket(ctx, "")
}
