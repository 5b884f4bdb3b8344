package server

import (
	"context"
	"encoding/json"
	"log/slog"

	"campusfind/internal/middleware"
)

// publishBroadcastEvent fans an announcement out to every connected member,
// on this instance through the hub and to peer instances through Redis.
func (s *Server) publishBroadcastEvent(eventType string, payload map[string]interface{}) {
	raw, err := json.Marshal(map[string]interface{}{
		"type":    eventType,
		"payload": payload,
	})
	if err != nil {
		middleware.Logger.Error("Marshal broadcast event failed",
			slog.String("event", eventType), slog.String("error", err.Error()))
		return
	}

	message := string(raw)
	if s.hub != nil {
		s.hub.BroadcastAll(message)
	}
	if s.notifier == nil {
		return
	}
	if err := s.notifier.PublishBroadcast(context.Background(), message); err != nil {
		middleware.Logger.Error("Publish broadcast event failed",
			slog.String("event", eventType), slog.String("error", err.Error()))
	}
}
