package notifications

import (
	"context"
	"encoding/json"
	"time"

	"campusfind/internal/models"
	"campusfind/internal/observability"
)

// Event is a single notification to deliver: persisted for offline review
// and pushed over the user's live channel when one exists.
type Event struct {
	UserID    uint   `json:"user_id"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Message   string `json:"message"`
	RelatedID uint   `json:"related_id,omitempty"`
}

// NotificationStore persists dispatched events.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
}

// Dispatcher fans a domain event out to storage and the live channel.
// Delivery is asynchronous and best-effort; callers never block on it.
type Dispatcher struct {
	store    NotificationStore
	notifier *Notifier
	// dispatchTimeout bounds each background delivery.
	dispatchTimeout time.Duration
}

// NewDispatcher creates a Dispatcher. store may be nil, in which case events
// are push-only.
func NewDispatcher(store NotificationStore, notifier *Notifier) *Dispatcher {
	return &Dispatcher{
		store:           store,
		notifier:        notifier,
		dispatchTimeout: 5 * time.Second,
	}
}

// Dispatch delivers the event in the background. The caller's transaction has
// already committed by the time this runs, so a lost notification can never
// mean a lost state change.
func (d *Dispatcher) Dispatch(ctx context.Context, event Event) {
	correlationID := observability.ExtractCorrelationID(ctx)
	if correlationID == "" {
		correlationID = observability.GenerateCorrelationID()
	}
	go func() {
		bgCtx, cancel := context.WithTimeout(context.Background(), d.dispatchTimeout)
		defer cancel()
		bgCtx = observability.WithCorrelationID(bgCtx, correlationID)

		d.deliver(bgCtx, event)
	}()
}

// DispatchSync delivers the event inline. Used by tests and by callers that
// already run on a background goroutine.
func (d *Dispatcher) DispatchSync(ctx context.Context, event Event) {
	d.deliver(ctx, event)
}

func (d *Dispatcher) deliver(ctx context.Context, event Event) {
	outcome := "delivered"

	if d.store != nil {
		record := &models.Notification{
			UserID:    event.UserID,
			Title:     event.Title,
			Message:   event.Message,
			Type:      event.Type,
			RelatedID: event.RelatedID,
		}
		if err := d.store.Create(ctx, record); err != nil {
			outcome = "store_failed"
			observability.LogAsyncOperationError(ctx, "notification_persist", err, nil)
		}
	}

	payload, err := json.Marshal(map[string]interface{}{
		"type":    event.Type,
		"payload": event,
	})
	if err == nil && d.notifier != nil {
		if err := d.notifier.PublishUser(ctx, event.UserID, string(payload)); err != nil {
			outcome = "publish_failed"
			observability.LogAsyncOperationError(ctx, "notification_publish", err, nil)
		}
	}

	observability.NotificationsEmitted.WithLabelValues(event.Type, outcome).Inc()
}
