// Package notifications delivers lost-and-found events to members in real
// time: moderation outcomes, likes, shares, and contact-thread replies.
package notifications

import (
	"context"
	"log"
	"runtime/debug"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
)

// Redis pub/sub channels. Per-user channels carry moderation and contact
// events; the broadcast channel carries site-wide announcements.
const (
	userChannelPrefix = "campusfind:notify:user:"
	broadcastChannel  = "campusfind:notify:all"
)

// UserChannel derives the pub/sub channel for one member.
func UserChannel(userID uint) string {
	return userChannelPrefix + strconv.FormatUint(uint64(userID), 10)
}

// userIDFromChannel extracts the member ID from a per-user channel name.
func userIDFromChannel(channel string) (uint, bool) {
	raw, ok := strings.CutPrefix(channel, userChannelPrefix)
	if !ok {
		return 0, false
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(id), true
}

// Notifier publishes notification payloads into Redis channels. A nil Redis
// client turns every method into a no-op so single-process deployments and
// tests work without Redis.
type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// PublishUser pushes a payload onto one member's channel.
func (n *Notifier) PublishUser(ctx context.Context, userID uint, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, UserChannel(userID), payload).Err()
}

// PublishBroadcast pushes a payload to every connected member.
func (n *Notifier) PublishBroadcast(ctx context.Context, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, broadcastChannel, payload).Err()
}

// StartPatternSubscriber subscribes to all notification channels and invokes
// onMessage for each delivery until ctx is cancelled. A panicking handler is
// logged and the subscription keeps running.
func (n *Notifier) StartPatternSubscriber(
	ctx context.Context, onMessage func(channel string, payload string),
) error {
	if n.rdb == nil {
		return nil
	}
	sub := n.rdb.PSubscribe(ctx, userChannelPrefix+"*", broadcastChannel)
	deliveries := sub.Channel()

	go func() {
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-deliveries:
				if !ok {
					return
				}
				safeInvoke(onMessage, msg.Channel, msg.Payload)
			}
		}
	}()

	return nil
}

func safeInvoke(fn func(channel, payload string), channel, payload string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("notification handler panicked on %s: %v\n%s", channel, r, debug.Stack())
		}
	}()
	fn(channel, payload)
}
