package notifications

import (
	"context"
	"log"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cross-instance presence lives in Redis: a shared online set plus one
// expiring last-seen key per member. A member counts as online if any API
// instance holds a live socket for them.
const (
	presenceOnlineSet   = "campusfind:presence:online"
	presenceSeenPrefix  = "campusfind:presence:seen:"
	presenceSeenTTL     = 90 * time.Second
	presenceOfflineLag  = 5 * time.Second
	presenceSweepPeriod = time.Minute
)

// presenceTracker mirrors socket liveness into Redis and fires online/offline
// callbacks. Offline is debounced so a page reload does not flap presence.
type presenceTracker struct {
	rdb *redis.Client

	mu          sync.RWMutex
	sockets     map[uint]int         // live local sockets per member
	pendingOff  map[uint]*time.Timer // debounce timers for offline
	wentOffline map[uint]bool        // offline already emitted for this absence

	seenTTL    time.Duration
	offlineLag time.Duration
	sweepEvery time.Duration

	onOnline  func(userID uint)
	onOffline func(userID uint)

	closeOnce sync.Once
	closed    chan struct{}
}

func newPresenceTracker(rdb *redis.Client) *presenceTracker {
	p := &presenceTracker{
		rdb:         rdb,
		sockets:     make(map[uint]int),
		pendingOff:  make(map[uint]*time.Timer),
		wentOffline: make(map[uint]bool),
		seenTTL:     presenceSeenTTL,
		offlineLag:  presenceOfflineLag,
		sweepEvery:  presenceSweepPeriod,
		closed:      make(chan struct{}),
	}
	if p.rdb != nil {
		go p.sweepLoop()
	}
	return p
}

func (p *presenceTracker) setCallbacks(onOnline, onOffline func(userID uint)) {
	p.mu.Lock()
	p.onOnline = onOnline
	p.onOffline = onOffline
	p.mu.Unlock()
}

// setOfflineLag shortens the debounce window; tests use this.
func (p *presenceTracker) setOfflineLag(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.offlineLag = d
	p.mu.Unlock()
}

func (p *presenceTracker) close() {
	p.closeOnce.Do(func() {
		close(p.closed)
		p.mu.Lock()
		for userID, timer := range p.pendingOff {
			timer.Stop()
			delete(p.pendingOff, userID)
		}
		p.mu.Unlock()
	})
}

// connected records a new socket. The first socket for an absent member
// emits the online callback; reconnecting inside the debounce window
// cancels the pending offline instead.
func (p *presenceTracker) connected(ctx context.Context, userID uint) {
	wasOnline := p.online(ctx, userID)

	p.mu.Lock()
	if timer, ok := p.pendingOff[userID]; ok {
		timer.Stop()
		delete(p.pendingOff, userID)
	}
	p.sockets[userID]++
	p.wentOffline[userID] = false
	p.mu.Unlock()

	p.heartbeat(ctx, userID)
	if !wasOnline {
		p.emitOnline(userID)
	}
}

// disconnected drops one socket. When the last one goes, offline is emitted
// after the debounce lag unless the member reconnects first.
func (p *presenceTracker) disconnected(userID uint) {
	p.mu.Lock()
	if n, ok := p.sockets[userID]; ok {
		n--
		if n > 0 {
			p.sockets[userID] = n
			p.mu.Unlock()
			return
		}
		delete(p.sockets, userID)
	}

	if timer, ok := p.pendingOff[userID]; ok {
		timer.Stop()
	}
	p.pendingOff[userID] = time.AfterFunc(p.offlineLag, func() {
		p.settleOffline(context.Background(), userID)
	})
	p.mu.Unlock()
}

// heartbeat refreshes the member's Redis presence; called on connect and on
// every sign of life from the socket.
func (p *presenceTracker) heartbeat(ctx context.Context, userID uint) {
	if p.rdb == nil {
		return
	}
	member := strconv.FormatUint(uint64(userID), 10)
	if err := p.rdb.SAdd(ctx, presenceOnlineSet, member).Err(); err != nil {
		log.Printf("presence heartbeat SADD failed for user %d: %v", userID, err)
	}
	stamp := strconv.FormatInt(time.Now().Unix(), 10)
	if err := p.rdb.SetEx(ctx, seenKey(userID), stamp, p.seenTTL).Err(); err != nil {
		log.Printf("presence heartbeat SETEX failed for user %d: %v", userID, err)
	}
}

// online checks local sockets first, then the shared Redis last-seen key so
// presence holds across instances.
func (p *presenceTracker) online(ctx context.Context, userID uint) bool {
	p.mu.RLock()
	local := p.sockets[userID] > 0
	p.mu.RUnlock()
	if local {
		return true
	}
	if p.rdb == nil {
		return false
	}
	exists, err := p.rdb.Exists(ctx, seenKey(userID)).Result()
	return err == nil && exists > 0
}

// sweepOnce removes online-set members whose last-seen key has expired and
// emits offline for any that have no local socket either.
func (p *presenceTracker) sweepOnce(ctx context.Context) {
	if p.rdb == nil {
		return
	}
	members, err := p.rdb.SMembers(ctx, presenceOnlineSet).Result()
	if err != nil {
		return
	}
	for _, raw := range members {
		id64, err := strconv.ParseUint(raw, 10, 32)
		if err != nil {
			continue
		}
		userID := uint(id64)
		exists, err := p.rdb.Exists(ctx, seenKey(userID)).Result()
		if err != nil || exists > 0 {
			continue
		}
		_ = p.rdb.SRem(ctx, presenceOnlineSet, raw).Err()

		p.mu.RLock()
		hasLocal := p.sockets[userID] > 0
		p.mu.RUnlock()
		if !hasLocal {
			p.emitOffline(userID)
		}
	}
}

func (p *presenceTracker) sweepLoop() {
	ticker := time.NewTicker(p.sweepEvery)
	defer ticker.Stop()
	for {
		select {
		case <-p.closed:
			return
		case <-ticker.C:
			p.sweepOnce(context.Background())
		}
	}
}

// settleOffline runs when the debounce timer fires. A reconnect on this
// instance or a fresh heartbeat from another one keeps the member online.
func (p *presenceTracker) settleOffline(ctx context.Context, userID uint) {
	p.mu.Lock()
	delete(p.pendingOff, userID)
	if p.sockets[userID] > 0 {
		p.mu.Unlock()
		return
	}
	p.mu.Unlock()

	if p.rdb != nil {
		exists, err := p.rdb.Exists(ctx, seenKey(userID)).Result()
		if err == nil && exists > 0 {
			return
		}
		_ = p.rdb.SRem(ctx, presenceOnlineSet, strconv.FormatUint(uint64(userID), 10)).Err()
	}

	p.emitOffline(userID)
}

func (p *presenceTracker) emitOnline(userID uint) {
	p.mu.Lock()
	p.wentOffline[userID] = false
	cb := p.onOnline
	p.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

// emitOffline fires at most once per absence; connected resets the latch.
func (p *presenceTracker) emitOffline(userID uint) {
	p.mu.Lock()
	if p.wentOffline[userID] {
		p.mu.Unlock()
		return
	}
	p.wentOffline[userID] = true
	cb := p.onOffline
	p.mu.Unlock()
	if cb != nil {
		cb(userID)
	}
}

func seenKey(userID uint) string {
	return presenceSeenPrefix + strconv.FormatUint(uint64(userID), 10)
}
