package grpc

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

const limiterCleanupInterval = 5 * time.Minute

type peerEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// peerLimiter keeps one token bucket per remote host. A zero limit disables
// limiting.
type peerLimiter struct {
	limit rate.Limit
	burst int

	mu    sync.Mutex
	peers map[string]*peerEntry
}

func newPeerLimiter(limit rate.Limit, burst int) *peerLimiter {
	if burst <= 0 {
		burst = 1
	}
	return &peerLimiter{limit: limit, burst: burst, peers: make(map[string]*peerEntry)}
}

func (l *peerLimiter) allow(key string) bool {
	if l.limit <= 0 {
		return true
	}

	l.mu.Lock()
	e, ok := l.peers[key]
	if !ok {
		e = &peerEntry{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.peers[key] = e
	}
	e.lastAccess = time.Now()
	l.mu.Unlock()

	return e.limiter.Allow()
}

// start launches the idle-entry cleanup and returns its stop func.
func (l *peerLimiter) start() func() {
	stop := make(chan struct{})
	go func() {
		ticker := time.NewTicker(limiterCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.cleanup(2 * limiterCleanupInterval)
			case <-stop:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(stop) }) }
}

func (l *peerLimiter) cleanup(ttl time.Duration) {
	now := time.Now()

	l.mu.Lock()
	defer l.mu.Unlock()

	for k, e := range l.peers {
		if now.Sub(e.lastAccess) > ttl {
			delete(l.peers, k)
		}
	}
}

func (l *peerLimiter) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.peers)
}
