package rate

import (
	"context"
	"math"
	"sync"
	"time"

	xrate "golang.org/x/time/rate"
)

type keyLimiter struct {
	limiter    *xrate.Limiter
	lastAccess time.Time
}

// MemoryLimiter es un token bucket por key en memoria (una sola réplica).
// Max requests por Window, con burst = Max.
type MemoryLimiter struct {
	max    int
	window time.Duration
	every  xrate.Limit

	mu   sync.Mutex
	keys map[string]*keyLimiter

	stopCh chan struct{}
	once   sync.Once
}

// NewMemoryLimiter arranca una goroutine que purga keys inactivas; llamar Stop al cerrar.
func NewMemoryLimiter(max int, window time.Duration) *MemoryLimiter {
	if max <= 0 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	l := &MemoryLimiter{
		max:    max,
		window: window,
		every:  xrate.Limit(float64(max) / window.Seconds()),
		keys:   make(map[string]*keyLimiter),
		stopCh: make(chan struct{}),
	}
	go l.cleanupLoop()
	return l
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (Result, error) {
	now := time.Now()
	l.mu.Lock()
	kl, ok := l.keys[key]
	if !ok {
		kl = &keyLimiter{limiter: xrate.NewLimiter(l.every, l.max)}
		l.keys[key] = kl
	}
	kl.lastAccess = now
	l.mu.Unlock()

	res := Result{Limit: int64(l.max)}
	r := kl.limiter.ReserveN(now, 1)
	if d := r.DelayFrom(now); d > 0 {
		r.CancelAt(now)
		res.RetryAfter = time.Duration(math.Ceil(d.Seconds())) * time.Second
		res.WindowTTL = res.RetryAfter
		return res, nil
	}
	res.Allowed = true
	res.Remaining = int64(math.Max(0, math.Floor(kl.limiter.TokensAt(now))))
	res.CurrentHits = int64(l.max) - res.Remaining
	res.WindowTTL = l.window
	return res, nil
}

// Stop detiene la limpieza en background.
func (l *MemoryLimiter) Stop() {
	l.once.Do(func() { close(l.stopCh) })
}

func (l *MemoryLimiter) cleanupLoop() {
	t := time.NewTicker(l.window * 5)
	defer t.Stop()
	for {
		select {
		case <-l.stopCh:
			return
		case <-t.C:
			cutoff := time.Now().Add(-l.window * 2)
			l.mu.Lock()
			for k, kl := range l.keys {
				if kl.lastAccess.Before(cutoff) {
					delete(l.keys, k)
				}
			}
			l.mu.Unlock()
		}
	}
}
