// Package rate limita requests por key (ip|ruta en el gateway).
//
// Dos implementaciones: RedisLimiter (ventana fija compartida entre réplicas) y
// MemoryLimiter (token bucket por key, una sola réplica).
package rate

import (
	"context"
	"strconv"
	"strings"
	"time"

	rdb "github.com/redis/go-redis/v9"
)

// Result es la decisión para un request. Limit/Remaining/WindowTTL alimentan los
// headers X-RateLimit-*; RetryAfter solo se llena cuando Allowed es false.
type Result struct {
	Allowed     bool
	Limit       int64
	Remaining   int64
	CurrentHits int64
	WindowTTL   time.Duration
	RetryAfter  time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Result, error)
}

// RedisLimiter cuenta hits en una ventana fija por key. La key de la ventana se crea
// con su TTL en el mismo MULTI que la incrementa, así nunca queda un contador sin vencimiento.
type RedisLimiter struct {
	client *rdb.Client
	prefix string
	max    int64
	window time.Duration
	now    func() time.Time
}

func NewRedisLimiter(client *rdb.Client, prefix string, max int, window time.Duration) *RedisLimiter {
	if prefix == "" {
		prefix = "rl:"
	}
	if window <= 0 {
		window = time.Minute
	}
	if max <= 0 {
		max = 1
	}
	return &RedisLimiter{client: client, prefix: prefix, max: int64(max), window: window, now: time.Now}
}

// windowKey: <prefix><key>:<índice de ventana>. Los espacios se normalizan.
func (l *RedisLimiter) windowKey(key string) string {
	idx := l.now().UnixNano() / int64(l.window)
	return l.prefix + strings.ReplaceAll(key, " ", "_") + ":" + strconv.FormatInt(idx, 10)
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Result, error) {
	k := l.windowKey(key)

	var (
		incr *rdb.IntCmd
		pttl *rdb.DurationCmd
	)
	_, err := l.client.TxPipelined(ctx, func(p rdb.Pipeliner) error {
		p.SetNX(ctx, k, 0, l.window)
		incr = p.Incr(ctx, k)
		pttl = p.PTTL(ctx, k)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	hits := incr.Val()
	ttl := pttl.Val()
	if ttl <= 0 {
		ttl = l.window
	}
	res := Result{
		Allowed:     hits <= l.max,
		Limit:       l.max,
		Remaining:   max(l.max-hits, 0),
		CurrentHits: hits,
		WindowTTL:   ttl,
	}
	if !res.Allowed {
		res.RetryAfter = ttl
	}
	return res, nil
}
