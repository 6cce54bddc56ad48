// Package ailimit aplica el cupo de "una generación por día" por feature y usuario.
//
// La clave es ai_limit:<feature>:<user> y guarda la fecha UTC (YYYY-MM-DD) del último
// uso. Es fail-open: si el cache falla, se permite.
package ailimit

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/cache"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

const (
	FeatureAutoScript    = "auto_script"
	FeatureIdeaGenerator = "idea_generator"

	keyPrefix = "ai_limit:"
	dayLayout = "2006-01-02"
)

type Limiter struct {
	cache   cache.Client
	enabled bool
	now     func() time.Time
	log     *zap.Logger
}

func New(c cache.Client, enabled bool, log *zap.Logger) *Limiter {
	return &Limiter{cache: c, enabled: enabled && c != nil, now: time.Now, log: logger.OrGlobal(log, "ailimit")}
}

// WithClock reemplaza el reloj (tests).
func (l *Limiter) WithClock(now func() time.Time) *Limiter {
	l.now = now
	return l
}

func (l *Limiter) Enabled() bool { return l != nil && l.enabled }

func key(feature, user string) string { return keyPrefix + feature + ":" + user }

func (l *Limiter) today() string { return l.now().UTC().Format(dayLayout) }

// Allowed reporta si user todavía puede usar feature hoy.
func (l *Limiter) Allowed(ctx context.Context, feature, user string) bool {
	if !l.Enabled() || user == "" {
		return true
	}
	last, err := l.cache.Get(ctx, key(feature, user))
	if err != nil {
		if !cache.IsNotFound(err) {
			l.log.Warn("ai limit lookup failed, allowing", logger.Feature(feature), logger.UserID(user), logger.Err(err))
		}
		return true
	}
	return last != l.today()
}

// Record marca el uso de hoy. La clave vence al terminar el día UTC.
func (l *Limiter) Record(ctx context.Context, feature, user string) {
	if !l.Enabled() || user == "" {
		return
	}
	now := l.now().UTC()
	midnight := now.Truncate(24 * time.Hour).Add(24 * time.Hour)
	if err := l.cache.Set(ctx, key(feature, user), now.Format(dayLayout), midnight.Sub(now)+time.Hour); err != nil {
		l.log.Warn("ai limit record failed", logger.Feature(feature), logger.UserID(user), logger.Err(err))
	}
}
