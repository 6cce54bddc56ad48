// Package router arma el árbol de rutas del gateway sobre chi.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	aictrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/ai"
	healthctrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/health"
	mectrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/me"
	"github.com/dropDatabas3/creatorverse/internal/http/errors"
	mw "github.com/dropDatabas3/creatorverse/internal/http/middlewares"
	"github.com/dropDatabas3/creatorverse/internal/rate"
)

// Deps contiene todo lo que necesita el router.
type Deps struct {
	AI     *aictrl.Controller
	Me     *mectrl.Controller
	Health *healthctrl.HealthController

	Verifier mw.TokenVerifier
	// RateLimiter aplica solo a las rutas de IA. nil = sin límite.
	RateLimiter rate.Limiter

	CORSOrigins []string
	Metrics     *mw.HTTPMetrics
	// MetricsHandler se monta en /metrics si no es nil.
	MetricsHandler http.Handler
	Logger         *zap.Logger
}

// New registra todas las rutas y devuelve el handler raíz.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(
		mw.WithRequestID(),
		mw.WithLogging(d.Logger),
		mw.WithRecover(),
		mw.WithMetrics(d.Metrics),
		mw.WithSecurityHeaders(),
		mw.WithCORS(d.CORSOrigins),
	)
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		errors.WriteError(w, errors.ErrMethodNotAllowed)
	})

	if d.Health != nil {
		r.Get("/healthz", d.Health.Healthz)
		r.Get("/readyz", d.Health.Readyz)
	}
	if d.MetricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", d.MetricsHandler)
	}

	if d.AI != nil {
		stack := []mw.Middleware{
			mw.WithNoStore(),
			mw.WithRateLimit(mw.RateLimitConfig{Limiter: d.RateLimiter}),
			mw.RequireAuth(mw.AuthConfig{Verifier: d.Verifier, ReadBody: true, Gate: d.AI.Gate}),
		}
		r.Method(http.MethodPost, "/generate-script", mw.Chain(http.HandlerFunc(d.AI.GenerateScript), stack...))
		r.Method(http.MethodPost, "/generate-ideas", mw.Chain(http.HandlerFunc(d.AI.GenerateIdeas), stack...))
	}

	if d.Me != nil {
		r.Method(http.MethodGet, "/me", mw.Chain(http.HandlerFunc(d.Me.Me),
			mw.WithNoStore(),
			mw.RequireAuth(mw.AuthConfig{Verifier: d.Verifier}),
		))
	}
	return r
}
