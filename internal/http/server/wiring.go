// Package server arma el gateway completo a partir de la configuración: cache,
// limiter, verificador JWT, cliente de IA, repositorios, métricas y router.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/ailimit"
	"github.com/dropDatabas3/creatorverse/internal/cache"
	"github.com/dropDatabas3/creatorverse/internal/config"
	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/genai"
	aictrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/ai"
	healthctrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/health"
	mectrl "github.com/dropDatabas3/creatorverse/internal/http/controllers/me"
	mw "github.com/dropDatabas3/creatorverse/internal/http/middlewares"
	"github.com/dropDatabas3/creatorverse/internal/http/router"
	aisvc "github.com/dropDatabas3/creatorverse/internal/http/services/ai"
	healthsvc "github.com/dropDatabas3/creatorverse/internal/http/services/health"
	"github.com/dropDatabas3/creatorverse/internal/jwt"
	"github.com/dropDatabas3/creatorverse/internal/metrics"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/profile"
	"github.com/dropDatabas3/creatorverse/internal/rate"
	"github.com/dropDatabas3/creatorverse/internal/store/pg"
)

// Version se setea por ldflags.
var Version = "dev"

// Gateway es el handler armado más lo que hay que cerrar al apagar.
type Gateway struct {
	Handler http.Handler

	closers []func() error
}

// Close libera pool, redis y limiter. Devuelve el primer error.
func (g *Gateway) Close() error {
	var first error
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Overrides permite inyectar piezas ya construidas (tests).
type Overrides struct {
	Cache    cache.Client
	Profiles repository.ProfileRepository
	Universe repository.UniverseRepository
	Registry *prometheus.Registry
}

// Build arma el gateway. Solo falla por errores de wiring (redis inaccesible con
// CACHE_KIND=redis, DSN inválido); credenciales faltantes se reportan por request.
func Build(ctx context.Context, cfg *config.Config, log *zap.Logger, ov Overrides) (*Gateway, error) {
	log = logger.OrGlobal(log, "gateway")
	g := &Gateway{}
	fail := func(err error) (*Gateway, error) {
		_ = g.Close()
		return nil, err
	}

	// Cache (cuota diaria de IA, rate limit compartido)
	cc := ov.Cache
	if cc == nil {
		var err error
		cc, err = cache.New(ctx, cache.Config{
			Driver:   cfg.Cache.Kind,
			Addr:     cfg.Cache.Redis.Addr,
			Password: cfg.Cache.Redis.Password,
			DB:       cfg.Cache.Redis.DB,
			Prefix:   cfg.Cache.Redis.Prefix,
		})
		if err != nil {
			return fail(fmt.Errorf("cache: %w", err))
		}
		g.closers = append(g.closers, cc.Close)
	}

	limiter, stop := buildLimiter(cfg, cc)
	if stop != nil {
		g.closers = append(g.closers, func() error { stop(); return nil })
	}

	// Verificación de tokens contra el JWKS del provider
	httpTimeout := config.Dur(cfg.Provider.HTTPTimeout, 10*time.Second)
	eps := jwt.ProviderEndpoints(cfg.Provider.URL)
	var keys *jwt.RemoteKeySet
	var verifier mw.TokenVerifier
	if cfg.Provider.URL != "" {
		keys = jwt.NewRemoteKeySet(jwt.KeySetConfig{
			URL:        eps.JWKSURL,
			TTL:        config.Dur(cfg.Provider.JWKSTTL, jwt.DefaultKeySetTTL),
			MinRefresh: config.Dur(cfg.Provider.JWKSMinRefresh, jwt.DefaultMinRefresh),
			HTTPClient: &http.Client{Timeout: httpTimeout},
			Logger:     log.Named("jwks"),
		})
		verifier = jwt.NewVerifier(jwt.VerifierConfig{Keys: keys, Issuer: eps.Issuer, Logger: log.Named("jwt")})
	} else {
		log.Warn("SUPABASE_URL not set: every authenticated request will fail verification")
		verifier = jwt.NewVerifier(jwt.VerifierConfig{Logger: log.Named("jwt")})
	}

	// Repositorios de perfil / creator universe
	profiles, universe := ov.Profiles, ov.Universe
	var db *pg.Store
	if profiles == nil && universe == nil {
		switch cfg.Profile.Source {
		case "postgres":
			var err error
			db, err = pg.New(ctx, pg.Config{DSN: cfg.Database.URL, MaxConns: cfg.Database.MaxConns, Logger: log.Named("pg")})
			if err != nil {
				return fail(err)
			}
			g.closers = append(g.closers, func() error { db.Close(); return nil })
			profiles, universe = db, db
		case "rest":
			if cfg.Provider.URL != "" {
				rest := profile.NewRESTRepository(cfg.Provider.URL, cfg.Provider.AnonKey, &http.Client{Timeout: httpTimeout})
				profiles, universe = rest, rest
			}
		}
	}

	// IA
	ai := genai.New(genai.Config{
		APIKey:     cfg.AI.APIKey,
		Model:      cfg.AI.Model,
		BaseURL:    cfg.AI.BaseURL,
		HTTPClient: &http.Client{Timeout: config.Dur(cfg.AI.Timeout, 90*time.Second)},
	})
	svc := aisvc.NewService(aisvc.Deps{
		AI:       ai,
		Universe: universe,
		Quota:    ailimit.New(cc, cfg.AI.DailyLimit, log.Named("ailimit")),
		Logger:   log.Named("ai"),
	})

	// Métricas
	reg := ov.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	if err := metrics.Register(reg); err != nil {
		return fail(err)
	}
	httpMetrics, err := mw.NewHTTPMetrics(reg)
	if err != nil {
		return fail(err)
	}

	// Health
	components := []healthsvc.Component{
		{Name: "cache", Check: cc.Ping},
	}
	if keys != nil {
		components = append(components, healthsvc.Component{Name: "jwks", Critical: true, Check: keys.Ping})
	} else {
		components = append(components, healthsvc.Component{Name: "jwks", Critical: true, Check: func(context.Context) error {
			return errors.New("identity provider URL not configured")
		}})
	}
	if db != nil {
		components = append(components, healthsvc.Component{Name: "database", Check: db.Ping})
	} else {
		components = append(components, healthsvc.Component{Name: "database"})
	}

	g.Handler = router.New(router.Deps{
		AI:             aictrl.NewController(svc),
		Me:             mectrl.NewController(profile.NewResolver(profiles, log.Named("profile"))),
		Health:         healthctrl.NewHealthController(healthsvc.NewHealthService(healthsvc.Deps{Components: components, Version: Version})),
		Verifier:       verifier,
		RateLimiter:    limiter,
		CORSOrigins:    cfg.Server.CORSAllowedOrigins,
		Metrics:        httpMetrics,
		MetricsHandler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		Logger:         log,
	})

	log.Info("gateway wired",
		logger.String("cache", cfg.Cache.Kind),
		logger.String("profile_source", cfg.Profile.Source),
		logger.Bool("rate_limit", limiter != nil),
		logger.Bool("ai_configured", ai.Configured()),
		logger.Bool("ai_daily_limit", cfg.AI.DailyLimit),
		logger.Issuer(eps.Issuer),
	)
	return g, nil
}

// buildLimiter devuelve nil (interface nil, no puntero tipado) si el rate limit está apagado.
func buildLimiter(cfg *config.Config, cc cache.Client) (rate.Limiter, func()) {
	if !cfg.Rate.Enabled {
		return nil, nil
	}
	window := config.Dur(cfg.Rate.Window, time.Minute)
	if rc, ok := cc.(*cache.RedisClient); ok {
		return rate.NewRedisLimiter(rc.Redis(), cfg.Cache.Redis.Prefix+"rl:", cfg.Rate.MaxRequests, window), nil
	}
	ml := rate.NewMemoryLimiter(cfg.Rate.MaxRequests, window)
	return ml, ml.Stop
}

// NewHTTPServer envuelve h con los timeouts configurados.
func NewHTTPServer(cfg *config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       config.Dur(cfg.Server.ReadTimeout, 15*time.Second),
		WriteTimeout:      config.Dur(cfg.Server.WriteTimeout, 120*time.Second),
		IdleTimeout:       60 * time.Second,
	}
}
