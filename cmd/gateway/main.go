// Command gateway sirve la API autenticada de IA (generate-script, generate-ideas, /me).
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/dropDatabas3/creatorverse/internal/config"
	"github.com/dropDatabas3/creatorverse/internal/http/server"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/store/pg"
)

func main() {
	envErr := godotenv.Load()

	configPath := flag.String("config", os.Getenv("CONFIG_PATH"), "YAML config opcional (env CONFIG_PATH)")
	migrateUp := flag.Bool("migrate", false, "aplicar migraciones antes de arrancar (requiere DATABASE_URL)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Init(logger.Config{})
		logger.L().Fatal("config load failed", logger.Err(err))
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       cfg.App.LogLevel,
		ServiceName: "creatorverse-gateway",
		Version:     server.Version,
	})
	log := logger.L()
	defer func() { _ = logger.Sync() }()
	if envErr != nil {
		log.Debug("no .env file loaded, using process environment", logger.Err(envErr))
	}

	if *migrateUp {
		if err := pg.MigrateUp(cfg.Database.URL); err != nil {
			log.Fatal("migrations failed", logger.Err(err))
		}
		log.Info("migrations applied")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	gw, err := server.Build(ctx, cfg, log, server.Overrides{})
	if err != nil {
		log.Fatal("gateway wiring failed", logger.Err(err))
	}
	defer func() {
		if err := gw.Close(); err != nil {
			log.Warn("gateway cleanup error", logger.Err(err))
		}
	}()

	srv := server.NewHTTPServer(cfg, gw.Handler)
	errCh := make(chan error, 1)
	go func() {
		log.Info("gateway listening", logger.String("addr", cfg.Server.Addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("http server failed", logger.Err(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Warn("graceful shutdown failed", logger.Err(err))
		}
	}
}
