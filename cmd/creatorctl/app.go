package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/auth"
	"github.com/dropDatabas3/creatorverse/internal/config"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/profile"
	"github.com/dropDatabas3/creatorverse/internal/session"
)

var errNotSignedIn = errors.New("not signed in (run: creatorctl login)")

// app es el cliente armado: sesión persistida en disco, coordinador y cliente del gateway.
type app struct {
	cfg     *config.Config
	store   *session.Store
	coord   *auth.Coordinator
	gateway *gatewayClient
	out     io.Writer
	log     *zap.Logger
	stop    context.CancelFunc
}

func sessionPath(cfg *config.Config) (string, error) {
	if cfg.Client.SessionFile != "" {
		return cfg.Client.SessionFile, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("no session file configured and no user config dir: %w", err)
	}
	return filepath.Join(dir, "creatorverse", "session.json"), nil
}

func newApp(ctx context.Context, cfg *config.Config, in io.Reader, out, prompt io.Writer, log *zap.Logger) (*app, error) {
	if cfg.Provider.URL == "" {
		return nil, errors.New("SUPABASE_URL is required")
	}
	key, err := cfg.SessionKeyBytes()
	if err != nil {
		return nil, err
	}
	path, err := sessionPath(cfg)
	if err != nil {
		return nil, err
	}
	persister, err := session.NewFilePersister(path, key)
	if err != nil {
		return nil, err
	}

	hc := &http.Client{Timeout: config.Dur(cfg.Provider.HTTPTimeout, 10*time.Second)}
	provider := gotrue.New(gotrue.Config{BaseURL: cfg.Provider.URL, AnonKey: cfg.Provider.AnonKey, HTTPClient: hc})
	store := session.New(session.Options{Provider: provider, Persister: persister, Logger: log.Named("session")})

	coord := auth.New(auth.Deps{
		Store:    store,
		Provider: provider,
		Profiles: profile.NewResolver(profile.NewRESTRepository(cfg.Provider.URL, cfg.Provider.AnonKey, hc), log.Named("profile")),
		Browser:  auth.TerminalBrowser{In: in, Out: prompt},
		Config: auth.Config{
			Platform:       cfg.Client.Platform,
			WebOrigin:      cfg.Client.WebOrigin,
			RedirectScheme: cfg.Client.RedirectScheme,
			OAuthProvider:  cfg.Client.OAuthProvider,
			Flow:           cfg.Client.Flow,
			AllowedSchemes: cfg.Client.DeepLinkSchemes,
		},
		Logger: log.Named("auth"),
	})
	if err := coord.Start(ctx); err != nil {
		return nil, err
	}

	a := &app{
		cfg:     cfg,
		store:   store,
		coord:   coord,
		gateway: newGatewayClient(cfg.Client.GatewayURL, &http.Client{Timeout: config.Dur(cfg.AI.Timeout, 90*time.Second)}),
		out:     out,
		log:     log,
	}
	if err := a.settle(ctx); err != nil {
		coord.Close()
		return nil, err
	}

	// login interactivo y generaciones largas pueden pasar el vencimiento del access token
	bg, stop := context.WithCancel(context.Background())
	store.StartAutoRefresh(bg)
	a.stop = stop
	return a, nil
}

func (a *app) Close() {
	if a.stop != nil {
		a.stop()
	}
	a.coord.Close()
}

// settle espera a que el coordinador salga de loading/authenticating.
func (a *app) settle(ctx context.Context) error {
	return a.waitFor(ctx, func(s auth.Snapshot) bool {
		return !s.Loading && s.State != auth.Authenticating
	})
}

func (a *app) waitFor(ctx context.Context, ok func(auth.Snapshot) bool) error {
	done := make(chan struct{}, 1)
	unsub := a.coord.Subscribe(func(s auth.Snapshot) {
		if ok(s) {
			select {
			case done <- struct{}{}:
			default:
			}
		}
	})
	defer unsub()

	if ok(auth.Snapshot{State: a.coord.State(), User: a.coord.CurrentUser(), Loading: a.coord.IsLoading()}) {
		return nil
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// accessToken devuelve un access token vigente, refrescando si está por vencer.
func (a *app) accessToken(ctx context.Context) (string, error) {
	cur := a.store.Current()
	if cur == nil {
		return "", errNotSignedIn
	}
	if cur.Expired(time.Now(), 30*time.Second) {
		refreshed, err := a.store.Refresh(ctx)
		if err != nil {
			if errors.Is(err, session.ErrNoSession) {
				return "", errNotSignedIn
			}
			return "", fmt.Errorf("refresh session: %w", err)
		}
		cur = refreshed
	}
	return cur.AccessToken, nil
}

func (a *app) printUser() error {
	u := a.coord.CurrentUser()
	if u == nil {
		fmt.Fprintln(a.out, "not signed in")
		return nil
	}
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	return enc.Encode(u)
}

func (a *app) logDebug(msg string, fields ...zap.Field) {
	a.log.Debug(msg, append(fields, logger.Component("creatorctl"))...)
}
