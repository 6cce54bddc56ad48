package auth_test

import (
	"context"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/auth"
	"github.com/dropDatabas3/creatorverse/internal/domain/repository"
	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue/gotruetest"
	"github.com/dropDatabas3/creatorverse/internal/profile"
	"github.com/dropDatabas3/creatorverse/internal/session"
)

const waitFor = 3 * time.Second

// gatedResolver cuenta llamadas y, con gate != nil, bloquea hasta que se cierre.
type gatedResolver struct {
	inner   *profile.Resolver
	calls   atomic.Int64
	gate    chan struct{}
	started chan struct{}
}

func (r *gatedResolver) Resolve(ctx context.Context, id types.Identity) types.UserView {
	r.calls.Add(1)
	if r.started != nil {
		select {
		case r.started <- struct{}{}:
		default:
		}
	}
	if r.gate != nil {
		<-r.gate
	}
	return r.inner.Resolve(ctx, id)
}

type snapRecorder struct {
	mu    sync.Mutex
	snaps []auth.Snapshot
}

func (s *snapRecorder) add(v auth.Snapshot) {
	s.mu.Lock()
	s.snaps = append(s.snaps, v)
	s.mu.Unlock()
}

func (s *snapRecorder) all() []auth.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]auth.Snapshot(nil), s.snaps...)
}

func (s *snapRecorder) count(st auth.State) int {
	n := 0
	for _, v := range s.all() {
		if v.State == st {
			n++
		}
	}
	return n
}

type harness struct {
	f        *gotruetest.Fake
	client   *gotrue.Client
	store    *session.Store
	repo     *profile.MemoryRepository
	resolver *gatedResolver
	c        *auth.Coordinator
	rec      *snapRecorder
}

type option func(*harness, *auth.Deps)

func withBrowser(b auth.Browser) option {
	return func(_ *harness, d *auth.Deps) { d.Browser = b }
}

func withConfig(cfg auth.Config) option {
	return func(_ *harness, d *auth.Deps) { d.Config = cfg }
}

func withGate(gate chan struct{}) option {
	return func(h *harness, _ *auth.Deps) {
		h.resolver.gate = gate
		h.resolver.started = make(chan struct{}, 1)
	}
}

func newHarness(t *testing.T, opts ...option) *harness {
	t.Helper()
	h := &harness{f: gotruetest.New(t), repo: profile.NewMemoryRepository(), rec: &snapRecorder{}}
	h.client = gotrue.New(gotrue.Config{BaseURL: h.f.BaseURL(), AnonKey: "anon"})
	h.store = session.New(session.Options{Provider: h.client, Logger: zap.NewNop()})
	h.resolver = &gatedResolver{inner: profile.NewResolver(h.repo, zap.NewNop())}

	d := auth.Deps{Provider: h.client, Profiles: h.resolver, Logger: zap.NewNop()}
	for _, o := range opts {
		o(h, &d)
	}
	d.Store = h.store
	h.c = auth.New(d)
	h.c.Subscribe(h.rec.add)
	require.NoError(t, h.c.Start(context.Background()))
	t.Cleanup(h.c.Close)
	require.Eventually(t, func() bool { return !h.c.IsLoading() || h.store.Current() != nil }, waitFor, 5*time.Millisecond)
	return h
}

func (h *harness) deepLink(t *testing.T, scheme string, meta map[string]any) (string, string) {
	t.Helper()
	id := h.f.AddUser("ana@example.com", "secret1", meta)
	access, refresh := h.f.IssuePair(t, id)
	return scheme + "://auth#access_token=" + url.QueryEscape(access) + "&refresh_token=" + url.QueryEscape(refresh), id
}

func (h *harness) waitState(t *testing.T, st auth.State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.c.State() == st }, waitFor, 5*time.Millisecond, "want %s, have %s", st, h.c.State())
}

// waitSnap espera a que el suscriptor haya recibido al menos un snapshot en st.
func (h *harness) waitSnap(t *testing.T, st auth.State) {
	t.Helper()
	require.Eventually(t, func() bool { return h.rec.count(st) > 0 }, waitFor, 5*time.Millisecond)
}

func TestStartWithoutSession(t *testing.T) {
	h := newHarness(t)
	require.Equal(t, auth.Unauthenticated, h.c.State())
	require.Nil(t, h.c.CurrentUser())
	require.Eventually(t, func() bool { return len(h.rec.all()) == 1 }, waitFor, 5*time.Millisecond)
	require.False(t, h.rec.all()[0].Loading)
}

func TestValidDeepLinkAuthenticates(t *testing.T) {
	h := newHarness(t)
	link, id := h.deepLink(t, "frontend", map[string]any{"full_name": "Ana"})

	h.c.HandleURL(link)
	h.waitState(t, auth.Authenticated)

	u := h.c.CurrentUser()
	require.NotNil(t, u)
	require.Equal(t, id, u.ID)
	require.Equal(t, "Ana", u.Name)
	require.Zero(t, u.Streak)
	require.Zero(t, u.Coins)
	require.Zero(t, u.CurrentPlanet)
	require.False(t, h.c.IsLoading())
}

func TestDisallowedSchemeIsDropped(t *testing.T) {
	h := newHarness(t)
	link, _ := h.deepLink(t, "evil", nil)
	before := h.f.Calls.Load()

	h.c.HandleURL(link)
	h.c.HandleURL("not a url at all")
	h.c.HandleURL("javascript:alert(1)#access_token=a")
	// una URL válida posterior demuestra que el loop procesó las anteriores
	h.c.HandleURL("frontend://home")
	require.Never(t, func() bool { return h.c.State() != auth.Unauthenticated }, 200*time.Millisecond, 10*time.Millisecond)

	require.Equal(t, before, h.f.Calls.Load(), "no token exchange for rejected URLs")
	require.Nil(t, h.store.Current())
	require.Nil(t, h.c.CurrentUser())
}

func TestRedeliveredLinkRetriedAfterFailedExchange(t *testing.T) {
	h := newHarness(t)
	link, id := h.deepLink(t, "frontend", nil)
	h.f.FailUser.Store(1)
	before := h.f.Calls.Load()

	h.c.HandleURL(link)
	require.Eventually(t, func() bool { return h.f.Calls.Load() > before }, waitFor, 5*time.Millisecond)
	require.Equal(t, auth.Unauthenticated, h.c.State())

	// el SO vuelve a entregar la misma URL hasta que el canje anda
	require.Eventually(t, func() bool {
		h.c.HandleURL(link)
		return h.c.State() == auth.Authenticated
	}, waitFor, 50*time.Millisecond)
	require.Equal(t, id, h.c.CurrentUser().ID)
	require.GreaterOrEqual(t, h.f.Calls.Load()-before, int64(2))
}

func TestSameSessionTwiceIsIdempotent(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.f.AddUser("a@example.com", "secret1", nil)
	access, refresh := h.f.IssuePair(t, id)
	sess := &types.Session{AccessToken: access, RefreshToken: refresh, Subject: id, Identity: types.Identity{Subject: id}}

	require.NoError(t, h.store.Establish(ctx, sess))
	h.waitState(t, auth.Authenticated)
	first := h.c.CurrentUser()

	require.NoError(t, h.store.Establish(ctx, sess))
	link := "frontend://auth#access_token=" + access + "&refresh_token=" + refresh
	h.c.HandleURL(link)
	h.c.HandleURL(link)
	require.Never(t, func() bool { return h.resolver.calls.Load() > 1 }, 200*time.Millisecond, 10*time.Millisecond)

	require.Equal(t, first, h.c.CurrentUser())
	h.waitSnap(t, auth.Authenticated)
	require.Equal(t, 1, h.rec.count(auth.Authenticated))
}

func TestLoginOAuthImplicit(t *testing.T) {
	var gotURL, gotRedirect string
	var h *harness
	browser := auth.BrowserFunc(func(ctx context.Context, authURL, redirect string) (auth.BrowserResult, error) {
		gotURL, gotRedirect = authURL, redirect
		link, _ := h.deepLink(t, "frontend", map[string]any{"name": "Ana N"})
		return auth.BrowserResult{Type: auth.BrowserSuccess, URL: link}, nil
	})
	h = newHarness(t, withBrowser(browser))

	require.NoError(t, h.c.Login(context.Background()))
	require.Equal(t, auth.Authenticated, h.c.State())
	require.Equal(t, "Ana N", h.c.CurrentUser().Name)

	require.Equal(t, "frontend://auth", gotRedirect)
	u, err := url.Parse(gotURL)
	require.NoError(t, err)
	require.Equal(t, "/auth/v1/authorize", u.Path)
	require.Equal(t, "google", u.Query().Get("provider"))
	require.Equal(t, "frontend://auth", u.Query().Get("redirect_to"))
	require.Empty(t, u.Query().Get("code_challenge"))
}

func TestLoginOAuthPKCE(t *testing.T) {
	var h *harness
	browser := auth.BrowserFunc(func(ctx context.Context, authURL, redirect string) (auth.BrowserResult, error) {
		u, _ := url.Parse(authURL)
		if u.Query().Get("code_challenge") == "" || u.Query().Get("code_challenge_method") != "s256" {
			return auth.BrowserResult{Type: auth.BrowserCancel}, nil
		}
		id := h.f.AddUser("p@example.com", "secret1", nil)
		return auth.BrowserResult{Type: auth.BrowserSuccess, URL: redirect + "?code=" + h.f.IssueCode(id)}, nil
	})
	h = newHarness(t, withBrowser(browser), withConfig(auth.Config{Flow: auth.FlowPKCE}))

	require.NoError(t, h.c.Login(context.Background()))
	require.Equal(t, auth.Authenticated, h.c.State())
	require.Equal(t, "p@example.com", h.c.CurrentUser().Email)
}

func TestLoginCancelled(t *testing.T) {
	for _, typ := range []auth.BrowserResultType{auth.BrowserCancel, auth.BrowserDismiss} {
		t.Run(string(typ), func(t *testing.T) {
			browser := auth.BrowserFunc(func(context.Context, string, string) (auth.BrowserResult, error) {
				return auth.BrowserResult{Type: typ}, nil
			})
			h := newHarness(t, withBrowser(browser))
			require.ErrorIs(t, h.c.Login(context.Background()), auth.ErrLoginCancelled)
			require.Equal(t, auth.Unauthenticated, h.c.State())
			h.waitSnap(t, auth.Authenticating)
			require.Eventually(t, func() bool {
				all := h.rec.all()
				return all[len(all)-1].State == auth.Unauthenticated
			}, waitFor, 5*time.Millisecond)
			require.Equal(t, 1, h.rec.count(auth.Authenticating))
		})
	}
}

func TestLoginOpenedThenRedirect(t *testing.T) {
	browser := auth.BrowserFunc(func(context.Context, string, string) (auth.BrowserResult, error) {
		return auth.BrowserResult{Type: auth.BrowserOpened}, nil
	})
	h := newHarness(t, withBrowser(browser))

	done := make(chan error, 1)
	go func() { done <- h.c.Login(context.Background()) }()
	h.waitState(t, auth.Authenticating)

	link, _ := h.deepLink(t, "exp", nil)
	h.c.HandleURL(link)
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(waitFor):
		t.Fatal("login did not complete")
	}
	require.Equal(t, auth.Authenticated, h.c.State())
}

func TestSecondLoginSupersedesFirst(t *testing.T) {
	browser := auth.BrowserFunc(func(context.Context, string, string) (auth.BrowserResult, error) {
		return auth.BrowserResult{Type: auth.BrowserOpened}, nil
	})
	h := newHarness(t, withBrowser(browser))

	first := make(chan error, 1)
	go func() { first <- h.c.Login(context.Background()) }()
	h.waitState(t, auth.Authenticating)

	second := make(chan error, 1)
	go func() { second <- h.c.Login(context.Background()) }()
	select {
	case err := <-first:
		require.ErrorIs(t, err, auth.ErrLoginSuperseded)
	case <-time.After(waitFor):
		t.Fatal("first login was not superseded")
	}

	link, _ := h.deepLink(t, "frontend", nil)
	h.c.HandleURL(link)
	require.NoError(t, <-second)
}

func TestLoginCallerContextCancelled(t *testing.T) {
	browser := auth.BrowserFunc(func(ctx context.Context, _, _ string) (auth.BrowserResult, error) {
		<-ctx.Done()
		return auth.BrowserResult{}, ctx.Err()
	})
	h := newHarness(t, withBrowser(browser))
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	require.ErrorIs(t, h.c.Login(ctx), context.DeadlineExceeded)
	h.waitState(t, auth.Unauthenticated)
}

func TestProviderErrorRedirect(t *testing.T) {
	browser := auth.BrowserFunc(func(context.Context, string, string) (auth.BrowserResult, error) {
		return auth.BrowserResult{Type: auth.BrowserSuccess,
			URL: "frontend://auth#error=access_denied&error_description=User+denied+access"}, nil
	})
	h := newHarness(t, withBrowser(browser))

	err := h.c.Login(context.Background())
	var ce *auth.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "access_denied", ce.Code)
	require.Equal(t, "User denied access", ce.Message)
	require.Equal(t, auth.Unauthenticated, h.c.State())
}

func TestRejectedRedirectFailsPendingLogin(t *testing.T) {
	browser := auth.BrowserFunc(func(context.Context, string, string) (auth.BrowserResult, error) {
		return auth.BrowserResult{Type: auth.BrowserSuccess, URL: "evil://auth#access_token=a&refresh_token=b"}, nil
	})
	h := newHarness(t, withBrowser(browser))
	require.ErrorIs(t, h.c.Login(context.Background()), auth.ErrRedirectRejected)
	require.Equal(t, auth.Unauthenticated, h.c.State())
}

func TestLoginWithEmail(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	id := h.f.AddUser("ana@example.com", "secret1", map[string]any{"full_name": "Ana"})
	h.repo.PutProfile(id, repository.ProfileRecord{"coins": float64(50), "streak": float64(3)})

	err := h.c.LoginWithEmail(ctx, "ana@example.com", "wrong")
	var ce *auth.CredentialError
	require.ErrorAs(t, err, &ce)
	require.Equal(t, "Invalid login credentials", ce.Message)
	require.Equal(t, auth.Unauthenticated, h.c.State())

	require.ErrorAs(t, h.c.LoginWithEmail(ctx, "  ", "x"), &ce)

	require.NoError(t, h.c.LoginWithEmail(ctx, " ana@example.com ", "secret1"))
	u := h.c.CurrentUser()
	require.Equal(t, auth.Authenticated, h.c.State())
	require.Equal(t, 50, u.Coins)
	require.Equal(t, 3, u.Streak)
	require.Equal(t, "Ana", u.Name)
}

// genWatchStore llama onGen después de cada lectura de la generación del store.
type genWatchStore struct {
	auth.SessionStore
	onGen func()
}

func (s *genWatchStore) Generation() uint64 {
	g := s.SessionStore.Generation()
	if s.onGen != nil {
		s.onGen()
	}
	return g
}

func TestPasswordGrantGenerationTakenBeforeAttemptQueued(t *testing.T) {
	ctx := context.Background()
	f := gotruetest.New(t)
	f.AddUser("ana@example.com", "secret1", nil)
	client := gotrue.New(gotrue.Config{BaseURL: f.BaseURL(), AnonKey: "anon"})
	ws := &genWatchStore{SessionStore: session.New(session.Options{Provider: client, Logger: zap.NewNop()})}
	c := auth.New(auth.Deps{Store: ws, Provider: client, Profiles: profile.NewResolver(nil, zap.NewNop()), Logger: zap.NewNop()})
	require.NoError(t, c.Start(ctx))
	t.Cleanup(c.Close)
	require.Eventually(t, func() bool { return !c.IsLoading() }, waitFor, 5*time.Millisecond)

	// si la lectura ocurre con el intento ya encolado, el loop llega a publicar
	// Authenticating mientras esperamos acá
	var queued atomic.Bool
	var once sync.Once
	ws.onGen = func() {
		once.Do(func() {
			deadline := time.Now().Add(150 * time.Millisecond)
			for time.Now().Before(deadline) {
				if c.State() == auth.Authenticating {
					queued.Store(true)
					return
				}
				time.Sleep(5 * time.Millisecond)
			}
		})
	}

	require.NoError(t, c.LoginWithEmail(ctx, "ana@example.com", "secret1"))
	require.False(t, queued.Load(), "generation read after the attempt was queued")
	require.Equal(t, auth.Authenticated, c.State())
}

func TestLogoutBeforePasswordGrantCommitsWins(t *testing.T) {
	ctx := context.Background()
	f := gotruetest.New(t)
	f.AddUser("ana@example.com", "secret1", nil)
	client := gotrue.New(gotrue.Config{BaseURL: f.BaseURL(), AnonKey: "anon"})
	store := session.New(session.Options{Provider: client, Logger: zap.NewNop()})
	ws := &genWatchStore{SessionStore: store}
	c := auth.New(auth.Deps{Store: ws, Provider: client, Profiles: profile.NewResolver(nil, zap.NewNop()), Logger: zap.NewNop()})
	require.NoError(t, c.Start(ctx))
	t.Cleanup(c.Close)
	require.Eventually(t, func() bool { return !c.IsLoading() }, waitFor, 5*time.Millisecond)

	// un sign-out que cae justo después de tomar la generación invalida el grant
	var once sync.Once
	ws.onGen = func() { once.Do(func() { require.NoError(t, store.SignOut(ctx)) }) }

	require.ErrorIs(t, c.LoginWithEmail(ctx, "ana@example.com", "secret1"), auth.ErrLoginCancelled)
	require.Nil(t, store.Current())
	require.Equal(t, auth.Unauthenticated, c.State())
}

func TestSignUpWithEmail(t *testing.T) {
	ctx := context.Background()

	t.Run("auto confirmed", func(t *testing.T) {
		h := newHarness(t)
		res, err := h.c.SignUpWithEmail(ctx, "new@example.com", "secret1", " Nina ")
		require.NoError(t, err)
		require.False(t, res.ConfirmationRequired)
		require.Equal(t, auth.Authenticated, h.c.State())
		require.Equal(t, "Nina", h.c.CurrentUser().Name)

		_, err = h.c.SignUpWithEmail(ctx, "new@example.com", "secret1", "")
		var ce *auth.CredentialError
		require.ErrorAs(t, err, &ce)
		require.Equal(t, "User already registered", ce.Message)
	})

	t.Run("confirmation required", func(t *testing.T) {
		h := newHarness(t)
		h.f.SetAutoConfirm(false)
		res, err := h.c.SignUpWithEmail(ctx, "new@example.com", "secret1", "")
		require.NoError(t, err)
		require.True(t, res.ConfirmationRequired)
		require.Equal(t, auth.Unauthenticated, h.c.State())
		require.Nil(t, h.store.Current())
	})
}

func TestLogoutRaceDiscardsInFlightProfile(t *testing.T) {
	gate := make(chan struct{})
	h := newHarness(t, withGate(gate))
	link, _ := h.deepLink(t, "frontend", nil)

	h.c.HandleURL(link)
	select {
	case <-h.resolver.started:
	case <-time.After(waitFor):
		t.Fatal("profile resolution did not start")
	}
	require.NotNil(t, h.store.Current())

	require.NoError(t, h.c.Logout(context.Background()))
	require.Nil(t, h.c.CurrentUser())
	require.Equal(t, auth.Unauthenticated, h.c.State())

	close(gate)
	require.Never(t, func() bool { return h.c.CurrentUser() != nil }, 300*time.Millisecond, 10*time.Millisecond)
	require.Nil(t, h.store.Current())
	require.Zero(t, h.rec.count(auth.Authenticated))
}

func TestLogoutCancelsPendingLogin(t *testing.T) {
	browser := auth.BrowserFunc(func(ctx context.Context, _, _ string) (auth.BrowserResult, error) {
		return auth.BrowserResult{Type: auth.BrowserOpened}, nil
	})
	h := newHarness(t, withBrowser(browser))
	done := make(chan error, 1)
	go func() { done <- h.c.Login(context.Background()) }()
	h.waitState(t, auth.Authenticating)

	require.NoError(t, h.c.Logout(context.Background()))
	require.ErrorIs(t, <-done, auth.ErrLoginCancelled)
	require.Equal(t, auth.Unauthenticated, h.c.State())
}

func TestTokenRefreshDoesNotFlicker(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	link, id := h.deepLink(t, "frontend", nil)
	h.c.HandleURL(link)
	h.waitState(t, auth.Authenticated)
	h.waitSnap(t, auth.Authenticated)
	calls := h.resolver.calls.Load()
	n := len(h.rec.all())

	_, err := h.store.Refresh(ctx)
	require.NoError(t, err)
	require.Never(t, func() bool { return h.c.State() != auth.Authenticated }, 200*time.Millisecond, 5*time.Millisecond)

	require.Equal(t, id, h.c.CurrentUser().ID)
	require.Equal(t, calls, h.resolver.calls.Load())
	require.Len(t, h.rec.all(), n, "no snapshot for a silent refresh")
}

func TestRevokedSessionSignsOut(t *testing.T) {
	h := newHarness(t)
	link, _ := h.deepLink(t, "frontend", nil)
	h.c.HandleURL(link)
	h.waitState(t, auth.Authenticated)

	h.f.RevokeRefresh()
	_, err := h.store.Refresh(context.Background())
	require.Error(t, err)
	h.waitState(t, auth.Unauthenticated)
	require.Nil(t, h.c.CurrentUser())
}

func TestRefreshUser(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	require.ErrorIs(t, h.c.RefreshUser(ctx), session.ErrNoSession)

	link, id := h.deepLink(t, "frontend", nil)
	h.c.HandleURL(link)
	h.waitState(t, auth.Authenticated)
	require.Zero(t, h.c.CurrentUser().Coins)

	h.repo.PutProfile(id, repository.ProfileRecord{"coins": float64(9), "current_planet": float64(1)})
	require.NoError(t, h.c.RefreshUser(ctx))
	u := h.c.CurrentUser()
	require.Equal(t, 9, u.Coins)
	require.Equal(t, 1, u.CurrentPlanet)
	require.Equal(t, id, u.ID)
}

func TestStartRestoresPersistedSession(t *testing.T) {
	ctx := context.Background()
	p := &session.MemoryPersister{}
	f := gotruetest.New(t)
	id := f.AddUser("a@example.com", "secret1", map[string]any{"full_name": "Persisted"})
	access, refresh := f.IssuePair(t, id)
	require.NoError(t, p.Save(ctx, &types.Session{
		AccessToken: access, RefreshToken: refresh, Subject: id,
		Identity:  types.Identity{Subject: id, Email: "a@example.com", Metadata: map[string]any{"full_name": "Persisted"}},
		ExpiresAt: time.Now().Add(time.Hour),
	}))

	client := gotrue.New(gotrue.Config{BaseURL: f.BaseURL()})
	store := session.New(session.Options{Provider: client, Persister: p, Logger: zap.NewNop()})
	c := auth.New(auth.Deps{Store: store, Provider: client, Profiles: profile.NewResolver(nil, nil), Logger: zap.NewNop()})
	require.NoError(t, c.Start(ctx))
	defer c.Close()

	require.Eventually(t, func() bool { return c.State() == auth.Authenticated }, waitFor, 5*time.Millisecond)
	require.Equal(t, "Persisted", c.CurrentUser().Name)
}

func TestRedirectURI(t *testing.T) {
	require.Equal(t, "frontend://auth", auth.Config{}.RedirectURI())
	require.Equal(t, "myapp://auth", auth.Config{RedirectScheme: "myapp"}.RedirectURI())
	require.Equal(t, "https://app.example.com/", auth.Config{Platform: auth.PlatformWeb, WebOrigin: "https://app.example.com/"}.RedirectURI())
	c := auth.New(auth.Deps{Config: auth.Config{Platform: auth.PlatformWeb, WebOrigin: "http://localhost:8081"}})
	require.Equal(t, "http://localhost:8081/", c.RedirectURI())
}

func TestClosedCoordinator(t *testing.T) {
	h := newHarness(t)
	h.c.Close()
	h.c.Close()
	require.ErrorIs(t, h.c.RefreshUser(context.Background()), auth.ErrClosed)
	require.ErrorIs(t, h.c.Login(context.Background()), auth.ErrClosed)
}
