package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/util"
)

// Provider is the subset of the auth API the store needs. *gotrue.Client implements it.
type Provider interface {
	GetUser(ctx context.Context, accessToken string) (*gotrue.User, error)
	RefreshSession(ctx context.Context, refreshToken string) (*gotrue.TokenResponse, error)
	SignOut(ctx context.Context, accessToken string) error
}

const (
	DefaultRefreshMargin = 90 * time.Second
	DefaultRetryBackoff  = 10 * time.Second
)

// Options configures a Store.
type Options struct {
	Provider  Provider
	Persister Persister // nil = MemoryPersister
	Logger    *zap.Logger
	Now       func() time.Time
	// RefreshMargin is how long before expiry auto-refresh kicks in.
	RefreshMargin time.Duration
	// RetryBackoff is the wait after a failed (non-rejected) auto-refresh.
	RetryBackoff time.Duration
}

// Store is the client's single source of truth for the current session.
type Store struct {
	provider Provider
	persist  Persister
	log      *zap.Logger
	now      func() time.Time
	margin   time.Duration
	backoff  time.Duration

	// mu protege current, gen e initialized.
	mu          sync.RWMutex
	current     *types.Session
	gen         uint64
	initialized bool

	// transitionMu serializa commit + persistencia + notificación.
	transitionMu sync.Mutex
	seq          uint64

	lmu       sync.Mutex
	listeners []listener
	nextID    uint64

	refreshes singleflight.Group
	wake      chan struct{}
}

// New builds a Store. Call Init before reading Current.
func New(opts Options) *Store {
	if opts.Persister == nil {
		opts.Persister = &MemoryPersister{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.RefreshMargin <= 0 {
		opts.RefreshMargin = DefaultRefreshMargin
	}
	if opts.RetryBackoff <= 0 {
		opts.RetryBackoff = DefaultRetryBackoff
	}
	return &Store{
		provider: opts.Provider,
		persist:  opts.Persister,
		log:      logger.OrGlobal(opts.Logger, "session"),
		now:      opts.Now,
		margin:   opts.RefreshMargin,
		backoff:  opts.RetryBackoff,
		wake:     make(chan struct{}, 1),
	}
}

// Current returns a copy of the current session, nil when signed out.
func (s *Store) Current() *types.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone()
}

func (s *Store) snapshot() (*types.Session, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current.Clone(), s.gen
}

// OnChange registers fn for every later transition. The returned func unsubscribes.
func (s *Store) OnChange(fn func(Event)) (unsubscribe func()) {
	s.lmu.Lock()
	s.nextID++
	id := s.nextID
	s.listeners = append(s.listeners, listener{id: id, fn: fn})
	s.lmu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.lmu.Lock()
			defer s.lmu.Unlock()
			for i, l := range s.listeners {
				if l.id == id {
					s.listeners = append(s.listeners[:i:i], s.listeners[i+1:]...)
					return
				}
			}
		})
	}
}

// notify corre con transitionMu tomado.
func (s *Store) notify(typ EventType, sess *types.Session) {
	s.seq++
	ev := Event{Type: typ, Session: sess.Clone(), Seq: s.seq}

	s.lmu.Lock()
	ls := make([]listener, len(s.listeners))
	copy(ls, s.listeners)
	s.lmu.Unlock()

	for _, l := range ls {
		func() {
			defer func() {
				if r := recover(); r != nil {
					s.log.Error("session listener panicked", logger.Event(string(typ)), logger.Any("panic", r))
				}
			}()
			// cada listener recibe su copia
			e := ev
			e.Session = ev.Session.Clone()
			l.fn(e)
		}()
	}
	s.log.Debug("session transition", logger.Event(string(typ)), logger.Generation(s.seq))
}

// commit installs sess if nothing else committed since expectedGen.
func (s *Store) commit(ctx context.Context, expectedGen uint64, typ EventType, sess *types.Session) bool {
	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()

	s.mu.Lock()
	if s.gen != expectedGen {
		s.mu.Unlock()
		return false
	}
	s.gen++
	s.current = sess.Clone()
	s.mu.Unlock()

	s.save(ctx, sess)
	s.notify(typ, sess)
	s.kick()
	return true
}

func (s *Store) save(ctx context.Context, sess *types.Session) {
	// la persistencia no debe cancelarse junto con la operación que la originó
	ctx = context.WithoutCancel(ctx)
	var err error
	if sess == nil {
		err = s.persist.Clear(ctx)
	} else {
		err = s.persist.Save(ctx, sess)
	}
	if err != nil {
		s.log.Warn("session persist failed", logger.Err(err))
	}
}

func (s *Store) kick() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Init loads the persisted session, refreshes it if expired and emits exactly one
// INITIAL_SESSION event. Later calls return the current session and emit nothing.
func (s *Store) Init(ctx context.Context) (*types.Session, error) {
	s.mu.Lock()
	if s.initialized {
		cur := s.current.Clone()
		s.mu.Unlock()
		return cur, nil
	}
	s.initialized = true
	gen := s.gen
	s.mu.Unlock()

	sess, err := s.persist.Load(ctx)
	if err != nil {
		s.log.Warn("discarding unreadable persisted session", logger.Err(err))
		sess = nil
	}
	if sess != nil && sess.Expired(s.now(), 0) {
		sess = s.recoverPersisted(ctx, sess)
	}

	s.transitionMu.Lock()
	defer s.transitionMu.Unlock()
	s.mu.Lock()
	if s.gen == gen {
		s.gen++
		s.current = sess.Clone()
	}
	cur := s.current.Clone()
	s.mu.Unlock()

	s.save(ctx, cur)
	s.notify(InitialSession, cur)
	s.kick()
	return cur, nil
}

// recoverPersisted intenta refrescar una sesión persistida vencida. Un rechazo la descarta;
// un error de red la conserva para que el auto-refresh reintente.
func (s *Store) recoverPersisted(ctx context.Context, sess *types.Session) *types.Session {
	if sess.RefreshToken == "" {
		return nil
	}
	tr, err := s.provider.RefreshSession(ctx, sess.RefreshToken)
	switch {
	case err == nil:
		return tr.Session(s.now())
	case gotrue.IsRejected(err):
		s.log.Info("persisted session rejected by provider", logger.Err(err))
		return nil
	default:
		s.log.Warn("could not refresh persisted session, keeping it", logger.Err(err))
		return sess
	}
}

// SetSession validates a token pair (usually from a deep link) with the provider and
// makes it current. Re-applying the current access token is a no-op.
func (s *Store) SetSession(ctx context.Context, pair types.TokenPair) (*types.Session, error) {
	if pair.AccessToken == "" {
		return nil, &VerificationError{Reason: "missing access token"}
	}
	cur, gen := s.snapshot()
	if cur != nil && cur.AccessToken == pair.AccessToken {
		return cur, nil
	}

	sess, err := s.resolvePair(ctx, pair)
	if err != nil {
		return nil, err
	}
	if !s.commit(ctx, gen, SignedIn, sess) {
		return nil, ErrSuperseded
	}
	return sess.Clone(), nil
}

func (s *Store) resolvePair(ctx context.Context, pair types.TokenPair) (*types.Session, error) {
	u, err := s.provider.GetUser(ctx, pair.AccessToken)
	if err == nil {
		return &types.Session{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresAt:    accessExpiry(pair.AccessToken),
			Subject:      u.ID,
			Identity:     u.Identity(),
		}, nil
	}
	if !gotrue.IsRejected(err) {
		return nil, fmt.Errorf("session: validate access token: %w", err)
	}
	if pair.RefreshToken == "" {
		return nil, &VerificationError{Reason: "access token rejected", Err: err}
	}

	s.log.Debug("access token rejected, trying refresh token")
	tr, rerr := s.provider.RefreshSession(ctx, pair.RefreshToken)
	if rerr != nil {
		if gotrue.IsRejected(rerr) {
			return nil, &VerificationError{Reason: "refresh token rejected", Err: rerr}
		}
		return nil, fmt.Errorf("session: refresh token exchange: %w", rerr)
	}
	return tr.Session(s.now()), nil
}

// accessExpiry lee exp del JWT sin verificarlo; la verificación ya la hizo el provider.
func accessExpiry(access string) time.Time {
	claims := jwtv5.MapClaims{}
	if _, _, err := jwtv5.NewParser().ParseUnverified(access, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Generation identifies the current committed state. Callers that run a provider
// exchange outside the store capture it first and pass it to EstablishSince.
func (s *Store) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Establish commits a session obtained from a provider grant (password, sign-up,
// PKCE exchange) and emits SIGNED_IN.
func (s *Store) Establish(ctx context.Context, sess *types.Session) error {
	return s.EstablishSince(ctx, s.Generation(), sess)
}

// EstablishSince is Establish that fails with ErrSuperseded if anything (a sign-out,
// another sign-in) committed after gen.
func (s *Store) EstablishSince(ctx context.Context, gen uint64, sess *types.Session) error {
	if sess == nil || sess.AccessToken == "" {
		return &VerificationError{Reason: "empty session"}
	}
	if !s.commit(ctx, gen, SignedIn, sess) {
		return ErrSuperseded
	}
	return nil
}

// Refresh exchanges the refresh token and emits TOKEN_REFRESHED. If the provider
// rejects the token the session is cleared with SIGNED_OUT. Concurrent callers share
// one provider call.
func (s *Store) Refresh(ctx context.Context) (*types.Session, error) {
	cur, gen := s.snapshot()
	if cur == nil {
		return nil, ErrNoSession
	}
	key := fmt.Sprintf("%d", gen)
	v, err, _ := s.refreshes.Do(key, func() (any, error) {
		return s.refresh(ctx, cur, gen)
	})
	if err != nil {
		return nil, err
	}
	return v.(*types.Session).Clone(), nil
}

func (s *Store) refresh(ctx context.Context, cur *types.Session, gen uint64) (*types.Session, error) {
	if cur.RefreshToken == "" {
		return nil, &VerificationError{Reason: "no refresh token"}
	}
	tr, err := s.provider.RefreshSession(ctx, cur.RefreshToken)
	if err != nil {
		if !gotrue.IsRejected(err) {
			return nil, fmt.Errorf("session: refresh: %w", err)
		}
		if !s.commit(ctx, gen, SignedOut, nil) {
			// otro refresh ya rotó el token
			return nil, ErrSuperseded
		}
		s.log.Info("refresh token rejected, session cleared", logger.String("refresh_token", util.MaskToken(cur.RefreshToken)), logger.Err(err))
		return nil, &VerificationError{Reason: "refresh token rejected", Err: err}
	}
	next := tr.Session(s.now())
	if next.Subject == "" {
		next.Subject = cur.Subject
		next.Identity = cur.Identity
	}
	if !s.commit(ctx, gen, TokenRefreshed, next) {
		return nil, ErrSuperseded
	}
	return next, nil
}

// ReloadUser fetches the user record for the current token and emits USER_UPDATED.
func (s *Store) ReloadUser(ctx context.Context) (*types.Session, error) {
	cur, gen := s.snapshot()
	if cur == nil {
		return nil, ErrNoSession
	}
	u, err := s.provider.GetUser(ctx, cur.AccessToken)
	if err != nil {
		if gotrue.IsRejected(err) {
			return nil, &VerificationError{Reason: "access token rejected", Err: err}
		}
		return nil, fmt.Errorf("session: reload user: %w", err)
	}
	cur.Subject = u.ID
	cur.Identity = u.Identity()
	if !s.commit(ctx, gen, UserUpdated, cur) {
		return nil, ErrSuperseded
	}
	return cur, nil
}

// SignOut clears the local session first, so any in-flight operation is superseded,
// and then revokes it at the provider. The revoke is best effort: its error is logged
// and returned, but the local state is already cleared.
func (s *Store) SignOut(ctx context.Context) error {
	s.transitionMu.Lock()
	s.mu.Lock()
	prev := s.current
	s.current = nil
	s.gen++
	s.mu.Unlock()
	s.save(ctx, nil)
	if prev != nil {
		s.notify(SignedOut, nil)
	}
	s.transitionMu.Unlock()
	s.kick()

	if prev == nil || s.provider == nil {
		return nil
	}
	if err := s.provider.SignOut(ctx, prev.AccessToken); err != nil && !gotrue.IsRejected(err) {
		s.log.Warn("provider sign-out failed", logger.Err(err))
		return fmt.Errorf("session: revoke: %w", err)
	}
	return nil
}

// StartAutoRefresh refreshes the session RefreshMargin before it expires until ctx
// is done. It returns immediately; the loop runs in its own goroutine.
func (s *Store) StartAutoRefresh(ctx context.Context) {
	go s.autoRefresh(ctx)
}

func (s *Store) autoRefresh(ctx context.Context) {
	timer := time.NewTimer(time.Hour)
	defer timer.Stop()
	for {
		wait, ok := s.nextRefreshIn()
		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		if ok {
			timer.Reset(wait)
		}
		var fire <-chan time.Time
		if ok {
			fire = timer.C
		}

		select {
		case <-ctx.Done():
			return
		case <-s.wake:
			continue
		case <-fire:
		}

		if _, err := s.Refresh(ctx); err != nil {
			var ve *VerificationError
			switch {
			case errors.Is(err, ErrNoSession), errors.Is(err, ErrSuperseded), errors.As(err, &ve):
				// la sesión cambió o fue limpiada; el wake siguiente recalcula
			case ctx.Err() != nil:
				return
			default:
				s.log.Warn("auto-refresh failed, retrying", logger.Err(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(s.backoff):
				case <-s.wake:
				}
			}
		}
	}
}

// nextRefreshIn reports how long until the current session should be refreshed;
// ok=false means there is nothing to refresh.
func (s *Store) nextRefreshIn() (time.Duration, bool) {
	cur := s.Current()
	if cur == nil || cur.RefreshToken == "" || cur.ExpiresAt.IsZero() {
		return 0, false
	}
	d := cur.ExpiresAt.Sub(s.now()) - s.margin
	if d < 0 {
		d = 0
	}
	return d, true
}
