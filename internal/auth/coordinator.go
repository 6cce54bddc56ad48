package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/security/token"
	"github.com/dropDatabas3/creatorverse/internal/session"
	"github.com/dropDatabas3/creatorverse/internal/util"
)

// SessionStore is the part of *session.Store the coordinator drives.
type SessionStore interface {
	Init(ctx context.Context) (*types.Session, error)
	Current() *types.Session
	Generation() uint64
	SetSession(ctx context.Context, pair types.TokenPair) (*types.Session, error)
	EstablishSince(ctx context.Context, gen uint64, sess *types.Session) error
	SignOut(ctx context.Context) error
	OnChange(fn func(session.Event)) (unsubscribe func())
}

// Provider is the part of the auth API used for credential grants.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*gotrue.TokenResponse, error)
	SignUp(ctx context.Context, email, password string, metadata map[string]any) (*gotrue.SignUpResult, error)
	ExchangeCodeForSession(ctx context.Context, code, verifier string) (*gotrue.TokenResponse, error)
	AuthorizeURL(p gotrue.AuthorizeParams) string
}

type ProfileResolver interface {
	Resolve(ctx context.Context, id types.Identity) types.UserView
}

type Deps struct {
	Store    SessionStore
	Provider Provider
	Profiles ProfileResolver
	Browser  Browser
	Config   Config
	Logger   *zap.Logger
}

// SignUpResult reports whether the account still needs email confirmation.
type SignUpResult struct {
	ConfirmationRequired bool
	Email                string
}

type subscriber struct {
	id uint64
	fn func(Snapshot)
}

// Coordinator is the single owner of the current-user view.
type Coordinator struct {
	store    SessionStore
	provider Provider
	profiles ProfileResolver
	browser  Browser
	cfg      Config
	log      *zap.Logger
	now      func() time.Time

	events *mailbox[event]
	notes  *mailbox[Snapshot]

	snapMu sync.RWMutex
	snap   Snapshot

	subMu  sync.Mutex
	subs   []subscriber
	subSeq uint64

	// estado del loop: solo lo toca la goroutine de run
	initialized bool
	sess        *types.Session
	user        *types.UserView
	profileGen  uint64
	inflight    bool
	pending     *attempt
	lastURL     string
	waiters     []waiter
	deferred    []func()

	loopCtx   context.Context
	cancel    context.CancelFunc
	unsub     func()
	done      chan struct{}
	startOnce sync.Once
	closeOnce sync.Once
}

func New(d Deps) *Coordinator {
	c := &Coordinator{
		store:    d.Store,
		provider: d.Provider,
		profiles: d.Profiles,
		browser:  d.Browser,
		cfg:      d.Config.withDefaults(),
		log:      logger.OrGlobal(d.Logger, "auth"),
		now:      time.Now,
		events:   newMailbox[event](),
		notes:    newMailbox[Snapshot](),
		done:     make(chan struct{}),
		snap:     Snapshot{State: Unauthenticated, Loading: true},
	}
	return c
}

// Start runs the event loop, subscribes to the store and loads the persisted session.
func (c *Coordinator) Start(ctx context.Context) error {
	var err error
	c.startOnce.Do(func() {
		c.loopCtx, c.cancel = context.WithCancel(context.WithoutCancel(ctx))
		c.unsub = c.store.OnChange(func(e session.Event) { c.events.push(evSession{e}) })
		go c.run()
		go c.dispatch()
		_, err = c.store.Init(ctx)
	})
	return err
}

// Close stops the loop. Pending attempts fail with ErrClosed.
func (c *Coordinator) Close() {
	c.closeOnce.Do(func() {
		if c.unsub != nil {
			c.unsub()
		}
		c.events.push(evClose{})
		c.events.close()
		if c.cancel != nil {
			<-c.done
			c.cancel()
		}
		c.notes.close()
	})
}

// RedirectURI is the redirect_to sent to the provider.
func (c *Coordinator) RedirectURI() string { return c.cfg.RedirectURI() }

func (c *Coordinator) snapshot() Snapshot {
	c.snapMu.RLock()
	defer c.snapMu.RUnlock()
	return c.snap
}

// CurrentUser returns a copy of the resolved user, nil when signed out.
func (c *Coordinator) CurrentUser() *types.UserView { return copyUser(c.snapshot().User) }

func (c *Coordinator) IsLoading() bool { return c.snapshot().Loading }

func (c *Coordinator) State() State { return c.snapshot().State }

// Subscribe registers fn for every later snapshot change. Callbacks run on a
// dedicated goroutine, one at a time, so they may call back into the coordinator.
func (c *Coordinator) Subscribe(fn func(Snapshot)) (unsubscribe func()) {
	c.subMu.Lock()
	c.subSeq++
	id := c.subSeq
	c.subs = append(c.subs, subscriber{id: id, fn: fn})
	c.subMu.Unlock()
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		for i, s := range c.subs {
			if s.id == id {
				c.subs = append(c.subs[:i:i], c.subs[i+1:]...)
				return
			}
		}
	}
}

func (c *Coordinator) dispatch() {
	for {
		select {
		case <-c.done:
			// entregar lo que quedó antes de salir
			c.deliver(c.notes.drain())
			return
		case <-c.notes.ready:
			c.deliver(c.notes.drain())
		}
	}
}

func (c *Coordinator) deliver(snaps []Snapshot) {
	for _, s := range snaps {
		c.subMu.Lock()
		subs := append([]subscriber(nil), c.subs...)
		c.subMu.Unlock()
		for _, sub := range subs {
			func() {
				defer func() {
					if r := recover(); r != nil {
						c.log.Error("auth subscriber panicked", logger.Any("panic", r))
					}
				}()
				s := s
				s.User = copyUser(s.User)
				sub.fn(s)
			}()
		}
	}
}

// Login runs the OAuth handoff. It returns nil once the user is Authenticated,
// ErrLoginCancelled if the browser session was dismissed, ErrLoginSuperseded if
// another Login started, or the exchange error.
func (c *Coordinator) Login(ctx context.Context) error {
	a := c.newAttempt(ctx, kindOAuth)
	if c.cfg.Flow == FlowPKCE {
		p, err := token.NewPKCE()
		if err != nil {
			a.cancel()
			return err
		}
		a.pkce = &p
	}
	if !c.events.push(evStart{a}) {
		a.cancel()
		return ErrClosed
	}
	go c.runOAuth(a)
	return c.await(ctx, a)
}

func (c *Coordinator) runOAuth(a *attempt) {
	redirect := c.RedirectURI()
	params := gotrue.AuthorizeParams{Provider: c.cfg.OAuthProvider, RedirectTo: redirect}
	if a.pkce != nil {
		params.CodeChallenge = a.pkce.Challenge
		params.CodeChallengeMethod = a.pkce.Method
	}
	res, err := c.browser.OpenAuthSession(a.ctx, c.provider.AuthorizeURL(params), redirect)
	switch {
	case err != nil:
		c.events.push(evDone{a: a, err: err})
	case res.Type == BrowserSuccess:
		c.events.push(evURL{raw: res.URL, from: a})
	case res.Type == BrowserCancel, res.Type == BrowserDismiss:
		c.events.push(evDone{a: a, err: ErrLoginCancelled})
	case res.Type == BrowserOpened:
		c.log.Debug("browser handed off, waiting for redirect", logger.Attempt(a.id))
	default:
		c.events.push(evDone{a: a, err: ErrLoginCancelled})
	}
}

// LoginWithEmail signs in with the password grant.
func (c *Coordinator) LoginWithEmail(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return &CredentialError{Code: "validation_failed", Message: "Email and password are required"}
	}
	// la generación se toma antes de encolar el intento: un Logout posterior la invalida
	gen := c.store.Generation()
	a := c.newAttempt(ctx, kindPassword)
	if !c.events.push(evStart{a}) {
		a.cancel()
		return ErrClosed
	}
	c.log.Debug("password sign-in", logger.Attempt(a.id), logger.Email(util.MaskEmail(email)))
	go func() {
		tr, err := c.provider.SignInWithPassword(a.ctx, email, password)
		if err != nil {
			c.events.push(evDone{a: a, err: credentialErr("sign in", err)})
			return
		}
		err = c.store.EstablishSince(a.ctx, gen, tr.Session(c.now()))
		c.events.push(evDone{a: a, err: exchangeErr(err)})
	}()
	return c.await(ctx, a)
}

// SignUpWithEmail creates an account; name is stored as full_name. When the
// project requires email confirmation no session is created and
// ConfirmationRequired is set.
func (c *Coordinator) SignUpWithEmail(ctx context.Context, email, password, name string) (*SignUpResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, &CredentialError{Code: "validation_failed", Message: "Email and password are required"}
	}
	meta := map[string]any{}
	if n := strings.TrimSpace(name); n != "" {
		meta["full_name"] = n
	}

	gen := c.store.Generation()
	a := c.newAttempt(ctx, kindSignUp)
	if !c.events.push(evStart{a}) {
		a.cancel()
		return nil, ErrClosed
	}
	res := &SignUpResult{Email: email}
	c.log.Debug("sign-up", logger.Attempt(a.id), logger.Email(util.MaskEmail(email)))
	go func() {
		out, err := c.provider.SignUp(a.ctx, email, password, meta)
		if err != nil {
			c.events.push(evDone{a: a, err: credentialErr("sign up", err)})
			return
		}
		if out.Token == nil || out.Token.AccessToken == "" {
			res.ConfirmationRequired = true
			c.events.push(evDone{a: a, settle: true})
			return
		}
		err = c.store.EstablishSince(a.ctx, gen, out.Token.Session(c.now()))
		c.events.push(evDone{a: a, err: exchangeErr(err)})
	}()
	if err := c.await(ctx, a); err != nil {
		return nil, err
	}
	return res, nil
}

// Logout clears the session and returns once the coordinator is Unauthenticated
// with no current user. The provider revoke is best effort.
func (c *Coordinator) Logout(ctx context.Context) error {
	if err := c.store.SignOut(ctx); err != nil {
		c.log.Warn("provider sign-out failed, local session cleared anyway", logger.Err(err))
	}
	ack := make(chan struct{})
	if !c.events.push(evLogout{ack: ack}) {
		return ErrClosed
	}
	select {
	case <-ack:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RefreshUser re-resolves the UserView for the current session without touching
// tokens.
func (c *Coordinator) RefreshUser(ctx context.Context) error {
	w := make(chan error, 1)
	if !c.events.push(evRefresh{w: w}) {
		return ErrClosed
	}
	select {
	case err := <-w:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HandleURL takes an inbound URL from the OS. Invalid URLs are logged and dropped.
func (c *Coordinator) HandleURL(raw string) {
	c.events.push(evURL{raw: raw})
}

func (c *Coordinator) newAttempt(ctx context.Context, kind string) *attempt {
	actx, cancel := context.WithCancel(ctx)
	return &attempt{
		id:     uuid.NewString(),
		kind:   kind,
		ctx:    actx,
		cancel: cancel,
		result: make(chan error, 1),
	}
}

func (c *Coordinator) await(ctx context.Context, a *attempt) error {
	select {
	case err := <-a.result:
		return err
	case <-ctx.Done():
		c.events.push(evAbort{a: a, err: ctx.Err()})
		return ctx.Err()
	}
}
