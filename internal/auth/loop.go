package auth

import (
	"context"
	"errors"
	"sync"

	"github.com/dropDatabas3/creatorverse/internal/deeplink"
	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/profile"
	"github.com/dropDatabas3/creatorverse/internal/security/token"
	"github.com/dropDatabas3/creatorverse/internal/session"
)

const (
	kindOAuth    = "oauth"
	kindPassword = "password"
	kindSignUp   = "signup"
)

// attempt es un intento de login en curso. Como mucho hay uno pendiente.
type attempt struct {
	id     string
	kind   string
	ctx    context.Context
	cancel context.CancelFunc
	pkce   *token.PKCE
	result chan error

	// exchanged: la sesión ya fue aceptada; falta el UserView
	exchanged bool
	once      sync.Once
}

func (a *attempt) finish(err error) {
	a.once.Do(func() {
		a.result <- err
		a.cancel()
	})
}

type waiter struct {
	gen uint64
	ch  chan error
}

type event interface{}

type (
	evSession struct{ e session.Event }
	evProfile struct {
		gen  uint64
		view types.UserView
	}
	evURL struct {
		raw  string
		from *attempt
	}
	evStart struct{ a *attempt }
	evDone  struct {
		a   *attempt
		err error
		// settle: terminar sin esperar sesión (sign-up pendiente de confirmación)
		settle bool
	}
	evAbort struct {
		a   *attempt
		err error
	}
	// evURLFailed: el canje de esa URL falló; una re-entrega debe reintentarse
	evURLFailed struct{ raw string }
	evLogout    struct{ ack chan struct{} }
	evRefresh   struct{ w chan error }
	evClose     struct{}
)

func (c *Coordinator) run() {
	defer close(c.done)
	for {
		select {
		case <-c.loopCtx.Done():
			c.shutdown()
			return
		case <-c.events.ready:
			for _, ev := range c.events.drain() {
				if _, ok := ev.(evClose); ok {
					c.shutdown()
					return
				}
				c.handle(ev)
			}
		}
	}
}

func (c *Coordinator) shutdown() {
	if c.pending != nil {
		c.pending.finish(ErrClosed)
		c.pending = nil
	}
	for _, w := range c.waiters {
		w.ch <- ErrClosed
	}
	c.waiters = nil
}

func (c *Coordinator) handle(ev event) {
	switch e := ev.(type) {
	case evSession:
		c.onSession(e.e)
	case evProfile:
		c.onProfile(e.gen, e.view)
	case evURL:
		c.onURL(e.raw, e.from)
	case evStart:
		c.onStart(e.a)
	case evDone:
		c.onDone(e)
	case evURLFailed:
		if c.lastURL == e.raw {
			c.lastURL = ""
		}
	case evAbort:
		if c.pending == e.a {
			c.pending = nil
		}
		c.settle(e.a, e.err)
	case evLogout:
		if c.pending != nil {
			c.settle(c.pending, ErrLoginCancelled)
			c.pending = nil
		}
		c.clear()
		c.later(func() { close(e.ack) })
	case evRefresh:
		c.onRefresh(e.w)
	}
	c.publish()
	// los llamadores se liberan recién con el snapshot ya publicado
	for _, fn := range c.deferred {
		fn()
	}
	c.deferred = c.deferred[:0]
}

func (c *Coordinator) later(fn func()) { c.deferred = append(c.deferred, fn) }

func (c *Coordinator) settle(a *attempt, err error) { c.later(func() { a.finish(err) }) }

func (c *Coordinator) onStart(a *attempt) {
	if c.pending != nil {
		c.log.Info("login superseded", logger.Attempt(c.pending.id))
		c.settle(c.pending, ErrLoginSuperseded)
	}
	c.pending = a
	c.lastURL = ""
	c.log.Debug("login started", logger.Attempt(a.id), logger.String("kind", a.kind))
}

func (c *Coordinator) onDone(e evDone) {
	if c.pending != e.a {
		// intento viejo: su sesión (si la hubo) ya llegó como evento del store
		if e.err != nil && !errors.Is(e.err, ErrLoginCancelled) {
			c.log.Debug("stale attempt finished with error", logger.Attempt(e.a.id), logger.Err(e.err))
		}
		c.settle(e.a, ErrLoginSuperseded)
		return
	}
	switch {
	case e.err != nil:
		c.log.Info("login failed", logger.Attempt(e.a.id), logger.Err(e.err))
		c.pending = nil
		c.settle(e.a, e.err)
	case e.settle:
		c.pending = nil
		c.settle(e.a, nil)
	default:
		e.a.exchanged = true
		c.maybeComplete()
	}
}

func (c *Coordinator) maybeComplete() {
	a := c.pending
	if a == nil || !a.exchanged || c.sess == nil || c.user == nil || c.inflight {
		return
	}
	c.pending = nil
	c.settle(a, nil)
}

func (c *Coordinator) onSession(e session.Event) {
	c.log.Debug("session event", logger.Event(string(e.Type)))
	if e.Type == session.InitialSession {
		c.initialized = true
	}
	if e.Type == session.SignedOut || e.Session == nil {
		c.clear()
		return
	}

	next := e.Session
	prev := c.sess
	c.sess = next

	sameSubject := prev != nil && prev.Subject == next.Subject
	haveView := c.user != nil || c.inflight
	if sameSubject && haveView && e.Type != session.UserUpdated &&
		(e.Type == session.TokenRefreshed || prev.AccessToken == next.AccessToken) {
		// renovación silenciosa o la misma sesión aplicada de nuevo
		c.maybeComplete()
		return
	}
	if !sameSubject {
		c.user = nil
	}
	c.resolve(next)
}

func (c *Coordinator) resolve(sess *types.Session) {
	c.profileGen++
	gen := c.profileGen
	c.inflight = true

	id := sess.Identity
	if id.Subject == "" {
		id.Subject = sess.Subject
	}
	ctx := profile.WithAccessToken(c.loopCtx, sess.AccessToken)
	go func() {
		view := c.profiles.Resolve(ctx, id)
		c.events.push(evProfile{gen: gen, view: view})
	}()
}

func (c *Coordinator) onProfile(gen uint64, view types.UserView) {
	if gen != c.profileGen || c.sess == nil || view.ID != c.sess.Subject {
		c.log.Debug("discarding stale profile", logger.Generation(gen))
		return
	}
	c.inflight = false
	if !c.user.Equal(&view) {
		c.user = &view
	}
	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.gen <= gen {
			ch := w.ch
			c.later(func() { ch <- nil })
			continue
		}
		kept = append(kept, w)
	}
	c.waiters = kept
	c.maybeComplete()
}

func (c *Coordinator) onRefresh(w chan error) {
	if c.sess == nil {
		c.later(func() { w <- session.ErrNoSession })
		return
	}
	c.resolve(c.sess)
	c.waiters = append(c.waiters, waiter{gen: c.profileGen, ch: w})
}

func (c *Coordinator) clear() {
	c.sess = nil
	c.user = nil
	c.profileGen++
	c.inflight = false
	c.lastURL = ""
	for _, w := range c.waiters {
		ch := w.ch
		c.later(func() { ch <- session.ErrNoSession })
	}
	c.waiters = nil
}

func (c *Coordinator) onURL(raw string, from *attempt) {
	v, err := deeplink.Validate(raw, c.cfg.AllowedSchemes)
	if err != nil {
		c.log.Warn("dropping inbound URL", logger.Err(err))
		if a := c.pending; a != nil && a.kind == kindOAuth {
			c.pending = nil
			c.settle(a, ErrRedirectRejected)
		}
		return
	}
	if from != nil && from != c.pending {
		c.log.Debug("redirect for a superseded attempt", logger.Attempt(from.id))
	}
	if raw == c.lastURL {
		c.log.Debug("duplicate redirect ignored", logger.Scheme(v.Scheme()))
		return
	}
	c.lastURL = raw

	var target *attempt
	if a := c.pending; a != nil && a.kind == kindOAuth {
		target = a
	}

	if code := v.Param("error"); code != "" {
		msg := v.Param("error_description")
		if msg == "" {
			msg = code
		}
		if target == nil {
			c.log.Info("provider error redirect without pending login", logger.Code(code))
			return
		}
		c.pending = nil
		c.settle(target, &CredentialError{Code: code, Message: msg})
		return
	}

	pair := deeplink.ParseAuthTokens(v)
	switch {
	case pair.AccessToken != "":
		go c.exchangeTokens(target, raw, pair)
	case v.Param("code") != "" && target != nil && target.pkce != nil:
		go c.exchangeCode(target, raw, v.Param("code"), c.store.Generation())
	default:
		c.log.Debug("inbound URL carries no credentials", logger.Scheme(v.Scheme()))
	}
}

func (c *Coordinator) exchangeTokens(a *attempt, raw string, pair types.TokenPair) {
	ctx := c.loopCtx
	if a != nil {
		ctx = a.ctx
	}
	_, err := c.store.SetSession(ctx, pair)
	if err != nil {
		c.events.push(evURLFailed{raw: raw})
	}
	if a == nil {
		if err != nil {
			c.log.Info("stale deep link rejected", logger.Err(err))
		}
		return
	}
	c.events.push(evDone{a: a, err: exchangeErr(err)})
}

func (c *Coordinator) exchangeCode(a *attempt, raw, code string, gen uint64) {
	tr, err := c.provider.ExchangeCodeForSession(a.ctx, code, a.pkce.Verifier)
	if err != nil {
		c.events.push(evURLFailed{raw: raw})
		c.events.push(evDone{a: a, err: credentialErr("code exchange", err)})
		return
	}
	err = c.store.EstablishSince(a.ctx, gen, tr.Session(c.now()))
	c.events.push(evDone{a: a, err: exchangeErr(err)})
}

// publish recalcula el snapshot y lo encola solo si cambió.
func (c *Coordinator) publish() {
	st := Unauthenticated
	switch {
	case c.pending != nil:
		st = Authenticating
	case c.sess != nil && c.user != nil:
		st = Authenticated
	case c.sess != nil:
		st = Authenticating
	}
	next := Snapshot{
		State:   st,
		User:    copyUser(c.user),
		Loading: !c.initialized || c.pending != nil || (c.sess != nil && c.user == nil),
	}

	c.snapMu.Lock()
	changed := !next.equal(c.snap)
	if changed {
		c.snap = next
	}
	c.snapMu.Unlock()
	if changed {
		c.log.Debug("auth state", logger.State(st.String()))
		c.notes.push(next)
	}
}
