package session_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue"
	"github.com/dropDatabas3/creatorverse/internal/oauth/gotrue/gotruetest"
	"github.com/dropDatabas3/creatorverse/internal/session"
)

type recorder struct {
	mu     sync.Mutex
	events []session.Event
}

func (r *recorder) add(e session.Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	r.mu.Unlock()
}

func (r *recorder) types() []session.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]session.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

func newStore(t *testing.T, p session.Persister) (*session.Store, *gotruetest.Fake, *recorder) {
	t.Helper()
	f := gotruetest.New(t)
	client := gotrue.New(gotrue.Config{BaseURL: f.BaseURL(), AnonKey: "anon"})
	s := session.New(session.Options{Provider: client, Persister: p, Logger: zap.NewNop()})
	rec := &recorder{}
	s.OnChange(rec.add)
	return s, f, rec
}

func TestSetSession_ValidPair(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("ana@example.com", "secret1", map[string]any{"full_name": "Ana"})
	access, refresh := f.IssuePair(t, id)

	sess, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)
	require.Equal(t, id, sess.Subject)
	require.Equal(t, "ana@example.com", sess.Identity.Email)
	require.Equal(t, "Ana", sess.Identity.MetaString("full_name"))
	require.False(t, sess.ExpiresAt.IsZero())
	require.Equal(t, []session.EventType{session.SignedIn}, rec.types())
	require.Equal(t, access, s.Current().AccessToken)
}

func TestSetSession_SameTokenIsNoop(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	pair := types.TokenPair{AccessToken: access, RefreshToken: refresh}

	first, err := s.SetSession(ctx, pair)
	require.NoError(t, err)
	calls := f.Calls.Load()
	second, err := s.SetSession(ctx, pair)
	require.NoError(t, err)

	require.Equal(t, first, second)
	require.Equal(t, calls, f.Calls.Load(), "no provider round trip for the current token")
	require.Len(t, rec.types(), 1)
}

func TestSetSession_MissingAccessToken(t *testing.T) {
	s, _, rec := newStore(t, nil)
	_, err := s.SetSession(context.Background(), types.TokenPair{RefreshToken: "rt"})
	var ve *session.VerificationError
	require.ErrorAs(t, err, &ve)
	require.Empty(t, rec.types())
}

func TestSetSession_ExpiredAccessFallsBackToRefresh(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	f.SetAccessTTL(-time.Minute)
	access, refresh := f.IssuePair(t, id)
	f.SetAccessTTL(time.Hour)

	sess, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)
	require.NotEqual(t, access, sess.AccessToken)
	require.Equal(t, id, sess.Subject)
	require.EqualValues(t, 1, f.Refreshs.Load())
	require.Equal(t, []session.EventType{session.SignedIn}, rec.types())
}

func TestSetSession_RejectedPair(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	f.SetAccessTTL(-time.Minute)
	access, _ := f.IssuePair(t, id)

	_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: "rt-unknown"})
	var ve *session.VerificationError
	require.ErrorAs(t, err, &ve)
	require.True(t, gotrue.IsRejected(ve.Err))
	require.Nil(t, s.Current())
	require.Empty(t, rec.types())

	_, err = s.SetSession(ctx, types.TokenPair{AccessToken: "not-a-jwt"})
	require.ErrorAs(t, err, &ve)
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)

	_, err := s.Refresh(ctx)
	require.ErrorIs(t, err, session.ErrNoSession)

	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	_, err = s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)

	next, err := s.Refresh(ctx)
	require.NoError(t, err)
	require.NotEqual(t, refresh, next.RefreshToken)
	require.Equal(t, id, next.Subject)

	f.RevokeRefresh()
	_, err = s.Refresh(ctx)
	var ve *session.VerificationError
	require.ErrorAs(t, err, &ve)
	require.Nil(t, s.Current())
	require.Equal(t, []session.EventType{session.SignedIn, session.TokenRefreshed, session.SignedOut}, rec.types())
}

func TestRefresh_ConcurrentCallersShareOneGrant(t *testing.T) {
	ctx := context.Background()
	s, f, _ := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Refresh(ctx)
			// los que llegan tarde ven la generación nueva y refrescan de nuevo, o quedan superseded
			if err != nil && !errors.Is(err, session.ErrSuperseded) {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
	require.NotNil(t, s.Current())
}

func TestSignOut(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)

	require.NoError(t, s.SignOut(ctx))
	require.Nil(t, s.Current())
	require.NoError(t, s.SignOut(ctx))
	require.Equal(t, []session.EventType{session.SignedIn, session.SignedOut}, rec.types())

	// el access token quedó revocado en el provider
	_, err = gotrue.New(gotrue.Config{BaseURL: f.BaseURL()}).GetUser(ctx, access)
	require.True(t, gotrue.IsRejected(err))
}

func TestSignOutSupersedesInFlightSetSession(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	f.Block = make(chan struct{})

	done := make(chan error, 1)
	go func() {
		_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
		done <- err
	}()
	require.Eventually(t, func() bool { return f.Calls.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)

	require.NoError(t, s.SignOut(ctx))
	close(f.Block)

	require.ErrorIs(t, <-done, session.ErrSuperseded)
	require.Nil(t, s.Current())
	require.Empty(t, rec.types())
}

func TestInit(t *testing.T) {
	ctx := context.Background()

	t.Run("empty", func(t *testing.T) {
		s, _, rec := newStore(t, nil)
		sess, err := s.Init(ctx)
		require.NoError(t, err)
		require.Nil(t, sess)
		_, _ = s.Init(ctx)
		require.Equal(t, []session.EventType{session.InitialSession}, rec.types())
	})

	t.Run("expired persisted session is refreshed", func(t *testing.T) {
		p := &session.MemoryPersister{}
		s, f, rec := newStore(t, p)
		id := f.AddUser("a@example.com", "secret1", nil)
		access, refresh := f.IssuePair(t, id)
		require.NoError(t, p.Save(ctx, &types.Session{
			AccessToken: access, RefreshToken: refresh, Subject: id,
			ExpiresAt: time.Now().Add(-time.Minute),
		}))

		sess, err := s.Init(ctx)
		require.NoError(t, err)
		require.NotNil(t, sess)
		require.NotEqual(t, refresh, sess.RefreshToken)
		require.Equal(t, []session.EventType{session.InitialSession}, rec.types())

		stored, err := p.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, sess.RefreshToken, stored.RefreshToken)
	})

	t.Run("rejected persisted session is dropped", func(t *testing.T) {
		p := &session.MemoryPersister{}
		s, _, rec := newStore(t, p)
		require.NoError(t, p.Save(ctx, &types.Session{
			AccessToken: "old", RefreshToken: "rt-gone", ExpiresAt: time.Now().Add(-time.Minute),
		}))

		sess, err := s.Init(ctx)
		require.NoError(t, err)
		require.Nil(t, sess)
		require.Len(t, rec.types(), 1)
		stored, err := p.Load(ctx)
		require.NoError(t, err)
		require.Nil(t, stored)
	})
}

func TestUnsubscribe(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	var n int
	var mu sync.Mutex
	unsub := s.OnChange(func(session.Event) { mu.Lock(); n++; mu.Unlock() })

	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)
	unsub()
	unsub()
	require.NoError(t, s.SignOut(ctx))

	mu.Lock()
	defer mu.Unlock()
	require.Equal(t, 1, n)
	require.Len(t, rec.types(), 2)
}

func TestEventsCarryIncreasingSeq(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	_, _ = s.Init(ctx)
	_, err := s.SetSession(ctx, types.TokenPair{AccessToken: access, RefreshToken: refresh})
	require.NoError(t, err)
	_, err = s.ReloadUser(ctx)
	require.NoError(t, err)
	require.NoError(t, s.SignOut(ctx))

	rec.mu.Lock()
	defer rec.mu.Unlock()
	require.Len(t, rec.events, 4)
	for i, e := range rec.events {
		require.EqualValues(t, i+1, e.Seq)
	}
	require.Equal(t, session.UserUpdated, rec.events[2].Type)
	require.Nil(t, rec.events[3].Session)
}

func TestAutoRefresh(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f := gotruetest.New(t)
	client := gotrue.New(gotrue.Config{BaseURL: f.BaseURL()})
	s := session.New(session.Options{Provider: client, Logger: zap.NewNop(), RefreshMargin: time.Second})
	refreshed := make(chan session.Event, 4)
	s.OnChange(func(e session.Event) {
		if e.Type == session.TokenRefreshed {
			refreshed <- e
		}
	})

	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)
	require.NoError(t, s.Establish(ctx, &types.Session{
		AccessToken: access, RefreshToken: refresh, Subject: id,
		ExpiresAt: time.Now().Add(1200 * time.Millisecond),
	}))
	s.StartAutoRefresh(ctx)

	select {
	case e := <-refreshed:
		require.NotEqual(t, refresh, e.Session.RefreshToken)
		require.True(t, e.Session.ExpiresAt.After(time.Now().Add(30*time.Minute)))
	case <-time.After(3 * time.Second):
		t.Fatal("session was not refreshed")
	}
}

func TestEstablishSince(t *testing.T) {
	ctx := context.Background()
	s, f, rec := newStore(t, nil)
	id := f.AddUser("a@example.com", "secret1", nil)
	access, refresh := f.IssuePair(t, id)

	gen := s.Generation()
	require.NoError(t, s.SignOut(ctx))
	err := s.EstablishSince(ctx, gen, &types.Session{AccessToken: access, RefreshToken: refresh, Subject: id})
	require.ErrorIs(t, err, session.ErrSuperseded)
	require.Nil(t, s.Current())

	require.NoError(t, s.EstablishSince(ctx, s.Generation(), &types.Session{AccessToken: access, RefreshToken: refresh, Subject: id}))
	require.Equal(t, []session.EventType{session.SignedIn}, rec.types())

	var ve *session.VerificationError
	require.ErrorAs(t, s.Establish(ctx, nil), &ve)
}
