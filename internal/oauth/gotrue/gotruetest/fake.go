// Package gotruetest is an in-memory auth API for tests. Access tokens are real JWTs
// signed by a jwttest.Provider, so the same server also serves the JWKS.
package gotruetest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dropDatabas3/creatorverse/internal/jwt/jwttest"
)

type user struct {
	ID       string
	Email    string
	Password string
	Meta     map[string]any
}

// Fake is the fake auth API.
type Fake struct {
	*jwttest.Provider

	mu          sync.Mutex
	accessTTL   time.Duration
	autoConfirm bool
	users       map[string]*user  // email -> user
	byID        map[string]*user  // id -> user
	refresh     map[string]string // refresh token -> user id
	codes       map[string]string // pkce auth code -> user id
	revoked     map[string]bool   // access tokens revoked by logout
	seq         int
	Calls       atomic.Int64
	Refreshs    atomic.Int64
	// Block, when non-nil, is received from before answering /user (race tests).
	Block chan struct{}
	// FailUser answers that many /user calls with 503 before behaving normally.
	FailUser atomic.Int64
}

// New starts a fake and registers the auth routes on the provider's server.
func New(t testing.TB) *Fake {
	t.Helper()
	f := &Fake{
		Provider:    jwttest.New(t),
		accessTTL:   time.Hour,
		autoConfirm: true,
		users:       map[string]*user{},
		byID:        map[string]*user{},
		refresh:     map[string]string{},
		codes:       map[string]string{},
		revoked:     map[string]bool{},
	}
	f.Extra.HandleFunc("/auth/v1/token", f.token)
	f.Extra.HandleFunc("/auth/v1/signup", f.signup)
	f.Extra.HandleFunc("/auth/v1/user", f.user)
	f.Extra.HandleFunc("/auth/v1/logout", f.logout)
	return f
}

// SetAccessTTL changes the lifetime of access tokens issued from now on.
func (f *Fake) SetAccessTTL(d time.Duration) {
	f.mu.Lock()
	f.accessTTL = d
	f.mu.Unlock()
}

// SetAutoConfirm controls whether sign-up returns a session (true) or a bare user.
func (f *Fake) SetAutoConfirm(v bool) {
	f.mu.Lock()
	f.autoConfirm = v
	f.mu.Unlock()
}

// AddUser registers a user and returns its id.
func (f *Fake) AddUser(email, password string, meta map[string]any) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.addLocked(email, password, meta).ID
}

func (f *Fake) addLocked(email, password string, meta map[string]any) *user {
	f.seq++
	u := &user{ID: fmt.Sprintf("user-%d", f.seq), Email: email, Password: password, Meta: meta}
	f.users[email] = u
	f.byID[u.ID] = u
	return u
}

// IssuePair mints a valid access/refresh pair for an existing user (deep-link tests).
func (f *Fake) IssuePair(t testing.TB, userID string) (access, refresh string) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	access = f.Token(t, userID, f.accessTTL)
	f.seq++
	refresh = fmt.Sprintf("rt-%d", f.seq)
	f.refresh[refresh] = userID
	return access, refresh
}

// IssueCode mints a PKCE auth code for userID.
func (f *Fake) IssueCode(userID string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	code := fmt.Sprintf("code-%d", f.seq)
	f.codes[code] = userID
	return code
}

// RevokeRefresh invalidates every refresh token (simulates a revoked session).
func (f *Fake) RevokeRefresh() {
	f.mu.Lock()
	f.refresh = map[string]string{}
	f.mu.Unlock()
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func fail(w http.ResponseWriter, status int, code, msg string) {
	writeJSON(w, status, map[string]any{"code": status, "error_code": code, "msg": msg})
}

func (f *Fake) grant(u *user) map[string]any {
	exp := time.Now().Add(f.accessTTL)
	access, _ := f.Mint(u.ID, f.accessTTL)
	f.seq++
	rt := fmt.Sprintf("rt-%d", f.seq)
	f.refresh[rt] = u.ID
	return map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    int64(f.accessTTL / time.Second),
		"expires_at":    exp.Unix(),
		"refresh_token": rt,
		"user":          userJSON(u),
	}
}

func userJSON(u *user) map[string]any {
	return map[string]any{"id": u.ID, "email": u.Email, "user_metadata": u.Meta}
}

func (f *Fake) token(w http.ResponseWriter, r *http.Request) {
	f.Calls.Add(1)
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	switch r.URL.Query().Get("grant_type") {
	case "password":
		u, ok := f.users[body["email"]]
		if !ok || u.Password != body["password"] {
			fail(w, http.StatusBadRequest, "invalid_credentials", "Invalid login credentials")
			return
		}
		writeJSON(w, http.StatusOK, f.grant(u))
	case "refresh_token":
		f.Refreshs.Add(1)
		id, ok := f.refresh[body["refresh_token"]]
		if !ok {
			fail(w, http.StatusBadRequest, "refresh_token_not_found", "Invalid Refresh Token: Refresh Token Not Found")
			return
		}
		delete(f.refresh, body["refresh_token"])
		writeJSON(w, http.StatusOK, f.grant(f.byID[id]))
	case "pkce":
		id, ok := f.codes[body["auth_code"]]
		if !ok || body["code_verifier"] == "" {
			fail(w, http.StatusBadRequest, "bad_code_verifier", "invalid flow state, no valid flow state found")
			return
		}
		delete(f.codes, body["auth_code"])
		writeJSON(w, http.StatusOK, f.grant(f.byID[id]))
	default:
		fail(w, http.StatusBadRequest, "unsupported_grant_type", "unsupported grant type")
	}
}

func (f *Fake) signup(w http.ResponseWriter, r *http.Request) {
	f.Calls.Add(1)
	var body struct {
		Email    string         `json:"email"`
		Password string         `json:"password"`
		Data     map[string]any `json:"data"`
	}
	_ = json.NewDecoder(r.Body).Decode(&body)

	f.mu.Lock()
	defer f.mu.Unlock()
	if _, dup := f.users[body.Email]; dup {
		fail(w, http.StatusUnprocessableEntity, "user_already_exists", "User already registered")
		return
	}
	if len(body.Password) < 6 {
		fail(w, http.StatusUnprocessableEntity, "weak_password", "Password should be at least 6 characters.")
		return
	}
	u := f.addLocked(body.Email, body.Password, body.Data)
	if f.autoConfirm {
		writeJSON(w, http.StatusOK, f.grant(u))
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (f *Fake) subject(r *http.Request) (string, bool) {
	tok := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	if tok == "" || f.revoked[tok] {
		return "", false
	}
	// The fake trusts its own tokens; expiry is enforced by parsing the claims.
	claims, err := parseUnverified(tok)
	if err != nil {
		return "", false
	}
	if exp, ok := claims["exp"].(float64); !ok || time.Unix(int64(exp), 0).Before(time.Now()) {
		return "", false
	}
	sub, _ := claims["sub"].(string)
	return sub, sub != ""
}

func (f *Fake) user(w http.ResponseWriter, r *http.Request) {
	f.Calls.Add(1)
	if f.Block != nil {
		<-f.Block
	}
	if f.FailUser.Add(-1) >= 0 {
		fail(w, http.StatusServiceUnavailable, "unavailable", "upstream temporarily unavailable")
		return
	}
	f.FailUser.Store(0)
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subject(r)
	if !ok {
		fail(w, http.StatusUnauthorized, "bad_jwt", "invalid JWT: unable to parse or verify signature, token is expired")
		return
	}
	u, ok := f.byID[sub]
	if !ok {
		fail(w, http.StatusNotFound, "user_not_found", "User not found")
		return
	}
	writeJSON(w, http.StatusOK, userJSON(u))
}

func (f *Fake) logout(w http.ResponseWriter, r *http.Request) {
	f.Calls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	tok := strings.TrimSpace(strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer "))
	f.revoked[tok] = true
	w.WriteHeader(http.StatusNoContent)
}
