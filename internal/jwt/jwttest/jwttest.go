// Package jwttest levanta un identity provider falso para tests: genera una clave
// Ed25519 en memoria, publica su JWKS por httptest y firma tokens con el issuer
// "<base>/auth/v1".
package jwttest

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Provider es el issuer de prueba.
type Provider struct {
	Server *httptest.Server
	KID    string
	Priv   ed25519.PrivateKey
	Pub    ed25519.PublicKey

	// Extra permite montar más rutas (GoTrue, PostgREST) en el mismo server.
	Extra *http.ServeMux

	jwksHits atomic.Int64
	jti      atomic.Int64
}

// New arranca el server y registra su cierre en t.Cleanup.
func New(t testing.TB) *Provider {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	p := &Provider{KID: "test-kid", Priv: priv, Pub: pub, Extra: http.NewServeMux()}

	mux := http.NewServeMux()
	mux.HandleFunc("/auth/v1/.well-known/jwks.json", func(w http.ResponseWriter, r *http.Request) {
		p.jwksHits.Add(1)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(p.JWKSJSON())
	})
	mux.Handle("/", p.Extra)
	p.Server = httptest.NewServer(mux)
	t.Cleanup(p.Server.Close)
	return p
}

// BaseURL del provider (equivale a SUPABASE_URL).
func (p *Provider) BaseURL() string { return p.Server.URL }

// Issuer esperado por el verifier.
func (p *Provider) Issuer() string { return p.Server.URL + "/auth/v1" }

// JWKSURL publicado.
func (p *Provider) JWKSURL() string { return p.Issuer() + "/.well-known/jwks.json" }

// JWKSHits cuenta cuántas veces se pidió el JWKS.
func (p *Provider) JWKSHits() int64 { return p.jwksHits.Load() }

// JWKSJSON devuelve el JWKS (solo la pública).
func (p *Provider) JWKSJSON() []byte {
	b, _ := json.Marshal(map[string]any{
		"keys": []map[string]string{{
			"kty": "OKP",
			"crv": "Ed25519",
			"kid": p.KID,
			"alg": "EdDSA",
			"use": "sig",
			"x":   base64.RawURLEncoding.EncodeToString(p.Pub),
		}},
	})
	return b
}

// Token firma un access token para sub con el TTL dado (negativo = ya expirado).
func (p *Provider) Token(t testing.TB, sub string, ttl time.Duration) string {
	t.Helper()
	s, err := p.Mint(sub, ttl)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// Sign firma claims arbitrarias con la clave del provider.
func (p *Provider) Sign(t testing.TB, claims jwtv5.MapClaims) string {
	t.Helper()
	s, err := p.SignClaims(claims)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return s
}

// Mint es Token sin testing.TB (para handlers HTTP de fakes).
func (p *Provider) Mint(sub string, ttl time.Duration) (string, error) {
	now := time.Now()
	return p.SignClaims(jwtv5.MapClaims{
		"iss":   p.Issuer(),
		"sub":   sub,
		"aud":   "authenticated",
		"role":  "authenticated",
		"email": sub + "@example.com",
		"iat":   now.Unix(),
		"exp":   now.Add(ttl).Unix(),
		"jti":   strconv.FormatInt(p.jti.Add(1), 10),
	})
}

// SignClaims firma claims con kid = p.KID.
func (p *Provider) SignClaims(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = p.KID
	return tk.SignedString(p.Priv)
}
