package jwt

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/elliptic"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"strings"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/creatorverse/internal/metrics"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

const (
	DefaultKeySetTTL  = 5 * time.Minute
	DefaultMinRefresh = 30 * time.Second
	keySetCacheKey    = "jwks"
	maxJWKSBodyBytes  = 1 << 20
	fetchTimeout      = 10 * time.Second
)

// KeySource resuelve la clave pública para un kid.
type KeySource interface {
	Key(ctx context.Context, kid string) (crypto.PublicKey, error)
}

// KeySetConfig configura RemoteKeySet.
type KeySetConfig struct {
	URL string
	// TTL del set cacheado. Default 5m.
	TTL time.Duration
	// MinRefresh es el intervalo mínimo entre re-fetch forzados por kid desconocido. Default 30s.
	MinRefresh time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

type rawJWK struct {
	Kty string `json:"kty"`
	Kid string `json:"kid"`
	Alg string `json:"alg"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
	Crv string `json:"crv"`
	X   string `json:"x"`
	Y   string `json:"y"`
}

type rawJWKS struct {
	Keys []rawJWK `json:"keys"`
}

// parsedKeys es el set decodificado, indexado por kid.
type parsedKeys map[string]crypto.PublicKey

// RemoteKeySet descarga y cachea el JWKS del provider. Solo se cachea el set de
// claves; nunca el resultado de una verificación.
type RemoteKeySet struct {
	url        string
	ttl        time.Duration
	minRefresh time.Duration
	http       *http.Client
	log        *zap.Logger

	cache *gocache.Cache
	group singleflight.Group

	mu        sync.Mutex
	etag      string
	last      parsedKeys
	lastFetch time.Time
}

func NewRemoteKeySet(cfg KeySetConfig) *RemoteKeySet {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultKeySetTTL
	}
	if cfg.MinRefresh <= 0 {
		cfg.MinRefresh = DefaultMinRefresh
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &RemoteKeySet{
		url:        cfg.URL,
		ttl:        cfg.TTL,
		minRefresh: cfg.MinRefresh,
		http:       cfg.HTTPClient,
		log:        logger.OrGlobal(cfg.Logger, "jwks"),
		cache:      gocache.New(cfg.TTL, time.Minute),
	}
}

// Key devuelve la clave para kid. Si el kid no está en el set cacheado se fuerza
// un re-fetch (a lo sumo uno cada MinRefresh) para cubrir rotaciones.
// Con kid vacío se acepta el set solo si tiene exactamente una clave.
func (s *RemoteKeySet) Key(ctx context.Context, kid string) (crypto.PublicKey, error) {
	keys, err := s.keys(ctx, false)
	if err != nil {
		return nil, err
	}
	if k, ok := pick(keys, kid); ok {
		return k, nil
	}
	if !s.canForceRefresh() {
		return nil, fmt.Errorf("%w: %q", ErrKidNotFound, kid)
	}
	keys, err = s.keys(ctx, true)
	if err != nil {
		return nil, err
	}
	if k, ok := pick(keys, kid); ok {
		return k, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrKidNotFound, kid)
}

// Ping fuerza una carga (usada por readyz). Respeta el cache.
func (s *RemoteKeySet) Ping(ctx context.Context) error {
	_, err := s.keys(ctx, false)
	return err
}

func pick(keys parsedKeys, kid string) (crypto.PublicKey, bool) {
	if kid == "" {
		if len(keys) == 1 {
			for _, k := range keys {
				return k, true
			}
		}
		return nil, false
	}
	k, ok := keys[kid]
	return k, ok
}

func (s *RemoteKeySet) canForceRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return time.Since(s.lastFetch) >= s.minRefresh
}

func (s *RemoteKeySet) keys(ctx context.Context, force bool) (parsedKeys, error) {
	if !force {
		if v, ok := s.cache.Get(keySetCacheKey); ok {
			return v.(parsedKeys), nil
		}
	}
	// el fetch compartido no depende del request que lo disparó: si ese cliente
	// se desconecta, los demás que esperan el mismo set no fallan
	ch := s.group.DoChan(keySetCacheKey, func() (any, error) {
		fctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fetchTimeout)
		defer cancel()
		return s.fetch(fctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(parsedKeys), nil
	}
}

func (s *RemoteKeySet) fetch(ctx context.Context) (parsedKeys, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	s.mu.Lock()
	etag, last := s.etag, s.last
	s.mu.Unlock()
	if etag != "" && last != nil {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		metrics.JWKSFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("jwks fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotModified && last != nil {
		metrics.JWKSFetchTotal.WithLabelValues("not_modified").Inc()
		s.store(last, etag)
		return last, nil
	}
	if resp.StatusCode/100 != 2 {
		metrics.JWKSFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("jwks http %d", resp.StatusCode)
	}

	var doc rawJWKS
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxJWKSBodyBytes)).Decode(&doc); err != nil {
		metrics.JWKSFetchTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("jwks decode: %w", err)
	}
	keys := make(parsedKeys, len(doc.Keys))
	for _, k := range doc.Keys {
		if k.Use != "" && k.Use != "sig" {
			continue
		}
		pub, err := parseJWK(k)
		if err != nil {
			s.log.Debug("skipping jwk", logger.Kid(k.Kid), logger.Err(err))
			continue
		}
		keys[k.Kid] = pub
	}
	if len(keys) == 0 {
		metrics.JWKSFetchTotal.WithLabelValues("error").Inc()
		return nil, errors.New("jwks has no usable signing keys")
	}

	metrics.JWKSFetchTotal.WithLabelValues("ok").Inc()
	s.store(keys, resp.Header.Get("ETag"))
	s.log.Debug("jwks loaded", logger.Count(len(keys)))
	return keys, nil
}

func (s *RemoteKeySet) store(keys parsedKeys, etag string) {
	s.mu.Lock()
	s.last = keys
	s.etag = etag
	s.lastFetch = time.Now()
	s.mu.Unlock()
	s.cache.Set(keySetCacheKey, keys, s.ttl)
}

func parseJWK(k rawJWK) (crypto.PublicKey, error) {
	switch strings.ToUpper(k.Kty) {
	case "RSA":
		nb, err := base64.RawURLEncoding.DecodeString(k.N)
		if err != nil {
			return nil, fmt.Errorf("rsa n: %w", err)
		}
		eb, err := base64.RawURLEncoding.DecodeString(k.E)
		if err != nil {
			return nil, fmt.Errorf("rsa e: %w", err)
		}
		e := 65537
		if len(eb) > 0 {
			e = 0
			for _, b := range eb {
				e = (e << 8) | int(b)
			}
		}
		return &rsa.PublicKey{N: new(big.Int).SetBytes(nb), E: e}, nil

	case "EC":
		var curve elliptic.Curve
		switch k.Crv {
		case "P-256":
			curve = elliptic.P256()
		case "P-384":
			curve = elliptic.P384()
		case "P-521":
			curve = elliptic.P521()
		default:
			return nil, fmt.Errorf("unsupported curve %q", k.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			return nil, fmt.Errorf("ec x: %w", err)
		}
		yb, err := base64.RawURLEncoding.DecodeString(k.Y)
		if err != nil {
			return nil, fmt.Errorf("ec y: %w", err)
		}
		x, y := new(big.Int).SetBytes(xb), new(big.Int).SetBytes(yb)
		if !curve.IsOnCurve(x, y) {
			return nil, errors.New("ec point not on curve")
		}
		return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil

	case "OKP":
		if k.Crv != "Ed25519" {
			return nil, fmt.Errorf("unsupported okp curve %q", k.Crv)
		}
		xb, err := base64.RawURLEncoding.DecodeString(k.X)
		if err != nil {
			return nil, fmt.Errorf("okp x: %w", err)
		}
		if len(xb) != ed25519.PublicKeySize {
			return nil, errors.New("bad ed25519 key size")
		}
		return ed25519.PublicKey(xb), nil
	}
	return nil, fmt.Errorf("unsupported kty %q", k.Kty)
}
