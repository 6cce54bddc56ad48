package jwt

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/dropDatabas3/creatorverse/internal/metrics"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
)

// Algoritmos asimétricos aceptados. HS* queda afuera: no hay secreto compartido.
var validMethods = []string{"RS256", "RS384", "RS512", "ES256", "ES384", "ES512", "EdDSA"}

// VerifiedClaims vive lo que dura un request; nunca se persiste.
type VerifiedClaims struct {
	Subject   string
	Issuer    string
	ExpiresAt time.Time
	Email     string
	Role      string
	Raw       map[string]any
}

type VerifierConfig struct {
	Keys   KeySource
	Issuer string
	// Leeway tolerado en exp/nbf. Default 0.
	Leeway time.Duration
	Logger *zap.Logger
	// Now reemplaza el reloj (tests).
	Now func() time.Time
}

// Verifier valida firma, iss y exp de un bearer contra el JWKS del provider.
type Verifier struct {
	keys   KeySource
	issuer string
	leeway time.Duration
	log    *zap.Logger
	now    func() time.Time
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Verifier{
		keys:   cfg.Keys,
		issuer: cfg.Issuer,
		leeway: cfg.Leeway,
		log:    logger.OrGlobal(cfg.Logger, "jwt"),
		now:    cfg.Now,
	}
}

// Issuer esperado.
func (v *Verifier) Issuer() string { return v.issuer }

// Verify devuelve las claims o un *AuthError. Un token vacío falla con NO_TOKEN sin
// tocar la red; cualquier otra falla colapsa en JWT_VERIFY_FAILED.
func (v *Verifier) Verify(ctx context.Context, bearer string) (*VerifiedClaims, error) {
	token := strings.TrimSpace(bearer)
	if token == "" {
		metrics.JWTVerifyTotal.WithLabelValues("no_token").Inc()
		return nil, noToken()
	}

	claims, err := v.parse(ctx, token)
	if err != nil {
		metrics.JWTVerifyTotal.WithLabelValues("failed").Inc()
		logger.From(ctx).Info("jwt verification failed",
			logger.Component("jwt"), logger.Issuer(v.issuer), logger.Err(err))
		return nil, verifyFailed(err)
	}
	metrics.JWTVerifyTotal.WithLabelValues("ok").Inc()
	return claims, nil
}

func (v *Verifier) parse(ctx context.Context, token string) (*VerifiedClaims, error) {
	if v.keys == nil {
		return nil, errors.New("no key source configured")
	}
	keyfunc := func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		return v.keys.Key(ctx, kid)
	}

	opts := []jwtv5.ParserOption{
		jwtv5.WithValidMethods(validMethods),
		jwtv5.WithExpirationRequired(),
		jwtv5.WithTimeFunc(v.now),
	}
	if v.issuer != "" {
		opts = append(opts, jwtv5.WithIssuer(v.issuer))
	}
	if v.leeway > 0 {
		opts = append(opts, jwtv5.WithLeeway(v.leeway))
	}

	mc := jwtv5.MapClaims{}
	tok, err := jwtv5.ParseWithClaims(token, mc, keyfunc, opts...)
	if err != nil {
		if errors.Is(err, jwtv5.ErrTokenInvalidIssuer) {
			iss, _ := mc["iss"].(string)
			return nil, fmt.Errorf("%w: %q", ErrInvalidIssuer, iss)
		}
		return nil, err
	}
	if !tok.Valid {
		return nil, errors.New("invalid token")
	}

	sub, _ := mc["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, ErrMissingSubject
	}
	out := &VerifiedClaims{
		Subject: sub,
		Issuer:  strClaim(mc, "iss"),
		Email:   strClaim(mc, "email"),
		Role:    strClaim(mc, "role"),
		Raw:     make(map[string]any, len(mc)),
	}
	if exp, err := mc.GetExpirationTime(); err == nil && exp != nil {
		out.ExpiresAt = exp.Time
	}
	for k, val := range mc {
		out.Raw[k] = val
	}
	return out, nil
}

func strClaim(m jwtv5.MapClaims, k string) string {
	s, _ := m[k].(string)
	return s
}
