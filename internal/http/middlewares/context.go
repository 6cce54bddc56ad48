package middlewares

import (
	"context"

	"github.com/dropDatabas3/creatorverse/internal/http/helpers"
	"github.com/dropDatabas3/creatorverse/internal/jwt"
)

type ctxKey string

const (
	ctxRequestIDKey ctxKey = "mw.request_id"
	ctxClaimsKey    ctxKey = "mw.claims"
	ctxBodyKey      ctxKey = "mw.body"
	ctxTokenKey     ctxKey = "mw.token"
)

// =================================================================================
// REQUEST ID
// =================================================================================

func WithRequestIDValue(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxRequestIDKey, id)
}

// GetRequestID obtiene el request ID del contexto.
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(ctxRequestIDKey).(string)
	return v
}

// =================================================================================
// CLAIMS
// =================================================================================

// SetClaims guarda las claims verificadas. Viven lo que dura el request.
func SetClaims(ctx context.Context, c *jwt.VerifiedClaims) context.Context {
	return context.WithValue(ctx, ctxClaimsKey, c)
}

// GetClaims obtiene las claims verificadas; nil si el request no pasó por RequireAuth.
func GetClaims(ctx context.Context) *jwt.VerifiedClaims {
	c, _ := ctx.Value(ctxClaimsKey).(*jwt.VerifiedClaims)
	return c
}

// SetToken guarda el bearer crudo ya verificado (para reenviarlo al repositorio REST).
func SetToken(ctx context.Context, tok string) context.Context {
	return context.WithValue(ctx, ctxTokenKey, tok)
}

func GetToken(ctx context.Context) string {
	v, _ := ctx.Value(ctxTokenKey).(string)
	return v
}

// GetUserID es el sub de las claims verificadas.
func GetUserID(ctx context.Context) string {
	if c := GetClaims(ctx); c != nil {
		return c.Subject
	}
	return ""
}

// MustGetClaims obtiene las claims o hace panic (bug de wiring: falta RequireAuth).
func MustGetClaims(ctx context.Context) *jwt.VerifiedClaims {
	c := GetClaims(ctx)
	if c == nil {
		panic("claims not found in context: RequireAuth middleware missing")
	}
	return c
}

// =================================================================================
// BODY
// =================================================================================

// SetBody guarda el body JSON ya parseado para que el controller no relea r.Body.
func SetBody(ctx context.Context, o helpers.Object) context.Context {
	return context.WithValue(ctx, ctxBodyKey, o)
}

// GetBody obtiene el body parseado por RequireAuth; nil si no se leyó.
func GetBody(ctx context.Context) helpers.Object {
	o, _ := ctx.Value(ctxBodyKey).(helpers.Object)
	return o
}
