package middlewares

import (
	"context"
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/dropDatabas3/creatorverse/internal/http/errors"
	"github.com/dropDatabas3/creatorverse/internal/http/helpers"
	"github.com/dropDatabas3/creatorverse/internal/jwt"
	"github.com/dropDatabas3/creatorverse/internal/observability/logger"
	"github.com/dropDatabas3/creatorverse/internal/util"
)

// TokenVerifier es lo que RequireAuth necesita de jwt.Verifier.
type TokenVerifier interface {
	Verify(ctx context.Context, bearer string) (*jwt.VerifiedClaims, error)
}

// AuthConfig configura RequireAuth.
type AuthConfig struct {
	Verifier TokenVerifier
	// ReadBody parsea el body como objeto JSON (400 si no lo es) y acepta el token
	// en "access_token", que gana sobre el header Authorization.
	ReadBody bool
	// Gate corre después de tener token y antes de verificarlo (p.ej. 500 si falta
	// la API key de IA). Un error se escribe tal cual.
	Gate func(r *http.Request) error
}

// RequireAuth verifica el bearer y deja las claims en el contexto. Orden de fallas:
// body inválido (400), sin token (401 NO_TOKEN), Gate, firma/iss/exp (401 JWT_VERIFY_FAILED).
func RequireAuth(cfg AuthConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			var token string
			if cfg.ReadBody {
				body, err := helpers.ReadJSONObject(w, r, helpers.MaxBodyBytes)
				if err != nil {
					errors.WriteError(w, err)
					return
				}
				ctx = SetBody(ctx, body)
				token = strings.TrimSpace(body.String("access_token"))
			}
			if token == "" {
				token = jwt.BearerFromHeader(r.Header.Get("Authorization"))
			}
			if token == "" {
				errors.WriteError(w, errors.ErrNoToken)
				return
			}

			if cfg.Gate != nil {
				if err := cfg.Gate(r); err != nil {
					errors.WriteError(w, err)
					return
				}
			}

			if cfg.Verifier == nil {
				errors.WriteError(w, errors.ErrServerConfig)
				return
			}
			claims, err := cfg.Verifier.Verify(ctx, token)
			if err != nil {
				errors.WriteError(w, verifyError(err))
				return
			}

			ctx = SetClaims(ctx, claims)
			ctx = SetToken(ctx, token)
			ctx = logger.ToContext(ctx, logger.From(ctx).With(logger.UserID(claims.Subject)))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func verifyError(err error) *errors.AppError {
	var ae *jwt.AuthError
	if stderrors.As(err, &ae) {
		if ae.Code == jwt.CodeNoToken {
			return errors.ErrNoToken.WithCause(err)
		}
		return errors.ErrInvalidToken.WithDetail(ae.Detail).WithCause(err)
	}
	return errors.ErrInvalidToken.WithDetail(util.Truncate(err.Error(), jwt.MaxDetailLen)).WithCause(err)
}
