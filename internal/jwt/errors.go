package jwt

import (
	"errors"

	"github.com/dropDatabas3/creatorverse/internal/util"
)

// Códigos de error del guard. Los clientes ramifican por Code, nunca por texto.
const (
	CodeNoToken      = "NO_TOKEN"
	CodeVerifyFailed = "JWT_VERIFY_FAILED"
)

// MaxDetailLen limita el detalle que viaja en la respuesta HTTP.
const MaxDetailLen = 200

var (
	ErrInvalidIssuer  = errors.New("invalid issuer")
	ErrMissingSubject = errors.New("missing sub claim")
	ErrKidNotFound    = errors.New("kid not found in jwks")
)

// AuthError es el único error que devuelve Verify.
// Detail va truncado a MaxDetailLen; Err conserva la causa completa para logs.
type AuthError struct {
	Code   string
	Detail string
	Err    error
}

func (e *AuthError) Error() string {
	if e.Detail == "" {
		return e.Code
	}
	return e.Code + ": " + e.Detail
}

func (e *AuthError) Unwrap() error { return e.Err }

func noToken() *AuthError {
	return &AuthError{Code: CodeNoToken, Detail: "missing bearer token"}
}

func verifyFailed(err error) *AuthError {
	return &AuthError{Code: CodeVerifyFailed, Detail: util.Truncate(err.Error(), MaxDetailLen), Err: err}
}

// IsNoToken reporta si err es un AuthError con código NO_TOKEN.
func IsNoToken(err error) bool {
	var ae *AuthError
	return errors.As(err, &ae) && ae.Code == CodeNoToken
}
