package jwt

import (
	"regexp"
	"strings"
)

// Endpoints del identity provider derivados de su URL base.
type Endpoints struct {
	Issuer  string
	JWKSURL string
}

// ProviderEndpoints: issuer "<base>/auth/v1", JWKS "<base>/auth/v1/.well-known/jwks.json".
func ProviderEndpoints(baseURL string) Endpoints {
	iss := strings.TrimRight(strings.TrimSpace(baseURL), "/") + "/auth/v1"
	return Endpoints{Issuer: iss, JWKSURL: iss + "/.well-known/jwks.json"}
}

var bearerPrefix = regexp.MustCompile(`(?i)^bearer(\s+|$)`)

// BearerFromHeader extrae el token de "Authorization: Bearer <token>".
// El prefijo es case-insensitive y opcional: un header sin prefijo se toma
// completo como token (igual termina en Verify).
func BearerFromHeader(h string) string {
	h = strings.TrimSpace(h)
	if loc := bearerPrefix.FindStringIndex(h); loc != nil {
		h = h[loc[1]:]
	}
	return strings.TrimSpace(h)
}
