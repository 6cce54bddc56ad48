// Package deeplink is the validation gate for redirect URLs handed back by the OS.
//
// Tokens can only be read from a ValidatedURL, and Validate is the only way to
// obtain one, so a URL whose scheme is not allow-listed never reaches token extraction.
package deeplink

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/dropDatabas3/creatorverse/internal/domain/types"
	"github.com/dropDatabas3/creatorverse/internal/validation"
)

// DefaultAllowedSchemes: the app scheme plus the dev-tool scheme used in local testing.
var DefaultAllowedSchemes = []string{"frontend", "exp"}

// Reasons reported by ValidationError.
const (
	ReasonMalformed        = "malformed"
	ReasonMissingScheme    = "missing_scheme"
	ReasonSchemeNotAllowed = "scheme_not_allowed"
)

// ValidationError describes a rejected redirect URL. It carries the scheme only:
// the URL itself may contain tokens and must not end up in logs.
type ValidationError struct {
	Scheme string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Scheme == "" {
		return "deeplink: " + e.Reason
	}
	return fmt.Sprintf("deeplink: %s (scheme %q)", e.Reason, e.Scheme)
}

// ValidatedURL is a redirect URL whose scheme passed the allow-list.
// The zero value holds no URL and yields no tokens.
type ValidatedURL struct {
	u *url.URL
}

// Scheme returns the lowercased scheme.
func (v ValidatedURL) Scheme() string {
	if v.u == nil {
		return ""
	}
	return strings.ToLower(v.u.Scheme)
}

func (v ValidatedURL) String() string {
	if v.u == nil {
		return ""
	}
	return v.u.String()
}

// Param returns a named redirect parameter (code, error, error_description, ...)
// from the same source ParseAuthTokens reads: the fragment if present, else the query.
func (v ValidatedURL) Param(name string) string {
	vals, ok := redirectParams(v.u)
	if !ok {
		return ""
	}
	return vals.Get(name)
}

// Validate parses raw and checks its scheme against allowed (case-insensitive).
// A nil or empty allow-list means DefaultAllowedSchemes.
func Validate(raw string, allowed []string) (ValidatedURL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ValidatedURL{}, &ValidationError{Reason: ReasonMalformed}
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ValidatedURL{}, &ValidationError{Reason: ReasonMalformed}
	}
	if u.Scheme == "" {
		return ValidatedURL{}, &ValidationError{Reason: ReasonMissingScheme}
	}
	scheme := strings.ToLower(u.Scheme)
	if !schemeAllowed(scheme, allowed) {
		return ValidatedURL{}, &ValidationError{Scheme: scheme, Reason: ReasonSchemeNotAllowed}
	}
	return ValidatedURL{u: u}, nil
}

// IsValidDeepLink reports whether raw parses and its scheme is allow-listed. Never panics.
func IsValidDeepLink(raw string, allowed []string) bool {
	_, err := Validate(raw, allowed)
	return err == nil
}

// ParseAuthTokens extracts access_token / refresh_token from a validated redirect.
// Absent tokens come back empty; a parse failure yields an empty pair.
func ParseAuthTokens(v ValidatedURL) types.TokenPair {
	return extractTokens(v.u)
}

func schemeAllowed(scheme string, allowed []string) bool {
	list := allowed
	if len(list) == 0 {
		list = DefaultAllowedSchemes
	}
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), scheme) && validation.ValidSchemeName(s) {
			return true
		}
	}
	return false
}

func extractTokens(u *url.URL) types.TokenPair {
	vals, ok := redirectParams(u)
	if !ok {
		return types.TokenPair{}
	}
	return types.TokenPair{
		AccessToken:  vals.Get("access_token"),
		RefreshToken: vals.Get("refresh_token"),
	}
}

// redirectParams parses the fragment when non-empty, otherwise the query.
func redirectParams(u *url.URL) (url.Values, bool) {
	if u == nil {
		return nil, false
	}
	src := u.EscapedFragment()
	if src == "" {
		src = u.RawQuery
	}
	if src == "" {
		return url.Values{}, true
	}
	// ParseQuery devuelve los pares válidos aunque alguno esté mal codificado;
	// un parámetro ajeno roto no invalida los tokens.
	vals, _ := url.ParseQuery(src)
	return vals, true
}
