package auth

import (
	"strings"

	"github.com/dropDatabas3/creatorverse/internal/deeplink"
)

const (
	PlatformNative = "native"
	PlatformWeb    = "web"

	FlowImplicit = "implicit"
	FlowPKCE     = "pkce"
)

type Config struct {
	// Platform decide el redirect: web usa WebOrigin, native el scheme propio.
	Platform       string
	WebOrigin      string
	RedirectScheme string
	OAuthProvider  string
	Flow           string
	// AllowedSchemes para los deep links; vacío = deeplink.DefaultAllowedSchemes.
	AllowedSchemes []string
}

func (c Config) withDefaults() Config {
	if c.Platform == "" {
		c.Platform = PlatformNative
	}
	if c.RedirectScheme == "" {
		c.RedirectScheme = "frontend"
	}
	if c.OAuthProvider == "" {
		c.OAuthProvider = "google"
	}
	if c.Flow == "" {
		c.Flow = FlowImplicit
	}
	if len(c.AllowedSchemes) == 0 {
		c.AllowedSchemes = deeplink.DefaultAllowedSchemes
	}
	return c
}

// RedirectURI es el redirect_to que se manda al provider.
func (c Config) RedirectURI() string {
	c = c.withDefaults()
	if c.Platform == PlatformWeb {
		return strings.TrimRight(c.WebOrigin, "/") + "/"
	}
	return c.RedirectScheme + "://auth"
}
