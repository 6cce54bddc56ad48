package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config es la configuración de gateway y cliente. Se arma desde un YAML opcional
// y después se pisa con variables de entorno (las env siempre ganan).
type Config struct {
	App struct {
		// dev | staging | prod
		Env      string `yaml:"env"`
		LogLevel string `yaml:"log_level"`
	} `yaml:"app"`

	Server struct {
		Addr               string   `yaml:"addr"`
		CORSAllowedOrigins []string `yaml:"cors_allowed_origins"`
		ReadTimeout        string   `yaml:"read_timeout"`
		WriteTimeout       string   `yaml:"write_timeout"`
	} `yaml:"server"`

	// Provider es el identity provider (Supabase GoTrue + PostgREST).
	Provider struct {
		URL     string `yaml:"url"`
		AnonKey string `yaml:"anon_key"`
		// JWKS cache
		JWKSTTL        string `yaml:"jwks_ttl"`
		JWKSMinRefresh string `yaml:"jwks_min_refresh"`
		HTTPTimeout    string `yaml:"http_timeout"`
	} `yaml:"provider"`

	AI struct {
		APIKey  string `yaml:"api_key"`
		Model   string `yaml:"model"`
		BaseURL string `yaml:"base_url"`
		Timeout string `yaml:"timeout"`
		// DailyLimit habilita el límite de 1 generación por día por feature/usuario.
		DailyLimit bool `yaml:"daily_limit"`
	} `yaml:"ai"`

	Cache struct {
		Kind  string `yaml:"kind"` // memory | redis
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
			Prefix   string `yaml:"prefix"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	Database struct {
		URL      string `yaml:"url"`
		MaxConns int32  `yaml:"max_conns"`
	} `yaml:"database"`

	Profile struct {
		// rest | postgres | none
		Source string `yaml:"source"`
	} `yaml:"profile"`

	Rate struct {
		Enabled     bool   `yaml:"enabled"`
		Window      string `yaml:"window"`
		MaxRequests int    `yaml:"max_requests"`
	} `yaml:"rate"`

	// Client agrupa lo que usa el lado app (creatorctl): deep links, redirect y sesión local.
	Client struct {
		DeepLinkSchemes []string `yaml:"deeplink_schemes"`
		Platform        string   `yaml:"platform"` // native | web
		WebOrigin       string   `yaml:"web_origin"`
		RedirectScheme  string   `yaml:"redirect_scheme"`
		OAuthProvider   string   `yaml:"oauth_provider"`
		Flow            string   `yaml:"flow"` // implicit | pkce
		SessionFile     string   `yaml:"session_file"`
		SessionKey      string   `yaml:"session_key"` // base64, 32 bytes
		GatewayURL      string   `yaml:"gateway_url"`
	} `yaml:"client"`
}

// Load lee el YAML (si path != "" y existe), aplica defaults y overrides de env y valida.
func Load(path string) (*Config, error) {
	var c Config
	if path != "" {
		b, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(b, &c); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		case errors.Is(err, os.ErrNotExist):
			// sin archivo: solo env
		default:
			return nil, err
		}
	}
	c.applyEnvOverrides()
	c.applyDefaults()
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.App.Env == "" {
		c.App.Env = "dev"
	}
	if c.App.LogLevel == "" {
		c.App.LogLevel = "info"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if len(c.Server.CORSAllowedOrigins) == 0 {
		c.Server.CORSAllowedOrigins = []string{"*"}
	}
	if c.Server.ReadTimeout == "" {
		c.Server.ReadTimeout = "15s"
	}
	if c.Server.WriteTimeout == "" {
		// generate-ideas puede tardar bastante
		c.Server.WriteTimeout = "120s"
	}
	if c.Provider.JWKSTTL == "" {
		c.Provider.JWKSTTL = "5m"
	}
	if c.Provider.JWKSMinRefresh == "" {
		c.Provider.JWKSMinRefresh = "30s"
	}
	if c.Provider.HTTPTimeout == "" {
		c.Provider.HTTPTimeout = "10s"
	}
	if c.AI.Model == "" {
		c.AI.Model = "gemini-2.5-flash"
	}
	if c.AI.BaseURL == "" {
		c.AI.BaseURL = "https://generativelanguage.googleapis.com"
	}
	if c.AI.Timeout == "" {
		c.AI.Timeout = "90s"
	}
	if c.Cache.Kind == "" {
		c.Cache.Kind = "memory"
	}
	if c.Cache.Redis.Addr == "" {
		c.Cache.Redis.Addr = "localhost:6379"
	}
	if c.Cache.Redis.Prefix == "" {
		c.Cache.Redis.Prefix = "creatorverse:"
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 10
	}
	if c.Profile.Source == "" {
		if c.Database.URL != "" {
			c.Profile.Source = "postgres"
		} else {
			c.Profile.Source = "rest"
		}
	}
	if c.Rate.Window == "" {
		c.Rate.Window = "1m"
	}
	if c.Rate.MaxRequests == 0 {
		c.Rate.MaxRequests = 20
	}
	if len(c.Client.DeepLinkSchemes) == 0 {
		c.Client.DeepLinkSchemes = []string{"frontend", "exp"}
	}
	if c.Client.Platform == "" {
		c.Client.Platform = "native"
	}
	if c.Client.RedirectScheme == "" {
		c.Client.RedirectScheme = "frontend"
	}
	if c.Client.OAuthProvider == "" {
		c.Client.OAuthProvider = "google"
	}
	if c.Client.Flow == "" {
		c.Client.Flow = "implicit"
	}
	if c.Client.GatewayURL == "" {
		c.Client.GatewayURL = "http://localhost:8080"
	}
}

// Validate chequea valores enumerados y duraciones. No exige credenciales:
// cada comando decide qué necesita (el gateway responde 500 si falta GEMINI_API_KEY).
func (c *Config) Validate() error {
	for name, v := range map[string]string{
		"server.read_timeout":       c.Server.ReadTimeout,
		"server.write_timeout":      c.Server.WriteTimeout,
		"provider.jwks_ttl":         c.Provider.JWKSTTL,
		"provider.jwks_min_refresh": c.Provider.JWKSMinRefresh,
		"provider.http_timeout":     c.Provider.HTTPTimeout,
		"ai.timeout":                c.AI.Timeout,
		"rate.window":               c.Rate.Window,
	} {
		if _, err := time.ParseDuration(v); err != nil {
			return fmt.Errorf("config: invalid duration %s=%q", name, v)
		}
	}
	switch c.Cache.Kind {
	case "memory", "redis":
	default:
		return fmt.Errorf("config: cache.kind must be memory|redis, got %q", c.Cache.Kind)
	}
	switch c.Profile.Source {
	case "rest", "postgres", "none":
	default:
		return fmt.Errorf("config: profile.source must be rest|postgres|none, got %q", c.Profile.Source)
	}
	if c.Profile.Source == "postgres" && c.Database.URL == "" {
		return errors.New("config: profile.source=postgres requires DATABASE_URL")
	}
	switch c.Client.Platform {
	case "native", "web":
	default:
		return fmt.Errorf("config: client.platform must be native|web, got %q", c.Client.Platform)
	}
	if c.Client.Platform == "web" && c.Client.WebOrigin == "" {
		return errors.New("config: client.platform=web requires AUTH_WEB_ORIGIN")
	}
	switch c.Client.Flow {
	case "implicit", "pkce":
	default:
		return fmt.Errorf("config: client.flow must be implicit|pkce, got %q", c.Client.Flow)
	}
	if c.Provider.URL != "" {
		u, err := url.Parse(c.Provider.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("config: invalid SUPABASE_URL %q", c.Provider.URL)
		}
	}
	if c.Client.SessionKey != "" {
		if _, err := c.SessionKeyBytes(); err != nil {
			return err
		}
	}
	return nil
}

// Dur parsea una duración ya validada; si falla retorna def.
func Dur(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SessionKeyBytes decodifica SESSION_KEY (base64 estándar o url, 32 bytes).
func (c *Config) SessionKeyBytes() ([]byte, error) {
	s := strings.TrimSpace(c.Client.SessionKey)
	if s == "" {
		return nil, nil
	}
	b, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		b, err = base64.RawURLEncoding.DecodeString(s)
	}
	if err != nil {
		return nil, fmt.Errorf("config: SESSION_KEY is not base64: %w", err)
	}
	if len(b) != 32 {
		return nil, fmt.Errorf("config: SESSION_KEY must decode to 32 bytes, got %d", len(b))
	}
	return b, nil
}

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}

func (c *Config) applyEnvOverrides() {
	// APP
	if v, ok := getEnvStr("APP_ENV"); ok {
		c.App.Env = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.App.LogLevel = v
	}

	// SERVER
	if v, ok := getEnvStr("HTTP_ADDR"); ok {
		c.Server.Addr = v
	}
	if v, ok := getEnvCSV("CORS_ALLOWED_ORIGINS"); ok {
		c.Server.CORSAllowedOrigins = v
	}

	// PROVIDER
	if v, ok := getEnvStr("SUPABASE_URL"); ok {
		c.Provider.URL = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvStr("SUPABASE_ANON_KEY"); ok {
		c.Provider.AnonKey = v
	}
	if v, ok := getEnvStr("JWKS_TTL"); ok {
		c.Provider.JWKSTTL = v
	}
	if v, ok := getEnvStr("JWKS_MIN_REFRESH"); ok {
		c.Provider.JWKSMinRefresh = v
	}

	// AI
	if v, ok := getEnvStr("GEMINI_API_KEY"); ok {
		c.AI.APIKey = v
	}
	if v, ok := getEnvStr("GEMINI_MODEL"); ok {
		c.AI.Model = v
	}
	if v, ok := getEnvStr("GEMINI_BASE_URL"); ok {
		c.AI.BaseURL = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvBool("AI_DAILY_LIMIT_ENABLED"); ok {
		c.AI.DailyLimit = v
	}

	// CACHE
	if v, ok := getEnvStr("CACHE_KIND"); ok {
		c.Cache.Kind = strings.ToLower(v)
	}
	if v, ok := getEnvStr("REDIS_ADDR"); ok {
		c.Cache.Redis.Addr = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Cache.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Cache.Redis.DB = v
	}
	if v, ok := getEnvStr("REDIS_PREFIX"); ok {
		c.Cache.Redis.Prefix = v
	}

	// DATABASE / PROFILE
	if v, ok := getEnvStr("DATABASE_URL"); ok {
		c.Database.URL = v
	}
	if v, ok := getEnvInt("DATABASE_MAX_CONNS"); ok {
		c.Database.MaxConns = int32(v)
	}
	if v, ok := getEnvStr("PROFILE_SOURCE"); ok {
		c.Profile.Source = strings.ToLower(v)
	}

	// RATE
	if v, ok := getEnvBool("RATE_ENABLED"); ok {
		c.Rate.Enabled = v
	}
	if v, ok := getEnvStr("RATE_WINDOW"); ok {
		c.Rate.Window = v
	}
	if v, ok := getEnvInt("RATE_MAX_REQUESTS"); ok {
		c.Rate.MaxRequests = v
	}

	// CLIENT
	if v, ok := getEnvCSV("DEEPLINK_SCHEMES"); ok {
		c.Client.DeepLinkSchemes = v
	}
	if v, ok := getEnvStr("AUTH_PLATFORM"); ok {
		c.Client.Platform = strings.ToLower(v)
	}
	if v, ok := getEnvStr("AUTH_WEB_ORIGIN"); ok {
		c.Client.WebOrigin = strings.TrimRight(v, "/")
	}
	if v, ok := getEnvStr("AUTH_REDIRECT_SCHEME"); ok {
		c.Client.RedirectScheme = v
	}
	if v, ok := getEnvStr("AUTH_OAUTH_PROVIDER"); ok {
		c.Client.OAuthProvider = v
	}
	if v, ok := getEnvStr("AUTH_FLOW"); ok {
		c.Client.Flow = strings.ToLower(v)
	}
	if v, ok := getEnvStr("SESSION_FILE"); ok {
		c.Client.SessionFile = v
	}
	if v, ok := getEnvStr("SESSION_KEY"); ok {
		c.Client.SessionKey = v
	}
	if v, ok := getEnvStr("GATEWAY_URL"); ok {
		c.Client.GatewayURL = strings.TrimRight(v, "/")
	}
}
