package config

import (
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaultsWithoutFile(t *testing.T) {
	t.Setenv("SUPABASE_URL", "https://proj.supabase.co/")
	t.Setenv("DATABASE_URL", "")

	c, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	require.Equal(t, ":8080", c.Server.Addr)
	require.Equal(t, "https://proj.supabase.co", c.Provider.URL)
	require.Equal(t, []string{"frontend", "exp"}, c.Client.DeepLinkSchemes)
	require.Equal(t, "memory", c.Cache.Kind)
	require.Equal(t, "rest", c.Profile.Source)
	require.Equal(t, 5*time.Minute, Dur(c.Provider.JWKSTTL, 0))
	require.False(t, c.AI.DailyLimit)
}

func TestEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
ai:
  model: from-yaml
client:
  deeplink_schemes: [myapp]
`), 0o600))

	t.Setenv("GEMINI_MODEL", "from-env")
	t.Setenv("AI_DAILY_LIMIT_ENABLED", "true")

	c, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9000", c.Server.Addr)
	require.Equal(t, "from-env", c.AI.Model)
	require.True(t, c.AI.DailyLimit)
	require.Equal(t, []string{"myapp"}, c.Client.DeepLinkSchemes)
}

func TestValidateRejectsBadValues(t *testing.T) {
	t.Setenv("CACHE_KIND", "memcached")
	_, err := Load("")
	require.Error(t, err)
}

func TestValidateWebPlatformNeedsOrigin(t *testing.T) {
	t.Setenv("AUTH_PLATFORM", "web")
	_, err := Load("")
	require.ErrorContains(t, err, "AUTH_WEB_ORIGIN")
}

func TestSessionKeyBytes(t *testing.T) {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	t.Setenv("SESSION_KEY", base64.StdEncoding.EncodeToString(key))
	c, err := Load("")
	require.NoError(t, err)
	got, err := c.SessionKeyBytes()
	require.NoError(t, err)
	require.Equal(t, key, got)

	t.Setenv("SESSION_KEY", base64.StdEncoding.EncodeToString([]byte("short")))
	_, err = Load("")
	require.Error(t, err)
}
