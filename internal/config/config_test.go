package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()
	require.Equal(t, DefaultWebPort, cfg.Web.ListenPort)
	require.Equal(t, DefaultAPIBaseURL, cfg.API.BaseURL)
	require.Equal(t, DefaultBackendPort, cfg.Backend.ListenPort)
	require.NoError(t, cfg.Validate())
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "widgets.yaml")
	data := []byte(`web:
  listen_port: 12000
api:
  base_url: http://backend.internal:9100
  timeout: 3s
backend:
  db_path: /tmp/w.sq3
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 12000, cfg.Web.ListenPort)
	require.Equal(t, "http://backend.internal:9100", cfg.API.BaseURL)
	require.Equal(t, 3*time.Second, cfg.API.Timeout)
	require.Equal(t, "/tmp/w.sq3", cfg.Backend.DBPath)
	// untouched keys keep their defaults
	require.Equal(t, DefaultBackendPort, cfg.Backend.ListenPort)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("WIDGETS_API_BASE_URL", "http://env-host:9000")
	t.Setenv("WIDGETS_WEB_LISTEN_PORT", "12345")

	cfg, err := Load("")
	require.NoError(t, err)
	require.Equal(t, "http://env-host:9000", cfg.API.BaseURL)
	require.Equal(t, 12345, cfg.Web.ListenPort)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*MainConfig)
	}{
		{"bad web port", func(c *MainConfig) { c.Web.ListenPort = 0 }},
		{"bad backend port", func(c *MainConfig) { c.Backend.ListenPort = 70000 }},
		{"empty base url", func(c *MainConfig) { c.API.BaseURL = "" }},
		{"ssl without cert", func(c *MainConfig) { c.Web.SSL = true }},
		{"admin without hash", func(c *MainConfig) { c.Web.AdminUser = "root" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			tc.mutate(cfg)
			require.Error(t, cfg.Validate())
		})
	}
}
