package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "LOOKUP_MAX_PARALLEL", "REQUEST_REJECT_UNAUTHORIZED", "REQUEST_TIMEOUT"} {
		t.Setenv(key, "")
	}
	cfg, err := Load("", "")
	require.NoError(t, err)

	assert.Equal(t, DefaultMaxParallel, cfg.Lookup.MaxParallel)
	assert.Equal(t, DefaultAbuseURL, cfg.Lookup.AbuseURL)
	assert.Equal(t, DefaultPrefixURL, cfg.Lookup.PrefixURL)
	assert.Equal(t, DefaultWhoisServer, cfg.Lookup.WhoisServer)
	assert.Equal(t, DefaultPort, cfg.Server.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.True(t, cfg.Request.VerifyCertificates())
	assert.Zero(t, cfg.Request.Timeout)
}

func TestLoadYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
request:
  cert: /etc/abuse/client.pem
  key: /etc/abuse/client.key
  passphrase: hunter2
  ca: /etc/abuse/ca.pem
  proxy: http://proxy.internal:3128
  reject_unauthorized: false
  timeout: 15s
lookup:
  max_parallel: 4
  whois: true
server:
  port: "9090"
logging:
  level: debug
  format: console
`)
	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "/etc/abuse/client.pem", cfg.Request.Cert)
	assert.Equal(t, "/etc/abuse/client.key", cfg.Request.Key)
	assert.Equal(t, "hunter2", cfg.Request.Passphrase)
	assert.Equal(t, "/etc/abuse/ca.pem", cfg.Request.CA)
	assert.Equal(t, "http://proxy.internal:3128", cfg.Request.Proxy)
	assert.False(t, cfg.Request.VerifyCertificates())
	assert.Equal(t, 15*time.Second, cfg.Request.Timeout)
	assert.Equal(t, 4, cfg.Lookup.MaxParallel)
	assert.True(t, cfg.Lookup.Whois)
	assert.Equal(t, "9090", cfg.Server.Port)
	assert.Equal(t, "console", cfg.Logging.Format)
}

func TestEnvOverridesYAML(t *testing.T) {
	path := writeFile(t, "config.yaml", `
request:
  proxy: http://file-proxy:3128
lookup:
  max_parallel: 4
`)
	t.Setenv("REQUEST_PROXY", "http://env-proxy:8080")
	t.Setenv("LOOKUP_MAX_PARALLEL", "2")
	t.Setenv("REQUEST_REJECT_UNAUTHORIZED", "false")
	t.Setenv("PORT", "7000")

	cfg, err := Load(path, "")
	require.NoError(t, err)

	assert.Equal(t, "http://env-proxy:8080", cfg.Request.Proxy)
	assert.Equal(t, 2, cfg.Lookup.MaxParallel)
	assert.False(t, cfg.Request.VerifyCertificates())
	assert.Equal(t, "7000", cfg.Server.Port)
}

func TestBlankEnvIsIgnored(t *testing.T) {
	path := writeFile(t, "config.yaml", "request:\n  proxy: http://file-proxy:3128\n")
	t.Setenv("REQUEST_PROXY", "   ")

	cfg, err := Load(path, "")
	require.NoError(t, err)
	assert.Equal(t, "http://file-proxy:3128", cfg.Request.Proxy)
}

func TestLoadEnvFile(t *testing.T) {
	envPath := writeFile(t, "test.env", "LOG_LEVEL=warn\nLOOKUP_WHOIS=true\n")
	t.Cleanup(func() {
		os.Unsetenv("LOG_LEVEL")
		os.Unsetenv("LOOKUP_WHOIS")
	})

	cfg, err := Load("", envPath)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Lookup.Whois)
}

func TestLoadErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"), "")
		assert.ErrorContains(t, err, "failed to read config file")
	})
	t.Run("bad yaml", func(t *testing.T) {
		path := writeFile(t, "config.yaml", "request: [")
		_, err := Load(path, "")
		assert.ErrorContains(t, err, "failed to parse config file")
	})
	t.Run("bad bool", func(t *testing.T) {
		t.Setenv("REQUEST_REJECT_UNAUTHORIZED", "maybe")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "REQUEST_REJECT_UNAUTHORIZED")
	})
	t.Run("cert without key", func(t *testing.T) {
		t.Setenv("REQUEST_CERT", "/tmp/client.pem")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "must be set together")
	})
	t.Run("negative parallel", func(t *testing.T) {
		t.Setenv("LOOKUP_MAX_PARALLEL", "-1")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "max_parallel")
	})
	t.Run("bad format", func(t *testing.T) {
		t.Setenv("LOG_FORMAT", "xml")
		_, err := Load("", "")
		assert.ErrorContains(t, err, "logging.format")
	})
}
