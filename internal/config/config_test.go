package config_test

import (
	"io/fs"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lwmacct/251207-go-pkg-secmap/internal/config"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/confdir"
	"github.com/lwmacct/251207-go-pkg-secmap/pkg/secmap"
)

func load(t *testing.T, overrides map[string]string) (*config.Config, error) {
	t.Helper()

	h, err := confdir.New(t.TempDir(),
		confdir.WithDefaults(config.Defaults()),
		confdir.WithOverrides(overrides),
		confdir.WithVariable("version", "v1.2.3"),
	)
	require.NoError(t, err)

	m, err := h.Load(config.FileName)
	require.NoError(t, err)

	return secmap.Bind[config.Config](m, "")
}

func TestDefaults_ContainsSettings(t *testing.T) {
	content, err := fs.ReadFile(config.Defaults(), config.FileName)
	require.NoError(t, err)
	assert.Contains(t, string(content), "server:")
}

func TestConfig_BundledDefaults(t *testing.T) {
	cfg, err := load(t, nil)
	require.NoError(t, err)

	assert.Equal(t, ":40117", cfg.Server.Addr)
	assert.Equal(t, 15*time.Second, cfg.Server.Timeout)
	assert.Equal(t, 60*time.Second, cfg.Server.Idletime)
	assert.Equal(t, "http://localhost:40117", cfg.Client.URL)
	assert.Equal(t, 3, cfg.Client.Retries)
	assert.Equal(t, config.LevelInfo, cfg.Log.Level)
	assert.Equal(t, config.FormatText, cfg.Log.Format)
	assert.Equal(t, "secmap v1.2.3 is serving World", cfg.Banner.String())

	assert.Equal(t, []string{"hello", "teapot"}, cfg.Endpoints.Keys())
	hello, ok := cfg.Endpoints.Get("hello")
	require.True(t, ok)
	assert.Equal(t, 200, hello.Status)
	assert.Equal(t, "text/plain; charset=utf-8", hello.ContentType)
	assert.Equal(t, "Hello, World!", hello.Body.String())

	teapot, ok := cfg.Endpoints.Get("teapot")
	require.True(t, ok)
	assert.Equal(t, 418, teapot.Status)
	assert.Equal(t, "I'm a teapot brewed by secmap", teapot.Body.String())
}

func TestConfig_Overrides(t *testing.T) {
	cfg, err := load(t, map[string]string{
		"log.level":      "warn",
		"log.format":     "JSON",
		"sLut.audience":  "Gophers",
		"client.retries": "0",
	})
	require.NoError(t, err)

	assert.Equal(t, config.LevelWarn, cfg.Log.Level)
	assert.Equal(t, config.FormatJSON, cfg.Log.Format)
	assert.Equal(t, 0, cfg.Client.Retries)
	assert.Equal(t, "secmap v1.2.3 is serving Gophers", cfg.Banner.String())
}

func TestConfig_Validation(t *testing.T) {
	testCases := []struct {
		name      string
		overrides map[string]string
		want      string
	}{
		{
			name:      "non-positive timeout",
			overrides: map[string]string{"server.timeout": "0s"},
			want:      "timeouts must be positive, got timeout=0s idletime=1m0s (at path 'server')",
		},
		{
			name:      "negative retries",
			overrides: map[string]string{"client.retries": "-1"},
			want:      "retries must not be negative, got -1 (at path 'client')",
		},
		{
			name:      "unknown log level",
			overrides: map[string]string{"log.level": "loud"},
			want:      `value "loud" was not one of DEBUG, INFO, WARN, ERROR (at path 'log.level') (at path 'log')`,
		},
		{
			name:      "invalid endpoint status",
			overrides: map[string]string{"endpoints.hello.status": "42"},
			want:      "status 42 is not a valid HTTP status code (at value for key=hello of a map) (at path 'endpoints')",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := load(t, tc.overrides)
			require.Error(t, err)
			assert.Equal(t, tc.want, err.Error())

			var me *secmap.MappingError
			assert.ErrorAs(t, err, &me)
		})
	}
}

func TestDefaultConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	assert.Equal(t, ":40117", cfg.Server.Addr)
	assert.Equal(t, 30*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 2, cfg.Endpoints.Len())
}
