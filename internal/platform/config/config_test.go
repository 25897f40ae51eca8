package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())
	for _, b := range bindings {
		t.Setenv(b.env, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, int64(1<<20), cfg.HTTP.MaxBodyBytes)
	assert.Equal(t, 3*time.Second, cfg.DB.Timeout)
	assert.Equal(t, ProviderGoogleBooks, cfg.Metadata.Provider)
	assert.Equal(t, 5*time.Second, cfg.Metadata.Timeout)
	assert.Empty(t, cfg.DB.DSN)
	assert.Nil(t, cfg.HTTP.CORSAllowedOrigins)
}

func TestLoad_FromEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("APP_ADDR", ":9090")
	t.Setenv("DB_DSN", "postgres://localhost/books")
	t.Setenv("METADATA_PROVIDER", "OpenLibrary")
	t.Setenv("METADATA_TIMEOUT", "750ms")
	t.Setenv("CORS_ALLOWED_ORIGINS", "http://a.test, http://b.test,")
	t.Setenv("RATE_LIMIT_BURST", "7")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTP.Addr)
	assert.Equal(t, "postgres://localhost/books", cfg.DB.DSN)
	assert.Equal(t, ProviderOpenLibrary, cfg.Metadata.Provider)
	assert.Equal(t, 750*time.Millisecond, cfg.Metadata.Timeout)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.HTTP.CORSAllowedOrigins)
	assert.Equal(t, 7, cfg.HTTP.RateLimitBurst)
}

func TestLoad_RejectsUnknownProvider(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("METADATA_PROVIDER", "amazon")

	_, err := Load()

	assert.ErrorContains(t, err, "METADATA_PROVIDER")
}
