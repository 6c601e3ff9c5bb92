package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api", cfg.APIPrefix)
	assert.Equal(t, 24, cfg.KRS.DefaultMaxCredits)
	assert.Equal(t, 5, cfg.KRS.SeatUpdateRetries)
	assert.Equal(t, 2*time.Minute, cfg.Sections.CacheTTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
}

func TestLoadEnvOverrides(t *testing.T) {
	chdirTemp(t)
	t.Setenv("KRS_DEFAULT_MAX_CREDITS", "-3")
	t.Setenv("KRS_SEAT_UPDATE_RETRIES", "9")
	t.Setenv("SECTIONS_CACHE_TTL", "not-a-duration")
	t.Setenv("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 24, cfg.KRS.DefaultMaxCredits)
	assert.Equal(t, 9, cfg.KRS.SeatUpdateRetries)
	assert.Equal(t, 2*time.Minute, cfg.Sections.CacheTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
}

func chdirTemp(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}
