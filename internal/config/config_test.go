package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_RequiresDatabaseURL(t *testing.T) {
	t.Setenv("DATABASE_URL", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/askbird")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.AppEnv)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "", cfg.RedisURL)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 100, cfg.MaxClientsPerRoom)
	assert.Equal(t, 5.0, cfg.VoteRatePerSecond)
	assert.Equal(t, 10, cfg.VoteRateBurst)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/askbird")
	t.Setenv("PORT", "9000")
	t.Setenv("MAX_CLIENTS_PER_ROOM", "5")
	t.Setenv("VOTE_RATE_PER_SECOND", "2.5")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Port)
	assert.Equal(t, 5, cfg.MaxClientsPerRoom)
	assert.Equal(t, 2.5, cfg.VoteRatePerSecond)
}

func TestLoad_InvalidValues(t *testing.T) {
	t.Setenv("DATABASE_URL", "postgres://localhost/askbird")

	t.Run("non-integer room limit", func(t *testing.T) {
		t.Setenv("MAX_CLIENTS_PER_ROOM", "lots")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-positive room limit", func(t *testing.T) {
		t.Setenv("MAX_CLIENTS_PER_ROOM", "0")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("non-numeric rate", func(t *testing.T) {
		t.Setenv("VOTE_RATE_PER_SECOND", "fast")
		_, err := Load()
		assert.Error(t, err)
	})
}
