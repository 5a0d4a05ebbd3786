package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWithoutTokenSucceeds(t *testing.T) {
	// Reading an existing cache needs no session credential, so loading
	// configuration must not fail on a missing token.
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.FetchWindow)
	assert.Equal(t, "games_cache.json", cfg.CachePath)
}

func TestRequireNCFAToken(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.RequireNCFAToken())

	cfg.NCFAToken = "session-cookie"
	assert.NoError(t, cfg.RequireNCFAToken())
}
