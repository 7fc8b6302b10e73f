package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
venue:
  mock: true
llm:
  api_key: test-key
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o", cfg.LLM.Model)
	assert.Equal(t, 5, cfg.LLM.MaxSteps)
	assert.Equal(t, int64(137), cfg.Venue.ChainID)
	assert.Equal(t, 10.0, cfg.Trading.MinPercent)
	assert.Equal(t, 50.0, cfg.Trading.MaxPercent)
	assert.Equal(t, 20*time.Second, cfg.DeployTickInterval())
	assert.Equal(t, 8080, cfg.Web.Port)
	assert.Contains(t, cfg.Trading.Symbols, "TSLA")
	assert.True(t, cfg.IsMock())
}

func TestLoadRequiresVenueCredentialsWhenLive(t *testing.T) {
	path := writeConfig(t, `
venue:
  mock: false
llm:
  api_key: test-key
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "venue.base_url")
}

func TestLoadRequiresWalletKeyWhenLive(t *testing.T) {
	path := writeConfig(t, `
venue:
  base_url: https://venue.example.com
  api_key: venue-key
llm:
  api_key: test-key
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "wallet.private_key")
}

func TestLoadRejectsBadPercentBounds(t *testing.T) {
	path := writeConfig(t, `
venue:
  mock: true
llm:
  api_key: test-key
trading:
  min_percent: 60
  max_percent: 50
`)

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "percent bounds")
}

func TestHasSymbolIgnoresCase(t *testing.T) {
	cfg := &Config{Trading: TradingConfig{Symbols: []string{"AAPL", "TSLA"}}}

	assert.True(t, cfg.HasSymbol("tsla"))
	assert.True(t, cfg.HasSymbol("Aapl"))
	assert.False(t, cfg.HasSymbol("DOGE"))
}
