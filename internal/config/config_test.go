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
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

const validConfig = `{
	"pairs": ["SOL/USDC"],
	"workers": 0,
	"threshold": {"threshold": 2, "nodes": 3},
	"round": {
		"interval_seconds": 5,
		"freshness_seconds": 3600,
		"fee_bps": 30,
		"min_order_size": 1,
		"max_order_size": 1000000000000
	},
	"executor": {
		"heartbeat_seconds": 10,
		"request_timeout_ms": 500,
		"min_stake": 1000,
		"slash_limit": 3
	},
	"logger": {"level": "info", "format": "text"}
}`

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validConfig))
	require.NoError(t, err)

	assert.Equal(t, []string{"SOL/USDC"}, cfg.Pairs)
	assert.Equal(t, 2, cfg.Threshold.Threshold)
	assert.Equal(t, 5*time.Second, cfg.RoundInterval())
	assert.Equal(t, time.Hour, cfg.Freshness())
	assert.Equal(t, 10*time.Second, cfg.HeartbeatInterval())
	assert.Equal(t, 500*time.Millisecond, cfg.RequestTimeout())
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestLoadRejectsBadThreshold(t *testing.T) {
	bad := `{"threshold": {"threshold": 4, "nodes": 3}, "round": {"max_order_size": 1}}`
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}

func TestLoadRejectsBadFee(t *testing.T) {
	bad := `{
		"threshold": {"threshold": 2, "nodes": 3},
		"round": {"fee_bps": 10000, "max_order_size": 10}
	}`
	_, err := Load(writeConfig(t, bad))
	assert.Error(t, err)
}
