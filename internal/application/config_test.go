package application

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
	path := filepath.Join(t.TempDir(), "structrun.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `
symbols: [BTCUSDT, ETHUSDT]
interval: 1h
validation_mode: true
data_dir: testdata
database:
  dsn: postgres://localhost/structrun?sslmode=disable
  timeout_seconds: 3
redis:
  addr: localhost:6379
feed:
  url: wss://stream.binance.com:9443/stream
metrics:
  addr: ":9200"
broker:
  rps: 2
  burst: 4
  consecutive_failures: 8
  open_timeout_seconds: 60
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"BTCUSDT", "ETHUSDT"}, cfg.Symbols)
	assert.Equal(t, "1h", cfg.Interval)
	assert.True(t, cfg.ValidationMode)
	assert.Equal(t, "testdata", cfg.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Database.Timeout())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, ":9200", cfg.Metrics.Addr)
	assert.Equal(t, 2.0, cfg.Broker.RPS)
	assert.Equal(t, uint32(8), cfg.Broker.ConsecutiveFailures)
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "symbols: [BTCUSDT]\n")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "15m", cfg.Interval)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, ":9109", cfg.Metrics.Addr)
	assert.False(t, cfg.ValidationMode)
	assert.Equal(t, 5*time.Second, cfg.Database.Timeout())
	assert.Equal(t, 5.0, cfg.Broker.RPS)
	assert.Equal(t, 10, cfg.Broker.Burst)
	assert.Equal(t, uint32(5), cfg.Broker.ConsecutiveFailures)
	assert.Equal(t, 30, cfg.Broker.OpenTimeoutSeconds)
}

func TestLoadConfig_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.Error(t, err)
	})

	t.Run("no symbols", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "interval: 1h\n"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symbol")
	})

	t.Run("malformed yaml", func(t *testing.T) {
		_, err := LoadConfig(writeConfig(t, "symbols: [unterminated\n"))
		assert.Error(t, err)
	})
}
