package bootstrap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  port: 9000
carrier:
  email: ops@example.com
  timeout: 5s
webhook:
  secret: from-file
shipment:
  nominal_weight_kg: 1.5
`), 0o600))
	t.Setenv("WEBHOOK_SECRET", "from-env")
	t.Setenv("WEBHOOK_ALLOW_UNAUTHENTICATED", "TRUE")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9000, cfg.App.Port)
	assert.Equal(t, "ops@example.com", cfg.Carrier.Email)
	assert.Equal(t, 5*time.Second, cfg.Carrier.Timeout)
	assert.Equal(t, 240*time.Hour, cfg.Carrier.TokenTTL, "unset keys keep their defaults")
	assert.Equal(t, "from-env", cfg.Webhook.Secret)
	assert.True(t, cfg.Webhook.AllowUnauthenticated)
	assert.InDelta(t, 1.5, cfg.Shipment.NominalWeightKg, 1e-9)
	assert.InDelta(t, 0.5, cfg.Shipment.DefaultWeightKg, 1e-9)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, SplitAddrs(cfg.Infra.Kafka.Brokers))
}

func TestLoadConfig_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, "fulfillment-events", cfg.Infra.Kafka.Topic)
	assert.Equal(t, 20*time.Second, cfg.Carrier.Timeout)
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app: [unclosed"), 0o600))
	_, err := LoadConfig(path)
	assert.Error(t, err)
}

func TestSplitAddrs(t *testing.T) {
	assert.Nil(t, SplitAddrs(""))
	assert.Equal(t, []string{"a:1"}, SplitAddrs(" a:1 ,, "))
}
