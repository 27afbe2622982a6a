package config

import (
	"io/fs"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func baseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("ENV_FILE", filepath.Join(t.TempDir(), "absent.env"))
	t.Setenv("SOURCES_CONFIG_PATH", writeFile(t, "sources.yml", `
sources:
  ads-extractor:
    api_key: key-1
    hmac_secret: s3cret
  shop-extractor:
    api_key: key-2
`))
	t.Setenv("RATES_CONFIG_PATH", "")
}

func TestLoadDefaults(t *testing.T) {
	baseEnv(t)
	cfg, err := Load()
	require.NoError(t, err)

	require.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	require.Equal(t, map[string]string{"ads": "etl.raw.ads", "orders": "etl.raw.orders", "products": "etl.raw.products", "ga4": "etl.raw.ga4"}, cfg.KafkaRawTopics)
	require.Equal(t, "etl.unified.orders", cfg.KafkaUnifiedTopics["orders"])
	require.Equal(t, "etl.dead_letters", cfg.KafkaDeadTopic)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Equal(t, 800*time.Millisecond, cfg.BatchInterval)
	require.Equal(t, "Asia/Bangkok", cfg.Timezone)
	require.Equal(t, "THB", cfg.TargetCurrency)
	require.Equal(t, 35.0, cfg.Rates.Rate("USD", "THB"))
	require.Equal(t, "s3cret", cfg.Sources["ads-extractor"].HMACSecret)
	require.Equal(t, "config/sku_mapping.csv", cfg.SKUMappingPath)
	require.Equal(t, 30*time.Second, cfg.SKUReload)
	require.Equal(t, 500, cfg.TransformWindow)
	require.Equal(t, 5*time.Second, cfg.TransformMaxSpan)
}

func TestLoadEnvOverridesAndEnvFile(t *testing.T) {
	baseEnv(t)
	const fileOnly = "KAFKA_TOPIC_RAW_ADS"
	t.Cleanup(func() { _ = os.Unsetenv(fileOnly) })
	t.Setenv("ENV_FILE", writeFile(t, ".env", "LOG_LEVEL=debug\n"+fileOnly+"=custom.ads\n"))
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("LOADER_BATCH_SIZE", "abc")
	t.Setenv("LOADER_BATCH_INTERVAL_MS", "250")
	t.Setenv("TRANSFORM_WINDOW_SIZE", "50")
	t.Setenv("SKU_MAPPING_RELOAD_MS", "1000")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "warn", cfg.LogLevel, "process env wins over the env file")
	require.Equal(t, "custom.ads", cfg.KafkaRawTopics["ads"])
	require.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	require.Equal(t, 1000, cfg.BatchSize)
	require.Equal(t, 250*time.Millisecond, cfg.BatchInterval)
	require.Equal(t, 50, cfg.TransformWindow)
	require.Equal(t, time.Second, cfg.SKUReload)
}

func TestLoadRatesFileOverlaysDefaults(t *testing.T) {
	baseEnv(t)
	t.Setenv("RATES_CONFIG_PATH", writeFile(t, "rates.yml", `
target_currency: thb
timezone: Asia/Singapore
rates:
  - {from: usd, to: thb, rate: 36.5}
  - {from: KRW, to: THB, rate: 0.027}
`))
	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, 36.5, cfg.Rates.Rate("USD", "THB"))
	require.Equal(t, 0.027, cfg.Rates.Rate("KRW", "THB"))
	require.Equal(t, 38.0, cfg.Rates.Rate("EUR", "THB"))
	require.Equal(t, "Asia/Singapore", cfg.Timezone)
}

func TestLoadRejectsBadRatesFile(t *testing.T) {
	baseEnv(t)
	t.Setenv("RATES_CONFIG_PATH", writeFile(t, "rates.yml", "target_currency: USD\n"))
	_, err := Load()
	require.ErrorIs(t, err, ErrTargetCurrency)

	t.Setenv("RATES_CONFIG_PATH", writeFile(t, "rates.yml", "rates:\n  - {from: USD, to: THB, rate: 0}\n"))
	_, err = Load()
	require.ErrorContains(t, err, "positive rate")

	t.Setenv("RATES_CONFIG_PATH", writeFile(t, "rates.yml", "timezone: Mars/Olympus\n"))
	_, err = Load()
	require.ErrorContains(t, err, "timezone")
}

func TestLoadRejectsBadSourcesFile(t *testing.T) {
	baseEnv(t)
	t.Setenv("SOURCES_CONFIG_PATH", writeFile(t, "sources.yml", "sources:\n  a:\n    hmac_secret: x\n"))
	_, err := Load()
	require.ErrorContains(t, err, "missing api_key")

	t.Setenv("SOURCES_CONFIG_PATH", filepath.Join(t.TempDir(), "none.yml"))
	_, err = Load()
	require.ErrorIs(t, err, fs.ErrNotExist)
}
