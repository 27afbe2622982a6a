package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"market-etl/internal/model"
	"market-etl/internal/normalize"
)

// ErrTargetCurrency is returned when a rates file asks for a reporting
// currency other than the one every unified schema is validated against.
var ErrTargetCurrency = errors.New("unsupported target currency")

// Config holds shared service configuration sourced from environment variables.
type Config struct {
	IngestAddr             string
	QueryAddr              string
	TransformerMetricsAddr string
	LoaderMetricsAddr      string

	KafkaBrokers       []string
	KafkaRawTopics     map[string]string
	KafkaUnifiedTopics map[string]string
	KafkaItemsTopic    string
	KafkaDeadTopic     string
	ConsumerGroup      string

	ClickHouseDSN string
	HMACSecret    string
	AdminAPIKey   string
	MaxBodyBytes  int64
	Sources       map[string]SourceCredential

	Rates          normalize.Rates
	TargetCurrency string
	Timezone       string

	SKUMappingPath   string
	SKUReload        time.Duration
	BatchSize        int
	BatchInterval    time.Duration
	TransformWindow  int
	TransformMaxSpan time.Duration
	LogLevel         string
	LogFormat        string

	SourcesConfigPath string
	RatesConfigPath   string
}

// SourceCredential defines the API key and HMAC secret of one extractor.
type SourceCredential struct {
	APIKey     string `yaml:"api_key"`
	HMACSecret string `yaml:"hmac_secret"`
}

type sourcesFile struct {
	Sources map[string]SourceCredential `yaml:"sources"`
}

type rateEntry struct {
	From string  `yaml:"from"`
	To   string  `yaml:"to"`
	Rate float64 `yaml:"rate"`
}

type ratesFile struct {
	TargetCurrency string      `yaml:"target_currency"`
	Timezone       string      `yaml:"timezone"`
	Rates          []rateEntry `yaml:"rates"`
}

// Load reads an optional env file, then parses process environment variables
// into a Config, applying defaults when unset. Variables already set in the
// environment win over the env file.
func Load() (Config, error) {
	if err := godotenv.Load(getenv("ENV_FILE", ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	sourcesPath := getenv("SOURCES_CONFIG_PATH", "config/sources.dev.yml")
	sources, err := loadSourcesConfig(sourcesPath)
	if err != nil {
		return Config{}, fmt.Errorf("load sources config: %w", err)
	}
	ratesPath := os.Getenv("RATES_CONFIG_PATH")
	rates, err := loadRatesConfig(ratesPath)
	if err != nil {
		return Config{}, fmt.Errorf("load rates config: %w", err)
	}

	cfg := Config{
		IngestAddr:             getenv("INGEST_ADDR", ":8080"),
		QueryAddr:              getenv("QUERY_ADDR", ":8081"),
		TransformerMetricsAddr: getenv("TRANSFORMER_METRICS_ADDR", ":9100"),
		LoaderMetricsAddr:      getenv("LOADER_METRICS_ADDR", ":9101"),
		KafkaBrokers:           splitAndTrim(getenv("KAFKA_BROKERS", "localhost:9092")),
		KafkaRawTopics:         topics("RAW", "etl.raw"),
		KafkaUnifiedTopics:     topics("UNIFIED", "etl.unified"),
		KafkaItemsTopic:        getenv("KAFKA_TOPIC_UNIFIED_ORDER_ITEMS", "etl.unified.order_items"),
		KafkaDeadTopic:         getenv("KAFKA_TOPIC_DEAD_LETTERS", "etl.dead_letters"),
		ConsumerGroup:          getenv("KAFKA_CONSUMER_GROUP", "market-etl"),
		ClickHouseDSN:          getenv("CLICKHOUSE_DSN", "clickhouse://default:@localhost:9000?database=default&dial_timeout=5s&compress=true"),
		HMACSecret:             os.Getenv("HMAC_SECRET"),
		AdminAPIKey:            os.Getenv("ADMIN_API_KEY"),
		MaxBodyBytes:           int64(atoiDefault("INGEST_MAX_BODY_BYTES", 5<<20)),
		Sources:                sources,
		Rates:                  rates.table,
		TargetCurrency:         rates.target,
		Timezone:               getenv("REPORTING_TIMEZONE", rates.timezone),
		SKUMappingPath:         getenv("SKU_MAPPING_PATH", "config/sku_mapping.csv"),
		BatchSize:              atoiDefault("LOADER_BATCH_SIZE", 1000),
		BatchInterval:          durationDefault("LOADER_BATCH_INTERVAL_MS", 800),
		SKUReload:              durationDefault("SKU_MAPPING_RELOAD_MS", 30000),
		TransformWindow:        atoiDefault("TRANSFORM_WINDOW_SIZE", 500),
		TransformMaxSpan:       durationDefault("TRANSFORM_WINDOW_MS", 5000),
		LogLevel:               getenv("LOG_LEVEL", "info"),
		LogFormat:              getenv("LOG_FORMAT", "json"),
		SourcesConfigPath:      sourcesPath,
		RatesConfigPath:        ratesPath,
	}
	return cfg, nil
}

// topics builds the per-domain topic map, e.g. KAFKA_TOPIC_RAW_ADS=etl.raw.ads.
func topics(kind, prefix string) map[string]string {
	out := make(map[string]string, len(model.Domains()))
	for _, domain := range model.Domains() {
		out[domain] = getenv("KAFKA_TOPIC_"+kind+"_"+strings.ToUpper(domain), prefix+"."+domain)
	}
	return out
}

func getenv(key, def string) string {
	if val, ok := os.LookupEnv(key); ok && val != "" {
		return val
	}
	return def
}

func splitAndTrim(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func atoiDefault(key string, def int) int {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return def
}

func durationDefault(key string, defMS int) time.Duration {
	if val, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return time.Duration(parsed) * time.Millisecond
		}
	}
	return time.Duration(defMS) * time.Millisecond
}

func loadSourcesConfig(path string) (map[string]SourceCredential, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file sourcesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	if len(file.Sources) == 0 {
		return nil, fmt.Errorf("no sources configured in %s", path)
	}
	out := make(map[string]SourceCredential, len(file.Sources))
	for id, cred := range file.Sources {
		if strings.TrimSpace(id) == "" {
			continue
		}
		if cred.APIKey == "" {
			return nil, fmt.Errorf("source %s missing api_key in %s", id, path)
		}
		out[id] = cred
	}
	return out, nil
}

type rateSettings struct {
	table    normalize.Rates
	target   string
	timezone string
}

// loadRatesConfig overlays the file's pairs on the built-in table. An empty
// path keeps the defaults.
func loadRatesConfig(path string) (rateSettings, error) {
	out := rateSettings{
		table:    normalize.DefaultRates(),
		target:   normalize.DefaultCurrency,
		timezone: normalize.DefaultTimezone,
	}
	if path == "" {
		return out, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return out, err
	}
	var file ratesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return out, err
	}
	if file.TargetCurrency != "" {
		if !strings.EqualFold(file.TargetCurrency, normalize.DefaultCurrency) {
			return out, fmt.Errorf("%w %q in %s", ErrTargetCurrency, file.TargetCurrency, path)
		}
	}
	if file.Timezone != "" {
		if _, err := normalize.Location(file.Timezone); err != nil {
			return out, fmt.Errorf("timezone in %s: %w", path, err)
		}
		out.timezone = file.Timezone
	}
	for i, r := range file.Rates {
		if r.From == "" || r.To == "" || r.Rate <= 0 {
			return out, fmt.Errorf("rate %d in %s needs from, to and a positive rate", i, path)
		}
		out.table[normalize.Pair{From: strings.ToUpper(r.From), To: strings.ToUpper(r.To)}] = r.Rate
	}
	return out, nil
}
