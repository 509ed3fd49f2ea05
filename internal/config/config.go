package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config is the runtime configuration of the promo API. Every field is read
// from the environment variable named after its lower-cased koanf key.
type Config struct {
	AppEnv             string   `koanf:"app_env"`
	Port               string   `koanf:"port"`
	DatabaseURL        string   `koanf:"database_url"`
	RedisURL           string   `koanf:"redis_url"`
	JWTSecret          string   `koanf:"jwt_secret"`
	JWTIssuer          string   `koanf:"jwt_issuer"`
	CORSAllowedOrigins []string `koanf:"cors_allowed_origins"`
	HTTPMaxBodyBytes   int64    `koanf:"http_max_body_bytes"`

	DiscountWorkers    int           `koanf:"discount_workers"`
	DiscountQueueSize  int           `koanf:"discount_queue_size"`
	DiscountDeadline   time.Duration `koanf:"discount_deadline"`
	DiscountMaxCoupons int           `koanf:"discount_max_coupons"`
	ScopeCacheTTL      time.Duration `koanf:"scope_cache_ttl"`
	RateLimitResolve   string        `koanf:"rate_limit_resolve"`

	KafkaBrokers       []string `koanf:"kafka_brokers"`
	KafkaDiscountTopic string   `koanf:"kafka_discount_topic"`

	HealthReadyTimeout time.Duration `koanf:"health_ready_timeout"`

	Obs Observability `koanf:",squash"`
}

// Observability groups logging, metrics, tracing and profiling switches.
type Observability struct {
	LogFormat        string  `koanf:"obs_log_format"`
	LogLevel         string  `koanf:"obs_log_level"`
	MetricsEnabled   bool    `koanf:"obs_enable_prometheus"`
	MetricsNamespace string  `koanf:"obs_metrics_namespace"`
	MetricsBuckets   string  `koanf:"obs_metrics_buckets_ms"`
	TracingEnabled   bool    `koanf:"obs_enable_tracing"`
	TracingExporter  string  `koanf:"obs_tracing_exporter"`
	OTLPEndpoint     string  `koanf:"obs_otlp_endpoint"`
	SamplingRatio    float64 `koanf:"obs_tracing_sampling_ratio"`
	PprofEnabled     bool    `koanf:"obs_enable_pprof"`
	PprofUser        string  `koanf:"secure_pprof_basic_auth_user"`
	PprofPass        string  `koanf:"secure_pprof_basic_auth_pass"`
}

var defaults = map[string]any{
	"app_env":              "development",
	"port":                 "8080",
	"database_url":         "",
	"redis_url":            "",
	"jwt_secret":           "",
	"jwt_issuer":           "",
	"cors_allowed_origins": []string{},
	"http_max_body_bytes":  1 << 20,

	"discount_workers":     4,
	"discount_queue_size":  999,
	"discount_deadline":    "2s",
	"discount_max_coupons": 5,
	"scope_cache_ttl":      "10m",
	"rate_limit_resolve":   "60-M",

	"kafka_brokers":        []string{},
	"kafka_discount_topic": "promotion.discount.resolved",

	"health_ready_timeout": "500ms",

	"obs_log_format":               "json",
	"obs_log_level":                "info",
	"obs_enable_prometheus":        true,
	"obs_metrics_namespace":        "promo",
	"obs_metrics_buckets_ms":       "",
	"obs_enable_tracing":           true,
	"obs_tracing_exporter":         "otlp",
	"obs_otlp_endpoint":            "",
	"obs_tracing_sampling_ratio":   1.0,
	"obs_enable_pprof":             false,
	"secure_pprof_basic_auth_user": "",
	"secure_pprof_basic_auth_pass": "",
}

var listKeys = map[string]bool{
	"cors_allowed_origins": true,
	"kafka_brokers":        true,
}

// Load reads an optional .env file, then the process environment, over the
// built-in defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	for key, value := range defaults {
		if err := k.Set(key, value); err != nil {
			return nil, fmt.Errorf("config: default %s: %w", key, err)
		}
	}
	if err := k.Load(env.ProviderWithValue("", ".", envValue), nil); err != nil {
		return nil, fmt.Errorf("config: load env: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envValue keeps only known, non-blank variables and splits list values.
func envValue(key, value string) (string, any) {
	key = strings.ToLower(key)
	if _, known := defaults[key]; !known {
		return "", nil
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if listKeys[key] {
		return key, splitAndTrim(value)
	}
	return key, value
}

func (c *Config) validate() error {
	var errs []error
	if c.DatabaseURL == "" {
		errs = append(errs, errors.New("DATABASE_URL is required"))
	}
	if c.RedisURL == "" {
		errs = append(errs, errors.New("REDIS_URL is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.DiscountWorkers <= 0 {
		errs = append(errs, errors.New("DISCOUNT_WORKERS must be positive"))
	}
	if c.DiscountQueueSize < 0 {
		errs = append(errs, errors.New("DISCOUNT_QUEUE_SIZE must not be negative"))
	}
	if c.DiscountDeadline <= 0 {
		errs = append(errs, errors.New("DISCOUNT_DEADLINE must be positive"))
	}
	if c.DiscountMaxCoupons <= 0 {
		errs = append(errs, errors.New("DISCOUNT_MAX_COUPONS must be positive"))
	}
	if r := c.Obs.SamplingRatio; r < 0 || r > 1 {
		errs = append(errs, errors.New("OBS_TRACING_SAMPLING_RATIO must be within [0, 1]"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// HTTPAddr returns the listen address, accepting PORT with or without a colon.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// KafkaEnabled reports whether resolution events go to a broker.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// RateLimitEnabled is false when RATE_LIMIT_RESOLVE is "off".
func (c *Config) RateLimitEnabled() bool {
	rate := strings.TrimSpace(c.RateLimitResolve)
	return rate != "" && !strings.EqualFold(rate, "off")
}

func splitAndTrim(value string) []string {
	var out []string
	for _, part := range strings.Split(value, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// LoadForTests applies env on top of the process environment, runs Load and
// restores the previous values. An empty value unsets the variable.
func LoadForTests(vars map[string]string) (*Config, error) {
	previous := make(map[string]*string, len(vars))
	for key, value := range vars {
		if old, ok := os.LookupEnv(key); ok {
			previous[key] = &old
		} else {
			previous[key] = nil
		}
		setEnv(key, value)
	}
	defer func() {
		for key, old := range previous {
			if old == nil {
				_ = os.Unsetenv(key)
			} else {
				_ = os.Setenv(key, *old)
			}
		}
	}()
	return Load()
}

func setEnv(key, value string) {
	if value == "" {
		_ = os.Unsetenv(key)
		return
	}
	_ = os.Setenv(key, value)
}
