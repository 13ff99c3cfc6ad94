package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Server captures HTTP server level configuration.
type Server struct {
	Addr         string
	Environment  string
	LogLevel     string
	FetchTimeout time.Duration
	CacheTTL     time.Duration
	// DepartmentConfig is the raw DEPARTMENT_CONFIG_JSON document; it is
	// parsed per request by the scope resolver, never here.
	DepartmentConfig []byte
	Redis            RedisConfig
	OTel             OTelConfig
	PowerBI          PowerBIConfig
	Kafka            KafkaConfig
	// Secrets holds the process-wide source credentials and defaults.
	Secrets map[string]string
}

// RedisConfig configures the optional shared cache backend.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// PowerBIConfig overrides the Power BI endpoints, for sovereign clouds or
// local stand-ins. Empty values keep the public defaults.
type PowerBIConfig struct {
	APIBaseURL   string
	AuthorityURL string
}

// KafkaConfig enables the refresh broadcast between replicas. An empty
// Brokers list disables it.
type KafkaConfig struct {
	Brokers      string
	RefreshTopic string
}

// OTelConfig enables span export through the global tracer provider.
type OTelConfig struct {
	Enabled     bool
	ServiceName string
}

const (
	DefaultAddr         = ":8080"
	DefaultFetchTimeout = 30 * time.Second
	DefaultCacheTTL     = 5 * time.Minute
	DefaultRefreshTopic = "portal.cache.refresh"
)

// FromEnv builds a Server config from environment variables so main stays
// lean. secretKeys lists the values collected into Secrets.
func FromEnv(secretKeys ...string) (Server, error) {
	return Load(os.Getenv, os.ReadFile, secretKeys...)
}

// Load is FromEnv with injectable lookups.
func Load(getenv func(string) string, readFile func(string) ([]byte, error), secretKeys ...string) (Server, error) {
	cfg := Server{
		Addr:             stringOr(getenv("PORTAL_ADDR"), DefaultAddr),
		Environment:      stringOr(getenv("PORTAL_ENV"), "development"),
		LogLevel:         stringOr(getenv("LOG_LEVEL"), "info"),
		FetchTimeout:     durationOr(getenv("PORTAL_FETCH_TIMEOUT"), DefaultFetchTimeout),
		CacheTTL:         durationOr(getenv("PORTAL_CACHE_TTL"), DefaultCacheTTL),
		DepartmentConfig: []byte(getenv("DEPARTMENT_CONFIG_JSON")),
		Redis: RedisConfig{
			URL:          getenv("REDIS_URL"),
			PoolSize:     intOr(getenv("REDIS_POOL_SIZE"), 10),
			MinIdleConns: intOr(getenv("REDIS_MIN_IDLE_CONNS"), 2),
			DialTimeout:  durationOr(getenv("REDIS_DIAL_TIMEOUT"), 5*time.Second),
			ReadTimeout:  durationOr(getenv("REDIS_READ_TIMEOUT"), 3*time.Second),
			WriteTimeout: durationOr(getenv("REDIS_WRITE_TIMEOUT"), 3*time.Second),
		},
		OTel: OTelConfig{
			Enabled:     getenv("OTEL_ENABLED") == "true",
			ServiceName: stringOr(getenv("OTEL_SERVICE_NAME"), "dataportal"),
		},
		PowerBI: PowerBIConfig{
			APIBaseURL:   getenv("PBI_API_BASE_URL"),
			AuthorityURL: getenv("PBI_AUTHORITY_URL"),
		},
		Kafka: KafkaConfig{
			Brokers:      getenv("KAFKA_BROKERS"),
			RefreshTopic: stringOr(getenv("KAFKA_REFRESH_TOPIC"), DefaultRefreshTopic),
		},
	}

	var file map[string]string
	if path := getenv("PORTAL_SECRETS_FILE"); path != "" {
		var err error
		if file, err = loadSecretsFile(readFile, path); err != nil {
			return Server{}, err
		}
	}

	// The secrets file wins over the environment.
	cfg.Secrets = make(map[string]string, len(secretKeys))
	for _, key := range secretKeys {
		if v := strings.TrimSpace(file[key]); v != "" {
			cfg.Secrets[key] = v
			continue
		}
		if v := strings.TrimSpace(getenv(key)); v != "" {
			cfg.Secrets[key] = v
		}
	}
	return cfg, nil
}

// loadSecretsFile reads a flat YAML mapping of key to scalar value.
func loadSecretsFile(readFile func(string) ([]byte, error), path string) (map[string]string, error) {
	data, err := readFile(path)
	if err != nil {
		return nil, fmt.Errorf("read secrets file: %w", err)
	}
	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse secrets file %s: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		switch v := v.(type) {
		case nil, map[string]any, []any:
			continue
		case string:
			out[k] = v
		default:
			out[k] = fmt.Sprint(v)
		}
	}
	return out, nil
}

func stringOr(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func durationOr(v string, fallback time.Duration) time.Duration {
	if v == "" {
		return fallback
	}
	if d, err := time.ParseDuration(v); err == nil && d > 0 {
		return d
	}
	return fallback
}

func intOr(v string, fallback int) int {
	if n, err := strconv.Atoi(v); err == nil && n > 0 {
		return n
	}
	return fallback
}
