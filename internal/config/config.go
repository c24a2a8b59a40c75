package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Archive backend.
	BaseURL         string
	FetchTimeout    time.Duration
	FetchRetries    int
	StepHours       int
	Username        string
	Password        string
	CredentialsFile string

	// Storage and output.
	DatabasePath string
	OutputDir    string

	// Spot-search cache. Redis is used when RedisAddr is set, otherwise an
	// in-process LRU.
	SpotCacheSize int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Kafka publishing, enabled when brokers are configured.
	KafkaBrokers []string
	KafkaTopic   string

	// Scheduled refresh of configured spots.
	RefreshSpots        []int
	RefreshModelID      int
	RefreshInterval     time.Duration
	RefreshLookbackDays int
}

// Load reads configuration from the environment (and an optional .env file),
// applying defaults where unset.
func Load() (*Config, error) {
	// A missing .env file is the normal production case.
	_ = godotenv.Load()

	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "15s")
	if err != nil {
		return nil, err
	}
	refreshInterval, err := parseDuration("REFRESH_INTERVAL", "6h")
	if err != nil {
		return nil, err
	}

	stepHours, err := parsePositiveInt("ARCHIVE_STEP_HOURS", 2)
	if err != nil {
		return nil, err
	}
	fetchRetries, err := parseBoundedInt("FETCH_RETRIES", 2, 0, 10)
	if err != nil {
		return nil, err
	}
	cacheSize, err := parsePositiveInt("SPOT_CACHE_SIZE", 500)
	if err != nil {
		return nil, err
	}
	redisDB, err := parseBoundedInt("REDIS_DB", 0, 0, 15)
	if err != nil {
		return nil, err
	}
	refreshModel, err := parsePositiveInt("REFRESH_MODEL_ID", 3)
	if err != nil {
		return nil, err
	}
	lookback, err := parsePositiveInt("REFRESH_LOOKBACK_DAYS", 7)
	if err != nil {
		return nil, err
	}
	refreshSpots, err := parseIntList("REFRESH_SPOTS")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		BaseURL:         envOrDefault("WINDGURU_BASE_URL", "https://www.windguru.cz"),
		FetchTimeout:    fetchTimeout,
		FetchRetries:    fetchRetries,
		StepHours:       stepHours,
		Username:        os.Getenv("WINDGURU_USERNAME"),
		Password:        os.Getenv("WINDGURU_PASSWORD"),
		CredentialsFile: os.Getenv("CREDENTIALS_FILE"),

		DatabasePath: envOrDefault("DB_PATH", "wind-archive.db"),
		OutputDir:    envOrDefault("OUTPUT_DIR", "output"),

		SpotCacheSize: cacheSize,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		KafkaBrokers: parseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   envOrDefault("KAFKA_SINK_TOPIC", "archive-data-points"),

		RefreshSpots:        refreshSpots,
		RefreshModelID:      refreshModel,
		RefreshInterval:     refreshInterval,
		RefreshLookbackDays: lookback,
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("WINDGURU_BASE_URL is required")
	}
	if len(cfg.KafkaBrokers) > 0 && cfg.KafkaTopic == "" {
		return nil, fmt.Errorf("KAFKA_SINK_TOPIC is required when KAFKA_BROKERS is set")
	}
	if len(cfg.RefreshSpots) > 0 && !cfg.HasLogin() && cfg.CredentialsFile == "" {
		return nil, fmt.Errorf("REFRESH_SPOTS requires WINDGURU_USERNAME/WINDGURU_PASSWORD or CREDENTIALS_FILE")
	}

	return cfg, nil
}

// HasLogin reports whether a username/password pair is configured.
func (c *Config) HasLogin() bool {
	return c.Username != "" && c.Password != ""
}

// KafkaEnabled reports whether decoded points should be published.
func (c *Config) KafkaEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

// RedisEnabled reports whether the Redis spot cache should be used.
func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	s := envOrDefault(key, def)
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return d, nil
}

func parsePositiveInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid %s: %q", key, s)
	}
	return n, nil
}

func parseBoundedInt(key string, def, min, max int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < min || n > max {
		return 0, fmt.Errorf("invalid %s: %q (want %d-%d)", key, s, min, max)
	}
	return n, nil
}

// parseBrokers splits a comma-separated broker list, dropping empty entries.
func parseBrokers(s string) []string {
	var brokers []string
	for _, b := range strings.Split(s, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

// parseIntList reads a comma-separated list of positive integers.
func parseIntList(key string) ([]int, error) {
	s := os.Getenv(key)
	if s == "" {
		return nil, nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid %s entry: %q", key, part)
		}
		out = append(out, n)
	}
	return out, nil
}
