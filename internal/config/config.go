package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"
)

// Published Ontario school case datasets.
const (
	DefaultSummaryURL     = "https://data.ontario.ca/dataset/b1fef838-8784-4338-8ef9-ae7cfd405b41/resource/7fbdbb48-d074-45d9-93cb-f7de58950418/download/schoolcovidsummary.csv"
	DefaultActiveCasesURL = "https://data.ontario.ca/dataset/b1fef838-8784-4338-8ef9-ae7cfd405b41/resource/8b6d22e2-7065-4b0f-966f-02640be366f2/download/schoolsactivecovid.csv"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Dataset sources.
	SummaryURL          string
	ActiveCasesURL      string
	SummaryEncoding     string
	ActiveCasesEncoding string
	FetchTimeout        time.Duration
	FetchRetries        int

	// Body cache. Redis is used as a shared tier when RedisAddr is set.
	CacheTTL      time.Duration
	CacheSize     int
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// RefreshSchedule is a cron spec. "off" disables background refresh and
	// leaves it empty.
	RefreshSchedule string

	// Aggregation.
	SchoolCaseThreshold int
	MunicipalityLimit   int
	SchoolLimit         int
	SchoolYearDays      int

	// Snapshot publishing.
	KafkaEnabled       bool
	KafkaBrokers       []string
	KafkaSnapshotTopic string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parseDuration("FETCH_TIMEOUT", "20s")
	if err != nil {
		return nil, err
	}
	if fetchTimeout <= 0 {
		return nil, errors.New("invalid FETCH_TIMEOUT")
	}
	cacheTTL, err := parseDuration("CACHE_TTL", "15m")
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		HTTPAddr:        sharedcfg.EnvOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		SummaryURL:          sharedcfg.EnvOrDefault("SUMMARY_URL", DefaultSummaryURL),
		ActiveCasesURL:      sharedcfg.EnvOrDefault("ACTIVE_CASES_URL", DefaultActiveCasesURL),
		SummaryEncoding:     sharedcfg.EnvOrDefault("SUMMARY_ENCODING", "utf-8"),
		ActiveCasesEncoding: sharedcfg.EnvOrDefault("ACTIVE_CASES_ENCODING", "latin-1"),
		FetchTimeout:        fetchTimeout,

		CacheTTL:      cacheTTL,
		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		RefreshSchedule: sharedcfg.EnvOrDefault("REFRESH_SCHEDULE", "@every 15m"),

		KafkaEnabled:       os.Getenv("KAFKA_ENABLED") == "true",
		KafkaBrokers:       sharedcfg.ParseBrokers(sharedcfg.EnvOrDefault("KAFKA_BROKERS", "localhost:9092")),
		KafkaSnapshotTopic: sharedcfg.EnvOrDefault("KAFKA_SNAPSHOT_TOPIC", "school-dashboard-snapshots"),
	}

	ints := []struct {
		key   string
		def   int
		floor int
		dst   *int
	}{
		{"FETCH_RETRIES", 2, 0, &cfg.FetchRetries},
		{"CACHE_SIZE", 16, 1, &cfg.CacheSize},
		{"REDIS_DB", 0, 0, &cfg.RedisDB},
		{"SCHOOL_CASE_THRESHOLD", 2, 1, &cfg.SchoolCaseThreshold},
		{"MUNICIPALITY_LIMIT", 30, 1, &cfg.MunicipalityLimit},
		{"SCHOOL_LIMIT", 15, 1, &cfg.SchoolLimit},
		{"SCHOOL_YEAR_DAYS", 195, 1, &cfg.SchoolYearDays},
	}
	for _, f := range ints {
		if *f.dst, err = parseInt(f.key, f.def, f.floor); err != nil {
			return nil, err
		}
	}

	if cfg.RefreshSchedule == "off" {
		cfg.RefreshSchedule = ""
	}

	if cfg.SummaryURL == "" {
		return nil, errors.New("SUMMARY_URL is required")
	}
	if cfg.ActiveCasesURL == "" {
		return nil, errors.New("ACTIVE_CASES_URL is required")
	}
	if cfg.KafkaEnabled {
		if len(cfg.KafkaBrokers) == 0 {
			return nil, errors.New("KAFKA_BROKERS is required when KAFKA_ENABLED is true")
		}
		if cfg.KafkaSnapshotTopic == "" {
			return nil, errors.New("KAFKA_SNAPSHOT_TOPIC is required when KAFKA_ENABLED is true")
		}
	}

	return cfg, nil
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(sharedcfg.EnvOrDefault(key, def))
	if err != nil || d < 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def, floor int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < floor {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return n, nil
}
