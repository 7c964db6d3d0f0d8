package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Source       SourceConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Cache        CacheConfig
	Scoring      ScoringConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// Source modes.
const (
	SourcePostgres = "postgres"
	SourceCSV      = "csv"
)

// SourceConfig selects where the raw ticket datasets are read from.
type SourceConfig struct {
	Mode     string
	CSVDir   string
	RowLimit int
}

// PostgresConfig holds DB connection values for the upstream ticket views
// and the classification table.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	SourceViews    bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level    string
	Encoding string
	Output   string
}

// Cache backends.
const (
	CacheRedis  = "redis"
	CacheMemory = "memory"
)

// CacheConfig controls the shared dataset cache.
type CacheConfig struct {
	Backend        string
	TTLSeconds     int
	MaxWaitSeconds int
	PollIntervalMS int
}

// ScoringConfig holds the inputs of the scoring rules that vary per site.
type ScoringConfig struct {
	TimeZone      string
	VIPList       []string
	SensitiveList []string
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-priority-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 90),
		},
		Source: SourceConfig{
			Mode:     strings.ToLower(getEnv("SOURCE_MODE", SourcePostgres)),
			CSVDir:   getEnv("SOURCE_CSV_DIR", "data"),
			RowLimit: getEnvAsInt("SOURCE_ROW_LIMIT", 0),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			SourceViews:    getEnvAsBool("POSTGRES_SOURCE_VIEWS", false),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:      getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password:  os.Getenv("REDIS_PASSWORD"),
			DB:        redisDB,
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "tickets:"),
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
			Output:   getEnv("LOG_OUTPUT", "stdout"),
		},
		Cache: CacheConfig{
			Backend:        strings.ToLower(getEnv("CACHE_BACKEND", CacheRedis)),
			TTLSeconds:     getEnvAsInt("CACHE_TTL_SECONDS", 300),
			MaxWaitSeconds: getEnvAsInt("CACHE_MAX_WAIT_SECONDS", 60),
			PollIntervalMS: getEnvAsInt("CACHE_POLL_INTERVAL_MS", 1000),
		},
		Scoring: ScoringConfig{
			TimeZone: getEnv("SCORING_TIMEZONE", "Europe/Paris"),
			VIPList:       getEnvAsList("SCORING_VIP_LIST"),
			SensitiveList: getEnvAsList("SCORING_SENSITIVE_LIST"),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", ""),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	if _, err := cfg.Scoring.Location(); err != nil {
		return nil, fmt.Errorf("invalid SCORING_TIMEZONE: %w", err)
	}
	switch cfg.Source.Mode {
	case SourcePostgres, SourceCSV:
	default:
		return nil, fmt.Errorf("invalid SOURCE_MODE %q", cfg.Source.Mode)
	}
	switch cfg.Cache.Backend {
	case CacheRedis, CacheMemory:
	default:
		return nil, fmt.Errorf("invalid CACHE_BACKEND %q", cfg.Cache.Backend)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// TTL returns how long a fetched dataset (or a loading marker) stays cached.
func (c CacheConfig) TTL() time.Duration {
	if c.TTLSeconds <= 0 {
		return 5 * time.Minute
	}
	return time.Duration(c.TTLSeconds) * time.Second
}

// MaxWait bounds how long a caller waits on an in-flight fetch.
func (c CacheConfig) MaxWait() time.Duration {
	if c.MaxWaitSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.MaxWaitSeconds) * time.Second
}

// PollInterval is the re-check period used when another process holds the
// loading marker.
func (c CacheConfig) PollInterval() time.Duration {
	if c.PollIntervalMS <= 0 {
		return time.Second
	}
	return time.Duration(c.PollIntervalMS) * time.Millisecond
}

// Location resolves the canonical time zone all timestamps are converted to.
func (s ScoringConfig) Location() (*time.Location, error) {
	return time.LoadLocation(s.TimeZone)
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	var items []string
	for _, part := range strings.Split(val, ",") {
		if part = strings.TrimSpace(part); part != "" {
			items = append(items, part)
		}
	}
	return items
}
