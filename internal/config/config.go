package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the console.
type Config struct {
	App      AppConfig
	Backend  BackendConfig
	Realtime RealtimeConfig
	Cache    CacheConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Tabs     TabsConfig
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

// BackendConfig points at the helpdesk REST API.
type BackendConfig struct {
	BaseURL               string
	Token                 string
	RequestTimeoutSeconds int
}

// Realtime transports.
const (
	TransportSSE   = "sse"
	TransportRedis = "redis"
	TransportNone  = "none"
)

// RealtimeConfig selects and tunes the push channel.
type RealtimeConfig struct {
	Transport         string
	SSEURL            string
	RedisChannel      string
	ReconnectMinMilli int
	ReconnectMaxMilli int
}

// CacheConfig tunes the ticket cache.
type CacheConfig struct {
	RefreshTTLSeconds int
}

// PostgresConfig holds DB connection values for the audit collaborators.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret string
	Issuer    string
}

// TabsConfig optionally overrides the built-in list tabs.
type TabsConfig struct {
	File string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	transport := strings.ToLower(getEnv("REALTIME_TRANSPORT", TransportSSE))
	switch transport {
	case TransportSSE, TransportRedis, TransportNone:
	default:
		return nil, fmt.Errorf("invalid REALTIME_TRANSPORT %q", transport)
	}

	backendURL := strings.TrimRight(getEnv("BACKEND_BASE_URL", "http://127.0.0.1:3000/api"), "/")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "helpdesk-console"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Backend: BackendConfig{
			BaseURL:               backendURL,
			Token:                 os.Getenv("BACKEND_TOKEN"),
			RequestTimeoutSeconds: getEnvAsInt("BACKEND_REQUEST_TIMEOUT_SECONDS", 15),
		},
		Realtime: RealtimeConfig{
			Transport:         transport,
			SSEURL:            getEnv("REALTIME_SSE_URL", backendURL+"/tickets/stream"),
			RedisChannel:      getEnv("REALTIME_REDIS_CHANNEL", "helpdesk:tickets"),
			ReconnectMinMilli: getEnvAsInt("REALTIME_RECONNECT_MIN_MS", 500),
			ReconnectMaxMilli: getEnvAsInt("REALTIME_RECONNECT_MAX_MS", 30000),
		},
		Cache: CacheConfig{
			RefreshTTLSeconds: getEnvAsInt("CACHE_REFRESH_TTL_SECONDS", 90),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", false),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("AUTH_JWT_SECRET", "dev-secret"),
			Issuer:    os.Getenv("AUTH_JWT_ISSUER"),
		},
		Tabs: TabsConfig{
			File: os.Getenv("CONSOLE_TABS_FILE"),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	return seconds(a.RequestTimeoutSeconds)
}

// RequestTimeout bounds a single REST call.
func (b BackendConfig) RequestTimeout() time.Duration {
	return seconds(b.RequestTimeoutSeconds)
}

// RefreshTTL is the tab freshness window.
func (c CacheConfig) RefreshTTL() time.Duration {
	return seconds(c.RefreshTTLSeconds)
}

// Backoff returns the reconnect delay bounds.
func (r RealtimeConfig) Backoff() (time.Duration, time.Duration) {
	lo := time.Duration(r.ReconnectMinMilli) * time.Millisecond
	hi := time.Duration(r.ReconnectMaxMilli) * time.Millisecond
	if lo <= 0 {
		lo = 500 * time.Millisecond
	}
	if hi < lo {
		hi = lo
	}
	return lo, hi
}

func seconds(n int) time.Duration {
	if n <= 0 {
		return 0
	}
	return time.Duration(n) * time.Second
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
