package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Identity IdentityConfig
	Store    StoreConfig
	Policy   PolicyConfig
	Audit    AuditConfig
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

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
	// ApplicationName is reported to the server as application_name.
	ApplicationName string
	// StatementTimeoutMS sets the session statement_timeout. Zero leaves the server default.
	StatementTimeoutMS int
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

// IdentityConfig describes how identity-provider tokens are verified.
type IdentityConfig struct {
	JWTSecret     string
	Issuer        string
	Audience      string
	LeewaySeconds int
}

// StoreConfig bounds document store calls.
type StoreConfig struct {
	OperationTimeoutMS int
}

// PolicyConfig controls the office settings cache.
type PolicyConfig struct {
	CacheTTLSeconds int
	CachePrefix     string
}

// AuditConfig controls the audit trail kept in Redis.
type AuditConfig struct {
	KeyPrefix  string
	MaxEntries int64
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
	storeTimeoutMS := getEnvAsInt("STORE_OPERATION_TIMEOUT_MS", 5000)
	appName := getEnv("APP_NAME", "constituent-access")

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,

			ApplicationName:    getEnv("POSTGRES_APPLICATION_NAME", appName),
			StatementTimeoutMS: getEnvAsInt("POSTGRES_STATEMENT_TIMEOUT_MS", storeTimeoutMS),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Identity: IdentityConfig{
			JWTSecret:     os.Getenv("IDP_JWT_SECRET"),
			Issuer:        getEnv("IDP_ISSUER", ""),
			Audience:      getEnv("IDP_AUDIENCE", ""),
			LeewaySeconds: getEnvAsInt("IDP_LEEWAY_SECONDS", 30),
		},
		Store: StoreConfig{
			OperationTimeoutMS: storeTimeoutMS,
		},
		Policy: PolicyConfig{
			CacheTTLSeconds: getEnvAsInt("POLICY_CACHE_TTL_SECONDS", 60),
			CachePrefix:     getEnv("POLICY_CACHE_PREFIX", "office_settings"),
		},
		Audit: AuditConfig{
			KeyPrefix:  getEnv("AUDIT_KEY_PREFIX", "audit"),
			MaxEntries: int64(getEnvAsInt("AUDIT_MAX_ENTRIES", 1000)),
		},
	}

	if cfg.Identity.JWTSecret == "" && cfg.App.Env != "development" {
		return nil, fmt.Errorf("IDP_JWT_SECRET is required outside development")
	}
	if cfg.Identity.JWTSecret == "" {
		cfg.Identity.JWTSecret = "dev-secret"
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

// OperationTimeout is the default deadline for store calls without one.
func (s StoreConfig) OperationTimeout() time.Duration {
	if s.OperationTimeoutMS <= 0 {
		return 0
	}
	return time.Duration(s.OperationTimeoutMS) * time.Millisecond
}

// CacheTTL returns the settings cache lifetime; zero disables caching.
func (p PolicyConfig) CacheTTL() time.Duration {
	if p.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(p.CacheTTLSeconds) * time.Second
}

// Leeway returns the clock skew tolerated when validating token times.
func (i IdentityConfig) Leeway() time.Duration {
	return time.Duration(i.LeewaySeconds) * time.Second
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
