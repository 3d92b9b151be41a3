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
	Store    StoreConfig
	Runtime  RuntimeConfig
	Governor GovernorConfig
	Shell    ShellConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
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

// StoreConfig locates the file-backed record store.
type StoreConfig struct {
	DataDir string
}

// RuntimeConfig binds the container runtime adapter to the host tool.
type RuntimeConfig struct {
	Binary                string
	StoragePool           string
	ControlTimeoutSeconds int
	MetricTimeoutSeconds  int
}

// GovernorConfig tunes the host CPU safety loop.
type GovernorConfig struct {
	CPUThresholdPercent float64
	PollSeconds         int
}

// ShellConfig tunes the ephemeral shell broker.
type ShellConfig struct {
	SettleSeconds         int
	InstallTimeoutSeconds int
	SessionTTLMinutes     int
}

// PostgresConfig holds audit log DB connection values. Optional.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds shell session cache connection values. Optional.
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
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	threshold, err := strconv.ParseFloat(getEnv("GOVERNOR_CPU_THRESHOLD", "90"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid GOVERNOR_CPU_THRESHOLD: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "vps-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "3000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 0),
		},
		Store: StoreConfig{
			DataDir: getEnv("STORE_DATA_DIR", "data"),
		},
		Runtime: RuntimeConfig{
			Binary:                getEnv("RUNTIME_BINARY", "lxc"),
			StoragePool:           getEnv("RUNTIME_STORAGE_POOL", "default"),
			ControlTimeoutSeconds: getEnvAsInt("RUNTIME_CONTROL_TIMEOUT_SECONDS", 120),
			MetricTimeoutSeconds:  getEnvAsInt("RUNTIME_METRIC_TIMEOUT_SECONDS", 10),
		},
		Governor: GovernorConfig{
			CPUThresholdPercent: threshold,
			PollSeconds:         getEnvAsInt("GOVERNOR_POLL_SECONDS", 60),
		},
		Shell: ShellConfig{
			SettleSeconds:         getEnvAsInt("SHELL_SETTLE_SECONDS", 3),
			InstallTimeoutSeconds: getEnvAsInt("SHELL_INSTALL_TIMEOUT_SECONDS", 300),
			SessionTTLMinutes:     getEnvAsInt("SHELL_SESSION_TTL_MINUTES", 10),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
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
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// ControlTimeout returns the adapter control operation deadline.
func (r RuntimeConfig) ControlTimeout() time.Duration {
	return time.Duration(r.ControlTimeoutSeconds) * time.Second
}

// MetricTimeout returns the adapter metric query deadline.
func (r RuntimeConfig) MetricTimeout() time.Duration {
	return time.Duration(r.MetricTimeoutSeconds) * time.Second
}

// PollInterval returns the governor tick interval.
func (g GovernorConfig) PollInterval() time.Duration {
	return time.Duration(g.PollSeconds) * time.Second
}

// SettleWait returns the shell session settle duration.
func (s ShellConfig) SettleWait() time.Duration {
	return time.Duration(s.SettleSeconds) * time.Second
}

// InstallTimeout returns the shell helper install deadline.
func (s ShellConfig) InstallTimeout() time.Duration {
	return time.Duration(s.InstallTimeoutSeconds) * time.Second
}

// SessionTTL returns how long a brokered session is cached for reuse.
func (s ShellConfig) SessionTTL() time.Duration {
	return time.Duration(s.SessionTTLMinutes) * time.Minute
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
