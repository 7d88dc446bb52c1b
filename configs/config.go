package configs

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	GitHub    GitHubConfig
	OpenAI    OpenAIConfig
	Cache     CacheConfig
	Admin     AdminConfig
}

type ServerConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	TLSCertFile  string
	TLSKeyFile   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

// RateLimitConfig configures the per-client fixed-window limiter.
// Backend "memory" keeps counters in-process; "redis" shares them across
// processes via the Redis repository.
type RateLimitConfig struct {
	MaxRequests int
	Window      time.Duration
	Backend     string
	KeyPrefix   string
}

type GitHubConfig struct {
	APIBaseURL string
	Token      string
	UserAgent  string
	Timeout    time.Duration
	TopRepos   int
}

type OpenAIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
}

// CacheConfig governs the server-side roast cache. Freshness bounds reuse of
// an entry; Retention bounds how long an idle entry survives the sweep.
type CacheConfig struct {
	Enabled       bool
	Freshness     time.Duration
	Retention     time.Duration
	SweepInterval time.Duration
	StreamEnabled bool
}

type AdminConfig struct {
	// Secret guards the report view and the avatar refresh endpoint.
	// Empty disables both.
	Secret string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:         getEnv("SERVER_HOST", "0.0.0.0"),
			Port:         getEnv("SERVER_PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 120*time.Second),
			IdleTimeout:  getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:  getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:   getEnv("TLS_KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "git_shame"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		Redis: RedisConfig{
			Host:         getEnv("REDIS_HOST", "localhost"),
			Port:         getEnv("REDIS_PORT", "6379"),
			Password:     getEnv("REDIS_PASSWORD", ""),
			DB:           getIntEnv("REDIS_DB", 0),
			PoolSize:     getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns: getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:  getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:  getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			MaxRequests: getIntEnv("RATE_LIMIT_MAX", 5),
			Window:      getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			Backend:     getEnv("RATE_LIMIT_BACKEND", "memory"),
			KeyPrefix:   getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:ip"),
		},
		GitHub: GitHubConfig{
			APIBaseURL: getEnv("GITHUB_API_URL", "https://api.github.com"),
			Token:      getEnv("GITHUB_TOKEN", ""),
			UserAgent:  getEnv("GITHUB_USER_AGENT", "git-shame"),
			Timeout:    getDurationEnv("GITHUB_TIMEOUT", 10*time.Second),
			TopRepos:   getIntEnv("GITHUB_TOP_REPOS", 5),
		},
		OpenAI: OpenAIConfig{
			APIKey:    getEnvRequired("OPENAI_KEY"),
			BaseURL:   getEnv("OPENAI_BASE_URL", ""),
			Model:     getEnv("OPENAI_MODEL", "gpt-3.5-turbo"),
			MaxTokens: getIntEnv("OPENAI_MAX_TOKENS", 500),
		},
		Cache: CacheConfig{
			Enabled:       getBoolEnv("CACHE_ENABLED", true),
			Freshness:     getDurationEnv("CACHE_FRESHNESS", 24*time.Hour),
			Retention:     getDurationEnv("CACHE_RETENTION", 7*24*time.Hour),
			SweepInterval: getDurationEnv("CACHE_SWEEP_INTERVAL", time.Hour),
			StreamEnabled: getBoolEnv("STREAM_ENABLED", true),
		},
		Admin: AdminConfig{
			Secret: getEnv("REPORT_SECRET", ""),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvRequired(key string) string {
	value := os.Getenv(key)
	if value == "" {
		panic(fmt.Sprintf("Required environment variable %s is not set", key))
	}
	return value
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
