package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/harivignesh/cp-tracker/internal/platform/logging"
	"github.com/harivignesh/cp-tracker/internal/platform/resilience"
)

// Config stores runtime configuration for the service.
type Config struct {
	AppEnv                  string
	ServiceName             string
	ServiceVersion          string
	HTTPAddr                string
	ReadTimeout             time.Duration
	WriteTimeout            time.Duration
	CORSAllowedOrigins      []string
	APIToken                string
	DBURL                   string
	DBDisablePreparedBinary bool
	ReportDir               string
	RefreshInterval         time.Duration
	HeartbeatInterval       time.Duration
	RefreshOnStart          bool
	MaxRefreshWorkers       int
	AggregationTimeout      time.Duration
	FetchTimeout            time.Duration
	FetchUserAgent          string
	FetchCircuit            resilience.CircuitBreakerConfig
	CacheTTL                time.Duration
	LeetCodeEndpoint        string
	CodeforcesBaseURL       string
	CodeChefBaseURL         string
	HackerRankBaseURL       string
	AtCoderFeedURL          string
	LogLevel                logging.Level
}

func Load() (Config, error) {
	appEnv, err := parseAppEnv(getEnv("APP_ENV", EnvDev))
	if err != nil {
		return Config{}, err
	}

	readTimeout, err := time.ParseDuration(getEnv("READ_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse READ_TIMEOUT: %w", err)
	}
	if readTimeout <= 0 {
		return Config{}, fmt.Errorf("READ_TIMEOUT must be > 0")
	}
	writeTimeout, err := time.ParseDuration(getEnv("WRITE_TIMEOUT", "60s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse WRITE_TIMEOUT: %w", err)
	}
	if writeTimeout <= 0 {
		return Config{}, fmt.Errorf("WRITE_TIMEOUT must be > 0")
	}

	dbDisablePreparedBinary, err := strconv.ParseBool(getEnv("DB_DISABLE_PREPARED_BINARY", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse DB_DISABLE_PREPARED_BINARY: %w", err)
	}

	refreshInterval, err := time.ParseDuration(getEnv("REFRESH_INTERVAL", "6h"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_INTERVAL: %w", err)
	}
	if refreshInterval <= 0 {
		return Config{}, fmt.Errorf("REFRESH_INTERVAL must be > 0")
	}
	heartbeatInterval, err := time.ParseDuration(getEnv("HEARTBEAT_INTERVAL", "30m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse HEARTBEAT_INTERVAL: %w", err)
	}
	if heartbeatInterval <= 0 {
		return Config{}, fmt.Errorf("HEARTBEAT_INTERVAL must be > 0")
	}
	refreshOnStart, err := strconv.ParseBool(getEnv("REFRESH_ON_START", "false"))
	if err != nil {
		return Config{}, fmt.Errorf("parse REFRESH_ON_START: %w", err)
	}

	maxRefreshWorkers, err := getEnvAsInt("MAX_REFRESH_WORKERS", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse MAX_REFRESH_WORKERS: %w", err)
	}
	if maxRefreshWorkers < 1 {
		return Config{}, fmt.Errorf("MAX_REFRESH_WORKERS must be >= 1")
	}

	aggregationTimeout, err := time.ParseDuration(getEnv("AGGREGATION_TIMEOUT", "15s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse AGGREGATION_TIMEOUT: %w", err)
	}
	if aggregationTimeout <= 0 {
		return Config{}, fmt.Errorf("AGGREGATION_TIMEOUT must be > 0")
	}
	fetchTimeout, err := time.ParseDuration(getEnv("FETCH_TIMEOUT", "10s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_TIMEOUT: %w", err)
	}
	if fetchTimeout <= 0 {
		return Config{}, fmt.Errorf("FETCH_TIMEOUT must be > 0")
	}

	fetchCircuitEnabled, err := strconv.ParseBool(getEnv("FETCH_CIRCUIT_ENABLED", "true"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_ENABLED: %w", err)
	}
	fetchCircuitFailureCount, err := getEnvAsInt("FETCH_CIRCUIT_FAILURE_COUNT", 5)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_FAILURE_COUNT: %w", err)
	}
	fetchCircuitOpenTimeout, err := time.ParseDuration(getEnv("FETCH_CIRCUIT_OPEN_TIMEOUT", "30s"))
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_OPEN_TIMEOUT: %w", err)
	}
	fetchCircuitHalfOpenMaxReq, err := getEnvAsInt("FETCH_CIRCUIT_HALF_OPEN_MAX_REQ", 2)
	if err != nil {
		return Config{}, fmt.Errorf("parse FETCH_CIRCUIT_HALF_OPEN_MAX_REQ: %w", err)
	}

	cacheTTL, err := time.ParseDuration(getEnv("CACHE_TTL", "5m"))
	if err != nil {
		return Config{}, fmt.Errorf("parse CACHE_TTL: %w", err)
	}
	if cacheTTL <= 0 {
		return Config{}, fmt.Errorf("CACHE_TTL must be > 0")
	}

	cfg := Config{
		AppEnv:                  appEnv,
		ServiceName:             getEnv("SERVICE_NAME", "cp-tracker"),
		ServiceVersion:          getEnv("SERVICE_VERSION", "dev"),
		HTTPAddr:                getEnv("HTTP_ADDR", ":8080"),
		ReadTimeout:             readTimeout,
		WriteTimeout:            writeTimeout,
		CORSAllowedOrigins:      splitCSV(getEnv("CORS_ALLOWED_ORIGINS", "*")),
		APIToken:                strings.TrimSpace(getEnv("API_TOKEN", "")),
		DBURL:                   strings.TrimSpace(getEnv("DB_URL", "")),
		DBDisablePreparedBinary: dbDisablePreparedBinary,
		ReportDir:               strings.TrimSpace(getEnv("REPORT_DIR", "./reports")),
		RefreshInterval:         refreshInterval,
		HeartbeatInterval:       heartbeatInterval,
		RefreshOnStart:          refreshOnStart,
		MaxRefreshWorkers:       maxRefreshWorkers,
		AggregationTimeout:      aggregationTimeout,
		FetchTimeout:            fetchTimeout,
		FetchUserAgent:          getEnv("FETCH_USER_AGENT", defaultUserAgent),
		FetchCircuit: resilience.NormalizeCircuitBreakerConfig(resilience.CircuitBreakerConfig{
			Enabled:          fetchCircuitEnabled,
			FailureThreshold: fetchCircuitFailureCount,
			OpenTimeout:      fetchCircuitOpenTimeout,
			HalfOpenMaxReq:   fetchCircuitHalfOpenMaxReq,
		}),
		CacheTTL:          cacheTTL,
		LeetCodeEndpoint:  getEnv("LEETCODE_ENDPOINT", "https://leetcode.com/graphql"),
		CodeforcesBaseURL: getEnv("CODEFORCES_BASE_URL", "https://codeforces.com/api"),
		CodeChefBaseURL:   getEnv("CODECHEF_BASE_URL", "https://www.codechef.com"),
		HackerRankBaseURL: getEnv("HACKERRANK_BASE_URL", "https://www.hackerrank.com"),
		AtCoderFeedURL:    getEnv("ATCODER_FEED_URL", "https://kenkoooo.com/atcoder/resources/contests.json"),
		LogLevel:          parseLogLevel(getEnv("LOG_LEVEL", "info")),
	}

	return cfg, nil
}

// UseMemoryStores reports whether the process should run on in-memory
// repositories instead of postgres.
func (c Config) UseMemoryStores() bool {
	return c.DBURL == ""
}

// Scraped profile pages block default Go user agents.
const defaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"

func parseLogLevel(v string) logging.Level {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "debug":
		return logging.LevelDebug
	case "warn", "warning":
		return logging.LevelWarn
	case "error":
		return logging.LevelError
	default:
		return logging.LevelInfo
	}
}

func getEnv(key, fallback string) string {
	value := os.Getenv(key)
	if strings.TrimSpace(value) == "" {
		return fallback
	}

	return value
}

func getEnvAsInt(key string, fallback int) (int, error) {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return fallback, nil
	}

	out, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}

	return out, nil
}

func splitCSV(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		item := strings.TrimSpace(part)
		if item == "" {
			continue
		}
		out = append(out, item)
	}

	return out
}

const (
	EnvDev   = "dev"
	EnvStage = "stage"
	EnvProd  = "prod"
)

func parseAppEnv(v string) (string, error) {
	value := strings.ToLower(strings.TrimSpace(v))
	switch value {
	case EnvDev, EnvStage, EnvProd:
		return value, nil
	default:
		return "", fmt.Errorf("invalid APP_ENV %q: valid values are %s, %s, %s", v, EnvDev, EnvStage, EnvProd)
	}
}
