package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/brontoio/bronto-mcp-server/pkg/timeutil"
)

const (
	BrontoAPIKey            = "BRONTO_API_KEY"
	BrontoAPIEndpoint       = "BRONTO_API_ENDPOINT"
	BrontoDeploymentMode    = "BRONTO_DEPLOYMENT_MODE"
	BrontoMCPPort           = "BRONTO_MCP_PORT"
	BrontoLogLevel          = "BRONTO_LOG_LEVEL"
	BrontoTimezone          = "BRONTO_TIMEZONE"
	BrontoMaxTimeRange      = "BRONTO_MAX_TIME_RANGE"
	BrontoMaxResults        = "BRONTO_MAX_RESULTS"
	BrontoRequestTimeout    = "BRONTO_REQUEST_TIMEOUT"
	BrontoTelemetryWriteKey = "BRONTO_TELEMETRY_WRITE_KEY"
)

const (
	defaultPort         = "8080"
	defaultMaxTimeRange = 30 * 24 * time.Hour
	defaultMaxResults   = 1000
	defaultTimeout      = 30 * time.Second
)

// Config is the process-wide configuration, read once at startup and
// immutable afterwards.
type Config struct {
	APIKey         string
	APIEndpoint    string
	DeploymentMode string
	Port           string
	LogLevel       string
	// Timezone resolves timestamp strings that carry no offset.
	Timezone *time.Location
	// MaxTimeRange bounds the span of a single query.
	MaxTimeRange time.Duration
	// MaxResults caps how many records one tool call aggregates across pages.
	MaxResults        int
	RequestTimeout    time.Duration
	TelemetryWriteKey string
}

// LoadConfig reads the environment. A missing API key or endpoint is a
// startup-time fatal error, never a per-request one.
func LoadConfig() (*Config, error) {
	apiKey := os.Getenv(BrontoAPIKey)
	if apiKey == "" {
		return nil, fmt.Errorf("environment variable `%s` not set", BrontoAPIKey)
	}
	endpoint := os.Getenv(BrontoAPIEndpoint)
	if endpoint == "" {
		return nil, fmt.Errorf("environment variable `%s` not set (e.g. https://api.eu.bronto.io)", BrontoAPIEndpoint)
	}

	cfg := &Config{
		APIKey:            apiKey,
		APIEndpoint:       endpoint,
		DeploymentMode:    envOrDefault(BrontoDeploymentMode, "local"),
		Port:              envOrDefault(BrontoMCPPort, defaultPort),
		LogLevel:          envOrDefault(BrontoLogLevel, "info"),
		Timezone:          time.UTC,
		MaxTimeRange:      defaultMaxTimeRange,
		MaxResults:        defaultMaxResults,
		RequestTimeout:    defaultTimeout,
		TelemetryWriteKey: os.Getenv(BrontoTelemetryWriteKey),
	}

	if tz := os.Getenv(BrontoTimezone); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid `%s` value %q: %w", BrontoTimezone, tz, err)
		}
		cfg.Timezone = loc
	}
	if s := os.Getenv(BrontoMaxTimeRange); s != "" {
		d, err := timeutil.ParseTimeRange(s)
		if err != nil {
			return nil, fmt.Errorf("invalid `%s` value %q: %w", BrontoMaxTimeRange, s, err)
		}
		cfg.MaxTimeRange = d
	}
	if s := os.Getenv(BrontoMaxResults); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid `%s` value %q: must be a positive integer", BrontoMaxResults, s)
		}
		cfg.MaxResults = n
	}
	if s := os.Getenv(BrontoRequestTimeout); s != "" {
		d, err := time.ParseDuration(s)
		if err != nil || d <= 0 {
			return nil, fmt.Errorf("invalid `%s` value %q: must be a positive duration", BrontoRequestTimeout, s)
		}
		cfg.RequestTimeout = d
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
