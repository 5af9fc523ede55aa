// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// DatabaseFileName is the SQLite file inside the metadata directory.
const DatabaseFileName = "ippi.db"

// Config holds the application configuration.
type Config struct {
	App       AppConfig
	Logger    LoggerConfig
	Metadata  MetadataConfig
	Server    ServerConfig
	Auth      AuthConfig
	Stats     StatsConfig
	RateLimit RateLimitConfig
	Metrics   MetricsConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// IsProduction reports whether the server runs in production.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// MetadataConfig holds the data directory configuration.
type MetadataConfig struct {
	// BasePath holds ippi.db and auth.key.
	BasePath string
}

// DatabasePath returns the path of the SQLite database.
func (m MetadataConfig) DatabasePath() string {
	return filepath.Join(m.BasePath, DatabaseFileName)
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port         string        // Server port (default: 8080)
	ReadTimeout  time.Duration // HTTP read timeout (default: 15s)
	WriteTimeout time.Duration // HTTP write timeout (default: 15s)
	IdleTimeout  time.Duration // HTTP idle timeout (default: 60s)
	CORSOrigins  []string      // Allowed CORS origins (default: any)

	// TrustProxyHeaders identifies clients by X-Forwarded-For / X-Real-IP.
	// Enable only behind a reverse proxy that overwrites those headers.
	TrustProxyHeaders bool
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	// PASETO v4 symmetric key for access tokens, hex encoded. ACCESS_TOKEN_KEY,
	// otherwise filled from auth.LoadOrGenerateKey.
	AccessTokenKey      string
	AccessTokenDuration time.Duration // e.g., 24h
}

// StatsConfig tunes the statistics engine.
type StatsConfig struct {
	// TimeZone names the IANA zone that defines "today" (default: UTC).
	TimeZone string
	// MaxRetries bounds retries after database contention (default: 3).
	MaxRetries int
	// RetryBackoff is the base delay between retries (default: 25ms).
	RetryBackoff time.Duration
	// CacheSizeMB sizes the read-side stats cache; 0 disables it (default: 16).
	CacheSizeMB int
	// CacheTTL bounds how long a cached aggregate is served (default: 5m).
	CacheTTL time.Duration
	// DecayEnabled runs the periodic streak-decay job (default: true).
	DecayEnabled bool
	// DecayInterval is how often the job runs (default: 1h).
	DecayInterval time.Duration
}

// Location resolves TimeZone.
func (s StatsConfig) Location() (*time.Location, error) {
	if s.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.TimeZone)
}

// RateLimitConfig holds per-IP request limits.
type RateLimitConfig struct {
	RequestsPerMinute     int // default: 60
	AuthRequestsPerMinute int // default: 5
}

// MetricsConfig holds Prometheus exposition configuration.
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// LoadConfig loads configuration from the process command line.
// See Load for precedence.
func LoadConfig() (*Config, error) {
	return Load(os.Args[1:])
}

// Load loads configuration from multiple sources with precedence:
// 1. Command-line flags in args (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
//
// Tools with their own flags pass nil to read only the environment.
func Load(args []string) (*Config, error) {
	fs := flag.NewFlagSet("ippi", flag.ContinueOnError)

	env := fs.String("env", "", "Environment (development, staging, production)")
	logLevel := fs.String("log-level", "", "Log level (debug, info, warn, error)")
	metadataPath := fs.String("metadata-path", "", "Data directory holding ippi.db and auth.key")

	// Auth flags
	accessTokenDuration := fs.String("access-token-duration", "", "Access token lifetime (e.g., 24h)")

	// Server flags
	serverPort := fs.String("port", "", "Server port (default: 8080)")
	readTimeout := fs.String("read-timeout", "", "HTTP read timeout (default: 15s)")
	writeTimeout := fs.String("write-timeout", "", "HTTP write timeout (default: 15s)")
	idleTimeout := fs.String("idle-timeout", "", "HTTP idle timeout (default: 60s)")
	corsOrigins := fs.String("cors-origins", "", "Comma-separated allowed CORS origins (default: *)")
	trustProxy := fs.String("trust-proxy-headers", "", "Take the client IP from X-Forwarded-For/X-Real-IP (default: false)")

	// Stats flags
	timeZone := fs.String("time-zone", "", "IANA time zone defining the calendar day (default: UTC)")
	maxRetries := fs.String("stats-max-retries", "", "Retries after database contention (default: 3)")
	retryBackoff := fs.String("stats-retry-backoff", "", "Base retry delay (default: 25ms)")
	cacheSize := fs.String("stats-cache-mb", "", "Stats cache size in MB, 0 disables (default: 16)")
	cacheTTL := fs.String("stats-cache-ttl", "", "Stats cache TTL (default: 5m)")
	decayEnabled := fs.String("streak-decay-enabled", "", "Run the streak decay job (default: true)")
	decayInterval := fs.String("streak-decay-interval", "", "Streak decay job interval (default: 1h)")

	// Rate limit flags
	rateLimit := fs.String("rate-limit", "", "API requests per minute per IP (default: 60)")
	authRateLimit := fs.String("auth-rate-limit", "", "Token requests per minute per IP (default: 5)")

	// Metrics flags
	metricsEnabled := fs.String("metrics-enabled", "", "Expose Prometheus metrics (default: true)")
	metricsPath := fs.String("metrics-path", "", "Metrics endpoint path (default: /metrics)")

	envFile := fs.String("env-file", ".env", "Path to .env file")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(*envFile)

	// Build config with proper precedence.
	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(*env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(*logLevel, "LOG_LEVEL", "info"),
		},
		Metadata: MetadataConfig{
			BasePath: getConfigValue(*metadataPath, "METADATA_PATH", ""),
		},
		Auth: AuthConfig{
			// Secret material is read from the environment only.
			AccessTokenKey: os.Getenv("ACCESS_TOKEN_KEY"),
		},
		Server: ServerConfig{
			Port:              getConfigValue(*serverPort, "SERVER_PORT", "8080"),
			CORSOrigins:       splitList(getConfigValue(*corsOrigins, "CORS_ORIGINS", "")),
			TrustProxyHeaders: getBoolConfigValue(*trustProxy, "TRUST_PROXY_HEADERS", false),
		},
		Stats: StatsConfig{
			TimeZone:     getConfigValue(*timeZone, "STATS_TIME_ZONE", "UTC"),
			MaxRetries:   getIntConfigValue(*maxRetries, "STATS_MAX_RETRIES", 3),
			CacheSizeMB:  getIntConfigValue(*cacheSize, "STATS_CACHE_MB", 16),
			DecayEnabled: getBoolConfigValue(*decayEnabled, "STREAK_DECAY_ENABLED", true),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute:     getIntConfigValue(*rateLimit, "RATE_LIMIT_PER_MINUTE", 60),
			AuthRequestsPerMinute: getIntConfigValue(*authRateLimit, "AUTH_RATE_LIMIT_PER_MINUTE", 5),
		},
		Metrics: MetricsConfig{
			Enabled: getBoolConfigValue(*metricsEnabled, "METRICS_ENABLED", true),
			Path:    getConfigValue(*metricsPath, "METRICS_PATH", "/metrics"),
		},
	}

	durations := []struct {
		dst                       *time.Duration
		flagValue, envKey, defVal string
		name                      string
	}{
		{&cfg.Auth.AccessTokenDuration, *accessTokenDuration, "ACCESS_TOKEN_DURATION", "24h", "access token duration"},
		{&cfg.Server.ReadTimeout, *readTimeout, "SERVER_READ_TIMEOUT", "15s", "read timeout"},
		{&cfg.Server.WriteTimeout, *writeTimeout, "SERVER_WRITE_TIMEOUT", "15s", "write timeout"},
		{&cfg.Server.IdleTimeout, *idleTimeout, "SERVER_IDLE_TIMEOUT", "60s", "idle timeout"},
		{&cfg.Stats.RetryBackoff, *retryBackoff, "STATS_RETRY_BACKOFF", "25ms", "stats retry backoff"},
		{&cfg.Stats.CacheTTL, *cacheTTL, "STATS_CACHE_TTL", "5m", "stats cache TTL"},
		{&cfg.Stats.DecayInterval, *decayInterval, "STREAK_DECAY_INTERVAL", "1h", "streak decay interval"},
	}
	for _, d := range durations {
		raw := getConfigValue(d.flagValue, d.envKey, d.defVal)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", d.name, raw, err)
		}
		*d.dst = parsed
	}

	// Expand and validate metadata path.
	if err := cfg.expandMetadataPath(); err != nil {
		return nil, fmt.Errorf("invalid metadata path: %w", err)
	}

	// Validate configuration.
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	if c.App.Environment == "" {
		return errors.New("ENV is required")
	}

	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %s (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Metadata.BasePath == "" {
		return errors.New("metadata base path cannot be empty after expansion")
	}

	if _, err := c.Stats.Location(); err != nil {
		return fmt.Errorf("invalid time zone %q: %w", c.Stats.TimeZone, err)
	}

	if c.Stats.MaxRetries < 0 || c.Stats.RetryBackoff < 0 || c.Stats.CacheSizeMB < 0 || c.Stats.CacheTTL < 0 {
		return errors.New("stats retries, backoff and cache settings must not be negative")
	}
	if c.Stats.DecayEnabled && c.Stats.DecayInterval <= 0 {
		return errors.New("streak decay interval must be positive when the job is enabled")
	}

	if c.RateLimit.RequestsPerMinute < 0 || c.RateLimit.AuthRequestsPerMinute < 0 {
		return errors.New("rate limits must not be negative")
	}

	if c.Metrics.Enabled && !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("invalid metrics path %q: must start with /", c.Metrics.Path)
	}

	// Auth key is set by auth.LoadOrGenerateKey at startup.

	return nil
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	// Expand tilde.
	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	// Make absolute if needed.
	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandMetadataPath expands ~ and makes the path absolute.
func (c *Config) expandMetadataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, ".ippi")

	expanded, err := expandPath(c.Metadata.BasePath, defaultPath)
	if err != nil {
		return err
	}
	c.Metadata.BasePath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	// Priority 1: Command-line flag.
	if flagValue != "" {
		return flagValue
	}

	// Priority 2: Environment variable.
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}

	// Priority 3: Default value.
	return defaultValue
}

// getBoolConfigValue returns a bool from flag, env var, or default.
// Accepts: "true", "1", "yes" (case-insensitive) as true; anything else is false.
func getBoolConfigValue(flagValue, envKey string, defaultValue bool) bool {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	strValue = strings.ToLower(strValue)
	return strValue == "true" || strValue == "1" || strValue == "yes"
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments.
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=value.
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		// Remove quotes if present.
		value = strings.Trim(value, `"'`)

		// Only set if not already set (env vars take precedence over .env file).
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
