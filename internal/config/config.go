package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures runtime configuration sourced from environment variables.
type Config struct {
	Environment  string
	HTTPPort     string
	DatabasePath string

	// RedisURL selects the Redis cache backend when set; empty means the
	// in-process memory cache is used instead.
	RedisURL string

	// TrustedProxies is a comma-separated list of proxy IPs/CIDRs whose
	// forwarding headers are honoured when resolving the client address.
	TrustedProxies []string

	// GateFailOpen lets requests through when the denylist store is
	// unreachable. The default is fail-closed: a store error surfaces as a
	// server error rather than an allow.
	GateFailOpen bool

	BlockCacheTTL time.Duration
	GeoCacheTTL   time.Duration

	// GeoProviderURL is the base URL of the HTTP geolocation provider.
	// Lookups hit <base>/<ip>/json/ and expect country_name and city fields.
	GeoProviderURL string
	GeoTimeout     time.Duration

	// GeoLiteDBPath optionally points at a local GeoLite2-City mmdb file,
	// consulted before the HTTP provider.
	GeoLiteDBPath string

	SensitivePaths []string

	DetectionWindow     time.Duration
	DetectionCron       string
	CleanupCron         string
	LogRetention        time.Duration
	SuspiciousRetention time.Duration

	// NotifyURLs holds shoutrrr service URLs alerted when new findings land.
	NotifyURLs []string
}

// Load reads env vars (and an optional .env file) and falls back to defaults
// so the server can boot with zero configuration.
func Load() (Config, error) {
	// A missing .env file is not an error; explicit env always wins.
	_ = godotenv.Load()

	cfg := Config{
		Environment:         getEnv("IPS_ENV", "development"),
		HTTPPort:            getEnv("IPS_HTTP_PORT", "8080"),
		DatabasePath:        getEnv("IPS_DB_PATH", filepath.Join("data", "ipsentry.db")),
		RedisURL:            getEnv("IPS_REDIS_URL", ""),
		TrustedProxies:      splitList(getEnv("IPS_TRUSTED_PROXIES", "")),
		GateFailOpen:        getEnvBool("IPS_GATE_FAIL_OPEN", false),
		BlockCacheTTL:       getEnvDuration("IPS_BLOCK_CACHE_TTL", 5*time.Minute),
		GeoCacheTTL:         getEnvDuration("IPS_GEO_CACHE_TTL", 24*time.Hour),
		GeoProviderURL:      getEnv("IPS_GEO_PROVIDER_URL", "https://ipapi.co"),
		GeoTimeout:          getEnvDuration("IPS_GEO_TIMEOUT", 5*time.Second),
		GeoLiteDBPath:       getEnv("IPS_GEOLITE_DB_PATH", ""),
		SensitivePaths:      splitList(getEnv("IPS_SENSITIVE_PATHS", "/admin/,/login/,/api/admin/")),
		DetectionWindow:     getEnvDuration("IPS_DETECTION_WINDOW", time.Hour),
		DetectionCron:       getEnv("IPS_DETECTION_CRON", "@hourly"),
		CleanupCron:         getEnv("IPS_CLEANUP_CRON", "@daily"),
		LogRetention:        getEnvDuration("IPS_LOG_RETENTION", 30*24*time.Hour),
		SuspiciousRetention: getEnvDuration("IPS_SUSPICIOUS_RETENTION", 7*24*time.Hour),
		NotifyURLs:          splitList(getEnv("IPS_NOTIFY_URLS", "")),
	}

	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), 0o755); err != nil {
		return Config{}, fmt.Errorf("ensure data directory: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}

	return fallback
}

func getEnvBool(key string, fallback bool) bool {
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

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitList(val string) []string {
	if val == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(val, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
