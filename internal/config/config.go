// Package config loads the process-wide configuration once at startup.
//
// The job takes no CLI flags: everything comes from the environment, with an
// optional .env file for local runs. The resulting Config is built once,
// passed to components at construction time, and never mutated afterwards.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultDBKind        = "sqlserver"
	DefaultGrantType     = "client_credentials"
	DefaultPageSize      = 100
	DefaultCreatedAtMin  = "2025-01-01T01:00:00.00"
	DefaultThrottleDelay = time.Second
	DefaultLogPath       = "Logs/log.txt"
)

// Config is the immutable configuration for one run.
type Config struct {
	// Database.
	DBKind string // storage backend kind: sqlserver, postgres, sqlite
	DBDSN  string

	// Marketplace API.
	TokenURL      string
	CallURL       string
	ClientID      string
	ClientSecret  string
	GrantType     string
	PageSize      int
	CreatedAtMin  string
	ThrottleDelay time.Duration

	// Run log file.
	LogPath string

	// Metrics (optional; empty or "none" disables).
	MetricsBackend string
	MetricsTags    string
}

// Load reads the optional .env file and the environment into a Config.
//
// Errors:
//   - Returns an error listing every missing required variable; a missing
//     .env file is not an error.
func Load() (Config, error) {
	// Ignore the error: a .env file is a local convenience, not a requirement.
	_ = godotenv.Load()
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a getenv function. Tests pass a fake.
func FromEnv(getenv func(string) string) (Config, error) {
	cfg := Config{
		DBKind:         orDefault(getenv("DB_KIND"), DefaultDBKind),
		DBDSN:          getenv("DB_DSN"),
		TokenURL:       getenv("API_TOKEN_URL"),
		CallURL:        getenv("API_CALL_URL"),
		ClientID:       getenv("API_CLIENT_ID"),
		ClientSecret:   getenv("API_CLIENT_SECRET"),
		GrantType:      orDefault(getenv("API_GRANT_TYPE"), DefaultGrantType),
		PageSize:       DefaultPageSize,
		CreatedAtMin:   orDefault(getenv("API_CREATED_AT_MIN"), DefaultCreatedAtMin),
		ThrottleDelay:  DefaultThrottleDelay,
		LogPath:        orDefault(getenv("LOG_PATH"), DefaultLogPath),
		MetricsBackend: getenv("METRICS_BACKEND"),
		MetricsTags:    getenv("METRICS_TAGS"),
	}

	if v := getenv("API_PAGE_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return Config{}, fmt.Errorf("config: invalid API_PAGE_SIZE %q", v)
		}
		cfg.PageSize = n
	}
	if v := getenv("API_THROTTLE_DELAY"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil || d < 0 {
			return Config{}, fmt.Errorf("config: invalid API_THROTTLE_DELAY %q", v)
		}
		cfg.ThrottleDelay = d
	}

	// The SQL Server DSN can be assembled from the legacy four-part settings
	// when DB_DSN is not given explicitly.
	if cfg.DBDSN == "" {
		cfg.DBDSN = sqlServerDSN(
			getenv("DB_SERVER"),
			getenv("DB_DATABASE"),
			getenv("DB_USERNAME"),
			getenv("DB_PASSWORD"),
		)
	}

	var missing []string
	if cfg.DBDSN == "" {
		missing = append(missing, "DB_DSN (or DB_SERVER/DB_DATABASE/DB_USERNAME/DB_PASSWORD)")
	}
	if cfg.TokenURL == "" {
		missing = append(missing, "API_TOKEN_URL")
	}
	if cfg.CallURL == "" {
		missing = append(missing, "API_CALL_URL")
	}
	if cfg.ClientID == "" {
		missing = append(missing, "API_CLIENT_ID")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "API_CLIENT_SECRET")
	}
	if len(missing) > 0 {
		return Config{}, errors.New("config: missing required settings: " + join(missing))
	}

	return cfg, nil
}

// sqlServerDSN assembles a sqlserver:// URL from the four discrete settings.
// Returns "" when the server or database is absent.
func sqlServerDSN(server, database, username, password string) string {
	if server == "" || database == "" {
		return ""
	}
	u := url.URL{
		Scheme: "sqlserver",
		Host:   server,
	}
	if username != "" {
		u.User = url.UserPassword(username, password)
	}
	q := url.Values{}
	q.Set("database", database)
	u.RawQuery = q.Encode()
	return u.String()
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

func join(parts []string) string {
	out := ""
	for i, p := range parts {
		if i > 0 {
			out += ", "
		}
		out += p
	}
	return out
}
