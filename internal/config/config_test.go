package config

import (
	"strings"
	"testing"
	"time"
)

func fakeEnv(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestFromEnv_DefaultsApplied(t *testing.T) {
	t.Parallel()

	cfg, err := FromEnv(fakeEnv(map[string]string{
		"DB_DSN":            "sqlserver://sa:pw@dwh?database=mart",
		"API_TOKEN_URL":     "https://auth.example.com/token",
		"API_CALL_URL":      "https://api.example.com/v2",
		"API_CLIENT_ID":     "id",
		"API_CLIENT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if cfg.DBKind != "sqlserver" {
		t.Errorf("DBKind=%q, want sqlserver", cfg.DBKind)
	}
	if cfg.GrantType != "client_credentials" {
		t.Errorf("GrantType=%q", cfg.GrantType)
	}
	if cfg.PageSize != 100 {
		t.Errorf("PageSize=%d, want 100", cfg.PageSize)
	}
	if cfg.CreatedAtMin != "2025-01-01T01:00:00.00" {
		t.Errorf("CreatedAtMin=%q", cfg.CreatedAtMin)
	}
	if cfg.ThrottleDelay != time.Second {
		t.Errorf("ThrottleDelay=%v, want 1s", cfg.ThrottleDelay)
	}
	if cfg.LogPath != "Logs/log.txt" {
		t.Errorf("LogPath=%q", cfg.LogPath)
	}
}

func TestFromEnv_BuildsSQLServerDSNFromParts(t *testing.T) {
	t.Parallel()

	cfg, err := FromEnv(fakeEnv(map[string]string{
		"DB_SERVER":         "dwh.internal",
		"DB_DATABASE":       "mart",
		"DB_USERNAME":       "loader",
		"DB_PASSWORD":       "p@ss/word",
		"API_TOKEN_URL":     "https://auth.example.com/token",
		"API_CALL_URL":      "https://api.example.com/v2",
		"API_CLIENT_ID":     "id",
		"API_CLIENT_SECRET": "secret",
	}))
	if err != nil {
		t.Fatalf("FromEnv: %v", err)
	}

	if !strings.HasPrefix(cfg.DBDSN, "sqlserver://loader:") {
		t.Errorf("DSN=%q, want sqlserver://loader:... prefix", cfg.DBDSN)
	}
	if !strings.Contains(cfg.DBDSN, "@dwh.internal") || !strings.Contains(cfg.DBDSN, "database=mart") {
		t.Errorf("DSN=%q missing host or database", cfg.DBDSN)
	}
}

func TestFromEnv_MissingSettingsListed(t *testing.T) {
	t.Parallel()

	_, err := FromEnv(fakeEnv(map[string]string{
		"API_TOKEN_URL": "https://auth.example.com/token",
	}))
	if err == nil {
		t.Fatal("FromEnv err=nil, want error")
	}
	for _, want := range []string{"DB_DSN", "API_CALL_URL", "API_CLIENT_ID", "API_CLIENT_SECRET"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}
}

func TestFromEnv_InvalidThrottleDelay(t *testing.T) {
	t.Parallel()

	_, err := FromEnv(fakeEnv(map[string]string{
		"DB_DSN":             "sqlserver://dwh?database=mart",
		"API_TOKEN_URL":      "t",
		"API_CALL_URL":       "c",
		"API_CLIENT_ID":      "i",
		"API_CLIENT_SECRET":  "s",
		"API_THROTTLE_DELAY": "fast",
	}))
	if err == nil {
		t.Fatal("FromEnv err=nil, want error for bad duration")
	}
}
