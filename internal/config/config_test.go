package config

import (
	"testing"
	"time"
)

// setEnv sets a minimal valid environment plus overrides, restoring everything after the test.
func setEnv(t *testing.T, overrides map[string]string) {
	t.Helper()
	base := map[string]string{
		"HTTP_ADDR":                   "",
		"DATABASE_URL":                "",
		"REDIS_URL":                   "",
		"SESSION_STORE":               "memory",
		"JWT_ACCESS_SECRET":           "access-secret-0123456789abcdef0123",
		"JWT_REFRESH_SECRET":          "refresh-secret-0123456789abcdef012",
		"JWT_ISSUER":                  "",
		"JWT_ACCESS_TTL":              "",
		"JWT_REFRESH_TTL":             "",
		"BCRYPT_COST":                 "",
		"COOKIE_SECURE":               "",
		"APP_ENV":                     "",
		"KAFKA_BROKERS":               "",
		"CORS_ALLOWED_ORIGINS":        "",
		"OTEL_EXPORTER_OTLP_ENDPOINT": "",
	}
	for k, v := range overrides {
		base[k] = v
	}
	for k, v := range base {
		t.Setenv(k, v)
	}
}

func TestLoad_Defaults(t *testing.T) {
	setEnv(t, map[string]string{"HTTP_ADDR": ":8080"})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Errorf("HTTPAddr = %q, want %q", cfg.HTTPAddr, ":8080")
	}
	if cfg.SessionStore != StoreMemory {
		t.Errorf("SessionStore = %q, want memory", cfg.SessionStore)
	}
	if cfg.AccessTTL() != 30*time.Minute {
		t.Errorf("AccessTTL = %v, want 30m", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 24*time.Hour {
		t.Errorf("RefreshTTL = %v, want 24h", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 10 {
		t.Errorf("BcryptCost = %d, want 10", cfg.BcryptCost)
	}
	if cfg.LogLevel != "info" || cfg.LogFormat != "json" {
		t.Errorf("log config = %q/%q", cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.TelemetryKafkaTopic != "rental-auth-telemetry" {
		t.Errorf("TelemetryKafkaTopic = %q", cfg.TelemetryKafkaTopic)
	}
	if cfg.SessionPruneSchedule != "@every 1h" {
		t.Errorf("SessionPruneSchedule = %q", cfg.SessionPruneSchedule)
	}
}

func TestLoad_EnvVarOverride(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_ADDR":      ":9090",
		"JWT_ISSUER":     "custom-issuer",
		"BCRYPT_COST":    "14",
		"JWT_ACCESS_TTL": "5m",
		"COOKIE_SECURE":  "false",
	})

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" || cfg.JWTIssuer != "custom-issuer" || cfg.BcryptCost != 14 {
		t.Errorf("cfg = %+v", cfg)
	}
	if cfg.AccessTTL() != 5*time.Minute {
		t.Errorf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.CookieSecure {
		t.Error("CookieSecure should be false")
	}
}

func TestLoad_Secrets(t *testing.T) {
	setEnv(t, map[string]string{"HTTP_ADDR": ":8080", "JWT_ACCESS_SECRET": ""})
	if _, err := Load(); err == nil {
		t.Error("missing access secret should fail")
	}

	setEnv(t, map[string]string{"HTTP_ADDR": ":8080", "JWT_ACCESS_SECRET": "same", "JWT_REFRESH_SECRET": "same"})
	if _, err := Load(); err == nil {
		t.Error("shared secret should fail")
	}
}

func TestLoad_SessionStore(t *testing.T) {
	testCases := []struct {
		name string
		env  map[string]string
		err  bool
	}{
		{"postgres without dsn", map[string]string{"SESSION_STORE": "postgres"}, true},
		{"postgres", map[string]string{"SESSION_STORE": "postgres", "DATABASE_URL": "postgres://x"}, false},
		{"redis without url", map[string]string{"SESSION_STORE": "redis", "DATABASE_URL": "postgres://x"}, true},
		{"redis", map[string]string{"SESSION_STORE": "Redis", "DATABASE_URL": "postgres://x", "REDIS_URL": "redis://localhost:6379/0"}, false},
		{"unknown", map[string]string{"SESSION_STORE": "etcd"}, true},
		{"memory in production", map[string]string{"SESSION_STORE": "memory", "APP_ENV": "production"}, true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.env["HTTP_ADDR"] = ":8080"
			setEnv(t, tc.env)
			_, err := Load()
			if tc.err && err == nil {
				t.Fatal("Load should return error")
			}
			if !tc.err && err != nil {
				t.Fatalf("Load: %v", err)
			}
		})
	}
}

func TestLoad_BCRYPT_COSTRange(t *testing.T) {
	testCases := []struct {
		name  string
		value string
		want  int
		err   bool
	}{
		{"valid min", "4", 4, false},
		{"valid max", "31", 31, false},
		{"valid middle", "12", 12, false},
		{"too low", "3", 0, true},
		{"too high", "32", 0, true},
		{"zero", "0", 10, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setEnv(t, map[string]string{"HTTP_ADDR": ":8080", "BCRYPT_COST": tc.value})

			cfg, err := Load()
			if tc.err {
				if err == nil {
					t.Fatal("Load should return error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Load: %v", err)
			}
			if cfg.BcryptCost != tc.want {
				t.Errorf("BcryptCost = %d, want %d", cfg.BcryptCost, tc.want)
			}
		})
	}
}

func TestLoad_InsecureCookieInProduction(t *testing.T) {
	setEnv(t, map[string]string{
		"HTTP_ADDR":     ":8080",
		"SESSION_STORE": "postgres",
		"DATABASE_URL":  "postgres://x",
		"COOKIE_SECURE": "false",
		"APP_ENV":       "production",
	})

	cfg, err := Load()
	if err == nil {
		t.Fatal("Load should return error when COOKIE_SECURE=false and APP_ENV=production")
	}
	if cfg != nil {
		t.Error("Load should return nil config on error")
	}
}

func TestTTL_Fallbacks(t *testing.T) {
	testCases := []struct {
		value string
		want  time.Duration
	}{
		{"45m", 45 * time.Minute},
		{"invalid", 30 * time.Minute},
		{"0", 30 * time.Minute},
		{"-5m", 30 * time.Minute},
	}
	for _, tc := range testCases {
		c := &Config{JWTAccessTTL: tc.value, JWTRefreshTTL: tc.value}
		if got := c.AccessTTL(); got != tc.want {
			t.Errorf("AccessTTL(%q) = %v, want %v", tc.value, got, tc.want)
		}
	}
	if got := (&Config{JWTRefreshTTL: "bad"}).RefreshTTL(); got != 24*time.Hour {
		t.Errorf("RefreshTTL fallback = %v, want 24h", got)
	}
	if got := (&Config{JWTRefreshTTL: "336h"}).RefreshTTL(); got != 336*time.Hour {
		t.Errorf("RefreshTTL = %v, want 336h", got)
	}
}

func TestLists(t *testing.T) {
	c := &Config{TelemetryKafkaBrokers: " a:9092, ,b:9092 ", CORSAllowedOrigins: "https://app.example.com"}
	brokers := c.TelemetryKafkaBrokersList()
	if len(brokers) != 2 || brokers[0] != "a:9092" || brokers[1] != "b:9092" {
		t.Errorf("brokers = %v", brokers)
	}
	if origins := c.CORSOrigins(); len(origins) != 1 {
		t.Errorf("origins = %v", origins)
	}
	var nilCfg *Config
	if nilCfg.TelemetryKafkaBrokersList() != nil {
		t.Error("nil config should yield nil brokers")
	}
}

func TestLoadDatabaseURL(t *testing.T) {
	setEnv(t, map[string]string{"JWT_ACCESS_SECRET": "", "JWT_REFRESH_SECRET": "", "DATABASE_URL": "postgres://localhost/rental"})
	dsn, err := LoadDatabaseURL()
	if err != nil {
		t.Fatalf("LoadDatabaseURL: %v", err)
	}
	if dsn != "postgres://localhost/rental" {
		t.Errorf("dsn = %q", dsn)
	}

	t.Setenv("DATABASE_URL", "  ")
	if _, err := LoadDatabaseURL(); err == nil {
		t.Error("blank DATABASE_URL should fail")
	}
}
