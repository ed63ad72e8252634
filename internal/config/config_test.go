package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// DatabaseConfig.GetDSN
// ---------------------------------------------------------------------------

func TestGetDSN(t *testing.T) {
	tests := []struct {
		name string
		cfg  DatabaseConfig
		want string
	}{
		{
			name: "standard config",
			cfg: DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "admitai",
				Password: "secret",
				Name:     "admitai",
				SSLMode:  "require",
			},
			want: "host=localhost port=5432 user=admitai password=secret dbname=admitai sslmode=require",
		},
		{
			name: "empty password",
			cfg: DatabaseConfig{
				Host:    "db.internal",
				Port:    5433,
				User:    "user",
				Name:    "dbname",
				SSLMode: "disable",
			},
			want: "host=db.internal port=5433 user=user password= dbname=dbname sslmode=disable",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetDSN(); got != tt.want {
				t.Errorf("GetDSN() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestGetAddress(t *testing.T) {
	tests := []struct {
		name string
		cfg  ServerConfig
		want string
	}{
		{"default", ServerConfig{Host: "0.0.0.0", Port: 5000}, "0.0.0.0:5000"},
		{"localhost", ServerConfig{Host: "localhost", Port: 3000}, "localhost:3000"},
		{"empty host", ServerConfig{Port: 8080}, ":8080"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.cfg.GetAddress(); got != tt.want {
				t.Errorf("GetAddress() = %q, want %q", got, tt.want)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// Config.Validate
// ---------------------------------------------------------------------------

func minimalValidConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        5000,
			BaseURL:     "http://localhost:5000",
			Environment: "production",
		},
		Database: DatabaseConfig{
			Host: "localhost",
			Name: "admitai",
			User: "admitai",
		},
		Storage: StorageConfig{
			DefaultBackend: "local",
			Local:          LocalStorageConfig{BasePath: "./monitoring"},
		},
		Auth:    AuthConfig{BcryptCost: 10},
		AI:      AIConfig{Provider: "heuristic"},
		Logging: LoggingConfig{Level: "info"},
	}
}

func TestValidate(t *testing.T) {
	t.Run("valid minimal config passes", func(t *testing.T) {
		if err := minimalValidConfig().Validate(); err != nil {
			t.Errorf("Validate() unexpected error: %v", err)
		}
	})

	cases := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"port zero", func(c *Config) { c.Server.Port = 0 }, "invalid server port"},
		{"port too high", func(c *Config) { c.Server.Port = 70000 }, "invalid server port"},
		{"missing base url", func(c *Config) { c.Server.BaseURL = "" }, "server.base_url"},
		{"bad environment", func(c *Config) { c.Server.Environment = "staging" }, "invalid server environment"},
		{"missing db host", func(c *Config) { c.Database.Host = "" }, "database.host"},
		{"missing db name", func(c *Config) { c.Database.Name = "" }, "database.name"},
		{"missing db user", func(c *Config) { c.Database.User = "" }, "database.user"},
		{"unknown backend", func(c *Config) { c.Storage.DefaultBackend = "ftp" }, "invalid storage backend"},
		{"s3 without bucket", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Region = "ap-northeast-2"
		}, "storage.s3.bucket"},
		{"s3 without region", func(c *Config) {
			c.Storage.DefaultBackend = "s3"
			c.Storage.S3.Bucket = "parity"
		}, "storage.s3.region"},
		{"azure incomplete", func(c *Config) {
			c.Storage.DefaultBackend = "azure"
			c.Storage.Azure.AccountName = "acct"
		}, "storage.azure"},
		{"gcs without bucket", func(c *Config) { c.Storage.DefaultBackend = "gcs" }, "storage.gcs.bucket"},
		{"local without path", func(c *Config) { c.Storage.Local.BasePath = "" }, "storage.local.base_path"},
		{"bcrypt cost too low", func(c *Config) { c.Auth.BcryptCost = 2 }, "bcrypt_cost"},
		{"rate limit without requests", func(c *Config) {
			c.Security.RateLimiting.Enabled = true
			c.Security.RateLimiting.Window = time.Minute
		}, "rate_limiting.requests"},
		{"rate limit without window", func(c *Config) {
			c.Security.RateLimiting.Enabled = true
			c.Security.RateLimiting.Requests = 10
		}, "rate_limiting.window"},
		{"tls without cert", func(c *Config) {
			c.Security.TLS.Enabled = true
			c.Security.TLS.KeyFile = "key.pem"
		}, "cert_file"},
		{"unknown ai provider", func(c *Config) { c.AI.Provider = "gpt" }, "invalid ai.provider"},
		{"unknown log level", func(c *Config) { c.Logging.Level = "verbose" }, "invalid logging level"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := minimalValidConfig()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tc.wantErr)
			}
			if !strings.Contains(err.Error(), tc.wantErr) {
				t.Errorf("Validate() error = %q, want it to contain %q", err.Error(), tc.wantErr)
			}
		})
	}
}

// ---------------------------------------------------------------------------
// ServerConfig helpers
// ---------------------------------------------------------------------------

func TestIsDevelopment(t *testing.T) {
	if !(&ServerConfig{Environment: "Development"}).IsDevelopment() {
		t.Error("IsDevelopment() = false for Development, want true")
	}
	if (&ServerConfig{Environment: "production"}).IsDevelopment() {
		t.Error("IsDevelopment() = true for production, want false")
	}
}

func TestGetPublicURL(t *testing.T) {
	s := ServerConfig{PublicURL: "https://example.kr/"}
	if got := s.GetPublicURL(); got != "https://example.kr" {
		t.Errorf("GetPublicURL = %q, want https://example.kr", got)
	}
	if got := (&ServerConfig{}).GetPublicURL(); got != "https://admitai.kr" {
		t.Errorf("GetPublicURL fallback = %q, want https://admitai.kr", got)
	}
}

// ---------------------------------------------------------------------------
// expandEnv
// ---------------------------------------------------------------------------

func TestExpandEnv(t *testing.T) {
	t.Setenv("CONFIG_TEST_SECRET", "super-secret")
	if got := expandEnv("${CONFIG_TEST_SECRET}"); got != "super-secret" {
		t.Errorf("expandEnv() = %q, want super-secret", got)
	}
	if got := expandEnv("plain"); got != "plain" {
		t.Errorf("expandEnv() = %q, want plain", got)
	}
}

// ---------------------------------------------------------------------------
// Load
// ---------------------------------------------------------------------------

// writeTempConfig creates a temp YAML file and registers a cleanup to remove it.
func writeTempConfig(t *testing.T, content string) string {
	t.Helper()
	f, err := os.CreateTemp("", "config-test-*.yaml")
	if err != nil {
		t.Fatal("CreateTemp:", err)
	}
	t.Cleanup(func() { os.Remove(f.Name()) })
	if _, err := f.WriteString(content); err != nil {
		t.Fatal("WriteString:", err)
	}
	f.Close()
	return f.Name()
}

func TestLoad_DefaultsApplied(t *testing.T) {
	const content = `
database:
  host: "localhost"
logging:
  level: "info"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Server.Port != 5000 {
		t.Errorf("default Server.Port = %d, want 5000", cfg.Server.Port)
	}
	if cfg.Auth.TokenTTL != 7*24*time.Hour {
		t.Errorf("default Auth.TokenTTL = %v, want 168h", cfg.Auth.TokenTTL)
	}
	if cfg.Security.RateLimiting.Requests != 100 || cfg.Security.RateLimiting.Window != 15*time.Minute {
		t.Errorf("default rate limit = %d/%v, want 100/15m",
			cfg.Security.RateLimiting.Requests, cfg.Security.RateLimiting.Window)
	}
	if cfg.SEO.NaverToGoogleThreshold != 0.6 || cfg.SEO.BingToGoogleThreshold != 0.15 {
		t.Errorf("default SEO thresholds = %v/%v, want 0.6/0.15",
			cfg.SEO.NaverToGoogleThreshold, cfg.SEO.BingToGoogleThreshold)
	}
	if cfg.Seed.OrgSlug != "admitai-academy" {
		t.Errorf("default Seed.OrgSlug = %q, want admitai-academy", cfg.Seed.OrgSlug)
	}
	if cfg.Seed.CourseCode != "ADM101" {
		t.Errorf("default Seed.CourseCode = %q, want ADM101", cfg.Seed.CourseCode)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ADM_SERVER_PORT", "7000")
	t.Setenv("ADM_AI_PROVIDER", "gemini")
	t.Setenv("ENCRYPTION_KEY", "0123456789abcdef0123456789abcdef")
	path := writeTempConfig(t, "logging:\n  level: debug\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Server.Port != 7000 {
		t.Errorf("Server.Port = %d, want 7000", cfg.Server.Port)
	}
	if cfg.AI.Provider != "gemini" {
		t.Errorf("AI.Provider = %q, want gemini", cfg.AI.Provider)
	}
	if cfg.EncryptionKey != "0123456789abcdef0123456789abcdef" {
		t.Errorf("EncryptionKey = %q, want value from ENCRYPTION_KEY", cfg.EncryptionKey)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_DB_PASS", "mysecret")
	const content = `
database:
  password: "${TEST_DB_PASS}"
`
	path := writeTempConfig(t, content)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Database.Password != "mysecret" {
		t.Errorf("Database.Password = %q, want mysecret", cfg.Database.Password)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeTempConfig(t, "server: [unclosed")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}
