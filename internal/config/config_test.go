package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/garnizeh/careerhub/internal/config"
)

func validConfig() *config.Config {
	return &config.Config{
		Env:                  "production",
		Addr:                 ":3000",
		JWTSecret:            "strongsecret",
		APITimeout:           5 * time.Second,
		DatabasePath:         "careerhub.db",
		TokenDuration:        time.Hour,
		RefreshTokenDuration: 24 * time.Hour,
		MaxUploadBytes:       1024,
		Storage:              config.StorageConfig{Driver: "local"},
	}
}

func TestValidate_InsecureJWT_FailsWhenNotDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.JWTSecret = config.DefaultJWTSecret

	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected Validate to fail for insecure JWT in non-development env")
	}
}

func TestValidate_InsecureJWT_AllowsDevelopment(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "development"
	cfg.JWTSecret = config.DefaultJWTSecret

	if err := cfg.Validate(); err != nil {
		t.Fatalf("expected Validate to succeed in development env, got: %v", err)
	}
}

func TestValidate_Table(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.Config)
		wantErr bool
	}{
		{"valid", func(c *config.Config) {}, false},
		{"missing addr", func(c *config.Config) { c.Addr = "" }, true},
		{"missing db", func(c *config.Config) { c.DatabasePath = "" }, true},
		{"zero token duration", func(c *config.Config) { c.TokenDuration = 0 }, true},
		{"zero upload limit", func(c *config.Config) { c.MaxUploadBytes = 0 }, true},
		{"s3 without bucket", func(c *config.Config) { c.Storage.Driver = "s3" }, true},
		{"s3 with bucket", func(c *config.Config) { c.Storage.Driver = "s3"; c.Storage.Bucket = "cvs" }, false},
		{"unknown driver", func(c *config.Config) { c.Storage.Driver = "ftp" }, true},
		{"gmail with files", func(c *config.Config) {
			c.Mail = config.MailConfig{Driver: "gmail", CredentialsFile: "c.json", TokenFile: "t.json"}
		}, false},
		{"gmail without token", func(c *config.Config) { c.Mail = config.MailConfig{Driver: "gmail", CredentialsFile: "c.json"} }, true},
		{"unknown mail driver", func(c *config.Config) { c.Mail.Driver = "pigeon" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoadConfig_EnvDefaults(t *testing.T) {
	t.Setenv("CAREERHUB_ADDR", ":9999")
	t.Setenv("CAREERHUB_WORKERS", "7")
	t.Setenv("GRADIO_TIMEOUT", "45s")
	t.Setenv("S3_PATH_STYLE", "true")

	cfg, err := config.LoadConfig("")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("expected addr from env, got %q", cfg.Addr)
	}
	if cfg.Workers != 7 {
		t.Fatalf("expected 7 workers, got %d", cfg.Workers)
	}
	if cfg.Gradio.Timeout != 45*time.Second {
		t.Fatalf("expected gradio timeout 45s, got %v", cfg.Gradio.Timeout)
	}
	if cfg.TokenDuration != 24*time.Hour {
		t.Fatalf("expected default token duration 24h, got %v", cfg.TokenDuration)
	}
	if !cfg.Storage.PathStyle {
		t.Fatalf("expected path style from env")
	}
	if cfg.AMQP.Exchange != "session_updates" {
		t.Fatalf("unexpected default exchange %q", cfg.AMQP.Exchange)
	}
	if cfg.Mail.Driver != "log" || cfg.JobLease != 10*time.Minute {
		t.Fatalf("unexpected mail driver %q or job lease %v", cfg.Mail.Driver, cfg.JobLease)
	}
}

func TestLoadConfig_YAMLOverlay(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "config.yaml")
	content := `
addr: ":4000"
database_path: "/tmp/ch.db"
gradio:
  url: "http://gradio:7861"
storage:
  driver: s3
  bucket: resumes
`
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := config.LoadConfig(p)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Addr != ":4000" || cfg.DatabasePath != "/tmp/ch.db" {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.Gradio.URL != "http://gradio:7861" {
		t.Fatalf("unexpected gradio url %q", cfg.Gradio.URL)
	}
	if cfg.Storage.Driver != "s3" || cfg.Storage.Bucket != "resumes" {
		t.Fatalf("unexpected storage config %+v", cfg.Storage)
	}
	// untouched keys keep their env defaults
	if cfg.Voice.URL == "" {
		t.Fatalf("expected voice url default to survive overlay")
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing config file")
	}
}
