package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultJWTSecret is only accepted when Env is "development".
const DefaultJWTSecret = "supersecretkey"

type Config struct {
	Env                  string        `yaml:"env"`
	Addr                 string        `yaml:"addr"`
	JWTSecret            string        `yaml:"jwt_secret"`
	APITimeout           time.Duration `yaml:"timeout"`
	DatabasePath         string        `yaml:"database_path"`
	TokenDuration        time.Duration `yaml:"token_duration"`
	RefreshTokenDuration time.Duration `yaml:"refresh_token_duration"`
	LogLevel             string        `yaml:"log_level"`
	CORSOrigin           string        `yaml:"cors_origin"`
	MaxUploadBytes       int64         `yaml:"max_upload_bytes"`
	BcryptCost           int           `yaml:"bcrypt_cost"`
	Workers              int           `yaml:"workers"`
	JobLease             time.Duration `yaml:"job_lease"`
	PublicURL            string        `yaml:"public_url"`

	Gradio  GradioConfig  `yaml:"gradio"`
	Voice   VoiceConfig   `yaml:"voice"`
	Storage StorageConfig `yaml:"storage"`
	AMQP    AMQPConfig    `yaml:"amqp"`
	Ollama  OllamaConfig  `yaml:"ollama"`
	Mail    MailConfig    `yaml:"mail"`
}

// MailConfig selects how password reset codes are delivered. The log driver
// only writes them to the server log.
type MailConfig struct {
	Driver          string `yaml:"driver"` // log or gmail
	CredentialsFile string `yaml:"credentials_file"`
	TokenFile       string `yaml:"token_file"`
	From            string `yaml:"from"`
}

// GradioConfig points at the Gradio app serving CV and advisor endpoints.
type GradioConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// VoiceConfig points at the voice interview service.
type VoiceConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

type StorageConfig struct {
	Driver          string `yaml:"driver"` // local or s3
	LocalDir        string `yaml:"local_dir"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

type AMQPConfig struct {
	URL      string `yaml:"url"`
	Exchange string `yaml:"exchange"`
}

type OllamaConfig struct {
	BaseURL                 string        `yaml:"base_url"`
	DefaultModelNames       []string      `yaml:"models"`
	Timeout                 time.Duration `yaml:"timeout"`
	Retries                 int           `yaml:"retries"`
	Backoff                 time.Duration `yaml:"backoff"`
	CircuitFailureThreshold int           `yaml:"circuit_failure_threshold"`
	CircuitReset            time.Duration `yaml:"circuit_reset"`
}

// Enabled reports whether an Ollama endpoint is configured.
func (o OllamaConfig) Enabled() bool { return o.BaseURL != "" }

func LoadConfig(path string) (*Config, error) {
	cfg := &Config{
		Env:                  getEnv("CAREERHUB_ENV", "development"),
		Addr:                 getEnv("CAREERHUB_ADDR", ":3000"),
		JWTSecret:            getEnv("CAREERHUB_JWT_SECRET", DefaultJWTSecret),
		APITimeout:           getEnvDuration("CAREERHUB_TIMEOUT", 30*time.Second),
		DatabasePath:         getEnv("CAREERHUB_DATABASE_PATH", "careerhub.db"),
		TokenDuration:        getEnvDuration("CAREERHUB_TOKEN_DURATION", 24*time.Hour),
		RefreshTokenDuration: getEnvDuration("CAREERHUB_REFRESH_TOKEN_DURATION", 7*24*time.Hour),
		LogLevel:             getEnv("CAREERHUB_LOG_LEVEL", "info"),
		CORSOrigin:           getEnv("CAREERHUB_CORS_ORIGIN", "*"),
		MaxUploadBytes:       int64(getEnvInt("CAREERHUB_MAX_UPLOAD_BYTES", 10<<20)),
		BcryptCost:           getEnvInt("CAREERHUB_BCRYPT_COST", 12),
		Workers:              getEnvInt("CAREERHUB_WORKERS", 4),
		JobLease:             getEnvDuration("CAREERHUB_JOB_LEASE", 10*time.Minute),
		PublicURL:            getEnv("CAREERHUB_PUBLIC_URL", ""),
		Gradio: GradioConfig{
			URL:     getEnv("GRADIO_URL", "http://localhost:7861"),
			Timeout: getEnvDuration("GRADIO_TIMEOUT", 300*time.Second),
		},
		Voice: VoiceConfig{
			URL:     getEnv("VOICE_INTERVIEW_URL", "http://localhost:7862"),
			Timeout: getEnvDuration("VOICE_INTERVIEW_TIMEOUT", 30*time.Second),
		},
		Storage: StorageConfig{
			Driver:          getEnv("STORAGE_DRIVER", "local"),
			LocalDir:        getEnv("STORAGE_LOCAL_DIR", "uploads"),
			Bucket:          getEnv("S3_BUCKET", ""),
			Region:          getEnv("S3_REGION", "auto"),
			Endpoint:        getEnv("S3_ENDPOINT", ""),
			AccessKeyID:     getEnv("S3_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("S3_SECRET_ACCESS_KEY", ""),
			PathStyle:       getEnvBool("S3_PATH_STYLE", false),
		},
		AMQP: AMQPConfig{
			URL:      getEnv("AMQP_URL", ""),
			Exchange: getEnv("AMQP_EXCHANGE", "session_updates"),
		},
		Ollama: OllamaConfig{
			BaseURL:                 getEnv("OLLAMA_URL", ""),
			DefaultModelNames:       []string{getEnv("OLLAMA_MODEL", "llama3")},
			Timeout:                 getEnvDuration("OLLAMA_TIMEOUT", 120*time.Second),
			Retries:                 2,
			Backoff:                 500 * time.Millisecond,
			CircuitFailureThreshold: 5,
			CircuitReset:            30 * time.Second,
		},
		Mail: MailConfig{
			Driver:          getEnv("MAIL_DRIVER", "log"),
			CredentialsFile: getEnv("GMAIL_CREDENTIALS_FILE", "credentials.json"),
			TokenFile:       getEnv("GMAIL_TOKEN_FILE", "token.json"),
			From:            getEnv("MAIL_FROM", ""),
		},
	}
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		dec := yaml.NewDecoder(f)
		if err := dec.Decode(cfg); err != nil {
			return nil, fmt.Errorf("decode config %s: %w", path, err)
		}
	}

	return cfg, nil
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "" || c.Env == "development"
}

// Validate checks the configuration for values the server cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return errors.New("addr is required")
	}
	if c.DatabasePath == "" {
		return errors.New("database_path is required")
	}
	if c.JWTSecret == "" {
		return errors.New("jwt_secret is required")
	}
	if c.JWTSecret == DefaultJWTSecret && !c.IsDevelopment() {
		return fmt.Errorf("insecure default jwt_secret in %s environment", c.Env)
	}
	if c.TokenDuration <= 0 || c.RefreshTokenDuration <= 0 {
		return errors.New("token durations must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max_upload_bytes must be positive")
	}
	switch c.Storage.Driver {
	case "", "local":
	case "s3":
		if c.Storage.Bucket == "" {
			return errors.New("storage.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}
	switch c.Mail.Driver {
	case "", "log":
	case "gmail":
		if c.Mail.CredentialsFile == "" || c.Mail.TokenFile == "" {
			return errors.New("mail.credentials_file and mail.token_file are required for the gmail driver")
		}
	default:
		return fmt.Errorf("unknown mail driver %q", c.Mail.Driver)
	}

	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}

	return def
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}

	return def
}

func getEnvBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}

	return def
}
