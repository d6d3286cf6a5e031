// Package config loads the hub configuration from the environment and wires
// the stores, identity and metrics it names.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/tendant/resource-hub/pkg/hub"
	"github.com/tendant/resource-hub/pkg/hub/objectkey"
)

// Config is the process configuration. Every field is read from the
// environment; see Usage for the variable names.
type Config struct {
	Port        string `env:"PORT" env-default:"8080" env-description:"HTTP listen port"`
	Environment string `env:"ENVIRONMENT" env-default:"development" env-description:"development, production or testing"`
	LogFormat   string `env:"LOG_FORMAT" env-description:"text or json (default: json in production, text otherwise)"`
	LogLevel    string `env:"LOG_LEVEL" env-default:"info" env-description:"debug, info, warn or error"`

	DatabaseURL string `env:"DATABASE_URL" env-default:"memory" env-description:"memory or postgres://..."`
	DBSchema    string `env:"DB_SCHEMA" env-description:"Postgres schema set as search_path"`
	AutoMigrate bool   `env:"DB_AUTO_MIGRATE" env-default:"true" env-description:"create tables on start"`

	StorageURL       string `env:"STORAGE_URL" env-default:"memory://" env-description:"memory://, file:///path, s3://bucket or minio://bucket"`
	StoragePublicURL string `env:"STORAGE_PUBLIC_URL" env-description:"base URL of stored files"`

	S3    S3Config
	MinIO MinIOConfig
	Hub   HubConfig

	JWTSecret   string   `env:"JWT_SECRET" env-description:"HS256 secret for bearer tokens; empty disables authentication"`
	CORSOrigins []string `env:"CORS_ORIGINS" env-separator:"," env-description:"allowed CORS origins"`
}

type S3Config struct {
	Region          string `env:"AWS_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"AWS_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"AWS_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"AWS_S3_ENDPOINT"`
	UsePathStyle    bool   `env:"AWS_S3_USE_PATH_STYLE" env-default:"false"`
	PresignDuration int    `env:"AWS_S3_PRESIGN_DURATION" env-default:"3600"`
	EnableSSE       bool   `env:"AWS_S3_ENABLE_SSE" env-default:"false"`
	SSEAlgorithm    string `env:"AWS_S3_SSE_ALGORITHM" env-default:"AES256"`
	SSEKMSKeyID     string `env:"AWS_S3_SSE_KMS_KEY_ID"`
	CreateBucket    bool   `env:"AWS_S3_CREATE_BUCKET" env-default:"false"`
}

type MinIOConfig struct {
	Endpoint        string `env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `env:"MINIO_ACCESS_KEY" env-default:"minioadmin"`
	SecretAccessKey string `env:"MINIO_SECRET_KEY" env-default:"minioadmin"`
	UseSSL          bool   `env:"MINIO_USE_SSL" env-default:"false"`
	Region          string `env:"MINIO_REGION"`
	CreateBucket    bool   `env:"MINIO_CREATE_BUCKET" env-default:"true"`
}

type HubConfig struct {
	LatestYear    int           `env:"HUB_LATEST_YEAR" env-default:"2024" env-description:"newest academic year offered"`
	MaxUploadSize int64         `env:"HUB_MAX_UPLOAD_SIZE" env-default:"10485760" env-description:"upload limit in bytes"`
	CallTimeout   time.Duration `env:"HUB_CALL_TIMEOUT" env-default:"15s" env-description:"bound on each store call"`
	ObjectKeys    string        `env:"HUB_OBJECT_KEYS" env-default:"timestamp" env-description:"timestamp or sharded"`
	SweepGrace    time.Duration `env:"HUB_SWEEP_GRACE" env-default:"1h" env-description:"minimum age of blobs removed by a sweep"`
	FileTypes     []string      `env:"HUB_ALLOWED_FILE_TYPES" env-separator:"," env-description:"accepted file extensions, e.g. pdf,docx (empty accepts any)"`
}

// StorageTarget is a parsed STORAGE_URL.
type StorageTarget struct {
	Scheme string // memory, file, s3, minio
	Path   string // file only
	Bucket string // s3 and minio
	Query  url.Values
}

var schemaName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Usage describes every environment variable.
func Usage() string {
	var cfg Config
	header := "Environment variables:"
	text, err := cleanenv.GetDescription(&cfg, &header)
	if err != nil {
		return header
	}
	return text
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port is required")
	}
	if !slices.Contains([]string{"development", "production", "testing"}, c.Environment) {
		return fmt.Errorf("environment must be development, production or testing, got %q", c.Environment)
	}
	if !slices.Contains([]string{"", "text", "json"}, c.LogFormat) {
		return fmt.Errorf("log format must be text or json, got %q", c.LogFormat)
	}
	if _, err := c.DatabaseType(); err != nil {
		return err
	}
	if c.DBSchema != "" && !schemaName.MatchString(c.DBSchema) {
		return fmt.Errorf("invalid DB_SCHEMA: %q", c.DBSchema)
	}
	if _, err := c.Storage(); err != nil {
		return err
	}
	if c.Hub.LatestYear < hub.FirstYear {
		return fmt.Errorf("HUB_LATEST_YEAR must not be before %d", hub.FirstYear)
	}
	if c.Hub.MaxUploadSize <= 0 {
		return errors.New("HUB_MAX_UPLOAD_SIZE must be positive")
	}
	if _, err := objectkey.New(c.Hub.ObjectKeys); err != nil {
		return err
	}
	if c.Environment == "production" && c.JWTSecret == "" {
		return errors.New("JWT_SECRET is required in production")
	}
	return nil
}

// DatabaseType returns "memory" or "postgres" for DatabaseURL.
func (c *Config) DatabaseType() (string, error) {
	switch {
	case c.DatabaseURL == "" || c.DatabaseURL == "memory":
		return "memory", nil
	case strings.HasPrefix(c.DatabaseURL, "postgres://"), strings.HasPrefix(c.DatabaseURL, "postgresql://"):
		return "postgres", nil
	}
	return "", fmt.Errorf("unsupported DATABASE_URL format: %s (use 'memory' or 'postgresql://...')", c.DatabaseURL)
}

// Storage parses StorageURL.
func (c *Config) Storage() (StorageTarget, error) {
	raw := c.StorageURL
	if raw == "" || raw == "memory" {
		raw = "memory://"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return StorageTarget{}, fmt.Errorf("invalid STORAGE_URL: %w", err)
	}

	target := StorageTarget{Scheme: u.Scheme, Query: u.Query()}
	switch u.Scheme {
	case "memory":
	case "file":
		target.Path = u.Host + u.Path
		if target.Path == "" {
			return StorageTarget{}, errors.New("filesystem path cannot be empty in STORAGE_URL")
		}
	case "s3", "minio":
		target.Bucket = u.Host
		if target.Bucket == "" {
			return StorageTarget{}, fmt.Errorf("%s bucket name cannot be empty in STORAGE_URL", u.Scheme)
		}
	default:
		return StorageTarget{}, fmt.Errorf("unsupported STORAGE_URL format: %s (use 'memory://', 'file://...', 's3://...' or 'minio://...')", c.StorageURL)
	}
	return target, nil
}

// Catalog returns the enumerations derived from the hub settings.
func (c *Config) Catalog() hub.Catalog {
	catalog := hub.NewCatalog(c.Hub.LatestYear)
	catalog.MaxUploadSize = c.Hub.MaxUploadSize
	for _, ext := range c.Hub.FileTypes {
		if ext = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(ext), ".")); ext != "" {
			catalog.AllowedFileTypes = append(catalog.AllowedFileTypes, ext)
		}
	}
	return catalog
}

func queryBool(q url.Values, key string, fallback bool) bool {
	if v := q.Get(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func queryString(q url.Values, key, fallback string) string {
	if v := q.Get(key); v != "" {
		return v
	}
	return fallback
}
