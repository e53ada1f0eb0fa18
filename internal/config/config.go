package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvConfigFile names an optional config file read before environment overrides.
const EnvConfigFile = "GREENLENS_CONFIG"

// Config holds all application configuration.
type Config struct {
	Backend BackendConfig
	Upload  UploadConfig
	Viewer  ViewerConfig
	Server  ServerConfig
	S3      S3Config
	Log     LogConfig
	CORS    CORSConfig
}

// BackendConfig addresses the analysis backend.
type BackendConfig struct {
	BaseURL       string        `mapstructure:"base_url"`
	UploadPath    string        `mapstructure:"upload_path"`
	ProcessPath   string        `mapstructure:"process_path"`
	UploadTimeout time.Duration `mapstructure:"upload_timeout"`
	MaxEventBytes int           `mapstructure:"max_event_bytes"`
}

// UploadURL returns the absolute upload endpoint.
func (b *BackendConfig) UploadURL() string {
	return strings.TrimRight(b.BaseURL, "/") + b.UploadPath
}

// ProcessURL returns the absolute progress stream endpoint for an identifier.
func (b *BackendConfig) ProcessURL(identifier string) string {
	return strings.TrimRight(b.BaseURL, "/") + strings.TrimRight(b.ProcessPath, "/") + "/" + identifier
}

// HealthURL returns the backend liveness endpoint.
func (b *BackendConfig) HealthURL() string {
	return strings.TrimRight(b.BaseURL, "/") + "/health"
}

// UploadConfig holds local candidate file limits.
type UploadConfig struct {
	MaxFileSizeMB int64 `mapstructure:"max_file_size_mb"`
}

// MaxBytes returns the upload ceiling in bytes.
func (u *UploadConfig) MaxBytes() int64 {
	return u.MaxFileSizeMB * 1024 * 1024
}

// ViewerConfig holds document viewer settings.
type ViewerConfig struct {
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// ServerConfig holds companion HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// S3Config holds settings for the bucket that stores analysed documents.
// PublicEndpoint is the URL prefix the backend uses when it builds file_url.
type S3Config struct {
	Region         string `mapstructure:"region"`
	Bucket         string `mapstructure:"bucket"`
	Endpoint       string `mapstructure:"endpoint"`
	PublicEndpoint string `mapstructure:"public_endpoint"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	PresignExpiry  int64  `mapstructure:"presign_expiry"`
}

// Enabled reports whether direct bucket access is configured.
func (s *S3Config) Enabled() bool {
	return s.Bucket != "" && s.PublicEndpoint != ""
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// Load reads configuration from an optional config file and environment
// variables with the GREENLENS_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("GREENLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Backend defaults
	v.SetDefault("backend.base_url", "http://localhost:8000")
	v.SetDefault("backend.upload_path", "/upload-pdf")
	v.SetDefault("backend.process_path", "/process")
	v.SetDefault("backend.upload_timeout", "5m")
	v.SetDefault("backend.max_event_bytes", 16*1024*1024)

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 50)

	// Viewer defaults
	v.SetDefault("viewer.ready_timeout", "30s")

	// Server defaults; write timeout stays 0 so event streams are not cut off
	v.SetDefault("server.port", ":8090")
	v.SetDefault("server.read_timeout", "1m")
	v.SetDefault("server.write_timeout", "0s")
	v.SetDefault("server.environment", "development")

	// S3 defaults
	v.SetDefault("s3.region", "auto")
	v.SetDefault("s3.bucket", "")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.public_endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")

	v.SetDefault("cors.allowed_origins", "http://localhost:5173,http://127.0.0.1:5173")

	envBindings := map[string]string{
		"backend.base_url":        "GREENLENS_BACKEND_BASE_URL",
		"backend.upload_path":     "GREENLENS_BACKEND_UPLOAD_PATH",
		"backend.process_path":    "GREENLENS_BACKEND_PROCESS_PATH",
		"backend.upload_timeout":  "GREENLENS_BACKEND_UPLOAD_TIMEOUT",
		"backend.max_event_bytes": "GREENLENS_BACKEND_MAX_EVENT_BYTES",
		"upload.max_file_size_mb": "GREENLENS_UPLOAD_MAX_FILE_SIZE_MB",
		"viewer.ready_timeout":    "GREENLENS_VIEWER_READY_TIMEOUT",
		"server.port":             "GREENLENS_SERVER_PORT",
		"server.read_timeout":     "GREENLENS_SERVER_READ_TIMEOUT",
		"server.write_timeout":    "GREENLENS_SERVER_WRITE_TIMEOUT",
		"server.environment":      "GREENLENS_SERVER_ENVIRONMENT",
		"s3.region":               "GREENLENS_S3_REGION",
		"s3.bucket":               "GREENLENS_S3_BUCKET",
		"s3.endpoint":             "GREENLENS_S3_ENDPOINT",
		"s3.public_endpoint":      "GREENLENS_S3_PUBLIC_ENDPOINT",
		"s3.access_key":           "GREENLENS_S3_ACCESS_KEY",
		"s3.secret_key":           "GREENLENS_S3_SECRET_KEY",
		"s3.presign_expiry":       "GREENLENS_S3_PRESIGN_EXPIRY",
		"log.level":               "GREENLENS_LOG_LEVEL",
		"log.format":              "GREENLENS_LOG_FORMAT",
		"cors.allowed_origins":    "GREENLENS_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	cfg.Backend = BackendConfig{
		BaseURL:       v.GetString("backend.base_url"),
		UploadPath:    v.GetString("backend.upload_path"),
		ProcessPath:   v.GetString("backend.process_path"),
		UploadTimeout: v.GetDuration("backend.upload_timeout"),
		MaxEventBytes: v.GetInt("backend.max_event_bytes"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB: v.GetInt64("upload.max_file_size_mb"),
	}
	cfg.Viewer = ViewerConfig{
		ReadyTimeout: v.GetDuration("viewer.ready_timeout"),
	}
	cfg.Server = ServerConfig{
		Port:         v.GetString("server.port"),
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.S3 = S3Config{
		Region:         v.GetString("s3.region"),
		Bucket:         v.GetString("s3.bucket"),
		Endpoint:       v.GetString("s3.endpoint"),
		PublicEndpoint: v.GetString("s3.public_endpoint"),
		AccessKey:      v.GetString("s3.access_key"),
		SecretKey:      v.GetString("s3.secret_key"),
		PresignExpiry:  v.GetInt64("s3.presign_expiry"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}

	// Parse CORS allowed origins from comma-separated string
	var corsOrigins []string
	for _, o := range strings.Split(v.GetString("cors.allowed_origins"), ",") {
		o = strings.TrimSpace(o)
		if o != "" {
			corsOrigins = append(corsOrigins, o)
		}
	}
	cfg.CORS = CORSConfig{AllowedOrigins: corsOrigins}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks values that would otherwise fail late.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" {
		return fmt.Errorf("backend.base_url is required")
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("upload.max_file_size_mb must be positive, got %d", c.Upload.MaxFileSizeMB)
	}
	if c.Backend.MaxEventBytes <= 0 {
		return fmt.Errorf("backend.max_event_bytes must be positive, got %d", c.Backend.MaxEventBytes)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}
	return nil
}
