package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Watch    WatchConfig    `yaml:"watch"`
	Fees     FeesConfig     `yaml:"fees"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	// Allow override via environment
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// DatabaseConfig holds Postgres connection settings
type DatabaseConfig struct {
	URL string `yaml:"url"`
}

// RedisConfig holds Redis connection settings for progress tracking
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// IngestConfig tunes ingestion runs
type IngestConfig struct {
	BatchSize    int   `yaml:"batch_size"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
	MaxRows      int   `yaml:"max_rows"`
	StrictIDs    bool  `yaml:"strict_ids"`
}

// WatchConfig holds the S3 drop folder watcher settings
type WatchConfig struct {
	Enabled         bool   `yaml:"enabled"`
	S3Bucket        string `yaml:"s3_bucket"`
	S3Region        string `yaml:"s3_region"`
	S3Prefix        string `yaml:"s3_prefix"`
	AWSProfile      string `yaml:"aws_profile"`
	IntervalMinutes int    `yaml:"interval_minutes"`
}

// Interval returns the poll interval as a duration
func (c WatchConfig) Interval() time.Duration {
	return time.Duration(c.IntervalMinutes) * time.Minute
}

// FeesConfig controls the fee schedule refresh
type FeesConfig struct {
	ReloadOnStart  bool `yaml:"reload_on_start"`
	RefreshMinutes int  `yaml:"refresh_minutes"`
}

// RefreshInterval returns the fee schedule refresh cadence
func (c FeesConfig) RefreshInterval() time.Duration {
	return time.Duration(c.RefreshMinutes) * time.Minute
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	// Set defaults
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = "localhost:6379"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 100
	}
	if cfg.Ingest.MaxFileBytes == 0 {
		cfg.Ingest.MaxFileBytes = 50 * 1024 * 1024
	}
	if cfg.Ingest.MaxRows == 0 {
		cfg.Ingest.MaxRows = 500_000
	}
	if cfg.Watch.S3Region == "" {
		cfg.Watch.S3Region = "us-west-2"
	}
	if cfg.Watch.IntervalMinutes == 0 {
		cfg.Watch.IntervalMinutes = 5
	}
	if cfg.Fees.RefreshMinutes == 0 {
		cfg.Fees.RefreshMinutes = 60
	}

	return &cfg, nil
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Override with environment variables if present
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Database.URL = dbURL
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Redis.Addr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Redis.Password = password
	}
	if bucket := os.Getenv("WATCH_S3_BUCKET"); bucket != "" {
		cfg.Watch.S3Bucket = bucket
	}
	if region := os.Getenv("WATCH_S3_REGION"); region != "" {
		cfg.Watch.S3Region = region
	}
	if profile := os.Getenv("AWS_PROFILE_OVERRIDE"); profile != "" {
		cfg.Watch.AWSProfile = profile
	}

	return cfg, nil
}
