package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Sheets   SheetsConfig   `yaml:"sheets"`
	Store    StoreConfig    `yaml:"store"`
	Redis    RedisConfig    `yaml:"redis"`
	Lock     LockConfig     `yaml:"lock"`
	SES      SESConfig      `yaml:"ses"`
	Notify   NotifyConfig   `yaml:"notify"`
	Links    LinksConfig    `yaml:"links"`
	Matching MatchingConfig `yaml:"matching"`
	Sweep    SweepConfig    `yaml:"sweep"`
	Storage  StorageConfig  `yaml:"storage"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port           int      `yaml:"port"`
	Host           string   `yaml:"host"`
	AllowedOrigins []string `yaml:"allowed_origins"`
	// IntakeToken, when set, must be presented as a bearer token by the form host.
	IntakeToken string `yaml:"intake_token"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// Addr returns host:port for http.Server.
func (c ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.GetHost(), c.Port)
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level            string `yaml:"level"`
	DisableRedaction bool   `yaml:"disable_redaction"`
}

// SheetsConfig names the two record streams.
type SheetsConfig struct {
	Main   string `yaml:"main"`
	OptOut string `yaml:"opt_out"`
}

// StoreConfig selects the record store backend: "memory" or "postgres".
type StoreConfig struct {
	Type         string `yaml:"type"`
	DatabaseURL  string `yaml:"database_url"`
	MaxOpenConns int    `yaml:"max_open_conns"`
}

// RedisConfig holds the optional Redis connection used for handler locking.
type RedisConfig struct {
	URL string `yaml:"url"`
}

// LockConfig tunes the per-store handler lock.
type LockConfig struct {
	TTLSeconds  int `yaml:"ttl_seconds"`
	RetryMillis int `yaml:"retry_millis"`
}

// TTL returns the lock TTL as a duration
func (c LockConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// Retry returns the polling interval while waiting for the lock
func (c LockConfig) Retry() time.Duration {
	return time.Duration(c.RetryMillis) * time.Millisecond
}

// SESConfig holds AWS SES API configuration
type SESConfig struct {
	Region           string `yaml:"region"`
	AccessKey        string `yaml:"access_key"`
	SecretKey        string `yaml:"secret_key"`
	FromEmail        string `yaml:"from_email"`
	FromName         string `yaml:"from_name"`
	ConfigurationSet string `yaml:"configuration_set"`
	TimeoutSeconds   int    `yaml:"timeout_seconds"`
}

// Timeout returns the configured timeout as a duration
func (c SESConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// NotifyConfig selects the outbound channel: "ses" or "log".
type NotifyConfig struct {
	Channel   string `yaml:"channel"`
	Signature string `yaml:"signature"`
}

// LinksConfig holds the fixed outbound hyperlinks embedded in emails.
type LinksConfig struct {
	OptOutFormURL     string `yaml:"opt_out_form_url"`
	SubmissionFormURL string `yaml:"submission_form_url"`
}

// MatchingConfig holds the matching and expiration rules.
type MatchingConfig struct {
	FreshnessDays int    `yaml:"freshness_days"`
	WarningDay    int    `yaml:"warning_day"`
	OptInLabel    string `yaml:"opt_in_label"`
	OptInValue    string `yaml:"opt_in_value"`
	// Timezone of sheet timestamps that carry no offset, e.g. "America/New_York".
	Timezone string `yaml:"timezone"`
}

// Location loads Timezone.
func (c MatchingConfig) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("matching timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

// FreshnessWindow returns the freshness window as a duration
func (c MatchingConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
}

// SweepConfig controls the daily expiration sweep worker.
type SweepConfig struct {
	IntervalHours int  `yaml:"interval_hours"`
	RunOnStart    bool `yaml:"run_on_start"`
}

// Interval returns the sweep interval as a duration
func (c SweepConfig) Interval() time.Duration {
	return time.Duration(c.IntervalHours) * time.Hour
}

// StorageConfig holds snapshot archive configuration: "none", "local" or "aws".
type StorageConfig struct {
	Type       string `yaml:"type"`
	LocalPath  string `yaml:"local_path"`
	S3Bucket   string `yaml:"s3_bucket"`
	S3Prefix   string `yaml:"s3_prefix"`
	AWSRegion  string `yaml:"aws_region"`
	AWSProfile string `yaml:"aws_profile"` // Empty string uses default credential chain (IAM role on ECS)
}

// GetAWSProfile returns the AWS profile, with environment variable override
func (c StorageConfig) GetAWSProfile() string {
	if envProfile := os.Getenv("AWS_PROFILE_OVERRIDE"); envProfile != "" {
		if envProfile == "none" || envProfile == "iam" {
			return "" // Use default credential chain (IAM role)
		}
		return envProfile
	}
	// On ECS/Lambda, don't use a profile - use IAM role
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return ""
	}
	return c.AWSProfile
}

// Load reads and parses the configuration file. An empty path yields the
// defaults alone.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Sheets.Main == "" {
		cfg.Sheets.Main = "Large DME Form"
	}
	if cfg.Sheets.OptOut == "" {
		cfg.Sheets.OptOut = "Opt Out"
	}
	if cfg.Store.Type == "" {
		cfg.Store.Type = "memory"
	}
	if cfg.Store.MaxOpenConns == 0 {
		cfg.Store.MaxOpenConns = 10
	}
	if cfg.Lock.TTLSeconds == 0 {
		cfg.Lock.TTLSeconds = 120
	}
	if cfg.Lock.RetryMillis == 0 {
		cfg.Lock.RetryMillis = 200
	}
	if cfg.SES.Region == "" {
		cfg.SES.Region = "us-east-1"
	}
	if cfg.SES.TimeoutSeconds == 0 {
		cfg.SES.TimeoutSeconds = 30
	}
	if cfg.SES.FromName == "" {
		cfg.SES.FromName = "ReCARES Large DME"
	}
	if cfg.Notify.Channel == "" {
		cfg.Notify.Channel = "log"
	}
	if cfg.Notify.Signature == "" {
		cfg.Notify.Signature = "ReCARES Large DME System"
	}
	if cfg.Links.OptOutFormURL == "" {
		cfg.Links.OptOutFormURL = "https://forms.gle/M2o78TFUYKptG9vG6"
	}
	if cfg.Links.SubmissionFormURL == "" {
		cfg.Links.SubmissionFormURL = "https://forms.gle/Rknq9uPDAzJGki4d7"
	}
	if cfg.Matching.FreshnessDays == 0 {
		cfg.Matching.FreshnessDays = 90
	}
	if cfg.Matching.WarningDay == 0 {
		cfg.Matching.WarningDay = 83
	}
	if cfg.Matching.OptInLabel == "" {
		cfg.Matching.OptInLabel = "Would you like to receive notifications?"
	}
	if cfg.Matching.OptInValue == "" {
		cfg.Matching.OptInValue = "Yes - I would like to receive notifications"
	}
	if cfg.Matching.Timezone == "" {
		cfg.Matching.Timezone = "UTC"
	}
	if cfg.Sweep.IntervalHours == 0 {
		cfg.Sweep.IntervalHours = 24
	}
	if cfg.Storage.Type == "" {
		cfg.Storage.Type = "none"
	}
	if cfg.Storage.LocalPath == "" {
		cfg.Storage.LocalPath = "./data/snapshots"
	}
	if cfg.Storage.S3Prefix == "" {
		cfg.Storage.S3Prefix = "snapshots"
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars on ECS.
func LoadFromEnv(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}

	// Database override (critical for ECS deployment where config.yaml has local defaults)
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		cfg.Store.DatabaseURL = dbURL
		cfg.Store.Type = "postgres"
	}
	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Redis.URL = v
	}
	if v := os.Getenv("AWS_SES_ACCESS_KEY"); v != "" {
		cfg.SES.AccessKey = v
	}
	if v := os.Getenv("AWS_SES_SECRET_KEY"); v != "" {
		cfg.SES.SecretKey = v
	}
	if v := os.Getenv("AWS_SES_REGION"); v != "" {
		cfg.SES.Region = v
	}
	if v := os.Getenv("SES_FROM_EMAIL"); v != "" {
		cfg.SES.FromEmail = v
	}
	if v := os.Getenv("NOTIFY_CHANNEL"); v != "" {
		cfg.Notify.Channel = v
	}
	if v := os.Getenv("OPT_OUT_FORM_URL"); v != "" {
		cfg.Links.OptOutFormURL = v
	}
	if v := os.Getenv("SUBMISSION_FORM_URL"); v != "" {
		cfg.Links.SubmissionFormURL = v
	}
	if v := os.Getenv("INTAKE_TOKEN"); v != "" {
		cfg.Server.IntakeToken = v
	}
	if v := os.Getenv("SHEET_TIMEZONE"); v != "" {
		cfg.Matching.Timezone = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SNAPSHOT_S3_BUCKET"); v != "" {
		cfg.Storage.S3Bucket = v
		cfg.Storage.Type = "aws"
	}
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	return cfg, nil
}

// DefaultPath is where the executables look for a config file.
const DefaultPath = "config/config.yaml"

// ResolvePath picks the config file: an explicit path wins, then
// CONFIG_PATH, then DefaultPath when it exists. "" means defaults only.
func ResolvePath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	if _, err := os.Stat(DefaultPath); err == nil {
		return DefaultPath
	}
	return ""
}
