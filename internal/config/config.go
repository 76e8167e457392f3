package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/lestrrat-go/strftime"
	"github.com/shyim/db-auto-backup/internal/compression"
)

// Environment variable names
const (
	EnvBackupDir        = "BACKUP_DIR"
	EnvSchedule         = "SCHEDULE"
	EnvCompression      = "COMPRESSION"
	EnvIncludeLogs      = "INCLUDE_LOGS"
	EnvTimestamp        = "TIMESTAMP"
	EnvTimestampFormat  = "TIMESTAMP_FORMAT"
	EnvTimestampOrder   = "TIMESTAMP_ORDER"
	EnvSuccessHookURL   = "SUCCESS_HOOK_URL"
	EnvHealthchecksID   = "HEALTHCHECKS_ID"
	EnvHealthchecksHost = "HEALTHCHECKS_HOST"
	EnvUptimeKumaURL    = "UPTIME_KUMA_URL"
	EnvS3Enabled        = "S3_ENABLED"
	EnvS3Endpoint       = "S3_ENDPOINT"
	EnvS3Bucket         = "S3_BUCKET"
	EnvS3AccessKey      = "S3_ACCESS_KEY"
	EnvS3SecretKey      = "S3_SECRET_KEY"
	EnvS3Region         = "S3_REGION"
	EnvS3Prefix         = "S3_PREFIX"
	EnvS3KeepLocal      = "S3_KEEP_LOCAL"
	EnvS3PathStyle      = "S3_PATH_STYLE"
	EnvDockerHost       = "DOCKER_HOST"
	EnvLogLevel         = "LOG_LEVEL"
	EnvLogFormat        = "LOG_FORMAT"
)

// Defaults
const (
	DefaultBackupDir        = "/var/backups"
	DefaultTimestampFormat  = "%Y-%m-%d_%H-%M"
	DefaultTimestampOrder   = "after"
	DefaultHealthchecksHost = "hc-ping.com"
	DefaultS3Region         = "us-east-1"
	DefaultS3Prefix         = "backups"
)

// Config holds the application configuration. It is built once at start-up
// and passed by value; nothing mutates it afterwards.
type Config struct {
	BackupDir   string
	Schedule    string // empty runs once and exits
	Compression compression.Algorithm
	IncludeLogs bool

	Timestamp TimestampConfig
	Notify    NotifyConfig
	Storage   StorageConfig

	// Docker settings
	DockerHost string

	// Logging
	LogLevel  string
	LogFormat string
}

// TimestampConfig controls timestamped filenames
type TimestampConfig struct {
	Enabled bool
	Format  string // strftime-style
	Order   string // "before" puts the timestamp first, anything else after
}

// NotifyConfig holds the candidate success notification targets
type NotifyConfig struct {
	SuccessHookURL   string
	HealthchecksID   string
	HealthchecksHost string
	UptimeKumaURL    string
}

// StorageConfig holds the S3-compatible upload settings
type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	Bucket    string
	AccessKey string
	SecretKey string
	Region    string
	Prefix    string
	KeepLocal bool
	PathStyle bool
}

// Missing returns the names of required settings that are empty
func (s StorageConfig) Missing() []string {
	var missing []string
	if s.Endpoint == "" {
		missing = append(missing, EnvS3Endpoint)
	}
	if s.Bucket == "" {
		missing = append(missing, EnvS3Bucket)
	}
	if s.AccessKey == "" {
		missing = append(missing, EnvS3AccessKey)
	}
	if s.SecretKey == "" {
		missing = append(missing, EnvS3SecretKey)
	}
	return missing
}

// Complete reports whether every required setting is present
func (s StorageConfig) Complete() bool {
	return len(s.Missing()) == 0
}

// Active reports whether uploads should happen
func (s StorageConfig) Active() bool {
	return s.Enabled && s.Complete()
}

// Key returns the object key for a published backup file
func (s StorageConfig) Key(filename string) string {
	prefix := strings.Trim(s.Prefix, "/")
	if prefix == "" {
		return filename
	}
	return prefix + "/" + filename
}

// LoadEnvFile loads variables from a dotenv file into the process
// environment. Variables that are already set win.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// Load reads the configuration from the process environment
func Load() (Config, error) {
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	get := func(key, def string) string {
		if v, ok := lookup(key); ok {
			return v
		}
		return def
	}

	// Set-ness flags: any non-empty value enables them unless it is an
	// explicit false literal.
	flag := func(key string) bool {
		v := strings.TrimSpace(get(key, ""))
		if v == "" {
			return false
		}
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
		return true
	}

	cfg := Config{
		BackupDir:   get(EnvBackupDir, DefaultBackupDir),
		Schedule:    strings.TrimSpace(get(EnvSchedule, "")),
		IncludeLogs: flag(EnvIncludeLogs),
		Timestamp: TimestampConfig{
			Enabled: flag(EnvTimestamp),
			Format:  get(EnvTimestampFormat, DefaultTimestampFormat),
			Order:   get(EnvTimestampOrder, DefaultTimestampOrder),
		},
		Notify: NotifyConfig{
			SuccessHookURL:   get(EnvSuccessHookURL, ""),
			HealthchecksID:   get(EnvHealthchecksID, ""),
			HealthchecksHost: get(EnvHealthchecksHost, DefaultHealthchecksHost),
			UptimeKumaURL:    get(EnvUptimeKumaURL, ""),
		},
		Storage: StorageConfig{
			Enabled:   flag(EnvS3Enabled),
			Endpoint:  get(EnvS3Endpoint, ""),
			Bucket:    get(EnvS3Bucket, ""),
			AccessKey: get(EnvS3AccessKey, ""),
			SecretKey: get(EnvS3SecretKey, ""),
			Region:    get(EnvS3Region, DefaultS3Region),
			Prefix:    get(EnvS3Prefix, DefaultS3Prefix),
			KeepLocal: strings.ToLower(get(EnvS3KeepLocal, "true")) == "true",
			PathStyle: flag(EnvS3PathStyle),
		},
		DockerHost: get(EnvDockerHost, ""),
		LogLevel:   get(EnvLogLevel, "info"),
		LogFormat:  get(EnvLogFormat, "text"),
	}

	alg, err := compression.Parse(get(EnvCompression, string(compression.Plain)))
	if err != nil {
		return Config{}, err
	}
	cfg.Compression = alg

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks settings that would otherwise only fail mid-run
func (c Config) Validate() error {
	if c.BackupDir == "" {
		return errors.New("backup directory must not be empty")
	}

	if _, err := compression.Parse(string(c.Compression)); err != nil {
		return err
	}

	if c.Timestamp.Enabled {
		if _, err := strftime.New(c.Timestamp.Format); err != nil {
			return fmt.Errorf("invalid %s %q: %w", EnvTimestampFormat, c.Timestamp.Format, err)
		}
	}

	return nil
}
