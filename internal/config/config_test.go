package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/shyim/db-auto-backup/internal/compression"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func lookupFrom(env map[string]string) func(string) (string, bool) {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func TestFromLookup_Defaults(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, "/var/backups", cfg.BackupDir)
	assert.Equal(t, "", cfg.Schedule)
	assert.Equal(t, compression.Plain, cfg.Compression)
	assert.False(t, cfg.IncludeLogs)
	assert.False(t, cfg.Timestamp.Enabled)
	assert.Equal(t, "%Y-%m-%d_%H-%M", cfg.Timestamp.Format)
	assert.Equal(t, "after", cfg.Timestamp.Order)
	assert.Equal(t, "hc-ping.com", cfg.Notify.HealthchecksHost)
	assert.False(t, cfg.Storage.Enabled)
	assert.Equal(t, "us-east-1", cfg.Storage.Region)
	assert.Equal(t, "backups", cfg.Storage.Prefix)
	assert.True(t, cfg.Storage.KeepLocal)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
}

func TestFromLookup_AllSet(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"BACKUP_DIR":        "/backups",
		"SCHEDULE":          "0 3 * * *",
		"COMPRESSION":       "xz",
		"INCLUDE_LOGS":      "1",
		"TIMESTAMP":         "yes",
		"TIMESTAMP_FORMAT":  "%Y%m%d",
		"TIMESTAMP_ORDER":   "before",
		"SUCCESS_HOOK_URL":  "https://example.com/hook",
		"S3_ENABLED":        "true",
		"S3_ENDPOINT":       "https://s3.example.com",
		"S3_BUCKET":         "bucket",
		"S3_ACCESS_KEY":     "access",
		"S3_SECRET_KEY":     "secret",
		"S3_REGION":         "eu-central-1",
		"S3_PREFIX":         "db",
		"S3_KEEP_LOCAL":     "FALSE",
		"S3_PATH_STYLE":     "true",
		"DOCKER_HOST":       "tcp://docker:2375",
	}))
	require.NoError(t, err)

	assert.Equal(t, "/backups", cfg.BackupDir)
	assert.Equal(t, "0 3 * * *", cfg.Schedule)
	assert.Equal(t, compression.LZMA, cfg.Compression)
	assert.True(t, cfg.IncludeLogs)
	assert.True(t, cfg.Timestamp.Enabled)
	assert.Equal(t, "%Y%m%d", cfg.Timestamp.Format)
	assert.Equal(t, "before", cfg.Timestamp.Order)
	assert.Equal(t, "https://example.com/hook", cfg.Notify.SuccessHookURL)
	assert.True(t, cfg.Storage.Enabled)
	assert.True(t, cfg.Storage.Complete())
	assert.True(t, cfg.Storage.Active())
	assert.Equal(t, "eu-central-1", cfg.Storage.Region)
	assert.False(t, cfg.Storage.KeepLocal)
	assert.True(t, cfg.Storage.PathStyle)
	assert.Equal(t, "tcp://docker:2375", cfg.DockerHost)
}

func TestFromLookup_TimestampOrderIgnoresFormatVariable(t *testing.T) {
	cfg, err := FromLookup(lookupFrom(map[string]string{
		"TIMESTAMP":        "1",
		"TIMESTAMP_FORMAT": "%Y",
	}))
	require.NoError(t, err)

	assert.Equal(t, "after", cfg.Timestamp.Order)
}

func TestFromLookup_Flags(t *testing.T) {
	tests := []struct {
		value    string
		expected bool
	}{
		{"", false},
		{"1", true},
		{"true", true},
		{"on", true},
		{"false", false},
		{"0", false},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			cfg, err := FromLookup(lookupFrom(map[string]string{"INCLUDE_LOGS": tt.value}))
			require.NoError(t, err)
			assert.Equal(t, tt.expected, cfg.IncludeLogs)
		})
	}
}

func TestFromLookup_UnknownCompression(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"COMPRESSION": "zip"}))
	require.Error(t, err)
	assert.ErrorIs(t, err, compression.ErrUnknownAlgorithm)
}

func TestFromLookup_EmptyBackupDir(t *testing.T) {
	_, err := FromLookup(lookupFrom(map[string]string{"BACKUP_DIR": ""}))
	assert.Error(t, err)
}

func TestStorageConfig_Missing(t *testing.T) {
	s := StorageConfig{
		Enabled:   true,
		Endpoint:  "https://s3.example.com",
		Bucket:    "bucket",
		AccessKey: "access",
	}

	assert.Equal(t, []string{"S3_SECRET_KEY"}, s.Missing())
	assert.False(t, s.Complete())
	assert.False(t, s.Active(), "incomplete storage must not be active")
}

func TestStorageConfig_Key(t *testing.T) {
	assert.Equal(t, "backups/db.sql", StorageConfig{Prefix: "backups"}.Key("db.sql"))
	assert.Equal(t, "a/b/db.sql", StorageConfig{Prefix: "/a/b/"}.Key("db.sql"))
	assert.Equal(t, "db.sql", StorageConfig{Prefix: ""}.Key("db.sql"))
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("DB_AUTO_BACKUP_TEST_VAR=from-file\n"), 0o600))

	t.Setenv("DB_AUTO_BACKUP_TEST_VAR", "")
	require.NoError(t, os.Unsetenv("DB_AUTO_BACKUP_TEST_VAR"))

	require.NoError(t, LoadEnvFile(path))
	assert.Equal(t, "from-file", os.Getenv("DB_AUTO_BACKUP_TEST_VAR"))
}

func TestLoadEnvFile_Missing(t *testing.T) {
	assert.NoError(t, LoadEnvFile(""))
	assert.Error(t, LoadEnvFile(filepath.Join(t.TempDir(), "missing.env")))
}
