package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
	assert.Equal(t, "pinata", cfg.Blockchain.DefaultProvider)
	assert.True(t, cfg.Blockchain.RequirePremium)
	assert.Equal(t, 2*time.Minute, cfg.Blockchain.UploadTimeout)
	assert.Equal(t, int64(100*1024*1024), cfg.Pinata.MaxFileSize)
	assert.Contains(t, cfg.Blockchain.AllowedExtensions, "pdf")
	assert.Equal(t, 30*24*time.Hour, cfg.Maintenance.TrashRetention)
}

func TestLoadConfigFromEnvironment(t *testing.T) {
	t.Setenv("BLOCKCHAIN_DEFAULT_PROVIDER", " Arweave ")
	t.Setenv("BLOCKCHAIN_ALLOWED_EXTENSIONS", ".PDF, txt,,")
	t.Setenv("BLOCKCHAIN_MAX_MONTHLY_UPLOADS", "5")
	t.Setenv("PROVIDER_UPLOAD_TIMEOUT", "90s")
	t.Setenv("DB_DRIVER", "sqlite")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "arweave", cfg.Blockchain.DefaultProvider)
	assert.Equal(t, []string{"pdf", "txt"}, cfg.Blockchain.AllowedExtensions)
	assert.Equal(t, 5, cfg.Blockchain.MaxMonthlyUploads)
	assert.Equal(t, 90*time.Second, cfg.Blockchain.UploadTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
}

func TestLoadConfigValidation(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{name: "production without jwt secret", env: map[string]string{"ENV": "production"}},
		{name: "unknown database driver", env: map[string]string{"DB_DRIVER": "oracle"}},
		{name: "s3 without bucket", env: map[string]string{"STORAGE_DRIVER": "s3"}},
		{name: "bad duration", env: map[string]string{"PROVIDER_UPLOAD_TIMEOUT": "soon"}},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			for k, v := range test.env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			assert.Error(t, err)
		})
	}
}

func TestLoggerConfig(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("DISABLE_GORM_LOGGING", "true")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	lc := cfg.LoggerConfig()
	assert.True(t, lc.ProductionMode)
	assert.True(t, lc.DisableGORMLogging)
	assert.Equal(t, "warn", lc.Level)
	assert.Equal(t, 24*time.Hour, cfg.Storage.ChunkSessionTTL)
	assert.Equal(t, int64(1<<30), cfg.Storage.MaxUploadSize)
}
