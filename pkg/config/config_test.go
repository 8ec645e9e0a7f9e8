package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")

	cfg, err := Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, "inventory-service", cfg.ServiceName)
	assert.Equal(t, StoreDriverMemory, cfg.DB.Driver)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.BulkUpload.RowTimeout)
	assert.Equal(t, int64(10<<20), cfg.BulkUpload.MaxBytes)
	assert.False(t, cfg.Storage.Enabled())
	assert.Empty(t, cfg.Redis.Address)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("AUTH_ENABLED", "false")
	t.Setenv("BULK_UPLOAD_ROW_TIMEOUT", "5s")
	t.Setenv("S3_BUCKET", "product-images")

	cfg, err := Load("inventory-service")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.DB.Host)
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.False(t, cfg.JWT.Enabled)
	assert.Equal(t, 5*time.Second, cfg.BulkUpload.RowTimeout)
	assert.True(t, cfg.Storage.Enabled())
	assert.Contains(t, cfg.DB.GetDSN(), "host=db.internal")
}

func TestLoadRejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")

	_, err := Load("inventory-service")
	assert.Error(t, err)
}
