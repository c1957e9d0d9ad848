package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFrom_MissingFileUsesDefaults(t *testing.T) {
	t.Setenv("DB_DRIVER", "")
	t.Setenv("REDIS_URL", "")
	t.Setenv("REDIS_PORT", "")

	err := LoadConfigFrom(filepath.Join(t.TempDir(), "missing.yml"), "")

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, AppConfig.Database.Driver)
	assert.Equal(t, "localhost:6379", AppConfig.Redis.Addr)
	assert.Equal(t, 100, AppConfig.Notification.QueueSize)
	assert.True(t, AppConfig.App.AutoMigrate)
}

func TestLoadConfigFrom_FileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(`
app:
  timezone: Asia/Taipei
  daily_summary_cron: ""
database:
  driver: postgres
  name: coffeelog
redis:
  addr: cache:6379
`), 0o600))

	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_PATH", filepath.Join(dir, "coffee.db"))
	t.Setenv("REDIS_URL", "redis.internal")
	t.Setenv("REDIS_PORT", "6380")

	require.NoError(t, LoadConfigFrom(path, ""))

	assert.Equal(t, DriverSQLite, AppConfig.Database.Driver)
	assert.Equal(t, "coffeelog", AppConfig.Database.Name)
	assert.Equal(t, "redis.internal:6380", AppConfig.Redis.Addr)
	assert.Empty(t, AppConfig.App.DailySummaryCron)
	// 未出現在檔案中的欄位保留預設值
	assert.Equal(t, 10, AppConfig.Database.MaxOpenConns)

	dbCfg := DatabaseConfigFromApp(AppConfig)
	assert.Equal(t, 30*time.Minute, dbCfg.ConnMaxLifetime)
	assert.Equal(t, filepath.Join(dir, "coffee.db"), dbCfg.Path)
}

func TestLoadConfigFrom_InvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte("app: [oops"), 0o600))

	assert.Error(t, LoadConfigFrom(path, ""))
}

func TestAppLocation(t *testing.T) {
	saved := AppConfig
	t.Cleanup(func() { AppConfig = saved })

	AppConfig.App.Timezone = "Asia/Taipei"
	assert.Equal(t, "Asia/Taipei", AppLocation().String())

	AppConfig.App.Timezone = "Not/AZone"
	assert.Equal(t, time.Local, AppLocation())

	AppConfig.App.Timezone = ""
	assert.Equal(t, time.Local, AppLocation())
}
