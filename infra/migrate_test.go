package infra

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig(t *testing.T) DatabaseConfig {
	t.Helper()
	return DatabaseConfig{
		Driver: DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "coffee.db"),
	}
}

func tableNames(t *testing.T, db *Database) []string {
	t.Helper()
	var names []string
	require.NoError(t, db.SelectContext(context.Background(), &names,
		"SELECT name FROM sqlite_master WHERE type = 'table' AND name LIKE 'coffeelog_%' ORDER BY name"))
	return names
}

func TestMigrator_SQLiteUpVersionDown(t *testing.T) {
	cfg := sqliteConfig(t)

	require.NoError(t, RunMigrations(cfg, zerolog.Nop()))

	m, err := NewMigrator(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer m.Close()

	version, dirty, err := m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(2), version)
	assert.False(t, dirty)

	// 已是最新版本時 Up 不回傳錯誤
	require.NoError(t, m.Up())

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, []string{"coffeelog_coffee", "coffeelog_cup"}, tableNames(t, db))

	var indexes []string
	require.NoError(t, db.SelectContext(context.Background(), &indexes,
		"SELECT name FROM sqlite_master WHERE type = 'index' AND name LIKE 'ix_coffeelog_cup_%' ORDER BY name"))
	assert.Equal(t, []string{"ix_coffeelog_cup_coffee_id", "ix_coffeelog_cup_date_time", "ix_coffeelog_cup_username"}, indexes)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)

	require.NoError(t, m.Down())
	version, _, err = m.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.Empty(t, tableNames(t, db))
}

func TestNewDatabase_SQLitePragmas(t *testing.T) {
	cfg := sqliteConfig(t)

	dsn, err := cfg.DSN()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(dsn, "file:"+cfg.Path+"?"))

	db, err := NewDatabase(cfg)
	require.NoError(t, err)
	defer db.Close()

	ctx := context.Background()
	var foreignKeys int
	require.NoError(t, db.GetContext(ctx, &foreignKeys, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, foreignKeys)

	var journalMode string
	require.NoError(t, db.GetContext(ctx, &journalMode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", journalMode)

	var busyTimeout int
	require.NoError(t, db.GetContext(ctx, &busyTimeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 5000, busyTimeout)

	latency, err := db.Ping(ctx)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, latency, 0.0)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	pg := DatabaseConfig{Driver: DriverPostgres, Host: "db:5432", User: "coffee", Password: "p@ss", Name: "coffeelog", SSLMode: "disable"}
	dsn, err := pg.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://coffee:p%40ss@db:5432/coffeelog?client_encoding=UTF8&sslmode=disable", dsn)

	_, err = DatabaseConfig{Driver: "mysql"}.DSN()
	assert.Error(t, err)
}
