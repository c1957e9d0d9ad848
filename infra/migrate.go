package infra

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratepg "github.com/golang-migrate/migrate/v4/database/postgres"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/rs/zerolog"
)

//go:embed migrations/postgres/*.sql migrations/sqlite/*.sql
var migrationFS embed.FS

// Migrator 管理資料表結構版本
//
// migrate 在 Close 時會一併關閉底層連線，所以這裡使用獨立的 *sql.DB，
// 不與服務共用的連線池混用。
type Migrator struct {
	logger  zerolog.Logger
	migrate *migrate.Migrate
}

// NewMigrator 依照 driver 選擇對應的 migration 目錄
func NewMigrator(config DatabaseConfig, logger zerolog.Logger) (*Migrator, error) {
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database for migrations: %w", err)
	}

	var driver database.Driver
	switch config.Driver {
	case DriverPostgres:
		driver, err = migratepg.WithInstance(db, &migratepg.Config{})
	case DriverSQLite:
		driver, err = migratesqlite.WithInstance(db, &migratesqlite.Config{})
	default:
		err = fmt.Errorf("unsupported database driver %q", config.Driver)
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create migration driver: %w", err)
	}

	source, err := iofs.New(migrationFS, "migrations/"+config.Driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to load migration files: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", source, config.Driver, driver)
	if err != nil {
		driver.Close()
		return nil, fmt.Errorf("failed to create migrator: %w", err)
	}

	return &Migrator{
		logger:  logger.With().Str("module", "migrator").Logger(),
		migrate: m,
	}, nil
}

// Up 套用所有尚未執行的 migration
func (m *Migrator) Up() error {
	err := m.migrate.Up()
	if errors.Is(err, migrate.ErrNoChange) {
		m.logger.Info().Msg("資料表結構已是最新版本")
		return nil
	}
	if err != nil {
		return err
	}
	version, _, _ := m.Version()
	m.logger.Info().Uint("version", version).Msg("資料表 migration 完成")
	return nil
}

// Down 回滾最近一次 migration
func (m *Migrator) Down() error {
	err := m.migrate.Steps(-1)
	if err != nil {
		return err
	}
	version, _, _ := m.Version()
	m.logger.Info().Uint("version", version).Msg("已回滾一個 migration 版本")
	return nil
}

// Version 回傳目前版本，尚未套用任何 migration 時為 0
func (m *Migrator) Version() (uint, bool, error) {
	version, dirty, err := m.migrate.Version()
	if errors.Is(err, migrate.ErrNilVersion) {
		return 0, false, nil
	}
	return version, dirty, err
}

func (m *Migrator) Close() error {
	srcErr, dbErr := m.migrate.Close()
	return errors.Join(srcErr, dbErr)
}

// RunMigrations 開啟 migrator、執行 Up 後關閉
func RunMigrations(config DatabaseConfig, logger zerolog.Logger) error {
	m, err := NewMigrator(config, logger)
	if err != nil {
		return err
	}
	defer m.Close()
	return m.Up()
}
