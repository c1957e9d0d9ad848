package infra

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// DatabaseConfig 關聯式資料庫連線設定
type DatabaseConfig struct {
	Driver          string
	Host            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	Path            string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN 組出 driver 使用的連線字串
func (c DatabaseConfig) DSN() (string, error) {
	switch c.Driver {
	case DriverPostgres:
		u := url.URL{
			Scheme: "postgres",
			User:   url.UserPassword(c.User, c.Password),
			Host:   c.Host,
			Path:   "/" + c.Name,
		}
		q := url.Values{}
		if c.SSLMode != "" {
			q.Set("sslmode", c.SSLMode)
		}
		q.Set("client_encoding", "UTF8")
		u.RawQuery = q.Encode()
		return u.String(), nil
	case DriverSQLite:
		return fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", c.Path), nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

// Database 包裝 sqlx 連線池並記錄使用的 driver
type Database struct {
	*sqlx.DB
	Driver string
}

func NewDatabase(config DatabaseConfig) (*Database, error) {
	dsn, err := config.DSN()
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(config.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", config.Driver, err)
	}

	if config.Driver == DriverSQLite {
		// SQLite 只允許單一寫入者
		db.SetMaxOpenConns(1)
	} else {
		if config.MaxOpenConns > 0 {
			db.SetMaxOpenConns(config.MaxOpenConns)
		}
		if config.MaxIdleConns > 0 {
			db.SetMaxIdleConns(config.MaxIdleConns)
		}
	}
	if config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", config.Driver, err)
	}

	return &Database{DB: db, Driver: config.Driver}, nil
}

// NewDatabaseFromDB 以既有連線建立 Database，測試時搭配 sqlmock 使用
func NewDatabaseFromDB(db *sqlx.DB, driver string) *Database {
	return &Database{DB: db, Driver: driver}
}

// Ping 檢查連線並回傳延遲毫秒數
func (d *Database) Ping(ctx context.Context) (float64, error) {
	start := time.Now()
	err := d.DB.PingContext(ctx)
	return float64(time.Since(start).Nanoseconds()) / 1e6, err
}
