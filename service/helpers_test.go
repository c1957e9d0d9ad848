package service

import (
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"coffee-backend/infra"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

var testLogger = zerolog.Nop()

// newMockDatabase 以 sqlmock 建立 postgres 方言的 Database
func newMockDatabase(t *testing.T) (*infra.Database, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	return infra.NewDatabaseFromDB(sqlx.NewDb(mockDB, "postgres"), infra.DriverPostgres), mock
}

var coffeeRowColumns = []string{
	"id", "roasting_facility", "coffee_name", "size_g",
	"roast_date", "open_date", "price", "country_of_origin",
}

func coffeeRows() *sqlmock.Rows {
	return sqlmock.NewRows(coffeeRowColumns)
}

var cupRowColumns = []string{
	"id", "date_time", "username", "coffee_id",
	"coffee.id", "coffee.roasting_facility", "coffee.coffee_name", "coffee.size_g",
	"coffee.roast_date", "coffee.open_date", "coffee.price", "coffee.country_of_origin",
}

func cupRow(id int64, at time.Time, username string, coffeeID int64) *sqlmock.Rows {
	return sqlmock.NewRows(cupRowColumns).AddRow(
		id, at, username, coffeeID,
		coffeeID, "Bonanza", "Gotiti", 250,
		"2024-03-01", nil, 14.5, "Ethiopia",
	)
}

func countRow(n int64) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"count"}).AddRow(n)
}

// timeArg 以 time.Equal 比對參數，避免時區表示不同造成誤判
type timeArg struct {
	want time.Time
}

func (a timeArg) Match(v driver.Value) bool {
	got, ok := v.(time.Time)
	return ok && got.Equal(a.want)
}

// recordingPublisher 收集發布的事件
type recordingPublisher struct {
	mu     sync.Mutex
	events []*infra.CupEvent
}

func (p *recordingPublisher) Publish(event *infra.CupEvent) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []*infra.CupEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]*infra.CupEvent(nil), p.events...)
}
