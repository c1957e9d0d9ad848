package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"coffee-backend/infra"
	"coffee-backend/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newSQLiteDatabase 在暫存目錄建立已套用 migration 的 SQLite 資料庫
func newSQLiteDatabase(t *testing.T) *infra.Database {
	t.Helper()

	cfg := infra.DatabaseConfig{
		Driver: infra.DriverSQLite,
		Path:   filepath.Join(t.TempDir(), "coffee.db"),
	}
	require.NoError(t, infra.RunMigrations(cfg, testLogger))

	db, err := infra.NewDatabase(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestSQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newSQLiteDatabase(t)

	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	events := &recordingPublisher{}
	cache := NewCountCacheService(testLogger, nil, 0)
	coffeeService := NewCoffeeService(testLogger, db)
	cupService := NewCupService(testLogger, db, cache, events)
	actionService := NewActionService(testLogger, db, coffeeService, cupService, cache, taipei)
	// 台北時間 3/10 01:00
	now := time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC)
	actionService.SetClock(func() time.Time { return now })

	roastDate := model.NewDate(2024, time.March, 1)
	price := 14.5
	created, err := coffeeService.CreateCoffee(ctx, &model.Coffee{
		RoastingFacility: "Bonanza",
		CoffeeName:       "Gotiti",
		SizeG:            250,
		RoastDate:        &roastDate,
		Price:            &price,
	})
	require.NoError(t, err)

	stored, err := coffeeService.GetCoffee(ctx, created.ID)
	require.NoError(t, err)
	require.NotNil(t, stored.RoastDate)
	assert.Equal(t, "2024-03-01", stored.RoastDate.String())
	assert.Nil(t, stored.OpenDate)
	require.NotNil(t, stored.Price)
	assert.Equal(t, 14.5, *stored.Price)

	// 台北時間 3/9 23:59，屬於前一天
	yesterday := time.Date(2024, 3, 9, 15, 59, 0, 0, time.UTC)
	// 台北時間 3/10 00:30，寫入時帶時區
	today := time.Date(2024, 3, 10, 0, 30, 0, 0, taipei)

	first, err := cupService.CreateCup(ctx, &model.Cup{DateTime: yesterday, Username: "alice", CoffeeID: created.ID})
	require.NoError(t, err)
	second, err := cupService.CreateCup(ctx, &model.Cup{DateTime: today, Username: "alice", CoffeeID: created.ID})
	require.NoError(t, err)

	cup, err := cupService.GetCup(ctx, second.ID)
	require.NoError(t, err)
	assert.True(t, cup.DateTime.Equal(today), "got %s", cup.DateTime)
	require.NotNil(t, cup.Coffee)
	assert.Equal(t, "Gotiti", cup.Coffee.CoffeeName)

	drunk, err := actionService.Drink(ctx, "bob")
	require.NoError(t, err)
	assert.Equal(t, created.ID, drunk.CoffeeID)
	assert.True(t, drunk.DateTime.Equal(now))

	total, err := actionService.CountTotal(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	todayCount, err := actionService.CountToday(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, int64(2), todayCount)

	aliceToday, err := actionService.CountToday(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(1), aliceToday)

	from, to := time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC), time.Date(2024, 3, 10, 16, 0, 0, 0, time.UTC)
	perUser, err := actionService.CountPerUserBetween(ctx, from, to)
	require.NoError(t, err)
	assert.Equal(t, []model.UserCount{{Username: "alice", Count: 1}, {Username: "bob", Count: 1}}, perUser)

	assert.ErrorIs(t, coffeeService.DeleteCoffee(ctx, created.ID), ErrCoffeeInUse)

	updated, err := cupService.UpdateCup(ctx, first.ID, map[string]any{"username": "carol"})
	require.NoError(t, err)
	assert.Equal(t, "carol", updated.Username)
	assert.True(t, updated.DateTime.Equal(yesterday))

	for _, id := range []int64{first.ID, second.ID, drunk.ID} {
		require.NoError(t, cupService.DeleteCup(ctx, id))
	}
	require.NoError(t, coffeeService.DeleteCoffee(ctx, created.ID))

	_, err = coffeeService.LatestCoffee(ctx)
	assert.ErrorIs(t, err, ErrNoCoffee)
	assert.Len(t, events.Events(), 7)
}
