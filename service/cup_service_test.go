package service

import (
	"context"
	"testing"
	"time"

	"coffee-backend/infra"
	"coffee-backend/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCupService(t *testing.T) (*CupService, sqlmock.Sqlmock, *recordingPublisher) {
	t.Helper()
	db, mock := newMockDatabase(t)
	events := &recordingPublisher{}
	cache := NewCountCacheService(testLogger, nil, 0)
	return NewCupService(testLogger, db, cache, events), mock, events
}

func TestCupService_CreateCup(t *testing.T) {
	t.Run("新增後回傳含咖啡豆的紀錄並發布事件", func(t *testing.T) {
		svc, mock, events := newTestCupService(t)

		taipei := time.FixedZone("CST", 8*3600)
		at := time.Date(2024, 3, 10, 8, 30, 0, 0, taipei)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coffeelog_coffee WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(countRow(1))
		mock.ExpectQuery(`INSERT INTO coffeelog_cup \(date_time, username, coffee_id\) VALUES \(\$1, \$2, \$3\) RETURNING id`).
			WithArgs(timeArg{want: at}, "alice", int64(2)).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(11))
		mock.ExpectQuery(`SELECT cup.id, .* JOIN coffeelog_coffee coffee ON coffee.id = cup.coffee_id WHERE cup.id = \$1`).
			WithArgs(int64(11)).
			WillReturnRows(cupRow(11, at.UTC(), "alice", 2))

		cup, err := svc.CreateCup(context.Background(), &model.Cup{DateTime: at, Username: "alice", CoffeeID: 2})

		require.NoError(t, err)
		assert.Equal(t, int64(11), cup.ID)
		require.NotNil(t, cup.Coffee)
		assert.Equal(t, int64(2), cup.Coffee.ID)
		assert.Equal(t, "Gotiti", cup.Coffee.CoffeeName)
		assert.NoError(t, mock.ExpectationsWereMet())

		published := events.Events()
		require.Len(t, published, 1)
		assert.Equal(t, infra.CupEventCreated, published[0].Type)
		assert.Equal(t, int64(11), published[0].CupID)
		assert.Equal(t, "alice", published[0].Username)
	})

	t.Run("咖啡豆不存在", func(t *testing.T) {
		svc, mock, events := newTestCupService(t)

		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coffeelog_coffee WHERE id = \$1`).
			WithArgs(int64(404)).
			WillReturnRows(countRow(0))

		_, err := svc.CreateCup(context.Background(), &model.Cup{DateTime: time.Now(), Username: "bob", CoffeeID: 404})

		assert.ErrorIs(t, err, ErrCoffeeNotFound)
		assert.Empty(t, events.Events())
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCupService_ListCups(t *testing.T) {
	svc, mock, _ := newTestCupService(t)
	at := time.Date(2024, 3, 10, 0, 30, 0, 0, time.UTC)

	rows := cupRow(1, at, "alice", 2)
	rows.AddRow(2, at, "bob", 2, 2, "Bonanza", "Gotiti", 250, nil, nil, nil, nil)
	mock.ExpectQuery(`SELECT cup.id, .* ORDER BY cup.id LIMIT \$1 OFFSET \$2`).
		WithArgs(100, 0).
		WillReturnRows(rows)

	cups, err := svc.ListCups(context.Background(), 0, 100)

	require.NoError(t, err)
	require.Len(t, cups, 2)
	assert.Equal(t, "bob", cups[1].Username)
	require.NotNil(t, cups[1].Coffee)
	assert.Nil(t, cups[1].Coffee.Price)
}

func TestCupService_GetCup_NotFound(t *testing.T) {
	svc, mock, _ := newTestCupService(t)

	mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
		WithArgs(int64(5)).
		WillReturnRows(sqlmock.NewRows(cupRowColumns))

	_, err := svc.GetCup(context.Background(), 5)

	assert.ErrorIs(t, err, ErrCupNotFound)
}

func TestCupService_UpdateCup(t *testing.T) {
	t.Run("更新咖啡豆與時間", func(t *testing.T) {
		svc, mock, events := newTestCupService(t)
		at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.FixedZone("CST", 8*3600))

		mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(cupRow(3, time.Now().UTC(), "alice", 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coffeelog_coffee WHERE id = \$1`).
			WithArgs(int64(2)).
			WillReturnRows(countRow(1))
		mock.ExpectExec(`UPDATE coffeelog_cup SET coffee_id = \$1, date_time = \$2 WHERE id = \$3`).
			WithArgs(int64(2), timeArg{want: at}, int64(3)).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(cupRow(3, at.UTC(), "alice", 2))

		cup, err := svc.UpdateCup(context.Background(), 3, map[string]any{
			"coffee_id": int64(2),
			"date_time": at,
		})

		require.NoError(t, err)
		assert.Equal(t, int64(2), cup.CoffeeID)
		assert.NoError(t, mock.ExpectationsWereMet())

		published := events.Events()
		require.Len(t, published, 1)
		assert.Equal(t, infra.CupEventUpdated, published[0].Type)
	})

	t.Run("杯數紀錄不存在", func(t *testing.T) {
		svc, mock, events := newTestCupService(t)

		mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
			WithArgs(int64(77)).
			WillReturnRows(sqlmock.NewRows(cupRowColumns))

		_, err := svc.UpdateCup(context.Background(), 77, map[string]any{"username": "carol"})

		assert.ErrorIs(t, err, ErrCupNotFound)
		assert.Empty(t, events.Events())
	})

	t.Run("新的咖啡豆不存在", func(t *testing.T) {
		svc, mock, _ := newTestCupService(t)

		mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
			WithArgs(int64(3)).
			WillReturnRows(cupRow(3, time.Now().UTC(), "alice", 1))
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM coffeelog_coffee WHERE id = \$1`).
			WithArgs(int64(404)).
			WillReturnRows(countRow(0))

		_, err := svc.UpdateCup(context.Background(), 3, map[string]any{"coffee_id": int64(404)})

		assert.ErrorIs(t, err, ErrCoffeeNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestCupService_DeleteCup(t *testing.T) {
	svc, mock, events := newTestCupService(t)

	mock.ExpectQuery(`SELECT cup.id, .* WHERE cup.id = \$1`).
		WithArgs(int64(6)).
		WillReturnRows(cupRow(6, time.Now().UTC(), "dave", 2))
	mock.ExpectExec(`DELETE FROM coffeelog_cup WHERE id = \$1`).
		WithArgs(int64(6)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, svc.DeleteCup(context.Background(), 6))
	assert.NoError(t, mock.ExpectationsWereMet())

	published := events.Events()
	require.Len(t, published, 1)
	assert.Equal(t, infra.CupEventDeleted, published[0].Type)
	assert.Equal(t, "dave", published[0].Username)
}
