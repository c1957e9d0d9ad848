package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coffee-backend/infra"
	"coffee-backend/metrics"
	"coffee-backend/model"
	"coffee-backend/utils"

	"github.com/rs/zerolog"
)

// ActionService 咖啡計數器的快捷操作與統計
type ActionService struct {
	logger        zerolog.Logger
	db            *infra.Database
	coffeeService *CoffeeService
	cupService    *CupService
	cache         *CountCacheService
	location      *time.Location
	now           func() time.Time
}

func NewActionService(logger zerolog.Logger, db *infra.Database, coffeeService *CoffeeService, cupService *CupService, cache *CountCacheService, location *time.Location) *ActionService {
	if location == nil {
		location = time.UTC
	}
	return &ActionService{
		logger:        logger.With().Str("module", "action_service").Logger(),
		db:            db,
		coffeeService: coffeeService,
		cupService:    cupService,
		cache:         cache,
		location:      location,
		now:           time.Now,
	}
}

// Drink 以最新的咖啡豆替使用者記一杯
func (s *ActionService) Drink(ctx context.Context, username string) (cup *model.Cup, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "action_service", "drink", infra.AttrUsername(username))
	defer s.observe(ctx, metrics.OperationDrink, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	latest, err := s.coffeeService.LatestCoffee(ctx)
	if err != nil {
		if errors.Is(err, ErrNoCoffee) {
			s.logger.Warn().Str("使用者", username).Msg("資料庫中沒有咖啡豆，無法記錄")
		}
		return nil, err
	}

	cup, err = s.cupService.insertCup(ctx, &model.Cup{
		DateTime: s.now().UTC(),
		Username: username,
		CoffeeID: latest.ID,
	}, infra.CupEventDrink)
	if err != nil {
		return nil, err
	}

	metrics.RecordCupCreated(metrics.OperationDrink)
	return cup, nil
}

// CountTotal 所有杯數，username 為空時不限使用者
func (s *ActionService) CountTotal(ctx context.Context, username string) (int64, error) {
	return s.count(ctx, "total", username, time.Time{})
}

// CountToday 今天（設定時區的零點起）的杯數
func (s *ActionService) CountToday(ctx context.Context, username string) (int64, error) {
	start := utils.StartOfDay(s.now(), s.location)
	scope := "today:" + start.Format(model.DateLayout)
	return s.count(ctx, scope, username, start)
}

func (s *ActionService) count(ctx context.Context, scope, username string, since time.Time) (count int64, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "action_service", "count", infra.AttrUsername(username))
	defer s.observe(ctx, metrics.OperationCount, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	cached, generation, ok := s.cache.Get(ctx, scope, username)
	if ok {
		return cached, nil
	}

	query := "SELECT COUNT(*) FROM " + model.CupTable + " WHERE 1 = 1"
	args := []any{}
	if username != "" {
		query += " AND username = ?"
		args = append(args, username)
	}
	if !since.IsZero() {
		query += " AND date_time >= ?"
		args = append(args, since.UTC())
	}

	if err = s.db.GetContext(ctx, &count, s.db.Rebind(query), args...); err != nil {
		s.logger.Error().Err(err).Str("scope", scope).Str("使用者", username).Msg("統計杯數失敗")
		return 0, fmt.Errorf("count cups: %w", err)
	}

	s.cache.Set(ctx, generation, scope, username, count)
	return count, nil
}

// CountPerUserBetween 統計 [from, to) 區間內每位使用者的杯數
func (s *ActionService) CountPerUserBetween(ctx context.Context, from, to time.Time) ([]model.UserCount, error) {
	ctx, span := infra.StartServiceSpan(ctx, "action_service", "count_per_user")
	defer span.End()

	query := s.db.Rebind("SELECT username, COUNT(*) AS count FROM " + model.CupTable +
		" WHERE date_time >= ? AND date_time < ? GROUP BY username ORDER BY username")

	counts := []model.UserCount{}
	if err := s.db.SelectContext(ctx, &counts, query, from.UTC(), to.UTC()); err != nil {
		infra.RecordError(span, err, "count per user failed")
		return nil, fmt.Errorf("count cups per user: %w", err)
	}
	infra.MarkSuccess(span)
	return counts, nil
}

// Location 統計「今天」使用的時區
func (s *ActionService) Location() *time.Location {
	return s.location
}

// Now 目前時間
func (s *ActionService) Now() time.Time {
	return s.now()
}

// SetClock 替換時間來源
func (s *ActionService) SetClock(now func() time.Time) {
	s.now = now
}

func (s *ActionService) observe(ctx context.Context, op metrics.OperationType, start time.Time, errp *error) {
	metrics.RecordServiceOperation(metrics.ServiceTypeAction, op, operationStatus(*errp), metrics.SourceFromContext(ctx), time.Since(start))
}
