package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"coffee-backend/infra"
	"coffee-backend/metrics"
	"coffee-backend/model"
	"coffee-backend/service/interfaces"

	"github.com/rs/zerolog"
)

// cupSelect 每筆杯數紀錄連同咖啡豆一起查出，咖啡欄位以 coffee.* 別名對應到 Cup.Coffee
var cupSelect = func() string {
	coffeeCols := make([]string, 0, len(model.CoffeeColumns))
	for _, col := range model.CoffeeColumns {
		coffeeCols = append(coffeeCols, fmt.Sprintf(`coffee.%s AS "coffee.%s"`, col, col))
	}
	return "SELECT cup.id, cup.date_time, cup.username, cup.coffee_id, " +
		strings.Join(coffeeCols, ", ") +
		" FROM " + model.CupTable + " cup" +
		" JOIN " + model.CoffeeTable + " coffee ON coffee.id = cup.coffee_id"
}()

var cupUpdatableColumns = map[string]bool{
	"date_time": true,
	"username":  true,
	"coffee_id": true,
}

type CupService struct {
	logger zerolog.Logger
	db     *infra.Database
	cache  *CountCacheService
	events interfaces.CupEventPublisher
}

func NewCupService(logger zerolog.Logger, db *infra.Database, cache *CountCacheService, events interfaces.CupEventPublisher) *CupService {
	return &CupService{
		logger: logger.With().Str("module", "cup_service").Logger(),
		db:     db,
		cache:  cache,
		events: events,
	}
}

// CreateCup 新增一筆杯數紀錄，coffee_id 必須存在
func (s *CupService) CreateCup(ctx context.Context, cup *model.Cup) (result *model.Cup, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "cup_service", "create", infra.AttrCoffeeID(cup.CoffeeID), infra.AttrUsername(cup.Username))
	defer s.observe(ctx, metrics.OperationCreate, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	result, err = s.insertCup(ctx, cup, infra.CupEventCreated)
	if err == nil {
		metrics.RecordCupCreated(metrics.OperationCreate)
	}
	return result, err
}

// insertCup 新增紀錄後發布事件並使統計快取失效，Drink 也共用此流程
func (s *CupService) insertCup(ctx context.Context, cup *model.Cup, eventType infra.CupEventType) (*model.Cup, error) {
	if err := s.ensureCoffeeExists(ctx, cup.CoffeeID); err != nil {
		return nil, err
	}

	query := s.db.Rebind("INSERT INTO " + model.CupTable + " (date_time, username, coffee_id) VALUES (?, ?, ?) RETURNING id")
	var id int64
	if err := s.db.QueryRowxContext(ctx, query, cup.DateTime.UTC(), cup.Username, cup.CoffeeID).Scan(&id); err != nil {
		s.logger.Error().
			Str("使用者", cup.Username).
			Int64("咖啡豆ID", cup.CoffeeID).
			Str("錯誤原因", err.Error()).
			Msg("新增杯數紀錄失敗")
		return nil, fmt.Errorf("insert cup: %w", err)
	}

	created, err := s.getCup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int64("杯數紀錄ID", created.ID).
		Str("使用者", created.Username).
		Int64("咖啡豆ID", created.CoffeeID).
		Msg("杯數紀錄新增成功")

	s.afterWrite(ctx, eventType, created)
	return created, nil
}

// ListCups 依 id 遞增排序的分頁列表
func (s *CupService) ListCups(ctx context.Context, offset, limit int) (cups []*model.Cup, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "cup_service", "list")
	defer s.observe(ctx, metrics.OperationList, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	cups = []*model.Cup{}
	if limit == 0 {
		return cups, nil
	}

	query := s.db.Rebind(cupSelect + " ORDER BY cup.id LIMIT ? OFFSET ?")
	if err = s.db.SelectContext(ctx, &cups, query, limit, offset); err != nil {
		s.logger.Error().Err(err).Int("offset", offset).Int("limit", limit).Msg("查詢杯數紀錄列表失敗")
		return nil, fmt.Errorf("list cups: %w", err)
	}
	return cups, nil
}

// GetCup 根據ID獲取杯數紀錄
func (s *CupService) GetCup(ctx context.Context, id int64) (cup *model.Cup, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "cup_service", "get", infra.AttrCupID(id))
	defer s.observe(ctx, metrics.OperationGet, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	return s.getCup(ctx, id)
}

func (s *CupService) getCup(ctx context.Context, id int64) (*model.Cup, error) {
	cup := &model.Cup{}
	err := s.db.GetContext(ctx, cup, s.db.Rebind(cupSelect+" WHERE cup.id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCupNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get cup %d: %w", id, err)
	}
	return cup, nil
}

// UpdateCup 只更新 changes 中出現的欄位
func (s *CupService) UpdateCup(ctx context.Context, id int64, changes map[string]any) (cup *model.Cup, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "cup_service", "update", infra.AttrCupID(id))
	defer s.observe(ctx, metrics.OperationUpdate, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	if _, err = s.getCup(ctx, id); err != nil {
		return nil, err
	}
	if len(changes) == 0 {
		return s.getCup(ctx, id)
	}

	if coffeeID, ok := changes["coffee_id"].(int64); ok {
		if err = s.ensureCoffeeExists(ctx, coffeeID); err != nil {
			return nil, err
		}
	}
	if dt, ok := changes["date_time"].(time.Time); ok {
		changes["date_time"] = dt.UTC()
	}

	setClause, args, err := buildSetClause(changes, cupUpdatableColumns, nil)
	if err != nil {
		return nil, err
	}
	args = append(args, id)

	res, err := s.db.ExecContext(ctx, s.db.Rebind("UPDATE "+model.CupTable+" SET "+setClause+" WHERE id = ?"), args...)
	if err != nil {
		s.logger.Error().Err(err).Int64("杯數紀錄ID", id).Msg("更新杯數紀錄失敗")
		return nil, fmt.Errorf("update cup %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrCupNotFound
	}

	cup, err = s.getCup(ctx, id)
	if err != nil {
		return nil, err
	}

	s.logger.Info().Int64("杯數紀錄ID", id).Strs("欄位", sortedKeys(changes)).Msg("杯數紀錄更新成功")
	s.afterWrite(ctx, infra.CupEventUpdated, cup)
	return cup, nil
}

// DeleteCup 刪除杯數紀錄
func (s *CupService) DeleteCup(ctx context.Context, id int64) (err error) {
	ctx, span := infra.StartServiceSpan(ctx, "cup_service", "delete", infra.AttrCupID(id))
	defer s.observe(ctx, metrics.OperationDelete, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	cup, err := s.getCup(ctx, id)
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, s.db.Rebind("DELETE FROM "+model.CupTable+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete cup %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrCupNotFound
	}

	s.logger.Info().Int64("杯數紀錄ID", id).Str("使用者", cup.Username).Msg("杯數紀錄已刪除")
	s.afterWrite(ctx, infra.CupEventDeleted, cup)
	return nil
}

func (s *CupService) ensureCoffeeExists(ctx context.Context, coffeeID int64) error {
	var count int64
	query := s.db.Rebind("SELECT COUNT(*) FROM " + model.CoffeeTable + " WHERE id = ?")
	if err := s.db.GetContext(ctx, &count, query, coffeeID); err != nil {
		return fmt.Errorf("check coffee %d: %w", coffeeID, err)
	}
	if count == 0 {
		return ErrCoffeeNotFound
	}
	return nil
}

func (s *CupService) afterWrite(ctx context.Context, eventType infra.CupEventType, cup *model.Cup) {
	s.cache.Invalidate(ctx)
	if s.events == nil {
		return
	}
	s.events.Publish(&infra.CupEvent{
		Type:      eventType,
		CupID:     cup.ID,
		CoffeeID:  cup.CoffeeID,
		Username:  cup.Username,
		Timestamp: time.Now().UTC(),
	})
}

func (s *CupService) observe(ctx context.Context, op metrics.OperationType, start time.Time, errp *error) {
	metrics.RecordServiceOperation(metrics.ServiceTypeCup, op, operationStatus(*errp), metrics.SourceFromContext(ctx), time.Since(start))
}
