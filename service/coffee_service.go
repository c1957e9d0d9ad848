package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"coffee-backend/infra"
	"coffee-backend/metrics"
	"coffee-backend/model"

	"github.com/rs/zerolog"
)

var coffeeSelect = "SELECT " + strings.Join(model.CoffeeColumns, ", ") + " FROM " + model.CoffeeTable

type CoffeeService struct {
	logger zerolog.Logger
	db     *infra.Database
}

func NewCoffeeService(logger zerolog.Logger, db *infra.Database) *CoffeeService {
	return &CoffeeService{
		logger: logger.With().Str("module", "coffee_service").Logger(),
		db:     db,
	}
}

// CreateCoffee 新增一包咖啡豆
func (s *CoffeeService) CreateCoffee(ctx context.Context, coffee *model.Coffee) (result *model.Coffee, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "create")
	defer s.observe(ctx, metrics.OperationCreate, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	query := s.db.Rebind(`INSERT INTO ` + model.CoffeeTable + `
		(roasting_facility, coffee_name, size_g, roast_date, open_date, price, country_of_origin)
		VALUES (?, ?, ?, ?, ?, ?, ?) RETURNING id`)

	err = s.db.QueryRowxContext(ctx, query,
		coffee.RoastingFacility,
		coffee.CoffeeName,
		coffee.SizeG,
		coffee.RoastDate,
		coffee.OpenDate,
		coffee.Price,
		coffee.CountryOfOrigin,
	).Scan(&coffee.ID)
	if err != nil {
		s.logger.Error().
			Str("咖啡名稱", coffee.CoffeeName).
			Str("錯誤原因", err.Error()).
			Msg("新增咖啡豆失敗")
		return nil, fmt.Errorf("insert coffee: %w", err)
	}

	span.SetAttributes(infra.AttrCoffeeID(coffee.ID))
	s.logger.Info().
		Int64("咖啡豆ID", coffee.ID).
		Str("咖啡名稱", coffee.CoffeeName).
		Msg("咖啡豆新增成功")

	return coffee, nil
}

// ListCoffees 依 id 遞增排序的分頁列表
func (s *CoffeeService) ListCoffees(ctx context.Context, offset, limit int) (coffees []*model.Coffee, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "list")
	defer s.observe(ctx, metrics.OperationList, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	coffees = []*model.Coffee{}
	if limit == 0 {
		return coffees, nil
	}

	query := s.db.Rebind(coffeeSelect + " ORDER BY id LIMIT ? OFFSET ?")
	if err = s.db.SelectContext(ctx, &coffees, query, limit, offset); err != nil {
		s.logger.Error().Err(err).Int("offset", offset).Int("limit", limit).Msg("查詢咖啡豆列表失敗")
		return nil, fmt.Errorf("list coffees: %w", err)
	}
	return coffees, nil
}

// LatestCoffee 取得 id 最大的咖啡豆
func (s *CoffeeService) LatestCoffee(ctx context.Context) (coffee *model.Coffee, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "latest")
	defer s.observe(ctx, metrics.OperationLatest, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	coffee = &model.Coffee{}
	err = s.db.GetContext(ctx, coffee, coffeeSelect+" ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoCoffee
	}
	if err != nil {
		return nil, fmt.Errorf("latest coffee: %w", err)
	}
	return coffee, nil
}

// GetCoffee 根據ID獲取咖啡豆
func (s *CoffeeService) GetCoffee(ctx context.Context, id int64) (coffee *model.Coffee, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "get", infra.AttrCoffeeID(id))
	defer s.observe(ctx, metrics.OperationGet, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	return s.getCoffee(ctx, id)
}

func (s *CoffeeService) getCoffee(ctx context.Context, id int64) (*model.Coffee, error) {
	coffee := &model.Coffee{}
	err := s.db.GetContext(ctx, coffee, s.db.Rebind(coffeeSelect+" WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrCoffeeNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get coffee %d: %w", id, err)
	}
	return coffee, nil
}

// UpdateCoffee 只更新 changes 中出現的欄位，值為 nil 代表清空
func (s *CoffeeService) UpdateCoffee(ctx context.Context, id int64, changes map[string]any) (coffee *model.Coffee, err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "update", infra.AttrCoffeeID(id))
	defer s.observe(ctx, metrics.OperationUpdate, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	if len(changes) == 0 {
		return s.getCoffee(ctx, id)
	}

	setClause, args, err := buildSetClause(changes, coffeeUpdatableColumns, model.CoffeeNullableColumns)
	if err != nil {
		return nil, err
	}
	args = append(args, id)

	query := s.db.Rebind("UPDATE " + model.CoffeeTable + " SET " + setClause + " WHERE id = ?")
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		s.logger.Error().Err(err).Int64("咖啡豆ID", id).Msg("更新咖啡豆失敗")
		return nil, fmt.Errorf("update coffee %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrCoffeeNotFound
	}

	s.logger.Info().Int64("咖啡豆ID", id).Strs("欄位", sortedKeys(changes)).Msg("咖啡豆更新成功")
	return s.getCoffee(ctx, id)
}

// DeleteCoffee 刪除咖啡豆，仍有杯數紀錄引用時拒絕
func (s *CoffeeService) DeleteCoffee(ctx context.Context, id int64) (err error) {
	ctx, span := infra.StartServiceSpan(ctx, "coffee_service", "delete", infra.AttrCoffeeID(id))
	defer s.observe(ctx, metrics.OperationDelete, time.Now(), &err)
	defer func() { infra.EndServiceSpan(span, err) }()

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete coffee: %w", err)
	}
	defer tx.Rollback()

	var cups int64
	if err = tx.GetContext(ctx, &cups, tx.Rebind("SELECT COUNT(*) FROM "+model.CupTable+" WHERE coffee_id = ?"), id); err != nil {
		return fmt.Errorf("count cups of coffee %d: %w", id, err)
	}
	if cups > 0 {
		s.logger.Warn().Int64("咖啡豆ID", id).Int64("杯數", cups).Msg("咖啡豆仍有杯數紀錄，無法刪除")
		return ErrCoffeeInUse
	}

	res, err := tx.ExecContext(ctx, tx.Rebind("DELETE FROM "+model.CoffeeTable+" WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("delete coffee %d: %w", id, err)
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return ErrCoffeeNotFound
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete coffee %d: %w", id, err)
	}

	s.logger.Info().Int64("咖啡豆ID", id).Msg("咖啡豆已刪除")
	return nil
}

func (s *CoffeeService) observe(ctx context.Context, op metrics.OperationType, start time.Time, errp *error) {
	metrics.RecordServiceOperation(metrics.ServiceTypeCoffee, op, operationStatus(*errp), metrics.SourceFromContext(ctx), time.Since(start))
}

var coffeeUpdatableColumns = map[string]bool{
	"roasting_facility": true,
	"coffee_name":       true,
	"size_g":            true,
	"roast_date":        true,
	"open_date":         true,
	"price":             true,
	"country_of_origin": true,
}

// buildSetClause 依欄位名稱排序組出 "a = ?, b = ?"
func buildSetClause(changes map[string]any, allowed, nullable map[string]bool) (string, []any, error) {
	keys := sortedKeys(changes)
	parts := make([]string, 0, len(keys))
	args := make([]any, 0, len(keys)+1)
	for _, key := range keys {
		if !allowed[key] {
			return "", nil, fmt.Errorf("%s: %w", key, ErrInvalidField)
		}
		value := changes[key]
		if value == nil && !nullable[key] {
			return "", nil, fmt.Errorf("%s may not be null: %w", key, ErrInvalidField)
		}
		parts = append(parts, key+" = ?")
		args = append(args, value)
	}
	return strings.Join(parts, ", "), args, nil
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func operationStatus(err error) metrics.OperationStatus {
	switch {
	case err == nil:
		return metrics.StatusSuccess
	case errors.Is(err, ErrCoffeeNotFound), errors.Is(err, ErrNoCoffee), errors.Is(err, ErrCupNotFound):
		return metrics.StatusNotFound
	default:
		return metrics.StatusError
	}
}
