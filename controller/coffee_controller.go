package controller

import (
	"context"
	"net/http"

	"coffee-backend/data-models/coffee"
	"coffee-backend/data-models/common"
	"coffee-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type CoffeeController struct {
	logger        zerolog.Logger
	coffeeService *service.CoffeeService
}

func NewCoffeeController(logger zerolog.Logger, coffeeService *service.CoffeeService) *CoffeeController {
	return &CoffeeController{
		logger:        logger.With().Str("module", "coffee_controller").Logger(),
		coffeeService: coffeeService,
	}
}

func (c *CoffeeController) RegisterRoutes(api huma.API) {
	// 新增咖啡豆
	huma.Register(api, huma.Operation{
		OperationID: "create-coffee",
		Method:      http.MethodPost,
		Path:        "/coffee/",
		Summary:     "新增咖啡豆",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *coffee.CreateCoffeeInput) (*coffee.CoffeeResponse, error) {
		newCoffee, err := input.ToModel()
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		created, err := c.coffeeService.CreateCoffee(ctx, newCoffee)
		if err != nil {
			c.logger.Error().Err(err).Str("咖啡名稱", input.Body.CoffeeName).Msg("新增咖啡豆失敗")
			return nil, toHTTPError(err)
		}
		return &coffee.CoffeeResponse{Body: created}, nil
	})

	// 咖啡豆列表
	huma.Register(api, huma.Operation{
		OperationID: "list-coffees",
		Method:      http.MethodGet,
		Path:        "/coffee/",
		Summary:     "咖啡豆列表",
		Description: "依 id 遞增排序，offset 與 limit 皆為選填，limit 上限 100",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *coffee.ListCoffeesInput) (*coffee.CoffeesResponse, error) {
		coffees, err := c.coffeeService.ListCoffees(ctx, input.GetOffset(), input.GetLimit())
		if err != nil {
			c.logger.Error().Err(err).Int("offset", input.GetOffset()).Int("limit", input.GetLimit()).Msg("獲取咖啡豆列表失敗")
			return nil, toHTTPError(err)
		}
		return &coffee.CoffeesResponse{Body: coffees}, nil
	})

	// 最新的咖啡豆（id 最大）
	huma.Register(api, huma.Operation{
		OperationID: "get-latest-coffee",
		Method:      http.MethodGet,
		Path:        "/coffee/latest",
		Summary:     "最新的咖啡豆",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *struct{}) (*coffee.CoffeeResponse, error) {
		latest, err := c.coffeeService.LatestCoffee(ctx)
		if err != nil {
			c.logError(err, 0, "獲取最新咖啡豆失敗")
			return nil, toHTTPError(err)
		}
		return &coffee.CoffeeResponse{Body: latest}, nil
	})

	// 獲取咖啡豆
	huma.Register(api, huma.Operation{
		OperationID: "get-coffee",
		Method:      http.MethodGet,
		Path:        "/coffee/{coffee_id}",
		Summary:     "獲取咖啡豆",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *coffee.CoffeeIDInput) (*coffee.CoffeeResponse, error) {
		found, err := c.coffeeService.GetCoffee(ctx, input.CoffeeID)
		if err != nil {
			c.logError(err, input.CoffeeID, "獲取咖啡豆失敗")
			return nil, toHTTPError(err)
		}
		return &coffee.CoffeeResponse{Body: found}, nil
	})

	// 部分更新咖啡豆
	huma.Register(api, huma.Operation{
		OperationID: "update-coffee",
		Method:      http.MethodPatch,
		Path:        "/coffee/{coffee_id}",
		Summary:     "更新咖啡豆",
		Description: "只更新 body 中出現的欄位，可為空的欄位傳 null 代表清空",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *coffee.UpdateCoffeeInput) (*coffee.CoffeeResponse, error) {
		changes, err := input.Changes()
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		updated, err := c.coffeeService.UpdateCoffee(ctx, input.CoffeeID, changes)
		if err != nil {
			c.logError(err, input.CoffeeID, "更新咖啡豆失敗")
			return nil, toHTTPError(err)
		}
		return &coffee.CoffeeResponse{Body: updated}, nil
	})

	// 刪除咖啡豆
	huma.Register(api, huma.Operation{
		OperationID: "delete-coffee",
		Method:      http.MethodDelete,
		Path:        "/coffee/{coffee_id}",
		Summary:     "刪除咖啡豆",
		Description: "仍有杯數紀錄引用時回傳 409",
		Tags:        []string{"coffee"},
	}, func(ctx context.Context, input *coffee.CoffeeIDInput) (*common.OkResponse, error) {
		if err := c.coffeeService.DeleteCoffee(ctx, input.CoffeeID); err != nil {
			c.logError(err, input.CoffeeID, "刪除咖啡豆失敗")
			return nil, toHTTPError(err)
		}
		return common.NewOkResponse(), nil
	})
}

func (c *CoffeeController) logError(err error, coffeeID int64, msg string) {
	logEvent(c.logger, err).Int64("咖啡豆ID", coffeeID).Msg(msg)
}
