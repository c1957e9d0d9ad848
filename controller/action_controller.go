package controller

import (
	"context"
	"net/http"

	"coffee-backend/data-models/action"
	"coffee-backend/data-models/common"
	"coffee-backend/data-models/cup"
	"coffee-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type ActionController struct {
	logger        zerolog.Logger
	actionService *service.ActionService
}

func NewActionController(logger zerolog.Logger, actionService *service.ActionService) *ActionController {
	return &ActionController{
		logger:        logger.With().Str("module", "action_controller").Logger(),
		actionService: actionService,
	}
}

func (c *ActionController) RegisterRoutes(api huma.API) {
	// 喝一杯
	huma.Register(api, huma.Operation{
		OperationID: "drink",
		Method:      http.MethodPost,
		Path:        "/actions/drink",
		Summary:     "喝一杯",
		Description: "以最新的咖啡豆替使用者新增一筆現在時間的杯數紀錄",
		Tags:        []string{"actions"},
	}, func(ctx context.Context, input *action.DrinkInput) (*cup.CupResponse, error) {
		created, err := c.actionService.Drink(ctx, input.Body.Username)
		if err != nil {
			logEvent(c.logger, err).Str("使用者", input.Body.Username).Msg("記錄喝一杯失敗")
			return nil, toHTTPError(err)
		}

		c.logger.Info().
			Str("使用者", created.Username).
			Int64("咖啡豆ID", created.CoffeeID).
			Msg("喝一杯")
		return &cup.CupResponse{Body: created}, nil
	})

	// 總杯數
	huma.Register(api, huma.Operation{
		OperationID: "count-total",
		Method:      http.MethodGet,
		Path:        "/actions/count/total",
		Summary:     "總杯數",
		Tags:        []string{"actions"},
	}, func(ctx context.Context, input *struct{}) (*common.CountResponse, error) {
		return c.respondCount(c.actionService.CountTotal(ctx, ""))
	})

	// 使用者總杯數
	huma.Register(api, huma.Operation{
		OperationID: "count-total-by-user",
		Method:      http.MethodGet,
		Path:        "/actions/count/total/{username}",
		Summary:     "使用者總杯數",
		Tags:        []string{"actions"},
	}, func(ctx context.Context, input *action.UsernameInput) (*common.CountResponse, error) {
		return c.respondCount(c.actionService.CountTotal(ctx, input.Username))
	})

	// 今日杯數
	huma.Register(api, huma.Operation{
		OperationID: "count-today",
		Method:      http.MethodGet,
		Path:        "/actions/count/today",
		Summary:     "今日杯數",
		Description: "從設定時區的今天零點起算",
		Tags:        []string{"actions"},
	}, func(ctx context.Context, input *struct{}) (*common.CountResponse, error) {
		return c.respondCount(c.actionService.CountToday(ctx, ""))
	})

	// 使用者今日杯數
	huma.Register(api, huma.Operation{
		OperationID: "count-today-by-user",
		Method:      http.MethodGet,
		Path:        "/actions/count/today/{username}",
		Summary:     "使用者今日杯數",
		Tags:        []string{"actions"},
	}, func(ctx context.Context, input *action.UsernameInput) (*common.CountResponse, error) {
		return c.respondCount(c.actionService.CountToday(ctx, input.Username))
	})
}

func (c *ActionController) respondCount(count int64, err error) (*common.CountResponse, error) {
	if err != nil {
		c.logger.Error().Err(err).Msg("統計杯數失敗")
		return nil, toHTTPError(err)
	}
	return &common.CountResponse{Body: count}, nil
}
