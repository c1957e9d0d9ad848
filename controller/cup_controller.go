package controller

import (
	"context"
	"errors"
	"net/http"

	"coffee-backend/data-models/common"
	"coffee-backend/data-models/cup"
	"coffee-backend/service"

	"github.com/danielgtaylor/huma/v2"
	"github.com/rs/zerolog"
)

type CupController struct {
	logger     zerolog.Logger
	cupService *service.CupService
}

func NewCupController(logger zerolog.Logger, cupService *service.CupService) *CupController {
	return &CupController{
		logger:     logger.With().Str("module", "cup_controller").Logger(),
		cupService: cupService,
	}
}

func (c *CupController) RegisterRoutes(api huma.API) {
	// 新增杯數紀錄
	huma.Register(api, huma.Operation{
		OperationID: "create-cup",
		Method:      http.MethodPost,
		Path:        "/cups/",
		Summary:     "新增杯數紀錄",
		Description: "coffee_id 不存在時回傳 422",
		Tags:        []string{"cups"},
	}, func(ctx context.Context, input *cup.CreateCupInput) (*cup.CupResponse, error) {
		created, err := c.cupService.CreateCup(ctx, input.ToModel())
		if err != nil {
			c.logError(err, 0, "新增杯數紀錄失敗")
			return nil, cupWriteError(err)
		}
		return &cup.CupResponse{Body: created}, nil
	})

	// 杯數紀錄列表
	huma.Register(api, huma.Operation{
		OperationID: "list-cups",
		Method:      http.MethodGet,
		Path:        "/cups/",
		Summary:     "杯數紀錄列表",
		Description: "依 id 遞增排序，每筆附帶咖啡豆資料",
		Tags:        []string{"cups"},
	}, func(ctx context.Context, input *cup.ListCupsInput) (*cup.CupsResponse, error) {
		cups, err := c.cupService.ListCups(ctx, input.GetOffset(), input.GetLimit())
		if err != nil {
			c.logger.Error().Err(err).Int("offset", input.GetOffset()).Int("limit", input.GetLimit()).Msg("獲取杯數紀錄列表失敗")
			return nil, toHTTPError(err)
		}
		return &cup.CupsResponse{Body: cups}, nil
	})

	// 獲取杯數紀錄
	huma.Register(api, huma.Operation{
		OperationID: "get-cup",
		Method:      http.MethodGet,
		Path:        "/cups/{cup_id}",
		Summary:     "獲取杯數紀錄",
		Tags:        []string{"cups"},
	}, func(ctx context.Context, input *cup.CupIDInput) (*cup.CupResponse, error) {
		found, err := c.cupService.GetCup(ctx, input.CupID)
		if err != nil {
			c.logError(err, input.CupID, "獲取杯數紀錄失敗")
			return nil, toHTTPError(err)
		}
		return &cup.CupResponse{Body: found}, nil
	})

	// 部分更新杯數紀錄
	huma.Register(api, huma.Operation{
		OperationID: "update-cup",
		Method:      http.MethodPatch,
		Path:        "/cups/{cup_id}",
		Summary:     "更新杯數紀錄",
		Description: "只更新 body 中出現的欄位，新的 coffee_id 必須存在",
		Tags:        []string{"cups"},
	}, func(ctx context.Context, input *cup.UpdateCupInput) (*cup.CupResponse, error) {
		changes, err := input.Changes()
		if err != nil {
			return nil, huma.Error422UnprocessableEntity(err.Error())
		}

		updated, err := c.cupService.UpdateCup(ctx, input.CupID, changes)
		if err != nil {
			c.logError(err, input.CupID, "更新杯數紀錄失敗")
			return nil, cupWriteError(err)
		}
		return &cup.CupResponse{Body: updated}, nil
	})

	// 刪除杯數紀錄
	huma.Register(api, huma.Operation{
		OperationID: "delete-cup",
		Method:      http.MethodDelete,
		Path:        "/cups/{cup_id}",
		Summary:     "刪除杯數紀錄",
		Tags:        []string{"cups"},
	}, func(ctx context.Context, input *cup.CupIDInput) (*common.OkResponse, error) {
		if err := c.cupService.DeleteCup(ctx, input.CupID); err != nil {
			c.logError(err, input.CupID, "刪除杯數紀錄失敗")
			return nil, toHTTPError(err)
		}
		return common.NewOkResponse(), nil
	})
}

// cupWriteError 寫入杯數紀錄時 coffee_id 不存在屬於輸入錯誤
func cupWriteError(err error) error {
	if errors.Is(err, service.ErrCoffeeNotFound) {
		return huma.Error422UnprocessableEntity(msgCoffeeNotFound)
	}
	return toHTTPError(err)
}

func (c *CupController) logError(err error, cupID int64, msg string) {
	logEvent(c.logger, err).Int64("杯數紀錄ID", cupID).Msg(msg)
}
