package cup

import (
	"fmt"
	"time"

	"coffee-backend/data-models/common"
	"coffee-backend/model"
)

// CreateCupInput 建立杯數紀錄輸入
type CreateCupInput struct {
	Body struct {
		DateTime time.Time `json:"date_time" example:"2024-03-10T08:30:00Z" doc:"飲用時間（RFC3339）"`
		Username string    `json:"username" example:"alice" doc:"使用者名稱"`
		CoffeeID int64     `json:"coffee_id" example:"1" doc:"咖啡豆ID"`
	}
}

// ToModel 轉成資料模型，時間一律存 UTC
func (in *CreateCupInput) ToModel() *model.Cup {
	return &model.Cup{
		DateTime: in.Body.DateTime.UTC(),
		Username: in.Body.Username,
		CoffeeID: in.Body.CoffeeID,
	}
}

// CupIDInput 杯數紀錄ID輸入
type CupIDInput struct {
	CupID int64 `path:"cup_id" example:"1" doc:"杯數紀錄ID"`
}

// ListCupsInput 杯數紀錄列表輸入
type ListCupsInput struct {
	common.OffsetPaginationInput
}

// UpdateCupInput 部分更新杯數紀錄
type UpdateCupInput struct {
	CupID   int64 `path:"cup_id" example:"1" doc:"杯數紀錄ID"`
	RawBody []byte
	Body    struct {
		DateTime *time.Time `json:"date_time,omitempty" example:"2024-03-10T08:30:00Z" doc:"飲用時間（RFC3339）"`
		Username *string    `json:"username,omitempty" example:"alice" doc:"使用者名稱"`
		CoffeeID *int64     `json:"coffee_id,omitempty" example:"1" doc:"咖啡豆ID"`
	}
}

// Changes 回傳要更新的欄位與值，杯數紀錄沒有可為空的欄位
func (in *UpdateCupInput) Changes() (map[string]any, error) {
	keys, err := common.PatchKeys(in.RawBody)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any, len(keys))
	for key, isNull := range keys {
		if isNull {
			return nil, fmt.Errorf("%s: %w", key, common.ErrNullField)
		}
		switch key {
		case "date_time":
			changes[key] = in.Body.DateTime.UTC()
		case "username":
			changes[key] = *in.Body.Username
		case "coffee_id":
			changes[key] = *in.Body.CoffeeID
		}
	}
	return changes, nil
}

// CupResponse 杯數紀錄回應
type CupResponse struct {
	Body *model.Cup
}

// CupsResponse 杯數紀錄列表回應
type CupsResponse struct {
	Body []*model.Cup
}
