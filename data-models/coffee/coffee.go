package coffee

import (
	"fmt"

	"coffee-backend/data-models/common"
	"coffee-backend/model"
)

// CoffeeBody 建立咖啡豆時的欄位
type CoffeeBody struct {
	RoastingFacility string   `json:"roasting_facility" example:"Bonanza Coffee" doc:"烘焙廠"`
	CoffeeName       string   `json:"coffee_name" example:"Gotiti" doc:"咖啡名稱"`
	SizeG            int      `json:"size_g" example:"250" doc:"包裝重量（公克）"`
	RoastDate        *string  `json:"roast_date,omitempty" format:"date" nullable:"true" example:"2024-03-01" doc:"烘焙日期"`
	OpenDate         *string  `json:"open_date,omitempty" format:"date" nullable:"true" example:"2024-03-10" doc:"開封日期"`
	Price            *float64 `json:"price,omitempty" nullable:"true" example:"14.5" doc:"價格"`
	CountryOfOrigin  *string  `json:"country_of_origin,omitempty" nullable:"true" example:"Ethiopia" doc:"產地"`
}

// CreateCoffeeInput 建立咖啡豆輸入
type CreateCoffeeInput struct {
	Body CoffeeBody
}

// ToModel 轉成資料模型
func (in *CreateCoffeeInput) ToModel() (*model.Coffee, error) {
	roastDate, err := parseOptionalDate("roast_date", in.Body.RoastDate)
	if err != nil {
		return nil, err
	}
	openDate, err := parseOptionalDate("open_date", in.Body.OpenDate)
	if err != nil {
		return nil, err
	}

	return &model.Coffee{
		RoastingFacility: in.Body.RoastingFacility,
		CoffeeName:       in.Body.CoffeeName,
		SizeG:            in.Body.SizeG,
		RoastDate:        roastDate,
		OpenDate:         openDate,
		Price:            in.Body.Price,
		CountryOfOrigin:  in.Body.CountryOfOrigin,
	}, nil
}

// CoffeeIDInput 咖啡豆ID輸入
type CoffeeIDInput struct {
	CoffeeID int64 `path:"coffee_id" example:"1" doc:"咖啡豆ID"`
}

// ListCoffeesInput 咖啡豆列表輸入
type ListCoffeesInput struct {
	common.OffsetPaginationInput
}

// UpdateCoffeeInput 部分更新咖啡豆，只套用 body 中出現的欄位
type UpdateCoffeeInput struct {
	CoffeeID int64 `path:"coffee_id" example:"1" doc:"咖啡豆ID"`
	RawBody  []byte
	Body     struct {
		RoastingFacility *string  `json:"roasting_facility,omitempty" example:"Bonanza Coffee" doc:"烘焙廠"`
		CoffeeName       *string  `json:"coffee_name,omitempty" example:"Gotiti" doc:"咖啡名稱"`
		SizeG            *int     `json:"size_g,omitempty" example:"250" doc:"包裝重量（公克）"`
		RoastDate        *string  `json:"roast_date,omitempty" format:"date" nullable:"true" example:"2024-03-01" doc:"烘焙日期"`
		OpenDate         *string  `json:"open_date,omitempty" format:"date" nullable:"true" example:"2024-03-10" doc:"開封日期"`
		Price            *float64 `json:"price,omitempty" nullable:"true" example:"14.5" doc:"價格"`
		CountryOfOrigin  *string  `json:"country_of_origin,omitempty" nullable:"true" example:"Ethiopia" doc:"產地"`
	}
}

// Changes 回傳要更新的欄位與值，null 只允許出現在可為空的欄位
func (in *UpdateCoffeeInput) Changes() (map[string]any, error) {
	keys, err := common.PatchKeys(in.RawBody)
	if err != nil {
		return nil, err
	}

	changes := make(map[string]any, len(keys))
	for key, isNull := range keys {
		if isNull {
			if !model.CoffeeNullableColumns[key] {
				return nil, fmt.Errorf("%s: %w", key, common.ErrNullField)
			}
			changes[key] = nil
			continue
		}

		switch key {
		case "roasting_facility":
			changes[key] = *in.Body.RoastingFacility
		case "coffee_name":
			changes[key] = *in.Body.CoffeeName
		case "size_g":
			changes[key] = *in.Body.SizeG
		case "roast_date":
			date, err := parseOptionalDate(key, in.Body.RoastDate)
			if err != nil {
				return nil, err
			}
			changes[key] = *date
		case "open_date":
			date, err := parseOptionalDate(key, in.Body.OpenDate)
			if err != nil {
				return nil, err
			}
			changes[key] = *date
		case "price":
			changes[key] = *in.Body.Price
		case "country_of_origin":
			changes[key] = *in.Body.CountryOfOrigin
		}
	}
	return changes, nil
}

// CoffeeResponse 咖啡豆回應
type CoffeeResponse struct {
	Body *model.Coffee
}

// CoffeesResponse 咖啡豆列表回應
type CoffeesResponse struct {
	Body []*model.Coffee
}

func parseOptionalDate(field string, value *string) (*model.Date, error) {
	if value == nil {
		return nil, nil
	}
	date, err := model.ParseDate(*value)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", field, err)
	}
	return &date, nil
}
