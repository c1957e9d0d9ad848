package common

const (
	// DefaultLimit 未指定 limit 時回傳的筆數
	DefaultLimit = 100
	// MaxLimit 單次查詢允許的最大筆數
	MaxLimit = 100
)

// PaginationInput 分頁輸入介面，定義分頁參數的獲取方法
type PaginationInput interface {
	GetOffset() int
	GetLimit() int
}

// OffsetPaginationInput offset/limit 分頁，兩個參數皆為選填
type OffsetPaginationInput struct {
	Offset int `query:"offset" default:"0" minimum:"0" example:"0" doc:"跳過的筆數"`
	Limit  int `query:"limit" default:"100" minimum:"0" maximum:"100" example:"100" doc:"回傳的最大筆數（上限 100）"`
}

// GetOffset 實現 PaginationInput 介面
func (p *OffsetPaginationInput) GetOffset() int {
	if p.Offset < 0 {
		return 0
	}
	return p.Offset
}

// GetLimit 實現 PaginationInput 介面
func (p *OffsetPaginationInput) GetLimit() int {
	if p.Limit < 0 {
		return DefaultLimit
	}
	if p.Limit > MaxLimit {
		return MaxLimit
	}
	return p.Limit
}
