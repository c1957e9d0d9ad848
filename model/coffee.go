package model

// CoffeeTable 咖啡豆資料表
const CoffeeTable = "coffeelog_coffee"

// Coffee 一包咖啡豆
type Coffee struct {
	ID               int64    `db:"id" json:"id" example:"1"`
	RoastingFacility string   `db:"roasting_facility" json:"roasting_facility" example:"Bonanza Coffee"`
	CoffeeName       string   `db:"coffee_name" json:"coffee_name" example:"Gotiti"`
	SizeG            int      `db:"size_g" json:"size_g" example:"250"`
	RoastDate        *Date    `db:"roast_date" json:"roast_date"`
	OpenDate         *Date    `db:"open_date" json:"open_date"`
	Price            *float64 `db:"price" json:"price" example:"14.5"`
	CountryOfOrigin  *string  `db:"country_of_origin" json:"country_of_origin" example:"Ethiopia"`
}

// CoffeeColumns 查詢咖啡時使用的欄位順序
var CoffeeColumns = []string{
	"id",
	"roasting_facility",
	"coffee_name",
	"size_g",
	"roast_date",
	"open_date",
	"price",
	"country_of_origin",
}

// CoffeeNullableColumns 允許 PATCH 設為 null 的欄位
var CoffeeNullableColumns = map[string]bool{
	"roast_date":        true,
	"open_date":         true,
	"price":             true,
	"country_of_origin": true,
}
