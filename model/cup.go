package model

import "time"

// CupTable 杯數紀錄資料表
const CupTable = "coffeelog_cup"

// Cup 一杯咖啡的紀錄
type Cup struct {
	ID       int64     `db:"id" json:"id" example:"1"`
	DateTime time.Time `db:"date_time" json:"date_time"`
	Username string    `db:"username" json:"username" example:"alice"`
	CoffeeID int64     `db:"coffee_id" json:"coffee_id" example:"1"`
	Coffee   *Coffee   `db:"coffee" json:"coffee"`
}

// UserCount 使用者的杯數統計
type UserCount struct {
	Username string `db:"username" json:"username"`
	Count    int64  `db:"count" json:"count"`
}
