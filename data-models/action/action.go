package action

// DrinkInput 喝一杯：以最新的咖啡豆替使用者新增一筆紀錄
type DrinkInput struct {
	Body struct {
		Username string `json:"username" minLength:"1" example:"alice" doc:"使用者名稱"`
	}
}

// UsernameInput 依使用者統計
type UsernameInput struct {
	Username string `path:"username" example:"alice" doc:"使用者名稱"`
}
