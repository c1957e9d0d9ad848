package utils

import (
	"time"
	_ "time/tzdata"
)

// StartOfDay t 在 loc 時區當天的零點
func StartOfDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	local := t.In(loc)
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
}

// PreviousDay 前一天的 [起, 迄) 區間，用於每日統計
func PreviousDay(t time.Time, loc *time.Location) (time.Time, time.Time) {
	end := StartOfDay(t, loc)
	start := StartOfDay(end.Add(-time.Hour), loc)
	return start, end
}

// FormatLocalDateTime 轉成 loc 時區的完整日期時間格式 (YYYY-MM-DD HH:mm:ss)
func FormatLocalDateTime(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format("2006-01-02 15:04:05")
}
