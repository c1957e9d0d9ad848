package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStartOfDay(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	tests := []struct {
		name string
		t    time.Time
		loc  *time.Location
		want time.Time
	}{
		{"UTC", time.Date(2024, 3, 10, 15, 4, 5, 0, time.UTC), time.UTC, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"台北已經過了午夜", time.Date(2024, 3, 9, 17, 0, 0, 0, time.UTC), taipei, time.Date(2024, 3, 9, 16, 0, 0, 0, time.UTC)},
		{"nil 時區視為 UTC", time.Date(2024, 3, 10, 23, 59, 0, 0, time.UTC), nil, time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := StartOfDay(tt.t, tt.loc)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestPreviousDay(t *testing.T) {
	berlin, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 夏令時間開始的隔天，前一天只有 23 小時
	start, end := PreviousDay(time.Date(2024, 4, 1, 0, 5, 0, 0, berlin), berlin)

	assert.Equal(t, time.Date(2024, 3, 31, 0, 0, 0, 0, berlin), start)
	assert.Equal(t, time.Date(2024, 4, 1, 0, 0, 0, 0, berlin), end)
	assert.Equal(t, 23*time.Hour, end.Sub(start))
}

func TestFormatLocalDateTime(t *testing.T) {
	taipei, err := time.LoadLocation("Asia/Taipei")
	require.NoError(t, err)

	got := FormatLocalDateTime(time.Date(2024, 3, 9, 16, 30, 0, 0, time.UTC), taipei)

	assert.Equal(t, "2024-03-10 00:30:00", got)
}
