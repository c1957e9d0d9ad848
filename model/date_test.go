package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDate_JSON(t *testing.T) {
	d := NewDate(2024, time.March, 1)

	data, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, `"2024-03-01"`, string(data))

	var parsed Date
	require.NoError(t, json.Unmarshal([]byte(`"2024-03-10"`), &parsed))
	assert.Equal(t, "2024-03-10", parsed.String())

	assert.Error(t, json.Unmarshal([]byte(`"10/03/2024"`), &parsed))
}

func TestDate_Scan(t *testing.T) {
	tests := []struct {
		name string
		src  any
		want string
	}{
		{"postgres date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.FixedZone("", 3600)), "2024-03-01"},
		{"sqlite 字串", "2024-03-02", "2024-03-02"},
		{"sqlite 含時間", []byte("2024-03-03T00:00:00Z"), "2024-03-03"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var d Date
			require.NoError(t, d.Scan(tt.src))
			assert.Equal(t, tt.want, d.String())
		})
	}

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestDate_Value(t *testing.T) {
	v, err := NewDate(2024, time.March, 1).Value()
	require.NoError(t, err)
	assert.Equal(t, "2024-03-01", v)
}
