package metrics

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetermineSourceFromUserAgent(t *testing.T) {
	tests := []struct {
		userAgent string
		want      OperationSource
	}{
		{"", SourceAPI},
		{"Mozilla/5.0", SourceAPI},
		{"coffee-counter/1.2", SourceCounter},
		{"ESP32HTTPClient", SourceCounter},
		{"MicroPython urequests", SourceCounter},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, DetermineSourceFromUserAgent(tt.userAgent), tt.userAgent)
	}
}

func TestSourceFromContext(t *testing.T) {
	assert.Equal(t, SourceAPI, SourceFromContext(context.Background()))
	assert.Equal(t, SourceSystem, SourceFromContext(WithSource(context.Background(), SourceSystem)))
}

func TestServiceMetrics(t *testing.T) {
	registry := prometheus.NewRegistry()
	require.NoError(t, InitServiceMetrics(registry))

	RecordCupCreated(OperationDrink)
	RecordCupCreated(OperationDrink)
	RecordCountCache("hit")

	assert.Equal(t, 2.0, testutil.ToFloat64(cupsCreatedTotal.WithLabelValues(string(OperationDrink))))
	assert.Equal(t, 1.0, testutil.ToFloat64(countCacheTotal.WithLabelValues("hit")))

	// 同一個 registry 不能重複註冊
	assert.Error(t, InitServiceMetrics(registry))
}
