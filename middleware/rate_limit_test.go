package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRateLimiter_OnlyLimitsWrites(t *testing.T) {
	rl := NewRateLimiter(1, 2, zerolog.Nop())
	require.NotNil(t, rl)

	handler := rl.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	send := func(method string) int {
		req := httptest.NewRequest(method, "/actions/drink", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, send(http.MethodPost))
	assert.Equal(t, http.StatusOK, send(http.MethodPost))
	assert.Equal(t, http.StatusTooManyRequests, send(http.MethodPost))

	// 讀取不受限
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, send(http.MethodGet))
	}
}

func TestRateLimiter_SeparatesClients(t *testing.T) {
	rl := NewRateLimiter(1, 1, zerolog.Nop())

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.2"))
}

func TestRateLimiter_Disabled(t *testing.T) {
	rl := NewRateLimiter(0, 0, zerolog.Nop())
	assert.Nil(t, rl)

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	rec := httptest.NewRecorder()
	rl.Handler(next).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/cups/1", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestRateLimiter_Cleanup(t *testing.T) {
	rl := NewRateLimiter(5, 5, zerolog.Nop())
	rl.Allow("10.0.0.1")

	assert.Equal(t, 0, rl.Cleanup(time.Hour))
	assert.Equal(t, 1, rl.Cleanup(-time.Second))
}

func TestClientKey(t *testing.T) {
	assert.Equal(t, "192.168.1.2", clientKey("192.168.1.2:443"))
	assert.Equal(t, "::1", clientKey("[::1]:8000"))
	assert.Equal(t, "unix", clientKey("unix"))
}
