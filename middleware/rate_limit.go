package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"
)

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimiter 依客戶端 IP 限制寫入請求（POST/PATCH/DELETE），讀取不受限
type RateLimiter struct {
	logger   zerolog.Logger
	limiters map[string]*limiterEntry
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
}

// NewRateLimiter requestsPerSecond <= 0 時回傳 nil，Handler 直接放行
func NewRateLimiter(requestsPerSecond, burst int, logger zerolog.Logger) *RateLimiter {
	if requestsPerSecond <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = requestsPerSecond
	}
	return &RateLimiter{
		logger:   logger.With().Str("module", "rate_limiter").Logger(),
		limiters: make(map[string]*limiterEntry),
		rate:     rate.Limit(requestsPerSecond),
		burst:    burst,
	}
}

func (rl *RateLimiter) getLimiter(key string) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	entry, exists := rl.limiters[key]
	if !exists {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.limiters[key] = entry
	}
	entry.lastSeen = time.Now()
	return entry.limiter
}

// Allow 該 key 是否還有額度
func (rl *RateLimiter) Allow(key string) bool {
	return rl.getLimiter(key).Allow()
}

// Handler chi 中介軟體
func (rl *RateLimiter) Handler(next http.Handler) http.Handler {
	if rl == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !isMutating(r.Method) {
			next.ServeHTTP(w, r)
			return
		}

		key := clientKey(r.RemoteAddr)
		if !rl.Allow(key) {
			rateLimitedTotal.WithLabelValues(r.Method).Inc()
			rl.logger.Warn().
				Str("client", key).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("請求過於頻繁")

			w.Header().Set("Content-Type", "application/problem+json")
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"title":"Too Many Requests","status":429,"detail":"Rate limit exceeded."}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Cleanup 移除超過 idle 未使用的 limiter
func (rl *RateLimiter) Cleanup(idle time.Duration) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	removed := 0
	cutoff := time.Now().Add(-idle)
	for key, entry := range rl.limiters {
		if entry.lastSeen.Before(cutoff) {
			delete(rl.limiters, key)
			removed++
		}
	}
	return removed
}

// StartCleanup 定期清理，直到 stop 關閉
func (rl *RateLimiter) StartCleanup(interval time.Duration, stop <-chan struct{}) {
	if rl == nil {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if removed := rl.Cleanup(10 * time.Minute); removed > 0 {
					rl.logger.Debug().Int("removed", removed).Msg("清理閒置的限流器")
				}
			case <-stop:
				return
			}
		}
	}()
}

func isMutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	default:
		return false
	}
}

func clientKey(remoteAddr string) string {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return remoteAddr
	}
	return host
}
