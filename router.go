package main

import (
	appMiddleware "coffee-backend/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// corsOptions 允許所有來源存取 API
func corsOptions() cors.Options {
	return cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300, // Maximum value not ignored by any of major browsers
	}
}

// newRouter 建立套用共用中介軟體的 chi router。
// 服務部署在反向代理之後，RealIP 必須在限流之前，讓每個客戶端有各自的額度。
func newRouter(rateLimiter *appMiddleware.RateLimiter) *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.Heartbeat("/ping"))
	router.Use(cors.Handler(corsOptions()))
	router.Use(rateLimiter.Handler)
	return router
}
