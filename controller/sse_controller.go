package controller

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"coffee-backend/infra"
	"coffee-backend/middleware"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// SSEController 以 Server-Sent Events 推送杯數事件
type SSEController struct {
	logger    zerolog.Logger
	clients   map[string]*SSEClient
	clientsMu sync.RWMutex
}

// SSEClient 代表一個SSE連接
type SSEClient struct {
	ID        string
	Events    chan SSEEvent
	Done      chan struct{}
	closeOnce sync.Once
}

// SSEEvent SSE事件結構
type SSEEvent struct {
	Event string
	Data  any
}

func NewSSEController(logger zerolog.Logger) *SSEController {
	return &SSEController{
		logger:  logger.With().Str("module", "sse_controller").Logger(),
		clients: make(map[string]*SSEClient),
	}
}

// handleSSE 處理 SSE 連接
func (sse *SSEController) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		sse.logger.Error().Msg("Streaming unsupported")
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	client := &SSEClient{
		ID:     uuid.NewString(),
		Events: make(chan SSEEvent, 100),
		Done:   make(chan struct{}),
	}
	sse.registerClient(client)
	defer sse.unregisterClient(client)

	if !sse.write(w, flusher, SSEEvent{
		Event: "connected",
		Data: map[string]any{
			"client_id": client.ID,
			"timestamp": time.Now().UTC(),
		},
	}) {
		return
	}

	sse.logger.Debug().Str("client_id", client.ID).Msg("SSE 客戶端已連接")

	keepAlive := time.NewTicker(30 * time.Second)
	defer keepAlive.Stop()

	for {
		select {
		case event := <-client.Events:
			if !sse.write(w, flusher, event) {
				return
			}
		case <-keepAlive.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
			flusher.Flush()
		case <-client.Done:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func (sse *SSEController) registerClient(client *SSEClient) {
	sse.clientsMu.Lock()
	sse.clients[client.ID] = client
	count := len(sse.clients)
	sse.clientsMu.Unlock()

	middleware.SetEventStreamConnections("sse", count)
}

func (sse *SSEController) unregisterClient(client *SSEClient) {
	sse.clientsMu.Lock()
	delete(sse.clients, client.ID)
	count := len(sse.clients)
	sse.clientsMu.Unlock()

	client.closeOnce.Do(func() { close(client.Done) })
	middleware.SetEventStreamConnections("sse", count)
	sse.logger.Debug().Str("client_id", client.ID).Msg("SSE 客戶端已斷開連接")
}

// write 輸出一筆 SSE 訊息，失敗代表連線已中斷
func (sse *SSEController) write(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) bool {
	data, err := json.Marshal(event.Data)
	if err != nil {
		sse.logger.Error().Err(err).Msg("序列化事件資料失敗")
		return false
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Event, data); err != nil {
		sse.logger.Debug().Err(err).Msg("發送 SSE 事件失敗")
		return false
	}
	flusher.Flush()
	return true
}

// HandleCupEvent 廣播杯數事件，隊列已滿的客戶端直接跳過
func (sse *SSEController) HandleCupEvent(cupEvent *infra.CupEvent) {
	event := SSEEvent{Event: string(cupEvent.Type), Data: cupEvent}

	sse.clientsMu.RLock()
	defer sse.clientsMu.RUnlock()

	for _, client := range sse.clients {
		select {
		case client.Events <- event:
		default:
			middleware.RecordEventStreamDropped("sse")
			sse.logger.Warn().Str("client_id", client.ID).Msg("跳過客戶端，事件隊列已滿")
		}
	}
}

// ClientCount 目前連線數
func (sse *SSEController) ClientCount() int {
	sse.clientsMu.RLock()
	defer sse.clientsMu.RUnlock()
	return len(sse.clients)
}

// GetSSEHandler 返回 SSE 處理函數，用於在 Chi 路由器上註冊
func (sse *SSEController) GetSSEHandler() http.HandlerFunc {
	return sse.handleSSE
}

// CloseAll 結束所有 SSE 連線，讓 server.Shutdown 不必等待逾時
func (sse *SSEController) CloseAll() {
	sse.clientsMu.RLock()
	defer sse.clientsMu.RUnlock()

	for _, client := range sse.clients {
		client.closeOnce.Do(func() { close(client.Done) })
	}
}
