package service

import (
	"context"
	"sync"
	"time"

	"coffee-backend/infra"
	"coffee-backend/service/interfaces"

	"github.com/rs/zerolog"
)

// EventHub 將杯數事件分送給所有訂閱者（SSE、WebSocket）。
// 有 Redis 時事件經由 pub/sub 進來，多個實例都能收到。
type EventHub struct {
	logger       zerolog.Logger
	eventManager *infra.RedisEventManager

	subscribers   map[string]interfaces.CupEventSubscriber
	subscribersMu sync.RWMutex
}

func NewEventHub(logger zerolog.Logger, eventManager *infra.RedisEventManager) *EventHub {
	return &EventHub{
		logger:       logger.With().Str("module", "event_hub").Logger(),
		eventManager: eventManager,
		subscribers:  make(map[string]interfaces.CupEventSubscriber),
	}
}

// Subscribe 註冊下游，name 重複時覆蓋
func (h *EventHub) Subscribe(name string, subscriber interfaces.CupEventSubscriber) {
	h.subscribersMu.Lock()
	defer h.subscribersMu.Unlock()
	h.subscribers[name] = subscriber
}

// Unsubscribe 移除下游
func (h *EventHub) Unsubscribe(name string) {
	h.subscribersMu.Lock()
	defer h.subscribersMu.Unlock()
	delete(h.subscribers, name)
}

// Dispatch 將事件交給所有下游，下游自行保證不阻塞
func (h *EventHub) Dispatch(event *infra.CupEvent) {
	h.subscribersMu.RLock()
	subscribers := make([]interfaces.CupEventSubscriber, 0, len(h.subscribers))
	for _, sub := range h.subscribers {
		subscribers = append(subscribers, sub)
	}
	h.subscribersMu.RUnlock()

	for _, sub := range subscribers {
		sub.HandleCupEvent(event)
	}
}

// UsesRedis 事件是否經由 Redis pub/sub 傳遞
func (h *EventHub) UsesRedis() bool {
	return h.eventManager != nil
}

// Run 監聽 Redis 頻道直到 ctx 取消，連線中斷時等待後重試
func (h *EventHub) Run(ctx context.Context) {
	if h.eventManager == nil {
		h.logger.Info().Msg("未設定 Redis，事件只在本機分送")
		return
	}

	for {
		err := h.eventManager.SubscribeCupEvents(ctx, h.Dispatch)
		if ctx.Err() != nil {
			return
		}
		if err != nil {
			h.logger.Error().Err(err).Msg("訂閱杯數事件失敗，5 秒後重試")
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(5 * time.Second):
		}
	}
}
