package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"coffee-backend/infra"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSubscriber struct {
	mu     sync.Mutex
	events []*infra.CupEvent
}

func (s *recordingSubscriber) HandleCupEvent(event *infra.CupEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

func (s *recordingSubscriber) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestEventHub_Dispatch(t *testing.T) {
	hub := NewEventHub(testLogger, nil)
	sse := &recordingSubscriber{}
	ws := &recordingSubscriber{}
	hub.Subscribe("sse", sse)
	hub.Subscribe("websocket", ws)

	hub.Dispatch(&infra.CupEvent{Type: infra.CupEventCreated, CupID: 1})
	hub.Unsubscribe("websocket")
	hub.Dispatch(&infra.CupEvent{Type: infra.CupEventDeleted, CupID: 1})

	assert.Equal(t, 2, sse.count())
	assert.Equal(t, 1, ws.count())
	assert.False(t, hub.UsesRedis())
}

func TestEventHub_RunWithoutRedisReturns(t *testing.T) {
	hub := NewEventHub(testLogger, nil)

	done := make(chan struct{})
	go func() {
		hub.Run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run 應該在沒有 Redis 時立即返回")
	}
}

func TestNotificationService_DeliversLocallyWithoutRedis(t *testing.T) {
	hub := NewEventHub(testLogger, nil)
	sub := &recordingSubscriber{}
	hub.Subscribe("test", sub)

	ns := NewNotificationService(testLogger, nil, nil, hub, 2, 10)
	ns.Start()

	for i := 0; i < 5; i++ {
		ns.Publish(&infra.CupEvent{Type: infra.CupEventDrink, CupID: int64(i + 1)})
	}
	ns.Stop()

	assert.Equal(t, 5, sub.count())
	assert.Zero(t, ns.QueueLength())
}

func TestNotificationService_DropsWhenQueueFull(t *testing.T) {
	hub := NewEventHub(testLogger, nil)
	sub := &recordingSubscriber{}
	hub.Subscribe("test", sub)

	// 尚未啟動 worker，隊列只能容納 2 筆
	ns := NewNotificationService(testLogger, nil, nil, hub, 1, 2)
	for i := 0; i < 5; i++ {
		ns.Publish(&infra.CupEvent{Type: infra.CupEventCreated, CupID: int64(i + 1)})
	}
	require.Equal(t, 2, ns.QueueLength())

	ns.Start()
	ns.Stop()

	assert.Equal(t, 2, sub.count())
}

func TestNotificationService_NilIsSafe(t *testing.T) {
	var ns *NotificationService
	assert.NotPanics(t, func() {
		ns.Publish(&infra.CupEvent{Type: infra.CupEventCreated})
	})
}

func TestCountCacheService_DisabledWithoutRedis(t *testing.T) {
	cache := NewCountCacheService(testLogger, nil, 0)
	ctx := context.Background()

	assert.NotPanics(t, func() {
		cache.Set(ctx, 0, "total", "", 3)
		cache.Invalidate(ctx)
	})
	_, gen, ok := cache.Get(ctx, "total", "")
	assert.False(t, ok)
	assert.Equal(t, noGeneration, gen)

	var nilCache *CountCacheService
	_, _, ok = nilCache.Get(ctx, "total", "alice")
	assert.False(t, ok)
	assert.NotPanics(t, func() { nilCache.Invalidate(ctx) })
}

func TestCountKey(t *testing.T) {
	assert.Equal(t, "coffee:count:3:total:*", CountKey(3, "total", ""))
	assert.Equal(t, "coffee:count:0:today:2024-03-10:user:alice", CountKey(0, "today:2024-03-10", "alice"))
}
