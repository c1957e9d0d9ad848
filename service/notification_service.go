package service

import (
	"context"
	"sync"
	"time"

	"coffee-backend/infra"

	"github.com/rs/zerolog"
)

// NotificationService 以 worker pool 非同步發送杯數事件，避免拖慢 API 回應
type NotificationService struct {
	logger       zerolog.Logger
	eventManager *infra.RedisEventManager
	rabbitMQ     *infra.RabbitMQ
	hub          *EventHub

	// Worker Pool
	notificationQueue chan *infra.CupEvent
	workers           int
	stopCh            chan struct{}
	wg                sync.WaitGroup
	started           bool
	mu                sync.RWMutex
}

// NewNotificationService 創建新的通知服務，eventManager 與 rabbitMQ 皆可為 nil
func NewNotificationService(
	logger zerolog.Logger,
	eventManager *infra.RedisEventManager,
	rabbitMQ *infra.RabbitMQ,
	hub *EventHub,
	workers int,
	queueSize int,
) *NotificationService {
	if workers <= 0 {
		workers = 3 // 預設 3 個 worker
	}
	if queueSize <= 0 {
		queueSize = 100 // 預設隊列大小 100
	}

	return &NotificationService{
		logger:            logger.With().Str("module", "notification_service").Logger(),
		eventManager:      eventManager,
		rabbitMQ:          rabbitMQ,
		hub:               hub,
		notificationQueue: make(chan *infra.CupEvent, queueSize),
		workers:           workers,
		stopCh:            make(chan struct{}),
	}
}

// Start 啟動通知服務的 worker pool
func (ns *NotificationService) Start() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if ns.started {
		return
	}

	for i := 0; i < ns.workers; i++ {
		ns.wg.Add(1)
		go ns.worker(i)
	}

	ns.started = true
	ns.logger.Info().Int("workers", ns.workers).Msg("NotificationService worker pool 已啟動")
}

// Stop 停止通知服務，已在隊列中的事件會先送完
func (ns *NotificationService) Stop() {
	ns.mu.Lock()
	defer ns.mu.Unlock()

	if !ns.started {
		return
	}

	close(ns.stopCh)
	ns.wg.Wait()

	ns.started = false
	ns.logger.Info().Msg("NotificationService 已停止")
}

// Publish 非阻塞地將事件放入隊列，隊列已滿時丟棄並警告
func (ns *NotificationService) Publish(event *infra.CupEvent) {
	if ns == nil || event == nil {
		return
	}

	select {
	case ns.notificationQueue <- event:
	default:
		ns.logger.Warn().
			Str("type", string(event.Type)).
			Int64("cup_id", event.CupID).
			Int("queue_size", cap(ns.notificationQueue)).
			Msg("通知隊列已滿，丟棄事件")
	}
}

// QueueLength 目前隊列中等待的事件數
func (ns *NotificationService) QueueLength() int {
	return len(ns.notificationQueue)
}

// worker 處理通知任務的工作者
func (ns *NotificationService) worker(id int) {
	defer ns.wg.Done()

	ns.logger.Debug().Int("worker_id", id).Msg("NotificationService worker 已啟動")

	for {
		select {
		case event := <-ns.notificationQueue:
			ns.processEvent(id, event)
		case <-ns.stopCh:
			ns.drain(id)
			ns.logger.Debug().Int("worker_id", id).Msg("NotificationService worker 正在停止")
			return
		}
	}
}

func (ns *NotificationService) drain(id int) {
	for {
		select {
		case event := <-ns.notificationQueue:
			ns.processEvent(id, event)
		default:
			return
		}
	}
}

// processEvent 處理單個事件：Redis pub/sub（或本機分送）與 RabbitMQ
func (ns *NotificationService) processEvent(workerID int, event *infra.CupEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second) // 使用新 context 避免原請求 context 被取消
	defer cancel()

	startTime := time.Now()
	defer func() {
		ns.logger.Debug().
			Int("worker_id", workerID).
			Str("type", string(event.Type)).
			Int64("cup_id", event.CupID).
			Dur("duration", time.Since(startTime)).
			Msg("通知任務處理完成")
	}()

	ns.broadcast(ctx, event)
	ns.enqueue(event)
}

func (ns *NotificationService) broadcast(ctx context.Context, event *infra.CupEvent) {
	if ns.eventManager != nil {
		if err := ns.eventManager.PublishCupEvent(ctx, event); err == nil {
			return
		}
		ns.logger.Warn().Str("type", string(event.Type)).Msg("Redis 發布失敗，改為本機分送")
	}
	if ns.hub != nil {
		ns.hub.Dispatch(event)
	}
}

func (ns *NotificationService) enqueue(event *infra.CupEvent) {
	if !ns.rabbitMQ.IsHealthy() {
		return
	}
	queue := infra.QueueForEvent(event.Type)
	if err := ns.rabbitMQ.PublishMessage(queue, []byte(event.ToJSON())); err != nil {
		ns.logger.Error().Err(err).
			Str("queue", queue.String()).
			Str("type", string(event.Type)).
			Msg("發送 RabbitMQ 訊息失敗")
	}
}
