package infra

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// CoffeeEventsChannel 所有杯數事件共用的 pub/sub 頻道
const CoffeeEventsChannel = "coffee:events"

// CupEventType 杯數事件類型
type CupEventType string

const (
	CupEventCreated      CupEventType = "cup_created"
	CupEventUpdated      CupEventType = "cup_updated"
	CupEventDeleted      CupEventType = "cup_deleted"
	CupEventDrink        CupEventType = "drink"
	CupEventDailySummary CupEventType = "daily_summary"
)

// CupEvent 杯數變更事件
type CupEvent struct {
	Type      CupEventType     `json:"type"`
	CupID     int64            `json:"cup_id,omitempty"`
	CoffeeID  int64            `json:"coffee_id,omitempty"`
	Username  string           `json:"username,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Counts    map[string]int64 `json:"counts,omitempty"` // 每日統計使用，key 為使用者名稱
}

// ToJSON 轉換為 JSON 字串
func (e *CupEvent) ToJSON() string {
	data, _ := json.Marshal(e)
	return string(data)
}

// ParseCupEvent 解析杯數事件
func ParseCupEvent(payload string) (*CupEvent, error) {
	var event CupEvent
	err := json.Unmarshal([]byte(payload), &event)
	return &event, err
}

// RedisEventManager Redis 事件管理器
type RedisEventManager struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisEventManager 建立 Redis 事件管理器
func NewRedisEventManager(client *redis.Client, logger zerolog.Logger) *RedisEventManager {
	return &RedisEventManager{
		client: client,
		logger: logger.With().Str("module", "redis_events").Logger(),
	}
}

// PublishCupEvent 發布杯數事件
func (rem *RedisEventManager) PublishCupEvent(ctx context.Context, event *CupEvent) error {
	err := rem.client.Publish(ctx, CoffeeEventsChannel, event.ToJSON()).Err()
	if err != nil {
		rem.logger.Error().Err(err).
			Str("channel", CoffeeEventsChannel).
			Str("type", string(event.Type)).
			Int64("cup_id", event.CupID).
			Msg("發布杯數事件失敗")
		return err
	}

	rem.logger.Debug().
		Str("channel", CoffeeEventsChannel).
		Str("type", string(event.Type)).
		Int64("cup_id", event.CupID).
		Msg("杯數事件已發布")
	return nil
}

// SubscribeCupEvents 訂閱杯數事件，直到 ctx 取消為止
func (rem *RedisEventManager) SubscribeCupEvents(ctx context.Context, handler func(*CupEvent)) error {
	pubsub := rem.client.Subscribe(ctx, CoffeeEventsChannel)
	defer pubsub.Close()

	// 等待訂閱確認，避免遺漏第一筆訊息
	if _, err := pubsub.Receive(ctx); err != nil {
		return err
	}

	rem.logger.Info().Str("channel", CoffeeEventsChannel).Msg("開始監聽杯數事件")

	ch := pubsub.Channel()
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			event, err := ParseCupEvent(msg.Payload)
			if err != nil {
				rem.logger.Warn().Err(err).Str("payload", msg.Payload).Msg("無法解析杯數事件")
				continue
			}
			handler(event)
		case <-ctx.Done():
			rem.logger.Info().Msg("停止監聽杯數事件")
			return nil
		}
	}
}
