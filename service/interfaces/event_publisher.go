package interfaces

import "coffee-backend/infra"

// CupEventPublisher 杯數事件發布介面
type CupEventPublisher interface {
	Publish(event *infra.CupEvent)
}

// CupEventSubscriber 接收杯數事件的下游（SSE、WebSocket）
type CupEventSubscriber interface {
	HandleCupEvent(event *infra.CupEvent)
}
