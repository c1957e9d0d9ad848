package infra

// QueueName 定義 RabbitMQ 隊列名稱的枚舉類型
type QueueName string

const (
	// QueueNameCups 杯數事件隊列，供下游系統消費
	QueueNameCups QueueName = "coffee_cups_queue"

	// QueueNameDailySummary 每日統計隊列
	QueueNameDailySummary QueueName = "coffee_daily_summary_queue"
)

// String 實現 Stringer 接口，返回隊列名稱字符串
func (qn QueueName) String() string {
	return string(qn)
}

// GetAllQueueNames 返回所有定義的隊列名稱
func GetAllQueueNames() []QueueName {
	return []QueueName{
		QueueNameCups,
		QueueNameDailySummary,
	}
}

// QueueForEvent 依事件類型選擇隊列
func QueueForEvent(eventType CupEventType) QueueName {
	if eventType == CupEventDailySummary {
		return QueueNameDailySummary
	}
	return QueueNameCups
}
