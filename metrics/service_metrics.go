package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ServiceType 定義服務類型
type ServiceType string

const (
	ServiceTypeCoffee ServiceType = "coffee"
	ServiceTypeCup    ServiceType = "cup"
	ServiceTypeAction ServiceType = "action"
)

// OperationType 定義操作類型
type OperationType string

const (
	OperationCreate OperationType = "create"
	OperationList   OperationType = "list"
	OperationGet    OperationType = "get"
	OperationLatest OperationType = "latest"
	OperationUpdate OperationType = "update"
	OperationDelete OperationType = "delete"
	OperationDrink  OperationType = "drink"
	OperationCount  OperationType = "count"
)

// OperationStatus 定義操作狀態
type OperationStatus string

const (
	StatusSuccess  OperationStatus = "success"
	StatusNotFound OperationStatus = "not_found"
	StatusError    OperationStatus = "error"
)

// OperationSource 定義操作來源
type OperationSource string

const (
	SourceAPI     OperationSource = "api"
	SourceCounter OperationSource = "counter"
	SourceSystem  OperationSource = "system"
)

// DetermineSourceFromUserAgent 依 User-Agent 判斷請求是否來自咖啡計數器
func DetermineSourceFromUserAgent(userAgent string) OperationSource {
	ua := strings.ToLower(userAgent)
	switch {
	case ua == "":
		return SourceAPI
	case strings.Contains(ua, "coffee-counter"), strings.Contains(ua, "esp32"), strings.Contains(ua, "micropython"):
		return SourceCounter
	default:
		return SourceAPI
	}
}

var (
	serviceOperationsTotal   *prometheus.CounterVec
	serviceOperationDuration *prometheus.HistogramVec
	cupsCreatedTotal         *prometheus.CounterVec
	countCacheTotal          *prometheus.CounterVec
)

// InitServiceMetrics 初始化 Service 層 metrics
func InitServiceMetrics(registry prometheus.Registerer) error {
	serviceOperationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "service_operations_total",
			Help: "Total number of service layer operations",
		},
		[]string{"service", "operation", "status", "source"},
	)

	serviceOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "service_operation_duration_seconds",
			Help:    "Duration of service layer operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "operation", "source"},
	)

	cupsCreatedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_cups_created_total",
			Help: "Total number of cups recorded",
		},
		[]string{"operation"},
	)

	countCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffee_count_cache_total",
			Help: "Cup count cache lookups by result",
		},
		[]string{"result"},
	)

	for _, c := range []prometheus.Collector{serviceOperationsTotal, serviceOperationDuration, cupsCreatedTotal, countCacheTotal} {
		if err := registry.Register(c); err != nil {
			return err
		}
	}

	return nil
}

// RecordServiceOperation 記錄 Service 層操作 metrics
func RecordServiceOperation(service ServiceType, operation OperationType, status OperationStatus, source OperationSource, duration time.Duration) {
	if serviceOperationsTotal != nil && serviceOperationDuration != nil {
		serviceOperationsTotal.WithLabelValues(string(service), string(operation), string(status), string(source)).Inc()
		serviceOperationDuration.WithLabelValues(string(service), string(operation), string(source)).Observe(duration.Seconds())
	}
}

// RecordCupCreated 新增一杯的計數，operation 為 create 或 drink
func RecordCupCreated(operation OperationType) {
	if cupsCreatedTotal != nil {
		cupsCreatedTotal.WithLabelValues(string(operation)).Inc()
	}
}

// RecordCountCache 記錄杯數快取的結果：hit、miss、error
func RecordCountCache(result string) {
	if countCacheTotal != nil {
		countCacheTotal.WithLabelValues(result).Inc()
	}
}
