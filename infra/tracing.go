package infra

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName = "coffee-backend"
)

// 全局 tracer 實例
var globalTracer trace.Tracer

// InitTracer 初始化全局 tracer
func InitTracer() {
	globalTracer = otel.Tracer(ServiceName)
}

// GetTracer 獲取全局 tracer
func GetTracer() trace.Tracer {
	if globalTracer == nil {
		InitTracer()
	}
	return globalTracer
}

// StartSpan 開始一個新的 span
func StartSpan(ctx context.Context, operationName string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	ctx, span := GetTracer().Start(ctx, operationName)
	if len(attrs) > 0 {
		span.SetAttributes(attrs...)
	}
	return ctx, span
}

// AddEvent 向 span 添加事件
func AddEvent(span trace.Span, eventName string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.AddEvent(eventName, trace.WithAttributes(attrs...))
	}
}

// RecordError 記錄錯誤到 span
func RecordError(span trace.Span, err error, description string, attrs ...attribute.KeyValue) {
	if span != nil {
		span.RecordError(err)
		if description != "" {
			span.SetStatus(codes.Error, description)
		}
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
}

// MarkSuccess 標記 span 為成功
func MarkSuccess(span trace.Span, attrs ...attribute.KeyValue) {
	if span != nil {
		span.SetStatus(codes.Ok, "")
		if len(attrs) > 0 {
			span.SetAttributes(attrs...)
		}
	}
}

// StartServiceSpan service 層專用，span 名稱為 <service>_<operation>
func StartServiceSpan(ctx context.Context, service, operation string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	baseAttrs := []attribute.KeyValue{
		AttrOperation(operation),
	}
	baseAttrs = append(baseAttrs, attrs...)
	return StartSpan(ctx, service+"_"+operation, baseAttrs...)
}

// EndServiceSpan 依 err 設定 span 狀態後結束
func EndServiceSpan(span trace.Span, err error) {
	if err != nil {
		RecordError(span, err, "operation failed",
			attribute.Bool("operation.success", false),
		)
	} else {
		MarkSuccess(span, attribute.Bool("operation.success", true))
	}
	span.End()
}

func AttrOperation(operation string) attribute.KeyValue {
	return attribute.String("service.operation", operation)
}

func AttrCoffeeID(id int64) attribute.KeyValue {
	return attribute.Int64("coffee.id", id)
}

func AttrCupID(id int64) attribute.KeyValue {
	return attribute.Int64("cup.id", id)
}

func AttrUsername(username string) attribute.KeyValue {
	return attribute.String("cup.username", username)
}
