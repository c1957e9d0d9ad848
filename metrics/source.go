package metrics

import "context"

type sourceKey struct{}

// WithSource 將操作來源放進 context，service 層記錄 metrics 時取用
func WithSource(ctx context.Context, source OperationSource) context.Context {
	return context.WithValue(ctx, sourceKey{}, source)
}

// SourceFromContext 取出操作來源，未設定時視為 API
func SourceFromContext(ctx context.Context) OperationSource {
	if source, ok := ctx.Value(sourceKey{}).(OperationSource); ok {
		return source
	}
	return SourceAPI
}
