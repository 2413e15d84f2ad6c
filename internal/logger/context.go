package logger

import "context"

type contextKey string

const CycleIDKey contextKey = "cycle_id"
const RequestIDKey contextKey = "request_id"

func WithCycleID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, CycleIDKey, id)
}

func GetCycleID(ctx context.Context) string {
	if id, ok := ctx.Value(CycleIDKey).(string); ok {
		return id
	}
	return ""
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}

func GetRequestID(ctx context.Context) string {
	if id, ok := ctx.Value(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
