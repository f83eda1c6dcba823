package services

import "context"

type ctxKey int

const (
	ctxJobID ctxKey = iota
	ctxStage
	ctxRequestID
)

// WithJobID tags ctx with the scan job being processed.
func WithJobID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, ctxJobID, id)
}

// JobIDFromContext reports the scan job identifier stamped on ctx, if any.
func JobIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxJobID).(int64)
	return id, ok
}

// WithStage tags ctx with the workflow stage name.
func WithStage(ctx context.Context, stage string) context.Context {
	if stage == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxStage, stage)
}

// StageFromContext reports the workflow stage stamped on ctx, if any.
func StageFromContext(ctx context.Context) (string, bool) {
	stage, ok := ctx.Value(ctxStage).(string)
	return stage, ok && stage != ""
}

// WithRequestID tags ctx with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, ctxRequestID, id)
}

// RequestIDFromContext reports the correlation identifier stamped on ctx, if any.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxRequestID).(string)
	return id, ok && id != ""
}
