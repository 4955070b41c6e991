package logging

import (
	"context"
	"regexp"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ContextFields extracts correlation data from context.
func ContextFields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 6)

	if span := trace.SpanFromContext(ctx); span.SpanContext().IsValid() {
		sc := span.SpanContext()
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
		if sc.IsSampled() {
			fields = append(fields, zap.Bool("trace_sampled", true))
		}
	}

	if userID := UserIDFromContext(ctx); userID != "" {
		fields = append(fields, zap.String("user.id", userID))
	}
	if momentID := MomentIDFromContext(ctx); momentID != "" {
		fields = append(fields, zap.String("moment.id", momentID))
	}
	if requestID := RequestIDFromContext(ctx); requestID != "" {
		fields = append(fields, zap.String("request.id", requestID))
	}

	return fields
}

type userCtxKey struct{}
type momentCtxKey struct{}
type requestCtxKey struct{}

// idPattern bounds correlation ids to 128 characters of alphanumerics,
// hyphen and underscore. Ids come from request headers, so anything else is
// dropped rather than written into log lines.
var idPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,128}$`)

func withID(ctx context.Context, key any, id string) context.Context {
	if !idPattern.MatchString(id) {
		return ctx
	}
	return context.WithValue(ctx, key, id)
}

func idFrom(ctx context.Context, key any) string {
	if s, ok := ctx.Value(key).(string); ok {
		return s
	}
	return ""
}

// WithUserID adds the acting user's id to context. Invalid ids are ignored.
func WithUserID(ctx context.Context, userID string) context.Context {
	return withID(ctx, userCtxKey{}, userID)
}

// UserIDFromContext extracts the user id from context.
func UserIDFromContext(ctx context.Context) string {
	return idFrom(ctx, userCtxKey{})
}

// WithMomentID adds the moment being processed to context. Invalid ids are ignored.
func WithMomentID(ctx context.Context, momentID string) context.Context {
	return withID(ctx, momentCtxKey{}, momentID)
}

// MomentIDFromContext extracts the moment id from context.
func MomentIDFromContext(ctx context.Context) string {
	return idFrom(ctx, momentCtxKey{})
}

// WithRequestID adds request ID to context. Invalid ids are ignored.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withID(ctx, requestCtxKey{}, requestID)
}

// RequestIDFromContext extracts request ID from context.
func RequestIDFromContext(ctx context.Context) string {
	return idFrom(ctx, requestCtxKey{})
}
