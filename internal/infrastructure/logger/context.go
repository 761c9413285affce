package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// requestScope is what the middleware learns about a request. It travels in
// the context as one value so the logger and its fields stay in step.
type requestScope struct {
	logger    *zap.Logger
	requestID string
	actor     string
}

type scopeKey struct{}

func scopeOf(ctx context.Context) requestScope {
	s, _ := ctx.Value(scopeKey{}).(requestScope)
	return s
}

func withScope(ctx context.Context, s requestScope) context.Context {
	return context.WithValue(ctx, scopeKey{}, s)
}

// WithContext stores logger in ctx, keeping any request ID and actor
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	s := scopeOf(ctx)
	s.logger = logger
	return withScope(ctx, s)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l := scopeOf(ctx).logger; l != nil {
		return l
	}
	return zap.NewNop()
}

func WithRequestID(ctx context.Context, logger *zap.Logger, requestID string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.requestID = requestID
	s.logger = logger.With(zap.String("request_id", requestID))
	return withScope(ctx, s), s.logger
}

// WithActor records the acting user taken from the X-User-ID header
func WithActor(ctx context.Context, logger *zap.Logger, actor string) (context.Context, *zap.Logger) {
	s := scopeOf(ctx)
	s.actor = actor
	s.logger = logger.With(zap.String("actor", actor))
	return withScope(ctx, s), s.logger
}

// WithDocument narrows the context logger to one document
func WithDocument(ctx context.Context, docType, docID string) (context.Context, *zap.Logger) {
	l := FromContext(ctx).With(
		zap.String("document_type", docType),
		zap.String("document_id", docID),
	)
	return WithContext(ctx, l), l
}

func GetRequestID(ctx context.Context) string { return scopeOf(ctx).requestID }

func GetActor(ctx context.Context) string { return scopeOf(ctx).actor }

// WithTraceContext adds trace_id and span_id when ctx carries a valid span
func WithTraceContext(ctx context.Context, logger *zap.Logger) *zap.Logger {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return logger
	}
	return logger.With(
		zap.String("trace_id", sc.TraceID().String()),
		zap.String("span_id", sc.SpanID().String()),
	)
}

// ContextLogger writes through a base logger, adding the request fields and
// trace IDs found in its context.
//
//	logger.L(ctx).Info("dispatch created", zap.String("dispatch_id", id))
type ContextLogger struct {
	ctx  context.Context
	base *zap.Logger
	// scoped is set when base already carries the request fields
	scoped bool
}

// L logs through the logger stored in ctx
func L(ctx context.Context) *ContextLogger {
	return &ContextLogger{ctx: ctx, base: FromContext(ctx), scoped: true}
}

// WithLogger logs through an explicit logger, such as a component's own
func WithLogger(ctx context.Context, logger *zap.Logger) *ContextLogger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ContextLogger{ctx: ctx, base: logger, scoped: logger == scopeOf(ctx).logger}
}

func (cl *ContextLogger) With(fields ...zap.Field) *ContextLogger {
	return &ContextLogger{ctx: cl.ctx, base: cl.base.With(fields...), scoped: cl.scoped}
}

// Zap returns the base logger with the context fields applied
func (cl *ContextLogger) Zap() *zap.Logger {
	l := WithTraceContext(cl.ctx, cl.base)
	if cl.scoped {
		return l
	}
	s := scopeOf(cl.ctx)
	if s.requestID != "" {
		l = l.With(zap.String("request_id", s.requestID))
	}
	if s.actor != "" {
		l = l.With(zap.String("actor", s.actor))
	}
	return l
}

func (cl *ContextLogger) Debug(msg string, fields ...zap.Field) { cl.Zap().Debug(msg, fields...) }
func (cl *ContextLogger) Info(msg string, fields ...zap.Field)  { cl.Zap().Info(msg, fields...) }
func (cl *ContextLogger) Warn(msg string, fields ...zap.Field)  { cl.Zap().Warn(msg, fields...) }
func (cl *ContextLogger) Error(msg string, fields ...zap.Field) { cl.Zap().Error(msg, fields...) }
