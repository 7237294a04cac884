package requestctx

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

type contextKey string

const (
	loggerContextKey     contextKey = "github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx/logger"
	traceContextKey      contextKey = "github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx/trace"
	annotationContextKey contextKey = "github.com/ydv-ankit/video-summarizer-client/internal/web/requestctx/annotations"
)

var noopLogger = zap.NewNop()

// TraceInfo captures trace metadata propagated through request context.
type TraceInfo struct {
	TraceID string
	SpanID  string
	Sampled bool
}

// Annotations collects values learned by inner handlers that outer
// middleware reports once the request completes.
type Annotations struct {
	mu        sync.Mutex
	userID    string
	sessionID string
}

// SetUser records the authenticated user handling the request.
func (a *Annotations) SetUser(userID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.userID = userID
	a.mu.Unlock()
}

// SetSession records the (shortened) session identifier.
func (a *Annotations) SetSession(sessionID string) {
	if a == nil {
		return
	}
	a.mu.Lock()
	a.sessionID = sessionID
	a.mu.Unlock()
}

// Values returns the recorded user and session identifiers.
func (a *Annotations) Values() (userID, sessionID string) {
	if a == nil {
		return "", ""
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.userID, a.sessionID
}

// WithLogger stores the logger in context for downstream consumers.
func WithLogger(ctx context.Context, logger *zap.Logger) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = noopLogger
	}
	return context.WithValue(ctx, loggerContextKey, logger)
}

// Logger retrieves the zap logger from context or returns a no-op logger.
func Logger(ctx context.Context) *zap.Logger {
	if ctx == nil {
		return noopLogger
	}
	if logger, ok := ctx.Value(loggerContextKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return noopLogger
}

// NoopLogger exposes the shared noop logger instance used across the package.
func NoopLogger() *zap.Logger { return noopLogger }

// WithTrace stores the trace metadata on the context for downstream usage.
func WithTrace(ctx context.Context, info TraceInfo) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, traceContextKey, info)
}

// Trace retrieves the trace metadata from context when available.
func Trace(ctx context.Context) (TraceInfo, bool) {
	if ctx == nil {
		return TraceInfo{}, false
	}
	info, ok := ctx.Value(traceContextKey).(TraceInfo)
	return info, ok
}

// WithAnnotations attaches a fresh Annotations collector to the context.
func WithAnnotations(ctx context.Context) (context.Context, *Annotations) {
	if ctx == nil {
		ctx = context.Background()
	}
	a := &Annotations{}
	return context.WithValue(ctx, annotationContextKey, a), a
}

// AnnotationsFrom returns the collector stored on the context, or nil. A nil
// collector silently ignores writes.
func AnnotationsFrom(ctx context.Context) *Annotations {
	if ctx == nil {
		return nil
	}
	a, _ := ctx.Value(annotationContextKey).(*Annotations)
	return a
}
