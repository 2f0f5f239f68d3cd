package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
)

// DetachTraceContext creates a new context.Background() that carries the
// span context from ctx without inheriting its cancellation.
func DetachTraceContext(ctx context.Context) context.Context {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.IsValid() {
		return context.Background()
	}
	return trace.ContextWithRemoteSpanContext(context.Background(), sc)
}

// ShutdownContext returns a context for cleanup after ctx may have been
// cancelled by a signal: span export and final log lines still get up to
// timeout to finish and stay linked to the interrupted trace.
func ShutdownContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(DetachTraceContext(ctx), timeout)
}
