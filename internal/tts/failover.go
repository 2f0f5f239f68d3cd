package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("github.com/apresai/narrator/internal/tts")

// Failover tries backends in priority order. A throttled backend is
// abandoned for the rest of the Failover's life: the next backend retries
// the same request and serves every later call.
type Failover struct {
	backends []NamedSynthesizer
	logger   *slog.Logger

	mu      sync.Mutex
	current int
}

func NewFailover(logger *slog.Logger, backends ...NamedSynthesizer) (*Failover, error) {
	if len(backends) == 0 {
		return nil, errors.New("failover needs at least one backend")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Failover{backends: backends, logger: logger}, nil
}

// Name lists the backends, marking the active one.
func (f *Failover) Name() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.current >= len(f.backends) {
		return "failover (exhausted)"
	}
	return fmt.Sprintf("failover (%s, %d of %d)", f.backends[f.current].Name(), f.current+1, len(f.backends))
}

// Current returns the index of the backend serving requests. It equals the
// number of backends once all have been throttled.
func (f *Failover) Current() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

func (f *Failover) SynthesizeToFile(ctx context.Context, ssml, path string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.current >= len(f.backends) {
		return ErrBackendsExhausted
	}

	for {
		backend := f.backends[f.current]
		err := f.attempt(ctx, backend, ssml, path)
		if err == nil {
			return nil
		}
		if !IsThrottled(err) {
			return err
		}

		f.current++
		if f.current >= len(f.backends) {
			f.logger.ErrorContext(ctx, "all synthesis backends throttled", "last", backend.Name(), "error", err)
			return fmt.Errorf("%w: %w", ErrBackendsExhausted, err)
		}
		f.logger.WarnContext(ctx, "backend throttled, switching",
			"from", backend.Name(),
			"to", f.backends[f.current].Name(),
			"error", err)
	}
}

func (f *Failover) attempt(ctx context.Context, backend NamedSynthesizer, ssml, path string) error {
	ctx, span := tracer.Start(ctx, "tts.failover.attempt", trace.WithAttributes(
		attribute.String("backend", backend.Name()),
		attribute.Int("backend.index", f.current),
	))
	defer span.End()

	err := backend.SynthesizeToFile(ctx, ssml, path)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("throttled", IsThrottled(err)))
	}
	return err
}
