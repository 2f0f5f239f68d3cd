package tts

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/apresai/narrator/internal/ssml"
)

// AudioFormat represents the audio encoding returned by a provider.
type AudioFormat string

const (
	FormatMP3 AudioFormat = "mp3"
)

// AudioResult is the output of a synthesis call.
type AudioResult struct {
	Data   []byte
	Format AudioFormat
}

// Provider synthesizes one SSML document per call. Throttling is reported
// as an error matching ErrThrottled.
type Provider interface {
	Name() string
	Synthesize(ctx context.Context, ssml string) (AudioResult, error)
	Close() error
}

// Backend kinds understood by NewProvider.
const (
	KindAzure  = "azure"
	KindGoogle = "google"
	KindPolly  = "polly"
)

// MaxRequestWeight returns the fragment text budget a backend of the given
// kind accepts in one request. Google rejects input over 5000 bytes and Polly
// over 3000 billed characters, so both budgets leave room for the markup the
// splitter repeats in every fragment.
func MaxRequestWeight(kind string) int {
	switch strings.ToLower(kind) {
	case KindGoogle:
		return 4500
	case KindPolly:
		return 2800
	default:
		return ssml.DefaultMaxFragmentWeight
	}
}

// BackendConfig describes one set of backend credentials.
type BackendConfig struct {
	// Name is the display name used in logs and errors.
	Name string
	// Kind is one of KindAzure, KindGoogle, KindPolly.
	Kind string

	// Azure
	Region          string
	SubscriptionKey string
	Endpoint        string // overrides the regional endpoint

	// Google
	CredentialsFile string
	LanguageCode    string
	SpeakingRate    float64

	// Polly
	Profile string
	Engine  string

	// Voice is used by backends that select the voice outside the markup.
	Voice string

	// RequestsPerMinute paces requests to this backend. Zero disables pacing.
	RequestsPerMinute int
}

func (c BackendConfig) displayName() string {
	if c.Name != "" {
		return c.Name
	}
	return c.Kind
}

// NewProvider creates a provider for cfg, wrapped in a rate limiter when
// the config asks for pacing.
func NewProvider(ctx context.Context, cfg BackendConfig, logger *slog.Logger) (Provider, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", cfg.displayName())

	var (
		p   Provider
		err error
	)
	switch strings.ToLower(cfg.Kind) {
	case KindAzure:
		p, err = NewAzureProvider(cfg, logger)
	case KindGoogle:
		p, err = NewGoogleProvider(ctx, cfg, logger)
	case KindPolly:
		p, err = NewPollyProvider(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown TTS provider %q: choose azure, google, or polly", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	if cfg.RequestsPerMinute > 0 {
		p = NewRateLimited(p, cfg.RequestsPerMinute)
	}
	return p, nil
}

// RetryPolicy controls WithRetry.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	Multiplier     int
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy is shared by all providers.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    3,
	InitialBackoff: 1 * time.Second,
	Multiplier:     2,
	MaxBackoff:     10 * time.Second,
}

// RetryableError signals a transient failure (server errors, dropped
// connections) that may succeed on the same backend.
type RetryableError struct {
	StatusCode int
	Body       string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("API error (status %d): %s", e.StatusCode, e.Body)
}

// WithRetry executes fn with exponential backoff on RetryableError. Any
// other error, throttling included, is returned immediately.
func WithRetry(ctx context.Context, policy RetryPolicy, fn func() error) error {
	var lastErr error
	backoff := policy.InitialBackoff

	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var re *RetryableError
		if !errors.As(err, &re) {
			return err
		}
		lastErr = err

		if attempt < policy.MaxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= time.Duration(policy.Multiplier)
			if backoff > policy.MaxBackoff {
				backoff = policy.MaxBackoff
			}
		}
	}

	return lastErr
}
