package tts

import (
	"context"
	"time"

	"golang.org/x/time/rate"
)

// RateLimited paces calls to a provider so a backend with a known request
// quota is not driven into throttling.
type RateLimited struct {
	Provider
	limiter *rate.Limiter
}

// NewRateLimited allows at most perMinute requests per minute, with no burst.
func NewRateLimited(p Provider, perMinute int) *RateLimited {
	return &RateLimited{
		Provider: p,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), 1),
	}
}

func (r *RateLimited) Synthesize(ctx context.Context, ssml string) (AudioResult, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return AudioResult{}, err
	}
	return r.Provider.Synthesize(ctx, ssml)
}
