// Package provider abstracts the text-generation backend that produces
// decision text for the loop.
package provider

import (
	"context"

	"golang.org/x/time/rate"
)

// Provider produces one decision line from a system and user message.
type Provider interface {
	Name() string
	Generate(ctx context.Context, system, user string) (string, error)
}

// Func adapts a plain function to Provider. Used by tests and by
// embedders that bring their own model client.
type Func func(ctx context.Context, system, user string) (string, error)

func (f Func) Name() string { return "func" }

func (f Func) Generate(ctx context.Context, system, user string) (string, error) {
	return f(ctx, system, user)
}

// RateLimited wraps a provider with a request-per-second ceiling.
type RateLimited struct {
	inner   Provider
	limiter *rate.Limiter
}

// NewRateLimited returns p unchanged when perSecond <= 0.
func NewRateLimited(p Provider, perSecond float64, burst int) Provider {
	if perSecond <= 0 {
		return p
	}
	if burst < 1 {
		burst = 1
	}
	return &RateLimited{inner: p, limiter: rate.NewLimiter(rate.Limit(perSecond), burst)}
}

func (r *RateLimited) Name() string { return r.inner.Name() }

func (r *RateLimited) Generate(ctx context.Context, system, user string) (string, error) {
	if err := r.limiter.Wait(ctx); err != nil {
		return "", err
	}
	return r.inner.Generate(ctx, system, user)
}
