// Package fallback implements the ordered provider chain shared by the
// weather, plant and assistant clients: try each provider in priority
// order, take the first success, and synthesize a static payload when every
// provider fails. Failures are logged and swallowed; callers never see an
// error.
package fallback

import (
	"context"
	"time"

	"farmhand/internal/logging"
)

// Provider is one attemptable source in a chain
type Provider[I, O any] struct {
	Name string
	Call func(ctx context.Context, in I) (O, error)
}

// Chain runs providers in order with a bounded per-attempt timeout.
// There are no retries and no backoff; the provider list is the whole
// policy.
type Chain[I, O any] struct {
	providers []Provider[I, O]
	static    func(in I) O
	timeout   time.Duration
	logger    *logging.Logger
}

// NewChain builds a chain. static must not be nil; it is the guaranteed
// last resort. Providers appear in priority order.
func NewChain[I, O any](logger *logging.Logger, timeout time.Duration, static func(in I) O, providers ...Provider[I, O]) *Chain[I, O] {
	return &Chain[I, O]{
		providers: providers,
		static:    static,
		timeout:   timeout,
		logger:    logger,
	}
}

// Fetch attempts each provider in order and returns the first successful
// result along with the serving provider's name. On total exhaustion it
// returns the static payload with source "static".
func (c *Chain[I, O]) Fetch(ctx context.Context, in I) (O, string) {
	for _, p := range c.providers {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		out, err := p.Call(attemptCtx, in)
		cancel()

		if err != nil {
			c.logger.WithFields(map[string]interface{}{
				"provider": p.Name,
				"error":    err.Error(),
			}).Warn("provider attempt failed, trying next")
			continue
		}

		c.logger.WithContext("provider", p.Name).Debug("provider attempt succeeded")
		return out, p.Name
	}

	c.logger.Warn("all providers failed, serving static payload")
	return c.static(in), "static"
}

// Len returns the number of networked providers in the chain
func (c *Chain[I, O]) Len() int {
	return len(c.providers)
}
