// Package chain runs an ordered list of providers for one capability until one succeeds.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

const defaultBackoff = 250 * time.Millisecond

// Chain is immutable after construction and safe for concurrent Execute calls.
type Chain struct {
	capability analysis.Capability
	providers  []analysis.Provider
	retries    uint64
	backoff    time.Duration
	logger     *zap.Logger
}

// Option configures a Chain.
type Option func(*Chain)

// WithRetries retries unreachable attempts up to n extra times before moving on.
func WithRetries(n uint64, backoff time.Duration) Option {
	return func(c *Chain) {
		c.retries = n
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// WithLogger attaches a logger; the default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Chain) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds a chain. Provider order is preference order.
func New(capability analysis.Capability, providers []analysis.Provider, opts ...Option) *Chain {
	c := &Chain{
		capability: capability,
		providers:  append([]analysis.Provider(nil), providers...),
		backoff:    defaultBackoff,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Capability returns the capability this chain serves.
func (c *Chain) Capability() analysis.Capability { return c.capability }

// Providers returns the registered providers in order.
func (c *Chain) Providers() []analysis.Provider {
	return append([]analysis.Provider(nil), c.providers...)
}

// Execution is the result of one chain run plus every attempt made on the way.
type Execution struct {
	Result   analysis.Result
	Attempts []analysis.Result
	Duration time.Duration
}

// Execute tries providers strictly in order and returns the first OK result. Later
// providers are never called once one succeeds. When all fail, the synthesized failure's
// Detail lists every attempt in order.
func (c *Chain) Execute(ctx context.Context, req analysis.Request) Execution {
	start := time.Now()
	req.Capability = c.capability
	attempts := make([]analysis.Result, 0, len(c.providers))

	for _, p := range c.providers {
		if err := ctx.Err(); err != nil {
			attempts = append(attempts, analysis.Failure(p.Name(), analysis.Unreachable, "not attempted: "+err.Error()))
			continue
		}
		res := c.attempt(ctx, p, req)
		if res.OK {
			c.logger.Debug("provider succeeded",
				zap.String("capability", string(c.capability)),
				zap.String("provider", res.Provider),
				zap.Int("attempt", len(attempts)+1))
			attempts = append(attempts, res)
			return Execution{Result: res, Attempts: attempts, Duration: time.Since(start)}
		}
		// failures never carry a payload forward
		res.Raw = ""
		attempts = append(attempts, res)
		c.logger.Info("provider failed, falling back",
			zap.String("capability", string(c.capability)),
			zap.String("provider", res.Provider),
			zap.String("reason", string(res.Reason)),
			zap.String("detail", res.Detail))
	}

	return Execution{Result: c.aggregate(attempts), Attempts: attempts, Duration: time.Since(start)}
}

// attempt calls p once, plus up to c.retries more times while it stays unreachable.
func (c *Chain) attempt(ctx context.Context, p analysis.Provider, req analysis.Request) analysis.Result {
	var res analysis.Result
	call := func(ctx context.Context) error {
		res = p.Call(ctx, req)
		if res.Provider == "" {
			res.Provider = p.Name()
		}
		if !res.OK && res.Reason == analysis.Unreachable {
			return retry.RetryableError(errors.New(res.Detail))
		}
		return nil
	}

	if c.retries == 0 {
		_ = call(ctx)
		return res
	}

	b := retry.WithMaxRetries(c.retries, retry.NewExponential(c.backoff))
	if err := retry.Do(ctx, b, call); err != nil && res.Provider == "" {
		// context ended before the first call went out
		res = analysis.Failure(p.Name(), analysis.Unreachable, err.Error())
	}
	return res
}

func (c *Chain) aggregate(attempts []analysis.Result) analysis.Result {
	name := "chain:" + string(c.capability)
	if len(attempts) == 0 {
		return analysis.Failure(name, analysis.Unconfigured,
			fmt.Sprintf("no providers registered for %s", c.capability))
	}

	reason := analysis.Unconfigured
	parts := make([]string, 0, len(attempts))
	for _, a := range attempts {
		parts = append(parts, fmt.Sprintf("%s: %s: %s", a.Provider, a.Reason, a.Detail))
		if a.Reason != analysis.Unconfigured {
			reason = a.Reason
		}
	}
	return analysis.Failure(name, reason, strings.Join(parts, "; "))
}
