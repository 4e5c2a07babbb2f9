// Package probe is the provider status tester behind `osint-cafe status` and /v1/status.
package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
)

// ErrUnknownCheck is returned by RunOne for a name nothing is registered under.
var ErrUnknownCheck = errors.New("unknown provider")

type Result struct {
	Name     string        `json:"name"`
	Success  bool          `json:"success"`
	Message  string        `json:"message"`
	Duration time.Duration `json:"duration"`
}

type Service struct {
	Checks []analysis.NamedChecker
	// Pause is slept between consecutive checks.
	Pause  time.Duration
	Logger *zap.Logger
}

func NewService(checks []analysis.NamedChecker, pause time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{Checks: checks, Pause: pause, Logger: logger}
}

// RunAll checks every provider in registration order, one at a time. Cancelling ctx
// stops the run and returns what finished so far.
func (s *Service) RunAll(ctx context.Context) []Result {
	out := make([]Result, 0, len(s.Checks))
	for i, c := range s.Checks {
		if i > 0 && s.Pause > 0 {
			t := time.NewTimer(s.Pause)
			select {
			case <-ctx.Done():
				t.Stop()
				return out
			case <-t.C:
			}
		}
		out = append(out, s.run(ctx, c))
	}
	return out
}

// RunOne checks a single provider by name.
func (s *Service) RunOne(ctx context.Context, name string) (Result, error) {
	for _, c := range s.Checks {
		if c.Name() == name {
			return s.run(ctx, c), nil
		}
	}
	return Result{}, fmt.Errorf("%w: %s", ErrUnknownCheck, name)
}

func (s *Service) run(ctx context.Context, c analysis.NamedChecker) Result {
	start := time.Now()
	err := c.Check(ctx)
	r := Result{Name: c.Name(), Success: err == nil, Duration: time.Since(start)}
	switch {
	case err == nil:
		r.Message = "operational"
	case errors.Is(err, analysis.ErrNotConfigured):
		r.Message = analysis.ErrNotConfigured.Error()
	default:
		r.Message = "Connection failed: " + err.Error()
	}
	s.Logger.Debug("provider checked", zap.String("provider", r.Name), zap.Bool("success", r.Success),
		zap.Duration("duration", r.Duration))
	return r
}
