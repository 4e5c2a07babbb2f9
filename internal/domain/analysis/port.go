package analysis

import "context"

// Provider performs exactly one outbound call per Call and never returns a Go error:
// every failure is reported through Result.
type Provider interface {
	Name() string
	Call(ctx context.Context, req Request) Result
}

// Checker is implemented by providers that can cheaply report whether they are usable.
type Checker interface {
	Check(ctx context.Context) error
}

// NamedChecker is anything the status probe can test by name.
type NamedChecker interface {
	Name() string
	Checker
}
