package analysis

import "errors"

// ErrNotConfigured is returned by Checker implementations that lack credentials.
var ErrNotConfigured = errors.New("API key not configured")

// ErrorKind classifies why a provider call (or a whole chain) did not produce a usable payload.
type ErrorKind string

const (
	// Unconfigured means the provider has no credential or endpoint; no call was made.
	Unconfigured ErrorKind = "unconfigured"
	// Unreachable covers dial errors, timeouts and cancelled contexts.
	Unreachable ErrorKind = "unreachable"
	// Rejected means the provider answered with a non-2xx status.
	Rejected ErrorKind = "rejected"
	// Unparseable means a 2xx body was not in the expected shape.
	Unparseable ErrorKind = "unparseable"
	// Unauthenticated is orchestrator level: an identity-gated feature ran without a session.
	Unauthenticated ErrorKind = "unauthenticated"
)

func (k ErrorKind) String() string { return string(k) }
