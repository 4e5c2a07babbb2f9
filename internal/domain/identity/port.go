package identity

import "context"

// TokenVerifier turns a login token from the redirect flow into claims.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (Claims, error)
}

// Canister is the remote identity/ledger contract reachable while a session is active.
type Canister interface {
	WhoAmI(ctx context.Context, principal string) (*UserProfile, error)
	UpdateTrustScore(ctx context.Context, principal string, score int) (string, error)
	SetNickname(ctx context.Context, principal, nickname string) (string, error)
	Stats(ctx context.Context, principal string) (map[string]uint64, error)
}

// AgeEstimator looks up how old an identity is on an external ledger.
type AgeEstimator interface {
	IdentityAge(ctx context.Context, principal string) (string, error)
}
