package auth

import (
	"context"
	"crypto/subtle"

	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
)

// Static maps fixed tokens to principals. For local development and tests only.
type Static struct {
	tokens map[string]string
}

var _ identity.TokenVerifier = (*Static)(nil)

func NewStatic(tokens map[string]string) *Static {
	cp := make(map[string]string, len(tokens))
	for k, v := range tokens {
		cp[k] = v
	}
	return &Static{tokens: cp}
}

func (s *Static) Verify(_ context.Context, token string) (identity.Claims, error) {
	for t, principal := range s.tokens {
		if subtle.ConstantTimeCompare([]byte(t), []byte(token)) == 1 {
			return identity.Claims{Subject: principal}, nil
		}
	}
	return identity.Claims{}, identity.ErrInvalidToken
}
