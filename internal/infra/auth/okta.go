// Package auth verifies login tokens from the identity provider redirect flow.
package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	jwtverifier "github.com/okta/okta-jwt-verifier-golang"

	"github.com/bryanwahyu/osint-cafe/internal/domain/identity"
)

// Okta verifies access tokens issued by an Okta authorization server.
type Okta struct {
	verifier *jwtverifier.JwtVerifier
}

var _ identity.TokenVerifier = (*Okta)(nil)

// NewOkta validates aud and, when clientID is set, cid.
func NewOkta(issuer, clientID, audience string) *Okta {
	toValidate := map[string]string{"aud": audience}
	if clientID != "" {
		toValidate["cid"] = clientID
	}
	verifierSetup := jwtverifier.JwtVerifier{
		Issuer:           strings.TrimRight(issuer, "/"),
		ClaimsToValidate: toValidate,
	}
	return &Okta{verifier: verifierSetup.New()}
}

func (o *Okta) Verify(_ context.Context, token string) (identity.Claims, error) {
	jwt, err := o.verifier.VerifyAccessToken(token)
	if err != nil {
		return identity.Claims{}, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	return claimsFrom(jwt.Claims)
}

func claimsFrom(raw map[string]interface{}) (identity.Claims, error) {
	sub, _ := raw["sub"].(string)
	if sub == "" {
		return identity.Claims{}, fmt.Errorf("%w: token has no subject", identity.ErrInvalidToken)
	}
	c := identity.Claims{Subject: sub}
	if exp, ok := raw["exp"].(float64); ok {
		c.Expiry = time.Unix(int64(exp), 0).UTC()
	}
	return c, nil
}
