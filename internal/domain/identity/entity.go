package identity

import "time"

// Session is the server-side state of one login. Callers only ever see copies.
type Session struct {
	ID            string    `json:"id"`
	Authenticated bool      `json:"authenticated"`
	Principal     string    `json:"principal,omitempty"`
	TrustScore    *int      `json:"trust_score,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	ExpiresAt     time.Time `json:"expires_at,omitempty"`
}

// Expired reports whether the session's token lifetime has passed.
func (s Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// UserProfile mirrors the canister's who_am_i record.
type UserProfile struct {
	Principal         string `json:"principal"`
	Nickname          string `json:"nickname,omitempty"`
	TrustScore        int    `json:"trust_score"`
	VerificationLevel string `json:"verification_level"`
	CreatedAt         uint64 `json:"created_at"`
	LastSeen          uint64 `json:"last_seen"`
}

// CanisterReport mirrors the canister's verify_identity record.
type CanisterReport struct {
	Principal       string   `json:"principal"`
	IdentityAge     string   `json:"identity_age"`
	TrustScore      int      `json:"trust_score"`
	RiskLevel       string   `json:"risk_level"`
	Recommendations []string `json:"recommendations"`
	VerifiedBy      string   `json:"verified_by"`
}

// Claims is what a verified login token yields.
type Claims struct {
	Subject string
	Expiry  time.Time
}
