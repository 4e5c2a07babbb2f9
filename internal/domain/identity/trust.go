package identity

import (
	"regexp"
	"time"
)

// Identity age buckets, youngest first.
const (
	AgeUnderMonth = "< 1 month"
	AgeUnderHalf  = "1-6 months"
	AgeHalfYear   = "6+ months"
	AgeYearPlus   = "1+ year"
)

var ageBuckets = []string{AgeUnderMonth, AgeUnderHalf, AgeHalfYear, AgeYearPlus}

// AgeBucket buckets an account age.
func AgeBucket(age time.Duration) string {
	days := age.Hours() / 24
	switch {
	case days < 30:
		return AgeUnderMonth
	case days < 180:
		return AgeUnderHalf
	case days < 365:
		return AgeHalfYear
	default:
		return AgeYearPlus
	}
}

// AgeFromHash picks a stable bucket from the principal text when no ledger
// lookup is available.
func AgeFromHash(principal string) string {
	var h int32
	for _, r := range principal {
		h = h*31 + int32(r)
	}
	n := int64(h)
	if n < 0 {
		n = -n
	}
	return ageBuckets[n%int64(len(ageBuckets))]
}

var (
	principalShape = regexp.MustCompile(`[a-z0-9]{5}-[a-z0-9]{5}-[a-z0-9]{5}-[a-z0-9]{5}-[a-z0-9]{3}`)
	hasDigit       = regexp.MustCompile(`\d`)
)

// LocalTrustScore estimates trust from the shape of a principal. Used only when
// the canister cannot be reached.
func LocalTrustScore(principal string) int {
	score := 50
	if len(principal) > 40 {
		score += 20
	}
	if hasDigit.MatchString(principal) {
		score += 10
	}
	if principalShape.MatchString(principal) {
		score += 20
	}
	if score > 100 {
		score = 100
	}
	return score
}
