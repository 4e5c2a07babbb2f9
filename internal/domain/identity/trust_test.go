package identity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAgeBucket(t *testing.T) {
	day := 24 * time.Hour
	assert.Equal(t, AgeUnderMonth, AgeBucket(3*day))
	assert.Equal(t, AgeUnderHalf, AgeBucket(90*day))
	assert.Equal(t, AgeHalfYear, AgeBucket(200*day))
	assert.Equal(t, AgeYearPlus, AgeBucket(400*day))
}

func TestAgeFromHash_IsStable(t *testing.T) {
	p := "rrkah-fqaaa-aaaaa-aaaaq-cai"
	assert.Equal(t, AgeFromHash(p), AgeFromHash(p))
	assert.Contains(t, ageBuckets, AgeFromHash(p))
	assert.Contains(t, ageBuckets, AgeFromHash(""))
}

func TestLocalTrustScore(t *testing.T) {
	assert.Equal(t, 50, LocalTrustScore("anonymous"))
	assert.Equal(t, 70, LocalTrustScore("rrkah-fqaaa-aaaaa-aaaaq-cai"))
	assert.Equal(t, 100, LocalTrustScore("2vxsx-fae7k-qwe3r-tyuio-pasdf-ghjkl-zxcvb-nm123-qwe"))
}
