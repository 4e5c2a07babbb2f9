package normalize

import (
	"math"
	"testing"

	"github.com/bryanwahyu/osint-cafe/internal/domain/analysis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		want  string
		found bool
	}{
		{"bare object", `{"a":1}`, `{"a":1}`, true},
		{"prose around", "Sure! Here you go:\n{\"a\":{\"b\":2}}\nThanks.", `{"a":{"b":2}}`, true},
		{"fenced", "```json\n{\"x\":\"y\"}\n```", `{"x":"y"}`, true},
		{"brace in string", `{"a":"close } early"} trailing }`, `{"a":"close } early"}`, true},
		{"escaped quote", `{"a":"say \"}\" ok"}`, `{"a":"say \"}\" ok"}`, true},
		{"first of two", `{"a":1} and {"b":2}`, `{"a":1}`, true},
		{"no object", "no json here", "", false},
		{"unbalanced", `{"a":{"b":1}`, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ExtractJSON(tt.in)
			assert.Equal(t, tt.found, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_LowRiskRoundTrip(t *testing.T) {
	raw := `{"overallRisk":"low","riskFactors":[],"recommendations":["ok"]}`

	r, structured := Normalize(raw, nil)

	require.True(t, structured)
	assert.Equal(t, 85, r.Score)
	assert.NotNil(t, r.Flags)
	assert.Empty(t, r.Flags)
	assert.Equal(t, []string{"ok"}, r.Recommendations)
}

func TestNormalize_CategoricalBands(t *testing.T) {
	for lvl, want := range map[string]int{"low": 85, "medium": 60, "high": 25, "HIGH": 25} {
		r, ok := Normalize(`{"riskLevel":"`+lvl+`"}`, nil)
		require.True(t, ok, lvl)
		assert.Equal(t, want, r.Score, lvl)
	}
}

func TestNormalize_LikelihoodInvertsScore(t *testing.T) {
	r, ok := Normalize(`The model says {"scamLikelihood": 70, "redFlags": ["urgency"]}`, nil)

	require.True(t, ok)
	assert.Equal(t, 30, r.Score)
	assert.Equal(t, []string{"urgency"}, r.Flags)
	assert.NotNil(t, r.Recommendations)
}

func TestNormalize_LikelihoodOutOfRangeIsClamped(t *testing.T) {
	r, ok := Normalize(`{"scamLikelihood": 250}`, nil)
	require.True(t, ok)
	assert.Equal(t, 0, r.Score)

	r, ok = Normalize(`{"scamLikelihood": -40}`, nil)
	require.True(t, ok)
	assert.Equal(t, 100, r.Score)

	for _, huge := range []string{"1e19", "1e30", "1.7e308"} {
		r, ok = Normalize(`{"scamLikelihood": `+huge+`}`, nil)
		require.True(t, ok, huge)
		assert.Equal(t, 0, r.Score, huge)
	}

	r, ok = Normalize(`{"scamLikelihood": -1e30}`, nil)
	require.True(t, ok)
	assert.Equal(t, 100, r.Score)
}

func TestAssessment_NonFiniteLikelihoodIsMissing(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		a := Assessment{ScamLikelihood: &v}
		assert.False(t, a.HasExpectedFields())
		assert.Equal(t, 0, a.Likelihood())
	}
}

func TestNormalize_FallsBackWithoutExpectedFields(t *testing.T) {
	r, ok := Normalize(`{"summary":"looks like a high risk profile"}`, nil)

	assert.False(t, ok)
	assert.Equal(t, 25, r.Score)
	assert.Equal(t, []string{"Analysis completed with AI"}, r.Flags)
	assert.Equal(t, CautionRecommendations, r.Recommendations)
}

func TestNormalize_FallsBackOnBrokenJSON(t *testing.T) {
	r, ok := Normalize(`{"overallRisk": medium,}`, nil)

	assert.False(t, ok)
	assert.Equal(t, 60, r.Score)
}

func TestNormalize_InvariantsHoldOnEveryPath(t *testing.T) {
	inputs := []string{
		"",
		"nothing to see",
		`{"overallRisk":"low"}`,
		`{"scamLikelihood": 1e9}`,
		`{"riskFactors":null,"recommendations":null,"overallRisk":"high"}`,
		`{{{{`,
	}
	heuristics := []Heuristic{nil, Keywords{}.Heuristic("wire money now, emergency"), func(string) analysis.Report {
		return analysis.Report{Score: 400}
	}}
	for _, in := range inputs {
		for _, h := range heuristics {
			r, _ := Normalize(in, h)
			assert.GreaterOrEqual(t, r.Score, 0)
			assert.LessOrEqual(t, r.Score, 100)
			assert.NotNil(t, r.Flags)
			assert.NotNil(t, r.Recommendations)
		}
	}
}

func TestKeywords(t *testing.T) {
	k := Keywords{}

	assert.Equal(t, 100, k.Score("hello, how was your day?"))
	assert.Equal(t, 80, k.Score("I need money"))
	assert.Equal(t, 40, k.Score("Emergency! please WIRE the money"))
	assert.Equal(t, 0, k.Score("money wire transfer emergency sick accident travel military"))

	r := k.Report("I'm in the military and need money")
	assert.Equal(t, 60, r.Score)
	assert.Equal(t, []string{"Mentions: money", "Mentions: military"}, r.Flags)
}

func TestKeywords_CustomTerms(t *testing.T) {
	k := Keywords{Terms: []string{"Bitcoin"}, Penalty: 50}
	assert.Equal(t, 50, k.Score("send bitcoin"))
	assert.Equal(t, 100, k.Score("send money"))
}

func TestRiskForCount(t *testing.T) {
	assert.Equal(t, "low", string(RiskForCount(0)))
	assert.Equal(t, "medium", string(RiskForCount(2)))
	assert.Equal(t, "high", string(RiskForCount(3)))
}

func TestDetect(t *testing.T) {
	text := "Add me on WhatsApp. Buy two Steam card codes, or send to bc1qar0srrr7xfkvy5l643lydnw9re59gtzzwf5mdq"

	got := Detect(text)

	titles := make([]string, 0, len(got))
	for _, i := range got {
		titles = append(titles, i.Title)
	}
	assert.Contains(t, titles, "Bitcoin address shared")
	assert.Contains(t, titles, "Gift card request")
	assert.Contains(t, titles, "Request to move off-platform")
	assert.Empty(t, Detect("see you at the cafe on saturday"))
}
