package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/contractsonly/api/internal/model"
)

func TestScoreContractText(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		description string
		title       string
		want        float64
		contract    []string
		fullTime    []string
	}{
		{
			name:        "strong contract posting clamps to one",
			description: "Independent contractor role. $85/hr for a 6 month contract.",
			title:       "Go Engineer",
			want:        1.0,
			contract:    []string{"independent contractor", "contractor", "contract"},
		},
		{
			name:        "permanent role with benefits scores zero",
			description: "Permanent position with comprehensive benefits, health insurance and 401k.",
			title:       "Analyst",
			want:        0,
			fullTime:    []string{"permanent position", "comprehensive benefits", "health insurance", "401k", "permanent"},
		},
		{
			name:        "strong exclusion caps weak contract signal",
			description: "Short-term project, $90/hr, 3 month project. Includes health insurance.",
			want:        0.1,
			contract:    []string{"short-term"},
			fullTime:    []string{"health insurance"},
		},
		{
			name:        "explicit full-time job type penalised",
			description: "Job type: full-time. Great team.",
			want:        0,
			fullTime:    []string{"full-time"},
		},
		{
			name:        "empty description",
			description: "",
			title:       "Contract Engineer",
			want:        0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got := ScoreContractText(tt.description, tt.title)
			assert.InDelta(t, tt.want, got.Value, 1e-9)
			assert.Equal(t, tt.contract, got.ContractIndicators)
			assert.Equal(t, tt.fullTime, got.FullTimeIndicators)
		})
	}
}

func TestScoreContractText_AlwaysInRange(t *testing.T) {
	t.Parallel()

	inputs := []string{
		"contract contractor freelance consultant temporary 1099 c2h contract-to-hire $100/hr 12 month contract job type: contract",
		"full-time employee permanent position no contractors employees only w-2 only pto 401k salary direct hire job type: full-time",
		"nothing relevant here",
	}
	for _, in := range inputs {
		v := ScoreContractText(in, "").Value
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
	}
}

func TestIsExplicitNonContractType(t *testing.T) {
	t.Parallel()

	for _, jt := range []string{"fulltime", " Full-Time ", "FULL_TIME", "permanent", "employee", "staff"} {
		assert.True(t, IsExplicitNonContractType(jt), jt)
	}
	for _, jt := range []string{"", "contract", "temporary", "part-time"} {
		assert.False(t, IsExplicitNonContractType(jt), jt)
	}
}

func TestExtractors(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Contract", ExtractJobType("Employment Type: Contract, Remote"))
	assert.Equal(t, "", ExtractJobType("no label here"))

	assert.Equal(t, "$70 - $90/hr", ExtractHourlyRate("Pay: $70 - $90/hr depending on experience"))
	assert.Equal(t, "$65/hour", ExtractHourlyRate("Rate is $65/hour"))
	assert.Equal(t, "", ExtractHourlyRate("competitive pay"))

	assert.Equal(t, "6 month", ExtractDuration("This is a 6 months engagement"))
	assert.Equal(t, "long term", ExtractDuration("A long term engagement"))
	assert.Equal(t, "", ExtractDuration("open ended"))
}

func TestDecide(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name         string
		initial      float64
		page         float64
		pageVerified bool
		score        float64
		confidence   model.Confidence
		rec          model.Recommendation
		method       model.VerificationMethod
	}{
		{"scraped only, very high", 0.9, 0, false, 0.9, model.ConfidenceLow, model.RecommendationManualReview, model.VerificationScrapingOnly},
		{"scraped only, middling", 0.5, 0, false, 0.5, model.ConfidenceLow, model.RecommendationReject, model.VerificationScrapingOnly},
		{"page verified high", 0.5, 0.9, true, 0.78, model.ConfidenceHigh, model.RecommendationAccept, model.VerificationPageVerified},
		{"page verified medium accept", 0.5, 0.6, true, 0.57, model.ConfidenceMedium, model.RecommendationAccept, model.VerificationPageVerified},
		{"page verified medium review", 0.2, 0.5, true, 0.41, model.ConfidenceMedium, model.RecommendationManualReview, model.VerificationPageVerified},
		{"page clearly not contract", 0.0, 0.1, true, 0.07, model.ConfidenceHigh, model.RecommendationReject, model.VerificationPageVerified},
		{"page low and ambiguous", 0.6, 0.3, true, 0.39, model.ConfidenceLow, model.RecommendationReject, model.VerificationPageVerified},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			d := Decide(tt.initial, tt.page, tt.pageVerified)
			assert.InDelta(t, tt.score, d.Score, 1e-9)
			assert.Equal(t, tt.confidence, d.Confidence)
			assert.Equal(t, tt.rec, d.Recommendation)
			assert.Equal(t, tt.method, d.Method)
		})
	}
}
