package service

import (
	"regexp"
	"strings"

	"github.com/contractsonly/api/internal/model"
)

type weightedKeyword struct {
	keyword string
	weight  float64
}

var contractKeywords = []weightedKeyword{
	// High confidence
	{"independent contractor", 3},
	{"contract-to-hire", 3},
	{"c2h", 3},
	{"1099 contractor", 3},
	{"w2 contract", 3},
	{"contract position", 3},
	{"contract role", 3},

	// Medium confidence
	{"contractor", 2},
	{"contract", 2},
	{"freelance", 2},
	{"contracting", 2},
	{"contract work", 2},
	{"consultant", 2},
	{"temp", 2},
	{"temporary", 2},
	{"1099", 2},

	// Low confidence
	{"project-based", 1},
	{"short-term", 1},
	{"long-term contract", 2},
}

// Definitive full-time indicators
var strongExcludeKeywords = []weightedKeyword{
	{"full-time employee", 5},
	{"permanent position", 5},
	{"employee benefits", 4},
	{"comprehensive benefits", 4},
	{"health insurance", 3},
	{"dental insurance", 3},
	{"vision insurance", 3},
	{"401k", 3},
	{"paid time off", 3},
	{"pto", 3},
	{"vacation days", 3},
	{"sick leave", 3},
	{"parental leave", 3},
	{"no contractors", 5},
	{"employees only", 5},
	{"w-2 only", 4},
}

// Possible full-time indicators
var mediumExcludeKeywords = []weightedKeyword{
	{"full-time", 2},
	{"permanent", 2},
	{"salary", 1},
	{"annual salary", 2},
	{"base salary", 2},
	{"benefits eligible", 1},
	{"staff position", 2},
	{"direct hire", 2},
}

const (
	contractWeightFactor     = 0.1
	strongExcludeFactor      = 0.15
	mediumExcludeFactor      = 0.05
	strongExclusionThreshold = 0.4
	weakContractThreshold    = 0.2
	strongExclusionCap       = 0.1

	pageScoreWeight    = 0.7
	initialScoreWeight = 0.3
)

var (
	reHourlyAmount    = regexp.MustCompile(`\$\d+.*(?:/hr|/hour|per hour|hourly)`)
	reHourlyMention   = regexp.MustCompile(`hourly.*rate|rate.*hourly`)
	reDurationProject = regexp.MustCompile(`\d+\s*(?:month|week|months|weeks)\s*(?:contract|project|assignment)`)
	reDurationAny     = regexp.MustCompile(`\d+\s*(?:month|week|months|weeks)`)

	reTypeFullTime  = regexp.MustCompile(`(?:job|employment)\s*type\s*:?\s*full[-\s]*time`)
	reTypePermanent = regexp.MustCompile(`(?:job|employment)\s*type\s*:?\s*permanent`)
	reTypeContract  = regexp.MustCompile(`(?:job|employment)\s*type\s*:?\s*contract`)
	reTypeTemp      = regexp.MustCompile(`job\s*type\s*:?\s*(?:temp|temporary|freelance)`)

	jobTypePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)job\s*type\s*:?\s*([^,.\n]+)`),
		regexp.MustCompile(`(?i)employment\s*type\s*:?\s*([^,.\n]+)`),
		regexp.MustCompile(`(?i)position\s*type\s*:?\s*([^,.\n]+)`),
		regexp.MustCompile(`(?i)work\s*type\s*:?\s*([^,.\n]+)`),
	}
	hourlyRatePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\$(\d+(?:\.\d{2})?)\s*-\s*\$(\d+(?:\.\d{2})?)\s*(?:/|\s)*(?:hr|hour|hourly)`),
		regexp.MustCompile(`(?i)\$(\d+(?:\.\d{2})?)\s*(?:/|\s)*(?:hr|hour|hourly)`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d{2})?)\s*-\s*(\d+(?:\.\d{2})?)\s*(?:/|\s)*(?:hr|hour|hourly)`),
		regexp.MustCompile(`(?i)(\d+(?:\.\d{2})?)\s*(?:/|\s)*(?:hr|hour|hourly)`),
	}
	durationPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(\d+)\s*(month|months)`),
		regexp.MustCompile(`(?i)(\d+)\s*(week|weeks)`),
		regexp.MustCompile(`(?i)(\d+)\s*-\s*(\d+)\s*(month|months)`),
		regexp.MustCompile(`(?i)(short\s*term|long\s*term)`),
		regexp.MustCompile(`(?i)duration\s*:?\s*([^,.\n]+)`),
	}
)

// explicitNonContractTypes are job_type values that reject a posting outright
var explicitNonContractTypes = map[string]bool{
	"fulltime":  true,
	"full-time": true,
	"full_time": true,
	"permanent": true,
	"employee":  true,
	"staff":     true,
}

// ContractScore is the keyword analysis of one body of text
type ContractScore struct {
	Value              float64
	ContractIndicators []string
	FullTimeIndicators []string
}

// ScoreContractText rates how strongly description and title read as a
// contract role, in [0,1]. An empty description scores zero.
func ScoreContractText(description, title string) ContractScore {
	if description == "" {
		return ContractScore{}
	}
	text := strings.ToLower(description + " " + title)

	var score ContractScore
	positive := 0.0
	for _, k := range contractKeywords {
		if strings.Contains(text, k.keyword) {
			score.ContractIndicators = append(score.ContractIndicators, k.keyword)
			positive += k.weight * contractWeightFactor
		}
	}

	strongNegative := 0.0
	for _, k := range strongExcludeKeywords {
		if strings.Contains(text, k.keyword) {
			score.FullTimeIndicators = append(score.FullTimeIndicators, k.keyword)
			strongNegative += k.weight * strongExcludeFactor
		}
	}

	mediumNegative := 0.0
	for _, k := range mediumExcludeKeywords {
		if strings.Contains(text, k.keyword) {
			score.FullTimeIndicators = appendUnique(score.FullTimeIndicators, k.keyword)
			mediumNegative += k.weight * mediumExcludeFactor
		}
	}

	hourlyBonus := 0.0
	switch {
	case reHourlyAmount.MatchString(text):
		hourlyBonus = 0.3
	case reHourlyMention.MatchString(text):
		hourlyBonus = 0.2
	}

	durationBonus := 0.0
	switch {
	case reDurationProject.MatchString(text):
		durationBonus = 0.2
	case reDurationAny.MatchString(text):
		durationBonus = 0.1
	}

	typePenalty := 0.0
	switch {
	case reTypeFullTime.MatchString(text):
		typePenalty = 0.5
	case reTypePermanent.MatchString(text):
		typePenalty = 0.4
	}

	typeBonus := 0.0
	switch {
	case reTypeContract.MatchString(text):
		typeBonus = 0.4
	case reTypeTemp.MatchString(text):
		typeBonus = 0.3
	}

	value := (positive + hourlyBonus + durationBonus + typeBonus) -
		(strongNegative + mediumNegative + typePenalty)

	// Strong full-time language with barely any contract language
	if strongNegative > strongExclusionThreshold && positive < weakContractThreshold {
		value = min(value, strongExclusionCap)
	}

	score.Value = clamp01(value)
	return score
}

// IsExplicitNonContractType reports whether a posting's job_type field
// names a full-time or permanent role
func IsExplicitNonContractType(jobType string) bool {
	return explicitNonContractTypes[strings.ToLower(strings.TrimSpace(jobType))]
}

// ExtractJobType returns an explicitly labelled job type, or ""
func ExtractJobType(text string) string {
	for _, re := range jobTypePatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return ""
}

// ExtractHourlyRate returns the first hourly rate mention, or ""
func ExtractHourlyRate(text string) string {
	return firstMatch(hourlyRatePatterns, text)
}

// ExtractDuration returns the first contract duration mention, or ""
func ExtractDuration(text string) string {
	return firstMatch(durationPatterns, text)
}

// Decision is the final verdict derived from the initial and page scores
type Decision struct {
	Score          float64
	Confidence     model.Confidence
	Recommendation model.Recommendation
	Method         model.VerificationMethod
}

// Decide blends the scores and applies the acceptance thresholds.
// Without page evidence confidence is always LOW, so nothing is accepted
// on scraped text alone.
func Decide(initial, page float64, pageVerified bool) Decision {
	d := Decision{Score: initial, Method: model.VerificationScrapingOnly}
	if pageVerified {
		d.Score = page*pageScoreWeight + initial*initialScoreWeight
		d.Method = model.VerificationPageVerified
	}

	switch {
	case !pageVerified:
		d.Confidence = model.ConfidenceLow
	case d.Score >= 0.7:
		d.Confidence = model.ConfidenceHigh
	case d.Score >= 0.4:
		d.Confidence = model.ConfidenceMedium
	case page <= 0.2:
		d.Confidence = model.ConfidenceHigh
	default:
		d.Confidence = model.ConfidenceLow
	}

	switch d.Confidence {
	case model.ConfidenceHigh:
		d.Recommendation = model.RecommendationReject
		if d.Score >= 0.6 {
			d.Recommendation = model.RecommendationAccept
		}
	case model.ConfidenceMedium:
		switch {
		case d.Score >= 0.55:
			d.Recommendation = model.RecommendationAccept
		case d.Score <= 0.3:
			d.Recommendation = model.RecommendationReject
		default:
			d.Recommendation = model.RecommendationManualReview
		}
	default:
		d.Recommendation = model.RecommendationReject
		if d.Score >= 0.7 {
			d.Recommendation = model.RecommendationManualReview
		}
	}
	return d
}

func firstMatch(patterns []*regexp.Regexp, text string) string {
	for _, re := range patterns {
		if m := re.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

func appendUnique(list []string, values ...string) []string {
	for _, v := range values {
		found := false
		for _, existing := range list {
			if existing == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

func clamp01(v float64) float64 {
	return max(0, min(1, v))
}
