package analysis

import (
	"time"

	"PolicyScan/internal/model"
)

// ratingBands maps a clamped score to a rating, walked top-down.
var ratingBands = [...]struct {
	minScore int
	rating   model.Rating
}{
	{70, model.RatingGood},
	{40, model.RatingAverage},
}

// belowBands applies to scores below every band.
const belowBands = model.RatingBad

const (
	minScore = 0
	maxScore = 100
)

// mapRating maps a clamped score to its rating.
func mapRating(score int) model.Rating {
	for _, r := range ratingBands {
		if score >= r.minScore {
			return r.rating
		}
	}
	return belowBands
}

func clamp(score int) int {
	if score < minScore {
		return minScore
	}
	if score > maxScore {
		return maxScore
	}
	return score
}

// Engine evaluates an ordered rule set over a portfolio.
type Engine struct {
	Thresholds Thresholds
	Rules      []Rule
}

// NewEngine creates an Engine running DefaultRules(t).
func NewEngine(t Thresholds) *Engine {
	return &Engine{Thresholds: t, Rules: DefaultRules(t)}
}

var defaultEngine = NewEngine(DefaultThresholds())

// Analyze runs the default rule set. See (*Engine).Analyze.
func Analyze(policies []model.PolicyRecord, now time.Time) *model.PortfolioAnalysis {
	return defaultEngine.Analyze(policies, now)
}

// Analyze computes the portfolio analysis. now is the single reference time used by
// every expiry comparison. The input slice is never modified.
func (e *Engine) Analyze(policies []model.PolicyRecord, now time.Time) *model.PortfolioAnalysis {
	p := NewPortfolio(policies, now)

	out := &model.PortfolioAnalysis{
		CoverageGaps: []string{},
		Suggestions:  []string{},
		Strengths:    []string{},
		Rules:        make([]model.RuleResult, 0, len(e.Rules)),
		EvaluatedAt:  now,
	}

	// Clamping happens once, after every rule has contributed.
	score := 0
	for _, r := range e.Rules {
		res := r.Evaluate(p)
		score += res.ScoreDelta
		out.CoverageGaps = append(out.CoverageGaps, res.Gaps...)
		out.Suggestions = append(out.Suggestions, res.Suggestions...)
		out.Strengths = append(out.Strengths, res.Strengths...)
		out.Rules = append(out.Rules, res)
	}

	out.Score = clamp(score)
	out.OverallRating = mapRating(out.Score)
	return out
}

// Evaluate validates policies and then analyzes them, failing fast on malformed input.
func (e *Engine) Evaluate(policies []model.PolicyRecord, now time.Time) (*model.PortfolioAnalysis, error) {
	if err := ValidatePolicies(policies); err != nil {
		return nil, err
	}
	return e.Analyze(policies, now), nil
}
