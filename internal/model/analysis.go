package model

import "time"

// Rating is the overall verdict for a portfolio.
type Rating string

const (
	RatingBad     Rating = "Bad"
	RatingAverage Rating = "Average"
	RatingGood    Rating = "Good"
)

// RuleResult is a single rule's contribution to an analysis.
type RuleResult struct {
	Rule        string   `json:"rule"`
	ScoreDelta  int      `json:"scoreDelta"`
	Gaps        []string `json:"gaps,omitempty"`
	Suggestions []string `json:"suggestions,omitempty"`
	Strengths   []string `json:"strengths,omitempty"`
}

// PortfolioAnalysis is the final output of the analysis engine.
type PortfolioAnalysis struct {
	OverallRating Rating       `json:"overallRating"`
	Score         int          `json:"score"`
	CoverageGaps  []string     `json:"coverageGaps"`
	Suggestions   []string     `json:"suggestions"`
	Strengths     []string     `json:"strengths"`
	Rules         []RuleResult `json:"rules"`
	EvaluatedAt   time.Time    `json:"evaluatedAt"`
}
