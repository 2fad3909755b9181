package analysis

import (
	"strings"

	"github.com/rotisserie/eris"
)

// Thresholds holds every tunable number of the rule set.
type Thresholds struct {
	HealthMinCoverage      float64 `yaml:"health_min_coverage" mapstructure:"health_min_coverage"`
	LifeMinCoverage        float64 `yaml:"life_min_coverage" mapstructure:"life_min_coverage"`
	CoverageWeight         int     `yaml:"coverage_weight" mapstructure:"coverage_weight"`
	PresenceWeight         int     `yaml:"presence_weight" mapstructure:"presence_weight"`
	ExpiredPenalty         int     `yaml:"expired_penalty" mapstructure:"expired_penalty"`
	UpcomingWindowDays     int     `yaml:"upcoming_window_days" mapstructure:"upcoming_window_days"`
	DiversityMinCategories int     `yaml:"diversity_min_categories" mapstructure:"diversity_min_categories"`
	DiversityBonus         int     `yaml:"diversity_bonus" mapstructure:"diversity_bonus"`
	PremiumBonus           int     `yaml:"premium_bonus" mapstructure:"premium_bonus"`
}

// DefaultThresholds returns the standard rule set parameters.
// Maximum reachable score: 25+25+15+15+10+5 = 95.
func DefaultThresholds() Thresholds {
	return Thresholds{
		HealthMinCoverage:      300_000,
		LifeMinCoverage:        500_000,
		CoverageWeight:         25,
		PresenceWeight:         15,
		ExpiredPenalty:         10,
		UpcomingWindowDays:     30,
		DiversityMinCategories: 3,
		DiversityBonus:         10,
		PremiumBonus:           5,
	}
}

// ValidateThresholds checks that a Thresholds value is internally consistent.
func ValidateThresholds(t Thresholds) error {
	var errs []string

	if t.HealthMinCoverage < 0 {
		errs = append(errs, "health_min_coverage must be >= 0")
	}
	if t.LifeMinCoverage < 0 {
		errs = append(errs, "life_min_coverage must be >= 0")
	}

	weights := []struct {
		name  string
		value int
	}{
		{"coverage_weight", t.CoverageWeight},
		{"presence_weight", t.PresenceWeight},
		{"expired_penalty", t.ExpiredPenalty},
		{"diversity_bonus", t.DiversityBonus},
		{"premium_bonus", t.PremiumBonus},
	}
	for _, w := range weights {
		if w.value < 0 || w.value > 100 {
			errs = append(errs, w.name+" must be between 0 and 100")
		}
	}

	if t.UpcomingWindowDays < 1 {
		errs = append(errs, "upcoming_window_days must be >= 1")
	}
	if t.DiversityMinCategories < 1 {
		errs = append(errs, "diversity_min_categories must be >= 1")
	}

	if len(errs) > 0 {
		return eris.Errorf("analysis: thresholds validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
