package analysis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultThresholdsAreValid(t *testing.T) {
	require.NoError(t, ValidateThresholds(DefaultThresholds()))
}

func TestValidateThresholds_CollectsAllProblems(t *testing.T) {
	th := DefaultThresholds()
	th.HealthMinCoverage = -1
	th.CoverageWeight = 120
	th.ExpiredPenalty = -3
	th.UpcomingWindowDays = 0
	th.DiversityMinCategories = 0

	err := ValidateThresholds(th)
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, "health_min_coverage must be >= 0")
	assert.Contains(t, msg, "coverage_weight must be between 0 and 100")
	assert.Contains(t, msg, "expired_penalty must be between 0 and 100")
	assert.Contains(t, msg, "upcoming_window_days must be >= 1")
	assert.Contains(t, msg, "diversity_min_categories must be >= 1")
}
