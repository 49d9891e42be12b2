package payout

import (
	"fmt"
	"strconv"
)

const (
	// MinProjects is the liquidity threshold below which a category waits.
	MinProjects = 30
	// FixedModeMaxProjects is the largest N still served by the fixed tables.
	FixedModeMaxProjects = 120
	// FixedCohortSize is K in FixedTop10 mode.
	FixedCohortSize = 10
)

// SelectMode picks the cohort sizing mode for a category with nProjects entries.
func SelectMode(nProjects int) (Mode, error) {
	if nProjects < MinProjects {
		return "", fmt.Errorf("%w: %d projects, minimum is %d", ErrCategoryWaiting, nProjects, MinProjects)
	}
	if nProjects <= FixedModeMaxProjects {
		return ModeFixedTop10, nil
	}
	return ModeTopPercent, nil
}

// ComputeK returns the cohort size for the given mode. TopPercent uses
// ceil(0.10 * n) computed in integers.
func ComputeK(nProjects int, mode Mode) int {
	if mode == ModeFixedTop10 {
		return FixedCohortSize
	}
	return (nProjects + 9) / 10
}

// CategoryRuleVersion builds the rule version string of a category closure.
// A TopPercent closure weighted with a non-default alpha gets its own
// version, so the stamped rule always names the formula that produced it.
func CategoryRuleVersion(mode Mode, alpha float64) string {
	tag := mode.ruleTag()
	if mode == ModeTopPercent && alpha != DefaultAlpha {
		tag += "_alpha" + FormatAlpha(alpha)
	}
	return fmt.Sprintf("films_videos_docs_%s_40_30_7_23_v1", tag)
}

// FormatAlpha renders alpha in its shortest exact decimal form.
func FormatAlpha(alpha float64) string {
	return strconv.FormatFloat(alpha, 'f', -1, 64)
}
