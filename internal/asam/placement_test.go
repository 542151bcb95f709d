package asam

import "testing"

func flatScores(v float64) DimensionScores {
	s := NewDimensionScores()
	for _, d := range Dimensions {
		s[d] = v
	}
	return s
}

func TestResolveLevelOfCareWeighted(t *testing.T) {
	tests := []struct {
		name   string
		scores DimensionScores
		want   LevelOfCare
	}{
		{"all zero", flatScores(0), LOCOutpatient},
		{"uniform moderate risk is IOP", flatScores(2.5), LOCIntensiveOutpatient},
		{"uniform significant risk is high-intensity", flatScores(3.0), LOCHighIntensityOutpatient},
		{"uniform near-severe risk is residential", flatScores(3.5), LOCResidential},
		{"empty set is outpatient", DimensionScores{}, LOCOutpatient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ResolveLevelOfCare(tt.scores, StrategyWeighted); got != tt.want {
				t.Errorf("ResolveLevelOfCare = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestResolveLevelOfCareSingleSevereDimensionForcesTopTier(t *testing.T) {
	// One confirmed severe signal must never be diluted by low scores
	// elsewhere, in any dimension.
	for _, dim := range Dimensions {
		scores := flatScores(0)
		scores[dim] = 4
		if got := ResolveLevelOfCare(scores, StrategyWeighted); got != LOCResidential {
			t.Errorf("severe %s resolved to %q, want %q", dim, got, LOCResidential)
		}
		if got := ResolveLevelOfCare(scores, StrategyMax); got != LOCResidential {
			t.Errorf("severe %s (max strategy) resolved to %q, want %q", dim, got, LOCResidential)
		}
	}
}

func TestResolveLevelOfCareMaxStrategyBands(t *testing.T) {
	tests := []struct {
		max  float64
		want LevelOfCare
	}{
		{0, LOCOutpatient},
		{1, LOCOutpatient},
		{2, LOCIntensiveOutpatient},
		{3, LOCHighIntensityOutpatient},
		{4, LOCResidential},
	}
	for _, tt := range tests {
		scores := NewDimensionScores()
		scores[D5Relapse] = tt.max
		if got := ResolveLevelOfCare(scores, StrategyMax); got != tt.want {
			t.Errorf("max %v resolved to %q, want %q", tt.max, got, tt.want)
		}
	}
}

func TestResolveLevelOfCareMonotonic(t *testing.T) {
	// Raising any single dimension, holding the rest fixed, never lowers
	// the resolved tier.
	for _, strategy := range []Strategy{StrategyWeighted, StrategyMax} {
		for _, dim := range Dimensions {
			scores := flatScores(1.5)
			prev := ResolveLevelOfCare(scores, strategy)
			for v := 1.5; v <= 4.0; v += 0.5 {
				scores[dim] = v
				cur := ResolveLevelOfCare(scores, strategy)
				if cur.Tier() < prev.Tier() {
					t.Errorf("%s strategy: raising %s to %v lowered placement %q -> %q",
						strategy, dim, v, prev, cur)
				}
				prev = cur
			}
		}
	}
}

func TestLevelOfCareCodes(t *testing.T) {
	tests := []struct {
		loc  LevelOfCare
		code float64
	}{
		{LOCOutpatient, 1.0},
		{LOCIntensiveOutpatient, 2.1},
		{LOCHighIntensityOutpatient, 2.5},
		{LOCResidential, 3.7},
	}
	for _, tt := range tests {
		if got := tt.loc.Code(); got != tt.code {
			t.Errorf("%q code = %v, want %v", tt.loc, got, tt.code)
		}
	}
}
