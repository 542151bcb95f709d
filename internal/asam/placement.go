package asam

// LevelOfCare is a discrete treatment-intensity placement, ordered from
// least to most intensive.
type LevelOfCare string

const (
	LOCOutpatient              LevelOfCare = "Level 1.0: Outpatient Therapy"
	LOCIntensiveOutpatient     LevelOfCare = "Level 2.1: Intensive Outpatient"
	LOCHighIntensityOutpatient LevelOfCare = "Level 2.5: High-Intensity Outpatient"
	LOCResidential             LevelOfCare = "Level 3.7: Residential/Inpatient"
)

// Code returns the numeric ASAM level for the placement.
func (l LevelOfCare) Code() float64 {
	switch l {
	case LOCResidential:
		return 3.7
	case LOCHighIntensityOutpatient:
		return 2.5
	case LOCIntensiveOutpatient:
		return 2.1
	default:
		return 1.0
	}
}

// Tier returns the placement's rank for ordering comparisons, with
// higher meaning more intensive.
func (l LevelOfCare) Tier() int {
	switch l {
	case LOCResidential:
		return 3
	case LOCHighIntensityOutpatient:
		return 2
	case LOCIntensiveOutpatient:
		return 1
	default:
		return 0
	}
}

// Strategy selects how dimension scores aggregate into a placement.
type Strategy string

const (
	// StrategyWeighted is used by the structured-answer pipeline.
	StrategyWeighted Strategy = "weighted"
	// StrategyMax is used by the coarser transcript pipeline.
	StrategyMax Strategy = "max"
)

// Aggregation weights from the clinical script documentation.
const (
	weightMedical     = 0.30 // max(D1, D2)
	weightPsych       = 0.30 // D3
	weightSubstance   = 0.20 // D4
	weightEnvironment = 0.15 // D5
	weightBarriers    = 0.15 // D6
)

// ResolveLevelOfCare maps a score set to exactly one placement.
//
// Under StrategyWeighted, any single dimension at 4 forces the top tier
// regardless of the weighted aggregate: a catastrophic dimension must
// never be diluted by low scores elsewhere. An empty score set resolves
// to Outpatient, since no information must not imply high risk.
func ResolveLevelOfCare(scores DimensionScores, strategy Strategy) LevelOfCare {
	if len(scores) == 0 {
		return LOCOutpatient
	}

	if strategy == StrategyMax {
		switch m := scores.Max(); {
		case m >= 4:
			return LOCResidential
		case m >= 3:
			return LOCHighIntensityOutpatient
		case m >= 2:
			return LOCIntensiveOutpatient
		default:
			return LOCOutpatient
		}
	}

	overallRisk := maxf(scores[D1Intoxication], scores[D2Biomedical])*weightMedical +
		scores[D3Emotional]*weightPsych +
		scores[D4Readiness]*weightSubstance +
		scores[D5Relapse]*weightEnvironment +
		scores[D6Environment]*weightBarriers

	switch {
	case overallRisk >= 3.5 || scores.Max() >= 4:
		return LOCResidential
	case overallRisk >= 3.0:
		return LOCHighIntensityOutpatient
	case overallRisk >= 2.5:
		return LOCIntensiveOutpatient
	default:
		return LOCOutpatient
	}
}
