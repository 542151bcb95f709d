package asam

// Dimension identifies one of the six ASAM assessment dimensions.
type Dimension string

const (
	D1Intoxication Dimension = "D1_INTOXICATION"
	D2Biomedical   Dimension = "D2_BIOMEDICAL"
	D3Emotional    Dimension = "D3_EMOTIONAL"
	D4Readiness    Dimension = "D4_READINESS"
	D5Relapse      Dimension = "D5_RELAPSE"
	D6Environment  Dimension = "D6_ENVIRONMENT"
)

// Dimensions lists all six dimensions in presentation order.
var Dimensions = []Dimension{
	D1Intoxication,
	D2Biomedical,
	D3Emotional,
	D4Readiness,
	D5Relapse,
	D6Environment,
}

// Severity bands on the 0-4 scale.
const (
	SeverityNone        = 0.0
	SeverityMild        = 1.0
	SeverityModerate    = 2.0
	SeveritySignificant = 3.0
	SeveritySevere      = 4.0
)

// DimensionScores maps every dimension to a severity in [0,4].
// A score set always carries all six keys; scorers return a fresh
// set per call and never mutate a caller's copy.
type DimensionScores map[Dimension]float64

// NewDimensionScores returns a score set with all six dimensions at zero.
func NewDimensionScores() DimensionScores {
	s := make(DimensionScores, len(Dimensions))
	for _, d := range Dimensions {
		s[d] = 0
	}
	return s
}

// Max returns the highest severity across all dimensions, or 0 for an
// empty set.
func (s DimensionScores) Max() float64 {
	var m float64
	for _, v := range s {
		if v > m {
			m = v
		}
	}
	return m
}

func clamp04(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 4 {
		return 4
	}
	return v
}
