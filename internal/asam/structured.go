package asam

import (
	"strconv"
	"strings"
)

// ProgressMap holds collected intake answers keyed by question/field
// identifier (e.g. "D1_Q5A", "suicidal_ideation_screen"). Values arrive
// from the intake session as strings, numbers, or "Yes"/"No" strings.
// Unknown keys are treated as absent; type-mismatched values degrade to
// a neutral contribution instead of failing the assessment.
type ProgressMap map[string]any

// text returns the value as a string, or "" when absent or not a string.
func (p ProgressMap) text(key string) string {
	if s, ok := p[key].(string); ok {
		return s
	}
	return ""
}

// number parses the value as a float, degrading to 0 on any failure.
func (p ProgressMap) number(key string) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0
		}
		return f
	default:
		return 0
	}
}

// present reports whether the key carries a non-empty answer.
func (p ProgressMap) present(key string) bool {
	switch v := p[key].(type) {
	case string:
		return v != ""
	case bool:
		return v
	case float64:
		return v != 0
	case float32:
		return v != 0
	case int:
		return v != 0
	case int64:
		return v != 0
	case nil:
		return false
	default:
		return true
	}
}

// ScoreProgressMap converts collected intake answers into 0-4 risk
// scores for each ASAM dimension. Every dimension combines its signals
// with max, never an average: a single severe indicator dominates.
// Malformed numeric answers score 0 rather than erroring, so a garbled
// field can never abort an in-progress assessment.
func ScoreProgressMap(progress ProgressMap) DimensionScores {
	scores := NewDimensionScores()

	// Dimension 1: Intoxication & Withdrawal.
	// Self-reported 0-10 intensity rescaled onto the 0-4 scale.
	intoxScore := progress.number("D1_Q5A") / 2.5
	if progress.text("critical_intoxication") == "Yes" {
		intoxScore = 4.0
	}

	withdrawalScore := 0.0
	if progress.text("history_severe_withdrawal") == "Yes" || progress.text("critical_withdrawal") == "Yes" {
		withdrawalScore = 4.0
	} else if progress.present("withdrawal_symptoms_self_report") {
		withdrawalScore = 3.0
	}
	scores[D1Intoxication] = clamp04(max3(intoxScore, withdrawalScore, progress.number("D1_score")))

	// Dimension 2: Biomedical.
	d2 := 0.0
	if progress.text("biomedical_condition_treatment_status") == "unstable" {
		d2 = 4.0
	} else if progress.text("biomedical_conditions") == "Yes" {
		d2 = 2.0
	}
	if progress.text("pregnancy_status") == "Yes" {
		d2 = minf(4.0, d2+1.0)
	}
	scores[D2Biomedical] = clamp04(maxf(d2, progress.number("D2_score")))

	// Dimension 3: Emotional, Behavioral, Cognitive.
	d3 := 0.0
	if progress.text("suicidal_ideation_screen") == "Yes" || progress.text("psychosis_screen") == "Yes" {
		d3 = 4.0
	} else if progress.text("phq2_depression_q1_q2") == "Yes" || progress.text("trauma_history_screen") == "Yes" {
		d3 = 3.0
	}
	if progress.text("cognitive_functioning_screen") == "Yes" {
		d3 = minf(4.0, d3+1.0)
	}
	scores[D3Emotional] = clamp04(maxf(d3, progress.number("D3_score")))

	// Dimension 4: Readiness to Change. Low readiness is the default
	// worst case when importance is not endorsed.
	importance := progress.number("change_importance_score")
	confidence := progress.number("change_confidence_score")

	var d4 float64
	switch {
	case importance > 7 && confidence > 7 && progress.present("past_change_attempts"):
		d4 = 1.0
	case importance > 5:
		d4 = 2.0
	default:
		d4 = 4.0
	}
	if progress.text("risky_behaviors_substance_use") == "Yes" {
		d4 = minf(4.0, d4+1.0)
	}
	scores[D4Readiness] = clamp04(d4)

	// Dimension 5: Recovery Environment.
	safety := progress.text("environment_safety_triggers")
	support := progress.text("social_support_system")

	var d5 float64
	switch {
	case safety == "unsafe_imminent_danger" || (safety == "No" && support == "No"):
		d5 = 4.0
	case safety == "No" || support == "No" || progress.text("life_stressors_recovery") == "Yes":
		d5 = 3.0
	case safety == "Yes" && support == "Yes":
		d5 = 1.0
	default:
		// Ambiguous or missing answers land in the middle.
		d5 = 2.0
	}
	scores[D5Relapse] = clamp04(d5)

	// Dimension 6: Barriers and Preferences.
	d6 := 1.0
	if progress.text("treatment_barriers") == "Yes" {
		d6 = 3.0
	}
	if progress.present("patient_strengths_resources") {
		d6 = maxf(0.0, d6-1.0)
	}
	scores[D6Environment] = clamp04(d6)

	return scores
}

func maxf(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

func max3(a, b, c float64) float64 {
	return maxf(maxf(a, b), c)
}

func minf(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
