package asam

import "strings"

// keywordRule maps a transcript phrase to a dimension and severity.
type keywordRule struct {
	phrase   string
	dim      Dimension
	severity float64
}

// keywordRules is the production scoring table for transcript-driven
// assessment. Matching is deliberately substring containment, not
// whole-word: "hurt myself" must match inside a longer clause, and
// changing to word-boundary matching would change observable scores.
// "live in my car" is mapped to D6 (barriers) rather than D5 on
// purpose; do not move it.
var keywordRules = []keywordRule{
	// D1 - Intoxication/Withdrawal
	{"shaking", D1Intoxication, 2},
	{"tremors", D1Intoxication, 2},
	{"sweating", D1Intoxication, 2},
	{"nausea", D1Intoxication, 2},
	{"vomiting", D1Intoxication, 2},
	{"throwing up", D1Intoxication, 2},
	{"seizure", D1Intoxication, 4},
	{"seizures", D1Intoxication, 4},
	{"hallucinations", D1Intoxication, 4},
	{"hallucinating", D1Intoxication, 4},
	{"delirium", D1Intoxication, 4},
	{"blackout", D1Intoxication, 3},

	// D2 - Biomedical
	{"diabetes", D2Biomedical, 2},
	{"heart disease", D2Biomedical, 2},
	{"liver", D2Biomedical, 3},
	{"pregnant", D2Biomedical, 3},
	{"infection", D2Biomedical, 2},
	{"chronic pain", D2Biomedical, 2},
	{"unstable", D2Biomedical, 4},

	// D3 - Emotional/Behavioral
	{"suicidal", D3Emotional, 4},
	{"suicide", D3Emotional, 4},
	{"kill myself", D3Emotional, 4},
	{"hurt myself", D3Emotional, 3},
	{"better off dead", D3Emotional, 3},
	{"depressed", D3Emotional, 2},
	{"anxiety", D3Emotional, 2},
	{"panic", D3Emotional, 2},
	{"voices", D3Emotional, 4},
	{"hearing voices", D3Emotional, 4},
	{"psychosis", D3Emotional, 4},

	// D4 - Readiness (low readiness indicators)
	{"don't want help", D4Readiness, 4},
	{"forced", D4Readiness, 3},
	{"court ordered", D4Readiness, 2},
	{"not ready", D4Readiness, 3},
	{"denial", D4Readiness, 4},

	// D5 - Relapse/Environment
	{"unsafe", D5Relapse, 4},
	{"danger", D5Relapse, 4},
	{"violence", D5Relapse, 4},
	{"abusive", D5Relapse, 4},
	{"triggers", D5Relapse, 2},

	// D6 - Barriers (housing included here per script schema)
	{"homeless", D6Environment, 3},
	{"live in my car", D6Environment, 3},
	{"no money", D6Environment, 3},
	{"financial", D6Environment, 2},
	{"transportation", D6Environment, 2},
	{"no job", D6Environment, 2},
}

// ScoreTranscript deterministically maps raw conversation text to ASAM
// dimension scores. Each dimension holds the maximum severity of any
// matching phrase, so the result is independent of rule order. A text
// with no matches scores 0 on every dimension.
func ScoreTranscript(transcript string) DimensionScores {
	scores := NewDimensionScores()
	lower := strings.ToLower(transcript)

	for _, rule := range keywordRules {
		if strings.Contains(lower, rule.phrase) && rule.severity > scores[rule.dim] {
			scores[rule.dim] = rule.severity
		}
	}
	return scores
}
