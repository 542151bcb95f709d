package asam

import (
	"regexp"
	"strings"
)

// Conservative high-risk phrase patterns covering suicidal ideation and
// self-harm, overdose, and abuse/violence. Matched text is used only to
// decide whether to fire; it must never appear in logs or output.
var highRiskPatterns = []string{
	`\b(suicid(al|e)|kill\s+myself|end\s+my\s+life|want\s+to\s+die)\b`,
	`\b(self[-\s]?harm|hurt(ing)?\s+myself|cut(ting)?\s+myself)\b`,
	`\b(overdose|od\b|took\s+too\s+many|pills)\b`,
	`\b(abuse|hit\s+me|beat\s+me|hurt\s+me)\b`,
}

var highRiskRe = regexp.MustCompile(`(?i)` + strings.Join(highRiskPatterns, "|"))

// SafetyOverride is the result of evaluating one utterance. When
// Triggered, Instruction carries the takeover directive for the
// consuming session; it is a pure function of the detection result and
// the escalation-protocol text, never of the utterance itself.
type SafetyOverride struct {
	Triggered   bool   `json:"triggered"`
	Instruction string `json:"instruction,omitempty"`
}

// ContainsHighRiskSymptom reports whether the text mentions high-risk
// clinical content. Callers must not log the text.
func ContainsHighRiskSymptom(text string) bool {
	if text == "" {
		return false
	}
	return highRiskRe.MatchString(text)
}

// EvaluateSafetyGate inspects a single utterance for high-risk phrasing
// and, on detection, returns the override instruction that suspends
// normal script flow. Evaluation is per turn: no state carries over
// from prior utterances.
func EvaluateSafetyGate(utterance, escalationProtocol string) SafetyOverride {
	if !ContainsHighRiskSymptom(utterance) {
		return SafetyOverride{}
	}
	return SafetyOverride{
		Triggered:   true,
		Instruction: buildOverrideInstruction(escalationProtocol),
	}
}

// buildOverrideInstruction assembles the strict takeover directive,
// referencing the active escalation protocol when one is supplied.
func buildOverrideInstruction(escalationProtocol string) string {
	protoHint := ""
	if escalationProtocol != "" {
		protoHint = "CONSULT THE 'escalation_protocols' IN YOUR CONTEXT immediately."
	}

	return strings.TrimSpace(
		"!!! HIGH-RISK SAFETY OVERRIDE !!!\n" +
			"You have detected a potential safety risk (suicide, self-harm, overdose, or violence).\n" +
			"1. STOP the normal script flow IMMEDIATELY.\n" +
			"2. ACKNOWLEDGE the user's distress with empathy, but DO NOT try to treat or solve it.\n" +
			"3. " + protoHint + "\n" +
			"4. Output the specific safety triage questions or handoff instructions required by the protocol.\n" +
			"5. Do NOT return to the normal script until the safety risk is fully triaged and resolved per protocol.\n" +
			"!!! END SAFETY OVERRIDE !!!")
}
