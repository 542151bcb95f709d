package asam

import (
	"strings"
	"testing"
)

func TestEvaluateSafetyGateDetection(t *testing.T) {
	tests := []struct {
		name      string
		utterance string
		triggered bool
	}{
		{"suicidal ideation", "lately I feel suicidal", true},
		{"kill myself phrasing", "sometimes I want to kill myself", true},
		{"self harm", "I have been cutting myself", true},
		{"overdose", "I think I took too many last night", true},
		{"abuse", "my partner hit me again", true},
		{"od abbreviation", "I might OD", true},
		{"benign", "I had a sandwich for lunch", false},
		{"empty", "", false},
		{"oddly is not od", "this is oddly specific", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := EvaluateSafetyGate(tt.utterance, "")
			if result.Triggered != tt.triggered {
				t.Errorf("Triggered = %v, want %v", result.Triggered, tt.triggered)
			}
			if !tt.triggered && result.Instruction != "" {
				t.Errorf("untriggered gate returned instruction %q", result.Instruction)
			}
		})
	}
}

func TestEvaluateSafetyGateInstructionContent(t *testing.T) {
	result := EvaluateSafetyGate("I want to die", "")
	if !result.Triggered {
		t.Fatal("expected gate to trigger")
	}
	for _, want := range []string{
		"HIGH-RISK SAFETY OVERRIDE",
		"STOP the normal script flow",
		"ACKNOWLEDGE",
		"triage",
	} {
		if !strings.Contains(result.Instruction, want) {
			t.Errorf("instruction missing %q", want)
		}
	}
}

func TestEvaluateSafetyGateReferencesEscalationProtocol(t *testing.T) {
	with := EvaluateSafetyGate("I want to die", "call the crisis line")
	without := EvaluateSafetyGate("I want to die", "")

	if !strings.Contains(with.Instruction, "escalation_protocols") {
		t.Error("instruction does not reference the supplied escalation protocol")
	}
	if strings.Contains(without.Instruction, "escalation_protocols") {
		t.Error("instruction references a protocol when none was supplied")
	}
}

func TestEvaluateSafetyGateNeverEchoesUtterance(t *testing.T) {
	utterance := "I want to die and my name is UNIQUE-MARKER-12345"
	result := EvaluateSafetyGate(utterance, "protocol text")
	if strings.Contains(result.Instruction, "UNIQUE-MARKER-12345") {
		t.Fatal("override instruction leaked the raw utterance")
	}
}

func TestEvaluateSafetyGateStateless(t *testing.T) {
	// A triggering turn must not bleed into the next evaluation.
	if got := EvaluateSafetyGate("I feel suicidal", ""); !got.Triggered {
		t.Fatal("expected first turn to trigger")
	}
	if got := EvaluateSafetyGate("feeling a bit better today", ""); got.Triggered {
		t.Fatal("gate carried state across turns")
	}
}
