package model

import "intaker/internal/asam"

// ChatMessageRequest is one patient turn in the chat pipeline.
type ChatMessageRequest struct {
	SessionID string `json:"sessionId"`
	Content   string `json:"content"`
}

// ChatMessageResponse carries the assistant reply for a turn. When
// EmergencyStop is set the normal script flow has been halted and
// Response holds the safety acknowledgment instead of script content.
// Scores and LevelOfCare reflect the evaluation after this turn.
type ChatMessageResponse struct {
	Response      string               `json:"response"`
	EmergencyStop bool                 `json:"emergencyStop"`
	Scores        asam.DimensionScores `json:"scores,omitempty"`
	LevelOfCare   asam.LevelOfCare     `json:"levelOfCare,omitempty"`
}

// TranscriptTurnRequest is one utterance from the voice pipeline.
type TranscriptTurnRequest struct {
	Text string `json:"text"`
}

// TranscriptTurnResult is the transcript-pipeline evaluation of a turn.
// OverrideInstruction is populated only when the safety gate fired; it
// never contains the utterance text.
type TranscriptTurnResult struct {
	Scores              asam.DimensionScores `json:"scores"`
	LevelOfCare         asam.LevelOfCare     `json:"levelOfCare"`
	SafetyTriggered     bool                 `json:"safetyTriggered"`
	OverrideInstruction string               `json:"overrideInstruction,omitempty"`
}
