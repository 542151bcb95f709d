package model

import "time"

// IntakeScript is a versioned intake script document. ScriptData holds
// the conversational flow; ScoringWeights and EscalationProtocols are
// extracted at upload time and consumed by the assessment pipeline.
type IntakeScript struct {
	ScriptID            string             `json:"scriptId" bson:"_id"`
	Version             int                `json:"version" bson:"version"`
	ScriptName          string             `json:"scriptName,omitempty" bson:"scriptName,omitempty"`
	Description         string             `json:"description,omitempty" bson:"description,omitempty"`
	ScriptData          map[string]any     `json:"scriptData" bson:"scriptData"`
	ScoringWeights      map[string]float64 `json:"scoringWeights" bson:"scoringWeights"`
	EscalationProtocols map[string]string  `json:"escalationProtocols" bson:"escalationProtocols"`
	Active              bool               `json:"active" bson:"active"`
	UpdatedAt           time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// EscalationProtocolText returns the high-risk protocol content used by
// the safety gate, or "" when the script carries none.
func (s *IntakeScript) EscalationProtocolText() string {
	if s == nil {
		return ""
	}
	return s.EscalationProtocols["high_risk"]
}
