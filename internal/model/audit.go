package model

import "time"

type AuditEventType string

const (
	AuditSafetyOverride   AuditEventType = "safety_override"
	AuditEmergencyStop    AuditEventType = "emergency_stop"
	AuditEvaluationSealed AuditEventType = "evaluation_sealed"
	AuditScriptLoaded     AuditEventType = "script_loaded"
	AuditSessionStarted   AuditEventType = "session_started"
	AuditSessionEnded     AuditEventType = "session_ended"
)

// AuditEvent is an append-only audit record. Detail carries metadata
// only (identifiers, flags, versions); utterance text and answer values
// must never be written here.
type AuditEvent struct {
	ID        string            `json:"id" bson:"_id,omitempty"`
	Type      AuditEventType    `json:"type" bson:"type"`
	SessionID string            `json:"sessionId" bson:"sessionId"`
	Detail    map[string]string `json:"detail,omitempty" bson:"detail,omitempty"`
	CreatedAt time.Time         `json:"createdAt" bson:"createdAt"`
}
