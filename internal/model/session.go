package model

import (
	"time"

	"intaker/internal/asam"
)

type SessionStatus string

const (
	SessionActive        SessionStatus = "active"
	SessionEmergencyStop SessionStatus = "emergency_stop"
	SessionCompleted     SessionStatus = "completed"
)

// IntakeSession is one patient intake conversation. The progress map
// accumulates structured answers extracted from the conversation; the
// scoring engine reads it but never mutates it.
type IntakeSession struct {
	ID          string           `json:"id" bson:"_id"`
	PatientID   string           `json:"patientId" bson:"patientId"`
	ClinicianID string           `json:"clinicianId" bson:"clinicianId"`
	ScriptID    string           `json:"scriptId" bson:"scriptId"`
	Status      SessionStatus    `json:"status" bson:"status"`
	ProgressMap asam.ProgressMap `json:"-" bson:"progressMap"`
	Turns       int              `json:"turns" bson:"turns"`
	StartedAt   time.Time        `json:"startedAt" bson:"startedAt"`
	EndedAt     *time.Time       `json:"endedAt,omitempty" bson:"endedAt,omitempty"`
}

// StartSessionRequest is the request body for creating an intake session
type StartSessionRequest struct {
	PatientID string `json:"patientId"`
	ScriptID  string `json:"scriptId,omitempty"`
}

// StartSessionResponse returns the new session and the patient token
// that authorizes chat and voice access to it.
type StartSessionResponse struct {
	Session      *IntakeSession `json:"session"`
	PatientToken string         `json:"patientToken"`
}
