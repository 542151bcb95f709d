package model

import (
	"time"

	"intaker/internal/asam"
)

// SealedEvaluation is the persisted form of a clinical evaluation.
// Scores and level of care are stored as field-level ciphertext; the
// signature covers the canonicalized plaintext so the record can be
// verified after decryption.
type SealedEvaluation struct {
	SessionID   string    `json:"sessionId" bson:"_id"`
	Scores      string    `json:"scores" bson:"scores"`           // AES-GCM ciphertext, base64
	LevelOfCare string    `json:"levelOfCare" bson:"levelOfCare"` // AES-GCM ciphertext, base64
	Signature   string    `json:"signature" bson:"signature"`
	Version     int       `json:"version" bson:"version"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// Assessment is the unsealed evaluation returned to clinicians.
type Assessment struct {
	SessionID   string               `json:"sessionId"`
	Scores      asam.DimensionScores `json:"scores"`
	LevelOfCare asam.LevelOfCare     `json:"levelOfCare"`
	LevelCode   float64              `json:"levelCode"`
	Version     int                  `json:"version"`
	UpdatedAt   time.Time            `json:"updatedAt"`
}

type PlanStatus string

const (
	PlanGenerating PlanStatus = "generating"
	PlanReady      PlanStatus = "ready"
	PlanFailed     PlanStatus = "failed"
)

// TreatmentPlan is the generated plan summary for a session.
type TreatmentPlan struct {
	SessionID string     `json:"sessionId" bson:"_id"`
	Content   string     `json:"content,omitempty" bson:"content,omitempty"` // markdown
	Model     string     `json:"model,omitempty" bson:"model,omitempty"`
	Status    PlanStatus `json:"status" bson:"status"`
	CreatedAt time.Time  `json:"createdAt" bson:"createdAt"`
	ReadyAt   *time.Time `json:"readyAt,omitempty" bson:"readyAt,omitempty"`
}
