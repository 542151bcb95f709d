package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"intaker/internal/asam"
	"intaker/internal/model"
	"intaker/internal/repository"
	"intaker/internal/seal"
)

// AssessmentService exposes unsealed evaluations and treatment plans to
// clinicians. It is the only reader of sealed records; everything else
// treats them as opaque.
type AssessmentService struct {
	assessmentRepo repository.AssessmentRepo
	sealer         *seal.Sealer
	planner        *PlannerService
}

// NewAssessmentService creates a new assessment service
func NewAssessmentService(assessmentRepo repository.AssessmentRepo, sealer *seal.Sealer, planner *PlannerService) *AssessmentService {
	return &AssessmentService{
		assessmentRepo: assessmentRepo,
		sealer:         sealer,
		planner:        planner,
	}
}

// GetAssessment unseals and verifies the stored evaluation for a
// session. Returns nil when no evaluation exists yet.
func (s *AssessmentService) GetAssessment(ctx context.Context, sessionID string) (*model.Assessment, error) {
	eval, err := s.assessmentRepo.GetEvaluation(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if eval == nil {
		return nil, nil
	}

	scoresJSON, err := s.sealer.DecryptField(eval.Scores)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal scores: %w", err)
	}
	locText, err := s.sealer.DecryptField(eval.LevelOfCare)
	if err != nil {
		return nil, fmt.Errorf("failed to unseal level of care: %w", err)
	}

	if err := s.sealer.Verify(map[string]string{
		"session_id":    sessionID,
		"scores":        scoresJSON,
		"level_of_care": locText,
	}, eval.Signature); err != nil {
		return nil, fmt.Errorf("evaluation integrity check failed: %w", err)
	}

	var scores asam.DimensionScores
	if err := json.Unmarshal([]byte(scoresJSON), &scores); err != nil {
		return nil, fmt.Errorf("failed to decode scores: %w", err)
	}

	loc := asam.LevelOfCare(locText)
	return &model.Assessment{
		SessionID:   sessionID,
		Scores:      scores,
		LevelOfCare: loc,
		LevelCode:   loc.Code(),
		Version:     eval.Version,
		UpdatedAt:   eval.UpdatedAt,
	}, nil
}

// GeneratePlan builds a treatment plan for the session's current
// assessment and stores it. Intended to run in the background.
func (s *AssessmentService) GeneratePlan(ctx context.Context, sessionID string) {
	assessment, err := s.GetAssessment(ctx, sessionID)
	if err != nil || assessment == nil {
		log.Printf("Plan generation skipped for session %s: no assessment", sessionID)
		return
	}

	plan := &model.TreatmentPlan{
		SessionID: sessionID,
		Status:    model.PlanGenerating,
		Model:     s.planner.Model(),
		CreatedAt: time.Now(),
	}
	if err := s.assessmentRepo.UpsertPlan(ctx, plan); err != nil {
		log.Printf("Failed to store plan placeholder for session %s: %v", sessionID, err)
		return
	}

	content, err := s.planner.GeneratePlan(ctx, assessment.Scores, assessment.LevelOfCare)
	if err != nil {
		plan.Status = model.PlanFailed
	} else {
		now := time.Now()
		plan.Content = content
		plan.Status = model.PlanReady
		plan.ReadyAt = &now
	}

	if err := s.assessmentRepo.UpsertPlan(ctx, plan); err != nil {
		log.Printf("Failed to store plan for session %s: %v", sessionID, err)
	}
}

// GetPlan returns the stored treatment plan, or nil when none exists.
func (s *AssessmentService) GetPlan(ctx context.Context, sessionID string) (*model.TreatmentPlan, error) {
	return s.assessmentRepo.GetPlan(ctx, sessionID)
}
