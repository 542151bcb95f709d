package service

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"intaker/internal/asam"
	"intaker/internal/cache"
	"intaker/internal/model"
	"intaker/internal/repository"
	"intaker/internal/seal"
)

// emergencyStopResponse replaces the scripted reply when dimension 3
// reaches severe. Static text only; it must never quote the patient.
const emergencyStopResponse = "I'm concerned about your safety right now, and that matters more than " +
	"anything else we were talking about. I'm pausing the intake questions so we can focus on getting " +
	"you immediate support. A clinician has been notified."

var intakeDataRe = regexp.MustCompile(`\[INTAKE_DATA:\s*([^\]]+)\]`)

// IntakeService runs intake sessions: it accumulates structured answers
// from chat turns, scores them, seals the resulting evaluation, and
// halts the script on severe psychological risk. The voice pipeline
// feeds transcript turns through the same service.
type IntakeService struct {
	sessionRepo    repository.SessionRepo
	assessmentRepo repository.AssessmentRepo
	auditRepo      repository.AuditRepo
	sessionCache   cache.SessionCache
	evalCache      cache.EvaluationCache
	scriptSvc      *ScriptService
	authSvc        *AuthService
	sealer         *seal.Sealer
	broadcaster    Broadcaster
}

// NewIntakeService creates a new intake service
func NewIntakeService(
	sessionRepo repository.SessionRepo,
	assessmentRepo repository.AssessmentRepo,
	auditRepo repository.AuditRepo,
	sessionCache cache.SessionCache,
	evalCache cache.EvaluationCache,
	scriptSvc *ScriptService,
	authSvc *AuthService,
	sealer *seal.Sealer,
) *IntakeService {
	return &IntakeService{
		sessionRepo:    sessionRepo,
		assessmentRepo: assessmentRepo,
		auditRepo:      auditRepo,
		sessionCache:   sessionCache,
		evalCache:      evalCache,
		scriptSvc:      scriptSvc,
		authSvc:        authSvc,
		sealer:         sealer,
	}
}

// SetBroadcaster sets the broadcaster for WebSocket events
func (s *IntakeService) SetBroadcaster(b Broadcaster) {
	s.broadcaster = b
}

// StartSession creates an intake session and mints the patient token
// that authorizes chat and voice access to it.
func (s *IntakeService) StartSession(ctx context.Context, clinicianID string, req *model.StartSessionRequest) (*model.StartSessionResponse, error) {
	if req.PatientID == "" {
		return nil, fmt.Errorf("patient id is required")
	}

	scriptID := req.ScriptID
	if scriptID == "" {
		if script, err := s.scriptSvc.GetActive(ctx); err == nil && script != nil {
			scriptID = script.ScriptID
		}
	}

	session := &model.IntakeSession{
		ID:          uuid.New().String(),
		PatientID:   req.PatientID,
		ClinicianID: clinicianID,
		ScriptID:    scriptID,
		Status:      model.SessionActive,
		ProgressMap: asam.ProgressMap{},
		StartedAt:   time.Now(),
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		log.Printf("session cache set failed: %v", err)
	}

	token, err := s.authSvc.GeneratePatientToken(session.ID, session.PatientID)
	if err != nil {
		return nil, fmt.Errorf("failed to mint patient token: %w", err)
	}

	s.audit(ctx, model.AuditSessionStarted, session.ID, map[string]string{"scriptId": scriptID})

	return &model.StartSessionResponse{
		Session:      session,
		PatientToken: token,
	}, nil
}

// GetSession loads a session, cache first.
func (s *IntakeService) GetSession(ctx context.Context, sessionID string) (*model.IntakeSession, error) {
	if cached, err := s.sessionCache.Get(ctx, sessionID); err == nil && cached != nil {
		return cached, nil
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		log.Printf("session cache set failed: %v", err)
	}
	return session, nil
}

// EndSession marks a session completed.
func (s *IntakeService) EndSession(ctx context.Context, sessionID string) error {
	if err := s.sessionRepo.End(ctx, sessionID, model.SessionCompleted); err != nil {
		return err
	}
	if err := s.sessionCache.Delete(ctx, sessionID); err != nil {
		log.Printf("session cache delete failed: %v", err)
	}
	s.audit(ctx, model.AuditSessionEnded, sessionID, nil)
	if s.broadcaster != nil {
		s.broadcaster.DisconnectSession(sessionID)
	}
	return nil
}

// HandleMessage processes one patient chat turn: extract structured
// answers, re-score, seal, and decide between normal flow, a safety
// override, and a hard emergency stop.
func (s *IntakeService) HandleMessage(ctx context.Context, sessionID, content string) (*model.ChatMessageResponse, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}
	if session.Status != model.SessionActive {
		return nil, fmt.Errorf("session is not active (status: %s)", session.Status)
	}

	if session.ProgressMap == nil {
		session.ProgressMap = asam.ProgressMap{}
	}
	for k, v := range parseIntakeData(content) {
		session.ProgressMap[k] = v
	}
	session.Turns++

	scores, loc := s.scoreProgress(ctx, session.ProgressMap)
	if err := s.sealAndStore(ctx, sessionID, scores, loc); err != nil {
		return nil, err
	}

	// Severe psychological risk halts the script before any model call.
	if scores[asam.D3Emotional] >= asam.SeveritySevere {
		session.Status = model.SessionEmergencyStop
		if err := s.sessionRepo.End(ctx, sessionID, model.SessionEmergencyStop); err != nil {
			log.Printf("failed to mark emergency stop: %v", err)
		}
		if err := s.sessionCache.Set(ctx, session); err != nil {
			log.Printf("session cache set failed: %v", err)
		}
		s.audit(ctx, model.AuditEmergencyStop, sessionID, map[string]string{"dimension": string(asam.D3Emotional)})
		s.notifyClinician(sessionID, "safety_override", map[string]interface{}{
			"sessionId": sessionID,
			"reason":    "emergency_stop",
		})
		return &model.ChatMessageResponse{
			Response:      emergencyStopResponse,
			EmergencyStop: true,
			Scores:        scores,
			LevelOfCare:   loc,
		}, nil
	}

	if err := s.sessionRepo.Update(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to update session: %w", err)
	}
	if err := s.sessionCache.Set(ctx, session); err != nil {
		log.Printf("session cache set failed: %v", err)
	}

	s.notifyClinician(sessionID, "score_update", map[string]interface{}{
		"sessionId":   sessionID,
		"scores":      scores,
		"levelOfCare": loc,
	})

	// Per-utterance safety gate, independent of the numeric scores.
	if override := asam.EvaluateSafetyGate(content, s.scriptSvc.EscalationProtocolText(ctx)); override.Triggered {
		s.audit(ctx, model.AuditSafetyOverride, sessionID, map[string]string{"source": "chat"})
		s.notifyClinician(sessionID, "safety_override", map[string]interface{}{
			"sessionId": sessionID,
			"reason":    "high_risk_phrase",
		})
		return &model.ChatMessageResponse{
			Response:      override.Instruction,
			EmergencyStop: false,
			Scores:        scores,
			LevelOfCare:   loc,
		}, nil
	}

	return &model.ChatMessageResponse{
		Response:    "Thank you for sharing that. Let's continue with the next part of the intake.",
		Scores:      scores,
		LevelOfCare: loc,
	}, nil
}

// EvaluateTranscriptTurn scores one voice-pipeline utterance with the
// keyword scorer and runs the safety gate over it. The utterance itself
// is never logged or echoed.
func (s *IntakeService) EvaluateTranscriptTurn(ctx context.Context, sessionID, text string) (*model.TranscriptTurnResult, error) {
	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("session not found")
	}
	if session.Status != model.SessionActive {
		return nil, fmt.Errorf("session is not active (status: %s)", session.Status)
	}

	scores, loc := s.scoreTranscript(ctx, text)
	if err := s.sealAndStore(ctx, sessionID, scores, loc); err != nil {
		return nil, err
	}

	result := &model.TranscriptTurnResult{
		Scores:      scores,
		LevelOfCare: loc,
	}

	if override := asam.EvaluateSafetyGate(text, s.scriptSvc.EscalationProtocolText(ctx)); override.Triggered {
		result.SafetyTriggered = true
		result.OverrideInstruction = override.Instruction
		s.audit(ctx, model.AuditSafetyOverride, sessionID, map[string]string{"source": "voice"})
		s.notifyClinician(sessionID, "safety_override", map[string]interface{}{
			"sessionId": sessionID,
			"reason":    "high_risk_phrase",
		})
	}

	s.notifyClinician(sessionID, "score_update", map[string]interface{}{
		"sessionId":   sessionID,
		"scores":      scores,
		"levelOfCare": loc,
	})

	return result, nil
}

// AuditTrail returns the session's audit events, newest-last. Events
// carry metadata only, so the trail is safe to show clinicians.
func (s *IntakeService) AuditTrail(ctx context.Context, sessionID string) ([]*model.AuditEvent, error) {
	return s.auditRepo.ListBySession(ctx, sessionID)
}

// scoreProgress runs the structured pipeline with memoization.
func (s *IntakeService) scoreProgress(ctx context.Context, progress asam.ProgressMap) (asam.DimensionScores, asam.LevelOfCare) {
	fingerprint := cache.FingerprintProgress(progress)
	if cached, err := s.evalCache.Get(ctx, fingerprint); err == nil && cached != nil {
		return cached.Scores, cached.LevelOfCare
	}

	scores := asam.ScoreProgressMap(progress)
	loc := asam.ResolveLevelOfCare(scores, asam.StrategyWeighted)

	if err := s.evalCache.Set(ctx, fingerprint, &cache.CachedEvaluation{Scores: scores, LevelOfCare: loc}); err != nil {
		log.Printf("evaluation cache set failed: %v", err)
	}
	return scores, loc
}

// scoreTranscript runs the transcript pipeline with memoization.
func (s *IntakeService) scoreTranscript(ctx context.Context, text string) (asam.DimensionScores, asam.LevelOfCare) {
	fingerprint := cache.FingerprintTranscript(text)
	if cached, err := s.evalCache.Get(ctx, fingerprint); err == nil && cached != nil {
		return cached.Scores, cached.LevelOfCare
	}

	scores := asam.ScoreTranscript(text)
	loc := asam.ResolveLevelOfCare(scores, asam.StrategyMax)

	if err := s.evalCache.Set(ctx, fingerprint, &cache.CachedEvaluation{Scores: scores, LevelOfCare: loc}); err != nil {
		log.Printf("evaluation cache set failed: %v", err)
	}
	return scores, loc
}

// sealAndStore encrypts the evaluation fields, signs the canonical
// plaintext, and upserts the sealed record.
func (s *IntakeService) sealAndStore(ctx context.Context, sessionID string, scores asam.DimensionScores, loc asam.LevelOfCare) error {
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return fmt.Errorf("failed to encode scores: %w", err)
	}

	encScores, err := s.sealer.EncryptField(string(scoresJSON))
	if err != nil {
		return fmt.Errorf("failed to seal scores: %w", err)
	}
	encLOC, err := s.sealer.EncryptField(string(loc))
	if err != nil {
		return fmt.Errorf("failed to seal level of care: %w", err)
	}
	signature, err := s.sealer.Sign(map[string]string{
		"session_id":    sessionID,
		"scores":        string(scoresJSON),
		"level_of_care": string(loc),
	})
	if err != nil {
		return fmt.Errorf("failed to sign evaluation: %w", err)
	}

	eval := &model.SealedEvaluation{
		SessionID:   sessionID,
		Scores:      encScores,
		LevelOfCare: encLOC,
		Signature:   signature,
	}
	if err := s.assessmentRepo.UpsertEvaluation(ctx, eval); err != nil {
		return fmt.Errorf("failed to store evaluation: %w", err)
	}

	s.audit(ctx, model.AuditEvaluationSealed, sessionID, nil)
	return nil
}

func (s *IntakeService) notifyClinician(sessionID, msgType string, payload map[string]interface{}) {
	if s.broadcaster != nil {
		s.broadcaster.BroadcastToClinician(sessionID, msgType, payload)
	}
}

func (s *IntakeService) audit(ctx context.Context, eventType model.AuditEventType, sessionID string, detail map[string]string) {
	err := s.auditRepo.Append(ctx, &model.AuditEvent{
		Type:      eventType,
		SessionID: sessionID,
		Detail:    detail,
	})
	if err != nil {
		log.Printf("audit append failed for %s: %v", eventType, err)
	}
}

// parseIntakeData extracts structured answers embedded in a message as
// [INTAKE_DATA: key=value, key=value]. Values stay strings; numeric
// fields are parsed downstream by the scorer.
func parseIntakeData(content string) map[string]any {
	match := intakeDataRe.FindStringSubmatch(content)
	if match == nil {
		return nil
	}

	fields := make(map[string]any)
	for _, pair := range strings.Split(match[1], ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		fields[key] = value
	}
	return fields
}
