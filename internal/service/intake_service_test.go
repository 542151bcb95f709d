package service

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"strings"
	"testing"

	"intaker/internal/asam"
	"intaker/internal/cache"
	"intaker/internal/model"
	"intaker/internal/seal"
)

// In-memory fakes for the repository and cache interfaces.

type fakeSessionRepo struct {
	sessions map[string]*model.IntakeSession
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*model.IntakeSession)}
}

func (r *fakeSessionRepo) Create(ctx context.Context, session *model.IntakeSession) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) GetByID(ctx context.Context, id string) (*model.IntakeSession, error) {
	session, ok := r.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (r *fakeSessionRepo) Update(ctx context.Context, session *model.IntakeSession) error {
	copied := *session
	r.sessions[session.ID] = &copied
	return nil
}

func (r *fakeSessionRepo) End(ctx context.Context, id string, status model.SessionStatus) error {
	if session, ok := r.sessions[id]; ok {
		session.Status = status
	}
	return nil
}

type fakeAssessmentRepo struct {
	evaluations map[string]*model.SealedEvaluation
	plans       map[string]*model.TreatmentPlan
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{
		evaluations: make(map[string]*model.SealedEvaluation),
		plans:       make(map[string]*model.TreatmentPlan),
	}
}

func (r *fakeAssessmentRepo) UpsertEvaluation(ctx context.Context, eval *model.SealedEvaluation) error {
	if existing, ok := r.evaluations[eval.SessionID]; ok {
		eval.Version = existing.Version + 1
	} else {
		eval.Version = 1
	}
	r.evaluations[eval.SessionID] = eval
	return nil
}

func (r *fakeAssessmentRepo) GetEvaluation(ctx context.Context, sessionID string) (*model.SealedEvaluation, error) {
	return r.evaluations[sessionID], nil
}

func (r *fakeAssessmentRepo) UpsertPlan(ctx context.Context, plan *model.TreatmentPlan) error {
	r.plans[plan.SessionID] = plan
	return nil
}

func (r *fakeAssessmentRepo) GetPlan(ctx context.Context, sessionID string) (*model.TreatmentPlan, error) {
	return r.plans[sessionID], nil
}

type fakeAuditRepo struct {
	events []*model.AuditEvent
}

func (r *fakeAuditRepo) Append(ctx context.Context, event *model.AuditEvent) error {
	r.events = append(r.events, event)
	return nil
}

func (r *fakeAuditRepo) ListBySession(ctx context.Context, sessionID string) ([]*model.AuditEvent, error) {
	var out []*model.AuditEvent
	for _, e := range r.events {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *fakeAuditRepo) has(eventType model.AuditEventType) bool {
	for _, e := range r.events {
		if e.Type == eventType {
			return true
		}
	}
	return false
}

type fakeSessionCache struct {
	sessions map[string]*model.IntakeSession
}

func newFakeSessionCache() *fakeSessionCache {
	return &fakeSessionCache{sessions: make(map[string]*model.IntakeSession)}
}

func (c *fakeSessionCache) Set(ctx context.Context, session *model.IntakeSession) error {
	copied := *session
	c.sessions[session.ID] = &copied
	return nil
}

func (c *fakeSessionCache) Get(ctx context.Context, id string) (*model.IntakeSession, error) {
	session, ok := c.sessions[id]
	if !ok {
		return nil, nil
	}
	copied := *session
	return &copied, nil
}

func (c *fakeSessionCache) Delete(ctx context.Context, id string) error {
	delete(c.sessions, id)
	return nil
}

type fakeEvalCache struct {
	entries map[string]*cache.CachedEvaluation
	hits    int
	misses  int
}

func newFakeEvalCache() *fakeEvalCache {
	return &fakeEvalCache{entries: make(map[string]*cache.CachedEvaluation)}
}

func (c *fakeEvalCache) Set(ctx context.Context, fingerprint string, result *cache.CachedEvaluation) error {
	c.entries[fingerprint] = result
	return nil
}

func (c *fakeEvalCache) Get(ctx context.Context, fingerprint string) (*cache.CachedEvaluation, error) {
	if result, ok := c.entries[fingerprint]; ok {
		c.hits++
		return result, nil
	}
	c.misses++
	return nil, nil
}

type fakeScriptRepo struct {
	script   *model.IntakeScript
	activeID string
}

func (r *fakeScriptRepo) Upsert(ctx context.Context, script *model.IntakeScript) error {
	r.script = script
	return nil
}

func (r *fakeScriptRepo) GetByID(ctx context.Context, scriptID string) (*model.IntakeScript, error) {
	return r.script, nil
}

func (r *fakeScriptRepo) GetActive(ctx context.Context) (*model.IntakeScript, error) {
	return r.script, nil
}

func (r *fakeScriptRepo) SetActive(ctx context.Context, scriptID string) error {
	r.activeID = scriptID
	return nil
}

type fakeScriptCache struct{}

func (c *fakeScriptCache) SetActive(ctx context.Context, script *model.IntakeScript) error { return nil }
func (c *fakeScriptCache) GetActive(ctx context.Context) (*model.IntakeScript, error)      { return nil, nil }
func (c *fakeScriptCache) Invalidate(ctx context.Context) error                            { return nil }

type fakeBroadcaster struct {
	clinicianMsgs []string
}

func (b *fakeBroadcaster) BroadcastToClinician(sessionID string, msgType string, payload interface{}) {
	b.clinicianMsgs = append(b.clinicianMsgs, msgType)
}

func (b *fakeBroadcaster) BroadcastToPatient(sessionID string, msgType string, payload interface{}) {}

func (b *fakeBroadcaster) DisconnectSession(sessionID string) {}

func (b *fakeBroadcaster) received(msgType string) bool {
	for _, m := range b.clinicianMsgs {
		if m == msgType {
			return true
		}
	}
	return false
}

type intakeFixture struct {
	svc            *IntakeService
	sessionRepo    *fakeSessionRepo
	assessmentRepo *fakeAssessmentRepo
	auditRepo      *fakeAuditRepo
	evalCache      *fakeEvalCache
	broadcaster    *fakeBroadcaster
	sealer         *seal.Sealer
}

func newIntakeFixture(t *testing.T) *intakeFixture {
	t.Helper()

	encKey := sha256.Sum256([]byte("test-enc"))
	signKey := sha256.Sum256([]byte("test-sign"))
	sealer, err := seal.New(encKey[:], signKey[:])
	if err != nil {
		t.Fatalf("seal.New: %v", err)
	}

	scriptRepo := &fakeScriptRepo{
		script: &model.IntakeScript{
			ScriptID: "script-1",
			Active:   true,
			EscalationProtocols: map[string]string{
				"high_risk": "Notify the supervising clinician and provide the 988 lifeline.",
			},
		},
	}

	f := &intakeFixture{
		sessionRepo:    newFakeSessionRepo(),
		assessmentRepo: newFakeAssessmentRepo(),
		auditRepo:      &fakeAuditRepo{},
		evalCache:      newFakeEvalCache(),
		broadcaster:    &fakeBroadcaster{},
		sealer:         sealer,
	}
	f.svc = NewIntakeService(
		f.sessionRepo,
		f.assessmentRepo,
		f.auditRepo,
		newFakeSessionCache(),
		f.evalCache,
		NewScriptService(scriptRepo, &fakeScriptCache{}),
		NewAuthService(),
		sealer,
	)
	f.svc.SetBroadcaster(f.broadcaster)
	return f
}

func (f *intakeFixture) startSession(t *testing.T) string {
	t.Helper()
	resp, err := f.svc.StartSession(context.Background(), "clin_1", &model.StartSessionRequest{PatientID: "patient-1"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	return resp.Session.ID
}

func TestStartSession(t *testing.T) {
	f := newIntakeFixture(t)

	resp, err := f.svc.StartSession(context.Background(), "clin_1", &model.StartSessionRequest{PatientID: "patient-1"})
	if err != nil {
		t.Fatalf("StartSession: %v", err)
	}
	if resp.Session.Status != model.SessionActive {
		t.Errorf("status = %s, want %s", resp.Session.Status, model.SessionActive)
	}
	if resp.Session.ScriptID != "script-1" {
		t.Errorf("scriptID = %q, want active script", resp.Session.ScriptID)
	}
	if resp.PatientToken == "" {
		t.Error("expected a patient token")
	}
	if !f.auditRepo.has(model.AuditSessionStarted) {
		t.Error("expected a session_started audit event")
	}

	claims, err := f.svc.authSvc.ValidatePatientToken(resp.PatientToken)
	if err != nil {
		t.Fatalf("ValidatePatientToken: %v", err)
	}
	if claims.SessionID != resp.Session.ID {
		t.Errorf("token session = %q, want %q", claims.SessionID, resp.Session.ID)
	}
}

func TestStartSessionRequiresPatient(t *testing.T) {
	f := newIntakeFixture(t)
	if _, err := f.svc.StartSession(context.Background(), "clin_1", &model.StartSessionRequest{}); err == nil {
		t.Fatal("expected error for missing patient id")
	}
}

func TestHandleMessageScoresStructuredData(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	resp, err := f.svc.HandleMessage(context.Background(), sessionID, "I last used this morning. [INTAKE_DATA: D1_Q5A=7.5]")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.EmergencyStop {
		t.Fatal("unexpected emergency stop")
	}
	if got := resp.Scores[asam.D1Intoxication]; got != 3.0 {
		t.Errorf("D1 = %v, want 3.0", got)
	}
	// Readiness is still unanswered, so D4 holds at 4.0 and the
	// any-dimension-severe override places residential.
	if got := resp.Scores[asam.D4Readiness]; got != asam.SeveritySevere {
		t.Errorf("D4 = %v, want %v", got, asam.SeveritySevere)
	}
	if resp.LevelOfCare != asam.LOCResidential {
		t.Errorf("level = %s, want %s", resp.LevelOfCare, asam.LOCResidential)
	}
	if !f.broadcaster.received("score_update") {
		t.Error("expected a score_update broadcast to the clinician")
	}

	session, _ := f.sessionRepo.GetByID(context.Background(), sessionID)
	if session.Turns != 1 {
		t.Errorf("turns = %d, want 1", session.Turns)
	}
	if session.ProgressMap["D1_Q5A"] != "7.5" {
		t.Errorf("progress map not merged: %v", session.ProgressMap)
	}
}

func TestHandleMessageEmergencyStop(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	resp, err := f.svc.HandleMessage(context.Background(), sessionID, "[INTAKE_DATA: suicidal_ideation_screen=Yes]")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !resp.EmergencyStop {
		t.Fatal("expected emergency stop")
	}
	if !strings.Contains(resp.Response, "concerned about your safety") {
		t.Errorf("response missing safety language: %q", resp.Response)
	}
	if got := resp.Scores[asam.D3Emotional]; got != asam.SeveritySevere {
		t.Errorf("D3 = %v, want %v", got, asam.SeveritySevere)
	}

	session, _ := f.sessionRepo.GetByID(context.Background(), sessionID)
	if session.Status != model.SessionEmergencyStop {
		t.Errorf("status = %s, want %s", session.Status, model.SessionEmergencyStop)
	}
	if !f.auditRepo.has(model.AuditEmergencyStop) {
		t.Error("expected an emergency_stop audit event")
	}
	if !f.broadcaster.received("safety_override") {
		t.Error("expected a safety_override broadcast to the clinician")
	}

	// A halted session refuses further turns.
	if _, err := f.svc.HandleMessage(context.Background(), sessionID, "hello again"); err == nil {
		t.Fatal("expected error for halted session")
	}
}

func TestHandleMessageSafetyOverride(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	utterance := "sometimes I think about hurting myself MARKER-98765"
	resp, err := f.svc.HandleMessage(context.Background(), sessionID, utterance)
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if resp.EmergencyStop {
		t.Fatal("safety override should not be an emergency stop")
	}
	if !strings.Contains(resp.Response, "HIGH-RISK SAFETY OVERRIDE") {
		t.Errorf("expected override instruction, got %q", resp.Response)
	}
	if strings.Contains(resp.Response, "MARKER-98765") {
		t.Error("override instruction must not echo the utterance")
	}
	if !strings.Contains(resp.Response, "escalation_protocols") {
		t.Error("expected reference to the script's escalation protocols")
	}
	if !f.auditRepo.has(model.AuditSafetyOverride) {
		t.Error("expected a safety_override audit event")
	}

	// Audit detail carries metadata only, never the utterance.
	events, _ := f.auditRepo.ListBySession(context.Background(), sessionID)
	for _, e := range events {
		for _, v := range e.Detail {
			if strings.Contains(v, "MARKER-98765") {
				t.Errorf("audit detail leaked utterance text: %v", e.Detail)
			}
		}
	}
}

func TestHandleMessageSealsEvaluation(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	if _, err := f.svc.HandleMessage(context.Background(), sessionID, "[INTAKE_DATA: D1_Q5A=7.5]"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	sealed, _ := f.assessmentRepo.GetEvaluation(context.Background(), sessionID)
	if sealed == nil {
		t.Fatal("expected a sealed evaluation")
	}

	scoresJSON, err := f.sealer.DecryptField(sealed.Scores)
	if err != nil {
		t.Fatalf("DecryptField(scores): %v", err)
	}
	loc, err := f.sealer.DecryptField(sealed.LevelOfCare)
	if err != nil {
		t.Fatalf("DecryptField(levelOfCare): %v", err)
	}

	var scores asam.DimensionScores
	if err := json.Unmarshal([]byte(scoresJSON), &scores); err != nil {
		t.Fatalf("unmarshal scores: %v", err)
	}
	if scores[asam.D1Intoxication] != 3.0 {
		t.Errorf("sealed D1 = %v, want 3.0", scores[asam.D1Intoxication])
	}

	err = f.sealer.Verify(map[string]string{
		"session_id":    sessionID,
		"scores":        scoresJSON,
		"level_of_care": loc,
	}, sealed.Signature)
	if err != nil {
		t.Errorf("signature did not verify: %v", err)
	}
}

func TestHandleMessageMemoizesScoring(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	// Two turns with no new structured data score the same progress map.
	if _, err := f.svc.HandleMessage(context.Background(), sessionID, "[INTAKE_DATA: D1_Q5A=7.5]"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if _, err := f.svc.HandleMessage(context.Background(), sessionID, "nothing new to add"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if f.evalCache.hits == 0 {
		t.Error("expected the second identical turn to hit the evaluation cache")
	}
}

func TestEvaluateTranscriptTurn(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	result, err := f.svc.EvaluateTranscriptTurn(context.Background(), sessionID, "I've been shaking and sweating all week")
	if err != nil {
		t.Fatalf("EvaluateTranscriptTurn: %v", err)
	}
	if result.SafetyTriggered {
		t.Error("withdrawal symptoms alone should not trip the safety gate")
	}
	if got := result.Scores[asam.D1Intoxication]; got < 2 {
		t.Errorf("D1 = %v, want >= 2", got)
	}

	result, err = f.svc.EvaluateTranscriptTurn(context.Background(), sessionID, "I have been feeling suicidal UNIQ-55221")
	if err != nil {
		t.Fatalf("EvaluateTranscriptTurn: %v", err)
	}
	if !result.SafetyTriggered {
		t.Fatal("expected the safety gate to trigger")
	}
	if strings.Contains(result.OverrideInstruction, "UNIQ-55221") {
		t.Error("override instruction must not echo the utterance")
	}
	if result.Scores[asam.D3Emotional] != asam.SeveritySevere {
		t.Errorf("D3 = %v, want %v", result.Scores[asam.D3Emotional], asam.SeveritySevere)
	}
	if result.LevelOfCare != asam.LOCResidential {
		t.Errorf("level = %s, want %s", result.LevelOfCare, asam.LOCResidential)
	}
}

func TestEvaluateTranscriptTurnRefusesHaltedSession(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	resp, err := f.svc.HandleMessage(context.Background(), sessionID, "[INTAKE_DATA: suicidal_ideation_screen=Yes]")
	if err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}
	if !resp.EmergencyStop {
		t.Fatal("expected emergency stop")
	}

	// The halt applies to the voice pipeline as well as chat.
	if _, err := f.svc.EvaluateTranscriptTurn(context.Background(), sessionID, "hello"); err == nil {
		t.Fatal("expected error for halted session")
	}

	if err := f.svc.EndSession(context.Background(), sessionID); err != nil {
		t.Fatalf("EndSession: %v", err)
	}
	if _, err := f.svc.EvaluateTranscriptTurn(context.Background(), sessionID, "hello"); err == nil {
		t.Fatal("expected error for completed session")
	}
}

func TestEvaluateTranscriptTurnUnknownSession(t *testing.T) {
	f := newIntakeFixture(t)
	if _, err := f.svc.EvaluateTranscriptTurn(context.Background(), "missing", "hello"); err == nil {
		t.Fatal("expected error for unknown session")
	}
}

func TestAuditTrail(t *testing.T) {
	f := newIntakeFixture(t)
	sessionID := f.startSession(t)

	if _, err := f.svc.HandleMessage(context.Background(), sessionID, "[INTAKE_DATA: D1_Q5A=7.5]"); err != nil {
		t.Fatalf("HandleMessage: %v", err)
	}

	events, err := f.svc.AuditTrail(context.Background(), sessionID)
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(events) == 0 {
		t.Fatal("expected audit events for the session")
	}

	var sealed bool
	for _, e := range events {
		if e.SessionID != sessionID {
			t.Errorf("event %s has session %q, want %q", e.Type, e.SessionID, sessionID)
		}
		if e.Type == model.AuditEvaluationSealed {
			sealed = true
		}
	}
	if !sealed {
		t.Error("expected an evaluation_sealed event in the trail")
	}

	other, err := f.svc.AuditTrail(context.Background(), "some-other-session")
	if err != nil {
		t.Fatalf("AuditTrail: %v", err)
	}
	if len(other) != 0 {
		t.Errorf("expected no events for another session, got %d", len(other))
	}
}

func TestParseIntakeData(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    map[string]any
	}{
		{
			name:    "no marker",
			content: "just a regular message",
			want:    nil,
		},
		{
			name:    "single pair",
			content: "[INTAKE_DATA: D1_Q5A=7.5]",
			want:    map[string]any{"D1_Q5A": "7.5"},
		},
		{
			name:    "multiple pairs with spacing",
			content: "some text [INTAKE_DATA: phq2_score=5 , pregnancy_status=Yes]",
			want:    map[string]any{"phq2_score": "5", "pregnancy_status": "Yes"},
		},
		{
			name:    "skips malformed pairs",
			content: "[INTAKE_DATA: valid=1, novalue, =nokey]",
			want:    map[string]any{"valid": "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseIntakeData(tt.content)
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for k, v := range tt.want {
				if got[k] != v {
					t.Errorf("got[%q] = %v, want %v", k, got[k], v)
				}
			}
		})
	}
}
