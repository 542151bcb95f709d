package service

import (
	"context"
	"fmt"
	"log"

	"intaker/internal/cache"
	"intaker/internal/model"
	"intaker/internal/repository"
)

// ScriptService provides the active intake script to the assessment
// pipeline. Lookups go through the redis cache first. Logging is
// metadata only (script id, version): script content stays out of logs.
type ScriptService struct {
	scriptRepo  repository.ScriptRepo
	scriptCache cache.ScriptCache
}

// NewScriptService creates a new script service
func NewScriptService(scriptRepo repository.ScriptRepo, scriptCache cache.ScriptCache) *ScriptService {
	return &ScriptService{
		scriptRepo:  scriptRepo,
		scriptCache: scriptCache,
	}
}

// GetActive returns the active intake script, or nil when none is
// configured.
func (s *ScriptService) GetActive(ctx context.Context) (*model.IntakeScript, error) {
	if cached, err := s.scriptCache.GetActive(ctx); err == nil && cached != nil {
		return cached, nil
	}

	script, err := s.scriptRepo.GetActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active script: %w", err)
	}
	if script == nil {
		return nil, nil
	}

	if err := s.scriptCache.SetActive(ctx, script); err != nil {
		log.Printf("script cache set failed: %v", err)
	}
	log.Printf("Loaded active script %s version %d", script.ScriptID, script.Version)
	return script, nil
}

// Publish upserts a script and makes it the active one.
func (s *ScriptService) Publish(ctx context.Context, script *model.IntakeScript) error {
	if script.ScriptID == "" {
		return fmt.Errorf("script id is required")
	}
	if err := s.scriptRepo.Upsert(ctx, script); err != nil {
		return fmt.Errorf("failed to store script: %w", err)
	}
	if err := s.scriptRepo.SetActive(ctx, script.ScriptID); err != nil {
		return fmt.Errorf("failed to activate script: %w", err)
	}
	if err := s.scriptCache.Invalidate(ctx); err != nil {
		log.Printf("script cache invalidate failed: %v", err)
	}
	log.Printf("Published script %s version %d", script.ScriptID, script.Version)
	return nil
}

// EscalationProtocolText returns the active script's high-risk protocol
// content, or "" when no script or protocol is configured. Errors are
// absorbed: the safety gate must still fire without a protocol.
func (s *ScriptService) EscalationProtocolText(ctx context.Context) string {
	script, err := s.GetActive(ctx)
	if err != nil {
		log.Printf("escalation protocol lookup failed: %v", err)
		return ""
	}
	return script.EscalationProtocolText()
}
