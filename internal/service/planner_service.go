package service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"intaker/internal/asam"
	"intaker/internal/config"
)

// PlannerService generates treatment-plan prose from dimension scores
// and a level of care via the Gemini API. No clinical logic lives here:
// the scores and placement are inputs, never recomputed.
type PlannerService struct {
	config *config.AIConfig
	client *http.Client
}

// NewPlannerService creates a new planner service
func NewPlannerService() *PlannerService {
	cfg := config.DefaultAIConfig()
	return &PlannerService{
		config: cfg,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond,
		},
	}
}

// Model returns the configured plan model name.
func (s *PlannerService) Model() string {
	return s.config.PlanModel
}

// GeneratePlan produces a compassionate one-page treatment plan summary
// in markdown. Falls back to a deterministic mock plan when the API is
// not configured or the call fails.
func (s *PlannerService) GeneratePlan(ctx context.Context, scores asam.DimensionScores, loc asam.LevelOfCare) (string, error) {
	if !s.config.IsEnabled() {
		return s.mockPlan(scores, loc), nil
	}

	prompt := s.buildPlanPrompt(scores, loc)
	response, err := s.callGemini(ctx, s.config.PlanModel, prompt)
	if err != nil {
		// Fallback to mock on error
		return s.mockPlan(scores, loc), nil
	}
	return response, nil
}

func (s *PlannerService) buildPlanPrompt(scores asam.DimensionScores, loc asam.LevelOfCare) string {
	return fmt.Sprintf(`You are a clinical assistant. Transform these ASAM scores [DATA] into a compassionate, 1-page treatment plan summary.
Structure: Drivers -> Goals -> Action Items.

[DATA]
ASAM Dimension Scores:
%s

Recommended Level of Care:
%s`, formatScores(scores), loc)
}

func (s *PlannerService) mockPlan(scores asam.DimensionScores, loc asam.LevelOfCare) string {
	return fmt.Sprintf(`# Treatment Plan (MOCK)
**Based on ASAM Scores:**
%s
**Level of Care:** %s

## Drivers
- Identified risk indicators from the multidimensional assessment.

## Goals
1. Stabilize physical symptoms.
2. Ensure safety.

## Action Items
- Admit to %s.
- Monitor vitals.
`, formatScores(scores), loc, loc)
}

// formatScores renders scores one per line in a stable dimension order.
func formatScores(scores asam.DimensionScores) string {
	dims := make([]string, 0, len(scores))
	for d := range scores {
		dims = append(dims, string(d))
	}
	sort.Strings(dims)

	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, "%s: %g\n", d, scores[asam.Dimension(d)])
	}
	return strings.TrimRight(b.String(), "\n")
}

// callGemini makes a request to the Gemini API
func (s *PlannerService) callGemini(ctx context.Context, modelName, prompt string) (string, error) {
	reqBody := map[string]interface{}{
		"contents": []map[string]interface{}{
			{
				"parts": []map[string]string{
					{"text": prompt},
				},
			},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("%s?key=%s", s.config.ModelEndpoint(modelName), s.config.APIKey)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBuffer(jsonBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	// Parse Gemini response structure
	var geminiResp struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(body, &geminiResp); err != nil {
		return "", err
	}
	if len(geminiResp.Candidates) == 0 || len(geminiResp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("empty response from model")
	}

	return geminiResp.Candidates[0].Content.Parts[0].Text, nil
}
