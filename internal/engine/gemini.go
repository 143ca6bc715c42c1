package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/hirekit/tailor/internal/schemas"
	"github.com/hirekit/tailor/internal/types"
)

// DefaultModel is the Gemini model used for optimization.
const DefaultModel = "gemini-1.5-flash"

// Gemini implements Engine on Google Gemini.
type Gemini struct {
	client *genai.Client
	model  string
}

// NewGemini creates a Gemini-backed engine. Model falls back to DefaultModel
// when empty.
func NewGemini(ctx context.Context, apiKey, model string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{client: client, model: model}, nil
}

// Close releases the underlying client.
func (g *Gemini) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

// Optimize asks the model for an optimized resume plus before/after scores.
// The raw JSON is schema-checked before decoding; score range checking is the
// session's job, so pathological scores pass through here untouched.
func (g *Gemini) Optimize(ctx context.Context, req *types.JobRequirements, resume *types.StructuredResume) (*types.TailoringResult, error) {
	if req == nil || len(req.Requirements) == 0 {
		return nil, &Error{Kind: KindInvalidInput, Message: "job requirements are empty"}
	}
	if resume == nil || len(resume.Sections) == 0 {
		return nil, &Error{Kind: KindInvalidInput, Message: "parsed resume is empty"}
	}

	prompt, err := buildOptimizePrompt(req, resume)
	if err != nil {
		return nil, &Error{Kind: KindInvalidInput, Message: "failed to build prompt", Cause: err}
	}

	raw, err := g.generateJSON(ctx, prompt)
	if err != nil {
		return nil, classify(err)
	}

	if err := schemas.ValidateTailoringResult(raw); err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: "model returned malformed result", Cause: err}
	}

	var result types.TailoringResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: "failed to decode result", Cause: err}
	}
	return &result, nil
}

// ExtractRequirements derives structured job requirements from posting text.
// Implements ingestion.Extractor.
func (g *Gemini) ExtractRequirements(ctx context.Context, postingText string) (*types.JobRequirements, error) {
	if strings.TrimSpace(postingText) == "" {
		return nil, &Error{Kind: KindInvalidInput, Message: "posting text is empty"}
	}

	raw, err := g.generateJSON(ctx, buildExtractPrompt(postingText))
	if err != nil {
		return nil, classify(err)
	}

	var req types.JobRequirements
	if err := json.Unmarshal([]byte(raw), &req); err != nil {
		return nil, &Error{Kind: KindUnavailable, Message: "failed to decode requirements", Cause: err}
	}
	return &req, nil
}

func (g *Gemini) generateJSON(ctx context.Context, prompt string) (string, error) {
	model := g.client.GenerativeModel(g.model)
	model.SetTemperature(0.1)
	model.ResponseMIMEType = "application/json"

	resp, err := model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", err
	}

	text, err := extractTextFromResponse(resp)
	if err != nil {
		return "", err
	}
	return cleanJSONBlock(text), nil
}

// classify maps raw provider errors onto the engine taxonomy.
func classify(err error) *Error {
	var engErr *Error
	if errors.As(err, &engErr) {
		return engErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &Error{Kind: KindTimeout, Message: "optimization timed out", Cause: err}
	}
	if errors.Is(err, context.Canceled) {
		return &Error{Kind: KindUnavailable, Message: "optimization aborted", Cause: err}
	}
	return &Error{Kind: KindUnavailable, Message: "model call failed", Cause: err}
}

// extractTextFromResponse flattens the first candidate's text parts.
func extractTextFromResponse(resp *genai.GenerateContentResponse) (string, error) {
	if len(resp.Candidates) == 0 {
		return "", fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	var parts []string
	for _, part := range candidate.Content.Parts {
		if text, ok := part.(genai.Text); ok {
			parts = append(parts, string(text))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("no text parts in response")
	}
	return strings.Join(parts, ""), nil
}

// cleanJSONBlock removes markdown code fences some models wrap JSON in.
func cleanJSONBlock(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
