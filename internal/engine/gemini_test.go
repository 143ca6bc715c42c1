package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hirekit/tailor/internal/types"
)

func TestCleanJSONBlock(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a": 1}`, `{"a": 1}`},
		{"json fence", "```json\n{\"a\": 1}\n```", `{"a": 1}`},
		{"bare fence", "```\n{\"a\": 1}\n```", `{"a": 1}`},
		{"surrounding whitespace", "  {\"a\": 1}\n", `{"a": 1}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, cleanJSONBlock(tt.in))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind ErrorKind
	}{
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"cancelled", context.Canceled, KindUnavailable},
		{"other", errors.New("boom"), KindUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			classified := classify(tt.err)
			assert.Equal(t, tt.kind, classified.Kind)
		})
	}

	// An already-classified error passes through unchanged.
	orig := &Error{Kind: KindInvalidInput, Message: "bad input"}
	assert.Same(t, orig, classify(orig))
}

func TestBuildOptimizePromptEmbedsInputs(t *testing.T) {
	req := &types.JobRequirements{
		RoleTitle:    "Senior Backend Engineer",
		Company:      "Acme",
		Requirements: []string{"5+ years of Go"},
	}
	resume := &types.StructuredResume{
		Name: "Jordan Smith",
		Sections: []types.ResumeSection{
			{Heading: "Experience", Items: []types.ResumeItem{{Text: "Built APIs", Change: types.ChangeUnchanged}}},
		},
	}

	prompt, err := buildOptimizePrompt(req, resume)
	require.NoError(t, err)

	assert.Contains(t, prompt, "Senior Backend Engineer")
	assert.Contains(t, prompt, "Jordan Smith")
	assert.Contains(t, prompt, "original_score")
	assert.Contains(t, prompt, "optimized_score")
	assert.Contains(t, prompt, `"change"`)
}

func TestBuildExtractPromptEmbedsPosting(t *testing.T) {
	prompt := buildExtractPrompt("Acme is hiring Go engineers.")
	assert.Contains(t, prompt, "Acme is hiring Go engineers.")
	assert.True(t, strings.Contains(prompt, "role_title"))
	assert.True(t, strings.Contains(prompt, "requirements"))
}

func TestNewGeminiRequiresAPIKey(t *testing.T) {
	_, err := NewGemini(context.Background(), "", "")
	assert.Error(t, err)
}
