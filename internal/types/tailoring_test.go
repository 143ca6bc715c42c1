package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func validResult() *TailoringResult {
	return &TailoringResult{
		OriginalScore:  65,
		OptimizedScore: 94,
		OptimizedResume: &StructuredResume{
			Sections: []ResumeSection{
				{Heading: "Experience", Items: []ResumeItem{{Text: "Built APIs", Change: ChangeUnchanged}}},
			},
		},
		MatchedRequirements: []string{"Go"},
	}
}

func TestTailoringResultValidate(t *testing.T) {
	assert.NoError(t, validResult().Validate())
}

func TestTailoringResultValidateRejectsOutOfRange(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *TailoringResult)
	}{
		{"original above 100", func(r *TailoringResult) { r.OriginalScore = 101 }},
		{"original below 0", func(r *TailoringResult) { r.OriginalScore = -1 }},
		{"optimized above 100", func(r *TailoringResult) { r.OptimizedScore = 101 }},
		{"optimized below 0", func(r *TailoringResult) { r.OptimizedScore = -1 }},
		{"nil resume", func(r *TailoringResult) { r.OptimizedResume = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validResult()
			tt.mutate(r)
			assert.Error(t, r.Validate())
		})
	}
}

func TestTailoringResultBoundaryScores(t *testing.T) {
	r := validResult()
	r.OriginalScore = 0
	r.OptimizedScore = 100
	assert.NoError(t, r.Validate())
}
