package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// buildOptimizePrompt renders the optimize request. Both inputs are embedded
// as JSON so the model returns content in the same shape.
func buildOptimizePrompt(req, resume any) (string, error) {
	reqJSON, err := json.MarshalIndent(req, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal requirements: %w", err)
	}
	resumeJSON, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resume: %w", err)
	}

	var sb strings.Builder
	sb.WriteString("You are an ATS (applicant tracking system) resume optimizer.\n\n")
	sb.WriteString("Given the job requirements and the candidate's resume below, rewrite the resume ")
	sb.WriteString("to maximize ATS compatibility for this specific job. Keep every claim truthful to ")
	sb.WriteString("the original content: rephrase and reorder, add keywords only where the original ")
	sb.WriteString("text supports them, never invent experience.\n\n")
	sb.WriteString("Job requirements:\n")
	sb.Write(reqJSON)
	sb.WriteString("\n\nResume:\n")
	sb.Write(resumeJSON)
	sb.WriteString("\n\nReturn ONLY a JSON object with this exact shape:\n")
	sb.WriteString(`{
  "original_score": <integer 0-100, ATS compatibility of the resume as submitted>,
  "optimized_score": <integer 0-100, ATS compatibility after your rewrite>,
  "matched_requirements": [<requirement strings from the job that the optimized resume satisfies>],
  "optimized_resume": {
    "name": "...",
    "headline": "...",
    "sections": [
      {"heading": "...", "items": [
        {"text": "...", "change": "unchanged|inserted|replaced", "original": "<previous text, only for replaced items>"}
      ]}
    ]
  }
}`)
	sb.WriteString("\nEvery item must carry a change annotation relative to the original resume.\n")
	return sb.String(), nil
}

// buildExtractPrompt renders the requirement-extraction request used during
// posting normalization.
func buildExtractPrompt(postingText string) string {
	var sb strings.Builder
	sb.WriteString("Extract structured job information from this posting.\n\n")
	sb.WriteString(postingText)
	sb.WriteString("\n\nReturn ONLY a JSON object:\n")
	sb.WriteString(`{
  "role_title": "...",
  "company": "...",
  "requirements": ["..."],
  "nice_to_have": ["..."],
  "keywords": ["..."]
}`)
	sb.WriteString("\nRequirements must be individual, self-contained statements.\n")
	return sb.String()
}
