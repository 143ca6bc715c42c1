// Package ingestion turns fetched job-posting text into a structured
// requirement set for the optimization engine.
package ingestion

import (
	"context"
	"regexp"
	"strings"

	"github.com/hirekit/tailor/internal/types"
)

// Extractor is an optional LLM-backed structured extractor. When available it
// replaces the heuristic requirement split; the heuristic result remains the
// fallback on extractor errors.
type Extractor interface {
	ExtractRequirements(ctx context.Context, postingText string) (*types.JobRequirements, error)
}

// maxFallbackRequirements caps how many raw lines are promoted to
// requirements when the posting has no recognizable section headings.
const maxFallbackRequirements = 25

var (
	requirementHeadings = []string{"requirements", "qualifications", "what you'll need", "what we're looking for", "must have"}
	niceToHaveHeadings  = []string{"nice to have", "preferred", "bonus", "plus"}
	bulletPrefix        = regexp.MustCompile(`^[-*•·•]\s*`)
	atCompany           = regexp.MustCompile(`\bat\s+([A-Z][\w&.-]*(?:\s+[A-Z][\w&.-]*)*)`)
)

// NormalizePosting derives a JobRequirements from cleaned posting text. It
// never returns an empty requirement set for non-empty input: when no
// requirement section is found, bullet-like lines (or leading lines) stand in.
func NormalizePosting(ctx context.Context, text string, extractor Extractor) *types.JobRequirements {
	if extractor != nil {
		if req, err := extractor.ExtractRequirements(ctx, text); err == nil && req != nil && len(req.Requirements) > 0 {
			return req
		}
	}
	return normalizeHeuristic(text)
}

func normalizeHeuristic(text string) *types.JobRequirements {
	lines := splitLines(text)
	req := &types.JobRequirements{}

	if len(lines) > 0 {
		req.RoleTitle = truncateLine(lines[0], 120)
	}
	req.Company = guessCompany(lines)

	section := ""
	for _, line := range lines {
		lower := strings.ToLower(strings.TrimRight(line, ":"))
		switch {
		case matchesHeading(lower, requirementHeadings):
			section = "requirements"
			continue
		case matchesHeading(lower, niceToHaveHeadings):
			section = "nice_to_have"
			continue
		}

		item := bulletPrefix.ReplaceAllString(line, "")
		if item == line && !bulletPrefix.MatchString(line) && section == "" {
			continue
		}
		if strings.TrimSpace(item) == "" {
			continue
		}
		switch section {
		case "requirements":
			req.Requirements = append(req.Requirements, item)
		case "nice_to_have":
			req.NiceToHave = append(req.NiceToHave, item)
		}
	}

	if len(req.Requirements) == 0 {
		for _, line := range lines {
			if item := bulletPrefix.ReplaceAllString(line, ""); item != line {
				req.Requirements = append(req.Requirements, item)
			}
			if len(req.Requirements) >= maxFallbackRequirements {
				break
			}
		}
	}
	if len(req.Requirements) == 0 {
		for i, line := range lines {
			if i == 0 {
				continue
			}
			req.Requirements = append(req.Requirements, line)
			if len(req.Requirements) >= maxFallbackRequirements {
				break
			}
		}
	}

	return req
}

func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	raw := strings.Split(text, "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func matchesHeading(line string, headings []string) bool {
	if len(line) > 60 {
		return false
	}
	for _, h := range headings {
		if strings.Contains(line, h) {
			return true
		}
	}
	return false
}

func guessCompany(lines []string) string {
	for i, line := range lines {
		if i > 10 {
			break
		}
		if m := atCompany.FindStringSubmatch(line); m != nil {
			return strings.Trim(m[1], " .,")
		}
		lower := strings.ToLower(line)
		if strings.HasPrefix(lower, "company:") {
			return strings.TrimSpace(line[len("company:"):])
		}
	}
	return ""
}

func truncateLine(line string, limit int) string {
	if len(line) <= limit {
		return line
	}
	return strings.TrimSpace(line[:limit])
}
