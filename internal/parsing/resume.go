package parsing

import (
	"bytes"
	"context"
	"io"
	"regexp"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/hirekit/tailor/internal/documents"
	"github.com/hirekit/tailor/internal/types"
)

// Known section headings, lowercase. A resume line matching one of these
// starts a new section.
var sectionHeadings = map[string]string{
	"experience":             "Experience",
	"work experience":        "Experience",
	"professional experience": "Experience",
	"employment":             "Experience",
	"education":              "Education",
	"skills":                 "Skills",
	"technical skills":       "Skills",
	"projects":               "Projects",
	"summary":                "Summary",
	"profile":                "Summary",
	"certifications":         "Certifications",
}

var bulletLine = regexp.MustCompile(`^[-*•·]\s*`)

// ParseResume extracts a StructuredResume from an uploaded document.
func ParseResume(ctx context.Context, doc documents.Document) (*types.StructuredResume, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var text string
	switch doc.MediaType {
	case documents.MediaTypePDF:
		extracted, err := extractPDFText(doc.Content)
		if err != nil {
			return nil, &ParseError{Message: "failed to read PDF content", Cause: err}
		}
		text = extracted
	case documents.MediaTypeText:
		text = string(doc.Content)
	default:
		return nil, &ParseError{Message: "unsupported media type: " + doc.MediaType}
	}

	resume := structureText(text)
	if len(resume.Sections) == 0 {
		return nil, &ParseError{Message: "no recognizable resume content"}
	}
	return resume, nil
}

func extractPDFText(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, plain); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// structureText splits resume text into sections and items. The first
// non-empty line becomes the candidate name, the second the headline, unless
// either looks like a section heading.
func structureText(text string) *types.StructuredResume {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	resume := &types.StructuredResume{}

	current := types.ResumeSection{}
	flush := func() {
		if current.Heading != "" && len(current.Items) > 0 {
			resume.Sections = append(resume.Sections, current)
		}
		current = types.ResumeSection{}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		if heading, ok := sectionHeadings[normalizeHeading(line)]; ok {
			flush()
			current.Heading = heading
			continue
		}

		if current.Heading == "" {
			switch {
			case resume.Name == "":
				resume.Name = line
			case resume.Headline == "":
				resume.Headline = line
			default:
				current.Heading = "Summary"
				current.Items = append(current.Items, newItem(line))
			}
			continue
		}

		current.Items = append(current.Items, newItem(line))
	}
	flush()

	return resume
}

func newItem(line string) types.ResumeItem {
	return types.ResumeItem{
		Text:   bulletLine.ReplaceAllString(line, ""),
		Change: types.ChangeUnchanged,
	}
}

func normalizeHeading(line string) string {
	line = strings.ToLower(strings.TrimRight(line, ":"))
	return strings.TrimSpace(line)
}
