// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/hirekit/tailor/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintRequirements outputs a human-readable summary of the normalized job
// requirements.
func (p *Printer) PrintRequirements(req *types.JobRequirements) {
	if req == nil {
		return
	}

	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("Company:  %s\n", req.Company))
	sb.WriteString(fmt.Sprintf("Role:     %s\n", req.RoleTitle))
	sb.WriteString("\n")

	if len(req.Requirements) > 0 {
		sb.WriteString("Requirements:\n")
		count := min(len(req.Requirements), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", req.Requirements[i]))
		}
		if len(req.Requirements) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(req.Requirements)-maxItemsToShow))
		}
		sb.WriteString("\n")
	}

	if len(req.NiceToHave) > 0 {
		sb.WriteString("Nice-to-haves:\n")
		count := min(len(req.NiceToHave), 3)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  • %s\n", req.NiceToHave[i]))
		}
		if len(req.NiceToHave) > 3 {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(req.NiceToHave)-3))
		}
	}

	p.printBox("NORMALIZED JOB REQUIREMENTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResult outputs the tailoring scores and change summary.
func (p *Printer) PrintResult(result *types.TailoringResult) {
	if result == nil || result.OptimizedResume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("ATS score:  %d → %d\n", result.OriginalScore, result.OptimizedScore))

	inserted, replaced := 0, 0
	for _, section := range result.OptimizedResume.Sections {
		for _, item := range section.Items {
			switch item.Change {
			case types.ChangeInserted:
				inserted++
			case types.ChangeReplaced:
				replaced++
			}
		}
	}
	sb.WriteString(fmt.Sprintf("Changes:    %d inserted, %d replaced\n", inserted, replaced))

	if len(result.MatchedRequirements) > 0 {
		sb.WriteString("\nMatched requirements:\n")
		count := min(len(result.MatchedRequirements), maxItemsToShow)
		for i := 0; i < count; i++ {
			sb.WriteString(fmt.Sprintf("  ✓ %s\n", result.MatchedRequirements[i]))
		}
		if len(result.MatchedRequirements) > maxItemsToShow {
			sb.WriteString(fmt.Sprintf("  ... and %d more\n", len(result.MatchedRequirements)-maxItemsToShow))
		}
	}

	p.printBox("TAILORING RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintResume outputs the optimized resume with change markers.
func (p *Printer) PrintResume(resume *types.StructuredResume) {
	if resume == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n", resume.Name))
	if resume.Headline != "" {
		sb.WriteString(fmt.Sprintf("%s\n", resume.Headline))
	}

	for _, section := range resume.Sections {
		sb.WriteString(fmt.Sprintf("\n%s\n", strings.ToUpper(section.Heading)))
		for _, item := range section.Items {
			marker := " "
			switch item.Change {
			case types.ChangeInserted:
				marker = "+"
			case types.ChangeReplaced:
				marker = "~"
			}
			sb.WriteString(fmt.Sprintf("%s %s\n", marker, item.Text))
		}
	}

	p.printBox("OPTIMIZED RESUME", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintHistory outputs past tailoring sessions, most recent first.
func (p *Printer) PrintHistory(entries []types.HistoryEntry) {
	if len(entries) == 0 {
		p.printBox("HISTORY", "No completed sessions")
		return
	}

	var sb strings.Builder
	count := min(len(entries), maxItemsToShow)
	for i := 0; i < count; i++ {
		e := entries[i]
		sb.WriteString(fmt.Sprintf("%s — %s\n", e.JobTitle, e.Company))
		sb.WriteString(fmt.Sprintf("  Score: %d  (%s)\n", e.ATSScore, e.CompletedAt.Format("2006-01-02 15:04")))
		if i < count-1 {
			sb.WriteString("\n")
		}
	}
	if len(entries) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("\n... and %d more sessions", len(entries)-maxItemsToShow))
	}

	p.printBox("HISTORY", sb.String())
}
