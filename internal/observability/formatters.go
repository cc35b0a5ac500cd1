package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/jonathan/pathway-tracker/internal/ingestion"
	"github.com/jonathan/pathway-tracker/internal/types"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer writes boxed console summaries for the CLI.
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

//nolint:errcheck // console output; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	for _, line := range strings.Split(content, "\n") {
		if len([]rune(line)) > boxWidth-4 {
			line = string([]rune(line)[:boxWidth-7]) + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintImportResult summarizes one CSV import or sheet sync.
func (p *Printer) PrintImportResult(source string, res *ingestion.Result) {
	if res == nil {
		return
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Source:        %s\n", source)
	fmt.Fprintf(&sb, "New members:   %d\n", len(res.NewMembers))
	fmt.Fprintf(&sb, "New tasks:     %d\n", len(res.NewTasks))
	fmt.Fprintf(&sb, "Skipped rows:  %d\n", len(res.Skipped))

	if len(res.NewMembers) > 0 {
		sb.WriteString("\nAdded:\n")
		count := min(len(res.NewMembers), maxItemsToShow)
		for i := 0; i < count; i++ {
			m := res.NewMembers[i]
			fmt.Fprintf(&sb, "  • %s", m.FullName())
			if m.Email != "" {
				fmt.Fprintf(&sb, " <%s>", m.Email)
			}
			sb.WriteString("\n")
		}
		if len(res.NewMembers) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(res.NewMembers)-maxItemsToShow)
		}
	}

	if len(res.Skipped) > 0 {
		sb.WriteString("\nSkipped:\n")
		count := min(len(res.Skipped), maxItemsToShow)
		for i := 0; i < count; i++ {
			s := res.Skipped[i]
			fmt.Fprintf(&sb, "  • line %d %s (%s)\n", s.Line, s.Email, s.Reason)
		}
		if len(res.Skipped) > maxItemsToShow {
			fmt.Fprintf(&sb, "  ... and %d more\n", len(res.Skipped)-maxItemsToShow)
		}
	}

	p.printBox("IMPORT RESULT", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintIntegrations lists integrations with their sync state.
func (p *Printer) PrintIntegrations(configs []types.IntegrationConfig) {
	if len(configs) == 0 {
		return
	}

	var sb strings.Builder
	for i, c := range configs {
		fmt.Fprintf(&sb, "%s [%s]\n", c.SourceName, c.Status)
		if c.LastSync != nil {
			fmt.Fprintf(&sb, "    Last sync: %s\n", c.LastSync.Format("2006-01-02 15:04"))
		} else {
			sb.WriteString("    Last sync: never\n")
		}
		if c.LastError != "" {
			fmt.Fprintf(&sb, "    Error: %s\n", c.LastError)
		}
		if i < len(configs)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("INTEGRATIONS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintStages lists each pathway's stages in order.
func (p *Printer) PrintStages(stages []types.Stage, counts map[string]int) {
	if len(stages) == 0 {
		return
	}

	var sb strings.Builder
	var current types.Pathway
	for _, s := range stages {
		if s.Pathway != current {
			if current != "" {
				sb.WriteString("\n")
			}
			fmt.Fprintf(&sb, "%s:\n", s.Pathway.Label())
			current = s.Pathway
		}
		fmt.Fprintf(&sb, "  %d. %s", s.Order, s.Name)
		if n := counts[s.ID]; n > 0 {
			fmt.Fprintf(&sb, " (%d)", n)
		}
		sb.WriteString("\n")
	}

	p.printBox("PIPELINE", strings.TrimSuffix(sb.String(), "\n"))
}
