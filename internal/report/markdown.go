package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
)

const barGlyph = "█"

// Options controls the report header.
type Options struct {
	GeneratedAt time.Time
	Source      string
}

// Render writes the markdown summary. Apart from the generated-on date, the
// output depends only on the summary.
func Render(w io.Writer, s analysis.Summary, opts Options) error {
	var sb strings.Builder

	sb.WriteString("# Slack Thread Analysis Summary\n")
	fmt.Fprintf(&sb, "> Generated on %s", opts.GeneratedAt.UTC().Format("2006-01-02"))
	if opts.Source != "" {
		fmt.Fprintf(&sb, " from `%s`", opts.Source)
	}
	sb.WriteString("\n\n")

	writeOverview(&sb, s.Overview)
	writeServices(&sb, s.Services)
	writeKeyTerms(&sb, s.KeyTerms)
	writeContributors(&sb, s.Contributors)
	writeTimeline(&sb, s.Weekly)
	writeAlertSources(&sb, s.PagerDuty, s.Sentry)
	writeCoOccurrences(&sb, s.CoOccurrences)

	_, err := io.WriteString(w, sb.String())
	return err
}

// String renders the report into a string.
func String(s analysis.Summary, opts Options) string {
	var sb strings.Builder
	_ = Render(&sb, s, opts)
	return sb.String()
}

func writeOverview(sb *strings.Builder, ov analysis.Overview) {
	sb.WriteString("## Overview\n")
	fmt.Fprintf(sb, "- **Total threads analyzed:** %d\n", ov.TotalThreads)
	if ov.DateRange != nil {
		fmt.Fprintf(sb, "- **Date range:** %s to %s\n", ov.DateRange.From, ov.DateRange.To)
	}
	fmt.Fprintf(sb, "- **Total messages:** %d\n", ov.DeclaredMessages)
	fmt.Fprintf(sb, "- **Average messages per thread:** %s\n", analysis.OneDecimal(ov.AverageMessages))
	fmt.Fprintf(sb, "- **Parsed messages:** %d\n", ov.ParsedMessages)
	if ov.DivergentThreads > 0 {
		fmt.Fprintf(sb, "- **Threads with declared/parsed count mismatch:** %d\n", ov.DivergentThreads)
	}
	sb.WriteString("\n")
}

func writeServices(sb *strings.Builder, rows []analysis.Count) {
	sb.WriteString("## Breakdown by Service\n\n")
	sb.WriteString("| Service | Thread Count |\n")
	sb.WriteString("|---------|-------------|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %d |\n", r.Key, r.Count)
	}
	sb.WriteString("\n")
}

func writeKeyTerms(sb *strings.Builder, rows []analysis.TermCount) {
	sb.WriteString("## Breakdown by Key Terms\n\n")
	sb.WriteString("| Key Term | Thread Count |\n")
	sb.WriteString("|----------|-------------|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %d (%s%%) |\n", r.Term, r.Count, analysis.OneDecimal(r.Percent))
	}
	sb.WriteString("\n")
}

func writeContributors(sb *strings.Builder, rows []analysis.Count) {
	sb.WriteString("## Top Contributors\n\n")
	sb.WriteString("| Person | Threads Involved |\n")
	sb.WriteString("|--------|-----------------|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %d |\n", r.Key, r.Count)
	}
	sb.WriteString("\n")
}

func writeTimeline(sb *strings.Builder, weeks []analysis.WeekCount) {
	sb.WriteString("## Timeline: Threads per Week\n\n")
	sb.WriteString("```\n")
	sb.WriteString("Week Starting    | Count | Distribution\n")
	sb.WriteString("-----------------+-------+" + strings.Repeat("-", analysis.BarWidth+2) + "\n")
	for _, w := range weeks {
		fmt.Fprintf(sb, "%s  |  %3d  | %s\n", w.WeekStart, w.Count, strings.Repeat(barGlyph, w.Bar))
	}
	sb.WriteString("```\n\n")
}

func writeAlertSources(sb *strings.Builder, pd, sentry analysis.Share) {
	sb.WriteString("## Alert Source Involvement\n\n")
	fmt.Fprintf(sb, "- **Threads mentioning PagerDuty:** %d (%s%%)\n", pd.Count, analysis.OneDecimal(pd.Percent))
	fmt.Fprintf(sb, "- **Threads mentioning Sentry:** %d (%s%%)\n", sentry.Count, analysis.OneDecimal(sentry.Percent))
	sb.WriteString("\n")
}

func writeCoOccurrences(sb *strings.Builder, rows []analysis.Count) {
	sb.WriteString("## Common Key Term Co-occurrences\n\n")
	if len(rows) == 0 {
		sb.WriteString("_No co-occurring key terms._\n")
		return
	}
	sb.WriteString("| Term Pair | Thread Count |\n")
	sb.WriteString("|-----------|-------------|\n")
	for _, r := range rows {
		fmt.Fprintf(sb, "| %s | %d |\n", r.Key, r.Count)
	}
}
