package report

import (
	"fmt"
	"io"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
)

// TopTerms returns at most n key terms from the ranked breakdown.
func TopTerms(s analysis.Summary, n int) []analysis.TermCount {
	if n < 0 || len(s.KeyTerms) <= n {
		return s.KeyTerms
	}
	return s.KeyTerms[:n]
}

// TopServices returns at most n services from the ranked breakdown.
func TopServices(s analysis.Summary, n int) []analysis.Count {
	if n < 0 || len(s.Services) <= n {
		return s.Services
	}
	return s.Services[:n]
}

// WriteQuickStats writes the short plain-text digest printed after an analysis run.
func WriteQuickStats(w io.Writer, s analysis.Summary, skipped int) {
	fmt.Fprintf(w, "Total threads: %d\n", s.Overview.TotalThreads)
	if skipped > 0 {
		fmt.Fprintf(w, "Skipped blocks: %d\n", skipped)
	}
	fmt.Fprintln(w, "Top key terms:")
	for _, t := range TopTerms(s, 10) {
		fmt.Fprintf(w, "  %s: %d\n", t.Term, t.Count)
	}
}
