// Package pipeline runs the full transcript analysis: segment, parse, enrich and
// aggregate. It holds no state between calls and performs no I/O other than
// logging diagnostics.
package pipeline

import (
	"log/slog"
	"strings"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
	"github.com/MikeSquared-Agency/oncallkb/internal/enrich"
	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

const previewLen = 60

// Skipped describes a block that was dropped for lacking a thread header.
type Skipped struct {
	BlockIndex int    `json:"block_index"`
	Preview    string `json:"preview"`
}

// Result is the output of one analysis pass.
type Result struct {
	Blocks  int                  `json:"blocks"`
	Threads []*transcript.Thread `json:"threads"`
	Skipped []Skipped            `json:"skipped"`
	Summary analysis.Summary     `json:"summary"`
}

// Analyzer wires the extractor into the pipeline.
type Analyzer struct {
	extractor *enrich.Extractor
	logger    *slog.Logger
}

// New creates an analyzer for the given catalog.
func New(catalog enrich.Catalog, logger *slog.Logger) *Analyzer {
	return &Analyzer{
		extractor: enrich.New(catalog),
		logger:    logger,
	}
}

// Catalog returns the catalog in use.
func (a *Analyzer) Catalog() enrich.Catalog {
	return a.extractor.Catalog()
}

// Analyze turns transcript text into enriched threads and their summary.
// It never fails: headerless blocks are reported in Result.Skipped.
func (a *Analyzer) Analyze(text string) *Result {
	blocks := transcript.Segment(text)

	res := &Result{
		Blocks:  len(blocks),
		Threads: []*transcript.Thread{},
		Skipped: []Skipped{},
	}

	for _, b := range blocks {
		t, ok := transcript.ParseBlock(b.Text)
		if !ok {
			sk := Skipped{BlockIndex: b.Index, Preview: preview(b.Text)}
			res.Skipped = append(res.Skipped, sk)
			a.logger.Warn("skipping non-thread block (no \"# Thread N\" header)",
				"block_index", sk.BlockIndex,
				"preview", sk.Preview,
			)
			continue
		}
		a.extractor.Enrich(t, b.Text)
		res.Threads = append(res.Threads, t)
	}

	res.Summary = analysis.Aggregate(res.Threads)

	a.logger.Debug("transcript analyzed",
		"blocks", res.Blocks,
		"threads", len(res.Threads),
		"skipped", len(res.Skipped),
	)
	return res
}

func preview(block string) string {
	line, _, _ := strings.Cut(block, "\n")
	if r := []rune(line); len(r) > previewLen {
		return string(r[:previewLen]) + "…"
	}
	return line
}
