package processor

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
	"github.com/MikeSquared-Agency/oncallkb/internal/hermes"
	"github.com/MikeSquared-Agency/oncallkb/internal/metrics"
	"github.com/MikeSquared-Agency/oncallkb/internal/pipeline"
	"github.com/MikeSquared-Agency/oncallkb/internal/report"
	"github.com/MikeSquared-Agency/oncallkb/internal/store"
)

// Origin labels where an analysis request came from.
type Origin string

const (
	OriginCLI      Origin = "cli"
	OriginHTTP     Origin = "http"
	OriginNATS     Origin = "nats"
	OriginBackfill Origin = "backfill"
)

// DefaultSource names transcripts submitted without a source.
const DefaultSource = "transcript"

const completedTopTerms = 10

// RunStore persists finished runs.
type RunStore interface {
	SaveRun(ctx context.Context, run store.RunRecord) error
}

// Publisher emits events to the message bus.
type Publisher interface {
	Publish(subject string, data any) error
}

// DigestPoster posts a run digest to chat.
type DigestPoster interface {
	PostDigest(ctx context.Context, runID, source string, summary analysis.Summary) (string, error)
}

// Deps are the optional side-effect targets of a run. Nil fields are skipped.
type Deps struct {
	Store     RunStore
	Publisher Publisher
	Digest    DigestPoster
}

// Processor runs the analysis pipeline and fans results out to storage,
// messaging and Slack.
type Processor struct {
	analyzer *pipeline.Analyzer
	deps     Deps
	logger   *slog.Logger
	now      func() time.Time
}

// Run is one completed analysis.
type Run struct {
	ID          uuid.UUID
	Origin      Origin
	Source      string
	GeneratedAt time.Time
	Result      *pipeline.Result
	Report      string
}

func New(analyzer *pipeline.Analyzer, deps Deps, logger *slog.Logger) *Processor {
	return &Processor{
		analyzer: analyzer,
		deps:     deps,
		logger:   logger,
		now:      time.Now,
	}
}

// Analyzer returns the pipeline this processor drives.
func (p *Processor) Analyzer() *pipeline.Analyzer {
	return p.analyzer
}

// Run analyzes text and hands the result to every configured target.
// The returned Run is always populated; the error reports a persistence failure.
// Publish and Slack failures are logged only.
func (p *Processor) Run(ctx context.Context, origin Origin, source, text string) (*Run, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		source = DefaultSource
	}

	start := time.Now()
	res := p.analyzer.Analyze(text)
	metrics.AnalysisDuration.Observe(time.Since(start).Seconds())

	run := &Run{
		ID:          uuid.New(),
		Origin:      origin,
		Source:      source,
		GeneratedAt: p.now().UTC(),
		Result:      res,
	}
	run.Report = report.String(res.Summary, report.Options{GeneratedAt: run.GeneratedAt, Source: source})

	metrics.AnalysesTotal.WithLabelValues(string(origin)).Inc()
	metrics.ThreadsParsed.Add(float64(len(res.Threads)))
	metrics.BlocksSkipped.Add(float64(len(res.Skipped)))
	metrics.MessageCountDivergence.Add(float64(res.Summary.Overview.DivergentThreads))

	p.logger.Info("transcript analyzed",
		"run_id", run.ID,
		"origin", string(origin),
		"source", source,
		"threads", len(res.Threads),
		"skipped", len(res.Skipped),
		"divergent", res.Summary.Overview.DivergentThreads,
	)

	if p.deps.Store != nil {
		err := p.deps.Store.SaveRun(ctx, store.RunRecord{
			ID:            run.ID,
			Source:        source,
			GeneratedAt:   run.GeneratedAt,
			SkippedBlocks: len(res.Skipped),
			Report:        run.Report,
			Threads:       res.Threads,
		})
		if err != nil {
			return run, fmt.Errorf("save run %s: %w", run.ID, err)
		}
	}

	if p.deps.Digest != nil {
		if _, err := p.deps.Digest.PostDigest(ctx, run.ID.String(), source, res.Summary); err != nil {
			p.logger.Error("slack digest failed", "run_id", run.ID, "error", err)
		}
	}

	if p.deps.Publisher != nil {
		if err := p.deps.Publisher.Publish(hermes.SubjectAnalysisCompleted, completedEvent(run)); err != nil {
			p.logger.Error("failed to publish analysis completed", "run_id", run.ID, "error", err)
		}
	}

	return run, nil
}

// HandleTranscriptExported is the NATS handler for swarm.oncall.transcript.exported.
func (p *Processor) HandleTranscriptExported(subject string, data []byte) {
	ctx := context.Background()

	var evt hermes.TranscriptExportedEvent
	if err := json.Unmarshal(data, &evt); err != nil {
		p.logger.Error("failed to parse transcript event", "subject", subject, "error", err)
		return
	}

	p.logger.Info("processing exported transcript",
		"source", evt.Source,
		"requested_by", evt.RequestedBy,
		"bytes", len(evt.Text),
	)

	if _, err := p.Run(ctx, OriginNATS, evt.Source, evt.Text); err != nil {
		p.logger.Error("transcript run failed", "source", evt.Source, "error", err)
	}
}

func completedEvent(run *Run) hermes.AnalysisCompletedEvent {
	top := report.TopTerms(run.Result.Summary, completedTopTerms)
	terms := make(map[string]int, len(top))
	for _, t := range top {
		terms[t.Term] = t.Count
	}
	return hermes.AnalysisCompletedEvent{
		RunID:         run.ID.String(),
		Source:        run.Source,
		ThreadCount:   len(run.Result.Threads),
		SkippedBlocks: len(run.Result.Skipped),
		TopTerms:      terms,
		GeneratedAt:   run.GeneratedAt,
	}
}
