package hermes

import "time"

const (
	// SubjectTranscriptExported carries a raw thread export to analyze.
	SubjectTranscriptExported = "swarm.oncall.transcript.exported"

	// SubjectAnalysisCompleted announces a finished analysis run.
	SubjectAnalysisCompleted = "swarm.oncall.analysis.completed"
)

// TranscriptExportedEvent is published by whatever collects Slack exports.
type TranscriptExportedEvent struct {
	Source      string `json:"source"`
	Text        string `json:"text"`
	RequestedBy string `json:"requested_by,omitempty"`
}

// AnalysisCompletedEvent summarizes one analysis run for downstream consumers.
type AnalysisCompletedEvent struct {
	RunID         string         `json:"run_id"`
	Source        string         `json:"source"`
	ThreadCount   int            `json:"thread_count"`
	SkippedBlocks int            `json:"skipped_blocks"`
	TopTerms      map[string]int `json:"top_terms"`
	GeneratedAt   time.Time      `json:"generated_at"`
}
