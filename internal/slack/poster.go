package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/oncallkb/internal/analysis"
	"github.com/MikeSquared-Agency/oncallkb/internal/report"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

const (
	digestServices = 5
	digestTerms    = 10
)

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// PostDigest posts a short summary of an analysis run to the digest channel.
// Returns the message timestamp (ts).
func (p *Poster) PostDigest(ctx context.Context, runID, source string, summary analysis.Summary) (string, error) {
	text := formatDigest(runID, source, summary)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": "Run `" + runID + "`",
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}

	p.logger.Info("posted digest to slack", "ts", slackResp.TS, "run_id", runID)
	return slackResp.TS, nil
}

func formatDigest(runID, source string, s analysis.Summary) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "*On-call export analyzed:* %s\n", source)

	ov := s.Overview
	if ov.TotalThreads == 0 {
		sb.WriteString("_No threads found in this export._")
		return sb.String()
	}

	fmt.Fprintf(&sb, "*Threads:* %d", ov.TotalThreads)
	if ov.DateRange != nil {
		fmt.Fprintf(&sb, " (%s to %s)", ov.DateRange.From, ov.DateRange.To)
	}
	sb.WriteString("\n\n")

	if services := report.TopServices(s, digestServices); len(services) > 0 {
		sb.WriteString("*Top services:*\n")
		for i, c := range services {
			fmt.Fprintf(&sb, "%d. %s: %d\n", i+1, c.Key, c.Count)
		}
		sb.WriteString("\n")
	}

	if terms := report.TopTerms(s, digestTerms); len(terms) > 0 {
		sb.WriteString("*Top key terms:*\n")
		for i, t := range terms {
			fmt.Fprintf(&sb, "%d. %s: %d (%s%%)\n", i+1, t.Term, t.Count, analysis.OneDecimal(t.Percent))
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "*Alert sources:* PagerDuty %d (%s%%) | Sentry %d (%s%%)",
		s.PagerDuty.Count, analysis.OneDecimal(s.PagerDuty.Percent), s.Sentry.Count, analysis.OneDecimal(s.Sentry.Percent))

	return sb.String()
}
