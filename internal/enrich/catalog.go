package enrich

import "strings"

// Catalog holds the fixed lists the extractor matches against.
//
// BotSenders and AckExclusions are maintained separately: senders are matched by
// exact lower-cased identity, acknowledgment names by substring. A name may be
// excluded by one path and admitted by the other.
type Catalog struct {
	BotSenders    []string `yaml:"bot_senders" json:"bot_senders"`
	Services      []string `yaml:"services" json:"services"`
	KeyTerms      []string `yaml:"key_terms" json:"key_terms"`
	AckExclusions []string `yaml:"ack_exclusions" json:"ack_exclusions"`
}

// DefaultCatalog returns the built-in catalog for the bor-write alerts channel.
func DefaultCatalog() Catalog {
	return Catalog{
		BotSenders: []string{
			"bot",
			"pagerduty_slack_bot",
			"sentry",
		},
		Services: []string{
			"oracle-gl-publisher",
			"ledge",
			"api-container",
			"workers",
			"ledge-temporal-worker",
			"grouped-activities-processor",
			"audit-status-processor",
			"queue-processor",
			"import-check-service",
		},
		KeyTerms: []string{
			"DLQ",
			"connection pool",
			"HikariCP",
			"Oracle",
			"ORA-",
			"Kafka",
			"deploy",
			"redeploy",
			"timeout",
			"import",
			"reversal",
			"stuck",
			"failed",
			"optimistic lock",
			"OOM",
			"lending",
			"fee",
			"settlement",
		},
		AckExclusions: []string{
			"datadog",
			"pagerduty",
			"service account",
		},
	}
}

// lowerSet builds a membership set of lower-cased entries.
func lowerSet(items []string) map[string]struct{} {
	set := make(map[string]struct{}, len(items))
	for _, it := range items {
		set[strings.ToLower(it)] = struct{}{}
	}
	return set
}

// IsBot reports whether sender is a bot identity, ignoring case.
func (c Catalog) IsBot(sender string) bool {
	lower := strings.ToLower(sender)
	for _, b := range c.BotSenders {
		if strings.ToLower(b) == lower {
			return true
		}
	}
	return false
}
