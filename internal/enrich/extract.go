package enrich

import (
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

var (
	// [ledge-temporal-worker]
	bracketTokenRE = regexp.MustCompile(`\[(\w[\w-]*)\]`)

	// PagerDuty acknowledgments: "Acknowledged by [Jane Doe](https://...)".
	ackNameRE = regexp.MustCompile(`by \[([A-Z][a-zA-Z ]+)\]\(`)
)

// Extractor enriches parsed threads using a fixed catalog.
type Extractor struct {
	catalog Catalog
}

// New creates an extractor for the given catalog.
func New(c Catalog) *Extractor {
	return &Extractor{catalog: c}
}

// Catalog returns the catalog the extractor was built with.
func (e *Extractor) Catalog() Catalog {
	return e.catalog
}

// Enrich fills in the derived fields of t from its messages and the raw block text.
// Header scalars and messages are left untouched.
func (e *Extractor) Enrich(t *transcript.Thread, block string) {
	if first := FirstHuman(t.Messages, e.catalog.BotSenders); first != nil {
		sender, text := first.Sender, first.Text
		t.FirstSender = &sender
		t.FirstMessageText = &text
	}

	t.HasPagerDuty = Mentions(block, "pagerduty")
	t.HasSentry = Mentions(block, "sentry")
	t.Services = Services(block, e.catalog.Services)
	t.PeopleInvolved = People(t.Messages, block, e.catalog.BotSenders, e.catalog.AckExclusions)
	t.KeyTerms = KeyTerms(block, e.catalog.KeyTerms)
}

// FirstHuman returns the first message whose sender is not a bot, or nil.
func FirstHuman(msgs []transcript.Message, bots []string) *transcript.Message {
	botSet := lowerSet(bots)
	for i := range msgs {
		if _, isBot := botSet[strings.ToLower(msgs[i].Sender)]; !isBot {
			return &msgs[i]
		}
	}
	return nil
}

// Mentions reports a case-insensitive substring match of token in text.
func Mentions(text, token string) bool {
	return strings.Contains(strings.ToLower(text), strings.ToLower(token))
}

// Services returns the bracketed tokens in text that appear in allow, lower-cased,
// deduplicated, in order of first appearance.
func Services(text string, allow []string) []string {
	allowed := lowerSet(allow)
	out := []string{}
	seen := make(map[string]bool)

	for _, m := range bracketTokenRE.FindAllStringSubmatch(text, -1) {
		candidate := strings.ToLower(m[1])
		if _, ok := allowed[candidate]; !ok || seen[candidate] {
			continue
		}
		seen[candidate] = true
		out = append(out, candidate)
	}
	return out
}

// People returns the distinct human participants of a thread: non-bot senders in
// message order, followed by names from acknowledgment links that do not contain
// any of the exclusion tokens. Only identical strings are merged.
func People(msgs []transcript.Message, text string, bots, exclusions []string) []string {
	botSet := lowerSet(bots)
	out := []string{}
	seen := make(map[string]bool)

	add := func(name string) {
		if seen[name] {
			return
		}
		seen[name] = true
		out = append(out, name)
	}

	for _, m := range msgs {
		if _, isBot := botSet[strings.ToLower(m.Sender)]; isBot {
			continue
		}
		add(m.Sender)
	}

	for _, m := range ackNameRE.FindAllStringSubmatch(text, -1) {
		name := strings.TrimSpace(m[1])
		if excludedAckName(name, exclusions) {
			continue
		}
		// A bot identity never counts as a participant, whichever path found it.
		if _, isBot := botSet[strings.ToLower(name)]; isBot {
			continue
		}
		add(name)
	}
	return out
}

func excludedAckName(name string, exclusions []string) bool {
	lower := strings.ToLower(name)
	for _, ex := range exclusions {
		if strings.Contains(lower, strings.ToLower(ex)) {
			return true
		}
	}
	return false
}

// KeyTerms returns the vocabulary entries found in text, in vocabulary order.
func KeyTerms(text string, vocab []string) []string {
	lower := strings.ToLower(text)
	out := []string{}
	seen := make(map[string]bool)

	for _, term := range vocab {
		if seen[term] {
			continue
		}
		if strings.Contains(lower, strings.ToLower(term)) {
			seen[term] = true
			out = append(out, term)
		}
	}
	return out
}
