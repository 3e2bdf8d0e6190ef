package transcript

// Message is a single post inside an exported thread.
type Message struct {
	Sender    string `json:"sender"`
	Timestamp string `json:"timestamp"` // display string, not necessarily a parseable date
	Text      string `json:"text"`
}

// Thread is one accepted conversation unit from a transcript export.
//
// MessageCount is the count declared in the block header. It is kept exactly as
// written and is never reconciled with len(Messages).
type Thread struct {
	ThreadNumber *int      `json:"thread_number"`
	Date         *string   `json:"date"`
	Channel      *string   `json:"channel,omitempty"`
	MessageCount *int      `json:"message_count"`
	Messages     []Message `json:"messages"`

	FirstSender      *string  `json:"first_sender"`
	FirstMessageText *string  `json:"first_message_text"`
	HasPagerDuty     bool     `json:"has_pagerduty"`
	HasSentry        bool     `json:"has_sentry"`
	Services         []string `json:"services"`
	PeopleInvolved   []string `json:"people_involved"`
	KeyTerms         []string `json:"key_terms"`
}

// ParsedCount returns the number of messages actually recovered from the block.
func (t *Thread) ParsedCount() int {
	return len(t.Messages)
}

// CountDiverges reports whether the declared header count disagrees with the
// parsed message list. Threads without a declared count never diverge.
func (t *Thread) CountDiverges() bool {
	return t.MessageCount != nil && *t.MessageCount != len(t.Messages)
}

// Block is a raw transcript segment that has not yet been accepted as a Thread.
type Block struct {
	Index int
	Text  string
}
