package transcript

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	threadHeaderRE = regexp.MustCompile(`(?m)^# Thread (\d+)`)
	dateRE         = regexp.MustCompile(`\*\*Date:\*\*\s*(\S+)`)
	messagesRE     = regexp.MustCompile(`\*\*Messages:\*\*\s*(\d+)`)
	channelRE      = regexp.MustCompile(`\*\*Channel:\*\*\s*#?(\S+)`)

	// **Sender** — _2026-01-01, 10:00:00 a.m._
	messageHeaderRE = regexp.MustCompile(`^\*\*(.+?)\*\*\s*—\s*_(.+?)_\s*$`)
)

// paddingLine is the rule the exporter writes after every message.
const paddingLine = "---"

// HasThreadHeader reports whether the block carries a "# Thread N" line.
func HasThreadHeader(block string) bool {
	return threadHeaderRE.MatchString(block)
}

// ParseBlock converts one block into a Thread holding the header scalars and the
// ordered messages. Derived fields are left empty for the enrich package.
// It returns false when the block has no thread header.
func ParseBlock(block string) (*Thread, bool) {
	m := threadHeaderRE.FindStringSubmatch(block)
	if m == nil {
		return nil, false
	}

	t := &Thread{
		ThreadNumber: atoiPtr(m[1]),
		Date:         firstMatch(dateRE, block),
		Channel:      firstMatch(channelRE, block),
		MessageCount: nil,
		Messages:     ParseMessages(block),
	}
	if s := firstMatch(messagesRE, block); s != nil {
		t.MessageCount = atoiPtr(*s)
	}
	return t, true
}

// scanState is the message scanner state.
type scanState int

const (
	stateIdle scanState = iota
	stateInMessage
)

// ParseMessages runs the line scanner over a block. Lines before the first message
// header are ignored; "---" and blank lines inside a message are dropped.
func ParseMessages(block string) []Message {
	msgs := []Message{}

	state := stateIdle
	var sender, timestamp string
	var body []string

	flush := func() {
		msgs = append(msgs, Message{
			Sender:    sender,
			Timestamp: timestamp,
			Text:      strings.TrimSpace(strings.Join(body, "\n")),
		})
	}

	for _, line := range strings.Split(block, "\n") {
		line = strings.TrimSuffix(line, "\r")

		if s, ts, ok := parseMessageHeader(line); ok {
			if state == stateInMessage {
				flush()
			}
			state = stateInMessage
			sender, timestamp = s, ts
			body = nil
			continue
		}

		if state == stateIdle || line == paddingLine || line == "" {
			continue
		}
		body = append(body, line)
	}

	if state == stateInMessage {
		flush()
	}
	return msgs
}

func parseMessageHeader(line string) (sender, timestamp string, ok bool) {
	m := messageHeaderRE.FindStringSubmatch(line)
	if m == nil {
		return "", "", false
	}
	sender = strings.TrimSpace(m[1])
	if sender == "" {
		return "", "", false
	}
	return sender, strings.TrimSpace(m[2]), true
}

func firstMatch(re *regexp.Regexp, s string) *string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return nil
	}
	v := m[1]
	return &v
}

// atoiPtr returns nil for values that do not fit in an int.
func atoiPtr(s string) *int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return nil
	}
	return &n
}
