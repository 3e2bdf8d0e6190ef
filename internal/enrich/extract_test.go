package enrich

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

const exampleBlock = "# Thread 1\n**Date:** 2026-01-01\n**Messages:** 2\n\n" +
	"**alice** — _2026-01-01, 10:00am_\n\nconnection pool exhausted\n\n---\n\n" +
	"**bot** — _2026-01-01, 10:05am_\n\nauto-ack\n\n---"

func parse(t *testing.T, block string) *transcript.Thread {
	t.Helper()
	th, ok := transcript.ParseBlock(block)
	require.True(t, ok, "block should carry a thread header")
	return th
}

func TestEnrich_Example(t *testing.T) {
	th := parse(t, exampleBlock)
	New(DefaultCatalog()).Enrich(th, exampleBlock)

	require.NotNil(t, th.FirstSender)
	assert.Equal(t, "alice", *th.FirstSender)
	require.NotNil(t, th.FirstMessageText)
	assert.Equal(t, "connection pool exhausted", *th.FirstMessageText)
	assert.Equal(t, []string{"alice"}, th.PeopleInvolved)
	assert.Contains(t, th.KeyTerms, "connection pool")
	assert.False(t, th.HasPagerDuty)
	assert.False(t, th.HasSentry)
	assert.Empty(t, th.Services)
	assert.NotNil(t, th.Services)
}

func TestEnrich_LeavesScalarsAlone(t *testing.T) {
	block := "# Thread 9\n**Messages:** 4\n\n**pagerduty_slack_bot** — _t_\n\nTriggered [ledge]"
	th := parse(t, block)
	New(DefaultCatalog()).Enrich(th, block)

	require.NotNil(t, th.MessageCount)
	assert.Equal(t, 4, *th.MessageCount)
	assert.Len(t, th.Messages, 1)
	assert.Nil(t, th.FirstSender)
	assert.Nil(t, th.FirstMessageText)
	assert.True(t, th.HasPagerDuty)
	assert.Equal(t, []string{"ledge"}, th.Services)
}

func TestFirstHuman(t *testing.T) {
	bots := []string{"bot", "sentry"}
	msgs := []transcript.Message{
		{Sender: "Sentry", Text: "issue"},
		{Sender: "BOT", Text: "ack"},
		{Sender: "maria", Text: "looking"},
		{Sender: "li", Text: "thanks"},
	}

	first := FirstHuman(msgs, bots)
	require.NotNil(t, first)
	assert.Equal(t, "maria", first.Sender)
	assert.Equal(t, "looking", first.Text)

	assert.Nil(t, FirstHuman(msgs[:2], bots))
	assert.Nil(t, FirstHuman(nil, bots))
}

func TestMentions(t *testing.T) {
	assert.True(t, Mentions("Opened by PagerDuty", "pagerduty"))
	assert.True(t, Mentions("see sentry.io/issues/1", "SENTRY"))
	assert.False(t, Mentions("pager duty", "pagerduty"))
}

func TestServices(t *testing.T) {
	allow := []string{"ledge", "Queue-Processor", "workers"}

	tests := []struct {
		name string
		text string
		want []string
	}{
		{"allowed tokens in first-appearance order", "[workers] then [ledge] then [workers]", []string{"workers", "ledge"}},
		{"lower-cased before lookup", "[LEDGE] and [Queue-Processor]", []string{"ledge", "queue-processor"}},
		{"unknown tokens dropped", "[ledger] [api] [ledge-x]", []string{}},
		{"spaces are not tokens", "[Jane Doe](https://x) [ledge ]", []string{}},
		{"must start with a word character", "[-ledge] [_workers]", []string{}},
		{"no brackets", "ledge workers", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Services(tt.text, allow))
		})
	}
}

func TestServices_InjectedAllowList(t *testing.T) {
	text := "[billing] [ledge]"
	assert.Equal(t, []string{"billing"}, Services(text, []string{"billing"}))
	assert.Equal(t, []string{}, Services(text, nil))
}

func TestKeyTerms(t *testing.T) {
	vocab := []string{"DLQ", "connection pool", "timeout", "OOM"}

	got := KeyTerms("Timeout while draining the dlq; Connection Pool ok", vocab)
	assert.Equal(t, []string{"DLQ", "connection pool", "timeout"}, got, "terms come back in vocabulary order")

	assert.Equal(t, []string{}, KeyTerms("nothing relevant", vocab))
	assert.Equal(t, []string{"OOM"}, KeyTerms("room", vocab), "substring matching is intentional")
}

func TestKeyTerms_DuplicateVocabulary(t *testing.T) {
	assert.Equal(t, []string{"fee"}, KeyTerms("fee", []string{"fee", "fee"}))
}

func TestPeople(t *testing.T) {
	cat := DefaultCatalog()
	msgs := []transcript.Message{
		{Sender: "pagerduty_slack_bot"},
		{Sender: "Jane Doe"},
		{Sender: "raj"},
		{Sender: "Jane Doe"},
		{Sender: "Bot"},
	}
	text := "Acknowledged by [Jane Doe](https://pd/u/1)\n" +
		"Resolved by [Sam Lee](https://pd/u/2)\n" +
		"Escalated by [Datadog Monitor](https://x)\n" +
		"Triggered by [PagerDuty Events](https://x)\n" +
		"Assigned by [Ops Service Account](https://x)\n" +
		"Closed by [jane doe](https://x)\n" +
		"by [Raj ](https://x)"

	got := People(msgs, text, cat.BotSenders, cat.AckExclusions)
	assert.Equal(t, []string{"Jane Doe", "raj", "Sam Lee", "Raj"}, got)
}

func TestPeople_NeverContainsBots(t *testing.T) {
	cat := DefaultCatalog()
	msgs := []transcript.Message{{Sender: "SENTRY"}, {Sender: "bot"}, {Sender: "ana"}}
	text := "Resolved by [Sentry](https://sentry.io) and by [Bot](https://x)"

	got := People(msgs, text, cat.BotSenders, cat.AckExclusions)
	assert.Equal(t, []string{"ana"}, got)
	for _, p := range got {
		assert.False(t, cat.IsBot(p), "%q is a bot identity", p)
	}
}

func TestEnrich_PeopleNeverBotsAcrossCorpus(t *testing.T) {
	cat := DefaultCatalog()
	ext := New(cat)

	blocks := []string{
		exampleBlock,
		"# Thread 2\n**PagerDuty_Slack_Bot** — _t_\nTriggered by [PagerDuty](https://x)\n**Sentry** — _t_\nby [Sentry](https://x)",
		"# Thread 3\n**BOT** — _t_\nAcknowledged by [Kim Park](https://x)",
	}
	for _, b := range blocks {
		th := parse(t, b)
		ext.Enrich(th, b)
		for _, p := range th.PeopleInvolved {
			for _, bot := range cat.BotSenders {
				assert.NotEqual(t, strings.ToLower(bot), strings.ToLower(p))
			}
		}
	}
}

func TestEnrich_AlertSourcesFromHeaders(t *testing.T) {
	block := "# Thread 4\n**Channel:** #sentry-alerts\n\n**kim** — _t_\nlooking"
	th := parse(t, block)
	New(DefaultCatalog()).Enrich(th, block)

	assert.True(t, th.HasSentry)
	assert.False(t, th.HasPagerDuty)
}

func TestCatalog_IsBot(t *testing.T) {
	cat := DefaultCatalog()
	assert.True(t, cat.IsBot("PagerDuty_Slack_Bot"))
	assert.False(t, cat.IsBot("bot-owner"))
}
