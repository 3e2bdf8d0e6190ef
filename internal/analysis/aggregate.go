package analysis

import (
	"math"
	"sort"
	"strconv"

	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

const (
	// Unidentified is the service bucket for threads with no recognized service.
	Unidentified = "(unidentified)"

	// PairConnector joins the two terms of a co-occurrence key.
	PairConnector = " + "

	MaxContributors = 20
	MaxPairs        = 15
	BarWidth        = 50
)

// Summary holds every aggregate the report renders.
type Summary struct {
	Overview      Overview    `json:"overview"`
	Services      []Count     `json:"services"`
	KeyTerms      []TermCount `json:"key_terms"`
	Contributors  []Count     `json:"contributors"`
	Weekly        []WeekCount `json:"weekly"`
	PagerDuty     Share       `json:"pagerduty"`
	Sentry        Share       `json:"sentry"`
	CoOccurrences []Count     `json:"co_occurrences"`
}

// Overview carries the corpus-level totals.
type Overview struct {
	TotalThreads     int        `json:"total_threads"`
	DateRange        *DateRange `json:"date_range"`
	DeclaredMessages int        `json:"declared_messages"`
	ParsedMessages   int        `json:"parsed_messages"`
	AverageMessages  float64    `json:"average_messages"`
	DivergentThreads int        `json:"divergent_threads"`
}

// DateRange is the earliest and latest thread date.
type DateRange struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// TermCount is a key term with the share of threads containing it.
type TermCount struct {
	Term    string  `json:"term"`
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// WeekCount is one bucket of the weekly timeline.
type WeekCount struct {
	WeekStart string `json:"week_start"`
	Count     int    `json:"count"`
	Bar       int    `json:"bar"`
}

// Share is a count with its percentage of all threads.
type Share struct {
	Count   int     `json:"count"`
	Percent float64 `json:"percent"`
}

// Aggregate folds enriched threads into a Summary. Rankings are ordered by count
// descending; ties keep the order in which keys were first seen while walking
// threads in input order.
func Aggregate(threads []*transcript.Thread) Summary {
	n := len(threads)

	services := newCounter()
	terms := newCounter()
	people := newCounter()
	pairs := newCounter()
	weeks := make(map[string]int)

	var pd, sentry int
	for _, t := range threads {
		if len(t.Services) == 0 {
			services.inc(Unidentified)
		}
		for _, s := range t.Services {
			services.inc(s)
		}

		for _, term := range t.KeyTerms {
			terms.inc(term)
		}
		for _, p := range t.PeopleInvolved {
			people.inc(p)
		}
		for _, pair := range termPairs(t.KeyTerms) {
			pairs.inc(pair)
		}

		if t.Date != nil {
			if d, ok := ParseDate(*t.Date); ok {
				weeks[WeekStart(d).Format(dateLayout)]++
			}
		}

		if t.HasPagerDuty {
			pd++
		}
		if t.HasSentry {
			sentry++
		}
	}

	termCounts := make([]TermCount, 0, len(terms.items))
	for _, c := range terms.ranked(0) {
		termCounts = append(termCounts, TermCount{Term: c.Key, Count: c.Count, Percent: Percent(c.Count, n)})
	}

	return Summary{
		Overview:      BuildOverview(threads),
		Services:      services.ranked(0),
		KeyTerms:      termCounts,
		Contributors:  people.ranked(MaxContributors),
		Weekly:        weeklySeries(weeks),
		PagerDuty:     Share{Count: pd, Percent: Percent(pd, n)},
		Sentry:        Share{Count: sentry, Percent: Percent(sentry, n)},
		CoOccurrences: pairs.ranked(MaxPairs),
	}
}

// Percent returns count/total*100, or 0 when total is 0.
func Percent(count, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(count) / float64(total) * 100
}

// OneDecimal formats v with one decimal place, rounding ties away from zero
// (31.25 renders as "31.3", not the round-half-even "31.2").
func OneDecimal(v float64) string {
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}

// BuildOverview computes the corpus totals. Threads without a declared message
// count add nothing to DeclaredMessages; undated threads are left out of the range.
func BuildOverview(threads []*transcript.Thread) Overview {
	ov := Overview{TotalThreads: len(threads)}

	var from, to string
	for _, t := range threads {
		if t.MessageCount != nil {
			ov.DeclaredMessages += *t.MessageCount
		}
		ov.ParsedMessages += t.ParsedCount()
		if t.CountDiverges() {
			ov.DivergentThreads++
		}

		if t.Date == nil {
			continue
		}
		if _, ok := ParseDate(*t.Date); !ok {
			continue
		}
		if from == "" || *t.Date < from {
			from = *t.Date
		}
		if to == "" || *t.Date > to {
			to = *t.Date
		}
	}

	if from != "" {
		ov.DateRange = &DateRange{From: from, To: to}
	}
	if ov.TotalThreads > 0 {
		ov.AverageMessages = float64(ov.DeclaredMessages) / float64(ov.TotalThreads)
	}
	return ov
}

// termPairs returns the canonical keys for every unordered pair of distinct terms.
func termPairs(terms []string) []string {
	sorted := make([]string, len(terms))
	copy(sorted, terms)
	sort.Strings(sorted)

	var out []string
	for i := 0; i < len(sorted); i++ {
		for j := i + 1; j < len(sorted); j++ {
			if sorted[i] == sorted[j] {
				continue
			}
			out = append(out, sorted[i]+PairConnector+sorted[j])
		}
	}
	return out
}

func weeklySeries(weeks map[string]int) []WeekCount {
	keys := make([]string, 0, len(weeks))
	maxCount := 0
	for k, c := range weeks {
		keys = append(keys, k)
		if c > maxCount {
			maxCount = c
		}
	}
	sort.Strings(keys)

	out := make([]WeekCount, 0, len(keys))
	for _, k := range keys {
		c := weeks[k]
		out = append(out, WeekCount{WeekStart: k, Count: c, Bar: BarLength(c, maxCount, BarWidth)})
	}
	return out
}
