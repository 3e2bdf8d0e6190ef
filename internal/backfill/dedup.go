package backfill

import (
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/oncallkb/internal/transcript"
)

// overlapThreshold is the fraction of an export's threads that must already be
// known for the whole export to count as a duplicate.
const overlapThreshold = 0.8

const previewChars = 100

// Fingerprints identifies every thread in an export by its date and opening
// message. Thread numbers restart in every export, so they are left out.
func Fingerprints(text string) []string {
	var fps []string
	for _, b := range transcript.Segment(text) {
		t, ok := transcript.ParseBlock(b.Text)
		if !ok {
			continue
		}
		fps = append(fps, threadFingerprint(t))
	}
	return fps
}

func threadFingerprint(t *transcript.Thread) string {
	date := ""
	if t.Date != nil {
		date = *t.Date
	}
	opener := ""
	if len(t.Messages) > 0 {
		m := t.Messages[0]
		text := strings.TrimSpace(m.Text)
		if r := []rune(text); len(r) > previewChars {
			text = string(r[:previewChars])
		}
		opener = m.Sender + ": " + text
	}
	return date + "|" + opener
}

// FindDuplicate returns the first known file whose threads cover at least
// overlapThreshold of fps. Files are checked in path order.
func FindDuplicate(fps []string, known map[string][]string) (string, bool) {
	if len(fps) == 0 {
		return "", false
	}

	paths := make([]string, 0, len(known))
	for p := range known {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	for _, p := range paths {
		if overlap(fps, known[p]) >= overlapThreshold {
			return p, true
		}
	}
	return "", false
}

// overlap is the fraction of a found in b.
func overlap(a, b []string) float64 {
	if len(a) == 0 {
		return 0
	}
	set := make(map[string]struct{}, len(b))
	for _, s := range b {
		set[s] = struct{}{}
	}
	matches := 0
	for _, s := range a {
		if _, ok := set[s]; ok {
			matches++
		}
	}
	return float64(matches) / float64(len(a))
}
