package transcript

import "strings"

// Separator is the marker line the exporter writes between threads.
const Separator = "========================================"

// Segment splits an export into candidate blocks. Every non-empty trimmed segment
// is returned; whether it holds a thread is decided by the parser.
func Segment(raw string) []Block {
	return SegmentOn(raw, Separator)
}

// SegmentOn is Segment with an explicit separator.
func SegmentOn(raw, sep string) []Block {
	if sep == "" {
		sep = Separator
	}

	var blocks []Block
	for _, part := range strings.Split(raw, sep) {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		blocks = append(blocks, Block{Index: len(blocks), Text: part})
	}
	return blocks
}

// Join is the inverse of Segment, in the exporter's layout.
func Join(blocks []string) string {
	return strings.Join(blocks, "\n\n"+Separator+"\n\n")
}
