package analysis

import "sort"

// Count is a ranked key with its tally.
type Count struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// counter tallies keys and remembers the order in which they were first seen,
// so rankings break ties the same way on every run.
type counter struct {
	index map[string]int
	items []Count
}

func newCounter() *counter {
	return &counter{index: make(map[string]int)}
}

func (c *counter) inc(key string) {
	if i, ok := c.index[key]; ok {
		c.items[i].Count++
		return
	}
	c.index[key] = len(c.items)
	c.items = append(c.items, Count{Key: key, Count: 1})
}

// ranked returns the tallies sorted by count descending, first-seen order on ties.
// limit <= 0 means no limit.
func (c *counter) ranked(limit int) []Count {
	out := make([]Count, len(c.items))
	copy(out, c.items)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Count > out[j].Count
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
