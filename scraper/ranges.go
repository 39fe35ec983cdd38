package scraper

import (
	"regexp"
	"strconv"
	"strings"
)

// IndexRange is an inclusive 1-based range of per-location occurrence
// positions.
type IndexRange struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

var (
	rangeSplitRe = regexp.MustCompile(`[,;]+`)
	rangeExprRe  = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
)

// ParseRangeSpec parses "1-20,30-40,55" into inclusive ranges. Bare numbers
// become single-position ranges and descending expressions are normalized
// to ascending. Unparseable tokens are dropped.
func ParseRangeSpec(spec string) []IndexRange {
	var out []IndexRange

	for _, token := range rangeSplitRe.Split(spec, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		if m := rangeExprRe.FindStringSubmatch(token); m != nil {
			a, _ := strconv.Atoi(m[1])
			b, _ := strconv.Atoi(m[2])

			if a > b {
				a, b = b, a
			}

			out = append(out, IndexRange{Start: a, End: b})

			continue
		}

		if n, err := strconv.Atoi(token); err == nil {
			out = append(out, IndexRange{Start: n, End: n})
		}
	}

	return out
}

// ParseRangeList parses each element of an explicit list of range
// expressions.
func ParseRangeList(items []string) []IndexRange {
	var out []IndexRange

	for _, item := range items {
		out = append(out, ParseRangeSpec(item)...)
	}

	return out
}

// RangesFromPairs normalizes explicit (start, end) pairs.
func RangesFromPairs(pairs [][2]int) []IndexRange {
	out := make([]IndexRange, 0, len(pairs))

	for _, p := range pairs {
		a, b := p[0], p[1]
		if a > b {
			a, b = b, a
		}

		out = append(out, IndexRange{Start: a, End: b})
	}

	return out
}

func (r IndexRange) contains(pos int) bool {
	return r.Start <= pos && pos <= r.End
}

// FilterByOccurrence keeps each link whose 1-based occurrence position
// within its location code falls inside any of the ranges. With no ranges
// it returns a copy of the input unchanged. The pass is stable and never
// reorders elements.
func FilterByOccurrence(links []CollectedLink, ranges []IndexRange) []CollectedLink {
	if len(ranges) == 0 {
		out := make([]CollectedLink, len(links))
		copy(out, links)

		return out
	}

	counters := make(map[string]int)

	var out []CollectedLink

	for _, link := range links {
		counters[link.Location]++
		pos := counters[link.Location]

		for _, r := range ranges {
			if r.contains(pos) {
				out = append(out, link)
				break
			}
		}
	}

	return out
}
