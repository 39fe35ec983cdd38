// Package locations expands free-text location specs into ordered lists of
// location codes.
package locations

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	splitRe = regexp.MustCompile(`[,;\n]+`)
	rangeRe = regexp.MustCompile(`^(\d+)\s*-\s*(\d+)$`)
)

// Expand parses a spec like "10001,10005-10008;90210" into an ordered list
// of codes. Numeric A-B ranges are expanded in place, descending when A>B.
// Empty tokens are dropped. Duplicates are kept.
func Expand(spec string) []string {
	var out []string

	for _, token := range splitRe.Split(spec, -1) {
		token = strings.TrimSpace(token)
		if token == "" {
			continue
		}

		m := rangeRe.FindStringSubmatch(token)
		if m == nil {
			out = append(out, token)
			continue
		}

		a, _ := strconv.Atoi(m[1])
		b, _ := strconv.Atoi(m[2])

		if a <= b {
			for z := a; z <= b; z++ {
				out = append(out, strconv.Itoa(z))
			}
		} else {
			for z := a; z >= b; z-- {
				out = append(out, strconv.Itoa(z))
			}
		}
	}

	return out
}

// ExpandList expands each element of an explicit list, preserving order.
func ExpandList(items []string) []string {
	var out []string

	for _, item := range items {
		out = append(out, Expand(item)...)
	}

	return out
}
