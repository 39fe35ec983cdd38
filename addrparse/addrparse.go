// Package addrparse extracts city and state components from free-text US
// postal addresses. Parsing is best effort: anything that does not look
// like a US address yields empty components, never an error.
package addrparse

import (
	"regexp"
	"strings"
)

// usTailRe matches the ", City, ST 12345" tail of a US address. The zip is
// optional.
var usTailRe = regexp.MustCompile(`,\s*([^,]+?),\s*([A-Z]{2})(?:\s+\d{5}(?:-\d{4})?)?\s*$`)

var countrySuffixes = []string{", United States", ", USA", ", US"}

type Parser struct{}

func New() Parser {
	return Parser{}
}

func (Parser) Parse(address string) (city, state string) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", ""
	}

	for _, suffix := range countrySuffixes {
		address = strings.TrimSuffix(address, suffix)
	}

	m := usTailRe.FindStringSubmatch(address)
	if m == nil {
		return "", ""
	}

	return strings.TrimSpace(m[1]), m[2]
}
