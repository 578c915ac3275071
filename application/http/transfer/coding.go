package transfer

import (
	"strings"

	"http-request/application/util/rule"
)

// Coding is a transfer coding name.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7
type Coding string

const (
	CodingChunked Coding = "chunked"
)

// ParseCodings splits Transfer-Encoding field values into codings, in order of application.
// Coding names are case-insensitive, so they are lowered. Parameters are dropped.
func ParseCodings(values []string) []Coding {
	codings := make([]Coding, 0, len(values))
	for _, value := range values {
		for _, elem := range strings.Split(value, ",") {
			name, _, _ := strings.Cut(elem, ";")
			name = strings.TrimFunc(name, rule.IsOWS)
			if name == "" {
				continue
			}
			codings = append(codings, Coding(strings.ToLower(name)))
		}
	}
	return codings
}

// IsChunked reports whether chunked is one of the codings in Transfer-Encoding values.
func IsChunked(values []string) bool {
	for _, c := range ParseCodings(values) {
		if c == CodingChunked {
			return true
		}
	}
	return false
}
