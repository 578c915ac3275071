// Package rule holds the lexical rules shared by the HTTP/1.1 message codec.
//
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6
package rule

import (
	"bytes"
	"strings"
)

const (
	CR   byte = '\r'
	LF   byte = '\n'
	SP   byte = ' '
	HTAB byte = '\t'
)

var CRLF = []byte{CR, LF}

// IsOWS reports whether r is optional whitespace (SP or HTAB).
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.3
func IsOWS(r rune) bool { return r == rune(SP) || r == rune(HTAB) }

// TrimOWS trims leading and trailing SP and HTAB.
func TrimOWS(b []byte) []byte { return bytes.TrimFunc(b, IsOWS) }

func IsDigit(r rune) bool { return '0' <= r && r <= '9' }

func IsHexDigit(r rune) bool {
	return IsDigit(r) || ('a' <= r && r <= 'f') || ('A' <= r && r <= 'F')
}

// tchar = "!" / "#" / "$" / "%" / "&" / "'" / "*" / "+" / "-" / "." /
// "^" / "_" / "`" / "|" / "~" / DIGIT / ALPHA
func isTchar(r rune) bool {
	switch {
	case 'a' <= r && r <= 'z', 'A' <= r && r <= 'Z', IsDigit(r):
		return true
	}
	return strings.ContainsRune("!#$%&'*+-.^_`|~", r)
}

// IsValidToken reports whether s is a non-empty sequence of tchar.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.2-2
func IsValidToken(s string) bool {
	return s != "" && strings.IndexFunc(s, func(r rune) bool { return !isTchar(r) }) < 0
}

// Unquote strips surrounding double quotes and resolves quoted-pairs.
// Anything not wrapped in quotes is returned as a copy.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-5.6.4
func Unquote(s []byte) []byte {
	inner, ok := bytes.CutPrefix(s, []byte{'"'})
	if ok {
		inner, ok = bytes.CutSuffix(inner, []byte{'"'})
	}
	if !ok {
		return bytes.Clone(s)
	}

	out := make([]byte, 0, len(inner))
	escaped := false
	for _, c := range inner {
		if c == '\\' && !escaped {
			escaped = true
			continue
		}
		escaped = false
		out = append(out, c)
	}
	return out
}
