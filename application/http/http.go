package http

import (
	"bytes"
	"strconv"
	"strings"

	"http-request/application/util/rule"

	"github.com/pkg/errors"
)

// Version is [Major, Minor].
type Version [2]uint

var (
	Version10 = Version{1, 0}
	Version11 = Version{1, 1}
)

var versionPrefix = []byte("HTTP/")

// ParseVersion parses HTTP-version, "HTTP/" DIGIT "." DIGIT.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.3
func ParseVersion(b []byte) (Version, error) {
	digits, ok := bytes.CutPrefix(b, versionPrefix)
	if !ok || len(digits) != 3 || digits[1] != '.' ||
		!rule.IsDigit(rune(digits[0])) || !rule.IsDigit(rune(digits[2])) {
		return Version{}, errors.Errorf("malformed http version: %q", b)
	}

	return Version{uint(digits[0] - '0'), uint(digits[2] - '0')}, nil
}

// Major version 1 is the only one spoken on HTTP/1.1 connections.
func (ver Version) IsHTTP1() bool { return ver[0] == 1 }

func (ver Version) String() string {
	return string(versionPrefix) + strconv.FormatUint(uint64(ver[0]), 10) + "." + strconv.FormatUint(uint64(ver[1]), 10)
}

// Method is a request method. Any token is a valid method, the constants are the common ones.
// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-9.1
type Method string

const (
	MethodGet     Method = "GET"
	MethodHead    Method = "HEAD"
	MethodPost    Method = "POST"
	MethodPut     Method = "PUT"
	MethodDelete  Method = "DELETE"
	MethodConnect Method = "CONNECT"
	MethodOptions Method = "OPTIONS"
	MethodTrace   Method = "TRACE"
	MethodPatch   Method = "PATCH"
)

func (m Method) String() string { return string(m) }

// Field is a single field line. Name and Value are kept as they are on the wire.
type Field struct{ Name, Value string }

// ParseField splits fieldLine on the first colon.
// Value is stripped of leading and trailing whitespace, name is left as is.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5
func ParseField(fieldLine []byte) (Field, error) {
	name, value, found := bytes.Cut(fieldLine, []byte{':'})
	if !found {
		return Field{}, errors.Errorf("colon seperator not found on field line: %q", string(fieldLine))
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.1-3
	value = rule.TrimOWS(value)

	return Field{Name: string(name), Value: string(value)}, nil
}

func (f Field) Text() []byte {
	buf := bytes.NewBuffer(make([]byte, 0, len(f.Name)+len(f.Value)+2))
	buf.WriteString(f.Name)
	buf.Write([]byte(": "))
	buf.WriteString(f.Value)
	return buf.Bytes()
}

// Headers is an ordered list of fields.
// Order is preserved and fields with the same name are never merged.
type Headers []Field

// Get returns value of the first field named name. Name is compared case-insensitively.
func (h Headers) Get(name string) (value string, ok bool) {
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			return f.Value, true
		}
	}
	return "", false
}

// Values returns values of all fields named name, in order.
func (h Headers) Values(name string) []string {
	var values []string
	for _, f := range h {
		if strings.EqualFold(f.Name, name) {
			values = append(values, f.Value)
		}
	}
	return values
}

func (h *Headers) Add(name, value string) {
	*h = append(*h, Field{Name: name, Value: value})
}

func (h Headers) Clone() Headers {
	if h == nil {
		return nil
	}
	return append(Headers(nil), h...)
}
