package http

import (
	"strconv"

	"http-request/application/http/status"
	"http-request/application/http/transfer"
	"http-request/application/util/rule"

	"github.com/pkg/errors"
)

// framing tells how the end of a response body is found.
type framing struct {
	kind   framingKind
	length uint // for framingContentLength
}

type framingKind int

const (
	framingNone framingKind = iota
	framingChunked
	framingContentLength
	framingEOF
)

func (f framing) String() string {
	switch f.kind {
	case framingNone:
		return "none"
	case framingChunked:
		return "chunked"
	case framingContentLength:
		return "content-length(" + strconv.FormatUint(uint64(f.length), 10) + ")"
	case framingEOF:
		return "eof"
	}
	return "unknown"
}

// determineFraming decides how the body of a response to method is delimited.
// Checked in order: responses that never have a body, chunked transfer coding,
// Content-Length, and at last connection close.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3
func determineFraming(method Method, code uint, headers Headers) (framing, error) {
	if method == MethodHead ||
		status.IsInformational(code) ||
		code == status.NoContent.Code ||
		code == status.NotModified.Code {
		return framing{kind: framingNone}, nil
	}

	if transfer.IsChunked(headers.Values("Transfer-Encoding")) {
		return framing{kind: framingChunked}, nil
	}

	if value, ok := headers.Get("Content-Length"); ok {
		length, err := parseContentLength(value)
		if err != nil {
			return framing{}, err
		}
		return framing{kind: framingContentLength, length: length}, nil
	}

	return framing{kind: framingEOF}, nil
}

func parseContentLength(value string) (uint, error) {
	if value == "" {
		return 0, errors.Wrap(ErrMalformedContentLength, "empty value")
	}

	for _, c := range value {
		if !rule.IsDigit(c) {
			return 0, errors.Wrapf(ErrMalformedContentLength, "not a number: %q", value)
		}
	}

	length, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedContentLength, "out of range: %q", value)
	}

	return uint(length), nil
}
