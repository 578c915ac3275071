package http

import (
	"github.com/pkg/errors"
)

// ErrInvalidRequest is returned before any I/O when a request can't be sent as it is.
var (
	ErrInvalidRequest  = errors.New("invalid request")
	ErrEmptyHost       = errors.WithMessage(ErrInvalidRequest, "host is empty")
	ErrRequestConsumed = errors.WithMessage(ErrInvalidRequest, "request is already sent")
)

// ErrMalformed is returned when response bytes don't follow the message syntax.
// Every parse failure matches it with [errors.Is].
var (
	ErrMalformed = errors.New("malformed response")

	ErrMissingCRBeforeLF      = errors.WithMessage(ErrMalformed, "missing CR before LF")
	ErrStatusLineTooLong      = errors.WithMessage(ErrMalformed, "status line length exceeds limit")
	ErrMalformedStatusLine    = errors.WithMessage(ErrMalformed, "status line is malformed")
	ErrFieldLineTooLong       = errors.WithMessage(ErrMalformed, "field line length exceeds limit")
	ErrMalformedFieldLine     = errors.WithMessage(ErrMalformed, "field line is malformed")
	ErrMalformedContentLength = errors.WithMessage(ErrMalformed, "Content-Length is malformed")
	ErrMalformedChunk         = errors.WithMessage(ErrMalformed, "chunk is malformed")
	ErrTruncated              = errors.WithMessage(ErrMalformed, "connection closed before message end")
)

// TransportError wraps a failure of the underlying connection.
type TransportError struct {
	Op  string // "dial", "write" or "read"
	Err error
}

func (e *TransportError) Error() string {
	return "transport " + e.Op + ": " + e.Err.Error()
}

func (e *TransportError) Cause() error  { return e.Err }
func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err came from the underlying connection.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
