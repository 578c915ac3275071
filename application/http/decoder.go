package http

import (
	"bytes"
	"io"
	"strconv"
	"strings"

	"http-request/application/http/transfer"
	"http-request/application/util/rule"
	iolib "http-request/lib/io"

	"github.com/pkg/errors"
)

type DecodeOptions struct {
	// AllowSoleLF specifies wheter a single LF character should be recognized as a valid line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	AllowSoleLF bool

	// MaxFieldLineLength sets the limit of field line length on headers and chunked trailers.
	// Zero means no limit.
	MaxFieldLineLength uint

	// MaxRequestLineLength sets the limit of request line length.
	// Recommended: >= 8000
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3-5
	MaxRequestLineLength uint

	// MaxStatusLineLength sets the limit of status line length. Zero means no limit.
	MaxStatusLineLength uint
}

var DefaultDecodeOptions = DecodeOptions{
	AllowSoleLF:          false,
	MaxFieldLineLength:   0,
	MaxRequestLineLength: 0,
	MaxStatusLineLength:  0,
}

type MessageDecoder struct {
	ur   *iolib.UntilReader
	opts DecodeOptions
}

var errLineTooLong = errors.New("line length exceeeds limit")

// readLine reads a line without its terminator.
// It returns [io.EOF] if the stream ended before any byte of the line,
// and [io.ErrUnexpectedEOF] if it ended in the middle of it.
func (md *MessageDecoder) readLine(limit uint) ([]byte, error) {
	b, err := md.ur.ReadUntilLimit([]byte{rule.LF}, limit)
	if err != nil {
		switch {
		case errors.Is(err, iolib.ErrLimitExceeded):
			return nil, errLineTooLong
		case err == io.EOF && len(b) == 0:
			return nil, io.EOF
		case err == io.EOF:
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	b = b[:len(b)-1] // Remove LF.

	if len(b) > 0 && b[len(b)-1] == rule.CR {
		b = b[:len(b)-1] // Remove CR.
	} else if !md.opts.AllowSoleLF {
		return nil, ErrMissingCRBeforeLF
	}

	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-4
	b = bytes.ReplaceAll(b, []byte{rule.CR}, []byte{rule.SP})

	return b, nil
}

// readStartLine skips empty lines and returns the first non-empty one.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-6
func (md *MessageDecoder) readStartLine(limit uint) ([]byte, error) {
	for {
		b, err := md.readLine(limit)
		if err != nil {
			return nil, err
		}

		if len(b) > 0 {
			return b, nil
		}
	}
}

// decodeFieldLine parses a field line into headers.
// A line starting with whitespace continues the previous field (obs-fold).
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-5.2
func decodeFieldLine(headers Headers, line []byte) (Headers, error) {
	if rule.IsOWS(rune(line[0])) {
		if len(headers) == 0 {
			return nil, errors.Wrap(ErrMalformedFieldLine, "continuation line without preceding field")
		}

		cont := rule.TrimOWS(line)
		if len(cont) == 0 {
			return headers, nil
		}

		last := &headers[len(headers)-1]
		if last.Value == "" {
			last.Value = string(cont)
		} else {
			last.Value = last.Value + " " + string(cont)
		}
		return headers, nil
	}

	field, err := ParseField(line)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedFieldLine, err.Error())
	}

	if field.Name == "" {
		return nil, errors.Wrap(ErrMalformedFieldLine, "empty field name")
	}

	return append(headers, field), nil
}

// decodeHeaders reads field lines up to and including the empty line.
func (md *MessageDecoder) decodeHeaders() (Headers, error) {
	headers := make(Headers, 0)
	for {
		line, err := md.readLine(md.opts.MaxFieldLineLength)
		if err != nil {
			return nil, md.headerError(err)
		}

		if len(line) == 0 {
			// An empty line. This means that there are no more headers.
			return headers, nil
		}

		if headers, err = decodeFieldLine(headers, line); err != nil {
			return nil, err
		}
	}
}

func (md *MessageDecoder) headerError(err error) error {
	switch {
	case errors.Is(err, errLineTooLong):
		return ErrFieldLineTooLong
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return errors.Wrap(ErrTruncated, "reading headers")
	}
	return errors.Wrap(err, "reading line")
}

// decodeBody reads a body delimited by f.
func (md *MessageDecoder) decodeBody(f framing) ([]byte, error) {
	switch f.kind {
	case framingNone:
		return []byte{}, nil

	case framingContentLength:
		body, err := iolib.ReadN(md.ur, f.length)
		if err != nil {
			if errors.Is(err, io.ErrUnexpectedEOF) {
				return nil, errors.Wrapf(ErrTruncated, "read %d of %d bytes", len(body), f.length)
			}
			return nil, errors.Wrap(err, "reading body")
		}
		return body, nil

	case framingChunked:
		cr := transfer.NewChunkedReader(md.ur)
		cr.SetMaxLineLength(md.opts.MaxFieldLineLength)

		body, err := io.ReadAll(cr)
		if err != nil {
			switch {
			case errors.Is(err, transfer.ErrMalformedChunk):
				return nil, errors.Wrap(ErrMalformedChunk, err.Error())
			case errors.Is(err, io.ErrUnexpectedEOF):
				return nil, errors.Wrap(ErrTruncated, "reading chunked body")
			}
			return nil, errors.Wrap(err, "reading chunked body")
		}
		return body, nil

	case framingEOF:
		body, err := io.ReadAll(md.ur)
		if err != nil {
			return nil, errors.Wrap(err, "reading body until close")
		}
		return body, nil
	}

	return nil, errors.Errorf("unknown framing: %s", f)
}

var (
	ErrRequestLineTooLong   = errors.New("request line length exceeds limit")
	ErrMalformedRequestLine = errors.New("request line is malformed")
)

// RequestDecoder parses requests. It is the counterpart of [RequestEncoder].
type RequestDecoder struct{ MessageDecoder }

func NewRequestDecoder(r io.Reader, opts DecodeOptions) *RequestDecoder {
	return &RequestDecoder{
		MessageDecoder{ur: iolib.NewUntilReader(r), opts: opts},
	}
}

// Decode reads a request. Headers holds every received field, Host and Content-Length included.
// It returns [io.EOF] if the stream ended cleanly before a request.
// r MUST be a non-nil pointer
func (rd *RequestDecoder) Decode(r *Request) error {
	line, err := rd.readStartLine(rd.opts.MaxRequestLineLength)
	if err != nil {
		if errors.Is(err, errLineTooLong) {
			return ErrRequestLineTooLong
		}
		if err == io.EOF {
			return io.EOF
		}
		return errors.Wrap(err, "reading request line")
	}

	method, target, err := parseRequestLine(line)
	if err != nil {
		return errors.Wrap(ErrMalformedRequestLine, err.Error())
	}

	headers, err := rd.decodeHeaders()
	if err != nil {
		return errors.Wrap(err, "parsing headers")
	}

	// Requests without framing have no body.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-6.3-2.6
	f := framing{kind: framingNone}
	if transfer.IsChunked(headers.Values("Transfer-Encoding")) {
		f = framing{kind: framingChunked}
	} else if value, ok := headers.Get("Content-Length"); ok {
		length, err := parseContentLength(value)
		if err != nil {
			return err
		}
		f = framing{kind: framingContentLength, length: length}
	}

	body, err := rd.decodeBody(f)
	if err != nil {
		return errors.Wrap(err, "reading body")
	}
	if f.kind == framingNone {
		body = nil
	}

	host, _ := headers.Get("Host")

	*r = Request{
		Method:  method,
		Host:    host,
		Path:    target,
		Headers: headers,
		Body:    body,
	}

	return nil
}

func parseRequestLine(line []byte) (Method, string, error) {
	parts := bytes.Split(line, []byte{rule.SP})
	if len(parts) != 3 {
		return "", "", errors.New("request line is malformed")
	}

	method := string(parts[0])
	if !rule.IsValidToken(method) {
		return "", "", errors.New("method is not a valid token")
	}

	target := string(parts[1])
	if len(target) == 0 {
		return "", "", errors.New("request target should not be empty")
	}

	ver, err := ParseVersion(parts[2])
	if err != nil {
		return "", "", errors.Wrap(err, "parsing version")
	}
	if !ver.IsHTTP1() {
		return "", "", errors.Errorf("unsupported version: %s", ver)
	}

	return Method(method), target, nil
}

// ResponseDecoder parses responses read from a single connection.
type ResponseDecoder struct{ MessageDecoder }

func NewResponseDecoder(r io.Reader, opts DecodeOptions) *ResponseDecoder {
	return &ResponseDecoder{
		MessageDecoder{ur: iolib.NewUntilReader(r), opts: opts},
	}
}

// Decode reads a response to a request sent with method.
// r is set only when the whole response is received; on error it is left untouched.
//
// Every syntax error matches [ErrMalformed]. Errors of the underlying reader are returned wrapped.
// r MUST be a non-nil pointer
func (rd *ResponseDecoder) Decode(r *Response, method Method) error {
	var state decodeState = awaitingStatusLine{method: method}
	for {
		next, err := state.step(rd)
		if err != nil {
			return err
		}

		if done, ok := next.(complete); ok {
			*r = done.response
			return nil
		}

		state = next
	}
}

// decodeState is a state of response decoding.
// step consumes input needed to leave the state and returns the next one.
type decodeState interface {
	step(rd *ResponseDecoder) (decodeState, error)
}

type (
	awaitingStatusLine struct{ method Method }

	awaitingHeaders struct {
		method     Method
		statusLine StatusLine
		headers    Headers
	}

	determiningFraming struct {
		method     Method
		statusLine StatusLine
		headers    Headers
	}

	readingBody struct {
		statusLine StatusLine
		headers    Headers
		framing    framing
	}

	complete struct{ response Response }
)

func (s awaitingStatusLine) step(rd *ResponseDecoder) (decodeState, error) {
	line, err := rd.readStartLine(rd.opts.MaxStatusLineLength)
	if err != nil {
		switch {
		case errors.Is(err, errLineTooLong):
			return nil, ErrStatusLineTooLong
		case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
			return nil, errors.Wrap(ErrTruncated, "reading status line")
		}
		return nil, errors.Wrap(err, "reading status line")
	}

	statusLine, err := parseStatusLine(line)
	if err != nil {
		return nil, errors.Wrap(ErrMalformedStatusLine, err.Error())
	}

	return awaitingHeaders{
		method:     s.method,
		statusLine: statusLine,
		headers:    make(Headers, 0),
	}, nil
}

func (s awaitingHeaders) step(rd *ResponseDecoder) (decodeState, error) {
	line, err := rd.readLine(rd.opts.MaxFieldLineLength)
	if err != nil {
		return nil, rd.headerError(err)
	}

	if len(line) == 0 {
		return determiningFraming(s), nil
	}

	headers, err := decodeFieldLine(s.headers, line)
	if err != nil {
		return nil, err
	}
	s.headers = headers

	return s, nil
}

func (s determiningFraming) step(_ *ResponseDecoder) (decodeState, error) {
	f, err := determineFraming(s.method, s.statusLine.StatusCode, s.headers)
	if err != nil {
		return nil, err
	}

	return readingBody{
		statusLine: s.statusLine,
		headers:    s.headers,
		framing:    f,
	}, nil
}

func (s readingBody) step(rd *ResponseDecoder) (decodeState, error) {
	body, err := rd.decodeBody(s.framing)
	if err != nil {
		return nil, err
	}

	return complete{
		response: Response{
			StatusLine: s.statusLine,
			Headers:    s.headers,
			Body:       body,
		},
	}, nil
}

func (s complete) step(_ *ResponseDecoder) (decodeState, error) { return s, nil }

// parseStatusLine parses "HTTP-version SP status-code SP [reason-phrase]".
// The SP before an absent reason phrase may be missing too.
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4
func parseStatusLine(line []byte) (StatusLine, error) {
	parts := bytes.SplitN(line, []byte{rule.SP}, 3)
	if len(parts) < 2 {
		return StatusLine{}, errors.New("status line is malformed")
	}

	ver, err := ParseVersion(parts[0])
	if err != nil {
		return StatusLine{}, errors.Wrap(err, "parsing version")
	}
	if ver != Version10 && ver != Version11 {
		return StatusLine{}, errors.Errorf("unsupported version: %s", ver)
	}

	// Any decimal number is taken, the range is not checked.
	statusCodeStr := string(parts[1])
	if statusCodeStr == "" || strings.IndexFunc(statusCodeStr, func(r rune) bool { return !rule.IsDigit(r) }) >= 0 {
		return StatusLine{}, errors.Errorf("status code is malformed: %q", statusCodeStr)
	}
	statusCode, err := strconv.ParseUint(statusCodeStr, 10, 32)
	if err != nil {
		return StatusLine{}, errors.Errorf("status code is out of range: %q", statusCodeStr)
	}

	// reason-phrase is optional.
	reasonPhrase := ""
	if len(parts) == 3 {
		reasonPhrase = string(parts[2])
	}

	return StatusLine{Version: ver, StatusCode: uint(statusCode), ReasonPhrase: reasonPhrase}, nil
}
