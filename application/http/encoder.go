package http

import (
	"bufio"
	"io"
	"strconv"

	"http-request/application/util/rule"

	"github.com/pkg/errors"
)

// EncodeOptions apply to [ResponseEncoder]. Requests are always written with CRLF.
type EncodeOptions struct {
	// UseSoleLF specifies wheter a single LF character should be used as a line terminator.
	//
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-2.2-3
	UseSoleLF bool
}

var DefaultEncodeOptions = EncodeOptions{
	UseSoleLF: false,
}

type MessageEncoder struct {
	bw   *bufio.Writer
	opts EncodeOptions
}

func (me *MessageEncoder) writeLine(line []byte) error {
	if _, err := me.bw.Write(line); err != nil {
		return errors.Wrap(err, "writing line")
	}

	term := rule.CRLF
	if me.opts.UseSoleLF {
		term = term[1:]
	}

	if _, err := me.bw.Write(term); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

// writeStartLine joins the three parts of a request or status line with SP.
func (me *MessageEncoder) writeStartLine(first, second, third string) error {
	line := make([]byte, 0, len(first)+len(second)+len(third)+2)
	line = append(line, first...)
	line = append(line, rule.SP)
	line = append(line, second...)
	line = append(line, rule.SP)
	line = append(line, third...)

	if err := me.writeLine(line); err != nil {
		return errors.Wrap(err, "writing start line")
	}
	return nil
}

func (me *MessageEncoder) encodeHeaders(headers Headers) error {
	for _, field := range headers {
		if err := me.writeLine(field.Text()); err != nil {
			return errors.Wrap(err, "writing field")
		}
	}

	// Write a empty line as all the headers are written.
	if err := me.writeLine(nil); err != nil {
		return errors.Wrap(err, "writing line terminator")
	}

	return nil
}

func (me *MessageEncoder) encodeBody(body []byte) error {
	if _, err := me.bw.Write(body); err != nil {
		return errors.Wrap(err, "writing body")
	}

	if err := me.bw.Flush(); err != nil {
		return errors.Wrap(err, "flushing message")
	}

	return nil
}

type RequestEncoder struct{ MessageEncoder }

func NewRequestEncoder(w io.Writer) *RequestEncoder {
	return &RequestEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: DefaultEncodeOptions,
		},
	}
}

// Encode writes request line, Host, the request's headers as given,
// Content-Length if the request has a body, an empty line and then the body.
// Nothing is written if the request is invalid.
func (re *RequestEncoder) Encode(request *Request) error {
	if err := request.validate(); err != nil {
		return err
	}

	if err := re.encodeRequestLine(request.Method, request.Target()); err != nil {
		return errors.Wrap(err, "encoding request line")
	}

	headers := make(Headers, 0, len(request.Headers)+2)
	headers.Add("Host", request.Host)
	headers = append(headers, request.Headers...)
	if request.Body != nil {
		headers.Add("Content-Length", strconv.Itoa(len(request.Body)))
	}

	if err := re.encodeHeaders(headers); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.encodeBody(request.Body); err != nil {
		return errors.Wrap(err, "encoding body")
	}

	return nil
}

func (re *RequestEncoder) encodeRequestLine(method Method, target string) error {
	return re.writeStartLine(string(method), target, Version11.String())
}

// ResponseEncoder writes responses as they are. No field is added, so framing is up to the caller.
type ResponseEncoder struct{ MessageEncoder }

func NewResponseEncoder(w io.Writer, opts EncodeOptions) *ResponseEncoder {
	return &ResponseEncoder{
		MessageEncoder{
			bw:   bufio.NewWriter(w),
			opts: opts,
		},
	}
}

func (re *ResponseEncoder) Encode(response *Response) error {
	if err := re.encodeStatusLine(response.StatusLine); err != nil {
		return errors.Wrap(err, "encoding status line")
	}

	if err := re.encodeHeaders(response.Headers); err != nil {
		return errors.Wrap(err, "encoding headers")
	}

	if err := re.encodeBody(response.Body); err != nil {
		return errors.Wrap(err, "encoding body")
	}

	return nil
}

// A status line with an empty reason phrase still keeps the SP after the code.
func (re *ResponseEncoder) encodeStatusLine(statLine StatusLine) error {
	code := strconv.FormatUint(uint64(statLine.StatusCode), 10)
	return re.writeStartLine(statLine.Version.String(), code, statLine.ReasonPhrase)
}
