package http

import (
	"bufio"
	"bytes"
	"io"
	nethttp "net/http"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/suite"
)

type MessageEncoderTestSuite struct {
	suite.Suite
}

func TestMessageEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(MessageEncoderTestSuite))
}

func newTestEncoder(w io.Writer, opts EncodeOptions) *MessageEncoder {
	return &MessageEncoder{bw: bufio.NewWriter(w), opts: opts}
}

func (s *MessageEncoderTestSuite) TestWriteStartLine() {
	testcases := []struct {
		desc     string
		parts    [3]string
		opts     EncodeOptions
		expected string
	}{
		{
			desc:     "request line",
			parts:    [3]string{"GET", "/", "HTTP/1.1"},
			expected: "GET / HTTP/1.1\r\n",
		},
		{
			desc:     "status line without reason phrase",
			parts:    [3]string{"HTTP/1.1", "204", ""},
			expected: "HTTP/1.1 204 \r\n",
		},
		{
			desc:     "sole LF",
			parts:    [3]string{"HTTP/1.0", "200", "OK"},
			opts:     EncodeOptions{UseSoleLF: true},
			expected: "HTTP/1.0 200 OK\n",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var buf bytes.Buffer
			me := newTestEncoder(&buf, tc.opts)

			s.Require().NoError(me.writeStartLine(tc.parts[0], tc.parts[1], tc.parts[2]))
			s.Require().NoError(me.bw.Flush())

			s.Equal(tc.expected, buf.String())
		})
	}
}

func (s *MessageEncoderTestSuite) TestEncodeHeaders() {
	testcases := []struct {
		desc     string
		headers  Headers
		opts     EncodeOptions
		expected string
	}{
		{
			desc: "order and duplicates are kept",
			headers: Headers{
				{"X-B", "1"},
				{"X-A", "2"},
				{"X-B", "3"},
			},
			expected: "X-B: 1\r\nX-A: 2\r\nX-B: 3\r\n\r\n",
		},
		{
			desc:     "empty value",
			headers:  Headers{{"X-Empty", ""}},
			expected: "X-Empty: \r\n\r\n",
		},
		{
			desc:     "no headers",
			headers:  nil,
			expected: "\r\n",
		},
		{
			desc:     "sole LF",
			headers:  Headers{{"Host", "example.com"}},
			opts:     EncodeOptions{UseSoleLF: true},
			expected: "Host: example.com\n\n",
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			var buf bytes.Buffer
			me := newTestEncoder(&buf, tc.opts)

			s.Require().NoError(me.encodeHeaders(tc.headers))
			s.Require().NoError(me.bw.Flush())

			s.Equal(tc.expected, buf.String())
		})
	}
}

type failingWriter struct{ err error }

func (w failingWriter) Write(p []byte) (int, error) { return 0, w.err }

func (s *MessageEncoderTestSuite) TestWriteError() {
	errBroken := errors.New("broken")

	me := newTestEncoder(failingWriter{errBroken}, DefaultEncodeOptions)
	s.ErrorIs(me.encodeBody([]byte("body")), errBroken)

	re := NewRequestEncoder(failingWriter{errBroken})
	s.ErrorIs(re.Encode(Get("example.com")), errBroken)
}

type RequestEncoderTestSuite struct {
	suite.Suite
}

func TestRequestEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(RequestEncoderTestSuite))
}

func (s *RequestEncoderTestSuite) TestEncode() {
	body := "field1=value1"

	input := Post("example.com/example", []byte(body)).
		Header("Content-Type", "application/x-www-form-urlencoded")

	expected := "" +
		"POST /example HTTP/1.1\r\n" +
		"Host: example.com\r\n" +
		"Content-Type: application/x-www-form-urlencoded\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		body

	buf := bytes.NewBuffer(nil)
	re := NewRequestEncoder(buf)

	s.NoError(re.Encode(input))

	s.Equal(expected, buf.String())
}

func (s *RequestEncoderTestSuite) TestEncodeInvalid() {
	buf := bytes.NewBuffer(nil)
	re := NewRequestEncoder(buf)

	s.ErrorIs(re.Encode(&Request{Method: MethodGet}), ErrEmptyHost)
	s.Empty(buf.Bytes(), "nothing is written for invalid request")
}

func (s *RequestEncoderTestSuite) TestEncodeRequestLine() {
	expected := "GET /example HTTP/1.1\r\n"

	buf := bytes.NewBuffer(nil)
	re := NewRequestEncoder(buf)

	s.NoError(re.encodeRequestLine(MethodGet, "/example"))
	s.NoError(re.bw.Flush())

	s.Equal(expected, buf.String())
}

// Requests are readable by a third party parser.
func (s *RequestEncoderTestSuite) TestReadableByNetHTTP() {
	input := Put("example.com:8080/a/b?c=d", []byte("payload")).
		Header("X-Custom", "1").
		Header("X-Custom", "2")

	b, err := input.Bytes()
	s.Require().NoError(err)

	req, err := nethttp.ReadRequest(bufio.NewReader(bytes.NewReader(b)))
	s.Require().NoError(err)

	s.Equal("PUT", req.Method)
	s.Equal("/a/b?c=d", req.RequestURI)
	s.Equal("example.com:8080", req.Host)
	s.Equal([]string{"1", "2"}, req.Header.Values("X-Custom"))
	s.EqualValues(len("payload"), req.ContentLength)

	body, err := io.ReadAll(req.Body)
	s.Require().NoError(err)
	s.Equal("payload", string(body))
}

type ResponseEncoderTestSuite struct {
	suite.Suite
}

func TestResponseEncoderTestSuite(t *testing.T) {
	suite.Run(t, new(ResponseEncoderTestSuite))
}

func (s *ResponseEncoderTestSuite) TestEncode() {
	body := "field1=value1"

	input := &Response{
		StatusLine: StatusLine{
			Version:      Version{1, 1},
			StatusCode:   200,
			ReasonPhrase: "OK",
		},
		Headers: Headers{
			{"Content-Length", "13"},
		},
		Body: []byte(body),
	}

	expected := "" +
		"HTTP/1.1 200 OK\r\n" +
		"Content-Length: 13\r\n" +
		"\r\n" +
		body

	buf := bytes.NewBuffer(nil)
	re := NewResponseEncoder(buf, DefaultEncodeOptions)

	s.NoError(re.Encode(input))

	s.Equal(expected, buf.String())
}

func (s *ResponseEncoderTestSuite) TestEncodeStatusLine() {
	input := StatusLine{
		Version:      Version{1, 1},
		StatusCode:   200,
		ReasonPhrase: "OK",
	}

	expected := "HTTP/1.1 200 OK\r\n"

	buf := bytes.NewBuffer(nil)
	re := NewResponseEncoder(buf, DefaultEncodeOptions)

	s.NoError(re.encodeStatusLine(input))
	s.NoError(re.bw.Flush())

	s.Equal(expected, buf.String())
}
