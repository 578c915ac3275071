package transfer

import (
	"bytes"
	"io"
	"strings"
	"testing"
	"testing/iotest"

	iolib "http-request/lib/io"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
)

type ChunkedReaderTestSuite struct {
	suite.Suite
}

func TestChunkedReaderTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedReaderTestSuite))
}

func (s *ChunkedReaderTestSuite) TestRead() {
	input := []byte("" +
		"5;ext=foo\r\n" +
		"ABCDE\r\n" +
		"a\r\n" +
		"FGHIJKLNMO\r\n" +
		"0\r\n" + // last chunk
		"Hello: World\r\n" + // trailer
		"\r\n", // empty trailer (last trailer)
	)

	cr := NewChunkedReader(bytes.NewReader(input))

	buf := make([]byte, 2)
	// First read reads only AB
	n, err := cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal([]byte("AB"), buf)

	buf = make([]byte, 10)
	// Second read reads all the data in first chunk.
	n, err = cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(3, n)
	s.Equal([]byte("CDE"), buf[:n])

	// Third read reads all the data in second chunk.
	n, err = cr.Read(buf)
	s.Require().NoError(err)
	s.Equal(len(buf), n)
	s.Equal([]byte("FGHIJKLNMO"), buf)

	// Fourth read reads last chunk.
	n, err = cr.Read(buf)
	s.Require().ErrorIs(err, io.EOF)
	s.Equal(0, n)
}

func (s *ChunkedReaderTestSuite) TestReadAll() {
	testcases := []struct {
		desc     string
		input    string
		expected string
		wantErr  error
	}{
		{
			desc:     "single chunk",
			input:    "3\r\nfoo\r\n0\r\n\r\n",
			expected: "foo",
		},
		{
			desc:     "empty body",
			input:    "0\r\n\r\n",
			expected: "",
		},
		{
			desc:     "upper and lower hex",
			input:    "A\r\n0123456789\r\nb\r\n0123456789a\r\n0\r\n\r\n",
			expected: "01234567890123456789a",
		},
		{
			desc:    "non-hex size",
			input:   "zz\r\nfoo\r\n0\r\n\r\n",
			wantErr: ErrMalformedChunk,
		},
		{
			desc:    "missing CRLF after data",
			input:   "3\r\nfooXX0\r\n\r\n",
			wantErr: ErrMalformedChunk,
		},
		{
			desc:    "EOF in the middle of data",
			input:   "5\r\nfo",
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			desc:    "EOF before last chunk",
			input:   "3\r\nfoo\r\n",
			wantErr: io.ErrUnexpectedEOF,
		},
		{
			desc:    "trailer without colon",
			input:   "0\r\nFoo bar\r\n\r\n",
			wantErr: ErrMalformedChunk,
		},
		{
			desc:    "EOF in trailer section",
			input:   "0\r\nFoo: bar\r\n",
			wantErr: io.ErrUnexpectedEOF,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			b, err := io.ReadAll(NewChunkedReader(strings.NewReader(tc.input)))
			if tc.wantErr != nil {
				s.ErrorIs(err, tc.wantErr)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected, string(b))
		})
	}
}

func (s *ChunkedReaderTestSuite) TestReadOneByte() {
	input := "3\r\nfoo\r\n4;a=\"b\"\r\nbarz\r\n0\r\n\r\n"

	b, err := io.ReadAll(NewChunkedReader(iotest.OneByteReader(strings.NewReader(input))))
	s.Require().NoError(err)
	s.Equal("foobarz", string(b))
}

func (s *ChunkedReaderTestSuite) TestLeavesRestUnread() {
	ur := iolib.NewUntilReader(strings.NewReader("3\r\nfoo\r\n0\r\n\r\nrest"))

	b, err := io.ReadAll(NewChunkedReader(ur))
	s.Require().NoError(err)
	s.Equal("foo", string(b))

	rest, err := io.ReadAll(ur)
	s.Require().NoError(err)
	s.Equal("rest", string(rest))
}

func (s *ChunkedReaderTestSuite) TestMaxLineLength() {
	cr := NewChunkedReader(strings.NewReader("3;long-extension=foo\r\nfoo\r\n0\r\n\r\n"))
	cr.SetMaxLineLength(8)

	_, err := io.ReadAll(cr)
	s.ErrorIs(err, ErrMalformedChunk)
}

func (s *ChunkedReaderTestSuite) TestDecodeChunk() {
	testcases := []struct {
		desc     string
		input    string
		expected Chunk
		wantErr  bool
	}{
		{
			desc:  "example chunk",
			input: "5;ext=foo\r\n",
			expected: Chunk{
				Size: 5,
				Extensions: [][2]string{
					{"ext", "foo"},
				},
			},
		},
		{
			desc:  "BWS inside chunk",
			input: "5 ; ext = foo\r\n",
			expected: Chunk{
				Size: 5,
				Extensions: [][2]string{
					{"ext", "foo"},
				},
			},
		},
		{
			desc:  "quoted extension",
			input: "5;ext=\"a \\\"b\\\"\"\r\n",
			expected: Chunk{
				Size: 5,
				Extensions: [][2]string{
					{"ext", "a \"b\""},
				},
			},
		},
		{
			desc:    "malformed chunk (empty)",
			input:   "\r\n",
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		s.Run(tc.desc, func() {
			cr := NewChunkedReader(strings.NewReader(tc.input))

			err := cr.decodeChunk()
			if tc.wantErr {
				s.Error(err)
				return
			}

			s.Require().NoError(err)
			s.Equal(tc.expected, *cr.chunk)
		})
	}
}

func TestDecodeChunkSize(t *testing.T) {
	testcases := []struct {
		desc     string
		input    []byte
		expected uint
		wantErr  bool
	}{
		{
			desc:     "normal hex",
			input:    []byte("FF"),
			expected: 0xFF,
		},
		{
			desc:    "invalid hex",
			input:   []byte("haha this aint hex"),
			wantErr: true,
		},
		{
			desc:    "signed hex",
			input:   []byte("-1"),
			wantErr: true,
		},
		{
			desc:    "hex too long",
			input:   []byte("FFFFFFFFFFFFFFFFFF"), // 9 bytes
			wantErr: true,
		},
	}

	for _, tc := range testcases {
		t.Run(tc.desc, func(t *testing.T) {
			size, err := decodeChunkSize(tc.input)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrMalformedChunk)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tc.expected, size)
		})
	}
}

// Trailer fields are consumed and nothing after them.
func (s *ChunkedReaderTestSuite) TestDecodeTrailers() {
	ur := iolib.NewUntilReader(strings.NewReader("" +
		"Hello: World\r\n" +
		"Foo:Bar \r\n" +
		"\r\n" +
		"HTTP/1.1"))

	s.NoError(NewChunkedReader(ur).decodeTrailers())

	rest, err := io.ReadAll(ur)
	s.Require().NoError(err)
	s.Equal("HTTP/1.1", string(rest))
}

type ChunkedWriterTestSuite struct {
	suite.Suite
}

func TestChunkedWriterTestSuite(t *testing.T) {
	suite.Run(t, new(ChunkedWriterTestSuite))
}

func (s *ChunkedWriterTestSuite) TestWrite() {
	buf := bytes.NewBuffer(nil)

	cw := NewChunkedWriter(buf)

	// Empty write is ignored
	n, err := cw.Write(nil)
	s.Require().NoError(err)
	s.Require().Zero(n)
	s.Require().Empty(buf.Bytes())

	p := []byte("123456789ABCDEF")

	n, err = cw.Write(p)
	s.Require().NoError(err)
	s.Equal(len(p), n)
	s.Equal("f\r\n123456789ABCDEF\r\n", buf.String())
}

func (s *ChunkedWriterTestSuite) TestClose() {
	buf := bytes.NewBuffer(nil)

	s.Require().NoError(NewChunkedWriter(buf).Close())
	s.Equal("0\r\n\r\n", buf.String())
}

func (s *ChunkedWriterTestSuite) TestRoundTrip() {
	buf := bytes.NewBuffer(nil)

	cw := NewChunkedWriter(buf)
	for _, p := range []string{"Hello", ", ", "World"} {
		_, err := cw.Write([]byte(p))
		s.Require().NoError(err)
	}
	s.Require().NoError(cw.Close())

	b, err := io.ReadAll(NewChunkedReader(buf))
	s.Require().NoError(err)
	s.Equal("Hello, World", string(b))
}

func TestWriteLine(t *testing.T) {
	line := []byte("hello")

	buf := bytes.NewBuffer(nil)
	err := writeLine(buf, line)
	assert.NoError(t, err)

	assert.Equal(t, []byte("hello\r\n"), buf.Bytes())
}
