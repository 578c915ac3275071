package transfer

import (
	"bytes"
	"io"
	"strconv"

	"http-request/application/util/rule"
	iolib "http-request/lib/io"

	"github.com/pkg/errors"
)

var ErrMalformedChunk = errors.New("chunk is malformed")

// Chunk is the header of a chunk. Extensions are kept as parsed and not interpreted.
type Chunk struct {
	Size       uint
	Extensions [][2]string
}

// ChunkedReader converts chunked message body into byte stream.
// Read returns [io.EOF] after the last chunk and its trailer section are consumed,
// leaving the underlying reader right after the body. Trailer fields are checked
// for a colon and discarded.
//
// Premature end of the underlying stream is reported as [io.ErrUnexpectedEOF],
// and framing errors as [ErrMalformedChunk].
type ChunkedReader struct {
	ur *iolib.UntilReader

	chunk  *Chunk
	remain uint // of current chunk
	done   bool

	maxLineLength uint
}

var _ io.Reader = (*ChunkedReader)(nil)

// NewChunkedReader reads chunks from r.
// If r is an [*iolib.UntilReader] it is used directly, so nothing after the body is lost.
func NewChunkedReader(r io.Reader) *ChunkedReader {
	ur, ok := r.(*iolib.UntilReader)
	if !ok {
		ur = iolib.NewUntilReader(r)
	}
	return &ChunkedReader{ur: ur}
}

// SetMaxLineLength limits chunk header and trailer line length. Zero means no limit.
func (cr *ChunkedReader) SetMaxLineLength(n uint) { cr.maxLineLength = n }

func (cr *ChunkedReader) Read(p []byte) (int, error) {
	if cr.done {
		return 0, io.EOF
	}

	if cr.chunk == nil {
		if err := cr.decodeChunk(); err != nil {
			return 0, errors.Wrap(err, "decoding chunk")
		}

		if cr.chunk.Size == 0 {
			// Last chunk.
			if err := cr.decodeTrailers(); err != nil {
				return 0, errors.Wrap(err, "decoding trailer")
			}
			cr.done = true
			return 0, io.EOF
		}
	}

	if len(p) == 0 {
		return 0, nil
	}

	if uint(len(p)) > cr.remain {
		p = p[:cr.remain]
	}

	n, err := cr.ur.Read(p)
	cr.remain -= uint(n)

	if err != nil && err != io.EOF {
		return n, errors.Wrap(err, "reading chunk data")
	}

	if n == 0 && err == io.EOF {
		return 0, io.ErrUnexpectedEOF
	}

	if cr.remain == 0 {
		delim, err := iolib.ReadN(cr.ur, uint(len(rule.CRLF)))
		if err != nil {
			return n, errors.Wrap(err, "reading chunk delimiter")
		}

		if !bytes.Equal(delim, rule.CRLF) {
			return n, errors.Wrap(ErrMalformedChunk, "CRLF delimiter not found")
		}

		cr.chunk = nil
	}

	return n, nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1
func (cr *ChunkedReader) decodeChunk() error {
	line, err := cr.readLine()
	if err != nil {
		return err
	}

	parts := bytes.Split(line, []byte{';'})

	// Trim BWS.
	sizeRaw := rule.TrimOWS(parts[0])
	size, err := decodeChunkSize(sizeRaw)
	if err != nil {
		return errors.Wrap(err, "decoding chunk size")
	}

	extensions := make([][2]string, 0, len(parts)-1)
	for _, part := range parts[1:] {
		k, v, _ := bytes.Cut(part, []byte{'='})
		k = rule.TrimOWS(k)
		v = rule.TrimOWS(v)

		extensions = append(extensions, [2]string{
			string(k),
			string(rule.Unquote(v)),
		})
	}

	cr.chunk = &Chunk{Size: size, Extensions: extensions}
	cr.remain = size

	return nil
}

func decodeChunkSize(b []byte) (uint, error) {
	if len(b) == 0 {
		return 0, errors.Wrap(ErrMalformedChunk, "chunk size is empty")
	}

	for _, c := range b {
		if !rule.IsHexDigit(rune(c)) {
			return 0, errors.Wrapf(ErrMalformedChunk, "chunk size is not hex: %q", string(b))
		}
	}

	size, err := strconv.ParseUint(string(b), 16, 64)
	if err != nil {
		return 0, errors.Wrapf(ErrMalformedChunk, "chunk size overflows: %q", string(b))
	}

	return uint(size), nil
}

// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-7.1.2
func (cr *ChunkedReader) decodeTrailers() error {
	for {
		line, err := cr.readLine()
		if err != nil {
			return errors.Wrap(err, "reading line")
		}

		if len(line) == 0 {
			// End of trailer section.
			break
		}

		if !bytes.Contains(line, []byte{':'}) {
			return errors.Wrapf(ErrMalformedChunk, "colon seperator not found on trailer: %q", string(line))
		}
	}

	return nil
}

// readLine reads until CRLF and cuts it.
func (cr *ChunkedReader) readLine() ([]byte, error) {
	line, err := cr.ur.ReadUntilLimit(rule.CRLF, cr.maxLineLength)
	if err != nil {
		if errors.Is(err, iolib.ErrLimitExceeded) {
			return nil, errors.Wrap(ErrMalformedChunk, "line length exceeds limit")
		}
		if err == io.EOF {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}

	return line[:len(line)-len(rule.CRLF)], nil
}

// ChunkedWriter writes each Write as a chunk. Close writes the last chunk
// and an empty trailer section.
type ChunkedWriter struct {
	w         io.Writer
	headerBuf *bytes.Buffer
}

var _ io.WriteCloser = (*ChunkedWriter)(nil)

func NewChunkedWriter(w io.Writer) *ChunkedWriter {
	return &ChunkedWriter{
		w:         w,
		headerBuf: bytes.NewBuffer(nil),
	}
}

func (cw *ChunkedWriter) Write(p []byte) (n int, err error) {
	if len(p) == 0 {
		// We should ignore 0 length chunks since it means EOF.
		return 0, nil
	}

	n, err = cw.encodeChunk(p)
	if err != nil {
		return n, errors.Wrap(err, "encoding chunk")
	}

	return n, nil
}

func (cw *ChunkedWriter) Close() error {
	if _, err := cw.encodeChunk(nil); err != nil {
		return errors.Wrap(err, "encoding chunk")
	}

	if err := writeLine(cw.w, nil); err != nil {
		return errors.Wrap(err, "writing last trailer line")
	}

	return nil
}

// encodeChunk writes data as one chunk. Empty data is the last chunk, header only.
func (cw *ChunkedWriter) encodeChunk(data []byte) (n int, err error) {
	buf := cw.headerBuf
	buf.Reset()
	buf.WriteString(strconv.FormatUint(uint64(len(data)), 16))

	if err := writeLine(cw.w, buf.Bytes()); err != nil {
		return 0, errors.Wrap(err, "writing chunk header")
	}

	if len(data) == 0 {
		return 0, nil
	}

	if _, err := iolib.WriteFull(cw.w, data); err != nil {
		return 0, errors.Wrap(err, "writing data")
	}

	if _, err := iolib.WriteFull(cw.w, rule.CRLF); err != nil {
		return len(data), errors.Wrap(err, "writing chunk delimiter")
	}

	return len(data), nil
}

func writeLine(w io.Writer, line []byte) error {
	b := make([]byte, 0, len(line)+len(rule.CRLF))
	b = append(b, line...)
	b = append(b, rule.CRLF...)

	if _, err := iolib.WriteFull(w, b); err != nil {
		return errors.Wrap(err, "writing line")
	}

	return nil
}
