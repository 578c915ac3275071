package iolib

import (
	"bytes"
	"errors"
	"io"
)

// UntilReader is a reader that can also read up to a delimiter.
// Bytes read past the delimiter are kept and served by later reads.
type UntilReader struct {
	r io.Reader

	buf *bytes.Buffer
}

func NewUntilReader(r io.Reader) *UntilReader {
	return &UntilReader{r: r, buf: bytes.NewBuffer(nil)}
}

func (ur *UntilReader) Read(p []byte) (n int, err error) {
	if ur.buf.Len() > 0 {
		n, err = ur.buf.Read(p)
		if err == io.EOF {
			err = nil
		}
		return n, err
	}

	return ur.r.Read(p)
}

// Buffered returns the number of bytes read from the underlying reader but not consumed yet.
func (ur *UntilReader) Buffered() int { return ur.buf.Len() }

var (
	ErrZeroLenDelim  = errors.New("delim has zero length")
	ErrLimitExceeded = errors.New("delim not found within limit")
)

// ReadUntil reads until delim. The output will include delim.
// If the underlying reader fails before delim, everything read so far is returned with the error.
func (ur *UntilReader) ReadUntil(delim []byte) ([]byte, error) {
	return ur.ReadUntilLimit(delim, 0)
}

// ReadUntilLimit is [UntilReader.ReadUntil] which gives up with [ErrLimitExceeded]
// once limit bytes are buffered without delim. Zero limit means no limit.
// On [ErrLimitExceeded] the buffered bytes are left unconsumed.
func (ur *UntilReader) ReadUntilLimit(delim []byte, limit uint) ([]byte, error) {
	if len(delim) == 0 {
		return nil, ErrZeroLenDelim
	}

	temp := make([]byte, 1024)
	searched := 0

	var readErr error
	for {
		buffered := ur.buf.Bytes()

		// Delim might lie across the boundary of previous search.
		start := max(searched-len(delim)+1, 0)
		if idx := bytes.Index(buffered[start:], delim); idx >= 0 {
			end := start + idx + len(delim)
			if limit > 0 && uint(end) > limit {
				return nil, ErrLimitExceeded
			}

			line := bytes.Clone(buffered[:end])
			ur.buf.Next(end)
			return line, nil
		}
		searched = len(buffered)

		if limit > 0 && uint(searched) >= limit {
			return nil, ErrLimitExceeded
		}

		if readErr != nil {
			// Underlying reader returned error before delim.
			b := bytes.Clone(buffered)
			ur.buf.Reset()
			return b, readErr
		}

		n, err := ur.r.Read(temp)
		ur.buf.Write(temp[:n])
		readErr = err
	}
}
