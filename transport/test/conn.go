// Package test holds a test suite for [transport.Conn] implementations.
//
// Embed [ConnTestSuite], call its SetupTest and set C1, C2 to a connected pair.
package test

import (
	"bytes"
	"io"
	"sync"
	"time"

	"http-request/transport"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/suite"
	"go.uber.org/goleak"
)

type ConnTestSuite struct {
	suite.Suite
	C1, C2 transport.Conn
	Clock  clock.Clock

	// WriteBlockSize is the length of a write on C1 that cannot complete
	// until C2 reads. Zero skips the tests that need a blocked writer.
	WriteBlockSize int

	done     chan struct{}
	watchdog *time.Timer
}

func (s *ConnTestSuite) SetupTest() {
	s.done = make(chan struct{})
	s.Clock = clock.New()

	s.watchdog = time.AfterFunc(time.Second, func() {
		select {
		case <-s.done:
		default:
			s.FailNow("test took longer than a second")
		}
	})
}

func (s *ConnTestSuite) TearDownTest() {
	defer goleak.VerifyNone(s.T())
	s.NoError(s.C1.Close())
	s.NoError(s.C2.Close())
	close(s.done)
	s.watchdog.Stop()
}

// readUntilClosed collects everything conn yields before it reports the peer closed.
func (s *ConnTestSuite) readUntilClosed(conn transport.Conn, bufSize int) []byte {
	var received []byte
	buf := make([]byte, bufSize)
	for {
		n, err := conn.Read(buf)
		received = append(received, buf[:n]...)
		if err != nil {
			s.ErrorIs(err, transport.ErrConnClosed)
			s.NotErrorIs(err, transport.ErrConnClosedLocally)
			return received
		}
	}
}

func (s *ConnTestSuite) TestReadWrite() {
	data := []byte("HTTP/1.1 200 OK\r\n")

	var wg sync.WaitGroup
	defer wg.Wait()

	wg.Add(1)
	go func() {
		defer wg.Done()
		n, err := s.C1.Write(data)
		s.NoError(err)
		s.Equal(len(data), n)
	}()

	head := make([]byte, 8)
	_, err := io.ReadFull(s.C2, head)
	s.Require().NoError(err)
	s.Equal("HTTP/1.1", string(head))

	rest := make([]byte, len(data)-len(head))
	_, err = io.ReadFull(s.C2, rest)
	s.Require().NoError(err)
	s.Equal(" 200 OK\r\n", string(rest))
}

// Concurrent writes are not interleaved with each other.
func (s *ConnTestSuite) TestConcurrentWrites() {
	line := []byte("X-Field: value\r\n")
	const writers = 10

	var wg sync.WaitGroup
	for range writers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.C1.Write(line)
			s.NoError(err)
			s.Equal(len(line), n)
		}()
	}

	go func() {
		wg.Wait()
		s.NoError(s.C1.Close())
	}()

	s.Equal(bytes.Repeat(line, writers), s.readUntilClosed(s.C2, 7))
}

func (s *ConnTestSuite) TestCloseLocal() {
	s.Require().NoError(s.C1.Close())

	buf := make([]byte, 4)

	n, err := s.C1.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosedLocally)
	s.Zero(n)

	n, err = s.C1.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosedLocally)
	s.Zero(n)
}

func (s *ConnTestSuite) TestClosePeer() {
	s.Require().NoError(s.C1.Close())

	buf := make([]byte, 4)

	n, err := s.C2.Read(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.NotErrorIs(err, transport.ErrConnClosedLocally)
	s.Zero(n)

	n, err = s.C2.Write(buf)
	s.ErrorIs(err, transport.ErrConnClosed)
	s.Zero(n)
}

func (s *ConnTestSuite) TestCloseUnblocksRead() {
	result := make(chan error, 1)
	go func() {
		_, err := s.C1.Read(make([]byte, 1))
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
	s.ErrorIs(<-result, transport.ErrConnClosedLocally)
}

func (s *ConnTestSuite) TestCloseUnblocksWrite() {
	if s.WriteBlockSize == 0 {
		s.T().Skip("no write size known to block")
	}

	result := make(chan error, 1)
	go func() {
		_, err := s.C1.Write(make([]byte, s.WriteBlockSize))
		result <- err
	}()

	time.Sleep(50 * time.Millisecond)
	s.Require().NoError(s.C1.Close())
	s.ErrorIs(<-result, transport.ErrConnClosedLocally)
}

func (s *ConnTestSuite) TestDeadLinePassed() {
	past := s.Clock.Now().Add(-time.Second)
	s.C1.SetReadDeadLine(past)
	s.C1.SetWriteDeadLine(past)

	b := make([]byte, 1)

	n, err := s.C1.Read(b)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)

	n, err = s.C1.Write(b)
	s.ErrorIs(err, transport.ErrDeadLineExceeded)
	s.Zero(n)
}

// Zero time lifts a deadline that has already passed.
func (s *ConnTestSuite) TestDeadLineCleared() {
	s.C1.SetWriteDeadLine(s.Clock.Now().Add(-time.Second))
	s.C1.SetWriteDeadLine(time.Time{})

	n, err := s.C1.Write([]byte("ok"))
	s.NoError(err)
	s.Equal(2, n)

	buf := make([]byte, 2)
	_, err = io.ReadFull(s.C2, buf)
	s.NoError(err)
}

func (s *ConnTestSuite) TestAddr() {
	s.Equal(s.C1.LocalAddr(), s.C2.RemoteAddr())
	s.Equal(s.C2.LocalAddr(), s.C1.RemoteAddr())
}

// What the peer wrote before closing is read before [transport.ErrConnClosed].
func (s *ConnTestSuite) TestReadAfterPeerClose() {
	data := []byte("HTTP/1.0 200 OK\r\n\r\nuntil close")

	go func() {
		n, err := s.C1.Write(data)
		s.NoError(err)
		s.Equal(len(data), n)
		s.NoError(s.C1.Close())
	}()

	s.Equal(data, s.readUntilClosed(s.C2, 4))
}
