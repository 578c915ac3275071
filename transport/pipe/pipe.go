// Package pipe provides in-memory connections.
// Each direction buffers up to [BufferSize] bytes; writers block while the buffer is full.
package pipe

import (
	"sync"
	"time"

	"http-request/transport"

	"github.com/benbjohnson/clock"
)

const BufferSize = 64 << 10

// stream carries bytes in one direction.
type stream struct {
	mu  sync.Mutex
	buf []byte

	// changed is closed and replaced whenever buf changes.
	changed chan struct{}
}

func newStream() *stream { return &stream{changed: make(chan struct{})} }

// broadcast must be called with mu held.
func (s *stream) broadcast() {
	close(s.changed)
	s.changed = make(chan struct{})
}

type pipe struct {
	in  *stream // read from here.
	out *stream // counterpart's in.

	writeMu sync.Mutex // keeps concurrent writes from interleaving.

	closed chan struct{}
	once   sync.Once

	rdeadLine *chanDeadLine
	wdeadLine *chanDeadLine

	counterpart *pipe

	addr transport.Addr
}

var _ transport.Conn = (*pipe)(nil)

// NewPair creates a pair of connected pipes.
func NewPair(addr1, addr2 transport.Addr, clock clock.Clock) (c1, c2 transport.Conn) {
	p1, p2 := newPipe(addr1, clock), newPipe(addr2, clock)
	p1.counterpart, p2.counterpart = p2, p1
	p1.out, p2.out = p2.in, p1.in
	return p1, p2
}

// Pipe creates a pair of pipes addressed by name only.
func Pipe(name1, name2 string, clock clock.Clock) (c1, c2 transport.Conn) {
	return NewPair(transport.Addr{Host: name1}, transport.Addr{Host: name2}, clock)
}

func newPipe(addr transport.Addr, clock clock.Clock) *pipe {
	return &pipe{
		in:        newStream(),
		closed:    make(chan struct{}),
		rdeadLine: newChanDeadLine(clock),
		wdeadLine: newChanDeadLine(clock),
		addr:      addr,
	}
}

func (p *pipe) LocalAddr() transport.Addr  { return p.addr }
func (p *pipe) RemoteAddr() transport.Addr { return p.counterpart.addr }

func (p *pipe) Close() error {
	p.once.Do(func() { close(p.closed) })
	return nil
}

// Read serves buffered bytes even after the peer closed, then returns [transport.ErrConnClosed].
func (p *pipe) Read(b []byte) (n int, err error) {
	for {
		switch {
		case isClosed(p.closed):
			return 0, transport.ErrConnClosedLocally
		case isClosed(p.rdeadLine.wait()):
			return 0, transport.ErrDeadLineExceeded
		}

		p.in.mu.Lock()
		if len(p.in.buf) > 0 {
			n = copy(b, p.in.buf)
			p.in.buf = p.in.buf[n:]
			p.in.broadcast()
			p.in.mu.Unlock()
			return n, nil
		}
		changed := p.in.changed
		p.in.mu.Unlock()

		if isClosed(p.counterpart.closed) {
			return 0, transport.ErrConnClosed
		}

		select {
		case <-changed:
		case <-p.closed:
		case <-p.counterpart.closed:
		case <-p.rdeadLine.wait():
		}
	}
}

func (p *pipe) Write(b []byte) (n int, err error) {
	p.writeMu.Lock()
	defer p.writeMu.Unlock()

	for {
		switch {
		case isClosed(p.closed):
			return n, transport.ErrConnClosedLocally
		case isClosed(p.counterpart.closed):
			return n, transport.ErrConnClosed
		case isClosed(p.wdeadLine.wait()):
			return n, transport.ErrDeadLineExceeded
		}

		if len(b) == 0 {
			return n, nil
		}

		p.out.mu.Lock()
		if space := BufferSize - len(p.out.buf); space > 0 {
			m := min(space, len(b))
			p.out.buf = append(p.out.buf, b[:m]...)
			p.out.broadcast()
			b = b[m:]
			n += m
			p.out.mu.Unlock()
			continue
		}
		changed := p.out.changed
		p.out.mu.Unlock()

		select {
		case <-changed:
		case <-p.closed:
		case <-p.counterpart.closed:
		case <-p.wdeadLine.wait():
		}
	}
}

func (p *pipe) SetReadDeadLine(t time.Time)  { p.rdeadLine.set(t) }
func (p *pipe) SetWriteDeadLine(t time.Time) { p.wdeadLine.set(t) }

type chanDeadLine struct {
	clock clock.Clock

	t *clock.Timer
	m sync.Mutex

	closed chan struct{}
}

func newChanDeadLine(clock clock.Clock) *chanDeadLine {
	return &chanDeadLine{
		clock:  clock,
		closed: make(chan struct{}),
	}
}

func (d *chanDeadLine) set(t time.Time) {
	d.m.Lock()
	defer d.m.Unlock()

	if d.t != nil {
		// Stop existing timer.
		d.t.Stop()
	}
	d.t = nil

	if isClosed(d.closed) {
		d.closed = make(chan struct{})
	}

	if t.IsZero() {
		// zero value means no limit.
		return
	}

	closed := d.closed
	dur := d.clock.Until(t)
	if dur <= 0 {
		close(closed)
		return
	}

	d.t = d.clock.AfterFunc(dur, func() { close(closed) })
}

func (d *chanDeadLine) wait() <-chan struct{} {
	d.m.Lock()
	defer d.m.Unlock()
	return d.closed
}

func isClosed(c <-chan struct{}) bool {
	select {
	case <-c: // c will only fire at closed state.
		return true
	default:
		return false
	}
}
