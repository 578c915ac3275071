package pipe

import (
	"context"
	"sync"

	"http-request/transport"

	"github.com/benbjohnson/clock"
)

// PipeTransport connects dialers and listeners by address, in memory.
type PipeTransport struct {
	listeners map[transport.Addr]*pipeListener
	clock     clock.Clock

	// nextPort numbers the dialing side of each connection.
	nextPort uint16

	mu sync.Mutex
}

func NewPipeTransport(clock clock.Clock) *PipeTransport {
	return &PipeTransport{
		listeners: make(map[transport.Addr]*pipeListener),
		clock:     clock,
	}
}

var _ transport.ConnDialer = (*PipeTransport)(nil)

// Dial connects to the listener on addr.
// It fails with [transport.ErrNetUnreachable] if nothing listens on addr.
func (pt *PipeTransport) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	pt.mu.Lock()
	listener, ok := pt.listeners[addr]
	pt.nextPort++
	local := transport.Addr{Host: "dialer", Port: pt.nextPort}
	pt.mu.Unlock()

	if !ok {
		return nil, transport.ErrNetUnreachable
	}

	client, server := NewPair(local, addr, pt.clock)

	// Handing server over is the accept.
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-listener.closed:
		return nil, transport.ErrConnRefused
	case listener.conns <- server:
		return client, nil
	}
}

func (pt *PipeTransport) Listen(addr transport.Addr) (transport.ConnListener, error) {
	pt.mu.Lock()
	defer pt.mu.Unlock()

	if _, ok := pt.listeners[addr]; ok {
		return nil, transport.ErrAddrAlreadyInUse
	}

	pl := &pipeListener{
		addr:      addr,
		transport: pt,
		conns:     make(chan transport.Conn),
		closed:    make(chan struct{}),
	}
	pt.listeners[addr] = pl

	return pl, nil
}

type pipeListener struct {
	addr transport.Addr

	transport *PipeTransport

	conns  chan transport.Conn
	closed chan struct{}
	once   sync.Once
}

var _ transport.ConnListener = (*pipeListener)(nil)

func (pl *pipeListener) Accept(ctx context.Context) (transport.Conn, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-pl.closed:
		return nil, transport.ErrConnListenerClosed
	case conn := <-pl.conns:
		return conn, nil
	}
}

func (pl *pipeListener) Close() error {
	err := transport.ErrConnListenerClosed
	pl.once.Do(func() {
		close(pl.closed)

		pl.transport.mu.Lock()
		delete(pl.transport.listeners, pl.addr)
		pl.transport.mu.Unlock()

		err = nil
	})

	return err
}
