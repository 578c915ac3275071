// Package transport defines byte stream connections the HTTP client runs on.
package transport

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var (
	ErrConnClosed         = errors.New("connection is closed")
	ErrConnListenerClosed = errors.New("conn listener is closed")
	ErrDeadLineExceeded   = errors.New("deadline exceeded")
	ErrNetUnreachable     = errors.New("network is unreachable")
	ErrConnRefused        = errors.New("connection refused")
	ErrAddrAlreadyInUse   = errors.New("address already in use")

	// ErrConnClosedLocally is ErrConnClosed caused by Close on this side,
	// so it never marks the end of what the peer sent.
	ErrConnClosedLocally = errors.WithMessage(ErrConnClosed, "closed locally")
)

// Conn is a reliable, ordered byte stream.
// Read returns [ErrConnClosed] once the peer is closed and nothing is left to read,
// or [ErrConnClosedLocally] once this side is closed.
// Operations past their deadline return [ErrDeadLineExceeded].
type Conn interface {
	Read(p []byte) (n int, err error)
	Write(p []byte) (n int, err error)
	Close() error

	LocalAddr() Addr
	RemoteAddr() Addr

	// Zero time means no deadline.
	SetReadDeadLine(t time.Time)
	SetWriteDeadLine(t time.Time)
}

type ConnListener interface {
	Accept(ctx context.Context) (Conn, error)
	Close() error
}

type ConnDialer interface {
	Dial(ctx context.Context, addr Addr) (Conn, error)
}
