//go:build unix

package tcp

import (
	"http-request/transport"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

func classifyErrno(err error) error {
	var errno unix.Errno
	if !errors.As(err, &errno) {
		return nil
	}

	switch errno {
	case unix.ECONNREFUSED:
		return transport.ErrConnRefused
	case unix.ENETUNREACH, unix.EHOSTUNREACH:
		return transport.ErrNetUnreachable
	}
	return nil
}
