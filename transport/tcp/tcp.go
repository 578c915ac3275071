// Package tcp dials TCP connections, optionally secured with TLS.
package tcp

import (
	"context"
	"crypto/tls"
	"io"
	"net"
	"net/netip"
	"os"
	"strconv"
	"sync"
	"time"

	"http-request/application/util/domain"
	"http-request/transport"

	"github.com/pkg/errors"
)

type DialOptions struct {
	// Timeout limits the whole dial including name lookup and TLS handshake. Zero means no limit.
	Timeout time.Duration

	// KeepAlive is passed to [net.Dialer]. Zero uses its default.
	KeepAlive time.Duration
}

// Dialer dials hosts resolved by its lookuper, trying addresses in order until one connects.
type Dialer struct {
	lookuper domain.Lookuper
	netDial  net.Dialer
	opts     DialOptions

	// nil for plain TCP.
	tlsConfig *tls.Config
}

var _ transport.ConnDialer = (*Dialer)(nil)

func NewDialer(lookuper domain.Lookuper, opts DialOptions) *Dialer {
	return &Dialer{
		lookuper: lookuper,
		netDial:  net.Dialer{KeepAlive: opts.KeepAlive},
		opts:     opts,
	}
}

// NewTLSDialer is [NewDialer] which runs TLS handshake on connect.
// ServerName defaults to the dialed host when config leaves it empty.
func NewTLSDialer(lookuper domain.Lookuper, config *tls.Config, opts DialOptions) *Dialer {
	d := NewDialer(lookuper, opts)
	d.tlsConfig = config
	if d.tlsConfig == nil {
		d.tlsConfig = &tls.Config{}
	}
	return d
}

func (d *Dialer) Dial(ctx context.Context, addr transport.Addr) (transport.Conn, error) {
	if d.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.opts.Timeout)
		defer cancel()
	}

	ips, err := d.resolve(ctx, addr.Host)
	if err != nil {
		return nil, errors.Wrapf(err, "resolving %q", addr.Host)
	}

	var nc net.Conn
	for _, ip := range ips {
		dst := netip.AddrPortFrom(ip, addr.Port).String()
		nc, err = d.netDial.DialContext(ctx, "tcp", dst)
		if err == nil {
			break
		}
		if ctx.Err() != nil {
			break
		}
	}
	if err != nil {
		return nil, errors.Wrapf(convertDialError(err), "dialing %s", addr)
	}

	if d.tlsConfig != nil {
		config := d.tlsConfig.Clone()
		if config.ServerName == "" {
			config.ServerName = addr.Host
		}

		tc := tls.Client(nc, config)
		if err := tc.HandshakeContext(ctx); err != nil {
			nc.Close()
			return nil, errors.Wrap(err, "tls handshake")
		}
		nc = tc
	}

	return newConn(nc, addr), nil
}

func (d *Dialer) resolve(ctx context.Context, host string) ([]netip.Addr, error) {
	if ip, err := netip.ParseAddr(host); err == nil {
		return []netip.Addr{ip}, nil
	}

	ips, err := d.lookuper.LookupIP(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, domain.ErrDomainNotFound
	}
	return ips, nil
}

func convertDialError(err error) error {
	if errors.Is(err, os.ErrDeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return errors.Wrap(transport.ErrDeadLineExceeded, err.Error())
	}
	if sentinel := classifyErrno(err); sentinel != nil {
		return errors.Wrap(sentinel, err.Error())
	}
	return err
}

// conn adapts [net.Conn] into [transport.Conn].
type conn struct {
	nc net.Conn

	local, remote transport.Addr
	once          sync.Once
}

var _ transport.Conn = (*conn)(nil)

func newConn(nc net.Conn, dialed transport.Addr) *conn {
	c := &conn{nc: nc, remote: dialed}
	if ap, err := netip.ParseAddrPort(nc.LocalAddr().String()); err == nil {
		c.local = transport.Addr{Host: ap.Addr().Unmap().String(), Port: ap.Port()}
	}
	return c
}

func (c *conn) Read(p []byte) (int, error) {
	n, err := c.nc.Read(p)
	return n, convertIOError(err)
}

func (c *conn) Write(p []byte) (int, error) {
	n, err := c.nc.Write(p)
	return n, convertIOError(err)
}

// Close closes the connection. Closing twice is not an error.
func (c *conn) Close() error {
	var err error
	c.once.Do(func() { err = c.nc.Close() })
	return err
}

func (c *conn) LocalAddr() transport.Addr  { return c.local }
func (c *conn) RemoteAddr() transport.Addr { return c.remote }

func (c *conn) SetReadDeadLine(t time.Time)  { _ = c.nc.SetReadDeadline(t) }
func (c *conn) SetWriteDeadLine(t time.Time) { _ = c.nc.SetWriteDeadline(t) }

func convertIOError(err error) error {
	switch {
	case err == nil:
		return nil
	case err == io.EOF:
		return transport.ErrConnClosed
	case errors.Is(err, net.ErrClosed):
		return transport.ErrConnClosedLocally
	case errors.Is(err, os.ErrDeadlineExceeded):
		return transport.ErrDeadLineExceeded
	}
	return err
}

// AddrOf converts a listener address into [transport.Addr].
func AddrOf(a net.Addr) (transport.Addr, error) {
	host, port, err := net.SplitHostPort(a.String())
	if err != nil {
		return transport.Addr{}, errors.Wrap(err, "splitting address")
	}

	p, err := strconv.ParseUint(port, 10, 16)
	if err != nil {
		return transport.Addr{}, errors.Wrap(err, "parsing port")
	}

	return transport.Addr{Host: host, Port: uint16(p)}, nil
}
