// Package client sends HTTP/1.1 requests, one connection per request.
package client

import (
	"context"
	"crypto/tls"
	"io"
	"log/slog"

	"http-request/application/http"
	"http-request/application/http/status"
	"http-request/application/util/domain"
	"http-request/application/util/uri"
	iolib "http-request/lib/io"
	"http-request/transport"
	"http-request/transport/tcp"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
)

// Dialers picks a dialer by request scheme.
type Dialers map[string]transport.ConnDialer

// DefaultDialers dials "http" over TCP and "https" over TLS.
func DefaultDialers(lookuper domain.Lookuper, tlsConfig *tls.Config, opts tcp.DialOptions) Dialers {
	return Dialers{
		"http":  tcp.NewDialer(lookuper, opts),
		"https": tcp.NewTLSDialer(lookuper, tlsConfig, opts),
	}
}

type Client struct {
	dialers Dialers

	opts Options

	logger *slog.Logger
	clock  clock.Clock
}

func New(
	dialers Dialers,
	logger *slog.Logger,
	clock clock.Clock,
	opts Options,
) *Client {
	return &Client{
		dialers: dialers,
		logger:  logger,
		clock:   clock,
		opts:    opts,
	}
}

// Get sends GET request to target, "[scheme://]host[:port][/path]".
func (c *Client) Get(ctx context.Context, target string) (*http.Response, error) {
	return c.Send(ctx, http.Get(target))
}

// Send dials, writes request, reads the whole response and closes the connection.
//
// Errors match one of [http.ErrInvalidRequest], which is returned before any I/O,
// [*http.TransportError] for connection failures and cancellation of ctx,
// and [http.ErrMalformed] for responses which could not be parsed.
// The request is consumed even if sending fails.
func (c *Client) Send(ctx context.Context, req *http.Request) (*http.Response, error) {
	start := c.clock.Now()

	if err := req.Consume(); err != nil {
		return nil, err
	}

	raw, err := req.Bytes()
	if err != nil {
		return nil, errors.Wrap(err, "building request")
	}

	dialer, ok := c.dialers[req.Scheme]
	if !ok {
		return nil, errors.Wrapf(http.ErrInvalidRequest, "unsupported scheme %q", req.Scheme)
	}

	hostname, port, err := uri.SplitHostPort(req.Host, uri.DefaultPort(req.Scheme))
	if err != nil {
		return nil, errors.Wrapf(http.ErrInvalidRequest, "host %q: %s", req.Host, err)
	}
	addr := transport.Addr{Host: hostname, Port: port}

	c.logger.Debug("dialing", slog.String("addr", addr.String()), slog.String("scheme", req.Scheme))

	conn, err := c.dial(ctx, dialer, addr)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	res, err := c.roundtrip(ctx, conn, req, raw)
	if err != nil {
		c.logger.Debug("request failed",
			slog.String("method", req.Method.String()),
			slog.String("host", req.Host),
			slog.Any("error", err),
		)
		return nil, err
	}

	c.logger.Debug("received response",
		slog.String("method", req.Method.String()),
		slog.String("host", req.Host),
		slog.String("target", req.Target()),
		slog.Uint64("status", uint64(res.StatusCode)),
		slog.Int("body", len(res.Body)),
		slog.Duration("elapsed", c.clock.Since(start)),
	)

	return res, nil
}

func (c *Client) dial(ctx context.Context, dialer transport.ConnDialer, addr transport.Addr) (transport.Conn, error) {
	dialCtx := ctx
	if c.opts.Timeout.Dial > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = c.clock.WithTimeout(ctx, c.opts.Timeout.Dial)
		defer cancel()
	}

	conn, err := dialer.Dial(dialCtx, addr)
	if err != nil {
		return nil, &http.TransportError{Op: "dial", Err: errors.Wrapf(err, "dialing %s", addr)}
	}

	return conn, nil
}

func (c *Client) roundtrip(ctx context.Context, conn transport.Conn, req *http.Request, raw []byte) (*http.Response, error) {
	if d := c.opts.Timeout.Write; d > 0 {
		conn.SetWriteDeadLine(c.clock.Now().Add(d))
	}
	if d := c.opts.Timeout.Read; d > 0 {
		conn.SetReadDeadLine(c.clock.Now().Add(d))
	}

	if _, err := iolib.WriteFull(conn, raw); err != nil {
		return nil, c.transportError(ctx, "write", err)
	}

	dec := http.NewResponseDecoder(connReader{conn}, c.opts.Receive.Decode)
	for {
		var res http.Response
		if err := dec.Decode(&res, req.Method); err != nil {
			if ctx.Err() != nil || http.IsTransportError(err) {
				return nil, c.transportError(ctx, "read", err)
			}
			return nil, errors.Wrap(err, "decoding response")
		}

		// Body read until close may have been cut short by cancellation.
		if ctx.Err() != nil {
			return nil, c.transportError(ctx, "read", transport.ErrConnClosedLocally)
		}

		if c.opts.Receive.SkipInformational &&
			status.IsInformational(res.StatusCode) &&
			res.StatusCode != status.SwitchingProtocols.Code {
			c.logger.Debug("skipping interim response", slog.Uint64("status", uint64(res.StatusCode)))
			continue
		}

		if c.opts.Receive.DefaultReasonPhrase {
			if s, ok := status.FromCode(res.StatusCode); ok {
				res.ReasonPhrase = s.ReasonPhrase
			}
		}

		return &res, nil
	}
}

// transportError makes err a [*http.TransportError], preferring cancellation of ctx as its cause.
func (c *Client) transportError(ctx context.Context, op string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return &http.TransportError{Op: op, Err: errors.Wrap(ctxErr, err.Error())}
	}

	var te *http.TransportError
	if errors.As(err, &te) {
		return te
	}
	return &http.TransportError{Op: op, Err: err}
}

// connReader reports peer close as [io.EOF] and any other failure,
// closing on this side included, as [*http.TransportError].
type connReader struct{ conn transport.Conn }

func (r connReader) Read(p []byte) (int, error) {
	n, err := r.conn.Read(p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, transport.ErrConnClosedLocally):
		return n, &http.TransportError{Op: "read", Err: err}
	case errors.Is(err, transport.ErrConnClosed):
		return n, io.EOF
	}
	return n, &http.TransportError{Op: "read", Err: err}
}
