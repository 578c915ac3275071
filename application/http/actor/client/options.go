package client

import (
	"time"

	"http-request/application/http"
)

type Options struct {
	Receive ReceiveOptions
	Timeout TimeoutOptions
}

type ReceiveOptions struct {
	Decode http.DecodeOptions

	// SkipInformational drops interim 1xx responses and waits for the final one.
	// 101 Switching Protocols is final, so it is always returned.
	// DefaultOptions sets it; the zero value returns interim responses.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9110#section-15.2
	SkipInformational bool

	// DefaultReasonPhrase replaces the received reason phrase with the registered one for the status code.
	// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-4-9
	DefaultReasonPhrase bool
}

// Zero duration means no limit.
type TimeoutOptions struct {
	// Dial limits connecting, name lookup and TLS handshake included.
	Dial time.Duration
	// Write limits sending the request.
	Write time.Duration
	// Read limits receiving the whole response, counted from when the request is sent.
	Read time.Duration
}

var DefaultOptions = Options{
	Receive: ReceiveOptions{
		Decode:            http.DefaultDecodeOptions,
		SkipInformational: true,
	},
	Timeout: TimeoutOptions{
		Dial: 30 * time.Second,
	},
}
