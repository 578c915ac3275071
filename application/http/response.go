package http

import "http-request/application/http/status"

type StatusLine struct {
	Version    Version
	StatusCode uint
	// ReasonPhrase is empty if the server didn't send one.
	ReasonPhrase string
}

// Status returns the registered status for the code, keeping the received reason phrase.
func (sl StatusLine) Status() status.Status {
	s, _ := status.FromCode(sl.StatusCode)
	if sl.ReasonPhrase != "" {
		s.ReasonPhrase = sl.ReasonPhrase
	}
	return s
}

// Response is a fully received response.
// Body holds the payload with transfer coding removed, never nil.
type Response struct {
	StatusLine
	Headers Headers
	Body    []byte
}

func (r *Response) Text() string { return string(r.Body) }
