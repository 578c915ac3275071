package http

import (
	"bytes"

	"http-request/application/util/uri"
)

// Request is an HTTP/1.1 request to be sent once.
//
// Its wire form is fully determined by its fields: the only fields added on
// serialization are Host and, if Body is non-nil, Content-Length.
// Headers are written as given. They are neither validated nor deduplicated,
// so a Content-Length set by the caller ends up on the wire next to the computed one.
type Request struct {
	Method Method
	// Scheme picks the dialer and the default port. It is never written.
	Scheme string
	// Host is written to Host header as is, port included.
	Host string
	// Path is the origin-form target. Empty path is "/".
	Path    string
	Headers Headers
	// Body is sent with Content-Length framing when it is non-nil.
	Body []byte

	consumed bool
}

// NewRequest creates a request to target, which is "[scheme://]host[:port][/path]".
func NewRequest(method Method, target string) *Request {
	t, err := uri.ParseTarget(target)
	if err != nil {
		// Empty host. It will be reported when the request is built.
		return &Request{Method: method, Scheme: "http"}
	}

	return &Request{
		Method: method,
		Scheme: t.Scheme,
		Host:   t.Host,
		Path:   normalizePath(t.Path),
	}
}

func Get(target string) *Request     { return NewRequest(MethodGet, target) }
func Head(target string) *Request    { return NewRequest(MethodHead, target) }
func Delete(target string) *Request  { return NewRequest(MethodDelete, target) }
func Options(target string) *Request { return NewRequest(MethodOptions, target) }

func Post(target string, body []byte) *Request {
	return NewRequest(MethodPost, target).WithBody(body)
}

func Put(target string, body []byte) *Request {
	return NewRequest(MethodPut, target).WithBody(body)
}

func Patch(target string, body []byte) *Request {
	return NewRequest(MethodPatch, target).WithBody(body)
}

// Header appends a field. Fields are written in the order they were added.
func (r *Request) Header(name, value string) *Request {
	r.Headers.Add(name, value)
	return r
}

func (r *Request) WithBody(body []byte) *Request {
	r.Body = body
	return r
}

func (r *Request) WithMethod(method Method) *Request {
	r.Method = method
	return r
}

// Target returns the request-target written on the request line.
func (r *Request) Target() string { return normalizePath(r.Path) }

// Bytes returns the wire form of the request.
func (r *Request) Bytes() ([]byte, error) {
	buf := bytes.NewBuffer(nil)
	if err := NewRequestEncoder(buf).Encode(r); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Consume marks the request as sent. It fails with [ErrRequestConsumed] on second call.
func (r *Request) Consume() error {
	if r.consumed {
		return ErrRequestConsumed
	}
	r.consumed = true
	return nil
}

// Build serializes a request from its parts.
func Build(method Method, host, path string, headers Headers, body []byte) ([]byte, error) {
	r := Request{
		Method:  method,
		Host:    host,
		Path:    path,
		Headers: headers,
		Body:    body,
	}
	return r.Bytes()
}

func (r *Request) validate() error {
	if r.Host == "" {
		return ErrEmptyHost
	}
	return nil
}

// normalizePath defaults empty path to "/" and makes sure it starts with "/".
// Reference: https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
func normalizePath(path string) string {
	if len(path) == 0 || path[0] != '/' {
		return "/" + path
	}
	return path
}
