// Package http implements the HTTP/1.1 message syntax needed by a client:
// request serialization and an incremental response parser.
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc9110
//
// - https://datatracker.ietf.org/doc/html/rfc9112
package http
