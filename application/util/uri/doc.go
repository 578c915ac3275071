// Package uri parses request targets of the form "[scheme://]host[:port][/path]".
//
// Reference:
//
// - https://datatracker.ietf.org/doc/html/rfc3986#section-3
//
// - https://datatracker.ietf.org/doc/html/rfc9112#section-3.2.1
package uri
