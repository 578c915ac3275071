package uri

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Target is a request target split into what a client needs.
type Target struct {
	Scheme string
	// Host is the authority as written, port included (e.g. "example.org:8080").
	// It is what goes into the Host header.
	Host string
	// Path is origin-form path with query. It may be empty.
	Path string
}

var ErrEmptyHost = errors.New("host is empty")

// DefaultPort returns well-known port of the scheme, or 0 if unknown.
func DefaultPort(scheme string) uint16 {
	switch scheme {
	case "http":
		return 80
	case "https":
		return 443
	}
	return 0
}

// ParseTarget splits raw into scheme, host and path.
// Scheme is optional and defaults to "http". Fragment is dropped as it is never sent.
func ParseTarget(raw string) (Target, error) {
	var t Target

	t.Scheme, raw = cutScheme(raw)

	if idx := strings.IndexByte(raw, '#'); idx >= 0 {
		raw = raw[:idx]
	}

	t.Host, t.Path = raw, ""
	if idx := strings.IndexAny(raw, "/?"); idx >= 0 {
		t.Host, t.Path = raw[:idx], raw[idx:]
	}

	if t.Host == "" {
		return Target{}, ErrEmptyHost
	}

	return t, nil
}

// cutScheme cuts "scheme://" prefix. If there's none, scheme defaults to http.
func cutScheme(raw string) (scheme, rest string) {
	before, after, found := strings.Cut(raw, "://")
	if !found || !isValidScheme(before) {
		return "http", raw
	}

	// Scheme is case-insensitive.
	// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.1
	return strings.ToLower(before), after
}

// Reference: https://datatracker.ietf.org/doc/html/rfc3986#section-3.1
func isValidScheme(scheme string) bool {
	if scheme == "" {
		return false
	}
	for idx, c := range scheme {
		alpha := ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
		if idx == 0 && !alpha {
			return false
		}
		if alpha || ('0' <= c && c <= '9') || c == '+' || c == '-' || c == '.' {
			continue
		}
		return false
	}
	return true
}

// SplitHostPort splits host into hostname and port.
// If host has no port, defaultPort is used. Brackets of IP literal are removed.
func SplitHostPort(host string, defaultPort uint16) (hostname string, port uint16, err error) {
	if host == "" {
		return "", 0, ErrEmptyHost
	}

	hostname, portPart, err := getHostPort(host)
	if err != nil {
		return "", 0, err
	}

	port, hasPort, err := parsePort(portPart)
	if err != nil {
		return "", 0, errors.Wrap(err, "parsing port")
	}
	if !hasPort {
		port = defaultPort
	}

	hostname = strings.TrimSuffix(strings.TrimPrefix(hostname, "["), "]")
	if hostname == "" {
		return "", 0, ErrEmptyHost
	}

	return hostname, port, nil
}

func getHostPort(raw string) (host string, portPart string, err error) {
	if strings.HasPrefix(raw, "[") {
		// This is IP Literal.
		idx := strings.LastIndex(raw, "]")
		if idx < 0 {
			return "", "", errors.New("missing ']' in IP Literal")
		}

		return raw[:idx+1], raw[idx+1:], nil
	}

	// ipv4 or reg-name.
	host = raw
	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		host = raw[:idx]
		portPart = raw[idx:]
	}

	return host, portPart, nil
}

// This is not the same rule as RFC, port is limited to uint16.
// An empty port after colon is treated as no port.
// Reference: datatracker.ietf.org/doc/html/rfc3986#section-3.2.3
func parsePort(s string) (port uint16, hasPort bool, err error) {
	if s == "" {
		return 0, false, nil
	}

	if s[0] != ':' {
		return 0, false, errors.New("colon delimiter not found on port")
	}

	s = s[1:]
	if s == "" {
		return 0, false, nil
	}

	n, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to parse uint")
	}

	return uint16(n), true, nil
}
