package domain

import (
	"context"
	"maps"
	"net"
	"net/netip"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/net/idna"
)

var ErrDomainNotFound = errors.New("domain not found")

type Lookuper interface {
	LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error)
}

type mapLookuper struct {
	set map[string][]netip.Addr
}

var _ Lookuper = (*mapLookuper)(nil)

// NewMapLookuper creates a lookuper of static hosts. Domains are matched case-insensitively.
func NewMapLookuper(set map[string][]netip.Addr) *mapLookuper {
	m := &mapLookuper{set: make(map[string][]netip.Addr, len(set))}
	for domain, addrs := range set {
		m.Set(domain, addrs)
	}
	return m
}

// NewLocalhostLookuper resolves "localhost" to loopback without asking anybody.
func NewLocalhostLookuper() *mapLookuper {
	return NewMapLookuper(map[string][]netip.Addr{
		"localhost": {netip.AddrFrom4([4]byte{127, 0, 0, 1}), netip.IPv6Loopback()},
	})
}

func (m *mapLookuper) LookupIP(ctx context.Context, domain string) (addrs []netip.Addr, err error) {
	addrs, ok := m.set[strings.ToLower(domain)]
	if !ok {
		return nil, ErrDomainNotFound
	}
	return addrs, nil
}

func (m *mapLookuper) Set(domain string, addrs []netip.Addr) {
	if len(addrs) == 0 {
		return
	}
	m.set[strings.ToLower(domain)] = append([]netip.Addr(nil), addrs...)
}

func (m *mapLookuper) Del(domain string) { delete(m.set, strings.ToLower(domain)) }

func (m *mapLookuper) Domains() map[string][]netip.Addr { return maps.Clone(m.set) }

type netLookuper struct {
	resolver *net.Resolver
	profile  *idna.Profile
}

var _ Lookuper = (*netLookuper)(nil)

// NewNetLookuper creates a lookuper backed by resolver.
// Internationalized domain names are converted to ASCII before lookup.
// If resolver is nil, [net.DefaultResolver] is used.
func NewNetLookuper(resolver *net.Resolver) *netLookuper {
	if resolver == nil {
		resolver = net.DefaultResolver
	}
	return &netLookuper{resolver: resolver, profile: idna.Lookup}
}

func (n *netLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	ascii, err := n.profile.ToASCII(domain)
	if err != nil {
		return nil, errors.Wrapf(err, "converting domain %q to ascii", domain)
	}

	addrs, err := n.resolver.LookupNetIP(ctx, "ip", ascii)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return nil, errors.Wrap(ErrDomainNotFound, ascii)
		}
		return nil, errors.Wrapf(err, "resolving %q", ascii)
	}

	for idx, addr := range addrs {
		addrs[idx] = addr.Unmap()
	}

	return addrs, nil
}

type chainLookuper []Lookuper

// Chain asks each lookuper in order and returns the first answer.
// A lookuper failing with [ErrDomainNotFound] passes the domain on to the next one,
// any other error stops the chain.
func Chain(lookupers ...Lookuper) Lookuper {
	return chainLookuper(lookupers)
}

func (c chainLookuper) LookupIP(ctx context.Context, domain string) ([]netip.Addr, error) {
	for _, l := range c {
		addrs, err := l.LookupIP(ctx, domain)
		if err == nil {
			return addrs, nil
		}
		if !errors.Is(err, ErrDomainNotFound) {
			return nil, err
		}
	}
	return nil, ErrDomainNotFound
}
