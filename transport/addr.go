package transport

import (
	"net"
	"strconv"
)

// Addr is an endpoint of a connection. Host is either a name or an IP literal without brackets.
type Addr struct {
	Host string
	Port uint16
}

func (a Addr) String() string {
	return net.JoinHostPort(a.Host, strconv.FormatUint(uint64(a.Port), 10))
}
