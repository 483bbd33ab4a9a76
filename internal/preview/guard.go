package preview

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

// cgnat is the shared address space of RFC 6598, which netip does not
// classify as private.
var cgnat = netip.MustParsePrefix("100.64.0.0/10")

// NewPublicClient returns the client HTMLFetcher uses by default. Every
// connection, including those made for redirects, is checked after DNS
// resolution and refused unless the peer is a public unicast address.
// Proxies from the environment are ignored so the check sees the real peer.
func NewPublicClient(timeout time.Duration) *http.Client {
	return guardedClient(timeout, func(ap netip.AddrPort) bool { return isPublic(ap.Addr()) })
}

func guardedClient(timeout time.Duration, allow func(netip.AddrPort) bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   10 * time.Second,
		KeepAlive: 30 * time.Second,
		Control:   dialGuard(allow),
	}
	transport := &http.Transport{
		Proxy:                 nil,
		DialContext:           dialer.DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: time.Second,
	}
	return &http.Client{Transport: transport, Timeout: timeout}
}

// dialGuard builds a net.Dialer Control hook. address is the resolved
// ip:port about to be dialled.
func dialGuard(allow func(netip.AddrPort) bool) func(network, address string, _ syscall.RawConn) error {
	return func(network, address string, _ syscall.RawConn) error {
		ap, err := netip.ParseAddrPort(address)
		if err != nil {
			return newBlockedError(fmt.Errorf("unparsable dial address %q: %w", address, err))
		}
		if !allow(ap) {
			return newBlockedError(fmt.Errorf("refusing to dial %s", ap.Addr()))
		}
		return nil
	}
}

func isPublic(addr netip.Addr) bool {
	addr = addr.Unmap()
	switch {
	case !addr.IsValid(),
		addr.IsUnspecified(),
		addr.IsLoopback(),
		addr.IsPrivate(),
		addr.IsLinkLocalUnicast(),
		addr.IsLinkLocalMulticast(),
		addr.IsInterfaceLocalMulticast(),
		addr.IsMulticast(),
		cgnat.Contains(addr):
		return false
	}
	return true
}
