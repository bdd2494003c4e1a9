package chi

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// ClientIP resolves the client address for rate limiting. The configured
// trusted header (set by the edge proxy) wins when it carries a public
// address; otherwise X-Forwarded-For is walked right to left and the first
// public entry wins, falling back to the connection peer. Right-most entries
// were appended by proxies closest to us; left-most ones arrive straight
// from the caller and are forgeable. Private, loopback, link-local and
// CGNAT addresses are never accepted from headers since anyone can forge
// internal ranges.
func ClientIP(r *http.Request, trustedHeader string) string {
	if trustedHeader != "" {
		if ip, ok := publicAddr(r.Header.Get(trustedHeader)); ok {
			return ip
		}
	}

	forwarded := strings.Split(r.Header.Get("X-Forwarded-For"), ",")
	for i := len(forwarded) - 1; i >= 0; i-- {
		if ip, ok := publicAddr(forwarded[i]); ok {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// publicAddr parses raw as an IP and reports whether it is a routable
// client address.
func publicAddr(raw string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(raw))
	if err != nil {
		return "", false
	}
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() || addr.IsUnspecified() || isCGNAT(addr) {
		return "", false
	}
	return addr.String(), true
}

// cgnatRange is 100.64.0.0/10 (RFC 6598 shared address space).
var cgnatRange = netip.MustParsePrefix("100.64.0.0/10")

func isCGNAT(addr netip.Addr) bool {
	return addr.Is4() && cgnatRange.Contains(addr)
}
