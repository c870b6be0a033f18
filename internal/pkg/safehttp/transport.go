package safehttp

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"
)

// dialTimeout bounds connection setup for webhook targets.
const dialTimeout = 5 * time.Second

// CheckIP rejects loopback, private and link-local addresses.
func CheckIP(ip net.IP) error {
	if ip == nil {
		return fmt.Errorf("invalid IP")
	}
	if ip.IsLoopback() || ip.IsPrivate() || ip.IsLinkLocalUnicast() || ip.IsUnspecified() {
		return fmt.Errorf("access to private IP %s is denied", ip)
	}
	return nil
}

// NewTransport returns a transport for outbound hook calls. Unless
// allowPrivate is set it rejects connections to private or loopback IP
// ranges to reduce SSRF risk.
func NewTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: dialTimeout}

	t := http.DefaultTransport.(*http.Transport).Clone()
	if allowPrivate {
		t.DialContext = dialer.DialContext
		return t
	}

	t.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		conn, err := dialer.DialContext(ctx, network, addr)
		if err != nil {
			return nil, err
		}

		host, _, _ := net.SplitHostPort(conn.RemoteAddr().String())
		ip := net.ParseIP(host)
		if ip == nil {
			conn.Close()
			return nil, fmt.Errorf("failed to parse remote IP for %q", addr)
		}

		if err := CheckIP(ip); err != nil {
			conn.Close()
			return nil, err
		}

		return conn, nil
	}
	return t
}
