package procctl

import (
	"context"
	"net"
	"net/url"
	"time"
)

// DaemonReachable reports whether anything is accepting connections on the
// endpoint's RPC port. A TCP probe is enough for the resume decision; the
// readiness poll verifies actual RPC health later.
func (c *Controller) DaemonReachable(ctx context.Context, endpoint string) bool {
	parsed, err := url.Parse(endpoint)
	if err != nil || parsed.Host == "" {
		return false
	}
	dialer := net.Dialer{Timeout: 2 * time.Second}
	conn, err := dialer.DialContext(ctx, "tcp", parsed.Host)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
