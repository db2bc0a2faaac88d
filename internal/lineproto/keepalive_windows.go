//go:build windows

package lineproto

import "net"

// tuneKeepalive is a no-op on Windows; this package's keepalive tuning
// targets the unix deployment the matrix, IR bridge, and set-top boxes
// actually run on.
func tuneKeepalive(conn net.Conn) {}
