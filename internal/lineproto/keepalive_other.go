//go:build !windows && !linux && !darwin

package lineproto

import "net"

// tuneKeepalive falls back to the portable net.TCPConn keepalive knobs on
// unix-family platforms without a dedicated setsockopt tuning above.
func tuneKeepalive(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	_ = tcpConn.SetKeepAlive(true)
	_ = tcpConn.SetKeepAlivePeriod(keepaliveInterval)
}
