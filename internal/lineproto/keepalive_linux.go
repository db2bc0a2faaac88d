//go:build linux

package lineproto

import (
	"net"

	"golang.org/x/sys/unix"
)

// tuneKeepalive enables TCP keepalive on conn and tightens its idle and
// interval timers via setsockopt, the same golang.org/x/sys/unix escape
// hatch the rest of the ecosystem reaches for whenever net.TCPConn's portable
// API falls short of per-platform tuning.
func tuneKeepalive(conn net.Conn) {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}
	raw, err := tcpConn.SyscallConn()
	if err != nil {
		return
	}
	_ = raw.Control(func(fd uintptr) {
		_ = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1)
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(keepaliveIdle.Seconds()))
		_ = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(keepaliveInterval.Seconds()))
	})
}
