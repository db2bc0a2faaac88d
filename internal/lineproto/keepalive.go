package lineproto

import "time"

// keepaliveIdle and keepaliveInterval shorten TCP keepalive well below the
// OS default (often two hours) so a silently-dead matrix or set-top-box
// connection -- the box lost power, a switch dropped the link -- is
// detected by the kernel after keepaliveIdle of silence and the probes
// that follow every keepaliveInterval, instead of a hung goroutine waiting
// on a socket nothing will ever answer again.
const (
	keepaliveIdle     = 10 * time.Second
	keepaliveInterval = 5 * time.Second
)
