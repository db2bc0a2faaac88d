// Package lineproto implements the full-duplex, line-oriented, ASCII,
// CR-terminated-write TCP client shared by the matrix and set-top-box
// connections (C1 in the component design).
package lineproto

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/sweeks/multiviewer/internal/mverr"
)

const terminator = "\r"

// Client is a line-oriented TCP connection. Reads and writes are both
// timeout-guarded so a silent device never blocks a caller's forward progress.
type Client struct {
	conn    net.Conn
	reader  *bufio.Reader
	timeout time.Duration
}

// Dial connects to addr and returns a Client whose ReadLine calls give up
// after timeout with a *mverr.TimeoutError.
func Dial(addr string, timeout time.Duration) (*Client, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, &mverr.IoError{Op: "dial " + addr, Err: err}
	}
	tuneKeepalive(conn)
	return New(conn, timeout), nil
}

// New wraps an already-open connection (tests use net.Pipe here).
func New(conn net.Conn, timeout time.Duration) *Client {
	return &Client{
		conn:    conn,
		reader:  bufio.NewReader(conn),
		timeout: timeout,
	}
}

// WriteLine encodes s as ASCII, appends the CR terminator, and flushes it.
func (c *Client) WriteLine(s string) error {
	if err := c.conn.SetWriteDeadline(time.Now().Add(c.timeout)); err != nil {
		return &mverr.IoError{Op: "set write deadline", Err: err}
	}
	if _, err := c.conn.Write([]byte(s + terminator)); err != nil {
		return &mverr.IoError{Op: "write line", Err: err}
	}
	return nil
}

// ReadLine reads the next newline-delimited line, stripped of its
// terminator. Returns (\"\", *mverr.TimeoutError) when no line arrives
// before the configured timeout — this is not treated as fatal by callers.
func (c *Client) ReadLine() (string, error) {
	if err := c.conn.SetReadDeadline(time.Now().Add(c.timeout)); err != nil {
		return "", &mverr.IoError{Op: "set read deadline", Err: err}
	}
	line, err := c.reader.ReadString('\n')
	if err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return "", &mverr.TimeoutError{Op: "read line"}
		}
		return "", &mverr.IoError{Op: "read line", Err: err}
	}
	trimmed := trimLine(line)
	if !ascii7Bit(trimmed) {
		return "", &mverr.IoError{Op: "read line", Err: errNotASCII}
	}
	return trimmed, nil
}

// ReadUntilLine discards lines until one exactly matches target, tolerating
// intermediate timeouts (it keeps retrying rather than surfacing them).
func (c *Client) ReadUntilLine(target string) error {
	for {
		line, err := c.ReadLine()
		if err != nil {
			if _, ok := err.(*mverr.TimeoutError); ok {
				continue
			}
			return err
		}
		if line == target {
			return nil
		}
	}
}

// SendCommand writes cmd then reads the next response line.
func (c *Client) SendCommand(cmd string) (string, error) {
	if err := c.WriteLine(cmd); err != nil {
		return "", err
	}
	return c.ReadLine()
}

// Close closes the underlying connection, best-effort.
func (c *Client) Close() error {
	if c.conn == nil {
		return nil
	}
	return c.conn.Close()
}

func trimLine(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}

// ascii7Bit reports whether s contains only 7-bit ASCII, matching the
// Python client's strict ASCII decode.
func ascii7Bit(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > 127 {
			return false
		}
	}
	return true
}

var errNotASCII = fmt.Errorf("line is not 7-bit ASCII")
