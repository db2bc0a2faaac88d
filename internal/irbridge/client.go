// Package irbridge sends IR blaster commands (volume up/down, mute) to a
// Global Caché-style iTach over raw TCP (C2 in the component design). Its
// wire format is its own: commands and the single ack line are both
// terminated by a bare CR, unlike the LF-terminated matrix/switch protocol
// in internal/lineproto, so this package dials its own connection rather
// than reusing that client.
package irbridge

import (
	"bufio"
	"net"
	"time"

	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/mverr"
)

var log = logging.L("irbridge")

// Exact IR learn captures for this remote, reused verbatim on every press.
const (
	irVolumeUp = "sendir,1:3,1,37878,1,1," +
		"171,170,22,21,22,21,22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,21," +
		"22,63,22,63,22,21,22,63,22,21,22,21,22,63,22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,21," +
		"22,21,22,21,22,63,22,21,22,63,22,63,22,63,22,1779," +
		"171,170,22,63,22,3650\r"

	irVolumeDown = "sendir,1:3,1,37878,1,1," +
		"171,170,22,21,22,21,22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,21," +
		"22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,63," +
		"22,21,22,21,22,63,22,21,22,63,22,63,22,63,22,1778," +
		"171,170,22,63,22,3648\r"

	irMute = "sendir,1:3,1,37878,1,1,171,170,22,21,22,21,22,63,22,63,22,21,22,63,22,21,22,21,22,21,22,21," +
		"22,63,22,63,22,21,22,63,22,21,22,21,22,63,22,63,22,63,22,63,22,63,22,21,22,21,22,21,22,21," +
		"22,21,22,21,22,21,22,21,22,63,22,63,22,63,22,1779,171,170,22,63,22,3651,171,170,22,63,22,4848\r"
)

// defaultPulseDelay is slept after every acknowledged command when New is
// given no pulseDelay: the physical IR LED needs a quiet interval before it
// can reliably fire again.
const defaultPulseDelay = 250 * time.Millisecond

// Client sends IR commands to one iTach blaster, waiting for each command's
// ack line.
type Client struct {
	addr       string
	timeout    time.Duration
	pulseDelay time.Duration
}

// New returns a Client targeting addr. pulseDelay of 0 uses the 250ms
// default the physical remote was learned with.
func New(addr string, timeout, pulseDelay time.Duration) *Client {
	if pulseDelay == 0 {
		pulseDelay = defaultPulseDelay
	}
	return &Client{addr: addr, timeout: timeout, pulseDelay: pulseDelay}
}

// command dials, writes text, waits for the single CR-terminated ack line,
// then sleeps pulseDelay before closing the connection and returning.
func (c *Client) command(text string) error {
	conn, err := net.DialTimeout("tcp", c.addr, 5*time.Second)
	if err != nil {
		return &mverr.IoError{Op: "dial " + c.addr, Err: err}
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.timeout)); err != nil {
		return &mverr.IoError{Op: "set deadline", Err: err}
	}
	if _, err := conn.Write([]byte(text)); err != nil {
		return &mverr.IoError{Op: "write ir command", Err: err}
	}

	r := bufio.NewReader(conn)
	if _, err := r.ReadString('\r'); err != nil {
		if ne, ok := err.(net.Error); ok && ne.Timeout() {
			return &mverr.TimeoutError{Op: "read ir ack"}
		}
		return &mverr.IoError{Op: "read ir ack", Err: err}
	}

	time.Sleep(c.pulseDelay)
	return nil
}

// VolumeUp pulses the volume-up button.
func (c *Client) VolumeUp() error {
	if err := c.command(irVolumeUp); err != nil {
		log.Warn("volume up ir command failed", logging.KeyError, err)
		return err
	}
	return nil
}

// VolumeDown pulses the volume-down button.
func (c *Client) VolumeDown() error {
	if err := c.command(irVolumeDown); err != nil {
		log.Warn("volume down ir command failed", logging.KeyError, err)
		return err
	}
	return nil
}

// Mute pulses the mute toggle button.
func (c *Client) Mute() error {
	if err := c.command(irMute); err != nil {
		log.Warn("mute ir command failed", logging.KeyError, err)
		return err
	}
	return nil
}
