package matrix

import (
	"bufio"
	"net"
	"testing"
	"time"

	"github.com/sweeks/multiviewer/internal/lineproto"
	"github.com/sweeks/multiviewer/internal/mverr"
)

func newTestDriver(t *testing.T) (*Driver, net.Conn) {
	t.Helper()
	clientSide, serverSide := net.Pipe()
	d := &Driver{timeout: time.Second, belief: newBelief()}
	d.conn = lineproto.New(clientSide, time.Second)
	t.Cleanup(func() {
		d.conn.Close()
		serverSide.Close()
	})
	return d, serverSide
}

// serverReply simulates the device side: it reads one line, hands it to
// match, then writes back whatever match returns.
func serverReply(t *testing.T, server net.Conn, match func(cmd string) string) {
	t.Helper()
	r := bufio.NewReader(server)
	line, err := r.ReadString('\r')
	if err != nil {
		t.Errorf("server read: %v", err)
		return
	}
	cmd := line[:len(line)-1]
	server.Write([]byte(match(cmd) + "\n"))
}

func TestReadPowerParsesOnAndOff(t *testing.T) {
	d, server := newTestDriver(t)
	go serverReply(t, server, func(cmd string) string { return "power on" })

	p, err := d.ReadPower()
	if err != nil {
		t.Fatalf("ReadPower: %v", err)
	}
	if p != PowerOn {
		t.Fatalf("ReadPower() = %s, want on", p)
	}
	if got, ok := d.belief.getPower(); !ok || got != PowerOn {
		t.Fatalf("belief not cached: %v %v", got, ok)
	}
}

func TestSetPowerNoopWhenAlreadyDesired(t *testing.T) {
	d, server := newTestDriver(t)
	go serverReply(t, server, func(cmd string) string { return "power on" })

	if err := d.SetPower(PowerOn); err != nil {
		t.Fatalf("SetPower: %v", err)
	}
}

func TestSetPowerOnRunsBootSequence(t *testing.T) {
	d, server := newTestDriver(t)

	go func() {
		r := bufio.NewReader(server)

		// 1. initial "r power!" from SetPower's current-state check
		first, _ := r.ReadString('\r')
		if first != "r power!\r" {
			t.Errorf("expected initial r power!, got %q", first)
		}
		server.Write([]byte("power off\n"))

		// 2. "power 1!" command, no direct ack expected
		pw, _ := r.ReadString('\r')
		if pw != "power 1!\r" {
			t.Errorf("expected power 1!, got %q", pw)
		}

		// boot banner, with some cruft first
		server.Write([]byte("booting\n"))
		server.Write([]byte(bootMarker + "\n"))

		// 3. sync_connection: r power! repeated until settled
		sync1, _ := r.ReadString('\r')
		if sync1 != "r power!\r" {
			t.Errorf("expected sync r power!, got %q", sync1)
		}
		server.Write([]byte("power on\n"))

		// 4. final confirm read
		confirm, _ := r.ReadString('\r')
		if confirm != "r power!\r" {
			t.Errorf("expected confirm r power!, got %q", confirm)
		}
		server.Write([]byte("power on\n"))
	}()

	if err := d.SetPower(PowerOn); err != nil {
		t.Fatalf("SetPower: %v", err)
	}
	if got, ok := d.belief.getPower(); !ok || got != PowerOn {
		t.Fatalf("belief after boot = %v %v, want on/true", got, ok)
	}
}

func TestSetWindowInputEchoAck(t *testing.T) {
	d, server := newTestDriver(t)
	go serverReply(t, server, func(cmd string) string { return cmd })

	if err := d.SetWindowInput(ModePip, W2, H3); err != nil {
		t.Fatalf("SetWindowInput: %v", err)
	}
	if got, ok := d.belief.getWindowInput(ModePip, W2); !ok || got != H3 {
		t.Fatalf("belief = %v %v, want H3/true", got, ok)
	}
	// Belief is per-mode: PBP's W2 belief must be untouched.
	if _, ok := d.belief.getWindowInput(ModePbp, W2); ok {
		t.Fatal("PBP W2 belief should be unset after a PIP-mode write")
	}
}

func TestSetBorderSharedAcrossModes(t *testing.T) {
	d, server := newTestDriver(t)
	go serverReply(t, server, func(cmd string) string { return cmd })

	if err := d.SetBorder(W2, BorderOn); err != nil {
		t.Fatalf("SetBorder: %v", err)
	}
	// Border belief has no mode axis: a single query key covers every mode.
	if got, ok := d.belief.getWindowBorder(W2); !ok || got != BorderOn {
		t.Fatalf("belief = %v %v, want on/true", got, ok)
	}
}

func TestSendAndExpectMismatchIsProtocolError(t *testing.T) {
	d, server := newTestDriver(t)
	go serverReply(t, server, func(cmd string) string { return "garbage" })

	err := d.SetAudioFrom(H1)
	pe, ok := err.(*mverr.ProtocolError)
	if !ok {
		t.Fatalf("expected *mverr.ProtocolError, got %v (%T)", err, err)
	}
	if pe.Response != "garbage" {
		t.Fatalf("ProtocolError.Response = %q", pe.Response)
	}
}

func TestSetWindowInputMutesFirstWhenWindowHoldsAudioFrom(t *testing.T) {
	d, server := newTestDriver(t)
	d.belief.setAudioFrom(H3)

	var commands []string
	go func() {
		r := bufio.NewReader(server)
		for i := 0; i < 2; i++ {
			line, err := r.ReadString('\r')
			if err != nil {
				return
			}
			cmd := line[:len(line)-1]
			commands = append(commands, cmd)
			server.Write([]byte(cmd + "\n"))
		}
	}()

	if err := d.SetWindowInput(ModePip, W2, H3); err != nil {
		t.Fatalf("SetWindowInput: %v", err)
	}
	if len(commands) != 2 || commands[0] != "mute1!" {
		t.Fatalf("commands = %v, want mute before the window-input command", commands)
	}
}

func TestSetWindowInputDoesNotMuteInFullMode(t *testing.T) {
	d, server := newTestDriver(t)
	d.belief.setAudioFrom(H3)
	go serverReply(t, server, func(cmd string) string { return cmd })

	if err := d.SetWindowInput(ModeFull, W1, H3); err != nil {
		t.Fatalf("SetWindowInput: %v", err)
	}
	if got, _ := d.belief.getAudioMute(); got == Muted {
		t.Fatalf("FULL mode should never mute on a window-input change")
	}
}

func TestSetScreenSetsPipLocationRightAfterMode(t *testing.T) {
	d, server := newTestDriver(t)

	var commands []string
	go func() {
		r := bufio.NewReader(server)
		for {
			line, err := r.ReadString('\r')
			if err != nil {
				return
			}
			cmd := line[:len(line)-1]
			commands = append(commands, cmd)
			if cmd == "r power!" {
				server.Write([]byte("power on\n"))
				continue
			}
			server.Write([]byte(cmd + "\n"))
		}
	}()

	desired := ScreenState{
		Power:       PowerOn,
		Mode:        ModePip,
		PipLocation: PipNE,
		WindowInput: [5]Hdmi{1: H1, 2: H2},
		AudioFrom:   H1,
		AudioMute:   Unmuted,
	}
	if err := d.SetScreen(desired, func() bool { return false }); err != nil {
		t.Fatalf("SetScreen: %v", err)
	}

	modeIdx, pipIdx, windowIdx := -1, -1, -1
	for i, c := range commands {
		switch {
		case c == "multiview2!" && modeIdx == -1:
			modeIdx = i
		case c == "pip 19 19 80 3!" && pipIdx == -1:
			pipIdx = i
		case c == "window1 input1!" && windowIdx == -1:
			windowIdx = i
		}
	}
	if modeIdx == -1 || pipIdx == -1 || windowIdx == -1 {
		t.Fatalf("missing expected command in %v", commands)
	}
	if !(modeIdx < pipIdx && pipIdx < windowIdx) {
		t.Fatalf("expected mode < pip < window ordering, got indices %d %d %d in %v", modeIdx, pipIdx, windowIdx, commands)
	}
}

func TestSetScreenAbortsBeforeFirstCommand(t *testing.T) {
	d, server := newTestDriver(t)
	server.Close() // any write would now error; abort must prevent all writes

	err := d.SetScreen(ScreenState{Power: PowerOn}, func() bool { return true })
	if err != nil {
		t.Fatalf("SetScreen with immediate abort should be a no-op, got %v", err)
	}
}
