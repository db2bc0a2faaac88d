package matrixmgr

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"strings"
	"testing"
	"time"

	"github.com/sweeks/multiviewer/internal/clock"
	"github.com/sweeks/multiviewer/internal/matrix"
)

// fakeSwitch is a minimal scripted stand-in for the real matrix device: it
// accepts one connection and answers every "r power!" query with whatever
// power state was last pushed from a "power N!" write.
func fakeSwitch(t *testing.T) (addr string, done <-chan struct{}) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	finished := make(chan struct{})
	go func() {
		defer close(finished)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		power := "power on"
		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\r')
			if err != nil {
				return
			}
			cmd := line[:len(line)-1]
			switch cmd {
			case "r power!":
				conn.Write([]byte(power + "\n"))
			case "power 0!":
				power = "power off"
			case "power 1!":
				power = "power on"
			}
		}
	}()
	return ln.Addr().String(), finished
}

func TestManagerConvergesToDesiredPowerOff(t *testing.T) {
	addr, _ := fakeSwitch(t)
	driver := matrix.NewDriver(addr, time.Second)
	mgr := NewManager(driver, clock.Real{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	mgr.SetDesired(matrix.ScreenState{Power: matrix.PowerOff})

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := mgr.WaitSynced(waitCtx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}

	state, err := mgr.CurrentState(waitCtx)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state.Power != matrix.PowerOff {
		t.Fatalf("CurrentState().Power = %v, want off", state.Power)
	}
}

func TestManagerSupersedesStaleDesiredState(t *testing.T) {
	addr, _ := fakeSwitch(t)
	driver := matrix.NewDriver(addr, time.Second)
	mgr := NewManager(driver, clock.Real{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	mgr.SetDesired(matrix.ScreenState{Power: matrix.PowerOff})
	mgr.SetDesired(matrix.ScreenState{Power: matrix.PowerOn})

	waitCtx, waitCancel := context.WithTimeout(ctx, 2*time.Second)
	defer waitCancel()
	if err := mgr.WaitSynced(waitCtx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}

	state, err := mgr.CurrentState(waitCtx)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state.Power != matrix.PowerOn {
		t.Fatalf("CurrentState().Power = %v, want on (latest desired should win)", state.Power)
	}
}

// quadModeName maps the switch's numeric mode code to the textual name it
// reports on "r multiview!", matching Mode.String().
func quadModeName(n int) string {
	switch n {
	case 1:
		return "single screen"
	case 2:
		return "PIP"
	case 3:
		return "PBP"
	case 4:
		return "triple screen"
	case 5:
		return "quad screen"
	default:
		return ""
	}
}

// scriptedQuadDevice is a stateful fake switch that tracks every facet a
// QUAD ScreenState touches and answers reads from that state, so a full
// SetScreen-then-ReadScreen round trip can be driven against it. Starting
// power "on" means SetPower's own current-state check is a no-op, skipping
// the boot resync dance. If liarWindow is nonzero, reads of that window's
// input always report a value other than what was last written there,
// standing in for the device "lying" right after a write.
func scriptedQuadDevice(t *testing.T, liarWindow int) (addr string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	t.Cleanup(func() { ln.Close() })

	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()

		var state struct {
			power       string
			mode        int
			submode     int
			windowInput [5]int
			border      [5]int
			color       [5]int
			audioFrom   int
			mute        int
		}
		state.power = "on"

		r := bufio.NewReader(conn)
		for {
			line, err := r.ReadString('\r')
			if err != nil {
				return
			}
			cmd := line[:len(line)-1]
			reply := func(s string) { conn.Write([]byte(s + "\n")) }

			switch {
			case cmd == "r power!":
				reply("power " + state.power)
			case cmd == "r multiview!":
				reply(quadModeName(state.mode))
			case cmd == "r submode!":
				reply(fmt.Sprintf("submode%d!", state.submode))
			case cmd == "r audio!":
				reply(fmt.Sprintf("audio%d!", state.audioFrom))
			case cmd == "r mute!":
				reply(fmt.Sprintf("mute%d!", state.mute))
			case strings.HasPrefix(cmd, "r window") && strings.Contains(cmd, "bordercolor"):
				var w int
				fmt.Sscanf(cmd, "r window%d bordercolor!", &w)
				reply(fmt.Sprintf("window%d bordercolor%d!", w, state.color[w]))
			case strings.HasPrefix(cmd, "r window") && strings.Contains(cmd, "border"):
				var w int
				fmt.Sscanf(cmd, "r window%d border!", &w)
				reply(fmt.Sprintf("window%d border%d!", w, state.border[w]))
			case strings.HasPrefix(cmd, "r window"):
				var w int
				fmt.Sscanf(cmd, "r window%d!", &w)
				got := state.windowInput[w]
				if liarWindow != 0 && w == liarWindow {
					got = (got % 4) + 1
				}
				reply(fmt.Sprintf("window%d input%d!", w, got))
			case strings.HasPrefix(cmd, "multiview"):
				fmt.Sscanf(cmd, "multiview%d!", &state.mode)
				reply(cmd)
			case strings.HasPrefix(cmd, "submode"):
				fmt.Sscanf(cmd, "submode%d!", &state.submode)
				reply(cmd)
			case strings.HasPrefix(cmd, "audio"):
				fmt.Sscanf(cmd, "audio%d!", &state.audioFrom)
				reply(cmd)
			case strings.HasPrefix(cmd, "mute"):
				fmt.Sscanf(cmd, "mute%d!", &state.mute)
				reply(cmd)
			case strings.HasPrefix(cmd, "window") && strings.Contains(cmd, "bordercolor"):
				var w, c int
				fmt.Sscanf(cmd, "window%d bordercolor%d!", &w, &c)
				state.color[w] = c
				reply(cmd)
			case strings.HasPrefix(cmd, "window") && strings.Contains(cmd, "border"):
				var w, b int
				fmt.Sscanf(cmd, "window%d border%d!", &w, &b)
				state.border[w] = b
				reply(cmd)
			case strings.HasPrefix(cmd, "window") && strings.Contains(cmd, "input"):
				var w, h int
				fmt.Sscanf(cmd, "window%d input%d!", &w, &h)
				state.windowInput[w] = h
				reply(cmd)
			}
		}
	}()
	return ln.Addr().String()
}

func quadDesiredState() matrix.ScreenState {
	return matrix.ScreenState{
		Power:       matrix.PowerOn,
		Mode:        matrix.ModeQuad,
		Submode:     matrix.SubmodeWindowsSame,
		WindowInput: [5]matrix.Hdmi{1: matrix.H1, 2: matrix.H2, 3: matrix.H3, 4: matrix.H4},
		Border:      [5]matrix.Border{1: matrix.BorderOn, 2: matrix.BorderOn, 3: matrix.BorderOn, 4: matrix.BorderOn},
		BorderColor: [5]matrix.Color{1: matrix.ColorRed, 2: matrix.ColorRed, 3: matrix.ColorRed, 4: matrix.ColorRed},
		AudioFrom:   matrix.H1,
		AudioMute:   matrix.Unmuted,
	}
}

// TestManagerDeclaresSyncedOnlyAfterReadBackMatches covers spec.md's
// read-verify step: sync must not declare success off SetScreen's error
// alone. It has to re-read the screen via Driver.ReadScreen and compare
// against the desired state, only then setting the synced event.
func TestManagerDeclaresSyncedOnlyAfterReadBackMatches(t *testing.T) {
	addr := scriptedQuadDevice(t, 0)
	driver := matrix.NewDriver(addr, time.Second)
	mgr := NewManager(driver, clock.Real{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	desired := quadDesiredState()
	mgr.SetDesired(desired)

	waitCtx, waitCancel := context.WithTimeout(ctx, 3*time.Second)
	defer waitCancel()
	if err := mgr.WaitSynced(waitCtx); err != nil {
		t.Fatalf("WaitSynced: %v", err)
	}

	state, err := mgr.CurrentState(waitCtx)
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state != desired {
		t.Fatalf("CurrentState() = %+v, want %+v", state, desired)
	}
}

// TestManagerNeverDeclaresSyncedOnReadBackMismatch covers the other half of
// the same spec step: if the device's read-back doesn't match what was
// written (it "lied"), sync must report not-synced rather than trusting
// SetScreen's nil error.
func TestManagerNeverDeclaresSyncedOnReadBackMismatch(t *testing.T) {
	addr := scriptedQuadDevice(t, 1) // window 1's input always reads back wrong
	driver := matrix.NewDriver(addr, time.Second)
	mgr := NewManager(driver, clock.Real{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	mgr.SetDesired(quadDesiredState())

	// A real sync attempt can't finish in under a second: sync's
	// read-verify step always pauses that long after SetScreen before
	// re-reading. Any
	// WaitSynced success inside that window would mean synced was
	// declared without ever checking the read-back.
	waitCtx, waitCancel := context.WithTimeout(ctx, 500*time.Millisecond)
	defer waitCancel()
	if err := mgr.WaitSynced(waitCtx); err == nil {
		t.Fatal("WaitSynced should not succeed while the read-back mismatches desired")
	}
}

func TestWaitSyncedTimesOutBeforeAnyDesiredState(t *testing.T) {
	addr, _ := fakeSwitch(t)
	driver := matrix.NewDriver(addr, time.Second)
	mgr := NewManager(driver, clock.Real{}, 5*time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go mgr.Run(ctx)

	waitCtx, waitCancel := context.WithTimeout(ctx, 50*time.Millisecond)
	defer waitCancel()
	if err := mgr.WaitSynced(waitCtx); err == nil {
		t.Fatal("WaitSynced should not return before any desired state is published")
	}
}
