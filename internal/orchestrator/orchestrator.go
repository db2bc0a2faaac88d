// Package orchestrator wires every subsystem into the single command
// dispatcher that interprets POST / requests against the live screen FSM,
// the matrix reconciler, the volume worker, and the four STB queues (C10 in
// the component design). It is the Go shape of the original's do_command /
// do_command_and_update_devices pair: one serialized entry point that
// dispatches, validates, renders, and publishes.
package orchestrator

import (
	"context"
	"sync"
	"time"

	"github.com/sweeks/multiviewer/internal/clock"
	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/matrix"
	"github.com/sweeks/multiviewer/internal/matrixmgr"
	"github.com/sweeks/multiviewer/internal/mverr"
	"github.com/sweeks/multiviewer/internal/screen"
	"github.com/sweeks/multiviewer/internal/stbclient"
	"github.com/sweeks/multiviewer/internal/stbqueue"
	"github.com/sweeks/multiviewer/internal/tv"
	"github.com/sweeks/multiviewer/internal/volume"
	"github.com/sweeks/multiviewer/pkg/mvproto"
)

var log = logging.L("orchestrator")

// Dispatcher holds every piece of live state a command can touch, plus the
// background workers it pushes a new desired state to after each one.
// Commands arrive serialized through Do: the same cooperative-single-thread
// guarantee the original's asyncio event loop gave do_command for free, here
// enforced with a mutex instead.
type Dispatcher struct {
	mu sync.Mutex

	Screen *screen.MvScreen
	Power  matrix.Power

	matrixMgr *matrixmgr.Manager
	volume    *volume.Worker
	queues    map[tv.TV]*stbqueue.Queue

	clk             clock.Clock
	doubleTapWindow time.Duration
	lastButton      *screen.Button
	lastButtonAt    time.Time
}

// New builds a Dispatcher wired to its subsystems. queues should have one
// entry per tv.All(); a missing entry makes that TV's STB commands silent
// no-ops rather than a panic.
func New(s *screen.MvScreen, mgr *matrixmgr.Manager, vol *volume.Worker, queues map[tv.TV]*stbqueue.Queue, clk clock.Clock, doubleTapWindow time.Duration) *Dispatcher {
	return &Dispatcher{
		Screen:          s,
		Power:           matrix.PowerOff,
		matrixMgr:       mgr,
		volume:          vol,
		queues:          queues,
		clk:             clk,
		doubleTapWindow: doubleTapWindow,
	}
}

// Initialize brings every subsystem's desired state in line with Power and
// Screen right after startup or a state-file load — the Go form of the
// original's initialize(mv): power off drains every STB to sleep, power on
// wakes them and resyncs the compositor.
func (d *Dispatcher) Initialize(ctx context.Context) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.Power == matrix.PowerOn {
		d.powerOnLocked()
	} else {
		d.powerOffLocked()
	}
}

// Synced blocks until every STB queue has drained, the matrix has converged,
// and the volume worker has reached its desired delta, or ctx is done —
// mirrors the original's synced(mv).
func (d *Dispatcher) Synced(ctx context.Context) error {
	for _, t := range tv.All() {
		if q, ok := d.queues[t]; ok {
			if err := q.Synced(ctx); err != nil {
				return err
			}
		}
	}
	if err := d.matrixMgr.WaitSynced(ctx); err != nil {
		return err
	}
	return d.volume.Synced(ctx)
}

// Close stops accepting new STB work and lets in-flight jobs finish.
func (d *Dispatcher) Close() {
	for _, q := range d.queues {
		q.Close()
	}
}

// Do interprets one command line (already split on spaces) against the
// live state, pushes the resulting desired state to the matrix manager and
// volume worker, and returns whatever value the command produces for the
// HTTP response (nil for commands with no reply). Mirrors
// do_command_and_update_devices: dispatch, validate, render, publish.
func (d *Dispatcher) Do(ctx context.Context, words []string) (any, error) {
	if len(words) == 0 {
		return nil, &mverr.InvalidCommandError{Command: ""}
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	verb := words[0]
	if d.Power == matrix.PowerOff && verb != mvproto.CmdPower && verb != mvproto.CmdPowerOn {
		return map[string]any{}, nil
	}

	result, err := d.dispatch(verb, words)
	if err != nil {
		return nil, err
	}

	if err := d.Screen.Validate(); err != nil {
		log.Error("invariant violation after command", "command", verb, logging.KeyError, err)
		return nil, err
	}
	d.pushStateLocked()

	if result == nil {
		return map[string]any{}, nil
	}
	return result, nil
}

// pushStateLocked renders the screen and publishes it to the matrix
// manager, and republishes the selected TV's remembered volume delta — the
// same pair of side effects do_command_and_update_devices performs after
// every command. Caller must hold mu.
func (d *Dispatcher) pushStateLocked() {
	d.matrixMgr.SetDesired(d.Screen.Render().ScreenState(d.Power))
	d.volume.SetForTV(d.Screen.SelectedTV())
}

// pressed resolves double-tap timing for button against the orchestrator's
// own clock. The original's screen FSM carried a clock for this; this
// system's screen package is deliberately clock-free, so the caller computes
// maybeDoubleTap and the FSM only tracks same-button repeat.
func (d *Dispatcher) pressed(button screen.Button) *int {
	now := d.clk.Now()
	maybeDoubleTap := d.lastButton != nil && *d.lastButton == button && now.Sub(d.lastButtonAt) <= d.doubleTapWindow
	b := button
	d.lastButton = &b
	d.lastButtonAt = now
	return d.Screen.Pressed(button, maybeDoubleTap)
}

// remoteGated runs atvJob against t's STB queue in APPLE_TV remote mode, or
// dispatches button into the screen FSM in MULTIVIEWER mode — the shape of
// every "match remote_mode:" case in the original's do_command.
func (d *Dispatcher) remoteGated(t tv.TV, button screen.Button, label string, atvJob stbqueue.Job) {
	switch d.Screen.RemoteMode {
	case screen.AppleTV:
		d.enqueue(t, label, atvJob)
	case screen.Multiviewer:
		d.pressed(button)
	}
}

func (d *Dispatcher) enqueue(t tv.TV, label string, job stbqueue.Job) {
	if q, ok := d.queues[t]; ok {
		q.Enqueue(label, job)
	}
}

// dispatch is the verb switch itself, a direct port of mv.py's do_command
// match statement. t is the currently-selected TV, resolved once up front
// exactly as the original does before its match. A non-nil return value is
// surfaced verbatim as the command's JSON result.
func (d *Dispatcher) dispatch(verb string, words []string) (any, error) {
	t := d.Screen.SelectedTV()

	switch verb {
	case mvproto.CmdActivateTV:
		d.Screen.ActivateTV()
	case mvproto.CmdBack:
		d.remoteGated(t, screen.ButtonBack, "menu", func(c *stbclient.Client) error { return c.Menu() })
	case mvproto.CmdDeactivateTV:
		// The HTTP surface exposes one Deactivate_tv verb; the original's
		// default place_first_in_inactive=True is DEACTIVATE_TV_FIRST.
		d.pressed(screen.ButtonDeactivateTVFirst)
	case mvproto.CmdDown, mvproto.CmdDownArrow:
		d.remoteGated(t, screen.ButtonArrowS, "down", func(c *stbclient.Client) error { return c.Down() })
	case mvproto.CmdHome:
		d.remoteGated(t, screen.ButtonToggleSubmode, "home", func(c *stbclient.Client) error { return c.Home() })
	case mvproto.CmdInfo:
		return d.info(), nil
	case mvproto.CmdLaunch:
		if len(words) < 2 {
			return nil, &mverr.InvalidCommandError{Command: verb}
		}
		url := words[1]
		d.enqueue(t, "launch", func(c *stbclient.Client) error { return c.Launch(url) })
	case mvproto.CmdLeft, mvproto.CmdLeftArrow:
		d.remoteGated(t, screen.ButtonArrowW, "left", func(c *stbclient.Client) error { return c.Left() })
	case mvproto.CmdMute:
		d.volume.ToggleMute()
	case mvproto.CmdPlayPause:
		d.remoteGated(t, screen.ButtonPlayPause, "play_pause", func(c *stbclient.Client) error { return c.PlayPause() })
	case mvproto.CmdPowerOn:
		if d.Power == matrix.PowerOff {
			d.powerOnLocked()
		}
	case mvproto.CmdPower:
		if d.Power == matrix.PowerOff {
			d.powerOnLocked()
		} else {
			d.powerOffLocked()
		}
	case mvproto.CmdRemote:
		if code := d.pressed(screen.ButtonRemote); code != nil {
			return *code, nil
		}
	case mvproto.CmdReset:
		d.Screen.Reset()
		d.volume.Reset()
	case mvproto.CmdRight, mvproto.CmdRightArrow:
		d.remoteGated(t, screen.ButtonArrowE, "right", func(c *stbclient.Client) error { return c.Right() })
	case mvproto.CmdScreensaver:
		d.enqueue(t, "screensaver", func(c *stbclient.Client) error { return c.Screensaver() })
	case mvproto.CmdSelect:
		d.remoteGated(t, screen.ButtonSelect, "select", func(c *stbclient.Client) error { return c.Select() })
	case mvproto.CmdSleep:
		d.enqueue(t, "sleep", func(c *stbclient.Client) error { return c.Sleep() })
	case mvproto.CmdTest:
		// no-op, used to confirm the ingress is alive without touching anything
	case mvproto.CmdUp, mvproto.CmdUpArrow:
		d.remoteGated(t, screen.ButtonArrowN, "up", func(c *stbclient.Client) error { return c.Up() })
	case mvproto.CmdVolumeDown:
		d.volume.AdjustVolume(t, -1)
	case mvproto.CmdVolumeUp:
		d.volume.AdjustVolume(t, 1)
	case mvproto.CmdWake:
		d.enqueue(t, "wake", func(c *stbclient.Client) error { return c.Wake() })
	default:
		return nil, &mverr.InvalidCommandError{Command: verb}
	}
	return nil, nil
}

// info renders the combined one-line compositor and volume description —
// the Go form of mv.py's info(): current rendered layout plus volume state.
func (d *Dispatcher) info() string {
	return d.Screen.Render().OneLineDescription() + " " + d.volume.DescribeVolume()
}

// Describe locks and returns the current one-line compositor and volume
// descriptions, for the status feed to push after a command completes.
func (d *Dispatcher) Describe() (screenDesc, volumeDesc string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.Screen.Render().OneLineDescription(), d.volume.DescribeVolume()
}

// powerOnLocked mirrors power_on(mv): flips Power, resets the screen's
// remote-mode/border state and the volume worker, then wakes every TV's
// STB. Waking TV1 also turns on the downstream display over CEC.
func (d *Dispatcher) powerOnLocked() {
	log.Info("powering on")
	d.Power = matrix.PowerOn
	d.Screen.PowerOn()
	d.volume.Reset()
	for _, t := range tv.All() {
		d.enqueue(t, "wake", func(c *stbclient.Client) error { return c.Wake() })
	}
	d.pushStateLocked()
}

// powerOffLocked mirrors power_off(mv): flips Power and puts every STB to
// sleep. The matrix manager's SetScreen returns immediately on seeing
// Power == Off without touching mode/window/audio state.
func (d *Dispatcher) powerOffLocked() {
	log.Info("powering off")
	d.Power = matrix.PowerOff
	for _, t := range tv.All() {
		d.enqueue(t, "sleep", func(c *stbclient.Client) error { return c.Sleep() })
	}
	d.matrixMgr.SetDesired(matrix.ScreenState{Power: matrix.PowerOff})
}

// VolumeDeltas snapshots every TV's remembered volume delta, for
// persistence alongside Screen and Power.
func (d *Dispatcher) VolumeDeltas() map[tv.TV]int {
	out := make(map[tv.TV]int, len(tv.All()))
	for _, t := range tv.All() {
		out[t] = d.volume.VolumeDeltaFor(t)
	}
	return out
}

// RestoreVolumeDeltas reapplies persisted per-TV deltas after a state-file
// load, before Initialize publishes the first desired state.
func (d *Dispatcher) RestoreVolumeDeltas(deltas map[tv.TV]int) {
	for t, delta := range deltas {
		d.volume.AdjustVolume(t, delta)
	}
	d.volume.SetForTV(d.Screen.SelectedTV())
}
