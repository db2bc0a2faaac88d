package matrix

import (
	"fmt"
	"time"

	"github.com/sweeks/multiviewer/internal/lineproto"
	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/mverr"
)

var log = logging.L("matrix")

const bootMarker = "Initialization Finished!"

// PIP's inset window is always 19x19 (of a 99x99 grid); near and far are
// the left/top offsets used for the near and far corners respectively.
const (
	pipSize = 19
	pipNear = 3
	pipFar  = 99 - pipSize // 80
)

// Driver owns the matrix's TCP connection and a belief cache of the switch's
// last-known state, which the driver itself consults (for example
// SetWindowInput's audio check and ReadScreen's PIP location).
type Driver struct {
	addr    string
	timeout time.Duration

	conn   *lineproto.Client
	belief *belief
}

// NewDriver constructs a Driver; GetConnection must be called before any
// command is sent.
func NewDriver(addr string, timeout time.Duration) *Driver {
	return &Driver{addr: addr, timeout: timeout, belief: newBelief()}
}

// GetConnection dials the switch if not already connected.
func (d *Driver) GetConnection() error {
	if d.conn != nil {
		return nil
	}
	c, err := lineproto.Dial(d.addr, d.timeout)
	if err != nil {
		return err
	}
	d.conn = c
	return nil
}

// Reset drops the connection and invalidates every cached belief. Callers
// use this after any protocol error, so the next command re-derives truth
// from the device instead of trusting a cache that may now be wrong.
func (d *Driver) Reset() {
	if d.conn != nil {
		d.conn.Close()
		d.conn = nil
	}
	d.belief.reset()
}

// SyncConnection re-synchronizes after a power transition by reading the
// power line repeatedly until the switch reports a settled value.
func (d *Driver) SyncConnection() (Power, error) {
	for {
		resp, err := d.conn.SendCommand("r power!")
		if err != nil {
			return 0, err
		}
		switch resp {
		case "power on":
			return PowerOn, nil
		case "power off":
			return PowerOff, nil
		}
	}
}

// sendAndExpect writes cmd and requires the response to equal expected,
// raising a *mverr.ProtocolError otherwise. Most set-commands on this
// switch echo the command's effect back verbatim as their acknowledgment.
func (d *Driver) sendAndExpect(cmd, expected string) error {
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return err
	}
	if resp != expected {
		return &mverr.ProtocolError{Command: cmd, Response: resp, Expected: expected}
	}
	return nil
}

// ReadPower queries and caches the switch's power state.
func (d *Driver) ReadPower() (Power, error) {
	resp, err := d.conn.SendCommand("r power!")
	if err != nil {
		return 0, err
	}
	var p Power
	switch resp {
	case "power on":
		p = PowerOn
	case "power off":
		p = PowerOff
	default:
		return 0, &mverr.ProtocolError{Command: "r power!", Response: resp}
	}
	d.belief.setPower(p)
	return p, nil
}

// SetPower drives the switch to the desired power state, running the full
// boot resync sequence when turning it on: the switch takes tens of
// seconds to boot and prints a banner line on completion rather than
// acking the power command directly.
func (d *Driver) SetPower(desired Power) error {
	d.belief.clearPower()

	current, err := d.ReadPower()
	if err != nil {
		return err
	}
	if current == desired {
		return nil
	}

	if err := d.conn.WriteLine(fmt.Sprintf("power %d!", desired.ToInt())); err != nil {
		return err
	}

	if desired == PowerOn {
		if err := d.conn.ReadUntilLine(bootMarker); err != nil {
			return err
		}
	}

	if _, err := d.SyncConnection(); err != nil {
		return err
	}

	confirmed, err := d.ReadPower()
	if err != nil {
		return err
	}
	if confirmed != desired {
		return &mverr.ProtocolError{Command: "power", Response: confirmed.String(), Expected: desired.String()}
	}
	return nil
}

// ReadWindowInput queries which HDMI input feeds window w while the switch
// is in mode m.
func (d *Driver) ReadWindowInput(m Mode, w Window) (Hdmi, error) {
	cmd := fmt.Sprintf("r window%d!", w.ToInt())
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var wn, h int
	if _, err := fmt.Sscanf(resp, "window%d input%d!", &wn, &h); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	hdmi, err := HdmiFromInt(h)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setWindowInput(m, w, hdmi)
	return hdmi, nil
}

// SetWindowInput routes HDMI input h to window w while the switch is in
// mode m. Outside FULL, routing a window onto the HDMI input currently
// feeding the audio output can blip the audio, so it mutes first; FULL
// doesn't exhibit this.
func (d *Driver) SetWindowInput(m Mode, w Window, h Hdmi) error {
	if m != ModeFull {
		if current, ok := d.belief.getAudioFrom(); ok && current == h {
			if err := d.Mute(); err != nil {
				return err
			}
		}
	}
	d.belief.clearWindowInput(m, w)
	cmd := fmt.Sprintf("window%d input%d!", w.ToInt(), h.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setWindowInput(m, w, h)
	return nil
}

// ReadBorder queries whether window w currently draws a border frame.
func (d *Driver) ReadBorder(w Window) (Border, error) {
	cmd := fmt.Sprintf("r window%d border!", w.ToInt())
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var wn, b int
	if _, err := fmt.Sscanf(resp, "window%d border%d!", &wn, &b); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	border, err := BorderFromInt(b)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setWindowBorder(w, border)
	return border, nil
}

// SetBorder turns window w's border frame on or off. Belief here is keyed
// only by window, never by mode: the switch itself forgets which mode a
// border setting was made in.
func (d *Driver) SetBorder(w Window, on Border) error {
	d.belief.clearWindowBorder(w)
	cmd := fmt.Sprintf("window%d border%d!", w.ToInt(), on.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setWindowBorder(w, on)
	return nil
}

// ReadBorderColor queries window w's border color.
func (d *Driver) ReadBorderColor(w Window) (Color, error) {
	cmd := fmt.Sprintf("r window%d bordercolor!", w.ToInt())
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var wn, c int
	if _, err := fmt.Sscanf(resp, "window%d bordercolor%d!", &wn, &c); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	color, err := ColorFromInt(c)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setWindowBorderColor(w, color)
	return color, nil
}

// SetBorderColor sets window w's border color, regardless of the current
// mode (same per-window-only belief caveat as SetBorder).
func (d *Driver) SetBorderColor(w Window, c Color) error {
	d.belief.clearWindowBorderColor(w)
	cmd := fmt.Sprintf("window%d bordercolor%d!", w.ToInt(), c.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setWindowBorderColor(w, c)
	return nil
}

// ReadAudioFrom queries which HDMI input currently feeds the audio output.
func (d *Driver) ReadAudioFrom() (Hdmi, error) {
	cmd := "r audio!"
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var h int
	if _, err := fmt.Sscanf(resp, "audio%d!", &h); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	hdmi, err := HdmiFromInt(h)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setAudioFrom(hdmi)
	return hdmi, nil
}

// SetAudioFrom routes HDMI input h's embedded audio to the output.
func (d *Driver) SetAudioFrom(h Hdmi) error {
	d.belief.clearAudioFrom()
	cmd := fmt.Sprintf("audio%d!", h.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setAudioFrom(h)
	return nil
}

// ReadAudioMute queries the output mute state.
func (d *Driver) ReadAudioMute() (Mute, error) {
	cmd := "r mute!"
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var m int
	if _, err := fmt.Sscanf(resp, "mute%d!", &m); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	mute, err := MuteFromInt(m)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setAudioMute(mute)
	return mute, nil
}

// SetAudioMute sets the output mute state directly.
func (d *Driver) SetAudioMute(m Mute) error {
	d.belief.clearAudioMute()
	cmd := fmt.Sprintf("mute%d!", m.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setAudioMute(m)
	return nil
}

// Mute is a convenience wrapper over SetAudioMute.
func (d *Driver) Mute() error { return d.SetAudioMute(Muted) }

// Unmute is a convenience wrapper over SetAudioMute.
func (d *Driver) Unmute() error { return d.SetAudioMute(Unmuted) }

// ReadMode queries the switch's current multiview mode.
func (d *Driver) ReadMode() (Mode, error) {
	cmd := "r multiview!"
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	m, err := ModeFromMultiviewName(resp)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setMode(m)
	return m, nil
}

// SetMode switches the multiview layout mode.
func (d *Driver) SetMode(m Mode) error {
	d.belief.clearMode()
	cmd := fmt.Sprintf("multiview%d!", m.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setMode(m)
	return nil
}

// ReadSubmode queries the arrangement submode, valid only when the current
// mode has one (Mode.HasSubmode).
func (d *Driver) ReadSubmode() (Submode, error) {
	cmd := "r submode!"
	resp, err := d.conn.SendCommand(cmd)
	if err != nil {
		return 0, err
	}
	var s int
	if _, err := fmt.Sscanf(resp, "submode%d!", &s); err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	submode, err := SubmodeFromInt(s)
	if err != nil {
		return 0, &mverr.ProtocolError{Command: cmd, Response: resp}
	}
	d.belief.setSubmode(submode)
	return submode, nil
}

// SetSubmode sets the arrangement submode.
func (d *Driver) SetSubmode(s Submode) error {
	d.belief.clearSubmode()
	cmd := fmt.Sprintf("submode%d!", s.ToInt())
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setSubmode(s)
	return nil
}

// pipGeometry returns the inset window's left and top offsets for the
// requested corner, on the switch's 99-unit coordinate grid.
func pipGeometry(loc PipLocation) (left, top int) {
	switch loc {
	case PipNW:
		return pipNear, pipNear
	case PipNE:
		return pipFar, pipNear
	case PipSW:
		return pipNear, pipFar
	case PipSE:
		return pipFar, pipFar
	default:
		return pipNear, pipNear
	}
}

// SetPip positions the PIP inset window at the requested screen corner.
func (d *Driver) SetPip(loc PipLocation) error {
	left, top := pipGeometry(loc)
	d.belief.clearPipLocation()
	cmd := fmt.Sprintf("pip %d %d %d %d!", pipSize, pipSize, left, top)
	if err := d.sendAndExpect(cmd, cmd); err != nil {
		return err
	}
	d.belief.setPipLocation(loc)
	return nil
}

// ScreenState is a complete snapshot of everything this driver tracks,
// used both as a read result and as a desired-state target for SetScreen.
type ScreenState struct {
	Power       Power
	Mode        Mode
	Submode     Submode
	WindowInput [5]Hdmi // [window.ToInt()], valid for window.ToInt() in Mode.Windows()
	Border      [5]Border
	BorderColor [5]Color
	PipLocation PipLocation
	AudioFrom   Hdmi
	AudioMute   Mute
}

// ShouldAbort lets a caller's reconciler interrupt a long SetScreen call
// at a safe boundary, between individual device commands.
type ShouldAbort func() bool

// ReadScreen queries every tracked facet of device state. Border color is
// read only for windows the mode draws a border on, as SetScreen writes it;
// in PIP mode the PIP location comes from the belief cache that SetPip fills.
func (d *Driver) ReadScreen() (ScreenState, error) {
	var s ScreenState

	power, err := d.ReadPower()
	if err != nil {
		return s, err
	}
	s.Power = power

	mode, err := d.ReadMode()
	if err != nil {
		return s, err
	}
	s.Mode = mode

	if mode.HasSubmode() {
		sub, err := d.ReadSubmode()
		if err != nil {
			return s, err
		}
		s.Submode = sub
	}

	for _, w := range mode.Windows() {
		h, err := d.ReadWindowInput(mode, w)
		if err != nil {
			return s, err
		}
		s.WindowInput[w.ToInt()] = h

		b, err := d.ReadBorder(w)
		if err != nil {
			return s, err
		}
		s.Border[w.ToInt()] = b

		if mode.WindowHasBorder(w) {
			c, err := d.ReadBorderColor(w)
			if err != nil {
				return s, err
			}
			s.BorderColor[w.ToInt()] = c
		}
	}

	if mode == ModePip {
		if loc, ok := d.belief.getPipLocation(); ok {
			s.PipLocation = loc
		}
	}

	af, err := d.ReadAudioFrom()
	if err != nil {
		return s, err
	}
	s.AudioFrom = af

	am, err := d.ReadAudioMute()
	if err != nil {
		return s, err
	}
	s.AudioMute = am

	return s, nil
}

// SetScreen drives the device toward the desired state, checking
// shouldAbort between each command so a caller's watchdog can cut a long
// convergence short without leaving the connection mid-command. Power is
// driven first since every other command requires the device to be on;
// mode is driven next since window/border layout is meaningless until the
// window count it implies is fixed.
func (d *Driver) SetScreen(desired ScreenState, shouldAbort ShouldAbort) error {
	if shouldAbort() {
		return nil
	}
	if err := d.SetPower(desired.Power); err != nil {
		return err
	}
	if desired.Power == PowerOff {
		return nil
	}

	if shouldAbort() {
		return nil
	}
	if err := d.SetMode(desired.Mode); err != nil {
		return err
	}

	if desired.Mode == ModePip {
		if shouldAbort() {
			return nil
		}
		if err := d.SetPip(desired.PipLocation); err != nil {
			return err
		}
	}

	if desired.Mode.HasSubmode() {
		if shouldAbort() {
			return nil
		}
		if err := d.SetSubmode(desired.Submode); err != nil {
			return err
		}
	}

	for _, w := range desired.Mode.Windows() {
		if shouldAbort() {
			return nil
		}
		if err := d.SetWindowInput(desired.Mode, w, desired.WindowInput[w.ToInt()]); err != nil {
			return err
		}

		if shouldAbort() {
			return nil
		}
		want := desired.Mode.WindowHasBorder(w)
		if err := d.SetBorder(w, borderFromBool(want)); err != nil {
			return err
		}
		if want {
			if shouldAbort() {
				return nil
			}
			if err := d.SetBorderColor(w, desired.BorderColor[w.ToInt()]); err != nil {
				return err
			}
		}
	}

	if shouldAbort() {
		return nil
	}
	if err := d.SetAudioFrom(desired.AudioFrom); err != nil {
		return err
	}

	if shouldAbort() {
		return nil
	}
	if err := d.SetAudioMute(desired.AudioMute); err != nil {
		return err
	}

	return nil
}

func borderFromBool(on bool) Border {
	if on {
		return BorderOn
	}
	return BorderOff
}
