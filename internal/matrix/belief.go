package matrix

import "sync"

// belief is the driver's cache of the switch's last-known state. Every
// setter nils its field before writing (an in-flight marker so a reader
// racing the write never returns a stale value) and fills it back in only
// after the switch confirms the new value; every reader does the same via
// a fresh query.
//
// windowInput is tracked independently per (mode, window): PIP's W2 input
// and PBP's W2 input are different beliefs, because the switch itself
// tracks them that way. windowBorder and windowBorderColor, by contrast,
// are tracked per window only — the same border belief is shared across
// every mode the window appears in.
type belief struct {
	mu sync.Mutex

	power *Power

	windowInput [6][5]*Hdmi // [mode.ToInt()][window.ToInt()]

	windowBorder      [5]*Border // [window.ToInt()]
	windowBorderColor [5]*Color  // [window.ToInt()]

	audioFrom *Hdmi
	audioMute *Mute

	mode        *Mode
	submode     *Submode
	pipLocation *PipLocation
}

func newBelief() *belief {
	return &belief{}
}

func (b *belief) reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	*b = belief{}
}

func (b *belief) getPower() (Power, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.power == nil {
		return 0, false
	}
	return *b.power, true
}

func (b *belief) clearPower() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.power = nil
}

func (b *belief) setPower(p Power) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.power = &p
}

func (b *belief) getWindowInput(m Mode, w Window) (Hdmi, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.windowInput[m.ToInt()][w.ToInt()]
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (b *belief) clearWindowInput(m Mode, w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowInput[m.ToInt()][w.ToInt()] = nil
}

func (b *belief) setWindowInput(m Mode, w Window, h Hdmi) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowInput[m.ToInt()][w.ToInt()] = &h
}

func (b *belief) getWindowBorder(w Window) (Border, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.windowBorder[w.ToInt()]
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (b *belief) clearWindowBorder(w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowBorder[w.ToInt()] = nil
}

func (b *belief) setWindowBorder(w Window, v Border) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowBorder[w.ToInt()] = &v
}

func (b *belief) getWindowBorderColor(w Window) (Color, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	v := b.windowBorderColor[w.ToInt()]
	if v == nil {
		return 0, false
	}
	return *v, true
}

func (b *belief) clearWindowBorderColor(w Window) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowBorderColor[w.ToInt()] = nil
}

func (b *belief) setWindowBorderColor(w Window, v Color) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.windowBorderColor[w.ToInt()] = &v
}

func (b *belief) getAudioFrom() (Hdmi, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.audioFrom == nil {
		return 0, false
	}
	return *b.audioFrom, true
}

func (b *belief) clearAudioFrom() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioFrom = nil
}

func (b *belief) setAudioFrom(h Hdmi) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioFrom = &h
}

func (b *belief) getAudioMute() (Mute, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.audioMute == nil {
		return 0, false
	}
	return *b.audioMute, true
}

func (b *belief) clearAudioMute() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioMute = nil
}

func (b *belief) setAudioMute(m Mute) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.audioMute = &m
}

func (b *belief) getMode() (Mode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.mode == nil {
		return 0, false
	}
	return *b.mode, true
}

func (b *belief) clearMode() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = nil
}

func (b *belief) setMode(m Mode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.mode = &m
}

func (b *belief) getSubmode() (Submode, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.submode == nil {
		return 0, false
	}
	return *b.submode, true
}

func (b *belief) clearSubmode() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submode = nil
}

func (b *belief) setSubmode(s Submode) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.submode = &s
}

func (b *belief) getPipLocation() (PipLocation, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.pipLocation == nil {
		return 0, false
	}
	return *b.pipLocation, true
}

func (b *belief) clearPipLocation() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipLocation = nil
}

func (b *belief) setPipLocation(p PipLocation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pipLocation = &p
}
