// Package compositor models a single rendered matrix frame — the
// window-to-HDMI-input map plus border/audio state produced by the screen
// FSM and consumed by the matrix manager (C8 in the component design).
// Renamed from the device-specific "JtechOutput" since this package has no
// dependency on any one vendor's switch.
package compositor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sweeks/multiviewer/internal/matrix"
)

// WindowContents is the HDMI input routed to one window, plus its border
// color (nil when the window draws no border at all).
type WindowContents struct {
	Hdmi   matrix.Hdmi
	Border *matrix.Color
}

// OneLineDescription renders "H<n>" or "[H<n>]<letter>", matching the
// original jtech_output.WindowContents.__repr__ exactly.
func (w WindowContents) OneLineDescription() string {
	s := w.Hdmi.String()
	if w.Border != nil {
		s = fmt.Sprintf("[%s]%s", s, borderLetter(*w.Border))
	}
	return s
}

func (w WindowContents) Equal(o WindowContents) bool {
	if w.Hdmi != o.Hdmi {
		return false
	}
	if (w.Border == nil) != (o.Border == nil) {
		return false
	}
	return w.Border == nil || *w.Border == *o.Border
}

// borderLetter is the single-letter rendering for a border color, matching
// Color.letter() in the original: K,R,G,B,Y,M,C,W,A.
func borderLetter(c matrix.Color) string {
	switch c {
	case matrix.ColorBlack:
		return "K"
	case matrix.ColorRed:
		return "R"
	case matrix.ColorGreen:
		return "G"
	case matrix.ColorBlue:
		return "B"
	case matrix.ColorYellow:
		return "Y"
	case matrix.ColorMagenta:
		return "M"
	case matrix.ColorCyan:
		return "C"
	case matrix.ColorWhite:
		return "W"
	case matrix.ColorGray:
		return "A"
	default:
		return "?"
	}
}

// Kind discriminates the Layout tagged union. Exhaustive switch on Kind,
// never a base-class method table (spec.md §9's design note).
type Kind int

const (
	KindFull Kind = iota + 1
	KindPip
	KindPbp
	KindTriple
	KindQuad
)

// Layout is a tagged union over the matrix's five multiview arrangements.
// Only the fields relevant to Kind are populated; Windows only reads the
// ones that are.
type Layout struct {
	Kind        Kind
	PipLocation matrix.PipLocation // valid iff Kind == KindPip
	Submode     matrix.Submode     // valid iff Kind is Pbp/Triple/Quad
	W1, W2, W3, W4 WindowContents
}

// NewFull builds a one-window fullscreen layout.
func NewFull(w1 WindowContents) Layout {
	return Layout{Kind: KindFull, W1: w1}
}

// NewPip builds a fullscreen-with-picture-in-picture layout.
func NewPip(loc matrix.PipLocation, w1, w2 WindowContents) Layout {
	return Layout{Kind: KindPip, PipLocation: loc, W1: w1, W2: w2}
}

// NewPbp builds a two-window picture-by-picture layout.
func NewPbp(sub matrix.Submode, w1, w2 WindowContents) Layout {
	return Layout{Kind: KindPbp, Submode: sub, W1: w1, W2: w2}
}

// NewTriple builds a three-window layout.
func NewTriple(sub matrix.Submode, w1, w2, w3 WindowContents) Layout {
	return Layout{Kind: KindTriple, Submode: sub, W1: w1, W2: w2, W3: w3}
}

// NewQuad builds a four-window layout.
func NewQuad(sub matrix.Submode, w1, w2, w3, w4 WindowContents) Layout {
	return Layout{Kind: KindQuad, Submode: sub, W1: w1, W2: w2, W3: w3, W4: w4}
}

// Mode returns the matrix mode this layout's kind corresponds to.
func (l Layout) Mode() matrix.Mode {
	switch l.Kind {
	case KindFull:
		return matrix.ModeFull
	case KindPip:
		return matrix.ModePip
	case KindPbp:
		return matrix.ModePbp
	case KindTriple:
		return matrix.ModeTriple
	case KindQuad:
		return matrix.ModeQuad
	default:
		return 0
	}
}

// HasSubmode reports whether this kind carries a meaningful Submode value.
func (l Layout) HasSubmode() bool {
	switch l.Kind {
	case KindPbp, KindTriple, KindQuad:
		return true
	default:
		return false
	}
}

// HasPipLocation reports whether this kind carries a meaningful PipLocation.
func (l Layout) HasPipLocation() bool { return l.Kind == KindPip }

// Windows returns every window this layout populates, keyed by window.
func (l Layout) Windows() map[matrix.Window]WindowContents {
	switch l.Kind {
	case KindFull:
		return map[matrix.Window]WindowContents{matrix.W1: l.W1}
	case KindPip:
		return map[matrix.Window]WindowContents{matrix.W1: l.W1, matrix.W2: l.W2}
	case KindPbp:
		return map[matrix.Window]WindowContents{matrix.W1: l.W1, matrix.W2: l.W2}
	case KindTriple:
		return map[matrix.Window]WindowContents{matrix.W1: l.W1, matrix.W2: l.W2, matrix.W3: l.W3}
	case KindQuad:
		return map[matrix.Window]WindowContents{
			matrix.W1: l.W1, matrix.W2: l.W2, matrix.W3: l.W3, matrix.W4: l.W4,
		}
	default:
		return nil
	}
}

// Equal compares two layouts structurally, including every populated
// window's contents.
func (l Layout) Equal(o Layout) bool {
	if l.Kind != o.Kind {
		return false
	}
	if l.HasSubmode() && l.Submode != o.Submode {
		return false
	}
	if l.HasPipLocation() && l.PipLocation != o.PipLocation {
		return false
	}
	lw, ow := l.Windows(), o.Windows()
	if len(lw) != len(ow) {
		return false
	}
	for w, c := range lw {
		oc, ok := ow[w]
		if !ok || !c.Equal(oc) {
			return false
		}
	}
	return true
}

// Output is the immutable value a screen FSM renders and the matrix manager
// converges the device toward: a full layout plus the HDMI source feeding
// the shared audio output.
type Output struct {
	Layout    Layout
	AudioFrom matrix.Hdmi
}

// Equal compares two Outputs structurally.
func (o Output) Equal(other Output) bool {
	return o.AudioFrom == other.AudioFrom && o.Layout.Equal(other.Layout)
}

// ScreenState translates this Output into the device-facing snapshot the
// matrix manager (C6) converges the switch toward, stamping it with the
// given power target. When power is Off every other field is left at its
// zero value: SetScreen returns immediately after driving power off
// without touching mode/window/audio state.
func (o Output) ScreenState(power matrix.Power) matrix.ScreenState {
	var s matrix.ScreenState
	s.Power = power
	if power == matrix.PowerOff {
		return s
	}

	s.Mode = o.Layout.Mode()
	if o.Layout.HasSubmode() {
		s.Submode = o.Layout.Submode
	}
	if o.Layout.HasPipLocation() {
		s.PipLocation = o.Layout.PipLocation
	}

	for w, wc := range o.Layout.Windows() {
		s.WindowInput[w.ToInt()] = wc.Hdmi
		if wc.Border != nil {
			s.Border[w.ToInt()] = matrix.BorderOn
			s.BorderColor[w.ToInt()] = *wc.Border
		} else {
			s.Border[w.ToInt()] = matrix.BorderOff
		}
	}

	s.AudioFrom = o.AudioFrom
	s.AudioMute = matrix.Unmuted
	return s
}

// OneLineDescription renders the canonical one-line form:
// "<MODE>[<submode>|<piploc>] A<n> <w1> <w2>…", matching
// JtechOutput.one_line_description() exactly, including window ordering.
func (o Output) OneLineDescription() string {
	mode := o.Layout.Mode()
	var sub string
	switch {
	case o.Layout.HasSubmode():
		sub = fmt.Sprintf("(%d)", o.Layout.Submode.ToInt())
	case o.Layout.HasPipLocation():
		sub = fmt.Sprintf("(%s)", o.Layout.PipLocation)
	}

	windows := o.Layout.Windows()
	ws := make([]matrix.Window, 0, len(windows))
	for w := range windows {
		ws = append(ws, w)
	}
	sort.Slice(ws, func(i, j int) bool { return ws[i] < ws[j] })

	parts := make([]string, 0, len(ws))
	for _, w := range ws {
		parts = append(parts, windows[w].OneLineDescription())
	}

	return fmt.Sprintf("%s%s A%d %s", modeLabel(mode), sub, o.AudioFrom.ToInt(), strings.Join(parts, " "))
}

// modeLabel renders the mode's enum name (FULL, PIP, PBP, TRIPLE, QUAD) for
// the canonical one-line form — distinct from Mode.String(), which renders
// the switch's own wire-protocol name ("single screen", "PIP", ...).
func modeLabel(m matrix.Mode) string {
	switch m {
	case matrix.ModeFull:
		return "FULL"
	case matrix.ModePip:
		return "PIP"
	case matrix.ModePbp:
		return "PBP"
	case matrix.ModeTriple:
		return "TRIPLE"
	case matrix.ModeQuad:
		return "QUAD"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}
