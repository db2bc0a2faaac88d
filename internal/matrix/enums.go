// Package matrix drives the JTech-style HDMI matrix switch: the int-backed
// enums, belief-state cache, and the line-protocol commands that keep the
// cache honest (C5 in the component design).
package matrix

import "fmt"

// Power is the matrix's overall power state.
type Power int

const (
	PowerOff Power = 0
	PowerOn  Power = 1
)

func (p Power) ToInt() int { return int(p) }

func PowerFromInt(n int) (Power, error) {
	switch Power(n) {
	case PowerOff, PowerOn:
		return Power(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid power code %d", n)
	}
}

func (p Power) String() string {
	if p == PowerOn {
		return "on"
	}
	return "off"
}

// Hdmi is an input or output HDMI port, numbered as the switch numbers them.
type Hdmi int

const (
	H1 Hdmi = 1
	H2 Hdmi = 2
	H3 Hdmi = 3
	H4 Hdmi = 4
)

func (h Hdmi) ToInt() int { return int(h) }

func HdmiFromInt(n int) (Hdmi, error) {
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("matrix: invalid hdmi code %d", n)
	}
	return Hdmi(n), nil
}

func (h Hdmi) String() string { return fmt.Sprintf("H%d", int(h)) }

// Window is a multiview output window, numbered W1 (top layer) through W4.
type Window int

const (
	W1 Window = 1
	W2 Window = 2
	W3 Window = 3
	W4 Window = 4
)

func (w Window) ToInt() int { return int(w) }

func WindowFromInt(n int) (Window, error) {
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("matrix: invalid window code %d", n)
	}
	return Window(n), nil
}

func (w Window) String() string { return fmt.Sprintf("W%d", int(w)) }

// Mode is the multiview layout mode.
type Mode int

const (
	ModeFull   Mode = 1
	ModePip    Mode = 2
	ModePbp    Mode = 3
	ModeTriple Mode = 4
	ModeQuad   Mode = 5
)

func (m Mode) ToInt() int { return int(m) }

func ModeFromInt(n int) (Mode, error) {
	switch Mode(n) {
	case ModeFull, ModePip, ModePbp, ModeTriple, ModeQuad:
		return Mode(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid mode code %d", n)
	}
}

func (m Mode) String() string {
	switch m {
	case ModeFull:
		return "single screen"
	case ModePip:
		return "PIP"
	case ModePbp:
		return "PBP"
	case ModeTriple:
		return "triple screen"
	case ModeQuad:
		return "quad screen"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// HasSubmode reports whether this mode supports the submode command
// (window-arrangement variants). FULL and PIP have a fixed arrangement.
func (m Mode) HasSubmode() bool {
	switch m {
	case ModePbp, ModeTriple, ModeQuad:
		return true
	default:
		return false
	}
}

// NumWindows is the number of active windows in this mode.
func (m Mode) NumWindows() int {
	switch m {
	case ModeFull:
		return 1
	case ModePip:
		return 2
	case ModePbp:
		return 2
	case ModeTriple:
		return 3
	case ModeQuad:
		return 4
	default:
		return 0
	}
}

// Windows returns W1..W{NumWindows} for this mode.
func (m Mode) Windows() []Window {
	n := m.NumWindows()
	ws := make([]Window, 0, n)
	for i := 1; i <= n; i++ {
		ws = append(ws, Window(i))
	}
	return ws
}

// NameForSubmodeCommand is the token the switch expects after "submode" for
// modes that take one.
func (m Mode) NameForSubmodeCommand() string {
	switch m {
	case ModePbp:
		return "PBP"
	case ModeTriple:
		return "triple"
	case ModeQuad:
		return "quad"
	default:
		return ""
	}
}

// WindowHasBorder reports whether w draws a border frame in mode m. FULL
// never borders its single window; PIP only borders the inset W2; PBP,
// triple, and quad border every active window.
func (m Mode) WindowHasBorder(w Window) bool {
	switch m {
	case ModeFull:
		return false
	case ModePip:
		return w == W2
	case ModePbp, ModeTriple, ModeQuad:
		return true
	default:
		return false
	}
}

// Submode selects how same-mode windows are arranged relative to each
// other, when Mode.HasSubmode is true.
type Submode int

const (
	SubmodeWindowsSame Submode = 1
	SubmodeW1Prominent Submode = 2
)

func (s Submode) ToInt() int { return int(s) }

func SubmodeFromInt(n int) (Submode, error) {
	switch Submode(n) {
	case SubmodeWindowsSame, SubmodeW1Prominent:
		return Submode(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid submode code %d", n)
	}
}

func (s Submode) String() string {
	if s == SubmodeW1Prominent {
		return "w1 prominent"
	}
	return "windows same"
}

// Color is a border or background color the switch can render.
type Color int

const (
	ColorBlack   Color = 1
	ColorRed     Color = 2
	ColorGreen   Color = 3
	ColorBlue    Color = 4
	ColorYellow  Color = 5
	ColorMagenta Color = 6
	ColorCyan    Color = 7
	ColorWhite   Color = 8
	ColorGray    Color = 9
)

func (c Color) ToInt() int { return int(c) }

func ColorFromInt(n int) (Color, error) {
	if n < 1 || n > 9 {
		return 0, fmt.Errorf("matrix: invalid color code %d", n)
	}
	return Color(n), nil
}

var colorNames = [...]string{"", "black", "red", "green", "blue", "yellow", "magenta", "cyan", "white", "gray"}

func (c Color) String() string {
	if int(c) >= 1 && int(c) < len(colorNames) {
		return colorNames[c]
	}
	return fmt.Sprintf("Color(%d)", int(c))
}

// PipLocation is the screen corner the PIP inset window occupies.
type PipLocation int

const (
	PipNW PipLocation = iota + 1
	PipNE
	PipSW
	PipSE
)

func (p PipLocation) ToInt() int { return int(p) }

func PipLocationFromInt(n int) (PipLocation, error) {
	switch PipLocation(n) {
	case PipNW, PipNE, PipSW, PipSE:
		return PipLocation(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid pip location code %d", n)
	}
}

func (p PipLocation) String() string {
	switch p {
	case PipNW:
		return "NW"
	case PipNE:
		return "NE"
	case PipSW:
		return "SW"
	case PipSE:
		return "SE"
	default:
		return fmt.Sprintf("PipLocation(%d)", int(p))
	}
}

// Mute is the audio mute state.
type Mute int

const (
	Unmuted Mute = 0
	Muted   Mute = 1
)

func (m Mute) ToInt() int { return int(m) }

func MuteFromInt(n int) (Mute, error) {
	switch Mute(n) {
	case Unmuted, Muted:
		return Mute(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid mute code %d", n)
	}
}

func (m Mute) String() string {
	if m == Muted {
		return "muted"
	}
	return "unmuted"
}

// Border is whether a window's frame is drawn at all, independent of its
// color.
type Border int

const (
	BorderOff Border = 0
	BorderOn  Border = 1
)

func (b Border) ToInt() int { return int(b) }

func BorderFromInt(n int) (Border, error) {
	switch Border(n) {
	case BorderOff, BorderOn:
		return Border(n), nil
	default:
		return 0, fmt.Errorf("matrix: invalid border code %d", n)
	}
}

func (b Border) String() string {
	if b == BorderOn {
		return "on"
	}
	return "off"
}

// multiviewModeByName is the inverse of Mode.String, used to parse the
// switch's own "r multiview!" response.
var multiviewModeByName = map[string]Mode{
	"single screen": ModeFull,
	"PIP":           ModePip,
	"PBP":           ModePbp,
	"triple screen": ModeTriple,
	"quad screen":   ModeQuad,
}

// ModeFromMultiviewName parses the switch's own textual mode name.
func ModeFromMultiviewName(name string) (Mode, error) {
	m, ok := multiviewModeByName[name]
	if !ok {
		return 0, fmt.Errorf("matrix: unknown multiview mode name %q", name)
	}
	return m, nil
}
