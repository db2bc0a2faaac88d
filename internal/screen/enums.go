// Package screen implements MvScreen, the remote-control finite state
// machine (C9 in the component design): the compositor's virtual state,
// the button transition table, double-tap semantics, the validator, and
// the BFS enumeration of its reachable state space.
package screen

import "fmt"

// Arrow is one of the four directional buttons, routed differently
// depending on the current layout.
type Arrow int

const (
	ArrowN Arrow = iota + 1
	ArrowE
	ArrowW
	ArrowS
)

func (a Arrow) String() string {
	switch a {
	case ArrowN:
		return "N"
	case ArrowE:
		return "E"
	case ArrowW:
		return "W"
	case ArrowS:
		return "S"
	default:
		return fmt.Sprintf("Arrow(%d)", int(a))
	}
}

// LayoutMode is whether the compositor currently shows every active window
// side by side (Multiview) or one window full-screen, possibly with a
// picture-in-picture inset (Fullscreen).
type LayoutMode int

const (
	Multiview LayoutMode = iota + 1
	Fullscreen
)

func (m LayoutMode) String() string {
	if m == Fullscreen {
		return "FULLSCREEN"
	}
	return "MULTIVIEW"
}

// FullscreenMode distinguishes plain fullscreen from fullscreen-with-PIP,
// meaningful only when LayoutMode == Fullscreen.
type FullscreenMode int

const (
	FullscreenFull FullscreenMode = iota + 1
	FullscreenPip
)

func (m FullscreenMode) String() string {
	if m == FullscreenPip {
		return "PIP"
	}
	return "FULL"
}

// RemoteMode is which device the remote's buttons currently target: the
// selected TV's set-top box, or this compositor's own multiview controls.
type RemoteMode int

const (
	AppleTV RemoteMode = iota + 1
	Multiviewer
)

// Flip toggles between the two remote modes.
func (m RemoteMode) Flip() RemoteMode {
	if m == AppleTV {
		return Multiviewer
	}
	return AppleTV
}

func (m RemoteMode) String() string {
	if m == AppleTV {
		return "APPLE_TV"
	}
	return "MULTIVIEWER"
}

// Button is every remote-control input the FSM or orchestrator can act on.
// Order matters: it fixes both the bit-packed "last button" code (§6.6)
// and the BFS enumeration order, so it must never be reordered once an FSM
// artifact has been generated against it.
type Button int

const (
	ButtonRemote Button = iota + 1
	ButtonSelect
	ButtonBack
	ButtonPlayPause
	ButtonActivateTV
	ButtonDeactivateTVFirst
	ButtonDeactivateTVLast
	ButtonToggleSubmode
	ButtonArrowN
	ButtonArrowE
	ButtonArrowW
	ButtonArrowS
)

// AllButtons lists every button in canonical (bit-packing/BFS) order.
var AllButtons = []Button{
	ButtonRemote,
	ButtonSelect,
	ButtonBack,
	ButtonPlayPause,
	ButtonActivateTV,
	ButtonDeactivateTVFirst,
	ButtonDeactivateTVLast,
	ButtonToggleSubmode,
	ButtonArrowN,
	ButtonArrowE,
	ButtonArrowW,
	ButtonArrowS,
}

func (b Button) String() string {
	switch b {
	case ButtonRemote:
		return "REMOTE"
	case ButtonSelect:
		return "SELECT"
	case ButtonBack:
		return "BACK"
	case ButtonPlayPause:
		return "PLAY_PAUSE"
	case ButtonActivateTV:
		return "ACTIVATE_TV"
	case ButtonDeactivateTVFirst:
		return "DEACTIVATE_TV_FIRST"
	case ButtonDeactivateTVLast:
		return "DEACTIVATE_TV_LAST"
	case ButtonToggleSubmode:
		return "TOGGLE_SUBMODE"
	case ButtonArrowN:
		return "ARROW_N"
	case ButtonArrowE:
		return "ARROW_E"
	case ButtonArrowW:
		return "ARROW_W"
	case ButtonArrowS:
		return "ARROW_S"
	default:
		return fmt.Sprintf("Button(%d)", int(b))
	}
}

// arrowOf maps the four arrow buttons to their Arrow value; other buttons
// have no arrow.
func arrowOf(b Button) (Arrow, bool) {
	switch b {
	case ButtonArrowN:
		return ArrowN, true
	case ButtonArrowE:
		return ArrowE, true
	case ButtonArrowW:
		return ArrowW, true
	case ButtonArrowS:
		return ArrowS, true
	default:
		return 0, false
	}
}

// buttonOfArrow is the inverse of arrowOf, used to stamp LastButton after a
// single-tap arrow press.
func buttonOfArrow(a Arrow) Button {
	switch a {
	case ArrowN:
		return ButtonArrowN
	case ArrowE:
		return ButtonArrowE
	case ArrowW:
		return ButtonArrowW
	default:
		return ButtonArrowS
	}
}
