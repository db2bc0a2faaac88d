package screen

import (
	"github.com/sweeks/multiviewer/internal/compositor"
	"github.com/sweeks/multiviewer/internal/matrix"
	"github.com/sweeks/multiviewer/internal/mverr"
	"github.com/sweeks/multiviewer/internal/tv"
)

const (
	maxNumWindows = 4
	minNumWindows = 1
)

// MvScreen is the compositor's virtual state: which TV backs each window,
// the current layout, the selected window, and enough ephemeral
// double-tap-detection state to interpret the next button press. It is
// owned exclusively by the orchestrator and mutated only through the
// methods below.
type MvScreen struct {
	windowTV [maxNumWindows]tv.TV // indexed by window.ToInt()-1

	LayoutMode                      LayoutMode
	NumActiveWindows                int
	MultiviewSubmode                matrix.Submode
	FullscreenMode                  FullscreenMode
	FullWindow                      matrix.Window
	PipWindow                       matrix.Window
	pipLocationByTV                 [maxNumWindows]matrix.PipLocation // indexed by tv.ToInt()-1
	SelectedWindow                  matrix.Window
	SelectedWindowHasDistinctBorder bool
	RemoteMode                      RemoteMode

	// Ephemeral: not persisted, used only to detect a double tap of the
	// same button within the orchestrator's timing window.
	LastButton         *Button
	LastSelectedWindow matrix.Window
}

// New returns the default power-on screen state: quad multiview, every
// window mapped to its like-numbered TV, W1 prominent.
func New() *MvScreen {
	s := &MvScreen{
		LayoutMode:                      Multiview,
		NumActiveWindows:                maxNumWindows,
		MultiviewSubmode:                matrix.SubmodeW1Prominent,
		FullscreenMode:                  FullscreenFull,
		FullWindow:                      matrix.W1,
		PipWindow:                       matrix.W2,
		SelectedWindow:                  matrix.W1,
		SelectedWindowHasDistinctBorder: true,
		RemoteMode:                      Multiviewer,
		LastSelectedWindow:              matrix.W1,
	}
	for _, w := range matrix.ModeQuad.Windows() {
		s.windowTV[windowIdx(w)] = tv.TV(w.ToInt())
	}
	for _, t := range tv.All() {
		s.pipLocationByTV[tvIdx(t)] = matrix.PipNE
	}
	return s
}

func windowIdx(w matrix.Window) int { return w.ToInt() - 1 }
func tvIdx(t tv.TV) int             { return t.ToInt() - 1 }

// WindowTV reports which TV window w is currently mapped to.
func (s *MvScreen) WindowTV(w matrix.Window) tv.TV { return s.windowTV[windowIdx(w)] }

func (s *MvScreen) setWindowTV(w matrix.Window, t tv.TV) { s.windowTV[windowIdx(w)] = t }

// SetWindowTV overrides which TV window w maps to, bypassing the normal
// transition methods. Exists only for internal/statestore to reconstruct a
// screen from a persisted snapshot; ordinary transitions never call it.
func (s *MvScreen) SetWindowTV(w matrix.Window, t tv.TV) { s.setWindowTV(w, t) }

// TvWindow is the reverse lookup of WindowTV.
func (s *MvScreen) TvWindow(t tv.TV) matrix.Window {
	for _, w := range matrix.ModeQuad.Windows() {
		if s.WindowTV(w) == t {
			return w
		}
	}
	panic("screen: tv not found in window_tv map")
}

// PipLocationForTV returns the PIP corner remembered for t's last stay in
// the full slot.
func (s *MvScreen) PipLocationForTV(t tv.TV) matrix.PipLocation {
	return s.pipLocationByTV[tvIdx(t)]
}

func (s *MvScreen) setPipLocationForTV(t tv.TV, loc matrix.PipLocation) {
	s.pipLocationByTV[tvIdx(t)] = loc
}

// SetPipLocationForTV overrides t's remembered PIP corner. Exists only for
// internal/statestore to reconstruct a screen from a persisted snapshot.
func (s *MvScreen) SetPipLocationForTV(t tv.TV, loc matrix.PipLocation) {
	s.setPipLocationForTV(t, loc)
}

// PowerOn resets remote mode and border emphasis the way a fresh power-on
// cycle does, without touching window/TV assignments.
func (s *MvScreen) PowerOn() {
	s.RemoteMode = Multiviewer
	s.SelectedWindowHasDistinctBorder = true
}

// ActivateTV grows the active window count by one, up to the maximum.
func (s *MvScreen) ActivateTV() {
	if s.NumActiveWindows < maxNumWindows {
		s.NumActiveWindows++
	}
}

func (s *MvScreen) lastActiveWindow() matrix.Window {
	return matrix.Window(s.NumActiveWindows)
}

// ActiveWindows returns W1..W{NumActiveWindows}.
func (s *MvScreen) ActiveWindows() []matrix.Window {
	ws := make([]matrix.Window, s.NumActiveWindows)
	for i := 0; i < s.NumActiveWindows; i++ {
		ws[i] = matrix.Window(i + 1)
	}
	return ws
}

// NextActiveWindow steps forward cyclically over the active windows.
func (s *MvScreen) NextActiveWindow(w matrix.Window) matrix.Window {
	return matrix.Window(w.ToInt()%s.NumActiveWindows + 1)
}

// PrevActiveWindow steps backward cyclically over the active windows.
func (s *MvScreen) PrevActiveWindow(w matrix.Window) matrix.Window {
	n := s.NumActiveWindows
	return matrix.Window(1 + (w.ToInt()+n-2)%n)
}

func (s *MvScreen) setPipWindow() {
	s.PipWindow = s.NextActiveWindow(s.FullWindow)
}

func (s *MvScreen) enterFullscreen() {
	s.LayoutMode = Fullscreen
	s.FullWindow = s.SelectedWindow
	if s.FullscreenMode == FullscreenPip {
		s.setPipWindow()
	}
}

func (s *MvScreen) swapFullAndPipWindows() {
	s.FullWindow, s.PipWindow = s.PipWindow, s.FullWindow
	s.SelectedWindow = s.FullWindow
}

// SwapWindowTvs exchanges the TVs mapped to two windows.
func (s *MvScreen) SwapWindowTvs(w1, w2 matrix.Window) {
	t1, t2 := s.WindowTV(w1), s.WindowTV(w2)
	s.setWindowTV(w1, t2)
	s.setWindowTV(w2, t1)
}

// WindowIsProminent reports whether w currently receives the larger share
// of the screen: W1 is prominent under Fullscreen (there's only one
// window) or under the W1_PROMINENT multiview submode.
func (s *MvScreen) WindowIsProminent(w matrix.Window) bool {
	if w != matrix.W1 {
		return false
	}
	switch s.LayoutMode {
	case Fullscreen:
		return true
	case Multiview:
		return s.MultiviewSubmode == matrix.SubmodeW1Prominent
	default:
		return false
	}
}

// DeactivateTV removes the currently-selected window's TV from the active
// set. placeFirstInInactive controls where the deactivated TV lands in the
// now-inactive tail: immediately after the new active range (true, the
// DEACTIVATE_TV_FIRST button) or at the very last slot (false, _LAST).
func (s *MvScreen) DeactivateTV(placeFirstInInactive bool) {
	if s.NumActiveWindows == 1 {
		return
	}
	windows := matrix.ModeQuad.Windows()
	selectedTV := s.WindowTV(s.SelectedWindow)
	fullTV := s.WindowTV(s.FullWindow)
	pipTV := s.WindowTV(s.PipWindow)
	fullIsSelected := fullTV == selectedTV

	var insertAt int
	if placeFirstInInactive {
		insertAt = s.NumActiveWindows - 1
	} else {
		insertAt = len(windows) - 1
	}

	i := int(s.SelectedWindow.ToInt() - 1)
	for i < insertAt {
		s.setWindowTV(windows[i], s.WindowTV(windows[i+1]))
		i++
	}
	s.setWindowTV(windows[insertAt], selectedTV)

	s.NumActiveWindows--
	s.SelectedWindowHasDistinctBorder = true
	if s.SelectedWindow.ToInt() > s.NumActiveWindows {
		s.SelectedWindow = matrix.Window(s.NumActiveWindows)
	}
	if s.NumActiveWindows == 1 {
		s.LayoutMode = Fullscreen
		s.FullscreenMode = FullscreenFull
	}
	if s.LayoutMode == Fullscreen {
		switch s.FullscreenMode {
		case FullscreenFull:
			s.FullWindow = s.SelectedWindow
		case FullscreenPip:
			if fullIsSelected {
				s.PipWindow = s.TvWindow(pipTV)
				s.FullWindow = s.NextActiveWindow(s.PipWindow)
				s.SelectedWindow = s.FullWindow
			} else {
				s.FullWindow = s.TvWindow(fullTV)
				s.PipWindow = s.NextActiveWindow(s.FullWindow)
				s.SelectedWindow = s.PipWindow
			}
		}
	}
}

func (s *MvScreen) enteredW1Prominent() {
	if s.MultiviewSubmode == matrix.SubmodeW1Prominent && s.SelectedWindow != matrix.W1 {
		s.SwapWindowTvs(matrix.W1, s.SelectedWindow)
		s.SelectedWindow = matrix.W1
	}
}

// ToggleSubmode flips the multiview arrangement submode, or in fullscreen
// toggles FULL<->PIP (when there's more than one active window to inset).
func (s *MvScreen) ToggleSubmode() {
	switch s.LayoutMode {
	case Multiview:
		s.MultiviewSubmode = flipSubmode(s.MultiviewSubmode)
		s.enteredW1Prominent()
	case Fullscreen:
		if s.NumActiveWindows >= 2 {
			switch s.FullscreenMode {
			case FullscreenFull:
				s.FullscreenMode = FullscreenPip
				s.setPipWindow()
			case FullscreenPip:
				s.FullscreenMode = FullscreenFull
				s.SelectedWindow = s.FullWindow
			}
		}
	}
}

func flipSubmode(m matrix.Submode) matrix.Submode {
	if m == matrix.SubmodeW1Prominent {
		return matrix.SubmodeWindowsSame
	}
	return matrix.SubmodeW1Prominent
}

// PressedBack leaves fullscreen for multiview, re-activating a window
// first if only one was active (there's nothing else to show side by
// side).
func (s *MvScreen) PressedBack() {
	if s.LayoutMode == Fullscreen {
		if s.NumActiveWindows == 1 {
			s.ActivateTV()
		}
		s.LayoutMode = Multiview
		s.enteredW1Prominent()
	}
}

// PressedPlayPause toggles whether the selected window draws a distinct
// (green) border versus blending in with the rest (gray).
func (s *MvScreen) PressedPlayPause() {
	s.SelectedWindowHasDistinctBorder = !s.SelectedWindowHasDistinctBorder
}

func (s *MvScreen) toggleRemoteMode() {
	s.RemoteMode = s.RemoteMode.Flip()
}

// PressedSelect enters fullscreen from multiview, or swaps PIP<->full
// when already fullscreen-with-PIP. A no-op in plain fullscreen.
func (s *MvScreen) PressedSelect() {
	switch s.LayoutMode {
	case Multiview:
		s.enterFullscreen()
	case Fullscreen:
		if s.FullscreenMode == FullscreenPip {
			s.swapFullAndPipWindows()
		}
	}
}

// WindowInput is the HDMI input feeding window w, derived from the TV it's
// currently mapped to (TVn always feeds Hn).
func (s *MvScreen) WindowInput(w matrix.Window) matrix.Hdmi {
	return matrix.Hdmi(s.WindowTV(w).ToInt())
}

// PipLocation is the screen corner of the PIP inset, which follows the TV
// currently occupying the full slot rather than the window index.
func (s *MvScreen) PipLocation() matrix.PipLocation {
	return s.PipLocationForTV(s.WindowTV(s.FullWindow))
}

// SelectedTV is the TV backing the currently-selected window.
func (s *MvScreen) SelectedTV() tv.TV {
	return s.WindowTV(s.SelectedWindow)
}

// Remote handles the REMOTE button: single tap flips RemoteMode and
// remembers the press for double-tap detection; double tap flips it back
// (canceling the first flip) and returns the selected TV's integer code,
// which the caller surfaces so the UI can launch that TV's Remote app.
func (s *MvScreen) Remote(doubleTap bool) (result *int) {
	if doubleTap {
		s.LastButton = nil
		s.toggleRemoteMode()
		n := s.SelectedTV().ToInt()
		return &n
	}
	b := ButtonRemote
	s.LastButton = &b
	s.LastSelectedWindow = s.SelectedWindow
	s.toggleRemoteMode()
	return nil
}

// Validate enforces every invariant in spec.md §3 after a transition,
// returning a *mverr.InvariantViolation on the first one that fails.
func (s *MvScreen) Validate() error {
	seen := map[tv.TV]bool{}
	for _, w := range matrix.ModeQuad.Windows() {
		t := s.WindowTV(w)
		if seen[t] {
			return &mverr.InvariantViolation{Rule: "window_tv values must be a bijection onto TV1..TV4"}
		}
		seen[t] = true
	}
	if len(seen) != maxNumWindows {
		return &mverr.InvariantViolation{Rule: "window_tv must map every window W1..W4"}
	}
	if s.NumActiveWindows < minNumWindows || s.NumActiveWindows > maxNumWindows {
		return &mverr.InvariantViolation{Rule: "1 <= num_active_windows <= 4"}
	}
	if s.NumActiveWindows == 1 {
		if s.LayoutMode != Fullscreen {
			return &mverr.InvariantViolation{Rule: "num_active_windows == 1 requires FULLSCREEN"}
		}
		if s.FullscreenMode != FullscreenFull {
			return &mverr.InvariantViolation{Rule: "num_active_windows == 1 requires fullscreen_mode FULL"}
		}
	}
	active := map[matrix.Window]bool{}
	for _, w := range s.ActiveWindows() {
		active[w] = true
	}
	if !active[s.SelectedWindow] {
		return &mverr.InvariantViolation{Rule: "selected_window must be active"}
	}
	switch s.LayoutMode {
	case Fullscreen:
		if !active[s.FullWindow] {
			return &mverr.InvariantViolation{Rule: "full_window must be active"}
		}
		if s.FullscreenMode == FullscreenPip {
			if !active[s.PipWindow] {
				return &mverr.InvariantViolation{Rule: "pip_window must be active"}
			}
			if s.PipWindow == s.FullWindow {
				return &mverr.InvariantViolation{Rule: "pip_window must differ from full_window"}
			}
		}
	case Multiview:
		if s.NumActiveWindows < 2 {
			return &mverr.InvariantViolation{Rule: "MULTIVIEW requires num_active_windows >= 2"}
		}
	}
	return nil
}

// Reset restores every field to New()'s defaults, including window/TV
// assignments — used by the Reset command.
func (s *MvScreen) Reset() {
	fresh := New()
	s.windowTV = fresh.windowTV
	s.LayoutMode = fresh.LayoutMode
	s.NumActiveWindows = fresh.NumActiveWindows
	s.MultiviewSubmode = fresh.MultiviewSubmode
	s.FullscreenMode = fresh.FullscreenMode
	s.FullWindow = fresh.FullWindow
	s.PipWindow = fresh.PipWindow
	s.pipLocationByTV = fresh.pipLocationByTV
	s.SelectedWindow = fresh.SelectedWindow
	s.SelectedWindowHasDistinctBorder = fresh.SelectedWindowHasDistinctBorder
	s.RemoteMode = fresh.RemoteMode
	s.LastButton = nil
	s.LastSelectedWindow = fresh.SelectedWindow
}

// Render translates the FSM's current state into a compositor.Output,
// coloring borders per spec.md §4.10: red for the selected window in
// APPLE_TV remote mode, green when selected in MULTIVIEWER mode with a
// distinct border requested, gray otherwise.
func (s *MvScreen) Render() compositor.Output {
	window := func(mode matrix.Mode, layoutWindow matrix.Window, mvWindow matrix.Window) compositor.WindowContents {
		if !mode.WindowHasBorder(layoutWindow) {
			return compositor.WindowContents{Hdmi: s.WindowInput(mvWindow)}
		}
		var color matrix.Color
		if mvWindow == s.SelectedWindow {
			switch s.RemoteMode {
			case AppleTV:
				color = matrix.ColorRed
			case Multiviewer:
				if s.SelectedWindowHasDistinctBorder {
					color = matrix.ColorGreen
				} else {
					color = matrix.ColorGray
				}
			}
		} else {
			color = matrix.ColorGray
		}
		return compositor.WindowContents{Hdmi: s.WindowInput(mvWindow), Border: &color}
	}

	var layout compositor.Layout
	switch s.LayoutMode {
	case Fullscreen:
		switch s.FullscreenMode {
		case FullscreenFull:
			layout = compositor.NewFull(window(matrix.ModeFull, matrix.W1, s.FullWindow))
		case FullscreenPip:
			layout = compositor.NewPip(
				s.PipLocation(),
				window(matrix.ModePip, matrix.W1, s.FullWindow),
				window(matrix.ModePip, matrix.W2, s.PipWindow),
			)
		}
	case Multiview:
		var mode matrix.Mode
		switch s.NumActiveWindows {
		case 2:
			mode = matrix.ModePbp
		case 3:
			mode = matrix.ModeTriple
		default:
			mode = matrix.ModeQuad
		}
		switch mode {
		case matrix.ModePbp:
			layout = compositor.NewPbp(s.MultiviewSubmode,
				window(mode, matrix.W1, matrix.W1), window(mode, matrix.W2, matrix.W2))
		case matrix.ModeTriple:
			layout = compositor.NewTriple(s.MultiviewSubmode,
				window(mode, matrix.W1, matrix.W1), window(mode, matrix.W2, matrix.W2),
				window(mode, matrix.W3, matrix.W3))
		default:
			layout = compositor.NewQuad(s.MultiviewSubmode,
				window(mode, matrix.W1, matrix.W1), window(mode, matrix.W2, matrix.W2),
				window(mode, matrix.W3, matrix.W3), window(mode, matrix.W4, matrix.W4))
		}
	}
	return compositor.Output{Layout: layout, AudioFrom: s.WindowInput(s.SelectedWindow)}
}
