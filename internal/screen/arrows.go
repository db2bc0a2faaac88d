package screen

import "github.com/sweeks/multiviewer/internal/matrix"

// arrowPointsTo is keyed by (numActiveWindows, submode) for the 4-window
// case, and by numActiveWindows alone for 2 and 3; submode is ignored for
// those two and any value works as the lookup key.
type arrowKey struct {
	numActive int
	submode   matrix.Submode
}

var arrowPointsTo = map[arrowKey]map[matrix.Window]map[Arrow]matrix.Window{
	{numActive: 2}: {
		matrix.W1: {ArrowE: matrix.W2},
		matrix.W2: {ArrowW: matrix.W1},
	},
	{numActive: 3}: {
		matrix.W1: {ArrowN: matrix.W2, ArrowS: matrix.W3},
		matrix.W2: {ArrowW: matrix.W1, ArrowS: matrix.W3},
		matrix.W3: {ArrowN: matrix.W2, ArrowW: matrix.W1},
	},
	{numActive: 4, submode: matrix.SubmodeWindowsSame}: {
		matrix.W1: {ArrowE: matrix.W2, ArrowW: matrix.W4, ArrowS: matrix.W3},
		matrix.W2: {ArrowE: matrix.W3, ArrowW: matrix.W1, ArrowS: matrix.W4},
		matrix.W3: {ArrowN: matrix.W1, ArrowE: matrix.W4, ArrowW: matrix.W2},
		matrix.W4: {ArrowN: matrix.W2, ArrowE: matrix.W1, ArrowW: matrix.W3},
	},
	{numActive: 4, submode: matrix.SubmodeW1Prominent}: {
		matrix.W1: {ArrowN: matrix.W2, ArrowE: matrix.W3, ArrowS: matrix.W4},
		matrix.W2: {ArrowW: matrix.W1, ArrowS: matrix.W3},
		matrix.W3: {ArrowN: matrix.W2, ArrowW: matrix.W1, ArrowS: matrix.W4},
		matrix.W4: {ArrowN: matrix.W3, ArrowW: matrix.W1},
	},
}

// ArrowPointsTo reports which window (if any) the given arrow moves
// selection to from the currently selected window, in multiview layout.
func (s *MvScreen) ArrowPointsTo(arrow Arrow) (matrix.Window, bool) {
	var key arrowKey
	switch s.NumActiveWindows {
	case 2, 3:
		key = arrowKey{numActive: s.NumActiveWindows}
	case 4:
		key = arrowKey{numActive: 4, submode: s.MultiviewSubmode}
	default:
		return 0, false
	}
	w, ok := arrowPointsTo[key][s.SelectedWindow][arrow]
	return w, ok
}

// RotatePipWindow moves the PIP inset to the next active window in the
// given direction, skipping over whichever window is currently fullscreen.
func (s *MvScreen) RotatePipWindow(direction Arrow) {
	var w matrix.Window
	switch direction {
	case ArrowE:
		w = s.NextActiveWindow(s.PipWindow)
		if w == s.FullWindow {
			w = s.NextActiveWindow(w)
		}
	case ArrowW:
		w = s.PrevActiveWindow(s.PipWindow)
		if w == s.FullWindow {
			w = s.PrevActiveWindow(w)
		}
	default:
		return
	}
	s.PipWindow = w
}

// FromPipArrowPointsTo is the PIP-corner the inset would move to from its
// current corner if the given arrow were pressed while it's selected.
func (s *MvScreen) FromPipArrowPointsTo(arrow Arrow) (matrix.PipLocation, bool) {
	switch s.PipLocation() {
	case matrix.PipNW:
		switch arrow {
		case ArrowE:
			return matrix.PipNE, true
		case ArrowS:
			return matrix.PipSW, true
		}
	case matrix.PipNE:
		switch arrow {
		case ArrowW:
			return matrix.PipNW, true
		case ArrowS:
			return matrix.PipSE, true
		}
	case matrix.PipSW:
		switch arrow {
		case ArrowN:
			return matrix.PipNW, true
		case ArrowE:
			return matrix.PipSE, true
		}
	case matrix.PipSE:
		switch arrow {
		case ArrowN:
			return matrix.PipNE, true
		case ArrowW:
			return matrix.PipSW, true
		}
	}
	return 0, false
}

// ArrowPointsFromFullToPip reports whether pressing arrow while the
// fullscreen window is selected would move selection into the PIP inset,
// given the inset's current corner.
func (s *MvScreen) ArrowPointsFromFullToPip(arrow Arrow) bool {
	if arrow != ArrowN && arrow != ArrowS {
		return false
	}
	loc := s.PipLocation()
	if (loc == matrix.PipNW || loc == matrix.PipNE) && arrow == ArrowN {
		return true
	}
	if (loc == matrix.PipSW || loc == matrix.PipSE) && arrow == ArrowS {
		return true
	}
	return false
}

// ArrowPointsFromPipToFull is the complement of ArrowPointsFromFullToPip
// for N/S presses while the PIP inset is selected.
func (s *MvScreen) ArrowPointsFromPipToFull(arrow Arrow) bool {
	return (arrow == ArrowN || arrow == ArrowS) && !s.ArrowPointsFromFullToPip(arrow)
}

// PressedArrowInFull handles an arrow press while plain-fullscreen: E/W
// cycle which active window is shown full; N/S do nothing.
func (s *MvScreen) PressedArrowInFull(arrow Arrow) {
	switch arrow {
	case ArrowE:
		s.FullWindow = s.NextActiveWindow(s.SelectedWindow)
		s.SelectedWindow = s.FullWindow
	case ArrowW:
		s.FullWindow = s.PrevActiveWindow(s.SelectedWindow)
		s.SelectedWindow = s.FullWindow
	}
}

// PressedArrowInPip handles an arrow press while fullscreen-with-PIP. A
// single tap moves selection between the full and PIP windows, or cycles
// the PIP window E/W; a double tap undoes the single-tap selection change
// and instead relocates the PIP corner.
func (s *MvScreen) PressedArrowInPip(arrow Arrow, doubleTap bool) {
	snapshot := s.SelectedWindow
	if doubleTap {
		s.SelectedWindow = s.LastSelectedWindow
		switch arrow {
		case ArrowE:
			s.RotatePipWindow(ArrowW)
		case ArrowW:
			s.RotatePipWindow(ArrowE)
		}
		if loc, ok := s.FromPipArrowPointsTo(arrow); ok {
			s.setPipLocationForTV(s.WindowTV(s.FullWindow), loc)
		}
		s.LastButton = nil
		return
	}

	pipIsSelected := s.SelectedWindow == s.PipWindow
	switch arrow {
	case ArrowE:
		s.RotatePipWindow(ArrowE)
		if pipIsSelected {
			s.SelectedWindow = s.PipWindow
		}
	case ArrowW:
		s.RotatePipWindow(ArrowW)
		if pipIsSelected {
			s.SelectedWindow = s.PipWindow
		}
	case ArrowN, ArrowS:
		if pipIsSelected {
			if s.ArrowPointsFromPipToFull(arrow) {
				s.SelectedWindow = s.FullWindow
			}
		} else if s.ArrowPointsFromFullToPip(arrow) {
			s.SelectedWindow = s.PipWindow
		}
	}
	b := buttonOfArrow(arrow)
	s.LastButton = &b
	s.LastSelectedWindow = snapshot
}

// PressedArrowInMultiview handles an arrow press in multiview layout: a
// single tap moves selection to the pointed-to window; a double tap swaps
// the TVs of the previously- and newly-selected windows.
func (s *MvScreen) PressedArrowInMultiview(arrow Arrow, doubleTap bool) {
	s.SelectedWindowHasDistinctBorder = true
	if doubleTap {
		pointsTo := s.SelectedWindow
		s.SwapWindowTvs(s.LastSelectedWindow, pointsTo)
		if s.WindowIsProminent(s.LastSelectedWindow) {
			s.SelectedWindow = s.LastSelectedWindow
		} else {
			s.SelectedWindow = pointsTo
		}
		s.LastButton = nil
		return
	}
	if pointsTo, ok := s.ArrowPointsTo(arrow); ok {
		b := buttonOfArrow(arrow)
		s.LastButton = &b
		s.LastSelectedWindow = s.SelectedWindow
		s.SelectedWindow = pointsTo
	}
}

// PressedArrow dispatches an arrow press to the handler for the current
// layout.
func (s *MvScreen) PressedArrow(arrow Arrow, doubleTap bool) {
	switch s.LayoutMode {
	case Multiview:
		s.PressedArrowInMultiview(arrow, doubleTap)
	case Fullscreen:
		switch s.FullscreenMode {
		case FullscreenFull:
			s.PressedArrowInFull(arrow)
		case FullscreenPip:
			s.PressedArrowInPip(arrow, doubleTap)
		}
	}
}

// Pressed is the single entry point for every remote button: it resolves
// double-tap state against LastButton, clears it, dispatches to the
// specific handler, and returns the REMOTE double-tap's TV code (nil for
// every other button).
func (s *MvScreen) Pressed(button Button, maybeDoubleTap bool) *int {
	doubleTap := maybeDoubleTap && s.LastButton != nil && *s.LastButton == button
	s.LastButton = nil

	if arrow, ok := arrowOf(button); ok {
		s.PressedArrow(arrow, doubleTap)
		return nil
	}

	switch button {
	case ButtonRemote:
		return s.Remote(doubleTap)
	case ButtonSelect:
		s.PressedSelect()
	case ButtonBack:
		s.PressedBack()
	case ButtonPlayPause:
		s.PressedPlayPause()
	case ButtonActivateTV:
		s.ActivateTV()
	case ButtonDeactivateTVFirst:
		s.DeactivateTV(true)
	case ButtonDeactivateTVLast:
		s.DeactivateTV(false)
	case ButtonToggleSubmode:
		s.ToggleSubmode()
	}
	return nil
}
