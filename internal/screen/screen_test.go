package screen

import (
	"testing"

	"github.com/sweeks/multiviewer/internal/matrix"
)

func press(t *testing.T, s *MvScreen, button Button) {
	t.Helper()
	s.Pressed(button, false)
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid state after %s: %v", button, err)
	}
}

// pressDouble simulates "X; X" with the clock not advanced: the first tap
// can't be a double (nothing preceded it with the same button), the
// second is.
func pressDouble(t *testing.T, s *MvScreen, button Button) *int {
	t.Helper()
	s.Pressed(button, true)
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid state after first %s: %v", button, err)
	}
	result := s.Pressed(button, true)
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid state after double %s: %v", button, err)
	}
	return result
}

func TestResetRendersDefaultQuad(t *testing.T) {
	s := New()
	got := s.Render().OneLineDescription()
	want := "QUAD(2) A1 [H1]G [H2]A [H3]A [H4]A"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestFullscreenToggle(t *testing.T) {
	s := New()
	press(t, s, ButtonSelect)
	if got, want := s.Render().OneLineDescription(), "FULL A1 H1"; got != want {
		t.Fatalf("after Select: got %q, want %q", got, want)
	}
	press(t, s, ButtonBack)
	if got, want := s.Render().OneLineDescription(), "QUAD(2) A1 [H1]G [H2]A [H3]A [H4]A"; got != want {
		t.Fatalf("after Back: got %q, want %q", got, want)
	}
}

func TestW1ProminentSwapOnBack(t *testing.T) {
	s := New()
	press(t, s, ButtonSelect)
	press(t, s, ButtonArrowE)
	press(t, s, ButtonBack)
	got := s.Render().OneLineDescription()
	want := "QUAD(2) A2 [H2]G [H1]A [H3]A [H4]A"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestPipNavigation(t *testing.T) {
	s := New()
	press(t, s, ButtonSelect)
	press(t, s, ButtonToggleSubmode) // "Home" in MULTIVIEWER mode
	if got, want := s.Render().OneLineDescription(), "PIP(NE) A1 H1 [H2]A"; got != want {
		t.Fatalf("after Home: got %q, want %q", got, want)
	}
	press(t, s, ButtonArrowN)
	if got, want := s.Render().OneLineDescription(), "PIP(NE) A2 H1 [H2]G"; got != want {
		t.Fatalf("after N: got %q, want %q", got, want)
	}
	press(t, s, ButtonBack)
	if got, want := s.Render().OneLineDescription(), "QUAD(2) A2 [H2]G [H1]A [H3]A [H4]A"; got != want {
		t.Fatalf("after Back: got %q, want %q", got, want)
	}
}

func TestPipCornerViaDoubleTap(t *testing.T) {
	s := New()
	press(t, s, ButtonSelect)
	press(t, s, ButtonToggleSubmode)
	pressDouble(t, s, ButtonArrowW)
	if got, want := s.Render().OneLineDescription(), "PIP(NW) A1 H1 [H2]A"; got != want {
		t.Fatalf("after Double W: got %q, want %q", got, want)
	}
	press(t, s, ButtonSelect)
	if got, want := s.Render().OneLineDescription(), "PIP(NE) A2 H2 [H1]A"; got != want {
		t.Fatalf("after Select: got %q, want %q", got, want)
	}
}

func TestRemoteDoubleTapReturnsTvCode(t *testing.T) {
	s := New()
	result := pressDouble(t, s, ButtonRemote)
	if result == nil || *result != 1 {
		t.Fatalf("got %v, want 1", result)
	}
	press(t, s, ButtonArrowE)
	result = pressDouble(t, s, ButtonRemote)
	if result == nil || *result != 3 {
		t.Fatalf("got %v, want 3", result)
	}
	result = s.Pressed(ButtonRemote, false)
	if result != nil {
		t.Fatalf("got %v, want nil (single tap)", result)
	}
}

func TestDeactivateTvClampsSelectionAndForcesFullscreen(t *testing.T) {
	s := New()
	s.SelectedWindow = 4 // last active window (4)
	s.DeactivateTV(true)
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid after deactivate: %v", err)
	}
	if s.NumActiveWindows != 3 {
		t.Fatalf("numActiveWindows = %d, want 3", s.NumActiveWindows)
	}
	s.DeactivateTV(false)
	s.DeactivateTV(false)
	if err := s.Validate(); err != nil {
		t.Fatalf("invalid after deactivate to 1: %v", err)
	}
	if s.NumActiveWindows != 1 || s.LayoutMode != Fullscreen || s.FullscreenMode != FullscreenFull {
		t.Fatalf("expected forced FULLSCREEN/FULL with 1 active, got %+v", s)
	}
}

func TestArrowEHasNoMappingForW1WithThreeActive(t *testing.T) {
	s := New()
	s.DeactivateTV(true)
	if s.NumActiveWindows != 3 {
		t.Fatalf("numActiveWindows = %d, want 3", s.NumActiveWindows)
	}
	s.SelectedWindow = matrix.W1
	before := s.Render().OneLineDescription()
	press(t, s, ButtonArrowE)
	if got := s.Render().OneLineDescription(); got != before {
		t.Fatalf("ArrowE from W1 with 3 active windows moved selection: got %q, want unchanged %q", got, before)
	}
	if s.SelectedWindow != matrix.W1 {
		t.Fatalf("selected window = %v, want W1 (no E mapping for W1 in the 3-window table)", s.SelectedWindow)
	}
}

func TestPackHydrateRoundTrip(t *testing.T) {
	s := New()
	press(t, s, ButtonSelect)
	press(t, s, ButtonToggleSubmode)
	code := Pack(s)
	if code < 0 || code >= MaxFsmStates {
		t.Fatalf("packed state %d out of range [0, %d)", code, MaxFsmStates)
	}

	other := New()
	code.Hydrate(other)
	if Pack(other) != code {
		t.Fatalf("hydrate did not reproduce the packed state")
	}
	if other.LayoutMode != s.LayoutMode || other.FullscreenMode != s.FullscreenMode ||
		other.SelectedWindow != s.SelectedWindow {
		t.Fatalf("hydrated screen diverges from source: %+v vs %+v", other, s)
	}
}

func TestEnumerateProducesACompleteGraph(t *testing.T) {
	m, err := Enumerate(EnumerateOptions{Validate: true})
	if err != nil {
		t.Fatalf("Enumerate: %v", err)
	}
	if !m.Complete {
		t.Fatalf("expected a complete exploration within MaxFsmStates")
	}
	if len(m.States) == 0 || len(m.States) > MaxFsmStates {
		t.Fatalf("states = %d, want 0 < states <= %d", len(m.States), MaxFsmStates)
	}
	wantTransitions := len(m.States) * len(AllButtons) * 2
	if m.TransitionCount != wantTransitions {
		t.Fatalf("transitions = %d, want %d", m.TransitionCount, wantTransitions)
	}
	for i, state := range m.States {
		if len(m.Transitions[i]) != len(AllButtons)*2 {
			t.Fatalf("state %d: got %d transitions, want %d", state, len(m.Transitions[i]), len(AllButtons)*2)
		}
	}
}
