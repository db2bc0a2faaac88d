package screen

import "fmt"

// Machine is the result of a full breadth-first exploration of the
// reachable FSM state space: every visited state, in discovery order,
// alongside the state reached by each (button, double-tap) transition out
// of it.
type Machine struct {
	// States lists every reachable FsmState in the order it was first
	// discovered.
	States []FsmState
	// Transitions[i] holds len(AllButtons)*2 entries: for button index b
	// and tap index d (0=single, 1=double), Transitions[i][b*2+d] is the
	// FsmState reached by pressing AllButtons[b] from States[i] with
	// maybeDoubleTap = (d == 1).
	Transitions [][]FsmState
	// TransitionCount is the total number of (state, button, tap) edges
	// walked, including ones that land back on an already-visited state.
	TransitionCount int
	// Complete is false if exploration stopped early because it hit
	// MaxStates without exhausting the reachable set.
	Complete bool
}

// EnumerateOptions controls a BFS exploration run.
type EnumerateOptions struct {
	// MaxStates caps how many distinct states are explored before
	// exploration gives up and returns Complete=false. Zero means
	// MaxFsmStates.
	MaxStates int
	// Validate calls Validate() after every simulated transition and
	// returns an error (wrapping the transition that produced it) on the
	// first invariant violation found. Costs roughly 2x the transitions.
	Validate bool
}

// TransitionError reports which transition out of which state produced an
// invariant violation during a validated Enumerate run.
type TransitionError struct {
	From       FsmState
	Button     Button
	DoubleTap  bool
	Underlying error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("screen: invalid transition from state %d via %s: %v", int(e.From), e.Button, e.Underlying)
}
func (e *TransitionError) Unwrap() error { return e.Underlying }

// Enumerate performs a breadth-first exploration of every FSM state
// reachable from the power-on default, applying every button in
// AllButtons with both maybeDoubleTap=false and true from each state. It
// never mutates the receiver, working instead from a scratch screen
// hydrated fresh for each transition.
func Enumerate(opts EnumerateOptions) (*Machine, error) {
	maxStates := opts.MaxStates
	if maxStates <= 0 {
		maxStates = MaxFsmStates
	}

	scratch := New()
	start := Pack(scratch)

	visited := make([]bool, MaxFsmStates)
	order := []FsmState{start}
	visited[start] = true

	m := &Machine{Complete: true}

	for head := 0; head < len(order); head++ {
		state := order[head]
		edges := make([]FsmState, len(AllButtons)*2)
		for bIdx, button := range AllButtons {
			for dIdx, doubleTap := range [2]bool{false, true} {
				state.Hydrate(scratch)
				scratch.Pressed(button, doubleTap)
				if opts.Validate {
					if err := scratch.Validate(); err != nil {
						return nil, &TransitionError{From: state, Button: button, DoubleTap: doubleTap, Underlying: err}
					}
				}
				next := Pack(scratch)
				m.TransitionCount++
				edges[bIdx*2+dIdx] = next
				if !visited[next] {
					visited[next] = true
					if len(order) >= maxStates {
						m.Complete = false
						continue
					}
					order = append(order, next)
				}
			}
		}
		m.States = append(m.States, state)
		m.Transitions = append(m.Transitions, edges)
		if !m.Complete && len(order) >= maxStates {
			break
		}
	}

	return m, nil
}
