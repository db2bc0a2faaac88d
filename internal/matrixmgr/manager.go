// Package matrixmgr reconciles the matrix switch toward a desired state in
// the background (C6 in the component design): callers publish a new
// desired ScreenState and the manager's loop converges the device to it,
// retrying from scratch on any protocol error.
package matrixmgr

import (
	"context"
	"sync"
	"time"

	"github.com/sweeks/multiviewer/internal/clock"
	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/matrix"
	"github.com/sweeks/multiviewer/internal/syncevent"
)

var log = logging.L("matrixmgr")

// Manager owns one matrix.Driver and drives it toward whatever ScreenState
// was most recently published via SetDesired.
type Manager struct {
	driver   *matrix.Driver
	clock    clock.Clock
	watchdog time.Duration

	mu         sync.Mutex
	desired    matrix.ScreenState
	generation int

	desynced *syncevent.Event // set whenever desired changes and hasn't been applied
	synced   *syncevent.Event // set once the device matches the last-published desired state
}

// NewManager constructs a Manager. watchdog bounds a single sync attempt;
// a sync that runs longer is treated as hung and aborted.
func NewManager(driver *matrix.Driver, clk clock.Clock, watchdog time.Duration) *Manager {
	return &Manager{
		driver:   driver,
		clock:    clk,
		watchdog: watchdog,
		desynced: syncevent.New(),
		synced:   syncevent.New(),
	}
}

// SetDesired publishes a new target state. The background loop picks it up
// on its next iteration, aborting any in-progress sync toward a now-stale
// target as soon as it next checks shouldAbort.
func (m *Manager) SetDesired(s matrix.ScreenState) {
	m.mu.Lock()
	m.desired = s
	m.generation++
	m.mu.Unlock()

	m.synced.Clear()
	m.desynced.Set()
}

func (m *Manager) snapshotDesired() (matrix.ScreenState, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.desired, m.generation
}

func (m *Manager) staleSince(generation int) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.generation != generation
}

// WaitSynced blocks until the device matches the last-published desired
// state, or ctx is done.
func (m *Manager) WaitSynced(ctx context.Context) error {
	return m.synced.Wait(ctx)
}

// CurrentState blocks until synced, then returns the last-published desired
// state — which by then is also what the device itself holds. Mirrors the
// original's current_power()/current_output(), collapsed into one call
// since this Manager converges power and output together.
func (m *Manager) CurrentState(ctx context.Context) (matrix.ScreenState, error) {
	if err := m.WaitSynced(ctx); err != nil {
		return matrix.ScreenState{}, err
	}
	state, _ := m.snapshotDesired()
	return state, nil
}

// Run is the reconciliation loop: block for a desynced signal, attempt one
// sync within the watchdog window, and on any error reset the driver's
// connection and belief cache before retrying. Run returns only when ctx
// is canceled.
func (m *Manager) Run(ctx context.Context) error {
	for {
		if err := m.desynced.Wait(ctx); err != nil {
			return err
		}

		desired, generation := m.snapshotDesired()

		syncCtx, cancel := context.WithTimeout(ctx, m.watchdog)
		synced, err := m.sync(syncCtx, desired, generation)
		cancel()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		if err != nil {
			log.Error("matrix sync failed, resetting connection", logging.KeyError, err)
			m.driver.Reset()
			continue
		}

		if !synced || m.staleSince(generation) {
			// Either the read-back didn't match what we wrote, or a newer
			// desired state arrived mid-sync; loop straight back to the top
			// and retry against whatever is now the latest desired state.
			continue
		}

		m.desynced.Clear()
		m.synced.Set()
	}
}

// sync drives the device to desired, polling syncCtx at every safe
// boundary inside Driver.SetScreen so a watchdog timeout or a newer
// SetDesired call interrupts it promptly rather than mid-command. Once
// written, it re-reads the screen and compares against desired before
// declaring success: the switch sometimes reports a stale value
// immediately after a write, so a short pause precedes the read-back. The
// returned bool is true only once the read-back is verified to match
// desired; false means "try again", not "error".
func (m *Manager) sync(syncCtx context.Context, desired matrix.ScreenState, generation int) (bool, error) {
	if err := m.driver.GetConnection(); err != nil {
		return false, err
	}
	shouldAbort := func() bool {
		return syncCtx.Err() != nil || m.staleSince(generation)
	}

	if err := m.driver.SetScreen(desired, shouldAbort); err != nil {
		return false, err
	}
	if desired.Power == matrix.PowerOff {
		return true, nil
	}
	if shouldAbort() {
		return false, nil
	}

	// The switch sometimes lies if read back immediately after a write;
	// give it a second to settle. Bounded by syncCtx so this never
	// outlives the watchdog, and re-checked against generation afterward
	// so a SetDesired call that lands during the pause is honored rather
	// than compared against a target that's already stale.
	waitCtx, cancel := context.WithTimeout(syncCtx, time.Second)
	<-waitCtx.Done()
	cancel()
	if shouldAbort() {
		return false, nil
	}

	actual, err := m.driver.ReadScreen()
	if err != nil {
		return false, err
	}
	if shouldAbort() {
		return false, nil
	}

	if actual != desired {
		log.Warn("matrix screen mismatch after convergence attempt", "desired", desired, "actual", actual)
		return false, nil
	}

	if err := m.driver.Unmute(); err != nil {
		return false, err
	}
	return true, nil
}
