// Package volume reconciles the shared IR-controlled volume/mute state
// toward whatever the selected TV last asked for (C7 in the component
// design): one IR pulse per convergence step, re-evaluating desired state
// between pulses so a late button press is never stale by more than one
// pulse.
package volume

import (
	"context"
	"fmt"
	"sync"

	"github.com/sweeks/multiviewer/internal/irbridge"
	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/syncevent"
	"github.com/sweeks/multiviewer/internal/tv"
)

var log = logging.L("volume")

// Worker owns the IR bridge client and the desired/current mute and delta
// state. Safe for concurrent use: state is behind mu, and Run is the only
// goroutine that ever calls the IR client.
type Worker struct {
	ir                         *irbridge.Client
	shouldSendCommandsToDevice bool

	mu                 sync.Mutex
	currentMute        bool
	desiredMute        bool
	currentVolumeDelta int
	desiredVolumeDelta int
	volumeDeltaByTV    map[tv.TV]int

	synced *syncevent.Event
	wake   *syncevent.Event
}

// New returns a Worker that pulses ir. When shouldSendCommandsToDevice is
// false, Run mirrors desired state into current state locally instead of
// touching the IR bridge, so the rest of the stack is testable offline.
func New(ir *irbridge.Client, shouldSendCommandsToDevice bool) *Worker {
	w := &Worker{
		ir:                         ir,
		shouldSendCommandsToDevice: shouldSendCommandsToDevice,
		volumeDeltaByTV:            map[tv.TV]int{},
		synced:                     syncevent.New(),
		wake:                       syncevent.New(),
	}
	for _, t := range tv.All() {
		w.volumeDeltaByTV[t] = 0
	}
	w.synced.Set()
	return w
}

// DescribeVolume renders the current state as "M" (muted) or "V+n"/"Vn"
// (unmuted, signed delta), the canonical one-line form.
func (w *Worker) DescribeVolume() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.currentMute {
		return "M"
	}
	if w.currentVolumeDelta >= 0 {
		return fmt.Sprintf("V+%d", w.currentVolumeDelta)
	}
	return fmt.Sprintf("V%d", w.currentVolumeDelta)
}

// Synced blocks until current state matches desired state, or ctx is done.
func (w *Worker) Synced(ctx context.Context) error {
	return w.synced.Wait(ctx)
}

// wakeWorker signals Run to re-evaluate desired state immediately.
func (w *Worker) wakeWorker() {
	w.wake.Set()
	w.synced.Clear()
}

// SetVolumeDelta publishes a new desired delta and wakes the worker.
func (w *Worker) SetVolumeDelta(to int) {
	w.mu.Lock()
	w.desiredVolumeDelta = to
	w.mu.Unlock()
	w.wakeWorker()
}

// ToggleMute flips the desired mute state and wakes the worker.
func (w *Worker) ToggleMute() {
	w.mu.Lock()
	w.desiredMute = !w.desiredMute
	w.mu.Unlock()
	w.wakeWorker()
}

// Unmute clears desired mute and wakes the worker.
func (w *Worker) Unmute() {
	w.mu.Lock()
	w.desiredMute = false
	w.mu.Unlock()
	w.wakeWorker()
}

// isSynced reports whether current state is a fixed point: muted state
// matches, and (muted, or the delta matches). Caller must hold mu.
func (w *Worker) isSynced() bool {
	if w.currentMute != w.desiredMute {
		return false
	}
	return w.currentMute || w.desiredVolumeDelta == w.currentVolumeDelta
}

// IsSynced is isSynced's exported, locking form.
func (w *Worker) IsSynced() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.isSynced()
}

// step applies exactly one IR pulse toward desired state: a mute toggle
// if that differs, else a single volume step. Returns whether a pulse was
// sent (false means already synced). When commands are not sent to the
// device, it copies desired into current at once and returns true.
func (w *Worker) step() (bool, error) {
	w.mu.Lock()
	if !w.shouldSendCommandsToDevice {
		w.currentMute = w.desiredMute
		w.currentVolumeDelta = w.desiredVolumeDelta
		w.mu.Unlock()
		return true, nil
	}
	if w.currentMute != w.desiredMute {
		mute := w.desiredMute
		w.currentMute = mute
		w.mu.Unlock()
		return true, w.ir.Mute()
	}
	if w.currentMute {
		w.mu.Unlock()
		return false, nil
	}
	diff := w.desiredVolumeDelta - w.currentVolumeDelta
	if diff == 0 {
		w.mu.Unlock()
		return false, nil
	}
	if diff > 0 {
		w.currentVolumeDelta++
		w.mu.Unlock()
		return true, w.ir.VolumeUp()
	}
	w.currentVolumeDelta--
	w.mu.Unlock()
	return true, w.ir.VolumeDown()
}

// Run is the convergence loop: block until desired state diverges from
// current, pulse one step at a time toward it, and declare synced once a
// step finds nothing left to do. Run returns only when ctx is canceled.
func (w *Worker) Run(ctx context.Context) error {
	for {
		if w.IsSynced() {
			w.synced.Set()
			w.wake.Clear()
			if err := w.wake.Wait(ctx); err != nil {
				return err
			}
			continue
		}
		if _, err := w.step(); err != nil {
			log.Error("volume sync step failed", logging.KeyError, err)
		}
	}
}

// Reset zeroes mute and delta state, including every TV's remembered
// delta — used on power-on, since a fresh session has no volume history.
func (w *Worker) Reset() {
	w.mu.Lock()
	w.currentMute = false
	w.desiredMute = false
	w.currentVolumeDelta = 0
	w.desiredVolumeDelta = 0
	for _, t := range tv.All() {
		w.volumeDeltaByTV[t] = 0
	}
	w.mu.Unlock()
	w.wakeWorker()
}

// AdjustVolume unmutes and accumulates by into tv's remembered delta,
// without touching the desired delta until the TV is next selected (see
// SetForTV).
func (w *Worker) AdjustVolume(t tv.TV, by int) {
	w.Unmute()
	w.mu.Lock()
	w.volumeDeltaByTV[t] += by
	w.mu.Unlock()
}

// SetForTV publishes t's remembered delta as the new desired delta —
// called whenever the selected TV changes, so the shared IR volume tracks
// whichever TV is now in focus.
func (w *Worker) SetForTV(t tv.TV) {
	w.mu.Lock()
	delta := w.volumeDeltaByTV[t]
	w.mu.Unlock()
	w.SetVolumeDelta(delta)
}

// VolumeDeltaFor returns t's remembered delta.
func (w *Worker) VolumeDeltaFor(t tv.TV) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.volumeDeltaByTV[t]
}
