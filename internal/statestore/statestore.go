// Package statestore persists the orchestrator's live state — the screen
// FSM, power, and per-TV volume memory — to a single JSON file, and
// reconstructs it on startup (C in the component design). Grounded on
// original_source/mv.py's load/save: write-to-tmp then atomic rename, and
// any failure to parse or validate falls back to a fresh default state
// rather than starting the daemon against data it can't trust.
package statestore

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/sweeks/multiviewer/internal/logging"
	"github.com/sweeks/multiviewer/internal/matrix"
	"github.com/sweeks/multiviewer/internal/mverr"
	"github.com/sweeks/multiviewer/internal/screen"
	"github.com/sweeks/multiviewer/internal/tv"
)

var log = logging.L("statestore")

// Snapshot is the on-disk shape of one orchestrator's full recoverable
// state. Every field is a plain int/bool/map so the format is stable across
// refactors of the in-memory screen.MvScreen layout.
type Snapshot struct {
	RunID string `json:"runId"`

	Power int `json:"power"`

	NumActiveWindows                int  `json:"numActiveWindows"`
	LayoutMode                      int  `json:"layoutMode"`
	MultiviewSubmode                int  `json:"multiviewSubmode"`
	FullscreenMode                  int  `json:"fullscreenMode"`
	FullWindow                      int  `json:"fullWindow"`
	PipWindow                       int  `json:"pipWindow"`
	SelectedWindow                  int  `json:"selectedWindow"`
	SelectedWindowHasDistinctBorder bool `json:"selectedWindowHasDistinctBorder"`
	RemoteMode                      int  `json:"remoteMode"`

	WindowTV        [4]int `json:"windowTv"`        // indexed by window.ToInt()-1
	PipLocationByTV [4]int `json:"pipLocationByTv"` // indexed by tv.ToInt()-1

	VolumeDeltaByTV map[string]int `json:"volumeDeltaByTv"` // keyed by tv.TV.String()
}

// Default returns the snapshot of a freshly power-cycled installation:
// quad multiview, W1 prominent, power on, no volume offset — the same
// state screen.New() and a zeroed volume.Worker start from.
func Default() *Snapshot {
	return FromLive(screen.New(), matrix.PowerOn, map[tv.TV]int{})
}

// FromLive captures a snapshot of the live screen, power, and per-TV volume
// deltas, stamping a fresh diagnostic run id.
func FromLive(s *screen.MvScreen, power matrix.Power, volumeDeltas map[tv.TV]int) *Snapshot {
	snap := &Snapshot{
		RunID:                            uuid.NewString(),
		Power:                            power.ToInt(),
		NumActiveWindows:                 s.NumActiveWindows,
		LayoutMode:                       int(s.LayoutMode),
		MultiviewSubmode:                 s.MultiviewSubmode.ToInt(),
		FullscreenMode:                   int(s.FullscreenMode),
		FullWindow:                       s.FullWindow.ToInt(),
		PipWindow:                        s.PipWindow.ToInt(),
		SelectedWindow:                   s.SelectedWindow.ToInt(),
		SelectedWindowHasDistinctBorder:  s.SelectedWindowHasDistinctBorder,
		RemoteMode:                       int(s.RemoteMode),
		VolumeDeltaByTV:                  map[string]int{},
	}
	for _, w := range matrix.ModeQuad.Windows() {
		snap.WindowTV[w.ToInt()-1] = s.WindowTV(w).ToInt()
	}
	for _, t := range tv.All() {
		snap.PipLocationByTV[t.ToInt()-1] = s.PipLocationForTV(t).ToInt()
		snap.VolumeDeltaByTV[t.String()] = volumeDeltas[t]
	}
	return snap
}

// Screen reconstructs a screen.MvScreen from the snapshot's fields.
func (s *Snapshot) Screen() (*screen.MvScreen, error) {
	out := screen.New()
	out.NumActiveWindows = s.NumActiveWindows
	out.LayoutMode = screen.LayoutMode(s.LayoutMode)
	out.FullscreenMode = screen.FullscreenMode(s.FullscreenMode)
	out.SelectedWindowHasDistinctBorder = s.SelectedWindowHasDistinctBorder
	out.RemoteMode = screen.RemoteMode(s.RemoteMode)

	submode, err := matrix.SubmodeFromInt(s.MultiviewSubmode)
	if err != nil {
		return nil, err
	}
	out.MultiviewSubmode = submode

	fullWindow, err := matrix.WindowFromInt(s.FullWindow)
	if err != nil {
		return nil, err
	}
	out.FullWindow = fullWindow

	pipWindow, err := matrix.WindowFromInt(s.PipWindow)
	if err != nil {
		return nil, err
	}
	out.PipWindow = pipWindow

	selectedWindow, err := matrix.WindowFromInt(s.SelectedWindow)
	if err != nil {
		return nil, err
	}
	out.SelectedWindow = selectedWindow
	out.LastSelectedWindow = selectedWindow

	for _, w := range matrix.ModeQuad.Windows() {
		t, err := tv.FromInt(s.WindowTV[w.ToInt()-1])
		if err != nil {
			return nil, err
		}
		out.SetWindowTV(w, t)
	}
	for _, t := range tv.All() {
		loc, err := matrix.PipLocationFromInt(s.PipLocationByTV[t.ToInt()-1])
		if err != nil {
			return nil, err
		}
		out.SetPipLocationForTV(t, loc)
	}

	if err := out.Validate(); err != nil {
		return nil, err
	}
	return out, nil
}

// PowerState decodes the persisted power state.
func (s *Snapshot) PowerState() (matrix.Power, error) { return matrix.PowerFromInt(s.Power) }

// VolumeDeltas decodes the persisted per-TV volume memory.
func (s *Snapshot) VolumeDeltas() (map[tv.TV]int, error) {
	out := make(map[tv.TV]int, len(tv.All()))
	for _, t := range tv.All() {
		out[t] = s.VolumeDeltaByTV[t.String()]
	}
	return out, nil
}

// Load reads and validates the snapshot at path. Any I/O error, parse
// failure, or invariant violation returns an error; the caller should treat
// that as "no usable state" and fall back to Default(), matching
// original_source/mv.py's load(): any exception during load discards the
// file and creates fresh state rather than refusing to start.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &mverr.IoError{Op: "statestore read", Err: err}
	}
	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, &mverr.ConfigError{Reason: "state file is not valid JSON: " + err.Error()}
	}
	if _, err := snap.Screen(); err != nil {
		return nil, err
	}
	if _, err := snap.PowerState(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Save validates snap, then writes it to path via a tmp-file-then-rename so
// a crash mid-write never leaves a truncated state file behind — the same
// discipline original_source/mv.py's save() uses (write to "<path>.tmp",
// then atomic replace).
func Save(path string, snap *Snapshot) error {
	if _, err := snap.Screen(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &mverr.IoError{Op: "statestore mkdir", Err: err}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return &mverr.IoError{Op: "statestore write", Err: err}
	}
	if err := os.Rename(tmp, path); err != nil {
		return &mverr.IoError{Op: "statestore rename", Err: err}
	}
	log.Debug("saved state", "path", path, "runId", snap.RunID)
	return nil
}
