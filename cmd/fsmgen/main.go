// Command fsmgen explores the screen FSM's reachable state space and writes
// or checks the resulting artifact (spec.md §6.5). Grounded on
// original_source/mv_screen_fsm.py's argparse main() (--generate/--validate)
// and check_fsm_summary.py's hash-comparison CLI, merged into one cobra tool
// with subcommands instead of two standalone scripts.
package main

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sweeks/multiviewer/internal/screen"
)

var (
	outPath   string
	maxStates int
)

var rootCmd = &cobra.Command{
	Use:   "fsmgen",
	Short: "Generate or check the mv_screen FSM enumeration artifact",
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Run the BFS enumeration and write the FSM JSON + summary files",
	RunE: func(cmd *cobra.Command, args []string) error {
		machine, err := screen.Enumerate(screen.EnumerateOptions{MaxStates: maxStates, Validate: true})
		if err != nil {
			return err
		}
		doc, summary := artifact(machine)

		if err := writeJSON(outPath, doc); err != nil {
			return err
		}
		summaryPath := summaryPathFor(outPath)
		if err := writeJSON(summaryPath, summary); err != nil {
			return err
		}
		fmt.Printf("done: states=%d transitions=%d complete=%v\n", summary.States, summary.Transitions, summary.Complete)
		return nil
	},
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Recompute the FSM enumeration and compare it against the saved summary",
	RunE: func(cmd *cobra.Command, args []string) error {
		summaryPath := summaryPathFor(outPath)
		data, err := os.ReadFile(summaryPath)
		if err != nil {
			return fmt.Errorf("FSM summary file missing: %s", summaryPath)
		}
		var expected fsmSummary
		if err := json.Unmarshal(data, &expected); err != nil {
			return fmt.Errorf("FSM summary file is not valid JSON: %w", err)
		}

		machine, err := screen.Enumerate(screen.EnumerateOptions{MaxStates: maxStates, Validate: true})
		if err != nil {
			return err
		}
		_, current := artifact(machine)

		if current != expected {
			fmt.Println("FSM summary mismatch; run 'fsmgen generate' to regenerate")
			fmt.Printf("expected: %+v\n", expected)
			fmt.Printf("current : %+v\n", current)
			return fmt.Errorf("fsm summary mismatch")
		}
		fmt.Println("FSM summary matches")
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&outPath, "out", "mv_screen_fsm.json", "path to the FSM JSON artifact")
	rootCmd.PersistentFlags().IntVar(&maxStates, "max-states", screen.MaxFsmStates, "maximum number of states to explore before giving up")
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(checkCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fsmDoc is the on-disk shape of the full enumeration: one entry per
// visited state plus the state reached by every (button, tap) pair out of
// it, mirroring FsmStateMachine.to_dict() field-for-field so the JSON
// format (and therefore the summary hash) is stable across languages.
type fsmDoc struct {
	Buttons     []string `json:"buttons"`
	Complete    bool     `json:"complete"`
	States      int      `json:"states"`
	Transitions int      `json:"transitions"`
	Entries     [][2]any `json:"entries"`
}

type fsmSummary struct {
	States      int    `json:"states"`
	Transitions int    `json:"transitions"`
	Complete    bool   `json:"complete"`
	Sha256      string `json:"sha256"`
}

func artifact(m *screen.Machine) (fsmDoc, fsmSummary) {
	buttons := make([]string, len(screen.AllButtons))
	for i, b := range screen.AllButtons {
		buttons[i] = b.String()
	}

	entries := make([][2]any, len(m.States))
	for i, state := range m.States {
		edges := make([]int, len(m.Transitions[i]))
		for j, e := range m.Transitions[i] {
			edges[j] = int(e)
		}
		entries[i] = [2]any{int(state), edges}
	}

	doc := fsmDoc{
		Buttons:     buttons,
		Complete:    m.Complete,
		States:      len(m.States),
		Transitions: m.TransitionCount,
		Entries:     entries,
	}

	// The summary hash is computed over the compact (no-whitespace) form
	// of the same document, matching json.dumps(..., separators=(",", ":")).
	compact, err := json.Marshal(doc)
	if err != nil {
		panic(err)
	}
	sum := sha256.Sum256(compact)

	summary := fsmSummary{
		States:      doc.States,
		Transitions: doc.Transitions,
		Complete:    doc.Complete,
		Sha256:      hex.EncodeToString(sum[:]),
	}
	return doc, summary
}

func summaryPathFor(path string) string {
	ext := filepath.Ext(path)
	base := path[:len(path)-len(ext)]
	return base + "-summary" + ext
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
