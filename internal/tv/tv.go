// Package tv names the four physical televisions the installation drives.
// It is split out from internal/screen so that internal/stbclient and
// internal/orchestrator — which address STBs by TV without needing any FSM
// logic — don't have to import the screen package just for this enum.
package tv

import "fmt"

// TV identifies one of the four physical displays.
type TV int

const (
	TV1 TV = 1
	TV2 TV = 2
	TV3 TV = 3
	TV4 TV = 4
)

// All returns TV1..TV4 in order.
func All() []TV { return []TV{TV1, TV2, TV3, TV4} }

func (t TV) ToInt() int { return int(t) }

func FromInt(n int) (TV, error) {
	if n < 1 || n > 4 {
		return 0, fmt.Errorf("tv: invalid tv code %d", n)
	}
	return TV(n), nil
}

func (t TV) String() string { return fmt.Sprintf("TV%d", int(t)) }
