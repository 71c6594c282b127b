// Package surface drives a terrain surface through acquisition, meshing and
// re-simplification, publishing each finished mesh to a Surface.
package surface

import "fmt"

// State is a controller lifecycle state.
type State int

const (
	Uninitialized State = iota
	Loading
	Ready
	Resimplifying
	Failed
)

var stateNames = [...]string{
	Uninitialized: "uninitialized",
	Loading:       "loading",
	Ready:         "ready",
	Resimplifying: "resimplifying",
	Failed:        "failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return fmt.Sprintf("state(%d)", int(s))
	}
	return stateNames[s]
}

// transitions lists the states reachable from each state. Failed is terminal.
var transitions = map[State][]State{
	Uninitialized: {Loading},
	Loading:       {Ready, Failed},
	Ready:         {Resimplifying},
	Resimplifying: {Ready},
}

// CanTransition reports whether the controller may move from s to next.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
