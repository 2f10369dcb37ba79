package tap

import (
	"fmt"
	"strings"
)

// State represents one of the 16 defined IEEE 1149.1 TAP controller states.
type State uint8

const (
	StateTestLogicReset State = iota
	StateRunTestIdle
	StateSelectDRScan
	StateCaptureDR
	StateShiftDR
	StateExit1DR
	StatePauseDR
	StateExit2DR
	StateUpdateDR
	StateSelectIRScan
	StateCaptureIR
	StateShiftIR
	StateExit1IR
	StatePauseIR
	StateExit2IR
	StateUpdateIR
)

// svfNames are the state keywords used by SVF STATE, ENDDR, ENDIR and
// RUNTEST statements.
var svfNames = [...]string{
	StateTestLogicReset: "RESET",
	StateRunTestIdle:    "IDLE",
	StateSelectDRScan:   "DRSELECT",
	StateCaptureDR:      "DRCAPTURE",
	StateShiftDR:        "DRSHIFT",
	StateExit1DR:        "DREXIT1",
	StatePauseDR:        "DRPAUSE",
	StateExit2DR:        "DREXIT2",
	StateUpdateDR:       "DRUPDATE",
	StateSelectIRScan:   "IRSELECT",
	StateCaptureIR:      "IRCAPTURE",
	StateShiftIR:        "IRSHIFT",
	StateExit1IR:        "IREXIT1",
	StatePauseIR:        "IRPAUSE",
	StateExit2IR:        "IREXIT2",
	StateUpdateIR:       "IRUPDATE",
}

func (s State) String() string {
	if int(s) < len(svfNames) {
		return svfNames[s]
	}
	return fmt.Sprintf("State(%d)", s)
}

// ParseState resolves an SVF state keyword, ignoring case.
func ParseState(name string) (State, error) {
	upper := strings.ToUpper(name)
	for s, n := range svfNames {
		if n == upper {
			return State(s), nil
		}
	}
	return 0, fmt.Errorf("tap: unknown state %q", name)
}

// Stable reports whether the TAP can stay in s while TCK runs. Only stable
// states may end a scan or host a RUNTEST.
func (s State) Stable() bool {
	switch s {
	case StateTestLogicReset, StateRunTestIdle, StatePauseDR, StatePauseIR:
		return true
	}
	return false
}

// HoldTMS is the TMS level that keeps a stable state in place.
func (s State) HoldTMS() bool {
	return s == StateTestLogicReset
}

type stateTransitions struct {
	onZero State
	onOne  State
}

var transitions = [...]stateTransitions{
	StateTestLogicReset: {onZero: StateRunTestIdle, onOne: StateTestLogicReset},
	StateRunTestIdle:    {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectDRScan:   {onZero: StateCaptureDR, onOne: StateSelectIRScan},
	StateCaptureDR:      {onZero: StateShiftDR, onOne: StateExit1DR},
	StateShiftDR:        {onZero: StateShiftDR, onOne: StateExit1DR},
	StateExit1DR:        {onZero: StatePauseDR, onOne: StateUpdateDR},
	StatePauseDR:        {onZero: StatePauseDR, onOne: StateExit2DR},
	StateExit2DR:        {onZero: StateShiftDR, onOne: StateUpdateDR},
	StateUpdateDR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
	StateSelectIRScan:   {onZero: StateCaptureIR, onOne: StateTestLogicReset},
	StateCaptureIR:      {onZero: StateShiftIR, onOne: StateExit1IR},
	StateShiftIR:        {onZero: StateShiftIR, onOne: StateExit1IR},
	StateExit1IR:        {onZero: StatePauseIR, onOne: StateUpdateIR},
	StatePauseIR:        {onZero: StatePauseIR, onOne: StateExit2IR},
	StateExit2IR:        {onZero: StateShiftIR, onOne: StateUpdateIR},
	StateUpdateIR:       {onZero: StateRunTestIdle, onOne: StateSelectDRScan},
}

func valid(s State) bool {
	return int(s) < len(transitions)
}

// NextState returns the next TAP state after clocking TCK with the provided TMS
// value. It panics if an invalid state is supplied, which should never happen
// when interacting through the exported API.
func NextState(current State, tms bool) State {
	if !valid(current) {
		panic(fmt.Sprintf("tap: unhandled state %d", current))
	}
	if tms {
		return transitions[current].onOne
	}
	return transitions[current].onZero
}

// ResetClocks is the number of TMS=1 cycles that put the TAP into
// Test-Logic-Reset from any state.
const ResetClocks = 5

// StateMachine tracks the TAP controller state on the host side. It performs
// no I/O; callers clock the TMS bits it produces into the hardware.
type StateMachine struct {
	state State
}

// NewStateMachine creates a machine that believes the TAP is in start.
func NewStateMachine(start State) *StateMachine {
	return &StateMachine{state: start}
}

// State reports the current TAP state tracked by the machine.
func (m *StateMachine) State() State {
	return m.state
}

// Clock advances the machine one TCK cycle with the provided TMS bit and
// returns the new state.
func (m *StateMachine) Clock(tms bool) State {
	m.state = NextState(m.state, tms)
	return m.state
}

// Path returns the TMS bits that move the TAP from the current state to
// target without changing the machine. A path to Test-Logic-Reset is always
// ResetClocks ones so it holds whatever state the hardware is really in.
func (m *StateMachine) Path(target State) ([]bool, error) {
	if target == StateTestLogicReset {
		tms := make([]bool, ResetClocks)
		for i := range tms {
			tms[i] = true
		}
		return tms, nil
	}
	return ShortestPath(m.state, target)
}

// ShortestPath uses BFS across the TAP state diagram to find the shortest set
// of TMS values between two states.
func ShortestPath(from, to State) ([]bool, error) {
	if !valid(from) {
		return nil, fmt.Errorf("tap: invalid start state %d", from)
	}
	if !valid(to) {
		return nil, fmt.Errorf("tap: invalid target state %d", to)
	}
	if from == to {
		return nil, nil
	}

	type node struct {
		state State
		tms   []bool
	}

	queue := []node{{state: from}}
	visited := map[State]bool{from: true}

	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]

		for _, bit := range []bool{false, true} {
			next := NextState(current.state, bit)
			if visited[next] {
				continue
			}
			tms := append(append([]bool{}, current.tms...), bit)
			if next == to {
				return tms, nil
			}
			visited[next] = true
			queue = append(queue, node{state: next, tms: tms})
		}
	}

	return nil, fmt.Errorf("tap: no path from %s to %s", from, to)
}
