package tap

import "testing"

func TestNextStateTable(t *testing.T) {
	type transition struct {
		start State
		tms   bool
		end   State
	}

	cases := []transition{
		{StateTestLogicReset, false, StateRunTestIdle},
		{StateTestLogicReset, true, StateTestLogicReset},
		{StateRunTestIdle, true, StateSelectDRScan},
		{StateSelectDRScan, false, StateCaptureDR},
		{StateShiftDR, true, StateExit1DR},
		{StateExit2DR, false, StateShiftDR},
		{StateSelectIRScan, true, StateTestLogicReset},
		{StateCaptureIR, false, StateShiftIR},
		{StatePauseIR, true, StateExit2IR},
		{StateExit2IR, true, StateUpdateIR},
	}

	for _, tc := range cases {
		got := NextState(tc.start, tc.tms)
		if got != tc.end {
			t.Fatalf("NextState(%s, %v) = %s, want %s", tc.start, tc.tms, got, tc.end)
		}
	}
}

func TestParseStateNames(t *testing.T) {
	cases := map[string]State{
		"RESET":    StateTestLogicReset,
		"idle":     StateRunTestIdle,
		"DRPause":  StatePauseDR,
		"IRSHIFT":  StateShiftIR,
		"drupdate": StateUpdateDR,
	}
	for name, want := range cases {
		got, err := ParseState(name)
		if err != nil {
			t.Fatalf("ParseState(%q) returned error: %v", name, err)
		}
		if got != want {
			t.Fatalf("ParseState(%q) = %s, want %s", name, got, want)
		}
		if back, _ := ParseState(got.String()); back != got {
			t.Fatalf("String() of %s does not parse back", got)
		}
	}
	if _, err := ParseState("SHIFT"); err == nil {
		t.Fatalf("expected error for unknown state")
	}
}

func TestStableStates(t *testing.T) {
	var stable []State
	for s := StateTestLogicReset; s <= StateUpdateIR; s++ {
		if s.Stable() {
			stable = append(stable, s)
		}
	}
	want := []State{StateTestLogicReset, StateRunTestIdle, StatePauseDR, StatePauseIR}
	if len(stable) != len(want) {
		t.Fatalf("stable states = %v, want %v", stable, want)
	}
	for i := range want {
		if stable[i] != want[i] {
			t.Fatalf("stable states = %v, want %v", stable, want)
		}
	}
	if !StateTestLogicReset.HoldTMS() || StateRunTestIdle.HoldTMS() {
		t.Fatalf("HoldTMS wrong for RESET/IDLE")
	}
}

func TestPathToResetIsAlwaysFiveOnes(t *testing.T) {
	for _, start := range []State{StateTestLogicReset, StateRunTestIdle, StateShiftDR, StatePauseIR} {
		m := NewStateMachine(start)
		path, err := m.Path(StateTestLogicReset)
		if err != nil {
			t.Fatalf("Path returned error: %v", err)
		}
		if len(path) != ResetClocks {
			t.Fatalf("from %s: reset path length = %d, want %d", start, len(path), ResetClocks)
		}
		for _, bit := range path {
			if !bit {
				t.Fatalf("from %s: reset path contains TMS=0", start)
			}
		}
		for _, bit := range path {
			m.Clock(bit)
		}
		if m.State() != StateTestLogicReset {
			t.Fatalf("from %s: ended in %s", start, m.State())
		}
	}
}

func TestShortestPathPatterns(t *testing.T) {
	cases := []struct {
		from, to State
		want     []bool
	}{
		{StateRunTestIdle, StateShiftIR, []bool{true, true, false, false}},
		{StateRunTestIdle, StateShiftDR, []bool{true, false, false}},
		{StateShiftDR, StateRunTestIdle, []bool{true, true, false}},
		{StateExit1IR, StatePauseIR, []bool{false}},
		{StatePauseDR, StateRunTestIdle, []bool{true, true, false}},
		{StateRunTestIdle, StateRunTestIdle, nil},
	}

	for _, tc := range cases {
		got, err := ShortestPath(tc.from, tc.to)
		if err != nil {
			t.Fatalf("ShortestPath(%s, %s) returned error: %v", tc.from, tc.to, err)
		}
		if len(got) != len(tc.want) {
			t.Fatalf("ShortestPath(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
		}
		for i := range got {
			if got[i] != tc.want[i] {
				t.Fatalf("ShortestPath(%s, %s) = %v, want %v", tc.from, tc.to, got, tc.want)
			}
		}
		state := tc.from
		for _, bit := range got {
			state = NextState(state, bit)
		}
		if state != tc.to {
			t.Fatalf("walking %v from %s ends in %s", got, tc.from, state)
		}
	}
}

func TestShortestPathRejectsInvalidState(t *testing.T) {
	if _, err := ShortestPath(State(42), StateRunTestIdle); err == nil {
		t.Fatalf("expected error for invalid start")
	}
	if _, err := ShortestPath(StateRunTestIdle, State(42)); err == nil {
		t.Fatalf("expected error for invalid target")
	}
}
