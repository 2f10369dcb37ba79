package svf

import "github.com/alecthomas/participle/v2/lexer"

// Statement is one SVF command up to and including its semicolon.
type Statement struct {
	Pos lexer.Position

	EndDR     *EndState  `(   "ENDDR" @@`
	EndIR     *EndState  `  | "ENDIR" @@`
	State     *StateWalk `  | "STATE" @@`
	SIR       *Scan      `  | "SIR" @@`
	SDR       *Scan      `  | "SDR" @@`
	HIR       *Scan      `  | "HIR" @@`
	HDR       *Scan      `  | "HDR" @@`
	TIR       *Scan      `  | "TIR" @@`
	TDR       *Scan      `  | "TDR" @@`
	RunTest   *RunTest   `  | "RUNTEST" @@`
	Frequency *Frequency `  | "FREQUENCY" @@`
	TRST      *TRST      `  | "TRST" @@ )`
	End       string     `@Semicolon`
}

// EndState is the argument of ENDDR and ENDIR.
// Example: ENDDR DRPAUSE;
type EndState struct {
	State string `@Ident`
}

// StateWalk lists the states of a STATE statement, the last of which must
// be stable.
// Example: STATE RESET IDLE;
type StateWalk struct {
	Path []string `@Ident+`
}

// Scan is the body of SIR, SDR and the header/trailer commands.
// Example: SDR 32 TDI (00000000) TDO (0A0140DD) MASK (0FFFFFFF);
type Scan struct {
	Length string       `@Number`
	Fields []*ScanField `@@*`
}

// ScanField is one of TDI, TDO, MASK or SMASK with its hex vector.
type ScanField struct {
	Name string `@( "TDI" | "TDO" | "MASK" | "SMASK" )`
	Data string `@HexData`
}

// RunTest covers both forms of the command:
//
//	RUNTEST [run_state] run_count run_clk [min_time SEC] [MAXIMUM max_time SEC] [ENDSTATE end_state];
//	RUNTEST [run_state] min_time SEC [MAXIMUM max_time SEC] [ENDSTATE end_state];
//
// Value holds run_count when Unit is TCK or SCK, otherwise min_time.
type RunTest struct {
	RunState string   `@Ident?`
	Value    float64  `@Number`
	Unit     string   `@( "TCK" | "SCK" | "SEC" )`
	MinTime  *float64 `( @Number "SEC" )?`
	MaxTime  *float64 `( "MAXIMUM" @Number "SEC" )?`
	EndState string   `( "ENDSTATE" @Ident )?`
}

// Frequency is the body of FREQUENCY. A missing value means full speed.
// Example: FREQUENCY 1E6 HZ;
type Frequency struct {
	Hz *float64 `( @Number "HZ" )?`
}

// TRST is the body of TRST.
// Example: TRST OFF;
type TRST struct {
	Mode string `@( "ON" | "OFF" | "Z" | "ABSENT" )`
}
