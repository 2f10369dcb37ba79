package link

import "fmt"

// Bit is the logic level of a single JTAG signal.
type Bit uint8

const (
	Low  Bit = 0
	High Bit = 1
)

// BitOf converts a bool into a Bit.
func BitOf(v bool) Bit {
	if v {
		return High
	}
	return Low
}

// Bool reports whether the bit is High.
func (b Bit) Bool() bool {
	return b != Low
}

func (b Bit) String() string {
	if b.Bool() {
		return "1"
	}
	return "0"
}

// OptionalBit is a Bit that may be absent. An absent TDI means the line is
// left untouched for the cycle; an absent TDO expectation means the sampled
// value is not verified.
type OptionalBit struct {
	Value Bit
	Valid bool
}

// DontCare is the absent OptionalBit.
var DontCare = OptionalBit{}

// Drive returns a present OptionalBit holding b.
func Drive(b Bit) OptionalBit {
	return OptionalBit{Value: b, Valid: true}
}

func (o OptionalBit) String() string {
	if !o.Valid {
		return "-"
	}
	return o.Value.String()
}

// MaxUDelayClocks bounds the number of TCK cycles a single UDELAY request may
// carry so no one hardware transaction runs unbounded. Longer runs are split
// by Link.UDelay.
const MaxUDelayClocks = 100_000

// Request is the unit exchanged across the link protocol. Fields not used by
// an operation are ignored by it.
type Request struct {
	TMS         Bit
	TDI         OptionalBit
	TDOExpect   OptionalBit
	TDOObserved Bit

	// ClockCount is the requested number of TCK cycles on the way in and the
	// number actually completed on the way out.
	ClockCount int64
}

// Op identifies one of the four protocol operations.
type Op uint8

const (
	OpInit Op = iota + 1
	OpFini
	OpUDelay
	OpPulse
)

var opNames = map[Op]string{
	OpInit:   "INIT",
	OpFini:   "FINI",
	OpUDelay: "UDELAY",
	OpPulse:  "PULSE",
}

func (o Op) String() string {
	if name, ok := opNames[o]; ok {
		return name
	}
	return fmt.Sprintf("Op(%d)", uint8(o))
}
