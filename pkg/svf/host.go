// Package svf plays SVF vector streams through a Host. The engine owns SVF
// syntax and the TAP state walk; the host supplies bytes and drives (or
// counts) the clock pulses.
package svf

import "github.com/OpenTraceLab/OpenTraceSVF/pkg/link"

// Host is the capability set the engine needs from its caller.
type Host interface {
	// NextByte returns the next byte of the vector stream, or false at the
	// end.
	NextByte() (byte, bool)

	// ReportDevice is called for each device found by a scan.
	ReportDevice(idcode uint32)
	// ReportError describes a failure at a source position. line is zero
	// when the failure is not tied to a statement.
	ReportError(file string, line int, msg string)
	// SetFrequency passes on a FREQUENCY statement. Zero means full speed.
	SetFrequency(hz float64)

	Setup() error
	Shutdown() error

	// UDelay waits usecs microseconds and then clocks TCK clocks times with
	// TMS held at tms.
	UDelay(usecs int64, tms link.Bit, clocks int64) error
	// PulseTCK clocks one TCK cycle and returns the sampled TDO. A present
	// tdo must be verified by the host.
	PulseTCK(tms link.Bit, tdi, tdo link.OptionalBit) (link.Bit, error)
}

// Mode selects what Play runs.
type Mode int

const (
	// ModeSVF executes the vector stream supplied by Host.NextByte.
	ModeSVF Mode = iota
	// ModeScan ignores the byte stream and scans the chain for IDCODEs.
	ModeScan
)

func (m Mode) String() string {
	switch m {
	case ModeSVF:
		return "svf"
	case ModeScan:
		return "scan"
	default:
		return "unknown"
	}
}
