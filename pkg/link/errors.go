package link

import (
	"errors"
	"fmt"
	"strings"
)

// Signal names one of the four JTAG lines.
type Signal uint8

const (
	TCK Signal = iota
	TMS
	TDI
	TDO
)

// Signals lists the lines in the order backends claim them.
var Signals = []Signal{TCK, TMS, TDI, TDO}

var signalNames = [...]string{"TCK", "TMS", "TDI", "TDO"}

func (s Signal) String() string {
	if int(s) < len(signalNames) {
		return signalNames[s]
	}
	return fmt.Sprintf("Signal(%d)", uint8(s))
}

// Error categories. Match them with errors.Is.
var (
	// ErrConfigFailed means a line could not be claimed or reconfigured
	// during INIT. The session cannot continue.
	ErrConfigFailed = errors.New("link: line configuration failed")

	// ErrDriveFailed means a line write or read failed in the middle of an
	// operation.
	ErrDriveFailed = errors.New("link: line drive failed")

	// ErrVerifyMismatch means the sampled TDO differed from the expected
	// value. It is a protocol failure, not a hardware one.
	ErrVerifyMismatch = errors.New("link: TDO verify mismatch")

	// ErrResourceMissing means a required file or device was absent or
	// unusable.
	ErrResourceMissing = errors.New("link: resource missing")

	// ErrTeardownPartial means one or more lines failed to release during
	// FINI. It is reported, never escalated.
	ErrTeardownPartial = errors.New("link: teardown incomplete")
)

// Error carries the failing operation and, when known, the line involved.
// A zero Op marks errors raised outside a protocol operation, such as
// opening a device or file.
type Error struct {
	Op     Op
	Kind   error
	Signal *Signal
	Err    error
}

func (e *Error) Error() string {
	var b strings.Builder
	if e.Op != 0 {
		b.WriteString(e.Op.String())
		if e.Signal != nil {
			b.WriteString(" ")
			b.WriteString(e.Signal.String())
		}
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.Error())
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// ConfigError builds an ErrConfigFailed error for sig.
func ConfigError(sig Signal, err error) error {
	return &Error{Op: OpInit, Kind: ErrConfigFailed, Signal: &sig, Err: err}
}

// DriveError builds an ErrDriveFailed error for sig during op.
func DriveError(op Op, sig Signal, err error) error {
	return &Error{Op: op, Kind: ErrDriveFailed, Signal: &sig, Err: err}
}

// TeardownError builds an ErrTeardownPartial error. It returns nil when err
// is nil so it can wrap errors.Join directly.
func TeardownError(err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: OpFini, Kind: ErrTeardownPartial, Err: err}
}

// MismatchError reports a failed TDO comparison.
func MismatchError(observed, expected Bit) error {
	sig := TDO
	return &Error{
		Op:     OpPulse,
		Kind:   ErrVerifyMismatch,
		Signal: &sig,
		Err:    fmt.Errorf("observed %s, expected %s", observed, expected),
	}
}
