package bitbang

import (
	"errors"
	"fmt"
	"sync"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// Port is an 8-bit output register paired with a status register, such as a
// PC parallel port or an FTDI chip in bit-bang mode.
type Port interface {
	WriteData(b byte) error
	ReadStatus() (byte, error)
}

// Tristater is implemented by ports that can put their outputs into high
// impedance on their own, independent of any cable enable bit.
type Tristater interface {
	Tristate() error
}

// Layout maps JTAG signals to register bits. Negative enable bits are not
// wired.
type Layout struct {
	TCK int `json:"tck"`
	TMS int `json:"tms"`
	TDI int `json:"tdi"`
	TDO int `json:"tdo"` // status register bit

	// OutputEnable is an active-low buffer enable in the data register.
	OutputEnable int `json:"oe"`
	// InputEnable is an active-high receiver enable in the data register.
	InputEnable int `json:"ie"`

	// InvertTDO flips the sampled status bit, for status lines that are
	// inverted by the port hardware.
	InvertTDO bool `json:"invertTdo"`
}

// Validate checks that every bit index fits in a byte.
func (l Layout) Validate() error {
	for name, bit := range map[string]int{"tck": l.TCK, "tms": l.TMS, "tdi": l.TDI, "tdo": l.TDO} {
		if bit < 0 || bit > 7 {
			return fmt.Errorf("bitbang: %s bit %d out of range", name, bit)
		}
	}
	for name, bit := range map[string]int{"oe": l.OutputEnable, "ie": l.InputEnable} {
		if bit > 7 {
			return fmt.Errorf("bitbang: %s bit %d out of range", name, bit)
		}
	}
	return nil
}

// RegisterPins implements Pins over a Port. The current data byte is owned
// by the value and only changed through update, which holds the lock for
// the whole read-modify-write.
type RegisterPins struct {
	port   Port
	layout Layout

	mu   sync.Mutex
	dval byte

	bus sync.Mutex
}

var _ Pins = (*RegisterPins)(nil)
var _ Arbiter = (*RegisterPins)(nil)

// NewRegisterPins binds layout to port.
func NewRegisterPins(port Port, layout Layout) (*RegisterPins, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}
	return &RegisterPins{port: port, layout: layout}, nil
}

// Data returns the last value written to the data register.
func (r *RegisterPins) Data() byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dval
}

func (r *RegisterPins) update(fn func(b byte) byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	next := fn(r.dval)
	if err := r.port.WriteData(next); err != nil {
		return err
	}
	r.dval = next
	return nil
}

func setBit(b byte, bit int, v bool) byte {
	if bit < 0 {
		return b
	}
	if v {
		return b | 1<<uint(bit)
	}
	return b &^ (1 << uint(bit))
}

func (r *RegisterPins) Claim() error {
	err := r.update(func(byte) byte {
		var b byte
		b = setBit(b, r.layout.InputEnable, true)
		b = setBit(b, r.layout.OutputEnable, false)
		return b
	})
	if err != nil {
		return link.ConfigError(link.TCK, err)
	}
	return nil
}

func (r *RegisterPins) Release() error {
	var errs []error
	if r.layout.OutputEnable >= 0 || r.layout.InputEnable >= 0 {
		err := r.update(func(b byte) byte {
			b = setBit(b, r.layout.OutputEnable, true)
			return setBit(b, r.layout.InputEnable, false)
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("disable cable buffers: %w", err))
		}
	}
	if t, ok := r.port.(Tristater); ok {
		if err := t.Tristate(); err != nil {
			errs = append(errs, fmt.Errorf("tristate port: %w", err))
		}
	}
	return errors.Join(errs...)
}

func (r *RegisterPins) bit(sig link.Signal) int {
	switch sig {
	case link.TCK:
		return r.layout.TCK
	case link.TMS:
		return r.layout.TMS
	case link.TDI:
		return r.layout.TDI
	default:
		return -1
	}
}

func (r *RegisterPins) Set(sig link.Signal, v link.Bit) error {
	bit := r.bit(sig)
	if bit < 0 {
		return fmt.Errorf("bitbang: %s is not an output", sig)
	}
	return r.update(func(b byte) byte {
		return setBit(b, bit, v.Bool())
	})
}

func (r *RegisterPins) Get(sig link.Signal) (link.Bit, error) {
	if sig != link.TDO {
		return link.Low, fmt.Errorf("bitbang: %s is not an input", sig)
	}
	status, err := r.port.ReadStatus()
	if err != nil {
		return link.Low, err
	}
	v := status&(1<<uint(r.layout.TDO)) != 0
	if r.layout.InvertTDO {
		v = !v
	}
	return link.BitOf(v), nil
}

// AcquireBus serializes whole operations and, when the port is itself an
// Arbiter, claims the underlying bus.
func (r *RegisterPins) AcquireBus() error {
	r.bus.Lock()
	if arb, ok := r.port.(Arbiter); ok {
		if err := arb.AcquireBus(); err != nil {
			r.bus.Unlock()
			return err
		}
	}
	return nil
}

func (r *RegisterPins) ReleaseBus() error {
	defer r.bus.Unlock()
	if arb, ok := r.port.(Arbiter); ok {
		return arb.ReleaseBus()
	}
	return nil
}
