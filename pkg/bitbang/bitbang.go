// Package bitbang implements the link protocol by sequencing individual line
// writes and reads in software. Backends only supply a Pins substrate.
package bitbang

import (
	"errors"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// Pins is the line-level substrate of a bit-banged link.
type Pins interface {
	// Claim makes TCK, TMS and TDI outputs and TDO an input. Errors should
	// be built with link.ConfigError so the failing line is named.
	Claim() error
	// Release returns every line to input. It must attempt all lines and
	// join the failures.
	Release() error
	Set(sig link.Signal, v link.Bit) error
	Get(sig link.Signal) (link.Bit, error)
}

// Arbiter is implemented by Pins living on a bus shared with other
// consumers. AcquireBus is called before every operation and ReleaseBus
// after it, on every exit path.
type Arbiter interface {
	AcquireBus() error
	ReleaseBus() error
}

// Options tunes the driver. Zero values mean one access per line operation.
type Options struct {
	// WriteDup and ReadDup repeat every line write and read to slow down
	// links that are too fast for the target. Only settling time changes.
	WriteDup int
	ReadDup  int
}

// Driver is a link.Driver over Pins.
type Driver struct {
	pins    Pins
	wrDup   int
	rdDup   int
	claimed bool
}

var _ link.Driver = (*Driver)(nil)

// New creates a driver for pins.
func New(pins Pins, opts Options) *Driver {
	return &Driver{
		pins:  pins,
		wrDup: max(opts.WriteDup, 1),
		rdDup: max(opts.ReadDup, 1),
	}
}

// Claimed reports whether Init has succeeded without a later Fini.
func (d *Driver) Claimed() bool {
	return d.claimed
}

var (
	errAlreadyClaimed = errors.New("lines already claimed")
	errNotClaimed     = errors.New("lines not claimed")
)

func (d *Driver) Init(req *link.Request) (err error) {
	if d.claimed {
		return &link.Error{Op: link.OpInit, Kind: link.ErrConfigFailed, Err: errAlreadyClaimed}
	}
	if err := d.acquire(link.OpInit, link.ErrConfigFailed); err != nil {
		return err
	}
	defer d.release(&err)

	if err := d.pins.Claim(); err != nil {
		// Claim may have configured some lines before failing.
		_ = d.pins.Release()
		return asKind(link.OpInit, link.ErrConfigFailed, err)
	}
	if err := d.set(link.TCK, link.High); err != nil {
		_ = d.pins.Release()
		return link.ConfigError(link.TCK, err)
	}
	d.claimed = true
	return nil
}

func (d *Driver) Fini(req *link.Request) (err error) {
	if !d.claimed {
		return link.TeardownError(errNotClaimed)
	}
	d.claimed = false
	if err := d.acquire(link.OpFini, link.ErrTeardownPartial); err != nil {
		return err
	}
	defer d.release(&err)

	return link.TeardownError(d.pins.Release())
}

func (d *Driver) UDelay(req *link.Request) (err error) {
	if done, err := link.CheckUDelay(req); done {
		return err
	}
	if !d.claimed {
		req.ClockCount = 0
		return &link.Error{Op: link.OpUDelay, Kind: link.ErrDriveFailed, Err: errNotClaimed}
	}
	if err := d.acquire(link.OpUDelay, link.ErrDriveFailed); err != nil {
		req.ClockCount = 0
		return err
	}
	defer d.release(&err)

	if err := d.set(link.TMS, req.TMS); err != nil {
		req.ClockCount = 0
		return link.DriveError(link.OpUDelay, link.TMS, err)
	}

	var n int64
	for n = 0; n < req.ClockCount; n++ {
		if err := d.set(link.TCK, link.Low); err != nil {
			req.ClockCount = n
			return link.DriveError(link.OpUDelay, link.TCK, err)
		}
		if err := d.set(link.TCK, link.High); err != nil {
			req.ClockCount = n
			return link.DriveError(link.OpUDelay, link.TCK, err)
		}
	}
	req.ClockCount = n
	return nil
}

func (d *Driver) Pulse(req *link.Request) (err error) {
	if !d.claimed {
		return &link.Error{Op: link.OpPulse, Kind: link.ErrDriveFailed, Err: errNotClaimed}
	}
	if err := d.acquire(link.OpPulse, link.ErrDriveFailed); err != nil {
		return err
	}
	defer d.release(&err)

	if err := d.set(link.TMS, req.TMS); err != nil {
		return link.DriveError(link.OpPulse, link.TMS, err)
	}
	if req.TDI.Valid {
		if err := d.set(link.TDI, req.TDI.Value); err != nil {
			return link.DriveError(link.OpPulse, link.TDI, err)
		}
	}
	if err := d.set(link.TCK, link.Low); err != nil {
		return link.DriveError(link.OpPulse, link.TCK, err)
	}
	if err := d.set(link.TCK, link.High); err != nil {
		return link.DriveError(link.OpPulse, link.TCK, err)
	}
	tdo, err := d.get(link.TDO)
	if err != nil {
		return link.DriveError(link.OpPulse, link.TDO, err)
	}
	req.TDOObserved = tdo
	return nil
}

func (d *Driver) set(sig link.Signal, v link.Bit) error {
	for i := 0; i < d.wrDup; i++ {
		if err := d.pins.Set(sig, v); err != nil {
			return err
		}
	}
	return nil
}

func (d *Driver) get(sig link.Signal) (link.Bit, error) {
	var (
		v   link.Bit
		err error
	)
	for i := 0; i < d.rdDup; i++ {
		if v, err = d.pins.Get(sig); err != nil {
			return v, err
		}
	}
	return v, nil
}

func (d *Driver) acquire(op link.Op, kind error) error {
	arb, ok := d.pins.(Arbiter)
	if !ok {
		return nil
	}
	if err := arb.AcquireBus(); err != nil {
		return &link.Error{Op: op, Kind: kind, Err: err}
	}
	return nil
}

// release gives the bus back and reports a release failure only when the
// operation itself succeeded.
func (d *Driver) release(opErr *error) {
	arb, ok := d.pins.(Arbiter)
	if !ok {
		return
	}
	if err := arb.ReleaseBus(); err != nil && *opErr == nil {
		*opErr = err
	}
}

func asKind(op link.Op, kind, err error) error {
	if errors.Is(err, kind) {
		return err
	}
	return &link.Error{Op: op, Kind: kind, Err: err}
}
