package jtag

import (
	"errors"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/tap"
)

// SimDevice is one TAP in a simulated chain. A zero IDCode models a device
// with only a BYPASS register.
type SimDevice struct {
	IDCode   uint32
	IRLength int
}

// SimConfig describes the simulated chain. Devices[0] sits closest to TDO.
type SimConfig struct {
	Devices []SimDevice

	// FailPulse makes the Nth PULSE (1-based) fail with a drive error.
	FailPulse int

	// TDO, when set, replaces the chain model as the source of sampled TDO
	// values. n counts pulses from 1.
	TDO func(n int) link.Bit
}

// SimDevices builds a chain of devices with 4-bit instruction registers.
func SimDevices(ids ...uint32) []SimDevice {
	devs := make([]SimDevice, len(ids))
	for i, id := range ids {
		devs[i] = SimDevice{IDCode: id, IRLength: 4}
	}
	return devs
}

var errInjected = errors.New("injected pulse failure")

// SimDriver is an in-memory link.Driver modelling a chain of TAP controllers.
// It records every TCK edge so tests can inspect what a player did.
type SimDriver struct {
	cfg SimConfig

	OnPulse func(req link.Request)

	state    *tap.StateMachine
	bypass   []bool
	shiftReg []bool
	tdi      link.Bit

	claimed bool

	Inits  int
	Finis  int
	Pulses int
	// Edges counts rising TCK edges from both PULSE and UDELAY.
	Edges int64
	// TMSWrites records the TMS level of every edge.
	TMSWrites []link.Bit
	// Delays records the clock count of every completed UDELAY.
	Delays []int64
}

var _ link.Driver = (*SimDriver)(nil)

// NewSimDriver creates a simulator. The simulated TAP starts in
// Run-Test/Idle with every device selecting its IDCODE register.
func NewSimDriver(cfg SimConfig) *SimDriver {
	s := &SimDriver{
		cfg:   cfg,
		state: tap.NewStateMachine(tap.StateRunTestIdle),
		tdi:   link.High,
	}
	s.selectDefault()
	return s
}

// State reports the simulated TAP state.
func (s *SimDriver) State() tap.State {
	return s.state.State()
}

func (s *SimDriver) Init(*link.Request) error {
	if s.claimed {
		return &link.Error{Op: link.OpInit, Kind: link.ErrConfigFailed, Err: errors.New("already claimed")}
	}
	s.claimed = true
	s.Inits++
	return nil
}

func (s *SimDriver) Fini(*link.Request) error {
	s.Finis++
	if !s.claimed {
		return link.TeardownError(errors.New("not claimed"))
	}
	s.claimed = false
	return nil
}

func (s *SimDriver) UDelay(req *link.Request) error {
	if done, err := link.CheckUDelay(req); done {
		return err
	}
	if !s.claimed {
		req.ClockCount = 0
		return &link.Error{Op: link.OpUDelay, Kind: link.ErrDriveFailed, Err: errors.New("not claimed")}
	}
	for i := int64(0); i < req.ClockCount; i++ {
		s.clock(req.TMS, s.tdi)
	}
	s.Delays = append(s.Delays, req.ClockCount)
	return nil
}

func (s *SimDriver) Pulse(req *link.Request) error {
	if !s.claimed {
		return &link.Error{Op: link.OpPulse, Kind: link.ErrDriveFailed, Err: errors.New("not claimed")}
	}
	s.Pulses++
	if s.cfg.FailPulse > 0 && s.Pulses == s.cfg.FailPulse {
		return link.DriveError(link.OpPulse, link.TCK, errInjected)
	}
	if req.TDI.Valid {
		s.tdi = req.TDI.Value
	}
	tdo := s.clock(req.TMS, s.tdi)
	if s.cfg.TDO != nil {
		tdo = s.cfg.TDO(s.Pulses)
	}
	req.TDOObserved = tdo
	if s.OnPulse != nil {
		s.OnPulse(*req)
	}
	return nil
}

// clock runs one rising edge and returns TDO as seen right after it. TDO
// changes on the falling edge, so the sampled bit is the one that was at the
// chain output before this edge shifted.
func (s *SimDriver) clock(tms, tdi link.Bit) link.Bit {
	s.Edges++
	s.TMSWrites = append(s.TMSWrites, tms)

	tdo := link.High
	switch cur := s.state.State(); cur {
	case tap.StateCaptureDR:
		s.captureDR()
	case tap.StateCaptureIR:
		s.captureIR()
	case tap.StateShiftDR, tap.StateShiftIR:
		if len(s.shiftReg) > 0 {
			tdo = link.BitOf(s.shiftReg[0])
			s.shiftReg = append(s.shiftReg[1:], tdi.Bool())
		} else {
			tdo = tdi
		}
	}

	switch s.state.Clock(tms.Bool()) {
	case tap.StateTestLogicReset:
		s.selectDefault()
	case tap.StateUpdateIR:
		s.updateIR()
	}
	return tdo
}

func (s *SimDriver) selectDefault() {
	s.bypass = make([]bool, len(s.cfg.Devices))
	for i, d := range s.cfg.Devices {
		s.bypass[i] = d.IDCode == 0
	}
}

func (s *SimDriver) captureDR() {
	s.shiftReg = s.shiftReg[:0]
	for i, d := range s.cfg.Devices {
		if s.bypass[i] {
			s.shiftReg = append(s.shiftReg, false)
			continue
		}
		for b := 0; b < 32; b++ {
			s.shiftReg = append(s.shiftReg, d.IDCode&(1<<b) != 0)
		}
	}
}

// captureIR loads the mandatory ...01 pattern into every instruction
// register.
func (s *SimDriver) captureIR() {
	s.shiftReg = s.shiftReg[:0]
	for _, d := range s.cfg.Devices {
		for b := 0; b < max(d.IRLength, 2); b++ {
			s.shiftReg = append(s.shiftReg, b == 0)
		}
	}
}

// updateIR latches each device's instruction. All ones is BYPASS; anything
// else selects the IDCODE register when the device has one.
func (s *SimDriver) updateIR() {
	pos := 0
	for i, d := range s.cfg.Devices {
		n := max(d.IRLength, 2)
		ones := true
		for b := 0; b < n; b++ {
			if pos+b >= len(s.shiftReg) || !s.shiftReg[pos+b] {
				ones = false
				break
			}
		}
		s.bypass[i] = ones || d.IDCode == 0
		pos += n
	}
}
