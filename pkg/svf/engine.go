package svf

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math"
	"strconv"
	"strings"
	"sync"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/tap"
)

var defaultParser = sync.OnceValues(NewParser)

// StatementError ties a failure to the statement that caused it.
type StatementError struct {
	File string
	Line int
	Err  error
}

func (e *StatementError) Error() string {
	return fmt.Sprintf("%s:%d: %v", e.File, e.Line, e.Err)
}

func (e *StatementError) Unwrap() error {
	return e.Err
}

// scanRegister holds the sticky state of one of SIR, SDR, HIR, HDR, TIR
// and TDR.
type scanRegister struct {
	name  string
	n     int
	tdi   bitVector
	mask  bitVector
	smask bitVector

	tdo    bitVector
	hasTDO bool
}

// load applies a scan statement. TDI, MASK and SMASK carry over while the
// length is unchanged; TDO only applies to the statement that names it.
func (r *scanRegister) load(s *Scan) error {
	n, err := strconv.Atoi(s.Length)
	if err != nil {
		return fmt.Errorf("%s: invalid length %q", r.name, s.Length)
	}

	given := map[string]string{}
	for _, f := range s.Fields {
		name := strings.ToUpper(f.Name)
		if _, dup := given[name]; dup {
			return fmt.Errorf("%s: %s given twice", r.name, name)
		}
		given[name] = f.Data
	}

	if n != r.n {
		if _, ok := given["TDI"]; !ok && n > 0 {
			return fmt.Errorf("%s: TDI required when length changes from %d to %d", r.name, r.n, n)
		}
		r.n = n
		r.tdi = newVector(n, false)
		r.mask = newVector(n, true)
		r.smask = newVector(n, true)
	}

	r.hasTDO = false
	for name, data := range given {
		v, err := parseHex(data, n)
		if err != nil {
			return fmt.Errorf("%s %s: %w", r.name, name, err)
		}
		switch name {
		case "TDI":
			r.tdi = v
		case "TDO":
			r.tdo, r.hasTDO = v, true
		case "MASK":
			r.mask = v
		case "SMASK":
			r.smask = v
		}
	}
	return nil
}

// Engine executes SVF statements against a Host. It keeps the TAP state the
// host is believed to be in and is not safe for concurrent use.
type Engine struct {
	host   Host
	file   string
	log    *slog.Logger
	parser *Parser

	tap              *tap.StateMachine
	endDR, endIR     tap.State
	runState, runEnd tap.State
	freq             float64

	sir, sdr, hir, hdr, tir, tdr scanRegister

	statements int
}

// New creates an engine for h. file is only used in error reports.
func New(h Host, file string, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if file == "" {
		file = "-"
	}
	return &Engine{host: h, file: file, log: logger}
}

// Play runs mode against the engine's host with default settings.
func Play(h Host, mode Mode) error {
	return New(h, "", nil).Play(mode)
}

// Play calls Setup, runs mode and, once Setup has succeeded, always calls
// Shutdown. Failures are reported through Host.ReportError and returned.
func (e *Engine) Play(mode Mode) (err error) {
	if e.parser == nil {
		p, perr := defaultParser()
		if perr != nil {
			return perr
		}
		e.parser = p
	}

	if err := e.host.Setup(); err != nil {
		e.host.ReportError(e.file, 0, fmt.Sprintf("setup failed: %v", err))
		return fmt.Errorf("svf: setup: %w", err)
	}
	defer func() {
		if serr := e.host.Shutdown(); serr != nil {
			e.log.Warn("svf shutdown failed", "error", serr)
			if err == nil {
				err = fmt.Errorf("svf: shutdown: %w", serr)
			}
		}
	}()

	e.reset()
	switch mode {
	case ModeSVF:
		err = e.run()
	case ModeScan:
		err = e.scan()
	default:
		err = fmt.Errorf("svf: unknown mode %d", mode)
	}

	if err != nil {
		var serr *StatementError
		if errors.As(err, &serr) {
			e.host.ReportError(serr.File, serr.Line, serr.Err.Error())
		} else {
			e.host.ReportError(e.file, 0, err.Error())
		}
		return err
	}
	e.log.Debug("svf pass complete", "mode", mode, "statements", e.statements)
	return nil
}

func (e *Engine) reset() {
	e.tap = tap.NewStateMachine(tap.StateRunTestIdle)
	e.endDR, e.endIR = tap.StateRunTestIdle, tap.StateRunTestIdle
	e.runState, e.runEnd = tap.StateRunTestIdle, tap.StateRunTestIdle
	e.freq = 0
	e.sir = scanRegister{name: "SIR"}
	e.sdr = scanRegister{name: "SDR"}
	e.hir = scanRegister{name: "HIR"}
	e.hdr = scanRegister{name: "HDR"}
	e.tir = scanRegister{name: "TIR"}
	e.tdr = scanRegister{name: "TDR"}
	e.statements = 0
}

func (e *Engine) run() error {
	sc := newScanner(e.host.NextByte)
	for {
		text, line, err := sc.statement()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return &StatementError{File: e.file, Line: line, Err: err}
		}
		stmt, err := e.parser.ParseStatement(e.file, text)
		if err != nil {
			return &StatementError{File: e.file, Line: line, Err: err}
		}
		if err := e.exec(stmt); err != nil {
			return &StatementError{File: e.file, Line: line, Err: err}
		}
		e.statements++
	}
}

func (e *Engine) exec(s *Statement) error {
	switch {
	case s.EndDR != nil:
		st, err := stableState(s.EndDR.State)
		if err != nil {
			return err
		}
		e.endDR = st
	case s.EndIR != nil:
		st, err := stableState(s.EndIR.State)
		if err != nil {
			return err
		}
		e.endIR = st
	case s.State != nil:
		return e.walkPath(s.State.Path)
	case s.SIR != nil:
		if err := e.sir.load(s.SIR); err != nil {
			return err
		}
		return e.shift(tap.StateShiftIR, e.endIR, &e.hir, &e.sir, &e.tir)
	case s.SDR != nil:
		if err := e.sdr.load(s.SDR); err != nil {
			return err
		}
		return e.shift(tap.StateShiftDR, e.endDR, &e.hdr, &e.sdr, &e.tdr)
	case s.HIR != nil:
		return e.hir.load(s.HIR)
	case s.HDR != nil:
		return e.hdr.load(s.HDR)
	case s.TIR != nil:
		return e.tir.load(s.TIR)
	case s.TDR != nil:
		return e.tdr.load(s.TDR)
	case s.RunTest != nil:
		return e.runTest(s.RunTest)
	case s.Frequency != nil:
		e.freq = 0
		if s.Frequency.Hz != nil {
			e.freq = *s.Frequency.Hz
		}
		e.host.SetFrequency(e.freq)
	case s.TRST != nil:
		mode := strings.ToUpper(s.TRST.Mode)
		if mode == "ON" {
			e.log.Warn("TRST ON ignored, no TRST line")
		} else {
			e.log.Debug("TRST ignored", "mode", mode)
		}
	}
	return nil
}

func stableState(name string) (tap.State, error) {
	st, err := tap.ParseState(name)
	if err != nil {
		return 0, err
	}
	if !st.Stable() {
		return 0, fmt.Errorf("%s is not a stable state", st)
	}
	return st, nil
}

// pulse clocks one cycle and keeps the tracked TAP state in step.
func (e *Engine) pulse(tms link.Bit, tdi, tdo link.OptionalBit) (link.Bit, error) {
	v, err := e.host.PulseTCK(tms, tdi, tdo)
	if err != nil && !errors.Is(err, link.ErrVerifyMismatch) {
		return v, err
	}
	e.tap.Clock(tms.Bool())
	return v, err
}

// walk moves the TAP to target. Walking to RESET always clocks five TMS=1
// cycles.
func (e *Engine) walk(target tap.State) error {
	path, err := e.tap.Path(target)
	if err != nil {
		return err
	}
	for _, bit := range path {
		if _, err := e.pulse(link.BitOf(bit), link.DontCare, link.DontCare); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) walkPath(names []string) error {
	states := make([]tap.State, len(names))
	for i, name := range names {
		st, err := tap.ParseState(name)
		if err != nil {
			return err
		}
		states[i] = st
	}
	if last := states[len(states)-1]; !last.Stable() {
		return fmt.Errorf("STATE must end in a stable state, not %s", last)
	}
	for _, st := range states {
		if err := e.walk(st); err != nil {
			return err
		}
	}
	return nil
}

// shift moves to the shift state, clocks header, body and trailer with TMS
// raised on the final bit, then moves to end. A TDO mismatch does not stop
// the shift so the TAP still reaches end; it is returned afterwards.
func (e *Engine) shift(shiftState, end tap.State, regs ...*scanRegister) error {
	if err := e.walk(shiftState); err != nil {
		return err
	}

	total := 0
	for _, r := range regs {
		total += r.n
	}

	var mismatch error
	k := 0
	for _, r := range regs {
		for i := 0; i < r.n; i++ {
			k++
			tdi := link.DontCare
			if r.smask.bit(i) {
				tdi = link.Drive(link.BitOf(r.tdi.bit(i)))
			}
			expect := link.DontCare
			if r.hasTDO && r.mask.bit(i) {
				expect = link.Drive(link.BitOf(r.tdo.bit(i)))
			}
			_, err := e.pulse(link.BitOf(k == total), tdi, expect)
			if err == nil {
				continue
			}
			if !errors.Is(err, link.ErrVerifyMismatch) {
				return fmt.Errorf("%s bit %d: %w", r.name, i, err)
			}
			if mismatch == nil {
				mismatch = fmt.Errorf("%s bit %d: %w", r.name, i, err)
			}
		}
	}

	if err := e.walk(end); err != nil {
		return err
	}
	return mismatch
}

func (e *Engine) runTest(r *RunTest) error {
	run, end := e.runState, e.runEnd
	if r.RunState != "" {
		st, err := stableState(r.RunState)
		if err != nil {
			return err
		}
		run, end = st, st
	}
	if r.EndState != "" {
		st, err := stableState(r.EndState)
		if err != nil {
			return err
		}
		end = st
	}

	var (
		clocks  int64
		minTime float64
	)
	switch strings.ToUpper(r.Unit) {
	case "TCK":
		clocks = int64(r.Value)
	case "SCK":
		// No system clock is available; wait the equivalent time instead.
		if e.freq > 0 {
			minTime = r.Value / e.freq
		}
	case "SEC":
		if r.MinTime != nil {
			return errors.New("RUNTEST: min_time given twice")
		}
		minTime = r.Value
	}
	if r.MinTime != nil {
		minTime = max(minTime, *r.MinTime)
	}
	e.runState, e.runEnd = run, end

	if e.tap.State() != run {
		if err := e.walk(run); err != nil {
			return err
		}
	}
	// Round up to whole microseconds, ignoring float noise from the decimal
	// exponent form.
	usecs := int64(math.Ceil(minTime*1e6 - 1e-9))
	if err := e.host.UDelay(usecs, link.BitOf(run.HoldTMS()), clocks); err != nil {
		return err
	}
	if e.tap.State() != end {
		return e.walk(end)
	}
	return nil
}
