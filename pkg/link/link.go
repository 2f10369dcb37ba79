package link

import (
	"errors"
	"log/slog"
	"time"
)

// Link is the player-facing side of the protocol. It owns one Driver and
// adds the policy shared by all backends: UDELAY chunking, TDO verification
// and logged, non-fatal teardown. It never retries an operation.
type Link struct {
	drv    Driver
	log    *slog.Logger
	sleep  func(time.Duration)
	onTick func(clocks int64)
	live   bool
}

// New wraps d. A nil logger uses slog.Default().
func New(d Driver, logger *slog.Logger) *Link {
	if logger == nil {
		logger = slog.Default()
	}
	return &Link{drv: d, log: logger, sleep: time.Sleep}
}

// Driver returns the wrapped backend.
func (l *Link) Driver() Driver {
	return l.drv
}

// OnClocks registers fn to be called with the number of TCK cycles completed
// by every UDELAY chunk and every PULSE.
func (l *Link) OnClocks(fn func(clocks int64)) {
	l.onTick = fn
}

func (l *Link) tick(n int64) {
	if l.onTick != nil && n > 0 {
		l.onTick(n)
	}
}

// Init claims the lines. A failure is fatal to the session.
func (l *Link) Init() error {
	var req Request
	if err := l.drv.Init(&req); err != nil {
		l.log.Error("link init failed", "error", err)
		return err
	}
	l.live = true
	l.log.Debug("link initialized")
	return nil
}

// Fini releases the lines. Failures are logged and returned for inspection
// but callers should not treat them as fatal.
func (l *Link) Fini() error {
	if !l.live {
		l.log.Debug("link fini without a live init")
	}
	l.live = false

	var req Request
	err := l.drv.Fini(&req)
	if err != nil {
		l.log.Warn("link teardown incomplete", "error", err)
		if !errors.Is(err, ErrTeardownPartial) {
			err = TeardownError(err)
		}
		return err
	}
	l.log.Debug("link released")
	return nil
}

// UDelay waits usecs microseconds, then clocks TCK clocks times with TMS
// held at tms, split into requests of at most MaxUDelayClocks. It returns
// the number of cycles actually completed, which is less than clocks only
// when err is non-nil.
func (l *Link) UDelay(usecs int64, tms Bit, clocks int64) (int64, error) {
	if usecs > 0 {
		l.sleep(time.Duration(usecs) * time.Microsecond)
	}

	var done int64
	for remaining := clocks; remaining > 0; {
		req := Request{TMS: tms, ClockCount: min(remaining, MaxUDelayClocks)}
		want := req.ClockCount
		err := l.drv.UDelay(&req)
		done += req.ClockCount
		remaining -= req.ClockCount
		l.tick(req.ClockCount)
		if err != nil {
			return done, err
		}
		if req.ClockCount != want {
			return done, &Error{Op: OpUDelay, Kind: ErrDriveFailed,
				Err: errors.New("driver completed fewer cycles than requested")}
		}
	}
	return done, nil
}

// Pulse clocks one TCK cycle and returns the sampled TDO. When expect is
// present, a differing TDO yields an ErrVerifyMismatch error together with
// the observed value.
func (l *Link) Pulse(tms Bit, tdi, expect OptionalBit) (Bit, error) {
	req := Request{TMS: tms, TDI: tdi, TDOExpect: expect}
	if err := l.drv.Pulse(&req); err != nil {
		return req.TDOObserved, err
	}
	l.tick(1)
	if expect.Valid && req.TDOObserved != expect.Value {
		return req.TDOObserved, MismatchError(req.TDOObserved, expect.Value)
	}
	return req.TDOObserved, nil
}
