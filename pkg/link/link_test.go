package link

import (
	"errors"
	"testing"
	"time"
)

// scriptDriver completes every request and records what it was asked.
type scriptDriver struct {
	chunks   []int64
	pulses   []Request
	tdo      Bit
	failAt   int64 // truncate the UDELAY chunk containing this cycle
	seen     int64
	finiErrs int
	inited   bool
}

func (s *scriptDriver) Init(*Request) error {
	s.inited = true
	return nil
}

func (s *scriptDriver) Fini(*Request) error {
	if !s.inited {
		s.finiErrs++
		return TeardownError(errors.New("not claimed"))
	}
	s.inited = false
	return nil
}

func (s *scriptDriver) UDelay(req *Request) error {
	if done, err := CheckUDelay(req); done {
		return err
	}
	s.chunks = append(s.chunks, req.ClockCount)
	if s.failAt > 0 && s.seen+req.ClockCount >= s.failAt {
		req.ClockCount = s.failAt - s.seen - 1
		s.seen += req.ClockCount
		return DriveError(OpUDelay, TCK, errors.New("line stuck"))
	}
	s.seen += req.ClockCount
	return nil
}

func (s *scriptDriver) Pulse(req *Request) error {
	s.pulses = append(s.pulses, *req)
	req.TDOObserved = s.tdo
	return nil
}

func newTestLink(d Driver) (*Link, *[]time.Duration) {
	l := New(d, nil)
	var slept []time.Duration
	l.sleep = func(d time.Duration) { slept = append(slept, d) }
	return l, &slept
}

func TestUDelayChunks(t *testing.T) {
	drv := &scriptDriver{}
	l, slept := newTestLink(drv)

	var ticks int64
	l.OnClocks(func(n int64) { ticks += n })

	done, err := l.UDelay(1500, High, 2*MaxUDelayClocks+5)
	if err != nil {
		t.Fatalf("UDelay returned error: %v", err)
	}
	if done != 2*MaxUDelayClocks+5 || ticks != done {
		t.Fatalf("done = %d, ticks = %d", done, ticks)
	}
	want := []int64{MaxUDelayClocks, MaxUDelayClocks, 5}
	if len(drv.chunks) != len(want) {
		t.Fatalf("chunks = %v, want %v", drv.chunks, want)
	}
	for i := range want {
		if drv.chunks[i] != want[i] {
			t.Fatalf("chunks = %v, want %v", drv.chunks, want)
		}
	}
	if len(*slept) != 1 || (*slept)[0] != 1500*time.Microsecond {
		t.Fatalf("slept = %v, want [1.5ms]", *slept)
	}
}

func TestUDelayZero(t *testing.T) {
	drv := &scriptDriver{}
	l, slept := newTestLink(drv)

	for _, n := range []int64{0, -5} {
		done, err := l.UDelay(0, Low, n)
		if err != nil || done != 0 {
			t.Fatalf("UDelay(%d) = %d, %v", n, done, err)
		}
	}
	if len(drv.chunks) != 0 || len(*slept) != 0 {
		t.Fatalf("zero-length delay reached the driver")
	}
}

func TestUDelayTruncatedOnDriveFailure(t *testing.T) {
	drv := &scriptDriver{failAt: MaxUDelayClocks + 10}
	l, _ := newTestLink(drv)

	done, err := l.UDelay(0, Low, 3*MaxUDelayClocks)
	if !errors.Is(err, ErrDriveFailed) {
		t.Fatalf("UDelay error = %v, want ErrDriveFailed", err)
	}
	if done != MaxUDelayClocks+9 {
		t.Fatalf("done = %d, want %d", done, MaxUDelayClocks+9)
	}
	if len(drv.chunks) != 2 {
		t.Fatalf("driver saw %d chunks after failure, want 2", len(drv.chunks))
	}
}

func TestPulseVerification(t *testing.T) {
	cases := []struct {
		name    string
		tdo     Bit
		expect  OptionalBit
		wantErr error
	}{
		{"dont care low", Low, DontCare, nil},
		{"dont care high", High, DontCare, nil},
		{"match low", Low, Drive(Low), nil},
		{"match high", High, Drive(High), nil},
		{"mismatch", High, Drive(Low), ErrVerifyMismatch},
		{"mismatch inverse", Low, Drive(High), ErrVerifyMismatch},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			drv := &scriptDriver{tdo: tc.tdo}
			l, _ := newTestLink(drv)

			got, err := l.Pulse(Low, Drive(High), tc.expect)
			if tc.wantErr == nil && err != nil {
				t.Fatalf("Pulse returned error: %v", err)
			}
			if tc.wantErr != nil {
				if !errors.Is(err, tc.wantErr) {
					t.Fatalf("Pulse error = %v, want %v", err, tc.wantErr)
				}
				if errors.Is(err, ErrDriveFailed) {
					t.Fatalf("mismatch reported as drive failure")
				}
			}
			if got != tc.tdo {
				t.Fatalf("observed = %s, want %s", got, tc.tdo)
			}
		})
	}
}

func TestFiniTwiceIsReported(t *testing.T) {
	drv := &scriptDriver{}
	l, _ := newTestLink(drv)

	if err := l.Init(); err != nil {
		t.Fatalf("Init returned error: %v", err)
	}
	if err := l.Fini(); err != nil {
		t.Fatalf("Fini returned error: %v", err)
	}
	if err := l.Fini(); !errors.Is(err, ErrTeardownPartial) {
		t.Fatalf("second Fini error = %v, want ErrTeardownPartial", err)
	}
}

func TestDoDispatch(t *testing.T) {
	drv := &scriptDriver{tdo: High}
	req := Request{TMS: High}
	for _, op := range []Op{OpInit, OpPulse, OpUDelay, OpFini} {
		if err := Do(drv, op, &req); err != nil {
			t.Fatalf("Do(%s) returned error: %v", op, err)
		}
	}
	if len(drv.pulses) != 1 || req.TDOObserved != High {
		t.Fatalf("pulse not dispatched: %+v", drv.pulses)
	}
	if err := Do(drv, Op(42), &req); err == nil {
		t.Fatalf("expected error for unknown op")
	}
}

func TestErrorMessageNamesOperation(t *testing.T) {
	err := DriveError(OpPulse, TDI, errors.New("EIO"))
	if got, want := err.Error(), "PULSE TDI: link: line drive failed: EIO"; got != want {
		t.Fatalf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrDriveFailed) {
		t.Fatalf("errors.Is(ErrDriveFailed) = false")
	}
}
