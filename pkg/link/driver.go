package link

import "fmt"

// Driver is implemented by every line driver backend. Each method takes the
// request, performs one protocol operation against the hardware and writes
// its outputs back into the same request.
//
// Init claims the lines and leaves TCK high. Fini releases all of them,
// attempting every line even after a failure. UDelay sets TMS once and then
// toggles TCK ClockCount times, writing back the completed count. Pulse sets
// TMS and, when present, TDI, toggles TCK once and stores the sampled TDO in
// TDOObserved. Drivers do not compare TDO; Link does.
type Driver interface {
	Init(req *Request) error
	Fini(req *Request) error
	UDelay(req *Request) error
	Pulse(req *Request) error
}

// Do dispatches op to the matching Driver method.
func Do(d Driver, op Op, req *Request) error {
	switch op {
	case OpInit:
		return d.Init(req)
	case OpFini:
		return d.Fini(req)
	case OpUDelay:
		return d.UDelay(req)
	case OpPulse:
		return d.Pulse(req)
	default:
		return fmt.Errorf("link: unknown operation %s", op)
	}
}

// CheckUDelay validates an UDELAY request on behalf of a driver. It returns
// done=true when the request is a no-op, in which case ClockCount has been
// set to zero.
func CheckUDelay(req *Request) (done bool, err error) {
	if req.ClockCount <= 0 {
		req.ClockCount = 0
		return true, nil
	}
	if req.ClockCount > MaxUDelayClocks {
		n := req.ClockCount
		req.ClockCount = 0
		return true, &Error{
			Op:   OpUDelay,
			Kind: ErrDriveFailed,
			Err:  fmt.Errorf("%d clocks exceeds per-request limit of %d", n, MaxUDelayClocks),
		}
	}
	return false, nil
}
