package player

import (
	"errors"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/svf"
)

// host holds the callbacks every mode shares.
type host struct {
	s *Session
}

func (h *host) NextByte() (byte, bool) {
	if h.s.src == nil {
		return 0, false
	}
	return h.s.src.Next()
}

func (h *host) ReportDevice(idcode uint32) {
	s := h.s
	s.devices = append(s.devices, idcode)
	switch {
	case idcode == 0:
		s.log.Debug("bypass-only device", "position", len(s.devices)-1)
	case !s.found:
		s.idcode, s.found = idcode, true
	default:
		s.log.Info("additional device", "position", len(s.devices)-1, "idcode", idcode)
	}
}

func (h *host) ReportError(file string, line int, msg string) {
	r := ErrorReport{File: file, Line: line, Msg: msg}
	h.s.lastErr = &r
	h.s.log.Debug("engine error", "file", file, "line", line, "msg", msg)
	if h.s.onError != nil {
		h.s.onError(r)
	}
}

func (h *host) SetFrequency(hz float64) {
	h.s.log.Debug("frequency request ignored", "hz", hz)
}

// analyzeHost counts clock cycles without hardware. A pulse always
// succeeds and answers with the expected TDO, or low when nothing is
// expected.
type analyzeHost struct {
	host
	count int64
}

var _ svf.Host = (*analyzeHost)(nil)

func (h *analyzeHost) Setup() error {
	src := h.s.src
	if src == nil || src.Len() == 0 {
		return &link.Error{Kind: link.ErrResourceMissing, Err: errors.New("empty SVF source")}
	}
	src.Reset()
	h.count = 0
	return nil
}

func (h *analyzeHost) Shutdown() error { return nil }

func (h *analyzeHost) UDelay(_ int64, _ link.Bit, clocks int64) error {
	if clocks > 0 {
		h.count += clocks
	}
	return nil
}

func (h *analyzeHost) PulseTCK(_ link.Bit, _, tdo link.OptionalBit) (link.Bit, error) {
	h.count++
	if tdo.Valid {
		return tdo.Value, nil
	}
	return link.Low, nil
}

// hardwareHost drives the session's link. Progress is fed by the link's
// clock callback.
type hardwareHost struct {
	host
}

var _ svf.Host = (*hardwareHost)(nil)

func (h *hardwareHost) Setup() error {
	h.s.tracker.Reset(h.s.total)
	if h.s.src != nil {
		h.s.src.Reset()
	}
	return h.s.link.Init()
}

// Shutdown releases the link. A partial teardown has already been logged by
// the link and does not fail the pass.
func (h *hardwareHost) Shutdown() error {
	err := h.s.link.Fini()
	if errors.Is(err, link.ErrTeardownPartial) {
		return nil
	}
	return err
}

func (h *hardwareHost) UDelay(usecs int64, tms link.Bit, clocks int64) error {
	_, err := h.s.link.UDelay(usecs, tms, clocks)
	return err
}

func (h *hardwareHost) PulseTCK(tms link.Bit, tdi, tdo link.OptionalBit) (link.Bit, error) {
	return h.s.link.Pulse(tms, tdi, tdo)
}
