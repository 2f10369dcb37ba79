// Package player runs the three svfload modes. Each mode is an svf.Host:
// analyze counts clock cycles in software, while idcode and play drive a
// link.
package player

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/progress"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/svf"
)

// Mode selects what a session does. Modes are mutually exclusive.
type Mode int

const (
	ModeAnalyze Mode = iota + 1
	ModeIDCode
	ModePlay
)

func (m Mode) String() string {
	switch m {
	case ModeAnalyze:
		return "analyze"
	case ModeIDCode:
		return "idcode"
	case ModePlay:
		return "play"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Source is the vector stream a session reads. svffile.Source implements
// it.
type Source interface {
	Name() string
	Len() int
	Next() (byte, bool)
	Reset()
}

// ErrorReport is a failure reported by the engine at a source position.
type ErrorReport struct {
	File string
	Line int
	Msg  string
}

func (r ErrorReport) String() string {
	return fmt.Sprintf("Error: file = %s, line = %d, (%s)", r.File, r.Line, r.Msg)
}

// ErrNoIDCode means a scan completed without any device reporting an
// IDCODE.
var ErrNoIDCode = errors.New("player: no device reported an IDCODE")

// Config wires a session. Link is required by IDCode and Play, Source by
// Analyze and Play.
type Config struct {
	Link   *link.Link
	Source Source

	// OnProgress receives play progress reports.
	OnProgress func(progress.Report)
	// OnError receives every engine error report.
	OnError func(ErrorReport)

	Logger *slog.Logger
}

// Session holds the state of one player run. It is single-threaded.
type Session struct {
	link    *link.Link
	src     Source
	log     *slog.Logger
	onError func(ErrorReport)

	tracker *progress.Tracker
	total   int64

	idcode  uint32
	found   bool
	devices []uint32
	lastErr *ErrorReport
}

// NewSession creates a session from cfg.
func NewSession(cfg Config) *Session {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		link:    cfg.Link,
		src:     cfg.Source,
		log:     logger,
		onError: cfg.OnError,
		tracker: progress.New(cfg.OnProgress, logger),
	}
	if s.link != nil {
		s.link.OnClocks(s.tracker.Add)
	}
	return s
}

// Total is the clock count found by the last analyze pass.
func (s *Session) Total() int64 { return s.total }

// Count is the number of clock cycles driven by the last play pass.
func (s *Session) Count() int64 { return s.tracker.Count() }

// Devices lists every device reported by the last scan, bypass-only
// devices as zero.
func (s *Session) Devices() []uint32 { return s.devices }

// LastError returns the last error the engine reported, if any.
func (s *Session) LastError() (ErrorReport, bool) {
	if s.lastErr == nil {
		return ErrorReport{}, false
	}
	return *s.lastErr, true
}

func (s *Session) fileName() string {
	if s.src == nil {
		return ""
	}
	return s.src.Name()
}

func (s *Session) play(h svf.Host, mode svf.Mode) error {
	s.lastErr = nil
	return svf.New(h, s.fileName(), s.log).Play(mode)
}

func requireSource(s *Session, mode Mode) error {
	if s.src == nil {
		return &link.Error{Kind: link.ErrResourceMissing, Err: fmt.Errorf("%s requires an SVF file", mode)}
	}
	return nil
}

func requireLink(s *Session, mode Mode) error {
	if s.link == nil {
		return &link.Error{Kind: link.ErrResourceMissing, Err: fmt.Errorf("%s requires a JTAG device", mode)}
	}
	return nil
}

// Run executes mode.
func (s *Session) Run(mode Mode) error {
	switch mode {
	case ModeAnalyze:
		_, err := s.Analyze()
		return err
	case ModeIDCode:
		_, err := s.ReadIDCode()
		return err
	case ModePlay:
		return s.Play()
	default:
		return fmt.Errorf("player: unknown mode %s", mode)
	}
}

// Analyze walks the whole source in software and returns the number of
// clock cycles a play pass would drive. No hardware is touched.
func (s *Session) Analyze() (int64, error) {
	if err := requireSource(s, ModeAnalyze); err != nil {
		return 0, err
	}
	h := &analyzeHost{host: host{s: s}}
	if err := s.play(h, svf.ModeSVF); err != nil {
		return 0, err
	}
	s.total = h.count
	s.log.Debug("analyze complete", "file", s.fileName(), "clocks", s.total)
	return s.total, nil
}

// ReadIDCode scans the chain and returns the first IDCODE reported. Further
// devices are logged and available from Devices.
func (s *Session) ReadIDCode() (uint32, error) {
	if err := requireLink(s, ModeIDCode); err != nil {
		return 0, err
	}
	s.idcode, s.found, s.devices = 0, false, nil
	if err := s.play(&hardwareHost{host: host{s: s}}, svf.ModeScan); err != nil {
		return 0, err
	}
	if !s.found {
		return 0, ErrNoIDCode
	}
	return s.idcode, nil
}

// Play runs an analyze pass to size progress reporting, then replays the
// source from the start against the link. A failing analyze pass aborts
// before the link is initialized.
func (s *Session) Play() error {
	if err := requireSource(s, ModePlay); err != nil {
		return err
	}
	if err := requireLink(s, ModePlay); err != nil {
		return err
	}
	if _, err := s.Analyze(); err != nil {
		return fmt.Errorf("analyze: %w", err)
	}
	return s.play(&hardwareHost{host: host{s: s}}, svf.ModeSVF)
}
