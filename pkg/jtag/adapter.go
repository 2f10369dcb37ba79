// Package jtag provides the line driver backends behind the link protocol
// and a registry that opens one from a Config.
package jtag

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// Kind selects a backend.
type Kind string

const (
	KindGPIO      Kind = "gpio"
	KindDTGPIO    Kind = "dtgpio"
	KindParport   Kind = "parport"
	KindCdev      Kind = "cdev"
	KindFTDI      Kind = "ftdi"
	KindKSVF      Kind = "ksvf"
	KindCMSISDAP  Kind = "cmsis-dap"
	KindSimulator Kind = "simulator"
)

// Kinds lists every backend in the order they are documented.
var Kinds = []Kind{KindGPIO, KindDTGPIO, KindParport, KindCdev, KindFTDI, KindKSVF, KindCMSISDAP, KindSimulator}

// ParseKind resolves a backend name, ignoring case.
func ParseKind(name string) (Kind, error) {
	for _, k := range Kinds {
		if strings.EqualFold(string(k), name) {
			return k, nil
		}
	}
	return "", fmt.Errorf("jtag: unknown backend %q", name)
}

// GPIO providers for KindGPIO.
const (
	ProviderPeriph = "periph"
	ProviderRPIO   = "rpio"
)

// PinMap holds GPIO line numbers. Their meaning depends on the backend: BCM
// numbers for gpio, chip offsets for cdev.
type PinMap struct {
	TCK int `json:"tck"`
	TMS int `json:"tms"`
	TDI int `json:"tdi"`
	TDO int `json:"tdo"`
}

// Line returns the line number mapped to sig.
func (p PinMap) Line(sig link.Signal) int {
	switch sig {
	case link.TCK:
		return p.TCK
	case link.TMS:
		return p.TMS
	case link.TDI:
		return p.TDI
	default:
		return p.TDO
	}
}

// USBID selects a USB device. A zero Product matches any product of the
// backend's known list.
type USBID struct {
	Vendor  uint16
	Product uint16
	Serial  string
}

// Config selects and parameterizes one backend. It is built once at startup
// and passed to Open.
type Config struct {
	Kind Kind

	// Device is the node the backend opens: a gpiochip for cdev, a parport
	// or ksvf node, or a devicetree node path for dtgpio.
	Device string

	// Provider selects the register access library for KindGPIO.
	Provider string

	Pins   PinMap
	Layout bitbang.Layout
	USB    USBID

	WriteDup int
	ReadDup  int

	// DevicetreeRoot and GPIOSysfsRoot relocate the filesystem trees dtgpio
	// reads. Empty means the live system.
	DevicetreeRoot string
	GPIOSysfsRoot  string

	// ClockHz is the TCK rate requested from probes with a programmable
	// clock. Zero keeps the probe default.
	ClockHz int

	Sim SimConfig
}

func (c Config) bitbangOptions() bitbang.Options {
	return bitbang.Options{WriteDup: c.WriteDup, ReadDup: c.ReadDup}
}

// ErrNotImplemented lets backends signal that they are not available on
// this platform.
var ErrNotImplemented = errors.New("jtag: not implemented")

// Open builds the driver selected by cfg. Opening only resolves and binds
// resources; no line is claimed until the driver's Init.
func Open(cfg Config, logger *slog.Logger) (link.Driver, error) {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("backend", string(cfg.Kind))

	var (
		d   link.Driver
		err error
	)
	switch cfg.Kind {
	case KindGPIO:
		d, err = openGPIO(cfg, logger)
	case KindDTGPIO:
		d, err = openDTGPIO(cfg, logger)
	case KindParport:
		d, err = openParport(cfg, logger)
	case KindCdev:
		d, err = openCdev(cfg, logger)
	case KindFTDI:
		d, err = openFTDI(cfg, logger)
	case KindKSVF:
		d, err = openKSVF(cfg, logger)
	case KindCMSISDAP:
		d, err = openCMSISDAP(cfg, logger)
	case KindSimulator:
		d = NewSimDriver(cfg.Sim)
	default:
		return nil, fmt.Errorf("jtag: unknown backend %q", cfg.Kind)
	}
	if err != nil {
		return nil, err
	}
	logger.Debug("backend opened", "device", cfg.Device)
	return d, nil
}

// Closer is implemented by drivers that hold resources beyond their claimed
// lines, such as an open device node or USB context.
type Closer interface {
	Close() error
}

// Close releases what Open acquired, if anything.
func Close(d link.Driver) error {
	if c, ok := d.(Closer); ok {
		return c.Close()
	}
	return nil
}

func missing(format string, args ...any) error {
	return &link.Error{Kind: link.ErrResourceMissing, Err: fmt.Errorf(format, args...)}
}
