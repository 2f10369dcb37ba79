package config

import (
	"fmt"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// Overrides are command-line values that replace profile values. Empty
// strings and nil pointers keep the profile value.
type Overrides struct {
	Backend  string
	Device   string
	Provider string
	Serial   string

	TCK, TMS, TDI, TDO *int

	WriteDup *int
	ReadDup  *int
	ClockHz  *int

	SimIDs       []uint32
	SimFailPulse int
}

func configError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalid, fmt.Sprintf(format, args...))
}

// Resolve merges b and ov into the configuration jtag.Open takes.
func Resolve(b Board, ov Overrides) (jtag.Config, error) {
	backend := b.Backend
	if ov.Backend != "" {
		backend = ov.Backend
	}
	kind, err := jtag.ParseKind(backend)
	if err != nil {
		return jtag.Config{}, fmt.Errorf("%w: %w", ErrInvalid, err)
	}

	cfg := jtag.Config{
		Kind:     kind,
		Device:   pick(ov.Device, b.Device),
		Provider: pick(ov.Provider, b.Provider),
		WriteDup: b.WriteDup,
		ReadDup:  b.ReadDup,
		ClockHz:  b.ClockHz,
	}

	pinsSet := b.Pins != nil
	if b.Pins != nil {
		cfg.Pins = *b.Pins
	}
	for _, o := range []struct {
		v   *int
		dst *int
	}{
		{ov.TCK, &cfg.Pins.TCK},
		{ov.TMS, &cfg.Pins.TMS},
		{ov.TDI, &cfg.Pins.TDI},
		{ov.TDO, &cfg.Pins.TDO},
	} {
		if o.v != nil {
			*o.dst = *o.v
		}
	}
	if !pinsSet && ov.TCK != nil && ov.TMS != nil && ov.TDI != nil && ov.TDO != nil {
		pinsSet = true
	}
	if (kind == jtag.KindGPIO || kind == jtag.KindCdev) && !pinsSet {
		return jtag.Config{}, configError("%s backend needs --tck, --tms, --tdi and --tdo", kind)
	}
	if err := checkPins(cfg.Pins); err != nil && pinsSet {
		return jtag.Config{}, err
	}

	if ov.WriteDup != nil {
		cfg.WriteDup = *ov.WriteDup
	}
	if ov.ReadDup != nil {
		cfg.ReadDup = *ov.ReadDup
	}
	if cfg.WriteDup < 0 || cfg.ReadDup < 0 {
		return jtag.Config{}, configError("duplication counts must not be negative")
	}
	if ov.ClockHz != nil {
		cfg.ClockHz = *ov.ClockHz
	}

	switch {
	case b.Layout != nil:
		cfg.Layout = *b.Layout
	case kind == jtag.KindParport:
		cfg.Layout = jtag.DefaultParportLayout
	case kind == jtag.KindFTDI:
		cfg.Layout = jtag.DefaultFTDILayout
	}

	if b.USB != nil {
		cfg.USB = jtag.USBID{Vendor: uint16(b.USB.Vendor), Product: uint16(b.USB.Product), Serial: b.USB.Serial}
	}
	if ov.Serial != "" {
		cfg.USB.Serial = ov.Serial
	}

	cfg.Sim = jtag.SimConfig{Devices: jtag.SimDevices(ov.SimIDs...), FailPulse: ov.SimFailPulse}
	return cfg, nil
}

// checkPins rejects a map that drives two signals on one line.
func checkPins(p jtag.PinMap) error {
	seen := make(map[int]link.Signal)
	for _, sig := range link.Signals {
		line := p.Line(sig)
		if line < 0 {
			return configError("%s line %d is negative", sig, line)
		}
		if prev, ok := seen[line]; ok {
			return configError("%s and %s both use line %d", prev, sig, line)
		}
		seen[line] = sig
	}
	return nil
}

func pick(override, profile string) string {
	if override != "" {
		return override
	}
	return profile
}
