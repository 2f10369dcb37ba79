//go:build linux

package jtag

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/warthog618/go-gpiocdev"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

const consumer = "svfload"

func openCdev(cfg Config, logger *slog.Logger) (link.Driver, error) {
	chip := cfg.Device
	if chip == "" {
		chip = "gpiochip0"
	}
	chip = filepath.Base(chip)

	var lines [4]gpioLine
	for _, sig := range link.Signals {
		lines[sig] = gpioLine{Chip: chip, Offset: cfg.Pins.Line(sig)}
	}
	logger.Debug("cdev lines", "chip", chip, "tck", cfg.Pins.TCK, "tms", cfg.Pins.TMS, "tdi", cfg.Pins.TDI, "tdo", cfg.Pins.TDO)
	return bitbang.New(&cdevPins{lines: lines}, cfg.bitbangOptions()), nil
}

func openDTGPIO(cfg Config, logger *slog.Logger) (link.Driver, error) {
	lines, err := newDTResolver(cfg).resolve(cfg.Device)
	if err != nil {
		return nil, err
	}
	for _, sig := range link.Signals {
		logger.Debug("devicetree line", "signal", sig.String(), "line", lines[sig].String(), "activeLow", lines[sig].ActiveLow)
	}
	return bitbang.New(&cdevPins{lines: lines}, cfg.bitbangOptions()), nil
}

// cdevPins holds one line request per signal on the GPIO character device.
type cdevPins struct {
	lines [4]gpioLine
	reqs  [4]*gpiocdev.Line
}

func (p *cdevPins) Claim() error {
	for _, sig := range link.Signals {
		line := p.lines[sig]
		opts := []gpiocdev.LineReqOption{gpiocdev.WithConsumer(consumer)}
		if line.ActiveLow {
			opts = append(opts, gpiocdev.AsActiveLow)
		}
		if sig == link.TDO {
			opts = append(opts, gpiocdev.AsInput)
		} else {
			opts = append(opts, gpiocdev.AsOutput(0))
		}
		l, err := gpiocdev.RequestLine(line.Chip, line.Offset, opts...)
		if err != nil {
			return link.ConfigError(sig, fmt.Errorf("request %s: %w", line, err))
		}
		p.reqs[sig] = l
	}
	return nil
}

// Release turns every output back into an input before giving up its
// request.
func (p *cdevPins) Release() error {
	var errs []error
	for i, l := range p.reqs {
		if l == nil {
			continue
		}
		sig := link.Signal(i)
		if sig != link.TDO {
			if err := l.Reconfigure(gpiocdev.AsInput); err != nil {
				errs = append(errs, fmt.Errorf("%s to input: %w", sig, err))
			}
		}
		if err := l.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s close: %w", sig, err))
		}
		p.reqs[i] = nil
	}
	return errors.Join(errs...)
}

func (p *cdevPins) Set(sig link.Signal, v link.Bit) error {
	l := p.reqs[sig]
	if l == nil {
		return fmt.Errorf("%s not claimed", sig)
	}
	return l.SetValue(int(v))
}

func (p *cdevPins) Get(sig link.Signal) (link.Bit, error) {
	l := p.reqs[sig]
	if l == nil {
		return link.Low, fmt.Errorf("%s not claimed", sig)
	}
	v, err := l.Value()
	if err != nil {
		return link.Low, err
	}
	return link.BitOf(v != 0), nil
}

func listGPIOChips() []InterfaceInfo {
	var results []InterfaceInfo
	for _, name := range gpiocdev.Chips() {
		info := InterfaceInfo{Kind: KindCdev, Description: "GPIO character device", Path: "/dev/" + name}
		if c, err := gpiocdev.NewChip(name); err == nil {
			info.Description = fmt.Sprintf("GPIO %s (%d lines)", c.Label, c.Lines())
			c.Close()
		}
		results = append(results, info)
	}
	return results
}
