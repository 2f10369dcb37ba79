package jtag

import (
	"errors"
	"fmt"
	"log/slog"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// pinsDriver is a bit-banged driver that also owns resources to free when
// the backend is closed.
type pinsDriver struct {
	*bitbang.Driver
	close func() error
}

func (d *pinsDriver) Close() error {
	if d.close == nil {
		return nil
	}
	return d.close()
}

func openGPIO(cfg Config, logger *slog.Logger) (link.Driver, error) {
	switch cfg.Provider {
	case "", ProviderPeriph:
		return openPeriph(cfg, logger)
	case ProviderRPIO:
		return openRPIO(cfg, logger)
	default:
		return nil, fmt.Errorf("jtag: unknown gpio provider %q", cfg.Provider)
	}
}

func openPeriph(cfg Config, logger *slog.Logger) (link.Driver, error) {
	state, err := host.Init()
	if err != nil {
		return nil, missing("periph host init: %w", err)
	}
	logger.Debug("periph drivers loaded", "loaded", len(state.Loaded), "failed", len(state.Failed))
	pins := &periphPins{pins: cfg.Pins, byName: gpioreg.ByName}
	return &pinsDriver{Driver: bitbang.New(pins, cfg.bitbangOptions())}, nil
}

// periphPins drives numbered GPIOs through the periph registry.
type periphPins struct {
	pins   PinMap
	byName func(string) gpio.PinIO
	lines  [4]gpio.PinIO
}

func (p *periphPins) Claim() error {
	for _, sig := range link.Signals {
		name := fmt.Sprintf("GPIO%d", p.pins.Line(sig))
		pin := p.byName(name)
		if pin == nil {
			return link.ConfigError(sig, fmt.Errorf("no pin named %s", name))
		}
		var err error
		if sig == link.TDO {
			err = pin.In(gpio.PullNoChange, gpio.NoEdge)
		} else {
			err = pin.Out(gpio.Low)
		}
		if err != nil {
			return link.ConfigError(sig, err)
		}
		p.lines[sig] = pin
	}
	return nil
}

func (p *periphPins) Release() error {
	var errs []error
	for i, pin := range p.lines {
		if pin == nil {
			continue
		}
		if err := pin.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", link.Signal(i), err))
		}
		p.lines[i] = nil
	}
	return errors.Join(errs...)
}

func (p *periphPins) Set(sig link.Signal, v link.Bit) error {
	pin := p.lines[sig]
	if pin == nil {
		return fmt.Errorf("%s not claimed", sig)
	}
	return pin.Out(gpio.Level(v.Bool()))
}

func (p *periphPins) Get(sig link.Signal) (link.Bit, error) {
	pin := p.lines[sig]
	if pin == nil {
		return link.Low, fmt.Errorf("%s not claimed", sig)
	}
	return link.BitOf(pin.Read() == gpio.High), nil
}
