//go:build linux

package jtag

import (
	"log/slog"

	"github.com/stianeikeland/go-rpio/v4"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func openRPIO(cfg Config, logger *slog.Logger) (link.Driver, error) {
	if err := rpio.Open(); err != nil {
		return nil, missing("bcm283x registers: %w", err)
	}
	logger.Debug("bcm283x registers mapped")
	pins := &rpioPins{pins: cfg.Pins}
	return &pinsDriver{Driver: bitbang.New(pins, cfg.bitbangOptions()), close: rpio.Close}, nil
}

// rpioPins drives BCM GPIOs by writing the SoC registers directly. Register
// accesses cannot fail once the block is mapped.
type rpioPins struct {
	pins PinMap
}

func (p *rpioPins) pin(sig link.Signal) rpio.Pin {
	return rpio.Pin(p.pins.Line(sig))
}

func (p *rpioPins) Claim() error {
	for _, sig := range []link.Signal{link.TCK, link.TMS, link.TDI} {
		pin := p.pin(sig)
		pin.Output()
		pin.Low()
	}
	p.pin(link.TDO).Input()
	return nil
}

func (p *rpioPins) Release() error {
	for _, sig := range link.Signals {
		p.pin(sig).Input()
	}
	return nil
}

func (p *rpioPins) Set(sig link.Signal, v link.Bit) error {
	state := rpio.Low
	if v.Bool() {
		state = rpio.High
	}
	p.pin(sig).Write(state)
	return nil
}

func (p *rpioPins) Get(sig link.Signal) (link.Bit, error) {
	return link.BitOf(p.pin(sig).Read() == rpio.High), nil
}
