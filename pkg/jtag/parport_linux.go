//go:build linux

package jtag

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// ppdev ioctls from linux/ppdev.h.
const (
	ppRStatus = 0x80017081
	ppWData   = 0x40017086
	ppClaim   = 0x708b
	ppRelease = 0x708c
)

func openParport(cfg Config, logger *slog.Logger) (link.Driver, error) {
	dev := cfg.Device
	if dev == "" {
		dev = "/dev/parport0"
	}
	fd, err := openNode(dev, unix.O_RDWR)
	if err != nil {
		return nil, err
	}
	drv, err := newParportDriver(&ppdevPort{fd: fd, ioctl: ioctl}, cfg)
	if err != nil {
		unix.Close(fd)
		return nil, err
	}
	logger.Debug("parport opened", "device", dev)
	return drv, nil
}

func newParportDriver(port *ppdevPort, cfg Config) (*pinsDriver, error) {
	pins, err := bitbang.NewRegisterPins(port, cfg.Layout)
	if err != nil {
		return nil, err
	}
	return &pinsDriver{Driver: bitbang.New(pins, cfg.bitbangOptions()), close: port.Close}, nil
}

// ppdevPort is a parallel port reached through ppdev. The port is never
// opened exclusively; it is claimed only for the duration of one link
// operation so other drivers can share it in between.
type ppdevPort struct {
	fd    int
	ioctl func(fd int, req uint, arg unsafe.Pointer) error
}

func (p *ppdevPort) WriteData(b byte) error {
	return p.ioctl(p.fd, ppWData, unsafe.Pointer(&b))
}

func (p *ppdevPort) ReadStatus() (byte, error) {
	var b byte
	err := p.ioctl(p.fd, ppRStatus, unsafe.Pointer(&b))
	return b, err
}

func (p *ppdevPort) AcquireBus() error { return p.ioctl(p.fd, ppClaim, nil) }
func (p *ppdevPort) ReleaseBus() error { return p.ioctl(p.fd, ppRelease, nil) }

func (p *ppdevPort) Close() error {
	if p.fd < 0 {
		return nil
	}
	err := unix.Close(p.fd)
	p.fd = -1
	return err
}
