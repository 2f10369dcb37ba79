//go:build freebsd

package jtag

import (
	"log/slog"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func openKSVF(cfg Config, logger *slog.Logger) (link.Driver, error) {
	dev := cfg.Device
	if dev == "" {
		dev = "/dev/ksvf0"
	}
	fd, err := openNode(dev, unix.O_RDONLY)
	if err != nil {
		return nil, err
	}
	logger.Debug("ksvf node opened", "device", dev)
	return &ksvfDriver{fd: fd}, nil
}

// ksvfDriver hands every operation to the ksvf kernel driver, which does
// the line sequencing and I/O duplication itself.
type ksvfDriver struct {
	fd int
}

func (d *ksvfDriver) do(num uint, req *link.Request) error {
	k := toKsvf(req)
	if err := ioctl(d.fd, num, unsafe.Pointer(&k)); err != nil {
		return err
	}
	fromKsvf(k, req)
	return nil
}

func (d *ksvfDriver) Init(req *link.Request) error {
	if err := d.do(ksvfInit, req); err != nil {
		return &link.Error{Op: link.OpInit, Kind: link.ErrConfigFailed, Err: err}
	}
	return nil
}

func (d *ksvfDriver) Fini(req *link.Request) error {
	if err := d.do(ksvfFini, req); err != nil {
		return link.TeardownError(err)
	}
	return nil
}

func (d *ksvfDriver) UDelay(req *link.Request) error {
	if done, err := link.CheckUDelay(req); done {
		return err
	}
	if err := d.do(ksvfUDelay, req); err != nil {
		// The kernel does not report how far it got.
		req.ClockCount = 0
		return link.DriveError(link.OpUDelay, link.TCK, err)
	}
	return nil
}

func (d *ksvfDriver) Pulse(req *link.Request) error {
	if err := d.do(ksvfPulse, req); err != nil {
		return link.DriveError(link.OpPulse, link.TCK, err)
	}
	return nil
}

func (d *ksvfDriver) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := unix.Close(d.fd)
	d.fd = -1
	return err
}
