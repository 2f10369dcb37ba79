package jtag

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/gousb"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

const (
	VendorIDFTDI = 0x0403

	ftdiReqReset    = 0x00
	ftdiReqBitMode  = 0x0B
	ftdiReqReadPins = 0x0C

	ftdiOut = gousb.ControlVendor | gousb.ControlDevice | gousb.ControlOut
	ftdiIn  = gousb.ControlVendor | gousb.ControlDevice | gousb.ControlIn

	ftdiModeReset        = 0x00
	ftdiModeAsyncBitBang = 0x01

	// Interface A. FTDI control requests address ports from 1.
	ftdiPortA     = 1
	ftdiBulkOutEP = 2
)

var knownFTDIVIDPIDs = []knownUSBDevice{
	{VendorID: VendorIDFTDI, ProductID: 0x6001, Description: "FTDI FT232R"},
	{VendorID: VendorIDFTDI, ProductID: 0x6010, Description: "FTDI FT2232"},
	{VendorID: VendorIDFTDI, ProductID: 0x6011, Description: "FTDI FT4232H"},
	{VendorID: VendorIDFTDI, ProductID: 0x6014, Description: "FTDI FT232H"},
	{VendorID: VendorIDFTDI, ProductID: 0x6015, Description: "FTDI FT-X"},
}

func openFTDI(cfg Config, logger *slog.Logger) (link.Driver, error) {
	port, err := openFTDIPort(cfg.USB, cfg.Layout)
	if err != nil {
		return nil, err
	}
	logger.Debug("ftdi opened", "vid", fmt.Sprintf("%04x", port.vid), "pid", fmt.Sprintf("%04x", port.pid), "mask", fmt.Sprintf("%08b", port.mask))
	pins, err := bitbang.NewRegisterPins(port, cfg.Layout)
	if err != nil {
		port.Close()
		return nil, err
	}
	return &pinsDriver{Driver: bitbang.New(pins, cfg.bitbangOptions()), close: port.Close}, nil
}

// ftdiPort drives an FTDI chip in asynchronous bit-bang mode: every byte
// written to the bulk endpoint appears on the eight data pins, and the pins
// are sampled with a vendor control request.
type ftdiPort struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	conf *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint

	vid, pid uint16
	mask     byte
	enabled  bool
}

// outputMask marks the data pins the layout drives.
func outputMask(l bitbang.Layout) byte {
	var m byte
	for _, bit := range []int{l.TCK, l.TMS, l.TDI, l.OutputEnable, l.InputEnable} {
		if bit >= 0 && bit < 8 {
			m |= 1 << uint(bit)
		}
	}
	return m
}

func openFTDIPort(id USBID, layout bitbang.Layout) (*ftdiPort, error) {
	ctx := gousb.NewContext()

	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if id.Vendor != 0 && uint16(desc.Vendor) != id.Vendor {
			return false
		}
		if id.Product != 0 {
			return uint16(desc.Product) == id.Product
		}
		_, ok := matchKnown(knownFTDIVIDPIDs, desc)
		return ok
	})
	if err != nil && len(devs) == 0 {
		ctx.Close()
		return nil, missing("usb enumerate: %w", err)
	}

	var dev *gousb.Device
	for _, d := range devs {
		if dev == nil && serialMatches(d, id.Serial) {
			dev = d
			continue
		}
		d.Close()
	}
	if dev == nil {
		ctx.Close()
		return nil, missing("no FTDI device found")
	}
	// Not supported on every platform.
	_ = dev.SetAutoDetach(true)

	p := &ftdiPort{
		ctx:  ctx,
		dev:  dev,
		vid:  uint16(dev.Desc.Vendor),
		pid:  uint16(dev.Desc.Product),
		mask: outputMask(layout),
	}
	if p.conf, err = dev.Config(1); err != nil {
		p.Close()
		return nil, missing("usb config: %w", err)
	}
	if p.intf, err = p.conf.Interface(0, 0); err != nil {
		p.Close()
		return nil, missing("claim interface: %w", err)
	}
	if p.out, err = p.intf.OutEndpoint(ftdiBulkOutEP); err != nil {
		p.Close()
		return nil, missing("bulk out endpoint: %w", err)
	}
	if _, err := dev.Control(ftdiOut, ftdiReqReset, 0, ftdiPortA, nil); err != nil {
		p.Close()
		return nil, missing("reset: %w", err)
	}
	return p, nil
}

func serialMatches(d *gousb.Device, want string) bool {
	if want == "" {
		return true
	}
	got, err := d.SerialNumber()
	return err == nil && got == want
}

func (p *ftdiPort) setBitMode(mask, mode byte) error {
	_, err := p.dev.Control(ftdiOut, ftdiReqBitMode, uint16(mask)|uint16(mode)<<8, ftdiPortA, nil)
	return err
}

func (p *ftdiPort) WriteData(b byte) error {
	if !p.enabled {
		if err := p.setBitMode(p.mask, ftdiModeAsyncBitBang); err != nil {
			return fmt.Errorf("enter bit-bang mode: %w", err)
		}
		p.enabled = true
	}
	_, err := p.out.Write([]byte{b})
	return err
}

func (p *ftdiPort) ReadStatus() (byte, error) {
	buf := make([]byte, 1)
	n, err := p.dev.Control(ftdiIn, ftdiReqReadPins, 0, ftdiPortA, buf)
	if err != nil {
		return 0, err
	}
	if n != 1 {
		return 0, fmt.Errorf("read pins returned %d bytes", n)
	}
	return buf[0], nil
}

// Tristate leaves bit-bang mode, which returns every pin to input.
func (p *ftdiPort) Tristate() error {
	if !p.enabled {
		return nil
	}
	p.enabled = false
	return p.setBitMode(0, ftdiModeReset)
}

func (p *ftdiPort) Close() error {
	var errs []error
	if p.intf != nil {
		p.intf.Close()
		p.intf = nil
	}
	if p.conf != nil {
		errs = append(errs, p.conf.Close())
		p.conf = nil
	}
	if p.dev != nil {
		errs = append(errs, p.dev.Close())
		p.dev = nil
	}
	if p.ctx != nil {
		errs = append(errs, p.ctx.Close())
		p.ctx = nil
	}
	return errors.Join(errs...)
}
