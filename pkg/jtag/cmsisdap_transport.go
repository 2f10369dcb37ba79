package jtag

import (
	"errors"
	"fmt"

	"github.com/google/gousb"
)

const (
	VendorIDRaspberryPi = 0x2E8A
	ProductIDCMSISDAP   = 0x000C

	// DefaultPacketSize is the CMSIS-DAP v1 report size, used until the
	// endpoint descriptor says otherwise.
	DefaultPacketSize = 64
)

var knownCMSISDAPVIDPIDs = []knownUSBDevice{
	{VendorID: VendorIDRaspberryPi, ProductID: ProductIDCMSISDAP, Description: "Raspberry Pi Debug Probe (CMSIS-DAP)"},
	{VendorID: 0x0d28, ProductID: 0x0204, Description: "DAPLink CMSIS-DAP"},
	{VendorID: 0x1366, ProductID: 0x0101, Description: "SEGGER J-Link CMSIS-DAP"},
}

// dapTransport exchanges command and response packets with a probe.
type dapTransport interface {
	Exchange(cmd []byte) ([]byte, error)
	PacketSize() int
	Close() error
}

// usbTransport talks CMSIS-DAP v2 over the probe's vendor-class bulk
// interface.
type usbTransport struct {
	ctx  *gousb.Context
	dev  *gousb.Device
	conf *gousb.Config
	intf *gousb.Interface
	out  *gousb.OutEndpoint
	in   *gousb.InEndpoint

	packetSize int
}

func openUSBTransport(id USBID) (*usbTransport, error) {
	ctx := gousb.NewContext()
	devs, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if id.Vendor != 0 || id.Product != 0 {
			return uint16(desc.Vendor) == id.Vendor && uint16(desc.Product) == id.Product
		}
		_, ok := matchKnown(knownCMSISDAPVIDPIDs, desc)
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
		return nil, missing("no CMSIS-DAP probe found")
	}
	_ = dev.SetAutoDetach(true)

	t := &usbTransport{ctx: ctx, dev: dev, packetSize: DefaultPacketSize}
	if err := t.claim(); err != nil {
		t.Close()
		return nil, missing("%04x:%04x: %w", uint16(dev.Desc.Vendor), uint16(dev.Desc.Product), err)
	}
	return t, nil
}

// claim opens the first vendor-class interface that has a bulk endpoint in
// each direction.
func (t *usbTransport) claim() error {
	conf, err := t.dev.Config(1)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	t.conf = conf

	for _, desc := range conf.Desc.Interfaces {
		if len(desc.AltSettings) == 0 || desc.AltSettings[0].Class != gousb.ClassVendorSpec {
			continue
		}
		var outEP, inEP gousb.EndpointDesc
		for _, ep := range desc.AltSettings[0].Endpoints {
			if ep.TransferType != gousb.TransferTypeBulk {
				continue
			}
			if ep.Direction == gousb.EndpointDirectionOut && outEP.Number == 0 {
				outEP = ep
			}
			if ep.Direction == gousb.EndpointDirectionIn && inEP.Number == 0 {
				inEP = ep
			}
		}
		if outEP.Number == 0 || inEP.Number == 0 {
			continue
		}

		intf, err := conf.Interface(desc.Number, 0)
		if err != nil {
			return fmt.Errorf("claim interface %d: %w", desc.Number, err)
		}
		t.intf = intf
		if t.out, err = intf.OutEndpoint(outEP.Number); err != nil {
			return fmt.Errorf("out endpoint: %w", err)
		}
		if t.in, err = intf.InEndpoint(inEP.Number); err != nil {
			return fmt.Errorf("in endpoint: %w", err)
		}
		if inEP.MaxPacketSize > 0 {
			t.packetSize = inEP.MaxPacketSize
		}
		return nil
	}
	return errors.New("no vendor bulk interface")
}

func (t *usbTransport) Exchange(cmd []byte) ([]byte, error) {
	if len(cmd) > t.packetSize {
		return nil, fmt.Errorf("command of %d bytes exceeds packet size %d", len(cmd), t.packetSize)
	}
	if _, err := t.out.Write(cmd); err != nil {
		return nil, fmt.Errorf("usb write: %w", err)
	}
	resp := make([]byte, t.packetSize)
	n, err := t.in.Read(resp)
	if err != nil {
		return nil, fmt.Errorf("usb read: %w", err)
	}
	return resp[:n], nil
}

func (t *usbTransport) PacketSize() int {
	return t.packetSize
}

func (t *usbTransport) Close() error {
	var errs []error
	if t.intf != nil {
		t.intf.Close()
		t.intf = nil
	}
	if t.conf != nil {
		errs = append(errs, t.conf.Close())
		t.conf = nil
	}
	if t.dev != nil {
		errs = append(errs, t.dev.Close())
		t.dev = nil
	}
	if t.ctx != nil {
		errs = append(errs, t.ctx.Close())
		t.ctx = nil
	}
	return errors.Join(errs...)
}
