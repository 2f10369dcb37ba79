package jtag

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"

	"github.com/google/gousb"
)

// InterfaceInfo describes a detected link.
type InterfaceInfo struct {
	Kind        Kind
	Description string
	VendorID    uint16
	ProductID   uint16
	Serial      string
	Path        string
}

// Label returns a user-friendly description for the interface.
func (i InterfaceInfo) Label() string {
	switch {
	case i.Description != "" && i.Path != "":
		return fmt.Sprintf("%s (%s)", i.Description, i.Path)
	case i.Description != "":
		return i.Description
	case i.Path != "":
		return fmt.Sprintf("%s %s", i.Kind, i.Path)
	default:
		return fmt.Sprintf("%s (%04X:%04X)", i.Kind, i.VendorID, i.ProductID)
	}
}

// DiscoverInterfaces lists gpiochips, parallel ports, ksvf nodes and known
// USB probes. It always returns the simulator entry so the player can be
// exercised without hardware. USB enumeration failures are returned along
// with whatever was found.
func DiscoverInterfaces(ctx context.Context) ([]InterfaceInfo, error) {
	results := listGPIOChips()
	results = append(results, discoverNodes("/dev")...)

	usb, err := discoverUSB(ctx)
	results = append(results, usb...)

	results = append(results, InterfaceInfo{
		Kind:        KindSimulator,
		Description: "Simulator (no hardware)",
	})
	return results, err
}

var nodePatterns = []struct {
	glob string
	kind Kind
	desc string
}{
	{"parport[0-9]*", KindParport, "Parallel port"},
	{"ksvf[0-9]*", KindKSVF, "ksvf GPIO node"},
	{"lpksvf[0-9]*", KindKSVF, "ksvf parallel-port node"},
}

func discoverNodes(root string) []InterfaceInfo {
	var results []InterfaceInfo
	for _, p := range nodePatterns {
		matches, _ := filepath.Glob(filepath.Join(root, p.glob))
		sort.Strings(matches)
		for _, m := range matches {
			results = append(results, InterfaceInfo{Kind: p.kind, Description: p.desc, Path: m})
		}
	}
	return results
}

func discoverUSB(ctx context.Context) ([]InterfaceInfo, error) {
	var results []InterfaceInfo
	usb := gousb.NewContext()
	defer usb.Close()

	_, err := usb.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		select {
		case <-ctx.Done():
			return false
		default:
		}
		if info, ok := classifyUSBDevice(desc); ok {
			results = append(results, info)
		}
		return false
	})
	if err != nil && !errors.Is(err, gousb.ErrorAccess) {
		return results, err
	}
	return results, ctx.Err()
}

type knownUSBDevice struct {
	VendorID    uint16
	ProductID   uint16
	Description string
}

func matchKnown(known []knownUSBDevice, desc *gousb.DeviceDesc) (knownUSBDevice, bool) {
	for _, k := range known {
		if uint16(desc.Vendor) == k.VendorID && uint16(desc.Product) == k.ProductID {
			return k, true
		}
	}
	return knownUSBDevice{}, false
}

func classifyUSBDevice(desc *gousb.DeviceDesc) (InterfaceInfo, bool) {
	for _, family := range []struct {
		kind  Kind
		known []knownUSBDevice
	}{
		{KindFTDI, knownFTDIVIDPIDs},
		{KindCMSISDAP, knownCMSISDAPVIDPIDs},
	} {
		if k, ok := matchKnown(family.known, desc); ok {
			return InterfaceInfo{
				Kind:        family.kind,
				Description: k.Description,
				VendorID:    k.VendorID,
				ProductID:   k.ProductID,
				Path:        fmt.Sprintf("usb:%d:%d", desc.Bus, desc.Address),
			}, true
		}
	}
	return InterfaceInfo{}, false
}
