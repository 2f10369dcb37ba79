package deviceinfo

import "github.com/OpenTraceLab/OpenTraceSVF/pkg/idcode"

// DeviceInfo describes a part that SVF files are commonly generated for.
type DeviceInfo struct {
	IDCode       idcode.IDCode
	Manufacturer idcode.Manufacturer

	Name        string // "XC9572XL"
	Family      string // "XC9500XL"
	Description string

	IsFPGA bool
	IsCPLD bool
	IsMCU  bool

	IRLength int
}

// Kind returns a short category label.
func (d DeviceInfo) Kind() string {
	switch {
	case d.IsCPLD:
		return "CPLD"
	case d.IsFPGA:
		return "FPGA"
	case d.IsMCU:
		return "MCU"
	default:
		return "device"
	}
}
