package idcode

// IDCode represents a parsed IEEE 1149.1 JTAG IDCODE
type IDCode struct {
	Raw              uint32 // full IDCODE
	Version          uint8  // [31:28]
	PartNumber       uint16 // [27:12]
	ManufacturerCode uint16 // [11:1] JEP106 bank and identity
	HasIDCode        bool   // bit 0 == 1
}

// Bank returns the JEP106 bank, counted from 1.
func (id IDCode) Bank() int {
	return int(id.ManufacturerCode>>7) + 1
}

// Manufacturer represents a JEP106 manufacturer entry
type Manufacturer struct {
	Code         uint16 // bank and identity as encoded in IDCODE bits [11:1]
	Name         string // "Xilinx"
	Abbreviation string // "XLNX"
}
