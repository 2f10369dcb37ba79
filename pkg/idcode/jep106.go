package idcode

import "fmt"

// manufacturers maps IDCODE manufacturer fields to JEP106 entries. The
// field is (bank-1)<<7 | identity, with the JEP106 parity bit dropped.
var manufacturers = map[uint16]Manufacturer{
	0x001: {Name: "AMD", Abbreviation: "AMD"},
	0x009: {Name: "Intel", Abbreviation: "INTC"},
	0x00E: {Name: "Freescale (Motorola)", Abbreviation: "FSL"},
	0x015: {Name: "NXP (Philips)", Abbreviation: "NXP"},
	0x017: {Name: "Texas Instruments", Abbreviation: "TI"},
	0x01F: {Name: "Atmel", Abbreviation: "ATML"},
	0x020: {Name: "STMicroelectronics", Abbreviation: "STM"},
	0x021: {Name: "Lattice Semiconductor", Abbreviation: "LSCC"},
	0x029: {Name: "Microchip Technology", Abbreviation: "MCHP"},
	0x034: {Name: "Cypress", Abbreviation: "CY"},
	0x041: {Name: "Infineon", Abbreviation: "IFX"},
	0x049: {Name: "Xilinx", Abbreviation: "XLNX"},
	0x06E: {Name: "Altera", Abbreviation: "ALTR"},
	0x23B: {Name: "ARM Ltd", Abbreviation: "ARM"},
	0x40D: {Name: "Gowin Semiconductor", Abbreviation: "GOWIN"},
}

// LookupManufacturer returns manufacturer info for a JEP106 code
func LookupManufacturer(code uint16) (Manufacturer, bool) {
	m, ok := manufacturers[code]
	if !ok {
		return Manufacturer{
			Code:         code,
			Name:         fmt.Sprintf("Unknown (bank %d, 0x%02X)", code>>7+1, code&0x7F),
			Abbreviation: "Unknown",
		}, false
	}
	m.Code = code
	return m, true
}
