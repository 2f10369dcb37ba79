package idcode

import "fmt"

// ParseIDCode parses a raw 32-bit IDCODE into its component fields
func ParseIDCode(raw uint32) IDCode {
	return IDCode{
		Raw:              raw,
		Version:          uint8((raw >> 28) & 0xF),
		PartNumber:       uint16((raw >> 12) & 0xFFFF),
		ManufacturerCode: uint16((raw >> 1) & 0x7FF),
		HasIDCode:        (raw & 0x1) == 0x1,
	}
}

// Plausible reports whether id looks like a real IDCODE rather than a
// bypass bit or a stuck TDO line. JEP106 reserves identity 0x7F as the
// continuation code, so it never names a manufacturer.
func (id IDCode) Plausible() bool {
	if !id.HasIDCode || id.Raw == 0xFFFFFFFF {
		return false
	}
	return id.ManufacturerCode&0x7F != 0x7F && id.ManufacturerCode != 0
}

func (id IDCode) String() string {
	return fmt.Sprintf("0x%08X", id.Raw)
}
