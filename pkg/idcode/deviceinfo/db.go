package deviceinfo

import "github.com/OpenTraceLab/OpenTraceSVF/pkg/idcode"

// key is used for device database lookups. The version nibble is not part
// of it since silicon revisions share SVF files.
type key struct {
	ManufacturerCode uint16
	PartNumber       uint16
}

var db = make(map[key]DeviceInfo)

func register(k key, info DeviceInfo) {
	db[k] = info
}

// Lookup returns device information for a given IDCODE. The second result
// is false when the part is not in the table; the returned value still
// carries the decoded fields and manufacturer.
func Lookup(rawID uint32) (DeviceInfo, bool) {
	id := idcode.ParseIDCode(rawID)
	m, _ := idcode.LookupManufacturer(id.ManufacturerCode)

	k := key{ManufacturerCode: id.ManufacturerCode, PartNumber: id.PartNumber}
	if info, ok := db[k]; ok {
		info.IDCode = id
		info.Manufacturer = m
		return info, true
	}

	return DeviceInfo{
		IDCode:       id,
		Manufacturer: m,
		Name:         "Unknown device",
	}, false
}
