package deviceinfo

import "testing"

func TestLookupKnownParts(t *testing.T) {
	cases := []struct {
		raw    uint32
		name   string
		vendor string
		kind   string
	}{
		{0x59604093, "XC9572XL", "Xilinx", "CPLD"},
		{0x020A10DD, "EPM240", "Altera", "CPLD"},
		{0x0362D093, "XC7A35T", "Xilinx", "FPGA"},
		{0x012BA043, "LCMXO2-1200HC", "Lattice Semiconductor", "FPGA"},
	}
	for _, tc := range cases {
		info, ok := Lookup(tc.raw)
		if !ok {
			t.Fatalf("Lookup(0x%08X) not found", tc.raw)
		}
		if info.Name != tc.name || info.Manufacturer.Name != tc.vendor || info.Kind() != tc.kind {
			t.Fatalf("Lookup(0x%08X) = %s/%s/%s", tc.raw, info.Name, info.Manufacturer.Name, info.Kind())
		}
		if info.IDCode.Raw != tc.raw {
			t.Fatalf("IDCode not filled in: %+v", info.IDCode)
		}
	}
}

func TestLookupIgnoresVersion(t *testing.T) {
	a, _ := Lookup(0x09604093)
	b, _ := Lookup(0xF9604093)
	if a.Name != b.Name {
		t.Fatalf("version changed lookup: %s vs %s", a.Name, b.Name)
	}
}

func TestLookupUnknown(t *testing.T) {
	info, ok := Lookup(0x0BADF00D | 1)
	if ok {
		t.Fatalf("unexpected match: %+v", info)
	}
	if info.Name != "Unknown device" || info.Kind() != "device" {
		t.Fatalf("unknown info = %+v", info)
	}
}
