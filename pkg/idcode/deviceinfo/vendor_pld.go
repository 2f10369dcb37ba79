package deviceinfo

// Programmable logic commonly loaded from SVF.
func init() {
	const (
		xilinx  = 0x049
		altera  = 0x06E
		lattice = 0x021
		gowin   = 0x40D
	)

	cpld := func(vendor, part uint16, name, family string, ir int) {
		register(key{vendor, part}, DeviceInfo{Name: name, Family: family, Description: family + " CPLD", IsCPLD: true, IRLength: ir})
	}
	fpga := func(vendor, part uint16, name, family string, ir int) {
		register(key{vendor, part}, DeviceInfo{Name: name, Family: family, Description: family + " FPGA", IsFPGA: true, IRLength: ir})
	}

	cpld(xilinx, 0x9602, "XC9536XL", "XC9500XL", 8)
	cpld(xilinx, 0x9604, "XC9572XL", "XC9500XL", 8)
	cpld(xilinx, 0x9608, "XC95144XL", "XC9500XL", 8)
	cpld(xilinx, 0x6E5E, "XC2C64A", "CoolRunner-II", 8)
	cpld(xilinx, 0x6E18, "XC2C128", "CoolRunner-II", 8)
	fpga(xilinx, 0x4001, "XC6SLX9", "Spartan-6", 6)
	fpga(xilinx, 0x362D, "XC7A35T", "Artix-7", 6)
	fpga(xilinx, 0x362C, "XC7A50T", "Artix-7", 6)

	cpld(altera, 0x20A1, "EPM240", "MAX II", 10)
	cpld(altera, 0x20A2, "EPM570", "MAX II", 10)
	fpga(altera, 0x20F1, "EP4CE6/EP4CE10", "Cyclone IV E", 10)
	fpga(altera, 0x20F3, "EP4CE22", "Cyclone IV E", 10)

	fpga(lattice, 0x12BA, "LCMXO2-1200HC", "MachXO2", 8)
	fpga(lattice, 0x1111, "LFE5U-25F", "ECP5", 8)

	fpga(gowin, 0x9002, "GW1N-1", "LittleBee", 8)

	register(key{0x020, 0x6410}, DeviceInfo{
		Name:        "STM32F10x (Medium-density)",
		Family:      "STM32F1",
		Description: "ARM Cortex-M3 MCU boundary scan TAP",
		IsMCU:       true,
		IRLength:    5,
	})
}
