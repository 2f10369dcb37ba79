package config

// schema closes every profile file. Fields left out of a profile fall back
// to backend defaults.
const schema = `
default?: string
boards?: [string]: #Board
#Board: {
	model?:    string
	backend:   "gpio" | "dtgpio" | "parport" | "cdev" | "ftdi" | "ksvf" | "cmsis-dap" | "simulator"
	device?:   string
	provider?: "periph" | "rpio"
	pins?: {
		tck: int & >=0
		tms: int & >=0
		tdi: int & >=0
		tdo: int & >=0
	}
	layout?: {
		tck:        int & >=0 & <=7
		tms:        int & >=0 & <=7
		tdi:        int & >=0 & <=7
		tdo:        int & >=0 & <=7
		oe:         int & >=-1 & <=7
		ie:         int & >=-1 & <=7
		invertTdo?: bool
	}
	usb?: {
		vendor?:  int & >=0 & <=0xFFFF
		product?: int & >=0 & <=0xFFFF
		serial?:  string
	}
	wrDup?:   int & >=0
	rdDup?:   int & >=0
	clockHz?: int & >=0
}
`
