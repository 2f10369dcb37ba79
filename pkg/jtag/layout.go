package jtag

import "github.com/OpenTraceLab/OpenTraceSVF/pkg/bitbang"

// DefaultParportLayout is the wiring of the classic parallel-port cable:
// signals on the data register, TDO on status bit 4 and a buffered cable
// with output and input enables.
var DefaultParportLayout = bitbang.Layout{TCK: 1, TMS: 2, TDI: 0, TDO: 4, OutputEnable: 5, InputEnable: 4}

// DefaultFTDILayout is the usual FT232R bit-bang JTAG wiring: TXD=TCK,
// RXD=TDI, RTS=TDO, CTS=TMS. The cable has no enable lines.
var DefaultFTDILayout = bitbang.Layout{TCK: 0, TDI: 1, TDO: 2, TMS: 3, OutputEnable: -1, InputEnable: -1}
