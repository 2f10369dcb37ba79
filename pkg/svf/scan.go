package svf

import (
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/tap"
)

// maxScanDevices bounds a chain scan when TDO never reads all ones.
const maxScanDevices = 256

// After reset every device with an IDCODE register selects it as its data
// register, and IDCODEs always have bit 0 set. A device in BYPASS shifts
// out a single 0. Shifting ones in from TDI eventually yields an all-ones
// word, which marks the end of the chain.
func (e *Engine) scan() error {
	if err := e.walk(tap.StateTestLogicReset); err != nil {
		return err
	}
	if err := e.walk(tap.StateShiftDR); err != nil {
		return err
	}

	read := func() (bool, error) {
		v, err := e.pulse(link.Low, link.Drive(link.High), link.DontCare)
		return v.Bool(), err
	}

	for i := 0; i < maxScanDevices; i++ {
		bit, err := read()
		if err != nil {
			return err
		}
		if !bit {
			e.host.ReportDevice(0)
			continue
		}

		id := uint32(1)
		for j := 1; j < 32; j++ {
			bit, err := read()
			if err != nil {
				return err
			}
			if bit {
				id |= 1 << j
			}
		}
		if id == 0xFFFFFFFF {
			break
		}
		e.log.Debug("scan found device", "position", i, "idcode", id)
		e.host.ReportDevice(id)
	}

	return e.walk(tap.StateTestLogicReset)
}
