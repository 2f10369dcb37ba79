package jtag

import "github.com/OpenTraceLab/OpenTraceSVF/pkg/link"

// ksvfReq mirrors struct ksvf_req of the ksvf kernel modules. Absent TDI
// and TDO values travel as -1.
type ksvfReq struct {
	_        [4]uint8
	TMS      int8
	TDI      int8
	TDO      int8
	_        int8
	TCKCount uint32
}

const (
	iocOut   = 0x40000000
	iocIn    = 0x80000000
	iocInOut = iocIn | iocOut

	ksvfReqSize = 12
	ksvfGroup   = 'S'
)

func ksvfIoctl(dir uint32, num uint8) uint {
	return uint(dir | ksvfReqSize<<16 | uint32(ksvfGroup)<<8 | uint32(num))
}

// ksvf ioctls, as _IOW and _IOWR on the request struct.
var (
	ksvfInit   = ksvfIoctl(iocIn, 0)
	ksvfFini   = ksvfIoctl(iocIn, 1)
	ksvfUDelay = ksvfIoctl(iocInOut, 2)
	ksvfPulse  = ksvfIoctl(iocInOut, 3)
)

func optionalToKsvf(o link.OptionalBit) int8 {
	if !o.Valid {
		return -1
	}
	return int8(o.Value)
}

func toKsvf(req *link.Request) ksvfReq {
	k := ksvfReq{
		TMS: int8(req.TMS),
		TDI: optionalToKsvf(req.TDI),
		TDO: optionalToKsvf(req.TDOExpect),
	}
	if req.ClockCount > 0 {
		k.TCKCount = uint32(req.ClockCount)
	}
	return k
}

// fromKsvf copies the kernel's outputs back into req. A negative TDO means
// the driver sampled nothing and is read as low.
func fromKsvf(k ksvfReq, req *link.Request) {
	req.TDOObserved = link.BitOf(k.TDO > 0)
	req.ClockCount = int64(k.TCKCount)
}
