package jtag

import (
	"encoding/binary"
	"fmt"
)

// CMSIS-DAP command IDs used by the link driver.
const (
	CmdInfo         = 0x00
	CmdConnect      = 0x02
	CmdDisconnect   = 0x03
	CmdSWJClock     = 0x11
	CmdJTAGSequence = 0x14
)

// DAP_Info IDs.
const (
	InfoVendorID    = 0x01
	InfoProductID   = 0x02
	InfoSerialNum   = 0x03
	InfoFirmwareVer = 0x04
	InfoPacketSize  = 0xFF
)

// DAP_Connect ports.
const (
	PortDefault = 0
	PortSWD     = 1
	PortJTAG    = 2
)

const (
	StatusOK    = 0x00
	StatusError = 0xFF
)

// JTAG sequence info byte.
const (
	JTAGSeqTCKMask = 0x3F // 0 means 64 clocks
	JTAGSeqTMS     = 0x40
	JTAGSeqTDO     = 0x80

	// MaxSequenceClocks is the most TCK cycles one sequence can carry.
	MaxSequenceClocks = 64
)

// JTAGSequence is one run of TCK cycles at a constant TMS level.
type JTAGSequence struct {
	Info byte
	TDI  []byte
}

// NewJTAGSequence builds a sequence of clocks cycles. tdi holds one bit per
// cycle, LSB first.
func NewJTAGSequence(clocks int, tms, captureTDO bool, tdi []byte) JTAGSequence {
	info := byte(clocks & JTAGSeqTCKMask)
	if tms {
		info |= JTAGSeqTMS
	}
	if captureTDO {
		info |= JTAGSeqTDO
	}
	return JTAGSequence{Info: info, TDI: tdi}
}

// TCKCount returns the number of TCK cycles in the sequence.
func (seq JTAGSequence) TCKCount() int {
	if n := int(seq.Info & JTAGSeqTCKMask); n != 0 {
		return n
	}
	return MaxSequenceClocks
}

func (seq JTAGSequence) TMS() bool        { return seq.Info&JTAGSeqTMS != 0 }
func (seq JTAGSequence) CaptureTDO() bool { return seq.Info&JTAGSeqTDO != 0 }

// encodedLen is the number of command bytes the sequence takes.
func (seq JTAGSequence) encodedLen() int {
	return 1 + (seq.TCKCount()+7)/8
}

func checkResponse(resp []byte, cmd byte, what string) error {
	if len(resp) < 2 {
		return fmt.Errorf("%s: response too short", what)
	}
	if resp[0] != cmd {
		return fmt.Errorf("%s: response to command 0x%02X", what, resp[0])
	}
	return nil
}

func EncodeInfo(id byte) []byte {
	return []byte{CmdInfo, id}
}

// DecodeInfo returns the payload of a DAP_Info response.
func DecodeInfo(resp []byte) ([]byte, error) {
	if err := checkResponse(resp, CmdInfo, "info"); err != nil {
		return nil, err
	}
	n := int(resp[1])
	if len(resp) < 2+n {
		return nil, fmt.Errorf("info: truncated payload")
	}
	return resp[2 : 2+n], nil
}

// DecodeInfoString decodes a string-valued DAP_Info response.
func DecodeInfoString(resp []byte) (string, error) {
	b, err := DecodeInfo(resp)
	if err != nil {
		return "", err
	}
	for len(b) > 0 && b[len(b)-1] == 0 {
		b = b[:len(b)-1]
	}
	return string(b), nil
}

func EncodeConnect(port byte) []byte {
	return []byte{CmdConnect, port}
}

func DecodeConnect(resp []byte) (byte, error) {
	if err := checkResponse(resp, CmdConnect, "connect"); err != nil {
		return 0, err
	}
	if resp[1] == PortDefault {
		return 0, fmt.Errorf("connect: probe refused")
	}
	return resp[1], nil
}

func EncodeDisconnect() []byte {
	return []byte{CmdDisconnect}
}

func EncodeSetClock(hz uint32) []byte {
	cmd := make([]byte, 5)
	cmd[0] = CmdSWJClock
	binary.LittleEndian.PutUint32(cmd[1:], hz)
	return cmd
}

// DecodeStatus checks a response whose only payload is a status byte.
func DecodeStatus(resp []byte, cmd byte) error {
	if err := checkResponse(resp, cmd, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
		return err
	}
	if resp[1] != StatusOK {
		return fmt.Errorf("command 0x%02X: status 0x%02X", cmd, resp[1])
	}
	return nil
}

// EncodeJTAGSequence builds a DAP_JTAG_Sequence command.
func EncodeJTAGSequence(seqs []JTAGSequence) []byte {
	size := 2
	for _, seq := range seqs {
		size += seq.encodedLen()
	}
	cmd := make([]byte, 2, size)
	cmd[0] = CmdJTAGSequence
	cmd[1] = byte(len(seqs))
	for _, seq := range seqs {
		data := make([]byte, seq.encodedLen()-1)
		copy(data, seq.TDI)
		cmd = append(cmd, seq.Info)
		cmd = append(cmd, data...)
	}
	return cmd
}

// DecodeJTAGSequence returns the captured TDO bytes of every sequence that
// asked for them, in order.
func DecodeJTAGSequence(resp []byte, seqs []JTAGSequence) ([][]byte, error) {
	if err := DecodeStatus(resp, CmdJTAGSequence); err != nil {
		return nil, err
	}
	var out [][]byte
	offset := 2
	for _, seq := range seqs {
		if !seq.CaptureTDO() {
			continue
		}
		n := seq.encodedLen() - 1
		if offset+n > len(resp) {
			return nil, fmt.Errorf("sequence: truncated TDO data")
		}
		out = append(out, resp[offset:offset+n])
		offset += n
	}
	return out, nil
}
