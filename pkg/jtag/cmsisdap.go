package jtag

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func openCMSISDAP(cfg Config, logger *slog.Logger) (link.Driver, error) {
	t, err := openUSBTransport(cfg.USB)
	if err != nil {
		return nil, err
	}
	d := newDAPDriver(t, cfg.ClockHz, logger)
	d.queryInfo()
	return d, nil
}

// dapDriver runs the link protocol on a CMSIS-DAP probe using
// DAP_JTAG_Sequence. The probe sequences the lines itself, so I/O
// duplication does not apply.
type dapDriver struct {
	t       dapTransport
	clockHz int
	log     *slog.Logger

	connected bool
	tdi       link.Bit
}

var _ link.Driver = (*dapDriver)(nil)

func newDAPDriver(t dapTransport, clockHz int, logger *slog.Logger) *dapDriver {
	if logger == nil {
		logger = slog.Default()
	}
	return &dapDriver{t: t, clockHz: clockHz, log: logger, tdi: link.High}
}

func (d *dapDriver) queryInfo() {
	for _, q := range []struct {
		id   byte
		name string
	}{
		{InfoVendorID, "vendor"},
		{InfoProductID, "product"},
		{InfoSerialNum, "serial"},
		{InfoFirmwareVer, "firmware"},
	} {
		resp, err := d.t.Exchange(EncodeInfo(q.id))
		if err != nil {
			d.log.Debug("probe info query failed", "field", q.name, "err", err)
			continue
		}
		if s, err := DecodeInfoString(resp); err == nil && s != "" {
			d.log.Debug("probe info", q.name, s)
		}
	}
}

func (d *dapDriver) Init(*link.Request) error {
	if d.connected {
		return &link.Error{Op: link.OpInit, Kind: link.ErrConfigFailed, Err: errors.New("already connected")}
	}
	resp, err := d.t.Exchange(EncodeConnect(PortJTAG))
	if err != nil {
		return link.ConfigError(link.TCK, err)
	}
	port, err := DecodeConnect(resp)
	if err != nil {
		return link.ConfigError(link.TCK, err)
	}
	if port != PortJTAG {
		d.disconnect()
		return link.ConfigError(link.TCK, fmt.Errorf("probe connected port %d, not JTAG", port))
	}
	d.connected = true

	if d.clockHz > 0 {
		resp, err := d.t.Exchange(EncodeSetClock(uint32(d.clockHz)))
		if err == nil {
			err = DecodeStatus(resp, CmdSWJClock)
		}
		if err != nil {
			d.disconnect()
			d.connected = false
			return link.ConfigError(link.TCK, fmt.Errorf("set clock %d Hz: %w", d.clockHz, err))
		}
	}
	return nil
}

func (d *dapDriver) disconnect() error {
	resp, err := d.t.Exchange(EncodeDisconnect())
	if err != nil {
		return err
	}
	return DecodeStatus(resp, CmdDisconnect)
}

func (d *dapDriver) Fini(*link.Request) error {
	if !d.connected {
		return link.TeardownError(errors.New("not connected"))
	}
	d.connected = false
	return link.TeardownError(d.disconnect())
}

// tdiBytes holds n copies of the current TDI level.
func (d *dapDriver) tdiBytes(n int) []byte {
	b := make([]byte, (n+7)/8)
	if d.tdi.Bool() {
		for i := range b {
			b[i] = 0xFF
		}
	}
	return b
}

// UDelay packs as many full sequences into each packet as fit. The count is
// advanced only after the probe acknowledged a packet.
func (d *dapDriver) UDelay(req *link.Request) error {
	if done, err := link.CheckUDelay(req); done {
		return err
	}
	want := req.ClockCount
	req.ClockCount = 0
	if !d.connected {
		return &link.Error{Op: link.OpUDelay, Kind: link.ErrDriveFailed, Err: errors.New("not connected")}
	}

	perPacket := (d.t.PacketSize() - 2) / (1 + MaxSequenceClocks/8)
	if perPacket < 1 {
		perPacket = 1
	}
	for req.ClockCount < want {
		var (
			seqs   []JTAGSequence
			clocks int64
		)
		for len(seqs) < perPacket && req.ClockCount+clocks < want {
			n := min(want-req.ClockCount-clocks, MaxSequenceClocks)
			seqs = append(seqs, NewJTAGSequence(int(n), req.TMS.Bool(), false, d.tdiBytes(int(n))))
			clocks += n
		}
		resp, err := d.t.Exchange(EncodeJTAGSequence(seqs))
		if err == nil {
			_, err = DecodeJTAGSequence(resp, seqs)
		}
		if err != nil {
			return link.DriveError(link.OpUDelay, link.TCK, err)
		}
		req.ClockCount += clocks
	}
	return nil
}

func (d *dapDriver) Pulse(req *link.Request) error {
	if !d.connected {
		return &link.Error{Op: link.OpPulse, Kind: link.ErrDriveFailed, Err: errors.New("not connected")}
	}
	if req.TDI.Valid {
		d.tdi = req.TDI.Value
	}
	seqs := []JTAGSequence{NewJTAGSequence(1, req.TMS.Bool(), true, d.tdiBytes(1))}
	resp, err := d.t.Exchange(EncodeJTAGSequence(seqs))
	if err != nil {
		return link.DriveError(link.OpPulse, link.TCK, err)
	}
	tdo, err := DecodeJTAGSequence(resp, seqs)
	if err != nil {
		return link.DriveError(link.OpPulse, link.TDO, err)
	}
	req.TDOObserved = link.BitOf(tdo[0][0]&1 != 0)
	return nil
}

func (d *dapDriver) Close() error {
	return d.t.Close()
}
