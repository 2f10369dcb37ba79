package jtag

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

const (
	defaultDevicetreeRoot = "/sys/firmware/devicetree/base"
	defaultGPIOSysfsRoot  = "/sys/bus/gpio/devices"

	// dtCompatible marks the JTAG node when no node path is configured.
	dtCompatible = "ksvfgpio"

	dtActiveLow = 1 << 0
)

// gpioLine is one line on a GPIO character device.
type gpioLine struct {
	Chip      string
	Offset    int
	ActiveLow bool
}

func (l gpioLine) String() string {
	return fmt.Sprintf("%s:%d", l.Chip, l.Offset)
}

// dtResolver maps the <sig>-gpios properties of a devicetree node onto
// gpiochip lines.
type dtResolver struct {
	dtRoot  string
	sysRoot string
}

func newDTResolver(cfg Config) dtResolver {
	r := dtResolver{dtRoot: cfg.DevicetreeRoot, sysRoot: cfg.GPIOSysfsRoot}
	if r.dtRoot == "" {
		r.dtRoot = defaultDevicetreeRoot
	}
	if r.sysRoot == "" {
		r.sysRoot = defaultGPIOSysfsRoot
	}
	return r
}

// resolve returns the lines for all four signals of node. An empty node
// selects the first node whose compatible list names ksvfgpio.
func (r dtResolver) resolve(node string) ([4]gpioLine, error) {
	var lines [4]gpioLine

	dir, err := r.findNode(node)
	if err != nil {
		return lines, err
	}
	chips, err := r.phandles()
	if err != nil {
		return lines, err
	}

	for _, sig := range link.Signals {
		prop := strings.ToLower(sig.String()) + "-gpios"
		raw, err := os.ReadFile(filepath.Join(dir, prop))
		if err != nil {
			return lines, missing("%s: missing %s property: %w", dir, prop, err)
		}
		if len(raw) < 12 {
			return lines, missing("%s: %s has %d bytes, want phandle, pin and flags", dir, prop, len(raw))
		}
		phandle := binary.BigEndian.Uint32(raw[0:4])
		pin := binary.BigEndian.Uint32(raw[4:8])
		flags := binary.BigEndian.Uint32(raw[8:12])

		chip, ok := chips[phandle]
		if !ok {
			return lines, missing("%s: no gpiochip for phandle %#x", prop, phandle)
		}
		lines[sig] = gpioLine{Chip: chip, Offset: int(pin), ActiveLow: flags&dtActiveLow != 0}
	}
	return lines, nil
}

func (r dtResolver) findNode(node string) (string, error) {
	if node != "" {
		dir := node
		if !filepath.IsAbs(dir) || !strings.HasPrefix(dir, r.dtRoot) {
			dir = filepath.Join(r.dtRoot, node)
		}
		if st, err := os.Stat(dir); err != nil || !st.IsDir() {
			return "", missing("devicetree node %s not found", node)
		}
		return dir, nil
	}

	var found string
	err := filepath.WalkDir(r.dtRoot, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || d.Name() != "compatible" {
			return nil
		}
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil
		}
		for _, c := range bytes.Split(raw, []byte{0}) {
			if string(c) == dtCompatible {
				found = filepath.Dir(path)
				return fs.SkipAll
			}
		}
		return nil
	})
	if err != nil {
		return "", missing("walk %s: %w", r.dtRoot, err)
	}
	if found == "" {
		return "", missing("no devicetree node compatible with %q", dtCompatible)
	}
	return found, nil
}

// phandles maps each gpiochip's devicetree phandle to its device name.
func (r dtResolver) phandles() (map[uint32]string, error) {
	entries, err := os.ReadDir(r.sysRoot)
	if err != nil {
		return nil, missing("%s: %w", r.sysRoot, err)
	}
	chips := make(map[uint32]string)
	for _, e := range entries {
		if !strings.HasPrefix(e.Name(), "gpiochip") {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(r.sysRoot, e.Name(), "of_node", "phandle"))
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, missing("%s phandle: %w", e.Name(), err)
		}
		if len(raw) < 4 {
			continue
		}
		chips[binary.BigEndian.Uint32(raw)] = e.Name()
	}
	return chips, nil
}
