package jtag

import (
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func writeFile(t *testing.T, path string, data []byte) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func cells(vals ...uint32) []byte {
	b := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.BigEndian.PutUint32(b[4*i:], v)
	}
	return b
}

// fakeDevicetree builds a devicetree with one ksvfgpio node whose lines sit
// on two gpiochips, plus the matching sysfs gpio tree.
func fakeDevicetree(t *testing.T) Config {
	t.Helper()
	root := t.TempDir()
	dt := filepath.Join(root, "dt")
	sys := filepath.Join(root, "sys")

	writeFile(t, filepath.Join(dt, "compatible"), []byte("raspberrypi,4-model-b\x00brcm,bcm2711\x00"))
	node := filepath.Join(dt, "jtag")
	writeFile(t, filepath.Join(node, "compatible"), []byte("vendor,other\x00ksvfgpio\x00"))
	writeFile(t, filepath.Join(node, "tck-gpios"), cells(0x05, 24, 0))
	writeFile(t, filepath.Join(node, "tms-gpios"), cells(0x05, 23, 0))
	writeFile(t, filepath.Join(node, "tdi-gpios"), cells(0x05, 22, 0))
	writeFile(t, filepath.Join(node, "tdo-gpios"), cells(0x0c, 3, 1))

	writeFile(t, filepath.Join(sys, "gpiochip0", "of_node", "phandle"), cells(0x05))
	writeFile(t, filepath.Join(sys, "gpiochip1", "of_node", "phandle"), cells(0x0c))
	if err := os.MkdirAll(filepath.Join(sys, "gpiochip2"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	return Config{Kind: KindDTGPIO, DevicetreeRoot: dt, GPIOSysfsRoot: sys}
}

func TestDTResolverFindsCompatibleNode(t *testing.T) {
	cfg := fakeDevicetree(t)
	lines, err := newDTResolver(cfg).resolve("")
	if err != nil {
		t.Fatalf("resolve returned error: %v", err)
	}

	want := map[link.Signal]gpioLine{
		link.TCK: {Chip: "gpiochip0", Offset: 24},
		link.TMS: {Chip: "gpiochip0", Offset: 23},
		link.TDI: {Chip: "gpiochip0", Offset: 22},
		link.TDO: {Chip: "gpiochip1", Offset: 3, ActiveLow: true},
	}
	for sig, w := range want {
		if lines[sig] != w {
			t.Fatalf("%s = %+v, want %+v", sig, lines[sig], w)
		}
	}
}

func TestDTResolverExplicitNode(t *testing.T) {
	cfg := fakeDevicetree(t)
	if _, err := newDTResolver(cfg).resolve("jtag"); err != nil {
		t.Fatalf("resolve(jtag) returned error: %v", err)
	}
	if _, err := newDTResolver(cfg).resolve(filepath.Join(cfg.DevicetreeRoot, "jtag")); err != nil {
		t.Fatalf("resolve(absolute) returned error: %v", err)
	}
	_, err := newDTResolver(cfg).resolve("nope")
	if !errors.Is(err, link.ErrResourceMissing) {
		t.Fatalf("resolve(nope) error = %v, want ErrResourceMissing", err)
	}
}

func TestDTResolverFailures(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(t *testing.T, cfg Config)
	}{
		{"missing property", func(t *testing.T, cfg Config) {
			os.Remove(filepath.Join(cfg.DevicetreeRoot, "jtag", "tdi-gpios"))
		}},
		{"short property", func(t *testing.T, cfg Config) {
			writeFile(t, filepath.Join(cfg.DevicetreeRoot, "jtag", "tms-gpios"), cells(0x05))
		}},
		{"unknown phandle", func(t *testing.T, cfg Config) {
			writeFile(t, filepath.Join(cfg.DevicetreeRoot, "jtag", "tck-gpios"), cells(0x99, 1, 0))
		}},
		{"no compatible node", func(t *testing.T, cfg Config) {
			writeFile(t, filepath.Join(cfg.DevicetreeRoot, "jtag", "compatible"), []byte("vendor,other\x00"))
		}},
		{"no sysfs", func(t *testing.T, cfg Config) {
			os.RemoveAll(cfg.GPIOSysfsRoot)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := fakeDevicetree(t)
			tt.mutate(t, cfg)
			_, err := newDTResolver(cfg).resolve("")
			if !errors.Is(err, link.ErrResourceMissing) {
				t.Fatalf("resolve error = %v, want ErrResourceMissing", err)
			}
		})
	}
}

func TestDTResolverDefaults(t *testing.T) {
	r := newDTResolver(Config{})
	if r.dtRoot != defaultDevicetreeRoot || r.sysRoot != defaultGPIOSysfsRoot {
		t.Fatalf("defaults = %q %q", r.dtRoot, r.sysRoot)
	}
}
