//go:build !linux

package jtag

import (
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// The character device, ppdev and BCM register interfaces only exist on
// Linux.

func openCdev(Config, *slog.Logger) (link.Driver, error) {
	return nil, fmt.Errorf("cdev backend: %w", ErrNotImplemented)
}

func openDTGPIO(Config, *slog.Logger) (link.Driver, error) {
	return nil, fmt.Errorf("dtgpio backend: %w", ErrNotImplemented)
}

func openParport(Config, *slog.Logger) (link.Driver, error) {
	return nil, fmt.Errorf("parport backend: %w", ErrNotImplemented)
}

func openRPIO(Config, *slog.Logger) (link.Driver, error) {
	return nil, fmt.Errorf("gpio rpio provider: %w", ErrNotImplemented)
}

func listGPIOChips() []InterfaceInfo {
	return nil
}
