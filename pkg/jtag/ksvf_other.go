//go:build !freebsd

package jtag

import (
	"fmt"
	"log/slog"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func openKSVF(Config, *slog.Logger) (link.Driver, error) {
	return nil, fmt.Errorf("ksvf backend: %w", ErrNotImplemented)
}
