package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/jtag"
)

var interfacesCmd = &cobra.Command{
	Use:   "interfaces",
	Short: "List available JTAG links",
	Long: `Scan the host for gpiochips, parallel ports, ksvf nodes and USB probes
(FTDI bit-bang cables, CMSIS-DAP probes) and print a summary of what was found.
Use this to pick a --backend and --device before reading or playing.`,
	RunE: runInterfaces,
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}

func runInterfaces(cmd *cobra.Command, args []string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	infos, err := jtag.DiscoverInterfaces(ctx)
	if err != nil {
		newLogger(cmd).Warn("interface discovery incomplete", "error", err)
	}

	if len(infos) == 0 {
		fmt.Println("No interfaces found.")
		return nil
	}

	fmt.Println("Detected JTAG links:")
	for _, iface := range infos {
		if iface.VendorID != 0 || iface.ProductID != 0 {
			fmt.Printf("  - %s [%s] (VID:PID %04X:%04X)\n", iface.Label(), iface.Kind, iface.VendorID, iface.ProductID)
		} else {
			fmt.Printf("  - %s [%s]\n", iface.Label(), iface.Kind)
		}
	}

	return nil
}
