package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSVF/internal/config"
)

var boardsCmd = &cobra.Command{
	Use:   "boards",
	Short: "List board profiles",
	Long: `Print the built-in board profiles together with those from any --config
files, and the board the devicetree model selects on this host.`,
	RunE: runBoards,
}

func init() {
	rootCmd.AddCommand(boardsCmd)
}

func runBoards(cmd *cobra.Command, args []string) error {
	profiles, err := config.Load(configFiles...)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	detected, _ := profiles.Detect(modelFile, newLogger(cmd))
	fmt.Println("Board profiles:")
	for _, name := range profiles.Names() {
		b, err := profiles.Board(name)
		if err != nil {
			return err
		}
		mark := " "
		if name == detected {
			mark = "*"
		}
		line := fmt.Sprintf(" %s %-14s %-10s", mark, name, b.Backend)
		if b.Device != "" {
			line += " " + b.Device
		}
		if b.Pins != nil {
			line += fmt.Sprintf(" TCK=%d TMS=%d TDI=%d TDO=%d", b.Pins.TCK, b.Pins.TMS, b.Pins.TDI, b.Pins.TDO)
		}
		fmt.Println(line)
	}
	return nil
}
