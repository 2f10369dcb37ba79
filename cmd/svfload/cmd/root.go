package cmd

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSVF/internal/config"
	"github.com/OpenTraceLab/OpenTraceSVF/internal/logs"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/idcode/deviceinfo"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/jtag"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/player"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/progress"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/svffile"
)

var (
	// Global flags
	verbose bool
	quiet   bool

	analyzeMode bool
	idcodeMode  bool
	playMode    bool

	svfFile     string
	device      string
	chip        string
	backend     string
	provider    string
	board       string
	configFiles []string
	serial      string
	modelFile   string

	pinTCK, pinTMS, pinTDI, pinTDO int
	writeDup, readDup              int
	clockHz                        int

	simIDCodes   []string
	simFailPulse int
)

var rootCmd = &cobra.Command{
	Use:   "svfload",
	Short: "Play SVF files over a JTAG link",
	Long: `Load Serial Vector Format files into JTAG devices over GPIO lines, a
parallel-port cable, a USB probe or a kernel driver.

Exactly one mode is required:
  -a  analyze the file and print the number of TCK cycles it needs
  -i  read the IDCODE of the first device on the chain
  -p  play the file

Examples:
  svfload -a -f design.svf                           # Count TCK cycles
  svfload -i                                         # Read IDCODE on the detected board
  svfload -p -f design.svf --board parport           # Program over a parallel-port cable
  svfload -i --backend simulator --sim-ids 0x59604093`,
	Version:       "1.0.0",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE:          runRoot,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().StringSliceVar(&configFiles, "config", nil, "additional CUE board profile files")
	rootCmd.PersistentFlags().StringVar(&modelFile, "model-file", config.ModelFile, "file naming the running board")
	rootCmd.PersistentFlags().MarkHidden("model-file")

	f := rootCmd.Flags()
	f.BoolVarP(&analyzeMode, "analyze", "a", false, "count TCK cycles without touching hardware")
	f.BoolVarP(&idcodeMode, "idcode", "i", false, "read the IDCODE of the first device")
	f.BoolVarP(&playMode, "play", "p", false, "play the SVF file")

	f.StringVarP(&svfFile, "file", "f", "", "SVF file")
	f.StringVarP(&device, "device", "d", "", "link device node (gpiochip, parport, ksvf node or devicetree node)")
	f.StringVar(&chip, "chip", "", "gpiochip for the cdev backend")
	f.StringVar(&backend, "backend", "", "link backend ("+kindList()+")")
	f.StringVar(&provider, "provider", "", "register access library for the gpio backend (periph, rpio)")
	f.StringVar(&board, "board", "", "board profile (default: detected from the devicetree model)")
	f.StringVar(&serial, "serial", "", "USB probe serial number")

	f.IntVar(&pinTCK, "tck", 0, "TCK line")
	f.IntVar(&pinTMS, "tms", 0, "TMS line")
	f.IntVar(&pinTDI, "tdi", 0, "TDI line")
	f.IntVar(&pinTDO, "tdo", 0, "TDO line")
	f.IntVar(&writeDup, "wr-dup", 0, "write every line n times (0 and 1 both mean once)")
	f.IntVar(&readDup, "rd-dup", 0, "read every line n times (0 and 1 both mean once)")
	f.IntVar(&clockHz, "clock", 0, "TCK rate in Hz for probes with a programmable clock")

	f.StringSliceVar(&simIDCodes, "sim-ids", nil,
		"simulator: IDCODEs on the chain (hex, e.g., 0x59604093,0x0A0140DD)")
	f.IntVar(&simFailPulse, "sim-fail-pulse", 0, "simulator: fail the nth PULSE (1-based)")
}

func kindList() string {
	names := make([]string, len(jtag.Kinds))
	for i, k := range jtag.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func newLogger(cmd *cobra.Command) *slog.Logger {
	return logs.New(logs.Options{Writer: cmd.ErrOrStderr(), Verbose: verbose, Quiet: quiet})
}

func selectMode() (player.Mode, error) {
	var modes []player.Mode
	if analyzeMode {
		modes = append(modes, player.ModeAnalyze)
	}
	if idcodeMode {
		modes = append(modes, player.ModeIDCode)
	}
	if playMode {
		modes = append(modes, player.ModePlay)
	}
	if len(modes) != 1 {
		return 0, fmt.Errorf("%w: exactly one of -a, -i and -p is required", config.ErrInvalid)
	}
	return modes[0], nil
}

func runRoot(cmd *cobra.Command, args []string) error {
	mode, err := selectMode()
	if err != nil {
		return err
	}
	logger := newLogger(cmd)

	var src *svffile.Source
	if mode != player.ModeIDCode {
		src, err = svffile.Open(svfFile)
		if err != nil {
			return modeFailed(mode, svfFile, err)
		}
		defer src.Close()
	}

	cfg := player.Config{
		Logger: logger,
		OnError: func(r player.ErrorReport) {
			fmt.Fprintln(cmd.ErrOrStderr(), r)
		},
	}
	if src != nil {
		cfg.Source = src
	}
	if !quiet {
		cfg.OnProgress = func(r progress.Report) {
			fmt.Printf("Progress --> %d --> %d\n", r.Total, r.Count)
		}
	}

	if mode == player.ModeAnalyze {
		s := player.NewSession(cfg)
		total, err := s.Analyze()
		if err != nil {
			return modeFailed(mode, svfFile, err)
		}
		fmt.Printf("TCK Count: %d\n", total)
		return nil
	}

	jcfg, err := resolveLink(cmd, logger)
	if err != nil {
		return err
	}
	drv, err := jtag.Open(jcfg, logger)
	if err != nil {
		return fmt.Errorf("open %s link: %w", jcfg.Kind, err)
	}
	defer func() {
		if err := jtag.Close(drv); err != nil {
			logger.Warn("close link", "backend", jcfg.Kind, "error", err)
		}
	}()
	cfg.Link = link.New(drv, logger)
	s := player.NewSession(cfg)

	switch mode {
	case player.ModeIDCode:
		id, err := s.ReadIDCode()
		if err != nil {
			return modeFailed(mode, string(jcfg.Kind), err)
		}
		printIDCode(cmd.OutOrStdout(), id)
		for i, other := range s.Devices() {
			if i > 0 && other != 0 {
				logger.Info("further device on chain", "position", i, "idcode", fmt.Sprintf("0x%08X", other))
			}
		}
	case player.ModePlay:
		if err := s.Play(); err != nil {
			return err
		}
		fmt.Fprintln(cmd.ErrOrStderr(), "Operation Complete")
	}
	return nil
}

func modeFailed(mode player.Mode, what string, err error) error {
	switch mode {
	case player.ModeAnalyze:
		return fmt.Errorf("Error: Analyze (%s) failed: %w", what, err)
	case player.ModeIDCode:
		return fmt.Errorf("Error: Read ID code (%s) failed: %w", what, err)
	default:
		return err
	}
}

func printIDCode(w io.Writer, id uint32) {
	fmt.Fprintf(w, "0x%08X\n", id)
	info, known := deviceinfo.Lookup(id)
	if info.Manufacturer.Name != "" {
		fmt.Fprintf(w, "  Manufacturer: %s (bank %d)\n", info.Manufacturer.Name, info.IDCode.Bank())
	} else {
		fmt.Fprintf(w, "  Manufacturer: unknown (0x%03X, bank %d)\n", info.IDCode.ManufacturerCode, info.IDCode.Bank())
	}
	if known {
		fmt.Fprintf(w, "  Part:         %s (%s)\n", info.Name, info.Description)
	} else {
		fmt.Fprintf(w, "  Part:         0x%04X\n", info.IDCode.PartNumber)
	}
	fmt.Fprintf(w, "  Version:      %d\n", info.IDCode.Version)
	if !info.IDCode.Plausible() {
		fmt.Fprintln(w, "  Warning:      implausible IDCODE, check the TDO line and the chain wiring")
	}
}

// resolveLink picks a board profile and applies the command-line overrides.
func resolveLink(cmd *cobra.Command, logger *slog.Logger) (jtag.Config, error) {
	profiles, err := config.Load(configFiles...)
	if err != nil {
		return jtag.Config{}, fmt.Errorf("%w: load config: %w", config.ErrInvalid, err)
	}

	var b config.Board
	switch {
	case board != "":
		if b, err = profiles.Board(board); err != nil {
			return jtag.Config{}, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
	case backend != "":
		b.Backend = backend
		// Line-level backends still take their lines from the running board.
		if kind, err := jtag.ParseKind(backend); err == nil && (kind == jtag.KindGPIO || kind == jtag.KindCdev) {
			name, err := profiles.Detect(modelFile, logger)
			if err != nil {
				return jtag.Config{}, fmt.Errorf("%w: %w", config.ErrInvalid, err)
			}
			if detected, err := profiles.Board(name); err == nil {
				b.Pins = detected.Pins
				if kind == jtag.KindCdev {
					b.Device = detected.Device
				}
			}
		}
	default:
		name, err := profiles.Detect(modelFile, logger)
		if err != nil {
			return jtag.Config{}, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
		if b, err = profiles.Board(name); err != nil {
			return jtag.Config{}, fmt.Errorf("%w: %w", config.ErrInvalid, err)
		}
	}

	ov := config.Overrides{
		Backend:      backend,
		Device:       device,
		Provider:     provider,
		Serial:       serial,
		SimFailPulse: simFailPulse,
	}
	if ov.Device == "" {
		ov.Device = chip
	}
	flags := cmd.Flags()
	for _, o := range []struct {
		name string
		v    *int
		dst  **int
	}{
		{"tck", &pinTCK, &ov.TCK},
		{"tms", &pinTMS, &ov.TMS},
		{"tdi", &pinTDI, &ov.TDI},
		{"tdo", &pinTDO, &ov.TDO},
		{"wr-dup", &writeDup, &ov.WriteDup},
		{"rd-dup", &readDup, &ov.ReadDup},
		{"clock", &clockHz, &ov.ClockHz},
	} {
		if flags.Changed(o.name) {
			*o.dst = o.v
		}
	}
	for _, s := range simIDCodes {
		id, err := strconv.ParseUint(strings.TrimPrefix(strings.ToLower(s), "0x"), 16, 32)
		if err != nil {
			return jtag.Config{}, fmt.Errorf("%w: --sim-ids value %q: %w", config.ErrInvalid, s, err)
		}
		ov.SimIDs = append(ov.SimIDs, uint32(id))
	}

	cfg, err := config.Resolve(b, ov)
	if err != nil {
		return jtag.Config{}, err
	}
	logger.Debug("link configuration", "backend", cfg.Kind, "device", cfg.Device, "pins", cfg.Pins)
	return cfg, nil
}
