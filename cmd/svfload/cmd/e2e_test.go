package cmd

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSVF/internal/config"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
	"github.com/OpenTraceLab/OpenTraceSVF/pkg/player"
)

// resetFlags puts every flag variable back to its default so runs do not
// leak into each other.
func resetFlags(t *testing.T) {
	verbose, quiet = false, false
	analyzeMode, idcodeMode, playMode = false, false, false
	svfFile, device, chip, backend, provider, board, serial = "", "", "", "", "", "", ""
	configFiles = nil
	modelFile = filepath.Join(t.TempDir(), "model")
	pinTCK, pinTMS, pinTDI, pinTDO = 0, 0, 0, 0
	writeDup, readDup, clockHz = 0, 0, 0
	simIDCodes = nil
	simFailPulse = 0
}

// execute runs the root command with args, returning stdout, stderr and
// the command error.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	resetFlags(t)

	// Capture stdout
	old := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	// Read in background to prevent pipe buffer from blocking
	var buf bytes.Buffer
	done := make(chan struct{})
	go func() {
		buf.ReadFrom(r)
		close(done)
	}()

	var stderr bytes.Buffer
	rootCmd.SetErr(&stderr)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()

	w.Close()
	os.Stdout = old
	<-done
	rootCmd.SetErr(nil)

	return buf.String(), stderr.String(), err
}

func writeSVF(t *testing.T, content string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "test.svf")
	if err := os.WriteFile(p, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

// TestModesE2E runs the three modes end-to-end against the simulator.
func TestModesE2E(t *testing.T) {
	program := strings.Repeat("RUNTEST 50 TCK;\n", 10) +
		"SIR 4 TDI(E);\nSDR 32 TDI(00000000);\nRUNTEST 100 TCK;\n"

	tests := []struct {
		name        string
		args        []string
		wantErr     error
		wantContain []string
		wantMissing []string
		wantStderr  []string
	}{
		{
			name:        "analyze",
			args:        []string{"-a", "-f", writeSVF(t, "RUNTEST 100 TCK;\n")},
			wantContain: []string{"TCK Count: 100"},
		},
		{
			name:    "analyze empty file",
			args:    []string{"-a", "-f", writeSVF(t, "")},
			wantErr: link.ErrResourceMissing,
		},
		{
			name:    "analyze missing file",
			args:    []string{"-a", "-f", filepath.Join(t.TempDir(), "missing.svf")},
			wantErr: link.ErrResourceMissing,
		},
		{
			name:        "idcode",
			args:        []string{"-i", "--backend", "simulator", "--sim-ids", "0x59604093"},
			wantContain: []string{"0x59604093", "Xilinx (bank 1)", "XC9572XL"},
			wantMissing: []string{"implausible"},
		},
		{
			name:        "idcode unknown part",
			args:        []string{"-i", "--board", "sim", "--sim-ids", "0x0A0140DD"},
			wantContain: []string{"0x0A0140DD", "Altera", "0xA014"},
		},
		{
			name:        "idcode stuck continuation code",
			args:        []string{"-i", "--backend", "simulator", "--sim-ids", "0x000000FF"},
			wantContain: []string{"0x000000FF", "bank 1", "Warning:      implausible IDCODE"},
		},
		{
			name:    "idcode empty chain",
			args:    []string{"-i", "--backend", "simulator"},
			wantErr: player.ErrNoIDCode,
		},
		{
			name:        "play",
			args:        []string{"-p", "--backend", "simulator", "--sim-ids", "0x59604093", "-f", writeSVF(t, program)},
			wantContain: []string{"Progress --> "},
			wantStderr:  []string{"Operation Complete"},
		},
		{
			name:    "play drive failure",
			args:    []string{"-p", "--backend", "simulator", "--sim-ids", "0x59604093", "--sim-fail-pulse", "5", "-f", writeSVF(t, "SIR 4 TDI(E);\n")},
			wantErr:     link.ErrDriveFailed,
			wantMissing: []string{"Error: file = "},
			wantStderr:  []string{"Error: file = ", "line = 1"},
		},
		{
			name:    "no mode",
			args:    []string{"-f", writeSVF(t, "RUNTEST 1 TCK;\n")},
			wantErr: config.ErrInvalid,
		},
		{
			name:    "two modes",
			args:    []string{"-a", "-p", "-f", writeSVF(t, "RUNTEST 1 TCK;\n")},
			wantErr: config.ErrInvalid,
		},
		{
			name:    "unknown backend",
			args:    []string{"-i", "--backend", "jlink"},
			wantErr: config.ErrInvalid,
		},
		{
			name:    "bad sim id",
			args:    []string{"-i", "--backend", "simulator", "--sim-ids", "xyz"},
			wantErr: config.ErrInvalid,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			output, stderr, err := execute(t, tt.args...)

			switch {
			case tt.wantErr == nil && err != nil:
				t.Fatalf("Unexpected error: %v\nOutput: %s", err, output)
			case tt.wantErr != nil && err == nil:
				t.Fatalf("Expected error but got none\nOutput: %s", output)
			case tt.wantErr != nil && !errors.Is(err, tt.wantErr):
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}

			for _, want := range tt.wantContain {
				if !strings.Contains(output, want) {
					t.Errorf("Output missing %q\nGot: %s", want, output)
				}
			}
			for _, unwanted := range tt.wantMissing {
				if strings.Contains(output, unwanted) {
					t.Errorf("Output contains %q\nGot: %s", unwanted, output)
				}
			}
			for _, want := range tt.wantStderr {
				if !strings.Contains(stderr, want) {
					t.Errorf("Stderr missing %q\nGot: %s", want, stderr)
				}
			}
		})
	}
}

// TestUsageErrorsAreNotLineFailures checks that a bad command line is never
// reported as a failure to configure a JTAG line.
func TestUsageErrorsAreNotLineFailures(t *testing.T) {
	for _, args := range [][]string{
		{"-f", writeSVF(t, "RUNTEST 1 TCK;\n")},
		{"-i", "--board", "nope"},
		{"-i", "--backend", "cdev", "--board", "sim", "--tck", "1"},
	} {
		_, _, err := execute(t, args...)
		if !errors.Is(err, config.ErrInvalid) {
			t.Fatalf("%v: error = %v, want ErrInvalid", args, err)
		}
		if errors.Is(err, link.ErrConfigFailed) || strings.Contains(err.Error(), "line configuration failed") {
			t.Fatalf("%v: error = %v reported as a line failure", args, err)
		}
	}
}

func TestDupFlagHelp(t *testing.T) {
	for _, name := range []string{"wr-dup", "rd-dup"} {
		f := rootCmd.Flags().Lookup(name)
		if f == nil {
			t.Fatalf("flag --%s missing", name)
		}
		if strings.Contains(f.Usage, "extra") || !strings.Contains(f.Usage, "n times") {
			t.Fatalf("--%s usage = %q, want a total access count", name, f.Usage)
		}
	}
}

func TestQuietSuppressesProgress(t *testing.T) {
	path := writeSVF(t, "RUNTEST 1000 TCK;\n")
	output, stderr, err := execute(t, "-p", "-q", "--backend", "simulator", "-f", path)
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if strings.Contains(output, "Progress") {
		t.Fatalf("progress printed with -q: %s", output)
	}
	if !strings.Contains(stderr, "Operation Complete") {
		t.Fatalf("Stderr = %q", stderr)
	}
}

func TestBoardsE2E(t *testing.T) {
	output, _, err := execute(t, "boards")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	for _, want := range []string{"Board profiles:", "aml-s905x-cc", "TCK=24 TMS=23 TDI=22 TDO=17", "* rpi"} {
		if !strings.Contains(output, want) {
			t.Errorf("Output missing %q\nGot: %s", want, output)
		}
	}
}

func TestInterfacesE2E(t *testing.T) {
	output, _, err := execute(t, "interfaces")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if !strings.Contains(output, "Simulator (no hardware)") {
		t.Fatalf("Output missing simulator entry\nGot: %s", output)
	}
}
