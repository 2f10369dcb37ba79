package logs

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLevel(t *testing.T) {
	tests := []struct {
		opts Options
		want slog.Level
	}{
		{Options{}, slog.LevelInfo},
		{Options{Verbose: true}, slog.LevelDebug},
		{Options{Quiet: true}, slog.LevelWarn},
		{Options{Quiet: true, Verbose: true}, slog.LevelWarn},
	}
	for _, tt := range tests {
		if got := tt.opts.Level(); got != tt.want {
			t.Fatalf("%+v.Level() = %v, want %v", tt.opts, got, tt.want)
		}
	}
}

func TestNewWritesText(t *testing.T) {
	off := false
	var buf bytes.Buffer
	logger := New(Options{Writer: &buf, Verbose: true, Journal: &off})
	logger.Debug("link initialized", "backend", "simulator")
	out := buf.String()
	if !strings.Contains(out, "level=DEBUG") || !strings.Contains(out, "backend=simulator") {
		t.Fatalf("output = %q", out)
	}

	buf.Reset()
	New(Options{Writer: &buf, Journal: &off}).Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("debug record at info level: %q", buf.String())
	}
}

func TestToJournalKey(t *testing.T) {
	if got := toJournalKey("idcode.part-number"); got != "IDCODE_PART_NUMBER" {
		t.Fatalf("toJournalKey() = %q", got)
	}
}

func TestCgroupPath(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "cgroup")
	if err := os.WriteFile(file, []byte("0::/system.slice/svfload.service\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := cgroupPath(file)
	if err != nil {
		t.Fatal(err)
	}
	if got != "/system.slice/svfload.service" {
		t.Fatalf("cgroupPath() = %q", got)
	}
}
