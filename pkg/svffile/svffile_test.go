package svffile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.svf")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func drain(s *Source) string {
	var out []byte
	for {
		b, ok := s.Next()
		if !ok {
			return string(out)
		}
		out = append(out, b)
	}
}

func TestOpenReadsWholeFile(t *testing.T) {
	const content = "RUNTEST 100 TCK;\n"
	src, err := Open(writeFile(t, content))
	if err != nil {
		t.Fatalf("Open returned error: %v", err)
	}
	defer src.Close()

	if src.Len() != len(content) {
		t.Fatalf("Len() = %d, want %d", src.Len(), len(content))
	}
	if got := drain(src); got != content {
		t.Fatalf("read %q, want %q", got, content)
	}
	if _, ok := src.Next(); ok {
		t.Fatalf("Next after EOF returned a byte")
	}

	src.Reset()
	if got := drain(src); got != content {
		t.Fatalf("after Reset read %q, want %q", got, content)
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
	if err := src.Close(); err != nil {
		t.Fatalf("second Close returned error: %v", err)
	}
}

func TestOpenRejectsUnusableFiles(t *testing.T) {
	dir := t.TempDir()
	cases := map[string]string{
		"empty":     writeFile(t, ""),
		"missing":   filepath.Join(dir, "nope.svf"),
		"directory": dir,
		"no path":   "",
	}
	for name, path := range cases {
		t.Run(name, func(t *testing.T) {
			src, err := Open(path)
			if err == nil {
				src.Close()
				t.Fatalf("Open(%q) succeeded", path)
			}
			if !errors.Is(err, link.ErrResourceMissing) {
				t.Fatalf("Open(%q) error = %v, want ErrResourceMissing", path, err)
			}
		})
	}

	if _, err := Open(cases["empty"]); !errors.Is(err, ErrEmpty) {
		t.Fatalf("empty file error = %v, want ErrEmpty", err)
	}
}

func TestFromBytes(t *testing.T) {
	src := FromBytes("mem", []byte("ab"))
	if got := drain(src); got != "ab" {
		t.Fatalf("read %q", got)
	}
	if src.Name() != "mem" {
		t.Fatalf("Name() = %q", src.Name())
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close returned error: %v", err)
	}
}
