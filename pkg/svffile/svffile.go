// Package svffile exposes an SVF file as a read-only, memory-mapped byte
// cursor.
package svffile

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceSVF/pkg/link"
)

// ErrEmpty is returned by Open for a zero-length file.
var ErrEmpty = errors.New("svffile: file is empty")

// Source is a byte cursor over an SVF file. It is not safe for concurrent
// use.
type Source struct {
	name   string
	data   []byte
	pos    int
	mapped bool
}

// Open maps path read-only. The file must be a non-empty regular file;
// anything else is reported as link.ErrResourceMissing.
func Open(path string) (*Source, error) {
	if path == "" {
		return nil, missing("", errors.New("no SVF file given"))
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, missing(path, err)
	}
	defer f.Close()

	st, err := f.Stat()
	if err != nil {
		return nil, missing(path, err)
	}
	if !st.Mode().IsRegular() {
		return nil, missing(path, errors.New("not a regular file"))
	}
	if st.Size() == 0 {
		return nil, missing(path, ErrEmpty)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, int(st.Size()), unix.PROT_READ, unix.MAP_SHARED)
	if err != nil {
		return nil, missing(path, fmt.Errorf("mmap: %w", err))
	}
	return &Source{name: path, data: data, mapped: true}, nil
}

// FromBytes wraps an in-memory buffer. Close is a no-op for such sources.
func FromBytes(name string, data []byte) *Source {
	return &Source{name: name, data: data}
}

func missing(path string, err error) error {
	return &link.Error{Kind: link.ErrResourceMissing, Err: fmt.Errorf("%s: %w", path, err)}
}

// Name returns the path the source was opened from.
func (s *Source) Name() string {
	return s.name
}

// Len returns the file size in bytes.
func (s *Source) Len() int {
	return len(s.data)
}

// Next returns the next byte, or false once the file is exhausted.
func (s *Source) Next() (byte, bool) {
	if s.pos >= len(s.data) {
		return 0, false
	}
	b := s.data[s.pos]
	s.pos++
	return b, true
}

// Reset rewinds the cursor to the first byte.
func (s *Source) Reset() {
	s.pos = 0
}

// Close unmaps the file. Calling it more than once is harmless.
func (s *Source) Close() error {
	if !s.mapped {
		s.data = nil
		return nil
	}
	s.mapped = false
	data := s.data
	s.data = nil
	s.pos = 0
	return unix.Munmap(data)
}
