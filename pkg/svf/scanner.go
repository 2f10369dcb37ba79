package svf

import (
	"errors"
	"io"
	"strings"
)

var errUnterminated = errors.New("unterminated statement at end of file")

// scanner splits a byte stream into statements. It drops "!" and "//"
// comments and tracks the line each statement starts on.
type scanner struct {
	next func() (byte, bool)
	line int

	back    byte
	pending bool

	buf strings.Builder
}

func newScanner(next func() (byte, bool)) *scanner {
	return &scanner{next: next, line: 1}
}

func (s *scanner) getc() (byte, bool) {
	var (
		b  byte
		ok = true
	)
	if s.pending {
		s.pending = false
		b = s.back
	} else {
		b, ok = s.next()
	}
	if ok && b == '\n' {
		s.line++
	}
	return b, ok
}

func (s *scanner) ungetc(b byte) {
	s.back, s.pending = b, true
	if b == '\n' {
		s.line--
	}
}

func (s *scanner) skipLine() {
	for {
		b, ok := s.getc()
		if !ok || b == '\n' {
			return
		}
	}
}

// statement returns the next statement including its semicolon and the line
// it starts on. It returns io.EOF once only whitespace and comments remain.
func (s *scanner) statement() (string, int, error) {
	s.buf.Reset()
	start := 0
	for {
		b, ok := s.getc()
		if !ok {
			if start != 0 {
				return "", start, errUnterminated
			}
			return "", 0, io.EOF
		}

		switch b {
		case '!':
			s.skipLine()
			continue
		case '/':
			if c, ok := s.getc(); ok {
				if c == '/' {
					s.skipLine()
					continue
				}
				s.ungetc(c)
			}
		}

		if start == 0 && !isSpace(b) {
			start = s.line
		}
		s.buf.WriteByte(b)
		if b == ';' {
			return s.buf.String(), start, nil
		}
	}
}

func isSpace(b byte) bool {
	switch b {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}
