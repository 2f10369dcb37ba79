package svf

import (
	"fmt"
	"strings"
)

// bitVector is a packed bit string. Bit 0 is the least significant bit of
// the SVF hex value and the first bit shifted.
type bitVector struct {
	n    int
	data []byte
}

func newVector(n int, fill bool) bitVector {
	v := bitVector{n: n, data: make([]byte, (n+7)/8)}
	if fill {
		for i := range v.data {
			v.data[i] = 0xFF
		}
	}
	return v
}

// parseHex decodes an SVF hex vector such as "(0A01 40DD)" into n bits.
// Missing high digits are zero; set bits beyond n are an error.
func parseHex(text string, n int) (bitVector, error) {
	digits := strings.Map(func(r rune) rune {
		switch r {
		case '(', ')', ' ', '\t', '\n', '\r', '\v', '\f':
			return -1
		}
		return r
	}, text)

	v := newVector(n, false)
	for j := 0; j < len(digits); j++ {
		c := digits[len(digits)-1-j]
		nib, ok := hexValue(c)
		if !ok {
			return bitVector{}, fmt.Errorf("invalid hex digit %q", c)
		}
		for k := 0; k < 4; k++ {
			if nib&(1<<k) == 0 {
				continue
			}
			i := 4*j + k
			if i >= n {
				return bitVector{}, fmt.Errorf("hex value %s does not fit in %d bits", text, n)
			}
			v.set(i, true)
		}
	}
	return v, nil
}

func hexValue(c byte) (byte, bool) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', true
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, true
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, true
	}
	return 0, false
}

func (v bitVector) Len() int {
	return v.n
}

func (v bitVector) bit(i int) bool {
	return v.data[i/8]&(1<<(i%8)) != 0
}

func (v *bitVector) set(i int, b bool) {
	if b {
		v.data[i/8] |= 1 << (i % 8)
	} else {
		v.data[i/8] &^= 1 << (i % 8)
	}
}

// String renders the vector as SVF hex, most significant digit first.
func (v bitVector) String() string {
	if v.n == 0 {
		return "()"
	}
	var b strings.Builder
	b.WriteByte('(')
	for j := (v.n+3)/4 - 1; j >= 0; j-- {
		var nib byte
		for k := 0; k < 4; k++ {
			if i := 4*j + k; i < v.n && v.bit(i) {
				nib |= 1 << k
			}
		}
		b.WriteByte("0123456789ABCDEF"[nib])
	}
	b.WriteByte(')')
	return b.String()
}
