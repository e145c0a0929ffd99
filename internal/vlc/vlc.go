// Package vlc validates variable-length-code bitstreams and counts the bits
// they occupy. A stream is a sequence of (codeword, length) pairs; the
// harness treats the pairs as opaque beyond these checks.
package vlc

import "fmt"

// MaxCodeBits is the widest codeword a stream may carry.
const MaxCodeBits = 32

// MalformedError reports a codeword that is not a valid prefix-code entry.
type MalformedError struct {
	Row    int
	Reason string
}

func (e *MalformedError) Error() string {
	return fmt.Sprintf("malformed codeword at row %d: %s", e.Row, e.Reason)
}

// Test validates a codeword stream and returns the total number of bits it
// occupies. Each row is (codeword, bit length); the codeword must be
// non-negative and fit within its stated length, and the length must be
// between 1 and MaxCodeBits. The count is a pure function of the stream.
func Test(stream [][2]int64) (int64, error) {
	var total int64
	for i, row := range stream {
		code, bits := row[0], row[1]
		if bits < 1 || bits > MaxCodeBits {
			return 0, &MalformedError{Row: i, Reason: fmt.Sprintf("bit length %d out of range [1, %d]", bits, MaxCodeBits)}
		}
		if code < 0 {
			return 0, &MalformedError{Row: i, Reason: fmt.Sprintf("negative codeword %d", code)}
		}
		if code >= 1<<uint(bits) {
			return 0, &MalformedError{Row: i, Reason: fmt.Sprintf("codeword %d does not fit in %d bits", code, bits)}
		}
		total += bits
	}
	return total, nil
}
