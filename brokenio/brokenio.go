// Package brokenio wraps an io.ReadCloser so reads fail on demand.
// The structure readers see short files, truncated downloads and
// streams that die halfway. Wrapping a good reader in one of these
// lets the tests provoke the same things deterministically.
package brokenio

import (
	"errors"
	"io"
)

// ErrBroken is what a failing read returns.
var ErrBroken = errors.New("brokenio: induced read failure")

// A BrknRdrClsr hands out bytes from the wrapped reader until its
// budget runs out, then fails. A budget of zero mimics a zero
// length file: the very first read returns a clean EOF.
type BrknRdrClsr struct {
	rdrOrig io.ReadCloser
	budget  int
	nByte   int
}

// NewReader wraps a reader so it fails after budget bytes. Negative
// means never fail, which makes the wrapper transparent.
func NewReader(rIn io.ReadCloser, budget int) *BrknRdrClsr {
	return &BrknRdrClsr{rdrOrig: rIn, budget: budget}
}

func (r *BrknRdrClsr) Read(p []byte) (int, error) {
	if r.budget < 0 {
		return r.rdrOrig.Read(p)
	}
	if r.budget == 0 {
		return 0, io.EOF
	}
	left := r.budget - r.nByte
	if left <= 0 {
		return 0, ErrBroken
	}
	if len(p) > left {
		p = p[:left]
	}
	n, err := r.rdrOrig.Read(p)
	r.nByte += n
	return n, err
}

// Close closes the wrapped reader.
func (r *BrknRdrClsr) Close() error { return r.rdrOrig.Close() }
