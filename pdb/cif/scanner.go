package cif

import (
	"bufio"
	"bytes"
	"io"
)

// cmmtScanner is a wrapper around bufio.Scanner that jumps over blank
// lines, throws away comment lines and counts newlines so error
// messages can say where things went wrong. A comment character is
// only a comment character at the start of a line. Elsewhere it could
// be sitting inside a quoted value, so we leave it alone and let the
// splitter sort it out.
type cmmtScanner struct {
	*bufio.Scanner
	lErr   readError // fill this out as soon as an error happens
	ctoken []byte    // the bytes that cbytes() returns
	n      int       // line number in the cif file
	cmmt   byte      // comment character
	Ok     bool      // are we OK or have we had an error ?
}

func newCmmtScanner(r io.Reader, cmmt byte) cmmtScanner {
	sc := bufio.NewScanner(r)
	// Semicolon text fields in the chemical component dictionary can
	// hold whole SMILES strings. Give the scanner room.
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	return cmmtScanner{
		Scanner: sc,
		cmmt:    cmmt,
		Ok:      true,
	}
}

// cscan is a wrapper around the library Scan(). On top of counting
// lines, it skips blanks and comments. At end of input it returns
// true with a nil token, so callers distinguish EOF from a real
// error by looking at ctoken.
func (s *cmmtScanner) cscan() bool {
	if !s.Ok { // an earlier error that nobody noticed
		s.ctoken = nil
		return false
	}
	for {
		if !s.Scan() {
			s.ctoken = nil
			if err := s.Err(); err != nil {
				s.fill(err.Error(), true)
				return false
			}
			return true // no error, just EOF
		}
		s.n++
		b := s.Bytes()
		// Only trim the right side. A semicolon field cares about
		// its leading spaces.
		b = bytes.TrimRight(b, " \t\r")
		if len(b) == 0 {
			continue
		}
		if b[0] == s.cmmt {
			continue
		}
		s.ctoken = b
		return true
	}
}

// cbytes returns the current processed line. nil means end of input.
func (s *cmmtScanner) cbytes() []byte { return s.ctoken }
