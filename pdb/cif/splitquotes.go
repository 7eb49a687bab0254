// Splitting lines at spaces and quotes.
//
// From https://www.iucr.org/resources/cif/spec/version1.1/cifsyntax
//              character or string role
// _ (underscore) identifies data name
// #              identifies comment
// '              delimits non-simple data values
// "              delimits non-simple data values
// ; at beginning of line of text delimits non-simple data values
// data_          identifies data block header (case-insensitive)
//
// A closing quote only closes if it is followed by white space or
// the end of the line, so 'it's fine' is one token. We also have to
// remember whether a token was quoted. A bare ? means unknown, but a
// quoted '?' is a perfectly good value.

package cif

import (
	"errors"
)

const (
	squote byte = '\''
	dquote byte = '"'
)

// token is a word from a line, plus the knowledge of whether it was
// wrapped in quotes.
type token struct {
	b      []byte
	quoted bool
}

// iswhite only works for ascii spaces. That is all CIF allows.
var asciiSpace = [256]bool{
	'\t': true, '\n': true, '\v': true, '\f': true, '\r': true, ' ': true,
}

func iswhite(b byte) bool { return asciiSpace[b] }

// isquote not only checks if we have a quote character, it stores
// its type, so we can look for the matching closing quote.
func isquote(b byte, qtype *byte) bool {
	if b == squote || b == dquote {
		*qtype = b
		return true
	}
	return false
}

type sInfo struct { // holds the state of the state functions
	err     error
	ret     []token
	byteIn  []byte
	nxtIndx int
	qtype   byte
}

type sfn func(i int, c byte, s *sInfo) sfn

func sfnInQuote(i int, c byte, s *sInfo) sfn {
	if c == s.qtype {
		return sfnExitQuote
	}
	if c == '\n' {
		s.err = errors.New("unterminated quote in line: " + string(s.byteIn))
		return sfnWhite
	}
	return sfnInQuote
}

func sfnExitQuote(i int, c byte, s *sInfo) sfn {
	if iswhite(c) { // quote followed by white really ends a quoted region
		s.ret = append(s.ret, token{b: s.byteIn[s.nxtIndx : i-1], quoted: true})
		return sfnWhite
	}
	return sfnInQuote // a quote mid-word goes back into the quoted region
}

func sfnInText(i int, c byte, s *sInfo) sfn {
	if iswhite(c) {
		s.ret = append(s.ret, token{b: s.byteIn[s.nxtIndx:i]})
		return sfnWhite
	}
	return sfnInText
}

func sfnWhite(i int, c byte, s *sInfo) sfn {
	switch {
	case iswhite(c):
		return sfnWhite
	case isquote(c, &s.qtype):
		s.nxtIndx = i + 1
		return sfnInQuote
	default:
		s.nxtIndx = i
		return sfnInText
	}
}

// splitCifLine takes a byte slice and returns the words from it,
// separated at spaces and matching quote pairs. It is a small finite
// state machine with four states. When we leave text, or a quote
// followed by a space, we save the word. The scratch slice lets a
// caller in a loop avoid allocating.
func splitCifLine(byteIn []byte, scrtch []token) ([]token, error) {
	if len(byteIn) < 1 {
		return nil, nil
	}
	s := sInfo{ret: scrtch[:0], byteIn: byteIn}
	state := sfnWhite
	for i, c := range byteIn {
		state = state(i, c, &s)
	}
	state(len(byteIn), '\n', &s) // pretend newline, catches unterminated quotes
	if s.err != nil {
		return nil, s.err
	}
	return s.ret, nil
}
