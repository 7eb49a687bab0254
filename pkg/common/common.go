// Package common has the few definitions every command line tool
// wants.
package common

// Exit codes for the command line wrappers.
const (
	ExitSuccess = iota
	ExitFailure
)

// Stdio is the filename that means standard input or output.
const Stdio = "-"
