// Package ccdgen drives the chemical component dictionary build
// from the command line.
package ccdgen

import (
	"fmt"
	"io"

	"github.com/bioml-tools/bio-datasets/ccd"
)

// CmdFlag holds what the command line gives us.
type CmdFlag struct {
	Config string // YAML config path, empty for defaults
	Force  bool   // rebuild even on a cache hit
}

// Mymain runs the build and prints where the artifacts landed.
func Mymain(flags *CmdFlag, out io.Writer) error {
	cfg, err := ccd.ReadConfig(flags.Config)
	if err != nil {
		return err
	}
	arts, err := ccd.NewBuilder(cfg).Run(flags.Force)
	if err != nil {
		return err
	}
	if arts.FromCache {
		fmt.Fprintln(out, "artifacts reused from cache")
	}
	fmt.Fprintln(out, arts.Dictionary)
	fmt.Fprintln(out, arts.Components)
	fmt.Fprintln(out, arts.Counts)
	return nil
}
