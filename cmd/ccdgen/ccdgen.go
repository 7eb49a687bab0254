// Build the chemical component artifacts.

package main

import (
	"fmt"
	"os"
	"path"

	flag "github.com/spf13/pflag"

	"github.com/bioml-tools/bio-datasets/pkg/ccdgen"
	. "github.com/bioml-tools/bio-datasets/pkg/common"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", path.Base(os.Args[0]), "[flags]")
	flag.PrintDefaults()
}

func main() {
	var flags ccdgen.CmdFlag

	flag.StringVarP(&flags.Config, "config", "c", "", "YAML config file")
	flag.BoolVarP(&flags.Force, "force", "f", false,
		"download and rebuild even when cached")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 0 {
		usage()
		os.Exit(ExitFailure)
	}

	if err := ccdgen.Mymain(&flags, os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}
