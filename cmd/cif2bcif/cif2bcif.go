// Convert one mmCIF file to binary CIF.

package main

import (
	"fmt"
	"os"
	"path"

	flag "github.com/spf13/pflag"

	"github.com/bioml-tools/bio-datasets/pkg/cif2bcif"
	. "github.com/bioml-tools/bio-datasets/pkg/common"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", path.Base(os.Args[0]), "[flags] [infile [outfile]]")
	long := `Given no arguments, read from stdin and write to stdout. "-" also
means the standard stream. Gzipped input is handled. An input that is
already binary is decoded and re-encoded with the given options.`
	fmt.Fprintln(os.Stderr, long)
	flag.PrintDefaults()
}

func main() {
	var flags cif2bcif.CmdFlag
	var infile, outfile string

	flag.StringVarP(&flags.Compression, "compress", "z", "",
		"payload compression: none, gzip, zstd or lz4")
	flag.StringArrayVarP(&flags.Precision, "precision", "p", nil,
		"decimals for a float column, as column=decimals, repeatable")
	flag.StringArrayVarP(&flags.Categories, "keep", "k", nil,
		"keep only this category, repeatable; default keeps all")
	flag.BoolVarP(&flags.Verbose, "verbose", "v", false,
		"report what was written")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() > 0 {
		infile = flag.Arg(0)
		if flag.NArg() > 1 {
			outfile = flag.Arg(1)
		}
	}

	if err := cif2bcif.Mymain(&flags, infile, outfile); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}
