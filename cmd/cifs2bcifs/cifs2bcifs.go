// Convert a directory tree of mmCIF files to binary CIF.

package main

import (
	"fmt"
	"os"
	"path"
	"runtime"

	flag "github.com/spf13/pflag"

	"github.com/bioml-tools/bio-datasets/pkg/cifs2bcifs"
	. "github.com/bioml-tools/bio-datasets/pkg/common"
)

func usage() {
	fmt.Fprintln(os.Stderr, "usage:", path.Base(os.Args[0]), "[flags] indir outdir")
	flag.PrintDefaults()
}

func main() {
	var flags cifs2bcifs.CmdFlag

	flag.StringVarP(&flags.Compression, "compress", "z", "",
		"payload compression: none, gzip, zstd or lz4")
	flag.StringArrayVarP(&flags.Precision, "precision", "p", nil,
		"decimals for a float column, as column=decimals, repeatable")
	flag.IntVarP(&flags.NWorkers, "nworkers", "r", runtime.NumCPU(),
		"files to convert in parallel")
	flag.Usage = usage
	flag.Parse()
	if flag.NArg() != 2 {
		usage()
		os.Exit(ExitFailure)
	}

	if err := cifs2bcifs.Mymain(&flags, flag.Arg(0), flag.Arg(1), os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(ExitFailure)
	}
	os.Exit(ExitSuccess)
}
