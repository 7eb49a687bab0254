// Package cifs2bcifs converts a whole tree of structure files to
// binary CIF. The directory layout is mirrored under the output
// directory and files are converted in parallel. One bad file does
// not stop the rest, but the run as a whole fails if anything did.
package cifs2bcifs

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/bioml-tools/bio-datasets/pdb"
	"github.com/bioml-tools/bio-datasets/pdb/bcif"
	"github.com/bioml-tools/bio-datasets/pkg/cif2bcif"
)

// CmdFlag holds what the command line gives us.
type CmdFlag struct {
	Compression string   // payload compression name
	Precision   []string // column=decimals overrides
	NWorkers    int      // parallel conversions
}

// bcifName mirrors an input path into the output tree, with the
// extension swapped. a/b/x.cif.gz becomes out/a/b/x.bcif.
func bcifName(outDir, rel string) string {
	rel = strings.TrimSuffix(rel, ".gz")
	rel = strings.TrimSuffix(rel, ".cif")
	return filepath.Join(outDir, rel+".bcif")
}

func isCif(name string) bool {
	return strings.HasSuffix(name, ".cif") || strings.HasSuffix(name, ".cif.gz")
}

func convertOne(src, dest string, opts *bcif.EncodeOptions) (int64, error) {
	in, err := pdb.Open(src)
	if err != nil {
		return 0, err
	}
	defer in.Close()
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return 0, err
	}
	out, err := os.Create(dest)
	if err != nil {
		return 0, err
	}
	if err := cif2bcif.Convert(out, in, opts, nil); err != nil {
		out.Close()
		os.Remove(dest)
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, err
	}
	fi, err := os.Stat(dest)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Mymain walks inDir, converts every cif file it finds and writes
// the tree under outDir. Failures go to errOut as they happen.
func Mymain(flags *CmdFlag, inDir, outDir string, errOut io.Writer) error {
	opts, err := cif2bcif.EncodeOptions(&cif2bcif.CmdFlag{
		Compression: flags.Compression, Precision: flags.Precision})
	if err != nil {
		return err
	}
	nw := flags.NWorkers
	if nw < 1 {
		nw = 1
	}

	var g errgroup.Group
	g.SetLimit(nw)
	var mu sync.Mutex
	var nDone, nFail int
	var nBytes int64

	walkErr := filepath.WalkDir(inDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !isCif(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(inDir, path)
		if err != nil {
			return err
		}
		dest := bcifName(outDir, rel)
		g.Go(func() error {
			n, cErr := convertOne(path, dest, opts)
			mu.Lock()
			defer mu.Unlock()
			if cErr != nil {
				nFail++
				fmt.Fprintf(errOut, "%s: %v\n", path, cErr)
				return nil
			}
			nDone++
			nBytes += n
			return nil
		})
		return nil
	})
	if gErr := g.Wait(); gErr != nil && walkErr == nil {
		walkErr = gErr
	}
	if walkErr != nil {
		return walkErr
	}
	fmt.Fprintf(errOut, "converted %d files (%d bytes), %d failed\n",
		nDone, nBytes, nFail)
	if nFail > 0 {
		return fmt.Errorf("%d of %d conversions failed", nFail, nDone+nFail)
	}
	return nil
}
