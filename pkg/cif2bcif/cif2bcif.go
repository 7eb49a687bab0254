// Package cif2bcif converts one structure file to binary CIF. The
// input may be plain or gzipped text CIF, or already binary, in
// which case it is re-encoded with the requested options.
package cif2bcif

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb"
	"github.com/bioml-tools/bio-datasets/pdb/bcif"
	"github.com/bioml-tools/bio-datasets/pdb/cif"
	"github.com/bioml-tools/bio-datasets/pkg/common"
)

// CmdFlag holds what the command line gives us.
type CmdFlag struct {
	Compression string   // payload compression name
	Precision   []string // column=decimals overrides
	Categories  []string // keep only these categories
	Verbose     bool     // say what was written
}

// parsePrecision turns entries like Cartn_x=4 into the map the
// encoder wants.
func parsePrecision(entries []string) (map[string]int, error) {
	if len(entries) == 0 {
		return nil, nil
	}
	m := make(map[string]int, len(entries))
	for _, e := range entries {
		name, val, found := strings.Cut(e, "=")
		if !found || name == "" {
			return nil, fmt.Errorf("precision %q is not column=decimals", e)
		}
		n, err := strconv.Atoi(val)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("precision %q wants a small positive number", e)
		}
		m[name] = n
	}
	return m, nil
}

// EncodeOptions turns the command line form into encoder options.
func EncodeOptions(flags *CmdFlag) (*bcif.EncodeOptions, error) {
	opts := &bcif.EncodeOptions{}
	if flags.Compression != "" {
		tag, err := bcif.ParseCompressionTag(flags.Compression)
		if err != nil {
			return nil, err
		}
		opts.Compression = tag
	}
	prec, err := parsePrecision(flags.Precision)
	if err != nil {
		return nil, err
	}
	opts.Precision = prec
	return opts, nil
}

// FilterCategories drops every category whose name is not on the
// list. A block left with no categories is dropped too. An empty
// list keeps everything.
func FilterCategories(f *cif.File, names []string) *cif.File {
	if len(names) == 0 {
		return f
	}
	want := make(map[string]bool, len(names))
	for _, n := range names {
		want[n] = true
	}
	out := &cif.File{}
	for _, blk := range f.Blocks {
		nb := &cif.Block{Name: blk.Name}
		for _, cat := range blk.Categories {
			if want[cat.Name] {
				nb.Categories = append(nb.Categories, cat)
			}
		}
		if len(nb.Categories) > 0 {
			out.Blocks = append(out.Blocks, nb)
		}
	}
	return out
}

// Convert reads a structure file from r and writes the binary form
// to w.
func Convert(w io.Writer, r io.Reader, opts *bcif.EncodeOptions, categories []string) error {
	f, err := pdb.Read(r)
	if err != nil {
		return err
	}
	f = FilterCategories(f, categories)
	if len(f.Blocks) == 0 {
		return errors.New("nothing left after the category filter")
	}
	return bcif.Write(w, f, opts)
}

// Mymain is the real main. Empty or "-" filenames mean the standard
// streams.
func Mymain(flags *CmdFlag, infile, outfile string) (err error) {
	opts, err := EncodeOptions(flags)
	if err != nil {
		return err
	}

	var r io.Reader = os.Stdin
	if infile != "" && infile != common.Stdio {
		fp, err := pdb.Open(infile)
		if err != nil {
			return err
		}
		defer fp.Close()
		r = fp
	}

	var w io.Writer = os.Stdout
	name := "stdout"
	if outfile != "" && outfile != common.Stdio {
		fp, cerr := os.Create(outfile)
		if cerr != nil {
			return cerr
		}
		defer func() {
			if e := fp.Close(); e != nil && err == nil {
				err = e
			}
		}()
		w = fp
		name = outfile
	}
	cw := &countWriter{w: w}
	if err = Convert(cw, r, opts, flags.Categories); err != nil {
		return err
	}
	if flags.Verbose {
		fmt.Fprintf(os.Stderr, "wrote %d bytes to %s\n", cw.n, name)
	}
	return err
}

// countWriter counts what goes through so verbose mode can report
// the output size without a stat.
type countWriter struct {
	w io.Writer
	n int64
}

func (cw *countWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)
	return n, err
}
