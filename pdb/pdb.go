// This is the upper level for reading structure files.
// Decide if a file is compressed or not, and whether it is text or
// binary cif. Then call the corresponding reader.

package pdb

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/bioml-tools/bio-datasets/pdb/bcif"
	"github.com/bioml-tools/bio-datasets/pdb/cif"
	"github.com/bioml-tools/bio-datasets/pdb/zwrap"
	"github.com/bioml-tools/bio-datasets/structure"
)

// Open opens a structure file and takes care of gzip. The caller
// gets a plain reader whatever the file was.
func Open(fname string) (io.ReadCloser, error) {
	fp, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	rdr, err := zwrap.WrapMaybe(fp)
	if err != nil {
		fp.Close()
		return nil, errors.New("reading " + fname + " " + err.Error())
	}
	return rdr, nil
}

// Read parses a structure from a reader. We peek at the first bytes
// rather than trusting a file name. Binary cif has magic at the
// front or starts with a CBOR map. Anything else is treated as text.
func Read(r io.Reader) (*cif.File, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil && len(head) == 0 {
		return nil, errors.New("zero length file")
	}
	if bcif.IsBcif(head) {
		return bcif.Read(br)
	}
	return cif.NewReader(br).Read()
}

// ReadFile reads a structure file in either format, compressed or
// not.
func ReadFile(fname string) (*cif.File, error) {
	rdr, err := Open(fname)
	if err != nil {
		return nil, err
	}
	defer rdr.Close()
	f, err := Read(rdr)
	if err != nil {
		return nil, errors.New(fname + ": " + err.Error())
	}
	return f, nil
}

// ReadStructure reads a file and lifts the atom_site category into
// an atom array, which is what the structure handling wants.
func ReadStructure(fname string) (*structure.AtomArray, error) {
	f, err := ReadFile(fname)
	if err != nil {
		return nil, err
	}
	return structure.FromFile(f)
}
