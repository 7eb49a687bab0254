package pdb_test

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bioml-tools/bio-datasets/brokenio"
	"github.com/bioml-tools/bio-datasets/pdb"
	"github.com/bioml-tools/bio-datasets/pdb/bcif"
	"github.com/bioml-tools/bio-datasets/pdb/zwrap"
)

const tinyCif = `data_1abc
_entry.id 1abc
loop_
_atom_site.group_PDB
_atom_site.id
_atom_site.label_atom_id
_atom_site.label_comp_id
_atom_site.label_asym_id
_atom_site.label_seq_id
_atom_site.Cartn_x
_atom_site.Cartn_y
_atom_site.Cartn_z
ATOM 1 N  GLY A 1 11.000 12.000 13.000
ATOM 2 CA GLY A 1 12.500 12.000 13.000
ATOM 3 C  GLY A 1 13.000 13.400 13.000
ATOM 4 O  GLY A 1 14.200 13.700 13.000
#
`

// writeTmp writes a file, gzipped or not, and gives back its name.
func writeTmp(t *testing.T, name string, data []byte, gzipped bool) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	fp, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if gzipped {
		zw := zwrap.WrapWriter(fp)
		if _, err := zw.Write(data); err != nil {
			t.Fatal(err)
		}
		if err := zw.Close(); err != nil {
			t.Fatal(err)
		}
		return path
	}
	if _, err := fp.Write(data); err != nil {
		t.Fatal(err)
	}
	if err := fp.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestReadFileFormats(t *testing.T) {
	var binBuf bytes.Buffer
	{
		f, err := pdb.Read(strings.NewReader(tinyCif))
		if err != nil {
			t.Fatal(err)
		}
		if err := bcif.Write(&binBuf, f, nil); err != nil {
			t.Fatal(err)
		}
	}
	cases := []struct {
		name    string
		data    []byte
		gzipped bool
	}{
		{"plain.cif", []byte(tinyCif), false},
		{"gzipped.cif.gz", []byte(tinyCif), true},
		{"binary.bcif", binBuf.Bytes(), false},
		{"binary.bcif.gz", binBuf.Bytes(), true},
	}
	for _, c := range cases {
		path := writeTmp(t, c.name, c.data, c.gzipped)
		f, err := pdb.ReadFile(path)
		if err != nil {
			t.Fatalf("%s: %v", c.name, err)
		}
		if f.Blocks[0].Name != "1abc" {
			t.Errorf("%s: block name %q", c.name, f.Blocks[0].Name)
		}
		if n := f.Blocks[0].Category("atom_site").Rows(); n != 4 {
			t.Errorf("%s: wanted 4 atoms, got %d", c.name, n)
		}
	}
}

// A stream that dies mid-file must surface an error, not a short
// structure.
func TestReadBrokenStream(t *testing.T) {
	b := brokenio.NewReader(io.NopCloser(strings.NewReader(tinyCif)), 40)
	if _, err := pdb.Read(b); err == nil {
		t.Error("no error from a stream that dies mid-file")
	}
	z := brokenio.NewReader(io.NopCloser(strings.NewReader(tinyCif)), 0)
	if _, err := pdb.Read(z); err == nil {
		t.Error("no error from a zero length stream")
	}
}

func TestReadBadFiles(t *testing.T) {
	if _, err := pdb.ReadFile("/does/not/exist"); err == nil {
		t.Error("no error on a missing file")
	}
	empty := writeTmp(t, "empty.cif", nil, false)
	if _, err := pdb.ReadFile(empty); err == nil {
		t.Error("no error on an empty file")
	}
}

func TestReadStructure(t *testing.T) {
	path := writeTmp(t, "tiny.cif", []byte(tinyCif), false)
	a, err := pdb.ReadStructure(path)
	if err != nil {
		t.Fatal(err)
	}
	if a.Len() != 4 {
		t.Fatalf("wanted 4 atoms, got %d", a.Len())
	}
	if a.AtomName[1] != "CA" || a.Coord[1].X != 12.5 {
		t.Errorf("second atom came out as %s at %v", a.AtomName[1], a.Coord[1])
	}
}
