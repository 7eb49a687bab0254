package cif2bcif

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/bioml-tools/bio-datasets/pdb"
	"github.com/bioml-tools/bio-datasets/pdb/bcif"
)

const smallCif = `data_demo
_entry.id demo
loop_
_atom_site.id
_atom_site.Cartn_x
1 1.500
2 2.250
#
`

func TestEncodeOptions(t *testing.T) {
	opts, err := EncodeOptions(&CmdFlag{
		Compression: "lz4",
		Precision:   []string{"Cartn_x=2", "B_iso_or_equiv=1"},
	})
	if err != nil {
		t.Fatal(err)
	}
	if opts.Compression != bcif.CompressionLZ4 {
		t.Errorf("compression came out as %v", opts.Compression)
	}
	if opts.Precision["Cartn_x"] != 2 || opts.Precision["B_iso_or_equiv"] != 1 {
		t.Errorf("precision map wrong: %v", opts.Precision)
	}
	for _, bad := range []string{"Cartn_x", "=3", "Cartn_x=pig", "Cartn_x=-1"} {
		if _, err := EncodeOptions(&CmdFlag{Precision: []string{bad}}); err == nil {
			t.Errorf("precision %q accepted", bad)
		}
	}
	if _, err := EncodeOptions(&CmdFlag{Compression: "bzip2"}); err == nil {
		t.Error("unknown compression accepted")
	}
}

func TestConvert(t *testing.T) {
	var buf bytes.Buffer
	if err := Convert(&buf, strings.NewReader(smallCif), nil, nil); err != nil {
		t.Fatal(err)
	}
	if !bcif.IsBcif(buf.Bytes()[:4]) {
		t.Fatal("output does not look binary")
	}
	f, err := pdb.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	cat := f.Blocks[0].Category("atom_site")
	if cat == nil || cat.Rows() != 2 {
		t.Fatal("atom_site did not survive the round trip")
	}
	if got := cat.Column("Cartn_x").Values[1]; got != "2.250" {
		t.Errorf("Cartn_x[1] came back as %q", got)
	}
}

func TestConvertCategoryFilter(t *testing.T) {
	var buf bytes.Buffer
	if err := Convert(&buf, strings.NewReader(smallCif), nil,
		[]string{"atom_site"}); err != nil {
		t.Fatal(err)
	}
	f, err := pdb.Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if f.Blocks[0].Category("entry") != nil {
		t.Error("entry category should have been filtered out")
	}
	if f.Blocks[0].Category("atom_site") == nil {
		t.Error("atom_site should have been kept")
	}
	err = Convert(&buf, strings.NewReader(smallCif), nil, []string{"no_such"})
	if err == nil {
		t.Error("filtering everything away should be an error")
	}
}

func TestMymainFiles(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "demo.cif")
	out := filepath.Join(dir, "demo.bcif")
	if err := os.WriteFile(in, []byte(smallCif), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Mymain(&CmdFlag{Compression: "none"}, in, out); err != nil {
		t.Fatal(err)
	}
	f, err := pdb.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if f.Blocks[0].Name != "demo" {
		t.Errorf("block name came back as %q", f.Blocks[0].Name)
	}
	if err := Mymain(&CmdFlag{}, filepath.Join(dir, "no-such.cif"), out); err == nil {
		t.Error("missing input gave no error")
	}
}
