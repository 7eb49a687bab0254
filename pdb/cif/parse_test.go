package cif

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const smallCif = `data_1XYZ
#
_entry.id   1XYZ
_struct.title  'A made-up protein'
#
loop_
_atom_site.group_PDB
_atom_site.id
_atom_site.auth_atom_id
_atom_site.Cartn_x
ATOM 1 N  11.001
ATOM 2 CA 12.502
ATOM 3 C  .
#
_exptl.method
; X-RAY
DIFFRACTION
;
`

func TestParseSmall(t *testing.T) {
	f, err := Parse(strings.NewReader(smallCif))
	if err != nil {
		t.Fatal("parsing small cif:", err)
	}
	if len(f.Blocks) != 1 || f.Blocks[0].Name != "1XYZ" {
		t.Fatalf("wanted one block called 1XYZ, got %+v", f.Blocks)
	}
	blk := f.Blocks[0]

	entry := blk.Category("entry")
	if entry == nil || entry.Column("id").Values[0] != "1XYZ" {
		t.Fatal("entry.id not kept")
	}
	if got := blk.Category("struct").Column("title").Values[0]; got != "A made-up protein" {
		t.Fatalf("title wanted 'A made-up protein' got %q", got)
	}

	as := blk.Category("atom_site")
	if as == nil {
		t.Fatal("no atom_site table")
	}
	if as.Rows() != 3 {
		t.Fatalf("atom_site wanted 3 rows got %d", as.Rows())
	}
	x := as.Column("Cartn_x")
	if x.Values[1] != "12.502" {
		t.Fatalf("Cartn_x row 1 wanted 12.502 got %q", x.Values[1])
	}
	if x.Ok(2) {
		t.Fatal("the bare dot should be masked")
	}
	if x.Mask[2] != Inapplicable {
		t.Fatalf("mask kind wanted Inapplicable got %d", x.Mask[2])
	}

	method := blk.Category("exptl").Column("method")
	if want := " X-RAY\nDIFFRACTION"; method.Values[0] != want {
		t.Fatalf("semicolon field wanted %q got %q", want, method.Values[0])
	}
}

func TestParseMultiBlock(t *testing.T) {
	in := `data_ALA
_chem_comp.id ALA
data_GLY
_chem_comp.id GLY
`
	f, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Blocks) != 2 {
		t.Fatalf("wanted 2 blocks got %d", len(f.Blocks))
	}
	if f.Block("GLY") == nil || f.Block("GLY").Category("chem_comp").Column("id").Values[0] != "GLY" {
		t.Fatal("second block lost")
	}
}

func TestParseQuotedPlaceholder(t *testing.T) {
	in := `data_x
loop_
_t.a
_t.b
'?' ?
`
	f, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	cat := f.Blocks[0].Category("t")
	if !cat.Columns[0].Ok(0) || cat.Columns[0].Values[0] != "?" {
		t.Fatal("a quoted question mark is a value, not a mask")
	}
	if cat.Columns[1].Ok(0) || cat.Columns[1].Mask[0] != Unknown {
		t.Fatal("a bare question mark is unknown")
	}
}

// A table split in two, with the second half listing its items in
// the other order, must come back as one table.
func TestParseSplitTable(t *testing.T) {
	in := `data_x
loop_
_t.a
_t.b
1 one
2 ?
loop_
_t.b
_t.a
three 3
`
	f, err := Parse(strings.NewReader(in))
	if err != nil {
		t.Fatal(err)
	}
	cat := f.Blocks[0].Category("t")
	if cat.Rows() != 3 {
		t.Fatalf("wanted 3 merged rows got %d", cat.Rows())
	}
	a, b := cat.Column("a"), cat.Column("b")
	if diff := cmp.Diff([]string{"1", "2", "3"}, a.Values); diff != "" {
		t.Fatalf("column a (-want +got):\n%s", diff)
	}
	if b.Values[2] != "three" || b.Ok(1) {
		t.Fatalf("column b merged badly: %v mask %v", b.Values, b.Mask)
	}
	// Two single items then a loop of the same items also merge.
	in2 := "data_x\n_t.a 1\n_t.b one\nloop_\n_t.a\n_t.b\n2 two\n"
	f2, err := Parse(strings.NewReader(in2))
	if err != nil {
		t.Fatal(err)
	}
	cat2 := f2.Blocks[0].Category("t")
	if cat2.Rows() != 2 || cat2.Column("b").Values[1] != "two" {
		t.Fatalf("items then loop merged badly: %+v", cat2)
	}
}

type badCase struct {
	name string
	in   string
}

var badCases = []badCase{
	{"empty", ""},
	{"short row", "data_x\nloop_\n_t.a\n_t.b\nonly\n_next.item v\n"},
	{"bad directive", "data_x\nrubbish here\n"},
	{"empty table", "data_x\nloop_\n_t.a\n"},
	{"mixed loop", "data_x\nloop_\n_t.a\n_u.b\n1 2\n"},
	{"unterminated quote", "data_x\n_t.a 'no end\n"},
	{"open semifield", "data_x\n_t.a\n;never closed\n"},
	{"repeated loop item", "data_x\nloop_\n_t.a\n_t.a\n1 2\n"},
	{"reopened with new item", "data_x\nloop_\n_t.a\n1\nloop_\n_t.b\n2\n"},
	{"reopened missing item", "data_x\nloop_\n_t.a\n_t.b\n1 2\nloop_\n_t.a\n3\n"},
	{"duplicate item", "data_x\n_t.a 1\n_t.a 2\n"},
	{"item into table", "data_x\nloop_\n_t.a\n1\n2\n_t.b v\n"},
}

func TestParseErrors(t *testing.T) {
	for _, c := range badCases {
		if _, err := Parse(strings.NewReader(c.in)); err == nil {
			t.Fatalf("%s: wanted an error, got none", c.name)
		}
	}
}

func TestErrorHasLineNumber(t *testing.T) {
	in := "data_x\n_t.a v\nrubbish here\n"
	_, err := Parse(strings.NewReader(in))
	if err == nil {
		t.Fatal("wanted an error")
	}
	if !strings.Contains(err.Error(), "Line 3") {
		t.Fatalf("error should point at line 3: %q", err.Error())
	}
}

// TestWriteRoundTrip checks that writing a parsed file and parsing
// it again gives the same thing. Comments and layout are allowed to
// change, values and masks are not.
func TestWriteRoundTrip(t *testing.T) {
	f, err := Parse(strings.NewReader(smallCif))
	if err != nil {
		t.Fatal(err)
	}
	var sb strings.Builder
	if err := Write(&sb, f); err != nil {
		t.Fatal("writing:", err)
	}
	f2, err := Parse(strings.NewReader(sb.String()))
	if err != nil {
		t.Fatalf("reparsing our own output: %v\noutput was\n%s", err, sb.String())
	}
	if diff := cmp.Diff(f, f2); diff != "" {
		t.Fatalf("round trip changed the file (-orig +reparsed):\n%s", diff)
	}
}
