// Package structure turns parsed cif files into something a dataset
// pipeline can use: flat columnar atom arrays, standardised so every
// residue carries its full complement of atoms in a fixed order, plus
// chain and complex views on top.

package structure

import (
	"fmt"
	"strconv"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
)

// An AtomArray holds one annotation slice per column of atom_site.
// All slices have the same length. Present marks atoms that were
// really in the file. Standardisation adds rows for missing atoms
// with broken coordinates and Present false.
type AtomArray struct {
	ChainID   []string
	ResName   []string
	ResID     []int
	InsCode   []string
	AtomName  []string
	Element   []string
	Het       []bool
	Coord     []cmmn.Xyz
	Occupancy []float32
	BFactor   []float32
	Present   []bool
}

// NewAtomArray gives an array with n rows, all zeroed.
func NewAtomArray(n int) *AtomArray {
	return &AtomArray{
		ChainID:   make([]string, n),
		ResName:   make([]string, n),
		ResID:     make([]int, n),
		InsCode:   make([]string, n),
		AtomName:  make([]string, n),
		Element:   make([]string, n),
		Het:       make([]bool, n),
		Coord:     make([]cmmn.Xyz, n),
		Occupancy: make([]float32, n),
		BFactor:   make([]float32, n),
		Present:   make([]bool, n),
	}
}

// Len is the number of atoms, present or filled in.
func (a *AtomArray) Len() int { return len(a.AtomName) }

// NumPresent counts atoms that were really in the file.
func (a *AtomArray) NumPresent() (n int) {
	for _, p := range a.Present {
		if p {
			n++
		}
	}
	return n
}

// Select keeps the rows where keep is true.
func (a *AtomArray) Select(keep []bool) *AtomArray {
	n := 0
	for _, k := range keep {
		if k {
			n++
		}
	}
	out := NewAtomArray(n)
	j := 0
	for i, k := range keep {
		if !k {
			continue
		}
		out.copyRow(j, a, i)
		j++
	}
	return out
}

func (out *AtomArray) copyRow(j int, a *AtomArray, i int) {
	out.ChainID[j] = a.ChainID[i]
	out.ResName[j] = a.ResName[i]
	out.ResID[j] = a.ResID[i]
	out.InsCode[j] = a.InsCode[i]
	out.AtomName[j] = a.AtomName[i]
	out.Element[j] = a.Element[i]
	out.Het[j] = a.Het[i]
	out.Coord[j] = a.Coord[i]
	out.Occupancy[j] = a.Occupancy[i]
	out.BFactor[j] = a.BFactor[i]
	out.Present[j] = a.Present[i]
}

// Append glues another array onto this one.
func (a *AtomArray) Append(b *AtomArray) {
	a.ChainID = append(a.ChainID, b.ChainID...)
	a.ResName = append(a.ResName, b.ResName...)
	a.ResID = append(a.ResID, b.ResID...)
	a.InsCode = append(a.InsCode, b.InsCode...)
	a.AtomName = append(a.AtomName, b.AtomName...)
	a.Element = append(a.Element, b.Element...)
	a.Het = append(a.Het, b.Het...)
	a.Coord = append(a.Coord, b.Coord...)
	a.Occupancy = append(a.Occupancy, b.Occupancy...)
	a.BFactor = append(a.BFactor, b.BFactor...)
	a.Present = append(a.Present, b.Present...)
}

// residueStarts finds the first atom of each residue. A residue
// boundary is any change of chain, residue number, insertion code or
// residue name.
func (a *AtomArray) residueStarts() []int {
	var starts []int
	for i := 0; i < a.Len(); i++ {
		if i == 0 ||
			a.ChainID[i] != a.ChainID[i-1] ||
			a.ResID[i] != a.ResID[i-1] ||
			a.InsCode[i] != a.InsCode[i-1] ||
			a.ResName[i] != a.ResName[i-1] {
			starts = append(starts, i)
		}
	}
	return starts
}

// FromFile pulls the atom_site category out of the first data block.
func FromFile(f *cif.File) (*AtomArray, error) {
	if len(f.Blocks) == 0 {
		return nil, fmt.Errorf("structure: file has no data blocks")
	}
	blk := f.Blocks[0]
	cat := blk.Category("atom_site")
	if cat == nil {
		return nil, fmt.Errorf("structure: block %s has no atom_site", blk.Name)
	}
	return FromCategory(cat)
}

// pick returns the preferred column, falling back to the label form
// when the author form is absent. mmCIF files carry both and the
// author numbering is the one people recognise.
func pick(cat *cif.Category, auth, label string) *cif.Column {
	if col := cat.Column(auth); col != nil {
		return col
	}
	return cat.Column(label)
}

// FromCategory converts an atom_site category into an atom array.
func FromCategory(cat *cif.Category) (*AtomArray, error) {
	n := cat.Rows()
	a := NewAtomArray(n)

	chain := pick(cat, "auth_asym_id", "label_asym_id")
	resName := pick(cat, "auth_comp_id", "label_comp_id")
	atomName := pick(cat, "auth_atom_id", "label_atom_id")
	resID := pick(cat, "auth_seq_id", "label_seq_id")
	insCode := cat.Column("pdbx_PDB_ins_code")
	element := cat.Column("type_symbol")
	group := cat.Column("group_PDB")
	x := cat.Column("Cartn_x")
	y := cat.Column("Cartn_y")
	z := cat.Column("Cartn_z")
	occ := cat.Column("occupancy")
	bfac := cat.Column("B_iso_or_equiv")

	for _, c := range []struct {
		col  *cif.Column
		what string
	}{{chain, "chain id"}, {resName, "residue name"}, {atomName, "atom name"},
		{resID, "residue number"}, {x, "Cartn_x"}, {y, "Cartn_y"}, {z, "Cartn_z"}} {
		if c.col == nil {
			return nil, fmt.Errorf("structure: atom_site has no %s column", c.what)
		}
	}

	for i := 0; i < n; i++ {
		a.ChainID[i] = chain.Values[i]
		a.ResName[i] = resName.Values[i]
		a.AtomName[i] = atomName.Values[i]
		if resID.Ok(i) {
			v, err := resID.Int(i)
			if err != nil {
				return nil, err
			}
			a.ResID[i] = v
		} else {
			a.ResID[i] = cmmn.BrokenResNum
		}
		if insCode != nil && insCode.Ok(i) {
			a.InsCode[i] = insCode.Values[i]
		}
		if element != nil && element.Ok(i) {
			a.Element[i] = element.Values[i]
		}
		if group != nil {
			a.Het[i] = group.Values[i] == "HETATM"
		}
		if x.Ok(i) && y.Ok(i) && z.Ok(i) {
			xc, e1 := x.Float(i)
			yc, e2 := y.Float(i)
			zc, e3 := z.Float(i)
			if e1 != nil || e2 != nil || e3 != nil {
				return nil, fmt.Errorf("structure: bad coordinates at atom %d", i+1)
			}
			a.Coord[i] = cmmn.Xyz{X: float32(xc), Y: float32(yc), Z: float32(zc)}
			a.Present[i] = true
		} else {
			a.Coord[i] = cmmn.BrokenXyz()
		}
		if occ != nil && occ.Ok(i) {
			if v, err := occ.Float(i); err == nil {
				a.Occupancy[i] = float32(v)
			}
		}
		if bfac != nil && bfac.Ok(i) {
			if v, err := bfac.Float(i); err == nil {
				a.BFactor[i] = float32(v)
			}
		}
	}
	return a, nil
}

// ToCategory builds an atom_site category from the array. Atoms that
// were filled in during standardisation have no coordinates, so they
// are left out. Coordinates keep three decimals, occupancy and B two,
// which is what the wwPDB files themselves do.
func (a *AtomArray) ToCategory() *cif.Category {
	cols := []string{"group_PDB", "id", "type_symbol", "label_atom_id",
		"label_comp_id", "label_asym_id", "label_seq_id",
		"pdbx_PDB_ins_code", "Cartn_x", "Cartn_y", "Cartn_z",
		"occupancy", "B_iso_or_equiv",
		"auth_seq_id", "auth_comp_id", "auth_asym_id", "auth_atom_id"}
	cat := &cif.Category{Name: "atom_site"}
	for _, name := range cols {
		cat.Columns = append(cat.Columns, cif.Column{Name: name})
	}
	byName := make(map[string]*cif.Column, len(cols))
	for i := range cat.Columns {
		byName[cat.Columns[i].Name] = &cat.Columns[i]
	}
	add := func(name, v string) { c := byName[name]; c.Values = append(c.Values, v) }
	// addMaybe writes a masked entry for an empty value, so the text
	// form comes out as a bare question mark, not an empty string.
	addMaybe := func(name, v string) {
		c := byName[name]
		if v != "" {
			c.Values = append(c.Values, v)
			if c.Mask != nil {
				c.Mask = append(c.Mask, cif.Present)
			}
			return
		}
		if c.Mask == nil {
			c.Mask = make([]cif.ValueKind, len(c.Values))
		}
		c.Values = append(c.Values, "")
		c.Mask = append(c.Mask, cif.Unknown)
	}

	id := 0
	for i := 0; i < a.Len(); i++ {
		if !a.Present[i] {
			continue
		}
		id++
		grp := "ATOM"
		if a.Het[i] {
			grp = "HETATM"
		}
		add("group_PDB", grp)
		add("id", strconv.Itoa(id))
		addMaybe("type_symbol", a.Element[i])
		add("label_atom_id", a.AtomName[i])
		add("label_comp_id", a.ResName[i])
		add("label_asym_id", a.ChainID[i])
		add("label_seq_id", strconv.Itoa(a.ResID[i]))
		addMaybe("pdbx_PDB_ins_code", a.InsCode[i])
		xyz := a.Coord[i]
		add("Cartn_x", strconv.FormatFloat(float64(xyz.X), 'f', 3, 32))
		add("Cartn_y", strconv.FormatFloat(float64(xyz.Y), 'f', 3, 32))
		add("Cartn_z", strconv.FormatFloat(float64(xyz.Z), 'f', 3, 32))
		add("occupancy", strconv.FormatFloat(float64(a.Occupancy[i]), 'f', 2, 32))
		add("B_iso_or_equiv", strconv.FormatFloat(float64(a.BFactor[i]), 'f', 2, 32))
		add("auth_seq_id", strconv.Itoa(a.ResID[i]))
		add("auth_comp_id", a.ResName[i])
		add("auth_asym_id", a.ChainID[i])
		add("auth_atom_id", a.AtomName[i])
	}
	return cat
}
