// Package protein specialises the structure machinery to proteins:
// the standard amino acid dictionary, and the fixed width atom14 and
// atom37 coordinate layouts that ML models feed on.
package protein

import (
	"fmt"

	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
	"github.com/bioml-tools/bio-datasets/structure"
	"github.com/bioml-tools/bio-datasets/structure/residue"
)

// NewDictionary builds the standard amino acid dictionary, with the
// selenium containing residues mapped onto their plain cousins.
func NewDictionary() *residue.Dictionary {
	d := &residue.Dictionary{
		ResidueNames:  ResidueNames,
		ResidueTypes:  ResidueTypes,
		AtomTypes:     AtomTypes,
		ResidueAtoms:  ResidueAtoms,
		BackboneAtoms: BackboneAtoms,
		UnknownName:   "UNK",
		Conversions: []residue.Conversion{
			{From: "MSE", To: "MET", AtomSwaps: [][2]string{{"SE", "SD"}}},
			{From: "SEC", To: "CYS", AtomSwaps: [][2]string{{"SE", "SG"}}},
		},
	}
	if err := d.Build(); err != nil {
		// The tables above are compile time constants. If they do
		// not build, the package is broken, not the caller.
		panic("protein: dictionary tables are inconsistent: " + err.Error())
	}
	return d
}

// Atom14Compatible says whether every residue of a dictionary fits
// in fourteen atom slots.
func Atom14Compatible(d *residue.Dictionary) bool {
	for _, atoms := range d.ResidueAtoms {
		if len(atoms) > NumAtom14 {
			return false
		}
	}
	return true
}

// Atom37Compatible says whether every atom of every residue appears
// in the canonical 37 type vocabulary.
func Atom37Compatible(d *residue.Dictionary) bool {
	for _, atoms := range d.ResidueAtoms {
		for _, at := range atoms {
			found := false
			for _, t := range AtomTypes {
				if at == t {
					found = true
					break
				}
			}
			if !found {
				return false
			}
		}
	}
	return true
}

// Atom14Coords lays a standardised chain out as residues by fourteen
// slots. Absent atoms, the empty trailing slots included, carry
// broken coordinates. The layout has no OXT slot, so a terminal OXT
// is dropped here; atom37 keeps it.
func Atom14Coords(c *structure.Chain) ([][NumAtom14]cmmn.Xyz, error) {
	if !Atom14Compatible(c.Dict) {
		return nil, fmt.Errorf("protein: dictionary does not fit in %d atom slots", NumAtom14)
	}
	out := make([][NumAtom14]cmmn.Xyz, c.NumResidues())
	for r := range out {
		for j := range out[r] {
			out[r][j] = cmmn.BrokenXyz()
		}
	}
	return out, fillByResidue(c, func(r, rel int, at string, xyz cmmn.Xyz) error {
		if rel < 0 {
			return nil // OXT has no slot of its own in atom14
		}
		if rel >= NumAtom14 {
			return fmt.Errorf("protein: atom %s overflows the atom14 layout", at)
		}
		out[r][rel] = xyz
		return nil
	}, relWithinResidue)
}

// Atom37Coords lays a standardised chain out as residues by the 37
// canonical atom types. Absent atoms carry broken coordinates.
func Atom37Coords(c *structure.Chain) ([][NumAtom37]cmmn.Xyz, error) {
	if !Atom37Compatible(c.Dict) {
		return nil, fmt.Errorf("protein: dictionary uses atoms outside the %d type vocabulary", NumAtom37)
	}
	out := make([][NumAtom37]cmmn.Xyz, c.NumResidues())
	for r := range out {
		for j := range out[r] {
			out[r][j] = cmmn.BrokenXyz()
		}
	}
	return out, fillByResidue(c, func(r, rel int, at string, xyz cmmn.Xyz) error {
		if rel < 0 {
			return fmt.Errorf("protein: atom %s is not an atom37 type", at)
		}
		out[r][rel] = xyz
		return nil
	}, relAtomType)
}

// relWithinResidue is the atom's place inside its residue. OXT gets
// no slot, so it comes back -1 and the atom14 sink drops it.
func relWithinResidue(c *structure.Chain, resIdx int, atomName string) int {
	if atomName == "OXT" {
		return -1
	}
	return c.Dict.RelativeIndex(resIdx, atomName)
}

// relAtomType is the atom's place in the global atom type list.
func relAtomType(c *structure.Chain, _ int, atomName string) int {
	return c.Dict.AtomTypeIndex(atomName)
}

// fillByResidue walks the present atoms of a standardised chain,
// handing each one's residue number, computed slot and coordinate to
// the sink.
func fillByResidue(c *structure.Chain,
	sink func(r, rel int, at string, xyz cmmn.Xyz) error,
	rel func(c *structure.Chain, resIdx int, atomName string) int) error {

	a := c.Atoms
	r := -1
	var resIdx int
	for i := 0; i < a.Len(); i++ {
		if i == 0 || a.ResID[i] != a.ResID[i-1] || a.InsCode[i] != a.InsCode[i-1] ||
			a.ResName[i] != a.ResName[i-1] {
			r++
			resIdx, _ = c.Dict.Index(a.ResName[i])
		}
		if !a.Present[i] {
			continue
		}
		j := rel(c, resIdx, a.AtomName[i])
		if err := sink(r, j, a.AtomName[i], a.Coord[i]); err != nil {
			return err
		}
	}
	return nil
}
