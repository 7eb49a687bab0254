package structure

import (
	"fmt"

	"github.com/andrew-torda/matrix"

	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
)

// DistanceMatrix fills a residue by residue distance matrix from two
// coordinate sets. Broken coordinates give NaN entries, which the
// callers either tolerate or fill.
func DistanceMatrix(from, to []cmmn.Xyz) *matrix.FMatrix2d {
	m := matrix.NewFMatrix2d(len(from), len(to))
	for i, a := range from {
		row := m.Mat[i]
		for j, b := range to {
			row[j] = a.Dist(b)
		}
	}
	return m
}

// Distances gives the residue distance matrix of a chain over one
// named atom, CA being the usual choice.
func (c *Chain) Distances(atomName string) *matrix.FMatrix2d {
	coords := c.AtomCoords(atomName)
	return DistanceMatrix(coords, coords)
}

// FillBroken replaces every NaN entry with the given value. A NaN is
// the only float that is not equal to itself.
func FillBroken(m *matrix.FMatrix2d, v float32) {
	for _, row := range m.Mat {
		for j, x := range row {
			if x != x {
				row[j] = v
			}
		}
	}
}

// maxEntry finds the largest non-NaN entry. Zero if there is none.
func maxEntry(m *matrix.FMatrix2d) float32 {
	var max float32
	for _, row := range m.Mat {
		for _, x := range row {
			if x == x && x > max {
				max = x
			}
		}
	}
	return max
}

// Contacts gives the boolean contact map of a chain: true where two
// residues' named atoms sit closer than the threshold. Pairs with a
// missing atom are treated as far apart.
func (c *Chain) Contacts(atomName string, threshold float32) [][]bool {
	m := c.Distances(atomName)
	FillBroken(m, maxEntry(m)+threshold)
	out := make([][]bool, len(m.Mat))
	for i, row := range m.Mat {
		out[i] = make([]bool, len(row))
		for j, x := range row {
			out[i][j] = x < threshold
		}
	}
	return out
}

// InterfaceDistances gives the distance matrix between one atom type
// of two chains of a complex.
func (x *Complex) InterfaceDistances(idFrom, idTo, atomName string) (*matrix.FMatrix2d, error) {
	from := x.Chain(idFrom)
	to := x.Chain(idTo)
	if from == nil || to == nil {
		return nil, fmt.Errorf("structure: no chain pair %s %s", idFrom, idTo)
	}
	return DistanceMatrix(from.AtomCoords(atomName), to.AtomCoords(atomName)), nil
}

// InterfaceResidues marks the residues of two chains that sit within
// the threshold of the other chain. The two masks come back in the
// order the chains were named.
func (x *Complex) InterfaceResidues(idFrom, idTo, atomName string, threshold float32) ([]bool, []bool, error) {
	m, err := x.InterfaceDistances(idFrom, idTo, atomName)
	if err != nil {
		return nil, nil, err
	}
	nr, nc := m.Size()
	fromMask := make([]bool, nr)
	toMask := make([]bool, nc)
	for i, row := range m.Mat {
		for j, d := range row {
			if d == d && d < threshold {
				fromMask[i] = true
				toMask[j] = true
			}
		}
	}
	return fromMask, toMask, nil
}
