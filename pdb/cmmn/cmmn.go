// Package cmmn has common definitions for coordinates shared by the
// structure formats. It sits at the bottom of the pdb tree so both
// the readers and the structure types can use it without cycles.
package cmmn

import (
	"math"
)

// Xyz is one coordinate. mmCIF files store three decimal places, so
// float32 does not lose anything.
type Xyz struct{ X, Y, Z float32 }

var nan32 = float32(math.NaN())

// BrokenXyz is the marker for an atom that is not really there. A
// missing atom gets coordinates of NaN, which cannot be confused
// with a real position and is what the numeric code downstream
// expects.
func BrokenXyz() Xyz { return Xyz{nan32, nan32, nan32} }

// BrokenResNum marks a residue number that could not be read.
const BrokenResNum int = -9999

// Ok returns false if any component of the coordinate is NaN.
// NaN is the one value that is not equal to itself, so we do not
// need math.IsNaN and the float64 conversions it would force.
func (xyz *Xyz) Ok() bool {
	if xyz.X != xyz.X || xyz.Y != xyz.Y || xyz.Z != xyz.Z {
		return false
	}
	return true
}

// Sub returns xyz - b.
func (xyz Xyz) Sub(b Xyz) Xyz {
	return Xyz{xyz.X - b.X, xyz.Y - b.Y, xyz.Z - b.Z}
}

// Dist is the distance between two coordinates. If either point is
// broken, the answer is NaN, which is exactly what we want when
// filling distance matrices.
func (xyz Xyz) Dist(b Xyz) float32 {
	d := xyz.Sub(b)
	s := float64(d.X)*float64(d.X) + float64(d.Y)*float64(d.Y) + float64(d.Z)*float64(d.Z)
	return float32(math.Sqrt(s))
}
