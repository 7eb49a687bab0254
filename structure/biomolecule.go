package structure

import (
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
	"github.com/bioml-tools/bio-datasets/structure/residue"
)

// StandardiseOptions steer Standardise. The zero value keeps OXT,
// keeps the whole residue and silently drops residues the dictionary
// does not know.
type StandardiseOptions struct {
	// DropOXT throws terminal oxygens away instead of giving the
	// last residue of each chain an extra slot.
	DropOXT bool

	// BackboneOnly keeps only the dictionary's backbone atoms in
	// the result.
	BackboneOnly bool

	// ErrorOnUnexpectedResidue turns residues the dictionary does
	// not know into an error instead of dropping them.
	ErrorOnUnexpectedResidue bool

	// Log, when set, receives a line per filled-in missing atom.
	Log *log.Logger
}

// Standardise rebuilds an atom array so every residue carries its
// complete set of atoms in dictionary order. Atoms that were not in
// the file get broken coordinates and Present false. Hydrogens go.
// An atom the dictionary does not expect is an error, except in the
// unknown residue, where extras are quietly dropped.
//
// The input array is not modified.
func Standardise(a *AtomArray, dict *residue.Dictionary, opts *StandardiseOptions) (*AtomArray, error) {
	if opts == nil {
		opts = &StandardiseOptions{}
	}
	a = convertResidues(a, dict)

	keep := make([]bool, a.Len())
	var unexpected map[string]bool
	for i := 0; i < a.Len(); i++ {
		if a.Element[i] == "H" || a.Element[i] == "D" {
			continue // no hydrogens
		}
		if opts.DropOXT && a.AtomName[i] == "OXT" {
			continue
		}
		if _, ok := dict.Index(a.ResName[i]); !ok {
			if unexpected == nil {
				unexpected = make(map[string]bool)
			}
			unexpected[a.ResName[i]] = true
			continue
		}
		keep[i] = true
	}
	if opts.ErrorOnUnexpectedResidue && len(unexpected) > 0 {
		names := make([]string, 0, len(unexpected))
		for n := range unexpected {
			names = append(names, n)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("structure: unexpected residues: %s",
			strings.Join(names, " "))
	}
	a = a.Select(keep)
	if a.Len() == 0 {
		return nil, fmt.Errorf("structure: no atoms left after filtering")
	}

	starts := a.residueStarts()
	nres := len(starts)
	withOXT := !opts.DropOXT && dict.AtomTypeIndex("OXT") >= 0

	// Per residue: the dictionary index, whether it is last in its
	// chain, and where its block begins in the full array.
	resIdx := make([]int, nres)
	terminal := make([]bool, nres)
	fullStarts := make([]int, nres)
	total := 0
	for r, s := range starts {
		ri, _ := dict.Index(a.ResName[s])
		resIdx[r] = ri
		terminal[r] = r == nres-1 || a.ChainID[starts[r+1]] != a.ChainID[s]
		fullStarts[r] = total
		total += dict.Size(ri)
		if withOXT && terminal[r] {
			total++
		}
	}

	full := NewAtomArray(total)
	for r, s := range starts {
		names := dict.AtomNames(a.ResName[s])
		n := len(names)
		if withOXT && terminal[r] {
			n++
		}
		for j := 0; j < n; j++ {
			i := fullStarts[r] + j
			if j < len(names) {
				full.AtomName[i] = names[j]
			} else {
				full.AtomName[i] = "OXT"
			}
			full.ChainID[i] = a.ChainID[s]
			full.ResName[i] = a.ResName[s]
			full.ResID[i] = a.ResID[s]
			full.InsCode[i] = a.InsCode[s]
			full.Element[i] = full.AtomName[i][:1]
			full.Coord[i] = cmmn.BrokenXyz()
		}
	}

	// Drop the present atoms into their slots.
	rOf := residueOf(starts, a.Len())
	for i := 0; i < a.Len(); i++ {
		r := rOf[i]
		var rel int
		if a.AtomName[i] == "OXT" && withOXT {
			if !terminal[r] {
				return nil, unexpectedAtom(a, i)
			}
			rel = dict.Size(resIdx[r])
		} else {
			rel = dict.RelativeIndex(resIdx[r], a.AtomName[i])
			if rel < 0 {
				if dict.IsUnknown(a.ResName[i]) {
					continue // sidechain junk on UNK goes quietly
				}
				return nil, unexpectedAtom(a, i)
			}
		}
		j := fullStarts[r] + rel
		full.Coord[j] = a.Coord[i]
		full.Occupancy[j] = a.Occupancy[i]
		full.BFactor[j] = a.BFactor[i]
		full.Het[j] = a.Het[i]
		if a.Element[i] != "" {
			full.Element[j] = a.Element[i]
		}
		full.Present[j] = a.Present[i]
	}

	if opts.Log != nil {
		for i := 0; i < full.Len(); i++ {
			if !full.Present[i] {
				opts.Log.Printf("filled in %s %d %s",
					full.ResName[i], full.ResID[i], full.AtomName[i])
			}
		}
	}

	if opts.BackboneOnly {
		bb := make(map[string]bool, len(dict.BackboneAtoms))
		for _, at := range dict.BackboneAtoms {
			bb[at] = true
		}
		keep := make([]bool, full.Len())
		for i := range keep {
			keep[i] = bb[full.AtomName[i]]
		}
		full = full.Select(keep)
	}
	return full, nil
}

func unexpectedAtom(a *AtomArray, i int) error {
	return fmt.Errorf("structure: unexpected atom %s in residue %s %d",
		a.AtomName[i], a.ResName[i], a.ResID[i])
}

// residueOf maps each atom index onto its residue number.
func residueOf(starts []int, n int) []int {
	out := make([]int, n)
	r := -1
	for i := 0; i < n; i++ {
		if r+1 < len(starts) && starts[r+1] == i {
			r++
		}
		out[i] = r
	}
	return out
}

// convertResidues applies the dictionary's conversions, renaming
// residues and swapping their atoms. The caller's array stays as it
// was.
func convertResidues(a *AtomArray, dict *residue.Dictionary) *AtomArray {
	if len(dict.Conversions) == 0 {
		return a
	}
	all := make([]bool, a.Len())
	for i := range all {
		all[i] = true
	}
	out := a.Select(all) // plain copy
	for _, conv := range dict.Conversions {
		for i := 0; i < out.Len(); i++ {
			if out.ResName[i] != conv.From {
				continue
			}
			for _, sw := range conv.AtomSwaps {
				if out.AtomName[i] == sw[0] {
					out.AtomName[i] = sw[1]
				}
			}
			out.ResName[i] = conv.To
		}
	}
	return out
}
