package structure

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
	"github.com/bioml-tools/bio-datasets/structure/residue"
)

// A Chain is a standardised atom array restricted to one chain id,
// with residue level accessors on top.
type Chain struct {
	Atoms  *AtomArray
	Dict   *residue.Dictionary
	starts []int
}

// NewChain standardises the given atoms and wraps them. It is an
// error if more than one chain id turns up.
func NewChain(a *AtomArray, dict *residue.Dictionary, opts *StandardiseOptions) (*Chain, error) {
	ids := uniqueChainIDs(a)
	if len(ids) != 1 {
		return nil, fmt.Errorf("structure: expected a single chain, found ids %v", ids)
	}
	std, err := Standardise(a, dict, opts)
	if err != nil {
		return nil, err
	}
	return &Chain{Atoms: std, Dict: dict, starts: std.residueStarts()}, nil
}

// ID is the chain identifier.
func (c *Chain) ID() string { return c.Atoms.ChainID[0] }

// NumResidues counts residues, not atoms.
func (c *Chain) NumResidues() int { return len(c.starts) }

// Sequence gives the chain as one letter codes.
func (c *Chain) Sequence() string {
	var sb strings.Builder
	for _, s := range c.starts {
		i, _ := c.Dict.Index(c.Atoms.ResName[s])
		sb.WriteString(c.Dict.OneLetter(i))
	}
	return sb.String()
}

// AtomCoords pulls one named atom per residue. The residue block is
// searched by name, so it does not matter whether the chain carries
// full residues or was cut down to the backbone. Residues without
// the atom get broken coordinates, so callers can spot them with Ok.
func (c *Chain) AtomCoords(atomName string) []cmmn.Xyz {
	out := make([]cmmn.Xyz, len(c.starts))
	for r, s := range c.starts {
		out[r] = cmmn.BrokenXyz()
		end := c.Atoms.Len()
		if r+1 < len(c.starts) {
			end = c.starts[r+1]
		}
		for i := s; i < end; i++ {
			if c.Atoms.AtomName[i] == atomName {
				out[r] = c.Atoms.Coord[i]
				break
			}
		}
	}
	return out
}

// BackboneCoords gives per residue coordinates for the named
// backbone atoms, residues by atoms. A name of CB is allowed and
// falls back to CA for glycine, which has no beta carbon. That is
// the usual trick for residue frames in ML models.
func (c *Chain) BackboneCoords(atomNames []string) ([][]cmmn.Xyz, error) {
	bb := make(map[string]bool, len(c.Dict.BackboneAtoms))
	for _, at := range c.Dict.BackboneAtoms {
		bb[at] = true
	}
	for _, at := range atomNames {
		if !bb[at] && at != "CB" {
			return nil, fmt.Errorf("structure: %s is not a backbone atom", at)
		}
	}
	out := make([][]cmmn.Xyz, len(c.starts))
	for r := range c.starts {
		out[r] = make([]cmmn.Xyz, len(atomNames))
	}
	for k, at := range atomNames {
		var coords []cmmn.Xyz
		if at == "CB" {
			coords = c.BetaCarbons()
		} else {
			coords = c.AtomCoords(at)
		}
		for r := range c.starts {
			out[r][k] = coords[r]
		}
	}
	return out, nil
}

// BetaCarbons gives the CB coordinate per residue, with the alpha
// carbon standing in for glycine.
func (c *Chain) BetaCarbons() []cmmn.Xyz {
	out := c.AtomCoords("CB")
	ca := c.AtomCoords("CA")
	for r, s := range c.starts {
		if c.Atoms.ResName[s] == "GLY" {
			out[r] = ca[r]
		}
	}
	return out
}

// A Complex is a set of chains from one structure, sorted by chain
// id.
type Complex struct {
	chains []*Chain
	byID   map[string]*Chain
}

// NewComplex splits an atom array by chain id, standardises each
// chain and collects them sorted by id.
func NewComplex(a *AtomArray, dict *residue.Dictionary, opts *StandardiseOptions) (*Complex, error) {
	ids := uniqueChainIDs(a)
	sort.Strings(ids)
	x := &Complex{byID: make(map[string]*Chain, len(ids))}
	for _, id := range ids {
		keep := make([]bool, a.Len())
		for i := range keep {
			keep[i] = a.ChainID[i] == id
		}
		ch, err := NewChain(a.Select(keep), dict, opts)
		if err != nil {
			return nil, fmt.Errorf("chain %s: %w", id, err)
		}
		x.chains = append(x.chains, ch)
		x.byID[id] = ch
	}
	return x, nil
}

// ChainIDs lists the chain ids in order.
func (x *Complex) ChainIDs() []string {
	ids := make([]string, len(x.chains))
	for i, c := range x.chains {
		ids[i] = c.ID()
	}
	return ids
}

// Chain looks a chain up by id. nil if it is not there.
func (x *Complex) Chain(id string) *Chain { return x.byID[id] }

// Chains gives the chains in id order.
func (x *Complex) Chains() []*Chain { return x.chains }

// Atoms glues all chains back into one array.
func (x *Complex) Atoms() *AtomArray {
	out := NewAtomArray(0)
	for _, c := range x.chains {
		out.Append(c.Atoms)
	}
	return out
}

func uniqueChainIDs(a *AtomArray) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, id := range a.ChainID {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}
