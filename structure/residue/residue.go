// Package residue holds the dictionary that says what a residue is
// allowed to look like: which atoms it has, in what order, and what
// one letter code it gets. Standardisation of atom arrays is driven
// entirely by one of these, so swapping the dictionary swaps the
// chemistry.

package residue

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
)

// A Conversion maps a nonstandard residue onto a standard one, with
// the atom renames that go along with it. Selenomethionine becomes
// methionine and its selenium becomes the sulphur.
type Conversion struct {
	From      string      `json:"residue"`
	To        string      `json:"to_residue"`
	AtomSwaps [][2]string `json:"atom_swaps"`
}

// A Dictionary lists the known residues and their atoms. The public
// fields are what lands in ccd_residue_dictionary.json. The derived
// lookup tables are built by Build and are not serialised.
type Dictionary struct {
	ResidueNames  []string            `json:"residue_names"`
	ResidueTypes  []string            `json:"residue_types"`
	AtomTypes     []string            `json:"atom_types"`
	ResidueAtoms  map[string][]string `json:"residue_atoms"`
	BackboneAtoms []string            `json:"backbone_atoms"`
	UnknownName   string              `json:"unknown_residue_name"`
	Conversions   []Conversion        `json:"conversions,omitempty"`

	nameToIndex map[string]int
	atomToIndex map[string]int
	relIndex    []map[string]int // per residue: atom name to place
}

// Build fills in the derived tables. Call it once after the public
// fields are set. It complains about anything inconsistent rather
// than letting a bad dictionary wander into standardisation.
func (d *Dictionary) Build() error {
	if len(d.ResidueNames) == 0 {
		return fmt.Errorf("dictionary has no residues")
	}
	if len(d.ResidueTypes) != len(d.ResidueNames) {
		return fmt.Errorf("%d residue types for %d residues",
			len(d.ResidueTypes), len(d.ResidueNames))
	}
	d.nameToIndex = make(map[string]int, len(d.ResidueNames))
	for i, name := range d.ResidueNames {
		if _, dup := d.nameToIndex[name]; dup {
			return fmt.Errorf("residue %s appears twice", name)
		}
		d.nameToIndex[name] = i
	}
	d.atomToIndex = make(map[string]int, len(d.AtomTypes))
	for i, at := range d.AtomTypes {
		d.atomToIndex[at] = i
	}
	d.relIndex = make([]map[string]int, len(d.ResidueNames))
	for i, name := range d.ResidueNames {
		atoms, ok := d.ResidueAtoms[name]
		if !ok {
			return fmt.Errorf("residue %s has no atom list", name)
		}
		m := make(map[string]int, len(atoms))
		for j, at := range atoms {
			m[at] = j
		}
		d.relIndex[i] = m
	}
	if d.UnknownName != "" {
		if _, ok := d.nameToIndex[d.UnknownName]; !ok {
			return fmt.Errorf("unknown residue name %s is not in the dictionary",
				d.UnknownName)
		}
	}
	return nil
}

// NumResidues is the number of residue names in the dictionary.
func (d *Dictionary) NumResidues() int { return len(d.ResidueNames) }

// Index looks a residue name up.
func (d *Dictionary) Index(resName string) (int, bool) {
	i, ok := d.nameToIndex[resName]
	return i, ok
}

// Size is the number of atoms residue i has.
func (d *Dictionary) Size(i int) int {
	return len(d.ResidueAtoms[d.ResidueNames[i]])
}

// AtomNames lists the atoms of a residue in canonical order. The
// caller must not scribble on the returned slice.
func (d *Dictionary) AtomNames(resName string) []string {
	return d.ResidueAtoms[resName]
}

// AtomTypeIndex gives the position of an atom name in the
// dictionary's atom type list, or -1.
func (d *Dictionary) AtomTypeIndex(atomName string) int {
	if i, ok := d.atomToIndex[atomName]; ok {
		return i
	}
	return -1
}

// RelativeIndex says where an atom sits within its residue, or -1
// when the residue does not have such an atom.
func (d *Dictionary) RelativeIndex(resIndex int, atomName string) int {
	if j, ok := d.relIndex[resIndex][atomName]; ok {
		return j
	}
	return -1
}

// OneLetter gives the one letter code for residue index i.
func (d *Dictionary) OneLetter(i int) string { return d.ResidueTypes[i] }

// IsUnknown says whether a residue name is the unknown placeholder.
func (d *Dictionary) IsUnknown(resName string) bool {
	return d.UnknownName != "" && resName == d.UnknownName
}

// ReadJSON reads a dictionary in the ccd_residue_dictionary.json
// layout and builds the lookup tables.
func ReadJSON(r io.Reader) (*Dictionary, error) {
	d := new(Dictionary)
	dec := json.NewDecoder(r)
	if err := dec.Decode(d); err != nil {
		return nil, fmt.Errorf("residue dictionary: %w", err)
	}
	if err := d.Build(); err != nil {
		return nil, err
	}
	return d, nil
}

// WriteJSON writes the dictionary. Output is indented since these
// files get looked at by people as often as programs.
func (d *Dictionary) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(d)
}

// SortedNames gives the residue names in lexical order, for stable
// output in reports.
func (d *Dictionary) SortedNames() []string {
	names := make([]string, len(d.ResidueNames))
	copy(names, d.ResidueNames)
	sort.Strings(names)
	return names
}
