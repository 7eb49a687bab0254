package protein

// The twenty standard amino acids in the conventional order, the one
// that sorts their one letter codes as ARNDCQEGHILKMFPSTWYV, plus
// UNK at the end.
var ResidueNames = []string{
	"ALA", "ARG", "ASN", "ASP", "CYS", "GLN", "GLU", "GLY", "HIS", "ILE",
	"LEU", "LYS", "MET", "PHE", "PRO", "SER", "THR", "TRP", "TYR", "VAL",
	"UNK",
}

// One letter codes, index matched to ResidueNames.
var ResidueTypes = []string{
	"A", "R", "N", "D", "C", "Q", "E", "G", "H", "I",
	"L", "K", "M", "F", "P", "S", "T", "W", "Y", "V",
	"X",
}

// ResidueAtoms lists each residue's heavy atoms in atom14 order: the
// four backbone atoms first, then the sidechain walking outwards.
// No residue has more than fourteen heavy atoms, which is where the
// fixed 14 slot representation comes from.
var ResidueAtoms = map[string][]string{
	"ALA": {"N", "CA", "C", "O", "CB"},
	"ARG": {"N", "CA", "C", "O", "CB", "CG", "CD", "NE", "CZ", "NH1", "NH2"},
	"ASN": {"N", "CA", "C", "O", "CB", "CG", "OD1", "ND2"},
	"ASP": {"N", "CA", "C", "O", "CB", "CG", "OD1", "OD2"},
	"CYS": {"N", "CA", "C", "O", "CB", "SG"},
	"GLN": {"N", "CA", "C", "O", "CB", "CG", "CD", "OE1", "NE2"},
	"GLU": {"N", "CA", "C", "O", "CB", "CG", "CD", "OE1", "OE2"},
	"GLY": {"N", "CA", "C", "O"},
	"HIS": {"N", "CA", "C", "O", "CB", "CG", "ND1", "CD2", "CE1", "NE2"},
	"ILE": {"N", "CA", "C", "O", "CB", "CG1", "CG2", "CD1"},
	"LEU": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2"},
	"LYS": {"N", "CA", "C", "O", "CB", "CG", "CD", "CE", "NZ"},
	"MET": {"N", "CA", "C", "O", "CB", "CG", "SD", "CE"},
	"PHE": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "CE1", "CE2", "CZ"},
	"PRO": {"N", "CA", "C", "O", "CB", "CG", "CD"},
	"SER": {"N", "CA", "C", "O", "CB", "OG"},
	"THR": {"N", "CA", "C", "O", "CB", "OG1", "CG2"},
	"TRP": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "NE1", "CE2",
		"CE3", "CZ2", "CZ3", "CH2"},
	"TYR": {"N", "CA", "C", "O", "CB", "CG", "CD1", "CD2", "CE1", "CE2",
		"CZ", "OH"},
	"VAL": {"N", "CA", "C", "O", "CB", "CG1", "CG2"},
	"UNK": {"N", "CA", "C", "O"},
}

// AtomTypes is the canonical 37 atom type vocabulary. Every heavy
// atom of every standard amino acid appears exactly once, OXT
// included. The order is fixed: atom37 tensors index into it.
var AtomTypes = []string{
	"N", "CA", "C", "CB", "O", "CG", "CG1", "CG2", "OG", "OG1", "SG",
	"CD", "CD1", "CD2", "ND1", "ND2", "OD1", "OD2", "SD", "CE", "CE1",
	"CE2", "CE3", "NE", "NE1", "NE2", "OE1", "OE2", "CH2", "NH1", "NH2",
	"OH", "CZ", "CZ2", "CZ3", "NZ", "OXT",
}

// BackboneAtoms in standardised order.
var BackboneAtoms = []string{"N", "CA", "C", "O"}

// NumAtom14 and NumAtom37 are the widths of the two fixed layouts.
const (
	NumAtom14 = 14
	NumAtom37 = 37
)
