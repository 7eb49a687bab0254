package structure

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
	"github.com/bioml-tools/bio-datasets/pdb/cmmn"
)

// An Operator is one rigid transform from pdbx_struct_oper_list.
type Operator struct {
	ID    string
	Rot   [3][3]float32
	Trans cmmn.Xyz
}

// Apply transforms one coordinate. Broken coordinates stay broken
// since NaN propagates through the arithmetic.
func (op *Operator) Apply(v cmmn.Xyz) cmmn.Xyz {
	return cmmn.Xyz{
		X: op.Rot[0][0]*v.X + op.Rot[0][1]*v.Y + op.Rot[0][2]*v.Z + op.Trans.X,
		Y: op.Rot[1][0]*v.X + op.Rot[1][1]*v.Y + op.Rot[1][2]*v.Z + op.Trans.Y,
		Z: op.Rot[2][0]*v.X + op.Rot[2][1]*v.Y + op.Rot[2][2]*v.Z + op.Trans.Z,
	}
}

// compose builds the operator that applies b first, then a.
func compose(a, b *Operator) Operator {
	var out Operator
	out.ID = a.ID + "x" + b.ID
	for i := 0; i < 3; i++ {
		for j := 0; j < 3; j++ {
			for k := 0; k < 3; k++ {
				out.Rot[i][j] += a.Rot[i][k] * b.Rot[k][j]
			}
		}
	}
	bt := b.Trans
	out.Trans = cmmn.Xyz{
		X: a.Rot[0][0]*bt.X + a.Rot[0][1]*bt.Y + a.Rot[0][2]*bt.Z + a.Trans.X,
		Y: a.Rot[1][0]*bt.X + a.Rot[1][1]*bt.Y + a.Rot[1][2]*bt.Z + a.Trans.Y,
		Z: a.Rot[2][0]*bt.X + a.Rot[2][1]*bt.Y + a.Rot[2][2]*bt.Z + a.Trans.Z,
	}
	return out
}

// readOperators pulls pdbx_struct_oper_list into a map by id.
func readOperators(blk *cif.Block) (map[string]*Operator, error) {
	cat := blk.Category("pdbx_struct_oper_list")
	if cat == nil {
		return nil, fmt.Errorf("structure: no pdbx_struct_oper_list")
	}
	idCol := cat.Column("id")
	if idCol == nil {
		return nil, fmt.Errorf("structure: pdbx_struct_oper_list has no id")
	}
	ops := make(map[string]*Operator, cat.Rows())
	for r := 0; r < cat.Rows(); r++ {
		op := &Operator{ID: idCol.Values[r]}
		for i := 0; i < 3; i++ {
			for j := 0; j < 3; j++ {
				name := fmt.Sprintf("matrix[%d][%d]", i+1, j+1)
				v, err := floatAt(cat, name, r)
				if err != nil {
					return nil, err
				}
				op.Rot[i][j] = v
			}
			name := fmt.Sprintf("vector[%d]", i+1)
			v, err := floatAt(cat, name, r)
			if err != nil {
				return nil, err
			}
			switch i {
			case 0:
				op.Trans.X = v
			case 1:
				op.Trans.Y = v
			default:
				op.Trans.Z = v
			}
		}
		ops[op.ID] = op
	}
	return ops, nil
}

func floatAt(cat *cif.Category, colName string, r int) (float32, error) {
	col := cat.Column(colName)
	if col == nil {
		return 0, fmt.Errorf("structure: %s has no %s", cat.Name, colName)
	}
	v, err := col.Float(r)
	if err != nil {
		return 0, err
	}
	return float32(v), nil
}

// parseOperExpression turns an operator expression into a list of
// operator id sequences. "1" gives [[1]], "(1-3)" gives
// [[1] [2] [3]] and "(X0)(1-2)" gives [[X0 1] [X0 2]], the pairs
// being compositions applied right to left.
func parseOperExpression(expr string) ([][]string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, fmt.Errorf("structure: empty operator expression")
	}
	var groups [][]string
	if !strings.HasPrefix(expr, "(") {
		g, err := parseOperGroup(expr)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	} else {
		rest := expr
		for len(rest) > 0 {
			if rest[0] != '(' {
				return nil, fmt.Errorf("structure: bad operator expression %q", expr)
			}
			end := strings.IndexByte(rest, ')')
			if end < 0 {
				return nil, fmt.Errorf("structure: unclosed parenthesis in %q", expr)
			}
			g, err := parseOperGroup(rest[1:end])
			if err != nil {
				return nil, err
			}
			groups = append(groups, g)
			rest = rest[end+1:]
		}
	}
	// Product over the groups.
	seqs := [][]string{nil}
	for _, g := range groups {
		var next [][]string
		for _, s := range seqs {
			for _, id := range g {
				ns := make([]string, len(s), len(s)+1)
				copy(ns, s)
				next = append(next, append(ns, id))
			}
		}
		seqs = next
	}
	return seqs, nil
}

// parseOperGroup expands "1,2,5-8" into the individual ids. Ranges
// only make sense for numeric ids. Named ids like X0 pass through.
func parseOperGroup(s string) ([]string, error) {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			return nil, fmt.Errorf("structure: empty entry in operator list %q", s)
		}
		dash := strings.IndexByte(part, '-')
		if dash <= 0 {
			out = append(out, part)
			continue
		}
		lo, err1 := strconv.Atoi(part[:dash])
		hi, err2 := strconv.Atoi(part[dash+1:])
		if err1 != nil || err2 != nil || hi < lo {
			return nil, fmt.Errorf("structure: bad operator range %q", part)
		}
		for i := lo; i <= hi; i++ {
			out = append(out, strconv.Itoa(i))
		}
	}
	return out, nil
}

// AssemblyIDs lists the assemblies a file defines, in file order.
func AssemblyIDs(f *cif.File) []string {
	if len(f.Blocks) == 0 {
		return nil
	}
	cat := f.Blocks[0].Category("pdbx_struct_assembly_gen")
	if cat == nil {
		return nil
	}
	idCol := cat.Column("assembly_id")
	if idCol == nil {
		return nil
	}
	var ids []string
	seen := make(map[string]bool)
	for _, id := range idCol.Values {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	return ids
}

// Assembly expands one biological assembly into an atom array. The
// asym id lists in the file speak label_asym_id, so matching is done
// on the label ids even when the array itself carries author ids.
// With no assembly information in the file, or an empty id, the
// asymmetric unit comes back as is.
func Assembly(f *cif.File, assemblyID string) (*AtomArray, error) {
	a, err := FromFile(f)
	if err != nil {
		return nil, err
	}
	blk := f.Blocks[0]
	gen := blk.Category("pdbx_struct_assembly_gen")
	if gen == nil {
		if assemblyID == "" || assemblyID == "1" {
			return a, nil
		}
		return nil, fmt.Errorf("structure: no assembly %s in file", assemblyID)
	}
	if assemblyID == "" {
		ids := AssemblyIDs(f)
		if len(ids) == 0 {
			return a, nil
		}
		assemblyID = ids[0]
	}
	ops, err := readOperators(blk)
	if err != nil {
		return nil, err
	}
	labels, err := labelChainIDs(blk)
	if err != nil {
		return nil, err
	}

	idCol := gen.Column("assembly_id")
	exprCol := gen.Column("oper_expression")
	asymCol := gen.Column("asym_id_list")
	if idCol == nil || exprCol == nil || asymCol == nil {
		return nil, fmt.Errorf("structure: pdbx_struct_assembly_gen is incomplete")
	}

	out := NewAtomArray(0)
	found := false
	for r := 0; r < gen.Rows(); r++ {
		if idCol.Values[r] != assemblyID {
			continue
		}
		found = true
		seqs, err := parseOperExpression(exprCol.Values[r])
		if err != nil {
			return nil, err
		}
		wanted := make(map[string]bool)
		for _, id := range strings.Split(asymCol.Values[r], ",") {
			wanted[strings.TrimSpace(id)] = true
		}
		keep := make([]bool, a.Len())
		for i := range keep {
			keep[i] = wanted[labels[i]]
		}
		sub := a.Select(keep)

		for copyNum, seq := range seqs {
			op := ops[seq[0]]
			if op == nil {
				return nil, fmt.Errorf("structure: no operator %s", seq[0])
			}
			comp := *op
			for _, id := range seq[1:] {
				next := ops[id]
				if next == nil {
					return nil, fmt.Errorf("structure: no operator %s", id)
				}
				comp = compose(&comp, next)
			}
			moved := sub.Select(allTrue(sub.Len()))
			for i := range moved.Coord {
				moved.Coord[i] = comp.Apply(moved.Coord[i])
			}
			if copyNum > 0 {
				suffix := "-" + strconv.Itoa(copyNum+1)
				for i := range moved.ChainID {
					moved.ChainID[i] += suffix
				}
			}
			out.Append(moved)
		}
	}
	if !found {
		return nil, fmt.Errorf("structure: no assembly %s in file", assemblyID)
	}
	return out, nil
}

// labelChainIDs gives the label_asym_id per atom, falling back to
// the author ids when a file only has those.
func labelChainIDs(blk *cif.Block) ([]string, error) {
	cat := blk.Category("atom_site")
	if cat == nil {
		return nil, fmt.Errorf("structure: no atom_site")
	}
	col := cat.Column("label_asym_id")
	if col == nil {
		col = cat.Column("auth_asym_id")
	}
	if col == nil {
		return nil, fmt.Errorf("structure: atom_site has no asym id column")
	}
	return col.Values, nil
}

func allTrue(n int) []bool {
	keep := make([]bool, n)
	for i := range keep {
		keep[i] = true
	}
	return keep
}
