package cif

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"strings"
)

// Reader parses CIF text. Build one with NewReader and call Read.
// A converter has to keep everything it sees, so there is no
// filtering, just the state machine.
type Reader struct {
	cmmtScanner
	file    *File
	blk     *Block   // block currently being filled
	headers []string // loop_ headers being collected
	scrtch  [32]token
}

// NewReader returns a reader for CIF text. The caller decides whether
// the underlying source is a file, a decompressed stream or http.
func NewReader(r io.Reader) *Reader {
	if r == nil {
		return nil
	}
	return &Reader{
		cmmtScanner: newCmmtScanner(r, '#'),
	}
}

// stateFn is the type of a state function. It returns the next state
// that should act on the input.
type stateFn func(*Reader) stateFn

// curBlock hands back the block being filled. Items before any
// data_ line are not legal CIF, but files like that exist, so we
// quietly invent an unnamed block rather than stopping.
func (mr *Reader) curBlock() *Block {
	if mr.blk == nil {
		mr.blk = &Block{}
		mr.file.Blocks = append(mr.file.Blocks, mr.blk)
	}
	return mr.blk
}

// stateTop looks at the current line and decides where to jump.
func stateTop(mr *Reader) stateFn {
	b := mr.cbytes()
	if !mr.Ok {
		return nil
	}
	switch {
	case b == nil:
		return nil
	case bytes.HasPrefix(b, []byte("loop_")):
		return stateLoop
	case bytes.HasPrefix(b, []byte("data_")):
		return stateData
	case bytes.HasPrefix(b, []byte("save_")):
		// save frames only appear in dictionary definition files.
		// Nothing we convert wants them, so jump over the marker.
		if !mr.cscan() {
			return nil
		}
		return stateTop
	case b[0] == '_':
		return stateDItem
	default:
		mr.fill("expected a directive, data item or loop", true)
		return nil
	}
}

// stateData starts a new data block.
func stateData(mr *Reader) stateFn {
	mr.blk = &Block{Name: string(mr.cbytes()[len("data_"):])}
	mr.file.Blocks = append(mr.file.Blocks, mr.blk)
	if !mr.cscan() {
		return nil
	}
	return stateTop
}

// stateLoop is where you are on a loop_ directive. Jump over the
// line and go to reading the headers.
func stateLoop(mr *Reader) stateFn {
	if !mr.cscan() {
		return nil
	}
	return stateLoopHdr
}

// stateLoopHdr collects the _category.item lines under a loop_.
func stateLoopHdr(mr *Reader) stateFn {
	if len(mr.headers) != 0 {
		mr.fill("probable bug, headers slice not empty", false)
		return nil
	}
	for {
		b := mr.cbytes()
		if b == nil || b[0] != '_' {
			break
		}
		mr.headers = append(mr.headers, string(b))
		if !mr.cscan() {
			return nil
		}
	}
	if len(mr.headers) < 1 {
		mr.fill("no contents found while reading loop headers", true)
		return nil
	}
	return stateLoopTable
}

// splitTag breaks _atom_site.id into ("atom_site", "id"). A tag with
// no dot keeps its whole name as the category.
func splitTag(tag string) (cat, item string) {
	tag = strings.TrimPrefix(tag, "_")
	if i := strings.IndexByte(tag, '.'); i >= 0 {
		return tag[:i], tag[i+1:]
	}
	return tag, ""
}

// stateLoopTable reads the rows of a table. All headers must share
// one category name, which is what every file from the PDB does.
func stateLoopTable(mr *Reader) stateFn {
	catName, _ := splitTag(mr.headers[0])
	ncol := len(mr.headers)
	cat := mr.curBlock().AddCategory(catName)
	// A reopened table must list exactly the items the category
	// already has. New rows then land in the existing columns, so
	// every column keeps the same length.
	reopened := len(cat.Columns) > 0
	colIdx := make([]int, ncol)
	seen := make(map[string]bool, ncol)
	for i, h := range mr.headers {
		hcat, item := splitTag(h)
		if hcat != catName {
			mr.fill("loop mixes categories "+catName+" and "+hcat, true)
			return nil
		}
		if seen[item] {
			mr.fill("loop repeats item _"+catName+"."+item, true)
			return nil
		}
		seen[item] = true
		if reopened {
			j := -1
			for k := range cat.Columns {
				if cat.Columns[k].Name == item {
					j = k
					break
				}
			}
			if j < 0 {
				mr.fill("table _"+catName+" reopened with new item "+item, true)
				return nil
			}
			colIdx[i] = j
			continue
		}
		cat.Columns = append(cat.Columns, Column{Name: item})
		colIdx[i] = len(cat.Columns) - 1
	}
	if reopened && ncol != len(cat.Columns) {
		mr.fill("table _"+catName+" reopened without all its items", true)
		return nil
	}
	mr.headers = mr.headers[:0]

	nrow := 0
	for {
		toks, ok := mr.getNtokens(ncol)
		if !ok {
			return nil
		}
		if toks == nil { // clean end of table
			break
		}
		for i, t := range toks {
			col := &cat.Columns[colIdx[i]]
			if kind := maskKind(t); kind != Present {
				col.setMasked(kind)
			} else {
				col.setValue(string(t.b))
			}
		}
		nrow++
	}
	if nrow == 0 {
		mr.fill("empty table "+catName, true)
		return nil
	}
	return stateTop
}

// maskKind checks for the bare placeholders. Quoted dots and
// question marks are real values.
func maskKind(t token) ValueKind {
	if t.quoted || len(t.b) != 1 {
		return Present
	}
	switch t.b[0] {
	case '.':
		return Inapplicable
	case '?':
		return Unknown
	}
	return Present
}

// isSpecial returns true if the input line is not simply more of a
// table, which usually means a new directive is coming. End of input
// also counts, so a caller knows it has to do something.
func isSpecial(inline []byte) bool {
	switch {
	case inline == nil:
		return true
	case inline[0] == '_':
		return true
	case bytes.HasPrefix(inline, []byte("loop_")):
		return true
	case bytes.HasPrefix(inline, []byte("data_")):
		return true
	case bytes.HasPrefix(inline, []byte("save_")):
		return true
	default:
		return false
	}
}

// readSemiField is called with the scanner sitting on the line whose
// first byte is ';'. It collects lines up to the closing semicolon
// and joins them with newlines. Blank lines inside the field matter,
// so this uses rawscan, not cscan.
func (mr *Reader) readSemiField() (string, bool) {
	var sb strings.Builder
	sb.Write(mr.cbytes()[1:])
	for {
		ok, eof := mr.rawscan()
		if !ok {
			return "", false
		}
		if eof {
			mr.fill("end of input inside a semicolon text field", true)
			return "", false
		}
		b := mr.cbytes()
		if len(b) > 0 && b[0] == ';' {
			break
		}
		sb.WriteByte('\n')
		sb.Write(b)
	}
	return sb.String(), true
}

// rawscan reads the next line with no blank or comment skipping.
// It reports (ok, eof).
func (s *cmmtScanner) rawscan() (bool, bool) {
	if !s.Ok {
		return false, false
	}
	if !s.Scan() {
		s.ctoken = nil
		if err := s.Err(); err != nil {
			s.fill(err.Error(), true)
			return false, false
		}
		return true, true
	}
	s.n++
	s.ctoken = bytes.TrimRight(s.Bytes(), " \t\r")
	return true, false
}

// getNtokens asks the scanner for lines until it has npiece tokens,
// one loop row's worth. A nil slice with ok=true means the table
// ended cleanly. The tokens point into freshly copied memory, since
// further calls to scan overwrite the underlying buffer.
func (mr *Reader) getNtokens(npiece int) ([]token, bool) {
	ret := make([]token, 0, npiece)
	for len(ret) < npiece {
		b := mr.cbytes()
		if isSpecial(b) {
			if len(ret) != 0 {
				mr.fill("table row is short: wanted "+itoa(npiece)+
					" values, got "+itoa(len(ret)), true)
				return nil, false
			}
			return nil, true
		}
		if b[0] == ';' {
			s, ok := mr.readSemiField()
			if !ok {
				return nil, false
			}
			ret = append(ret, token{b: []byte(s), quoted: true})
			if !mr.cscan() {
				return nil, false
			}
			continue
		}
		toks, err := splitCifLine(b, mr.scrtch[:])
		if err != nil {
			mr.fill(err.Error(), true)
			return nil, false
		}
		for _, t := range toks {
			c := make([]byte, len(t.b))
			copy(c, t.b)
			ret = append(ret, token{b: c, quoted: t.quoted})
		}
		if !mr.cscan() {
			return nil, false
		}
	}
	if len(ret) != npiece {
		mr.fill("table row is long: wanted "+itoa(npiece)+
			" values, got "+itoa(len(ret)), true)
		return nil, false
	}
	return ret, true
}

// stateDItem gets a single data item. The value is usually on the
// same line, but it can sit on the next line or in a semicolon
// text field.
func stateDItem(mr *Reader) stateFn {
	toks, err := splitCifLine(mr.cbytes(), mr.scrtch[:])
	if err != nil {
		mr.fill(err.Error(), true)
		return nil
	}
	catName, item := splitTag(string(toks[0].b))

	var val token
	switch {
	case len(toks) == 2:
		t := toks[1]
		c := make([]byte, len(t.b))
		copy(c, t.b)
		val = token{b: c, quoted: t.quoted}
		if !mr.cscan() {
			return nil
		}
	case len(toks) == 1:
		if !mr.cscan() {
			return nil
		}
		b := mr.cbytes()
		if b == nil {
			mr.fill("end of input looking for the value of _"+catName+"."+item, true)
			return nil
		}
		if b[0] == ';' {
			s, ok := mr.readSemiField()
			if !ok {
				return nil
			}
			val = token{b: []byte(s), quoted: true}
		} else if isSpecial(b) {
			mr.fill("data item _"+catName+"."+item+" has no value", true)
			return nil
		} else {
			vt, err := splitCifLine(b, mr.scrtch[:])
			if err != nil || len(vt) != 1 {
				mr.fill("wanted one value for _"+catName+"."+item, true)
				return nil
			}
			c := make([]byte, len(vt[0].b))
			copy(c, vt[0].b)
			val = token{b: c, quoted: vt[0].quoted}
		}
		if !mr.cscan() {
			return nil
		}
	default:
		mr.fill("data item _"+catName+"."+item+" followed by "+
			itoa(len(toks)-1)+" values", true)
		return nil
	}

	cat := mr.curBlock().AddCategory(catName)
	if cat.Column(item) != nil {
		mr.fill("duplicate data item _"+catName+"."+item, true)
		return nil
	}
	if len(cat.Columns) > 0 && cat.Rows() != 1 {
		mr.fill("data item _"+catName+"."+item+" added to a table", true)
		return nil
	}
	col := Column{Name: item}
	if kind := maskKind(val); kind != Present {
		col.setMasked(kind)
	} else {
		col.setValue(string(val.b))
	}
	cat.Columns = append(cat.Columns, col)
	return stateTop
}

func itoa(i int) string { return strconv.Itoa(i) }

// Read parses the whole input and returns the file.
func (mr *Reader) Read() (*File, error) {
	if mr == nil {
		return nil, errors.New("nil cif reader")
	}
	mr.file = &File{}
	if !mr.cscan() {
		return nil, mr.lErr
	}
	for state := stateTop; state != nil && mr.Ok; {
		state = state(mr)
	}
	if !mr.Ok {
		return nil, mr.lErr
	}
	if mr.n == 0 {
		return nil, errors.New("zero length file")
	}
	return mr.file, nil
}

// Parse is the convenience form: everything from r in one call.
func Parse(r io.Reader) (*File, error) {
	return NewReader(r).Read()
}
