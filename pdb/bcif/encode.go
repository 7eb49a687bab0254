package bcif

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
)

// EncodeOptions steer the encoder. The zero value is fine.
type EncodeOptions struct {
	// Compression of the outer frame. Default is zstd.
	Compression CompressionTag

	// Precision caps the number of decimals kept for a float
	// column, by column name. Without an entry, a column keeps
	// whatever number of decimals the text had.
	Precision map[string]int

	// Encoder overrides the encoder string in the header.
	Encoder string
}

// Encode turns a parsed cif file into the binary container. Columns
// are classified by looking at their values: all integers, all
// floats, or strings. The number of decimals in float text is
// preserved, so a file is not quietly truncated.
func Encode(f *cif.File, opts *EncodeOptions) (*File, error) {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	enc := opts.Encoder
	if enc == "" {
		enc = encoderName
	}
	bf := &File{Version: Version, Encoder: enc}
	for _, blk := range f.Blocks {
		bb := Block{Header: blk.Name}
		for _, cat := range blk.Categories {
			bc, err := encodeCategory(cat, opts)
			if err != nil {
				return nil, fmt.Errorf("bcif: category _%s: %w", cat.Name, err)
			}
			bb.Categories = append(bb.Categories, bc)
		}
		bf.Blocks = append(bf.Blocks, bb)
	}
	return bf, nil
}

func encodeCategory(cat *cif.Category, opts *EncodeOptions) (Category, error) {
	bc := Category{Name: "_" + cat.Name, RowCount: cat.Rows()}
	for i := range cat.Columns {
		col := &cat.Columns[i]
		ec, err := encodeColumn(col, opts)
		if err != nil {
			return bc, fmt.Errorf("column %s: %w", col.Name, err)
		}
		bc.Columns = append(bc.Columns, ec)
	}
	return bc, nil
}

// column classes
type colClass uint8

const (
	classInt colClass = iota
	classFloat
	classString
)

// classify decides what a column really holds. Masked rows do not
// count. The decimals answer matters only for classFloat: it is the
// most decimals seen, or -1 if the text uses exponents or more
// digits than a fixed point factor can hold.
func classify(col *cif.Column) (cls colClass, decimals int) {
	isInt := true
	for i, v := range col.Values {
		if !col.Ok(i) {
			continue
		}
		if isInt {
			if _, err := strconv.ParseInt(v, 10, 32); err != nil {
				isInt = false
			}
		}
		if !isInt {
			if _, err := strconv.ParseFloat(v, 64); err != nil {
				return classString, 0
			}
		}
		if decimals >= 0 {
			if d := countDecimals(v); d < 0 || d > decimals {
				decimals = d
			}
		}
	}
	if isInt {
		return classInt, 0
	}
	return classFloat, decimals
}

// countDecimals counts digits after the point. -1 means the value
// is not representable in fixed point (exponent form, or absurdly
// many digits).
func countDecimals(v string) int {
	if strings.ContainsAny(v, "eE") {
		return -1
	}
	dot := strings.IndexByte(v, '.')
	if dot < 0 {
		return 0
	}
	d := len(v) - dot - 1
	if d > 6 {
		return -1
	}
	return d
}

func encodeColumn(col *cif.Column, opts *EncodeOptions) (Column, error) {
	ec := Column{Name: col.Name}
	ec.Mask = encodeMask(col)

	cls, decimals := classify(col)
	switch cls {
	case classInt:
		arr := make([]int32, len(col.Values))
		for i, v := range col.Values {
			if !col.Ok(i) {
				continue
			}
			n, _ := strconv.ParseInt(v, 10, 32)
			arr[i] = int32(n)
		}
		ec.Data = encodeInts(arr)
	case classFloat:
		arr := make([]float64, len(col.Values))
		for i, v := range col.Values {
			if !col.Ok(i) {
				continue
			}
			arr[i], _ = strconv.ParseFloat(v, 64)
		}
		if p, ok := opts.Precision[col.Name]; ok && (decimals < 0 || p < decimals) {
			decimals = p
		}
		ec.Data = encodeFloats(arr, decimals)
	default:
		ec.Data = encodeStrings(col)
	}
	return ec, nil
}

// encodeMask builds the per-row mask, or nil when everything is
// present. Masks are almost always long runs of zero, so they go
// through the same integer chain as everything else and shrink to
// nothing.
func encodeMask(col *cif.Column) *EncodedData {
	if col.Mask == nil {
		return nil
	}
	any := false
	arr := make([]int32, len(col.Mask))
	for i, k := range col.Mask {
		arr[i] = int32(k)
		if k != cif.Present {
			any = true
		}
	}
	if !any {
		return nil
	}
	ed := encodeInts(arr)
	return &ed
}

// encodeInts picks the cheapest chain for an integer array. All the
// candidates are correct; this is purely a size contest.
func encodeInts(arr []int32) EncodedData {
	best := byteArrayEncode(arr, nil)

	try := func(cand EncodedData) {
		if encodedSize(&cand) < encodedSize(&best) {
			best = cand
		}
	}

	// Delta then bytes.
	origin, delta := deltaEncode(arr)
	deltaStep := Encoding{Kind: KindDelta, Origin: origin, SrcSize: len(arr)}
	try(byteArrayEncode(delta, []Encoding{deltaStep}))

	// Run length then bytes.
	rle := rleEncode(arr)
	rleStep := Encoding{Kind: KindRunLength, SrcSize: len(arr)}
	try(byteArrayEncode(rle, []Encoding{rleStep}))

	// Delta, run length, bytes. Sorted id columns collapse to
	// almost nothing this way.
	drle := rleEncode(delta)
	try(byteArrayEncode(drle, []Encoding{deltaStep, {Kind: KindRunLength, SrcSize: len(delta)}}))

	// Delta, packing, bytes.
	if packed, step, ok := packEncode(delta); ok {
		try(byteArrayEncode(packed, []Encoding{deltaStep, step}))
	}

	// Packing without the delta.
	if packed, step, ok := packEncode(arr); ok {
		try(byteArrayEncode(packed, []Encoding{step}))
	}
	return best
}

// encodedSize is the yardstick for the chain contest. The chain
// description itself costs a little, so charge for it, or a chain
// of fancy steps wins on ten-row tables for no real gain.
func encodedSize(ed *EncodedData) int {
	n := len(ed.Data)
	for range ed.Encoding {
		n += 16
	}
	return n
}

// encodeFloats uses fixed point when the text had a bounded number
// of decimals, otherwise raw float64.
func encodeFloats(arr []float64, decimals int) EncodedData {
	if decimals >= 0 {
		factor := math.Pow10(decimals)
		scaled := make([]int32, len(arr))
		ok := true
		for i, v := range arr {
			s := math.Round(v * factor)
			if s > math.MaxInt32 || s < math.MinInt32 {
				ok = false
				break
			}
			scaled[i] = int32(s)
		}
		if ok {
			ed := encodeInts(scaled)
			step := Encoding{Kind: KindFixedPoint, Factor: factor, Type: TypeFloat64, SrcSize: len(arr)}
			ed.Encoding = append([]Encoding{step}, ed.Encoding...)
			return ed
		}
	}
	// Raw little-endian float64. Big, but nothing is lost.
	data := make([]byte, 8*len(arr))
	for i, v := range arr {
		binary.LittleEndian.PutUint64(data[8*i:], math.Float64bits(v))
	}
	return EncodedData{
		Encoding: []Encoding{{Kind: KindByteArray, Type: TypeFloat64}},
		Data:     data,
	}
}

// encodeStrings builds the dictionary form: the unique strings
// concatenated, offsets into that, and a per-row index. Masked rows
// get index -1.
func encodeStrings(col *cif.Column) EncodedData {
	seen := make(map[string]int32)
	var sb strings.Builder
	offsets := []int32{0}
	indices := make([]int32, len(col.Values))
	for i, v := range col.Values {
		if !col.Ok(i) {
			indices[i] = -1
			continue
		}
		idx, ok := seen[v]
		if !ok {
			idx = int32(len(seen))
			seen[v] = idx
			sb.WriteString(v)
			offsets = append(offsets, int32(sb.Len()))
		}
		indices[i] = idx
	}
	offEd := encodeInts(offsets)
	idxEd := encodeInts(indices)
	step := Encoding{
		Kind:           KindStringArray,
		StringData:     sb.String(),
		Offsets:        offEd.Data,
		OffsetEncoding: offEd.Encoding,
		DataEncoding:   idxEd.Encoding,
	}
	return EncodedData{Encoding: []Encoding{step}, Data: idxEd.Data}
}

// --- the primitive steps ---

// deltaEncode stores differences. The first value moves into the
// origin and position zero becomes 0, so a constant column deltas
// to all zeroes.
func deltaEncode(arr []int32) (origin int32, out []int32) {
	out = make([]int32, len(arr))
	if len(arr) == 0 {
		return 0, out
	}
	origin = arr[0]
	prev := arr[0]
	for i := 1; i < len(arr); i++ {
		out[i] = arr[i] - prev
		prev = arr[i]
	}
	return origin, out
}

// rleEncode emits value, count pairs.
func rleEncode(arr []int32) []int32 {
	out := make([]int32, 0, 8)
	for i := 0; i < len(arr); {
		j := i
		for j < len(arr) && arr[j] == arr[i] {
			j++
		}
		out = append(out, arr[i], int32(j-i))
		i = j
	}
	return out
}

// packEncode squeezes an int32 array into one or two byte entries,
// using the extreme value of the small type as a continuation
// marker. It returns ok=false when packing cannot beat plain int32,
// so callers skip the candidate.
func packEncode(arr []int32) ([]int32, Encoding, bool) {
	unsigned := true
	for _, v := range arr {
		if v < 0 {
			unsigned = false
			break
		}
	}
	best := Encoding{}
	bestLen := 4 * len(arr) // plain int32
	found := false
	for _, byteCount := range []int{1, 2} {
		upper, lower := packLimits(byteCount, unsigned)
		n := packedLen(arr, upper, lower)
		if n*byteCount < bestLen {
			bestLen = n * byteCount
			best = Encoding{Kind: KindIntegerPacking, ByteCount: byteCount,
				IsUnsigned: unsigned, SrcSize: len(arr)}
			found = true
		}
	}
	if !found {
		return nil, best, false
	}
	upper, lower := packLimits(best.ByteCount, best.IsUnsigned)
	out := make([]int32, 0, bestLen/best.ByteCount)
	for _, v := range arr {
		for v >= upper {
			out = append(out, upper)
			v -= upper
		}
		for v <= lower && lower != 0 {
			out = append(out, lower)
			v -= lower
		}
		out = append(out, v)
	}
	return out, best, true
}

func packLimits(byteCount int, unsigned bool) (upper, lower int32) {
	switch {
	case unsigned && byteCount == 1:
		return math.MaxUint8, 0
	case unsigned && byteCount == 2:
		return math.MaxUint16, 0
	case byteCount == 1:
		return math.MaxInt8, math.MinInt8
	default:
		return math.MaxInt16, math.MinInt16
	}
}

// packedLen counts how many small entries packing would need.
func packedLen(arr []int32, upper, lower int32) int {
	n := 0
	for _, v := range arr {
		switch {
		case v >= 0:
			n += int(v/upper) + 1
		case lower == 0:
			return math.MaxInt32 / 8 // cannot express negatives unsigned
		default:
			n += int(v/lower) + 1
		}
	}
	return n
}

// byteArrayEncode serialises an integer array with the smallest type
// that holds every value, appending the ByteArray step to the given
// chain prefix.
func byteArrayEncode(arr []int32, chain []Encoding) EncodedData {
	var lo, hi int32
	for _, v := range arr {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	var t DataType
	switch {
	case lo >= 0 && hi <= math.MaxUint8:
		t = TypeUint8
	case lo >= math.MinInt8 && hi <= math.MaxInt8:
		t = TypeInt8
	case lo >= 0 && hi <= math.MaxUint16:
		t = TypeUint16
	case lo >= math.MinInt16 && hi <= math.MaxInt16:
		t = TypeInt16
	default:
		t = TypeInt32
	}
	var data []byte
	switch t {
	case TypeUint8:
		data = make([]byte, len(arr))
		for i, v := range arr {
			data[i] = byte(v)
		}
	case TypeInt8:
		data = make([]byte, len(arr))
		for i, v := range arr {
			data[i] = byte(int8(v))
		}
	case TypeUint16, TypeInt16:
		data = make([]byte, 2*len(arr))
		for i, v := range arr {
			binary.LittleEndian.PutUint16(data[2*i:], uint16(v))
		}
	default:
		data = make([]byte, 4*len(arr))
		for i, v := range arr {
			binary.LittleEndian.PutUint32(data[4*i:], uint32(v))
		}
	}
	step := Encoding{Kind: KindByteArray, Type: t}
	out := make([]Encoding, 0, len(chain)+1)
	out = append(out, chain...)
	out = append(out, step)
	return EncodedData{Encoding: out, Data: data}
}
