package bcif

import (
	"encoding/binary"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
)

// Decode turns the binary container back into the text data model.
// Every encoding chain is unwound back to front and checked as it
// goes, so a damaged file fails with a message rather than garbage.
func Decode(bf *File) (*cif.File, error) {
	f := &cif.File{}
	for _, bb := range bf.Blocks {
		blk := &cif.Block{Name: bb.Header}
		for _, bc := range bb.Categories {
			cat, err := decodeCategory(&bc)
			if err != nil {
				return nil, fmt.Errorf("bcif: category %s: %w", bc.Name, err)
			}
			blk.Categories = append(blk.Categories, cat)
		}
		f.Blocks = append(f.Blocks, blk)
	}
	return f, nil
}

func decodeCategory(bc *Category) (*cif.Category, error) {
	cat := &cif.Category{Name: strings.TrimPrefix(bc.Name, "_")}
	for i := range bc.Columns {
		col, err := decodeColumn(&bc.Columns[i], bc.RowCount)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", bc.Columns[i].Name, err)
		}
		cat.Columns = append(cat.Columns, *col)
	}
	return cat, nil
}

func decodeColumn(ec *Column, rowCount int) (*cif.Column, error) {
	values, err := decodeData(&ec.Data, rowCount)
	if err != nil {
		return nil, err
	}
	if len(values) != rowCount {
		return nil, fmt.Errorf("got %d values, category has %d rows", len(values), rowCount)
	}
	col := &cif.Column{Name: ec.Name, Values: values}
	if ec.Mask != nil {
		mask, err := decodeMask(ec.Mask, rowCount)
		if err != nil {
			return nil, fmt.Errorf("mask: %w", err)
		}
		col.Mask = mask
		for i, k := range mask {
			if k != cif.Present {
				col.Values[i] = ""
			}
		}
	}
	return col, nil
}

func decodeMask(ed *EncodedData, rowCount int) ([]cif.ValueKind, error) {
	arr, err := decodeIntChain(ed.Encoding, ed.Data)
	if err != nil {
		return nil, err
	}
	if len(arr) != rowCount {
		return nil, fmt.Errorf("got %d entries, want %d", len(arr), rowCount)
	}
	mask := make([]cif.ValueKind, len(arr))
	for i, v := range arr {
		if v < 0 || v > int32(cif.Unknown) {
			return nil, fmt.Errorf("entry %d is %d, not a value kind", i, v)
		}
		mask[i] = cif.ValueKind(v)
	}
	return mask, nil
}

// decodeData renders a column's values as strings, dispatching on
// the first step of the chain.
func decodeData(ed *EncodedData, rowCount int) ([]string, error) {
	if len(ed.Encoding) == 0 {
		return nil, fmt.Errorf("empty encoding chain")
	}
	switch first := &ed.Encoding[0]; first.Kind {
	case KindStringArray:
		return decodeStringArray(first, ed.Data)
	case KindFixedPoint:
		arr, err := decodeIntChain(ed.Encoding[1:], ed.Data)
		if err != nil {
			return nil, err
		}
		if first.Factor <= 0 {
			return nil, fmt.Errorf("fixed point factor %g", first.Factor)
		}
		decimals := int(math.Round(math.Log10(first.Factor)))
		out := make([]string, len(arr))
		for i, v := range arr {
			out[i] = strconv.FormatFloat(float64(v)/first.Factor, 'f', decimals, 64)
		}
		return out, nil
	case KindByteArray:
		if first.Type == TypeFloat32 || first.Type == TypeFloat64 {
			if len(ed.Encoding) > 1 {
				return nil, fmt.Errorf("float byte array is not a chain start")
			}
			return decodeFloatArray(first, ed.Data)
		}
		fallthrough
	default:
		arr, err := decodeIntChain(ed.Encoding, ed.Data)
		if err != nil {
			return nil, err
		}
		out := make([]string, len(arr))
		for i, v := range arr {
			out[i] = strconv.Itoa(int(v))
		}
		return out, nil
	}
}

func decodeStringArray(step *Encoding, data []byte) ([]string, error) {
	offsets, err := decodeIntChain(step.OffsetEncoding, step.Offsets)
	if err != nil {
		return nil, fmt.Errorf("offsets: %w", err)
	}
	indices, err := decodeIntChain(step.DataEncoding, data)
	if err != nil {
		return nil, fmt.Errorf("indices: %w", err)
	}
	if len(offsets) == 0 {
		return nil, fmt.Errorf("no offsets")
	}
	nstr := len(offsets) - 1
	strs := make([]string, nstr)
	for i := 0; i < nstr; i++ {
		lo, hi := offsets[i], offsets[i+1]
		if lo < 0 || hi < lo || int(hi) > len(step.StringData) {
			return nil, fmt.Errorf("offset pair %d, %d outside string data", lo, hi)
		}
		strs[i] = step.StringData[lo:hi]
	}
	out := make([]string, len(indices))
	for i, idx := range indices {
		if idx == -1 {
			continue // masked, stays empty
		}
		if idx < 0 || int(idx) >= nstr {
			return nil, fmt.Errorf("index %d with %d strings", idx, nstr)
		}
		out[i] = strs[idx]
	}
	return out, nil
}

func decodeFloatArray(step *Encoding, data []byte) ([]string, error) {
	if step.Type == TypeFloat32 {
		if len(data)%4 != 0 {
			return nil, fmt.Errorf("float32 array of %d bytes", len(data))
		}
		out := make([]string, len(data)/4)
		for i := range out {
			v := math.Float32frombits(binary.LittleEndian.Uint32(data[4*i:]))
			out[i] = strconv.FormatFloat(float64(v), 'g', -1, 32)
		}
		return out, nil
	}
	if len(data)%8 != 0 {
		return nil, fmt.Errorf("float64 array of %d bytes", len(data))
	}
	out := make([]string, len(data)/8)
	for i := range out {
		v := math.Float64frombits(binary.LittleEndian.Uint64(data[8*i:]))
		out[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return out, nil
}

// decodeIntChain unwinds an integer chain. The last step must be
// the byte array; the others apply in reverse.
func decodeIntChain(chain []Encoding, data []byte) ([]int32, error) {
	if len(chain) == 0 {
		return nil, fmt.Errorf("empty integer chain")
	}
	last := &chain[len(chain)-1]
	if last.Kind != KindByteArray {
		return nil, fmt.Errorf("chain ends in %s, not %s", last.Kind, KindByteArray)
	}
	arr, err := byteArrayDecode(last, data)
	if err != nil {
		return nil, err
	}
	for i := len(chain) - 2; i >= 0; i-- {
		step := &chain[i]
		switch step.Kind {
		case KindDelta:
			arr = deltaDecode(step.Origin, arr)
		case KindRunLength:
			arr, err = rleDecode(arr, step.SrcSize)
		case KindIntegerPacking:
			arr, err = packDecode(step, arr)
		default:
			err = fmt.Errorf("unexpected %s step in integer chain", step.Kind)
		}
		if err != nil {
			return nil, err
		}
	}
	return arr, nil
}

func byteArrayDecode(step *Encoding, data []byte) ([]int32, error) {
	width := map[DataType]int{
		TypeInt8: 1, TypeUint8: 1, TypeInt16: 2, TypeUint16: 2,
		TypeInt32: 4, TypeUint32: 4,
	}[step.Type]
	if width == 0 {
		return nil, fmt.Errorf("byte array of type %d", step.Type)
	}
	if len(data)%width != 0 {
		return nil, fmt.Errorf("%d bytes do not hold type %d entries", len(data), step.Type)
	}
	out := make([]int32, len(data)/width)
	switch step.Type {
	case TypeInt8:
		for i := range out {
			out[i] = int32(int8(data[i]))
		}
	case TypeUint8:
		for i := range out {
			out[i] = int32(data[i])
		}
	case TypeInt16:
		for i := range out {
			out[i] = int32(int16(binary.LittleEndian.Uint16(data[2*i:])))
		}
	case TypeUint16:
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint16(data[2*i:]))
		}
	case TypeInt32:
		for i := range out {
			out[i] = int32(binary.LittleEndian.Uint32(data[4*i:]))
		}
	default: // TypeUint32
		for i := range out {
			u := binary.LittleEndian.Uint32(data[4*i:])
			if u > math.MaxInt32 {
				return nil, fmt.Errorf("uint32 value %d overflows", u)
			}
			out[i] = int32(u)
		}
	}
	return out, nil
}

func deltaDecode(origin int32, arr []int32) []int32 {
	if len(arr) == 0 {
		return arr
	}
	out := make([]int32, len(arr))
	out[0] = origin + arr[0]
	for i := 1; i < len(arr); i++ {
		out[i] = out[i-1] + arr[i]
	}
	return out
}

func rleDecode(arr []int32, srcSize int) ([]int32, error) {
	if len(arr)%2 != 0 {
		return nil, fmt.Errorf("run length data of %d entries", len(arr))
	}
	out := make([]int32, 0, srcSize)
	for i := 0; i < len(arr); i += 2 {
		v, n := arr[i], arr[i+1]
		if n <= 0 {
			return nil, fmt.Errorf("run of length %d", n)
		}
		if len(out)+int(n) > srcSize {
			return nil, fmt.Errorf("runs overflow the %d declared entries", srcSize)
		}
		for ; n > 0; n-- {
			out = append(out, v)
		}
	}
	if len(out) != srcSize {
		return nil, fmt.Errorf("runs give %d entries, not %d", len(out), srcSize)
	}
	return out, nil
}

// packDecode accumulates runs of the sentinel value back into full
// integers.
func packDecode(step *Encoding, arr []int32) ([]int32, error) {
	if step.ByteCount != 1 && step.ByteCount != 2 {
		return nil, fmt.Errorf("packing with byte count %d", step.ByteCount)
	}
	upper, lower := packLimits(step.ByteCount, step.IsUnsigned)
	out := make([]int32, 0, step.SrcSize)
	var acc int64
	for _, v := range arr {
		acc += int64(v)
		if v == upper || (lower != 0 && v == lower) {
			continue
		}
		if acc > math.MaxInt32 || acc < math.MinInt32 {
			return nil, fmt.Errorf("packed value overflows int32")
		}
		out = append(out, int32(acc))
		acc = 0
	}
	if acc != 0 {
		return nil, fmt.Errorf("packed data ends mid value")
	}
	if step.SrcSize != 0 && len(out) != step.SrcSize {
		return nil, fmt.Errorf("packing gives %d entries, not %d", len(out), step.SrcSize)
	}
	return out, nil
}
