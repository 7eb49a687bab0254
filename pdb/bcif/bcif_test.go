package bcif

import (
	"bytes"
	"math"
	"math/rand"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
)

// intCases are shared by the primitive round trip tests. They cover
// the shapes that actually turn up in atom_site tables: sorted ids,
// long constant runs, small noisy values and the odd huge one.
var intCases = [][]int32{
	{},
	{0},
	{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
	{7, 7, 7, 7, 7, 7, 7, 7},
	{-1, 0, 1, -128, 127, -129, 128, 255, 256},
	{1000000, -1000000, math.MaxInt32, math.MinInt32 + 1},
	{42, 42, 43, 43, 43, 1, 1, 1, 1, 9},
}

func TestDeltaRoundTrip(t *testing.T) {
	for i, arr := range intCases {
		origin, enc := deltaEncode(arr)
		got := deltaDecode(origin, enc)
		if len(arr) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(arr, got); diff != "" {
			t.Errorf("case %d: delta round trip:\n%s", i, diff)
		}
	}
}

func TestRLERoundTrip(t *testing.T) {
	for i, arr := range intCases {
		enc := rleEncode(arr)
		got, err := rleDecode(enc, len(arr))
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if len(arr) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(arr, got); diff != "" {
			t.Errorf("case %d: rle round trip:\n%s", i, diff)
		}
	}
}

func TestRLEBadData(t *testing.T) {
	if _, err := rleDecode([]int32{1, 2, 3}, 2); err == nil {
		t.Error("odd length run data accepted")
	}
	if _, err := rleDecode([]int32{1, 0}, 0); err == nil {
		t.Error("zero length run accepted")
	}
	if _, err := rleDecode([]int32{1, 5}, 3); err == nil {
		t.Error("overflowing run accepted")
	}
}

func TestPackRoundTrip(t *testing.T) {
	cases := [][]int32{
		{0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
		{1, 2, 3, 126, 127, 128, 254, 255, 300},
		{-1, -127, -128, -129, -300, 5},
		{1, 40000, 2, 70000, 3},
		{math.MaxInt32, math.MinInt32 + 1},
	}
	for i, arr := range cases {
		packed, step, ok := packEncode(arr)
		if !ok {
			// Packing declined. That is legal when it cannot
			// beat plain int32, but not for the small cases.
			if i < 3 {
				t.Errorf("case %d: packing declined", i)
			}
			continue
		}
		got, err := packDecode(&step, packed)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if diff := cmp.Diff(arr, got); diff != "" {
			t.Errorf("case %d: pack round trip:\n%s", i, diff)
		}
	}
}

// The sentinel values themselves are the tricky part of packing. 127
// must become two entries, not be mistaken for a continuation.
func TestPackSentinels(t *testing.T) {
	arr := []int32{127, -128, 254, 0, 127}
	packed, step, ok := packEncode(arr)
	if !ok {
		t.Skip("packing declined for sentinel case")
	}
	got, err := packDecode(&step, packed)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(arr, got); diff != "" {
		t.Errorf("sentinel round trip:\n%s", diff)
	}
}

func TestByteArrayTypeChoice(t *testing.T) {
	cases := []struct {
		arr  []int32
		want DataType
	}{
		{[]int32{0, 255}, TypeUint8},
		{[]int32{-1, 100}, TypeInt8},
		{[]int32{0, 256}, TypeUint16},
		{[]int32{-1, 200}, TypeInt16},
		{[]int32{0, 65535}, TypeUint16},
		{[]int32{0, 65536}, TypeInt32},
		{[]int32{-40000, 0}, TypeInt32},
	}
	for i, c := range cases {
		ed := byteArrayEncode(c.arr, nil)
		if got := ed.Encoding[0].Type; got != c.want {
			t.Errorf("case %d: type %d, want %d", i, got, c.want)
		}
		back, err := byteArrayDecode(&ed.Encoding[0], ed.Data)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if diff := cmp.Diff(c.arr, back); diff != "" {
			t.Errorf("case %d: byte array round trip:\n%s", i, diff)
		}
	}
}

func TestEncodeIntsRoundTrip(t *testing.T) {
	for i, arr := range intCases {
		ed := encodeInts(arr)
		got, err := decodeIntChain(ed.Encoding, ed.Data)
		if err != nil {
			t.Fatalf("case %d: %v", i, err)
		}
		if len(arr) == 0 && len(got) == 0 {
			continue
		}
		if diff := cmp.Diff(arr, got); diff != "" {
			t.Errorf("case %d: chain round trip:\n%s", i, diff)
		}
	}
}

// A sorted id column must come out smaller than the plain byte form.
// This is the whole point of the chain contest.
func TestEncodeIntsShrinks(t *testing.T) {
	arr := make([]int32, 10000)
	for i := range arr {
		arr[i] = int32(i + 1)
	}
	ed := encodeInts(arr)
	if len(ed.Data) >= 4*len(arr)/10 {
		t.Errorf("sorted ids: %d bytes for %d values", len(ed.Data), len(arr))
	}
}

func TestEncodeFloatsFixedPoint(t *testing.T) {
	arr := []float64{10.234, -1.5, 0, 99.999}
	ed := encodeFloats(arr, 3)
	if ed.Encoding[0].Kind != KindFixedPoint {
		t.Fatalf("first step %s, want %s", ed.Encoding[0].Kind, KindFixedPoint)
	}
	got, err := decodeData(&ed, len(arr))
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"10.234", "-1.500", "0.000", "99.999"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("fixed point round trip:\n%s", diff)
	}
}

func TestEncodeFloatsRaw(t *testing.T) {
	arr := []float64{1.5e30, math.Pi}
	ed := encodeFloats(arr, -1)
	if k := ed.Encoding[0].Kind; k != KindByteArray {
		t.Fatalf("first step %s, want %s", k, KindByteArray)
	}
	if ed.Encoding[0].Type != TypeFloat64 {
		t.Fatalf("type %d, want float64", ed.Encoding[0].Type)
	}
	got, err := decodeData(&ed, len(arr))
	if err != nil {
		t.Fatal(err)
	}
	if got[0] != "1.5e+30" {
		t.Errorf("big value came back as %q", got[0])
	}
}

func TestStringColumnMasked(t *testing.T) {
	col := &cif.Column{
		Name:   "label_alt_id",
		Values: []string{"A", "", "B", "A", ""},
		Mask: []cif.ValueKind{cif.Present, cif.Inapplicable, cif.Present,
			cif.Present, cif.Unknown},
	}
	ec, err := encodeColumn(col, &EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	if ec.Mask == nil {
		t.Fatal("mask missing")
	}
	back, err := decodeColumn(&ec, len(col.Values))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(col, back); diff != "" {
		t.Errorf("masked string round trip:\n%s", diff)
	}
}

// roundTripCif is a small file with one of everything: integer,
// float, string and masked columns, single item categories and a
// loop. Float columns keep a uniform number of decimals so the text
// comes back byte for byte.
const roundTripCif = `data_1ABC
_entry.id   1ABC
_cell.length_a   52.390
_struct.title    'A test structure'
loop_
_atom_site.id
_atom_site.label_atom_id
_atom_site.Cartn_x
_atom_site.Cartn_y
_atom_site.occupancy
_atom_site.pdbx_formal_charge
1 CA 10.234 -5.100 1.00 ?
2 CB 11.502 -4.271 1.00 ?
3 CA 12.000 -3.332 0.50 1
4 OXT 13.881 -2.403 0.25 .
`

func parseFixture(t *testing.T, text string) *cif.File {
	t.Helper()
	f, err := cif.NewReader(strings.NewReader(text)).Read()
	if err != nil {
		t.Fatal(err)
	}
	return f
}

func TestFileRoundTrip(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	var buf bytes.Buffer
	if err := Write(&buf, f, nil); err != nil {
		t.Fatal(err)
	}
	got, err := Read(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("file round trip:\n%s", diff)
	}
}

func TestFileRoundTripAllCompressions(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	for _, tag := range []CompressionTag{
		CompressionNone, CompressionGzip, CompressionZstd, CompressionLZ4} {
		var buf bytes.Buffer
		err := Write(&buf, f, &EncodeOptions{Compression: tag})
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if !IsBcif(buf.Bytes()) {
			t.Errorf("%s: frame not recognised", tag)
		}
		got, err := Read(&buf)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if diff := cmp.Diff(f, got); diff != "" {
			t.Errorf("%s: round trip:\n%s", tag, diff)
		}
	}
}

// A repetitive payload must shrink under every codec. A random one
// must fall back to the uncompressed tag rather than grow.
func TestCompressFallback(t *testing.T) {
	repetitive := bytes.Repeat([]byte("atom_site "), 500)
	random := make([]byte, 4096)
	rand.New(rand.NewSource(1)).Read(random)

	for _, tag := range []CompressionTag{
		CompressionGzip, CompressionZstd, CompressionLZ4} {
		out, gotTag, err := compress(repetitive, tag)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if gotTag != tag || len(out) >= len(repetitive) {
			t.Errorf("%s: %d bytes from %d, tag %s",
				tag, len(out), len(repetitive), gotTag)
		}
		back, err := decompress(out, gotTag)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if !bytes.Equal(back, repetitive) {
			t.Errorf("%s: payload mangled", tag)
		}

		out, gotTag, err = compress(random, tag)
		if err != nil {
			t.Fatalf("%s: %v", tag, err)
		}
		if gotTag != CompressionNone {
			t.Errorf("%s: random data kept tag %s", tag, gotTag)
		}
		if !bytes.Equal(out, random) {
			t.Errorf("%s: fallback changed the payload", tag)
		}
	}
}

// Files from other encoders have no frame, just CBOR.
func TestReadBareCbor(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	bf, err := Encode(f, &EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	payload, err := cborMarshal(bf)
	if err != nil {
		t.Fatal(err)
	}
	if !IsBcif(payload) {
		t.Error("bare CBOR map not recognised")
	}
	got, err := Read(bytes.NewReader(payload))
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(f, got); diff != "" {
		t.Errorf("bare round trip:\n%s", diff)
	}
}

func TestReadRawHeader(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	var buf bytes.Buffer
	if err := Write(&buf, f, nil); err != nil {
		t.Fatal(err)
	}
	bf, err := ReadRaw(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if bf.Version != Version || bf.Encoder != encoderName {
		t.Errorf("header %q %q", bf.Version, bf.Encoder)
	}
	if len(bf.Blocks) != 1 || bf.Blocks[0].Header != "1ABC" {
		t.Errorf("blocks %+v", bf.Blocks)
	}
}

func TestReadErrors(t *testing.T) {
	if _, err := Read(bytes.NewReader([]byte("BC"))); err != errShortFile {
		t.Errorf("two byte file: %v", err)
	}
	// Valid frame, truncated zstd payload.
	frame := append([]byte("BCF1"), byte(CompressionZstd), 0x28, 0xb5)
	if _, err := Read(bytes.NewReader(frame)); err == nil {
		t.Error("truncated payload accepted")
	}
	// Garbage that does not look like CBOR either.
	if _, err := Read(bytes.NewReader(bytes.Repeat([]byte{0xff}, 64))); err == nil {
		t.Error("garbage accepted")
	}
}

func TestDecodeValidation(t *testing.T) {
	// An index pointing past the string table.
	idx := byteArrayEncode([]int32{0, 5}, nil)
	off := byteArrayEncode([]int32{0, 2}, nil)
	ed := EncodedData{
		Encoding: []Encoding{{
			Kind:           KindStringArray,
			StringData:     "CA",
			Offsets:        off.Data,
			OffsetEncoding: off.Encoding,
			DataEncoding:   idx.Encoding,
		}},
		Data: idx.Data,
	}
	if _, err := decodeData(&ed, 2); err == nil {
		t.Error("out of range string index accepted")
	}

	// Offsets outside the string data.
	off2 := byteArrayEncode([]int32{0, 99}, nil)
	ed.Encoding[0].Offsets = off2.Data
	ed.Encoding[0].OffsetEncoding = off2.Encoding
	if _, err := decodeData(&ed, 2); err == nil {
		t.Error("out of range offset accepted")
	}

	// A chain that does not end in bytes.
	bad := EncodedData{Encoding: []Encoding{{Kind: KindDelta}}}
	if _, err := decodeIntChain(bad.Encoding, nil); err == nil {
		t.Error("chain without a byte array accepted")
	}
}

// Row counts in the container must agree with the decoded columns.
func TestRowCountMismatch(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	bf, err := Encode(f, &EncodeOptions{})
	if err != nil {
		t.Fatal(err)
	}
	bf.Blocks[0].Categories[3].RowCount++ // atom_site
	if _, err := Decode(bf); err == nil {
		t.Error("wrong row count accepted")
	}
}

func TestPrecisionOption(t *testing.T) {
	f := parseFixture(t, roundTripCif)
	opts := &EncodeOptions{Precision: map[string]int{"Cartn_x": 1}}
	bf, err := Encode(f, opts)
	if err != nil {
		t.Fatal(err)
	}
	got, err := Decode(bf)
	if err != nil {
		t.Fatal(err)
	}
	col := got.Blocks[0].Category("atom_site").Column("Cartn_x")
	if col == nil {
		t.Fatal("Cartn_x missing")
	}
	if col.Values[0] != "10.2" {
		t.Errorf("truncated value %q, want 10.2", col.Values[0])
	}
}
