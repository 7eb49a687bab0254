// Package bcif is the binary form of CIF. The text form is bulky and
// slow to tokenise, which matters when a training run wants to read
// a few hundred thousand structures. Here each column of a category
// is turned into a typed array, squeezed through a short chain of
// integer encodings and the whole lot is wrapped in CBOR, with an
// outer compression layer on top.
//
// The encoding chains follow the BinaryCIF ideas: ByteArray,
// FixedPoint, RunLength, Delta, IntegerPacking and StringArray. Each
// record remembers the chain that produced it, so a decoder just
// walks the chain backwards. Nothing here is specific to proteins.
// Any CIF file goes through.
package bcif

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"

	"github.com/bioml-tools/bio-datasets/pdb/cif"
)

// Version of the container layout. Goes into every file we write.
const Version = "0.3.0"

// encoderName identifies us in the file header, the way other bcif
// writers put their name in "encoder".
const encoderName = "bio-datasets-go " + Version

// DataType says how a ByteArray is to be interpreted.
type DataType uint8

// The numbering is part of the file format. Do not reorder.
const (
	TypeInt8    DataType = 1
	TypeInt16   DataType = 2
	TypeInt32   DataType = 3
	TypeUint8   DataType = 4
	TypeUint16  DataType = 5
	TypeUint32  DataType = 6
	TypeFloat32 DataType = 32
	TypeFloat64 DataType = 33
)

// Kind names for the encoding steps.
const (
	KindByteArray      = "ByteArray"
	KindFixedPoint     = "FixedPoint"
	KindRunLength      = "RunLength"
	KindDelta          = "Delta"
	KindIntegerPacking = "IntegerPacking"
	KindStringArray    = "StringArray"
)

// Encoding is one step of a chain. Which fields matter depends on
// Kind. A flat struct with omitempty keeps the CBOR small and saves
// us an interface and a pile of type switches.
type Encoding struct {
	Kind string `cbor:"kind"`

	// ByteArray
	Type DataType `cbor:"type,omitempty"`

	// FixedPoint. Factor is a power of ten.
	Factor float64 `cbor:"factor,omitempty"`

	// Delta
	Origin int32 `cbor:"origin,omitempty"`

	// RunLength, Delta, IntegerPacking remember the length of the
	// array they were given, so the decoder can size its output.
	SrcSize int `cbor:"srcSize,omitempty"`

	// IntegerPacking
	ByteCount  int  `cbor:"byteCount,omitempty"`
	IsUnsigned bool `cbor:"isUnsigned,omitempty"`

	// StringArray
	StringData     string     `cbor:"stringData,omitempty"`
	Offsets        []byte     `cbor:"offsets,omitempty"`
	OffsetEncoding []Encoding `cbor:"offsetEncoding,omitempty"`
	DataEncoding   []Encoding `cbor:"dataEncoding,omitempty"`
}

// EncodedData is a byte payload plus the chain that produced it,
// listed in the order the steps were applied.
type EncodedData struct {
	Encoding []Encoding `cbor:"encoding"`
	Data     []byte     `cbor:"data"`
}

// Column is one encoded column. Mask is nil when every row holds a
// real value, otherwise it decodes to 0/1/2 per row (present,
// inapplicable, unknown).
type Column struct {
	Name string       `cbor:"name"`
	Data EncodedData  `cbor:"data"`
	Mask *EncodedData `cbor:"mask,omitempty"`
}

// Category is a set of encoded columns. The name keeps its leading
// underscore, which is what other bcif files do.
type Category struct {
	Name     string   `cbor:"name"`
	RowCount int      `cbor:"rowCount"`
	Columns  []Column `cbor:"columns"`
}

// Block is one data block.
type Block struct {
	Header     string     `cbor:"header"`
	Categories []Category `cbor:"categories"`
}

// File is the top level container as it appears in the CBOR.
type File struct {
	Version string  `cbor:"version"`
	Encoder string  `cbor:"encoder"`
	Blocks  []Block `cbor:"dataBlocks"`
}

// Four bytes of magic at the start of a framed file, followed by one
// byte naming the outer compression.
var magic = [4]byte{'B', 'C', 'F', '1'}

// Write encodes the cif file and writes it with the outer frame.
func Write(w io.Writer, f *cif.File, opts *EncodeOptions) error {
	if opts == nil {
		opts = &EncodeOptions{}
	}
	bf, err := Encode(f, opts)
	if err != nil {
		return err
	}
	payload, err := cborMarshal(bf)
	if err != nil {
		return fmt.Errorf("bcif: marshalling: %w", err)
	}
	payload, tag, err := compress(payload, opts.Compression)
	if err != nil {
		return err
	}
	if _, err := w.Write(magic[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{byte(tag)}); err != nil {
		return err
	}
	_, err = w.Write(payload)
	return err
}

// Read reads a framed bcif file, or a bare CBOR stream for files
// written by other encoders, and gives back the decoded cif file.
func Read(r io.Reader) (*cif.File, error) {
	bf, err := ReadRaw(r)
	if err != nil {
		return nil, err
	}
	return Decode(bf)
}

// ReadRaw reads the container without decoding the columns. Useful
// when all a caller wants is to inspect what is in the file.
func ReadRaw(r io.Reader) (*File, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(4)
	if err != nil {
		if err == io.EOF || err == io.ErrUnexpectedEOF {
			return nil, errShortFile
		}
		return nil, fmt.Errorf("bcif: reading header: %w", err)
	}
	var payload []byte
	if bytes.Equal(head, magic[:]) {
		if _, err := br.Discard(4); err != nil {
			return nil, err
		}
		tagByte, err := br.ReadByte()
		if err != nil {
			return nil, fmt.Errorf("bcif: reading compression tag: %w", err)
		}
		raw, err := io.ReadAll(br)
		if err != nil {
			return nil, err
		}
		payload, err = decompress(raw, CompressionTag(tagByte))
		if err != nil {
			return nil, err
		}
	} else {
		// No magic. Assume a bare CBOR stream from another encoder.
		if payload, err = io.ReadAll(br); err != nil {
			return nil, err
		}
	}
	bf := new(File)
	if err := cborUnmarshal(payload, bf); err != nil {
		return nil, fmt.Errorf("bcif: unmarshalling: %w", err)
	}
	return bf, nil
}

// IsBcif sniffs the first bytes of a stream. It recognises our frame
// and the CBOR map header that a bare encoding starts with.
func IsBcif(head []byte) bool {
	if len(head) >= 4 && bytes.Equal(head[:4], magic[:]) {
		return true
	}
	// 0xa0..0xbb: a CBOR map with a small number of keys.
	return len(head) > 0 && head[0] >= 0xa0 && head[0] <= 0xbb
}

var errShortFile = errors.New("bcif: file too short")
