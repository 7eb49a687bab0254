package bcif

import (
	"bytes"
	"fmt"
	"io"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// CompressionTag is the one byte after the magic that names the
// compression of the payload. The values are part of the file
// format. Do not reorder.
type CompressionTag uint8

const (
	// CompressionDefault lets the writer choose. It is never
	// written to a file.
	CompressionDefault CompressionTag = 0

	// CompressionNone stores the CBOR as is.
	CompressionNone CompressionTag = 1

	// CompressionGzip is there because the wwPDB world is full of
	// gzip. Anything that can read components.cif.gz can read this.
	CompressionGzip CompressionTag = 2

	// CompressionZstd is the default. Column data after integer
	// packing is byte soup with lots of short repeats, exactly
	// what zstd is good at.
	CompressionZstd CompressionTag = 3

	// CompressionLZ4 trades a worse ratio for very fast decodes.
	// Useful when the files sit on fast local disk and decode time
	// dominates dataset loading.
	CompressionLZ4 CompressionTag = 4
)

// String returns the name used by the cif2bcif -z flag.
func (tag CompressionTag) String() string {
	switch tag {
	case CompressionDefault:
		return "default"
	case CompressionNone:
		return "none"
	case CompressionGzip:
		return "gzip"
	case CompressionZstd:
		return "zstd"
	case CompressionLZ4:
		return "lz4"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(tag))
	}
}

// ParseCompressionTag is the inverse of String, for flag parsing.
func ParseCompressionTag(name string) (CompressionTag, error) {
	switch name {
	case "", "default":
		return CompressionDefault, nil
	case "none":
		return CompressionNone, nil
	case "gzip":
		return CompressionGzip, nil
	case "zstd":
		return CompressionZstd, nil
	case "lz4":
		return CompressionLZ4, nil
	default:
		return 0, fmt.Errorf("unknown compression %q (want none, gzip, zstd or lz4)", name)
	}
}

// zstd's encoder and decoder are reusable and safe for concurrent
// EncodeAll/DecodeAll, so one of each does for the whole process.
var (
	zstdEncoder *zstd.Encoder
	zstdDecoder *zstd.Decoder
)

func init() {
	var err error
	if zstdEncoder, err = zstd.NewWriter(nil); err != nil {
		panic("bcif: zstd encoder: " + err.Error())
	}
	if zstdDecoder, err = zstd.NewReader(nil); err != nil {
		panic("bcif: zstd decoder: " + err.Error())
	}
}

// compress squeezes the payload. CompressionDefault resolves to
// zstd. If the compressed form ends up bigger than the input, we
// quietly store uncompressed instead. Nobody wins a prize for a
// negative compression ratio.
func compress(payload []byte, tag CompressionTag) ([]byte, CompressionTag, error) {
	if tag == CompressionDefault {
		tag = CompressionZstd
	}
	var out []byte
	switch tag {
	case CompressionNone:
		return payload, CompressionNone, nil
	case CompressionZstd:
		out = zstdEncoder.EncodeAll(payload, nil)
	case CompressionGzip:
		var buf bytes.Buffer
		zw := gzip.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, 0, err
		}
		if err := zw.Close(); err != nil {
			return nil, 0, err
		}
		out = buf.Bytes()
	case CompressionLZ4:
		var buf bytes.Buffer
		zw := lz4.NewWriter(&buf)
		if _, err := zw.Write(payload); err != nil {
			return nil, 0, err
		}
		if err := zw.Close(); err != nil {
			return nil, 0, err
		}
		out = buf.Bytes()
	default:
		return nil, 0, fmt.Errorf("bcif: cannot compress with tag %s", tag)
	}
	if len(out) >= len(payload) {
		return payload, CompressionNone, nil
	}
	return out, tag, nil
}

// decompress undoes compress, given the tag from the frame.
func decompress(raw []byte, tag CompressionTag) ([]byte, error) {
	switch tag {
	case CompressionNone:
		return raw, nil
	case CompressionZstd:
		return zstdDecoder.DecodeAll(raw, nil)
	case CompressionGzip:
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, err
		}
		defer zr.Close()
		return io.ReadAll(zr)
	case CompressionLZ4:
		return io.ReadAll(lz4.NewReader(bytes.NewReader(raw)))
	default:
		return nil, fmt.Errorf("bcif: unknown compression tag %d in file", uint8(tag))
	}
}
