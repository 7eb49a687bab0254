package bcif

import (
	"github.com/fxamacker/cbor/v2"
)

// The encoder uses core deterministic encoding: sorted map keys,
// smallest integer forms. The same cif input then always produces
// identical bytes, which is what lets the ccd build cache artifacts
// by content hash.
var encMode cbor.EncMode

// The decoder accepts standard CBOR and ignores unknown fields, so a
// file written by a newer version with extra fields still reads.
var decMode cbor.DecMode

func init() {
	var err error
	if encMode, err = cbor.CoreDetEncOptions().EncMode(); err != nil {
		panic("bcif: CBOR encoder initialization failed: " + err.Error())
	}
	if decMode, err = (cbor.DecOptions{}).DecMode(); err != nil {
		panic("bcif: CBOR decoder initialization failed: " + err.Error())
	}
}

func cborMarshal(v any) ([]byte, error)    { return encMode.Marshal(v) }
func cborUnmarshal(b []byte, v any) error  { return decMode.Unmarshal(b, v) }
