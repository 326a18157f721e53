package vertexloader

import (
	"fmt"
	"hash/maphash"

	"github.com/gxvtx/gxvtx/internal/gx"
)

// Key identifies a loader configuration: the full vertex descriptor and one
// attribute group. Keys are compared structurally, so two groups holding the
// same bits share a loader.
type Key struct {
	Desc gx.VtxDesc
	VAT  gx.VAT
}

func NewKey(desc gx.VtxDesc, vat gx.VAT) Key {
	return Key{Desc: desc, VAT: vat}
}

var keySeed = maphash.MakeSeed()

// Hash is a process-local hash of the key, stable for the process lifetime.
func (k Key) Hash() uint64 {
	return maphash.Comparable(keySeed, k)
}

func (k Key) String() string {
	return fmt.Sprintf("desc=%09x vat=%08x:%08x:%08x", uint64(k.Desc), k.VAT.G0, k.VAT.G1, k.VAT.G2)
}
