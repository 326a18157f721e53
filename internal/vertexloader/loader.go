// Package vertexloader compiles a vertex descriptor and attribute group into
// a Loader that converts big-endian GX vertex data into a native layout.
package vertexloader

import (
	"encoding/binary"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync/atomic"

	"github.com/chewxy/math32"

	"github.com/gxvtx/gxvtx/internal/gx"
)

var ErrShortBuffer = errors.New("vertexloader: vertex data truncated")

// Normals use a fixed dequantisation shift per component width.
const (
	normalFrac8  = 6
	normalFrac16 = 14
)

// ArraySource resolves indexed attributes. *cpmem.State implements it.
type ArraySource interface {
	ArrayBase(i int) []byte
	ArrayStride(i int) uint32
}

// Loader decodes vertices for one Key. It is immutable after New apart from
// the loaded-vertex counter, and may be shared between goroutines.
type Loader struct {
	key        Key
	vertexSize int
	decl       Declaration
	native     *NativeFormat
	steps      []step

	numLoadedVerts atomic.Uint64
}

type vertexState struct {
	r      *DataReader
	arrays ArraySource
	ar     DataReader
	dst    []byte
	texMtx [gx.NumTexCoords]uint8
}

type step func(vs *vertexState)

// New compiles a loader for key. The native format is taken from formats so
// that loaders with the same output layout share a handle; formats may be nil.
func New(key Key, formats *FormatCache) *Loader {
	l := &Loader{key: key}
	l.compile()
	if formats != nil {
		l.native = formats.Get(l.decl)
	} else {
		l.native = &NativeFormat{Decl: l.decl}
	}
	return l
}

func (l *Loader) Key() Key { return l.key }
func (l *Loader) VertexSize() int { return l.vertexSize }
func (l *Loader) Declaration() Declaration { return l.decl }
func (l *Loader) NativeFormat() *NativeFormat { return l.native }
func (l *Loader) NumLoadedVerts() uint64 { return l.numLoadedVerts.Load() }

func (l *Loader) compile() {
	desc, vat := l.key.Desc, l.key.VAT
	out := 0
	place := func(components, size int) AttributeFormat {
		a := AttributeFormat{Components: components, Offset: out}
		out += size
		return a
	}

	if desc.PosMatIdx() {
		l.vertexSize++
		l.decl.PosMtx = place(1, posMtxSize)
		off := l.decl.PosMtx.Offset
		l.steps = append(l.steps, func(vs *vertexState) {
			binary.LittleEndian.PutUint32(vs.dst[off:], uint32(vs.r.U8()&0x3F))
		})
	}
	for i := range gx.NumTexCoords {
		if desc.TexMatIdx(i) {
			l.vertexSize++
			l.steps = append(l.steps, func(vs *vertexState) {
				vs.texMtx[i] = vs.r.U8()
			})
		}
	}

	l.decl.Position = place(3, positionSize)
	if t := desc.Position(); t != gx.NotPresent {
		l.vertexSize += inputSize(t, vat.PosElements()*vat.PosFormat().Size())
		l.steps = append(l.steps, positionStep(t, vat, l.decl.Position.Offset))
	}

	if t := desc.Normal(); t != gx.NotPresent {
		vecs := 1
		if vat.NormalNBT() {
			vecs = 3
		}
		index3 := vecs == 3 && vat.NormalIndex3() && t != gx.Direct
		switch {
		case t == gx.Direct:
			l.vertexSize += vecs * 3 * vat.NormalFormat().Size()
		case index3:
			l.vertexSize += 3 * t.IndexSize()
		default:
			l.vertexSize += t.IndexSize()
		}
		var offs [3]int
		for k := range vecs {
			l.decl.Normals[k] = place(3, normalSize)
			offs[k] = l.decl.Normals[k].Offset
		}
		l.steps = append(l.steps, normalStep(t, vat.NormalFormat(), vecs, index3, offs))
	}

	for i := range 2 {
		t := desc.Color(i)
		if t == gx.NotPresent {
			continue
		}
		f := vat.ColorFormat(i)
		l.vertexSize += inputSize(t, f.Size())
		l.decl.Colors[i] = place(4, colorSize)
		l.steps = append(l.steps, colorStep(t, f, gx.ArrayColor0+i, l.decl.Colors[i].Offset))
	}

	for i := range gx.NumTexCoords {
		t := desc.TexCoord(i)
		hasMtx := desc.TexMatIdx(i)
		if t == gx.NotPresent && !hasMtx {
			continue
		}
		components := 2
		if hasMtx {
			components = 3
		}
		l.decl.TexCoords[i] = place(components, components*texCoordSize)
		if t != gx.NotPresent {
			l.vertexSize += inputSize(t, vat.TexCoordElements(i)*vat.TexCoordFormat(i).Size())
		}
		l.steps = append(l.steps, texCoordStep(t, vat, i, hasMtx, l.decl.TexCoords[i].Offset))
	}

	l.decl.Stride = out
}

// inputSize is the stream size of an attribute whose direct form is direct bytes.
func inputSize(t gx.AttrType, direct int) int {
	if t == gx.Direct {
		return direct
	}
	return t.IndexSize()
}

// source returns where this attribute's data lives for the current vertex:
// the stream for direct data, or the array element selected by the index
// read from the stream. extra is a byte offset inside the element.
func (vs *vertexState) source(t gx.AttrType, array, extra int) *DataReader {
	if t == gx.Direct {
		return vs.r
	}
	var idx int
	if t == gx.Index8 {
		idx = int(vs.r.U8())
	} else {
		idx = int(vs.r.U16())
	}
	vs.ar = DataReader{}
	if vs.arrays == nil {
		return &vs.ar
	}
	base := vs.arrays.ArrayBase(array)
	off := idx*int(vs.arrays.ArrayStride(array)) + extra
	if off < len(base) {
		vs.ar.buf = base[off:]
	}
	return &vs.ar
}

func readComponent(r *DataReader, f gx.ComponentFormat) float32 {
	switch f {
	case gx.U8:
		return float32(r.U8())
	case gx.S8:
		return float32(int8(r.U8()))
	case gx.U16:
		return float32(r.U16())
	case gx.S16:
		return float32(int16(r.U16()))
	default:
		return math32.Float32frombits(r.U32())
	}
}

func dequant(v float32, f gx.ComponentFormat, frac uint) float32 {
	if f >= gx.F32 || frac == 0 {
		return v
	}
	return math32.Ldexp(v, -int(frac))
}

func putF32(dst []byte, off int, v float32) {
	binary.LittleEndian.PutUint32(dst[off:], math32.Float32bits(v))
}

func positionStep(t gx.AttrType, vat gx.VAT, off int) step {
	elems := vat.PosElements()
	f := vat.PosFormat()
	frac := vat.PosFrac()
	// 8-bit positions are only scaled when ByteDequant is set.
	if f.Size() == 1 && !vat.ByteDequant() {
		frac = 0
	}
	return func(vs *vertexState) {
		src := vs.source(t, gx.ArrayPosition, 0)
		for c := range elems {
			putF32(vs.dst, off+4*c, dequant(readComponent(src, f), f, frac))
		}
	}
}

func normalStep(t gx.AttrType, f gx.ComponentFormat, vecs int, index3 bool, offs [3]int) step {
	var frac uint
	switch f.Size() {
	case 1:
		frac = normalFrac8
	case 2:
		frac = normalFrac16
	}
	vecBytes := 3 * f.Size()
	return func(vs *vertexState) {
		var src *DataReader
		if !index3 {
			src = vs.source(t, gx.ArrayNormal, 0)
		}
		for k := range vecs {
			if index3 {
				src = vs.source(t, gx.ArrayNormal, k*vecBytes)
			}
			for c := range 3 {
				putF32(vs.dst, offs[k]+4*c, dequant(readComponent(src, f), f, frac))
			}
		}
	}
}

func expand4(v uint32) byte { return byte(v<<4 | v) }
func expand5(v uint32) byte { return byte(v<<3 | v>>2) }
func expand6(v uint32) byte { return byte(v<<2 | v>>4) }

func readColor(r *DataReader, f gx.ColorFormat) [4]byte {
	switch f {
	case gx.RGB565:
		v := uint32(r.U16())
		return [4]byte{expand5(v >> 11 & 0x1F), expand6(v >> 5 & 0x3F), expand5(v & 0x1F), 0xFF}
	case gx.RGB888:
		v := r.U24()
		return [4]byte{byte(v >> 16), byte(v >> 8), byte(v), 0xFF}
	case gx.RGB888x:
		v := r.U32()
		return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), 0xFF}
	case gx.RGBA4444:
		v := uint32(r.U16())
		return [4]byte{expand4(v >> 12 & 0xF), expand4(v >> 8 & 0xF), expand4(v >> 4 & 0xF), expand4(v & 0xF)}
	case gx.RGBA6666:
		v := r.U24()
		return [4]byte{expand6(v >> 18 & 0x3F), expand6(v >> 12 & 0x3F), expand6(v >> 6 & 0x3F), expand6(v & 0x3F)}
	default:
		v := r.U32()
		return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
	}
}

func colorStep(t gx.AttrType, f gx.ColorFormat, array, off int) step {
	return func(vs *vertexState) {
		c := readColor(vs.source(t, array, 0), f)
		copy(vs.dst[off:off+4], c[:])
	}
}

func texCoordStep(t gx.AttrType, vat gx.VAT, i int, hasMtx bool, off int) step {
	elems := vat.TexCoordElements(i)
	f := vat.TexCoordFormat(i)
	frac := vat.TexCoordFrac(i)
	return func(vs *vertexState) {
		if t != gx.NotPresent {
			src := vs.source(t, gx.ArrayTexCoord+i, 0)
			for c := range elems {
				putF32(vs.dst, off+4*c, dequant(readComponent(src, f), f, frac))
			}
		}
		if hasMtx {
			putF32(vs.dst, off+8, float32(vs.texMtx[i]))
		}
	}
}

// RunVertices decodes count vertices from r and appends them to out in the
// native layout. It fails without consuming input if r holds fewer than
// count*VertexSize bytes.
func (l *Loader) RunVertices(r *DataReader, arrays ArraySource, count int, out []byte) ([]byte, error) {
	need := count * l.vertexSize
	if r.Remaining() < need {
		return out, fmt.Errorf("%w: need %d bytes, have %d", ErrShortBuffer, need, r.Remaining())
	}
	stride := l.decl.Stride
	start := len(out)
	out = slices.Grow(out, count*stride)[:start+count*stride]
	clear(out[start:])

	vs := vertexState{r: r, arrays: arrays}
	for v := range count {
		vs.dst = out[start+v*stride : start+(v+1)*stride]
		for _, s := range l.steps {
			s(&vs)
		}
	}
	l.numLoadedVerts.Add(uint64(count))
	return out, nil
}

// AppendToString writes a one-line description used by loader listings.
func (l *Loader) AppendToString(sb *strings.Builder) {
	desc, vat := l.key.Desc, l.key.VAT
	fmt.Fprintf(sb, "%016x: ", l.key.Hash())
	if desc.PosMatIdx() {
		sb.WriteString("posmtx ")
	}
	for i := range gx.NumTexCoords {
		if desc.TexMatIdx(i) {
			fmt.Fprintf(sb, "tex%dmtx ", i)
		}
	}
	if t := desc.Position(); t != gx.NotPresent {
		fmt.Fprintf(sb, "pos:%d:%s:%s ", vat.PosElements(), vat.PosFormat(), t)
	}
	if t := desc.Normal(); t != gx.NotPresent {
		n := "n"
		if vat.NormalNBT() {
			n = "nbt"
		}
		fmt.Fprintf(sb, "norm:%s:%s:%s ", n, vat.NormalFormat(), t)
	}
	for i := range 2 {
		if t := desc.Color(i); t != gx.NotPresent {
			fmt.Fprintf(sb, "c%d:%s:%s ", i, vat.ColorFormat(i), t)
		}
	}
	for i := range gx.NumTexCoords {
		if t := desc.TexCoord(i); t != gx.NotPresent {
			fmt.Fprintf(sb, "t%d:%d:%s:%s ", i, vat.TexCoordElements(i), vat.TexCoordFormat(i), t)
		}
	}
	fmt.Fprintf(sb, "- %d bytes/vtx, %d verts\n", l.vertexSize, l.NumLoadedVerts())
}
