package vertexloader

import (
	"encoding/binary"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxvtx/gxvtx/internal/gx"
)

func desc(pos, nrm, c0 gx.AttrType) gx.VtxDesc {
	return gx.VtxDesc(pos)<<9 | gx.VtxDesc(nrm)<<11 | gx.VtxDesc(c0)<<13
}

func f32At(b []byte, off int) float32 {
	return math.Float32frombits(binary.LittleEndian.Uint32(b[off:]))
}

type fakeArrays struct {
	bases   [gx.NumArrays][]byte
	strides [gx.NumArrays]uint32
}

func (a *fakeArrays) ArrayBase(i int) []byte { return a.bases[i] }
func (a *fakeArrays) ArrayStride(i int) uint32 { return a.strides[i] }

func TestVertexSizeDirect(t *testing.T) {
	// XYZ f32 position, s8 normal, rgba8888 colour.
	vat := gx.VAT{G0: 1 | uint32(gx.F32)<<1 | uint32(gx.S8)<<10 | uint32(gx.RGBA8888)<<14}
	l := New(NewKey(desc(gx.Direct, gx.Direct, gx.Direct), vat), nil)

	assert.Equal(t, 12+3+4, l.VertexSize())
	d := l.Declaration()
	assert.Equal(t, 12+12+4, d.Stride)
	assert.Equal(t, 0, d.Position.Offset)
	assert.Equal(t, 12, d.Normals[0].Offset)
	assert.False(t, d.Normals[1].Present())
	assert.Equal(t, 24, d.Colors[0].Offset)
}

func TestVertexSizeIndexedAndMatrices(t *testing.T) {
	d := desc(gx.Index16, gx.Index8, gx.NotPresent) |
		1 | 1<<1 | // posmtx, tex0mtx
		gx.VtxDesc(gx.Index8)<<17 // tex0 coord
	// NBT normals with three indices.
	vat := gx.VAT{G0: 1<<9 | 1<<31}
	l := New(NewKey(d, vat), nil)

	// posmtx 1 + tex0mtx 1 + pos idx16 2 + 3 normal idx8 + tex0 idx8 1
	assert.Equal(t, 1+1+2+3+1, l.VertexSize())
	decl := l.Declaration()
	assert.True(t, decl.PosMtx.Present())
	assert.True(t, decl.Normals[2].Present())
	assert.Equal(t, 3, decl.TexCoords[0].Components)
	assert.Equal(t, 4+12+36+12, decl.Stride)
}

func TestNormalIndex3IgnoredForDirect(t *testing.T) {
	vat := gx.VAT{G0: 1<<9 | uint32(gx.S16)<<10 | 1<<31}
	l := New(NewKey(desc(gx.NotPresent, gx.Direct, gx.NotPresent), vat), nil)
	assert.Equal(t, 9*2, l.VertexSize())
}

func TestRunVerticesDirect(t *testing.T) {
	// XY s16 position with frac 8, rgb565 colour.
	vat := gx.VAT{G0: uint32(gx.S16)<<1 | 8<<4 | uint32(gx.RGB565)<<14}
	l := New(NewKey(desc(gx.Direct, gx.NotPresent, gx.Direct), vat), nil)
	require.Equal(t, 6, l.VertexSize())

	data := []byte{
		0x01, 0x00, 0xFF, 0x00, 0xF8, 0x00, // x=1.0 y=-1.0 red
		0x00, 0x80, 0x00, 0x00, 0x07, 0xE0, // x=0.5 y=0 green
	}
	r := NewDataReader(data)
	out, err := l.RunVertices(r, nil, 2, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, r.Remaining())

	stride := l.Declaration().Stride
	require.Len(t, out, 2*stride)
	assert.Equal(t, float32(1), f32At(out, 0))
	assert.Equal(t, float32(-1), f32At(out, 4))
	assert.Equal(t, float32(0), f32At(out, 8))
	assert.Equal(t, []byte{0xFF, 0, 0, 0xFF}, out[12:16])

	v1 := out[stride:]
	assert.Equal(t, float32(0.5), f32At(v1, 0))
	assert.Equal(t, []byte{0, 0xFF, 0, 0xFF}, v1[12:16])
	assert.Equal(t, uint64(2), l.NumLoadedVerts())
}

func TestRunVerticesByteDequant(t *testing.T) {
	withoutDequant := gx.VAT{G0: uint32(gx.U8)<<1 | 2<<4}
	withDequant := gx.VAT{G0: uint32(gx.U8)<<1 | 2<<4 | 1<<30}

	l := New(NewKey(desc(gx.Direct, gx.NotPresent, gx.NotPresent), withoutDequant), nil)
	out, err := l.RunVertices(NewDataReader([]byte{8, 4}), nil, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(8), f32At(out, 0))

	l = New(NewKey(desc(gx.Direct, gx.NotPresent, gx.NotPresent), withDequant), nil)
	out, err = l.RunVertices(NewDataReader([]byte{8, 4}), nil, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(2), f32At(out, 0))
	assert.Equal(t, float32(1), f32At(out, 4))
}

func TestRunVerticesIndexed(t *testing.T) {
	// Position array of XYZ f32, stride 12; colour array of rgba8888.
	arrays := &fakeArrays{}
	pos := make([]byte, 3*12)
	for i, v := range []float32{0, 0, 0, 1, 2, 3, 4, 5, 6} {
		binary.BigEndian.PutUint32(pos[4*i:], math.Float32bits(v))
	}
	arrays.bases[gx.ArrayPosition] = pos
	arrays.strides[gx.ArrayPosition] = 12
	arrays.bases[gx.ArrayColor0] = []byte{1, 2, 3, 4, 5, 6, 7, 8}
	arrays.strides[gx.ArrayColor0] = 4

	vat := gx.VAT{G0: 1 | uint32(gx.F32)<<1 | uint32(gx.RGBA8888)<<14}
	l := New(NewKey(desc(gx.Index16, gx.NotPresent, gx.Index8), vat), nil)
	require.Equal(t, 3, l.VertexSize())

	out, err := l.RunVertices(NewDataReader([]byte{0x00, 0x02, 0x01, 0x00, 0x01, 0x00}), arrays, 2, nil)
	require.NoError(t, err)

	assert.Equal(t, []float32{4, 5, 6}, []float32{f32At(out, 0), f32At(out, 4), f32At(out, 8)})
	assert.Equal(t, []byte{5, 6, 7, 8}, out[12:16])
	v1 := out[16:]
	assert.Equal(t, float32(1), f32At(v1, 0))
	assert.Equal(t, []byte{1, 2, 3, 4}, v1[12:16])
}

func TestRunVerticesUnmappedArrayYieldsZero(t *testing.T) {
	vat := gx.VAT{G0: 1 | uint32(gx.F32)<<1}
	l := New(NewKey(desc(gx.Index8, gx.NotPresent, gx.NotPresent), vat), nil)
	out, err := l.RunVertices(NewDataReader([]byte{7}), &fakeArrays{}, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, float32(0), f32At(out, 0))
}

func TestRunVerticesShortBuffer(t *testing.T) {
	vat := gx.VAT{G0: 1 | uint32(gx.F32)<<1}
	l := New(NewKey(desc(gx.Direct, gx.NotPresent, gx.NotPresent), vat), nil)

	r := NewDataReader(make([]byte, 2*12-1))
	out, err := l.RunVertices(r, nil, 2, []byte{9})
	require.ErrorIs(t, err, ErrShortBuffer)
	assert.Equal(t, []byte{9}, out)
	assert.Equal(t, 0, r.Pos())
	assert.Zero(t, l.NumLoadedVerts())
}

func TestTexCoordWithMatrixIndex(t *testing.T) {
	d := gx.VtxDesc(1)<<2 | gx.VtxDesc(gx.Direct)<<(17+2) // tex1mtx, tex1 direct
	vat := gx.VAT{G1: 1 | uint32(gx.U8)<<1 | 1<<4}        // tex1 ST u8 frac 1
	l := New(NewKey(d, vat), nil)
	require.Equal(t, 3, l.VertexSize())

	out, err := l.RunVertices(NewDataReader([]byte{30, 4, 6}), nil, 1, nil)
	require.NoError(t, err)
	off := l.Declaration().TexCoords[1].Offset
	assert.Equal(t, float32(2), f32At(out, off))
	assert.Equal(t, float32(3), f32At(out, off+4))
	assert.Equal(t, float32(30), f32At(out, off+8))
}

func TestReadColorFormats(t *testing.T) {
	cases := []struct {
		f    gx.ColorFormat
		in   []byte
		want [4]byte
	}{
		{gx.RGB888, []byte{1, 2, 3}, [4]byte{1, 2, 3, 0xFF}},
		{gx.RGB888x, []byte{1, 2, 3, 9}, [4]byte{1, 2, 3, 0xFF}},
		{gx.RGBA4444, []byte{0xF0, 0x8F}, [4]byte{0xFF, 0x00, 0x88, 0xFF}},
		{gx.RGBA6666, []byte{0xFC, 0x00, 0x3F}, [4]byte{0xFF, 0x00, 0x00, 0xFF}},
		{gx.RGBA8888, []byte{1, 2, 3, 4}, [4]byte{1, 2, 3, 4}},
	}
	for _, tc := range cases {
		r := NewDataReader(tc.in)
		assert.Equal(t, tc.want, readColor(r, tc.f), tc.f.String())
		assert.Equal(t, 0, r.Remaining(), tc.f.String())
	}
}

func TestFormatCacheSharesDeclarations(t *testing.T) {
	formats := NewFormatCache()
	vatA := gx.VAT{G0: 1 | uint32(gx.F32)<<1}
	vatB := gx.VAT{G0: 1 | uint32(gx.S16)<<1 | 4<<4}

	// Different input encodings, same native layout.
	a := New(NewKey(desc(gx.Direct, gx.NotPresent, gx.NotPresent), vatA), formats)
	b := New(NewKey(desc(gx.Direct, gx.NotPresent, gx.NotPresent), vatB), formats)
	c := New(NewKey(desc(gx.Direct, gx.Direct, gx.NotPresent), vatA), formats)

	assert.Same(t, a.NativeFormat(), b.NativeFormat())
	assert.NotSame(t, a.NativeFormat(), c.NativeFormat())
	assert.Equal(t, 2, formats.Len())

	formats.Clear()
	assert.Zero(t, formats.Len())
}

func TestKeyStructuralEquality(t *testing.T) {
	a := NewKey(0x1FF, gx.VAT{G0: 1, G1: 2, G2: 3})
	b := NewKey(0x1FF, gx.VAT{G0: 1, G1: 2, G2: 3})
	c := NewKey(0x1FF, gx.VAT{G0: 1, G1: 2, G2: 4})

	assert.Equal(t, a, b)
	assert.Equal(t, a.Hash(), b.Hash())
	assert.NotEqual(t, a, c)

	m := map[Key]int{a: 1}
	assert.Equal(t, 1, m[b])
}

func TestAppendToString(t *testing.T) {
	vat := gx.VAT{G0: 1 | uint32(gx.S16)<<1 | uint32(gx.RGBA8888)<<14}
	l := New(NewKey(desc(gx.Index16, gx.NotPresent, gx.Direct), vat), nil)

	var sb strings.Builder
	l.AppendToString(&sb)
	s := sb.String()
	assert.Contains(t, s, "pos:3:s16:idx16")
	assert.Contains(t, s, "c0:rgba8888:direct")
	assert.Contains(t, s, "6 bytes/vtx")
}

func TestDataReader(t *testing.T) {
	r := NewDataReader([]byte{0x12, 0x34, 0x56, 0x78, 0x9A})
	assert.Equal(t, uint16(0x1234), r.U16())
	assert.Equal(t, uint32(0x56789A), r.U24())
	assert.Equal(t, uint8(0), r.U8())
	assert.Equal(t, 0, r.Remaining())

	r = NewDataReader([]byte{1, 2, 3})
	r.Skip(10)
	assert.Equal(t, 3, r.Pos())
}
