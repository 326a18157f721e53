package gx

import "fmt"

// NumVATGroups is the number of vertex attribute table groups selectable per draw.
const NumVATGroups = 8

// NumTexCoords is the number of texture coordinate attributes.
const NumTexCoords = 8

// ComponentFormat is the numeric encoding of position, normal and texture
// coordinate components.
type ComponentFormat uint8

const (
	U8 ComponentFormat = iota
	S8
	U16
	S16
	F32
)

// Size returns the component size in bytes. Reserved encodings 5-7 decode as F32.
func (f ComponentFormat) Size() int {
	switch f {
	case U8, S8:
		return 1
	case U16, S16:
		return 2
	default:
		return 4
	}
}

func (f ComponentFormat) String() string {
	switch f {
	case U8:
		return "u8"
	case S8:
		return "s8"
	case U16:
		return "u16"
	case S16:
		return "s16"
	case F32:
		return "f32"
	default:
		return fmt.Sprintf("fmt(%d)", uint8(f))
	}
}

// ColorFormat is the packed encoding of a colour attribute.
type ColorFormat uint8

const (
	RGB565 ColorFormat = iota
	RGB888
	RGB888x
	RGBA4444
	RGBA6666
	RGBA8888
)

// Size returns the colour size in bytes. Reserved encodings 6-7 decode as RGBA8888.
func (f ColorFormat) Size() int {
	switch f {
	case RGB565, RGBA4444:
		return 2
	case RGB888, RGBA6666:
		return 3
	default:
		return 4
	}
}

func (f ColorFormat) String() string {
	switch f {
	case RGB565:
		return "rgb565"
	case RGB888:
		return "rgb888"
	case RGB888x:
		return "rgb888x"
	case RGBA4444:
		return "rgba4444"
	case RGBA6666:
		return "rgba6666"
	case RGBA8888:
		return "rgba8888"
	default:
		return fmt.Sprintf("color(%d)", uint8(f))
	}
}

// VAT is one vertex attribute table group: three independent 32-bit words
// written by CP registers 0x70+g, 0x80+g and 0x90+g.
//
//	G0: PosElements:1 PosFormat:3 PosFrac:5 NormalElements:1 NormalFormat:3
//	    Color0Elements:1 Color0Comp:3 Color1Elements:1 Color1Comp:3
//	    Tex0Elements:1 Tex0Format:3 Tex0Frac:5 ByteDequant:1 NormalIndex3:1
//	G1: Tex1 (9 bits) Tex2 (9) Tex3 (9) Tex4Elements:1 Tex4Format:3 VCacheEnhance:1
//	G2: Tex4Frac:5 Tex5 (9) Tex6 (9) Tex7 (9)
type VAT struct {
	G0 uint32
	G1 uint32
	G2 uint32
}

func bits(w uint32, shift, n uint) uint32 {
	return (w >> shift) & (1<<n - 1)
}

// PosElements returns 3 for XYZ positions and 2 for XY.
func (v VAT) PosElements() int {
	if bits(v.G0, 0, 1) != 0 {
		return 3
	}
	return 2
}

func (v VAT) PosFormat() ComponentFormat { return ComponentFormat(bits(v.G0, 1, 3)) }
func (v VAT) PosFrac() uint { return uint(bits(v.G0, 4, 5)) }

// NormalNBT reports whether normals carry binormal and tangent vectors.
func (v VAT) NormalNBT() bool { return bits(v.G0, 9, 1) != 0 }

func (v VAT) NormalFormat() ComponentFormat { return ComponentFormat(bits(v.G0, 10, 3)) }

// ColorFormat returns the encoding of colour channel i (0 or 1).
func (v VAT) ColorFormat(i int) ColorFormat {
	if i == 0 {
		return ColorFormat(bits(v.G0, 14, 3))
	}
	return ColorFormat(bits(v.G0, 18, 3))
}

func (v VAT) ByteDequant() bool { return bits(v.G0, 30, 1) != 0 }
func (v VAT) NormalIndex3() bool { return bits(v.G0, 31, 1) != 0 }

// texCoordFields locates texture coordinate i: word, shift of the elements
// bit (format follows at +1), then word and shift of the frac field.
var texCoordFields = [NumTexCoords]struct {
	word, shift         uint8
	fracWord, fracShift uint8
}{
	{0, 21, 0, 25},
	{1, 0, 1, 4},
	{1, 9, 1, 13},
	{1, 18, 1, 22},
	{1, 27, 2, 0},
	{2, 5, 2, 9},
	{2, 14, 2, 18},
	{2, 23, 2, 27},
}

func (v VAT) word(i uint8) uint32 {
	switch i {
	case 0:
		return v.G0
	case 1:
		return v.G1
	default:
		return v.G2
	}
}

// TexCoordElements returns 2 for ST coordinates and 1 for S only.
func (v VAT) TexCoordElements(i int) int {
	f := texCoordFields[i]
	if bits(v.word(f.word), uint(f.shift), 1) != 0 {
		return 2
	}
	return 1
}

func (v VAT) TexCoordFormat(i int) ComponentFormat {
	f := texCoordFields[i]
	return ComponentFormat(bits(v.word(f.word), uint(f.shift)+1, 3))
}

func (v VAT) TexCoordFrac(i int) uint {
	f := texCoordFields[i]
	return uint(bits(v.word(f.fracWord), uint(f.fracShift), 5))
}
