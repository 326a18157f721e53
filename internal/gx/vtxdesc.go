// Package gx holds the bit layouts of the command-processor and BP registers
// that drive vertex loading.
package gx

import "fmt"

// AttrType says how an attribute is delivered in the vertex stream.
type AttrType uint8

const (
	NotPresent AttrType = iota
	Direct
	Index8
	Index16
)

func (t AttrType) String() string {
	switch t {
	case NotPresent:
		return "none"
	case Direct:
		return "direct"
	case Index8:
		return "idx8"
	case Index16:
		return "idx16"
	default:
		return fmt.Sprintf("attr(%d)", uint8(t))
	}
}

// IndexSize returns the number of stream bytes an index of this type takes.
func (t AttrType) IndexSize() int {
	switch t {
	case Index8:
		return 1
	case Index16:
		return 2
	default:
		return 0
	}
}

// VtxDescLowBits is the width of the half of the descriptor written by CP register 0x50.
const VtxDescLowBits = 17

// VtxDescLowMask covers the bits owned by the low descriptor register.
const VtxDescLowMask = 1<<VtxDescLowBits - 1

// VtxDesc is the vertex descriptor. It is 33 bits wide and is split across two
// CP registers: bits 0-16 and bits 17-32.
//
//	bit  0      PosMatIdx
//	bits 1-8    Tex0MatIdx..Tex7MatIdx
//	bits 9-10   Position
//	bits 11-12  Normal
//	bits 13-16  Color0, Color1
//	bits 17-32  Tex0Coord..Tex7Coord
type VtxDesc uint64

func (d VtxDesc) field(shift uint) AttrType {
	return AttrType((d >> shift) & 3)
}

func (d VtxDesc) PosMatIdx() bool { return d&1 != 0 }

// TexMatIdx reports whether texture matrix index i (0-7) is present.
func (d VtxDesc) TexMatIdx(i int) bool { return (d>>(1+uint(i)))&1 != 0 }

func (d VtxDesc) Position() AttrType { return d.field(9) }
func (d VtxDesc) Normal() AttrType { return d.field(11) }

// Color returns the delivery of colour channel i (0 or 1).
func (d VtxDesc) Color(i int) AttrType { return d.field(13 + 2*uint(i)) }

// TexCoord returns the delivery of texture coordinate i (0-7).
func (d VtxDesc) TexCoord(i int) AttrType { return d.field(17 + 2*uint(i)) }

// Low returns the part of the descriptor owned by register 0x50.
func (d VtxDesc) Low() uint32 { return uint32(d & VtxDescLowMask) }

// High returns the part of the descriptor owned by register 0x60.
func (d VtxDesc) High() uint32 { return uint32(d >> VtxDescLowBits) }

// WithLow replaces the low 17 bits and ORs in value. Bits of value above bit
// 16 are not masked, matching the hardware register behaviour.
func (d VtxDesc) WithLow(value uint32) VtxDesc {
	return d&^VtxDescLowMask | VtxDesc(value)
}

// WithHigh keeps the low 17 bits and ORs in value shifted into the upper part.
func (d VtxDesc) WithHigh(value uint32) VtxDesc {
	return d&VtxDescLowMask | VtxDesc(value)<<VtxDescLowBits
}

// Array indices used by indexed attributes.
const (
	ArrayPosition = 0
	ArrayNormal   = 1
	ArrayColor0   = 2
	ArrayColor1   = 3
	ArrayTexCoord = 4

	NumArrays = 16
)
