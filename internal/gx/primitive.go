package gx

import "fmt"

// Primitive is the primitive kind encoded in bits 3-5 of a draw opcode.
type Primitive uint8

const (
	Quads Primitive = iota
	Quads2
	Triangles
	TriangleStrip
	TriangleFan
	Lines
	LineStrip
	Points
)

var primitiveNames = [...]string{
	Quads:         "quads",
	Quads2:        "quads2",
	Triangles:     "triangles",
	TriangleStrip: "triangle_strip",
	TriangleFan:   "triangle_fan",
	Lines:         "lines",
	LineStrip:     "line_strip",
	Points:        "points",
}

func (p Primitive) String() string {
	if int(p) < len(primitiveNames) {
		return primitiveNames[p]
	}
	return fmt.Sprintf("primitive(%d)", uint8(p))
}

// IsFilled reports whether the primitive rasterises as polygons.
// Only these are dropped when the cull mode is CullAll.
func (p Primitive) IsFilled() bool { return p < Lines }

// PrimitiveClass groups primitives that can share one index buffer.
type PrimitiveClass uint8

const (
	ClassTriangles PrimitiveClass = iota
	ClassLines
	ClassPoints
)

func (c PrimitiveClass) String() string {
	switch c {
	case ClassTriangles:
		return "triangles"
	case ClassLines:
		return "lines"
	default:
		return "points"
	}
}

func (p Primitive) Class() PrimitiveClass {
	switch {
	case p.IsFilled():
		return ClassTriangles
	case p == Points:
		return ClassPoints
	default:
		return ClassLines
	}
}

// CullMode is the GenMode face culling setting.
type CullMode uint8

const (
	CullNone CullMode = iota
	CullBack
	CullFront
	CullAll
)

func (m CullMode) String() string {
	switch m {
	case CullNone:
		return "none"
	case CullBack:
		return "back"
	case CullFront:
		return "front"
	default:
		return "all"
	}
}

// BPGenMode is the BP register address of GenMode.
const BPGenMode = 0x00

// GenMode is the BP GenMode register (24 significant bits).
//
//	bits 0-3 NumTexGens, 4-6 NumColChans, 10-13 NumTevStages,
//	bits 14-15 CullMode, 16-18 NumIndStages
type GenMode uint32

func (g GenMode) CullMode() CullMode { return CullMode((g >> 14) & 3) }

// WithCullMode returns g with the cull mode field replaced.
func (g GenMode) WithCullMode(m CullMode) GenMode {
	return g&^(3<<14) | GenMode(m&3)<<14
}
