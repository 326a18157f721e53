// Package indexgen expands GX primitives into indexed triangle, line and
// point lists.
package indexgen

import "github.com/gxvtx/gxvtx/internal/gx"

// Generator appends indices for vertices added since the last Reset. Index
// values are relative to the first vertex of the current batch.
type Generator struct {
	base    uint32
	indices []uint32
}

func (g *Generator) Reset() {
	g.base = 0
	g.indices = g.indices[:0]
}

// NumVerts returns the number of vertices consumed since Reset.
func (g *Generator) NumVerts() int { return int(g.base) }

// Indices returns the generated indices. The slice is reused after Reset.
func (g *Generator) Indices() []uint32 { return g.indices }

// AddIndices emits indices for count vertices of primitive p starting at the
// current base, then advances the base by count.
func (g *Generator) AddIndices(p gx.Primitive, count int) {
	b := g.base
	n := uint32(count)
	switch p {
	case gx.Quads, gx.Quads2:
		for i := uint32(0); i+3 < n; i += 4 {
			g.indices = append(g.indices, b+i, b+i+1, b+i+2, b+i, b+i+2, b+i+3)
		}
	case gx.Triangles:
		for i := uint32(0); i+2 < n; i += 3 {
			g.indices = append(g.indices, b+i, b+i+1, b+i+2)
		}
	case gx.TriangleStrip:
		for i := uint32(2); i < n; i++ {
			if i&1 == 0 {
				g.indices = append(g.indices, b+i-2, b+i-1, b+i)
			} else {
				g.indices = append(g.indices, b+i-1, b+i-2, b+i)
			}
		}
	case gx.TriangleFan:
		for i := uint32(2); i < n; i++ {
			g.indices = append(g.indices, b, b+i-1, b+i)
		}
	case gx.Lines:
		for i := uint32(0); i+1 < n; i += 2 {
			g.indices = append(g.indices, b+i, b+i+1)
		}
	case gx.LineStrip:
		for i := uint32(1); i < n; i++ {
			g.indices = append(g.indices, b+i-1, b+i)
		}
	case gx.Points:
		for i := range n {
			g.indices = append(g.indices, b+i)
		}
	}
	g.base += n
}

// IndicesFor returns how many indices AddIndices emits for count vertices.
func IndicesFor(p gx.Primitive, count int) int {
	switch p {
	case gx.Quads, gx.Quads2:
		return count / 4 * 6
	case gx.Triangles:
		return count / 3 * 3
	case gx.TriangleStrip, gx.TriangleFan:
		return max(count-2, 0) * 3
	case gx.Lines:
		return count / 2 * 2
	case gx.LineStrip:
		return max(count-1, 0) * 2
	default:
		return count
	}
}
