// Package batch accumulates decoded vertices and indices that share one
// native format and primitive class, and hands them to a Backend on flush.
package batch

import (
	"github.com/gxvtx/gxvtx/internal/gx"
	"github.com/gxvtx/gxvtx/internal/indexgen"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/stats"
	"github.com/gxvtx/gxvtx/internal/vertexloader"
)

// Default buffer limits, in bytes of native vertex data and in indices.
const (
	DefaultMaxVertexBytes = 4 << 20
	DefaultMaxIndices     = 1 << 18
)

// Batch is one flushed draw. Slices are only valid during Backend.Draw.
type Batch struct {
	Format   *vertexloader.NativeFormat
	Class    gx.PrimitiveClass
	Vertices []byte
	Indices  []uint32
	NumVerts int
}

type Backend interface {
	Draw(b Batch) error
}

type Options struct {
	Logger         logger.Logger
	Stats          *stats.Stats
	MaxVertexBytes int
	MaxIndices     int
}

// Batcher is owned by the command-processing goroutine.
type Batcher struct {
	backend        Backend
	log            logger.Logger
	stats          *stats.Stats
	maxVertexBytes int
	maxIndices     int

	format   *vertexloader.NativeFormat
	class    gx.PrimitiveClass
	vertices []byte
	gen      indexgen.Generator
	flushes  int
}

func New(backend Backend, opts Options) *Batcher {
	b := &Batcher{
		backend:        backend,
		log:            opts.Logger,
		stats:          opts.Stats,
		maxVertexBytes: opts.MaxVertexBytes,
		maxIndices:     opts.MaxIndices,
	}
	if b.log == nil {
		b.log = logger.Nop()
	}
	if b.maxVertexBytes <= 0 {
		b.maxVertexBytes = DefaultMaxVertexBytes
	}
	if b.maxIndices <= 0 {
		b.maxIndices = DefaultMaxIndices
	}
	return b
}

// SetFormat sets the format of vertices appended from now on. Callers flush
// first when the format changes.
func (b *Batcher) SetFormat(f *vertexloader.NativeFormat) { b.format = f }

func (b *Batcher) Format() *vertexloader.NativeFormat { return b.format }

// Empty reports whether no vertices are pending.
func (b *Batcher) Empty() bool { return b.gen.NumVerts() == 0 }

// PrepareForAdditionalData makes room for count vertices of primitive p with
// the given native stride, flushing if the primitive class changes or the
// buffers would overflow.
func (b *Batcher) PrepareForAdditionalData(p gx.Primitive, count, stride int) {
	class := p.Class()
	switch {
	case b.Empty():
	case class != b.class:
		b.Flush()
	case len(b.vertices)+count*stride > b.maxVertexBytes,
		len(b.gen.Indices())+indexgen.IndicesFor(p, count) > b.maxIndices:
		b.Flush()
	}
	b.class = class
}

// Append lets fn decode vertices onto the pending buffer.
func (b *Batcher) Append(fn func(buf []byte) ([]byte, error)) error {
	out, err := fn(b.vertices)
	if err != nil {
		return err
	}
	b.vertices = out
	return nil
}

func (b *Batcher) AddIndices(p gx.Primitive, count int) {
	b.gen.AddIndices(p, count)
}

// Flush submits pending geometry. Backend errors are logged and the batch is
// dropped; the stream position is unaffected.
func (b *Batcher) Flush() {
	if b.Empty() {
		return
	}
	batch := Batch{
		Format:   b.format,
		Class:    b.class,
		Vertices: b.vertices,
		Indices:  b.gen.Indices(),
		NumVerts: b.gen.NumVerts(),
	}
	if err := b.backend.Draw(batch); err != nil {
		b.log.Warn("backend draw failed", "error", err, "verts", batch.NumVerts)
	}
	if b.stats != nil {
		b.stats.NumDrawCalls.Add(1)
	}
	b.flushes++
	b.vertices = b.vertices[:0]
	b.gen.Reset()
}

// Flushes returns the number of non-empty flushes so far.
func (b *Batcher) Flushes() int { return b.flushes }
