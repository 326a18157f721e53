package batch

import (
	"slices"

	"github.com/gxvtx/gxvtx/internal/vertexloader"
)

// NullBackend only counts what it is given.
type NullBackend struct {
	Draws    int
	Vertices int
	Indices  int
}

func (n *NullBackend) Draw(b Batch) error {
	n.Draws++
	n.Vertices += b.NumVerts
	n.Indices += len(b.Indices)
	return nil
}

// RecordingBackend keeps a copy of every batch.
type RecordingBackend struct {
	Batches []Batch
}

func (r *RecordingBackend) Draw(b Batch) error {
	b.Vertices = slices.Clone(b.Vertices)
	b.Indices = slices.Clone(b.Indices)
	r.Batches = append(r.Batches, b)
	return nil
}

// Formats returns the format of each recorded batch in order.
func (r *RecordingBackend) Formats() []*vertexloader.NativeFormat {
	out := make([]*vertexloader.NativeFormat, len(r.Batches))
	for i, b := range r.Batches {
		out[i] = b.Format
	}
	return out
}
