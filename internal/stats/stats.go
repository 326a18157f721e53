// Package stats holds the vertex pipeline counters.
package stats

import "sync/atomic"

// Stats counters may be bumped from any goroutine. NumVertexLoaders is
// process-wide; the rest are per frame and cleared by ResetFrame.
type Stats struct {
	NumVertexLoaders atomic.Int64

	NumPrims          atomic.Int64
	NumPrimitiveJoins atomic.Int64
	NumDrawCalls      atomic.Int64
	NumSkipped        atomic.Int64
	NumCulled         atomic.Int64
}

func (s *Stats) ResetFrame() {
	s.NumPrims.Store(0)
	s.NumPrimitiveJoins.Store(0)
	s.NumDrawCalls.Store(0)
	s.NumSkipped.Store(0)
	s.NumCulled.Store(0)
}

type Snapshot struct {
	NumVertexLoaders  int64 `json:"num_vertex_loaders"`
	NumPrims          int64 `json:"num_prims"`
	NumPrimitiveJoins int64 `json:"num_primitive_joins"`
	NumDrawCalls      int64 `json:"num_draw_calls"`
	NumSkipped        int64 `json:"num_skipped"`
	NumCulled         int64 `json:"num_culled"`
}

func (s *Stats) Snapshot() Snapshot {
	return Snapshot{
		NumVertexLoaders:  s.NumVertexLoaders.Load(),
		NumPrims:          s.NumPrims.Load(),
		NumPrimitiveJoins: s.NumPrimitiveJoins.Load(),
		NumDrawCalls:      s.NumDrawCalls.Load(),
		NumSkipped:        s.NumSkipped.Load(),
		NumCulled:         s.NumCulled.Load(),
	}
}
