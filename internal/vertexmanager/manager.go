// Package vertexmanager ties the CP register file to the loader cache and
// drives decoded vertices into the batcher. A Manager is the explicit
// context for one emulated GPU and is owned by its command-processing
// goroutine.
package vertexmanager

import (
	"sync/atomic"

	"github.com/gxvtx/gxvtx/internal/batch"
	"github.com/gxvtx/gxvtx/internal/cpmem"
	"github.com/gxvtx/gxvtx/internal/gx"
	"github.com/gxvtx/gxvtx/internal/loadercache"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/memmap"
	"github.com/gxvtx/gxvtx/internal/stats"
	"github.com/gxvtx/gxvtx/internal/vertexloader"
	"github.com/gxvtx/gxvtx/internal/xform"
)

type Options struct {
	Logger logger.Logger
	Stats  *stats.Stats
	// Cache may be shared between managers. A private one is created if nil.
	Cache *loadercache.Cache
	// Backend receives flushed batches. Defaults to a batch.NullBackend.
	Backend batch.Backend
	Memory  memmap.Translator
	// Transform receives matrix index writes. Defaults to an xform.MatrixIndices.
	Transform cpmem.TransformSink
}

type Manager struct {
	log     logger.Logger
	stats   *stats.Stats
	cache   *loadercache.Cache
	batcher *batch.Batcher
	state   *cpmem.State
	xf      cpmem.TransformSink

	slots   [gx.NumVATGroups]*vertexloader.Loader
	current *vertexloader.NativeFormat
	genMode gx.GenMode

	memChanged atomic.Bool
}

// New builds a manager and runs Init.
func New(opts Options) *Manager {
	m := &Manager{
		log:   opts.Logger,
		stats: opts.Stats,
		cache: opts.Cache,
	}
	if m.log == nil {
		m.log = logger.Nop()
	}
	m.log = m.log.With("component", "vertexmanager")
	if m.stats == nil {
		m.stats = &stats.Stats{}
	}
	if m.cache == nil {
		m.cache = loadercache.New(loadercache.Options{Logger: m.log, Stats: m.stats})
	}
	backend := opts.Backend
	if backend == nil {
		backend = &batch.NullBackend{}
	}
	m.batcher = batch.New(backend, batch.Options{Logger: m.log, Stats: m.stats})
	m.xf = opts.Transform
	if m.xf == nil {
		m.xf = &xform.MatrixIndices{}
	}
	m.state = cpmem.New(opts.Memory, m.xf)
	m.Init()
	return m
}

// Init marks every group dirty, forgets the slot loaders and re-resolves the
// vertex array pointers.
func (m *Manager) Init() {
	m.state.MarkAllDirty()
	m.slots = [gx.NumVATGroups]*vertexloader.Loader{}
	m.state.RecomputeCachedArrayBases()
}

// Shutdown flushes pending geometry and releases every cached loader and
// native format. The manager can be reused after Init.
func (m *Manager) Shutdown() {
	m.batcher.Flush()
	m.cache.ClearAll()
	m.slots = [gx.NumVATGroups]*vertexloader.Loader{}
	m.current = nil
	m.batcher.SetFormat(nil)
	m.state.MarkAllDirty()
}

func (m *Manager) State() *cpmem.State { return m.state }
func (m *Manager) Cache() *loadercache.Cache { return m.cache }
func (m *Manager) Stats() *stats.Stats { return m.stats }
func (m *Manager) Batcher() *batch.Batcher { return m.batcher }
func (m *Manager) GenMode() gx.GenMode { return m.genMode }
func (m *Manager) CurrentFormat() *vertexloader.NativeFormat { return m.current }

// TakeMatrixChanges returns and clears the pending matrix index changes when
// the transform sink is the default MatrixIndices.
func (m *Manager) TakeMatrixChanges() xform.Changes {
	if mi, ok := m.xf.(*xform.MatrixIndices); ok {
		return mi.TakeChanges()
	}
	return 0
}

// Slot returns the loader currently cached for group g without refreshing it.
func (m *Manager) Slot(g int) *vertexloader.Loader { return m.slots[g] }

// NotifyMemoryChanged may be called from any goroutine when the memory
// mapping behind the vertex arrays changes. Array pointers are recomputed on
// the command goroutine before the next register write or draw.
func (m *Manager) NotifyMemoryChanged() { m.memChanged.Store(true) }

func (m *Manager) syncMemory() {
	if m.memChanged.Swap(false) {
		m.state.RecomputeCachedArrayBases()
		m.log.Debug("vertex array pointers recomputed")
	}
}

// SetMemory swaps the address translator used for vertex arrays.
func (m *Manager) SetMemory(mem memmap.Translator) {
	m.memChanged.Store(false)
	m.state.SetMemory(mem)
}

func (m *Manager) ApplyRegisterWrite(cmd, value uint32) {
	m.syncMemory()
	m.state.ApplyRegisterWrite(cmd, value)
}

// LoadBPReg handles the BP registers the vertex path depends on. Only
// GenMode is tracked; other registers are ignored.
func (m *Manager) LoadBPReg(reg uint8, value uint32) {
	if reg == gx.BPGenMode {
		m.genMode = gx.GenMode(value & 0xFFFFFF)
	}
}

func (m *Manager) SetCullMode(c gx.CullMode) { m.genMode = m.genMode.WithCullMode(c) }

// RefreshSlot returns the loader for group g, rebuilding the slot if a
// register write has made it stale. The dirty bit is cleared only after the
// slot has been updated.
func (m *Manager) RefreshSlot(g int) *vertexloader.Loader {
	if !m.state.IsDirty(g) {
		return m.slots[g]
	}
	key := vertexloader.NewKey(m.state.VtxDesc(), m.state.VtxAttr(g))
	l := m.cache.GetOrCreate(key)
	m.slots[g] = l
	m.state.ClearDirty(g)
	return l
}

// GroupKeys returns the loader key each group would use under the current
// registers, without touching the slots.
func (m *Manager) GroupKeys() []vertexloader.Key {
	keys := make([]vertexloader.Key, gx.NumVATGroups)
	for g := range keys {
		keys[g] = vertexloader.NewKey(m.state.VtxDesc(), m.state.VtxAttr(g))
	}
	return keys
}

// GetVertexSize returns the stream size of one vertex for group g.
func (m *Manager) GetVertexSize(g int) int {
	return m.RefreshSlot(g).VertexSize()
}

// ProcessVertices consumes count vertices of primitive p for group g from r.
// It returns false, consuming nothing, when r holds fewer than
// count*VertexSize bytes. Skipped and culled draws still advance r.
func (m *Manager) ProcessVertices(g int, p gx.Primitive, count int, r *vertexloader.DataReader, skipDrawing bool) bool {
	if count == 0 {
		return true
	}
	m.syncMemory()
	l := m.RefreshSlot(g)

	size := count * l.VertexSize()
	if r.Remaining() < size {
		return false
	}

	culled := m.genMode.CullMode() == gx.CullAll && p.IsFilled()
	if skipDrawing || culled {
		r.Skip(size)
		if culled {
			m.stats.NumCulled.Add(1)
		} else {
			m.stats.NumSkipped.Add(1)
		}
		return true
	}

	native := l.NativeFormat()
	if native != m.current {
		m.batcher.Flush()
		m.current = native
		m.batcher.SetFormat(native)
	}

	m.batcher.PrepareForAdditionalData(p, count, l.Declaration().Stride)
	err := m.batcher.Append(func(buf []byte) ([]byte, error) {
		return l.RunVertices(r, m.state, count, buf)
	})
	if err != nil {
		return false
	}
	m.batcher.AddIndices(p, count)

	m.stats.NumPrims.Add(int64(count))
	m.stats.NumPrimitiveJoins.Add(1)
	return true
}

// Flush submits any pending geometry.
func (m *Manager) Flush() { m.batcher.Flush() }
