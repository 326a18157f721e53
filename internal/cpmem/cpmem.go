// Package cpmem is the command-processor register file: the vertex descriptor,
// the eight attribute groups and the vertex array tables, plus the dirty mask
// that tells the vertex manager which cached loaders are stale.
package cpmem

import (
	"fmt"

	"github.com/gxvtx/gxvtx/internal/gx"
	"github.com/gxvtx/gxvtx/internal/memmap"
)

// Register bases. The low nibble of a command selects the group or array.
const (
	RegMatrixIndexA = 0x30
	RegMatrixIndexB = 0x40
	RegVtxDescLow   = 0x50
	RegVtxDescHigh  = 0x60
	RegVAT0         = 0x70
	RegVAT1         = 0x80
	RegVAT2         = 0x90
	RegArrayBase    = 0xA0
	RegArrayStride  = 0xB0
)

// RegisterFileSize is the number of 32-bit slots SerializeRegisters writes into.
const RegisterFileSize = 0x100

// AllDirty marks every attribute group stale.
const AllDirty = 0xFF

// TransformSink receives the matrix index registers, which belong to the
// transform unit but arrive through the CP register stream.
type TransformSink interface {
	SetTexMatrixChangedA(value uint32)
	SetTexMatrixChangedB(value uint32)
}

// State is owned by the command-processing goroutine. None of its methods
// are safe for concurrent use.
type State struct {
	matrixIndexA uint32
	matrixIndexB uint32
	vtxDesc      gx.VtxDesc
	vtxAttr      [gx.NumVATGroups]gx.VAT
	arrayBases   [gx.NumArrays]uint32
	arrayStrides [gx.NumArrays]uint32

	// Host views of arrayBases, recomputed whenever a base or the memory
	// mapping changes.
	cachedArrayBases [gx.NumArrays][]byte

	dirty uint8

	mem memmap.Translator
	xf  TransformSink
}

// New returns a zeroed register file with every group dirty. mem and xf may be nil.
func New(mem memmap.Translator, xf TransformSink) *State {
	s := &State{mem: mem, xf: xf}
	s.MarkAllDirty()
	return s
}

// SetMemory replaces the address translator and recomputes array pointers.
func (s *State) SetMemory(mem memmap.Translator) {
	s.mem = mem
	s.RecomputeCachedArrayBases()
}

// ApplyRegisterWrite decodes one CP register write. Unknown registers are
// ignored. Attribute group writes with a group nibble of 8 or more panic.
func (s *State) ApplyRegisterWrite(cmd, value uint32) {
	switch cmd & 0xF0 {
	case RegMatrixIndexA:
		s.matrixIndexA = value
		if s.xf != nil {
			s.xf.SetTexMatrixChangedA(value)
		}

	case RegMatrixIndexB:
		s.matrixIndexB = value
		if s.xf != nil {
			s.xf.SetTexMatrixChangedB(value)
		}

	case RegVtxDescLow:
		s.vtxDesc = s.vtxDesc.WithLow(value)
		s.dirty = AllDirty

	case RegVtxDescHigh:
		s.vtxDesc = s.vtxDesc.WithHigh(value)
		s.dirty = AllDirty

	case RegVAT0:
		g := vatGroup(cmd)
		s.vtxAttr[g].G0 = value
		s.dirty |= 1 << g

	case RegVAT1:
		g := vatGroup(cmd)
		s.vtxAttr[g].G1 = value
		s.dirty |= 1 << g

	case RegVAT2:
		g := vatGroup(cmd)
		s.vtxAttr[g].G2 = value
		s.dirty |= 1 << g

	case RegArrayBase:
		i := cmd & 0xF
		s.arrayBases[i] = value
		s.cachedArrayBases[i] = s.translate(value)

	case RegArrayStride:
		s.arrayStrides[cmd&0xF] = value & 0xFF
	}
}

func vatGroup(cmd uint32) uint32 {
	g := cmd & 0x0F
	if g >= gx.NumVATGroups {
		panic(fmt.Sprintf("cpmem: attribute group register %#x out of range", cmd))
	}
	return g
}

// SerializeRegisters dumps the register file into mem at the register
// offsets. It is the inverse of ApplyRegisterWrite; derived array pointers
// are not stored.
func (s *State) SerializeRegisters(mem []uint32) {
	if len(mem) < RegisterFileSize {
		panic(fmt.Sprintf("cpmem: register buffer has %d slots, need %d", len(mem), RegisterFileSize))
	}
	mem[RegMatrixIndexA] = s.matrixIndexA
	mem[RegMatrixIndexB] = s.matrixIndexB
	mem[RegVtxDescLow] = s.vtxDesc.Low()
	mem[RegVtxDescHigh] = s.vtxDesc.High()

	for g := range gx.NumVATGroups {
		mem[RegVAT0+g] = s.vtxAttr[g].G0
		mem[RegVAT1+g] = s.vtxAttr[g].G1
		mem[RegVAT2+g] = s.vtxAttr[g].G2
	}
	for i := range gx.NumArrays {
		mem[RegArrayBase+i] = s.arrayBases[i]
		mem[RegArrayStride+i] = s.arrayStrides[i]
	}
}

// RestoreRegisters feeds a SerializeRegisters dump back through
// ApplyRegisterWrite, in register order.
func (s *State) RestoreRegisters(mem []uint32) {
	if len(mem) < RegisterFileSize {
		panic(fmt.Sprintf("cpmem: register buffer has %d slots, need %d", len(mem), RegisterFileSize))
	}
	for _, reg := range SerializedRegisters() {
		s.ApplyRegisterWrite(reg, mem[reg])
	}
}

// SerializedRegisters lists the offsets SerializeRegisters writes, ascending.
func SerializedRegisters() []uint32 {
	regs := []uint32{RegMatrixIndexA, RegMatrixIndexB, RegVtxDescLow, RegVtxDescHigh}
	for _, base := range []uint32{RegVAT0, RegVAT1, RegVAT2} {
		for g := range uint32(gx.NumVATGroups) {
			regs = append(regs, base+g)
		}
	}
	for _, base := range []uint32{RegArrayBase, RegArrayStride} {
		for i := range uint32(gx.NumArrays) {
			regs = append(regs, base+i)
		}
	}
	return regs
}

// RecomputeCachedArrayBases re-resolves every array pointer from its base.
func (s *State) RecomputeCachedArrayBases() {
	for i, base := range s.arrayBases {
		s.cachedArrayBases[i] = s.translate(base)
	}
}

func (s *State) translate(addr uint32) []byte {
	if s.mem == nil {
		return nil
	}
	return s.mem.Translate(addr)
}

// MarkAllDirty forces every attribute group to be re-resolved.
func (s *State) MarkAllDirty() { s.dirty = AllDirty }

// IsDirty reports whether group g needs a loader lookup.
func (s *State) IsDirty(g int) bool { return s.dirty>>uint(g)&1 != 0 }

// DirtyMask returns one bit per attribute group, bit g for group g.
func (s *State) DirtyMask() uint8 { return s.dirty }

// ClearDirty marks group g as resolved.
func (s *State) ClearDirty(g int) { s.dirty &^= 1 << uint(g) }

// VtxDesc returns the descriptor assembled from both halves.
func (s *State) VtxDesc() gx.VtxDesc { return s.vtxDesc }

// VtxAttr returns attribute group g. It panics if g is out of range.
func (s *State) VtxAttr(g int) gx.VAT { return s.vtxAttr[g] }

// MatrixIndexA and MatrixIndexB return the raw default matrix index registers.
func (s *State) MatrixIndexA() uint32 { return s.matrixIndexA }
func (s *State) MatrixIndexB() uint32 { return s.matrixIndexB }

// ArrayBaseAddr returns the emulated base address of array i.
func (s *State) ArrayBaseAddr(i int) uint32 { return s.arrayBases[i] }

// ArrayBase returns the host bytes of array i, or nil if unmapped.
func (s *State) ArrayBase(i int) []byte { return s.cachedArrayBases[i] }

// ArrayStride returns the byte stride of array i.
func (s *State) ArrayStride(i int) uint32 { return s.arrayStrides[i] }
