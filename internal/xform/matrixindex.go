// Package xform tracks the transform unit's matrix index registers that are
// loaded through the CP register stream.
package xform

// Changes is a bitmask of matrix slots whose index changed since the last TakeChanges.
type Changes uint16

const (
	PosNormalChanged Changes = 1 << iota
	Tex0Changed
	Tex1Changed
	Tex2Changed
	Tex3Changed
	Tex4Changed
	Tex5Changed
	Tex6Changed
	Tex7Changed
)

// TexChanged returns the flag for texture matrix i.
func TexChanged(i int) Changes { return Tex0Changed << uint(i) }

// MatrixIndices holds MatrixIndexA (position/normal plus texture matrices
// 0-3) and MatrixIndexB (texture matrices 4-7). Each index is 6 bits.
type MatrixIndices struct {
	a, b    uint32
	changed Changes
}

func field(w uint32, i uint) uint32 { return (w >> (6 * i)) & 0x3F }

func (m *MatrixIndices) SetTexMatrixChangedA(value uint32) {
	if field(value, 0) != field(m.a, 0) {
		m.changed |= PosNormalChanged
	}
	for i := range uint(4) {
		if field(value, i+1) != field(m.a, i+1) {
			m.changed |= TexChanged(int(i))
		}
	}
	m.a = value
}

func (m *MatrixIndices) SetTexMatrixChangedB(value uint32) {
	for i := range uint(4) {
		if field(value, i) != field(m.b, i) {
			m.changed |= TexChanged(int(i) + 4)
		}
	}
	m.b = value
}

// PosNormalMatrix returns the position/normal matrix index.
func (m *MatrixIndices) PosNormalMatrix() uint32 { return field(m.a, 0) }

// TexMatrix returns the index of texture matrix i (0-7).
func (m *MatrixIndices) TexMatrix(i int) uint32 {
	if i < 4 {
		return field(m.a, uint(i)+1)
	}
	return field(m.b, uint(i)-4)
}

// TakeChanges returns and clears the pending change mask.
func (m *MatrixIndices) TakeChanges() Changes {
	c := m.changed
	m.changed = 0
	return c
}
