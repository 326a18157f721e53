// Package fifo decodes raw command processor streams and feeds register
// writes and draws into a vertex manager.
package fifo

import (
	"fmt"

	"github.com/gxvtx/gxvtx/internal/cpmem"
	"github.com/gxvtx/gxvtx/internal/gx"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/memmap"
	"github.com/gxvtx/gxvtx/internal/vertexloader"
	"github.com/gxvtx/gxvtx/internal/vertexmanager"
)

// Command opcodes.
const (
	OpNOP           = 0x00
	OpLoadCPReg     = 0x08
	OpLoadXFReg     = 0x10
	OpLoadIndxA     = 0x20
	OpLoadIndxB     = 0x28
	OpLoadIndxC     = 0x30
	OpLoadIndxD     = 0x38
	OpCallDL        = 0x40
	OpInvalidateVtx = 0x48
	OpLoadBPReg     = 0x61

	// OpDraw is the first draw opcode; bits 3-5 carry the primitive and
	// bits 0-2 the attribute group.
	OpDraw    = 0x80
	opDrawEnd = 0xBF
)

// Counts tallies decoded commands.
type Counts struct {
	Commands     int `json:"commands"`
	CPWrites     int `json:"cp_writes"`
	BPWrites     int `json:"bp_writes"`
	Draws        int `json:"draws"`
	DisplayLists int `json:"display_lists"`
}

type Options struct {
	Logger logger.Logger
	// Memory backs CALL_DL. Display lists fail with ErrDisplayList when nil.
	Memory memmap.Translator
	// SkipDrawing consumes draw data without decoding it.
	SkipDrawing bool
}

// Decoder is not safe for concurrent use; it shares the manager's goroutine.
type Decoder struct {
	m      *vertexmanager.Manager
	mem    memmap.Translator
	log    logger.Logger
	skip   bool
	inList bool
	counts Counts
}

func NewDecoder(m *vertexmanager.Manager, opts Options) *Decoder {
	d := &Decoder{m: m, mem: opts.Memory, log: opts.Logger, skip: opts.SkipDrawing}
	if d.log == nil {
		d.log = logger.Nop()
	}
	d.log = d.log.With("component", "fifo")
	return d
}

func (d *Decoder) Counts() Counts { return d.counts }

// SetMemory replaces the translator used for display lists.
func (d *Decoder) SetMemory(mem memmap.Translator) { d.mem = mem }

// Run decodes every command in data. It returns the number of bytes consumed,
// which on error is the offset of the failing command.
func (d *Decoder) Run(data []byte) (int, error) {
	r := vertexloader.NewDataReader(data)
	for r.Remaining() > 0 {
		start := r.Pos()
		op := r.U8()
		if err := d.step(op, r); err != nil {
			return start, &DecodeError{Offset: start, Opcode: op, InList: d.inList, Err: err}
		}
		d.counts.Commands++
	}
	return r.Pos(), nil
}

func (d *Decoder) step(op byte, r *vertexloader.DataReader) error {
	switch {
	case op == OpNOP, op == OpInvalidateVtx:
		return nil

	case op == OpLoadCPReg:
		if r.Remaining() < 5 {
			return ErrTruncated
		}
		cmd := uint32(r.U8())
		value := r.U32()
		if !validCPRegister(cmd) {
			return fmt.Errorf("%w: 0x%02x", ErrInvalidRegister, cmd)
		}
		d.m.ApplyRegisterWrite(cmd, value)
		d.counts.CPWrites++
		return nil

	case op == OpLoadXFReg:
		if r.Remaining() < 4 {
			return ErrTruncated
		}
		n := int(r.U32()>>16) + 1
		if r.Remaining() < 4*n {
			return ErrTruncated
		}
		r.Skip(4 * n)
		return nil

	case op == OpLoadIndxA, op == OpLoadIndxB, op == OpLoadIndxC, op == OpLoadIndxD:
		if r.Remaining() < 4 {
			return ErrTruncated
		}
		r.Skip(4)
		return nil

	case op == OpCallDL:
		if r.Remaining() < 8 {
			return ErrTruncated
		}
		addr := r.U32()
		size := r.U32()
		return d.callDisplayList(addr, size)

	case op == OpLoadBPReg:
		if r.Remaining() < 4 {
			return ErrTruncated
		}
		v := r.U32()
		d.m.LoadBPReg(uint8(v>>24), v&0xFFFFFF)
		d.counts.BPWrites++
		return nil

	case op >= OpDraw && op <= opDrawEnd:
		if r.Remaining() < 2 {
			return ErrTruncated
		}
		prim := gx.Primitive((op >> 3) & 7)
		group := int(op & 7)
		count := int(r.U16())
		if !d.m.ProcessVertices(group, prim, count, r, d.skip) {
			return fmt.Errorf("%w: %d %s vertices for group %d", ErrTruncated, count, prim, group)
		}
		d.counts.Draws++
		return nil
	}
	return ErrUnknownOpcode
}

// validCPRegister rejects attribute group writes the register file would
// refuse.
func validCPRegister(cmd uint32) bool {
	switch cmd & 0xF0 {
	case cpmem.RegVAT0, cpmem.RegVAT1, cpmem.RegVAT2:
		return cmd&0x0F < gx.NumVATGroups
	}
	return true
}

// callDisplayList runs size bytes at addr. Nested calls are ignored.
func (d *Decoder) callDisplayList(addr, size uint32) error {
	if d.inList {
		d.log.Warn("nested display list ignored", "addr", fmt.Sprintf("%#x", addr), "size", size)
		return nil
	}
	var buf []byte
	if d.mem != nil {
		buf = d.mem.Translate(addr)
	}
	if buf == nil || uint32(len(buf)) < size {
		return fmt.Errorf("%w: %#x+%#x", ErrDisplayList, addr, size)
	}

	d.inList = true
	defer func() { d.inList = false }()
	d.counts.DisplayLists++
	_, err := d.Run(buf[:size])
	return err
}
