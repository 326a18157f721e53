package vertexloader

import "encoding/binary"

// DataReader is a big-endian cursor over command stream or array memory.
// Reads past the end return zero and leave the cursor at the end.
type DataReader struct {
	buf []byte
	pos int
}

func NewDataReader(buf []byte) *DataReader {
	return &DataReader{buf: buf}
}

func (r *DataReader) Pos() int { return r.pos }
func (r *DataReader) Remaining() int { return len(r.buf) - r.pos }

// Skip advances the cursor by n bytes, stopping at the end.
func (r *DataReader) Skip(n int) {
	r.pos = min(r.pos+n, len(r.buf))
}

func (r *DataReader) take(n int) []byte {
	if r.Remaining() < n {
		r.pos = len(r.buf)
		return nil
	}
	b := r.buf[r.pos : r.pos+n]
	r.pos += n
	return b
}

func (r *DataReader) U8() uint8 {
	b := r.take(1)
	if b == nil {
		return 0
	}
	return b[0]
}

func (r *DataReader) U16() uint16 {
	b := r.take(2)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint16(b)
}

// U24 reads a 24-bit big-endian value.
func (r *DataReader) U24() uint32 {
	b := r.take(3)
	if b == nil {
		return 0
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}

func (r *DataReader) U32() uint32 {
	b := r.take(4)
	if b == nil {
		return 0
	}
	return binary.BigEndian.Uint32(b)
}
