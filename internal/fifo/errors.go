package fifo

import (
	"errors"
	"fmt"
)

var (
	ErrTruncated       = errors.New("fifo: command truncated")
	ErrUnknownOpcode   = errors.New("fifo: unknown opcode")
	ErrInvalidRegister = errors.New("fifo: invalid CP register")
	ErrDisplayList     = errors.New("fifo: display list not in memory")
)

// DecodeError locates a failed command in the stream. For commands inside a
// display list, Offset is relative to the list start and InList is set.
type DecodeError struct {
	Offset int
	Opcode byte
	InList bool
	Err    error
}

func (e *DecodeError) Error() string {
	where := "stream"
	if e.InList {
		where = "display list"
	}
	return fmt.Sprintf("%s offset %#x opcode 0x%02x: %v", where, e.Offset, e.Opcode, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }
