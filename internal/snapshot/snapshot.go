// Package snapshot saves and restores the CP register file as JSON.
package snapshot

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/gxvtx/gxvtx/internal/cpmem"
)

var ErrBadRegister = errors.New("snapshot: register offset out of range")

// Registers is a register file dump indexed by register offset. In JSON it is
// a sparse object keyed by hex offset; zero registers are omitted.
type Registers [cpmem.RegisterFileSize]uint32

type Snapshot struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Registers Registers `json:"registers"`
}

// Serializer is implemented by cpmem.State.
type Serializer interface {
	SerializeRegisters(mem []uint32)
}

// RegisterWriter is implemented by cpmem.State and vertexmanager.Manager.
type RegisterWriter interface {
	ApplyRegisterWrite(cmd, value uint32)
}

func Capture(s Serializer) Snapshot {
	snap := Snapshot{ID: uuid.New(), CreatedAt: time.Now().UTC()}
	s.SerializeRegisters(snap.Registers[:])
	return snap
}

// Restore replays the dump as register writes in ascending offset order.
func (s Snapshot) Restore(w RegisterWriter) {
	for _, reg := range cpmem.SerializedRegisters() {
		w.ApplyRegisterWrite(reg, s.Registers[reg])
	}
}

func (r Registers) MarshalJSON() ([]byte, error) {
	m := make(map[string]uint32)
	for reg, v := range r {
		if v != 0 {
			m[fmt.Sprintf("0x%02x", reg)] = v
		}
	}
	return json.Marshal(m)
}

func (r *Registers) UnmarshalJSON(data []byte) error {
	var m map[string]uint32
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*r = Registers{}
	for k, v := range m {
		reg, err := strconv.ParseUint(k, 0, 32)
		if err != nil {
			return fmt.Errorf("snapshot: register %q: %w", k, err)
		}
		if reg >= cpmem.RegisterFileSize {
			return fmt.Errorf("%w: %s", ErrBadRegister, k)
		}
		r[reg] = v
	}
	return nil
}

func (s Snapshot) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func Load(path string) (Snapshot, error) {
	var s Snapshot
	data, err := os.ReadFile(path)
	if err != nil {
		return s, err
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return s, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}
