package snapshot

import (
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gxvtx/gxvtx/internal/cpmem"
)

func randomState(seed uint64) *cpmem.State {
	rng := rand.New(rand.NewPCG(seed, seed^0x9E3779B9))
	s := cpmem.New(nil, nil)
	for _, reg := range cpmem.SerializedRegisters() {
		s.ApplyRegisterWrite(reg, rng.Uint32())
	}
	return s
}

func TestCaptureRestoreRoundTrip(t *testing.T) {
	for seed := range uint64(16) {
		src := randomState(seed)
		snap := Capture(src)
		assert.NotEqual(t, uuid.Nil, snap.ID)

		dst := cpmem.New(nil, nil)
		dst.ClearDirty(0)
		snap.Restore(dst)

		var again Registers
		dst.SerializeRegisters(again[:])
		assert.Equal(t, snap.Registers, again)
		assert.Equal(t, src.VtxDesc(), dst.VtxDesc())
		assert.Equal(t, uint8(cpmem.AllDirty), dst.DirtyMask())
	}
}

func TestRegistersJSONIsSparse(t *testing.T) {
	var r Registers
	r[cpmem.RegVtxDescLow] = 0x1
	r[cpmem.RegVAT0+3] = 0x2

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"0x50":1,"0x73":2}`, string(data))

	var back Registers
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
}

func TestRegistersJSONRejectsBadOffsets(t *testing.T) {
	var r Registers
	err := json.Unmarshal([]byte(`{"0x100":1}`), &r)
	assert.ErrorIs(t, err, ErrBadRegister)

	err = json.Unmarshal([]byte(`{"vat":1}`), &r)
	assert.Error(t, err)
}

func TestSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	snap := Capture(randomState(7))
	require.NoError(t, snap.Save(path))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, snap.ID, got.ID)
	assert.True(t, snap.CreatedAt.Equal(got.CreatedAt))
	assert.Equal(t, snap.Registers, got.Registers)
}

func TestLoadCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), path)
}
