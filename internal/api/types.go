package api

import (
	"github.com/gxvtx/gxvtx/internal/fifo"
	"github.com/gxvtx/gxvtx/internal/stats"
)

type ErrorInfo struct {
	Message string `json:"message,omitempty"`
	Type    string `json:"type,omitempty"`
	Param   string `json:"param,omitempty"`
	Offset  *int   `json:"offset,omitempty"`
}

type FIFOResponse struct {
	SessionID string         `json:"session_id"`
	Consumed  int            `json:"consumed"`
	Counts    fifo.Counts    `json:"counts"`
	Stats     stats.Snapshot `json:"stats"`
}

type LoaderInfo struct {
	Hash           string `json:"hash"`
	Key            string `json:"key"`
	Description    string `json:"description"`
	VertexSize     int    `json:"vertex_size"`
	NativeStride   int    `json:"native_stride"`
	FormatID       int    `json:"format_id"`
	NumLoadedVerts uint64 `json:"num_loaded_verts"`
}

type LoaderList struct {
	Object string       `json:"object"`
	Data   []LoaderInfo `json:"data"`
}

type StatsResponse struct {
	SessionID     string         `json:"session_id"`
	Loaders       int            `json:"loaders"`
	Formats       int            `json:"formats"`
	DirtyMask     uint8          `json:"dirty_mask"`
	// MatrixChanges is the xform.Changes mask accumulated since the last stats call.
	MatrixChanges uint16         `json:"matrix_changes"`
	Stats         stats.Snapshot `json:"stats"`
}

type ResetResponse struct {
	SessionID string `json:"session_id"`
	Reset     bool   `json:"reset"`
}
