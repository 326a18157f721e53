// Package api serves an HTTP inspection interface over one vertex pipeline
// session.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/labstack/echo/v5"

	"github.com/gxvtx/gxvtx/internal/cpmem"
	"github.com/gxvtx/gxvtx/internal/fifo"
	"github.com/gxvtx/gxvtx/internal/snapshot"
	"github.com/gxvtx/gxvtx/internal/vertexmanager"
)

// MaxFIFOBytes bounds a POST /v1/fifo body.
const MaxFIFOBytes = 64 << 20

type Server struct {
	session *Session
}

func NewServer(session *Session) *Server {
	if session == nil {
		session = NewSession(SessionConfig{})
	}
	return &Server{session: session}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/fifo", s.handleFIFO)
	e.GET("/v1/registers", s.handleGetRegisters)
	e.PUT("/v1/registers", s.handlePutRegisters)
	e.GET("/v1/loaders", s.handleLoaders)
	e.GET("/v1/stats", s.handleStats)
	e.POST("/v1/reset", s.handleReset)
}

func (s *Server) handleFIFO(c *echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, MaxFIFOBytes+1))
	if err != nil {
		return writeBadRequest(c, err.Error())
	}
	if len(data) > MaxFIFOBytes {
		return writeError(c, http.StatusRequestEntityTooLarge, "invalid_request_error",
			fmt.Sprintf("fifo body exceeds %d bytes", MaxFIFOBytes), nil)
	}

	var resp FIFOResponse
	var decodeErr error
	_ = s.session.With(func(m *vertexmanager.Manager, d *fifo.Decoder) error {
		resp.Consumed, decodeErr = d.Run(data)
		m.Flush()
		resp.Counts = d.Counts()
		resp.Stats = m.Stats().Snapshot()
		return nil
	})
	resp.SessionID = s.session.ID().String()

	if decodeErr != nil {
		offset := resp.Consumed
		return writeError(c, http.StatusUnprocessableEntity, "decode_error", decodeErr.Error(), &offset)
	}
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleGetRegisters(c *echo.Context) error {
	var snap snapshot.Snapshot
	_ = s.session.With(func(m *vertexmanager.Manager, _ *fifo.Decoder) error {
		snap = snapshot.Capture(m.State())
		return nil
	})
	return c.JSON(http.StatusOK, snap)
}

func (s *Server) handlePutRegisters(c *echo.Context) error {
	snap, err := decodeJSON[snapshot.Snapshot](c.Request().Body)
	if errors.Is(err, snapshot.ErrBadRegister) {
		err = newInvalidRequest("registers", err.Error())
	}
	if err != nil {
		return writeRequestError(c, err)
	}
	if err := validateSnapshot(snap); err != nil {
		return writeRequestError(c, err)
	}

	var out snapshot.Snapshot
	_ = s.session.With(func(m *vertexmanager.Manager, _ *fifo.Decoder) error {
		m.Flush()
		snap.Restore(m)
		out = snapshot.Capture(m.State())
		return nil
	})
	return c.JSON(http.StatusOK, out)
}

// validateSnapshot rejects values the register file would silently drop.
func validateSnapshot(snap snapshot.Snapshot) error {
	serialized := make(map[uint32]bool)
	for _, reg := range cpmem.SerializedRegisters() {
		serialized[reg] = true
	}
	for reg, v := range snap.Registers {
		if v != 0 && !serialized[uint32(reg)] {
			return newInvalidRequest("registers", fmt.Sprintf("register 0x%02x is not part of the CP register file", reg))
		}
	}
	return nil
}

func (s *Server) handleLoaders(c *echo.Context) error {
	out := LoaderList{Object: "list", Data: []LoaderInfo{}}
	_ = s.session.With(func(m *vertexmanager.Manager, _ *fifo.Decoder) error {
		for _, l := range m.Cache().List() {
			var sb strings.Builder
			l.AppendToString(&sb)
			out.Data = append(out.Data, LoaderInfo{
				Hash:           fmt.Sprintf("%016x", l.Key().Hash()),
				Key:            l.Key().String(),
				Description:    strings.TrimSpace(sb.String()),
				VertexSize:     l.VertexSize(),
				NativeStride:   l.Declaration().Stride,
				FormatID:       l.NativeFormat().ID,
				NumLoadedVerts: l.NumLoadedVerts(),
			})
		}
		return nil
	})
	return c.JSON(http.StatusOK, out)
}

func (s *Server) handleStats(c *echo.Context) error {
	var resp StatsResponse
	_ = s.session.With(func(m *vertexmanager.Manager, _ *fifo.Decoder) error {
		resp = StatsResponse{
			Loaders:       m.Cache().Len(),
			Formats:       m.Cache().Formats().Len(),
			DirtyMask:     m.State().DirtyMask(),
			MatrixChanges: uint16(m.TakeMatrixChanges()),
			Stats:         m.Stats().Snapshot(),
		}
		return nil
	})
	resp.SessionID = s.session.ID().String()
	return c.JSON(http.StatusOK, resp)
}

func (s *Server) handleReset(c *echo.Context) error {
	id := s.session.Reset()
	return c.JSON(http.StatusOK, ResetResponse{SessionID: id.String(), Reset: true})
}

func writeBadRequest(c *echo.Context, msg string) error {
	return writeError(c, http.StatusBadRequest, "invalid_request_error", msg, nil)
}

func writeError(c *echo.Context, status int, errType, msg string, offset *int) error {
	return c.JSON(status, map[string]any{
		"error": ErrorInfo{
			Message: msg,
			Type:    errType,
			Offset:  offset,
		},
	})
}

func decodeJSON[T any](r io.Reader) (T, error) {
	var out T
	dec := json.NewDecoder(r)
	if err := dec.Decode(&out); err != nil {
		if errors.Is(err, io.EOF) {
			return out, newInvalidRequest("", "request body is empty")
		}
		return out, err
	}
	return out, nil
}
