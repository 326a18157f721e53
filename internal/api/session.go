package api

import (
	"sync"

	"github.com/google/uuid"

	"github.com/gxvtx/gxvtx/internal/batch"
	"github.com/gxvtx/gxvtx/internal/fifo"
	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/memmap"
	"github.com/gxvtx/gxvtx/internal/vertexmanager"
)

type SessionConfig struct {
	Logger  logger.Logger
	Memory  memmap.Translator
	Backend batch.Backend
}

// Session serialises HTTP requests onto one vertex manager, which is owned
// by whichever goroutine holds the lock.
type Session struct {
	mu      sync.Mutex
	id      uuid.UUID
	manager *vertexmanager.Manager
	decoder *fifo.Decoder
}

func NewSession(cfg SessionConfig) *Session {
	m := vertexmanager.New(vertexmanager.Options{
		Logger:  cfg.Logger,
		Backend: cfg.Backend,
		Memory:  cfg.Memory,
	})
	return &Session{
		id:      uuid.New(),
		manager: m,
		decoder: fifo.NewDecoder(m, fifo.Options{Logger: cfg.Logger, Memory: cfg.Memory}),
	}
}

// With runs fn while holding the session lock.
func (s *Session) With(fn func(m *vertexmanager.Manager, d *fifo.Decoder) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.manager, s.decoder)
}

func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Reset releases every loader, clears the frame counters and starts a new
// session ID. Register values are kept.
func (s *Session) Reset() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.manager.Shutdown()
	s.manager.Init()
	s.manager.Stats().ResetFrame()
	s.id = uuid.New()
	return s.id
}

// NotifyMemoryChanged is safe to call from a file watcher goroutine.
func (s *Session) NotifyMemoryChanged() {
	s.manager.NotifyMemoryChanged()
}
