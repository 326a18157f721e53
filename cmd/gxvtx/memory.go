package main

import (
	"fmt"

	"github.com/gxvtx/gxvtx/internal/logger"
	"github.com/gxvtx/gxvtx/internal/memmap"
)

// memory is the emulated RAM behind vertex arrays and display lists: either
// a RAM image from disk or a zeroed heap buffer.
type memory struct {
	translator memmap.Translator
	reloadable *memmap.Reloadable
}

// openMemory opens the configured RAM. An image that will be watched is read
// into the heap, since a mapping of a file rewritten in place is not safe to
// keep reading.
func openMemory(log logger.Logger, watched bool) (*memory, error) {
	if ramImage == "" {
		if ramSize <= 0 || ramSize > memmap.AddressMask+1 {
			return nil, fmt.Errorf("invalid --ram-size %d", ramSize)
		}
		return &memory{translator: memmap.NewRAM(int(ramSize))}, nil
	}

	open := memmap.OpenImage
	if watched {
		open = memmap.LoadImage
	}
	img, err := open(ramImage)
	if err != nil {
		return nil, fmt.Errorf("open RAM image: %w", err)
	}
	log.Info("RAM image opened", "path", ramImage, "size", img.Size(), "mmapped", img.Mapped())
	r := memmap.NewReloadable(img)
	return &memory{translator: r, reloadable: r}, nil
}

// watch reloads the image on change and calls onReload afterwards. It is a
// no-op for heap RAM.
func (m *memory) watch(log logger.Logger, onReload func()) (*memmap.Watcher, error) {
	if m.reloadable == nil {
		return nil, nil
	}
	return memmap.Watch(ramImage, m.reloadable, onReload, log)
}

func (m *memory) Close() error {
	if m.reloadable == nil {
		return nil
	}
	return m.reloadable.Close()
}
