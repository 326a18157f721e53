// Package memmap resolves emulated physical addresses to host memory.
package memmap

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// AddressMask strips the cached/uncached segment bits from an effective address.
const AddressMask = 0x3FFFFFFF

var (
	ErrEmptyImage   = errors.New("memmap: empty RAM image")
	ErrImageTooLong = errors.New("memmap: RAM image too large")
	ErrMappedImage  = errors.New("memmap: mmapped RAM image cannot be watched")
)

// Translator resolves an emulated address to the host bytes starting there.
// It returns nil when the address is not backed by memory.
type Translator interface {
	Translate(addr uint32) []byte
}

// RAM is a heap-backed memory region.
type RAM struct {
	data []byte
}

func NewRAM(size int) *RAM {
	return &RAM{data: make([]byte, size)}
}

func (r *RAM) Translate(addr uint32) []byte {
	return translate(r.data, addr)
}

// Write copies b into RAM at addr. Writes past the end are truncated.
func (r *RAM) Write(addr uint32, b []byte) int {
	dst := r.Translate(addr)
	return copy(dst, b)
}

func (r *RAM) Size() int { return len(r.data) }

func translate(data []byte, addr uint32) []byte {
	off := int(addr & AddressMask)
	if off >= len(data) {
		return nil
	}
	return data[off:]
}

// Image is a RAM dump loaded from disk.
type Image struct {
	data    []byte
	mmapped bool
}

// OpenImage maps a RAM dump read-only. If mmap is unavailable it falls back
// to reading the file into memory. The image must be closed to release the
// mapping, and no slice obtained from Translate may be used afterwards.
func OpenImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	size, err := imageSize(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		return &Image{data: data, mmapped: true}, nil
	}

	data, err = readAllAt(f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Image{data: data}, nil
}

// LoadImage reads a RAM dump into heap memory.
func LoadImage(path string) (*Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	size, err := imageSize(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	data, err := readAllAt(f, size)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &Image{data: data}, nil
}

func imageSize(f *os.File) (int, error) {
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	size := st.Size()
	if size <= 0 {
		return 0, ErrEmptyImage
	}
	if size > AddressMask+1 {
		return 0, ErrImageTooLong
	}
	return int(size), nil
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

func (m *Image) Translate(addr uint32) []byte {
	return translate(m.data, addr)
}

func (m *Image) Size() int { return len(m.data) }

// Mapped reports whether the image is backed by an mmap.
func (m *Image) Mapped() bool { return m.mmapped }

func (m *Image) Close() error {
	if !m.mmapped || m.data == nil {
		m.data = nil
		return nil
	}
	err := unix.Munmap(m.data)
	m.data = nil
	m.mmapped = false
	return err
}

// Reloadable is a Translator whose backing image can be replaced while in use.
// Replaced images are kept until Close, so slices handed out earlier remain
// readable. Only heap images should be swapped under a file watch: a mapped
// file that is truncated in place faults on pages past its new end.
type Reloadable struct {
	cur     atomic.Pointer[Image]
	mu      sync.Mutex
	retired []*Image
}

func NewReloadable(img *Image) *Reloadable {
	r := &Reloadable{}
	r.cur.Store(img)
	return r
}

func (r *Reloadable) Translate(addr uint32) []byte {
	img := r.cur.Load()
	if img == nil {
		return nil
	}
	return img.Translate(addr)
}

// Mapped reports whether the current image is an mmapped file.
func (r *Reloadable) Mapped() bool {
	img := r.cur.Load()
	return img != nil && img.Mapped()
}

// Swap installs img and retires the previous image.
func (r *Reloadable) Swap(img *Image) {
	old := r.cur.Swap(img)
	if old == nil {
		return
	}
	r.mu.Lock()
	r.retired = append(r.retired, old)
	r.mu.Unlock()
}

func (r *Reloadable) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	if img := r.cur.Swap(nil); img != nil {
		errs = append(errs, img.Close())
	}
	for _, img := range r.retired {
		errs = append(errs, img.Close())
	}
	r.retired = nil
	return errors.Join(errs...)
}
