package vertexloader

import (
	"fmt"
	"strings"
	"sync"
)

// Output component sizes of the native layout.
const (
	posMtxSize   = 4  // u32
	positionSize = 12 // f32 x3
	normalSize   = 12 // f32 x3
	colorSize    = 4  // RGBA8
	texCoordSize = 4  // per f32 component
)

// AttributeFormat places one attribute in a native vertex. Components is
// zero when the attribute is absent.
type AttributeFormat struct {
	Components int
	Offset     int
}

func (a AttributeFormat) Present() bool { return a.Components > 0 }

// Declaration is the native vertex layout a loader produces. It is
// comparable and used as the format cache key.
type Declaration struct {
	Stride    int
	PosMtx    AttributeFormat
	Position  AttributeFormat
	Normals   [3]AttributeFormat
	Colors    [2]AttributeFormat
	TexCoords [8]AttributeFormat
}

func (d Declaration) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "stride=%d", d.Stride)
	if d.PosMtx.Present() {
		sb.WriteString(" posmtx")
	}
	fmt.Fprintf(&sb, " pos@%d", d.Position.Offset)
	for i, n := range d.Normals {
		if n.Present() {
			fmt.Fprintf(&sb, " n%d@%d", i, n.Offset)
		}
	}
	for i, c := range d.Colors {
		if c.Present() {
			fmt.Fprintf(&sb, " c%d@%d", i, c.Offset)
		}
	}
	for i, tc := range d.TexCoords {
		if tc.Present() {
			fmt.Fprintf(&sb, " t%d:%d@%d", i, tc.Components, tc.Offset)
		}
	}
	return sb.String()
}

// NativeFormat is a shared handle for one Declaration. Pointer identity is
// meaningful: two loaders with equal declarations get the same *NativeFormat,
// so a pointer comparison tells whether the batcher must flush.
type NativeFormat struct {
	Decl Declaration
	ID   int
}

func (f *NativeFormat) String() string {
	return fmt.Sprintf("format#%d{%s}", f.ID, f.Decl)
}

// FormatCache deduplicates native formats. It is safe for concurrent use.
type FormatCache struct {
	mu      sync.Mutex
	formats map[Declaration]*NativeFormat
	nextID  int
}

func NewFormatCache() *FormatCache {
	return &FormatCache{formats: make(map[Declaration]*NativeFormat)}
}

// Get returns the shared format for decl, creating it on first use.
func (c *FormatCache) Get(decl Declaration) *NativeFormat {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.formats[decl]; ok {
		return f
	}
	c.nextID++
	f := &NativeFormat{Decl: decl, ID: c.nextID}
	c.formats[decl] = f
	return f
}

func (c *FormatCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.formats)
}

// Clear drops every format. Loaders built earlier keep their handles.
func (c *FormatCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	clear(c.formats)
}
