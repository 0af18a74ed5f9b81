package frame

import (
	"sync"

	"github.com/banshee-data/ptview/internal/trajectory"
)

// Source yields the renderable of a frame index.
type Source interface {
	Frame(frameIndex int) (*Renderable, error)
	FrameCount() int
}

// Direct builds every request afresh.
type Direct struct {
	asm *Assembler
	ds  *trajectory.Dataset
}

// NewDirect binds an assembler to a dataset without caching.
func NewDirect(asm *Assembler, ds *trajectory.Dataset) *Direct {
	return &Direct{asm: asm, ds: ds}
}

// Frame builds frame frameIndex.
func (d *Direct) Frame(frameIndex int) (*Renderable, error) {
	return d.asm.Build(d.ds, frameIndex)
}

// FrameCount returns the bound dataset's frame count.
func (d *Direct) FrameCount() int { return d.ds.FrameCount() }

// Cache memoizes frames by index. Datasets never change after load, so
// entries are never invalidated. Safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	asm    *Assembler
	ds     *trajectory.Dataset
	frames map[int]*Renderable

	hits, misses int
}

// NewCache binds an assembler to a dataset with a per-frame memo.
func NewCache(asm *Assembler, ds *trajectory.Dataset) *Cache {
	return &Cache{asm: asm, ds: ds, frames: make(map[int]*Renderable)}
}

// Frame returns the cached frame, building it on first use. Errors are not
// cached.
func (c *Cache) Frame(frameIndex int) (*Renderable, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if r, ok := c.frames[frameIndex]; ok {
		c.hits++
		return r, nil
	}
	c.misses++
	r, err := c.asm.Build(c.ds, frameIndex)
	if err != nil {
		return nil, err
	}
	c.frames[frameIndex] = r
	return r, nil
}

// FrameCount returns the bound dataset's frame count.
func (c *Cache) FrameCount() int { return c.ds.FrameCount() }

// Stats returns the number of cache hits and misses so far.
func (c *Cache) Stats() (hits, misses int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the number of cached frames.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.frames)
}
