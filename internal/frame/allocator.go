// Package frame tracks which physical frames are in use.
//
// The free-frame table lives in the first FrameCount bytes of frame 0, one
// byte per frame: 0 is free, anything else is in use. Frame 0 itself is
// always marked in use and is never handed out.
package frame

import (
	"log/slog"

	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/physmem"
)

// ErrOutOfFrames is returned by Allocate when every frame is in use.
var ErrOutOfFrames = errors.New("out of free frames")

const (
	free  byte = 0
	inUse byte = 1
)

// Allocator hands out frames from a Store.
type Allocator struct {
	store *physmem.Store
	count int
	log   *slog.Logger
}

// NewAllocator returns an allocator over store. It does not touch memory;
// call Initialize on a fresh store.
func NewAllocator(store *physmem.Store, log *slog.Logger) *Allocator {
	if log == nil {
		log = slog.Default()
	}
	return &Allocator{
		store: store,
		count: store.Geometry().FrameCount,
		log:   log,
	}
}

// Initialize zeroes all of RAM and reserves frame 0.
func (a *Allocator) Initialize() {
	a.store.Zero()
	a.table()[0] = inUse
	a.log.Debug("memory initialized", "frames", a.count, "free", a.count-1)
}

// table is the free-frame table region of frame 0.
func (a *Allocator) table() []byte {
	return a.store.Region(0, a.count)
}

// CountFree returns the number of free frames.
func (a *Allocator) CountFree() int {
	n := 0
	for _, b := range a.table() {
		if b == free {
			n++
		}
	}
	return n
}

// InUse reports whether frame f is allocated. Frames outside the geometry
// are reported as in use.
func (a *Allocator) InUse(f physmem.Frame) bool {
	if int(f) >= a.count {
		return true
	}
	return a.table()[f] != free
}

// Allocate marks the lowest-numbered free frame as in use and returns it.
func (a *Allocator) Allocate() (physmem.Frame, error) {
	t := a.table()
	for i := 1; i < len(t); i++ {
		if t[i] == free {
			t[i] = inUse
			a.log.Debug("frame allocated", "frame", i)
			return physmem.Frame(i), nil
		}
	}
	a.log.Warn("allocation failed", "frames", a.count)
	return 0, ErrOutOfFrames
}
