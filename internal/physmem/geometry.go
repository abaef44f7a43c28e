package physmem

import (
	"github.com/pkg/errors"
)

// ErrBadGeometry is returned when the frame constants do not describe a
// consistent memory layout.
var ErrBadGeometry = errors.New("inconsistent memory geometry")

// Frame is the index of a physical frame. Frame numbers are stored in single
// bytes inside the simulated RAM, so a geometry never has more than 256 frames.
type Frame uint8

// MaxFrameCount is the largest frame count a single-byte Frame can index.
const MaxFrameCount = 256

// Geometry describes how the simulated RAM is carved into frames.
type Geometry struct {
	FrameSize  int  `json:"frame_size"`
	FrameCount int  `json:"frame_count"`
	FrameShift uint `json:"frame_shift"`
	MemorySize int  `json:"memory_size"`
}

// DefaultGeometry is 64 frames of 256 bytes.
func DefaultGeometry() Geometry {
	return Geometry{
		FrameSize:  256,
		FrameCount: 64,
		FrameShift: 8,
		MemorySize: 16384,
	}
}

// Validate checks the relations between the constants. Frame 0 must hold the
// free-frame table plus at least one process slot.
func (g Geometry) Validate() error {
	if g.FrameSize <= 0 || g.FrameCount <= 0 {
		return errors.Wrapf(ErrBadGeometry, "frame size %d and frame count %d must be positive", g.FrameSize, g.FrameCount)
	}
	if g.FrameShift >= 31 || g.FrameSize != 1<<g.FrameShift {
		return errors.Wrapf(ErrBadGeometry, "frame size %d is not 2^%d", g.FrameSize, g.FrameShift)
	}
	if g.MemorySize != g.FrameSize*g.FrameCount {
		return errors.Wrapf(ErrBadGeometry, "memory size %d != %d frames of %d bytes", g.MemorySize, g.FrameCount, g.FrameSize)
	}
	if g.FrameCount > MaxFrameCount {
		return errors.Wrapf(ErrBadGeometry, "frame count %d exceeds %d", g.FrameCount, MaxFrameCount)
	}
	if g.FrameCount >= g.FrameSize {
		return errors.Wrapf(ErrBadGeometry, "free-frame table of %d entries leaves no process slots in a %d byte frame", g.FrameCount, g.FrameSize)
	}
	return nil
}

// MaxProcesses is the number of process slots that follow the free-frame
// table inside frame 0.
func (g Geometry) MaxProcesses() int {
	return g.FrameSize - g.FrameCount
}

// Address packs a frame number and an offset into a flat physical address.
// The offset is expected to be below FrameSize; no check is made.
func (g Geometry) Address(f Frame, offset int) int {
	return int(f)<<g.FrameShift | offset
}
