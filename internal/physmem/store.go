// Package physmem holds the simulated RAM and its frame geometry.
//
// All regions of the simulation (the free-frame table, the
// process-table-frame map, page-table frames and data frames) alias one
// byte slice, so a RAM image written by one run is bit-compatible with the
// next.
package physmem

import (
	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/mmap"
)

// ErrBadImage is returned when a file is not a RAM image this version can read.
var ErrBadImage = errors.New("invalid ram image")

// Store is the simulated physical memory.
type Store struct {
	geom Geometry
	ram  []byte
	mmap *mmap.MMap // nil for an in-memory store
}

// New returns a zeroed in-memory store for the given geometry.
func New(g Geometry) (*Store, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	return &Store{
		geom: g,
		ram:  make([]byte, g.MemorySize),
	}, nil
}

// Open maps a RAM image file. fresh reports whether the image was just
// created and still needs initializing.
func Open(path string, g Geometry) (s *Store, fresh bool, err error) {
	if err := g.Validate(); err != nil {
		return nil, false, err
	}

	m, err := mmap.Open(path, int64(HeaderSize+g.MemorySize))
	if err != nil {
		return nil, false, errors.Wrapf(err, "open ram image %s", path)
	}

	fresh, err = checkHeader(m.Slice(0, HeaderSize), g)
	if err != nil {
		m.Close()
		return nil, false, errors.Wrapf(err, "ram image %s", path)
	}

	return &Store{
		geom: g,
		ram:  m.Slice(HeaderSize, m.Size()-HeaderSize),
		mmap: m,
	}, fresh, nil
}

// checkHeader validates an existing header or writes a new one.
func checkHeader(buf []byte, g Geometry) (bool, error) {
	var h ImageHeader
	h.Deserialize(buf)

	switch {
	case h.Magic == 0:
		h = ImageHeader{
			Magic:      Magic,
			Version:    Version,
			FrameSize:  uint32(g.FrameSize),
			FrameCount: uint32(g.FrameCount),
		}
		h.Serialize(buf)
		return true, nil
	case h.Magic != Magic:
		return false, errors.Wrapf(ErrBadImage, "bad magic number %#x", h.Magic)
	case h.Version != Version:
		return false, errors.Wrapf(ErrBadImage, "unsupported version %d (expected %d)", h.Version, Version)
	case int(h.FrameSize) != g.FrameSize || int(h.FrameCount) != g.FrameCount:
		return false, errors.Wrapf(ErrBadGeometry, "image has %d frames of %d bytes, want %d of %d",
			h.FrameCount, h.FrameSize, g.FrameCount, g.FrameSize)
	}
	return false, nil
}

// Geometry returns the frame layout of the store.
func (s *Store) Geometry() Geometry {
	return s.geom
}

// Size returns the number of bytes of simulated RAM.
func (s *Store) Size() int {
	return len(s.ram)
}

// Byte reads the byte at a physical address.
func (s *Store) Byte(addr int) byte {
	return s.ram[addr]
}

// SetByte writes the byte at a physical address.
func (s *Store) SetByte(addr int, v byte) {
	s.ram[addr] = v
}

// Region returns n bytes starting at a physical address. Writes through the
// returned slice land in the store.
func (s *Store) Region(addr, n int) []byte {
	return s.ram[addr : addr+n : addr+n]
}

// Frame returns the contents of one frame.
func (s *Store) Frame(f Frame) []byte {
	return s.Region(s.geom.Address(f, 0), s.geom.FrameSize)
}

// Zero clears every byte of RAM.
func (s *Store) Zero() {
	clear(s.ram)
}

// Persistent reports whether the store is backed by an image file.
func (s *Store) Persistent() bool {
	return s.mmap != nil
}

// Sync flushes an image-backed store to disk. It is a no-op in memory.
func (s *Store) Sync() error {
	if s.mmap == nil {
		return nil
	}
	return s.mmap.Sync()
}

// Close releases the image mapping. The store must not be used afterwards.
func (s *Store) Close() error {
	if s.mmap == nil {
		return nil
	}
	s.ram = nil
	return s.mmap.Close()
}
