// Package mmap maps a fixed-size file into memory.
package mmap

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// MMap is a shared, read-write mapping of the first size bytes of a file.
type MMap struct {
	file *os.File
	data []byte
	size int64
}

// Open opens or creates the file at path and maps size bytes of it.
// A file shorter than size is extended with zeroes; a longer file is
// mapped only up to size.
func Open(path string, size int64) (*MMap, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid mapping size %d", size)
	}

	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to stat file: %w", err)
	}

	if info.Size() < size {
		if err := file.Truncate(size); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to extend file: %w", err)
		}
	}

	data, err := unix.Mmap(int(file.Fd()), 0, int(size),
		unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		file.Close()
		return nil, fmt.Errorf("failed to mmap: %w", err)
	}

	return &MMap{
		file: file,
		data: data,
		size: size,
	}, nil
}

// Close unmaps and closes the file. Calling Close twice is a no-op.
func (m *MMap) Close() error {
	if m.data != nil {
		if err := unix.Munmap(m.data); err != nil {
			return fmt.Errorf("failed to munmap: %w", err)
		}
		m.data = nil
	}
	if m.file != nil {
		if err := m.file.Close(); err != nil {
			return fmt.Errorf("failed to close file: %w", err)
		}
		m.file = nil
	}
	return nil
}

// Sync flushes the mapping to the file.
func (m *MMap) Sync() error {
	if m.data == nil {
		return fmt.Errorf("mmap is closed")
	}
	return unix.Msync(m.data, unix.MS_SYNC)
}

// Size returns the mapped size.
func (m *MMap) Size() int64 {
	return m.size
}

// Slice returns length bytes of the mapping starting at offset, or nil if
// the range falls outside it. The slice is invalid after Close.
func (m *MMap) Slice(offset, length int64) []byte {
	if m.data == nil {
		return nil
	}
	if offset < 0 || length < 0 || offset+length > m.size {
		return nil
	}
	return m.data[offset : offset+length : offset+length]
}
