// Package report renders allocator and page-table state as text.
package report

import (
	"bufio"
	"fmt"
	"io"

	"github.com/oda/ptsim/internal/pagetable"
	"github.com/oda/ptsim/internal/physmem"
)

// FramesPerLine is the width of the free map.
const FramesPerLine = 16

// FrameMap answers whether a frame is in use.
type FrameMap interface {
	InUse(f physmem.Frame) bool
}

// PageTables gives read access to process page tables.
type PageTables interface {
	Mappings(p int) []pagetable.Mapping
}

// FreeMap writes one character per frame, '#' for in use and '.' for free.
func FreeMap(w io.Writer, frames FrameMap, count int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, "--- PAGE FREE MAP ---")
	for i := 0; i < count; i++ {
		c := byte('.')
		if frames.InUse(physmem.Frame(i)) {
			c = '#'
		}
		bw.WriteByte(c)
		if (i+1)%FramesPerLine == 0 {
			bw.WriteByte('\n')
		}
	}
	return bw.Flush()
}

// PageTable writes the logical to physical mapping of process p in hex.
// A process that does not exist prints only the header.
func PageTable(w io.Writer, tables PageTables, p int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "--- PROCESS %d PAGE TABLE ---\n", p)
	for _, m := range tables.Mappings(p) {
		fmt.Fprintf(bw, "%02x -> %02x\n", m.Page, m.Frame)
	}
	return bw.Flush()
}
