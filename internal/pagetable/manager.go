// Package pagetable builds per-process page tables inside simulated RAM.
//
// Each process owns one page-table frame. Entry i of that frame holds the
// data frame backing logical page i, or 0 when the page is unmapped. The
// frame number of each process's table is kept in the process-table-frame
// map, which follows the free-frame table in frame 0.
package pagetable

import (
	"log/slog"
	"math"

	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/frame"
	"github.com/oda/ptsim/internal/physmem"
)

// Mapping is one mapped logical page of a process.
type Mapping struct {
	Page  int           `json:"page"`
	Frame physmem.Frame `json:"frame"`
}

// Manager creates processes and answers page-table queries.
type Manager struct {
	store *physmem.Store
	alloc *frame.Allocator
	geom  physmem.Geometry
	log   *slog.Logger
}

// NewManager returns a manager that allocates from alloc and writes tables
// into store.
func NewManager(store *physmem.Store, alloc *frame.Allocator, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		store: store,
		alloc: alloc,
		geom:  store.Geometry(),
		log:   log,
	}
}

// MaxProcesses is the number of process slots.
func (m *Manager) MaxProcesses() int {
	return m.geom.MaxProcesses()
}

func (m *Manager) validProcess(p int) bool {
	return p >= 0 && p < m.geom.MaxProcesses()
}

// slotAddr is the address of process p's entry in the process-table-frame map.
func (m *Manager) slotAddr(p int) int {
	return m.geom.Address(0, m.geom.FrameCount+p)
}

// TableFrame returns the page-table frame of process p, or 0 if the process
// does not exist. Frame 0 is reserved, so 0 is never a real table.
func (m *Manager) TableFrame(p int) physmem.Frame {
	if !m.validProcess(p) {
		return 0
	}
	return physmem.Frame(m.store.Byte(m.slotAddr(p)))
}

// NewProcess allocates a page table and pages data frames for process p.
// Either every frame is allocated or none is: the free count must cover the
// data pages plus the table frame itself.
func (m *Manager) NewProcess(p, pages int) error {
	if !m.validProcess(p) {
		return errors.Wrapf(ErrProcessRange, "process #%d (max %d)", p, m.geom.MaxProcesses()-1)
	}
	if pages < 0 {
		return errors.Errorf("process #%d: invalid page count %d", p, pages)
	}
	if m.TableFrame(p) != 0 {
		return errors.Wrapf(ErrProcessExists, "process #%d", p)
	}

	// pages < free < FrameCount < FrameSize, so every entry fits in the table
	// frame. Comparing pages against free avoids computing pages+1.
	if free := m.alloc.CountFree(); pages > m.geom.FrameSize || pages >= free {
		needed := pages
		if pages < math.MaxInt {
			needed = pages + 1
		}
		m.log.Warn("insufficient frames", "process", p, "pages", pages, "needed", needed, "free", free)
		return &CapacityError{Process: p, Pages: pages, Needed: needed, Free: free}
	}

	table, err := m.alloc.Allocate()
	if err != nil {
		return errors.Wrapf(err, "process #%d page table", p)
	}
	m.store.SetByte(m.slotAddr(p), byte(table))

	for page := 0; page < pages; page++ {
		data, err := m.alloc.Allocate()
		if err != nil {
			return errors.Wrapf(err, "process #%d page %d", p, page)
		}
		m.store.SetByte(m.geom.Address(table, page), byte(data))
	}

	m.log.Info("process created", "process", p, "table", table, "pages", pages, "free", m.alloc.CountFree())
	return nil
}

// Entry returns the frame backing logical page of process p, or 0 when the
// page is unmapped or the process does not exist.
func (m *Manager) Entry(p, page int) physmem.Frame {
	table := m.TableFrame(p)
	if table == 0 || page < 0 || page >= m.geom.FrameSize {
		return 0
	}
	return physmem.Frame(m.store.Byte(m.geom.Address(table, page)))
}

// Mappings returns the mapped entries among the first FrameCount logical
// pages of process p, in page order.
func (m *Manager) Mappings(p int) []Mapping {
	var out []Mapping
	if m.TableFrame(p) == 0 {
		return out
	}
	for page := 0; page < m.geom.FrameCount; page++ {
		if f := m.Entry(p, page); f != 0 {
			out = append(out, Mapping{Page: page, Frame: f})
		}
	}
	return out
}

// Processes returns the numbers of every created process in ascending order.
func (m *Manager) Processes() []int {
	var out []int
	for p := 0; p < m.geom.MaxProcesses(); p++ {
		if m.TableFrame(p) != 0 {
			out = append(out, p)
		}
	}
	return out
}

// Translate maps a logical address of process p to a physical address.
func (m *Manager) Translate(p, logical int) (int, error) {
	if m.TableFrame(p) == 0 {
		return 0, errors.Wrapf(ErrUnknownProcess, "process #%d", p)
	}
	page := logical >> m.geom.FrameShift
	offset := logical & (m.geom.FrameSize - 1)
	if logical < 0 || page >= m.geom.FrameSize {
		return 0, errors.Wrapf(ErrUnmapped, "process #%d address %#x", p, logical)
	}

	f := m.Entry(p, page)
	if f == 0 {
		return 0, errors.Wrapf(ErrUnmapped, "process #%d page %d", p, page)
	}
	return m.geom.Address(f, offset), nil
}
