package pagetable

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProcessRange is returned for a process number with no slot in the
	// process-table-frame map.
	ErrProcessRange = errors.New("process number out of range")

	// ErrProcessExists is returned when creating a process whose slot is already set.
	ErrProcessExists = errors.New("process already exists")

	// ErrUnknownProcess is returned when translating for a process that was never created.
	ErrUnknownProcess = errors.New("no such process")

	// ErrUnmapped is returned when translating an address whose logical page
	// has no frame.
	ErrUnmapped = errors.New("logical page not mapped")
)

// CapacityError reports that a process could not be created because too few
// frames were free. Nothing is allocated when it is returned.
type CapacityError struct {
	Process int
	Pages   int
	Needed  int // frames including the page table
	Free    int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("could not allocate space for process #%d: need %d frames for %d pages, %d free",
		e.Process, e.Needed, e.Pages, e.Free)
}
