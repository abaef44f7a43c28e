// Package sim wires RAM, the frame allocator and the page-table manager into
// one simulation run driven by a command sequence.
package sim

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/frame"
	"github.com/oda/ptsim/internal/pagetable"
	"github.com/oda/ptsim/internal/physmem"
	"github.com/oda/ptsim/internal/report"
)

// Options selects the geometry and backing of a simulation.
type Options struct {
	Geometry physmem.Geometry
	Image    string // RAM image file; empty for in-memory RAM
	Logger   *slog.Logger
}

// Simulator is one simulation run. It is not safe for concurrent use.
type Simulator struct {
	store  *physmem.Store
	frames *frame.Allocator
	tables *pagetable.Manager
	log    *slog.Logger
}

// New builds a simulator. In-memory RAM and fresh images are initialized;
// an existing image resumes where the last run left off.
func New(opts Options) (*Simulator, error) {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	var (
		store *physmem.Store
		fresh = true
		err   error
	)
	if opts.Image != "" {
		store, fresh, err = physmem.Open(opts.Image, opts.Geometry)
	} else {
		store, err = physmem.New(opts.Geometry)
	}
	if err != nil {
		return nil, err
	}

	frames := frame.NewAllocator(store, log)
	s := &Simulator{
		store:  store,
		frames: frames,
		tables: pagetable.NewManager(store, frames, log),
		log:    log,
	}

	if fresh {
		s.frames.Initialize()
	} else {
		log.Info("resuming ram image", "image", opts.Image, "free", s.frames.CountFree())
	}
	return s, nil
}

// Geometry returns the frame layout.
func (s *Simulator) Geometry() physmem.Geometry {
	return s.store.Geometry()
}

// Frames returns the frame allocator.
func (s *Simulator) Frames() *frame.Allocator {
	return s.frames
}

// Tables returns the page-table manager.
func (s *Simulator) Tables() *pagetable.Manager {
	return s.tables
}

// Reset reinitializes RAM, dropping every process.
func (s *Simulator) Reset() {
	s.frames.Initialize()
	s.log.Info("memory reset")
}

// Close flushes and releases the RAM image, if any.
func (s *Simulator) Close() error {
	if err := s.store.Sync(); err != nil {
		return errors.Wrap(err, "sync ram image")
	}
	return s.store.Close()
}

// Exec runs one command, writing any report to w. Process creation
// failures are reported on w and do not stop the sequence.
func (s *Simulator) Exec(w io.Writer, c Command) error {
	switch c.Op {
	case NewProcess:
		err := s.tables.NewProcess(c.Process, c.Pages)
		var capErr *pagetable.CapacityError
		switch {
		case err == nil:
			return nil
		case errors.As(err, &capErr):
			_, werr := fmt.Fprintf(w, "Could not allocate space for process #%d\n", c.Process)
			return werr
		default:
			s.log.Warn("process not created", "process", c.Process, "err", err.Error())
			_, werr := fmt.Fprintln(w, err)
			return werr
		}
	case PrintFreeMap:
		return report.FreeMap(w, s.frames, s.Geometry().FrameCount)
	case PrintPageTable:
		return report.PageTable(w, s.tables, c.Process)
	}
	return errors.Wrapf(ErrBadCommand, "unknown op %v", c.Op)
}

// Run executes commands in order and stops at the first output error.
func (s *Simulator) Run(w io.Writer, cmds []Command) error {
	for _, c := range cmds {
		if err := s.Exec(w, c); err != nil {
			return err
		}
	}
	return nil
}
