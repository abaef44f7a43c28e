package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/pkg/errors"

	"github.com/oda/ptsim/internal/pagetable"
	"github.com/oda/ptsim/internal/physmem"
	"github.com/oda/ptsim/internal/sim"
)

// Server holds the simulator and provides HTTP handlers. The simulator is
// single-threaded, so mu serializes every write to it.
type Server struct {
	sim *sim.Simulator
	mu  sync.RWMutex
}

// Response is a generic JSON response.
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// StatusResponse summarizes memory usage.
type StatusResponse struct {
	FrameSize    int   `json:"frameSize"`
	FrameCount   int   `json:"frameCount"`
	FreeFrames   int   `json:"freeFrames"`
	MaxProcesses int   `json:"maxProcesses"`
	Processes    []int `json:"processes"`
}

// ProcessRequest is the request body for creating a process.
type ProcessRequest struct {
	Process int `json:"process"`
	Pages   int `json:"pages"`
}

// PageTableResponse lists the mapped pages of one process.
type PageTableResponse struct {
	Process    int                 `json:"process"`
	TableFrame int                 `json:"tableFrame"`
	Mappings   []pagetable.Mapping `json:"mappings"`
}

// FreeMapResponse has one entry per frame, true when in use.
type FreeMapResponse struct {
	InUse []bool `json:"inUse"`
	Free  int    `json:"free"`
}

// TranslateResponse is a translated address.
type TranslateResponse struct {
	Process  int `json:"process"`
	Logical  int `json:"logical"`
	Physical int `json:"physical"`
}

// NewServer returns a server over s.
func NewServer(s *sim.Simulator) *Server {
	return &Server{sim: s}
}

// Routes registers the API handlers on a new mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/api/process", s.handleProcess)
	mux.HandleFunc("/api/freemap", s.handleFreeMap)
	mux.HandleFunc("/api/pagetable", s.handlePageTable)
	mux.HandleFunc("/api/translate", s.handleTranslate)
	mux.HandleFunc("/api/reset", s.handleReset)
	return mux
}

func writeJSON(w http.ResponseWriter, status int, resp Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}

func queryInt(r *http.Request, name string) (int, error) {
	str := r.URL.Query().Get(name)
	if str == "" {
		return 0, fmt.Errorf("%s is required", name)
	}
	v, err := strconv.Atoi(str)
	if err != nil {
		return 0, fmt.Errorf("invalid %s format", name)
	}
	return v, nil
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	g := s.sim.Geometry()
	writeJSON(w, http.StatusOK, Response{Success: true, Data: StatusResponse{
		FrameSize:    g.FrameSize,
		FrameCount:   g.FrameCount,
		FreeFrames:   s.sim.Frames().CountFree(),
		MaxProcesses: g.MaxProcesses(),
		Processes:    s.sim.Tables().Processes(),
	}})
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	var req ProcessRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: "invalid request body"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tables := s.sim.Tables()
	if err := tables.NewProcess(req.Process, req.Pages); err != nil {
		var capErr *pagetable.CapacityError
		status := http.StatusBadRequest
		switch {
		case errors.As(err, &capErr):
			status = http.StatusInsufficientStorage
		case errors.Is(err, pagetable.ErrProcessExists):
			status = http.StatusConflict
		}
		writeJSON(w, status, Response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: PageTableResponse{
		Process:    req.Process,
		TableFrame: int(tables.TableFrame(req.Process)),
		Mappings:   tables.Mappings(req.Process),
	}})
}

func (s *Server) handleFreeMap(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	frames := s.sim.Frames()
	used := make([]bool, s.sim.Geometry().FrameCount)
	for i := range used {
		used[i] = frames.InUse(physmem.Frame(i))
	}
	writeJSON(w, http.StatusOK, Response{Success: true, Data: FreeMapResponse{
		InUse: used,
		Free:  frames.CountFree(),
	}})
}

func (s *Server) handlePageTable(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	proc, err := queryInt(r, "proc")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	tables := s.sim.Tables()
	table := tables.TableFrame(proc)
	if table == 0 {
		writeJSON(w, http.StatusNotFound, Response{Error: "process not found"})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: PageTableResponse{
		Process:    proc,
		TableFrame: int(table),
		Mappings:   tables.Mappings(proc),
	}})
}

func (s *Server) handleTranslate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	proc, err := queryInt(r, "proc")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}
	addr, err := queryInt(r, "addr")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Error: err.Error()})
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	phys, err := s.sim.Tables().Translate(proc, addr)
	if err != nil {
		writeJSON(w, http.StatusNotFound, Response{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, Response{Success: true, Data: TranslateResponse{
		Process:  proc,
		Logical:  addr,
		Physical: phys,
	}})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSON(w, http.StatusMethodNotAllowed, Response{Error: "method not allowed"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.sim.Reset()
	writeJSON(w, http.StatusOK, Response{Success: true})
}
