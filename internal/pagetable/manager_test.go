package pagetable

import (
	"math"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oda/ptsim/internal/frame"
	"github.com/oda/ptsim/internal/physmem"
)

type ManagerTestSuite struct {
	suite.Suite
	store *physmem.Store
	alloc *frame.Allocator
	mgr   *Manager
}

func (s *ManagerTestSuite) SetupTest() {
	store, err := physmem.New(physmem.DefaultGeometry())
	s.Require().NoError(err)
	s.store = store
	s.alloc = frame.NewAllocator(store, nil)
	s.alloc.Initialize()
	s.mgr = NewManager(store, s.alloc, nil)
}

func (s *ManagerTestSuite) TestFirstProcessLayout() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(0, 2))

	assert.Equal(t, physmem.Frame(1), s.mgr.TableFrame(0))
	assert.Equal(t, 60, s.alloc.CountFree())
	assert.Equal(t, physmem.Frame(2), s.mgr.Entry(0, 0))
	assert.Equal(t, physmem.Frame(3), s.mgr.Entry(0, 1))
	for page := 2; page < 256; page++ {
		assert.Equal(t, physmem.Frame(0), s.mgr.Entry(0, page), "page %d", page)
	}

	// The map lives right after the free-frame table, the entries in frame 1.
	assert.Equal(t, byte(1), s.store.Byte(64))
	assert.Equal(t, byte(2), s.store.Byte(256))
	assert.Equal(t, byte(3), s.store.Byte(257))
}

func (s *ManagerTestSuite) TestFramesAreDisjoint() {
	t := s.T()
	seen := map[physmem.Frame]bool{0: true}

	for p, pages := range []int{3, 5, 1, 0, 7} {
		before := s.alloc.CountFree()
		require.NoError(t, s.mgr.NewProcess(p, pages))
		assert.Equal(t, before-pages-1, s.alloc.CountFree())

		table := s.mgr.TableFrame(p)
		assert.NotZero(t, table)
		assert.False(t, seen[table], "table frame %d reused", table)
		seen[table] = true

		for page := 0; page < pages; page++ {
			f := s.mgr.Entry(p, page)
			assert.NotZero(t, f)
			assert.False(t, seen[f], "data frame %d reused", f)
			assert.True(t, s.alloc.InUse(f))
			seen[f] = true
		}
	}
}

func (s *ManagerTestSuite) TestCapacityFailureAllocatesNothing() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(1, 50))
	free := s.alloc.CountFree()
	assert.Equal(t, 12, free)

	err := s.mgr.NewProcess(2, 20)
	var capErr *CapacityError
	require.True(t, errors.As(err, &capErr), "got %v", err)
	assert.Equal(t, 2, capErr.Process)
	assert.Equal(t, 21, capErr.Needed)
	assert.Equal(t, free, capErr.Free)
	assert.Contains(t, err.Error(), "process #2")

	assert.Equal(t, free, s.alloc.CountFree())
	assert.Equal(t, physmem.Frame(0), s.mgr.TableFrame(2))
}

func (s *ManagerTestSuite) TestCapacityCountsTableFrame() {
	t := s.T()
	// 63 free frames: 63 data pages would also need a table frame.
	err := s.mgr.NewProcess(0, 63)
	var capErr *CapacityError
	assert.True(t, errors.As(err, &capErr))
	assert.Equal(t, 63, s.alloc.CountFree())

	require.NoError(t, s.mgr.NewProcess(0, 62))
	assert.Equal(t, 0, s.alloc.CountFree())
}

func (s *ManagerTestSuite) TestHugePageCount() {
	t := s.T()
	for pages, needed := range map[int]int{256: 257, 257: 258, math.MaxInt: math.MaxInt} {
		err := s.mgr.NewProcess(0, pages)
		var capErr *CapacityError
		require.True(t, errors.As(err, &capErr), "pages %d: got %v", pages, err)
		assert.Equal(t, pages, capErr.Pages)
		assert.Equal(t, needed, capErr.Needed)
		assert.Equal(t, 63, capErr.Free)
		assert.Equal(t, 63, s.alloc.CountFree(), "pages %d", pages)
		assert.Equal(t, physmem.Frame(0), s.mgr.TableFrame(0), "pages %d", pages)
	}
}

func (s *ManagerTestSuite) TestProcessRange() {
	t := s.T()
	assert.True(t, errors.Is(s.mgr.NewProcess(-1, 1), ErrProcessRange))
	assert.True(t, errors.Is(s.mgr.NewProcess(192, 1), ErrProcessRange))
	assert.NoError(t, s.mgr.NewProcess(191, 1))
	assert.Equal(t, physmem.Frame(1), s.mgr.TableFrame(191))
	assert.Equal(t, physmem.Frame(0), s.mgr.TableFrame(500))
	assert.Equal(t, 61, s.alloc.CountFree())
}

func (s *ManagerTestSuite) TestDuplicateProcess() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(4, 1))
	free := s.alloc.CountFree()

	assert.True(t, errors.Is(s.mgr.NewProcess(4, 1), ErrProcessExists))
	assert.Equal(t, free, s.alloc.CountFree())
}

func (s *ManagerTestSuite) TestNegativePages() {
	assert.Error(s.T(), s.mgr.NewProcess(0, -2))
	assert.Equal(s.T(), 63, s.alloc.CountFree())
}

func (s *ManagerTestSuite) TestZeroPages() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(0, 0))
	assert.Equal(t, physmem.Frame(1), s.mgr.TableFrame(0))
	assert.Empty(t, s.mgr.Mappings(0))
	assert.Equal(t, 62, s.alloc.CountFree())
}

func (s *ManagerTestSuite) TestUnknownProcess() {
	t := s.T()
	assert.Equal(t, physmem.Frame(0), s.mgr.TableFrame(9))
	assert.Equal(t, physmem.Frame(0), s.mgr.Entry(9, 0))
	assert.Empty(t, s.mgr.Mappings(9))
}

func (s *ManagerTestSuite) TestMappingsAndProcesses() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(3, 2))
	require.NoError(t, s.mgr.NewProcess(1, 1))

	assert.Equal(t, []Mapping{{Page: 0, Frame: 2}, {Page: 1, Frame: 3}}, s.mgr.Mappings(3))
	assert.Equal(t, []Mapping{{Page: 0, Frame: 5}}, s.mgr.Mappings(1))
	assert.Equal(t, []int{1, 3}, s.mgr.Processes())
}

func (s *ManagerTestSuite) TestTranslate() {
	t := s.T()
	require.NoError(t, s.mgr.NewProcess(0, 2))

	addr, err := s.mgr.Translate(0, 0x0105)
	require.NoError(t, err)
	assert.Equal(t, 3*256+5, addr)

	addr, err = s.mgr.Translate(0, 0x00ff)
	require.NoError(t, err)
	assert.Equal(t, 2*256+255, addr)

	_, err = s.mgr.Translate(0, 0x0200)
	assert.True(t, errors.Is(err, ErrUnmapped))

	_, err = s.mgr.Translate(0, 256*256)
	assert.True(t, errors.Is(err, ErrUnmapped))

	_, err = s.mgr.Translate(0, -1)
	assert.True(t, errors.Is(err, ErrUnmapped))

	_, err = s.mgr.Translate(7, 0)
	assert.True(t, errors.Is(err, ErrUnknownProcess))
}

func TestManagerTestSuite(t *testing.T) {
	suite.Run(t, new(ManagerTestSuite))
}
