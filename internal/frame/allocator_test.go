package frame

import (
	"bytes"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/oda/ptsim/internal/physmem"
)

type AllocatorTestSuite struct {
	suite.Suite
	store *physmem.Store
	alloc *Allocator
}

func (s *AllocatorTestSuite) SetupTest() {
	store, err := physmem.New(physmem.DefaultGeometry())
	s.Require().NoError(err)
	s.store = store
	s.alloc = NewAllocator(store, nil)
	s.alloc.Initialize()
}

func (s *AllocatorTestSuite) TestInitialize() {
	t := s.T()
	assert.Equal(t, 63, s.alloc.CountFree())
	assert.True(t, s.alloc.InUse(0))
	for f := 1; f < 64; f++ {
		assert.False(t, s.alloc.InUse(physmem.Frame(f)), "frame %d", f)
	}
}

func (s *AllocatorTestSuite) TestInitializeClearsMemory() {
	t := s.T()
	s.store.SetByte(5000, 0xaa)
	s.store.SetByte(10, 1)
	s.alloc.Initialize()
	assert.Equal(t, byte(0), s.store.Byte(5000))
	assert.Equal(t, 63, s.alloc.CountFree())
}

func (s *AllocatorTestSuite) TestAllocateAscending() {
	t := s.T()
	prev := physmem.Frame(0)
	for i := 1; i <= 63; i++ {
		before := s.alloc.CountFree()
		f, err := s.alloc.Allocate()
		require.NoError(t, err)
		assert.Equal(t, physmem.Frame(i), f)
		assert.Greater(t, f, prev)
		assert.Equal(t, before-1, s.alloc.CountFree())
		assert.True(t, s.alloc.InUse(f))
		prev = f
	}
	assert.Equal(t, 0, s.alloc.CountFree())
}

func (s *AllocatorTestSuite) TestAllocateExhausted() {
	t := s.T()
	for i := 0; i < 63; i++ {
		_, err := s.alloc.Allocate()
		require.NoError(t, err)
	}

	snapshot := bytes.Clone(s.store.Region(0, 64))
	_, err := s.alloc.Allocate()
	assert.True(t, errors.Is(err, ErrOutOfFrames))
	assert.Equal(t, snapshot, s.store.Region(0, 64))
	assert.Equal(t, 0, s.alloc.CountFree())
}

func (s *AllocatorTestSuite) TestAllocateReusesLowestFree() {
	t := s.T()
	// A gap left by hand in the table is filled before higher frames.
	for i := 0; i < 5; i++ {
		_, err := s.alloc.Allocate()
		require.NoError(t, err)
	}
	s.store.SetByte(3, 0)

	f, err := s.alloc.Allocate()
	require.NoError(t, err)
	assert.Equal(t, physmem.Frame(3), f)
}

func (s *AllocatorTestSuite) TestCountFreeIgnoresProcessMap() {
	t := s.T()
	// Bytes past the free-frame table belong to the process map.
	s.store.SetByte(64, 0)
	s.store.SetByte(100, 7)
	assert.Equal(t, 63, s.alloc.CountFree())
}

func (s *AllocatorTestSuite) TestInUseOutOfRange() {
	assert.True(s.T(), s.alloc.InUse(200))
}

func TestAllocatorTestSuite(t *testing.T) {
	suite.Run(t, new(AllocatorTestSuite))
}
