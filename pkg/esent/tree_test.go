package esent

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/C-Sto/goesedb/pkg/esent/esetest"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// countingSource counts every page request that reaches the file.
type countingSource struct {
	inner   PageSource
	fetches int
}

func (s *countingSource) Page(number uint32) (*Page, error) {
	s.fetches++
	return s.inner.Page(number)
}

func newTestSource(t *testing.T, b *esetest.Builder) *countingSource {
	data := b.Bytes()
	format := PageFormat{Version: b.Version, Revision: b.Revision, PageSize: b.PageSize}
	p, err := newPager(bytes.NewReader(data), int64(len(data)), format, 64, zap.NewNop())
	require.NoError(t, err)
	return &countingSource{inner: p}
}

func numberedEntries(n int) []esetest.Entry {
	var entries []esetest.Entry
	for i := 0; i < n; i++ {
		entries = append(entries, esetest.Entry{
			Key:  esetest.Key4(uint32(i * 2)),
			Data: []byte(fmt.Sprintf("value-%d", i)),
		})
	}
	return entries
}

func TestPageTreeWalk(t *testing.T) {
	r := require.New(t)
	b := esetest.New(0x1000)
	b.AddTree(esetest.Tree{ObjectID: 9, Root: 10, Entries: numberedEntries(7), PerLeaf: 3})
	src := newTestSource(t, b)

	tree := NewPageTree(src, 9, 10)
	n, err := tree.NumberOfLeafValues()
	r.NoError(err)
	r.Equal(7, n)
	fetches := src.fetches

	// the walk is cached, counting again touches no pages
	n, err = tree.NumberOfLeafValues()
	r.NoError(err)
	r.Equal(7, n)
	r.Equal(fetches, src.fetches)

	for i := 0; i < n; i++ {
		e, err := tree.LeafValue(i)
		r.NoError(err)
		r.Equal(esetest.Key4(uint32(i*2)), e.Key)
		r.Equal(fmt.Sprintf("value-%d", i), string(e.Data))
	}
	_, err = tree.LeafValue(7)
	r.ErrorIs(err, ErrArgument)
}

func TestPageTreeLeafValueByKey(t *testing.T) {
	r := require.New(t)
	b := esetest.New(0x1000)
	b.AddTree(esetest.Tree{ObjectID: 9, Root: 10, Entries: numberedEntries(10), PerLeaf: 3})
	tree := NewPageTree(newTestSource(t, b), 9, 10)

	for i := 0; i < 10; i++ {
		e, err := tree.LeafValueByKey(esetest.Key4(uint32(i * 2)))
		r.NoError(err)
		r.Equal(fmt.Sprintf("value-%d", i), string(e.Data))
	}
	_, err := tree.LeafValueByKey(esetest.Key4(3))
	r.ErrorIs(err, ErrValueMissing)
	_, err = tree.LeafValueByKey(esetest.Key4(1000))
	r.ErrorIs(err, ErrValueMissing)
}

func TestPageTreeSkipsDefunct(t *testing.T) {
	r := require.New(t)
	b := esetest.New(0x1000)
	b.AddPage(esetest.Page{
		Number:   10,
		ObjectID: 9,
		Flags:    esetest.FlagRoot | esetest.FlagLeaf,
		Tags: []esetest.Tag{
			{Value: esetest.RootHeader(1, 0, 0)},
			{Value: esetest.LeafValue([]byte("a"), []byte("1"))},
			{Value: esetest.LeafValue([]byte("b"), []byte("2")), Flags: esetest.TagDefunct},
			{Value: esetest.LeafValue([]byte("c"), []byte("3"))},
		},
	})
	tree := NewPageTree(newTestSource(t, b), 9, 10)
	n, err := tree.NumberOfLeafValues()
	r.NoError(err)
	r.Equal(2, n)
	e, err := tree.LeafValue(1)
	r.NoError(err)
	r.Equal([]byte("c"), e.Key)
}

func TestPageTreeCorruption(t *testing.T) {
	t.Run("cycle", func(t *testing.T) {
		b := esetest.New(0x1000)
		b.AddPage(esetest.Page{Number: 10, ObjectID: 9, Flags: esetest.FlagRoot | esetest.FlagParent,
			Tags: []esetest.Tag{{Value: esetest.RootHeader(1, 0, 0)}, {Value: esetest.BranchValue(nil, 11)}}})
		b.AddPage(esetest.Page{Number: 11, ObjectID: 9, Flags: esetest.FlagParent,
			Tags: []esetest.Tag{{}, {Value: esetest.BranchValue(nil, 10)}}})
		_, err := NewPageTree(newTestSource(t, b), 9, 10).NumberOfLeafValues()
		require.ErrorIs(t, err, ErrCorruptTree)
	})
	t.Run("foreign page", func(t *testing.T) {
		b := esetest.New(0x1000)
		b.AddTree(esetest.Tree{ObjectID: 9, Root: 10, Entries: numberedEntries(2)})
		_, err := NewPageTree(newTestSource(t, b), 8, 10).NumberOfLeafValues()
		require.ErrorIs(t, err, ErrCorruptTree)
	})
	t.Run("child beyond file", func(t *testing.T) {
		b := esetest.New(0x1000)
		b.AddPage(esetest.Page{Number: 10, ObjectID: 9, Flags: esetest.FlagRoot | esetest.FlagParent,
			Tags: []esetest.Tag{{Value: esetest.RootHeader(1, 0, 0)}, {Value: esetest.BranchValue(nil, 5000)}}})
		_, err := NewPageTree(newTestSource(t, b), 9, 10).NumberOfLeafValues()
		require.ErrorIs(t, err, ErrCorruptTree)
	})
	t.Run("child one past the last page", func(t *testing.T) {
		b := esetest.New(0x1000)
		b.AddPage(esetest.Page{Number: 10, ObjectID: 9, Flags: esetest.FlagRoot | esetest.FlagParent,
			Tags: []esetest.Tag{{Value: esetest.RootHeader(1, 0, 0)}, {Value: esetest.BranchValue(nil, 11)}}})
		src := newTestSource(t, b)
		_, err := NewPageTree(src, 9, 10).NumberOfLeafValues()
		require.ErrorIs(t, err, ErrCorruptTree)
		require.Equal(t, uint32(10), src.inner.(*pager).lastPage())
	})
	t.Run("page zero", func(t *testing.T) {
		b := esetest.New(0x1000)
		b.AddPage(esetest.Page{Number: 10, ObjectID: 9, Flags: esetest.FlagRoot | esetest.FlagParent,
			Tags: []esetest.Tag{{Value: esetest.RootHeader(1, 0, 0)}, {Value: esetest.BranchValue(nil, 0)}}})
		_, err := NewPageTree(newTestSource(t, b), 9, 10).NumberOfLeafValues()
		require.ErrorIs(t, err, ErrCorruptTree)
	})
}

func TestSpaceExtents(t *testing.T) {
	r := require.New(t)
	b := esetest.New(0x1000)
	b.AddTree(esetest.Tree{ObjectID: 9, Root: 10, Entries: numberedEntries(2), SpaceTree: 11})
	b.AddSpaceTree(9, 11, [][2]uint32{{20, 5}, {40, 2}})

	extents, err := NewPageTree(newTestSource(t, b), 9, 10).SpaceExtents()
	r.NoError(err)
	r.Equal([]Extent{
		{LastPageNumber: 20, NumberOfPages: 5, FirstPageNumber: 16},
		{LastPageNumber: 40, NumberOfPages: 2, FirstPageNumber: 39},
	}, extents)
}
