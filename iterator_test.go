package unpack

import (
	"errors"
	"io"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meigma/unpack/codec"
)

func TestEntryIteratorSkipsDirectories(t *testing.T) {
	t.Parallel()

	ar := &fakeArchive{
		entries: []codec.Entry{
			{Name: "dir/", Mode: fs.ModeDir | 0o755},
			{Name: "dir/a.csv", Mode: 0o644, Size: 6},
			{Name: "dir/sub/", Mode: fs.ModeDir | 0o755},
			{Name: "dir/sub/b.csv", Mode: 0o644, Size: 6},
		},
		bodies: []string{"", "1,foo\n", "", "2,bar\n"},
	}
	it := NewEntryIterator(ar)
	assert.Nil(t, it.Entry())

	var names, bodies []string
	for {
		r, err := it.Next()
		if err == io.EOF {
			assert.Nil(t, r)
			break
		}
		require.NoError(t, err)
		data, err := io.ReadAll(r)
		require.NoError(t, err)
		names = append(names, it.Entry().Name)
		bodies = append(bodies, string(data))
	}
	assert.Equal(t, []string{"dir/a.csv", "dir/sub/b.csv"}, names)
	assert.Equal(t, []string{"1,foo\n", "2,bar\n"}, bodies)
}

func TestEntryIteratorHasNextIdempotent(t *testing.T) {
	t.Parallel()

	ar := &fakeArchive{
		entries: []codec.Entry{{Name: "a", Mode: 0o644}},
		bodies:  []string{"a"},
	}
	it := NewEntryIterator(ar)

	// a peeked entry is cached
	for range 3 {
		ok, err := it.HasNext()
		require.NoError(t, err)
		assert.True(t, ok)
	}
	assert.Equal(t, 1, ar.calls)

	_, err := it.Next()
	require.NoError(t, err)

	for range 3 {
		ok, err := it.HasNext()
		require.NoError(t, err)
		assert.False(t, ok)
	}
	assert.Equal(t, 2, ar.calls, "end of archive must not be re-read")

	r, err := it.Next()
	assert.Nil(t, r)
	assert.Equal(t, io.EOF, err)
	assert.Equal(t, 2, ar.calls)
}

func TestEntryIteratorSameView(t *testing.T) {
	t.Parallel()

	ar := &fakeArchive{
		entries: []codec.Entry{{Name: "a"}, {Name: "b"}},
		bodies:  []string{"a", "b"},
	}
	it := NewEntryIterator(ar)

	first, err := it.Next()
	require.NoError(t, err)
	second, err := it.Next()
	require.NoError(t, err)
	assert.Same(t, first, second)

	// the view hides the stage controls
	_, ok := first.(codec.ArchiveReader)
	assert.False(t, ok)
}

func TestEntryIteratorStickyError(t *testing.T) {
	t.Parallel()

	boom := errors.New("corrupt header")
	ar := &fakeArchive{
		entries: []codec.Entry{{Name: "a"}},
		bodies:  []string{"a"},
		err:     boom,
	}
	it := NewEntryIterator(ar)

	_, err := it.Next()
	require.NoError(t, err)

	_, err = it.Next()
	require.ErrorIs(t, err, boom)
	ok, err := it.HasNext()
	require.ErrorIs(t, err, boom)
	assert.False(t, ok)
	assert.Equal(t, 2, ar.calls)
}

func TestEntryIteratorEmptyArchive(t *testing.T) {
	t.Parallel()

	ar := &fakeArchive{
		entries: []codec.Entry{{Name: "only/", Mode: fs.ModeDir}},
		bodies:  []string{""},
	}
	it := NewEntryIterator(ar)
	ok, err := it.HasNext()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, it.Entry())
}
