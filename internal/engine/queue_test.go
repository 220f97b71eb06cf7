package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func track(title string) Track {
	return Track{ID: title, Title: title}
}

func TestQueueFIFO(t *testing.T) {
	q := NewQueue()
	q.Put(track("a"))
	q.Put(track("b"))
	q.Put(track("c"))

	require.Equal(t, 3, q.Count())

	first, ok := q.Peek()
	require.True(t, ok)
	assert.Equal(t, "a", first.Title)
	assert.Equal(t, 3, q.Count(), "peek must not remove")

	for _, want := range []string{"a", "b", "c"} {
		got, ok := q.Get()
		require.True(t, ok)
		assert.Equal(t, want, got.Title)
	}

	_, ok = q.Get()
	assert.False(t, ok)
	assert.True(t, q.IsEmpty())
}

func TestQueueDelete(t *testing.T) {
	q := NewQueue()
	q.Put(track("a"))
	q.Put(track("b"))
	q.Put(track("c"))

	assert.True(t, q.Delete(1))
	assert.False(t, q.Delete(5))
	assert.False(t, q.Delete(-1))

	remaining := q.Copy()
	require.Len(t, remaining, 2)
	assert.Equal(t, "a", remaining[0].Title)
	assert.Equal(t, "c", remaining[1].Title)
}

func TestQueueShuffleKeepsTracks(t *testing.T) {
	q := NewQueue()
	titles := []string{"a", "b", "c", "d", "e", "f"}
	for _, title := range titles {
		q.Put(track(title))
	}

	q.Shuffle()

	got := q.Copy()
	require.Len(t, got, len(titles))
	seen := make(map[string]bool)
	for _, tr := range got {
		seen[tr.Title] = true
	}
	for _, title := range titles {
		assert.True(t, seen[title], "shuffle must not lose track %s", title)
	}
}

func TestQueueCopyIsSnapshot(t *testing.T) {
	q := NewQueue()
	q.Put(track("a"))

	snapshot := q.Copy()
	q.Clear()

	assert.Len(t, snapshot, 1)
	assert.True(t, q.IsEmpty())
}
