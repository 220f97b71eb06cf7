package engine

import (
	"math/rand"
	"slices"
	"sync"
)

// Queue is the client-side track queue for one guild.
type Queue struct {
	mu     sync.Mutex
	tracks []Track
}

func NewQueue() *Queue {
	return &Queue{tracks: make([]Track, 0)}
}

// Put appends a track to the end of the queue.
func (q *Queue) Put(t Track) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = append(q.tracks, t)
}

// Get pops the next track, reporting false when the queue is empty.
func (q *Queue) Get() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	t := q.tracks[0]
	q.tracks = q.tracks[1:]
	return t, true
}

// Peek returns the next track without removing it.
func (q *Queue) Peek() (Track, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.tracks) == 0 {
		return Track{}, false
	}
	return q.tracks[0], true
}

// Delete removes the track at index i, reporting false when i is out of
// range.
func (q *Queue) Delete(i int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if i < 0 || i >= len(q.tracks) {
		return false
	}
	q.tracks = append(q.tracks[:i], q.tracks[i+1:]...)
	return true
}

// Shuffle reorders the queue in place.
func (q *Queue) Shuffle() {
	q.mu.Lock()
	defer q.mu.Unlock()
	rand.Shuffle(len(q.tracks), func(i, j int) {
		q.tracks[i], q.tracks[j] = q.tracks[j], q.tracks[i]
	})
}

// Clear drops every queued track.
func (q *Queue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.tracks = q.tracks[:0]
}

// Count returns the number of queued tracks.
func (q *Queue) Count() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tracks)
}

// IsEmpty reports whether the queue has no tracks.
func (q *Queue) IsEmpty() bool {
	return q.Count() == 0
}

// Copy returns a snapshot of the queued tracks.
func (q *Queue) Copy() []Track {
	q.mu.Lock()
	defer q.mu.Unlock()
	return slices.Clone(q.tracks)
}
