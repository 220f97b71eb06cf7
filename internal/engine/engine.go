// Package engine defines the contract with the remote audio engine:
// search, per-guild player commands, and playback event callbacks.
// Decoding and streaming happen on the engine side; this package only
// carries commands and events.
package engine

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoResults is returned by Search when the query matches nothing.
	ErrNoResults = errors.New("no results found")
	// ErrNotConnected is returned by player commands when the guild has
	// no live engine connection.
	ErrNotConnected = errors.New("not connected to a voice channel")
)

// Track is a single playable item as reported by the engine.
type Track struct {
	ID          string // engine-encoded track identifier
	Title       string
	URI         string
	Artwork     string
	Length      time.Duration
	IsStream    bool
	RequesterID string // filled in client-side when enqueued
}

// Playlist is a multi-track search result.
type Playlist struct {
	Name   string
	Tracks []Track
}

// SearchResult is either a playlist or a flat list of tracks. Empty
// results are reported as ErrNoResults, never as a zero SearchResult.
type SearchResult struct {
	Playlist *Playlist
	Tracks   []Track
}

// Timescale is the pitch/speed/rate filter block.
type Timescale struct {
	Pitch float64 `json:"pitch"`
	Speed float64 `json:"speed"`
	Rate  float64 `json:"rate"`
}

// Filters is the filter spec sent to the engine. A nil Timescale means
// the filter is reset.
type Filters struct {
	Timescale *Timescale `json:"timescale,omitempty"`
}

// Player is the per-guild connection handle. All commands suspend on
// the engine round trip; state accessors answer from the last known
// client-side state.
type Player interface {
	GuildID() string
	ChannelID() string
	Queue() *Queue

	Play(ctx context.Context, track Track, volume int) error
	Pause(ctx context.Context, paused bool) error
	Seek(ctx context.Context, position time.Duration) error
	// Skip stops the current track; the engine answers with a track-end
	// event, which advances the queue.
	Skip(ctx context.Context, force bool) error
	SetFilters(ctx context.Context, f Filters) error
	Disconnect(ctx context.Context) error

	Playing() bool
	Paused() bool
	Current() *Track
	Position() time.Duration
	Filters() Filters
}

// Client is the engine connection shared by all guilds.
type Client interface {
	// Search resolves a query into a single track, a playlist, or
	// ErrNoResults.
	Search(ctx context.Context, query string) (*SearchResult, error)
	// Connect joins the given voice channel and returns the guild's
	// player handle, reusing an existing one when already connected.
	Connect(ctx context.Context, guildID, channelID string) (Player, error)
	// PlayerFor returns the live player for a guild, if any.
	PlayerFor(guildID string) (Player, bool)
	// AddHandler registers a playback event listener.
	AddHandler(h EventHandler)
}
