package engine

import "time"

// TrackStartEvent fires when the engine begins playing a track.
// Original carries the track as it was enqueued, before any engine-side
// resolution replaced it.
type TrackStartEvent struct {
	GuildID  string
	Track    Track
	Original *Track
}

// TrackEndEvent fires when a track finishes, is stopped, or is replaced.
type TrackEndEvent struct {
	GuildID string
	Track   Track
	Reason  string
}

// TrackExceptionEvent fires when the engine failed to play a track.
type TrackExceptionEvent struct {
	GuildID string
	Track   Track
	Message string
}

// TrackStuckEvent fires when the engine stopped receiving audio frames
// for longer than the threshold.
type TrackStuckEvent struct {
	GuildID   string
	Track     Track
	Threshold time.Duration
}

// EventHandler receives playback callbacks. Handlers run on the event
// socket's reader goroutine and must not block.
type EventHandler interface {
	OnTrackStart(e TrackStartEvent)
	OnTrackEnd(e TrackEndEvent)
	OnTrackException(e TrackExceptionEvent)
	OnTrackStuck(e TrackStuckEvent)
}
