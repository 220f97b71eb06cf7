package lavalink

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"molten/internal/engine"
)

// player is the per-guild engine connection handle. Command methods do
// a REST round trip to the node; state accessors answer from the last
// state the node reported.
type player struct {
	client  *Client
	guildID string

	queue *engine.Queue

	mu         sync.Mutex
	channelID  string
	current    *engine.Track
	playing    bool
	paused     bool
	volume     int
	filters    engine.Filters
	position   time.Duration
	positionAt time.Time

	voiceToken     string
	voiceEndpoint  string
	voiceSessionID string
	voiceReady     chan struct{}
}

func newPlayer(c *Client, guildID string) *player {
	return &player{
		client:     c,
		queue:      engine.NewQueue(),
		voiceReady: make(chan struct{}),
		guildID:    guildID,
	}
}

func (p *player) GuildID() string { return p.guildID }

func (p *player) ChannelID() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.channelID
}

func (p *player) Queue() *engine.Queue { return p.queue }

func (p *player) setChannel(channelID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID = channelID
}

// --- Voice credential plumbing ---

func (p *player) setVoiceServer(token, endpoint string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.voiceToken = token
	p.voiceEndpoint = endpoint
	p.signalVoiceLocked()
}

func (p *player) setVoiceSession(channelID, sessionID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.channelID = channelID
	p.voiceSessionID = sessionID
	p.signalVoiceLocked()
}

func (p *player) signalVoiceLocked() {
	if p.voiceToken != "" && p.voiceEndpoint != "" && p.voiceSessionID != "" {
		select {
		case <-p.voiceReady:
		default:
			close(p.voiceReady)
		}
	}
}

func (p *player) voiceReadyNow() bool {
	select {
	case <-p.voiceReady:
		return true
	default:
		return false
	}
}

func (p *player) waitVoiceReady(ctx context.Context) error {
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}
	select {
	case <-p.voiceReady:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// --- Engine commands ---

// updatePayload is the body of a player update REST call. Pointer
// fields are omitted unless set, so each command only touches the state
// it means to change.
type updatePayload struct {
	Track    *trackUpdate    `json:"track,omitempty"`
	Position *int64          `json:"position,omitempty"`
	Volume   *int            `json:"volume,omitempty"`
	Paused   *bool           `json:"paused,omitempty"`
	Filters  *engine.Filters `json:"filters,omitempty"`
	Voice    *voiceUpdate    `json:"voice,omitempty"`
}

type trackUpdate struct {
	Encoded *string `json:"encoded"`
}

type voiceUpdate struct {
	Token     string `json:"token"`
	Endpoint  string `json:"endpoint"`
	SessionID string `json:"sessionId"`
}

func (p *player) update(ctx context.Context, payload updatePayload) error {
	sessionID, err := p.client.currentSessionID()
	if err != nil {
		return err
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	path := fmt.Sprintf("/sessions/%s/players/%s?noReplace=false", sessionID, p.guildID)
	return p.client.rest(ctx, http.MethodPatch, path, bytes.NewReader(body), nil)
}

// pushVoice sends the gateway voice credentials to the node, creating
// the server-side player.
func (p *player) pushVoice(ctx context.Context) error {
	p.mu.Lock()
	voice := &voiceUpdate{
		Token:     p.voiceToken,
		Endpoint:  p.voiceEndpoint,
		SessionID: p.voiceSessionID,
	}
	p.mu.Unlock()
	return p.update(ctx, updatePayload{Voice: voice})
}

func (p *player) Play(ctx context.Context, track engine.Track, volume int) error {
	encoded := track.ID
	payload := updatePayload{Track: &trackUpdate{Encoded: &encoded}}
	if volume > 0 {
		payload.Volume = &volume
	}
	if err := p.update(ctx, payload); err != nil {
		return err
	}

	p.mu.Lock()
	t := track
	p.current = &t
	p.playing = true
	p.paused = false
	if volume > 0 {
		p.volume = volume
	}
	p.position = 0
	p.positionAt = time.Now()
	p.mu.Unlock()
	return nil
}

// playNextQueued pops the queue and plays the next track. Called from
// the event loop when a track ends.
func (p *player) playNextQueued() error {
	next, ok := p.queue.Get()
	if !ok {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return p.Play(ctx, next, 0)
}

func (p *player) Pause(ctx context.Context, paused bool) error {
	if err := p.update(ctx, updatePayload{Paused: &paused}); err != nil {
		return err
	}
	p.mu.Lock()
	p.paused = paused
	p.mu.Unlock()
	return nil
}

func (p *player) Seek(ctx context.Context, position time.Duration) error {
	ms := position.Milliseconds()
	if err := p.update(ctx, updatePayload{Position: &ms}); err != nil {
		return err
	}
	p.mu.Lock()
	p.position = position
	p.positionAt = time.Now()
	p.mu.Unlock()
	return nil
}

func (p *player) Skip(ctx context.Context, force bool) error {
	// Setting a null track stops playback; the node answers with a
	// track-end event and the queue advances from there.
	return p.update(ctx, updatePayload{Track: &trackUpdate{Encoded: nil}})
}

func (p *player) SetFilters(ctx context.Context, f engine.Filters) error {
	if err := p.update(ctx, updatePayload{Filters: &f}); err != nil {
		return err
	}
	p.mu.Lock()
	p.filters = f
	p.mu.Unlock()
	return nil
}

func (p *player) Disconnect(ctx context.Context) error {
	sessionID, err := p.client.currentSessionID()
	if err == nil {
		path := fmt.Sprintf("/sessions/%s/players/%s", sessionID, p.guildID)
		if rerr := p.client.rest(ctx, http.MethodDelete, path, nil, nil); rerr != nil {
			err = rerr
		}
	}

	if p.client.JoinVoice != nil {
		if lerr := p.client.JoinVoice(p.guildID, ""); lerr != nil && err == nil {
			err = lerr
		}
	}

	p.client.removePlayer(p.guildID)

	p.mu.Lock()
	p.playing = false
	p.current = nil
	p.channelID = ""
	p.mu.Unlock()
	p.queue.Clear()
	return err
}

// --- State accessors ---

func (p *player) Playing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *player) Paused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.paused
}

func (p *player) Current() *engine.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.current == nil {
		return nil
	}
	t := *p.current
	return &t
}

// Position extrapolates from the last node report so seeks and reads
// between updates stay roughly accurate.
func (p *player) Position() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.playing || p.positionAt.IsZero() {
		return p.position
	}
	if p.paused {
		return p.position
	}
	return p.position + time.Since(p.positionAt)
}

func (p *player) Filters() engine.Filters {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filters
}

func (p *player) syncPosition(pos time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.position = pos
	p.positionAt = time.Now()
}

// markStarted records the track the node started and returns the
// previously tracked one, if the start replaced it.
func (p *player) markStarted(track engine.Track) *engine.Track {
	p.mu.Lock()
	defer p.mu.Unlock()
	original := p.current
	t := track
	if original != nil {
		t.RequesterID = original.RequesterID
	}
	p.current = &t
	p.playing = true
	p.paused = false
	p.position = 0
	p.positionAt = time.Now()
	return original
}

func (p *player) markEnded() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.current = nil
	p.position = 0
	p.positionAt = time.Time{}
}
