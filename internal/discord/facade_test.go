package discord

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molten/internal/command"
	"molten/internal/engine"
	"molten/internal/session"
	"molten/internal/storage"
)

// fakePlayer implements engine.Player with recorded calls.
type fakePlayer struct {
	guildID   string
	channelID string
	queue     *engine.Queue

	playing bool
	paused  bool
	current *engine.Track
	pos     time.Duration
	filters engine.Filters

	played       []engine.Track
	playVolume   int
	pausedWith   []bool
	soughtTo     []time.Duration
	skips        int
	skipForce    bool
	disconnected bool
}

func newFakePlayer(guildID, channelID string) *fakePlayer {
	return &fakePlayer{guildID: guildID, channelID: channelID, queue: engine.NewQueue()}
}

func (p *fakePlayer) GuildID() string      { return p.guildID }
func (p *fakePlayer) ChannelID() string    { return p.channelID }
func (p *fakePlayer) Queue() *engine.Queue { return p.queue }

func (p *fakePlayer) Play(ctx context.Context, track engine.Track, volume int) error {
	p.played = append(p.played, track)
	p.playVolume = volume
	p.playing = true
	p.current = &track
	return nil
}

func (p *fakePlayer) Pause(ctx context.Context, paused bool) error {
	p.pausedWith = append(p.pausedWith, paused)
	p.paused = paused
	return nil
}

func (p *fakePlayer) Seek(ctx context.Context, position time.Duration) error {
	p.soughtTo = append(p.soughtTo, position)
	return nil
}

func (p *fakePlayer) Skip(ctx context.Context, force bool) error {
	p.skips++
	p.skipForce = force
	return nil
}

func (p *fakePlayer) SetFilters(ctx context.Context, f engine.Filters) error {
	p.filters = f
	return nil
}

func (p *fakePlayer) Disconnect(ctx context.Context) error {
	p.disconnected = true
	return nil
}

func (p *fakePlayer) Playing() bool           { return p.playing }
func (p *fakePlayer) Paused() bool            { return p.paused }
func (p *fakePlayer) Current() *engine.Track  { return p.current }
func (p *fakePlayer) Position() time.Duration { return p.pos }
func (p *fakePlayer) Filters() engine.Filters { return p.filters }

// fakeClient implements engine.Client around a single fake player.
type fakeClient struct {
	player    *fakePlayer
	connected bool

	searchRes    *engine.SearchResult
	searchErr    error
	connectCalls int
}

func (c *fakeClient) Search(ctx context.Context, query string) (*engine.SearchResult, error) {
	return c.searchRes, c.searchErr
}

func (c *fakeClient) Connect(ctx context.Context, guildID, channelID string) (engine.Player, error) {
	c.connectCalls++
	c.connected = true
	c.player.channelID = channelID
	return c.player, nil
}

func (c *fakeClient) PlayerFor(guildID string) (engine.Player, bool) {
	if c.connected {
		return c.player, true
	}
	return nil, false
}

func (c *fakeClient) AddHandler(h engine.EventHandler) {}

func newTestFacade(t *testing.T, client *fakeClient) (*Facade, *session.Store, *storage.Storage) {
	t.Helper()
	store, err := storage.New(context.Background(), filepath.Join(t.TempDir(), "guilds.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	sessions := session.NewStore()
	status := NewReconciler(&fakeTransport{}, store, EmbedFactory{})
	f := NewFacade(client, sessions, status, store, EmbedFactory{}, 30,
		func(guildID, userID string) (string, bool) { return "vc", true })
	return f, sessions, store
}

var alice = command.User{ID: "u1", DisplayName: "Alice"}

func TestPlayEnqueuesAndStarts(t *testing.T) {
	client := &fakeClient{
		player: newFakePlayer("g", ""),
		searchRes: &engine.SearchResult{
			Tracks: []engine.Track{{ID: "t1", Title: "Song", Length: 3 * time.Minute}},
		},
	}
	f, _, _ := newTestFacade(t, client)

	resp := f.Play(context.Background(), "g", alice, "song")

	require.True(t, resp.OK, resp.Text)
	assert.Contains(t, resp.Text, "Song")
	assert.Equal(t, 1, client.connectCalls)

	require.Len(t, client.player.played, 1)
	assert.Equal(t, "u1", client.player.played[0].RequesterID)
	assert.Equal(t, 30, client.player.playVolume)
}

func TestPlayRequiresVoiceChannel(t *testing.T) {
	client := &fakeClient{player: newFakePlayer("g", "")}
	f, _, _ := newTestFacade(t, client)
	f.userVoiceChannel = func(guildID, userID string) (string, bool) { return "", false }

	resp := f.Play(context.Background(), "g", alice, "song")

	assert.False(t, resp.OK)
	assert.Zero(t, client.connectCalls)
}

func TestPlayRejectedWhileGateHeld(t *testing.T) {
	client := &fakeClient{player: newFakePlayer("g", "vc")}
	f, sessions, _ := newTestFacade(t, client)

	sess := sessions.GetOrCreate("g")
	require.True(t, sess.Gate.TryAcquire(time.Second))

	resp := f.Play(context.Background(), "g", alice, "song")

	assert.False(t, resp.OK)
	assert.Equal(t, busyText, resp.Text)
	assert.Zero(t, client.connectCalls)
}

func TestPlayRejectsDifferentVoiceChannel(t *testing.T) {
	client := &fakeClient{player: newFakePlayer("g", "other-vc"), connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Play(context.Background(), "g", alice, "song")

	assert.False(t, resp.OK)
	assert.Contains(t, resp.Text, "same voice channel")
}

func TestSkipCountExceedingQueueMutatesNothing(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.queue.Put(engine.Track{ID: "q1"})
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Skip(context.Background(), "g", alice, 3)

	assert.False(t, resp.OK)
	assert.Zero(t, player.skips, "precondition failure must not reach the engine")
	assert.Equal(t, 1, player.queue.Count(), "queue must be untouched")
}

func TestSkipDropsQueuedTracks(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	for _, id := range []string{"q1", "q2", "q3"} {
		player.queue.Put(engine.Track{ID: id})
	}
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Skip(context.Background(), "g", alice, 2)

	require.True(t, resp.OK, resp.Text)
	assert.Equal(t, 1, player.skips)
	assert.True(t, player.skipForce)
	assert.Equal(t, 2, player.queue.Count())

	next, ok := player.queue.Peek()
	require.True(t, ok)
	assert.Equal(t, "q2", next.ID, "skip 2 drops one queued track before the forced skip")
}

func TestStopClearsQueue(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.queue.Put(engine.Track{ID: "q1"})
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Stop(context.Background(), "g", alice)

	require.True(t, resp.OK, resp.Text)
	assert.True(t, player.queue.IsEmpty())
	assert.Equal(t, 1, player.skips)
	assert.False(t, player.skipForce)
}

func TestForwardPastEndRefused(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.current = &engine.Track{ID: "t", Length: 100 * time.Second}
	player.pos = 95 * time.Second
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Forward(context.Background(), "g", alice, 10)

	assert.False(t, resp.OK)
	assert.Empty(t, player.soughtTo, "refused forward must not seek")
}

func TestForwardSeeks(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.current = &engine.Track{ID: "t", Length: 100 * time.Second}
	player.pos = 10 * time.Second
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Forward(context.Background(), "g", alice, 30)

	require.True(t, resp.OK, resp.Text)
	require.Len(t, player.soughtTo, 1)
	assert.Equal(t, 40*time.Second, player.soughtTo[0])
}

func TestNightcoreToggle(t *testing.T) {
	player := newFakePlayer("g", "vc")
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Nightcore(context.Background(), "g", alice, true)
	require.True(t, resp.OK, resp.Text)
	require.NotNil(t, player.filters.Timescale)
	assert.Equal(t, 1.2, player.filters.Timescale.Pitch)
	assert.Equal(t, 1.1, player.filters.Timescale.Speed)
	assert.Equal(t, 1.0, player.filters.Timescale.Rate)

	// Disabling twice stays a no-op: the filter is simply absent.
	time.Sleep(600 * time.Millisecond) // let the gate window pass
	resp = f.Nightcore(context.Background(), "g", alice, false)
	require.True(t, resp.OK, resp.Text)
	assert.Nil(t, player.filters.Timescale)

	time.Sleep(600 * time.Millisecond)
	resp = f.Nightcore(context.Background(), "g", alice, false)
	require.True(t, resp.OK, resp.Text)
	assert.Nil(t, player.filters.Timescale)
}

func TestTogglePause(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.TogglePause(context.Background(), "g", alice)

	require.True(t, resp.OK, resp.Text)
	require.Len(t, player.pausedWith, 1)
	assert.True(t, player.pausedWith[0])
	assert.Contains(t, resp.Text, "Paused")
}

func TestDisconnect(t *testing.T) {
	player := newFakePlayer("g", "vc")
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Disconnect(context.Background(), "g", alice)

	require.True(t, resp.OK, resp.Text)
	assert.True(t, player.disconnected)
}

func TestDisconnectWithoutPlayer(t *testing.T) {
	client := &fakeClient{player: newFakePlayer("g", "")}
	f, _, _ := newTestFacade(t, client)

	resp := f.Disconnect(context.Background(), "g", alice)

	assert.False(t, resp.OK)
}

func TestShuffleRequiresQueuedTracks(t *testing.T) {
	player := newFakePlayer("g", "vc")
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	resp := f.Shuffle(context.Background(), "g", alice)

	assert.False(t, resp.OK)
}

func TestToggleStay247(t *testing.T) {
	client := &fakeClient{player: newFakePlayer("g", "vc")}
	f, sessions, store := newTestFacade(t, client)

	reaped := 0
	f.SetIdleReaper(func(guildID string) { reaped++ })

	resp := f.ToggleStay247(context.Background(), "g", alice)
	require.True(t, resp.OK)
	assert.Contains(t, resp.Text, "enabled")
	assert.True(t, sessions.GetOrCreate("g").Stay247())
	assert.Equal(t, 1, reaped, "toggling must re-evaluate the idle policy")

	rec, ok := store.Guild("g")
	require.True(t, ok)
	assert.True(t, rec.Stay247)

	resp = f.ToggleStay247(context.Background(), "g", alice)
	require.True(t, resp.OK)
	assert.Contains(t, resp.Text, "disabled")
	assert.False(t, sessions.GetOrCreate("g").Stay247())
}

func TestQueueTracksSnapshot(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.queue.Put(engine.Track{ID: "q1"})
	client := &fakeClient{player: player, connected: true}
	f, _, _ := newTestFacade(t, client)

	tracks := f.QueueTracks("g")
	require.Len(t, tracks, 1)

	player.queue.Clear()
	assert.Len(t, tracks, 1, "snapshot must not alias the live queue")

	client.connected = false
	assert.Nil(t, f.QueueTracks("g"))
}
