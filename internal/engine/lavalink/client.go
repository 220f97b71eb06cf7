// Package lavalink implements the engine contract against a remote
// Lavalink v4 node: REST for search and player commands, a websocket
// for playback events. Voice credentials come from the Discord gateway
// and are forwarded in by the bot.
package lavalink

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"molten/internal/engine"
)

const clientName = "molten/1.0"

// Config is the node connection configuration.
type Config struct {
	Address  string // host:port
	Password string
	Secure   bool
}

// Client talks to one Lavalink node and owns the per-guild players.
type Client struct {
	cfg  Config
	http *http.Client

	// JoinVoice asks the Discord gateway to join (or, with an empty
	// channel id, leave) a voice channel. Set by the bot before Open.
	JoinVoice func(guildID, channelID string) error

	mu        sync.RWMutex
	sessionID string
	userID    string
	conn      *websocket.Conn
	closed    bool
	players   map[string]*player
	handlers  []engine.EventHandler
}

// redial backoff bounds.
const (
	redialBase = time.Second
	redialMax  = 30 * time.Second
	redialWait = 15 * time.Second
)

func New(cfg Config) *Client {
	return &Client{
		cfg:     cfg,
		http:    &http.Client{Timeout: 15 * time.Second},
		players: make(map[string]*player),
	}
}

// AddHandler registers a playback event listener.
func (c *Client) AddHandler(h engine.EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

func (c *Client) restURL(path string) string {
	scheme := "http"
	if c.cfg.Secure {
		scheme = "https"
	}
	return fmt.Sprintf("%s://%s/v4%s", scheme, c.cfg.Address, path)
}

// Open dials the node's event socket and starts the reader. userID is
// the bot's Discord user id, required by the node handshake. A socket
// from an earlier Open is closed first, so gateway reconnects never
// leak readers.
func (c *Client) Open(ctx context.Context, userID string) error {
	scheme := "ws"
	if c.cfg.Secure {
		scheme = "wss"
	}

	header := http.Header{}
	header.Set("Authorization", c.cfg.Password)
	header.Set("User-Id", userID)
	header.Set("Client-Name", clientName)

	conn, _, err := websocket.DefaultDialer.DialContext(
		ctx, fmt.Sprintf("%s://%s/v4/websocket", scheme, c.cfg.Address), header)
	if err != nil {
		return fmt.Errorf("failed to connect to audio engine node: %w", err)
	}

	c.mu.Lock()
	old := c.conn
	c.userID = userID
	c.conn = conn
	c.closed = false
	c.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	go c.readLoop(conn)
	return nil
}

// Close tears down the event socket and stops any redial attempts.
func (c *Client) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	if c.conn == nil {
		return nil
	}
	err := c.conn.Close()
	c.conn = nil
	return err
}

// nodeMessage is the envelope of every websocket payload.
type nodeMessage struct {
	Op        string          `json:"op"`
	SessionID string          `json:"sessionId"`
	Resumed   bool            `json:"resumed"`
	GuildID   string          `json:"guildId"`
	Type      string          `json:"type"`
	Track     *restTrack      `json:"track"`
	Reason    string          `json:"reason"`
	Message   string          `json:"message"`
	Exception *nodeException  `json:"exception"`
	Threshold int64           `json:"thresholdMs"`
	State     json.RawMessage `json:"state"`
}

type nodeException struct {
	Message  string `json:"message"`
	Severity string `json:"severity"`
}

type playerState struct {
	Position  int64 `json:"position"`
	Connected bool  `json:"connected"`
}

func (c *Client) readLoop(conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			c.mu.RLock()
			current := c.conn == conn && !c.closed
			c.mu.RUnlock()
			if current {
				log.Printf("[Engine] Event socket lost, reconnecting: %v", err)
				go c.redial()
			}
			return
		}

		var msg nodeMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			log.Printf("[Engine] Malformed node payload: %v", err)
			continue
		}

		switch msg.Op {
		case "ready":
			c.mu.Lock()
			c.sessionID = msg.SessionID
			c.mu.Unlock()
			log.Printf("[Engine] Node ready | session=%s resumed=%v", msg.SessionID, msg.Resumed)
		case "playerUpdate":
			c.handlePlayerUpdate(msg)
		case "event":
			c.handleEvent(msg)
		}
	}
}

// redial re-establishes the event socket after a drop, backing off
// exponentially between attempts. It gives up once Close has been
// called.
func (c *Client) redial() {
	backoff := redialBase
	for {
		c.mu.RLock()
		closed := c.closed
		userID := c.userID
		c.mu.RUnlock()
		if closed {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), redialWait)
		err := c.Open(ctx, userID)
		cancel()
		if err == nil {
			log.Printf("[Engine] Event socket reconnected")
			return
		}

		log.Printf("[Engine] Reconnect failed, retrying in %s: %v", backoff, err)
		time.Sleep(backoff)
		backoff *= 2
		if backoff > redialMax {
			backoff = redialMax
		}
	}
}

func (c *Client) handlePlayerUpdate(msg nodeMessage) {
	p, ok := c.playerByGuild(msg.GuildID)
	if !ok {
		return
	}
	var st playerState
	if err := json.Unmarshal(msg.State, &st); err != nil {
		return
	}
	p.syncPosition(time.Duration(st.Position) * time.Millisecond)
}

func (c *Client) handleEvent(msg nodeMessage) {
	p, ok := c.playerByGuild(msg.GuildID)
	if !ok {
		return
	}

	var track engine.Track
	if msg.Track != nil {
		track = msg.Track.toEngine()
	}

	switch msg.Type {
	case "TrackStartEvent":
		original := p.markStarted(track)
		for _, h := range c.snapshotHandlers() {
			h.OnTrackStart(engine.TrackStartEvent{GuildID: msg.GuildID, Track: track, Original: original})
		}
	case "TrackEndEvent":
		p.markEnded()
		// The queue advances on every natural end; a replaced track
		// means another play command is already in flight.
		if msg.Reason != "replaced" {
			if err := p.playNextQueued(); err != nil {
				log.Printf("[Engine] Failed to advance queue for guild %s: %v", msg.GuildID, err)
			}
		}
		for _, h := range c.snapshotHandlers() {
			h.OnTrackEnd(engine.TrackEndEvent{GuildID: msg.GuildID, Track: track, Reason: msg.Reason})
		}
	case "TrackExceptionEvent":
		reason := msg.Message
		if msg.Exception != nil {
			reason = msg.Exception.Message
		}
		for _, h := range c.snapshotHandlers() {
			h.OnTrackException(engine.TrackExceptionEvent{GuildID: msg.GuildID, Track: track, Message: reason})
		}
	case "TrackStuckEvent":
		for _, h := range c.snapshotHandlers() {
			h.OnTrackStuck(engine.TrackStuckEvent{
				GuildID:   msg.GuildID,
				Track:     track,
				Threshold: time.Duration(msg.Threshold) * time.Millisecond,
			})
		}
	}
}

func (c *Client) snapshotHandlers() []engine.EventHandler {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]engine.EventHandler(nil), c.handlers...)
}

func (c *Client) playerByGuild(guildID string) (*player, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.players[guildID]
	return p, ok
}

// PlayerFor returns the live player handle for a guild, if any.
func (c *Client) PlayerFor(guildID string) (engine.Player, bool) {
	p, ok := c.playerByGuild(guildID)
	if !ok {
		return nil, false
	}
	return p, true
}

// Connect joins the voice channel and returns the guild's player,
// reusing the existing one when already connected. It waits for the
// gateway to deliver voice credentials before creating the player on
// the node.
func (c *Client) Connect(ctx context.Context, guildID, channelID string) (engine.Player, error) {
	c.mu.Lock()
	p, ok := c.players[guildID]
	if !ok {
		p = newPlayer(c, guildID)
		c.players[guildID] = p
	}
	c.mu.Unlock()

	if ok && p.ChannelID() == channelID && p.voiceReadyNow() {
		return p, nil
	}

	p.setChannel(channelID)

	if c.JoinVoice == nil {
		return nil, fmt.Errorf("no gateway voice join configured")
	}
	if err := c.JoinVoice(guildID, channelID); err != nil {
		return nil, fmt.Errorf("failed to join voice channel: %w", err)
	}

	if err := p.waitVoiceReady(ctx); err != nil {
		return nil, fmt.Errorf("voice connection not established: %w", err)
	}
	if err := p.pushVoice(ctx); err != nil {
		return nil, err
	}
	return p, nil
}

// removePlayer drops the guild's player after a disconnect.
func (c *Client) removePlayer(guildID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.players, guildID)
}

// --- Voice credential forwarding (called from the gateway handlers) ---

// HandleVoiceServerUpdate feeds the engine the token/endpoint pair the
// Discord gateway handed out for a guild.
func (c *Client) HandleVoiceServerUpdate(guildID, token, endpoint string) {
	if p, ok := c.playerByGuild(guildID); ok {
		p.setVoiceServer(token, endpoint)
	}
}

// HandleVoiceStateUpdate feeds the engine the bot's own voice session
// id. An empty channel id means the bot left the channel.
func (c *Client) HandleVoiceStateUpdate(guildID, channelID, sessionID string) {
	if p, ok := c.playerByGuild(guildID); ok {
		p.setVoiceSession(channelID, sessionID)
	}
}

// --- Search ---

type loadResult struct {
	LoadType string          `json:"loadType"`
	Data     json.RawMessage `json:"data"`
}

type restPlaylist struct {
	Info struct {
		Name string `json:"name"`
	} `json:"info"`
	Tracks []restTrack `json:"tracks"`
}

type restTrack struct {
	Encoded string `json:"encoded"`
	Info    struct {
		Title      string `json:"title"`
		URI        string `json:"uri"`
		ArtworkURL string `json:"artworkUrl"`
		Length     int64  `json:"length"`
		IsStream   bool   `json:"isStream"`
	} `json:"info"`
}

func (t restTrack) toEngine() engine.Track {
	return engine.Track{
		ID:       t.Encoded,
		Title:    t.Info.Title,
		URI:      t.Info.URI,
		Artwork:  t.Info.ArtworkURL,
		Length:   time.Duration(t.Info.Length) * time.Millisecond,
		IsStream: t.Info.IsStream,
	}
}

// Search resolves a query against the node. Bare text is searched on
// YouTube; URLs are loaded directly.
func (c *Client) Search(ctx context.Context, query string) (*engine.SearchResult, error) {
	identifier := query
	if !strings.HasPrefix(query, "http://") && !strings.HasPrefix(query, "https://") {
		identifier = "ytsearch:" + query
	}

	var result loadResult
	path := "/loadtracks?identifier=" + url.QueryEscape(identifier)
	if err := c.rest(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}

	switch result.LoadType {
	case "track":
		var t restTrack
		if err := json.Unmarshal(result.Data, &t); err != nil {
			return nil, fmt.Errorf("malformed track result: %w", err)
		}
		return &engine.SearchResult{Tracks: []engine.Track{t.toEngine()}}, nil
	case "search":
		var tracks []restTrack
		if err := json.Unmarshal(result.Data, &tracks); err != nil {
			return nil, fmt.Errorf("malformed search result: %w", err)
		}
		if len(tracks) == 0 {
			return nil, engine.ErrNoResults
		}
		out := make([]engine.Track, len(tracks))
		for i, t := range tracks {
			out[i] = t.toEngine()
		}
		return &engine.SearchResult{Tracks: out}, nil
	case "playlist":
		var pl restPlaylist
		if err := json.Unmarshal(result.Data, &pl); err != nil {
			return nil, fmt.Errorf("malformed playlist result: %w", err)
		}
		if len(pl.Tracks) == 0 {
			return nil, engine.ErrNoResults
		}
		tracks := make([]engine.Track, len(pl.Tracks))
		for i, t := range pl.Tracks {
			tracks[i] = t.toEngine()
		}
		return &engine.SearchResult{Playlist: &engine.Playlist{Name: pl.Info.Name, Tracks: tracks}}, nil
	case "empty":
		return nil, engine.ErrNoResults
	default:
		return nil, fmt.Errorf("track load failed: %s", result.LoadType)
	}
}

// rest performs a node REST call, decoding the response into out when
// non-nil.
func (c *Client) rest(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.restURL(path), body)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", c.cfg.Password)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("audio engine request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("audio engine returned %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (c *Client) currentSessionID() (string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.sessionID == "" {
		return "", fmt.Errorf("audio engine session not ready")
	}
	return c.sessionID, nil
}
