package discord

import (
	"context"
	"fmt"
	"log"
	"time"

	"molten/internal/command"
	"molten/internal/engine"
	"molten/internal/session"
	"molten/internal/storage"
)

// Gate hold windows per operation. The window bounds how long a guild
// stays closed to new mutating actions, not how long the action runs.
const (
	holdPlay       = 100 * time.Millisecond
	holdForward    = 500 * time.Millisecond
	holdShuffle    = 500 * time.Millisecond
	holdFilter     = 500 * time.Millisecond
	holdStop       = time.Second
	holdSkip       = time.Second
	holdToggle     = time.Second
	holdDisconnect = time.Second
)

// settleDelay is the pause between enqueueing into an idle player and
// dequeueing the first track, giving a burst of adds a chance to land
// in order.
const settleDelay = 200 * time.Millisecond

const busyText = "⏳ Too many actions at once—please wait a moment."

// Facade translates validated user intents into engine commands and
// keeps the session annotations in sync. Every operation returns a
// user-facing Response and never propagates errors upward: gate
// rejections and precondition failures are user-visible but not logged
// as errors, upstream failures are logged with their cause and surface
// a generic message.
type Facade struct {
	engine   engine.Client
	sessions *session.Store
	status   *Reconciler
	store    *storage.Storage
	embeds   EmbedFactory
	volume   int

	// userVoiceChannel reports which voice channel a member occupies.
	// Injected by the bot (gateway state); faked in tests.
	userVoiceChannel func(guildID, userID string) (string, bool)

	// reapIdle re-evaluates the idle policy for a guild. Injected by
	// the bot; the 24/7 toggle triggers it immediately.
	reapIdle func(guildID string)
}

func NewFacade(
	eng engine.Client,
	sessions *session.Store,
	status *Reconciler,
	store *storage.Storage,
	embeds EmbedFactory,
	volume int,
	userVoiceChannel func(guildID, userID string) (string, bool),
) *Facade {
	return &Facade{
		engine:           eng,
		sessions:         sessions,
		status:           status,
		store:            store,
		embeds:           embeds,
		volume:           volume,
		userVoiceChannel: userVoiceChannel,
		reapIdle:         func(string) {},
	}
}

// SetIdleReaper wires the idle policy trigger. Called once by the bot.
func (f *Facade) SetIdleReaper(fn func(guildID string)) {
	f.reapIdle = fn
}

// gated admits fn through the guild's action gate or rejects with the
// busy message. The voice precondition runs inside the gated section so
// check-then-connect cannot interleave with another admitted action.
func (f *Facade) gated(sess *session.Session, hold time.Duration, fn func() command.Response) command.Response {
	var resp command.Response
	err := sess.Gate.Run(hold, func() error {
		resp = fn()
		return nil
	})
	if err != nil {
		return command.Failure(busyText)
	}
	return resp
}

// voicePrecheck verifies the user is in a voice channel and, when the
// bot is already connected, in the same one. Returns the user's channel
// id on success.
func (f *Facade) voicePrecheck(guildID string, user command.User) (string, command.Response) {
	channelID, ok := f.userVoiceChannel(guildID, user.ID)
	if !ok || channelID == "" {
		return "", command.Failure("🚫 You must join a voice channel first.")
	}
	if player, ok := f.engine.PlayerFor(guildID); ok && player.ChannelID() != "" && player.ChannelID() != channelID {
		return "", command.Failure(fmt.Sprintf("🚫 You must be in the same voice channel as the bot (<#%s>).", player.ChannelID()))
	}
	return channelID, command.Response{OK: true}
}

// Play searches for the query (concurrently with connecting, when not
// yet connected), enqueues the result, and starts playback if idle.
func (f *Facade) Play(ctx context.Context, guildID string, user command.User, query string) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdPlay, func() command.Response {
		voiceChannelID, resp := f.voicePrecheck(guildID, user)
		if !resp.OK {
			return resp
		}

		type searchResult struct {
			res *engine.SearchResult
			err error
		}
		searchCh := make(chan searchResult, 1)
		go func() {
			res, err := f.engine.Search(ctx, query)
			searchCh <- searchResult{res, err}
		}()

		player, connected := f.engine.PlayerFor(guildID)
		if !connected {
			var err error
			player, err = f.engine.Connect(ctx, guildID, voiceChannelID)
			if err != nil {
				log.Printf("[ERR] Voice connection failed for guild %s: %v", guildID, err)
				return command.Failure("🚫 Could not join your voice channel.")
			}
		}

		search := <-searchCh
		if search.err != nil {
			if search.err == engine.ErrNoResults {
				return command.Failure("❌ No results found for that query.")
			}
			log.Printf("[ERR] Search failed for %q: %v", query, search.err)
			return command.Failure("🔍 Could not search for that track.")
		}

		var msg string
		if pl := search.res.Playlist; pl != nil {
			first := pl.Tracks[0]
			first.RequesterID = user.ID
			player.Queue().Put(first)
			msg = fmt.Sprintf("Added playlist **`%s`** to the queue.", pl.Name)

			rest := pl.Tracks[1:]
			go func() {
				for _, t := range rest {
					t.RequesterID = user.ID
					player.Queue().Put(t)
				}
			}()
		} else {
			track := search.res.Tracks[0]
			track.RequesterID = user.ID
			player.Queue().Put(track)
			msg = fmt.Sprintf("Added **`%s`** to the queue.", track.Title)
		}

		if !player.Playing() {
			time.Sleep(settleDelay)
			if next, ok := player.Queue().Get(); ok {
				if err := player.Play(ctx, next, f.volume); err != nil {
					log.Printf("[ERR] Failed to start playback for guild %s: %v", guildID, err)
					return command.Failure("🚫 Failed to start playback.")
				}
			}
		}

		go f.status.Render(sess, player, nil, nil)
		return command.Success(msg)
	})
}

// Stop clears the queue and skips the current track; the track-end
// callback resets the status document.
func (f *Facade) Stop(ctx context.Context, guildID string, user command.User) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdStop, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok {
			return command.Failure("No active player.")
		}

		sess.SetLatestAction(fmt.Sprintf("Stopped by %s", user.DisplayName), true)
		player.Queue().Clear()
		if err := player.Skip(ctx, false); err != nil {
			log.Printf("[ERR] Stop failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to stop playback.")
		}
		return command.Success("Playback stopped and queue cleared.")
	})
}

// Skip drops count-1 queued tracks and force-skips the current one.
func (f *Facade) Skip(ctx context.Context, guildID string, user command.User, count int) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdSkip, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok || !player.Playing() {
			return command.Failure("No active player.")
		}
		if count < 1 {
			count = 1
		}
		if queued := player.Queue().Count(); count-1 > queued {
			return command.Failure(fmt.Sprintf("Cannot skip %d tracks; only %d in the queue.", count, queued))
		}

		for i := 0; i < count-1; i++ {
			if !player.Queue().Delete(0) {
				break
			}
		}

		sess.SetLatestAction(fmt.Sprintf("Skipped by %s", user.DisplayName), true)
		if err := player.Skip(ctx, true); err != nil {
			log.Printf("[ERR] Skip failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to skip.")
		}
		plural := ""
		if count > 1 {
			plural = "s"
		}
		return command.Success(fmt.Sprintf("⏭️ Skipped %d track%s.", count, plural))
	})
}

// TogglePause inverts the pause flag and re-renders immediately.
func (f *Facade) TogglePause(ctx context.Context, guildID string, user command.User) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdToggle, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok {
			return command.Failure("No active player.")
		}

		pausing := !player.Paused()
		if err := player.Pause(ctx, pausing); err != nil {
			log.Printf("[ERR] Pause toggle failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to toggle pause/resume.")
		}

		action := "Resumed"
		if pausing {
			action = "Paused"
		}
		sess.SetLatestAction(fmt.Sprintf("%s by %s", action, user.DisplayName), false)
		f.status.Render(sess, player, nil, nil)
		return command.Success(fmt.Sprintf("%s the current track.", action))
	})
}

// Disconnect drops the voice connection and renders the document with
// every control disabled. No voice precondition: anyone may send the
// bot home.
func (f *Facade) Disconnect(ctx context.Context, guildID string, user command.User) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdDisconnect, func() command.Response {
		player, ok := f.engine.PlayerFor(guildID)
		if !ok {
			return command.Failure("🚫 I'm not connected to any voice channel.")
		}

		sess.SetLatestAction(fmt.Sprintf("Disconnected by %s", user.DisplayName), false)
		if err := player.Disconnect(ctx); err != nil {
			log.Printf("[ERR] Disconnect failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to disconnect the player.")
		}

		f.status.Render(sess, nil, f.embeds.Default(), disabledControls())
		return command.Success("Disconnected the player.")
	})
}

// Shuffle reorders the queue in place.
func (f *Facade) Shuffle(ctx context.Context, guildID string, user command.User) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdShuffle, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok || player.Queue().IsEmpty() {
			return command.Failure("No active player or the queue is empty.")
		}

		player.Queue().Shuffle()
		sess.SetLatestAction(fmt.Sprintf("Shuffled by %s", user.DisplayName), false)
		f.status.Render(sess, player, nil, nil)
		return command.Success("The queue has been shuffled!")
	})
}

// Forward seeks ahead by the given number of seconds, refusing to seek
// past the end of the track.
func (f *Facade) Forward(ctx context.Context, guildID string, user command.User, seconds int) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdForward, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok || !player.Playing() {
			return command.Failure("No track is currently playing.")
		}
		track := player.Current()
		if track == nil {
			return command.Failure("No track is currently playing.")
		}

		newPos := player.Position() + time.Duration(seconds)*time.Second
		if !track.IsStream && newPos >= track.Length {
			return command.Failure("Cannot forward beyond the end of the track.")
		}

		if err := player.Seek(ctx, newPos); err != nil {
			log.Printf("[ERR] Seek failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to forward playback.")
		}
		sess.SetLatestAction(fmt.Sprintf("Forwarded %ds by %s", seconds, user.DisplayName), true)
		f.status.Render(sess, player, nil, nil)
		return command.Success(fmt.Sprintf("⏩ Forwarded %d seconds.", seconds))
	})
}

// nightcorePreset is the fixed timescale applied when the effect is on.
var nightcorePreset = engine.Timescale{Pitch: 1.2, Speed: 1.1, Rate: 1.0}

// Nightcore applies or resets the timescale preset. Applying the same
// state twice is a no-op on the engine side, so the toggle is
// idempotent.
func (f *Facade) Nightcore(ctx context.Context, guildID string, user command.User, enabled bool) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	return f.gated(sess, holdFilter, func() command.Response {
		if _, resp := f.voicePrecheck(guildID, user); !resp.OK {
			return resp
		}
		player, ok := f.engine.PlayerFor(guildID)
		if !ok {
			return command.Failure("No active player.")
		}

		filters := player.Filters()
		var msg string
		if enabled {
			preset := nightcorePreset
			filters.Timescale = &preset
			sess.SetLatestAction(fmt.Sprintf("Nightcore ON by %s", user.DisplayName), false)
			msg = "Nightcore effect enabled!"
		} else {
			filters.Timescale = nil
			sess.SetLatestAction(fmt.Sprintf("Nightcore OFF by %s", user.DisplayName), false)
			msg = "Nightcore effect disabled."
		}

		if err := player.SetFilters(ctx, filters); err != nil {
			log.Printf("[ERR] Filter update failed for guild %s: %v", guildID, err)
			return command.Failure("Failed to update filters.")
		}
		f.status.Render(sess, player, nil, nil)
		return command.Success(msg)
	})
}

// ToggleStay247 flips the 24/7 flag, persists it, and re-evaluates the
// idle policy right away. Ungated: it only touches settings.
func (f *Facade) ToggleStay247(ctx context.Context, guildID string, user command.User) command.Response {
	sess := f.sessions.GetOrCreate(guildID)
	enabled := sess.ToggleStay247()
	f.persist(sess)

	f.reapIdle(guildID)

	status := "disabled"
	if enabled {
		status = "enabled"
	}
	return command.Success(fmt.Sprintf("24/7 mode %s!", status))
}

// QueueTracks returns a snapshot of the guild's queue. Ungated:
// read-only.
func (f *Facade) QueueTracks(guildID string) []engine.Track {
	player, ok := f.engine.PlayerFor(guildID)
	if !ok {
		return nil
	}
	return player.Queue().Copy()
}

// DJRoleID exposes the configured DJ role to the command middleware.
func (f *Facade) DJRoleID(guildID string) string {
	return f.sessions.GetOrCreate(guildID).DJRoleID()
}

// persist writes the session's durable fields wholesale, best effort.
func (f *Facade) persist(sess *session.Session) {
	channelID, messageID := sess.StatusLocation()
	f.store.SetGuild(sess.GuildID, storage.Record{
		ChannelID: channelID,
		MessageID: messageID,
		DJRoleID:  sess.DJRoleID(),
		Stay247:   sess.Stay247(),
	})
}
