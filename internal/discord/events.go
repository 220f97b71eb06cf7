package discord

import (
	"context"
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
	"molten/internal/engine"
)

// requestDeleteDelay is how long a request-channel message survives
// before cleanup. The small delay lets the author see their message
// land before it vanishes.
const requestDeleteDelay = 200 * time.Millisecond

// --- Engine callbacks ---

// OnTrackStart renders the now-playing document. The original track
// carries the requester id the node's copy lost in transit.
func (b *Bot) OnTrackStart(e engine.TrackStartEvent) {
	sess := b.sessions.GetOrCreate(e.GuildID)
	sess.DropTransientAction()

	track := e.Track
	if e.Original != nil {
		track = *e.Original
	}

	player, _ := b.engine.PlayerFor(e.GuildID)
	b.status.Render(sess, player, b.embeds.NowPlaying(track), nil)
}

// OnTrackEnd resets the document once the queue drains; mid-queue ends
// are followed by a TrackStartEvent that renders the next track.
func (b *Bot) OnTrackEnd(e engine.TrackEndEvent) {
	player, ok := b.engine.PlayerFor(e.GuildID)
	if ok && (player.Playing() || !player.Queue().IsEmpty()) {
		return
	}

	sess := b.sessions.GetOrCreate(e.GuildID)
	b.status.Render(sess, nil, b.embeds.Default(), disabledControls())
}

// OnTrackException force-skips the broken track so the queue keeps
// moving. Users see the next track start, not the failure.
func (b *Bot) OnTrackException(e engine.TrackExceptionEvent) {
	log.Printf("[WARN] Track exception in guild %s (%s): %s", e.GuildID, e.Track.Title, e.Message)
	b.forceSkip(e.GuildID)
}

// OnTrackStuck behaves like an exception: log and move on.
func (b *Bot) OnTrackStuck(e engine.TrackStuckEvent) {
	log.Printf("[WARN] Track stuck in guild %s (%s) past %s", e.GuildID, e.Track.Title, e.Threshold)
	b.forceSkip(e.GuildID)
}

func (b *Bot) forceSkip(guildID string) {
	player, ok := b.engine.PlayerFor(guildID)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := player.Skip(ctx, true); err != nil {
		log.Printf("[ERR] Recovery skip failed for guild %s: %v", guildID, err)
	}
}

// --- Gateway events ---

// onVoiceServerUpdate forwards voice credentials to the engine.
func (b *Bot) onVoiceServerUpdate(s *discordgo.Session, e *discordgo.VoiceServerUpdate) {
	b.lava.HandleVoiceServerUpdate(e.GuildID, e.Token, e.Endpoint)
}

// onVoiceStateUpdate forwards the bot's own session id to the engine
// and re-evaluates the idle policy on every transition.
func (b *Bot) onVoiceStateUpdate(s *discordgo.Session, e *discordgo.VoiceStateUpdate) {
	if s.State.User != nil && e.UserID == s.State.User.ID {
		b.lava.HandleVoiceStateUpdate(e.GuildID, e.ChannelID, e.SessionID)
	}
	b.reapIdle(e.GuildID)
}

// reapIdle disconnects the player when only bots remain in its channel
// and 24/7 mode is off. Reacts to voice transitions and the 24/7
// toggle; never polls.
func (b *Bot) reapIdle(guildID string) {
	channelID := b.voice.BotChannel(guildID)
	if channelID == "" {
		return
	}

	sess := b.sessions.GetOrCreate(guildID)
	if sess.Stay247() {
		return
	}
	humans, ok := b.voice.Humans(guildID, channelID)
	if !ok || humans > 0 {
		return
	}

	player, ok := b.engine.PlayerFor(guildID)
	if !ok {
		return
	}

	log.Printf("[INFO] Voice channel empty, leaving guild %s", guildID)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := player.Disconnect(ctx); err != nil {
		log.Printf("[WARN] Idle disconnect failed for guild %s: %v", guildID, err)
		return
	}
	b.status.Render(sess, nil, b.embeds.Default(), disabledControls())
}

// onMessageCreate treats any plain message in the request channel as a
// play query and cleans it up shortly after.
func (b *Bot) onMessageCreate(s *discordgo.Session, e *discordgo.MessageCreate) {
	if e.Author == nil || e.Author.Bot || e.GuildID == "" || e.Content == "" {
		return
	}

	sess := b.sessions.GetOrCreate(e.GuildID)
	channelID, _ := sess.StatusLocation()
	if channelID == "" || e.ChannelID != channelID {
		return
	}

	go func() {
		time.Sleep(requestDeleteDelay)
		if err := s.ChannelMessageDelete(e.ChannelID, e.ID); err != nil {
			log.Printf("[WARN] Could not delete request message in guild %s: %v", e.GuildID, err)
		}
	}()

	user := messageUser(e)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	resp := b.Play(ctx, e.GuildID, user, e.Content)
	if !resp.OK {
		b.sendTransient(e.ChannelID, resp.Text)
	}
}

// messageUser derives the requesting member from a message event.
func messageUser(e *discordgo.MessageCreate) command.User {
	name := ""
	if e.Member != nil {
		name = e.Member.Nick
	}
	if name == "" {
		name = e.Author.GlobalName
	}
	if name == "" {
		name = e.Author.Username
	}
	return command.User{ID: e.Author.ID, DisplayName: name}
}

// sendTransient posts a short-lived feedback message. The request
// channel has no interaction to reply to, so errors show up inline and
// then disappear.
func (b *Bot) sendTransient(channelID, text string) {
	msg, err := b.dg.ChannelMessageSend(channelID, text)
	if err != nil {
		return
	}
	go func() {
		time.Sleep(5 * time.Second)
		_ = b.dg.ChannelMessageDelete(channelID, msg.ID)
	}()
}
