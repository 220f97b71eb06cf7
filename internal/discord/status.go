package discord

import (
	"log"
	"time"

	"github.com/bwmarrin/discordgo"

	"molten/internal/engine"
	"molten/internal/session"
	"molten/internal/storage"
)

// staleAfter is how old a status message may grow before editing it in
// place is abandoned in favor of delete+send. Editing very old messages
// is unreliable on the platform; one extra round trip buys guaranteed
// freshness.
const staleAfter = time.Hour

// transport is the slice of the chat API the reconciler needs.
// *discordgo.Session satisfies it; tests use a fake.
type transport interface {
	ChannelMessage(channelID, messageID string, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageEditComplex(m *discordgo.MessageEdit, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	ChannelMessageDelete(channelID, messageID string, options ...discordgo.RequestOption) error
}

// Reconciler keeps the single status document per guild consistent
// with the latest known playback state. Render failures are logged and
// swallowed: a broken status update must never fail the action that
// triggered it.
type Reconciler struct {
	tp     transport
	store  *storage.Storage
	embeds EmbedFactory
}

func NewReconciler(tp transport, store *storage.Storage, embeds EmbedFactory) *Reconciler {
	return &Reconciler{tp: tp, store: store, embeds: embeds}
}

// Render updates the guild's status document. A nil embed reuses the
// current document content (fetched if needed) or falls back to the
// default; nil components are recomputed fresh from player state.
// Guilds without a configured document location are a no-op.
func (r *Reconciler) Render(sess *session.Session, player engine.Player, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) {
	channelID, messageID := sess.StatusLocation()
	if channelID == "" || messageID == "" {
		return
	}

	if components == nil {
		components = controlComponents(player)
	}
	if embed == nil {
		embed = r.currentEmbed(sess, channelID, messageID)
	}

	if note := sess.LatestAction(); note != nil && note.Text != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: note.Text}
	}

	newID, edited := r.updateOrReplace(sess, channelID, messageID, embed, components)
	if newID == "" {
		// Update failed outright; keep the note for the next attempt.
		return
	}

	if newID != messageID {
		sess.SetMessageID(newID)
	}
	sess.ConsumeAction()

	// An edit that succeeded against an old message flags it so the
	// next render replaces it instead.
	if edited && messageAge(messageID) > staleAfter {
		sess.FlagReplace()
	}

	go r.persist(sess)
}

// currentEmbed resolves the embed to carry forward: the cached
// document's embed, a freshly fetched one, or the default.
func (r *Reconciler) currentEmbed(sess *session.Session, channelID, messageID string) *discordgo.MessageEmbed {
	msg := sess.CachedMessage()
	if msg == nil {
		fetched, err := r.tp.ChannelMessage(channelID, messageID)
		if err != nil {
			log.Printf("[WARN] Could not fetch status message for guild %s: %v", sess.GuildID, err)
			return r.embeds.Default()
		}
		sess.SetCachedMessage(fetched)
		msg = fetched
	}

	if len(msg.Embeds) > 0 {
		return msg.Embeds[0]
	}
	return r.embeds.Default()
}

// updateOrReplace edits the document in place when possible, and
// otherwise (replacement flagged, or message gone) sends a fresh one
// and adopts its id. Returns the live message id and whether an
// in-place edit happened; an empty id means the render failed entirely.
func (r *Reconciler) updateOrReplace(sess *session.Session, channelID, messageID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) (string, bool) {
	if sess.TakeReplaceFlag() {
		if err := r.tp.ChannelMessageDelete(channelID, messageID); err != nil {
			log.Printf("[WARN] Could not delete stale status message for guild %s: %v", sess.GuildID, err)
		}
		return r.sendFresh(sess, channelID, embed, components), false
	}

	edited, err := r.tp.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    channelID,
		ID:         messageID,
		Embeds:     &[]*discordgo.MessageEmbed{embed},
		Components: &components,
	})
	if err == nil {
		sess.SetCachedMessage(edited)
		return messageID, true
	}

	// The stored id no longer resolves (deleted externally, or the
	// cache pointed at a dead message). Self-heal with a new document.
	log.Printf("[WARN] Could not edit status message for guild %s: %v", sess.GuildID, err)
	sess.SetCachedMessage(nil)
	return r.sendFresh(sess, channelID, embed, components), false
}

func (r *Reconciler) sendFresh(sess *session.Session, channelID string, embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) string {
	msg, err := r.tp.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: components,
	})
	if err != nil {
		log.Printf("[ERR] Could not send status message for guild %s: %v", sess.GuildID, err)
		return ""
	}
	sess.SetCachedMessage(msg)
	return msg.ID
}

// persist writes the session's durable fields, including a possibly
// updated message id. Best effort.
func (r *Reconciler) persist(sess *session.Session) {
	channelID, messageID := sess.StatusLocation()
	r.store.SetGuild(sess.GuildID, storage.Record{
		ChannelID: channelID,
		MessageID: messageID,
		DJRoleID:  sess.DJRoleID(),
		Stay247:   sess.Stay247(),
	})
}

// messageAge derives the message creation time from its snowflake id.
func messageAge(messageID string) time.Duration {
	created, err := discordgo.SnowflakeTimestamp(messageID)
	if err != nil {
		return 0
	}
	return time.Since(created)
}
