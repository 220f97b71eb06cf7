package discord

import (
	"fmt"
	"log"

	"github.com/bwmarrin/discordgo"

	"molten/internal/session"
	"molten/internal/storage"
)

const (
	setupChannelName  = "🎧song-requests"
	setupChannelTopic = "Type a song name or link here to play it. Slash commands work too."
	// Slowmode keeps request spam from racing the implicit-play handler.
	setupSlowmodeSeconds = 2

	djRoleName = "Molten_DJ"
)

// guildManager is the slice of the Discord REST API the setup and DJ
// lifecycle needs. The gateway session backs it in production; tests
// use a fake.
type guildManager interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
}

// CreateSetupChannel provisions the guild's request channel with the
// status document pinned at the bottom, replacing any previously stored
// location. Returns a user-facing result string.
func (b *Bot) CreateSetupChannel(guildID string) string {
	sess := b.sessions.GetOrCreate(guildID)

	channel, err := b.guild.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:             setupChannelName,
		Type:             discordgo.ChannelTypeGuildText,
		Topic:            setupChannelTopic,
		RateLimitPerUser: setupSlowmodeSeconds,
	})
	if err != nil {
		log.Printf("[ERR] Could not create setup channel for guild %s: %v", guildID, err)
		return "🚫 Could not create the request channel. Do I have **Manage Channels**?"
	}

	msg, err := b.guild.ChannelMessageSendComplex(channel.ID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{b.embeds.Default()},
		Components: disabledControls(),
	})
	if err != nil {
		log.Printf("[ERR] Could not send status message for guild %s: %v", guildID, err)
		return "🚫 Created the channel, but could not post the status message."
	}

	sess.SetStatusLocation(channel.ID, msg.ID)
	sess.SetCachedMessage(msg)
	b.persistSession(sess)

	// DJ-restricted guilds keep the channel hidden from everyone else.
	if roleID := sess.DJRoleID(); roleID != "" {
		b.restrictChannel(guildID, channel.ID, roleID)
	}

	return fmt.Sprintf("✅ Setup complete! Head over to <#%s> to request songs.", channel.ID)
}

// CreateDJRole creates the DJ role and hides the request channel from
// members without it.
func (b *Bot) CreateDJRole(guildID string) string {
	sess := b.sessions.GetOrCreate(guildID)
	if sess.DJRoleID() != "" {
		return fmt.Sprintf("A DJ role already exists: <@&%s>.", sess.DJRoleID())
	}

	mentionable := true
	role, err := b.guild.GuildRoleCreate(guildID, &discordgo.RoleParams{
		Name:        djRoleName,
		Mentionable: &mentionable,
	})
	if err != nil {
		log.Printf("[ERR] Could not create DJ role for guild %s: %v", guildID, err)
		return "🚫 Could not create the DJ role. Do I have **Manage Roles**?"
	}

	sess.SetDJRoleID(role.ID)
	b.persistSession(sess)

	if channelID, _ := sess.StatusLocation(); channelID != "" {
		b.restrictChannel(guildID, channelID, role.ID)
	}

	return fmt.Sprintf("✅ Created the <@&%s> role. Music commands and the request channel are now DJ-only.", role.ID)
}

// RemoveDJRole deletes the DJ role and restores channel visibility.
func (b *Bot) RemoveDJRole(guildID string) string {
	sess := b.sessions.GetOrCreate(guildID)
	roleID := sess.DJRoleID()
	if roleID == "" {
		return "No DJ role is configured."
	}

	if err := b.guild.GuildRoleDelete(guildID, roleID); err != nil {
		log.Printf("[WARN] Could not delete DJ role %s in guild %s: %v", roleID, guildID, err)
	}

	sess.SetDJRoleID("")
	b.persistSession(sess)

	if channelID, _ := sess.StatusLocation(); channelID != "" {
		if err := b.guild.ChannelPermissionDelete(channelID, guildID); err != nil {
			log.Printf("[WARN] Could not restore channel visibility in guild %s: %v", guildID, err)
		}
		if err := b.guild.ChannelPermissionDelete(channelID, roleID); err != nil {
			log.Printf("[WARN] Could not drop DJ overwrite in guild %s: %v", guildID, err)
		}
	}

	return "✅ Removed the DJ role. Music commands are open to everyone again."
}

// restrictChannel hides channelID from @everyone and grants the DJ role
// view access. The @everyone role id equals the guild id.
func (b *Bot) restrictChannel(guildID, channelID, roleID string) {
	if err := b.guild.ChannelPermissionSet(channelID, guildID, discordgo.PermissionOverwriteTypeRole, 0, discordgo.PermissionViewChannel); err != nil {
		log.Printf("[WARN] Could not hide channel %s in guild %s: %v", channelID, guildID, err)
	}
	if err := b.guild.ChannelPermissionSet(channelID, roleID, discordgo.PermissionOverwriteTypeRole, discordgo.PermissionViewChannel, 0); err != nil {
		log.Printf("[WARN] Could not grant DJ access to channel %s in guild %s: %v", channelID, guildID, err)
	}
}

// persistSession writes the session's durable fields.
func (b *Bot) persistSession(sess *session.Session) {
	channelID, messageID := sess.StatusLocation()
	b.store.SetGuild(sess.GuildID, storage.Record{
		ChannelID: channelID,
		MessageID: messageID,
		DJRoleID:  sess.DJRoleID(),
		Stay247:   sess.Stay247(),
	})
}
