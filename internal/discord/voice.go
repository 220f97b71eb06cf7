package discord

import (
	"github.com/bwmarrin/discordgo"
)

// occupancy answers voice-channel occupancy questions for the idle
// policy. The gateway state cache backs it in production; tests use a
// fake.
type occupancy interface {
	// BotChannel reports which voice channel the bot occupies in the
	// guild, empty when disconnected.
	BotChannel(guildID string) string
	// Humans counts non-bot members in a voice channel, excluding the
	// bot itself. ok is false when the guild cannot be resolved at all;
	// the idle policy must treat that as unknown, never as empty.
	Humans(guildID, channelID string) (count int, ok bool)
}

// gatewayOccupancy reads occupancy from the discordgo state cache.
type gatewayOccupancy struct {
	dg *discordgo.Session
}

func (g gatewayOccupancy) BotChannel(guildID string) string {
	s := g.dg
	if s.State == nil || s.State.User == nil {
		return ""
	}
	vs, err := s.State.VoiceState(guildID, s.State.User.ID)
	if err != nil || vs == nil {
		return ""
	}
	return vs.ChannelID
}

func (g gatewayOccupancy) Humans(guildID, channelID string) (int, bool) {
	s := g.dg
	guild, err := s.State.Guild(guildID)
	if err != nil {
		return 0, false
	}
	count := 0
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != channelID {
			continue
		}
		if s.State.User != nil && vs.UserID == s.State.User.ID {
			continue
		}
		// A member the cache cannot resolve counts as human, so a cold
		// cache never triggers a disconnect.
		member, err := s.State.Member(guildID, vs.UserID)
		if err == nil && member.User != nil && member.User.Bot {
			continue
		}
		count++
	}
	return count, true
}

// userVoiceChannel resolves a member's current voice channel from the
// gateway state cache, falling back to the REST guild fetch when the
// cache has no entry yet.
func userVoiceChannel(s *discordgo.Session, guildID, userID string) (string, bool) {
	if vs, err := s.State.VoiceState(guildID, userID); err == nil && vs != nil {
		return vs.ChannelID, vs.ChannelID != ""
	}

	guild, err := s.State.Guild(guildID)
	if err != nil {
		guild, err = s.Guild(guildID)
		if err != nil {
			return "", false
		}
	}
	for _, vs := range guild.VoiceStates {
		if vs.UserID == userID {
			return vs.ChannelID, vs.ChannelID != ""
		}
	}
	return "", false
}
