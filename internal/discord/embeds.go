package discord

import (
	"fmt"

	"github.com/bwmarrin/discordgo"

	"molten/internal/engine"
	"molten/pkg/util"
)

const embedColor = 0x3498db

// EmbedFactory builds the status document embeds.
type EmbedFactory struct {
	NowPlayingGifURL string
	IdleImageURL     string
}

// NowPlaying builds the embed shown while a track plays.
func (f EmbedFactory) NowPlaying(track engine.Track) *discordgo.MessageEmbed {
	requester := "Unknown"
	if track.RequesterID != "" {
		requester = fmt.Sprintf("<@%s>", track.RequesterID)
	}

	duration := util.FormatDuration(track.Length)
	if track.IsStream {
		duration = "Live"
	}

	embed := &discordgo.MessageEmbed{
		Title: track.Title,
		URL:   track.URI,
		Color: embedColor,
		Author: &discordgo.MessageEmbedAuthor{
			Name:    "Now Playing",
			IconURL: f.NowPlayingGifURL,
		},
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Requested by", Value: requester, Inline: true},
			{Name: "Duration", Value: duration, Inline: true},
		},
	}

	image := track.Artwork
	if image == "" {
		image = f.IdleImageURL
	}
	if image != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: image}
	}
	return embed
}

// Default builds the "nothing playing" embed.
func (f EmbedFactory) Default() *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       "Now Playing",
		Description: "No song currently playing",
	}
	if f.IdleImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: f.IdleImageURL}
	}
	return embed
}
