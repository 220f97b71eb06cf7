package music

import (
	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
	"molten/internal/discord"
)

const (
	queuePageSizeMin     = 10
	queuePageSizeMax     = 25
	queuePageSizeDefault = 20
)

type QueueCommand struct{}

func (c *QueueCommand) Name() string        { return "queue" }
func (c *QueueCommand) Description() string { return "Show the current queue" }
func (c *QueueCommand) RequireDJ() bool     { return false }

func (c *QueueCommand) SlashDefinition() *discordgo.ApplicationCommand {
	minSize := float64(queuePageSizeMin)
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "page_size",
				Description: "Tracks per page (10-25, default 20)",
				MinValue:    &minSize,
				MaxValue:    queuePageSizeMax,
			},
		},
	}
}

func (c *QueueCommand) Run(ctx *command.SlashContext) error {
	pageSize := queuePageSizeDefault
	if opt, ok := ctx.Option("page_size"); ok {
		pageSize = int(opt.IntValue())
	}

	tracks := ctx.Coordinator.QueueTracks(ctx.GuildID())
	if len(tracks) == 0 {
		return ctx.Reply("The queue is empty.")
	}

	return ctx.ReplyEmbed(
		discord.QueueEmbed(tracks, 0, pageSize),
		discord.QueueComponents(0, pageSize, len(tracks)),
	)
}

func init() {
	command.Register(&QueueCommand{},
		command.WithCommandLogger(),
		command.WithGuildOnly(),
	)
}
