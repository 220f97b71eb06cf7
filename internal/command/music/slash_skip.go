package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type SkipCommand struct{}

func (c *SkipCommand) Name() string        { return "skip" }
func (c *SkipCommand) Description() string { return "Skip one or more tracks" }
func (c *SkipCommand) RequireDJ() bool     { return true }

func (c *SkipCommand) SlashDefinition() *discordgo.ApplicationCommand {
	one := float64(1)
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "count",
				Description: "How many tracks to skip (default 1)",
				MinValue:    &one,
			},
		},
	}
}

func (c *SkipCommand) Run(ctx *command.SlashContext) error {
	count := 1
	if opt, ok := ctx.Option("count"); ok {
		count = int(opt.IntValue())
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Skip(opCtx, ctx.GuildID(), ctx.User(), count)
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&SkipCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
