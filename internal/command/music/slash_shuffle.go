package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type ShuffleCommand struct{}

func (c *ShuffleCommand) Name() string        { return "shuffle" }
func (c *ShuffleCommand) Description() string { return "Shuffle the queue" }
func (c *ShuffleCommand) RequireDJ() bool     { return true }

func (c *ShuffleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *ShuffleCommand) Run(ctx *command.SlashContext) error {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Shuffle(opCtx, ctx.GuildID(), ctx.User())
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&ShuffleCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
