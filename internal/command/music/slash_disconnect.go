package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type DisconnectCommand struct{}

func (c *DisconnectCommand) Name() string        { return "disconnect" }
func (c *DisconnectCommand) Description() string { return "Disconnect the bot from voice" }
func (c *DisconnectCommand) RequireDJ() bool     { return true }

func (c *DisconnectCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *DisconnectCommand) Run(ctx *command.SlashContext) error {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Disconnect(opCtx, ctx.GuildID(), ctx.User())
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&DisconnectCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
