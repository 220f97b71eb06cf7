package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type StopCommand struct{}

func (c *StopCommand) Name() string        { return "stop" }
func (c *StopCommand) Description() string { return "Stop playback and clear the queue" }
func (c *StopCommand) RequireDJ() bool     { return true }

func (c *StopCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *StopCommand) Run(ctx *command.SlashContext) error {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Stop(opCtx, ctx.GuildID(), ctx.User())
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&StopCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
