package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type ToggleCommand struct{}

func (c *ToggleCommand) Name() string        { return "toggle" }
func (c *ToggleCommand) Description() string { return "Pause or resume the current track" }
func (c *ToggleCommand) RequireDJ() bool     { return true }

func (c *ToggleCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *ToggleCommand) Run(ctx *command.SlashContext) error {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.TogglePause(opCtx, ctx.GuildID(), ctx.User())
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&ToggleCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
