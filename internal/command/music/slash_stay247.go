package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type Stay247Command struct{}

func (c *Stay247Command) Name() string { return "stay247" }
func (c *Stay247Command) Description() string {
	return "Toggle 24/7 mode (stay in voice when the channel empties)"
}
func (c *Stay247Command) RequireDJ() bool { return true }

func (c *Stay247Command) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *Stay247Command) Run(ctx *command.SlashContext) error {
	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.ToggleStay247(opCtx, ctx.GuildID(), ctx.User())
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&Stay247Command{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
