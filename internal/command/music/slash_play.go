// Package music declares the playback slash commands. Each command is
// a thin shell: options in, coordinator call, response text out. All
// playback logic lives behind the Coordinator.
package music

import (
	"context"
	"time"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

// opTimeout bounds every coordinator call made from a command shell.
// Search plus voice connect is the slowest path and stays well under
// this.
const opTimeout = 30 * time.Second

type PlayCommand struct{}

func (c *PlayCommand) Name() string        { return "play" }
func (c *PlayCommand) Description() string { return "Play a song or playlist by name or link" }
func (c *PlayCommand) RequireDJ() bool     { return true }

func (c *PlayCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "query",
				Description: "Song name or link",
				Required:    true,
			},
		},
	}
}

func (c *PlayCommand) Run(ctx *command.SlashContext) error {
	opt, ok := ctx.Option("query")
	if !ok || opt.StringValue() == "" {
		return ctx.Reply("🚫 Give me something to play.")
	}

	// Search and connect take long enough to outlive the interaction
	// ack window; defer first.
	if err := ctx.Defer(); err != nil {
		return err
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Play(opCtx, ctx.GuildID(), ctx.User(), opt.StringValue())
	return ctx.Followup(resp.Text)
}

func init() {
	command.Register(&PlayCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
