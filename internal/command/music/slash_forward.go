package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type ForwardCommand struct{}

func (c *ForwardCommand) Name() string        { return "forward" }
func (c *ForwardCommand) Description() string { return "Seek forward in the current track" }
func (c *ForwardCommand) RequireDJ() bool     { return true }

func (c *ForwardCommand) SlashDefinition() *discordgo.ApplicationCommand {
	one := float64(1)
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionInteger,
				Name:        "seconds",
				Description: "How many seconds to jump ahead",
				Required:    true,
				MinValue:    &one,
			},
		},
	}
}

func (c *ForwardCommand) Run(ctx *command.SlashContext) error {
	opt, ok := ctx.Option("seconds")
	if !ok {
		return ctx.Reply("🚫 Tell me how many seconds to jump.")
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Forward(opCtx, ctx.GuildID(), ctx.User(), int(opt.IntValue()))
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&ForwardCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
