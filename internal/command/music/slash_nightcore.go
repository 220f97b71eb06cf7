package music

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type NightcoreCommand struct{}

func (c *NightcoreCommand) Name() string        { return "nightcore" }
func (c *NightcoreCommand) Description() string { return "Toggle the nightcore effect" }
func (c *NightcoreCommand) RequireDJ() bool     { return true }

func (c *NightcoreCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionString,
				Name:        "mode",
				Description: "Turn the effect on or off",
				Required:    true,
				Choices: []*discordgo.ApplicationCommandOptionChoice{
					{Name: "on", Value: "on"},
					{Name: "off", Value: "off"},
				},
			},
		},
	}
}

func (c *NightcoreCommand) Run(ctx *command.SlashContext) error {
	opt, ok := ctx.Option("mode")
	if !ok {
		return ctx.Reply("🚫 Pick on or off.")
	}

	opCtx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()
	resp := ctx.Coordinator.Nightcore(opCtx, ctx.GuildID(), ctx.User(), opt.StringValue() == "on")
	return ctx.Reply(resp.Text)
}

func init() {
	command.Register(&NightcoreCommand{},
		command.WithCommandLogger(),
		command.WithDJCheck(),
		command.WithGuildOnly(),
	)
}
