package music

import (
	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

// DJCommand manages the DJ role through subcommands so create/remove
// share one entry in the command list.
type DJCommand struct{}

func (c *DJCommand) Name() string        { return "dj" }
func (c *DJCommand) Description() string { return "Manage the DJ role" }
func (c *DJCommand) RequireDJ() bool     { return false }

func (c *DJCommand) SlashDefinition() *discordgo.ApplicationCommand {
	perms := int64(discordgo.PermissionManageRoles)
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: &perms,
		Options: []*discordgo.ApplicationCommandOption{
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "create",
				Description: "Create the DJ role and restrict music commands to it",
			},
			{
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Name:        "remove",
				Description: "Remove the DJ role and open music commands to everyone",
			},
		},
	}
}

func (c *DJCommand) Run(ctx *command.SlashContext) error {
	options := ctx.Event.ApplicationCommandData().Options
	if len(options) == 0 {
		return ctx.Reply("🚫 Pick create or remove.")
	}

	switch options[0].Name {
	case "create":
		return ctx.Reply(ctx.Coordinator.CreateDJRole(ctx.GuildID()))
	case "remove":
		return ctx.Reply(ctx.Coordinator.RemoveDJRole(ctx.GuildID()))
	default:
		return ctx.Reply("🚫 Pick create or remove.")
	}
}

func init() {
	command.Register(&DJCommand{},
		command.WithCommandLogger(),
		command.WithGuildOnly(),
	)
}
