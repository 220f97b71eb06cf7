package music

import (
	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type SetupCommand struct{}

func (c *SetupCommand) Name() string        { return "setup" }
func (c *SetupCommand) Description() string { return "Create the song-request channel" }
func (c *SetupCommand) RequireDJ() bool     { return false }

func (c *SetupCommand) SlashDefinition() *discordgo.ApplicationCommand {
	perms := int64(discordgo.PermissionManageServer)
	return &discordgo.ApplicationCommand{
		Name:                     c.Name(),
		Description:              c.Description(),
		DefaultMemberPermissions: &perms,
	}
}

func (c *SetupCommand) Run(ctx *command.SlashContext) error {
	return ctx.Reply(ctx.Coordinator.CreateSetupChannel(ctx.GuildID()))
}

func init() {
	command.Register(&SetupCommand{},
		command.WithCommandLogger(),
		command.WithGuildOnly(),
	)
}
