package music

import (
	"sort"
	"strings"

	"github.com/bwmarrin/discordgo"

	"molten/internal/command"
)

type HelpCommand struct{}

func (c *HelpCommand) Name() string        { return "help" }
func (c *HelpCommand) Description() string { return "List all commands" }
func (c *HelpCommand) RequireDJ() bool     { return false }

func (c *HelpCommand) SlashDefinition() *discordgo.ApplicationCommand {
	return &discordgo.ApplicationCommand{
		Name:        c.Name(),
		Description: c.Description(),
	}
}

func (c *HelpCommand) Run(ctx *command.SlashContext) error {
	cmds := command.All()
	sort.Slice(cmds, func(i, j int) bool { return cmds[i].Name() < cmds[j].Name() })

	var b strings.Builder
	for _, cmd := range cmds {
		tag := ""
		if cmd.RequireDJ() {
			tag = " *(DJ)*"
		}
		b.WriteString("**/" + cmd.Name() + "**" + tag + " — " + cmd.Description() + "\n")
	}

	return ctx.ReplyEmbed(&discordgo.MessageEmbed{
		Title:       "Commands",
		Description: b.String(),
		Color:       0x3498db,
	}, nil)
}

func init() {
	command.Register(&HelpCommand{},
		command.WithCommandLogger(),
	)
}
