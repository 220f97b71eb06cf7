package command

import (
	"log"
	"slices"
)

type Middleware func(Command) Command

type wrappedCommand struct {
	Command
	wrap func(ctx *SlashContext) error
}

func (w *wrappedCommand) Run(ctx *SlashContext) error {
	return w.wrap(ctx)
}

// WithGuildOnly drops command invocations outside a guild.
func WithGuildOnly() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashContext) error {
				if ctx.Event.GuildID == "" {
					return ctx.Reply("🚫 This command only works in a server.")
				}
				return cmd.Run(ctx)
			},
		}
	}
}

// WithDJCheck rejects DJ-gated commands for members lacking the guild's
// configured DJ role. Guilds without a DJ role are unrestricted.
func WithDJCheck() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashContext) error {
				if !cmd.RequireDJ() {
					return cmd.Run(ctx)
				}
				roleID := ctx.Coordinator.DJRoleID(ctx.GuildID())
				if roleID == "" {
					return cmd.Run(ctx)
				}
				if ctx.Event.Member != nil && slices.Contains(ctx.Event.Member.Roles, roleID) {
					return cmd.Run(ctx)
				}
				return ctx.Reply("🚫 You need the DJ role to use this command.")
			},
		}
	}
}

// WithCommandLogger logs every invocation.
func WithCommandLogger() Middleware {
	return func(cmd Command) Command {
		return &wrappedCommand{
			Command: cmd,
			wrap: func(ctx *SlashContext) error {
				user := ctx.User()
				log.Printf("[INFO] Command /%s | guild=%s user=%s", cmd.Name(), ctx.GuildID(), user.ID)
				return cmd.Run(ctx)
			},
		}
	}
}
