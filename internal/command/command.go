package command

import (
	"context"

	"github.com/bwmarrin/discordgo"

	"molten/internal/engine"
)

// User identifies the invoking member for annotations and precondition
// checks.
type User struct {
	ID          string
	DisplayName string
}

// Response is the discriminated result every coordinator operation
// returns. Text is always user-facing; operations never propagate raw
// errors to the command surface.
type Response struct {
	Text string
	OK   bool
}

func Success(text string) Response { return Response{Text: text, OK: true} }
func Failure(text string) Response { return Response{Text: text} }

// Coordinator is what commands need from the bot. The concrete
// implementation lives in the discord package; keeping the interface
// here lets command declarations avoid importing it.
type Coordinator interface {
	Play(ctx context.Context, guildID string, user User, query string) Response
	Stop(ctx context.Context, guildID string, user User) Response
	Skip(ctx context.Context, guildID string, user User, count int) Response
	TogglePause(ctx context.Context, guildID string, user User) Response
	Disconnect(ctx context.Context, guildID string, user User) Response
	Shuffle(ctx context.Context, guildID string, user User) Response
	Forward(ctx context.Context, guildID string, user User, seconds int) Response
	Nightcore(ctx context.Context, guildID string, user User, enabled bool) Response
	ToggleStay247(ctx context.Context, guildID string, user User) Response

	QueueTracks(guildID string) []engine.Track
	CreateSetupChannel(guildID string) string
	CreateDJRole(guildID string) string
	RemoveDJRole(guildID string) string
	DJRoleID(guildID string) string
}

// Command is a slash command declaration.
type Command interface {
	Name() string
	Description() string
	// RequireDJ marks commands rejected for members lacking the guild's
	// DJ role (when one is configured).
	RequireDJ() bool
	SlashDefinition() *discordgo.ApplicationCommand
	Run(ctx *SlashContext) error
}

// SlashContext is what the runtime hands a command when executing it.
type SlashContext struct {
	Session     *discordgo.Session
	Event       *discordgo.InteractionCreate
	Coordinator Coordinator
}

func (c *SlashContext) GuildID() string { return c.Event.GuildID }

// User returns the invoking member.
func (c *SlashContext) User() User {
	m := c.Event.Member
	if m == nil || m.User == nil {
		return User{}
	}
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return User{ID: m.User.ID, DisplayName: name}
}

// Option returns a named option from the command data, if present.
func (c *SlashContext) Option(name string) (*discordgo.ApplicationCommandInteractionDataOption, bool) {
	for _, opt := range c.Event.ApplicationCommandData().Options {
		if opt.Name == name {
			return opt, true
		}
	}
	return nil, false
}

// Reply sends an ephemeral response.
func (c *SlashContext) Reply(text string) error {
	return c.Session.InteractionRespond(c.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: text,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	})
}

// ReplyEmbed sends an ephemeral embed response with optional components.
func (c *SlashContext) ReplyEmbed(embed *discordgo.MessageEmbed, components []discordgo.MessageComponent) error {
	return c.Session.InteractionRespond(c.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{embed},
			Components: components,
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	})
}

// Defer acknowledges the interaction ephemerally; pair with Followup.
func (c *SlashContext) Defer() error {
	return c.Session.InteractionRespond(c.Event.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
}

// Followup completes a deferred interaction.
func (c *SlashContext) Followup(text string) error {
	_, err := c.Session.FollowupMessageCreate(c.Event.Interaction, true, &discordgo.WebhookParams{
		Content: text,
		Flags:   discordgo.MessageFlagsEphemeral,
	})
	return err
}
