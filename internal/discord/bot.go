// Package discord hosts the bot runtime: the gateway session, the
// status document reconciler, the playback facade, and the idle
// policy. Everything stateful per guild lives in the session store;
// this package wires the external surfaces to it.
package discord

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"golang.org/x/time/rate"

	"molten/internal/command"
	"molten/internal/config"
	"molten/internal/engine"
	"molten/internal/engine/lavalink"
	"molten/internal/session"
	"molten/internal/storage"
)

// rehydrateThrottled is the guild count above which startup cache
// priming is rate limited to stay clear of the REST quota.
const rehydrateThrottled = 50

// Bot is the Discord-facing runtime. It satisfies command.Coordinator:
// playback operations come from the embedded facade, guild management
// from the methods in setup.go.
type Bot struct {
	*Facade

	dg       *discordgo.Session
	cfg      *config.Config
	store    *storage.Storage
	sessions *session.Store
	status   *Reconciler
	embeds   EmbedFactory
	lava     *lavalink.Client
	engine   engine.Client
	guild    guildManager
	voice    occupancy

	// The gateway replays Ready on every reconnect; command
	// registration and rehydration must run once per process.
	readyOnce sync.Once
}

// StartBot runs the bot until ctx is cancelled.
func StartBot(ctx context.Context, cfg *config.Config, store *storage.Storage) error {
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}

	embeds := EmbedFactory{
		NowPlayingGifURL: cfg.NowPlayingGifURL,
		IdleImageURL:     cfg.IdleImageURL,
	}

	lava := lavalink.New(lavalink.Config{
		Address:  cfg.LavalinkAddr(),
		Password: cfg.LavalinkPassword,
		Secure:   cfg.LavalinkSecure,
	})
	lava.JoinVoice = func(guildID, channelID string) error {
		return dg.ChannelVoiceJoinManual(guildID, channelID, false, true)
	}

	sessions := session.NewStore()
	status := NewReconciler(dg, store, embeds)

	b := &Bot{
		dg:       dg,
		cfg:      cfg,
		store:    store,
		sessions: sessions,
		status:   status,
		embeds:   embeds,
		lava:     lava,
		engine:   lava,
		guild:    dg,
		voice:    gatewayOccupancy{dg: dg},
	}
	b.Facade = NewFacade(lava, sessions, status, store, embeds, cfg.BotVolume,
		func(guildID, userID string) (string, bool) {
			return userVoiceChannel(dg, guildID, userID)
		})
	b.Facade.SetIdleReaper(b.reapIdle)
	lava.AddHandler(b)

	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	dg.AddHandler(b.onReady)
	dg.AddHandler(b.onInteractionCreate)
	dg.AddHandler(b.onMessageCreate)
	dg.AddHandler(b.onVoiceServerUpdate)
	dg.AddHandler(b.onVoiceStateUpdate)

	if err := dg.Open(); err != nil {
		return fmt.Errorf("failed to open Discord session: %w", err)
	}
	defer dg.Close()

	<-ctx.Done()
	log.Println("[INFO] Shutdown signal received. Cleaning up...")
	lava.Close()
	return nil
}

// onReady connects to the audio engine node, registers the slash
// commands, and rehydrates persisted guild sessions.
func (b *Bot) onReady(s *discordgo.Session, r *discordgo.Ready) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := b.lava.Open(ctx, r.User.ID); err != nil {
		log.Printf("[ERR] Audio engine connection failed: %v", err)
	}

	b.readyOnce.Do(func() {
		if err := b.registerCommands(r.User.ID); err != nil {
			log.Printf("[ERR] Slash command registration failed: %v", err)
		}
		go b.rehydrate()
	})

	log.Printf("[INFO] ✅ Bot %v is running across %d guilds.", r.User.Username, len(r.Guilds))
}

// registerCommands bulk-overwrites the global command set from the
// registry.
func (b *Bot) registerCommands(appID string) error {
	var defs []*discordgo.ApplicationCommand
	for _, cmd := range command.All() {
		if def := cmd.SlashDefinition(); def != nil {
			defs = append(defs, def)
		}
	}
	_, err := b.dg.ApplicationCommandBulkOverwrite(appID, "", defs)
	return err
}

// rehydrate restores persisted sessions and primes the status message
// cache, pruning entries whose channel or message no longer resolves.
// Large fleets are throttled so startup does not burn the REST quota.
func (b *Bot) rehydrate() {
	records := b.store.AllGuilds()
	if len(records) == 0 {
		return
	}

	var limiter *rate.Limiter
	if len(records) > rehydrateThrottled {
		limiter = rate.NewLimiter(rate.Every(500*time.Millisecond), 1)
	}

	restored, pruned := 0, 0
	for guildID, rec := range records {
		if limiter != nil {
			_ = limiter.Wait(context.Background())
		}

		if rec.ChannelID == "" || rec.MessageID == "" {
			// Settings-only record (DJ role, 24/7 flag); nothing to prime.
			b.sessions.Rehydrate(guildID, rec)
			restored++
			continue
		}

		msg, err := b.dg.ChannelMessage(rec.ChannelID, rec.MessageID)
		if err != nil {
			log.Printf("[WARN] Pruning guild %s: status message unresolvable: %v", guildID, err)
			b.store.RemoveGuild(guildID)
			pruned++
			continue
		}

		sess := b.sessions.Rehydrate(guildID, rec)
		sess.SetCachedMessage(msg)
		restored++
	}

	log.Printf("[INFO] Session rehydration done | restored=%d pruned=%d", restored, pruned)
}

// onInteractionCreate dispatches slash commands and status document
// components.
func (b *Bot) onInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		name := i.ApplicationCommandData().Name
		cmd, ok := command.Get(name)
		if !ok {
			log.Printf("[WARN] Unknown command: %s", name)
			return
		}
		ctx := &command.SlashContext{Session: s, Event: i, Coordinator: b}
		if err := cmd.Run(ctx); err != nil {
			log.Printf("[ERR] Error running command /%s: %v", name, err)
		}

	case discordgo.InteractionMessageComponent:
		b.onComponent(s, i)
	}
}

// onComponent handles the status document control buttons and the
// queue pager.
func (b *Bot) onComponent(s *discordgo.Session, i *discordgo.InteractionCreate) {
	customID := i.MessageComponentData().CustomID
	if i.GuildID == "" {
		return
	}

	if strings.HasPrefix(customID, queuePagePrefix) {
		b.onQueuePage(s, i, customID)
		return
	}

	// The document itself reflects the result; the press only needs an
	// immediate ack, plus an ephemeral note when the action is refused.
	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredMessageUpdate,
	})

	user := componentUser(i)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	var resp command.Response
	switch customID {
	case controlStop:
		resp = b.Stop(ctx, i.GuildID, user)
	case controlPauseResume:
		resp = b.TogglePause(ctx, i.GuildID, user)
	case controlSkip:
		resp = b.Skip(ctx, i.GuildID, user, 1)
	case controlShuffle:
		resp = b.Shuffle(ctx, i.GuildID, user)
	default:
		log.Printf("[WARN] Unknown component: %s", customID)
		return
	}

	if !resp.OK {
		_, _ = s.FollowupMessageCreate(i.Interaction, true, &discordgo.WebhookParams{
			Content: resp.Text,
			Flags:   discordgo.MessageFlagsEphemeral,
		})
	}
}

// onQueuePage re-snapshots the queue and swaps the pager message in
// place.
func (b *Bot) onQueuePage(s *discordgo.Session, i *discordgo.InteractionCreate, customID string) {
	page, pageSize, ok := parseQueuePage(customID)
	if !ok {
		return
	}

	tracks := b.QueueTracks(i.GuildID)
	if len(tracks) == 0 {
		_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseUpdateMessage,
			Data: &discordgo.InteractionResponseData{
				Embeds:     []*discordgo.MessageEmbed{{Title: "Queue", Description: "The queue is empty."}},
				Components: []discordgo.MessageComponent{},
			},
		})
		return
	}

	_ = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Embeds:     []*discordgo.MessageEmbed{QueueEmbed(tracks, page, pageSize)},
			Components: QueueComponents(page, pageSize, len(tracks)),
		},
	})
}

// componentUser derives the pressing member from a component event.
func componentUser(i *discordgo.InteractionCreate) command.User {
	m := i.Member
	if m == nil || m.User == nil {
		return command.User{}
	}
	name := m.Nick
	if name == "" {
		name = m.User.GlobalName
	}
	if name == "" {
		name = m.User.Username
	}
	return command.User{ID: m.User.ID, DisplayName: name}
}
