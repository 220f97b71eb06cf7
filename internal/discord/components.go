package discord

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"molten/internal/engine"
	"molten/pkg/util"
)

// Control button custom ids, stable across restarts so old status
// messages keep working.
const (
	controlStop        = "control_stop"
	controlPauseResume = "control_pause_resume"
	controlSkip        = "control_skip"
	controlShuffle     = "control_shuffle"

	queuePagePrefix = "queue_page"
)

// controlComponents computes the capability mask for the status
// document buttons from the player's state right now. Never cached:
// a stale mask would offer controls the player cannot honor.
func controlComponents(player engine.Player) []discordgo.MessageComponent {
	noPlayer := player == nil

	pauseEmoji := "⏸️"
	shuffleDisabled := true
	if !noPlayer {
		if player.Paused() {
			pauseEmoji = "▶️"
		}
		shuffleDisabled = player.Queue().Count() <= 1
	}

	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "⏹️"},
					Style:    discordgo.SecondaryButton,
					CustomID: controlStop,
					Disabled: noPlayer,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: pauseEmoji},
					Style:    discordgo.SecondaryButton,
					CustomID: controlPauseResume,
					Disabled: noPlayer,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "⏭️"},
					Style:    discordgo.SecondaryButton,
					CustomID: controlSkip,
					Disabled: noPlayer,
				},
				discordgo.Button{
					Emoji:    &discordgo.ComponentEmoji{Name: "🔀"},
					Style:    discordgo.SecondaryButton,
					CustomID: controlShuffle,
					Disabled: noPlayer || shuffleDisabled,
				},
			},
		},
	}
}

// disabledControls is the all-off mask used after disconnects and when
// the queue drains.
func disabledControls() []discordgo.MessageComponent {
	return controlComponents(nil)
}

// --- Queue listing ---

// QueueEmbed renders one page of a queue snapshot. Exported for the
// queue slash command, which shares the pager with the component
// handler.
func QueueEmbed(tracks []engine.Track, page, pageSize int) *discordgo.MessageEmbed {
	totalPages := (len(tracks)-1)/pageSize + 1
	if page < 0 {
		page = 0
	}
	if page >= totalPages {
		page = totalPages - 1
	}

	start := page * pageSize
	end := min(start+pageSize, len(tracks))

	var b strings.Builder
	fmt.Fprintf(&b, "Page %d/%d\nTotal tracks: %d\n\n", page+1, totalPages, len(tracks))
	for i, track := range tracks[start:end] {
		fmt.Fprintf(&b, "**%d.** [%s](%s) — `%s`\n",
			start+i+1, track.Title, track.URI, util.FormatDuration(track.Length))
	}

	return &discordgo.MessageEmbed{
		Title:       "Queue",
		Description: b.String(),
		Color:       0x9b59b6,
	}
}

// QueueComponents builds the prev/next pager. The page and page size
// ride in the custom id so each press re-snapshots the live queue.
func QueueComponents(page, pageSize, total int) []discordgo.MessageComponent {
	totalPages := (total-1)/pageSize + 1
	return []discordgo.MessageComponent{
		discordgo.ActionsRow{
			Components: []discordgo.MessageComponent{
				discordgo.Button{
					Label:    "⬅️ Prev",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("%s:%d:%d", queuePagePrefix, page-1, pageSize),
					Disabled: page <= 0,
				},
				discordgo.Button{
					Label:    "Next ➡️",
					Style:    discordgo.SecondaryButton,
					CustomID: fmt.Sprintf("%s:%d:%d", queuePagePrefix, page+1, pageSize),
					Disabled: page >= totalPages-1,
				},
			},
		},
	}
}

// parseQueuePage extracts page and page size from a pager custom id.
func parseQueuePage(customID string) (page, pageSize int, ok bool) {
	parts := strings.Split(customID, ":")
	if len(parts) != 3 || parts[0] != queuePagePrefix {
		return 0, 0, false
	}
	page, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	pageSize, err = strconv.Atoi(parts[2])
	if err != nil || pageSize < 1 {
		return 0, 0, false
	}
	return page, pageSize, true
}
