package discord

import (
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molten/internal/engine"
)

func buttons(t *testing.T, components []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	require.Len(t, components, 1)
	row, ok := components[0].(discordgo.ActionsRow)
	require.True(t, ok)

	out := make([]discordgo.Button, 0, len(row.Components))
	for _, c := range row.Components {
		btn, ok := c.(discordgo.Button)
		require.True(t, ok)
		out = append(out, btn)
	}
	return out
}

func TestControlMaskWithoutPlayer(t *testing.T) {
	for _, btn := range buttons(t, disabledControls()) {
		assert.True(t, btn.Disabled, "button %s must be disabled without a player", btn.CustomID)
	}
}

func TestControlMaskReflectsPlayerState(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.queue.Put(engine.Track{ID: "q1"})
	player.queue.Put(engine.Track{ID: "q2"})

	byID := map[string]discordgo.Button{}
	for _, btn := range buttons(t, controlComponents(player)) {
		byID[btn.CustomID] = btn
	}

	assert.False(t, byID[controlStop].Disabled)
	assert.False(t, byID[controlSkip].Disabled)
	assert.False(t, byID[controlShuffle].Disabled, "two queued tracks make shuffle meaningful")
	require.NotNil(t, byID[controlPauseResume].Emoji)
	assert.Equal(t, "⏸️", byID[controlPauseResume].Emoji.Name)
}

func TestControlMaskPausedAndShortQueue(t *testing.T) {
	player := newFakePlayer("g", "vc")
	player.playing = true
	player.paused = true
	player.queue.Put(engine.Track{ID: "q1"})

	byID := map[string]discordgo.Button{}
	for _, btn := range buttons(t, controlComponents(player)) {
		byID[btn.CustomID] = btn
	}

	require.NotNil(t, byID[controlPauseResume].Emoji)
	assert.Equal(t, "▶️", byID[controlPauseResume].Emoji.Name)
	assert.True(t, byID[controlShuffle].Disabled, "one queued track is nothing to shuffle")
}

func TestQueueEmbedPaging(t *testing.T) {
	tracks := make([]engine.Track, 25)
	for i := range tracks {
		tracks[i] = engine.Track{Title: "t", URI: "https://example.com"}
	}

	embed := QueueEmbed(tracks, 0, 10)
	assert.Contains(t, embed.Description, "Page 1/3")
	assert.Contains(t, embed.Description, "Total tracks: 25")

	// Out-of-range pages clamp instead of erroring.
	embed = QueueEmbed(tracks, 99, 10)
	assert.Contains(t, embed.Description, "Page 3/3")

	embed = QueueEmbed(tracks, -5, 10)
	assert.Contains(t, embed.Description, "Page 1/3")
}

func TestQueuePagerRoundTrip(t *testing.T) {
	components := QueueComponents(1, 20, 50)
	btns := buttons(t, components)
	require.Len(t, btns, 2)

	page, pageSize, ok := parseQueuePage(btns[1].CustomID)
	require.True(t, ok)
	assert.Equal(t, 2, page)
	assert.Equal(t, 20, pageSize)

	_, _, ok = parseQueuePage("control_stop")
	assert.False(t, ok)
	_, _, ok = parseQueuePage("queue_page:x:20")
	assert.False(t, ok)
	_, _, ok = parseQueuePage("queue_page:1:0")
	assert.False(t, ok)
}

func TestQueuePagerBounds(t *testing.T) {
	btns := buttons(t, QueueComponents(0, 20, 50))
	assert.True(t, btns[0].Disabled, "prev disabled on first page")
	assert.False(t, btns[1].Disabled)

	btns = buttons(t, QueueComponents(2, 20, 50))
	assert.False(t, btns[0].Disabled)
	assert.True(t, btns[1].Disabled, "next disabled on last page")
}
