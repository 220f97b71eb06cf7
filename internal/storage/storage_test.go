package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStorageRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")

	s, err := New(context.Background(), path)
	require.NoError(t, err)

	rec := Record{
		ChannelID: "chan-1",
		MessageID: "msg-1",
		DJRoleID:  "role-1",
		Stay247:   true,
	}
	s.SetGuild("guild-1", rec)
	s.SetGuild("guild-2", Record{ChannelID: "chan-2", MessageID: "msg-2"})
	require.NoError(t, s.Close())

	reopened, err := New(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()

	got, ok := reopened.Guild("guild-1")
	require.True(t, ok)
	assert.Equal(t, rec, got)
	assert.Len(t, reopened.AllGuilds(), 2)
}

func TestStorageRemoveGuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")

	s, err := New(context.Background(), path)
	require.NoError(t, err)

	s.SetGuild("guild-1", Record{ChannelID: "chan"})
	s.RemoveGuild("guild-1")
	require.NoError(t, s.Close())

	reopened, err := New(context.Background(), path)
	require.NoError(t, err)
	defer reopened.Close()

	_, ok := reopened.Guild("guild-1")
	assert.False(t, ok, "pruned guild must not survive a restart")
}

func TestStorageMissingGuild(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guilds.json")

	s, err := New(context.Background(), path)
	require.NoError(t, err)
	defer s.Close()

	_, ok := s.Guild("nope")
	assert.False(t, ok)
	assert.Empty(t, s.AllGuilds())
}
