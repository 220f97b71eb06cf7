package discord

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"molten/internal/session"
	"molten/internal/storage"
)

// permChange records one overwrite mutation on a channel.
type permChange struct {
	channelID string
	targetID  string
	allow     int64
	deny      int64
}

// fakeGuildManager records the guild-management API calls the setup and
// DJ lifecycle makes.
type fakeGuildManager struct {
	channelErr error
	sendErr    error
	roleErr    error

	createdChannels []discordgo.GuildChannelCreateData
	sentTo          []string
	createdRoles    []*discordgo.RoleParams
	deletedRoles    []string
	permSets        []permChange
	permDeletes     []permChange
}

func (f *fakeGuildManager) GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error) {
	if f.channelErr != nil {
		return nil, f.channelErr
	}
	f.createdChannels = append(f.createdChannels, data)
	return &discordgo.Channel{ID: "chan-new", GuildID: guildID, Name: data.Name}, nil
}

func (f *fakeGuildManager) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sentTo = append(f.sentTo, channelID)
	return &discordgo.Message{ID: "msg-new", ChannelID: channelID}, nil
}

func (f *fakeGuildManager) GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error) {
	if f.roleErr != nil {
		return nil, f.roleErr
	}
	f.createdRoles = append(f.createdRoles, data)
	return &discordgo.Role{ID: "role-new", Name: data.Name}, nil
}

func (f *fakeGuildManager) GuildRoleDelete(guildID, roleID string, options ...discordgo.RequestOption) error {
	f.deletedRoles = append(f.deletedRoles, roleID)
	return nil
}

func (f *fakeGuildManager) ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error {
	f.permSets = append(f.permSets, permChange{channelID: channelID, targetID: targetID, allow: allow, deny: deny})
	return nil
}

func (f *fakeGuildManager) ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error {
	f.permDeletes = append(f.permDeletes, permChange{channelID: channelID, targetID: targetID})
	return nil
}

func newTestBot(t *testing.T) (*Bot, *fakeGuildManager, *fakeTransport) {
	t.Helper()
	store, err := storage.New(context.Background(), filepath.Join(t.TempDir(), "guilds.json"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	gm := &fakeGuildManager{}
	tp := &fakeTransport{}
	sessions := session.NewStore()
	b := &Bot{
		store:    store,
		sessions: sessions,
		status:   NewReconciler(tp, store, EmbedFactory{}),
		embeds:   EmbedFactory{},
		guild:    gm,
	}
	return b, gm, tp
}

func TestCreateSetupChannelPersistsLocation(t *testing.T) {
	b, gm, _ := newTestBot(t)

	result := b.CreateSetupChannel("g")

	assert.Contains(t, result, "chan-new")
	require.Len(t, gm.createdChannels, 1)
	assert.Equal(t, setupChannelName, gm.createdChannels[0].Name)
	assert.Equal(t, []string{"chan-new"}, gm.sentTo)

	channelID, messageID := b.sessions.GetOrCreate("g").StatusLocation()
	assert.Equal(t, "chan-new", channelID)
	assert.Equal(t, "msg-new", messageID)

	rec, ok := b.store.Guild("g")
	require.True(t, ok)
	assert.Equal(t, "chan-new", rec.ChannelID)
	assert.Equal(t, "msg-new", rec.MessageID)

	// No DJ role configured, so the channel stays open.
	assert.Empty(t, gm.permSets)
}

func TestCreateSetupChannelFailure(t *testing.T) {
	b, gm, _ := newTestBot(t)
	gm.channelErr = assert.AnError

	result := b.CreateSetupChannel("g")

	assert.Contains(t, result, "🚫")
	channelID, _ := b.sessions.GetOrCreate("g").StatusLocation()
	assert.Empty(t, channelID, "failed setup must not record a location")
}

func TestDJRoleRoundTrip(t *testing.T) {
	b, gm, _ := newTestBot(t)

	// Provision the request channel first so the role restricts it.
	b.CreateSetupChannel("g")

	result := b.CreateDJRole("g")
	assert.Contains(t, result, "role-new")

	require.Len(t, gm.createdRoles, 1)
	assert.Equal(t, djRoleName, gm.createdRoles[0].Name)

	sess := b.sessions.GetOrCreate("g")
	assert.Equal(t, "role-new", sess.DJRoleID())
	rec, ok := b.store.Guild("g")
	require.True(t, ok)
	assert.Equal(t, "role-new", rec.DJRoleID)

	// The channel is hidden from @everyone and opened to the role.
	require.Len(t, gm.permSets, 2)
	assert.Equal(t, permChange{channelID: "chan-new", targetID: "g", deny: discordgo.PermissionViewChannel}, gm.permSets[0])
	assert.Equal(t, permChange{channelID: "chan-new", targetID: "role-new", allow: discordgo.PermissionViewChannel}, gm.permSets[1])

	// Removing the role restores visibility and clears persistence.
	result = b.RemoveDJRole("g")
	assert.Contains(t, result, "Removed")

	assert.Equal(t, []string{"role-new"}, gm.deletedRoles)
	require.Len(t, gm.permDeletes, 2)
	assert.Equal(t, permChange{channelID: "chan-new", targetID: "g"}, gm.permDeletes[0])
	assert.Equal(t, permChange{channelID: "chan-new", targetID: "role-new"}, gm.permDeletes[1])

	assert.Empty(t, sess.DJRoleID())
	rec, ok = b.store.Guild("g")
	require.True(t, ok)
	assert.Empty(t, rec.DJRoleID)
}

func TestCreateDJRoleTwiceRefused(t *testing.T) {
	b, gm, _ := newTestBot(t)

	b.CreateDJRole("g")
	result := b.CreateDJRole("g")

	assert.Contains(t, result, "already exists")
	assert.Len(t, gm.createdRoles, 1)
}

func TestRemoveDJRoleWithoutRole(t *testing.T) {
	b, gm, _ := newTestBot(t)

	result := b.RemoveDJRole("g")

	assert.Contains(t, result, "No DJ role")
	assert.Empty(t, gm.deletedRoles)
}
