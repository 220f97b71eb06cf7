// Package session holds the per-guild coordinator state: the session
// store, the guild session, and the action gate. Sessions are the only
// state shared between command handlers, component handlers, and engine
// callbacks; everything goes through their accessors.
package session

import (
	"sync"

	"github.com/bwmarrin/discordgo"
)

// ActionNote is the human-readable annotation ("Skipped by Alice")
// shown in the status document footer on the next render. Transient
// notes are dropped when a track actually starts; any note is consumed
// by the render that displays it.
type ActionNote struct {
	Text    string
	Persist bool
}

// Session is the per-guild coordinator state. One instance per guild,
// created lazily and never destroyed while the process runs.
type Session struct {
	GuildID string

	Gate Gate

	mu          sync.Mutex
	channelID   string
	messageID   string
	cached      *discordgo.Message
	replaceNext bool
	note        *ActionNote
	djRoleID    string
	stay247     bool
}

// StatusLocation returns where the status document lives. Empty ids
// mean /setup has not been run.
func (s *Session) StatusLocation() (channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.channelID, s.messageID
}

// SetStatusLocation records a new status document location.
func (s *Session) SetStatusLocation(channelID, messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = channelID
	s.messageID = messageID
}

// SetMessageID replaces only the status message id, keeping the channel.
func (s *Session) SetMessageID(messageID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messageID = messageID
}

// ClearStatusLocation forgets the status document entirely. Used when
// the channel itself is gone; the session must never keep pointing at a
// dead location.
func (s *Session) ClearStatusLocation() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.channelID = ""
	s.messageID = ""
	s.cached = nil
}

// CachedMessage returns the advisory in-memory handle of the status
// message. It may be stale; callers must survive it being wrong.
func (s *Session) CachedMessage() *discordgo.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cached
}

// SetCachedMessage repopulates the advisory handle.
func (s *Session) SetCachedMessage(m *discordgo.Message) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = m
}

// FlagReplace marks the status message for delete+send on the next
// render instead of an edit in place.
func (s *Session) FlagReplace() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replaceNext = true
}

// TakeReplaceFlag consumes the replace flag.
func (s *Session) TakeReplaceFlag() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	flagged := s.replaceNext
	s.replaceNext = false
	return flagged
}

// SetLatestAction records the annotation for the next render.
func (s *Session) SetLatestAction(text string, persist bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note = &ActionNote{Text: text, Persist: persist}
}

// LatestAction returns the pending annotation without consuming it.
func (s *Session) LatestAction() *ActionNote {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.note == nil {
		return nil
	}
	n := *s.note
	return &n
}

// ConsumeAction clears the annotation; the render that displayed it
// calls this so each note is shown exactly once.
func (s *Session) ConsumeAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.note = nil
}

// DropTransientAction clears a non-persistent annotation. Called when a
// track starts, so stale "Paused by ..." notes never outlive the state
// they described.
func (s *Session) DropTransientAction() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.note != nil && !s.note.Persist {
		s.note = nil
	}
}

// DJRoleID returns the configured DJ role, empty when unrestricted.
func (s *Session) DJRoleID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.djRoleID
}

// SetDJRoleID updates the configured DJ role.
func (s *Session) SetDJRoleID(roleID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.djRoleID = roleID
}

// Stay247 reports whether auto-disconnect on empty channel is
// suppressed.
func (s *Session) Stay247() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stay247
}

// ToggleStay247 flips the 24/7 flag and returns the new value.
func (s *Session) ToggleStay247() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stay247 = !s.stay247
	return s.stay247
}
