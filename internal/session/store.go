package session

import (
	"sync"

	"molten/internal/storage"
)

// Store is the process-wide guild-id → session map. Sessions are
// created on first reference and live for the process lifetime; entries
// for guilds the bot has left simply go inert.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// GetOrCreate returns the session for a guild, creating it when seen
// for the first time. It never fails.
func (st *Store) GetOrCreate(guildID string) *Session {
	st.mu.RLock()
	s, ok := st.sessions[guildID]
	st.mu.RUnlock()
	if ok {
		return s
	}

	st.mu.Lock()
	defer st.mu.Unlock()
	if s, ok := st.sessions[guildID]; ok {
		return s
	}
	s = &Session{GuildID: guildID}
	st.sessions[guildID] = s
	return s
}

// Rehydrate seeds a session from a durable settings record at startup.
func (st *Store) Rehydrate(guildID string, rec storage.Record) *Session {
	s := st.GetOrCreate(guildID)
	s.SetStatusLocation(rec.ChannelID, rec.MessageID)
	s.SetDJRoleID(rec.DJRoleID)
	s.mu.Lock()
	s.stay247 = rec.Stay247
	s.mu.Unlock()
	return s
}

// All returns a snapshot of the live sessions.
func (st *Store) All() []*Session {
	st.mu.RLock()
	defer st.mu.RUnlock()
	out := make([]*Session, 0, len(st.sessions))
	for _, s := range st.sessions {
		out = append(out, s)
	}
	return out
}
