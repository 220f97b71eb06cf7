package storage

import (
	"context"
	"fmt"
	"log"
	"sync"

	"github.com/keshon/datastore"
)

// All guild settings live under a single datastore key so the document
// is loaded and written wholesale, as one flat keyed JSON object.
const guildsKey = "guilds"

// Record is the durable per-guild settings document.
type Record struct {
	ChannelID string `json:"channel"`
	MessageID string `json:"message"`
	DJRoleID  string `json:"dj_role,omitempty"`
	Stay247   bool   `json:"stay_247,omitempty"`
}

// Storage persists per-guild settings through an autosaving JSON file
// store. Writes are best-effort: mutations update the in-memory map and
// hand the datastore a snapshot to flush in the background.
type Storage struct {
	mu     sync.RWMutex
	guilds map[string]Record
	ds     *datastore.DataStore
	cancel context.CancelFunc
}

// New opens the settings store. The datastore's background routines are
// bound to ctx; Close cancels them, so the store shuts down cleanly
// even when the parent context never ends.
func New(ctx context.Context, filePath string) (*Storage, error) {
	ctx, cancel := context.WithCancel(ctx)
	ds, err := datastore.New(ctx, filePath)
	if err != nil {
		cancel()
		return nil, err
	}

	s := &Storage{guilds: map[string]Record{}, ds: ds, cancel: cancel}
	if err := s.load(); err != nil {
		cancel()
		ds.Close()
		return nil, err
	}
	return s, nil
}

// Close stops the datastore's background routines and flushes to disk.
func (s *Storage) Close() error {
	s.cancel()
	return s.ds.Close()
}

// load reads the whole guild map from the datastore.
func (s *Storage) load() error {
	var guilds map[string]Record
	exists, err := s.ds.Get(guildsKey, &guilds)
	if err != nil {
		return fmt.Errorf("error reading guild settings: %w", err)
	}
	if exists && guilds != nil {
		s.guilds = guilds
	}
	return nil
}

// Guild returns the settings record for a guild, if one exists.
func (s *Storage) Guild(guildID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.guilds[guildID]
	return rec, ok
}

// SetGuild replaces the settings record for a guild and schedules a
// background save.
func (s *Storage) SetGuild(guildID string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.guilds[guildID] = rec
	s.saveLocked()
}

// RemoveGuild prunes a guild whose channel or message can no longer be
// resolved.
func (s *Storage) RemoveGuild(guildID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.guilds, guildID)
	s.saveLocked()
}

// saveLocked hands the datastore a snapshot of the guild map, so the
// background flush never races a later mutation. Best effort; callers
// must hold s.mu.
func (s *Storage) saveLocked() {
	if err := s.ds.Set(guildsKey, s.snapshotLocked()); err != nil {
		log.Printf("[WARN] Could not persist guild settings: %v", err)
	}
}

// snapshotLocked copies the guild map. Callers must hold s.mu.
func (s *Storage) snapshotLocked() map[string]Record {
	out := make(map[string]Record, len(s.guilds))
	for id, rec := range s.guilds {
		out[id] = rec
	}
	return out
}

// AllGuilds returns a snapshot of every stored guild record.
func (s *Storage) AllGuilds() map[string]Record {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}
