// Package cache implements the persistent key→value store backing the scrape
// and geocode caches. Entries live in memory and are flushed to a single JSON
// file on every write, so a run can be interrupted at any point without
// losing results already paid for with network calls.
package cache

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
)

// Store is a disk-backed cache. I/O failures degrade it to an in-memory map
// (logged, never surfaced): a broken cache means extra network calls, not a
// broken run. The file is owned by a single pipeline process at a time.
type Store struct {
	path   string
	logger *zap.Logger

	mu      sync.Mutex
	entries map[string]json.RawMessage
}

// New opens the cache at path, eagerly loading any existing entries. A
// missing file starts empty; a corrupt file is logged and discarded.
func New(path string, logger *zap.Logger) *Store {
	s := &Store{
		path:    path,
		logger:  logger,
		entries: make(map[string]json.RawMessage),
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warn("cache read failed, starting empty", zap.String("path", path), zap.Error(err))
		}
		return s
	}
	if err := json.Unmarshal(raw, &s.entries); err != nil {
		logger.Warn("cache parse failed, starting empty", zap.String("path", path), zap.Error(err))
		s.entries = make(map[string]json.RawMessage)
	}
	return s
}

// Has reports whether key is present.
func (s *Store) Has(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[key]
	return ok
}

// Get decodes the entry for key into out. It returns false on a miss or if
// the stored payload no longer decodes into out's type.
func (s *Store) Get(key string, out any) bool {
	s.mu.Lock()
	raw, ok := s.entries[key]
	s.mu.Unlock()
	if !ok {
		return false
	}
	if err := json.Unmarshal(raw, out); err != nil {
		s.logger.Warn("cache entry decode failed", zap.String("key", key), zap.Error(err))
		return false
	}
	return true
}

// Set stores value under key and synchronously persists the whole map.
func (s *Store) Set(key string, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		s.logger.Warn("cache entry encode failed", zap.String("key", key), zap.Error(err))
		return
	}
	s.mu.Lock()
	s.entries[key] = raw
	s.flushLocked()
	s.mu.Unlock()
}

// Clear drops all entries and persists the empty map.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]json.RawMessage)
	s.flushLocked()
	s.mu.Unlock()
}

// Len returns the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// flushLocked rewrites the backing file. Temp file + rename keeps a crash
// mid-write from corrupting the existing cache.
func (s *Store) flushLocked() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o750); err != nil {
		s.logger.Warn("cache dir create failed", zap.String("path", s.path), zap.Error(err))
		return
	}
	payload, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		s.logger.Warn("cache encode failed", zap.Error(err))
		return
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		s.logger.Warn("cache write failed", zap.String("path", tmp), zap.Error(err))
		return
	}
	if err := os.Rename(tmp, s.path); err != nil {
		s.logger.Warn("cache rename failed", zap.String("path", s.path), zap.Error(err))
	}
}
