package lookup

import (
	"context"
	"sort"
	"sync"
)

// MemoryStore keeps the whole database in memory.
type MemoryStore struct {
	mu sync.RWMutex
	db Database
}

// NewMemoryStore copies db into a new store. Keys are canonicalized.
func NewMemoryStore(db Database) *MemoryStore {
	s := &MemoryStore{db: make(Database, len(db))}
	for k, v := range db {
		s.db[Key(k)] = v
	}
	return s
}

// Lookup implements Store.
func (s *MemoryStore) Lookup(ctx context.Context, plate string) (Record, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.db[Key(plate)]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Put adds or replaces a record.
func (s *MemoryStore) Put(plate string, rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.db[Key(plate)] = rec
}

// Len returns the number of records.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.db)
}

// Plates returns all keys, sorted.
func (s *MemoryStore) Plates() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.db))
	for k := range s.db {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// Snapshot returns a copy of the database.
func (s *MemoryStore) Snapshot() Database {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(Database, len(s.db))
	for k, v := range s.db {
		out[k] = v
	}
	return out
}
