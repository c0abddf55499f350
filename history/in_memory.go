package history

import (
	"sync"

	"github.com/growmesh/growmesh/core"
)

// Record pairs a task with its settled result.
type Record struct {
	Task   core.Task
	Result core.Result
}

// Store persists task records for later inspection.
type Store interface {
	Append(rec Record)
	ByTask(taskID string) (Record, bool)
	ByOrigin(originID string) []Record
	Recent(n int) []Record
	Len() int
}

// DefaultCapacity bounds the in-memory store when no capacity is configured.
const DefaultCapacity = 1024

// InMemoryStore is a volatile Store keeping records in a process local,
// capacity-bounded list. When the bound is reached the oldest record is
// evicted. Safe for concurrent access.
type InMemoryStore struct {
	mu       sync.RWMutex
	capacity int
	records  []Record
	byTask   map[string]int
}

// InMemoryOptions configures NewInMemoryStore.
type InMemoryOptions struct {
	// Capacity bounds the number of retained records. Defaults to
	// DefaultCapacity.
	Capacity int
}

// NewInMemoryStore constructs an empty in-memory history store.
func NewInMemoryStore(optFns ...func(o *InMemoryOptions)) *InMemoryStore {
	opts := InMemoryOptions{Capacity: DefaultCapacity}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.Capacity < 1 {
		opts.Capacity = DefaultCapacity
	}
	return &InMemoryStore{
		capacity: opts.Capacity,
		byTask:   make(map[string]int),
	}
}

// Append stores one settled record, evicting the oldest when full.
func (s *InMemoryStore) Append(rec Record) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.records) == s.capacity {
		delete(s.byTask, s.records[0].Task.ID)
		s.records = s.records[1:]
		for id, i := range s.byTask {
			s.byTask[id] = i - 1
		}
	}
	s.byTask[rec.Task.ID] = len(s.records)
	s.records = append(s.records, rec)
}

// ByTask returns the record for a task id.
func (s *InMemoryStore) ByTask(taskID string) (Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.byTask[taskID]
	if !ok {
		return Record{}, false
	}
	return s.records[i], true
}

// ByOrigin returns every retained record submitted by the given origin, in
// submission order.
func (s *InMemoryStore) ByOrigin(originID string) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for _, rec := range s.records {
		if rec.Task.OriginID == originID {
			out = append(out, rec)
		}
	}
	return out
}

// Recent returns the n most recent records, newest last.
func (s *InMemoryStore) Recent(n int) []Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || len(s.records) == 0 {
		return nil
	}
	if n > len(s.records) {
		n = len(s.records)
	}
	out := make([]Record, n)
	copy(out, s.records[len(s.records)-n:])
	return out
}

// Len returns the number of retained records.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
