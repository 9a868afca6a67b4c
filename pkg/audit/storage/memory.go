package storage

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"promptstudio/aegis/pkg/audit"
)

const backendMemory = "memory"

var errStorageClosed = errors.New("storage closed")

// MemoryStorage implements audit.Storage in memory. Records are lost when
// the process exits.
type MemoryStorage struct {
	records map[string]*audit.Record
	closed  bool
	mu      sync.RWMutex
}

var _ audit.Storage = (*MemoryStorage)(nil)

// NewMemoryStorage creates a new in-memory storage backend.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		records: make(map[string]*audit.Record),
	}
}

// Store persists a copy of record.
func (s *MemoryStorage) Store(ctx context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return audit.NewStorageError(backendMemory, "store", errStorageClosed)
	}
	s.records[record.ID] = cloneRecord(record)
	return nil
}

// Query retrieves records matching the query, ordered by timestamp.
func (s *MemoryStorage) Query(ctx context.Context, query *audit.Query) ([]*audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, audit.NewStorageError(backendMemory, "query", errStorageClosed)
	}

	results := []*audit.Record{}
	for _, record := range s.records {
		if matchesQuery(record, query) {
			results = append(results, cloneRecord(record))
		}
	}

	slices.SortFunc(results, func(a, b *audit.Record) int {
		c := a.Timestamp.Compare(b.Timestamp)
		if c == 0 {
			c = strings.Compare(a.ID, b.ID)
		}
		if query.SortOrder != "asc" {
			c = -c
		}
		return c
	})

	start := min(query.Offset, len(results))
	results = results[start:]
	if query.Limit > 0 && query.Limit < len(results) {
		results = results[:query.Limit]
	}
	return results, nil
}

// Count returns the number of records matching the query.
func (s *MemoryStorage) Count(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, audit.NewStorageError(backendMemory, "count", errStorageClosed)
	}

	var count int64
	for _, record := range s.records {
		if matchesQuery(record, query) {
			count++
		}
	}
	return count, nil
}

// Delete removes records matching the query.
func (s *MemoryStorage) Delete(ctx context.Context, query *audit.Query) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return 0, audit.NewStorageError(backendMemory, "delete", errStorageClosed)
	}

	var deleted int64
	for id, record := range s.records {
		if matchesQuery(record, query) {
			delete(s.records, id)
			deleted++
		}
	}
	return deleted, nil
}

// Ping fails once the storage is closed.
func (s *MemoryStorage) Ping(ctx context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return audit.NewStorageError(backendMemory, "ping", errStorageClosed)
	}
	return nil
}

// Close drops all records.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]*audit.Record)
	s.closed = true
	return nil
}

func matchesQuery(record *audit.Record, query *audit.Query) bool {
	if query.StartTime != nil && record.Timestamp.Before(*query.StartTime) {
		return false
	}
	if query.EndTime != nil && record.Timestamp.After(*query.EndTime) {
		return false
	}
	if query.CheckID != "" && record.CheckID != query.CheckID {
		return false
	}
	if query.RequestID != "" && record.RequestID != query.RequestID {
		return false
	}
	if query.Source != "" && record.Source != query.Source {
		return false
	}
	if query.RiskLevel != "" && record.RiskLevel != query.RiskLevel {
		return false
	}
	if query.Blocked != nil && record.Blocked != *query.Blocked {
		return false
	}
	if query.MinScore != nil && record.Score < *query.MinScore {
		return false
	}
	if query.MaxScore != nil && record.Score > *query.MaxScore {
		return false
	}
	return true
}

func cloneRecord(r *audit.Record) *audit.Record {
	c := *r
	c.IssueIDs = slices.Clone(r.IssueIDs)
	c.ChecksPerformed = slices.Clone(r.ChecksPerformed)
	if r.IssueTypes != nil {
		c.IssueTypes = make(map[string]int, len(r.IssueTypes))
		for k, v := range r.IssueTypes {
			c.IssueTypes[k] = v
		}
	}
	if r.Severities != nil {
		c.Severities = make(map[string]int, len(r.Severities))
		for k, v := range r.Severities {
			c.Severities[k] = v
		}
	}
	return &c
}
