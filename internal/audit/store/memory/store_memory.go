package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"audittrail/internal/audit"
	"audittrail/pkg/platform/sentinel"
)

// Store is the in-memory audit store for tests and single-process use.
// Records are kept in insertion order; list operations return newest-first.
type Store struct {
	mu      sync.RWMutex
	records []audit.Record
}

func New() *Store {
	return &Store{}
}

func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = nil
}

func (s *Store) Append(_ context.Context, record *audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, *record)
	return nil
}

func (s *Store) ListBySubject(_ context.Context, subjectModel, subjectID string) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.SubjectModel == subjectModel && rec.SubjectID == subjectID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) ListBySubjectAndType(_ context.Context, subjectModel, subjectID string, eventType audit.EventType) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Record
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if rec.SubjectModel == subjectModel && rec.SubjectID == subjectID && rec.Type == eventType {
			out = append(out, rec)
		}
	}
	return out, nil
}

func (s *Store) ListRecent(_ context.Context, limit int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.records) {
		limit = len(s.records)
	}
	out := make([]audit.Record, 0, limit)
	for i := len(s.records) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.records[i])
	}
	return out, nil
}

func (s *Store) CountBySubject(_ context.Context, subjectModel, subjectID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, rec := range s.records {
		if rec.SubjectModel == subjectModel && rec.SubjectID == subjectID {
			count++
		}
	}
	return count, nil
}

func (s *Store) UpdateRenderedMessage(_ context.Context, id uuid.UUID, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.records {
		if s.records[i].ID == id {
			s.records[i].RenderedMessage = message
			return nil
		}
	}
	return sentinel.ErrNotFound
}
