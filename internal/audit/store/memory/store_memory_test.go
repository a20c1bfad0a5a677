package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"audittrail/internal/audit"
	"audittrail/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
}

func (s *MemoryStoreSuite) newRecord(model, id string, eventType audit.EventType) *audit.Record {
	return &audit.Record{
		ID:           uuid.New(),
		SubjectModel: model,
		SubjectID:    id,
		Type:         eventType,
		CreatedAt:    time.Now(),
	}
}

func (s *MemoryStoreSuite) TestAppendAndListBySubject() {
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeCreated)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeFieldChanged)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-2", audit.TypeCreated)))

	records, err := s.store.ListBySubject(s.ctx, "invoice", "i-1")
	s.Require().NoError(err)
	s.Require().Len(records, 2)
	s.Equal(audit.TypeFieldChanged, records[0].Type, "newest first")
	s.Equal(audit.TypeCreated, records[1].Type)

	records, err = s.store.ListBySubject(s.ctx, "invoice", "missing")
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *MemoryStoreSuite) TestListBySubjectAndType() {
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeCreated)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeFieldChanged)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeFieldChanged)))

	records, err := s.store.ListBySubjectAndType(s.ctx, "invoice", "i-1", audit.TypeFieldChanged)
	s.Require().NoError(err)
	s.Len(records, 2)

	records, err = s.store.ListBySubjectAndType(s.ctx, "invoice", "i-1", audit.TypeDeleted)
	s.Require().NoError(err)
	s.Empty(records)
}

func (s *MemoryStoreSuite) TestAppendCopiesTheRecord() {
	rec := s.newRecord("invoice", "i-1", audit.TypeCreated)
	s.Require().NoError(s.store.Append(s.ctx, rec))

	rec.RenderedMessage = "mutated after append"

	records, err := s.store.ListBySubject(s.ctx, "invoice", "i-1")
	s.Require().NoError(err)
	s.Empty(records[0].RenderedMessage)
}

func (s *MemoryStoreSuite) TestListRecent() {
	for i := 0; i < 5; i++ {
		s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeFieldChanged)))
	}
	last := s.newRecord("client", "c-1", audit.TypeDeleted)
	s.Require().NoError(s.store.Append(s.ctx, last))

	s.Run("honors the limit newest-first", func() {
		records, err := s.store.ListRecent(s.ctx, 3)
		s.Require().NoError(err)
		s.Require().Len(records, 3)
		s.Equal(last.ID, records[0].ID)
	})

	s.Run("non-positive limit returns everything", func() {
		records, err := s.store.ListRecent(s.ctx, 0)
		s.Require().NoError(err)
		s.Len(records, 6)
	})
}

func (s *MemoryStoreSuite) TestCountBySubject() {
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeCreated)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("invoice", "i-1", audit.TypeDeleted)))
	s.Require().NoError(s.store.Append(s.ctx, s.newRecord("client", "c-1", audit.TypeCreated)))

	count, err := s.store.CountBySubject(s.ctx, "invoice", "i-1")
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *MemoryStoreSuite) TestUpdateRenderedMessage() {
	rec := s.newRecord("invoice", "i-1", audit.TypeCreated)
	s.Require().NoError(s.store.Append(s.ctx, rec))

	s.Require().NoError(s.store.UpdateRenderedMessage(s.ctx, rec.ID, "created Invoice"))

	records, err := s.store.ListBySubject(s.ctx, "invoice", "i-1")
	s.Require().NoError(err)
	s.Equal("created Invoice", records[0].RenderedMessage)

	s.ErrorIs(s.store.UpdateRenderedMessage(s.ctx, uuid.New(), "x"), sentinel.ErrNotFound)
}
