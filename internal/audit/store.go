package audit

import (
	"context"

	"github.com/google/uuid"
)

// Store persists audit records. Implementations are append-only: records are
// never updated after creation except to backfill the rendered message, and
// never deleted — audit history outlives the entities it describes.
//
// All list operations return newest-first.
type Store interface {
	Append(ctx context.Context, record *Record) error
	ListBySubject(ctx context.Context, subjectModel, subjectID string) ([]Record, error)
	ListBySubjectAndType(ctx context.Context, subjectModel, subjectID string, eventType EventType) ([]Record, error)
	ListRecent(ctx context.Context, limit int) ([]Record, error)
	CountBySubject(ctx context.Context, subjectModel, subjectID string) (int, error)
	UpdateRenderedMessage(ctx context.Context, id uuid.UUID, message string) error
}
