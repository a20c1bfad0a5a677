package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"audittrail/internal/audit"
	"audittrail/pkg/platform/sentinel"
	txcontext "audittrail/pkg/platform/tx"
)

// Store persists audit records in a single audit_records table with the
// change payload in a json column, mirroring the shape the memory store
// keeps in process. Writes join a caller transaction when one is carried in
// the context, so audit rows commit and roll back with the subject's save.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Schema is the DDL for the audit_records table, applied by migrations.
const Schema = `
CREATE TABLE IF NOT EXISTS audit_records (
	id uuid PRIMARY KEY,
	subject_model text NOT NULL,
	subject_id text NOT NULL,
	event_type text NOT NULL,
	field_ident text NOT NULL DEFAULT '',
	data jsonb,
	actor_id text NOT NULL DEFAULT '',
	actor_name text NOT NULL DEFAULT '',
	rendered_message text NOT NULL DEFAULT '',
	created_at timestamptz NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_records_subject_idx
	ON audit_records (subject_model, subject_id, created_at DESC);
`

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (s *Store) execer(ctx context.Context) dbExecutor {
	if tx, ok := txcontext.From(ctx); ok {
		return tx
	}
	return s.db
}

func (s *Store) Append(ctx context.Context, record *audit.Record) error {
	payload, err := marshalPayload(record)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO audit_records (
			id, subject_model, subject_id, event_type, field_ident,
			data, actor_id, actor_name, rendered_message, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.execer(ctx).ExecContext(ctx, query,
		record.ID,
		record.SubjectModel,
		record.SubjectID,
		string(record.Type),
		record.FieldIdent,
		payload,
		record.ActorID,
		record.ActorName,
		record.RenderedMessage,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *Store) ListBySubject(ctx context.Context, subjectModel, subjectID string) ([]audit.Record, error) {
	query := selectColumns + `
		WHERE subject_model = $1 AND subject_id = $2
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectModel, subjectID)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) ListBySubjectAndType(ctx context.Context, subjectModel, subjectID string, eventType audit.EventType) ([]audit.Record, error) {
	query := selectColumns + `
		WHERE subject_model = $1 AND subject_id = $2 AND event_type = $3
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, subjectModel, subjectID, string(eventType))
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) ListRecent(ctx context.Context, limit int) ([]audit.Record, error) {
	query := selectColumns + `
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query audit records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

func (s *Store) CountBySubject(ctx context.Context, subjectModel, subjectID string) (int, error) {
	query := `
		SELECT COUNT(*) FROM audit_records
		WHERE subject_model = $1 AND subject_id = $2
	`
	var count int
	if err := s.db.QueryRowContext(ctx, query, subjectModel, subjectID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return count, nil
}

func (s *Store) UpdateRenderedMessage(ctx context.Context, id uuid.UUID, message string) error {
	result, err := s.execer(ctx).ExecContext(ctx,
		`UPDATE audit_records SET rendered_message = $1 WHERE id = $2`,
		message, id,
	)
	if err != nil {
		return fmt.Errorf("update rendered message: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update rendered message: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("audit record %s: %w", id, sentinel.ErrNotFound)
	}
	return nil
}

const selectColumns = `
	SELECT id, subject_model, subject_id, event_type, field_ident,
		   data, actor_id, actor_name, rendered_message, created_at
	FROM audit_records
`

// payload is the json column shape: a field delta for field_changed records,
// an open map for custom events, absent for plain lifecycle records.
type payload struct {
	Delta *audit.FieldDelta `json:"delta,omitempty"`
	Data  map[string]any    `json:"data,omitempty"`
}

func marshalPayload(record *audit.Record) ([]byte, error) {
	if record.Delta == nil && len(record.Data) == 0 {
		return nil, nil
	}
	encoded, err := json.Marshal(payload{Delta: record.Delta, Data: record.Data})
	if err != nil {
		return nil, fmt.Errorf("marshal audit payload: %w", err)
	}
	return encoded, nil
}

func scanRecords(rows *sql.Rows) ([]audit.Record, error) {
	var records []audit.Record
	for rows.Next() {
		var (
			rec       audit.Record
			eventType string
			data      []byte
		)
		err := rows.Scan(
			&rec.ID,
			&rec.SubjectModel,
			&rec.SubjectID,
			&eventType,
			&rec.FieldIdent,
			&data,
			&rec.ActorID,
			&rec.ActorName,
			&rec.RenderedMessage,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan audit record: %w", err)
		}
		rec.Type = audit.EventType(eventType)
		if len(data) > 0 {
			var p payload
			if err := json.Unmarshal(data, &p); err != nil {
				return nil, fmt.Errorf("decode audit payload: %w", err)
			}
			rec.Delta = p.Delta
			rec.Data = p.Data
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit records: %w", err)
	}
	return records, nil
}
