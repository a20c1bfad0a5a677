// Package audit is the change-auditing core: it decides which field changes
// are worth recording, writes one immutable record per audited event, and
// renders stable human-readable messages from the stored deltas.
package audit

import (
	"time"

	"github.com/google/uuid"

	"audittrail/internal/entity"
)

// EventType tags what an audit record describes. Lifecycle events use the
// constants below; custom events (many-to-many links, satellite models,
// arbitrary typed events) carry their own name.
type EventType string

const (
	TypeCreated      EventType = "created"
	TypeDeleted      EventType = "deleted"
	TypeFieldChanged EventType = "field_changed"
)

// IsLifecycle reports whether the type is one of the built-in events.
func (t EventType) IsLifecycle() bool {
	return t == TypeCreated || t == TypeDeleted || t == TypeFieldChanged
}

// FieldDelta is the stored payload of a field_changed record. Values are
// encoded per classification at write time: scalars raw, temporals as
// RFC3339 text, enumerated fields as their raw key, references as the raw
// foreign-key id. Secret fields store no values at all.
type FieldDelta struct {
	FieldType string `json:"field_type"`
	OldValue  any    `json:"old_value"`
	NewValue  any    `json:"new_value"`
}

// Record is one immutable-after-write audit event. The subject is a weak
// reference: records outlive the entity they describe, and actor identity is
// denormalized at write time since users get renamed and deleted.
type Record struct {
	ID           uuid.UUID `json:"id"`
	SubjectModel string    `json:"subject_model"`
	SubjectID    string    `json:"subject_id"`
	Type         EventType `json:"type"`
	// FieldIdent names the changed field; set only for field_changed.
	FieldIdent string      `json:"field_ident,omitempty"`
	Delta      *FieldDelta `json:"delta,omitempty"`
	// Data is the open payload of custom events.
	Data            map[string]any `json:"data,omitempty"`
	ActorID         string         `json:"actor_id,omitempty"`
	ActorName       string         `json:"actor_name,omitempty"`
	RenderedMessage string         `json:"rendered_message,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
}

// Subject is what the audit core needs to know about a tracked entity:
// its metadata, identity, and current field values.
type Subject interface {
	Schema() *entity.Schema
	ID() string
	Get(field string) any
}

// DirtySource yields the prior values of fields changed since the last
// save, captured immediately before the write.
type DirtySource interface {
	SnapshotBeforeWrite() map[string]any
}

// Suppressor is optionally implemented by subjects that opt out of auditing
// entirely, e.g. a derived model of an audited base.
type Suppressor interface {
	NoAudit() bool
}

// FieldSkipper is optionally implemented by subjects carrying an explicit
// audit exclusion list, checked by field name.
type FieldSkipper interface {
	SkipFieldFromAudit(field string) bool
}

// Satellite exposes the designated field of a secondary model (e.g. an email
// entry) for custom audit entries: its current value and, if the field was
// just changed, the prior value.
type Satellite interface {
	Schema() *entity.Schema
	Current() any
	Prior() (any, bool)
}
