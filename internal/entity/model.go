package entity

import (
	"fmt"
	"reflect"
	"time"
)

// Model is a generic schema-backed record with dirty tracking. It implements
// the capability interfaces the audit core accepts (subject metadata, dirty
// snapshot, optional suppression and skip list) through composition rather
// than inheritance, so any persistence-layer record type can stand in for it.
type Model struct {
	schema     *Schema
	id         string
	values     map[string]any
	dirty      map[string]any
	noAudit    bool
	skipFields map[string]struct{}
}

func NewModel(schema *Schema) *Model {
	return &Model{
		schema:     schema,
		values:     make(map[string]any),
		dirty:      make(map[string]any),
		skipFields: make(map[string]struct{}),
	}
}

func (m *Model) Schema() *Schema { return m.schema }

func (m *Model) ID() string { return m.id }

func (m *Model) SetID(id string) { m.id = id }

// Get returns the current value of field, or nil when unset.
func (m *Model) Get(field string) any { return m.values[field] }

// Title returns the value of the schema's title field as a string.
func (m *Model) Title() string {
	v := m.values[m.schema.TitleFieldName()]
	if v == nil {
		return ""
	}
	return fmt.Sprintf("%v", v)
}

// Set assigns a value and records the prior value in the dirty map. Setting a
// field back to its original value clears the dirty entry again. Unknown
// fields are an integration bug and fail hard.
func (m *Model) Set(field string, value any) error {
	if !m.schema.HasField(field) && field != m.schema.IDFieldName() {
		return fmt.Errorf("model %q has no field %q", m.schema.Name, field)
	}
	if field == m.schema.IDFieldName() {
		m.id = fmt.Sprintf("%v", value)
		return nil
	}
	prior, wasDirty := m.dirty[field]
	if !wasDirty {
		prior = m.values[field]
	}
	if valuesEqual(prior, value) {
		delete(m.dirty, field)
	} else if !wasDirty {
		m.dirty[field] = prior
	}
	m.values[field] = value
	return nil
}

// SnapshotBeforeWrite returns a copy of the dirty map: field name to the
// value it held before the pending write. Call immediately before persisting,
// then hand the snapshot to the recorder after the write.
func (m *Model) SnapshotBeforeWrite() map[string]any {
	snap := make(map[string]any, len(m.dirty))
	for k, v := range m.dirty {
		snap[k] = v
	}
	return snap
}

// ClearDirty resets dirty tracking, typically after a successful save.
func (m *Model) ClearDirty() { m.dirty = make(map[string]any) }

// SetNoAudit toggles per-entity audit suppression.
func (m *Model) SetNoAudit(v bool) { m.noAudit = v }

func (m *Model) NoAudit() bool { return m.noAudit }

// SkipAuditFields adds field names to this model's audit exclusion list.
func (m *Model) SkipAuditFields(names ...string) {
	for _, n := range names {
		m.skipFields[n] = struct{}{}
	}
}

func (m *Model) SkipFieldFromAudit(field string) bool {
	_, ok := m.skipFields[field]
	return ok
}

// Values returns a copy of the current field values.
func (m *Model) Values() map[string]any {
	out := make(map[string]any, len(m.values))
	for k, v := range m.values {
		out[k] = v
	}
	return out
}

func valuesEqual(a, b any) bool {
	at, aok := a.(time.Time)
	bt, bok := b.(time.Time)
	if aok && bok {
		return at.Equal(bt)
	}
	return reflect.DeepEqual(a, b)
}
