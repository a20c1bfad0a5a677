package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"audittrail/pkg/platform/sentinel"
)

// InMemoryStore persists models per schema and serves the id+title
// projection the message renderer needs for reference fields. It backs the
// tests and the demo server; any persistence layer exposing the same
// operations can replace it.
type InMemoryStore struct {
	mu      sync.RWMutex
	schemas map[string]*Schema
	records map[string]map[string]map[string]any
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		schemas: make(map[string]*Schema),
		records: make(map[string]map[string]map[string]any),
	}
}

// Register makes a schema known to the store. Saving or loading models of an
// unregistered schema is an integration bug.
func (s *InMemoryStore) Register(schema *Schema) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schemas[schema.Name] = schema
	if s.records[schema.Name] == nil {
		s.records[schema.Name] = make(map[string]map[string]any)
	}
}

// Save writes the model's current values, assigning an id on first insert.
// It reports whether the write was an update of an existing row.
func (s *InMemoryStore) Save(_ context.Context, m *Model) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.records[m.Schema().Name]
	if !ok {
		return false, fmt.Errorf("schema %q not registered", m.Schema().Name)
	}
	isUpdate := false
	if m.ID() == "" {
		m.SetID(uuid.NewString())
	} else {
		_, isUpdate = rows[m.ID()]
	}
	rows[m.ID()] = m.Values()
	return isUpdate, nil
}

// Load returns a model for the stored row, or sentinel.ErrNotFound.
func (s *InMemoryStore) Load(_ context.Context, schemaName, id string) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schema, ok := s.schemas[schemaName]
	if !ok {
		return nil, fmt.Errorf("schema %q not registered", schemaName)
	}
	values, ok := s.records[schemaName][id]
	if !ok {
		return nil, fmt.Errorf("load %s %s: %w", schemaName, id, sentinel.ErrNotFound)
	}
	m := NewModel(schema)
	m.SetID(id)
	for k, v := range values {
		m.values[k] = v
	}
	return m, nil
}

// Delete removes the row. The model keeps its values so post-delete audit
// recording can still read them.
func (s *InMemoryStore) Delete(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, ok := s.records[m.Schema().Name]
	if !ok {
		return fmt.Errorf("schema %q not registered", m.Schema().Name)
	}
	if _, ok := rows[m.ID()]; !ok {
		return fmt.Errorf("delete %s %s: %w", m.Schema().Name, m.ID(), sentinel.ErrNotFound)
	}
	delete(rows, m.ID())
	return nil
}

// LookupTitle resolves a referenced row to its display title, restricted to
// the id+title projection. Returns sentinel.ErrNotFound when the row is gone.
func (s *InMemoryStore) LookupTitle(_ context.Context, schemaName, id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	schema, ok := s.schemas[schemaName]
	if !ok {
		return "", fmt.Errorf("schema %q not registered", schemaName)
	}
	values, ok := s.records[schemaName][id]
	if !ok {
		return "", fmt.Errorf("lookup title %s %s: %w", schemaName, id, sentinel.ErrNotFound)
	}
	title := values[schema.TitleFieldName()]
	if title == nil {
		return "", nil
	}
	return fmt.Sprintf("%v", title), nil
}
