package entity

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"audittrail/pkg/platform/sentinel"
)

type InMemoryStoreSuite struct {
	suite.Suite
	store *InMemoryStore
	ctx   context.Context
}

func TestInMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(InMemoryStoreSuite))
}

func (s *InMemoryStoreSuite) SetupTest() {
	s.store = NewInMemoryStore()
	s.store.Register(&Schema{
		Name: "client",
		Fields: []Field{
			{Name: "name", Type: TypeString},
			{Name: "city", Type: TypeString},
		},
	})
	s.ctx = context.Background()
}

func (s *InMemoryStoreSuite) TestSave() {
	s.Run("insert assigns an id and reports not-update", func() {
		m := NewModel(s.store.schemas["client"])
		s.Require().NoError(m.Set("name", "ACME"))

		isUpdate, err := s.store.Save(s.ctx, m)
		s.Require().NoError(err)
		s.False(isUpdate)
		s.NotEmpty(m.ID())
	})

	s.Run("second save of the same row reports update", func() {
		m := NewModel(s.store.schemas["client"])
		s.Require().NoError(m.Set("name", "ACME"))
		_, err := s.store.Save(s.ctx, m)
		s.Require().NoError(err)

		s.Require().NoError(m.Set("city", "Berlin"))
		isUpdate, err := s.store.Save(s.ctx, m)
		s.Require().NoError(err)
		s.True(isUpdate)
	})

	s.Run("unregistered schema fails", func() {
		m := NewModel(&Schema{Name: "unknown"})
		_, err := s.store.Save(s.ctx, m)
		s.Error(err)
	})
}

func (s *InMemoryStoreSuite) TestLoad() {
	m := NewModel(s.store.schemas["client"])
	s.Require().NoError(m.Set("name", "ACME"))
	_, err := s.store.Save(s.ctx, m)
	s.Require().NoError(err)

	s.Run("loads existing row", func() {
		loaded, err := s.store.Load(s.ctx, "client", m.ID())
		s.Require().NoError(err)
		s.Equal("ACME", loaded.Get("name"))
		s.Equal(m.ID(), loaded.ID())
	})

	s.Run("missing row returns not found", func() {
		_, err := s.store.Load(s.ctx, "client", "missing")
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}

func (s *InMemoryStoreSuite) TestDelete() {
	m := NewModel(s.store.schemas["client"])
	s.Require().NoError(m.Set("name", "ACME"))
	_, err := s.store.Save(s.ctx, m)
	s.Require().NoError(err)

	s.Require().NoError(s.store.Delete(s.ctx, m))

	_, err = s.store.Load(s.ctx, "client", m.ID())
	s.ErrorIs(err, sentinel.ErrNotFound)

	s.Equal("ACME", m.Get("name"), "model keeps values after delete")

	s.ErrorIs(s.store.Delete(s.ctx, m), sentinel.ErrNotFound)
}

func (s *InMemoryStoreSuite) TestLookupTitle() {
	m := NewModel(s.store.schemas["client"])
	s.Require().NoError(m.Set("name", "ACME"))
	_, err := s.store.Save(s.ctx, m)
	s.Require().NoError(err)

	s.Run("resolves title field", func() {
		title, err := s.store.LookupTitle(s.ctx, "client", m.ID())
		s.Require().NoError(err)
		s.Equal("ACME", title)
	})

	s.Run("deleted row returns not found", func() {
		s.Require().NoError(s.store.Delete(s.ctx, m))
		_, err := s.store.LookupTitle(s.ctx, "client", m.ID())
		s.ErrorIs(err, sentinel.ErrNotFound)
	})
}
