package editor

import (
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cv-builder/internal/preview"
)

func newTestManager() *Manager {
	return NewManager(newFakeRepo(), &fakeGate{allowed: true}, &fakeExporter{}, preview.NewRenderer(), zerolog.Nop())
}

func TestManagerOpenGetClose(t *testing.T) {
	m := newTestManager()

	s := m.Open(nil)
	got, err := m.Get(s.ID())
	require.NoError(t, err)
	assert.Same(t, s, got)

	m.Close(s.ID())
	_, err = m.Get(s.ID())
	assert.ErrorIs(t, err, ErrNoSuchSession)
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	m := newTestManager()

	a := m.Open(nil)
	b := m.Open(nil)

	require.NoError(t, a.SetValue("personalInfo.firstName", "Anna"))
	assert.Equal(t, "", b.Snapshot().PersonalInfo.FirstName)
}

func TestManagerForUser(t *testing.T) {
	m := newTestManager()
	user := &Identity{ID: uuid.New()}

	m.Open(user)
	m.Open(user)
	m.Open(nil)
	m.Open(&Identity{ID: uuid.New()})

	assert.Len(t, m.ForUser(user.ID), 2)
}
