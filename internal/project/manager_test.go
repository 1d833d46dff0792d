package project

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-trialforge/internal/domain"
)

func TestManager_Create(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	p, err := m.Create(ctx, "rag-eval", "evaluation playground")
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, domain.ProjectActive, p.Status)

	_, err = m.Create(ctx, "rag-eval", "same name again")
	assert.ErrorIs(t, err, domain.ErrProjectNameTaken)
}

func TestManager_Create_InvalidName(t *testing.T) {
	m := NewManager()

	_, err := m.Create(context.Background(), "", "no name")
	require.Error(t, err)

	long := make([]byte, 129)
	for i := range long {
		long[i] = 'a'
	}
	_, err = m.Create(context.Background(), string(long), "too long")
	require.Error(t, err)
}

func TestManager_List_Pagination(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	for i := 0; i < 25; i++ {
		_, err := m.Create(ctx, fmt.Sprintf("project-%02d", i), "")
		require.NoError(t, err)
	}

	total, page1, err := m.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, page1, DefaultLimit)

	total, page3, err := m.List(ctx, ListFilter{Page: 3})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Len(t, page3, 5)

	total, beyond, err := m.List(ctx, ListFilter{Page: 9})
	require.NoError(t, err)
	assert.Equal(t, 25, total)
	assert.Empty(t, beyond)
}

func TestManager_List_InvalidStatus(t *testing.T) {
	_, _, err := NewManager().List(context.Background(), ListFilter{Status: "deleted"})
	require.Error(t, err)
}

func TestManager_Archive(t *testing.T) {
	ctx := context.Background()
	m := NewManager()

	p, err := m.Create(ctx, "to-archive", "")
	require.NoError(t, err)
	keep, err := m.Create(ctx, "to-keep", "")
	require.NoError(t, err)

	require.NoError(t, m.Archive(ctx, p.ID))
	require.NoError(t, m.Archive(ctx, p.ID), "archiving twice is a no-op")

	total, active, err := m.List(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, active, 1)
	assert.Equal(t, keep.ID, active[0].ID)

	total, archived, err := m.List(ctx, ListFilter{Status: domain.ProjectArchived})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, archived, 1)
	assert.Equal(t, p.ID, archived[0].ID)

	assert.ErrorIs(t, m.Archive(ctx, "missing"), domain.ErrNotFound)
}
