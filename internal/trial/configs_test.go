package trial

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahrav/go-trialforge/internal/domain"
)

func TestManager_SetConfig_AppendOnly(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	trial, err := m.Create(ctx, "proj-1", "t1", nil)
	require.NoError(t, err)

	v1, err := m.SetConfig(ctx, "proj-1", trial.ID, "v1", domain.ConfigDocument{"top_k": 1}, nil, false)
	require.NoError(t, err)
	v2, err := m.SetConfig(ctx, "proj-1", trial.ID, "v2", domain.ConfigDocument{"top_k": 2}, nil, false)
	require.NoError(t, err)

	history, err := m.ListConfigs(ctx, trial.ID)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, v1.ID, history[0].ID)
	assert.Equal(t, v2.ID, history[1].ID)
	assert.Equal(t, 1, history[0].ConfigYAML["top_k"], "earlier versions are never overwritten")
}

func TestManager_GetConfig_FallsBackToNewest(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	trial, err := m.Create(ctx, "proj-1", "t1", nil)
	require.NoError(t, err)

	_, err = m.GetConfig(ctx, trial.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = m.SetConfig(ctx, "proj-1", trial.ID, "v1", domain.ConfigDocument{"top_k": 1}, nil, false)
	require.NoError(t, err)
	v2, err := m.SetConfig(ctx, "proj-1", trial.ID, "v2", domain.ConfigDocument{"top_k": 2}, nil, false)
	require.NoError(t, err)

	got, err := m.GetConfig(ctx, trial.ID)
	require.NoError(t, err)
	assert.Equal(t, v2.ID, got.ID)
}

func TestManager_DefaultFlag_MovesAtomically(t *testing.T) {
	ctx := context.Background()
	m, _ := setup(t)

	trial, err := m.Create(ctx, "proj-1", "t1", nil)
	require.NoError(t, err)

	v1, err := m.SetConfig(ctx, "proj-1", trial.ID, "v1", domain.ConfigDocument{"top_k": 1}, nil, true)
	require.NoError(t, err)
	assert.True(t, v1.IsDefault)

	v2, err := m.SetConfig(ctx, "proj-1", trial.ID, "v2", domain.ConfigDocument{"top_k": 2}, nil, true)
	require.NoError(t, err)
	assert.True(t, v2.IsDefault)

	history, err := m.ListConfigs(ctx, trial.ID)
	require.NoError(t, err)
	defaults := 0
	for _, tc := range history {
		if tc.IsDefault {
			defaults++
			assert.Equal(t, v2.ID, tc.ID)
		}
	}
	assert.Equal(t, 1, defaults, "exactly one default at any time")

	// Moving the flag back to an existing version.
	require.NoError(t, m.SetDefault(ctx, trial.ID, v1.ID))
	got, err := m.GetConfig(ctx, trial.ID)
	require.NoError(t, err)
	assert.Equal(t, v1.ID, got.ID)

	assert.ErrorIs(t, m.SetDefault(ctx, trial.ID, "missing"), domain.ErrNotFound)
}
