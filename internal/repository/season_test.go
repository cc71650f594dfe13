package repository

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

func TestGetOrCreateSeason(t *testing.T) {
	repo := NewSeasonRepository(testDB(t), zerolog.Nop())
	ctx := context.Background()

	started := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	first, err := repo.GetOrCreate(ctx, "guild-1", "2026-09", "Sep 2026 CWL", started)
	require.NoError(t, err)
	assert.Equal(t, "2026-09", first.SeasonKey)
	assert.Equal(t, "Sep 2026 CWL", first.DisplayName)
	assert.False(t, first.SignupLocked)

	again, err := repo.GetOrCreate(ctx, "guild-1", "2026-09", "Sep 2026 CWL", started)
	require.NoError(t, err)
	assert.Equal(t, first.ID, again.ID, "same guild and key resolve to the same season")

	other, err := repo.GetOrCreate(ctx, "guild-2", "2026-09", "Sep 2026 CWL", started)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID, "seasons are scoped per guild")
}

func TestSeasonLookups(t *testing.T) {
	repo := NewSeasonRepository(testDB(t), zerolog.Nop())
	ctx := context.Background()

	started := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	season, err := repo.GetOrCreate(ctx, "guild-1", "2026-09", "Sep 2026 CWL", started)
	require.NoError(t, err)

	byID, err := repo.GetByID(ctx, season.ID)
	require.NoError(t, err)
	assert.Equal(t, season.SeasonKey, byID.SeasonKey)

	byKey, err := repo.GetByKey(ctx, "guild-1", "2026-09")
	require.NoError(t, err)
	assert.Equal(t, season.ID, byKey.ID)

	_, err = repo.GetByKey(ctx, "guild-1", "2019-01")
	require.Error(t, err)
	assert.True(t, domain.IsDataIntegrity(err))
}

func TestSeasonSignupLockRoundTrip(t *testing.T) {
	repo := NewSeasonRepository(testDB(t), zerolog.Nop())
	ctx := context.Background()

	season, err := repo.GetOrCreate(ctx, "guild-1", "2026-09", "Sep 2026 CWL", time.Now().UTC())
	require.NoError(t, err)

	require.NoError(t, repo.SetSignupLocked(ctx, season.ID, true))
	locked, err := repo.GetByID(ctx, season.ID)
	require.NoError(t, err)
	assert.True(t, locked.SignupLocked)

	require.NoError(t, repo.SetSignupLocked(ctx, season.ID, false))
	unlocked, err := repo.GetByID(ctx, season.ID)
	require.NoError(t, err)
	assert.False(t, unlocked.SignupLocked)
}
