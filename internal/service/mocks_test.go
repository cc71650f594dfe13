package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
	"github.com/scirpter/CWL-Discord-Bot/internal/export"
)

type mockGateway struct {
	mock.Mock
}

func (m *mockGateway) GetPlayer(ctx context.Context, tag string) (*api.Player, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Player), args.Error(1)
}

func (m *mockGateway) GetClan(ctx context.Context, tag string) (*api.Clan, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.Clan), args.Error(1)
}

func (m *mockGateway) GetCurrentWar(ctx context.Context, tag string) (*api.War, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*api.War), args.Error(1)
}

func (m *mockGateway) GetLeagueWars(ctx context.Context, tag string) ([]*api.War, error) {
	args := m.Called(ctx, tag)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*api.War), args.Error(1)
}

type mockGuildStore struct {
	mock.Mock
}

func (m *mockGuildStore) EnsureGuild(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.GuildSettings), args.Error(1)
}

func (m *mockGuildStore) ListGuilds(ctx context.Context) ([]domain.GuildSettings, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GuildSettings), args.Error(1)
}

func (m *mockGuildStore) SetActiveSeason(ctx context.Context, guildID, seasonID string) error {
	args := m.Called(ctx, guildID, seasonID)
	return args.Error(0)
}

func (m *mockGuildStore) ListClans(ctx context.Context, guildID string) ([]domain.GuildClan, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GuildClan), args.Error(1)
}

func (m *mockGuildStore) GetScoringWeights(ctx context.Context, guildID string) (domain.ScoringWeights, error) {
	args := m.Called(ctx, guildID)
	return args.Get(0).(domain.ScoringWeights), args.Error(1)
}

func (m *mockGuildStore) ListSignupQuestions(ctx context.Context, guildID string) ([]domain.SignupQuestion, error) {
	args := m.Called(ctx, guildID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.SignupQuestion), args.Error(1)
}

type mockSeasonStore struct {
	mock.Mock
}

func (m *mockSeasonStore) GetOrCreate(ctx context.Context, guildID, seasonKey, displayName string, startedAt time.Time) (*domain.Season, error) {
	args := m.Called(ctx, guildID, seasonKey, displayName, startedAt)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Season), args.Error(1)
}

func (m *mockSeasonStore) GetByID(ctx context.Context, seasonID string) (*domain.Season, error) {
	args := m.Called(ctx, seasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Season), args.Error(1)
}

func (m *mockSeasonStore) GetByKey(ctx context.Context, guildID, seasonKey string) (*domain.Season, error) {
	args := m.Called(ctx, guildID, seasonKey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Season), args.Error(1)
}

type mockSignupStore struct {
	mock.Mock
}

func (m *mockSignupStore) Upsert(ctx context.Context, signup domain.Signup) (*domain.Signup, error) {
	args := m.Called(ctx, signup)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Signup), args.Error(1)
}

func (m *mockSignupStore) ListBySeason(ctx context.Context, guildID, seasonID string) ([]domain.Signup, error) {
	args := m.Called(ctx, guildID, seasonID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Signup), args.Error(1)
}

type mockStatsStore struct {
	mock.Mock
}

func (m *mockStatsStore) InsertSnapshot(ctx context.Context, snapshot domain.PlayerSnapshot) (*domain.PlayerSnapshot, error) {
	args := m.Called(ctx, snapshot)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PlayerSnapshot), args.Error(1)
}

func (m *mockStatsStore) LatestSnapshots(ctx context.Context, guildID string, playerTags []string) (map[string]domain.PlayerSnapshot, error) {
	args := m.Called(ctx, guildID, playerTags)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(map[string]domain.PlayerSnapshot), args.Error(1)
}

func (m *mockStatsStore) ReplaceWarEvents(ctx context.Context, guildID, seasonID, warID, warType string, warDay time.Time, events []domain.WarAttackEvent) error {
	args := m.Called(ctx, guildID, seasonID, warID, warType, warDay, events)
	return args.Error(0)
}

func (m *mockStatsStore) ListEventsInWindow(ctx context.Context, guildID string, playerTags []string, since time.Time) ([]domain.WarAttackEvent, error) {
	args := m.Called(ctx, guildID, playerTags, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.WarAttackEvent), args.Error(1)
}

type mockJobLedger struct {
	mock.Mock
}

func (m *mockJobLedger) StartJob(ctx context.Context, guildID, seasonID, jobType, correlationID string) (*domain.SyncJobRun, error) {
	args := m.Called(ctx, guildID, seasonID, jobType, correlationID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.SyncJobRun), args.Error(1)
}

func (m *mockJobLedger) FinishJob(ctx context.Context, jobID, status, summary string) error {
	args := m.Called(ctx, jobID, status, summary)
	return args.Error(0)
}

type mockSeasonWriter struct {
	mock.Mock
}

func (m *mockSeasonWriter) WriteSeason(ctx context.Context, guildID string, season domain.Season, rows []export.SeasonRow) error {
	args := m.Called(ctx, guildID, season, rows)
	return args.Error(0)
}
