package service

import (
	"context"
	"time"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
	"github.com/scirpter/CWL-Discord-Bot/internal/export"
)

// Gateway is the rate-limited upstream API surface the services consume.
type Gateway interface {
	GetPlayer(ctx context.Context, tag string) (*api.Player, error)
	GetClan(ctx context.Context, tag string) (*api.Clan, error)
	GetCurrentWar(ctx context.Context, tag string) (*api.War, error)
	GetLeagueWars(ctx context.Context, tag string) ([]*api.War, error)
}

type GuildStore interface {
	EnsureGuild(ctx context.Context, guildID string) (*domain.GuildSettings, error)
	ListGuilds(ctx context.Context) ([]domain.GuildSettings, error)
	SetActiveSeason(ctx context.Context, guildID, seasonID string) error
	ListClans(ctx context.Context, guildID string) ([]domain.GuildClan, error)
	GetScoringWeights(ctx context.Context, guildID string) (domain.ScoringWeights, error)
	ListSignupQuestions(ctx context.Context, guildID string) ([]domain.SignupQuestion, error)
}

type SeasonStore interface {
	GetOrCreate(ctx context.Context, guildID, seasonKey, displayName string, startedAt time.Time) (*domain.Season, error)
	GetByID(ctx context.Context, seasonID string) (*domain.Season, error)
	GetByKey(ctx context.Context, guildID, seasonKey string) (*domain.Season, error)
}

type SignupStore interface {
	Upsert(ctx context.Context, signup domain.Signup) (*domain.Signup, error)
	ListBySeason(ctx context.Context, guildID, seasonID string) ([]domain.Signup, error)
}

type StatsStore interface {
	InsertSnapshot(ctx context.Context, snapshot domain.PlayerSnapshot) (*domain.PlayerSnapshot, error)
	LatestSnapshots(ctx context.Context, guildID string, playerTags []string) (map[string]domain.PlayerSnapshot, error)
	ReplaceWarEvents(ctx context.Context, guildID, seasonID, warID, warType string, warDay time.Time, events []domain.WarAttackEvent) error
	ListEventsInWindow(ctx context.Context, guildID string, playerTags []string, since time.Time) ([]domain.WarAttackEvent, error)
}

type JobLedger interface {
	StartJob(ctx context.Context, guildID, seasonID, jobType, correlationID string) (*domain.SyncJobRun, error)
	FinishJob(ctx context.Context, jobID, status, summary string) error
}

// SeasonWriter receives the computed projection after each sync. The
// rendering side is a collaborator; the pipeline only hands the table over.
type SeasonWriter interface {
	WriteSeason(ctx context.Context, guildID string, season domain.Season, rows []export.SeasonRow) error
}
