package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type rosterFixture struct {
	guilds  *mockGuildStore
	seasons *mockSeasonStore
	signups *mockSignupStore
	stats   *mockStatsStore
	svc     *RosterService
}

func newRosterFixture(t *testing.T) *rosterFixture {
	t.Helper()

	f := &rosterFixture{
		guilds:  &mockGuildStore{},
		seasons: &mockSeasonStore{},
		signups: &mockSignupStore{},
		stats:   &mockStatsStore{},
	}
	syncSvc := NewSyncService(&mockGateway{}, f.guilds, f.seasons, f.signups, f.stats, &mockJobLedger{}, nil, zerolog.Nop())
	f.svc = NewRosterService(f.guilds, f.signups, f.stats, syncSvc, zerolog.Nop())

	season := &domain.Season{ID: "season-1", GuildID: "guild-1", SeasonKey: "2026-09"}
	f.guilds.On("EnsureGuild", mock.Anything, "guild-1").
		Return(&domain.GuildSettings{GuildID: "guild-1", ActiveSeasonID: "season-1"}, nil)
	f.seasons.On("GetOrCreate", mock.Anything, "guild-1", mock.Anything, mock.Anything, mock.Anything).
		Return(season, nil)
	f.seasons.On("GetByID", mock.Anything, "season-1").Return(season, nil)
	f.stats.On("ListEventsInWindow", mock.Anything, "guild-1", mock.Anything, mock.Anything).
		Return([]domain.WarAttackEvent{}, nil)

	return f
}

func TestSuggestRosterOrdersByScore(t *testing.T) {
	f := newRosterFixture(t)

	// The weaker account signed up first; score still decides the order.
	f.signups.On("ListBySeason", mock.Anything, "guild-1", "season-1").Return([]domain.Signup{
		{UserID: "u-weak", PlayerTag: "#WEAK"},
		{UserID: "u-max", PlayerTag: "#MAX"},
	}, nil)
	f.stats.On("LatestSnapshots", mock.Anything, "guild-1", mock.Anything).
		Return(map[string]domain.PlayerSnapshot{
			"#WEAK": {PlayerTag: "#WEAK", PlayerName: "Weak", TownHall: 12, HeroesCombined: 100},
			"#MAX":  {PlayerTag: "#MAX", PlayerName: "Max", TownHall: 18, HeroesCombined: 475},
		}, nil)
	f.guilds.On("GetScoringWeights", mock.Anything, "guild-1").
		Return(domain.DefaultScoringWeights(), nil)

	entries, err := f.svc.SuggestRoster(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "#MAX", entries[0].PlayerTag)
	assert.Equal(t, "#WEAK", entries[1].PlayerTag)
	assert.Greater(t, entries[0].Score, entries[1].Score)
}

func TestSuggestRosterTieBreaksOnTownHallThenSignupOrder(t *testing.T) {
	f := newRosterFixture(t)

	// Zero out the account-strength terms so every score lands on the same
	// neutral value and only the tie-breakers matter.
	f.guilds.On("GetScoringWeights", mock.Anything, "guild-1").
		Return(domain.ScoringWeights{WarWeight: 0.2, CwlWeight: 0.2}, nil)

	f.signups.On("ListBySeason", mock.Anything, "guild-1", "season-1").Return([]domain.Signup{
		{UserID: "u1", PlayerTag: "#P"},
		{UserID: "u2", PlayerTag: "#Q"},
		{UserID: "u3", PlayerTag: "#R"},
	}, nil)
	f.stats.On("LatestSnapshots", mock.Anything, "guild-1", mock.Anything).
		Return(map[string]domain.PlayerSnapshot{
			"#P": {PlayerTag: "#P", TownHall: 14},
			"#Q": {PlayerTag: "#Q", TownHall: 16},
			"#R": {PlayerTag: "#R", TownHall: 14},
		}, nil)

	entries, err := f.svc.SuggestRoster(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "#Q", entries[0].PlayerTag, "higher town hall wins the tie")
	assert.Equal(t, "#P", entries[1].PlayerTag, "equal town halls keep signup order")
	assert.Equal(t, "#R", entries[2].PlayerTag)
}

func TestSuggestRosterExcludesSignupsWithoutStats(t *testing.T) {
	f := newRosterFixture(t)

	f.signups.On("ListBySeason", mock.Anything, "guild-1", "season-1").Return([]domain.Signup{
		{
			UserID:    "u1",
			PlayerTag: "#KNOWN",
			Answers: []domain.SignupAnswer{
				{QuestionIndex: domain.QuestionAvailability, AnswerValue: domain.AnswerAllWars},
			},
		},
		{UserID: "u2", PlayerTag: "#NEVERSYNCED"},
	}, nil)
	f.stats.On("LatestSnapshots", mock.Anything, "guild-1", mock.Anything).
		Return(map[string]domain.PlayerSnapshot{
			"#KNOWN": {PlayerTag: "#KNOWN", PlayerName: "Known", TownHall: 15},
		}, nil)
	f.guilds.On("GetScoringWeights", mock.Anything, "guild-1").
		Return(domain.DefaultScoringWeights(), nil)

	entries, err := f.svc.SuggestRoster(context.Background(), "guild-1")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "#KNOWN", entries[0].PlayerTag)
	assert.Equal(t, domain.AnswerAllWars, entries[0].Availability)
	assert.Equal(t, "N/A", entries[0].Competitiveness, "unanswered questions render as N/A")
}
