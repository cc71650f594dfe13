package service

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type signupFixture struct {
	gateway *mockGateway
	guilds  *mockGuildStore
	seasons *mockSeasonStore
	signups *mockSignupStore
	stats   *mockStatsStore
	jobs    *mockJobLedger
	svc     *SignupService

	season *domain.Season
}

func newSignupFixture(t *testing.T) *signupFixture {
	t.Helper()

	f := &signupFixture{
		gateway: &mockGateway{},
		guilds:  &mockGuildStore{},
		seasons: &mockSeasonStore{},
		signups: &mockSignupStore{},
		stats:   &mockStatsStore{},
		jobs:    &mockJobLedger{},
		season:  &domain.Season{ID: "season-1", GuildID: "guild-1", SeasonKey: "2026-09"},
	}
	syncSvc := NewSyncService(f.gateway, f.guilds, f.seasons, f.signups, f.stats, f.jobs, nil, zerolog.Nop())
	f.svc = NewSignupService(f.gateway, f.guilds, f.signups, syncSvc, zerolog.Nop())

	f.guilds.On("EnsureGuild", mock.Anything, "guild-1").
		Return(&domain.GuildSettings{GuildID: "guild-1", ActiveSeasonID: "season-1"}, nil)
	f.seasons.On("GetOrCreate", mock.Anything, "guild-1", mock.Anything, mock.Anything, mock.Anything).
		Return(f.season, nil)
	f.seasons.On("GetByID", mock.Anything, "season-1").Return(f.season, nil)

	return f
}

func (f *signupFixture) allowImmediateSync() {
	f.jobs.On("StartJob", mock.Anything, "guild-1", "season-1", domain.JobTypeSignupImmediate, mock.Anything).
		Return(&domain.SyncJobRun{ID: "job-1"}, nil).Maybe()
	f.jobs.On("FinishJob", mock.Anything, "job-1", mock.Anything, mock.Anything).Return(nil).Maybe()
	f.signups.On("ListBySeason", mock.Anything, "guild-1", "season-1").
		Return([]domain.Signup{{UserID: "u1", PlayerTag: "#Q9P2QJC"}}, nil).Maybe()
	f.stats.On("InsertSnapshot", mock.Anything, mock.Anything).
		Return(&domain.PlayerSnapshot{}, nil).Maybe()
	f.gateway.On("GetCurrentWar", mock.Anything, mock.Anything).Return(nil, nil).Maybe()
	f.gateway.On("GetLeagueWars", mock.Anything, mock.Anything).Return([]*api.War{}, nil).Maybe()
}

func validSubmission() SignupSubmission {
	return SignupSubmission{
		UserID:    "u1",
		PlayerTag: "#q9p2qjc",
		Note:      "prefer weekend wars",
		Answers: []domain.SignupAnswer{
			{QuestionIndex: domain.QuestionAvailability, AnswerValue: domain.AnswerAllWars},
		},
	}
}

func TestSubmitSignupHappyPath(t *testing.T) {
	f := newSignupFixture(t)

	f.guilds.On("ListSignupQuestions", mock.Anything, "guild-1").
		Return(domain.DefaultSignupQuestions(), nil)
	f.gateway.On("GetPlayer", mock.Anything, "#Q9P2QJC").Return(&api.Player{
		Tag:  "#Q9P2QJC",
		Name: "Scirpter",
		Clan: &api.PlayerClan{Tag: "#FAMILY"},
	}, nil)
	f.guilds.On("ListClans", mock.Anything, "guild-1").
		Return([]domain.GuildClan{{GuildID: "guild-1", ClanTag: "#FAMILY"}}, nil)
	f.signups.On("Upsert", mock.Anything, mock.MatchedBy(func(s domain.Signup) bool {
		return s.PlayerTag == "#Q9P2QJC" && s.SeasonID == "season-1" && s.UserID == "u1"
	})).Return(&domain.Signup{ID: "signup-1", PlayerTag: "#Q9P2QJC"}, nil)
	f.allowImmediateSync()

	saved, err := f.svc.Submit(context.Background(), "guild-1", validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "#Q9P2QJC", saved.PlayerTag)
}

func TestSubmitSignupRejectsMalformedTag(t *testing.T) {
	f := newSignupFixture(t)

	submission := validSubmission()
	submission.PlayerTag = "##"

	_, err := f.svc.Submit(context.Background(), "guild-1", submission)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	f.signups.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSubmitSignupRejectsOverlongNote(t *testing.T) {
	f := newSignupFixture(t)

	submission := validSubmission()
	submission.Note = strings.Repeat("x", 241)

	_, err := f.svc.Submit(context.Background(), "guild-1", submission)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestSubmitSignupRejectsLockedSeason(t *testing.T) {
	f := newSignupFixture(t)
	f.season.SignupLocked = true

	_, err := f.svc.Submit(context.Background(), "guild-1", validSubmission())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	assert.Contains(t, err.Error(), "locked")
}

func TestSubmitSignupRejectsUnknownAnswer(t *testing.T) {
	f := newSignupFixture(t)

	f.guilds.On("ListSignupQuestions", mock.Anything, "guild-1").
		Return(domain.DefaultSignupQuestions(), nil)

	submission := validSubmission()
	submission.Answers = []domain.SignupAnswer{
		{QuestionIndex: domain.QuestionAvailability, AnswerValue: "maybe, who knows"},
	}

	_, err := f.svc.Submit(context.Background(), "guild-1", submission)
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
}

func TestSubmitSignupRejectsNonexistentPlayer(t *testing.T) {
	f := newSignupFixture(t)

	f.guilds.On("ListSignupQuestions", mock.Anything, "guild-1").
		Return(domain.DefaultSignupQuestions(), nil)
	f.gateway.On("GetPlayer", mock.Anything, "#Q9P2QJC").
		Return(nil, &domain.NotFoundError{Resource: "player"})

	_, err := f.svc.Submit(context.Background(), "guild-1", validSubmission())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err), "an upstream 404 becomes a caller validation error")
}

func TestSubmitSignupRejectsPlayerOutsideFamily(t *testing.T) {
	f := newSignupFixture(t)

	f.guilds.On("ListSignupQuestions", mock.Anything, "guild-1").
		Return(domain.DefaultSignupQuestions(), nil)
	f.gateway.On("GetPlayer", mock.Anything, "#Q9P2QJC").Return(&api.Player{
		Tag:  "#Q9P2QJC",
		Clan: &api.PlayerClan{Tag: "#STRANGERS"},
	}, nil)
	f.guilds.On("ListClans", mock.Anything, "guild-1").
		Return([]domain.GuildClan{{GuildID: "guild-1", ClanTag: "#FAMILY"}}, nil)

	_, err := f.svc.Submit(context.Background(), "guild-1", validSubmission())
	require.Error(t, err)
	assert.True(t, domain.IsValidation(err))
	f.signups.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything)
}

func TestSubmitSignupSucceedsWhenImmediateSyncFails(t *testing.T) {
	f := newSignupFixture(t)

	f.guilds.On("ListSignupQuestions", mock.Anything, "guild-1").
		Return(domain.DefaultSignupQuestions(), nil)
	f.gateway.On("GetPlayer", mock.Anything, "#Q9P2QJC").Return(&api.Player{
		Tag:  "#Q9P2QJC",
		Clan: &api.PlayerClan{Tag: "#FAMILY"},
	}, nil)
	f.guilds.On("ListClans", mock.Anything, "guild-1").
		Return([]domain.GuildClan{{GuildID: "guild-1", ClanTag: "#FAMILY"}}, nil)
	f.signups.On("Upsert", mock.Anything, mock.Anything).
		Return(&domain.Signup{ID: "signup-1", PlayerTag: "#Q9P2QJC"}, nil)

	// The immediate sync cannot even open a ledger entry; the signup itself
	// must still succeed.
	f.jobs.On("StartJob", mock.Anything, "guild-1", "season-1", domain.JobTypeSignupImmediate, mock.Anything).
		Return(nil, assert.AnError)
	f.signups.On("ListBySeason", mock.Anything, "guild-1", "season-1").
		Return([]domain.Signup{}, nil).Maybe()

	saved, err := f.svc.Submit(context.Background(), "guild-1", validSubmission())
	require.NoError(t, err)
	assert.Equal(t, "#Q9P2QJC", saved.PlayerTag)
}
