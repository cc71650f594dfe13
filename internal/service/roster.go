package service

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type RosterService struct {
	guildStore GuildStore
	signups    SignupStore
	stats      StatsStore
	sync       *SyncService
	logger     zerolog.Logger
}

func NewRosterService(
	guildStore GuildStore,
	signups SignupStore,
	stats StatsStore,
	sync *SyncService,
	logger zerolog.Logger,
) *RosterService {
	return &RosterService{
		guildStore: guildStore,
		signups:    signups,
		stats:      stats,
		sync:       sync,
		logger:     logger,
	}
}

// SuggestRoster ranks the season's active signups by composite score, town
// hall breaking ties, signup order breaking the rest. Signups without
// computed stats are excluded rather than ranked with a placeholder score.
func (s *RosterService) SuggestRoster(ctx context.Context, guildID string) ([]domain.SuggestedRosterEntry, error) {
	season, err := s.sync.EnsureGuildSetup(ctx, guildID)
	if err != nil {
		return nil, err
	}

	signups, err := s.signups.ListBySeason(ctx, guildID, season.ID)
	if err != nil {
		return nil, err
	}

	projection, answersByTag, err := buildProjection(ctx, s.guildStore, s.stats, guildID, signups)
	if err != nil {
		return nil, err
	}

	entries := make([]domain.SuggestedRosterEntry, 0, len(signups))
	for _, signup := range signups {
		tag := clash.NormalizeTag(signup.PlayerTag)
		stats, ok := projection[tag]
		if !ok {
			s.logger.Debug().Str("player_tag", tag).Msg("signup has no computed stats, excluding from suggestions")
			continue
		}

		answers := answersByTag[tag]
		entries = append(entries, domain.SuggestedRosterEntry{
			UserID:          signup.UserID,
			PlayerTag:       tag,
			PlayerName:      stats.PlayerName,
			TownHall:        stats.TownHall,
			Score:           stats.RosterScore,
			WarHitrate:      stats.WarHitrate,
			CwlHitrate:      stats.CwlHitrate,
			Availability:    answerOrNA(answers, domain.QuestionAvailability),
			Competitiveness: answerOrNA(answers, domain.QuestionCompetitiveness),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].TownHall > entries[j].TownHall
	})

	return entries, nil
}

func answerOrNA(answers map[int]string, index int) string {
	if value, ok := answers[index]; ok {
		return value
	}
	return "N/A"
}
