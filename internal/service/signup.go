package service

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type SignupService struct {
	gateway    Gateway
	guildStore GuildStore
	signups    SignupStore
	sync       *SyncService
	logger     zerolog.Logger
}

func NewSignupService(
	gateway Gateway,
	guildStore GuildStore,
	signups SignupStore,
	sync *SyncService,
	logger zerolog.Logger,
) *SignupService {
	return &SignupService{
		gateway:    gateway,
		guildStore: guildStore,
		signups:    signups,
		sync:       sync,
		logger:     logger,
	}
}

type SignupSubmission struct {
	UserID    string
	PlayerTag string
	Note      string
	Answers   []domain.SignupAnswer
}

// Submit validates and upserts a signup for the active season, then kicks
// off an immediate targeted sync so the new player shows up in the next
// projection. The immediate sync's failure is logged but not surfaced.
func (s *SignupService) Submit(ctx context.Context, guildID string, submission SignupSubmission) (*domain.Signup, error) {
	playerTag := clash.NormalizeTag(submission.PlayerTag)
	if !clash.IsValidTag(playerTag) {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("malformed player tag %q", submission.PlayerTag)}
	}
	if len(submission.Note) > constants.NoteMaxLength {
		return nil, &domain.ValidationError{Msg: fmt.Sprintf("notes must be %d characters or fewer", constants.NoteMaxLength)}
	}

	season, err := s.sync.EnsureGuildSetup(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if season.SignupLocked {
		return nil, &domain.ValidationError{Msg: "signups are currently locked for this season"}
	}

	questions, err := s.guildStore.ListSignupQuestions(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if err := validateAnswers(submission.Answers, questions); err != nil {
		return nil, err
	}

	player, err := s.gateway.GetPlayer(ctx, playerTag)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, &domain.ValidationError{Msg: fmt.Sprintf("player %s does not exist", playerTag)}
		}
		return nil, fmt.Errorf("failed to verify player %s: %w", playerTag, err)
	}

	playerClanTag := ""
	if player.Clan != nil {
		playerClanTag = clash.NormalizeTag(player.Clan.Tag)
	}
	if err := s.requireFamilyClan(ctx, guildID, playerClanTag); err != nil {
		return nil, err
	}

	saved, err := s.signups.Upsert(ctx, domain.Signup{
		GuildID:   guildID,
		SeasonID:  season.ID,
		UserID:    submission.UserID,
		PlayerTag: playerTag,
		Note:      submission.Note,
		Answers:   submission.Answers,
	})
	if err != nil {
		return nil, err
	}

	if _, err := s.sync.RunSync(ctx, guildID, SyncOptions{
		JobType:          domain.JobTypeSignupImmediate,
		TargetPlayerTags: []string{playerTag},
	}); err != nil {
		s.logger.Warn().Err(err).Str("player_tag", playerTag).Msg("immediate signup sync failed")
	}

	return saved, nil
}

// requireFamilyClan rejects signups from players outside the guild's
// configured family clans.
func (s *SignupService) requireFamilyClan(ctx context.Context, guildID, playerClanTag string) error {
	clans, err := s.guildStore.ListClans(ctx, guildID)
	if err != nil {
		return err
	}
	for _, clan := range clans {
		if clash.NormalizeTag(clan.ClanTag) == playerClanTag && playerClanTag != "" {
			return nil
		}
	}
	return &domain.ValidationError{Msg: "player must be in one of the configured family clans to sign up"}
}

func validateAnswers(answers []domain.SignupAnswer, questions []domain.SignupQuestion) error {
	byIndex := make(map[int]domain.SignupQuestion, len(questions))
	for _, question := range questions {
		byIndex[question.Index] = question
	}

	for _, answer := range answers {
		question, ok := byIndex[answer.QuestionIndex]
		if !ok {
			return &domain.ValidationError{Msg: fmt.Sprintf("question %d is invalid", answer.QuestionIndex)}
		}
		allowed := false
		for _, option := range question.Options {
			if option == answer.AnswerValue {
				allowed = true
				break
			}
		}
		if !allowed {
			return &domain.ValidationError{Msg: fmt.Sprintf("answer %q is not allowed for question %d", answer.AnswerValue, answer.QuestionIndex)}
		}
	}
	return nil
}
