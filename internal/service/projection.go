package service

import (
	"context"

	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

// buildProjection assembles the metrics-engine input for the given signups
// and runs it: latest snapshot per player, events within the scoring window,
// signup answers and the guild's weights.
func buildProjection(
	ctx context.Context,
	guilds GuildStore,
	stats StatsStore,
	guildID string,
	signups []domain.Signup,
) (map[string]domain.ComputedPlayerStats, map[string]map[int]string, error) {
	seen := make(map[string]bool, len(signups))
	playerTags := make([]string, 0, len(signups))
	for _, signup := range signups {
		tag := clash.NormalizeTag(signup.PlayerTag)
		if seen[tag] {
			continue
		}
		seen[tag] = true
		playerTags = append(playerTags, tag)
	}

	snapshotsByTag, err := stats.LatestSnapshots(ctx, guildID, playerTags)
	if err != nil {
		return nil, nil, err
	}

	events, err := stats.ListEventsInWindow(ctx, guildID, playerTags, clash.DaysAgo(constants.EventWindowDays))
	if err != nil {
		return nil, nil, err
	}

	weights, err := guilds.GetScoringWeights(ctx, guildID)
	if err != nil {
		return nil, nil, err
	}

	eventsByTag := make(map[string][]domain.WarAttackEvent)
	for _, event := range events {
		tag := clash.NormalizeTag(event.PlayerTag)
		eventsByTag[tag] = append(eventsByTag[tag], event)
	}

	answersByTag := make(map[string]map[int]string, len(signups))
	for _, signup := range signups {
		answers := make(map[int]string, len(signup.Answers))
		for _, answer := range signup.Answers {
			answers[answer.QuestionIndex] = answer.AnswerValue
		}
		answersByTag[clash.NormalizeTag(signup.PlayerTag)] = answers
	}

	return ComputeStats(snapshotsByTag, eventsByTag, answersByTag, weights), answersByTag, nil
}
