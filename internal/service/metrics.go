package service

import (
	"math"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

// ComputeStats turns snapshots, windowed war events, signup answers and
// weights into per-player computed statistics and a composite roster score.
// It is a pure function: identical input always yields identical output,
// empty input yields empty output, and it never fails.
func ComputeStats(
	snapshotsByTag map[string]domain.PlayerSnapshot,
	eventsByTag map[string][]domain.WarAttackEvent,
	answersByTag map[string]map[int]string,
	weights domain.ScoringWeights,
) map[string]domain.ComputedPlayerStats {
	statsByTag := make(map[string]domain.ComputedPlayerStats, len(snapshotsByTag))

	for playerTag, snapshot := range snapshotsByTag {
		events := eventsByTag[playerTag]
		answers := answersByTag[playerTag]

		var totalAttacks, stars, threeStars, twoStars, oneStars, zeroStars, missed, defenseStars int
		var destruction, defenseDestruction float64
		var warAttacks, warStars, cwlAttacks, cwlStars int
		var lastCwlDay *domain.WarAttackEvent

		for i := range events {
			event := events[i]
			totalAttacks += event.AttacksUsed
			stars += event.Stars
			destruction += event.Destruction
			threeStars += event.Triples
			twoStars += event.Twos
			oneStars += event.Ones
			zeroStars += event.Zeroes
			if event.Missed {
				missed++
			}
			defenseStars += event.DefenseStars
			defenseDestruction += event.DefenseDestruction

			switch event.WarType {
			case domain.WarTypeRegular:
				warAttacks += event.AttacksUsed
				warStars += event.Stars
			case domain.WarTypeCwl:
				cwlAttacks += event.AttacksUsed
				cwlStars += event.Stars
				if lastCwlDay == nil || event.WarDay.After(lastCwlDay.WarDay) {
					lastCwlDay = &events[i]
				}
			}
		}

		warHitrate := hitrate(warStars, warAttacks)
		cwlHitrate := hitrate(cwlStars, cwlAttacks)

		lastCwl := "N/A"
		if lastCwlDay != nil {
			lastCwl = lastCwlDay.WarDay.UTC().Format("2006-01")
		}

		statsByTag[playerTag] = domain.ComputedPlayerStats{
			PlayerTag:             playerTag,
			PlayerName:            snapshot.PlayerName,
			CurrentClan:           clanOrUnknown(snapshot.ClanTag),
			TownHall:              snapshot.TownHall,
			CombinedHeroes:        snapshot.HeroesCombined,
			WarHitrate:            warHitrate,
			CwlHitrate:            cwlHitrate,
			LastCwl:               lastCwl,
			TotalAttacks:          totalAttacks,
			Stars:                 stars,
			AvgStars:              average(float64(stars), totalAttacks),
			Destruction:           roundTo(destruction, 2),
			AvgDestruction:        average(destruction, totalAttacks),
			ThreeStars:            threeStars,
			TwoStars:              twoStars,
			OneStars:              oneStars,
			ZeroStars:             zeroStars,
			Missed:                missed,
			DefenseStars:          defenseStars,
			DefenseAvgStars:       average(float64(defenseStars), totalAttacks),
			DefenseDestruction:    roundTo(defenseDestruction, 2),
			DefenseAvgDestruction: average(defenseDestruction, totalAttacks),
			RosterScore: compositeScore(scoreInput{
				townHall:       snapshot.TownHall,
				combinedHeroes: snapshot.HeroesCombined,
				warHitrate:     warHitrate,
				cwlHitrate:     cwlHitrate,
				missed:         missed,
				totalAttacks:   totalAttacks,
				answers:        answers,
				weights:        weights,
			}),
		}
	}

	return statsByTag
}

// Normalization caps for the town-hall and hero score terms. They represent
// "max relevant level" so the score stays bounded without per-season
// recalibration.
const (
	maxTownHall       = 18
	maxCombinedHeroes = 475
)

// Missing hit-rate data (no attacks yet) counts as neutral rather than
// penalized, so new players are not ranked last by default.
const neutralHitrate = 0.5

type scoreInput struct {
	townHall       int
	combinedHeroes int
	warHitrate     *float64
	cwlHitrate     *float64
	missed         int
	totalAttacks   int
	answers        map[int]string
	weights        domain.ScoringWeights
}

func compositeScore(in scoreInput) float64 {
	thScore := math.Min(1, float64(in.townHall)/maxTownHall)
	heroScore := math.Min(1, float64(in.combinedHeroes)/maxCombinedHeroes)
	warScore := orNeutral(in.warHitrate)
	cwlScore := orNeutral(in.cwlHitrate)

	missedRate := 0.0
	if in.totalAttacks > 0 {
		missedRate = float64(in.missed) / float64(in.totalAttacks)
	}

	score := thScore*in.weights.THWeight +
		heroScore*in.weights.HeroWeight +
		warScore*in.weights.WarWeight +
		cwlScore*in.weights.CwlWeight -
		missedRate*in.weights.MissedPenalty

	switch in.answers[domain.QuestionAvailability] {
	case domain.AnswerAllWars:
		score += in.weights.AvailabilityBonus
	case domain.AnswerPartial:
		score += in.weights.AvailabilityBonus * 0.5
	}

	switch in.answers[domain.QuestionCompetitiveness] {
	case domain.AnswerCompetitive:
		score += in.weights.CompetitiveBonus
	case domain.AnswerEither:
		score += in.weights.CompetitiveBonus * 0.5
	}

	return roundTo(math.Max(0, math.Min(1.5, score)), 4)
}

// hitrate is stars over maximum possible stars for the attacks used. Nil
// means no attacks, which callers must keep distinct from a true 0.
func hitrate(stars, attacks int) *float64 {
	if attacks <= 0 {
		return nil
	}
	v := roundTo(float64(stars)/(float64(attacks)*3), 2)
	return &v
}

func average(total float64, attacks int) *float64 {
	if attacks <= 0 {
		return nil
	}
	v := roundTo(total/float64(attacks), 2)
	return &v
}

func orNeutral(rate *float64) float64 {
	if rate == nil {
		return neutralHitrate
	}
	return *rate
}

func roundTo(value float64, precision int) float64 {
	factor := math.Pow(10, float64(precision))
	return math.Round(value*factor) / factor
}

func clanOrUnknown(clanTag string) string {
	if clanTag == "" {
		return "Unknown"
	}
	return clanTag
}
