package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type StatsRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewStatsRepository(db *sql.DB, logger zerolog.Logger) *StatsRepository {
	return &StatsRepository{db: db, logger: logger}
}

// InsertSnapshot appends one immutable capture. Snapshots are never updated
// or deleted by the pipeline.
func (r *StatsRepository) InsertSnapshot(ctx context.Context, snapshot domain.PlayerSnapshot) (*domain.PlayerSnapshot, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO coc_player_snapshots
			(id, guild_id, season_id, player_tag, player_name, clan_tag, town_hall, heroes_combined,
			 war_stars_total, attack_wins, defense_wins, trophies, donations, donations_received, captured_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, snapshot.GuildID, nullableString(snapshot.SeasonID), snapshot.PlayerTag, snapshot.PlayerName,
		nullableString(snapshot.ClanTag), snapshot.TownHall, snapshot.HeroesCombined,
		snapshot.WarStarsTotal, snapshot.AttackWins, snapshot.DefenseWins,
		snapshot.Trophies, snapshot.Donations, snapshot.DonationsReceived, snapshot.CapturedAt.UTC())
	if err != nil {
		return nil, fmt.Errorf("failed to insert snapshot for %s: %w", snapshot.PlayerTag, err)
	}

	snapshot.ID = id
	return &snapshot, nil
}

// LatestSnapshots returns the most recent capture per player tag.
func (r *StatsRepository) LatestSnapshots(ctx context.Context, guildID string, playerTags []string) (map[string]domain.PlayerSnapshot, error) {
	byTag := make(map[string]domain.PlayerSnapshot)
	if len(playerTags) == 0 {
		return byTag, nil
	}

	query := fmt.Sprintf(`
		SELECT id, guild_id, season_id, player_tag, player_name, clan_tag, town_hall, heroes_combined,
		       war_stars_total, attack_wins, defense_wins, trophies, donations, donations_received, captured_at
		FROM coc_player_snapshots
		WHERE guild_id = ? AND player_tag IN (%s)
		ORDER BY captured_at DESC`, placeholders(len(playerTags)))

	rows, err := r.db.QueryContext(ctx, query, argsWithTags(guildID, playerTags)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var snapshot domain.PlayerSnapshot
		var seasonID, clanTag sql.NullString
		err := rows.Scan(
			&snapshot.ID, &snapshot.GuildID, &seasonID, &snapshot.PlayerTag, &snapshot.PlayerName,
			&clanTag, &snapshot.TownHall, &snapshot.HeroesCombined,
			&snapshot.WarStarsTotal, &snapshot.AttackWins, &snapshot.DefenseWins,
			&snapshot.Trophies, &snapshot.Donations, &snapshot.DonationsReceived, &snapshot.CapturedAt)
		if err != nil {
			return nil, err
		}
		snapshot.SeasonID = seasonID.String
		snapshot.ClanTag = clanTag.String
		if _, seen := byTag[snapshot.PlayerTag]; !seen {
			byTag[snapshot.PlayerTag] = snapshot
		}
	}
	return byTag, rows.Err()
}

// ReplaceWarEvents swaps out all rows for the given war id in a single
// transaction, so re-running a sync for an in-progress war leaves no
// duplicates or stale membership behind.
func (r *StatsRepository) ReplaceWarEvents(ctx context.Context, guildID, seasonID, warID, warType string, warDay time.Time, events []domain.WarAttackEvent) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM coc_war_attack_events WHERE guild_id = ? AND war_id = ?`, guildID, warID); err != nil {
		return fmt.Errorf("failed to delete events for war %s: %w", warID, err)
	}

	capturedAt := time.Now().UTC()
	for _, event := range events {
		id, err := gonanoid.New()
		if err != nil {
			return fmt.Errorf("failed to generate nanoid: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO coc_war_attack_events
				(id, guild_id, season_id, war_type, war_id, war_day, player_tag, attacks_used, attacks_allowed,
				 stars, destruction, triples, twos, ones, zeroes, missed, defense_stars, defense_destruction, captured_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			id, guildID, nullableString(seasonID), warType, warID, warDay.UTC(), event.PlayerTag,
			event.AttacksUsed, event.AttacksAllowed, event.Stars, event.Destruction,
			event.Triples, event.Twos, event.Ones, event.Zeroes, event.Missed,
			event.DefenseStars, event.DefenseDestruction, capturedAt)
		if err != nil {
			return fmt.Errorf("failed to insert event for %s in war %s: %w", event.PlayerTag, warID, err)
		}
	}

	return tx.Commit()
}

// ListEventsInWindow returns events for the given players with a war day at
// or after the cutoff.
func (r *StatsRepository) ListEventsInWindow(ctx context.Context, guildID string, playerTags []string, since time.Time) ([]domain.WarAttackEvent, error) {
	if len(playerTags) == 0 {
		return nil, nil
	}

	query := fmt.Sprintf(`
		SELECT id, guild_id, season_id, war_type, war_id, war_day, player_tag, attacks_used, attacks_allowed,
		       stars, destruction, triples, twos, ones, zeroes, missed, defense_stars, defense_destruction, captured_at
		FROM coc_war_attack_events
		WHERE guild_id = ? AND player_tag IN (%s) AND war_day >= ?
		ORDER BY war_day`, placeholders(len(playerTags)))

	args := argsWithTags(guildID, playerTags)
	args = append(args, since.UTC())
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query war events: %w", err)
	}
	defer rows.Close()

	var events []domain.WarAttackEvent
	for rows.Next() {
		var event domain.WarAttackEvent
		var seasonID sql.NullString
		err := rows.Scan(
			&event.ID, &event.GuildID, &seasonID, &event.WarType, &event.WarID, &event.WarDay,
			&event.PlayerTag, &event.AttacksUsed, &event.AttacksAllowed,
			&event.Stars, &event.Destruction, &event.Triples, &event.Twos, &event.Ones, &event.Zeroes,
			&event.Missed, &event.DefenseStars, &event.DefenseDestruction, &event.CapturedAt)
		if err != nil {
			return nil, err
		}
		event.SeasonID = seasonID.String
		events = append(events, event)
	}
	return events, rows.Err()
}

// ListEventsForWar is used by tests and diagnostics to inspect one war unit.
func (r *StatsRepository) ListEventsForWar(ctx context.Context, guildID, warID string) ([]domain.WarAttackEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, player_tag, attacks_used, stars, missed
		FROM coc_war_attack_events
		WHERE guild_id = ? AND war_id = ?
		ORDER BY player_tag`, guildID, warID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events for war %s: %w", warID, err)
	}
	defer rows.Close()

	var events []domain.WarAttackEvent
	for rows.Next() {
		var event domain.WarAttackEvent
		if err := rows.Scan(&event.ID, &event.PlayerTag, &event.AttacksUsed, &event.Stars, &event.Missed); err != nil {
			return nil, err
		}
		event.GuildID = guildID
		event.WarID = warID
		events = append(events, event)
	}
	return events, rows.Err()
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func argsWithTags(guildID string, tags []string) []any {
	args := make([]any, 0, len(tags)+1)
	args = append(args, guildID)
	for _, tag := range tags {
		args = append(args, tag)
	}
	return args
}
