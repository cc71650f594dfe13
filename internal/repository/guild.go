package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type GuildRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewGuildRepository(db *sql.DB, logger zerolog.Logger) *GuildRepository {
	return &GuildRepository{db: db, logger: logger}
}

// EnsureGuild returns the guild settings row, creating it with defaults on
// first contact.
func (r *GuildRepository) EnsureGuild(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guild_settings (id, guild_id, timezone, sync_interval_hours, created_at, updated_at)
		VALUES (?, ?, 'UTC', ?, ?, ?)
		ON CONFLICT (guild_id) DO NOTHING`,
		id, guildID, constants.DefaultSyncIntervalHrs, now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure guild %s: %w", guildID, err)
	}

	return r.GetGuild(ctx, guildID)
}

func (r *GuildRepository) GetGuild(ctx context.Context, guildID string) (*domain.GuildSettings, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, guild_id, timezone, active_season_id, signup_locked, sync_interval_hours, created_at, updated_at
		FROM guild_settings WHERE guild_id = ?`, guildID)
	return scanGuild(row)
}

func (r *GuildRepository) ListGuilds(ctx context.Context) ([]domain.GuildSettings, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, timezone, active_season_id, signup_locked, sync_interval_hours, created_at, updated_at
		FROM guild_settings ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to list guilds: %w", err)
	}
	defer rows.Close()

	var guilds []domain.GuildSettings
	for rows.Next() {
		guild, err := scanGuild(rows)
		if err != nil {
			return nil, err
		}
		guilds = append(guilds, *guild)
	}
	return guilds, rows.Err()
}

func (r *GuildRepository) SetActiveSeason(ctx context.Context, guildID, seasonID string) error {
	return r.updateGuild(ctx, guildID, "active_season_id", seasonID)
}

func (r *GuildRepository) SetSignupLocked(ctx context.Context, guildID string, locked bool) error {
	return r.updateGuild(ctx, guildID, "signup_locked", locked)
}

func (r *GuildRepository) SetTimezone(ctx context.Context, guildID, timezone string) error {
	return r.updateGuild(ctx, guildID, "timezone", timezone)
}

func (r *GuildRepository) SetSyncInterval(ctx context.Context, guildID string, hours int) error {
	if hours < constants.MinSyncIntervalHrs {
		hours = constants.MinSyncIntervalHrs
	}
	if hours > constants.MaxSyncIntervalHrs {
		hours = constants.MaxSyncIntervalHrs
	}
	return r.updateGuild(ctx, guildID, "sync_interval_hours", hours)
}

func (r *GuildRepository) updateGuild(ctx context.Context, guildID, column string, value any) error {
	query := fmt.Sprintf("UPDATE guild_settings SET %s = ?, updated_at = ? WHERE guild_id = ?", column)
	res, err := r.db.ExecContext(ctx, query, value, time.Now().UTC(), guildID)
	if err != nil {
		return fmt.Errorf("failed to update guild %s: %w", guildID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.DataIntegrityError{Entity: "guild", Msg: fmt.Sprintf("guild %s not found", guildID)}
	}
	return nil
}

func (r *GuildRepository) AddClan(ctx context.Context, guildID, clanTag, alias string) (*domain.GuildClan, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guild_clans (id, guild_id, clan_tag, alias, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (guild_id, clan_tag) DO UPDATE SET alias = excluded.alias`,
		id, guildID, clanTag, alias, now)
	if err != nil {
		return nil, fmt.Errorf("failed to add clan %s: %w", clanTag, err)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT id, guild_id, clan_tag, alias, created_at
		FROM guild_clans WHERE guild_id = ? AND clan_tag = ?`, guildID, clanTag)
	var clan domain.GuildClan
	if err := row.Scan(&clan.ID, &clan.GuildID, &clan.ClanTag, &clan.Alias, &clan.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to read clan %s back: %w", clanTag, err)
	}
	return &clan, nil
}

func (r *GuildRepository) RemoveClan(ctx context.Context, guildID, clanTag string) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM guild_clans WHERE guild_id = ? AND clan_tag = ?`, guildID, clanTag)
	if err != nil {
		return false, fmt.Errorf("failed to remove clan %s: %w", clanTag, err)
	}
	affected, err := res.RowsAffected()
	return affected > 0, err
}

func (r *GuildRepository) ListClans(ctx context.Context, guildID string) ([]domain.GuildClan, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, clan_tag, alias, created_at
		FROM guild_clans WHERE guild_id = ? ORDER BY created_at`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list clans: %w", err)
	}
	defer rows.Close()

	var clans []domain.GuildClan
	for rows.Next() {
		var clan domain.GuildClan
		if err := rows.Scan(&clan.ID, &clan.GuildID, &clan.ClanTag, &clan.Alias, &clan.CreatedAt); err != nil {
			return nil, err
		}
		clans = append(clans, clan)
	}
	return clans, rows.Err()
}

// GetScoringWeights falls back to the defaults when the guild has no
// override row.
func (r *GuildRepository) GetScoringWeights(ctx context.Context, guildID string) (domain.ScoringWeights, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT th_weight, hero_weight, war_weight, cwl_weight, missed_penalty, competitive_bonus, availability_bonus
		FROM guild_scoring_weights WHERE guild_id = ?`, guildID)

	var weights domain.ScoringWeights
	err := row.Scan(
		&weights.THWeight, &weights.HeroWeight, &weights.WarWeight, &weights.CwlWeight,
		&weights.MissedPenalty, &weights.CompetitiveBonus, &weights.AvailabilityBonus)
	if err == sql.ErrNoRows {
		return domain.DefaultScoringWeights(), nil
	}
	if err != nil {
		return domain.ScoringWeights{}, fmt.Errorf("failed to read scoring weights: %w", err)
	}
	return weights, nil
}

func (r *GuildRepository) SetScoringWeights(ctx context.Context, guildID string, weights domain.ScoringWeights) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guild_scoring_weights
			(id, guild_id, th_weight, hero_weight, war_weight, cwl_weight, missed_penalty, competitive_bonus, availability_bonus, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (guild_id) DO UPDATE SET
			th_weight = excluded.th_weight,
			hero_weight = excluded.hero_weight,
			war_weight = excluded.war_weight,
			cwl_weight = excluded.cwl_weight,
			missed_penalty = excluded.missed_penalty,
			competitive_bonus = excluded.competitive_bonus,
			availability_bonus = excluded.availability_bonus,
			updated_at = excluded.updated_at`,
		id, guildID, weights.THWeight, weights.HeroWeight, weights.WarWeight, weights.CwlWeight,
		weights.MissedPenalty, weights.CompetitiveBonus, weights.AvailabilityBonus, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set scoring weights: %w", err)
	}
	return nil
}

// ListSignupQuestions returns the guild's active questions, seeding the
// defaults on first read.
func (r *GuildRepository) ListSignupQuestions(ctx context.Context, guildID string) ([]domain.SignupQuestion, error) {
	questions, err := r.readQuestions(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if len(questions) > 0 {
		return questions, nil
	}

	for _, question := range domain.DefaultSignupQuestions() {
		if err := r.SetSignupQuestion(ctx, guildID, question); err != nil {
			return nil, err
		}
	}
	return r.readQuestions(ctx, guildID)
}

func (r *GuildRepository) SetSignupQuestion(ctx context.Context, guildID string, question domain.SignupQuestion) error {
	id, err := gonanoid.New()
	if err != nil {
		return fmt.Errorf("failed to generate nanoid: %w", err)
	}

	optionsJSON, err := json.Marshal(question.Options)
	if err != nil {
		return fmt.Errorf("failed to encode question options: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO guild_signup_questions (id, guild_id, question_index, prompt, options_json, is_active, updated_at)
		VALUES (?, ?, ?, ?, ?, 1, ?)
		ON CONFLICT (guild_id, question_index) DO UPDATE SET
			prompt = excluded.prompt,
			options_json = excluded.options_json,
			is_active = 1,
			updated_at = excluded.updated_at`,
		id, guildID, question.Index, question.Prompt, string(optionsJSON), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("failed to set signup question %d: %w", question.Index, err)
	}
	return nil
}

func (r *GuildRepository) ResetSignupQuestions(ctx context.Context, guildID string) error {
	if _, err := r.db.ExecContext(ctx,
		`DELETE FROM guild_signup_questions WHERE guild_id = ?`, guildID); err != nil {
		return fmt.Errorf("failed to reset signup questions: %w", err)
	}
	for _, question := range domain.DefaultSignupQuestions() {
		if err := r.SetSignupQuestion(ctx, guildID, question); err != nil {
			return err
		}
	}
	return nil
}

func (r *GuildRepository) readQuestions(ctx context.Context, guildID string) ([]domain.SignupQuestion, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT question_index, prompt, options_json
		FROM guild_signup_questions
		WHERE guild_id = ? AND is_active = 1
		ORDER BY question_index`, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signup questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.SignupQuestion
	for rows.Next() {
		var question domain.SignupQuestion
		var optionsJSON string
		if err := rows.Scan(&question.Index, &question.Prompt, &optionsJSON); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(optionsJSON), &question.Options); err != nil {
			return nil, fmt.Errorf("failed to decode question options: %w", err)
		}
		questions = append(questions, question)
	}
	return questions, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanGuild(row rowScanner) (*domain.GuildSettings, error) {
	var guild domain.GuildSettings
	var activeSeasonID sql.NullString
	err := row.Scan(
		&guild.ID, &guild.GuildID, &guild.Timezone, &activeSeasonID,
		&guild.SignupLocked, &guild.SyncIntervalHours, &guild.CreatedAt, &guild.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.DataIntegrityError{Entity: "guild", Msg: "guild not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan guild: %w", err)
	}
	guild.ActiveSeasonID = activeSeasonID.String
	return &guild, nil
}
