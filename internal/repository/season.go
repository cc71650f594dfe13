package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

type SeasonRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSeasonRepository(db *sql.DB, logger zerolog.Logger) *SeasonRepository {
	return &SeasonRepository{db: db, logger: logger}
}

func (r *SeasonRepository) GetOrCreate(ctx context.Context, guildID, seasonKey, displayName string, startedAt time.Time) (*domain.Season, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO cwl_seasons (id, guild_id, season_key, display_name, status, started_at, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'open', ?, ?, ?)
		ON CONFLICT (guild_id, season_key) DO NOTHING`,
		id, guildID, seasonKey, displayName, startedAt.UTC(), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to create season %s: %w", seasonKey, err)
	}

	return r.GetByKey(ctx, guildID, seasonKey)
}

func (r *SeasonRepository) GetByID(ctx context.Context, seasonID string) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, seasonSelect+` WHERE id = ?`, seasonID)
	return scanSeason(row)
}

func (r *SeasonRepository) GetByKey(ctx context.Context, guildID, seasonKey string) (*domain.Season, error) {
	row := r.db.QueryRowContext(ctx, seasonSelect+` WHERE guild_id = ? AND season_key = ?`, guildID, seasonKey)
	return scanSeason(row)
}

func (r *SeasonRepository) SetSignupLocked(ctx context.Context, seasonID string, locked bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE cwl_seasons SET signup_locked = ?, updated_at = ? WHERE id = ?`,
		locked, time.Now().UTC(), seasonID)
	if err != nil {
		return fmt.Errorf("failed to update season lock: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return &domain.DataIntegrityError{Entity: "season", Msg: "season not found"}
	}
	return nil
}

const seasonSelect = `
	SELECT id, guild_id, season_key, display_name, status, signup_locked, started_at, created_at, updated_at
	FROM cwl_seasons`

func scanSeason(row rowScanner) (*domain.Season, error) {
	var season domain.Season
	err := row.Scan(
		&season.ID, &season.GuildID, &season.SeasonKey, &season.DisplayName,
		&season.Status, &season.SignupLocked, &season.StartedAt, &season.CreatedAt, &season.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, &domain.DataIntegrityError{Entity: "season", Msg: "season not found"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan season: %w", err)
	}
	return &season, nil
}
