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

type SignupRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSignupRepository(db *sql.DB, logger zerolog.Logger) *SignupRepository {
	return &SignupRepository{db: db, logger: logger}
}

// Upsert replaces the player's signup and its answers for the season in one
// transaction.
func (r *SignupRepository) Upsert(ctx context.Context, signup domain.Signup) (*domain.Signup, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	now := time.Now().UTC()
	_, err = tx.ExecContext(ctx, `
		INSERT INTO cwl_signups (id, guild_id, season_id, user_id, player_tag, note, status, submitted_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 'active', ?, ?)
		ON CONFLICT (guild_id, season_id, player_tag) DO UPDATE SET
			user_id = excluded.user_id,
			note = excluded.note,
			status = 'active',
			updated_at = excluded.updated_at`,
		id, signup.GuildID, signup.SeasonID, signup.UserID, signup.PlayerTag,
		nullableString(signup.Note), now, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert signup for %s: %w", signup.PlayerTag, err)
	}

	var signupID string
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM cwl_signups WHERE guild_id = ? AND season_id = ? AND player_tag = ?`,
		signup.GuildID, signup.SeasonID, signup.PlayerTag).Scan(&signupID)
	if err != nil {
		return nil, fmt.Errorf("failed to read signup back: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM cwl_signup_answers WHERE signup_id = ?`, signupID); err != nil {
		return nil, fmt.Errorf("failed to clear signup answers: %w", err)
	}
	for _, answer := range signup.Answers {
		answerID, err := gonanoid.New()
		if err != nil {
			return nil, fmt.Errorf("failed to generate nanoid: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO cwl_signup_answers (id, signup_id, question_index, answer_value)
			VALUES (?, ?, ?, ?)`,
			answerID, signupID, answer.QuestionIndex, answer.AnswerValue)
		if err != nil {
			return nil, fmt.Errorf("failed to insert signup answer: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit signup: %w", err)
	}

	saved := signup
	saved.ID = signupID
	saved.Status = "active"
	saved.SubmittedAt = now
	saved.UpdatedAt = now
	return &saved, nil
}

// ListBySeason returns active signups with their answers, in submission
// order.
func (r *SignupRepository) ListBySeason(ctx context.Context, guildID, seasonID string) ([]domain.Signup, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, season_id, user_id, player_tag, note, status, submitted_at, updated_at
		FROM cwl_signups
		WHERE guild_id = ? AND season_id = ? AND status = 'active'
		ORDER BY submitted_at`, guildID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signups: %w", err)
	}
	defer rows.Close()

	var signups []domain.Signup
	byID := make(map[string]int)
	for rows.Next() {
		var signup domain.Signup
		var note sql.NullString
		err := rows.Scan(
			&signup.ID, &signup.GuildID, &signup.SeasonID, &signup.UserID, &signup.PlayerTag,
			&note, &signup.Status, &signup.SubmittedAt, &signup.UpdatedAt)
		if err != nil {
			return nil, err
		}
		signup.Note = note.String
		byID[signup.ID] = len(signups)
		signups = append(signups, signup)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(signups) == 0 {
		return nil, nil
	}

	answerRows, err := r.db.QueryContext(ctx, `
		SELECT a.signup_id, a.question_index, a.answer_value
		FROM cwl_signup_answers a
		JOIN cwl_signups s ON s.id = a.signup_id
		WHERE s.guild_id = ? AND s.season_id = ?
		ORDER BY a.question_index`, guildID, seasonID)
	if err != nil {
		return nil, fmt.Errorf("failed to list signup answers: %w", err)
	}
	defer answerRows.Close()

	for answerRows.Next() {
		var signupID string
		var answer domain.SignupAnswer
		if err := answerRows.Scan(&signupID, &answer.QuestionIndex, &answer.AnswerValue); err != nil {
			return nil, err
		}
		if idx, ok := byID[signupID]; ok {
			signups[idx].Answers = append(signups[idx].Answers, answer)
		}
	}
	return signups, answerRows.Err()
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
