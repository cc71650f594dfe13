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

// SyncJobRepository is the append-only ledger of sync attempts.
type SyncJobRepository struct {
	db     *sql.DB
	logger zerolog.Logger
}

func NewSyncJobRepository(db *sql.DB, logger zerolog.Logger) *SyncJobRepository {
	return &SyncJobRepository{db: db, logger: logger}
}

func (r *SyncJobRepository) StartJob(ctx context.Context, guildID, seasonID, jobType, correlationID string) (*domain.SyncJobRun, error) {
	id, err := gonanoid.New()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nanoid: %w", err)
	}

	startedAt := time.Now().UTC()
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO sync_job_runs (id, guild_id, season_id, job_type, status, correlation_id, started_at)
		VALUES (?, ?, ?, ?, 'running', ?, ?)`,
		id, guildID, nullableString(seasonID), jobType, correlationID, startedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to start sync job: %w", err)
	}

	return &domain.SyncJobRun{
		ID:            id,
		GuildID:       guildID,
		SeasonID:      seasonID,
		JobType:       jobType,
		Status:        domain.JobStatusRunning,
		CorrelationID: correlationID,
		StartedAt:     startedAt,
	}, nil
}

// FinishJob moves the run to its terminal status. Runs are finalized exactly
// once; a second finish for the same id is a no-op on an already-terminal
// row.
func (r *SyncJobRepository) FinishJob(ctx context.Context, jobID, status, summary string) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE sync_job_runs SET status = ?, summary = ?, finished_at = ?
		WHERE id = ? AND status = 'running'`,
		status, summary, time.Now().UTC(), jobID)
	if err != nil {
		return fmt.Errorf("failed to finish sync job %s: %w", jobID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		r.logger.Warn().Str("job_id", jobID).Msg("finish requested for a job that is not running")
	}
	return nil
}

// LatestFinishedAt returns the finish time of the guild's most recent
// successful run of the given job type, or nil when none exists. The
// scheduler derives "is a sync due" from this.
func (r *SyncJobRepository) LatestFinishedAt(ctx context.Context, guildID, jobType string) (*time.Time, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT finished_at FROM sync_job_runs
		WHERE guild_id = ? AND job_type = ? AND status = 'success' AND finished_at IS NOT NULL
		ORDER BY finished_at DESC LIMIT 1`, guildID, jobType)

	var finishedAt time.Time
	err := row.Scan(&finishedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query latest finished job: %w", err)
	}
	return &finishedAt, nil
}

func (r *SyncJobRepository) ListRecent(ctx context.Context, guildID string, limit int) ([]domain.SyncJobRun, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, guild_id, season_id, job_type, status, correlation_id, summary, started_at, finished_at
		FROM sync_job_runs
		WHERE guild_id = ?
		ORDER BY started_at DESC LIMIT ?`, guildID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sync jobs: %w", err)
	}
	defer rows.Close()

	var runs []domain.SyncJobRun
	for rows.Next() {
		var run domain.SyncJobRun
		var seasonID, summary sql.NullString
		var finishedAt sql.NullTime
		err := rows.Scan(
			&run.ID, &run.GuildID, &seasonID, &run.JobType, &run.Status,
			&run.CorrelationID, &summary, &run.StartedAt, &finishedAt)
		if err != nil {
			return nil, err
		}
		run.SeasonID = seasonID.String
		run.Summary = summary.String
		if finishedAt.Valid {
			t := finishedAt.Time
			run.FinishedAt = &t
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
