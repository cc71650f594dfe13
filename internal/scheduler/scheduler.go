// Package scheduler drives periodic per-guild syncs. Whether a guild is due
// is derived from the job ledger's most recent successful scheduled run, so
// the decision survives process restarts.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
	"github.com/scirpter/CWL-Discord-Bot/internal/service"
)

type GuildLister interface {
	ListGuilds(ctx context.Context) ([]domain.GuildSettings, error)
}

type LedgerReader interface {
	LatestFinishedAt(ctx context.Context, guildID, jobType string) (*time.Time, error)
}

type Scheduler struct {
	cron    *cron.Cron
	guilds  GuildLister
	ledger  LedgerReader
	syncSvc *service.SyncService
	logger  zerolog.Logger

	mu      sync.Mutex
	running map[string]bool
}

func New(guilds GuildLister, ledger LedgerReader, syncSvc *service.SyncService, logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:    cron.New(cron.WithChain(cron.Recover(cron.DefaultLogger))),
		guilds:  guilds,
		ledger:  ledger,
		syncSvc: syncSvc,
		logger:  logger,
		running: make(map[string]bool),
	}
}

func (s *Scheduler) Start(spec string) error {
	if _, err := s.cron.AddFunc(spec, func() {
		s.Tick(context.Background())
	}); err != nil {
		return err
	}
	s.cron.Start()
	s.logger.Info().Str("spec", spec).Msg("scheduler started")
	return nil
}

func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info().Msg("scheduler stopped")
}

// Tick runs one scheduling pass: every configured guild whose sync interval
// has elapsed since its last successful scheduled run gets a sync. At most
// one sync runs per guild at a time.
func (s *Scheduler) Tick(ctx context.Context) {
	guilds, err := s.guilds.ListGuilds(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("scheduler failed to list guilds")
		return
	}

	for _, guild := range guilds {
		if !s.tryAcquire(guild.GuildID) {
			continue
		}

		due, err := s.isDue(ctx, guild)
		if err != nil {
			s.logger.Warn().Err(err).Str("guild_id", guild.GuildID).Msg("scheduler due check failed")
			s.release(guild.GuildID)
			continue
		}
		if !due {
			s.release(guild.GuildID)
			continue
		}

		if _, err := s.syncSvc.RunSync(ctx, guild.GuildID, service.SyncOptions{JobType: domain.JobTypeScheduled}); err != nil {
			s.logger.Warn().Err(err).Str("guild_id", guild.GuildID).Msg("scheduled sync failed")
		}
		s.release(guild.GuildID)
	}
}

func (s *Scheduler) isDue(ctx context.Context, guild domain.GuildSettings) (bool, error) {
	last, err := s.ledger.LatestFinishedAt(ctx, guild.GuildID, domain.JobTypeScheduled)
	if err != nil {
		return false, err
	}
	if last == nil {
		return true, nil
	}

	interval := time.Duration(max(1, guild.SyncIntervalHours)) * time.Hour
	return time.Since(*last) >= interval, nil
}

func (s *Scheduler) tryAcquire(guildID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[guildID] {
		return false
	}
	s.running[guildID] = true
	return true
}

func (s *Scheduler) release(guildID string) {
	s.mu.Lock()
	delete(s.running, guildID)
	s.mu.Unlock()
}
