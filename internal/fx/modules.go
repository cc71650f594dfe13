package fx

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/config"
	"github.com/scirpter/CWL-Discord-Bot/internal/database"
	"github.com/scirpter/CWL-Discord-Bot/internal/export"
	"github.com/scirpter/CWL-Discord-Bot/internal/logger"
	"github.com/scirpter/CWL-Discord-Bot/internal/repository"
	"github.com/scirpter/CWL-Discord-Bot/internal/scheduler"
	"github.com/scirpter/CWL-Discord-Bot/internal/server"
	"github.com/scirpter/CWL-Discord-Bot/internal/service"
)

func ProvideCSVWriter(cfg *config.Config, log zerolog.Logger) *export.CSVWriter {
	return export.NewCSVWriter(cfg.ExportDir, log)
}

func ProvideSyncService(
	gateway *api.CocClient,
	guilds *repository.GuildRepository,
	seasons *repository.SeasonRepository,
	signups *repository.SignupRepository,
	stats *repository.StatsRepository,
	jobs *repository.SyncJobRepository,
	writer *export.CSVWriter,
	log zerolog.Logger,
) *service.SyncService {
	return service.NewSyncService(gateway, guilds, seasons, signups, stats, jobs, writer, log)
}

func ProvideRosterService(
	guilds *repository.GuildRepository,
	signups *repository.SignupRepository,
	stats *repository.StatsRepository,
	syncSvc *service.SyncService,
	log zerolog.Logger,
) *service.RosterService {
	return service.NewRosterService(guilds, signups, stats, syncSvc, log)
}

func ProvideSignupService(
	gateway *api.CocClient,
	guilds *repository.GuildRepository,
	signups *repository.SignupRepository,
	syncSvc *service.SyncService,
	log zerolog.Logger,
) *service.SignupService {
	return service.NewSignupService(gateway, guilds, signups, syncSvc, log)
}

func ProvideScheduler(
	guilds *repository.GuildRepository,
	jobs *repository.SyncJobRepository,
	syncSvc *service.SyncService,
	log zerolog.Logger,
) *scheduler.Scheduler {
	return scheduler.New(guilds, jobs, syncSvc, log)
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewGuildRepository),
	fx.Provide(repository.NewSeasonRepository),
	fx.Provide(repository.NewSignupRepository),
	fx.Provide(repository.NewStatsRepository),
	fx.Provide(repository.NewSyncJobRepository),
	// api client
	fx.Provide(api.NewCocClient),
	// export
	fx.Provide(ProvideCSVWriter),
	// svc
	fx.Provide(ProvideSyncService),
	fx.Provide(ProvideRosterService),
	fx.Provide(ProvideSignupService),
	fx.Provide(ProvideScheduler),
	// server
	fx.Provide(server.New),
)
