package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/constants"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
	"github.com/scirpter/CWL-Discord-Bot/internal/export"
)

type SyncService struct {
	gateway    Gateway
	guildStore GuildStore
	seasons    SeasonStore
	signups    SignupStore
	stats      StatsStore
	jobs       JobLedger
	writer     SeasonWriter
	logger     zerolog.Logger
}

func NewSyncService(
	gateway Gateway,
	guildStore GuildStore,
	seasons SeasonStore,
	signups SignupStore,
	stats StatsStore,
	jobs JobLedger,
	writer SeasonWriter,
	logger zerolog.Logger,
) *SyncService {
	return &SyncService{
		gateway:    gateway,
		guildStore: guildStore,
		seasons:    seasons,
		signups:    signups,
		stats:      stats,
		jobs:       jobs,
		writer:     writer,
		logger:     logger,
	}
}

type SyncOptions struct {
	JobType          string
	SeasonKey        string
	ClanTag          string
	CorrelationID    string
	TargetPlayerTags []string
}

type guildState struct {
	guild    *domain.GuildSettings
	seasonID string
}

// EnsureGuildSetup creates the guild row and the current month's season on
// first contact and keeps the active-season pointer fresh.
func (s *SyncService) EnsureGuildSetup(ctx context.Context, guildID string) (*domain.Season, error) {
	state, err := s.ensureGuildSetup(ctx, guildID)
	if err != nil {
		return nil, err
	}
	return s.seasons.GetByID(ctx, state.seasonID)
}

func (s *SyncService) ensureGuildSetup(ctx context.Context, guildID string) (*guildState, error) {
	guild, err := s.guildStore.EnsureGuild(ctx, guildID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	season, err := s.seasons.GetOrCreate(ctx, guildID, clash.SeasonKey(now), clash.SeasonDisplayName(now), now)
	if err != nil {
		return nil, err
	}

	if guild.ActiveSeasonID != season.ID {
		if err := s.guildStore.SetActiveSeason(ctx, guildID, season.ID); err != nil {
			return nil, err
		}
	}

	return &guildState{guild: guild, seasonID: season.ID}, nil
}

// RunSync drives one sync run for a guild: snapshot every target player,
// replace war events for every target clan, rebuild the export projection
// and record the attempt in the job ledger. The ledger entry is always
// finalized, success or error.
func (s *SyncService) RunSync(ctx context.Context, guildID string, opts SyncOptions) (*domain.SyncResult, error) {
	ctx, cancel := context.WithTimeout(ctx, constants.SyncRequestTimeout)
	defer cancel()

	if opts.JobType == "" {
		opts.JobType = domain.JobTypeManual
	}

	state, err := s.ensureGuildSetup(ctx, guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to prepare guild setup: %w", err)
	}

	var season *domain.Season
	if opts.SeasonKey == "" {
		season, err = s.seasons.GetByID(ctx, state.seasonID)
	} else {
		season, err = s.seasons.GetByKey(ctx, guildID, opts.SeasonKey)
	}
	if err != nil {
		return nil, err
	}

	correlationID := opts.CorrelationID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	logger := s.logger.With().
		Str("guild_id", guildID).
		Str("correlation_id", correlationID).
		Str("job_type", opts.JobType).
		Logger()

	job, err := s.jobs.StartJob(ctx, guildID, season.ID, opts.JobType, correlationID)
	if err != nil {
		return nil, fmt.Errorf("failed to open sync job: %w", err)
	}

	result, err := s.runSyncBody(ctx, logger, guildID, season, opts)

	// The ledger row must be closed even when the run died on its own
	// deadline, so finalization runs detached from the run context.
	finishCtx := context.WithoutCancel(ctx)
	if err != nil {
		if finishErr := s.jobs.FinishJob(finishCtx, job.ID, domain.JobStatusError, "Sync failed."); finishErr != nil {
			logger.Error().Err(finishErr).Msg("failed to finalize sync job as error")
		}
		logger.Error().Err(err).Msg("sync run failed")
		return nil, fmt.Errorf("sync failed (correlation id %s): %w", correlationID, err)
	}

	summary := fmt.Sprintf("Synced %d players and %d wars.", result.SyncedPlayers, result.SyncedWars)
	if err := s.jobs.FinishJob(finishCtx, job.ID, domain.JobStatusSuccess, summary); err != nil {
		logger.Error().Err(err).Msg("failed to finalize sync job as success")
		return nil, err
	}

	logger.Info().
		Int("synced_players", result.SyncedPlayers).
		Int("synced_wars", result.SyncedWars).
		Msg("sync run completed")
	return result, nil
}

func (s *SyncService) runSyncBody(ctx context.Context, logger zerolog.Logger, guildID string, season *domain.Season, opts SyncOptions) (*domain.SyncResult, error) {
	signups, err := s.signups.ListBySeason(ctx, guildID, season.ID)
	if err != nil {
		return nil, err
	}

	playerTags := targetPlayerTags(signups, opts.TargetPlayerTags)
	if err := s.snapshotPlayers(ctx, logger, guildID, season.ID, playerTags); err != nil {
		return nil, err
	}

	clans, err := s.targetClans(ctx, guildID, opts.ClanTag)
	if err != nil {
		return nil, err
	}

	syncedWars := 0
	for _, clan := range clans {
		warsSynced, err := s.syncClanWars(ctx, logger, guildID, season.ID, clan.ClanTag)
		if err != nil {
			return nil, err
		}
		syncedWars += warsSynced
	}

	if err := s.writeSeasonTable(ctx, logger, guildID, season, signups); err != nil {
		return nil, err
	}

	return &domain.SyncResult{
		SyncedPlayers: len(playerTags),
		SyncedWars:    syncedWars,
		UpdatedAt:     time.Now().UTC(),
	}, nil
}

// snapshotPlayers fetches players in fixed-size batches, all requests in a
// batch concurrently. Any fetch failure fails the whole run: partial
// snapshot coverage would silently skew scoring.
func (s *SyncService) snapshotPlayers(ctx context.Context, logger zerolog.Logger, guildID, seasonID string, playerTags []string) error {
	for start := 0; start < len(playerTags); start += constants.PlayerFetchBatchSize {
		end := min(start+constants.PlayerFetchBatchSize, len(playerTags))

		g, gctx := errgroup.WithContext(ctx)
		for _, playerTag := range playerTags[start:end] {
			g.Go(func() error {
				player, err := s.gateway.GetPlayer(gctx, playerTag)
				if err != nil {
					return fmt.Errorf("failed to fetch player %s: %w", playerTag, err)
				}

				snapshot := domain.PlayerSnapshot{
					GuildID:           guildID,
					SeasonID:          seasonID,
					PlayerTag:         clash.NormalizeTag(player.Tag),
					PlayerName:        player.Name,
					TownHall:          player.TownHallLevel,
					HeroesCombined:    player.CombinedHeroLevel(),
					WarStarsTotal:     player.WarStars,
					AttackWins:        player.AttackWins,
					DefenseWins:       player.DefenseWins,
					Trophies:          player.Trophies,
					Donations:         player.Donations,
					DonationsReceived: player.DonationsReceived,
					CapturedAt:        time.Now().UTC(),
				}
				if player.Clan != nil {
					snapshot.ClanTag = clash.NormalizeTag(player.Clan.Tag)
				}

				if _, err := s.stats.InsertSnapshot(gctx, snapshot); err != nil {
					return err
				}
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}

		logger.Debug().Int("batch_start", start).Int("batch_size", end-start).Msg("player batch snapshotted")
	}
	return nil
}

func (s *SyncService) targetClans(ctx context.Context, guildID, clanTag string) ([]domain.GuildClan, error) {
	clans, err := s.guildStore.ListClans(ctx, guildID)
	if err != nil {
		return nil, err
	}
	if clanTag == "" {
		return clans, nil
	}

	wanted := clash.NormalizeTag(clanTag)
	var matched []domain.GuildClan
	for _, clan := range clans {
		if clash.NormalizeTag(clan.ClanTag) == wanted {
			matched = append(matched, clan)
		}
	}
	return matched, nil
}

// syncClanWars replaces the event rows of the clan's current war and every
// fetched league war. Wars that yield no member rows are skipped so empty
// placeholder wars never reach storage.
func (s *SyncService) syncClanWars(ctx context.Context, logger zerolog.Logger, guildID, seasonID, clanTag string) (int, error) {
	synced := 0

	currentWar, err := s.gateway.GetCurrentWar(ctx, clanTag)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch current war for %s: %w", clanTag, err)
	}
	if currentWar != nil {
		events := extractWarEvents(currentWar, clanTag, domain.WarTypeRegular)
		if len(events) > 0 {
			warID := regularWarID(clanTag, currentWar.StartTime)
			if err := s.stats.ReplaceWarEvents(ctx, guildID, seasonID, warID, domain.WarTypeRegular, time.Now().UTC(), events); err != nil {
				return 0, err
			}
			synced++
		}
	}

	leagueWars, err := s.gateway.GetLeagueWars(ctx, clanTag)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch league wars for %s: %w", clanTag, err)
	}
	for i, leagueWar := range leagueWars {
		events := extractWarEvents(leagueWar, clanTag, domain.WarTypeCwl)
		if len(events) == 0 {
			continue
		}

		warID := leagueWarID(clanTag, leagueWar.StartTime, i)
		if err := s.stats.ReplaceWarEvents(ctx, guildID, seasonID, warID, domain.WarTypeCwl, time.Now().UTC(), events); err != nil {
			return 0, err
		}
		synced++
	}

	logger.Debug().Str("clan_tag", clanTag).Int("wars", synced).Msg("clan wars synced")
	return synced, nil
}

func (s *SyncService) writeSeasonTable(ctx context.Context, logger zerolog.Logger, guildID string, season *domain.Season, signups []domain.Signup) error {
	if s.writer == nil {
		logger.Warn().Msg("skipping season export because no writer is configured")
		return nil
	}

	projection, _, err := buildProjection(ctx, s.guildStore, s.stats, guildID, signups)
	if err != nil {
		return err
	}

	rows := make([]export.SeasonRow, 0, len(signups))
	for _, signup := range signups {
		stats, ok := projection[clash.NormalizeTag(signup.PlayerTag)]
		if !ok {
			continue
		}
		rows = append(rows, export.SeasonRow{
			UserID: signup.UserID,
			Note:   signup.Note,
			Stats:  stats,
		})
	}

	return s.writer.WriteSeason(ctx, guildID, *season, rows)
}

// Deterministic war identity: clan tag plus upstream start time, or a
// synthetic fallback when the upstream omits it.
func regularWarID(clanTag, startTime string) string {
	if startTime != "" {
		return clash.NormalizeTag(clanTag) + ":" + startTime
	}
	return fmt.Sprintf("%s:current:%d", clash.NormalizeTag(clanTag), time.Now().UnixMilli())
}

func leagueWarID(clanTag, startTime string, index int) string {
	if startTime != "" {
		return clash.NormalizeTag(clanTag) + ":cwl:" + startTime
	}
	return fmt.Sprintf("%s:cwl:%d", clash.NormalizeTag(clanTag), index)
}

// pickWarSide matches the clan to the home or opponent side of the war
// payload, or nil when the clan is in neither.
func pickWarSide(war *api.War, clanTag string) *api.WarSide {
	normalized := clash.NormalizeTag(clanTag)
	if clash.NormalizeTag(war.Clan.Tag) == normalized {
		return &war.Clan
	}
	if clash.NormalizeTag(war.Opponent.Tag) == normalized {
		return &war.Opponent
	}
	return nil
}

// extractWarEvents builds one aggregated event row per member of the clan's
// side: attack counts, summed stars and destruction, star-tier counts, the
// missed flag and the best defense suffered.
func extractWarEvents(war *api.War, clanTag, warType string) []domain.WarAttackEvent {
	side := pickWarSide(war, clanTag)
	if side == nil {
		return nil
	}

	attacksAllowed := constants.RegularWarAttacksAllowed
	if warType == domain.WarTypeCwl {
		attacksAllowed = constants.CwlAttacksAllowed
	}

	events := make([]domain.WarAttackEvent, 0, len(side.Members))
	for _, member := range side.Members {
		event := domain.WarAttackEvent{
			PlayerTag:      clash.NormalizeTag(member.Tag),
			WarType:        warType,
			AttacksUsed:    len(member.Attacks),
			AttacksAllowed: attacksAllowed,
			Missed:         len(member.Attacks) == 0,
		}
		for _, attack := range member.Attacks {
			event.Stars += attack.Stars
			event.Destruction += attack.DestructionPercentage
			switch attack.Stars {
			case 3:
				event.Triples++
			case 2:
				event.Twos++
			case 1:
				event.Ones++
			case 0:
				event.Zeroes++
			}
		}
		if member.BestOpponentAttack != nil {
			event.DefenseStars = member.BestOpponentAttack.Stars
			event.DefenseDestruction = member.BestOpponentAttack.DestructionPercentage
		}
		events = append(events, event)
	}
	return events
}

// targetPlayerTags resolves the unique normalized tags to snapshot, either
// the caller-supplied filter or every active signup, in signup order.
func targetPlayerTags(signups []domain.Signup, filter []string) []string {
	wanted := make(map[string]bool, len(filter))
	for _, tag := range filter {
		wanted[clash.NormalizeTag(tag)] = true
	}

	seen := make(map[string]bool, len(signups))
	var tags []string
	for _, signup := range signups {
		tag := clash.NormalizeTag(signup.PlayerTag)
		if len(filter) > 0 && !wanted[tag] {
			continue
		}
		if seen[tag] {
			continue
		}
		seen[tag] = true
		tags = append(tags, tag)
	}
	return tags
}
