package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/api"
	"github.com/scirpter/CWL-Discord-Bot/internal/clash"
	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
	"github.com/scirpter/CWL-Discord-Bot/internal/export"
	"github.com/scirpter/CWL-Discord-Bot/internal/middleware"
	"github.com/scirpter/CWL-Discord-Bot/internal/repository"
	"github.com/scirpter/CWL-Discord-Bot/internal/service"
)

// Server exposes the pipeline to orchestration callers over HTTP: manual
// syncs, roster suggestions, the job ledger and guild configuration.
type Server struct {
	syncSvc   *service.SyncService
	rosterSvc *service.RosterService
	signupSvc *service.SignupService
	gateway   *api.CocClient
	guilds    *repository.GuildRepository
	seasons   *repository.SeasonRepository
	jobs      *repository.SyncJobRepository
	exporter  *export.CSVWriter
	logger    zerolog.Logger
}

func New(
	syncSvc *service.SyncService,
	rosterSvc *service.RosterService,
	signupSvc *service.SignupService,
	gateway *api.CocClient,
	guilds *repository.GuildRepository,
	seasons *repository.SeasonRepository,
	jobs *repository.SyncJobRepository,
	exporter *export.CSVWriter,
	logger zerolog.Logger,
) *Server {
	return &Server{
		syncSvc:   syncSvc,
		rosterSvc: rosterSvc,
		signupSvc: signupSvc,
		gateway:   gateway,
		guilds:    guilds,
		seasons:   seasons,
		jobs:      jobs,
		exporter:  exporter,
		logger:    logger,
	}
}

func (s *Server) Routes(r chi.Router) {
	r.Route("/api/guilds/{guildID}", func(r chi.Router) {
		r.Post("/sync", s.handleRunSync)
		r.Get("/roster/suggestions", s.handleSuggestRoster)
		r.Get("/jobs", s.handleListJobs)
		r.Get("/export", s.handleDownloadExport)

		r.Post("/signups", s.handleSubmitSignup)

		r.Get("/settings", s.handleGetSettings)
		r.Put("/settings", s.handleUpdateSettings)

		r.Get("/season", s.handleGetSeason)
		r.Post("/season/lock", s.handleLockSeason)
		r.Post("/season/unlock", s.handleUnlockSeason)

		r.Get("/clans", s.handleListClans)
		r.Post("/clans", s.handleAddClan)
		r.Delete("/clans/{clanTag}", s.handleRemoveClan)

		r.Get("/scoring", s.handleGetScoring)
		r.Put("/scoring", s.handleSetScoring)

		r.Get("/questions", s.handleListQuestions)
		r.Put("/questions/{index}", s.handleSetQuestion)
		r.Delete("/questions", s.handleResetQuestions)
	})
	r.Get("/api/gateway/stats", s.handleGatewayStats)
	r.Get("/healthz", s.handleHealth)
}

type runSyncRequest struct {
	SeasonKey        string   `json:"seasonKey"`
	ClanTag          string   `json:"clanTag"`
	TargetPlayerTags []string `json:"targetPlayerTags"`
}

func (s *Server) handleRunSync(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req runSyncRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
			return
		}
	}

	result, err := s.syncSvc.RunSync(r.Context(), guildID, service.SyncOptions{
		JobType:          domain.JobTypeManual,
		SeasonKey:        req.SeasonKey,
		ClanTag:          req.ClanTag,
		CorrelationID:    middleware.CorrelationID(r.Context()),
		TargetPlayerTags: req.TargetPlayerTags,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, result)
}

func (s *Server) handleSuggestRoster(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	entries, err := s.rosterSvc.SuggestRoster(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"suggestions": entries})
}

func (s *Server) handleListJobs(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 && parsed <= 100 {
			limit = parsed
		}
	}

	runs, err := s.jobs.ListRecent(r.Context(), guildID, limit)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"runs": toJobViews(runs)})
}

func (s *Server) handleDownloadExport(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	season, err := s.syncSvc.EnsureGuildSetup(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	seasonKey := r.URL.Query().Get("seasonKey")
	if seasonKey == "" {
		seasonKey = season.SeasonKey
	}

	w.Header().Set("Content-Type", "text/csv")
	http.ServeFile(w, r, s.exporter.Path(guildID, seasonKey))
}

type submitSignupRequest struct {
	UserID    string                `json:"userId"`
	PlayerTag string                `json:"playerTag"`
	Note      string                `json:"note"`
	Answers   []domain.SignupAnswer `json:"answers"`
}

func (s *Server) handleSubmitSignup(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req submitSignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
		return
	}

	saved, err := s.signupSvc.Submit(r.Context(), guildID, service.SignupSubmission{
		UserID:    req.UserID,
		PlayerTag: req.PlayerTag,
		Note:      req.Note,
		Answers:   req.Answers,
	})
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	guild, err := s.guilds.EnsureGuild(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSettingsView(guild))
}

type updateSettingsRequest struct {
	Timezone          *string `json:"timezone"`
	SyncIntervalHours *int    `json:"syncIntervalHours"`
	SignupLocked      *bool   `json:"signupLocked"`
}

// handleUpdateSettings applies a partial settings update: absent fields keep
// their stored values.
func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req updateSettingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
		return
	}

	if _, err := s.guilds.EnsureGuild(r.Context(), guildID); err != nil {
		s.respondError(w, r, err)
		return
	}

	if req.Timezone != nil {
		if _, err := time.LoadLocation(*req.Timezone); err != nil {
			s.respondError(w, r, &domain.ValidationError{Msg: fmt.Sprintf("unknown timezone %q", *req.Timezone)})
			return
		}
		if err := s.guilds.SetTimezone(r.Context(), guildID, *req.Timezone); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.SyncIntervalHours != nil {
		if err := s.guilds.SetSyncInterval(r.Context(), guildID, *req.SyncIntervalHours); err != nil {
			s.respondError(w, r, err)
			return
		}
	}
	if req.SignupLocked != nil {
		if err := s.guilds.SetSignupLocked(r.Context(), guildID, *req.SignupLocked); err != nil {
			s.respondError(w, r, err)
			return
		}
	}

	guild, err := s.guilds.GetGuild(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSettingsView(guild))
}

func (s *Server) handleGetSeason(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	season, err := s.syncSvc.EnsureGuildSetup(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, toSeasonView(season))
}

func (s *Server) handleLockSeason(w http.ResponseWriter, r *http.Request) {
	s.setSeasonLock(w, r, true)
}

func (s *Server) handleUnlockSeason(w http.ResponseWriter, r *http.Request) {
	s.setSeasonLock(w, r, false)
}

func (s *Server) setSeasonLock(w http.ResponseWriter, r *http.Request, locked bool) {
	guildID := chi.URLParam(r, "guildID")

	season, err := s.syncSvc.EnsureGuildSetup(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.seasons.SetSignupLocked(r.Context(), season.ID, locked); err != nil {
		s.respondError(w, r, err)
		return
	}

	season.SignupLocked = locked
	s.respondJSON(w, http.StatusOK, toSeasonView(season))
}

func (s *Server) handleListClans(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	clans, err := s.guilds.ListClans(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"clans": clans})
}

type addClanRequest struct {
	ClanTag string `json:"clanTag"`
	Alias   string `json:"alias"`
}

func (s *Server) handleAddClan(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	var req addClanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
		return
	}

	if _, err := s.guilds.EnsureGuild(r.Context(), guildID); err != nil {
		s.respondError(w, r, err)
		return
	}

	// Verify the clan exists upstream before configuring it, and default the
	// alias to its real name.
	clan, err := s.gateway.GetClan(r.Context(), req.ClanTag)
	if err != nil {
		if domain.IsNotFound(err) {
			s.respondError(w, r, &domain.ValidationError{Msg: "clan does not exist"})
			return
		}
		s.respondError(w, r, err)
		return
	}

	alias := req.Alias
	if alias == "" {
		alias = clan.Name
	}

	saved, err := s.guilds.AddClan(r.Context(), guildID, clash.NormalizeTag(clan.Tag), alias)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleRemoveClan(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	rawTag, err := url.PathUnescape(chi.URLParam(r, "clanTag"))
	if err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "malformed clan tag"})
		return
	}
	clanTag := clash.NormalizeTag(rawTag)

	removed, err := s.guilds.RemoveClan(r.Context(), guildID, clanTag)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if !removed {
		s.respondError(w, r, &domain.DataIntegrityError{Entity: "clan", Msg: "clan is not configured"})
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"removed": clanTag})
}

func (s *Server) handleGetScoring(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	weights, err := s.guilds.GetScoringWeights(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, weights)
}

func (s *Server) handleSetScoring(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	// Partial updates merge over the current weights.
	current, err := s.guilds.GetScoringWeights(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	if err := json.NewDecoder(r.Body).Decode(&current); err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
		return
	}

	if _, err := s.guilds.EnsureGuild(r.Context(), guildID); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.guilds.SetScoringWeights(r.Context(), guildID, current); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, current)
}

func (s *Server) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	questions, err := s.guilds.ListSignupQuestions(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

type setQuestionRequest struct {
	Prompt  string   `json:"prompt"`
	Options []string `json:"options"`
}

func (s *Server) handleSetQuestion(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "question index must be a number"})
		return
	}

	var req setQuestionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, r, &domain.ValidationError{Msg: "invalid request body"})
		return
	}
	if len(req.Options) == 0 {
		s.respondError(w, r, &domain.ValidationError{Msg: "at least one option is required"})
		return
	}

	question := domain.SignupQuestion{Index: index, Prompt: req.Prompt, Options: req.Options}
	if err := s.guilds.SetSignupQuestion(r.Context(), guildID, question); err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, question)
}

// handleResetQuestions drops any overrides and re-seeds the default signup
// questionnaire.
func (s *Server) handleResetQuestions(w http.ResponseWriter, r *http.Request) {
	guildID := chi.URLParam(r, "guildID")

	if _, err := s.guilds.EnsureGuild(r.Context(), guildID); err != nil {
		s.respondError(w, r, err)
		return
	}
	if err := s.guilds.ResetSignupQuestions(r.Context(), guildID); err != nil {
		s.respondError(w, r, err)
		return
	}

	questions, err := s.guilds.ListSignupQuestions(r.Context(), guildID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]any{"questions": questions})
}

func (s *Server) handleGatewayStats(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.gateway.Stats())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type settingsView struct {
	GuildID           string `json:"guildId"`
	Timezone          string `json:"timezone"`
	ActiveSeasonID    string `json:"activeSeasonId,omitempty"`
	SignupLocked      bool   `json:"signupLocked"`
	SyncIntervalHours int    `json:"syncIntervalHours"`
}

func toSettingsView(guild *domain.GuildSettings) settingsView {
	return settingsView{
		GuildID:           guild.GuildID,
		Timezone:          guild.Timezone,
		ActiveSeasonID:    guild.ActiveSeasonID,
		SignupLocked:      guild.SignupLocked,
		SyncIntervalHours: guild.SyncIntervalHours,
	}
}

type seasonView struct {
	SeasonKey    string `json:"seasonKey"`
	DisplayName  string `json:"displayName"`
	Status       string `json:"status"`
	SignupLocked bool   `json:"signupLocked"`
}

func toSeasonView(season *domain.Season) seasonView {
	return seasonView{
		SeasonKey:    season.SeasonKey,
		DisplayName:  season.DisplayName,
		Status:       season.Status,
		SignupLocked: season.SignupLocked,
	}
}

type jobView struct {
	ID            string  `json:"id"`
	SeasonID      string  `json:"seasonId,omitempty"`
	JobType       string  `json:"jobType"`
	Status        string  `json:"status"`
	CorrelationID string  `json:"correlationId"`
	Summary       string  `json:"summary,omitempty"`
	StartedAt     string  `json:"startedAt"`
	FinishedAt    *string `json:"finishedAt"`
}

func toJobViews(runs []domain.SyncJobRun) []jobView {
	views := make([]jobView, 0, len(runs))
	for _, run := range runs {
		view := jobView{
			ID:            run.ID,
			SeasonID:      run.SeasonID,
			JobType:       run.JobType,
			Status:        run.Status,
			CorrelationID: run.CorrelationID,
			Summary:       run.Summary,
			StartedAt:     run.StartedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		}
		if run.FinishedAt != nil {
			finished := run.FinishedAt.UTC().Format("2006-01-02T15:04:05Z07:00")
			view.FinishedAt = &finished
		}
		views = append(views, view)
	}
	return views
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err):
		status = http.StatusBadRequest
	case domain.IsDataIntegrity(err), domain.IsNotFound(err):
		status = http.StatusNotFound
	case domain.IsForbidden(err):
		status = http.StatusBadGateway
	case domain.IsUpstream(err):
		status = http.StatusBadGateway
	}

	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("request failed")
	} else {
		s.logger.Warn().Err(err).Str("path", r.URL.Path).Int("status", status).Msg("request rejected")
	}

	s.respondJSON(w, status, map[string]string{"error": err.Error()})
}
