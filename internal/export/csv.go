// Package export renders the per-season stats table consumed by roster
// leads. The original spreadsheet layout is preserved column for column.
package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

var seasonHeaderColumns = []string{
	"Signup",
	"Player Name",
	"Player Tag",
	"Current Clan",
	"Discord",
	"TH",
	"Combined Heroes",
	"War Hitrate",
	"CWL Hitrate",
	"Last CWL",
	"Notes",
	"Total Attacks",
	"Stars",
	"Avg Stars",
	"Destruction",
	"Avg Destruction",
	"3 Stars",
	"2 Stars",
	"1 Star",
	"0 Stars",
	"Missed",
	"Defense Stars",
	"Defense Avg Stars",
	"Defense Destruction",
	"Defense Avg Destruction",
}

type SeasonRow struct {
	UserID string
	Note   string
	Stats  domain.ComputedPlayerStats
}

type CSVWriter struct {
	dir    string
	logger zerolog.Logger
}

func NewCSVWriter(dir string, logger zerolog.Logger) *CSVWriter {
	return &CSVWriter{dir: dir, logger: logger}
}

// WriteSeason writes the full season table for a guild, replacing any
// previous export for the same season.
func (w *CSVWriter) WriteSeason(ctx context.Context, guildID string, season domain.Season, rows []SeasonRow) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	path := w.Path(guildID, season.SeasonKey)

	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	if err := writer.Write(seasonHeaderColumns); err != nil {
		return fmt.Errorf("failed to write export header: %w", err)
	}

	for i, row := range rows {
		stats := row.Stats
		record := []string{
			strconv.Itoa(i + 1),
			stats.PlayerName,
			stats.PlayerTag,
			stats.CurrentClan,
			row.UserID,
			strconv.Itoa(stats.TownHall),
			strconv.Itoa(stats.CombinedHeroes),
			formatRate(stats.WarHitrate),
			formatRate(stats.CwlHitrate),
			stats.LastCwl,
			row.Note,
			strconv.Itoa(stats.TotalAttacks),
			strconv.Itoa(stats.Stars),
			formatRate(stats.AvgStars),
			formatFloat(stats.Destruction),
			formatRate(stats.AvgDestruction),
			strconv.Itoa(stats.ThreeStars),
			strconv.Itoa(stats.TwoStars),
			strconv.Itoa(stats.OneStars),
			strconv.Itoa(stats.ZeroStars),
			strconv.Itoa(stats.Missed),
			strconv.Itoa(stats.DefenseStars),
			formatRate(stats.DefenseAvgStars),
			formatFloat(stats.DefenseDestruction),
			formatRate(stats.DefenseAvgDestruction),
		}
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("failed to flush export: %w", err)
	}

	w.logger.Info().
		Str("guild_id", guildID).
		Str("season_key", season.SeasonKey).
		Str("path", path).
		Int("rows", len(rows)).
		Msg("season export written")
	return nil
}

// Path returns the export file location for a guild season, whether or not
// it exists yet. Both name parts are sanitized so caller-supplied values can
// never address a file outside the export directory.
func (w *CSVWriter) Path(guildID, seasonKey string) string {
	return filepath.Join(w.dir, fmt.Sprintf("%s_%s.csv", sanitizeFileName(guildID), sanitizeFileName(seasonKey)))
}

func formatRate(v *float64) string {
	if v == nil {
		return "N/A"
	}
	return formatFloat(*v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '_'
		}
	}, s)
}
