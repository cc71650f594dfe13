package export

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scirpter/CWL-Discord-Bot/internal/domain"
)

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	return records
}

func TestWriteSeason(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, zerolog.Nop())
	season := domain.Season{ID: "season-1", SeasonKey: "2026-09"}

	warHitrate := 0.83
	rows := []SeasonRow{
		{
			UserID: "discord-user-1",
			Note:   "weekend only",
			Stats: domain.ComputedPlayerStats{
				PlayerName:     "Scirpter",
				PlayerTag:      "#Q9P2QJC",
				CurrentClan:    "#FAMILY",
				TownHall:       17,
				CombinedHeroes: 430,
				WarHitrate:     &warHitrate,
				LastCwl:        "2026-08",
				TotalAttacks:   3,
				Stars:          8,
				Destruction:    275.5,
			},
		},
		{
			UserID: "discord-user-2",
			Stats: domain.ComputedPlayerStats{
				PlayerName: "Fresh",
				PlayerTag:  "#NEW",
				LastCwl:    "N/A",
			},
		},
	}

	require.NoError(t, writer.WriteSeason(context.Background(), "guild 1!", season, rows))

	path := writer.Path("guild 1!", "2026-09")
	assert.Contains(t, path, "guild_1__2026-09.csv", "unsafe characters are replaced in file names")

	records := readCSV(t, path)
	require.Len(t, records, 3)
	assert.Equal(t, seasonHeaderColumns, records[0])
	require.Len(t, records[1], len(seasonHeaderColumns))

	scirpter := records[1]
	assert.Equal(t, "1", scirpter[0], "signup ordinal")
	assert.Equal(t, "Scirpter", scirpter[1])
	assert.Equal(t, "0.83", scirpter[7])
	assert.Equal(t, "N/A", scirpter[8], "missing cwl hitrate renders as N/A")
	assert.Equal(t, "275.5", scirpter[14])

	fresh := records[2]
	assert.Equal(t, "2", fresh[0])
	assert.Equal(t, "N/A", fresh[7])
}

func TestPathStaysInsideExportDir(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, zerolog.Nop())

	for _, input := range []string{"../../../etc/passwd", "..", "a/../../b"} {
		assert.Equal(t, dir, filepath.Dir(writer.Path("guild-1", input)), "season key %q", input)
		assert.Equal(t, dir, filepath.Dir(writer.Path(input, "2026-09")), "guild id %q", input)
	}
}

func TestWriteSeasonReplacesPreviousExport(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, zerolog.Nop())
	season := domain.Season{ID: "season-1", SeasonKey: "2026-09"}

	require.NoError(t, writer.WriteSeason(context.Background(), "guild-1", season, []SeasonRow{
		{UserID: "u1", Stats: domain.ComputedPlayerStats{PlayerTag: "#A"}},
		{UserID: "u2", Stats: domain.ComputedPlayerStats{PlayerTag: "#B"}},
	}))
	require.NoError(t, writer.WriteSeason(context.Background(), "guild-1", season, []SeasonRow{
		{UserID: "u1", Stats: domain.ComputedPlayerStats{PlayerTag: "#A"}},
	}))

	records := readCSV(t, writer.Path("guild-1", "2026-09"))
	assert.Len(t, records, 2, "a rewrite fully replaces the old table")
}

func TestWriteSeasonEmptyStillWritesHeader(t *testing.T) {
	dir := t.TempDir()
	writer := NewCSVWriter(dir, zerolog.Nop())

	require.NoError(t, writer.WriteSeason(context.Background(), "guild-1", domain.Season{SeasonKey: "2026-09"}, nil))

	records := readCSV(t, writer.Path("guild-1", "2026-09"))
	require.Len(t, records, 1)
	assert.Equal(t, seasonHeaderColumns, records[0])
}
