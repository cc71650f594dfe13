package domain

import (
	"time"
)

type GuildSettings struct {
	ID                string
	GuildID           string
	Timezone          string
	ActiveSeasonID    string
	SignupLocked      bool
	SyncIntervalHours int
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type GuildClan struct {
	ID        string
	GuildID   string
	ClanTag   string
	Alias     string
	CreatedAt time.Time
}

type Season struct {
	ID           string
	GuildID      string
	SeasonKey    string // "2026-02"
	DisplayName  string // "Feb 2026 CWL"
	Status       string
	SignupLocked bool
	StartedAt    time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

type SignupAnswer struct {
	QuestionIndex int
	AnswerValue   string
}

type Signup struct {
	ID          string
	GuildID     string
	SeasonID    string
	UserID      string
	PlayerTag   string
	Note        string
	Status      string
	SubmittedAt time.Time
	UpdatedAt   time.Time
	Answers     []SignupAnswer
}

type SignupQuestion struct {
	Index   int
	Prompt  string
	Options []string
}

// PlayerSnapshot is an append-only point-in-time capture of a player's
// profile. Rows are never mutated; the latest capture is the current view.
type PlayerSnapshot struct {
	ID                string
	GuildID           string
	SeasonID          string
	PlayerTag         string
	PlayerName        string
	ClanTag           string
	TownHall          int
	HeroesCombined    int
	WarStarsTotal     int
	AttackWins        int
	DefenseWins       int
	Trophies          int
	Donations         int
	DonationsReceived int
	CapturedAt        time.Time
}

const (
	WarTypeRegular = "war"
	WarTypeCwl     = "cwl"
)

// WarAttackEvent aggregates one player's attacks in one war. All events for
// a war id are replaced together, never patched row by row.
type WarAttackEvent struct {
	ID                 string
	GuildID            string
	SeasonID           string
	WarType            string
	WarID              string
	WarDay             time.Time
	PlayerTag          string
	AttacksUsed        int
	AttacksAllowed     int
	Stars              int
	Destruction        float64
	Triples            int
	Twos               int
	Ones               int
	Zeroes             int
	Missed             bool
	DefenseStars       int
	DefenseDestruction float64
	CapturedAt         time.Time
}

const (
	JobTypeManual          = "manual"
	JobTypeScheduled       = "scheduled"
	JobTypeSignupImmediate = "signup-immediate"

	JobStatusRunning = "running"
	JobStatusSuccess = "success"
	JobStatusError   = "error"
)

type SyncJobRun struct {
	ID            string
	GuildID       string
	SeasonID      string
	JobType       string
	Status        string
	CorrelationID string
	Summary       string
	StartedAt     time.Time
	FinishedAt    *time.Time
}

type SyncResult struct {
	SyncedPlayers int       `json:"syncedPlayers"`
	SyncedWars    int       `json:"syncedWars"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// ComputedPlayerStats is a derived projection, rebuilt on every read.
// Nil rate/average pointers mean "no attacks", which is distinct from 0.
type ComputedPlayerStats struct {
	PlayerTag             string
	PlayerName            string
	CurrentClan           string
	TownHall              int
	CombinedHeroes        int
	WarHitrate            *float64
	CwlHitrate            *float64
	LastCwl               string
	TotalAttacks          int
	Stars                 int
	AvgStars              *float64
	Destruction           float64
	AvgDestruction        *float64
	ThreeStars            int
	TwoStars              int
	OneStars              int
	ZeroStars             int
	Missed                int
	DefenseStars          int
	DefenseAvgStars       *float64
	DefenseDestruction    float64
	DefenseAvgDestruction *float64
	RosterScore           float64
}

type SuggestedRosterEntry struct {
	UserID          string   `json:"userId"`
	PlayerTag       string   `json:"playerTag"`
	PlayerName      string   `json:"playerName"`
	TownHall        int      `json:"townHall"`
	Score           float64  `json:"score"`
	WarHitrate      *float64 `json:"warHitrate"`
	CwlHitrate      *float64 `json:"cwlHitrate"`
	Availability    string   `json:"availability"`
	Competitiveness string   `json:"competitiveness"`
}
