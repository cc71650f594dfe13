package api

// Upstream payload shapes, limited to the fields the pipeline reads.

type Player struct {
	Tag               string       `json:"tag"`
	Name              string       `json:"name"`
	TownHallLevel     int          `json:"townHallLevel"`
	WarStars          int          `json:"warStars"`
	AttackWins        int          `json:"attackWins"`
	DefenseWins       int          `json:"defenseWins"`
	Trophies          int          `json:"trophies"`
	Donations         int          `json:"donations"`
	DonationsReceived int          `json:"donationsReceived"`
	Clan              *PlayerClan  `json:"clan"`
	Heroes            []PlayerHero `json:"heroes"`
}

type PlayerClan struct {
	Tag  string `json:"tag"`
	Name string `json:"name"`
}

type PlayerHero struct {
	Name  string `json:"name"`
	Level int    `json:"level"`
}

// CombinedHeroLevel sums the levels of every hero present on the profile.
func (p *Player) CombinedHeroLevel() int {
	total := 0
	for _, hero := range p.Heroes {
		total += hero.Level
	}
	return total
}

type Clan struct {
	Tag        string       `json:"tag"`
	Name       string       `json:"name"`
	Members    int          `json:"members"`
	MemberList []ClanMember `json:"memberList"`
}

type ClanMember struct {
	Tag           string `json:"tag"`
	Name          string `json:"name"`
	Role          string `json:"role"`
	TownHallLevel int    `json:"townHallLevel"`
}

type WarAttack struct {
	Stars                 int     `json:"stars"`
	DestructionPercentage float64 `json:"destructionPercentage"`
}

type WarMember struct {
	Tag                string      `json:"tag"`
	Name               string      `json:"name"`
	Attacks            []WarAttack `json:"attacks"`
	BestOpponentAttack *WarAttack  `json:"bestOpponentAttack"`
}

type WarSide struct {
	Tag     string      `json:"tag"`
	Name    string      `json:"name"`
	Attacks int         `json:"attacks"`
	Members []WarMember `json:"members"`
}

type War struct {
	State     string  `json:"state"`
	Clan      WarSide `json:"clan"`
	Opponent  WarSide `json:"opponent"`
	StartTime string  `json:"startTime"`
	EndTime   string  `json:"endTime"`
}

type LeagueGroup struct {
	Season string        `json:"season"`
	Rounds []LeagueRound `json:"rounds"`
}

type LeagueRound struct {
	WarTags []string `json:"warTags"`
}
