package domain

// ScoringWeights are the named multipliers of the composite roster score.
// They are configured per guild and passed by value into the metrics engine.
type ScoringWeights struct {
	THWeight          float64 `json:"thWeight"`
	HeroWeight        float64 `json:"heroWeight"`
	WarWeight         float64 `json:"warWeight"`
	CwlWeight         float64 `json:"cwlWeight"`
	MissedPenalty     float64 `json:"missedPenalty"`
	CompetitiveBonus  float64 `json:"competitiveBonus"`
	AvailabilityBonus float64 `json:"availabilityBonus"`
}

func DefaultScoringWeights() ScoringWeights {
	return ScoringWeights{
		THWeight:          0.25,
		HeroWeight:        0.25,
		WarWeight:         0.2,
		CwlWeight:         0.2,
		MissedPenalty:     0.1,
		CompetitiveBonus:  0.05,
		AvailabilityBonus: 0.05,
	}
}

// Signup question indexes the scoring bonuses read from.
const (
	QuestionAvailability    = 1
	QuestionCompetitiveness = 2
)

const (
	AnswerAllWars     = "Yes all wars"
	AnswerPartial     = "Partial"
	AnswerCompetitive = "Competitive"
	AnswerEither      = "Either"
)

func DefaultSignupQuestions() []SignupQuestion {
	return []SignupQuestion{
		{Index: 1, Prompt: "Availability this CWL?", Options: []string{"Yes all wars", "Partial", "No"}},
		{Index: 2, Prompt: "Competitiveness preference?", Options: []string{"Competitive", "Relaxed", "Either"}},
		{Index: 3, Prompt: "Roster size preference?", Options: []string{"15v15", "30v30", "Either"}},
		{Index: 4, Prompt: "Hero readiness?", Options: []string{"Ready", "Almost ready", "Not ready"}},
		{Index: 5, Prompt: "Preferred clan/tier?", Options: []string{"Any"}},
	}
}
