package clash

import "time"

// SeasonKey is the year-month identifier of a CWL season, e.g. "2026-02".
func SeasonKey(t time.Time) string {
	return t.UTC().Format("2006-01")
}

// SeasonDisplayName renders as "Feb 2026 CWL".
func SeasonDisplayName(t time.Time) string {
	return t.UTC().Format("Jan 2006") + " CWL"
}

func DaysAgo(days int) time.Time {
	return time.Now().UTC().AddDate(0, 0, -days)
}
