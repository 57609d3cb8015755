package domain

import (
	"time"
)

// Badge is the tier assigned to a leaderboard rank
type Badge string

const (
	BadgeGold   Badge = "gold"
	BadgeSilver Badge = "silver"
	BadgeBronze Badge = "bronze"
	BadgeTop10  Badge = "top10"
	BadgeTop50  Badge = "top50"
	BadgeRanked Badge = "ranked"
)

// BadgeForRank maps a 1-based rank to its badge tier
func BadgeForRank(rank int) Badge {
	switch {
	case rank == 1:
		return BadgeGold
	case rank == 2:
		return BadgeSilver
	case rank == 3:
		return BadgeBronze
	case rank <= 10:
		return BadgeTop10
	case rank <= 50:
		return BadgeTop50
	default:
		return BadgeRanked
	}
}

// Period selects a time window for windowed rankings
type Period string

const (
	PeriodToday Period = "today"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// IsValid reports whether the period is one of the known windows
func (p Period) IsValid() bool {
	switch p {
	case PeriodToday, PeriodWeek, PeriodMonth, PeriodYear:
		return true
	}
	return false
}

// WindowStart returns the inclusive lower bound of the period ending at now.
// "today" starts at local midnight; the other periods reach back a fixed
// span from now.
func (p Period) WindowStart(now time.Time) time.Time {
	switch p {
	case PeriodToday:
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	case PeriodWeek:
		return now.AddDate(0, 0, -7)
	case PeriodMonth:
		return now.AddDate(0, -1, 0)
	case PeriodYear:
		return now.AddDate(-1, 0, 0)
	default:
		return now
	}
}

// LeaderboardEntry is one row of the global leaderboard. Rank is positional:
// ties are broken by registration time, so every entry has a distinct rank.
type LeaderboardEntry struct {
	Participant
	Rank  int   `json:"rank"`
	Badge Badge `json:"badge"`
}

// Leaderboard is the global leaderboard response
type Leaderboard struct {
	Entries           []LeaderboardEntry `json:"entries"`
	TotalParticipants int                `json:"total_participants"`
	LastUpdate        time.Time          `json:"last_update"`
}

// WindowedEntry is one row of a time-windowed leaderboard
type WindowedEntry struct {
	Participant
	PeriodPoints int   `json:"period_points"`
	PeriodClaims int   `json:"period_claims"`
	Rank         int   `json:"rank"`
	Badge        Badge `json:"badge"`
}

// WindowedLeaderboard is the windowed leaderboard response
type WindowedLeaderboard struct {
	Period     Period          `json:"period"`
	Entries    []WindowedEntry `json:"entries"`
	LastUpdate time.Time       `json:"last_update"`
}

// Position answers "where do I stand" for one participant. Rank here is
// competition ranking: participants with equal totals share a rank, which is
// intentionally different from the positional rank on the leaderboard.
type Position struct {
	ParticipantID string             `json:"participant_id"`
	Rank          int                `json:"rank"`
	Percentile    int                `json:"percentile"`
	TotalActive   int                `json:"total_active"`
	Neighborhood  []LeaderboardEntry `json:"neighborhood"`
}
