package domain

import (
	"testing"
	"time"
)

func TestBadgeForRank(t *testing.T) {
	tests := []struct {
		rank int
		want Badge
	}{
		{1, BadgeGold},
		{2, BadgeSilver},
		{3, BadgeBronze},
		{4, BadgeTop10},
		{10, BadgeTop10},
		{11, BadgeTop50},
		{50, BadgeTop50},
		{51, BadgeRanked},
		{1000, BadgeRanked},
	}

	for _, tt := range tests {
		if got := BadgeForRank(tt.rank); got != tt.want {
			t.Errorf("BadgeForRank(%d) = %s, want %s", tt.rank, got, tt.want)
		}
	}
}

func TestPeriod_IsValid(t *testing.T) {
	valid := []Period{PeriodToday, PeriodWeek, PeriodMonth, PeriodYear}
	for _, p := range valid {
		if !p.IsValid() {
			t.Errorf("Period(%s).IsValid() = false, want true", p)
		}
	}

	for _, p := range []Period{"", "decade", "TODAY"} {
		if p.IsValid() {
			t.Errorf("Period(%s).IsValid() = true, want false", p)
		}
	}
}

func TestPeriod_WindowStart(t *testing.T) {
	now := time.Date(2025, 6, 15, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		period Period
		want   time.Time
	}{
		{PeriodToday, time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)},
		{PeriodWeek, time.Date(2025, 6, 8, 14, 30, 0, 0, time.UTC)},
		{PeriodMonth, time.Date(2025, 5, 15, 14, 30, 0, 0, time.UTC)},
		{PeriodYear, time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		if got := tt.period.WindowStart(now); !got.Equal(tt.want) {
			t.Errorf("WindowStart(%s) = %v, want %v", tt.period, got, tt.want)
		}
	}
}

func TestClaimType_IsValid(t *testing.T) {
	for _, ct := range []ClaimType{ClaimTypeRandom, ClaimTypeBonus, ClaimTypeManual} {
		if !ct.IsValid() {
			t.Errorf("ClaimType(%s).IsValid() = false, want true", ct)
		}
	}

	for _, ct := range []ClaimType{"", "jackpot", "Random"} {
		if ct.IsValid() {
			t.Errorf("ClaimType(%s).IsValid() = true, want false", ct)
		}
	}
}
