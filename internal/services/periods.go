package services

import (
	"time"

	"github.com/dxsocial/backend/internal/models"
)

// StartOfDay truncates t to midnight UTC.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// StartOfWeek returns midnight UTC of the ISO week's Monday.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}

// PeriodStart is the first instant of the window a task can be completed once in.
// Special tasks are one-time, so their window starts at the epoch.
func PeriodStart(taskType string, now time.Time) time.Time {
	switch taskType {
	case models.TaskWeekly:
		return StartOfWeek(now)
	case models.TaskSpecial:
		return models.OneTimePeriod
	default:
		return StartOfDay(now)
	}
}

// NextStreak continues the streak when the last check-in was yesterday or later.
func NextStreak(last *models.CheckIn, today time.Time) int {
	if last == nil {
		return 1
	}
	if !StartOfDay(last.Date).Before(today.AddDate(0, 0, -1)) {
		return last.Streak + 1
	}
	return 1
}

// CheckInReward returns the unmultiplied points and tokens for a streak.
func CheckInReward(streak int) (points, tokens int64) {
	points = 5
	if streak >= 7 {
		points += 2
		tokens = 1
	}
	if streak >= 30 {
		points += 3
		tokens = 3
	}
	return points, tokens
}

// SubscriptionLevels maps the on-chain levels to their names.
var SubscriptionLevels = map[int]string{
	1:  "Standard",
	2:  "Plus",
	5:  "Pro",
	10: "Elite",
}

// Multiplier is the reward factor for a subscription: its level while active, else 1.
func Multiplier(level int, active bool) int64 {
	if !active {
		return 1
	}
	if _, ok := SubscriptionLevels[level]; !ok {
		return 1
	}
	return int64(level)
}
