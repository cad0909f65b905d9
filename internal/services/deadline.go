package services

import (
	"fmt"
	"time"

	"returnremind/internal/models"
)

// PlannedReminder is one entry of a purchase's reminder plan
type PlannedReminder struct {
	Kind         models.ReminderKind
	ScheduledFor time.Time
}

// DateOf returns the calendar day of t as midnight UTC, the storage form of dates
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// StartOfDay returns 00:00 of the calendar date in loc
func StartOfDay(date time.Time, loc *time.Location) time.Time {
	y, m, d := date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, loc)
}

// ComputeDeadline adds the return window to the purchase date in whole calendar days
func ComputeDeadline(purchaseDate time.Time, windowDays int) (time.Time, error) {
	if windowDays < 0 {
		return time.Time{}, fmt.Errorf("%w: return window must be >= 0 days, got %d", ErrInvalidInput, windowDays)
	}
	return DateOf(purchaseDate).AddDate(0, 0, windowDays), nil
}

// DeadlineWindow returns the span in which the deadline-day reminder may fire:
// deadline 00:00 in loc up to the following midnight.
func DeadlineWindow(deadline time.Time, loc *time.Location) (start, end time.Time) {
	start = StartOfDay(deadline, loc)
	return start, start.AddDate(0, 0, 1)
}

// ComputeReminderPlan returns the reminders to create for a deadline, evaluated at now.
// Day-relative reminders are only planned while still in the future; the
// deadline-day reminder is always planned, at now if its natural time has passed.
func ComputeReminderPlan(deadline, now time.Time) []PlannedReminder {
	loc := now.Location()
	deadlineStart := StartOfDay(deadline, loc)

	plan := make([]PlannedReminder, 0, 3)
	if at := deadlineStart.AddDate(0, 0, -7); at.After(now) {
		plan = append(plan, PlannedReminder{Kind: models.SevenDaysBefore, ScheduledFor: at})
	}
	if at := deadlineStart.AddDate(0, 0, -1); at.After(now) {
		plan = append(plan, PlannedReminder{Kind: models.OneDayBefore, ScheduledFor: at})
	}
	if deadlineStart.Before(now) {
		plan = append(plan, PlannedReminder{Kind: models.DeadlineReached, ScheduledFor: now})
	} else {
		plan = append(plan, PlannedReminder{Kind: models.DeadlineReached, ScheduledFor: deadlineStart})
	}
	return plan
}
