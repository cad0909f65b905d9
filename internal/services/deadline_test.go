package services

import (
	"testing"
	"time"

	"returnremind/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeDeadline(t *testing.T) {
	tests := []struct {
		name     string
		purchase time.Time
		window   int
		want     time.Time
	}{
		{"ten days", day(2024, 1, 1), 10, day(2024, 1, 11)},
		{"zero window", day(2024, 1, 1), 0, day(2024, 1, 1)},
		{"crosses month", day(2024, 1, 25), 14, day(2024, 2, 8)},
		{"leap day", day(2024, 2, 20), 10, day(2024, 3, 1)},
		{"crosses year", day(2023, 12, 20), 30, day(2024, 1, 19)},
		{"time of day is dropped", time.Date(2024, 1, 1, 18, 30, 0, 0, time.UTC), 1, day(2024, 1, 2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeDeadline(tt.purchase, tt.window)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %s, got %s", tt.want, got)
		})
	}
}

func TestComputeDeadline_NegativeWindow(t *testing.T) {
	_, err := ComputeDeadline(day(2024, 1, 1), -1)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestComputeDeadline_EveryWindowAddsWholeDays(t *testing.T) {
	start := day(2024, 1, 1)
	for w := 0; w <= 400; w++ {
		got, err := ComputeDeadline(start, w)
		require.NoError(t, err)
		assert.Equal(t, start.AddDate(0, 0, w), got)
	}
}

func TestComputeReminderPlan_FullPlan(t *testing.T) {
	deadline := day(2024, 1, 11)
	now := day(2024, 1, 1)

	plan := ComputeReminderPlan(deadline, now)
	require.Len(t, plan, 3)
	assert.Equal(t, PlannedReminder{Kind: models.SevenDaysBefore, ScheduledFor: day(2024, 1, 4)}, plan[0])
	assert.Equal(t, PlannedReminder{Kind: models.OneDayBefore, ScheduledFor: day(2024, 1, 10)}, plan[1])
	assert.Equal(t, PlannedReminder{Kind: models.DeadlineReached, ScheduledFor: day(2024, 1, 11)}, plan[2])
}

func TestComputeReminderPlan_ExactlySevenDaysOutDropsFirstReminder(t *testing.T) {
	// the seven-day instant equals now, which is not strictly after it
	plan := ComputeReminderPlan(day(2024, 1, 11), day(2024, 1, 4))
	require.Len(t, plan, 2)
	assert.Equal(t, models.OneDayBefore, plan[0].Kind)
	assert.Equal(t, models.DeadlineReached, plan[1].Kind)
}

func TestComputeReminderPlan_DeadlineToday(t *testing.T) {
	now := time.Date(2024, 1, 11, 0, 0, 0, 0, time.UTC)
	plan := ComputeReminderPlan(day(2024, 1, 11), now)
	require.Len(t, plan, 1)
	assert.Equal(t, models.DeadlineReached, plan[0].Kind)
	assert.Equal(t, day(2024, 1, 11), plan[0].ScheduledFor)
}

func TestComputeReminderPlan_OverdueSchedulesDeadlineNow(t *testing.T) {
	now := time.Date(2024, 1, 20, 9, 15, 0, 0, time.UTC)
	plan := ComputeReminderPlan(day(2024, 1, 5), now)
	require.Len(t, plan, 1)
	assert.Equal(t, models.DeadlineReached, plan[0].Kind)
	assert.Equal(t, now, plan[0].ScheduledFor)
}

func TestComputeReminderPlan_DeadlineReachedAlwaysOnce(t *testing.T) {
	deadline := day(2024, 3, 1)
	for offset := -30; offset <= 30; offset++ {
		now := deadline.AddDate(0, 0, offset).Add(7 * time.Hour)
		plan := ComputeReminderPlan(deadline, now)

		count := 0
		for _, p := range plan {
			if p.Kind == models.DeadlineReached {
				count++
			}
			if p.Kind != models.DeadlineReached {
				assert.True(t, p.ScheduledFor.After(now), "offset %d: %s planned in the past", offset, p.Kind)
			}
		}
		assert.Equal(t, 1, count, "offset %d", offset)
	}
}

func TestComputeReminderPlan_UsesLocationOfNow(t *testing.T) {
	loc := time.FixedZone("UTC+9", 9*60*60)
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, loc)

	plan := ComputeReminderPlan(day(2024, 1, 11), now)
	require.Len(t, plan, 3)
	assert.Equal(t, time.Date(2024, 1, 11, 0, 0, 0, 0, loc), plan[2].ScheduledFor)
}

func TestDeadlineWindow(t *testing.T) {
	start, end := DeadlineWindow(day(2024, 1, 11), time.UTC)
	assert.Equal(t, day(2024, 1, 11), start)
	assert.Equal(t, day(2024, 1, 12), end)
}
