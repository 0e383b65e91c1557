package notify

import (
	"context"
	"time"

	"studybuddy/internal/models"
)

// ReminderSource supplies what the reminder job needs.
type ReminderSource interface {
	Settings() models.UserSettings
	UpcomingTests(now time.Time, within time.Duration) []models.StudyResult
}

// RunReminders sends the list of upcoming tests on every tick until ctx is done.
// Nothing is sent while streak reminders are switched off.
func RunReminders(ctx context.Context, n *Notifier, src ReminderSource, interval, window time.Duration) {
	if !n.Enabled() || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			remind(n, src, now, window)
		}
	}
}

func remind(n *Notifier, src ReminderSource, now time.Time, window time.Duration) {
	if !src.Settings().StreakReminders {
		return
	}
	n.UpcomingTests(src.UpcomingTests(now, window))
}
