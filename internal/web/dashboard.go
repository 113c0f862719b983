package web

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"MailMinder/internal/models"
	"MailMinder/internal/timeutil"
)

// Dashboard aggregates the at-a-glance counters: completed sends over
// the last 30 days, the queue depth, and upcoming reminders.
func (h *Handler) Dashboard(c *fiber.Ctx) error {
	jobs, err := h.Queue.ListByStatus("")
	if err != nil {
		return h.fail(c, err)
	}
	reminders, err := h.Queue.Upcoming()
	if err != nil {
		return h.fail(c, err)
	}

	cutoff := timeutil.NowUTC().Add(-30 * 24 * time.Hour)

	var sent30, failed30, scheduled int
	for _, job := range jobs {
		switch job.Status {
		case models.StatusPending:
			scheduled++
		case models.StatusSent:
			if completedAfter(job.SentAt, cutoff) {
				sent30++
			}
		case models.StatusFailed:
			if completedAfter(job.FailedAt, cutoff) {
				failed30++
			}
		}
	}

	return c.JSON(fiber.Map{
		"sent_last_30_days":   sent30,
		"failed_last_30_days": failed30,
		"scheduled":           scheduled,
		"upcoming_reminders":  len(reminders),
	})
}

func completedAfter(stamp string, cutoff time.Time) bool {
	t, err := timeutil.ParseUTC(stamp)
	return err == nil && t.After(cutoff)
}
