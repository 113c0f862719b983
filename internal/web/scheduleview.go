package web

import (
	"github.com/gofiber/fiber/v2"

	"MailMinder/internal/models"
)

// ListSchedule returns the pending queue, soonest first.
func (h *Handler) ListSchedule(c *fiber.Ctx) error {
	jobs, err := h.Queue.ListByStatus(models.StatusPending)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"scheduled": jobs})
}

// CancelSchedule deletes a pending job. Jobs the dispatcher already
// picked up are immutable from the foreground.
func (h *Handler) CancelSchedule(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "invalid job id")
	}
	if err := h.Queue.Cancel(id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"cancelled": id})
}

// ListEmails lists jobs by status (?status=sent|failed|pending); no
// status filter returns the full history.
func (h *Handler) ListEmails(c *fiber.Ctx) error {
	status := models.EmailStatus(c.Query("status"))
	switch status {
	case "", models.StatusPending, models.StatusSent, models.StatusFailed:
	default:
		return badRequest(c, "unknown status")
	}

	jobs, err := h.Queue.ListByStatus(status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"emails": jobs})
}
