package web

import (
	"github.com/gofiber/fiber/v2"

	"MailMinder/internal/timeutil"
)

func (h *Handler) ListReminders(c *fiber.Ctx) error {
	reminders, err := h.Queue.Upcoming()
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"reminders": reminders})
}

type createReminderRequest struct {
	DueTime string `json:"due_time" validate:"required"`
	Note    string `json:"note" validate:"required"`
	EmailID int64  `json:"email_id"`
}

func (h *Handler) CreateReminder(c *fiber.Ctx) error {
	var req createReminderRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(&req); err != nil {
		return h.fail(c, err)
	}

	due, err := timeutil.ParseLocal(req.DueTime, h.Location)
	if err != nil {
		return badRequest(c, "malformed due time")
	}

	id, err := h.Queue.EnqueueReminder(due, req.Note, req.EmailID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"reminder_id": id})
}

func (h *Handler) DismissReminder(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "invalid reminder id")
	}
	if err := h.Queue.Dismiss(id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"dismissed": id})
}
