package web

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"MailMinder/internal/schedule"
	"MailMinder/internal/store"
)

// Handler carries the dependencies shared by every foreground route.
type Handler struct {
	Store          *store.Store
	Queue          *schedule.Queue
	Log            *zap.Logger
	Validate       *validator.Validate
	AttachmentsDir string
	Location       *time.Location
}

func NewHandler(st *store.Store, q *schedule.Queue, log *zap.Logger, attachmentsDir string, loc *time.Location) *Handler {
	return &Handler{
		Store:          st,
		Queue:          q,
		Log:            log,
		Validate:       validator.New(),
		AttachmentsDir: attachmentsDir,
		Location:       loc,
	}
}

// NewApp builds the fiber app with all foreground routes mounted.
func NewApp(h *Handler) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName: "MailMinder",
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())

	api := app.Group("/api")

	api.Get("/profile", h.GetProfile)
	api.Put("/profile", h.SaveProfile)

	api.Get("/contacts", h.ListContacts)
	api.Post("/contacts", h.CreateContact)
	api.Delete("/contacts/:id", h.DeleteContact)
	api.Post("/contacts/import", h.ImportContacts)

	api.Get("/templates", h.ListTemplates)
	api.Post("/templates", h.CreateTemplate)
	api.Delete("/templates/:id", h.DeleteTemplate)

	api.Post("/compose/preview", h.Preview)
	api.Post("/compose", h.Compose)

	api.Get("/schedule", h.ListSchedule)
	api.Delete("/schedule/:id", h.CancelSchedule)
	api.Get("/emails", h.ListEmails)

	api.Get("/reminders", h.ListReminders)
	api.Post("/reminders", h.CreateReminder)
	api.Post("/reminders/:id/dismiss", h.DismissReminder)

	api.Get("/dashboard", h.Dashboard)

	return app
}

// fail maps store and validation errors onto HTTP statuses.
func (h *Handler) fail(c *fiber.Ctx, err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not found"})
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}

	h.Log.Error("request failed",
		zap.String("path", c.Path()),
		zap.Error(err),
	)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "operation failed"})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}

func paramID(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	return int64(id), err
}
