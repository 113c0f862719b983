package web

import (
	"github.com/gofiber/fiber/v2"

	"MailMinder/internal/models"
	"MailMinder/internal/store"
)

func (h *Handler) ListTemplates(c *fiber.Ctx) error {
	records, err := h.Store.All(store.TableTemplates)
	if err != nil {
		return h.fail(c, err)
	}

	templates := make([]models.Template, 0, len(records))
	for _, rec := range records {
		var tmpl models.Template
		if err := rec.Decode(&tmpl); err != nil {
			continue
		}
		templates = append(templates, tmpl)
	}
	return c.JSON(fiber.Map{"templates": templates})
}

type createTemplateRequest struct {
	Name    string `json:"name" validate:"required"`
	Subject string `json:"subject" validate:"required"`
	Body    string `json:"body" validate:"required"`
}

func (h *Handler) CreateTemplate(c *fiber.Ctx) error {
	var req createTemplateRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(&req); err != nil {
		return h.fail(c, err)
	}

	tmpl := models.Template{
		Name:    req.Name,
		Subject: req.Subject,
		Body:    req.Body,
	}
	id, err := h.Store.Insert(store.TableTemplates, &tmpl)
	if err != nil {
		return h.fail(c, err)
	}
	tmpl.ID = id

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"template": tmpl})
}

func (h *Handler) DeleteTemplate(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "invalid template id")
	}
	if err := h.Store.Delete(store.TableTemplates, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}
