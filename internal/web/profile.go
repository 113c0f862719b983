package web

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"MailMinder/internal/models"
	"MailMinder/internal/store"
)

// The sender profile is a singleton, always stored under this id and
// overwritten on save.
const profileDocID = 1

func (h *Handler) GetProfile(c *fiber.Ctx) error {
	var profile models.Profile
	err := h.Store.Get(store.TableProfile, profileDocID, &profile)
	if errors.Is(err, store.ErrNotFound) {
		return c.JSON(fiber.Map{"profile": nil})
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"profile": profile})
}

type saveProfileRequest struct {
	Name       string `json:"name" validate:"required"`
	Title      string `json:"title"`
	Profession string `json:"profession"`
	LinkedIn   string `json:"linkedin"`
	Twitter    string `json:"twitter"`
	GitHub     string `json:"github"`
	Signature  string `json:"signature"`
}

func (h *Handler) SaveProfile(c *fiber.Ctx) error {
	var req saveProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(&req); err != nil {
		return h.fail(c, err)
	}

	profile := models.Profile{
		ID:         profileDocID,
		Name:       req.Name,
		Title:      req.Title,
		Profession: req.Profession,
		LinkedIn:   req.LinkedIn,
		Twitter:    req.Twitter,
		GitHub:     req.GitHub,
		Signature:  req.Signature,
	}
	if err := h.Store.Upsert(store.TableProfile, profileDocID, &profile); err != nil {
		return h.fail(c, err)
	}

	return c.JSON(fiber.Map{"profile": profile})
}
