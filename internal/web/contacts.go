package web

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"MailMinder/internal/csvparser"
	"MailMinder/internal/models"
	"MailMinder/internal/store"
)

func (h *Handler) ListContacts(c *fiber.Ctx) error {
	records, err := h.Store.All(store.TableContacts)
	if err != nil {
		return h.fail(c, err)
	}

	contacts := make([]models.Contact, 0, len(records))
	for _, rec := range records {
		var contact models.Contact
		if err := rec.Decode(&contact); err != nil {
			continue
		}
		contacts = append(contacts, contact)
	}
	return c.JSON(fiber.Map{"contacts": contacts})
}

type createContactRequest struct {
	Name  string            `json:"name" validate:"required"`
	Email string            `json:"email" validate:"required,email"`
	Extra map[string]string `json:"extra"`
}

func (h *Handler) CreateContact(c *fiber.Ctx) error {
	var req createContactRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(&req); err != nil {
		return h.fail(c, err)
	}

	contact := models.Contact{
		Name:  req.Name,
		Email: req.Email,
		Extra: req.Extra,
	}
	id, err := h.Store.Insert(store.TableContacts, &contact)
	if err != nil {
		return h.fail(c, err)
	}
	contact.ID = id

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"contact": contact})
}

func (h *Handler) DeleteContact(c *fiber.Ctx) error {
	id, err := paramID(c)
	if err != nil {
		return badRequest(c, "invalid contact id")
	}
	if err := h.Store.Delete(store.TableContacts, id); err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"deleted": id})
}

// ImportContacts accepts a CSV upload with an Email column and creates
// one contact per row; non-Email/Name columns become placeholder fields.
func (h *Handler) ImportContacts(c *fiber.Ctx) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return badRequest(c, "missing csv file upload")
	}

	f, err := fileHeader.Open()
	if err != nil {
		return h.fail(c, err)
	}
	defer f.Close()

	rows, err := csvparser.ParseContactRows(f, 1000)
	if err != nil {
		return badRequest(c, err.Error())
	}

	imported := 0
	for _, row := range rows {
		contact := models.Contact{
			Name:  row.Name,
			Email: row.Email,
			Extra: row.Fields,
		}
		if _, err := h.Store.Insert(store.TableContacts, &contact); err != nil {
			h.Log.Error("contact import insert failed",
				zap.String("email", row.Email),
				zap.Error(err),
			)
			continue
		}
		imported++
	}

	h.Log.Info("contacts imported",
		zap.Int("rows", len(rows)),
		zap.Int("imported", imported),
	)
	return c.JSON(fiber.Map{"imported": imported})
}
