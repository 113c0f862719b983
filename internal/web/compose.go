package web

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"MailMinder/internal/models"
	"MailMinder/internal/render"
	"MailMinder/internal/store"
	"MailMinder/internal/timeutil"
)

type previewRequest struct {
	TemplateID    int64  `json:"template_id"`
	Subject       string `json:"subject"`
	Body          string `json:"body"`
	ContactID     int64  `json:"contact_id" validate:"required"`
	WithSignature bool   `json:"with_signature"`
}

// Preview renders a template (stored or ad-hoc) against one contact
// without side effects, for the live preview pane.
func (h *Handler) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, "invalid request body")
	}
	if err := h.Validate.Struct(&req); err != nil {
		return h.fail(c, err)
	}

	tmpl, contact, profile, err := h.composeInputs(req.TemplateID, req.Subject, req.Body, req.ContactID)
	if err != nil {
		return h.fail(c, err)
	}

	subject, body := render.Email(tmpl, contact, profile, req.WithSignature)
	return c.JSON(fiber.Map{
		"to":      fmt.Sprintf("%s <%s>", contact.Name, contact.Email),
		"subject": subject,
		"body":    body,
	})
}

// Compose creates one scheduled email per selected recipient from a
// multipart form. An empty schedule_time means "send now": the job gets
// the current timestamp and is picked up by the dispatcher's next poll,
// through the same path as a future schedule.
func (h *Handler) Compose(c *fiber.Ctx) error {
	form, err := c.MultipartForm()
	if err != nil {
		return badRequest(c, "expected multipart form")
	}

	contactIDs, err := parseIDList(form.Value["contact_ids"])
	if err != nil || len(contactIDs) == 0 {
		return badRequest(c, "select at least one recipient")
	}

	templateID, _ := strconv.ParseInt(first(form.Value["template_id"]), 10, 64)
	subject := first(form.Value["subject"])
	body := first(form.Value["body"])
	withSignature := first(form.Value["with_signature"]) == "true"

	scheduleAt, err := h.parseScheduleTime(first(form.Value["schedule_time"]))
	if err != nil {
		return badRequest(c, "malformed schedule time")
	}

	reminderDays, _ := strconv.Atoi(first(form.Value["reminder_days"]))
	reminderNote := first(form.Value["reminder_note"])

	// Attachments are saved once and shared by every recipient's job.
	var attachmentPaths []string
	for _, fileHeader := range form.File["attachments"] {
		name := uuid.New().String() + "_" + filepath.Base(fileHeader.Filename)
		path := filepath.Join(h.AttachmentsDir, name)
		if err := c.SaveFile(fileHeader, path); err != nil {
			return h.fail(c, fmt.Errorf("save attachment: %w", err))
		}
		attachmentPaths = append(attachmentPaths, path)
	}

	var jobIDs []int64
	for _, contactID := range contactIDs {
		tmpl, contact, profile, err := h.composeInputs(templateID, subject, body, contactID)
		if err != nil {
			return h.fail(c, err)
		}

		renderedSubject, renderedBody := render.Email(tmpl, contact, profile, withSignature)
		if renderedSubject == "" || renderedBody == "" {
			return badRequest(c, "subject and body cannot be empty")
		}

		job := models.ScheduledEmail{
			RecipientEmail: contact.Email,
			RecipientName:  contact.Name,
			Snapshot:       contact.Fields(),
			Subject:        renderedSubject,
			Body:           renderedBody,
			Attachments:    attachmentPaths,
			ScheduleTime:   timeutil.FormatUTC(scheduleAt),
		}

		// The reminder must exist before the job does: a send-now job
		// can be dispatched on the very next poll, and the dispatcher
		// only dismisses a reminder already linked on the job record.
		// The job itself is never touched after creation.
		if reminderDays > 0 {
			remID, err := h.createReminder(&job, scheduleAt, reminderDays, reminderNote)
			if err != nil {
				h.Log.Warn("reminder creation failed", zap.Error(err))
			} else {
				job.ReminderID = remID
			}
		}

		jobID, err := h.Queue.Enqueue(&job)
		if err != nil {
			return h.fail(c, err)
		}

		if job.ReminderID != 0 {
			err := h.Store.Update(store.TableReminders, job.ReminderID, map[string]any{
				"email_id": jobID,
			})
			if err != nil {
				h.Log.Warn("reminder back-link failed",
					zap.Int64("job_id", jobID),
					zap.Int64("reminder_id", job.ReminderID),
					zap.Error(err),
				)
			}
		}

		jobIDs = append(jobIDs, jobID)
	}

	h.Log.Info("emails scheduled",
		zap.Int("count", len(jobIDs)),
		zap.Time("schedule_time", scheduleAt),
	)
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"job_ids":       jobIDs,
		"schedule_time": timeutil.FormatUTC(scheduleAt),
	})
}

// composeInputs resolves template, contact and sender profile for one
// render. A zero templateID means an ad-hoc subject/body.
func (h *Handler) composeInputs(templateID int64, subject, body string, contactID int64) (*models.Template, *models.Contact, *models.Profile, error) {
	tmpl := &models.Template{Subject: subject, Body: body}
	if templateID != 0 {
		tmpl = &models.Template{}
		if err := h.Store.Get(store.TableTemplates, templateID, tmpl); err != nil {
			return nil, nil, nil, fmt.Errorf("load template %d: %w", templateID, err)
		}
	}

	contact := &models.Contact{}
	if err := h.Store.Get(store.TableContacts, contactID, contact); err != nil {
		return nil, nil, nil, fmt.Errorf("load contact %d: %w", contactID, err)
	}

	profile := &models.Profile{}
	err := h.Store.Get(store.TableProfile, profileDocID, profile)
	if errors.Is(err, store.ErrNotFound) {
		// rendering still works, profile placeholders stay verbatim
		err = nil
	}
	if err != nil {
		return nil, nil, nil, err
	}

	return tmpl, contact, profile, nil
}

// parseScheduleTime interprets an empty value as now and a naive form
// value in the app timezone.
func (h *Handler) parseScheduleTime(value string) (time.Time, error) {
	if value == "" {
		return timeutil.NowUTC(), nil
	}
	return timeutil.ParseLocal(value, h.Location)
}

// createReminder stores the follow-up reminder ahead of its job; the
// job id isn't assigned yet, so the email link is back-filled by the
// caller once the job exists.
func (h *Handler) createReminder(job *models.ScheduledEmail, scheduleAt time.Time, days int, note string) (int64, error) {
	if note == "" {
		note = fmt.Sprintf("Follow up on %q with %s", job.Subject, job.RecipientName)
	}
	due := scheduleAt.Add(time.Duration(days) * 24 * time.Hour)
	return h.Queue.EnqueueReminder(due, note, 0)
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

func parseIDList(values []string) ([]int64, error) {
	ids := make([]int64, 0, len(values))
	for _, v := range values {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}
