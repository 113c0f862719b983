package web

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"MailMinder/internal/dispatch"
	"MailMinder/internal/models"
	"MailMinder/internal/schedule"
	"MailMinder/internal/store"
	"MailMinder/internal/timeutil"
)

type testApp struct {
	app   *fiber.App
	store *store.Store
	queue *schedule.Queue
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()
	st, err := store.New(t.TempDir(), time.Second)
	require.NoError(t, err)

	q := schedule.New(st)
	h := NewHandler(st, q, zap.NewNop(), t.TempDir(), time.UTC)
	return &testApp{app: NewApp(h), store: st, queue: q}
}

func (ta *testApp) doJSON(t *testing.T, method, path string, payload any) (*http.Response, map[string]any) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if len(raw) > 0 {
		require.NoError(t, json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

func (ta *testApp) seedContact(t *testing.T, name, email string, extra map[string]string) int64 {
	t.Helper()
	id, err := ta.store.Insert(store.TableContacts, &models.Contact{Name: name, Email: email, Extra: extra})
	require.NoError(t, err)
	return id
}

func TestProfileRoundTrip(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.doJSON(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["profile"])

	resp, _ = ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{
		"name":      "Jane",
		"title":     "Founder",
		"signature": "Best,\nJane",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ta.doJSON(t, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	profile := body["profile"].(map[string]any)
	assert.Equal(t, "Jane", profile["name"])
}

func TestProfileOverwrittenOnSave(t *testing.T) {
	ta := newTestApp(t)

	ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{"name": "First"})
	ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{"name": "Second"})

	records, err := ta.store.All(store.TableProfile)
	require.NoError(t, err)
	assert.Len(t, records, 1)
}

func TestProfileRequiresName(t *testing.T) {
	ta := newTestApp(t)
	resp, _ := ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{"title": "x"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestCreateContactValidation(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.doJSON(t, http.MethodPost, "/api/contacts", map[string]any{"name": "Bob"})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = ta.doJSON(t, http.MethodPost, "/api/contacts", map[string]any{
		"name": "Bob", "email": "not-an-address",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := ta.doJSON(t, http.MethodPost, "/api/contacts", map[string]any{
		"name": "Bob", "email": "bob@x.com",
		"extra": map[string]string{"profession": "Marketing"},
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	contact := body["contact"].(map[string]any)
	assert.Equal(t, float64(1), contact["id"])
}

func TestDeleteContact(t *testing.T) {
	ta := newTestApp(t)
	id := ta.seedContact(t, "Bob", "bob@x.com", nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/contacts/1", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var contact models.Contact
	assert.ErrorIs(t, ta.store.Get(store.TableContacts, id, &contact), store.ErrNotFound)
}

func TestDeleteMissingContact(t *testing.T) {
	ta := newTestApp(t)
	req := httptest.NewRequest(http.MethodDelete, "/api/contacts/9", nil)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestImportContacts(t *testing.T) {
	ta := newTestApp(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "contacts.csv")
	require.NoError(t, err)
	_, err = fw.Write([]byte("Name,Email,Company\nJane,jane@example.com,Acme\nBob,bob@x.com,Initech\n"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/contacts/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	records, err := ta.store.All(store.TableContacts)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestTemplateLifecycle(t *testing.T) {
	ta := newTestApp(t)

	resp, _ := ta.doJSON(t, http.MethodPost, "/api/templates", map[string]any{
		"name": "Outreach", "subject": "Hi {name}", "body": "Regards",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := ta.doJSON(t, http.MethodGet, "/api/templates", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["templates"], 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/templates/1", nil)
	resp2, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)
}

func TestPreviewRendersAgainstContactAndProfile(t *testing.T) {
	ta := newTestApp(t)

	ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{"name": "Jane"})
	contactID := ta.seedContact(t, "Bob", "bob@x.com", nil)

	resp, body := ta.doJSON(t, http.MethodPost, "/api/compose/preview", map[string]any{
		"subject":    "Hi {name}",
		"body":       "Regards, {sender_name}",
		"contact_id": contactID,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Hi Bob", body["subject"])
	assert.Equal(t, "Regards, {sender_name}", body["body"])
	assert.Equal(t, "Bob <bob@x.com>", body["to"])
}

func TestPreviewMissingContact(t *testing.T) {
	ta := newTestApp(t)
	resp, _ := ta.doJSON(t, http.MethodPost, "/api/compose/preview", map[string]any{
		"subject": "Hi", "body": "x", "contact_id": 12,
	})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func composeForm(t *testing.T, fields map[string][]string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for key, values := range fields {
		for _, v := range values {
			require.NoError(t, mw.WriteField(key, v))
		}
	}
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func TestComposeCreatesOneJobPerRecipient(t *testing.T) {
	ta := newTestApp(t)

	ta.doJSON(t, http.MethodPut, "/api/profile", map[string]any{"name": "Jane"})
	c1 := ta.seedContact(t, "Bob", "bob@x.com", map[string]string{"profession": "Marketing"})
	c2 := ta.seedContact(t, "Ada", "ada@x.com", map[string]string{"profession": "Research"})
	_ = c1
	_ = c2

	body, contentType := composeForm(t, map[string][]string{
		"contact_ids": {"1", "2"},
		"subject":     {"Hi {name}"},
		"body":        {"Impressed by your work in {profession}."},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	jobs, err := ta.queue.ListByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, jobs, 2)

	// Personalization differs per recipient and the snapshot is
	// denormalized onto each job.
	assert.Equal(t, "Hi Bob", jobs[0].Subject)
	assert.Equal(t, "Impressed by your work in Marketing.", jobs[0].Body)
	assert.Equal(t, "Hi Ada", jobs[1].Subject)
	assert.Equal(t, "Marketing", jobs[0].Snapshot["profession"])
}

func TestComposeSendNowIsImmediatelyDue(t *testing.T) {
	ta := newTestApp(t)
	ta.seedContact(t, "Bob", "bob@x.com", nil)

	body, contentType := composeForm(t, map[string][]string{
		"contact_ids": {"1"},
		"subject":     {"Hello"},
		"body":        {"Now"},
		// no schedule_time: send now
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	due, err := ta.queue.DueJobs(timeutil.NowUTC().Add(time.Second))
	require.NoError(t, err)
	assert.Len(t, due, 1)
}

func TestComposeLinksReminder(t *testing.T) {
	ta := newTestApp(t)
	ta.seedContact(t, "Bob", "bob@x.com", nil)

	body, contentType := composeForm(t, map[string][]string{
		"contact_ids":   {"1"},
		"subject":       {"Hello"},
		"body":          {"Please read"},
		"reminder_days": {"3"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	jobs, err := ta.queue.ListByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotZero(t, jobs[0].ReminderID)

	var rem models.Reminder
	require.NoError(t, ta.store.Get(store.TableReminders, jobs[0].ReminderID, &rem))
	assert.Equal(t, jobs[0].ID, rem.EmailID)
	assert.Equal(t, models.ReminderPending, rem.Status)
}

type acceptAllTransport struct{}

func (acceptAllTransport) Send(*models.ScheduledEmail) error { return nil }

func TestComposeSendNowReminderSurvivesImmediateDispatch(t *testing.T) {
	ta := newTestApp(t)
	ta.seedContact(t, "Bob", "bob@x.com", nil)

	body, contentType := composeForm(t, map[string][]string{
		"contact_ids":   {"1"},
		"subject":       {"Hello"},
		"body":          {"Please read"},
		"reminder_days": {"2"},
		// no schedule_time: due on the very next poll
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	// The link is already on the job record when it becomes visible,
	// so even a dispatch racing the compose response sees it.
	jobs, err := ta.queue.ListByStatus(models.StatusPending)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	require.NotZero(t, jobs[0].ReminderID)

	d := &dispatch.Dispatcher{
		Queue:     ta.queue,
		Transport: acceptAllTransport{},
		Log:       zap.NewNop(),
		Interval:  time.Second,
	}
	d.Tick(context.Background(), timeutil.NowUTC().Add(time.Second))

	var rem models.Reminder
	require.NoError(t, ta.store.Get(store.TableReminders, jobs[0].ReminderID, &rem))
	assert.Equal(t, models.ReminderDismissed, rem.Status)
	assert.Equal(t, jobs[0].ID, rem.EmailID)
}

func TestComposeRequiresRecipients(t *testing.T) {
	ta := newTestApp(t)

	body, contentType := composeForm(t, map[string][]string{
		"subject": {"Hello"},
		"body":    {"x"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestComposeRejectsMalformedScheduleTime(t *testing.T) {
	ta := newTestApp(t)
	ta.seedContact(t, "Bob", "bob@x.com", nil)

	body, contentType := composeForm(t, map[string][]string{
		"contact_ids":   {"1"},
		"subject":       {"Hello"},
		"body":          {"x"},
		"schedule_time": {"sometime soon"},
	})
	req := httptest.NewRequest(http.MethodPost, "/api/compose", body)
	req.Header.Set("Content-Type", contentType)
	resp, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScheduleListAndCancel(t *testing.T) {
	ta := newTestApp(t)

	id, err := ta.queue.Enqueue(&models.ScheduledEmail{
		RecipientEmail: "bob@x.com",
		Subject:        "Hello",
		Body:           "x",
		ScheduleTime:   timeutil.FormatUTC(timeutil.NowUTC().Add(time.Hour)),
	})
	require.NoError(t, err)

	resp, body := ta.doJSON(t, http.MethodGet, "/api/schedule", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["scheduled"], 1)

	req := httptest.NewRequest(http.MethodDelete, "/api/schedule/1", nil)
	resp2, err := ta.app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp2.StatusCode)

	var job models.ScheduledEmail
	assert.ErrorIs(t, ta.store.Get(store.TableEmails, id, &job), store.ErrNotFound)
}

func TestListEmailsRejectsUnknownStatus(t *testing.T) {
	ta := newTestApp(t)
	resp, _ := ta.doJSON(t, http.MethodGet, "/api/emails?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRemindersLifecycle(t *testing.T) {
	ta := newTestApp(t)

	resp, body := ta.doJSON(t, http.MethodPost, "/api/reminders", map[string]any{
		"due_time": "2030-01-02T09:00",
		"note":     "Follow up with Bob",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, float64(1), body["reminder_id"])

	resp, body = ta.doJSON(t, http.MethodGet, "/api/reminders", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["reminders"], 1)

	resp, _ = ta.doJSON(t, http.MethodPost, "/api/reminders/1/dismiss", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = ta.doJSON(t, http.MethodGet, "/api/reminders", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["reminders"], 0)
}

func TestDashboardCounts(t *testing.T) {
	ta := newTestApp(t)
	now := timeutil.NowUTC()

	pendingID, err := ta.queue.Enqueue(&models.ScheduledEmail{
		RecipientEmail: "a@x.com", Subject: "s", Body: "b",
		ScheduleTime: timeutil.FormatUTC(now.Add(time.Hour)),
	})
	require.NoError(t, err)
	_ = pendingID

	sentID, err := ta.queue.Enqueue(&models.ScheduledEmail{
		RecipientEmail: "b@x.com", Subject: "s", Body: "b",
		ScheduleTime: timeutil.FormatUTC(now.Add(-time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, ta.queue.Mark(sentID, models.StatusSent, ""))

	_, err = ta.queue.EnqueueReminder(now.Add(24*time.Hour), "follow up", 0)
	require.NoError(t, err)

	resp, body := ta.doJSON(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["scheduled"])
	assert.Equal(t, float64(1), body["sent_last_30_days"])
	assert.Equal(t, float64(1), body["upcoming_reminders"])
	assert.Equal(t, float64(0), body["failed_last_30_days"])
}

func TestDashboardCountsFailureByFailureTime(t *testing.T) {
	ta := newTestApp(t)
	now := timeutil.NowUTC()

	// Created well outside the 30-day window, failing only now: the
	// failure must still be counted.
	id, err := ta.queue.Enqueue(&models.ScheduledEmail{
		RecipientEmail: "old@x.com", Subject: "s", Body: "b",
		ScheduleTime: timeutil.FormatUTC(now.Add(-35 * 24 * time.Hour)),
		CreatedAt:    timeutil.FormatUTC(now.Add(-35 * 24 * time.Hour)),
	})
	require.NoError(t, err)
	require.NoError(t, ta.queue.Mark(id, models.StatusFailed, "smtp down"))

	resp, body := ta.doJSON(t, http.MethodGet, "/api/dashboard", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["failed_last_30_days"])
}
