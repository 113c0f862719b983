package schedule

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"MailMinder/internal/models"
	"MailMinder/internal/store"
	"MailMinder/internal/timeutil"
)

var (
	ErrNoRecipient   = errors.New("scheduled email has no recipient address")
	ErrBadTimestamp  = errors.New("schedule time is not a valid RFC3339 timestamp")
	ErrNotPending    = errors.New("job already left pending")
	ErrBadTransition = errors.New("invalid status transition")
)

// Queue exposes the scheduling and reminder tables. The web process
// enqueues and lists; the dispatcher is the only caller of Mark.
type Queue struct {
	store *store.Store
}

func New(st *store.Store) *Queue {
	return &Queue{store: st}
}

// Enqueue validates and stores one send job. Past schedule times are
// accepted and mean "due immediately", so send-now and schedule-later
// share this single path.
func (q *Queue) Enqueue(job *models.ScheduledEmail) (int64, error) {
	if job.RecipientEmail == "" {
		return 0, ErrNoRecipient
	}
	at, err := timeutil.ParseUTC(job.ScheduleTime)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrBadTimestamp, job.ScheduleTime)
	}
	// Stored as UTC so the lexicographic ordering in DueJobs and
	// ListByStatus compares instants; an offset timestamp would
	// otherwise sort by its text.
	job.ScheduleTime = timeutil.FormatUTC(at)

	job.Status = models.StatusPending
	if job.CreatedAt == "" {
		job.CreatedAt = timeutil.FormatUTC(timeutil.NowUTC())
	}

	id, err := q.store.Insert(store.TableEmails, job)
	if err != nil {
		return 0, err
	}
	job.ID = id
	return id, nil
}

// DueJobs returns the pending jobs whose schedule time has passed,
// earliest first with id as the tie break.
func (q *Queue) DueJobs(now time.Time) ([]models.ScheduledEmail, error) {
	records, err := q.store.Query(store.TableEmails, nil)
	if err != nil {
		return nil, err
	}

	var due []models.ScheduledEmail
	for _, rec := range records {
		var job models.ScheduledEmail
		if err := rec.Decode(&job); err != nil {
			continue // skip corrupt record, surfaced by the next list view
		}
		if job.Status != models.StatusPending {
			continue
		}
		at, err := timeutil.ParseUTC(job.ScheduleTime)
		if err != nil || at.After(now) {
			continue
		}
		due = append(due, job)
	}

	sort.Slice(due, func(i, j int) bool {
		if due[i].ScheduleTime != due[j].ScheduleTime {
			return due[i].ScheduleTime < due[j].ScheduleTime
		}
		return due[i].ID < due[j].ID
	})
	return due, nil
}

// Mark transitions a job out of pending. Repeating a mark with the same
// status is a no-op so the dispatcher can retry it after a store error
// without re-sending; any other transition of a non-pending job is
// rejected.
func (q *Queue) Mark(id int64, status models.EmailStatus, errMsg string) error {
	if status != models.StatusSent && status != models.StatusFailed {
		return fmt.Errorf("%w: pending -> %s", ErrBadTransition, status)
	}

	var job models.ScheduledEmail
	if err := q.store.Get(store.TableEmails, id, &job); err != nil {
		return err
	}
	if job.Status == status {
		return nil
	}
	if job.Status != models.StatusPending {
		return fmt.Errorf("%w: job %d is %s", ErrNotPending, id, job.Status)
	}

	patch := map[string]any{
		"status":    string(status),
		"error_msg": errMsg,
	}
	switch status {
	case models.StatusSent:
		patch["sent_at"] = timeutil.FormatUTC(timeutil.NowUTC())
	case models.StatusFailed:
		patch["failed_at"] = timeutil.FormatUTC(timeutil.NowUTC())
	}
	return q.store.Update(store.TableEmails, id, patch)
}

// ListByStatus returns jobs with the given status, ascending by schedule
// time. An empty status returns everything.
func (q *Queue) ListByStatus(status models.EmailStatus) ([]models.ScheduledEmail, error) {
	records, err := q.store.Query(store.TableEmails, nil)
	if err != nil {
		return nil, err
	}

	jobs := make([]models.ScheduledEmail, 0, len(records))
	for _, rec := range records {
		var job models.ScheduledEmail
		if err := rec.Decode(&job); err != nil {
			continue
		}
		if status != "" && job.Status != status {
			continue
		}
		jobs = append(jobs, job)
	}

	sort.Slice(jobs, func(i, j int) bool {
		if jobs[i].ScheduleTime != jobs[j].ScheduleTime {
			return jobs[i].ScheduleTime < jobs[j].ScheduleTime
		}
		return jobs[i].ID < jobs[j].ID
	})
	return jobs, nil
}

// Cancel deletes a pending job. Jobs already picked up keep their
// history; edits after creation are delete-and-recreate by design.
func (q *Queue) Cancel(id int64) error {
	var job models.ScheduledEmail
	if err := q.store.Get(store.TableEmails, id, &job); err != nil {
		return err
	}
	if job.Status != models.StatusPending {
		return fmt.Errorf("%w: job %d is %s", ErrNotPending, id, job.Status)
	}
	return q.store.Delete(store.TableEmails, id)
}

// EnqueueReminder stores a follow-up reminder, optionally linked to a
// scheduled email.
func (q *Queue) EnqueueReminder(due time.Time, note string, emailID int64) (int64, error) {
	rem := models.Reminder{
		DueTime: timeutil.FormatUTC(due),
		Note:    note,
		EmailID: emailID,
		Status:  models.ReminderPending,
	}
	return q.store.Insert(store.TableReminders, &rem)
}

// Upcoming returns pending reminders sorted by due time ascending.
func (q *Queue) Upcoming() ([]models.Reminder, error) {
	records, err := q.store.Query(store.TableReminders, nil)
	if err != nil {
		return nil, err
	}

	reminders := make([]models.Reminder, 0, len(records))
	for _, rec := range records {
		var rem models.Reminder
		if err := rec.Decode(&rem); err != nil {
			continue
		}
		if rem.Status != models.ReminderPending {
			continue
		}
		reminders = append(reminders, rem)
	}

	sort.Slice(reminders, func(i, j int) bool {
		if reminders[i].DueTime != reminders[j].DueTime {
			return reminders[i].DueTime < reminders[j].DueTime
		}
		return reminders[i].ID < reminders[j].ID
	})
	return reminders, nil
}

// Dismiss marks a reminder dismissed. Missing reminders return
// store.ErrNotFound; callers following an advisory link treat that as
// fine.
func (q *Queue) Dismiss(id int64) error {
	return q.store.Update(store.TableReminders, id, map[string]any{
		"status": string(models.ReminderDismissed),
	})
}
