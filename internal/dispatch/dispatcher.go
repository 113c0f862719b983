package dispatch

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"MailMinder/internal/metrics"
	"MailMinder/internal/models"
	"MailMinder/internal/schedule"
	"MailMinder/internal/store"
)

// Transport sends one rendered email and reports transport-level
// failure (auth, network, malformed address).
type Transport interface {
	Send(job *models.ScheduledEmail) error
}

// Dispatcher is the background send loop: idle between ticks, then one
// pass over the currently-due jobs. It is the only writer of job status
// transitions.
type Dispatcher struct {
	Queue     *schedule.Queue
	Transport Transport
	Limiter   *rate.Limiter
	Log       *zap.Logger
	Interval  time.Duration
}

// Run polls until ctx is cancelled. It never returns early: a bad tick
// is logged and retried on the next one.
func (d *Dispatcher) Run(ctx context.Context) {
	ticker := time.NewTicker(d.Interval)
	defer ticker.Stop()

	d.Log.Info("dispatcher started", zap.Duration("poll_interval", d.Interval))

	for {
		select {
		case <-ctx.Done():
			d.Log.Info("dispatcher shutting down")
			return
		case <-ticker.C:
			d.Tick(ctx, time.Now().UTC())
		}
	}
}

// Tick processes every job due at now, earliest first. One job's
// failure never aborts the batch.
func (d *Dispatcher) Tick(ctx context.Context, now time.Time) {
	started := time.Now()
	defer func() {
		metrics.PollDuration.Observe(time.Since(started).Seconds())
	}()

	jobs, err := d.Queue.DueJobs(now)
	if err != nil {
		d.Log.Error("due jobs scan failed", zap.Error(err))
		return // retried next tick
	}
	if len(jobs) == 0 {
		return
	}

	d.Log.Info("processing due jobs", zap.Int("count", len(jobs)))

	for i := range jobs {
		if ctx.Err() != nil {
			return
		}
		d.dispatchOne(ctx, &jobs[i])
	}
}

func (d *Dispatcher) dispatchOne(ctx context.Context, job *models.ScheduledEmail) {
	if d.Limiter != nil {
		if err := d.Limiter.Wait(ctx); err != nil {
			d.Log.Warn("rate limiter stopped by context", zap.Error(err))
			return
		}
	}

	if err := d.Transport.Send(job); err != nil {
		d.Log.Error("email send failed",
			zap.Int64("job_id", job.ID),
			zap.String("to", job.RecipientEmail),
			zap.Error(err),
		)

		// Failed jobs are terminal: no automatic re-queue, a retry
		// requires the user to recreate the job.
		if markErr := d.markWithRetry(job.ID, models.StatusFailed, err.Error()); markErr != nil {
			d.Log.Error("failed to mark job failed",
				zap.Int64("job_id", job.ID),
				zap.Error(markErr),
			)
		}

		metrics.EmailFailures.Inc()
		return
	}

	// The mark must land before the next job so a store hiccup after a
	// successful send cannot turn into a duplicate send next tick. The
	// mark is retried on its own; the send is never repeated.
	if err := d.markWithRetry(job.ID, models.StatusSent, ""); err != nil {
		d.Log.Error("failed to mark job sent",
			zap.Int64("job_id", job.ID),
			zap.Error(err),
		)
		return
	}

	d.Log.Info("email sent",
		zap.Int64("job_id", job.ID),
		zap.String("to", job.RecipientEmail),
	)
	metrics.EmailsSent.Inc()

	d.dismissLinkedReminder(job)
}

func (d *Dispatcher) markWithRetry(id int64, status models.EmailStatus, errMsg string) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxElapsedTime = 10 * time.Second

	return backoff.Retry(func() error {
		err := d.Queue.Mark(id, status, errMsg)
		if errors.Is(err, schedule.ErrNotPending) || errors.Is(err, store.ErrNotFound) {
			return backoff.Permanent(err)
		}
		return err
	}, b)
}

// dismissLinkedReminder clears the job's follow-up reminder if one is
// linked. The link is advisory: a missing reminder is not an error.
func (d *Dispatcher) dismissLinkedReminder(job *models.ScheduledEmail) {
	if job.ReminderID == 0 {
		return
	}

	err := d.Queue.Dismiss(job.ReminderID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		d.Log.Warn("failed to dismiss linked reminder",
			zap.Int64("job_id", job.ID),
			zap.Int64("reminder_id", job.ReminderID),
			zap.Error(err),
		)
		return
	}
	metrics.RemindersDismissed.Inc()
}
