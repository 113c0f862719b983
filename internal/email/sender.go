package email

import (
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/gomail.v2"

	"MailMinder/internal/models"
)

// Sender sends one rendered email over SMTP with STARTTLS. Credentials
// are loaded once at process startup and reused for every send.
type Sender struct {
	Host     string
	Port     int
	From     string
	Password string
	Log      *zap.Logger
}

// Send delivers a fully-rendered job. The job carries its final subject
// and body; nothing is templated here.
func (s *Sender) Send(job *models.ScheduledEmail) error {
	d := gomail.NewDialer(s.Host, s.Port, s.From, s.Password)

	if err := d.DialAndSend(s.message(job)); err != nil {
		return fmt.Errorf("smtp send error: %w", err)
	}
	return nil
}

// message builds the wire message. Attachment paths that no longer
// exist are logged and skipped rather than failing the whole send.
func (s *Sender) message(job *models.ScheduledEmail) *gomail.Message {
	m := gomail.NewMessage()
	m.SetHeader("From", s.From)
	m.SetHeader("To", job.RecipientEmail)
	m.SetHeader("Subject", job.Subject)
	m.SetBody("text/plain", job.Body)

	for _, path := range job.Attachments {
		if _, err := os.Stat(path); err != nil {
			s.Log.Warn("attachment missing, skipped",
				zap.Int64("job_id", job.ID),
				zap.String("path", path),
			)
			continue
		}
		m.Attach(path)
	}
	return m
}
