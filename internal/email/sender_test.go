package email

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"MailMinder/internal/models"
)

func TestMessageHeaders(t *testing.T) {
	s := &Sender{
		Host: "smtp.example.com",
		Port: 587,
		From: "jane@example.com",
		Log:  zap.NewNop(),
	}
	job := &models.ScheduledEmail{
		RecipientEmail: "bob@x.com",
		Subject:        "Hi Bob",
		Body:           "Body text",
	}

	m := s.message(job)
	assert.Equal(t, []string{"jane@example.com"}, m.GetHeader("From"))
	assert.Equal(t, []string{"bob@x.com"}, m.GetHeader("To"))
	assert.Equal(t, []string{"Hi Bob"}, m.GetHeader("Subject"))
}

func TestMessageSkipsMissingAttachmentsWithLog(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)

	dir := t.TempDir()
	present := filepath.Join(dir, "report.pdf")
	require.NoError(t, os.WriteFile(present, []byte("pdf"), 0o644))
	gone := filepath.Join(dir, "deleted.pdf")

	s := &Sender{
		Host: "smtp.example.com",
		Port: 587,
		From: "jane@example.com",
		Log:  zap.New(core),
	}
	job := &models.ScheduledEmail{
		ID:             7,
		RecipientEmail: "bob@x.com",
		Subject:        "Hi",
		Body:           "Body",
		Attachments:    []string{present, gone},
	}

	m := s.message(job)
	require.NotNil(t, m)

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "attachment missing, skipped", entries[0].Message)
	assert.Equal(t, gone, entries[0].ContextMap()["path"])
	assert.Equal(t, int64(7), entries[0].ContextMap()["job_id"])
}
