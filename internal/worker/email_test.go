package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/queue"
)

type fakeSender struct {
	fail  bool
	sends int
}

func (f *fakeSender) Send(_ context.Context, toAddress, toName, subject, htmlBody string) error {
	f.sends++
	if f.fail {
		return errors.New("smtp unreachable")
	}
	return nil
}

type fakeEmailLogger struct {
	entries []*models.EmailLog
}

func (f *fakeEmailLogger) Record(_ context.Context, entry *models.EmailLog) error {
	f.entries = append(f.entries, entry)
	return nil
}

func emailJob(t *testing.T, payload queue.EmailPayload) *queue.Job {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return &queue.Job{ID: uuid.NewString(), Type: queue.JobTypeEmail, Payload: raw}
}

func TestProcessRecordsSentEmail(t *testing.T) {
	sender := &fakeSender{}
	logs := &fakeEmailLogger{}
	p := NewEmailProcessor(sender, logs, nil, zap.NewNop())

	webinarID := uuid.New()
	attendanceID := uuid.New()
	job := emailJob(t, queue.EmailPayload{
		EmailType:      "confirmation",
		WebinarID:      webinarID,
		AttendanceID:   attendanceID,
		RecipientEmail: "sam@example.com",
		RecipientName:  "Sam Ortiz",
		Subject:        "You're registered",
		BodyHTML:       "<p>See you there</p>",
	})

	require.NoError(t, p.Process(context.Background(), job))
	require.Equal(t, 1, sender.sends)
	require.Len(t, logs.entries, 1)

	entry := logs.entries[0]
	require.Equal(t, models.EmailStatusSent, entry.Status)
	require.Equal(t, webinarID, entry.WebinarID)
	require.NotNil(t, entry.AttendanceID)
	require.Equal(t, attendanceID, *entry.AttendanceID)
	require.Equal(t, "sam@example.com", entry.Recipient)
	require.NotNil(t, entry.SentAt)
	require.Empty(t, entry.ErrorMessage)
}

func TestProcessRecordsFailedEmail(t *testing.T) {
	sender := &fakeSender{fail: true}
	logs := &fakeEmailLogger{}
	p := NewEmailProcessor(sender, logs, nil, zap.NewNop())

	job := emailJob(t, queue.EmailPayload{
		EmailType:      "confirmation",
		WebinarID:      uuid.New(),
		RecipientEmail: "sam@example.com",
		Subject:        "You're registered",
	})

	require.Error(t, p.Process(context.Background(), job))
	require.Len(t, logs.entries, 1)

	entry := logs.entries[0]
	require.Equal(t, models.EmailStatusFailed, entry.Status)
	require.Nil(t, entry.AttendanceID)
	require.Nil(t, entry.SentAt)
	require.Contains(t, entry.ErrorMessage, "smtp unreachable")
}

func TestProcessRejectsUnknownJobType(t *testing.T) {
	p := NewEmailProcessor(&fakeSender{}, &fakeEmailLogger{}, nil, zap.NewNop())
	err := p.Process(context.Background(), &queue.Job{ID: uuid.NewString(), Type: "reindex"})
	require.Error(t, err)
}
