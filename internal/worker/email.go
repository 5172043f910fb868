package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/email"
	"github.com/pipecast/backend/pkg/queue"
)

// EmailLogger records delivery outcomes. Logging failures never fail the job.
type EmailLogger interface {
	Record(ctx context.Context, entry *models.EmailLog) error
}

// EmailProcessor drains the email queue, delivers through the configured
// sender and records each outcome.
type EmailProcessor struct {
	sender email.Sender
	logs   EmailLogger
	queue  *queue.Queue
	logger *zap.Logger
}

// NewEmailProcessor creates an email job processor.
func NewEmailProcessor(sender email.Sender, logs EmailLogger, q *queue.Queue, logger *zap.Logger) *EmailProcessor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmailProcessor{sender: sender, logs: logs, queue: q, logger: logger}
}

// Process executes one email job.
func (p *EmailProcessor) Process(ctx context.Context, job *queue.Job) error {
	if job.Type != queue.JobTypeEmail {
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal payload: %w", err)
	}

	entry := &models.EmailLog{
		WebinarID: payload.WebinarID,
		EmailType: payload.EmailType,
		Recipient: payload.RecipientEmail,
		Subject:   payload.Subject,
	}
	if payload.AttendanceID != uuid.Nil {
		entry.AttendanceID = &payload.AttendanceID
	}

	if err := p.sender.Send(ctx, payload.RecipientEmail, payload.RecipientName, payload.Subject, payload.BodyHTML); err != nil {
		entry.Status = models.EmailStatusFailed
		entry.ErrorMessage = err.Error()
		if logErr := p.logs.Record(ctx, entry); logErr != nil {
			p.logger.Error("email log write failed", zap.Error(logErr), zap.String("job_id", job.ID))
		}
		return fmt.Errorf("send email: %w", err)
	}

	now := time.Now()
	entry.Status = models.EmailStatusSent
	entry.SentAt = &now
	if err := p.logs.Record(ctx, entry); err != nil {
		p.logger.Error("email log write failed", zap.Error(err), zap.String("job_id", job.ID))
	}
	p.logger.Info("email delivered",
		zap.String("job_id", job.ID),
		zap.String("email_type", payload.EmailType),
		zap.String("recipient", payload.RecipientEmail))
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *EmailProcessor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("email worker stopping")
			return
		default:
		}

		job, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
		}
	}
}
