package worker

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pipecast/backend/internal/models"
)

// LogRepository records the outcome of processed email jobs.
type LogRepository struct {
	pool *pgxpool.Pool
}

// NewLogRepository creates an email log repository.
func NewLogRepository(pool *pgxpool.Pool) *LogRepository {
	return &LogRepository{pool: pool}
}

// Record writes one email log row.
func (r *LogRepository) Record(ctx context.Context, entry *models.EmailLog) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO email_logs (webinar_id, attendance_id, email_type, recipient, subject, status, sent_at, error_message)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entry.WebinarID, entry.AttendanceID, entry.EmailType, entry.Recipient,
		entry.Subject, entry.Status, entry.SentAt, entry.ErrorMessage)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}
