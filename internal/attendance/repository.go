package attendance

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pipecast/backend/internal/models"
)

// PipelineEntry is one attendee in a webinar's pipeline view.
type PipelineEntry struct {
	AttendanceID uuid.UUID              `json:"attendance_id"`
	AttendeeID   uuid.UUID              `json:"attendee_id"`
	Email        string                 `json:"email"`
	FullName     string                 `json:"full_name"`
	Stage        models.AttendanceStage `json:"stage"`
	CallStatus   models.CallStatus      `json:"call_status"`
	AttendedAt   *time.Time             `json:"attended_at,omitempty"`
	RegisteredAt time.Time              `json:"registered_at"`
}

// Repository handles attendee and attendance persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an attendance repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// UpsertAttendee creates or reuses an attendee by email, refreshing the name.
func (r *Repository) UpsertAttendee(ctx context.Context, email, fullName string) (*models.Attendee, error) {
	const q = `INSERT INTO attendees (email, full_name)
		VALUES ($1, $2)
		ON CONFLICT (email) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = NOW()
		RETURNING id, email, full_name, stripe_customer_id, call_status, created_at, updated_at`
	var a models.Attendee
	err := r.pool.QueryRow(ctx, q, email, fullName).
		Scan(&a.ID, &a.Email, &a.FullName, &a.StripeCustomerID, &a.CallStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// EnsureAttendance creates the attendance record for (webinar, attendee) at
// stage registered, or returns the existing one. The unique constraint makes
// concurrent duplicate registrations land on a single row.
func (r *Repository) EnsureAttendance(ctx context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error) {
	const ins = `INSERT INTO attendance (webinar_id, attendee_id)
		VALUES ($1, $2)
		ON CONFLICT (webinar_id, attendee_id) DO NOTHING`
	if _, err := r.pool.Exec(ctx, ins, webinarID, attendeeID); err != nil {
		return nil, err
	}
	const sel = `SELECT id, webinar_id, attendee_id, stage, attended_at, created_at, updated_at
		FROM attendance WHERE webinar_id = $1 AND attendee_id = $2`
	var at models.Attendance
	err := r.pool.QueryRow(ctx, sel, webinarID, attendeeID).
		Scan(&at.ID, &at.WebinarID, &at.AttendeeID, &at.Stage, &at.AttendedAt, &at.CreatedAt, &at.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// GetAttendance returns the attendance record for (webinar, attendee).
func (r *Repository) GetAttendance(ctx context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error) {
	const q = `SELECT id, webinar_id, attendee_id, stage, attended_at, created_at, updated_at
		FROM attendance WHERE webinar_id = $1 AND attendee_id = $2`
	var at models.Attendance
	err := r.pool.QueryRow(ctx, q, webinarID, attendeeID).
		Scan(&at.ID, &at.WebinarID, &at.AttendeeID, &at.Stage, &at.AttendedAt, &at.CreatedAt, &at.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &at, nil
}

// ListByWebinar returns the webinar's pipeline entries in registration order.
func (r *Repository) ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]PipelineEntry, error) {
	const q = `SELECT at.id, a.id, a.email, a.full_name, at.stage, a.call_status, at.attended_at, at.created_at
		FROM attendance at
		INNER JOIN attendees a ON a.id = at.attendee_id
		WHERE at.webinar_id = $1
		ORDER BY at.created_at ASC`
	rows, err := r.pool.Query(ctx, q, webinarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []PipelineEntry
	for rows.Next() {
		var e PipelineEntry
		if err := rows.Scan(&e.AttendanceID, &e.AttendeeID, &e.Email, &e.FullName, &e.Stage, &e.CallStatus, &e.AttendedAt, &e.RegisteredAt); err != nil {
			return nil, err
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

// AdvanceStage moves an attendance record from one stage to another with a
// compare-and-set on the current stage. Entering attended also stamps
// attended_at once. Returns false when the row was not in the expected stage.
func (r *Repository) AdvanceStage(ctx context.Context, webinarID, attendeeID uuid.UUID, from, to models.AttendanceStage) (bool, error) {
	const q = `UPDATE attendance SET stage = $1,
			attended_at = CASE WHEN $1 = 'attended' AND attended_at IS NULL THEN NOW() ELSE attended_at END,
			updated_at = NOW()
		WHERE webinar_id = $2 AND attendee_id = $3 AND stage = $4`
	tag, err := r.pool.Exec(ctx, q, string(to), webinarID, attendeeID, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// UpdateCallStatus sets an attendee's follow-up call status.
func (r *Repository) UpdateCallStatus(ctx context.Context, attendeeID uuid.UUID, status models.CallStatus) error {
	const q = `UPDATE attendees SET call_status = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, string(status), attendeeID)
	return err
}

// SetAttendeeStripeCustomer attaches a payment-customer id to an attendee.
func (r *Repository) SetAttendeeStripeCustomer(ctx context.Context, attendeeID uuid.UUID, customerID string) error {
	const q = `UPDATE attendees SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, customerID, attendeeID)
	return err
}

// GetAttendeeByEmail returns an attendee by email.
func (r *Repository) GetAttendeeByEmail(ctx context.Context, email string) (*models.Attendee, error) {
	const q = `SELECT id, email, full_name, stripe_customer_id, call_status, created_at, updated_at
		FROM attendees WHERE email = $1`
	var a models.Attendee
	err := r.pool.QueryRow(ctx, q, email).
		Scan(&a.ID, &a.Email, &a.FullName, &a.StripeCustomerID, &a.CallStatus, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &a, nil
}
