package webinars

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pipecast/backend/internal/models"
)

// Repository handles webinar persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a webinar repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const webinarColumns = `id, title, description, starts_at, duration_minutes, ends_at, status, presenter_id,
	cta_label, cta_type, cta_target, coupon_code, coupon_expires_at, lock_chat,
	stripe_product_id, stripe_price_id, recording_url, recording_key, tags, created_at, updated_at, deleted_at`

func scanWebinar(row interface{ Scan(dest ...any) error }) (*models.Webinar, error) {
	var w models.Webinar
	err := row.Scan(&w.ID, &w.Title, &w.Description, &w.StartsAt, &w.DurationMinutes, &w.EndsAt, &w.Status,
		&w.PresenterID, &w.CTALabel, &w.CTAType, &w.CTATarget, &w.CouponCode, &w.CouponExpiresAt, &w.LockChat,
		&w.StripeProductID, &w.StripePriceID, &w.RecordingURL, &w.RecordingKey, &w.Tags,
		&w.CreatedAt, &w.UpdatedAt, &w.DeletedAt)
	if err != nil {
		return nil, err
	}
	return &w, nil
}

// Create inserts a new webinar with status scheduled.
func (r *Repository) Create(ctx context.Context, w *models.Webinar) error {
	const q = `INSERT INTO webinars (title, description, starts_at, duration_minutes, ends_at, presenter_id,
			cta_label, cta_type, cta_target, coupon_code, coupon_expires_at, lock_chat, tags)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id, status, created_at, updated_at`
	tags := w.Tags
	if tags == nil {
		tags = []string{}
	}
	return r.pool.QueryRow(ctx, q, w.Title, w.Description, w.StartsAt, w.DurationMinutes, w.EndsAt,
		w.PresenterID, w.CTALabel, string(w.CTAType), w.CTATarget, w.CouponCode, w.CouponExpiresAt, w.LockChat, tags).
		Scan(&w.ID, &w.Status, &w.CreatedAt, &w.UpdatedAt)
}

// GetByID returns a webinar by ID. Soft-deleted webinars are not found.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error) {
	const q = `SELECT ` + webinarColumns + ` FROM webinars WHERE id = $1 AND deleted_at IS NULL`
	return scanWebinar(r.pool.QueryRow(ctx, q, id))
}

// ListByPresenter returns a presenter's webinars, newest start first,
// optionally filtered by status.
func (r *Repository) ListByPresenter(ctx context.Context, presenterID uuid.UUID, status *models.WebinarStatus) ([]models.Webinar, error) {
	q := `SELECT ` + webinarColumns + ` FROM webinars WHERE presenter_id = $1 AND deleted_at IS NULL`
	args := []interface{}{presenterID}
	if status != nil {
		q += ` AND status = $2`
		args = append(args, string(*status))
	}
	rows, err := r.pool.Query(ctx, q+` ORDER BY starts_at DESC`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []models.Webinar
	for rows.Next() {
		w, err := scanWebinar(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *w)
	}
	return list, rows.Err()
}

// UpdateStatus performs a compare-and-set status change: the row is written
// only when its current status still equals from. Returns false when the row
// was not updated (missing, deleted, or status changed underneath).
func (r *Repository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.WebinarStatus) (bool, error) {
	const q = `UPDATE webinars SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = $3 AND deleted_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, string(to), id, string(from))
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// AdvanceDueToWaitingRoom flips all scheduled webinars whose start is within
// lead of now into waiting_room. Returns the ids moved.
func (r *Repository) AdvanceDueToWaitingRoom(ctx context.Context, lead time.Duration) ([]uuid.UUID, error) {
	const q = `UPDATE webinars SET status = 'waiting_room', updated_at = NOW()
		WHERE status = 'scheduled' AND starts_at <= NOW() + $1::interval AND deleted_at IS NULL
		RETURNING id`
	rows, err := r.pool.Query(ctx, q, lead.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// SoftDelete marks a webinar deleted without removing attendance history.
func (r *Repository) SoftDelete(ctx context.Context, id uuid.UUID) error {
	const q = `UPDATE webinars SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	_, err := r.pool.Exec(ctx, q, id)
	return err
}

// SetRecording stores the uploaded recording URL and object key.
func (r *Repository) SetRecording(ctx context.Context, id uuid.UUID, url, key string) error {
	const q = `UPDATE webinars SET recording_url = $1, recording_key = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, url, key, id)
	return err
}

// SetStripeProduct links the webinar to a payment product and price.
func (r *Repository) SetStripeProduct(ctx context.Context, id uuid.UUID, productID, priceID string) error {
	const q = `UPDATE webinars SET stripe_product_id = $1, stripe_price_id = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, productID, priceID, id)
	return err
}
