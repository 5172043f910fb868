package auth

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pipecast/backend/internal/models"
)

// Repository handles user persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an auth repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const userColumns = `id, email, password_hash, full_name, COALESCE(avatar_url,''), role,
	stripe_customer_id, stripe_connect_id, subscription, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Email, &u.Password, &u.FullName, &u.AvatarURL, &u.Role,
		&u.StripeCustomerID, &u.StripeConnectID, &u.Subscription, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetByID returns a user by ID.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

// GetByEmail returns a user by email.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email = $1`, email))
}

// Create inserts a new user.
func (r *Repository) Create(ctx context.Context, email, passwordHash, fullName, avatarURL string, role models.Role) (*models.User, error) {
	const q = `INSERT INTO users (email, password_hash, full_name, avatar_url, role)
		VALUES ($1, $2, $3, NULLIF($4,''), $5)
		RETURNING ` + userColumns
	return scanUser(r.pool.QueryRow(ctx, q, email, passwordHash, fullName, avatarURL, string(role)))
}

// SetStripeCustomerID attaches a payment-customer id to the user.
func (r *Repository) SetStripeCustomerID(ctx context.Context, userID uuid.UUID, customerID string) error {
	const q = `UPDATE users SET stripe_customer_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, customerID, userID)
	return err
}

// SetStripeConnectID attaches a connected-account id to the user.
func (r *Repository) SetStripeConnectID(ctx context.Context, userID uuid.UUID, connectID string) error {
	const q = `UPDATE users SET stripe_connect_id = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, connectID, userID)
	return err
}

// SetSubscription updates the active-subscription flag.
func (r *Repository) SetSubscription(ctx context.Context, userID uuid.UUID, active bool) error {
	const q = `UPDATE users SET subscription = $1, updated_at = NOW() WHERE id = $2`
	_, err := r.pool.Exec(ctx, q, active, userID)
	return err
}
