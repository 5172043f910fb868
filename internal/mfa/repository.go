package mfa

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/pipecast/backend/internal/models"
)

// Repository handles MFA settings, backup codes, and audit persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an MFA repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetSettings returns the user's MFA enrollment, or nil when none exists.
func (r *Repository) GetSettings(ctx context.Context, userID uuid.UUID) (*models.MFASettings, error) {
	const q = `SELECT user_id, secret, enabled, enabled_at, updated_at FROM mfa_settings WHERE user_id = $1`
	var s models.MFASettings
	err := r.pool.QueryRow(ctx, q, userID).Scan(&s.UserID, &s.Secret, &s.Enabled, &s.EnabledAt, &s.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Enable stores the TOTP secret and backup code hashes in one transaction,
// replacing any prior enrollment.
func (r *Repository) Enable(ctx context.Context, userID uuid.UUID, secret string, codeHashes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	const upsert = `INSERT INTO mfa_settings (user_id, secret, enabled, enabled_at, updated_at)
		VALUES ($1, $2, TRUE, NOW(), NOW())
		ON CONFLICT (user_id) DO UPDATE SET secret = EXCLUDED.secret, enabled = TRUE, enabled_at = NOW(), updated_at = NOW()`
	if _, err := tx.Exec(ctx, upsert, userID, secret); err != nil {
		return err
	}
	if err := replaceCodes(ctx, tx, userID, codeHashes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Disable removes the enrollment and all backup codes in one transaction.
func (r *Repository) Disable(ctx context.Context, userID uuid.UUID) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `DELETE FROM mfa_settings WHERE user_id = $1`, userID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// ReplaceBackupCodes atomically swaps the stored code set. Once this commits,
// previously issued codes no longer validate.
func (r *Repository) ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, codeHashes []string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := replaceCodes(ctx, tx, userID, codeHashes); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func replaceCodes(ctx context.Context, tx pgx.Tx, userID uuid.UUID, codeHashes []string) error {
	if _, err := tx.Exec(ctx, `DELETE FROM mfa_backup_codes WHERE user_id = $1`, userID); err != nil {
		return err
	}
	for _, hash := range codeHashes {
		if _, err := tx.Exec(ctx, `INSERT INTO mfa_backup_codes (user_id, code_hash) VALUES ($1, $2)`, userID, hash); err != nil {
			return err
		}
	}
	return nil
}

// ListUnusedBackupCodes returns the user's unused backup codes.
func (r *Repository) ListUnusedBackupCodes(ctx context.Context, userID uuid.UUID) ([]models.BackupCode, error) {
	const q = `SELECT id, user_id, code_hash, used_at, created_at FROM mfa_backup_codes
		WHERE user_id = $1 AND used_at IS NULL ORDER BY created_at`
	rows, err := r.pool.Query(ctx, q, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.BackupCode
	for rows.Next() {
		var bc models.BackupCode
		if err := rows.Scan(&bc.ID, &bc.UserID, &bc.CodeHash, &bc.UsedAt, &bc.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, bc)
	}
	return list, rows.Err()
}

// MarkBackupCodeUsed consumes a backup code. Returns false when the code was
// already used (lost race with another verification).
func (r *Repository) MarkBackupCodeUsed(ctx context.Context, codeID uuid.UUID) (bool, error) {
	const q = `UPDATE mfa_backup_codes SET used_at = NOW() WHERE id = $1 AND used_at IS NULL`
	tag, err := r.pool.Exec(ctx, q, codeID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// CountUnusedBackupCodes returns how many codes remain.
func (r *Repository) CountUnusedBackupCodes(ctx context.Context, userID uuid.UUID) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM mfa_backup_codes WHERE user_id = $1 AND used_at IS NULL`, userID).Scan(&n)
	return n, err
}

// InsertAudit records an MFA audit entry.
func (r *Repository) InsertAudit(ctx context.Context, entry models.MFAAuditLog) error {
	const q = `INSERT INTO mfa_audit_logs (user_id, action, method, correlation_id) VALUES ($1, $2, $3, $4)`
	_, err := r.pool.Exec(ctx, q, entry.UserID, entry.Action, entry.Method, entry.CorrelationID)
	return err
}
