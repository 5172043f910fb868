package mfa

import (
	"context"
	"crypto/rand"
	"encoding/base32"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pquerna/otp/totp"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/pipecast/backend/internal/models"
)

const (
	// MinBackupCodes is the smallest accepted backup-code set on enable.
	MinBackupCodes = 10
	// MinBackupCodeLength guards against weak user-supplied codes.
	MinBackupCodeLength = 8
)

// Store is the persistence surface the service needs; implemented by Repository.
type Store interface {
	GetSettings(ctx context.Context, userID uuid.UUID) (*models.MFASettings, error)
	Enable(ctx context.Context, userID uuid.UUID, secret string, codeHashes []string) error
	Disable(ctx context.Context, userID uuid.UUID) error
	ReplaceBackupCodes(ctx context.Context, userID uuid.UUID, codeHashes []string) error
	ListUnusedBackupCodes(ctx context.Context, userID uuid.UUID) ([]models.BackupCode, error)
	MarkBackupCodeUsed(ctx context.Context, codeID uuid.UUID) (bool, error)
	CountUnusedBackupCodes(ctx context.Context, userID uuid.UUID) (int, error)
	InsertAudit(ctx context.Context, entry models.MFAAuditLog) error
}

// Status is the read-only MFA state returned to callers. No secrets.
type Status struct {
	Enabled              bool       `json:"enabled"`
	EnabledAt            *time.Time `json:"enabled_at,omitempty"`
	BackupCodesRemaining int        `json:"backup_codes_remaining"`
}

// Service implements MFA management on top of a Store.
type Service struct {
	store           Store
	issuer          string
	backupCodeCount int
	logger          *zap.Logger
}

// NewService creates an MFA service. issuer is the name authenticator apps
// display for generated enrollments.
func NewService(store Store, issuer string, backupCodeCount int, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if backupCodeCount <= 0 {
		backupCodeCount = MinBackupCodes
	}
	return &Service{store: store, issuer: issuer, backupCodeCount: backupCodeCount, logger: logger}
}

// Enrollment is a freshly generated TOTP secret, its provisioning URL, and a
// starter backup-code set. Nothing is stored until the user confirms via
// Enable; the codes here are the only plaintext copy.
type Enrollment struct {
	Secret          string   `json:"secret"`
	ProvisioningURL string   `json:"provisioning_url"`
	BackupCodes     []string `json:"backup_codes"`
}

// Setup generates enrollment material for the given account email.
func (s *Service) Setup(email string) (*Enrollment, error) {
	key, err := totp.Generate(totp.GenerateOpts{Issuer: s.issuer, AccountName: email})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	codes := make([]string, 0, s.backupCodeCount)
	for i := 0; i < s.backupCodeCount; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		codes = append(codes, code)
	}
	return &Enrollment{Secret: key.Secret(), ProvisioningURL: key.URL(), BackupCodes: codes}, nil
}

// ValidateEnrollment checks an enable submission and returns every problem
// found, so the caller can surface them as one joined message.
func ValidateEnrollment(secret string, backupCodes []string) []string {
	var problems []string
	if strings.TrimSpace(secret) == "" {
		problems = append(problems, "secret must not be empty")
	}
	if len(backupCodes) < MinBackupCodes {
		problems = append(problems, fmt.Sprintf("at least %d backup codes are required", MinBackupCodes))
	}
	for _, code := range backupCodes {
		if len(strings.TrimSpace(code)) < MinBackupCodeLength {
			problems = append(problems, fmt.Sprintf("backup codes must be at least %d characters", MinBackupCodeLength))
			break
		}
	}
	return problems
}

// Enable validates and stores an enrollment. Validation problems come back
// as the first return value; the caller joins them into one message.
func (s *Service) Enable(ctx context.Context, userID uuid.UUID, secret string, backupCodes []string, correlationID string) ([]string, error) {
	if problems := ValidateEnrollment(secret, backupCodes); len(problems) > 0 {
		return problems, nil
	}

	hashes, err := hashCodes(backupCodes)
	if err != nil {
		return nil, fmt.Errorf("hash backup codes: %w", err)
	}
	if err := s.store.Enable(ctx, userID, strings.TrimSpace(secret), hashes); err != nil {
		return nil, fmt.Errorf("store enrollment: %w", err)
	}

	s.audit(ctx, userID, models.MFAActionEnabled, nil, correlationID)
	return nil, nil
}

// Disable removes the enrollment.
func (s *Service) Disable(ctx context.Context, userID uuid.UUID, correlationID string) error {
	if err := s.store.Disable(ctx, userID); err != nil {
		return fmt.Errorf("remove enrollment: %w", err)
	}
	s.audit(ctx, userID, models.MFAActionDisabled, nil, correlationID)
	return nil
}

// RegenerateBackupCodes replaces the stored code set and returns the new
// plaintext codes exactly once. The replacement commits before this function
// returns, so a code issued before regeneration can never validate after the
// caller has seen the response.
func (s *Service) RegenerateBackupCodes(ctx context.Context, userID uuid.UUID, correlationID string) ([]string, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if settings == nil || !settings.Enabled {
		return nil, ErrNotEnabled
	}

	codes := make([]string, 0, s.backupCodeCount)
	for i := 0; i < s.backupCodeCount; i++ {
		code, err := generateBackupCode()
		if err != nil {
			return nil, fmt.Errorf("generate code: %w", err)
		}
		codes = append(codes, code)
	}

	hashes, err := hashCodes(codes)
	if err != nil {
		return nil, fmt.Errorf("hash backup codes: %w", err)
	}
	if err := s.store.ReplaceBackupCodes(ctx, userID, hashes); err != nil {
		return nil, fmt.Errorf("replace backup codes: %w", err)
	}

	s.audit(ctx, userID, models.MFAActionCodesRegenerated, nil, correlationID)
	return codes, nil
}

// Status returns the read-only MFA state for a user.
func (s *Service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("load enrollment: %w", err)
	}
	if settings == nil {
		return &Status{Enabled: false}, nil
	}
	remaining, err := s.store.CountUnusedBackupCodes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count backup codes: %w", err)
	}
	enabledAt := settings.EnabledAt
	return &Status{Enabled: settings.Enabled, EnabledAt: &enabledAt, BackupCodesRemaining: remaining}, nil
}

// Enabled reports whether the user has an active enrollment.
func (s *Service) Enabled(ctx context.Context, userID uuid.UUID) (bool, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return false, err
	}
	return settings != nil && settings.Enabled, nil
}

// Verify checks a TOTP or backup code and audits the attempt. Audit write
// failures are logged and swallowed; they never fail the verification itself.
func (s *Service) Verify(ctx context.Context, userID uuid.UUID, code, method, correlationID string) (bool, error) {
	settings, err := s.store.GetSettings(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load enrollment: %w", err)
	}
	if settings == nil || !settings.Enabled {
		return false, ErrNotEnabled
	}

	var ok bool
	switch method {
	case models.MFAMethodTOTP:
		ok = totp.Validate(strings.TrimSpace(code), settings.Secret)
	case models.MFAMethodBackupCode:
		ok, err = s.consumeBackupCode(ctx, userID, code)
		if err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unknown verification method %q", method)
	}

	action := models.MFAActionVerifyFailure
	if ok {
		action = models.MFAActionVerifySuccess
	}
	s.audit(ctx, userID, action, &method, correlationID)
	return ok, nil
}

func (s *Service) consumeBackupCode(ctx context.Context, userID uuid.UUID, code string) (bool, error) {
	candidates, err := s.store.ListUnusedBackupCodes(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("load backup codes: %w", err)
	}
	trimmed := strings.TrimSpace(code)
	for _, candidate := range candidates {
		if bcrypt.CompareHashAndPassword([]byte(candidate.CodeHash), []byte(trimmed)) == nil {
			// Single use: the mark can lose a race with a concurrent attempt,
			// in which case this attempt fails.
			return s.store.MarkBackupCodeUsed(ctx, candidate.ID)
		}
	}
	return false, nil
}

func (s *Service) audit(ctx context.Context, userID uuid.UUID, action string, method *string, correlationID string) {
	err := s.store.InsertAudit(ctx, models.MFAAuditLog{
		UserID:        userID,
		Action:        action,
		Method:        method,
		CorrelationID: correlationID,
	})
	if err != nil {
		s.logger.Warn("mfa audit write failed", zap.Error(err),
			zap.String("user_id", userID.String()),
			zap.String("action", action),
			zap.String("correlation_id", correlationID))
	}
}

func hashCodes(codes []string) ([]string, error) {
	hashes := make([]string, 0, len(codes))
	for _, code := range codes {
		h, err := bcrypt.GenerateFromPassword([]byte(strings.TrimSpace(code)), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		hashes = append(hashes, string(h))
	}
	return hashes, nil
}

// generateBackupCode returns a code like "c7f3k2-9qm4pd": 12 random base32
// characters with a separator for readability.
func generateBackupCode() (string, error) {
	raw := make([]byte, 8)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	enc := strings.ToLower(base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(raw))
	return enc[:6] + "-" + enc[6:12], nil
}
