package mfa

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/pkg/response"
)

// EnableRequest is the body for POST /mfa/enable.
type EnableRequest struct {
	Secret      string   `json:"secret"`
	BackupCodes []string `json:"backup_codes"`
}

// VerifyRequest is the body for POST /mfa/verify.
type VerifyRequest struct {
	Code   string `json:"code" binding:"required"`
	Method string `json:"method" binding:"required,oneof=totp backup_code"`
}

// Handler handles MFA management HTTP endpoints.
type Handler struct {
	service *Service
	logger  *zap.Logger
}

// NewHandler creates an MFA handler.
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// Setup handles GET /mfa/setup. It generates enrollment material the client
// confirms with a follow-up enable call; nothing is persisted here.
func (h *Handler) Setup(c *gin.Context) {
	email := c.GetString(middleware.ContextUserEmail)
	enrollment, err := h.service.Setup(email)
	if err != nil {
		h.logger.Error("mfa setup failed", zap.Error(err),
			zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
		response.Internal(c, "failed to generate enrollment")
		return
	}
	response.OK(c, enrollment)
}

// Enable handles POST /mfa/enable.
func (h *Handler) Enable(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req EnableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	correlationID := c.GetString(response.ContextCorrelationID)
	problems, err := h.service.Enable(c.Request.Context(), userID, req.Secret, req.BackupCodes, correlationID)
	if err != nil {
		h.logger.Error("mfa enable failed", zap.Error(err), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to enable multi-factor authentication")
		return
	}
	if len(problems) > 0 {
		response.BadRequest(c, strings.Join(problems, "; "))
		return
	}
	response.OK(c, gin.H{"enabled": true})
}

// Disable handles POST /mfa/disable.
func (h *Handler) Disable(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	correlationID := c.GetString(response.ContextCorrelationID)
	if err := h.service.Disable(c.Request.Context(), userID, correlationID); err != nil {
		h.logger.Error("mfa disable failed", zap.Error(err), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to disable multi-factor authentication")
		return
	}
	response.OK(c, gin.H{"enabled": false})
}

// RegenerateBackupCodes handles POST /mfa/backup-codes/regenerate. The new
// codes appear in this response only; they are not retrievable afterwards.
func (h *Handler) RegenerateBackupCodes(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	correlationID := c.GetString(response.ContextCorrelationID)

	codes, err := h.service.RegenerateBackupCodes(c.Request.Context(), userID, correlationID)
	if err != nil {
		if errors.Is(err, ErrNotEnabled) {
			response.BadRequest(c, ErrNotEnabled.Error())
			return
		}
		h.logger.Error("backup code regeneration failed", zap.Error(err), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to regenerate backup codes")
		return
	}
	response.OK(c, gin.H{"backup_codes": codes})
}

// GetStatus handles GET /mfa/status.
func (h *Handler) GetStatus(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	status, err := h.service.Status(c.Request.Context(), userID)
	if err != nil {
		response.Internal(c, "failed to load status")
		return
	}
	response.OK(c, status)
}

// Verify handles POST /mfa/verify.
func (h *Handler) Verify(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	var req VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	correlationID := c.GetString(response.ContextCorrelationID)
	ok, err := h.service.Verify(c.Request.Context(), userID, req.Code, req.Method, correlationID)
	if err != nil {
		if errors.Is(err, ErrNotEnabled) {
			response.BadRequest(c, ErrNotEnabled.Error())
			return
		}
		h.logger.Error("mfa verify failed", zap.Error(err), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to verify code")
		return
	}
	if !ok {
		response.Unauthorized(c, "invalid code")
		return
	}
	response.OK(c, gin.H{"verified": true})
}
