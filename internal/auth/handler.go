package auth

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/response"
	"github.com/pipecast/backend/pkg/utils"
)

// SecondFactor verifies an MFA code on behalf of the login flow.
type SecondFactor interface {
	Enabled(ctx context.Context, userID uuid.UUID) (bool, error)
	Verify(ctx context.Context, userID uuid.UUID, code, method, correlationID string) (bool, error)
}

// RegisterRequest is the body for POST /auth/register.
type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=6"`
	FullName  string `json:"full_name" binding:"required"`
	AvatarURL string `json:"avatar_url"`
}

// LoginRequest is the body for POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// MFALoginRequest is the body for POST /auth/login/mfa.
type MFALoginRequest struct {
	Token  string `json:"token" binding:"required"`
	Code   string `json:"code" binding:"required"`
	Method string `json:"method" binding:"required,oneof=totp backup_code"`
}

// TokenResponse is the auth response with JWT.
type TokenResponse struct {
	Token string            `json:"token"`
	User  models.UserPublic `json:"user"`
}

// Handler handles auth HTTP endpoints.
type Handler struct {
	repo         *Repository
	jwt          *JWTService
	secondFactor SecondFactor
	logger       *zap.Logger
}

// NewHandler creates an auth handler.
func NewHandler(repo *Repository, jwt *JWTService, secondFactor SecondFactor, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{repo: repo, jwt: jwt, secondFactor: secondFactor, logger: logger}
}

// Register handles POST /auth/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	if _, err := h.repo.GetByEmail(c.Request.Context(), req.Email); err == nil {
		response.BadRequest(c, "email already registered")
		return
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		response.Internal(c, "failed to hash password")
		return
	}

	user, err := h.repo.Create(c.Request.Context(), req.Email, hash, req.FullName, req.AvatarURL, models.RolePresenter)
	if err != nil {
		h.logger.Error("create user failed", zap.Error(err),
			zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
		response.Internal(c, "failed to create user")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.Created(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Login handles POST /auth/login. When the account has MFA enabled the
// response carries a short-lived pending token instead of a session.
func (h *Handler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	user, err := h.repo.GetByEmail(c.Request.Context(), req.Email)
	if err != nil {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		response.Unauthorized(c, "invalid email or password")
		return
	}

	if h.secondFactor != nil {
		enabled, err := h.secondFactor.Enabled(c.Request.Context(), user.ID)
		if err != nil {
			h.logger.Error("mfa status lookup failed", zap.Error(err),
				zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
			response.Internal(c, "failed to check account security")
			return
		}
		if enabled {
			pending, err := h.jwt.GeneratePending(user.ID, user.Email)
			if err != nil {
				response.Internal(c, "failed to generate token")
				return
			}
			response.OK(c, gin.H{"mfa_required": true, "token": pending})
			return
		}
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// LoginMFA handles POST /auth/login/mfa: completes a pending login with a
// TOTP or backup code.
func (h *Handler) LoginMFA(c *gin.Context) {
	var req MFALoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	claims, err := h.jwt.Validate(req.Token)
	if err != nil || claims.Role != RoleMFAPending {
		response.Unauthorized(c, "invalid or expired login session")
		return
	}

	correlationID := c.GetString(response.ContextCorrelationID)
	ok, err := h.secondFactor.Verify(c.Request.Context(), claims.UserID, req.Code, req.Method, correlationID)
	if err != nil {
		h.logger.Error("mfa verify failed", zap.Error(err), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to verify code")
		return
	}
	if !ok {
		response.Unauthorized(c, "invalid code")
		return
	}

	user, err := h.repo.GetByID(c.Request.Context(), claims.UserID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}

	token, err := h.jwt.Generate(user.ID, user.Email, string(user.Role))
	if err != nil {
		response.Internal(c, "failed to generate token")
		return
	}

	response.OK(c, TokenResponse{Token: token, User: user.ToPublic()})
}

// Me handles GET /auth/me.
func (h *Handler) Me(c *gin.Context) {
	userID := c.MustGet(ContextUserID).(uuid.UUID)
	user, err := h.repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		response.NotFound(c, "user not found")
		return
	}
	response.OK(c, user.ToPublic())
}
