package attendance

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/queue"
	"github.com/pipecast/backend/pkg/response"
)

// Store is the persistence surface the handler needs; implemented by Repository.
type Store interface {
	UpsertAttendee(ctx context.Context, email, fullName string) (*models.Attendee, error)
	EnsureAttendance(ctx context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error)
	GetAttendance(ctx context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error)
	ListByWebinar(ctx context.Context, webinarID uuid.UUID) ([]PipelineEntry, error)
	AdvanceStage(ctx context.Context, webinarID, attendeeID uuid.UUID, from, to models.AttendanceStage) (bool, error)
	UpdateCallStatus(ctx context.Context, attendeeID uuid.UUID, status models.CallStatus) error
}

// WebinarDirectory looks up webinars; implemented by webinars.Repository.
type WebinarDirectory interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
}

// EmailEnqueuer queues transactional email jobs; implemented by queue.Queue.
type EmailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload queue.EmailPayload) error
}

// RegisterRequest is the body for POST /webinars/:id/register.
type RegisterRequest struct {
	Email    string `json:"email" binding:"required,email"`
	FullName string `json:"full_name" binding:"required"`
}

// StageRequest is the body for POST /webinars/:id/attendees/:attendeeId/stage.
type StageRequest struct {
	Stage string `json:"stage" binding:"required"`
}

// CallStatusRequest is the body for PATCH /attendees/:id/call-status.
type CallStatusRequest struct {
	CallStatus string `json:"call_status" binding:"required,oneof=pending in_progress completed cancelled"`
}

// Handler handles attendee registration and pipeline HTTP endpoints.
type Handler struct {
	store    Store
	webinars WebinarDirectory
	emails   EmailEnqueuer
	logger   *zap.Logger
}

// NewHandler creates an attendance handler.
func NewHandler(store Store, webinars WebinarDirectory, emails EmailEnqueuer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, webinars: webinars, emails: emails, logger: logger}
}

// Register handles POST /webinars/:id/register. For a live webinar the same
// operation acts as "join now"; either way registration is idempotent per
// (email, webinar).
func (h *Handler) Register(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.webinars.GetByID(c.Request.Context(), webinarID)
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if w.Status == models.StatusEnded || w.Status == models.StatusCancelled {
		response.BadRequest(c, "registration is closed for this webinar")
		return
	}

	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	correlationID := c.GetString(response.ContextCorrelationID)

	attendee, err := h.store.UpsertAttendee(c.Request.Context(), req.Email, req.FullName)
	if err != nil {
		h.logger.Error("upsert attendee failed", zap.Error(err),
			zap.String("webinar_id", webinarID.String()), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to register")
		return
	}

	record, err := h.store.EnsureAttendance(c.Request.Context(), webinarID, attendee.ID)
	if err != nil {
		h.logger.Error("ensure attendance failed", zap.Error(err),
			zap.String("webinar_id", webinarID.String()), zap.String("correlation_id", correlationID))
		response.Internal(c, "failed to register")
		return
	}

	joinNow := w.Status == models.StatusLive
	h.enqueueConfirmation(c.Request.Context(), w, attendee, record, joinNow, correlationID)

	response.OK(c, gin.H{
		"attendee_id":   attendee.ID,
		"email":         attendee.Email,
		"full_name":     attendee.FullName,
		"attendance_id": record.ID,
		"stage":         record.Stage,
		"join_now":      joinNow,
		"join_link":     w.JoinLink(),
	})
}

// enqueueConfirmation queues the confirmation email. Queue failures never
// fail the registration.
func (h *Handler) enqueueConfirmation(ctx context.Context, w *models.Webinar, attendee *models.Attendee, record *models.Attendance, joinNow bool, correlationID string) {
	if h.emails == nil {
		return
	}
	emailType := "registration_confirmation"
	subject := fmt.Sprintf("You're registered: %s", w.Title)
	if joinNow {
		emailType = "join_now"
		subject = fmt.Sprintf("%s is live now", w.Title)
	}
	err := h.emails.EnqueueEmail(ctx, queue.EmailPayload{
		EmailType:      emailType,
		WebinarID:      w.ID,
		AttendanceID:   record.ID,
		RecipientEmail: attendee.Email,
		RecipientName:  attendee.FullName,
		Subject:        subject,
		BodyHTML:       fmt.Sprintf(`<p>Hi %s,</p><p>Your spot for <b>%s</b> is confirmed. Join here: <a href="%s">%s</a></p>`, attendee.FullName, w.Title, w.JoinLink(), w.JoinLink()),
	})
	if err != nil {
		h.logger.Warn("confirmation email enqueue failed", zap.Error(err),
			zap.String("webinar_id", w.ID.String()), zap.String("correlation_id", correlationID))
	}
}

// Pipeline handles GET /webinars/:id/pipeline (presenter only). All six
// stages are always present so the pipeline view renders stable columns.
func (h *Handler) Pipeline(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.webinars.GetByID(c.Request.Context(), webinarID)
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can view the pipeline")
		return
	}

	entries, err := h.store.ListByWebinar(c.Request.Context(), webinarID)
	if err != nil {
		response.Internal(c, "failed to load pipeline")
		return
	}
	response.OK(c, gin.H{
		"webinar_id": webinarID,
		"stages":     GroupByStage(entries, w.Tags),
	})
}

// AdvanceStage handles POST /webinars/:id/attendees/:attendeeId/stage
// (presenter only). Stages only move forward through the funnel.
func (h *Handler) AdvanceStage(c *gin.Context) {
	webinarID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	attendeeID, err := uuid.Parse(c.Param("attendeeId"))
	if err != nil {
		response.BadRequest(c, "invalid attendee id")
		return
	}
	var req StageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	to := models.AttendanceStage(req.Stage)
	if models.StageRank(to) < 0 {
		response.BadRequest(c, "unknown pipeline stage")
		return
	}

	w, err := h.webinars.GetByID(c.Request.Context(), webinarID)
	if err != nil || w == nil {
		response.NotFound(c, "webinar not found")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can move attendees")
		return
	}

	record, err := h.store.GetAttendance(c.Request.Context(), webinarID, attendeeID)
	if err != nil {
		response.NotFound(c, "attendee is not registered for this webinar")
		return
	}
	if models.StageRank(to) <= models.StageRank(record.Stage) {
		response.BadRequest(c, fmt.Sprintf("pipeline stage cannot move from %s back to %s", record.Stage, to))
		return
	}

	ok, err := h.store.AdvanceStage(c.Request.Context(), webinarID, attendeeID, record.Stage, to)
	if err != nil {
		response.Internal(c, "failed to update stage")
		return
	}
	if !ok {
		response.Conflict(c, "attendance stage changed concurrently, reload and retry")
		return
	}
	response.OK(c, gin.H{"attendee_id": attendeeID, "stage": to})
}

// UpdateCallStatus handles PATCH /attendees/:id/call-status.
func (h *Handler) UpdateCallStatus(c *gin.Context) {
	attendeeID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid attendee id")
		return
	}
	var req CallStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	if err := h.store.UpdateCallStatus(c.Request.Context(), attendeeID, models.CallStatus(req.CallStatus)); err != nil {
		response.Internal(c, "failed to update call status")
		return
	}
	response.OK(c, gin.H{"attendee_id": attendeeID, "call_status": req.CallStatus})
}
