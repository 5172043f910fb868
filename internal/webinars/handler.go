package webinars

import (
	"context"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/internal/models"
	"github.com/pipecast/backend/pkg/response"
	"github.com/pipecast/backend/pkg/storage"
)

// StatusNotifier announces lifecycle changes to the webinar's live room.
type StatusNotifier interface {
	NotifyStatus(webinarID uuid.UUID, status models.WebinarStatus)
}

// Store is the persistence surface the handler needs.
type Store interface {
	Create(ctx context.Context, w *models.Webinar) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Webinar, error)
	ListByPresenter(ctx context.Context, presenterID uuid.UUID, status *models.WebinarStatus) ([]models.Webinar, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to models.WebinarStatus) (bool, error)
	SoftDelete(ctx context.Context, id uuid.UUID) error
	SetRecording(ctx context.Context, id uuid.UUID, url, key string) error
}

// CreateRequest is the body for POST /webinars. Date and time come in as the
// form submits them: a calendar date, a 12-hour clock time, and AM/PM.
type CreateRequest struct {
	Name            string     `json:"name"`
	Date            string     `json:"date"`     // 2006-01-02
	Time            string     `json:"time"`     // 03:04
	Meridiem        string     `json:"meridiem"` // AM or PM
	Description     string     `json:"description"`
	DurationMinutes int        `json:"duration_minutes"`
	Tags            []string   `json:"tags"`
	CTALabel        string     `json:"cta_label"`
	CTAType         string     `json:"cta_type"` // buy_now or book_a_call
	CTATarget       *string    `json:"cta_target"`
	CouponCode      *string    `json:"coupon_code"`
	CouponExpiresAt *time.Time `json:"coupon_expires_at"`
	LockChat        bool       `json:"lock_chat"`
}

// StatusRequest is the body for PATCH /webinars/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required"`
}

// Handler handles webinar HTTP endpoints.
type Handler struct {
	repo            Store
	cache           *ListCache
	s3              *storage.S3
	notifier        StatusNotifier
	defaultDuration int
	logger          *zap.Logger
}

// NewHandler creates a webinar handler.
func NewHandler(repo Store, cache *ListCache, s3 *storage.S3, notifier StatusNotifier, defaultDurationMinutes int, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultDurationMinutes <= 0 {
		defaultDurationMinutes = 60
	}
	return &Handler{repo: repo, cache: cache, s3: s3, notifier: notifier, defaultDuration: defaultDurationMinutes, logger: logger}
}

// Create handles POST /webinars.
func (h *Handler) Create(c *gin.Context) {
	var req CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}

	var missing []string
	if strings.TrimSpace(req.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(req.Date) == "" {
		missing = append(missing, "date")
	}
	if strings.TrimSpace(req.Time) == "" {
		missing = append(missing, "time")
	}
	if len(missing) > 0 {
		response.BadRequest(c, "missing required fields: "+strings.Join(missing, ", "))
		return
	}

	startsAt, err := CombineDateTime(req.Date, req.Time, req.Meridiem)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if !startsAt.After(time.Now()) {
		response.BadRequest(c, "webinar start time must be in the future")
		return
	}

	duration := req.DurationMinutes
	if duration <= 0 {
		duration = h.defaultDuration
	}

	ctaType := models.CTABookCall
	if req.CTAType == string(models.CTABuyNow) {
		ctaType = models.CTABuyNow
	}

	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w := &models.Webinar{
		Title:           req.Name,
		Description:     req.Description,
		StartsAt:        startsAt,
		DurationMinutes: duration,
		EndsAt:          startsAt.Add(time.Duration(duration) * time.Minute),
		PresenterID:     userID,
		CTALabel:        req.CTALabel,
		CTAType:         ctaType,
		CTATarget:       req.CTATarget,
		CouponCode:      req.CouponCode,
		CouponExpiresAt: req.CouponExpiresAt,
		LockChat:        req.LockChat,
		Tags:            req.Tags,
	}
	if err := h.repo.Create(c.Request.Context(), w); err != nil {
		h.logger.Error("create webinar failed", zap.Error(err),
			zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
		response.Internal(c, "failed to create webinar")
		return
	}

	h.cache.Invalidate(c.Request.Context(), userID)
	response.Created(c, gin.H{"webinar_id": w.ID, "link": w.DetailLink()})
}

// List handles GET /webinars: the caller's webinars, optionally ?status=.
// The unfiltered list is served from Redis when fresh.
func (h *Handler) List(c *gin.Context) {
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)

	var status *models.WebinarStatus
	if s := c.Query("status"); s != "" {
		st := models.WebinarStatus(s)
		if !ValidStatus(st) {
			response.BadRequest(c, "unknown status filter")
			return
		}
		status = &st
	}

	if status == nil {
		if cached, ok := h.cache.Get(c.Request.Context(), userID); ok {
			response.OK(c, cached)
			return
		}
	}

	list, err := h.repo.ListByPresenter(c.Request.Context(), userID, status)
	if err != nil {
		response.Internal(c, "failed to list webinars")
		return
	}
	if status == nil {
		h.cache.Set(c.Request.Context(), userID, list)
	}
	response.OK(c, list)
}

// GetByID handles GET /webinars/:id (public detail view).
func (h *Handler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	response.OK(c, w)
}

// ChangeStatus handles PATCH /webinars/:id/status. Lifecycle rules are
// enforced before any write; an illegal transition leaves the row untouched.
func (h *Handler) ChangeStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	to := models.WebinarStatus(req.Status)

	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}

	if err := CanTransition(w.Status, to); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	// The time-based scheduled -> waiting_room advance belongs to the worker,
	// which writes through the repository. Every request on this path needs
	// the presenter.
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can change this webinar's status")
		return
	}

	ok, err := h.repo.UpdateStatus(c.Request.Context(), id, w.Status, to)
	if err != nil {
		h.logger.Error("status update failed", zap.Error(err),
			zap.String("webinar_id", id.String()),
			zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
		response.Internal(c, "failed to update status")
		return
	}
	if !ok {
		response.Conflict(c, "webinar status changed concurrently, reload and retry")
		return
	}

	h.cache.Invalidate(c.Request.Context(), w.PresenterID)
	if h.notifier != nil {
		h.notifier.NotifyStatus(id, to)
	}
	response.OK(c, gin.H{"webinar_id": id, "status": to})
}

// Delete handles DELETE /webinars/:id (presenter only, soft delete).
func (h *Handler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can delete this webinar")
		return
	}
	if err := h.repo.SoftDelete(c.Request.Context(), id); err != nil {
		response.Internal(c, "failed to delete webinar")
		return
	}
	if w.RecordingKey != nil && h.s3 != nil {
		if err := h.s3.DeleteRecording(c.Request.Context(), *w.RecordingKey); err != nil {
			h.logger.Warn("recording cleanup failed", zap.Error(err), zap.String("webinar_id", id.String()))
		}
	}
	h.cache.Invalidate(c.Request.Context(), userID)
	response.NoContent(c)
}

// UploadRecording handles POST /webinars/:id/recording (multipart, presenter only).
func (h *Handler) UploadRecording(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can upload a recording")
		return
	}
	if h.s3 == nil {
		response.Upstream(c, "recording storage is not available")
		return
	}

	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.BadRequest(c, "file is required")
		return
	}
	defer file.Close()

	if header.Size > storage.MaxRecordingFileSize {
		response.BadRequest(c, "recording exceeds maximum size")
		return
	}
	contentType := header.Header.Get("Content-Type")
	if !storage.ValidateRecordingType(contentType, header.Filename) {
		response.BadRequest(c, "unsupported recording format")
		return
	}

	key := storage.RecordingKey(id.String(), header.Filename)
	url, err := h.s3.Upload(c.Request.Context(), key, contentType, file, header.Size)
	if err != nil {
		h.logger.Error("recording upload failed", zap.Error(err), zap.String("webinar_id", id.String()),
			zap.String("correlation_id", c.GetString(response.ContextCorrelationID)))
		response.Upstream(c, "failed to store recording, try again")
		return
	}
	if err := h.repo.SetRecording(c.Request.Context(), id, url, key); err != nil {
		response.Internal(c, "failed to save recording")
		return
	}
	response.OK(c, gin.H{"recording_url": url})
}

// RecordingDownloadURL handles GET /webinars/:id/recording (presenter only).
// It returns a short-lived pre-signed link instead of proxying the object.
func (h *Handler) RecordingDownloadURL(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid webinar id")
		return
	}
	userID := c.MustGet(middleware.ContextUserID).(uuid.UUID)
	w, err := h.repo.GetByID(c.Request.Context(), id)
	if err != nil {
		response.NotFound(c, "webinar not found")
		return
	}
	if w.PresenterID != userID {
		response.Forbidden(c, "only the presenter can download the recording")
		return
	}
	if w.RecordingKey == nil {
		response.NotFound(c, "no recording for this webinar")
		return
	}
	if h.s3 == nil {
		response.Upstream(c, "recording storage is not available")
		return
	}
	url, err := h.s3.GeneratePresignedDownloadURL(c.Request.Context(), *w.RecordingKey, h.s3.PresignExpire())
	if err != nil {
		response.Upstream(c, "failed to generate download link, try again")
		return
	}
	response.OK(c, gin.H{"download_url": url})
}
