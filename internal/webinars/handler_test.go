package webinars

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipecast/backend/internal/middleware"
	"github.com/pipecast/backend/internal/models"
)

type memStore struct {
	webinars map[uuid.UUID]*models.Webinar
}

func newMemStore() *memStore {
	return &memStore{webinars: make(map[uuid.UUID]*models.Webinar)}
}

func (s *memStore) Create(_ context.Context, w *models.Webinar) error {
	w.ID = uuid.New()
	w.Status = models.StatusScheduled
	w.CreatedAt = time.Now()
	w.UpdatedAt = w.CreatedAt
	s.webinars[w.ID] = w
	return nil
}

func (s *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	w, ok := s.webinars[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return w, nil
}

func (s *memStore) ListByPresenter(_ context.Context, presenterID uuid.UUID, status *models.WebinarStatus) ([]models.Webinar, error) {
	var list []models.Webinar
	for _, w := range s.webinars {
		if w.PresenterID != presenterID {
			continue
		}
		if status != nil && w.Status != *status {
			continue
		}
		list = append(list, *w)
	}
	return list, nil
}

func (s *memStore) UpdateStatus(_ context.Context, id uuid.UUID, from, to models.WebinarStatus) (bool, error) {
	w, ok := s.webinars[id]
	if !ok || w.Status != from {
		return false, nil
	}
	w.Status = to
	return true, nil
}

func (s *memStore) SoftDelete(_ context.Context, id uuid.UUID) error {
	delete(s.webinars, id)
	return nil
}

func (s *memStore) SetRecording(_ context.Context, id uuid.UUID, url, key string) error {
	w, ok := s.webinars[id]
	if !ok {
		return errors.New("no rows")
	}
	w.RecordingURL = &url
	w.RecordingKey = &key
	return nil
}

type memNotifier struct {
	calls []models.WebinarStatus
}

func (n *memNotifier) NotifyStatus(_ uuid.UUID, status models.WebinarStatus) {
	n.calls = append(n.calls, status)
}

func newTestRouter(h *Handler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	authed.POST("/webinars", h.Create)
	authed.PATCH("/webinars/:id/status", h.ChangeStatus)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func createBody(date string) gin.H {
	return gin.H{
		"name":     "Scaling Your Agency",
		"date":     date,
		"time":     "03:30",
		"meridiem": "PM",
	}
}

func TestCreatePersistsScheduled(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, nil, nil, nil, 60, zap.NewNop())
	userID := uuid.New()
	r := newTestRouter(h, userID)

	tomorrow := time.Now().Add(48 * time.Hour).Format("2006-01-02")
	rec := doJSON(t, r, http.MethodPost, "/webinars", createBody(tomorrow))
	require.Equal(t, http.StatusCreated, rec.Code)

	require.Len(t, store.webinars, 1)
	for _, w := range store.webinars {
		require.Equal(t, models.StatusScheduled, w.Status)
		require.Equal(t, userID, w.PresenterID)
		require.Equal(t, 60, w.DurationMinutes)
		require.Equal(t, w.StartsAt.Add(60*time.Minute), w.EndsAt)
		require.Equal(t, 15, w.StartsAt.Hour())
		require.Equal(t, 30, w.StartsAt.Minute())
	}
}

func TestCreateRejectsPastStart(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, nil, nil, nil, 60, zap.NewNop())
	r := newTestRouter(h, uuid.New())

	yesterday := time.Now().Add(-24 * time.Hour).Format("2006-01-02")
	rec := doJSON(t, r, http.MethodPost, "/webinars", createBody(yesterday))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "must be in the future")
	require.Empty(t, store.webinars)
}

func TestCreateRejectsMissingFields(t *testing.T) {
	store := newMemStore()
	h := NewHandler(store, nil, nil, nil, 60, zap.NewNop())
	r := newTestRouter(h, uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/webinars", gin.H{"name": "No Schedule"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "date")
	require.Contains(t, rec.Body.String(), "time")
}

func TestChangeStatusRequiresPresenter(t *testing.T) {
	store := newMemStore()
	presenterID := uuid.New()
	w := &models.Webinar{PresenterID: presenterID}
	require.NoError(t, store.Create(context.Background(), w))

	notifier := &memNotifier{}
	h := NewHandler(store, nil, nil, notifier, 60, zap.NewNop())
	r := newTestRouter(h, uuid.New()) // not the presenter

	rec := doJSON(t, r, http.MethodPatch, "/webinars/"+w.ID.String()+"/status",
		gin.H{"status": "waiting_room"})
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Equal(t, models.StatusScheduled, store.webinars[w.ID].Status)
	require.Empty(t, notifier.calls)
}

func TestChangeStatusPresenterMovesAndNotifies(t *testing.T) {
	store := newMemStore()
	presenterID := uuid.New()
	w := &models.Webinar{PresenterID: presenterID}
	require.NoError(t, store.Create(context.Background(), w))

	notifier := &memNotifier{}
	h := NewHandler(store, nil, nil, notifier, 60, zap.NewNop())
	r := newTestRouter(h, presenterID)

	rec := doJSON(t, r, http.MethodPatch, "/webinars/"+w.ID.String()+"/status",
		gin.H{"status": "waiting_room"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.StatusWaitingRoom, store.webinars[w.ID].Status)
	require.Equal(t, []models.WebinarStatus{models.StatusWaitingRoom}, notifier.calls)
}

func TestChangeStatusRejectsIllegalTransition(t *testing.T) {
	store := newMemStore()
	presenterID := uuid.New()
	w := &models.Webinar{PresenterID: presenterID}
	require.NoError(t, store.Create(context.Background(), w))

	h := NewHandler(store, nil, nil, nil, 60, zap.NewNop())
	r := newTestRouter(h, presenterID)

	rec := doJSON(t, r, http.MethodPatch, "/webinars/"+w.ID.String()+"/status",
		gin.H{"status": "live"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Equal(t, models.StatusScheduled, store.webinars[w.ID].Status)
}
