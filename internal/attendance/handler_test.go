package attendance

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
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
	"github.com/pipecast/backend/pkg/queue"
)

type memStore struct {
	attendees  map[string]*models.Attendee
	attendance map[string]*models.Attendance
}

func newMemStore() *memStore {
	return &memStore{
		attendees:  make(map[string]*models.Attendee),
		attendance: make(map[string]*models.Attendance),
	}
}

func attKey(webinarID, attendeeID uuid.UUID) string {
	return webinarID.String() + "/" + attendeeID.String()
}

func (s *memStore) UpsertAttendee(_ context.Context, email, fullName string) (*models.Attendee, error) {
	if a, ok := s.attendees[email]; ok {
		a.FullName = fullName
		return a, nil
	}
	a := &models.Attendee{ID: uuid.New(), Email: email, FullName: fullName, CallStatus: models.CallPending}
	s.attendees[email] = a
	return a, nil
}

func (s *memStore) EnsureAttendance(_ context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error) {
	key := attKey(webinarID, attendeeID)
	if rec, ok := s.attendance[key]; ok {
		return rec, nil
	}
	rec := &models.Attendance{
		ID:         uuid.New(),
		WebinarID:  webinarID,
		AttendeeID: attendeeID,
		Stage:      models.StageRegistered,
		CreatedAt:  time.Now(),
	}
	s.attendance[key] = rec
	return rec, nil
}

func (s *memStore) GetAttendance(_ context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error) {
	rec, ok := s.attendance[attKey(webinarID, attendeeID)]
	if !ok {
		return nil, errors.New("no rows")
	}
	return rec, nil
}

func (s *memStore) ListByWebinar(_ context.Context, webinarID uuid.UUID) ([]PipelineEntry, error) {
	var entries []PipelineEntry
	for _, rec := range s.attendance {
		if rec.WebinarID == webinarID {
			entries = append(entries, PipelineEntry{
				AttendanceID: rec.ID,
				AttendeeID:   rec.AttendeeID,
				Stage:        rec.Stage,
				RegisteredAt: rec.CreatedAt,
			})
		}
	}
	return entries, nil
}

func (s *memStore) AdvanceStage(_ context.Context, webinarID, attendeeID uuid.UUID, from, to models.AttendanceStage) (bool, error) {
	rec, ok := s.attendance[attKey(webinarID, attendeeID)]
	if !ok || rec.Stage != from {
		return false, nil
	}
	rec.Stage = to
	return true, nil
}

func (s *memStore) UpdateCallStatus(_ context.Context, attendeeID uuid.UUID, status models.CallStatus) error {
	for _, a := range s.attendees {
		if a.ID == attendeeID {
			a.CallStatus = status
			return nil
		}
	}
	return errors.New("no rows")
}

type memDirectory struct {
	webinars map[uuid.UUID]*models.Webinar
}

func (d *memDirectory) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	w, ok := d.webinars[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return w, nil
}

type memEnqueuer struct {
	payloads []queue.EmailPayload
	fail     bool
}

func (e *memEnqueuer) EnqueueEmail(_ context.Context, payload queue.EmailPayload) error {
	if e.fail {
		return errors.New("queue unavailable")
	}
	e.payloads = append(e.payloads, payload)
	return nil
}

func newTestRouter(h *Handler, userID uuid.UUID) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/webinars/:id/register", h.Register)

	authed := r.Group("")
	authed.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, userID)
		c.Next()
	})
	authed.GET("/webinars/:id/pipeline", h.Pipeline)
	authed.POST("/webinars/:id/attendees/:attendeeId/stage", h.AdvanceStage)
	authed.PATCH("/attendees/:id/call-status", h.UpdateCallStatus)
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

func testWebinar(presenterID uuid.UUID, status models.WebinarStatus) *models.Webinar {
	return &models.Webinar{
		ID:          uuid.New(),
		Title:       "Scaling Your Agency",
		Status:      status,
		PresenterID: presenterID,
		Tags:        []string{"agency"},
	}
}

func TestRegisterIsIdempotent(t *testing.T) {
	presenterID := uuid.New()
	w := testWebinar(presenterID, models.StatusScheduled)
	store := newMemStore()
	emails := &memEnqueuer{}
	h := NewHandler(store, &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, emails, zap.NewNop())
	r := newTestRouter(h, presenterID)

	body := gin.H{"email": "sam@example.com", "full_name": "Sam Ortiz"}
	first := doJSON(t, r, http.MethodPost, "/webinars/"+w.ID.String()+"/register", body)
	require.Equal(t, http.StatusOK, first.Code)

	second := doJSON(t, r, http.MethodPost, "/webinars/"+w.ID.String()+"/register", body)
	require.Equal(t, http.StatusOK, second.Code)

	require.Len(t, store.attendees, 1)
	require.Len(t, store.attendance, 1)

	var firstResp, secondResp struct {
		Data struct {
			AttendanceID uuid.UUID `json:"attendance_id"`
			JoinNow      bool      `json:"join_now"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &firstResp))
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &secondResp))
	require.Equal(t, firstResp.Data.AttendanceID, secondResp.Data.AttendanceID)
	require.False(t, firstResp.Data.JoinNow)
}

func TestRegisterUnknownWebinar(t *testing.T) {
	h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{}}, &memEnqueuer{}, zap.NewNop())
	r := newTestRouter(h, uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/webinars/"+uuid.NewString()+"/register",
		gin.H{"email": "sam@example.com", "full_name": "Sam Ortiz"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRegisterClosedWebinar(t *testing.T) {
	for _, status := range []models.WebinarStatus{models.StatusEnded, models.StatusCancelled} {
		w := testWebinar(uuid.New(), status)
		h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, &memEnqueuer{}, zap.NewNop())
		r := newTestRouter(h, uuid.New())

		rec := doJSON(t, r, http.MethodPost, "/webinars/"+w.ID.String()+"/register",
			gin.H{"email": "sam@example.com", "full_name": "Sam Ortiz"})
		require.Equal(t, http.StatusBadRequest, rec.Code, "status %s", status)
	}
}

func TestRegisterLiveWebinarJoinsNow(t *testing.T) {
	w := testWebinar(uuid.New(), models.StatusLive)
	emails := &memEnqueuer{}
	h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, emails, zap.NewNop())
	r := newTestRouter(h, uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/webinars/"+w.ID.String()+"/register",
		gin.H{"email": "sam@example.com", "full_name": "Sam Ortiz"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Data struct {
			JoinNow  bool   `json:"join_now"`
			JoinLink string `json:"join_link"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.True(t, resp.Data.JoinNow)
	require.Equal(t, "/live-webinar/"+w.ID.String(), resp.Data.JoinLink)

	require.Len(t, emails.payloads, 1)
	require.Equal(t, "join_now", emails.payloads[0].EmailType)
}

func TestRegisterSucceedsWhenEmailQueueDown(t *testing.T) {
	w := testWebinar(uuid.New(), models.StatusScheduled)
	h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, &memEnqueuer{fail: true}, zap.NewNop())
	r := newTestRouter(h, uuid.New())

	rec := doJSON(t, r, http.MethodPost, "/webinars/"+w.ID.String()+"/register",
		gin.H{"email": "sam@example.com", "full_name": "Sam Ortiz"})
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestPipelineForbiddenForNonPresenter(t *testing.T) {
	w := testWebinar(uuid.New(), models.StatusScheduled)
	h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, &memEnqueuer{}, zap.NewNop())
	r := newTestRouter(h, uuid.New()) // not the presenter

	rec := doJSON(t, r, http.MethodGet, "/webinars/"+w.ID.String()+"/pipeline", nil)
	require.Equal(t, http.StatusForbidden, rec.Code)
}

func TestAdvanceStage(t *testing.T) {
	presenterID := uuid.New()
	w := testWebinar(presenterID, models.StatusLive)
	store := newMemStore()
	h := NewHandler(store, &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, &memEnqueuer{}, zap.NewNop())
	r := newTestRouter(h, presenterID)

	attendee, err := store.UpsertAttendee(context.Background(), "sam@example.com", "Sam Ortiz")
	require.NoError(t, err)
	_, err = store.EnsureAttendance(context.Background(), w.ID, attendee.ID)
	require.NoError(t, err)

	path := fmt.Sprintf("/webinars/%s/attendees/%s/stage", w.ID, attendee.ID)

	rec := doJSON(t, r, http.MethodPost, path, gin.H{"stage": "attended"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.StageAttended, store.attendance[attKey(w.ID, attendee.ID)].Stage)

	// Moving backwards is rejected and nothing changes.
	rec = doJSON(t, r, http.MethodPost, path, gin.H{"stage": "registered"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "cannot move")
	require.Equal(t, models.StageAttended, store.attendance[attKey(w.ID, attendee.ID)].Stage)

	// Same stage is also a rejected non-advance.
	rec = doJSON(t, r, http.MethodPost, path, gin.H{"stage": "attended"})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, r, http.MethodPost, path, gin.H{"stage": "converted"})
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, models.StageConverted, store.attendance[attKey(w.ID, attendee.ID)].Stage)
}

func TestAdvanceStageUnknownStage(t *testing.T) {
	presenterID := uuid.New()
	w := testWebinar(presenterID, models.StatusLive)
	h := NewHandler(newMemStore(), &memDirectory{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}}, &memEnqueuer{}, zap.NewNop())
	r := newTestRouter(h, presenterID)

	path := fmt.Sprintf("/webinars/%s/attendees/%s/stage", w.ID, uuid.New())
	rec := doJSON(t, r, http.MethodPost, path, gin.H{"stage": "ghosted"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
