package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pipecast/backend/config"
	"github.com/pipecast/backend/internal/models"
)

type fakeUsers struct {
	users map[uuid.UUID]*models.User
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*models.User, error) {
	u, ok := f.users[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return u, nil
}

func (f *fakeUsers) SetStripeCustomerID(_ context.Context, userID uuid.UUID, customerID string) error {
	f.users[userID].StripeCustomerID = &customerID
	return nil
}

func (f *fakeUsers) SetStripeConnectID(_ context.Context, userID uuid.UUID, connectID string) error {
	f.users[userID].StripeConnectID = &connectID
	return nil
}

func (f *fakeUsers) SetSubscription(_ context.Context, userID uuid.UUID, active bool) error {
	f.users[userID].Subscription = active
	return nil
}

type fakeAttendees struct {
	attendees map[string]*models.Attendee
}

func (f *fakeAttendees) GetAttendeeByEmail(_ context.Context, email string) (*models.Attendee, error) {
	a, ok := f.attendees[email]
	if !ok {
		return nil, errors.New("no rows")
	}
	return a, nil
}

func (f *fakeAttendees) SetAttendeeStripeCustomer(_ context.Context, attendeeID uuid.UUID, customerID string) error {
	return nil
}

func (f *fakeAttendees) GetAttendance(_ context.Context, webinarID, attendeeID uuid.UUID) (*models.Attendance, error) {
	return nil, errors.New("no rows")
}

func (f *fakeAttendees) AdvanceStage(_ context.Context, webinarID, attendeeID uuid.UUID, from, to models.AttendanceStage) (bool, error) {
	return false, nil
}

type fakeWebinars struct {
	webinars map[uuid.UUID]*models.Webinar
}

func (f *fakeWebinars) GetByID(_ context.Context, id uuid.UUID) (*models.Webinar, error) {
	w, ok := f.webinars[id]
	if !ok {
		return nil, errors.New("no rows")
	}
	return w, nil
}

func (f *fakeWebinars) SetStripeProduct(_ context.Context, id uuid.UUID, productID, priceID string) error {
	f.webinars[id].StripeProductID = &productID
	f.webinars[id].StripePriceID = &priceID
	return nil
}

func newCheckoutRouter(users *fakeUsers, attendees *fakeAttendees, webinars *fakeWebinars) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(newTestAPI(), config.StripeConfig{}, users, attendees, webinars, zap.NewNop())
	r := gin.New()
	r.POST("/payments/checkout", h.Checkout)
	return r
}

func postCheckout(t *testing.T, r *gin.Engine, body gin.H) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/payments/checkout", &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestCheckoutUnknownWebinar(t *testing.T) {
	r := newCheckoutRouter(
		&fakeUsers{users: map[uuid.UUID]*models.User{}},
		&fakeAttendees{attendees: map[string]*models.Attendee{}},
		&fakeWebinars{webinars: map[uuid.UUID]*models.Webinar{}},
	)

	rec := postCheckout(t, r, gin.H{"webinar_id": uuid.New(), "email": "sam@example.com"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCheckoutPresenterNotConnected(t *testing.T) {
	presenterID := uuid.New()
	w := &models.Webinar{ID: uuid.New(), PresenterID: presenterID}
	r := newCheckoutRouter(
		&fakeUsers{users: map[uuid.UUID]*models.User{presenterID: {ID: presenterID}}},
		&fakeAttendees{attendees: map[string]*models.Attendee{}},
		&fakeWebinars{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}},
	)

	rec := postCheckout(t, r, gin.H{"webinar_id": w.ID, "email": "sam@example.com"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "payment account")
}

func TestCheckoutRequiresConfiguredPrice(t *testing.T) {
	presenterID := uuid.New()
	account := "acct_123"
	w := &models.Webinar{ID: uuid.New(), PresenterID: presenterID}
	r := newCheckoutRouter(
		&fakeUsers{users: map[uuid.UUID]*models.User{
			presenterID: {ID: presenterID, StripeConnectID: &account},
		}},
		&fakeAttendees{attendees: map[string]*models.Attendee{
			"sam@example.com": {ID: uuid.New(), Email: "sam@example.com"},
		}},
		&fakeWebinars{webinars: map[uuid.UUID]*models.Webinar{w.ID: w}},
	)

	// A client-supplied amount must not buy anything: the charge comes from
	// the webinar's stored price, and without one checkout is rejected.
	rec := postCheckout(t, r, gin.H{
		"webinar_id":   w.ID,
		"email":        "sam@example.com",
		"amount_cents": 1,
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "no product configured")
}
