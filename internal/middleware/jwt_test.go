package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pipecast/backend/internal/auth"
	"github.com/pipecast/backend/pkg/response"
)

func newProtectedRouter(jwtService *auth.JWTService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/protected", JWT(jwtService), func(c *gin.Context) {
		userID := c.MustGet(ContextUserID).(uuid.UUID)
		response.OK(c, gin.H{"user_id": userID})
	})
	return r
}

func doGet(t *testing.T, r *gin.Engine, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTAcceptsSessionToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1)
	r := newProtectedRouter(jwtService)

	userID := uuid.New()
	token, err := jwtService.Generate(userID, "sam@example.com", "presenter")
	require.NoError(t, err)

	w := doGet(t, r, token)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), userID.String())
}

func TestJWTRejectsPendingToken(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1)
	r := newProtectedRouter(jwtService)

	token, err := jwtService.GeneratePending(uuid.New(), "sam@example.com")
	require.NoError(t, err)

	w := doGet(t, r, token)
	require.Equal(t, http.StatusUnauthorized, w.Code)
	require.Contains(t, w.Body.String(), "second factor")
}

func TestJWTRejectsMissingAndMalformedHeaders(t *testing.T) {
	jwtService := auth.NewJWTService("test-secret", 1)
	r := newProtectedRouter(jwtService)

	require.Equal(t, http.StatusUnauthorized, doGet(t, r, "").Code)
	require.Equal(t, http.StatusUnauthorized, doGet(t, r, "not-a-token").Code)
}
