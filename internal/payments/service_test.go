package payments

import (
	"net/url"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79/client"
)

func newTestAPI() *client.API {
	api := &client.API{}
	api.Init("sk_test_123", nil)
	return api
}

func TestBuildConnectURL(t *testing.T) {
	userID := uuid.New()
	raw := BuildConnectURL(newTestAPI(), "ca_test123", "https://app.example.com/callback/stripe/connect", userID.String())

	require.True(t, strings.HasPrefix(raw, "https://connect.stripe.com/oauth/authorize?"))

	parsed, err := url.Parse(raw)
	require.NoError(t, err)

	q := parsed.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, "ca_test123", q.Get("client_id"))
	require.Equal(t, "read_write", q.Get("scope"))
	require.Equal(t, "https://app.example.com/callback/stripe/connect", q.Get("redirect_uri"))
	require.Equal(t, userID.String(), q.Get("state"))
	require.Len(t, q, 5)
}
