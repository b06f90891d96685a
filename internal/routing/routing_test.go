package routing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fishing-exam-alert/backend/internal/domain"
)

const twoRoutes = `{
  "status": "OK",
  "geocoded_waypoints": [],
  "routes": [
    {"summary": "A9", "legs": [{"distance": {"text": "48,2 km", "value": 48213}, "duration": {"text": "41 Min.", "value": 2460}}]},
    {"summary": "B13", "legs": [{"distance": {"text": "45,0 km", "value": 45010}, "duration": {"text": "52 Min.", "value": 3120}}]}
  ]
}`

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := New("test-key", WithBaseURL(srv.URL), WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return c
}

func TestClient_Route(t *testing.T) {
	var gotQuery map[string]string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/maps/api/directions/json", r.URL.Path)
		q := r.URL.Query()
		gotQuery = map[string]string{
			"origin":      q.Get("origin"),
			"destination": q.Get("destination"),
			"mode":        q.Get("mode"),
			"key":         q.Get("key"),
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(twoRoutes))
	})

	route, err := c.Route(context.Background(), "85570, Deutschland", "Hauptstr. 1, 85560 Ebersberg, Deutschland")
	require.NoError(t, err)

	assert.Equal(t, "85570, Deutschland", gotQuery["origin"])
	assert.Equal(t, "Hauptstr. 1, 85560 Ebersberg, Deutschland", gotQuery["destination"])
	assert.Equal(t, "driving", gotQuery["mode"])
	assert.Equal(t, "test-key", gotQuery["key"])

	require.Len(t, route.Legs, 2)
	assert.Equal(t, domain.RouteLeg{Meters: 48213, Seconds: 2460}, route.Legs[0])
	assert.Equal(t, domain.RouteLeg{Meters: 45010, Seconds: 3120}, route.Legs[1])
	assert.Contains(t, route.Raw, "48213")

	shortest, ok := route.ShortestLeg()
	require.True(t, ok)
	assert.Equal(t, 45010, shortest.Meters)
}

func TestClient_Route_ZeroResults(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
	})

	route, err := c.Route(context.Background(), "a", "b")
	require.NoError(t, err)
	assert.Empty(t, route.Legs)
}

func TestClient_Route_ProviderError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "invalid key"}`))
	})

	_, err := c.Route(context.Background(), "a", "b")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REQUEST_DENIED")
}
