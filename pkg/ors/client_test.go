package ors

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cavena/mobility-cli/internal/model"
	"github.com/cavena/mobility-cli/internal/resilience"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("test-key", WithBaseURL(srv.URL))
	require.NoError(t, err)
	return c
}

func TestNewClient_EmptyKeyRejected(t *testing.T) {
	_, err := NewClient("   ")
	assert.Error(t, err)
}

func TestDirections_RequestShapeAndRounding(t *testing.T) {
	var captured map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/directions/cycling-regular", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("Authorization"))

		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		_, _ = io.WriteString(w, `{"routes":[{"summary":{"distance":12345,"duration":3605},"geometry":"abc"}]}`)
	})

	origin := model.GeoPoint{Lat: 44.8378, Lon: -0.5792}
	dest := model.GeoPoint{Lat: 44.8404, Lon: -0.5805}

	route, err := c.Directions(context.Background(), origin, dest, 300)
	require.NoError(t, err)

	// ORS takes lon,lat pairs.
	coords := captured["coordinates"].([]any)
	first := coords[0].([]any)
	assert.InDelta(t, -0.5792, first[0].(float64), 1e-9)
	assert.InDelta(t, 44.8378, first[1].(float64), 1e-9)

	radiuses := captured["radiuses"].([]any)
	assert.Len(t, radiuses, 2)
	assert.Equal(t, 300.0, radiuses[0].(float64))
	assert.Equal(t, false, captured["instructions"])

	assert.Equal(t, 12.35, route.DistanceKm, "distance is km with two decimals")
	assert.Equal(t, 60, route.DurationMin, "duration is whole minutes")
	assert.Equal(t, "abc", route.Geometry)
}

func TestDirections_NoRouteFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"routes":[]}`)
	})

	_, err := c.Directions(context.Background(), model.GeoPoint{}, model.GeoPoint{}, 300)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err), "empty answer is definitive")
}

func TestPostJSON_TransientStatusMarked(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Directions(context.Background(), model.GeoPoint{}, model.GeoPoint{}, 300)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
}

func TestPostJSON_HardStatusNotTransient(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.Directions(context.Background(), model.GeoPoint{}, model.GeoPoint{}, 300)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestIsochrone_ParsesPolygonAndRequestShape(t *testing.T) {
	var captured map[string]any

	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v2/isochrones/cycling-regular", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &captured))

		_, _ = io.WriteString(w, `{"features":[{"geometry":{"type":"Polygon","coordinates":[[[4.82,45.75],[4.85,45.75],[4.85,45.78],[4.82,45.75]]]}}]}`)
	})

	poly, err := c.Isochrone(context.Background(), model.GeoPoint{Lat: 45.76, Lon: 4.83}, 5, 0.9)
	require.NoError(t, err)
	require.NotNil(t, poly)
	assert.Equal(t, 4, poly.NumCoords())

	assert.Equal(t, []any{5000.0}, captured["range"].([]any), "thresholds travel in meters")
	assert.Equal(t, "distance", captured["range_type"])
	loc := captured["locations"].([]any)[0].([]any)
	assert.InDelta(t, 4.83, loc[0].(float64), 1e-9)
	assert.InDelta(t, 45.76, loc[1].(float64), 1e-9)
}

func TestIsochrone_EmptyFeatureCollection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{"features":[]}`)
	})

	_, err := c.Isochrone(context.Background(), model.GeoPoint{Lat: 45.76, Lon: 4.83}, 2, 0.9)
	assert.Error(t, err)
}
