package directions

import (
	"context"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/models"
)

const okResponse = `{
	"status": "OK",
	"routes": [{
		"overview_polyline": {"points": "_p~iF~ps|U_ulLnnqC"},
		"legs": [{
			"distance": {"value": 800, "text": "0.8 km"},
			"duration": {"value": 100, "text": "2 mins"},
			"steps": [
				{
					"distance": {"value": 500, "text": "0.5 km"},
					"duration": {"value": 60, "text": "1 min"},
					"html_instructions": "Head <b>north</b> on&nbsp;<b>Elm St</b>",
					"maneuver": "",
					"end_location": {"lat": 52.5219, "lng": 13.4132}
				},
				{
					"distance": {"value": 300, "text": "0.3 km"},
					"duration": {"value": 40, "text": "1 min"},
					"html_instructions": "Turn <b>left</b> onto <b>Oak Ave</b>",
					"maneuver": "turn-left",
					"end_location": {"lat": 52.5163, "lng": 13.3777}
				}
			]
		}]
	}]
}`

func newTestClient(t *testing.T, handler http.HandlerFunc, cache *RouteCache) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(config.DirectionsConfig{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Timeout: time.Second,
	}, cache, zerolog.Nop())
}

func TestFetchRouteParsesProviderResponse(t *testing.T) {
	var gotQuery map[string]string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = map[string]string{
			"origin":      r.URL.Query().Get("origin"),
			"destination": r.URL.Query().Get("destination"),
			"mode":        r.URL.Query().Get("mode"),
			"key":         r.URL.Query().Get("key"),
		}
		w.Write([]byte(okResponse))
	}, nil)

	route, err := client.FetchRoute(context.Background(), 52.52, 13.40, 52.51, 13.37, models.TravelModeDriving)
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if gotQuery["mode"] != "driving" || gotQuery["key"] != "test-key" {
		t.Fatalf("unexpected query %v", gotQuery)
	}

	if route.Distance != 800 || route.Duration != 100 {
		t.Fatalf("expected totals 800m/100s, got %f/%f", route.Distance, route.Duration)
	}
	if route.Geometry != "_p~iF~ps|U_ulLnnqC" {
		t.Fatalf("unexpected geometry %q", route.Geometry)
	}
	if len(route.Steps) != 2 {
		t.Fatalf("expected 2 steps, got %d", len(route.Steps))
	}

	first := route.Steps[0]
	if first.Instruction != "Head north on Elm St" {
		t.Fatalf("html not stripped: %q", first.Instruction)
	}
	if first.Maneuver.Type != "continue" || first.Maneuver.Modifier != "" {
		t.Fatalf("empty maneuver must map to continue, got %+v", first.Maneuver)
	}

	second := route.Steps[1]
	if second.Maneuver.Type != "turn" || second.Maneuver.Modifier != "left" {
		t.Fatalf("expected turn/left, got %+v", second.Maneuver)
	}
	if second.Maneuver.Latitude != 52.5163 || second.Maneuver.Longitude != 13.3777 {
		t.Fatalf("expected end location as anchor, got %+v", second.Maneuver)
	}
}

func TestFetchRouteCyclingMapsToBicycling(t *testing.T) {
	var mode string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mode = r.URL.Query().Get("mode")
		w.Write([]byte(okResponse))
	}, nil)

	if _, err := client.FetchRoute(context.Background(), 0, 0, 1, 1, models.TravelModeCycling); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if mode != "bicycling" {
		t.Fatalf("expected provider mode bicycling, got %q", mode)
	}
}

func TestFetchRouteZeroResults(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ZERO_RESULTS", "routes": []}`))
	}, nil)

	_, err := client.FetchRoute(context.Background(), 0, 0, 1, 1, models.TravelModeWalking)
	if !errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected ErrNoRoute, got %v", err)
	}
}

func TestFetchRouteProviderError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "REQUEST_DENIED", "error_message": "bad key", "routes": []}`))
	}, nil)

	_, err := client.FetchRoute(context.Background(), 0, 0, 1, 1, models.TravelModeWalking)
	if err == nil || errors.Is(err, ErrNoRoute) {
		t.Fatalf("expected a provider error, got %v", err)
	}
}

func TestFetchRouteHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}, nil)

	if _, err := client.FetchRoute(context.Background(), 0, 0, 1, 1, models.TravelModeWalking); err == nil {
		t.Fatal("expected an error on HTTP 502")
	}
}

func TestFetchRouteInvalidMode(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for an invalid mode")
	}, nil)

	if _, err := client.FetchRoute(context.Background(), 0, 0, 1, 1, "teleport"); err == nil {
		t.Fatal("expected an error for an invalid mode")
	}
}

func TestFetchRouteRejectsNonFiniteCoordinates(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called for non-finite coordinates")
	}, nil)

	if _, err := client.FetchRoute(context.Background(), math.NaN(), 0, 1, 1, models.TravelModeWalking); err == nil {
		t.Fatal("expected an error for NaN origin")
	}
	if _, err := client.FetchRoute(context.Background(), 0, 0, math.Inf(1), 1, models.TravelModeWalking); err == nil {
		t.Fatal("expected an error for infinite destination")
	}
}

func TestFetchRouteUsesCache(t *testing.T) {
	srv := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	cache := NewRouteCache(redisClient, time.Minute, zerolog.Nop())

	requests := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests++
		w.Write([]byte(okResponse))
	}, cache)

	for i := 0; i < 3; i++ {
		route, err := client.FetchRoute(context.Background(), 52.52, 13.40, 52.51, 13.37, models.TravelModeDriving)
		if err != nil {
			t.Fatalf("fetch %d: %v", i, err)
		}
		if route.Distance != 800 {
			t.Fatalf("fetch %d: unexpected distance %f", i, route.Distance)
		}
	}

	if requests != 1 {
		t.Fatalf("expected a single provider request, got %d", requests)
	}

	// A different mode misses the cache.
	if _, err := client.FetchRoute(context.Background(), 52.52, 13.40, 52.51, 13.37, models.TravelModeWalking); err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if requests != 2 {
		t.Fatalf("expected a second provider request for the new mode, got %d", requests)
	}
}

func TestStripHTML(t *testing.T) {
	cases := []struct {
		in, want string
	}{
		{"Turn <b>left</b>", "Turn left"},
		{`Continue onto <div style="font-size:0.9em">A100</div>`, "Continue onto A100"},
		{"Head&nbsp;north", "Head north"},
		{"No markup", "No markup"},
	}
	for _, tc := range cases {
		if got := stripHTML(tc.in); got != tc.want {
			t.Fatalf("stripHTML(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
