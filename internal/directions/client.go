package directions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"waygroup/internal/config"
	"waygroup/internal/models"
)

// ErrNoRoute means the provider found no path between origin and destination.
var ErrNoRoute = errors.New("no route found between origin and destination")

var htmlTagPattern = regexp.MustCompile(`<[^>]*>`)

type valueText struct {
	Value float64 `json:"value"`
	Text  string  `json:"text"`
}

type latLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

type providerStep struct {
	Distance         valueText `json:"distance"`
	Duration         valueText `json:"duration"`
	HTMLInstructions string    `json:"html_instructions"`
	Maneuver         string    `json:"maneuver"`
	EndLocation      latLng    `json:"end_location"`
}

type providerLeg struct {
	Distance valueText      `json:"distance"`
	Duration valueText      `json:"duration"`
	Steps    []providerStep `json:"steps"`
}

type providerRoute struct {
	OverviewPolyline struct {
		Points string `json:"points"`
	} `json:"overview_polyline"`
	Legs []providerLeg `json:"legs"`
}

type directionsResponse struct {
	Status       string          `json:"status"`
	ErrorMessage string          `json:"error_message"`
	Routes       []providerRoute `json:"routes"`
}

// Client fetches precomputed routes from the directions provider and converts
// them into immutable NavigationRoute values. A configured cache is consulted
// read-through; cache failures never block a fetch.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	cache      *RouteCache
	logger     zerolog.Logger
}

func NewClient(cfg config.DirectionsConfig, cache *RouteCache, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		cache:      cache,
		logger:     logger,
	}
}

func (c *Client) FetchRoute(ctx context.Context, originLat, originLng, destLat, destLng float64, mode models.TravelMode) (*models.NavigationRoute, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("unsupported travel mode %q", mode)
	}
	for _, v := range []float64{originLat, originLng, destLat, destLng} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("coordinates must be finite numbers")
		}
	}

	key := cacheKey(originLat, originLng, destLat, destLng, mode)
	if c.cache != nil {
		if route, ok := c.cache.Get(ctx, key); ok {
			c.logger.Debug().Str("key", key).Msg("route cache hit")
			return route, nil
		}
	}

	query := url.Values{}
	query.Set("origin", fmt.Sprintf("%f,%f", originLat, originLng))
	query.Set("destination", fmt.Sprintf("%f,%f", destLat, destLng))
	query.Set("mode", providerMode(mode))
	if c.apiKey != "" {
		query.Set("key", c.apiKey)
	}

	requestURL := fmt.Sprintf("%s/directions/json?%s", c.baseURL, query.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("could not build directions request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("directions request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("directions provider returned status %d", resp.StatusCode)
	}

	var body directionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("could not parse directions response: %w", err)
	}

	switch body.Status {
	case "OK":
	case "ZERO_RESULTS":
		return nil, ErrNoRoute
	default:
		return nil, fmt.Errorf("directions provider error %s: %s", body.Status, body.ErrorMessage)
	}

	if len(body.Routes) == 0 {
		return nil, ErrNoRoute
	}

	route := convertRoute(body.Routes[0])
	if len(route.Steps) == 0 {
		return nil, ErrNoRoute
	}

	if c.cache != nil {
		c.cache.Put(ctx, key, route)
	}

	return route, nil
}

func convertRoute(provider providerRoute) *models.NavigationRoute {
	route := &models.NavigationRoute{
		Geometry: provider.OverviewPolyline.Points,
	}

	for _, leg := range provider.Legs {
		route.Distance += leg.Distance.Value
		route.Duration += leg.Duration.Value

		for _, step := range leg.Steps {
			maneuverType, modifier := parseManeuver(step.Maneuver)
			route.Steps = append(route.Steps, models.Step{
				Instruction: stripHTML(step.HTMLInstructions),
				Distance:    step.Distance.Value,
				Duration:    step.Duration.Value,
				Maneuver: models.Maneuver{
					Type:      maneuverType,
					Modifier:  modifier,
					Latitude:  step.EndLocation.Lat,
					Longitude: step.EndLocation.Lng,
				},
			})
		}
	}

	return route
}

// parseManeuver splits provider maneuvers like "turn-left" or
// "roundabout-right" into type and modifier. Steps without a maneuver are
// continuations.
func parseManeuver(raw string) (string, string) {
	if raw == "" {
		return "continue", ""
	}

	parts := strings.SplitN(raw, "-", 2)
	if len(parts) == 1 {
		return parts[0], ""
	}
	return parts[0], parts[1]
}

func stripHTML(instruction string) string {
	text := htmlTagPattern.ReplaceAllString(instruction, " ")
	text = strings.ReplaceAll(text, "&nbsp;", " ")
	return strings.Join(strings.Fields(text), " ")
}

func providerMode(mode models.TravelMode) string {
	if mode == models.TravelModeCycling {
		return "bicycling"
	}
	return string(mode)
}

func cacheKey(originLat, originLng, destLat, destLng float64, mode models.TravelMode) string {
	return fmt.Sprintf("route:%s:%.6f,%.6f:%.6f,%.6f", mode, originLat, originLng, destLat, destLng)
}
