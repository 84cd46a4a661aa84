// Package gateway implements the HTTP client for the external weather and
// hazard gateway. The one client serves both the weather and hazard provider
// interfaces, since the upstream exposes both datasets.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/cargowatch/cargowatch/internal/hazard"
	"github.com/cargowatch/cargowatch/internal/provider/resilience"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
)

const (
	// ProviderName identifies the gateway in logs and the ops registry.
	ProviderName = "weather-gateway"
)

// Gateway error taxonomy. Callers branch on the class, not the transport
// detail: unavailable means the data simply could not be obtained right now
// (connection refused, timeout, 5xx, or an unprovisioned 404 endpoint),
// rejected means the gateway understood the request and refused it.
var (
	// ErrUnavailable marks connectivity-class failures.
	ErrUnavailable = errors.New("weather gateway unavailable")
)

// RejectedError is a non-404 4xx response. It is never retried and carries
// the gateway's message for the caller.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gateway rejected request: status %d", e.StatusCode)
	}
	return fmt.Sprintf("gateway rejected request: status %d: %s", e.StatusCode, e.Message)
}

// ClientConfig holds configuration for the gateway client.
type ClientConfig struct {
	// BaseURL of the gateway (required), without trailing slash.
	BaseURL string

	// APIKey sent in the X-Api-Key header (optional).
	APIKey string

	// HTTPClient to use. If nil, a resilient client with defaults.
	HTTPClient *resilience.Client

	// Registry receives per-call success/failure records (optional).
	Registry *resilience.Registry

	// Logger for client operations.
	Logger zerolog.Logger
}

// Client talks to the weather/hazard gateway. It satisfies both
// weather.Provider and hazard.Provider.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *resilience.Client
	registry   *resilience.Registry
	logger     zerolog.Logger
}

// NewClient creates a gateway client.
func NewClient(cfg ClientConfig) *Client {
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = resilience.NewClient(resilience.ClientConfig{Name: ProviderName})
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
		registry:   cfg.Registry,
		logger:     cfg.Logger,
	}
}

// Name returns the provider name.
func (c *Client) Name() string {
	return ProviderName
}

// RouteForecast fetches the route analysis and maps its daily forecast onto
// the timeline, one sample per point in point order.
func (c *Client) RouteForecast(ctx context.Context, points []route.TimelinePoint, _ time.Time) ([]weather.Sample, error) {
	if len(points) == 0 {
		return nil, nil
	}

	body := routeAnalysisRequest{
		StartLat: points[0].Coordinate.Lat,
		StartLon: points[0].Coordinate.Lon,
		EndLat:   points[len(points)-1].Coordinate.Lat,
		EndLon:   points[len(points)-1].Coordinate.Lon,
	}
	for _, p := range points {
		body.Waypoints = append(body.Waypoints, wirePoint{Lat: p.Coordinate.Lat, Lon: p.Coordinate.Lon})
	}

	var analysis routeAnalysisResponse
	if err := c.postJSON(ctx, "/weather/route-analysis", body, &analysis); err != nil {
		return nil, fmt.Errorf("route analysis: %w", err)
	}

	samples := make([]weather.Sample, len(points))
	for i, p := range points {
		samples[i] = analysis.sampleFor(p)
	}
	return samples, nil
}

// Current fetches current conditions for a location, including the gateway's
// optional risk opinion.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*weather.CurrentConditions, error) {
	url := fmt.Sprintf("%s/weather/current?lat=%.6f&lon=%.6f", c.baseURL, lat, lon)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	var payload currentResponse
	if err := c.execute(req, &payload); err != nil {
		return nil, fmt.Errorf("current conditions: %w", err)
	}

	sample := payload.toSample(lat, lon)

	conditions := &weather.CurrentConditions{Sample: sample}
	if payload.RiskScore != nil {
		conditions.ProviderRisk = &weather.ProviderRisk{
			Score:       *payload.RiskScore,
			Level:       payload.RiskLevel,
			Description: payload.RiskDescription,
		}
	}

	return conditions, nil
}

// RouteWarnings fetches hazard advisories along the route for the travel
// window, in gateway order.
func (c *Client) RouteWarnings(ctx context.Context, points []route.TimelinePoint, departure time.Time) ([]hazard.Warning, error) {
	if len(points) == 0 {
		return nil, nil
	}

	body := hazardWarningsRequest{DepartureTime: departure.UTC()}
	for _, p := range points {
		body.Route = append(body.Route, wirePoint{Lat: p.Coordinate.Lat, Lon: p.Coordinate.Lon})
	}

	var warnings []hazardWarningPayload
	if err := c.postJSON(ctx, "/weather/hazard-warnings", body, &warnings); err != nil {
		return nil, fmt.Errorf("hazard warnings: %w", err)
	}

	result := make([]hazard.Warning, 0, len(warnings))
	for _, w := range warnings {
		result = append(result, w.toWarning())
	}
	return result, nil
}

func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	encoded, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(string(encoded)))
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	return c.execute(req, out)
}

// execute runs the request, classifies the outcome, and decodes a 2xx body
// into out.
func (c *Client) execute(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Network errors, timeouts and an open breaker are all the same
		// thing to the caller: the gateway cannot be reached right now.
		c.recordFailure(err)
		return fmt.Errorf("%w: %s", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if err := c.classifyStatus(resp); err != nil {
		c.recordFailure(err)
		return err
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.recordFailure(err)
		return fmt.Errorf("%w: decoding response: %s", ErrUnavailable, err)
	}

	c.recordSuccess()
	return nil
}

// classifyStatus maps a non-2xx response into the error taxonomy. 404 means
// the endpoint is not provisioned, which callers treat like any other
// unavailability. Other 4xx carry the gateway's message.
func (c *Client) classifyStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound || resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	default:
		return &RejectedError{
			StatusCode: resp.StatusCode,
			Message:    readErrorMessage(resp.Body),
		}
	}
}

func readErrorMessage(body io.Reader) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
		Detail  string `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(body, 4096)).Decode(&payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	if payload.Error != "" {
		return payload.Error
	}
	return payload.Detail
}

func (c *Client) recordSuccess() {
	if c.registry != nil {
		c.registry.RecordSuccess(ProviderName)
	}
}

func (c *Client) recordFailure(err error) {
	if c.registry != nil {
		c.registry.RecordFailure(ProviderName, err)
	}
}

// Gateway wire structures.

type wirePoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type routeAnalysisRequest struct {
	StartLat  float64     `json:"startLat"`
	StartLon  float64     `json:"startLon"`
	EndLat    float64     `json:"endLat"`
	EndLon    float64     `json:"endLon"`
	Waypoints []wirePoint `json:"waypoints"`
}

type routeAnalysisResponse struct {
	Current  currentResponse `json:"current"`
	Forecast []forecastEntry `json:"forecast"`
}

type forecastEntry struct {
	Date           string  `json:"date"`
	TemperatureMin float64 `json:"temperatureMin"`
	TemperatureMax float64 `json:"temperatureMax"`
	Humidity       float64 `json:"humidity"`
	WindSpeed      float64 `json:"windSpeed"`
	Description    string  `json:"description"`
	Icon           string  `json:"icon"`
}

// sampleFor picks the forecast entry covering the point's day, falling back
// to the gateway's current conditions when the entry is missing. The gateway
// forecasts per day, so a multi-day route reuses entries across points.
func (r *routeAnalysisResponse) sampleFor(p route.TimelinePoint) weather.Sample {
	day := p.EstimatedTime.UTC().Format("2006-01-02")
	for _, entry := range r.Forecast {
		if entry.Date != day {
			continue
		}
		condition := mapCondition(entry.Icon, entry.Description)
		return weather.Sample{
			Timestamp:   p.EstimatedTime,
			Lat:         p.Coordinate.Lat,
			Lon:         p.Coordinate.Lon,
			Temperature: (entry.TemperatureMin + entry.TemperatureMax) / 2,
			Humidity:    entry.Humidity,
			WindSpeed:   entry.WindSpeed,
			Condition:   condition,
			Description: entry.Description,
		}
	}

	sample := r.Current.toSample(p.Coordinate.Lat, p.Coordinate.Lon)
	sample.Timestamp = p.EstimatedTime
	return sample
}

type currentResponse struct {
	Timestamp   int64   `json:"timestamp"`
	Temperature float64 `json:"temperature"`
	Humidity    float64 `json:"humidity"`
	WindSpeed   float64 `json:"windSpeed"`
	Visibility  float64 `json:"visibility"`
	Pressure    float64 `json:"pressure"`
	Condition   string  `json:"condition"`
	Description string  `json:"description"`
	Icon        string  `json:"icon"`

	// Optional provider risk opinion, current-location only.
	RiskScore       *float64 `json:"riskScore,omitempty"`
	RiskLevel       string   `json:"riskLevel,omitempty"`
	RiskDescription string   `json:"riskDescription,omitempty"`
}

func (r *currentResponse) toSample(lat, lon float64) weather.Sample {
	at := time.Now()
	if r.Timestamp > 0 {
		at = time.Unix(r.Timestamp, 0)
	}

	condition := mapCondition(r.Icon, r.Condition)
	if condition == weather.ConditionUnknown {
		condition = mapCondition("", r.Description)
	}

	return weather.Sample{
		Timestamp:   at,
		Lat:         lat,
		Lon:         lon,
		Temperature: r.Temperature,
		Humidity:    r.Humidity,
		WindSpeed:   r.WindSpeed,
		Visibility:  r.Visibility,
		Pressure:    r.Pressure,
		Condition:   condition,
		Description: r.Description,
	}
}

type hazardWarningsRequest struct {
	Route         []wirePoint `json:"route"`
	DepartureTime time.Time   `json:"departureTime"`
}

type hazardWarningPayload struct {
	Type              string    `json:"type"`
	Severity          string    `json:"severity"`
	TimeStart         time.Time `json:"timeStart"`
	TimeEnd           time.Time `json:"timeEnd"`
	Lat               float64   `json:"lat"`
	Lon               float64   `json:"lon"`
	Description       string    `json:"description"`
	Recommendation    string    `json:"recommendation,omitempty"`
	DistanceFromStart *float64  `json:"distanceFromStart,omitempty"`
}

func (p *hazardWarningPayload) toWarning() hazard.Warning {
	distance := -1.0
	if p.DistanceFromStart != nil {
		distance = *p.DistanceFromStart
	}

	return hazard.Warning{
		Type:              hazard.Type(strings.ToUpper(p.Type)),
		Severity:          hazard.Severity(strings.ToUpper(p.Severity)),
		WindowStart:       p.TimeStart,
		WindowEnd:         p.TimeEnd,
		Coordinate:        route.Coordinate{Lat: p.Lat, Lon: p.Lon},
		Description:       p.Description,
		Recommendation:    p.Recommendation,
		DistanceFromStart: distance,
	}
}

// mapCondition resolves the gateway's icon code first, then falls back to
// keyword matching on the condition text.
func mapCondition(icon, text string) weather.Condition {
	if len(icon) >= 2 {
		switch icon[:2] {
		case "01":
			return weather.ConditionClear
		case "02", "03", "04":
			return weather.ConditionClouds
		case "09":
			return weather.ConditionDrizzle
		case "10":
			return weather.ConditionRain
		case "11":
			return weather.ConditionThunderstorm
		case "13":
			return weather.ConditionSnow
		case "50":
			return weather.ConditionFog
		}
	}

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "thunder"):
		return weather.ConditionThunderstorm
	case strings.Contains(lower, "storm"):
		return weather.ConditionStorm
	case strings.Contains(lower, "drizzle"):
		return weather.ConditionDrizzle
	case strings.Contains(lower, "rain"):
		return weather.ConditionRain
	case strings.Contains(lower, "snow"), strings.Contains(lower, "sleet"):
		return weather.ConditionSnow
	case strings.Contains(lower, "ice"), strings.Contains(lower, "freezing"):
		return weather.ConditionIce
	case strings.Contains(lower, "fog"), strings.Contains(lower, "mist"), strings.Contains(lower, "haze"):
		return weather.ConditionFog
	case strings.Contains(lower, "wind"):
		return weather.ConditionWind
	case strings.Contains(lower, "cloud"), strings.Contains(lower, "overcast"):
		return weather.ConditionClouds
	case strings.Contains(lower, "clear"), strings.Contains(lower, "sun"):
		return weather.ConditionClear
	default:
		return weather.ConditionUnknown
	}
}
