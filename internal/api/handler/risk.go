// Package handler provides HTTP handlers for the cargowatch API.
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/cargowatch/cargowatch/internal/api/models"
	"github.com/cargowatch/cargowatch/internal/api/response"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/route"
	"github.com/cargowatch/cargowatch/internal/weather"
	"github.com/cargowatch/cargowatch/internal/weather/gateway"
)

// RiskHandler handles route assessment and current weather endpoints.
type RiskHandler struct {
	engine  *risk.Engine
	weather *weather.Service
}

// NewRiskHandler creates a new RiskHandler.
func NewRiskHandler(engine *risk.Engine, weatherService *weather.Service) *RiskHandler {
	return &RiskHandler{engine: engine, weather: weatherService}
}

// AssessRoute handles POST /v1/routes:assess - run a full route risk assessment.
func (h *RiskHandler) AssessRoute(w http.ResponseWriter, r *http.Request) {
	var input models.AssessRouteRequest
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		response.BadRequest(w, r, "invalid JSON body", nil)
		return
	}

	if fieldErrors := models.Validate(&input); fieldErrors != nil {
		response.BadRequest(w, r, "request validation failed", fieldErrors)
		return
	}

	plan, err := planFromRequest(input.Waypoints, input.Polyline,
		input.DistanceMeters, input.DurationSeconds, input.DepartureTime)
	if err != nil {
		writeRouteError(w, r, err)
		return
	}

	opts := risk.AssessOptions{
		PointCount:  input.PointCount,
		BypassCache: input.BypassCache,
	}
	if input.CurrentLocation != nil {
		opts.CurrentLocation = &route.Coordinate{
			Lat: input.CurrentLocation.Lat,
			Lon: input.CurrentLocation.Lon,
		}
	}

	assessment, err := h.engine.AssessRoute(r.Context(), plan, opts)
	if err != nil {
		writeAssessError(w, r, err)
		return
	}

	response.JSON(w, r, http.StatusOK, models.NewRouteAssessment(assessment))
}

// CurrentWeather handles GET /v1/weather/current - current conditions with a
// blended risk view for a single location.
func (h *RiskHandler) CurrentWeather(w http.ResponseWriter, r *http.Request) {
	lat, latErr := strconv.ParseFloat(r.URL.Query().Get("lat"), 64)
	lon, lonErr := strconv.ParseFloat(r.URL.Query().Get("lon"), 64)
	if latErr != nil || lonErr != nil {
		response.BadRequest(w, r, "lat and lon query parameters are required", []models.FieldError{
			{Field: "lat", Message: "must be a number"},
			{Field: "lon", Message: "must be a number"},
		})
		return
	}

	conditions, err := h.weather.Current(r.Context(), lat, lon)
	if err != nil {
		if errors.Is(err, weather.ErrInvalidCoordinates) {
			response.BadRequest(w, r, "coordinates out of range", nil)
			return
		}
		writeAssessError(w, r, err)
		return
	}

	blended := risk.BlendCurrent(conditions)
	response.JSON(w, r, http.StatusOK, models.CurrentWeatherResponse{
		Weather: models.NewWeatherSample(conditions.Sample),
		Risk: models.CurrentRisk{
			Weather:      models.NewWeatherSample(blended.Sample),
			Score:        blended.Score,
			Level:        blended.Level,
			Description:  blended.Description,
			FromProvider: blended.FromProvider,
		},
	})
}

// planFromRequest builds a route plan from either an encoded polyline or
// explicit waypoints.
func planFromRequest(waypoints []models.Point, encoded string, distanceMeters float64, durationSeconds int, departure time.Time) (route.Plan, error) {
	duration := time.Duration(durationSeconds) * time.Second

	if encoded != "" {
		return route.PlanFromPolyline(encoded, duration, departure)
	}

	coords := make([]route.Coordinate, len(waypoints))
	for i, p := range waypoints {
		coords[i] = route.Coordinate{Lat: p.Lat, Lon: p.Lon}
	}

	plan := route.Plan{
		Waypoints:      coords,
		DistanceMeters: distanceMeters,
		Duration:       duration,
		DepartureTime:  departure,
	}
	if err := plan.Validate(); err != nil {
		return route.Plan{}, err
	}
	return plan, nil
}

// writeRouteError maps route plan errors onto 400 responses.
func writeRouteError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, route.ErrInvalidCoordinates):
		response.BadRequest(w, r, "waypoint coordinates out of range", nil)
	case errors.Is(err, route.ErrInvalidRoute):
		response.BadRequest(w, r, "route requires at least two waypoints, a positive distance and duration", nil)
	default:
		response.BadRequest(w, r, err.Error(), nil)
	}
}

// writeAssessError maps engine and gateway errors onto problem responses.
// Gateway rejections surface as 502 with the provider's message; outages
// that the fallback could not absorb surface as 503.
func writeAssessError(w http.ResponseWriter, r *http.Request, err error) {
	var rejected *gateway.RejectedError
	switch {
	case errors.Is(err, route.ErrInvalidRoute), errors.Is(err, route.ErrInvalidCoordinates):
		writeRouteError(w, r, err)
	case errors.As(err, &rejected):
		response.BadGateway(w, r, rejected.Message)
	case errors.Is(err, gateway.ErrUnavailable):
		response.ServiceUnavailable(w, r, "weather gateway is unavailable")
	default:
		response.InternalError(w, r, "assessment failed")
	}
}
