package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/cargowatch/cargowatch/internal/api/models"
	"github.com/cargowatch/cargowatch/internal/api/response"
	"github.com/cargowatch/cargowatch/internal/risk"
	"github.com/cargowatch/cargowatch/internal/watch"
)

const defaultListLimit = 50

// WatchHandler handles watch CRUD and monitoring endpoints.
type WatchHandler struct {
	service *watch.Service
}

// NewWatchHandler creates a new WatchHandler.
func NewWatchHandler(service *watch.Service) *WatchHandler {
	return &WatchHandler{service: service}
}

// ListWatches handles GET /v1/watches - list monitored routes.
func (h *WatchHandler) ListWatches(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 || parsed > 200 {
			response.BadRequest(w, r, "limit must be between 1 and 200", nil)
			return
		}
		limit = parsed
	}

	result, err := h.service.List(r.Context(), watch.ListOptions{
		Limit:  limit,
		Cursor: r.URL.Query().Get("cursor"),
	})
	if err != nil {
		response.InternalError(w, r, "listing watches failed")
		return
	}

	items := make([]models.Watch, len(result.Items))
	for i, item := range result.Items {
		items[i] = models.NewWatch(item)
	}

	paged := models.PagedWatches{
		Items: items,
		Meta:  models.PagedResponseMeta{Limit: limit},
	}
	if result.NextCursor != "" {
		cursor := result.NextCursor
		paged.Meta.NextCursor = &cursor
	}

	response.JSON(w, r, http.StatusOK, paged)
}

// CreateWatch handles POST /v1/watches - create a monitored route.
func (h *WatchHandler) CreateWatch(w http.ResponseWriter, r *http.Request) {
	var input models.WatchCreateRequest
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

	created, err := h.service.Create(r.Context(), watch.CreateInput{
		Label:      input.Label,
		Plan:       plan,
		PointCount: input.PointCount,
		PollEvery:  time.Duration(input.PollSeconds) * time.Second,
	})
	if err != nil {
		response.InternalError(w, r, "creating watch failed")
		return
	}

	location := fmt.Sprintf("/v1/watches/%s", created.ID)
	response.Created(w, r, location, models.NewWatch(created))
}

// GetWatch handles GET /v1/watches/{watchId} - get a monitored route.
func (h *WatchHandler) GetWatch(w http.ResponseWriter, r *http.Request) {
	found, err := h.service.Get(r.Context(), chi.URLParam(r, "watchId"))
	if err != nil {
		writeWatchError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, models.NewWatch(found))
}

// DeleteWatch handles DELETE /v1/watches/{watchId} - stop monitoring and
// remove a route.
func (h *WatchHandler) DeleteWatch(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "watchId")); err != nil {
		writeWatchError(w, r, err)
		return
	}
	response.NoContent(w, r)
}

// RefreshWatch handles POST /v1/watches/{watchId}:refresh - trigger a manual
// re-evaluation. A refresh while an evaluation is in flight is a no-op.
func (h *WatchHandler) RefreshWatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "watchId")
	if err := h.service.Refresh(r.Context(), id); err != nil {
		writeWatchError(w, r, err)
		return
	}

	snapshot, err := h.service.Assessment(id)
	if err != nil {
		writeWatchError(w, r, err)
		return
	}
	response.Accepted(w, r, newWatchAssessment(snapshot))
}

// WatchAssessment handles GET /v1/watches/{watchId}/assessment - the latest
// monitor snapshot.
func (h *WatchHandler) WatchAssessment(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.service.Assessment(chi.URLParam(r, "watchId"))
	if err != nil {
		writeWatchError(w, r, err)
		return
	}
	response.JSON(w, r, http.StatusOK, newWatchAssessment(snapshot))
}

func newWatchAssessment(s risk.Snapshot) models.WatchAssessment {
	out := models.WatchAssessment{
		State:     string(s.State),
		UpdatedAt: models.Timestamp(s.UpdatedAt),
	}
	if s.Assessment != nil {
		assessment := models.NewRouteAssessment(s.Assessment)
		out.Assessment = &assessment
	}
	if s.Err != nil {
		out.Error = s.Err.Error()
	}
	return out
}

func writeWatchError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, watch.ErrWatchNotFound) {
		response.NotFound(w, r, "watch not found")
		return
	}
	response.InternalError(w, r, "watch operation failed")
}
