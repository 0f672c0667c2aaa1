package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/mtoivanen/fuelwatch/internal/config"
	"github.com/mtoivanen/fuelwatch/internal/scheduler"
	"github.com/mtoivanen/fuelwatch/internal/service"
)

// FilterHandler handles PUT /filter: live filter reconfiguration. The new
// filter applies to subsequent refresh cycles and the sensor set is
// reconciled against the current snapshot immediately, without a reload.
type FilterHandler struct {
	service *service.Service
	logger  zerolog.Logger
}

// NewFilterHandler creates a new FilterHandler.
func NewFilterHandler(svc *service.Service, logger zerolog.Logger) *FilterHandler {
	return &FilterHandler{
		service: svc,
		logger:  logger.With().Str("component", "http").Logger(),
	}
}

// filterRequest is the PUT /filter request body.
type filterRequest struct {
	UseLocationFilter bool     `json:"use_location_filter"`
	Latitude          *float64 `json:"latitude,omitempty"`
	Longitude         *float64 `json:"longitude,omitempty"`
	RadiusMeters      int      `json:"radius_meters,omitempty"`
	StationNames      []string `json:"station_names,omitempty"`
	IgnoredChains     []string `json:"ignored_chains,omitempty"`
	Fuels             []string `json:"fuels,omitempty"`
}

// filterResponse reports the reconciliation outcome of a filter update.
type filterResponse struct {
	Removed int `json:"removed"`
	Added   int `json:"added"`
	Sensors int `json:"sensors"`
}

// ServeHTTP implements the http.Handler interface.
func (h *FilterHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req filterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body: "+err.Error(), http.StatusBadRequest)
		return
	}

	filter := config.Filter{
		UseLocationFilter: req.UseLocationFilter,
		Latitude:          req.Latitude,
		Longitude:         req.Longitude,
		RadiusMeters:      req.RadiusMeters,
		StationNames:      req.StationNames,
		IgnoredChains:     req.IgnoredChains,
		Fuels:             req.Fuels,
	}
	if filter.RadiusMeters == 0 {
		filter.RadiusMeters = config.DefaultRadiusMeters
	}
	if len(filter.Fuels) == 0 {
		filter.Fuels = h.service.Filter().Fuels
	}
	for i := range filter.IgnoredChains {
		filter.IgnoredChains[i] = strings.ToLower(strings.TrimSpace(filter.IgnoredChains[i]))
	}

	diff, err := h.service.UpdateFilter(filter)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	h.logger.Info().
		Int("removed", len(diff.Remove)).
		Int("added", len(diff.Add)).
		Msg("filter updated via API")

	response := filterResponse{
		Removed: len(diff.Remove),
		Added:   len(diff.Add),
		Sensors: h.service.Registry().Count(),
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

// RefreshHandler handles POST /refresh: requests an immediate refresh
// cycle from the scheduler.
type RefreshHandler struct {
	scheduler *scheduler.Scheduler
}

// NewRefreshHandler creates a new RefreshHandler.
func NewRefreshHandler(sched *scheduler.Scheduler) *RefreshHandler {
	return &RefreshHandler{scheduler: sched}
}

// ServeHTTP implements the http.Handler interface.
func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	h.scheduler.TriggerRefresh()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	if _, err := w.Write([]byte(`{"status":"refresh scheduled"}`)); err != nil {
		panic(err)
	}
}
