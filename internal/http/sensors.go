package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/service"
)

// SensorsHandler handles the /sensors endpoint: the state and attributes
// of every exposed sensor, projected against the latest snapshot.
type SensorsHandler struct {
	service *service.Service
}

// NewSensorsHandler creates a new SensorsHandler.
func NewSensorsHandler(svc *service.Service) *SensorsHandler {
	return &SensorsHandler{service: svc}
}

// sensorsResponse is the response for the /sensors endpoint.
type sensorsResponse struct {
	Count   int                  `json:"count"`
	Sensors []models.SensorState `json:"sensors"`
}

// ServeHTTP implements the http.Handler interface.
func (h *SensorsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	states := h.service.Registry().States(time.Now())
	response := sensorsResponse{
		Count:   len(states),
		Sensors: states,
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}
