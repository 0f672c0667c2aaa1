package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/mtoivanen/fuelwatch/internal/database"
	"github.com/mtoivanen/fuelwatch/internal/models"
	"github.com/mtoivanen/fuelwatch/internal/scheduler"
	"github.com/mtoivanen/fuelwatch/internal/service"
)

// StatusHandler handles the /status endpoint.
type StatusHandler struct {
	service   *service.Service
	scheduler *scheduler.Scheduler
	db        *database.DB
	startTime time.Time
}

// NewStatusHandler creates a new StatusHandler.
func NewStatusHandler(svc *service.Service, sched *scheduler.Scheduler, db *database.DB) *StatusHandler {
	return &StatusHandler{
		service:   svc,
		scheduler: sched,
		db:        db,
		startTime: time.Now(),
	}
}

// ServeHTTP implements the http.Handler interface.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{
		Status:        "healthy",
		UptimeSeconds: int64(time.Since(h.startTime).Seconds()),
		Refresh:       h.service.Status(),
	}

	if !response.Refresh.LastRefreshSuccess && response.Refresh.TotalRefreshes > 0 {
		response.Status = "degraded"
	}

	if h.scheduler != nil {
		response.SchedulerRunning = h.scheduler.IsRunning()
		response.LastRefreshAt = h.scheduler.LastRefreshAt()
		nextRefresh := h.scheduler.NextRefreshAt()
		if !nextRefresh.IsZero() {
			response.NextRefreshAt = &nextRefresh
		}
	}

	response.Database = h.getDatabaseStatus(ctx)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(response); err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *StatusHandler) getDatabaseStatus(ctx context.Context) models.DatabaseStatus {
	status := models.DatabaseStatus{}

	if h.db == nil {
		return status
	}
	status.Enabled = true

	if err := h.db.Ping(); err != nil {
		return status
	}
	status.Connected = true

	count, err := h.db.GetTotalPricesCount(ctx)
	if err == nil {
		status.TotalPricesStored = count
	}

	return status
}
