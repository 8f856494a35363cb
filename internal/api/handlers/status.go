package handlers

import (
	"net/http"
	"time"

	"github.com/tmarcus/lookalike/internal/scan"
	"github.com/tmarcus/lookalike/internal/scheduler"
)

// StatusHandler handles GET /api/status.
type StatusHandler struct {
	Manager *scan.Manager
	Sched   *scheduler.Scheduler
	Version string
}

type statusResponse struct {
	Version    string            `json:"version"`
	ActiveScan *activeScanInfo   `json:"active_scan"`
	Schedule   *scheduleInfo     `json:"schedule,omitempty"`
	LastScan   *finishedScanInfo `json:"last_scan"`
}

type activeScanInfo struct {
	Directory   string    `json:"directory"`
	Method      string    `json:"method"`
	StartedAt   time.Time `json:"started_at"`
	TriggeredBy string    `json:"triggered_by"`
	State       string    `json:"state"`
	Total       int64     `json:"total"`
	Processed   int64     `json:"processed"`
	Failed      int64     `json:"failed"`
}

type scheduleInfo struct {
	Cron      string     `json:"cron"`
	Paused    bool       `json:"paused"`
	NextRunAt *time.Time `json:"next_run_at"`
}

type finishedScanInfo struct {
	Directory       string    `json:"directory"`
	Method          string    `json:"method"`
	State           string    `json:"state"`
	StartedAt       time.Time `json:"started_at"`
	FinishedAt      time.Time `json:"finished_at"`
	DurationSeconds float64   `json:"duration_seconds"`
	DuplicateGroups int       `json:"duplicate_groups"`
	DuplicateFiles  int       `json:"duplicate_files"`
	Error           string    `json:"error,omitempty"`
}

// ServeHTTP returns the system status as JSON.
func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Version: h.Version}

	if active := h.Manager.Active(); active != nil {
		resp.ActiveScan = &activeScanInfo{
			Directory:   active.Request.Directory,
			Method:      active.Request.Method,
			StartedAt:   active.StartedAt.UTC(),
			TriggeredBy: active.TriggeredBy,
			State:       active.Progress.State().String(),
			Total:       active.Progress.Total.Load(),
			Processed:   active.Progress.Processed.Load(),
			Failed:      active.Progress.Failed.Load(),
		}
	}

	if h.Sched != nil && h.Sched.CronExpr() != "" {
		resp.Schedule = &scheduleInfo{
			Cron:      h.Sched.CronExpr(),
			Paused:    h.Sched.Paused(),
			NextRunAt: h.Sched.NextRunAt(),
		}
	}

	if last := h.Manager.Last(); last != nil {
		info := &finishedScanInfo{
			Directory:       last.Request.Directory,
			Method:          last.Request.Method,
			State:           last.Outcome.State.String(),
			StartedAt:       last.StartedAt.UTC(),
			FinishedAt:      last.FinishedAt.UTC(),
			DurationSeconds: last.FinishedAt.Sub(last.StartedAt).Seconds(),
			DuplicateGroups: len(last.Outcome.Groups),
		}
		for _, paths := range last.Outcome.Groups {
			info.DuplicateFiles += len(paths)
		}
		if last.Outcome.Err != nil {
			info.Error = last.Outcome.Err.Error()
		}
		resp.LastScan = info
	}

	writeJSON(w, http.StatusOK, resp)
}
