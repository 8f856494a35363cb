package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/tmarcus/lookalike/internal/config"
	"github.com/tmarcus/lookalike/internal/method"
	"github.com/tmarcus/lookalike/internal/scan"
)

// ScansHandler handles scan-related API endpoints.
type ScansHandler struct {
	Manager *scan.Manager
	Cfg     *config.Config
}

// createScanRequest carries optional overrides for a manual scan; anything
// absent falls back to the configured defaults.
type createScanRequest struct {
	Directory  string   `json:"directory,omitempty"`
	Method     string   `json:"method,omitempty"`
	Extensions []string `json:"extensions,omitempty"`
	Recursive  *bool    `json:"recursive,omitempty"`
}

// Create handles POST /api/scans — triggers a manual scan.
func (h *ScansHandler) Create(w http.ResponseWriter, r *http.Request) {
	var body createScanRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "INVALID_BODY", "Request body is not valid JSON")
			return
		}
	}

	req := scan.Request{
		Directory:  h.Cfg.ScanPath,
		Extensions: h.Cfg.Extensions,
		Recursive:  h.Cfg.Recursive == nil || *h.Cfg.Recursive,
		Method:     h.Cfg.Method,
	}
	if body.Directory != "" {
		req.Directory = body.Directory
	}
	if body.Method != "" {
		req.Method = body.Method
	}
	if len(body.Extensions) > 0 {
		req.Extensions = body.Extensions
	}
	if body.Recursive != nil {
		req.Recursive = *body.Recursive
	}

	if !validMethod(req.Method) {
		writeError(w, http.StatusBadRequest, "UNKNOWN_METHOD", "Unknown similarity method: "+req.Method)
		return
	}

	active, err := h.Manager.Start(context.Background(), req, "manual")
	if err != nil {
		if errors.Is(err, scan.ErrAlreadyRunning) {
			writeError(w, http.StatusConflict, "SCAN_ALREADY_RUNNING", "A scan is already in progress")
			return
		}
		slog.Error("scans: start", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to start scan")
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]interface{}{
		"status":       "running",
		"directory":    active.Request.Directory,
		"method":       active.Request.Method,
		"started_at":   active.StartedAt.UTC().Format(time.RFC3339),
		"triggered_by": active.TriggeredBy,
	})
}

// Cancel handles DELETE /api/scans/current.
func (h *ScansHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	snap, err := h.Manager.Cancel()
	if err != nil {
		if errors.Is(err, scan.ErrNoActiveScan) {
			writeError(w, http.StatusNotFound, "NO_ACTIVE_SCAN", "No scan is currently running")
			return
		}
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":       "cancelling",
		"directory":    snap.Request.Directory,
		"method":       snap.Request.Method,
		"started_at":   snap.StartedAt.UTC().Format(time.RFC3339),
		"cancelled_at": time.Now().UTC().Format(time.RFC3339),
	})
}

func validMethod(name string) bool {
	for _, n := range method.Names() {
		if n == name {
			return true
		}
	}
	return false
}
