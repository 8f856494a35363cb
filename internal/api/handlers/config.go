package handlers

import (
	"net/http"

	"github.com/tmarcus/lookalike/internal/config"
)

// ConfigHandler handles GET /api/config: the effective configuration after
// defaults, including the per-method thresholds. Read-only; edits go through
// the config file and a restart.
type ConfigHandler struct {
	Cfg *config.Config
}

type configResponse struct {
	ScanPath   string            `json:"scan_path"`
	Extensions []string          `json:"extensions"`
	Recursive  bool              `json:"recursive"`
	Method     string            `json:"method"`
	Workers    int               `json:"workers"`
	Schedule   string            `json:"schedule,omitempty"`
	ScanPaused bool              `json:"scan_paused"`
	Thresholds config.Thresholds `json:"thresholds"`
}

func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, configResponse{
		ScanPath:   h.Cfg.ScanPath,
		Extensions: h.Cfg.Extensions,
		Recursive:  h.Cfg.Recursive == nil || *h.Cfg.Recursive,
		Method:     h.Cfg.Method,
		Workers:    h.Cfg.Workers,
		Schedule:   h.Cfg.Schedule,
		ScanPaused: h.Cfg.ScanPaused,
		Thresholds: h.Cfg.Thresholds,
	})
}
