package handlers

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/tmarcus/lookalike/internal/media"
	"github.com/tmarcus/lookalike/internal/scan"
)

// FilesHandler serves metadata and thumbnails for files that appeared in the
// last scan's groups. Only those paths are reachable: the scan results act
// as the allow list, so the endpoint cannot be used to read arbitrary files.
type FilesHandler struct {
	Manager *scan.Manager
}

// Info handles GET /api/files/info?path=...
func (h *FilesHandler) Info(w http.ResponseWriter, r *http.Request) {
	path, ok := h.resolvePath(w, r)
	if !ok {
		return
	}

	info, err := media.Info(path)
	if err != nil {
		if os.IsNotExist(err) {
			writeError(w, http.StatusNotFound, "NOT_FOUND", "File no longer exists on disk")
			return
		}
		slog.Error("files info", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, struct {
		media.FileInfo
		Filename string `json:"filename"`
	}{FileInfo: info, Filename: filepath.Base(path)})
}

// Thumbnail handles GET /api/files/thumbnail?path=...
// Returns a 320x320 JPEG thumbnail.
func (h *FilesHandler) Thumbnail(w http.ResponseWriter, r *http.Request) {
	path, ok := h.resolvePath(w, r)
	if !ok {
		return
	}

	thumb, err := media.Thumbnail(path, 320, 320)
	if err != nil {
		slog.Error("files thumbnail", "path", path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "thumbnail generation failed")
		return
	}
	if thumb == nil {
		writeError(w, http.StatusNotFound, "NOT_FOUND", "File is not previewable")
		return
	}

	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.WriteHeader(http.StatusOK)
	w.Write(thumb) //nolint:errcheck
}

// resolvePath validates the path query parameter against the last scan's
// groups, writing the error response itself on failure.
func (h *FilesHandler) resolvePath(w http.ResponseWriter, r *http.Request) (string, bool) {
	path := r.URL.Query().Get("path")
	if path == "" {
		writeError(w, http.StatusBadRequest, "MISSING_PATH", "Query parameter 'path' is required")
		return "", false
	}

	last := h.Manager.Last()
	if last == nil || last.Outcome.State != scan.StateDone {
		writeError(w, http.StatusNotFound, "NO_RESULTS", "No completed scan results are available")
		return "", false
	}
	for _, paths := range last.Outcome.Groups {
		for _, p := range paths {
			if p == path {
				return path, true
			}
		}
	}
	writeError(w, http.StatusNotFound, "NOT_FOUND", "Path is not part of the last scan results")
	return "", false
}
